// Package marketdata drives history downloads. It chunks a requested range
// into calendar months, hands each month to the selected source and lands
// the results as parquet files in the history store layout, one file per
// symbol and month.
package marketdata

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rxtech-lab/mtsim/internal/history"
	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/marketdata/provider"
	"github.com/rxtech-lab/mtsim/internal/marketdata/writer"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/internal/utils"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// OnProgress reports download progress. current counts finished months out
// of total; message names the chunk that just finished.
type OnProgress func(current float64, total float64, message string)

// Downloader copies history from a source into the store layout.
type Downloader struct {
	source  provider.Source
	store   *history.Store
	logger  *logger.Logger
	limiter *rate.Limiter
}

// Option adjusts a Downloader.
type Option func(*Downloader)

// WithRateLimit caps upstream requests. The default allows five requests
// per second; free API tiers usually need far less.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(d *Downloader) {
		d.limiter = rate.NewLimiter(limit, burst)
	}
}

// NewDownloader creates a downloader that lands source data under the
// store's root.
func NewDownloader(source provider.Source, store *history.Store, logger *logger.Logger, opts ...Option) *Downloader {
	d := &Downloader{
		source:  source,
		store:   store,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// DownloadBars fetches bars of the symbol and timeframe inside [start, end]
// month by month. Months that yield no data leave no file behind.
func (d *Downloader) DownloadBars(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time, onProgress OnProgress) error {
	start, end, err := normalizeRange(start, end)
	if err != nil {
		return err
	}

	if !timeframe.Valid() {
		return errors.Newf(errors.ErrCodeInvalidTimeframe, "unknown timeframe %d", int(timeframe))
	}

	months := monthsIn(start, end)
	dir := history.BarsDir(d.store.Root(), symbol, timeframe)

	for i, month := range months {
		if err := d.limiter.Wait(ctx); err != nil {
			return errors.Wrapf(errors.ErrCodeDownloadFailed, err, "download of %s interrupted", symbol)
		}

		written, err := d.downloadBarMonth(ctx, symbol, timeframe, month, start, end, dir)
		if err != nil {
			return err
		}

		d.logger.Info("downloaded bars",
			zap.String("source", d.source.Name()),
			zap.String("symbol", symbol),
			zap.String("timeframe", timeframe.String()),
			zap.String("month", month.Format("2006-01")),
			zap.Int("rows", written),
		)

		if onProgress != nil {
			onProgress(float64(i+1), float64(len(months)),
				fmt.Sprintf("%s %s %s", symbol, timeframe, month.Format("2006-01")))
		}
	}

	return nil
}

// DownloadTicks fetches ticks of the symbol inside [start, end] month by
// month. Months that yield no data leave no file behind.
func (d *Downloader) DownloadTicks(ctx context.Context, symbol string, start, end time.Time, onProgress OnProgress) error {
	start, end, err := normalizeRange(start, end)
	if err != nil {
		return err
	}

	months := monthsIn(start, end)
	dir := history.TicksDir(d.store.Root(), symbol)

	for i, month := range months {
		if err := d.limiter.Wait(ctx); err != nil {
			return errors.Wrapf(errors.ErrCodeDownloadFailed, err, "download of %s interrupted", symbol)
		}

		written, err := d.downloadTickMonth(ctx, symbol, month, start, end, dir)
		if err != nil {
			return err
		}

		d.logger.Info("downloaded ticks",
			zap.String("source", d.source.Name()),
			zap.String("symbol", symbol),
			zap.String("month", month.Format("2006-01")),
			zap.Int("rows", written),
		)

		if onProgress != nil {
			onProgress(float64(i+1), float64(len(months)),
				fmt.Sprintf("%s ticks %s", symbol, month.Format("2006-01")))
		}
	}

	return nil
}

// DownloadSymbolSpec fetches the symbol specification and saves it next to
// the downloaded history, where the tester looks it up.
func (d *Downloader) DownloadSymbolSpec(ctx context.Context, symbol string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(errors.ErrCodeDownloadFailed, err, "download of %s interrupted", symbol)
	}

	spec, err := d.source.SymbolSpec(ctx, symbol)
	if err != nil {
		return err
	}

	if err := d.store.SaveSymbolSpec(spec); err != nil {
		return err
	}

	d.logger.Info("saved symbol specification",
		zap.String("source", d.source.Name()),
		zap.String("symbol", spec.Name),
	)

	return nil
}

func (d *Downloader) downloadBarMonth(ctx context.Context, symbol string, timeframe types.Timeframe, month, start, end time.Time, dir string) (written int, err error) {
	monthStart, monthEnd := utils.MonthBounds(month)
	lo, hi := clampRange(monthStart, monthEnd, start, end)

	w, err := writer.NewDuckDBBarWriter(filepath.Join(dir, history.MonthFileName(monthStart)))
	if err != nil {
		return 0, err
	}

	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err = w.Initialize(); err != nil {
		return 0, err
	}

	written, err = d.source.DownloadBars(ctx, symbol, timeframe, lo, hi, w)
	if err != nil {
		return written, err
	}

	if written == 0 {
		d.logger.Warn("no bars for month",
			zap.String("symbol", symbol),
			zap.String("month", monthStart.Format("2006-01")),
		)

		return 0, nil
	}

	if _, err = w.Finalize(); err != nil {
		return written, err
	}

	return written, nil
}

func (d *Downloader) downloadTickMonth(ctx context.Context, symbol string, month, start, end time.Time, dir string) (written int, err error) {
	monthStart, monthEnd := utils.MonthBounds(month)
	lo, hi := clampRange(monthStart, monthEnd, start, end)

	w, err := writer.NewDuckDBTickWriter(filepath.Join(dir, history.MonthFileName(monthStart)))
	if err != nil {
		return 0, err
	}

	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err = w.Initialize(); err != nil {
		return 0, err
	}

	written, err = d.source.DownloadTicks(ctx, symbol, lo, hi, w)
	if err != nil {
		return written, err
	}

	if written == 0 {
		d.logger.Warn("no ticks for month",
			zap.String("symbol", symbol),
			zap.String("month", monthStart.Format("2006-01")),
		)

		return 0, nil
	}

	if _, err = w.Finalize(); err != nil {
		return written, err
	}

	return written, nil
}

func normalizeRange(start, end time.Time) (time.Time, time.Time, error) {
	start = utils.EnsureUTC(start)
	end = utils.EnsureUTC(end)

	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return time.Time{}, time.Time{}, errors.Newf(errors.ErrCodeInvalidDateRange,
			"download range %s to %s is empty", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	return start, end, nil
}

// monthsIn lists the first instants of the months touched by [start, end].
func monthsIn(start, end time.Time) []time.Time {
	var months []time.Time

	cur, _ := utils.MonthBounds(start)
	for ; !cur.After(end); cur = utils.NextMonth(cur) {
		months = append(months, cur)
	}

	return months
}

// clampRange narrows a month window to the requested range.
func clampRange(lo, hi, start, end time.Time) (time.Time, time.Time) {
	if start.After(lo) {
		lo = start
	}

	if end.Before(hi) {
		hi = end
	}

	return lo, hi
}
