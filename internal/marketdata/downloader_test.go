package marketdata

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"golang.org/x/time/rate"

	"github.com/rxtech-lab/mtsim/internal/history"
	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/marketdata/writer"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// fakeSource serves a fixed number of rows per month and records the ranges
// it was asked for.
type fakeSource struct {
	barsPerMonth  map[string]int
	ticksPerMonth map[string]int
	barsErr       error
	spec          types.SymbolInfo
	specErr       error
	ranges        [][2]time.Time
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) DownloadBars(_ context.Context, _ string, _ types.Timeframe, start, end time.Time, sink writer.BarSink) (int, error) {
	if f.barsErr != nil {
		return 0, f.barsErr
	}

	f.ranges = append(f.ranges, [2]time.Time{start, end})

	count := f.barsPerMonth[start.Format("2006-01")]
	for i := 0; i < count; i++ {
		bar := types.Rate{
			Time:       start.Add(time.Duration(i) * time.Hour),
			Open:       1.10,
			High:       1.12,
			Low:        1.09,
			Close:      1.11,
			TickVolume: int64(i + 1),
			Spread:     2,
		}
		if err := sink.Write(bar); err != nil {
			return i, err
		}
	}

	return count, nil
}

func (f *fakeSource) DownloadTicks(_ context.Context, _ string, start, end time.Time, sink writer.TickSink) (int, error) {
	f.ranges = append(f.ranges, [2]time.Time{start, end})

	count := f.ticksPerMonth[start.Format("2006-01")]
	for i := 0; i < count; i++ {
		at := start.Add(time.Duration(i) * time.Second)
		tick := types.Tick{
			Time:    at,
			Bid:     1.10,
			Ask:     1.1002,
			TimeMsc: at.UnixMilli(),
			Flags:   types.TickFlagBid | types.TickFlagAsk,
		}
		if err := sink.Write(tick); err != nil {
			return i, err
		}
	}

	return count, nil
}

func (f *fakeSource) SymbolSpec(context.Context, string) (types.SymbolInfo, error) {
	return f.spec, f.specErr
}

func (f *fakeSource) Close() error { return nil }

type DownloaderTestSuite struct {
	suite.Suite
	root       string
	store      *history.Store
	source     *fakeSource
	downloader *Downloader
}

func TestDownloaderSuite(t *testing.T) {
	suite.Run(t, new(DownloaderTestSuite))
}

func (suite *DownloaderTestSuite) SetupTest() {
	suite.root = suite.T().TempDir()

	log, err := logger.NewLogger()
	suite.Require().NoError(err)

	suite.store, err = history.NewStore(suite.root, log)
	suite.Require().NoError(err)

	suite.source = &fakeSource{
		barsPerMonth:  map[string]int{},
		ticksPerMonth: map[string]int{},
	}
	suite.downloader = NewDownloader(suite.source, suite.store, log, WithRateLimit(rate.Inf, 1))
}

func (suite *DownloaderTestSuite) TearDownTest() {
	suite.Require().NoError(suite.store.Close())
}

func (suite *DownloaderTestSuite) TestDownloadBars_MonthlyFiles() {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)

	suite.source.barsPerMonth = map[string]int{
		"2024-01": 10,
		"2024-02": 20,
		"2024-03": 5,
	}

	var progress [][2]float64

	err := suite.downloader.DownloadBars(context.Background(), "EURUSD", types.TimeframeH1, start, end,
		func(current, total float64, _ string) {
			progress = append(progress, [2]float64{current, total})
		})
	suite.Require().NoError(err)

	dir := history.BarsDir(suite.root, "EURUSD", types.TimeframeH1)
	suite.FileExists(filepath.Join(dir, "2024-01.parquet"))
	suite.FileExists(filepath.Join(dir, "2024-02.parquet"))
	suite.FileExists(filepath.Join(dir, "2024-03.parquet"))

	count, err := suite.store.CountBars("EURUSD", types.TimeframeH1, optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(35, count)

	suite.Equal([][2]float64{{1, 3}, {2, 3}, {3, 3}}, progress)

	// The first and last month are clamped to the requested range.
	suite.Require().Len(suite.source.ranges, 3)
	suite.Equal(start, suite.source.ranges[0][0])
	suite.Equal(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), suite.source.ranges[0][1])
	suite.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), suite.source.ranges[1][0])
	suite.Equal(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), suite.source.ranges[1][1])
	suite.Equal(end, suite.source.ranges[2][1])
}

func (suite *DownloaderTestSuite) TestDownloadBars_EmptyMonthLeavesNoFile() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)

	suite.source.barsPerMonth = map[string]int{"2024-02": 8}

	err := suite.downloader.DownloadBars(context.Background(), "EURUSD", types.TimeframeH1, start, end, nil)
	suite.Require().NoError(err)

	dir := history.BarsDir(suite.root, "EURUSD", types.TimeframeH1)
	suite.NoFileExists(filepath.Join(dir, "2024-01.parquet"))
	suite.FileExists(filepath.Join(dir, "2024-02.parquet"))
}

func (suite *DownloaderTestSuite) TestDownloadBars_InvalidRange() {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := suite.downloader.DownloadBars(context.Background(), "EURUSD", types.TimeframeH1, at, at, nil)
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeInvalidDateRange, errors.GetCode(err))

	err = suite.downloader.DownloadBars(context.Background(), "EURUSD", types.TimeframeH1, at.Add(time.Hour), at, nil)
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeInvalidDateRange, errors.GetCode(err))
}

func (suite *DownloaderTestSuite) TestDownloadBars_InvalidTimeframe() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := suite.downloader.DownloadBars(context.Background(), "EURUSD", types.Timeframe(999), start, start.AddDate(0, 1, 0), nil)
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeInvalidTimeframe, errors.GetCode(err))
}

func (suite *DownloaderTestSuite) TestDownloadBars_SourceErrorStopsLoop() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	suite.source.barsErr = fmt.Errorf("connection reset")

	err := suite.downloader.DownloadBars(context.Background(), "EURUSD", types.TimeframeH1, start, end, nil)
	suite.Require().Error(err)

	dir := history.BarsDir(suite.root, "EURUSD", types.TimeframeH1)
	suite.NoFileExists(filepath.Join(dir, "2024-01.parquet"))
}

func (suite *DownloaderTestSuite) TestDownloadTicks_MonthlyFiles() {
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC)

	suite.source.ticksPerMonth = map[string]int{
		"2024-04": 30,
		"2024-05": 12,
	}

	err := suite.downloader.DownloadTicks(context.Background(), "EURUSD", start, end, nil)
	suite.Require().NoError(err)

	dir := history.TicksDir(suite.root, "EURUSD")
	suite.FileExists(filepath.Join(dir, "2024-04.parquet"))
	suite.FileExists(filepath.Join(dir, "2024-05.parquet"))

	count, err := suite.store.CountTicks("EURUSD", optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(42, count)
}

func (suite *DownloaderTestSuite) TestDownloadSymbolSpec() {
	suite.source.spec = types.SymbolInfo{
		Name:              "EURUSD",
		Digits:            5,
		Point:             0.00001,
		TradeContractSize: 100000,
		VolumeMin:         0.01,
		VolumeMax:         500,
		VolumeStep:        0.01,
	}

	err := suite.downloader.DownloadSymbolSpec(context.Background(), "EURUSD")
	suite.Require().NoError(err)

	spec, err := suite.store.LoadSymbolSpec("EURUSD")
	suite.Require().NoError(err)
	suite.Equal(suite.source.spec, spec)
}

func (suite *DownloaderTestSuite) TestDownloadSymbolSpec_SourceError() {
	suite.source.specErr = errors.New(errors.ErrCodeSymbolNotFound, "unknown symbol")

	err := suite.downloader.DownloadSymbolSpec(context.Background(), "NOPE")
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeSymbolNotFound, errors.GetCode(err))
}
