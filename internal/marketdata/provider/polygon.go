package provider

import (
	"context"
	"math"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/rxtech-lab/mtsim/internal/marketdata/writer"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// polygonPageSize is the row cap per list request. Polygon paginates
// transparently through the iterator; the cap only sizes the pages.
const polygonPageSize = 50000

// AggsIterator walks aggregate results. It matches the polygon iterator so
// the real client satisfies it directly.
type AggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// TradesIterator walks trade results.
type TradesIterator interface {
	Next() bool
	Item() models.Trade
	Err() error
}

// PolygonAPI abstracts the Polygon client for testing.
type PolygonAPI interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) AggsIterator
	ListTrades(ctx context.Context, params *models.ListTradesParams, options ...models.RequestOption) TradesIterator
	GetTickerDetails(ctx context.Context, params *models.GetTickerDetailsParams, options ...models.RequestOption) (*models.GetTickerDetailsResponse, error)
}

// realPolygonAPI wraps the actual polygon.Client.
type realPolygonAPI struct {
	client *polygon.Client
}

func (r *realPolygonAPI) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) AggsIterator {
	return r.client.ListAggs(ctx, params, options...)
}

func (r *realPolygonAPI) ListTrades(ctx context.Context, params *models.ListTradesParams, options ...models.RequestOption) TradesIterator {
	return r.client.ListTrades(ctx, params, options...)
}

func (r *realPolygonAPI) GetTickerDetails(ctx context.Context, params *models.GetTickerDetailsParams, options ...models.RequestOption) (*models.GetTickerDetailsResponse, error) {
	return r.client.GetTickerDetails(ctx, params, options...)
}

// PolygonSource downloads stock, forex and crypto history from Polygon.
// Bars come from the aggregates endpoint, ticks from the trades endpoint.
type PolygonSource struct {
	client PolygonAPI
}

var _ Source = (*PolygonSource)(nil)

// NewPolygonSource creates a Polygon source.
func NewPolygonSource(apiKey string) (*PolygonSource, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon API key is required")
	}

	return &PolygonSource{
		client: &realPolygonAPI{client: polygon.New(apiKey)},
	}, nil
}

// newPolygonSourceWithClient creates a Polygon source with a custom client.
// This is used for testing with mock clients.
func newPolygonSourceWithClient(client PolygonAPI) *PolygonSource {
	return &PolygonSource{client: client}
}

// Name returns the source name as used on the command line.
func (s *PolygonSource) Name() string {
	return string(SourceTypePolygon)
}

// DownloadBars fetches aggregates in ascending order and writes them as
// bars.
func (s *PolygonSource) DownloadBars(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time, sink writer.BarSink) (int, error) {
	multiplier, timespan, err := polygonSpan(timeframe)
	if err != nil {
		return 0, err
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithOrder(models.Asc).WithLimit(polygonPageSize)

	results := s.client.ListAggs(ctx, params)
	written := 0

	for results.Next() {
		agg := results.Item()

		if err := sink.Write(aggToRate(agg)); err != nil {
			return written, err
		}

		written++
	}

	if err := results.Err(); err != nil {
		return written, errors.Wrapf(errors.ErrCodeDownloadFailed, err, "failed to fetch %s aggregates from Polygon", symbol)
	}

	return written, nil
}

// DownloadTicks fetches trades in ascending order and writes them as trade
// ticks. Polygon trades carry no quote, so bid and ask stay zero and the
// flags mark only the trade fields as changed.
func (s *PolygonSource) DownloadTicks(ctx context.Context, symbol string, start, end time.Time, sink writer.TickSink) (int, error) {
	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListTradesParams{
		Ticker: symbol,
	}.
		WithTimestamp(models.GTE, models.Nanos(start)).
		WithTimestamp(models.LTE, models.Nanos(end)).
		WithOrder(models.Asc).
		WithLimit(polygonPageSize)

	results := s.client.ListTrades(ctx, params)
	written := 0

	for results.Next() {
		trade := results.Item()

		if err := sink.Write(tradeToTick(trade)); err != nil {
			return written, err
		}

		written++
	}

	if err := results.Err(); err != nil {
		return written, errors.Wrapf(errors.ErrCodeDownloadFailed, err, "failed to fetch %s trades from Polygon", symbol)
	}

	return written, nil
}

// SymbolSpec builds a specification from the ticker details. Polygon does
// not publish trading rules, so lot sizes, contract size and digits fall
// back to conservative defaults per asset class.
func (s *PolygonSource) SymbolSpec(ctx context.Context, symbol string) (types.SymbolInfo, error) {
	//nolint:exhaustruct // third-party struct with many optional fields
	resp, err := s.client.GetTickerDetails(ctx, &models.GetTickerDetailsParams{Ticker: symbol})
	if err != nil {
		return types.SymbolInfo{}, errors.Wrapf(errors.ErrCodeDownloadFailed, err, "failed to fetch ticker details for %s", symbol)
	}

	details := resp.Results

	currency := strings.ToUpper(details.CurrencyName)
	if currency == "" {
		currency = "USD"
	}

	spec := types.SymbolInfo{
		Name:           symbol,
		Description:    details.Name,
		CurrencyBase:   currency,
		CurrencyProfit: currency,
		CurrencyMargin: currency,
		TradeMode:      types.SymbolTradeModeFull,
		FillingMode:    3,
	}

	switch details.Market {
	case "fx":
		spec.Path = "Forex\\" + symbol
		spec.Digits = 5
		spec.Point = 0.00001
		spec.TradeCalcMode = types.CalcModeForex
		spec.TradeContractSize = 100000
		spec.VolumeMin = 0.01
		spec.VolumeMax = 500
		spec.VolumeStep = 0.01
	case "crypto":
		spec.Path = "Crypto\\" + symbol
		spec.Digits = 2
		spec.Point = 0.01
		spec.TradeCalcMode = types.CalcModeForexNoLeverage
		spec.TradeContractSize = 1
		spec.VolumeMin = 0.01
		spec.VolumeMax = 1000
		spec.VolumeStep = 0.01
	default:
		spec.Path = "Stocks\\" + symbol
		spec.Digits = 2
		spec.Point = 0.01
		spec.TradeCalcMode = types.CalcModeExchStocks
		spec.TradeContractSize = 1
		spec.VolumeMin = 1
		spec.VolumeMax = 100000
		spec.VolumeStep = 1
	}

	spec.TradeTickSize = spec.Point
	spec.TradeTickValue = spec.Point * spec.TradeContractSize

	return spec, nil
}

// Close is a no-op; the Polygon client holds no persistent connection.
func (s *PolygonSource) Close() error {
	return nil
}

func aggToRate(agg models.Agg) types.Rate {
	return types.Rate{
		Time:       time.Time(agg.Timestamp).UTC(),
		Open:       agg.Open,
		High:       agg.High,
		Low:        agg.Low,
		Close:      agg.Close,
		TickVolume: agg.Transactions,
		Spread:     0,
		RealVolume: int64(agg.Volume),
	}
}

func tradeToTick(trade models.Trade) types.Tick {
	at := time.Time(trade.SipTimestamp).UTC()

	return types.Tick{
		Time:       at.Truncate(time.Second),
		Bid:        0,
		Ask:        0,
		Last:       trade.Price,
		Volume:     uint64(math.Round(trade.Size)),
		TimeMsc:    at.UnixMilli(),
		Flags:      types.TickFlagLast | types.TickFlagVolume,
		VolumeReal: trade.Size,
	}
}

// polygonSpan maps a chart period to a Polygon aggregate window.
func polygonSpan(timeframe types.Timeframe) (int, models.Timespan, error) {
	switch timeframe {
	case types.TimeframeD1:
		return 1, models.Day, nil
	case types.TimeframeW1:
		return 1, models.Week, nil
	case types.TimeframeMN1:
		return 1, models.Month, nil
	}

	if !timeframe.Valid() {
		return 0, "", errors.Newf(errors.ErrCodeInvalidTimeframe, "unknown timeframe %d", int(timeframe))
	}

	seconds := timeframe.PeriodSeconds()
	if seconds%3600 == 0 {
		return seconds / 3600, models.Hour, nil
	}

	return seconds / 60, models.Minute, nil
}
