package provider

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/rxtech-lab/mtsim/internal/marketdata/writer"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// binancePageSize is the row cap per klines and aggTrades request.
const binancePageSize = 1000

// Service interfaces for mocking the Binance API

// KlinesService interface for fetching chart bars.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	StartTime(startTime int64) KlinesService
	EndTime(endTime int64) KlinesService
	Limit(limit int) KlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// AggTradesService interface for fetching compressed trades.
type AggTradesService interface {
	Symbol(symbol string) AggTradesService
	StartTime(startTime int64) AggTradesService
	EndTime(endTime int64) AggTradesService
	Limit(limit int) AggTradesService
	Do(ctx context.Context) ([]*binance.AggTrade, error)
}

// ExchangeInfoService interface for fetching symbol metadata.
type ExchangeInfoService interface {
	Symbols(symbols ...string) ExchangeInfoService
	Do(ctx context.Context) (*binance.ExchangeInfo, error)
}

// BinanceAPI abstracts the Binance client for testing.
type BinanceAPI interface {
	NewKlinesService() KlinesService
	NewAggTradesService() AggTradesService
	NewExchangeInfoService() ExchangeInfoService
}

// realBinanceAPI wraps the actual binance.Client.
type realBinanceAPI struct {
	client *binance.Client
}

func (r *realBinanceAPI) NewKlinesService() KlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

func (r *realBinanceAPI) NewAggTradesService() AggTradesService {
	return &realAggTradesService{service: r.client.NewAggTradesService()}
}

func (r *realBinanceAPI) NewExchangeInfoService() ExchangeInfoService {
	return &realExchangeInfoService{service: r.client.NewExchangeInfoService()}
}

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) KlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) KlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) StartTime(startTime int64) KlinesService {
	s.service = s.service.StartTime(startTime)

	return s
}

func (s *realKlinesService) EndTime(endTime int64) KlinesService {
	s.service = s.service.EndTime(endTime)

	return s
}

func (s *realKlinesService) Limit(limit int) KlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

type realAggTradesService struct {
	service *binance.AggTradesService
}

func (s *realAggTradesService) Symbol(symbol string) AggTradesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realAggTradesService) StartTime(startTime int64) AggTradesService {
	s.service = s.service.StartTime(startTime)

	return s
}

func (s *realAggTradesService) EndTime(endTime int64) AggTradesService {
	s.service = s.service.EndTime(endTime)

	return s
}

func (s *realAggTradesService) Limit(limit int) AggTradesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realAggTradesService) Do(ctx context.Context) ([]*binance.AggTrade, error) {
	return s.service.Do(ctx)
}

type realExchangeInfoService struct {
	service *binance.ExchangeInfoService
}

func (s *realExchangeInfoService) Symbols(symbols ...string) ExchangeInfoService {
	s.service = s.service.Symbols(symbols...)

	return s
}

func (s *realExchangeInfoService) Do(ctx context.Context) (*binance.ExchangeInfo, error) {
	return s.service.Do(ctx)
}

// BinanceSource downloads crypto history from Binance. Bars come from the
// klines endpoint, ticks from compressed trades; both paginate until the
// requested range is exhausted.
type BinanceSource struct {
	client BinanceAPI
}

var _ Source = (*BinanceSource)(nil)

// NewBinanceSource creates a Binance source. Keys may stay empty; the
// endpoints it uses are public.
func NewBinanceSource(apiKey, secretKey string) *BinanceSource {
	return &BinanceSource{
		client: &realBinanceAPI{client: binance.NewClient(apiKey, secretKey)},
	}
}

// newBinanceSourceWithClient creates a Binance source with a custom client.
// This is used for testing with mock clients.
func newBinanceSourceWithClient(client BinanceAPI) *BinanceSource {
	return &BinanceSource{client: client}
}

// Name returns the source name as used on the command line.
func (s *BinanceSource) Name() string {
	return string(SourceTypeBinance)
}

// DownloadBars fetches klines page by page. The next page starts one
// millisecond after the close time of the last kline to avoid duplicates.
func (s *BinanceSource) DownloadBars(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time, sink writer.BarSink) (int, error) {
	interval, err := binanceInterval(timeframe)
	if err != nil {
		return 0, err
	}

	written := 0
	currentStart := start.UnixMilli()
	endMillis := end.UnixMilli()

	for {
		klines, err := s.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binancePageSize).
			Do(ctx)
		if err != nil {
			return written, errors.Wrapf(errors.ErrCodeDownloadFailed, err, "failed to fetch %s klines from Binance", symbol)
		}

		for _, kline := range klines {
			bar, err := klineToRate(kline)
			if err != nil {
				return written, err
			}

			if err := sink.Write(bar); err != nil {
				return written, err
			}

			written++
		}

		if len(klines) < binancePageSize {
			break
		}

		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	return written, nil
}

// DownloadTicks fetches compressed trades page by page and stores them as
// trade ticks. Binance does not expose historical quotes, so bid and ask
// stay zero and the flags mark only the trade fields as changed.
func (s *BinanceSource) DownloadTicks(ctx context.Context, symbol string, start, end time.Time, sink writer.TickSink) (int, error) {
	written := 0
	currentStart := start.UnixMilli()
	endMillis := end.UnixMilli()

	for {
		trades, err := s.client.NewAggTradesService().
			Symbol(symbol).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binancePageSize).
			Do(ctx)
		if err != nil {
			return written, errors.Wrapf(errors.ErrCodeDownloadFailed, err, "failed to fetch %s trades from Binance", symbol)
		}

		for _, trade := range trades {
			tick, err := aggTradeToTick(trade)
			if err != nil {
				return written, err
			}

			if err := sink.Write(tick); err != nil {
				return written, err
			}

			written++
		}

		if len(trades) < binancePageSize {
			break
		}

		currentStart = trades[len(trades)-1].Timestamp + 1
		if currentStart >= endMillis {
			break
		}
	}

	return written, nil
}

// SymbolSpec builds a specification from the exchange info filters.
func (s *BinanceSource) SymbolSpec(ctx context.Context, symbol string) (types.SymbolInfo, error) {
	info, err := s.client.NewExchangeInfoService().Symbols(symbol).Do(ctx)
	if err != nil {
		return types.SymbolInfo{}, errors.Wrapf(errors.ErrCodeDownloadFailed, err, "failed to fetch exchange info for %s", symbol)
	}

	for i := range info.Symbols {
		if info.Symbols[i].Symbol == symbol {
			return binanceSymbolSpec(&info.Symbols[i])
		}
	}

	return types.SymbolInfo{}, errors.Newf(errors.ErrCodeSymbolNotFound, "symbol %s is not listed on Binance", symbol)
}

// Close is a no-op; the Binance client holds no persistent connection.
func (s *BinanceSource) Close() error {
	return nil
}

func klineToRate(kline *binance.Kline) (types.Rate, error) {
	open, err := parseBinanceFloat("open", kline.Open)
	if err != nil {
		return types.Rate{}, err
	}

	high, err := parseBinanceFloat("high", kline.High)
	if err != nil {
		return types.Rate{}, err
	}

	low, err := parseBinanceFloat("low", kline.Low)
	if err != nil {
		return types.Rate{}, err
	}

	closePrice, err := parseBinanceFloat("close", kline.Close)
	if err != nil {
		return types.Rate{}, err
	}

	volume, err := parseBinanceFloat("volume", kline.Volume)
	if err != nil {
		return types.Rate{}, err
	}

	return types.Rate{
		Time:       time.UnixMilli(kline.OpenTime).UTC(),
		Open:       open,
		High:       high,
		Low:        low,
		Close:      closePrice,
		TickVolume: kline.TradeNum,
		Spread:     0,
		RealVolume: int64(volume),
	}, nil
}

func aggTradeToTick(trade *binance.AggTrade) (types.Tick, error) {
	price, err := parseBinanceFloat("price", trade.Price)
	if err != nil {
		return types.Tick{}, err
	}

	quantity, err := parseBinanceFloat("quantity", trade.Quantity)
	if err != nil {
		return types.Tick{}, err
	}

	flags := types.TickFlagLast | types.TickFlagVolume
	if trade.IsBuyerMaker {
		flags |= types.TickFlagSell
	} else {
		flags |= types.TickFlagBuy
	}

	at := time.UnixMilli(trade.Timestamp).UTC()

	return types.Tick{
		Time:       at.Truncate(time.Second),
		Bid:        0,
		Ask:        0,
		Last:       price,
		Volume:     uint64(math.Round(quantity)),
		TimeMsc:    trade.Timestamp,
		Flags:      flags,
		VolumeReal: quantity,
	}, nil
}

func binanceSymbolSpec(sym *binance.Symbol) (types.SymbolInfo, error) {
	spec := types.SymbolInfo{
		Name:              sym.Symbol,
		Description:       fmt.Sprintf("%s vs %s", sym.BaseAsset, sym.QuoteAsset),
		Path:              "Crypto\\" + sym.Symbol,
		CurrencyBase:      sym.BaseAsset,
		CurrencyProfit:    sym.QuoteAsset,
		CurrencyMargin:    sym.QuoteAsset,
		Digits:            sym.QuotePrecision,
		TradeCalcMode:     types.CalcModeForexNoLeverage,
		TradeMode:         types.SymbolTradeModeFull,
		TradeContractSize: 1,
		// Spot supports fill-or-kill and immediate-or-cancel.
		FillingMode: 3,
	}

	if filter := sym.PriceFilter(); filter != nil {
		tickSize, err := parseBinanceFloat("tickSize", filter.TickSize)
		if err != nil {
			return types.SymbolInfo{}, err
		}

		spec.TradeTickSize = tickSize
		spec.TradeTickValue = tickSize
		spec.Point = tickSize
		spec.Digits = decimalPlaces(filter.TickSize)
	}

	if filter := sym.LotSizeFilter(); filter != nil {
		min, err := parseBinanceFloat("minQty", filter.MinQuantity)
		if err != nil {
			return types.SymbolInfo{}, err
		}

		max, err := parseBinanceFloat("maxQty", filter.MaxQuantity)
		if err != nil {
			return types.SymbolInfo{}, err
		}

		step, err := parseBinanceFloat("stepSize", filter.StepSize)
		if err != nil {
			return types.SymbolInfo{}, err
		}

		spec.VolumeMin = min
		spec.VolumeMax = max
		spec.VolumeStep = step
	}

	return spec, nil
}

func parseBinanceFloat(field, value string) (float64, error) {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeParseFailed, err, "failed to parse Binance %s %q", field, value)
	}

	return parsed, nil
}

// decimalPlaces counts the significant fraction digits of a decimal string,
// e.g. "0.00010000" has four.
func decimalPlaces(value string) int {
	dot := strings.IndexByte(value, '.')
	if dot < 0 {
		return 0
	}

	return len(strings.TrimRight(value[dot+1:], "0"))
}

// binanceInterval maps a chart period to the Binance kline interval name.
func binanceInterval(timeframe types.Timeframe) (string, error) {
	intervals := map[types.Timeframe]string{
		types.TimeframeM1:  "1m",
		types.TimeframeM3:  "3m",
		types.TimeframeM5:  "5m",
		types.TimeframeM15: "15m",
		types.TimeframeM30: "30m",
		types.TimeframeH1:  "1h",
		types.TimeframeH2:  "2h",
		types.TimeframeH4:  "4h",
		types.TimeframeH6:  "6h",
		types.TimeframeH8:  "8h",
		types.TimeframeH12: "12h",
		types.TimeframeD1:  "1d",
		types.TimeframeW1:  "1w",
		types.TimeframeMN1: "1M",
	}

	interval, ok := intervals[timeframe]
	if !ok {
		return "", errors.Newf(errors.ErrCodeInvalidTimeframe, "timeframe %s is not supported by Binance", timeframe)
	}

	return interval, nil
}
