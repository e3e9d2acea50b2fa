// Package provider fetches bars, ticks and symbol specifications from the
// supported upstreams: a live terminal bridge, Binance and Polygon. Sources
// only fetch and convert; chunking into monthly files, progress reporting
// and rate limiting belong to the download loop that drives them.
package provider

import (
	"context"
	"time"

	"github.com/rxtech-lab/mtsim/internal/gateway"
	"github.com/rxtech-lab/mtsim/internal/gateway/bridge"
	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/marketdata/writer"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// SourceType identifies a market data upstream.
type SourceType string

const (
	SourceTypeTerminal SourceType = "terminal"
	SourceTypeBinance  SourceType = "binance"
	SourceTypePolygon  SourceType = "polygon"
)

// ParseSourceType resolves a source name given on the command line.
func ParseSourceType(name string) (SourceType, error) {
	switch SourceType(name) {
	case SourceTypeTerminal, SourceTypeBinance, SourceTypePolygon:
		return SourceType(name), nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidSource, "unknown market data source %q", name)
	}
}

// Config carries the credentials and endpoints of the remote sources. Only
// the fields of the selected source are consulted.
type Config struct {
	// BridgeURL is the base URL of a terminal bridge, e.g. http://127.0.0.1:5005.
	BridgeURL string
	// BinanceAPIKey and BinanceSecretKey may stay empty; kline and trade
	// endpoints are public.
	BinanceAPIKey    string
	BinanceSecretKey string
	// PolygonAPIKey is required for the polygon source.
	PolygonAPIKey string
}

// Source fetches history from one upstream and feeds it through the given
// sink. Downloads cover a single closed time interval; the caller owns the
// file boundaries and the sink lifecycle.
type Source interface {
	// Name returns the source name as used on the command line.
	Name() string
	// DownloadBars fetches bars of the symbol and timeframe inside
	// [start, end] and writes them to the sink in chronological order.
	// It returns the number of bars written.
	DownloadBars(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time, sink writer.BarSink) (int, error)
	// DownloadTicks fetches ticks inside [start, end] and writes them to
	// the sink in chronological order. It returns the number of ticks
	// written.
	DownloadTicks(ctx context.Context, symbol string, start, end time.Time, sink writer.TickSink) (int, error)
	// SymbolSpec fetches the specification of the symbol.
	SymbolSpec(ctx context.Context, symbol string) (types.SymbolInfo, error)
	// Close releases the upstream connection, if any.
	Close() error
}

// NewSource builds the source named by sourceType. The terminal source
// connects to the bridge during construction; the others connect lazily on
// the first call.
func NewSource(ctx context.Context, sourceType SourceType, config Config, log *logger.Logger) (Source, error) {
	switch sourceType {
	case SourceTypeTerminal:
		client, err := bridge.NewClient(bridge.Config{BaseURL: config.BridgeURL}, log)
		if err != nil {
			return nil, err
		}

		gw := gateway.NewGateway(client, nil, log)
		if err := gw.Initialize(ctx); err != nil {
			return nil, err
		}

		return NewTerminalSource(gw), nil
	case SourceTypeBinance:
		return NewBinanceSource(config.BinanceAPIKey, config.BinanceSecretKey), nil
	case SourceTypePolygon:
		return NewPolygonSource(config.PolygonAPIKey)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidSource, "unknown market data source %q", sourceType)
	}
}
