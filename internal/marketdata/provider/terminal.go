package provider

import (
	"context"
	"time"

	"github.com/rxtech-lab/mtsim/internal/marketdata/writer"
	"github.com/rxtech-lab/mtsim/internal/terminal"
	"github.com/rxtech-lab/mtsim/internal/types"
)

// TerminalSource pulls history out of a live terminal through its bridge.
// The terminal keeps only what the broker feed delivered, so requesting a
// range the terminal never synced yields fewer rows, not an error.
type TerminalSource struct {
	term terminal.Terminal
}

var _ Source = (*TerminalSource)(nil)

// NewTerminalSource wraps an already initialized terminal connection.
func NewTerminalSource(term terminal.Terminal) *TerminalSource {
	return &TerminalSource{term: term}
}

// Name returns the source name as used on the command line.
func (s *TerminalSource) Name() string {
	return string(SourceTypeTerminal)
}

// DownloadBars copies the requested range out of the terminal history.
func (s *TerminalSource) DownloadBars(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time, sink writer.BarSink) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	bars, err := s.term.CopyRatesRange(symbol, timeframe, start, end)
	if err != nil {
		return 0, err
	}

	for i, bar := range bars {
		if err := sink.Write(bar); err != nil {
			return i, err
		}
	}

	return len(bars), nil
}

// DownloadTicks copies the requested range of real ticks out of the
// terminal history.
func (s *TerminalSource) DownloadTicks(ctx context.Context, symbol string, start, end time.Time, sink writer.TickSink) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ticks, err := s.term.CopyTicksRange(symbol, start, end, types.CopyTicksAll)
	if err != nil {
		return 0, err
	}

	for i, tick := range ticks {
		if err := sink.Write(tick); err != nil {
			return i, err
		}
	}

	return len(ticks), nil
}

// SymbolSpec selects the symbol in Market Watch and reads its properties.
func (s *TerminalSource) SymbolSpec(ctx context.Context, symbol string) (types.SymbolInfo, error) {
	if err := ctx.Err(); err != nil {
		return types.SymbolInfo{}, err
	}

	if err := s.term.SymbolSelect(symbol, true); err != nil {
		return types.SymbolInfo{}, err
	}

	return s.term.SymbolInfo(symbol)
}

// Close shuts the bridge connection down.
func (s *TerminalSource) Close() error {
	return s.term.Shutdown()
}
