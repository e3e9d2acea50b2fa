package trade

import (
	"math"
	"time"

	"github.com/rxtech-lab/mtsim/internal/terminal"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/internal/utils"
)

// Symbol caches one symbol's specification and latest quote. Refresh
// reloads the specification, RefreshRates the quote; the typed accessors
// read the caches without touching the terminal, so a robot refreshes once
// per tick and reads as often as it likes.
//
// Symbol is not safe for concurrent use.
type Symbol struct {
	api  terminal.Terminal
	name string

	info types.SymbolInfo
	tick types.Tick
}

// NewSymbol binds the helper to a symbol and loads its specification. The
// quote cache starts empty; call RefreshRates before reading Bid or Ask.
func NewSymbol(api terminal.Terminal, name string) (*Symbol, error) {
	s := &Symbol{api: api, name: name}
	if err := s.Refresh(); err != nil {
		return nil, err
	}

	return s, nil
}

// Name returns the bound symbol name.
func (s *Symbol) Name() string { return s.name }

// Refresh reloads the symbol specification.
func (s *Symbol) Refresh() error {
	info, err := s.api.SymbolInfo(s.name)
	if err != nil {
		return err
	}

	s.info = info

	return nil
}

// RefreshRates reloads the latest quote.
func (s *Symbol) RefreshRates() error {
	tick, err := s.api.SymbolInfoTick(s.name)
	if err != nil {
		return err
	}

	s.tick = tick

	return nil
}

// Select shows or hides the symbol in the session.
func (s *Symbol) Select(enable bool) error {
	return s.api.SymbolSelect(s.name, enable)
}

// Quote accessors read the tick cached by the last RefreshRates.

// Bid returns the cached bid price.
func (s *Symbol) Bid() float64 { return s.tick.Bid }

// Ask returns the cached ask price.
func (s *Symbol) Ask() float64 { return s.tick.Ask }

// Last returns the cached last trade price.
func (s *Symbol) Last() float64 { return s.tick.Last }

// Volume returns the cached last trade volume.
func (s *Symbol) Volume() uint64 { return s.tick.Volume }

// VolumeReal returns the cached last trade volume with extended accuracy.
func (s *Symbol) VolumeReal() float64 { return s.tick.VolumeReal }

// Time returns the time of the cached quote.
func (s *Symbol) Time() time.Time { return s.tick.Time }

// TimeMsc returns the time of the cached quote in epoch milliseconds.
func (s *Symbol) TimeMsc() int64 { return s.tick.TimeMsc }

// Specification accessors read the spec cached by the last Refresh.

// Description returns the instrument description.
func (s *Symbol) Description() string { return s.info.Description }

// Path returns the symbol's path in the broker's symbol tree.
func (s *Symbol) Path() string { return s.info.Path }

// Visible reports whether the symbol is selected into the session.
func (s *Symbol) Visible() bool { return s.info.Visible }

// CurrencyBase returns the base currency of the instrument.
func (s *Symbol) CurrencyBase() string { return s.info.CurrencyBase }

// CurrencyProfit returns the profit currency of the instrument.
func (s *Symbol) CurrencyProfit() string { return s.info.CurrencyProfit }

// CurrencyMargin returns the margin currency of the instrument.
func (s *Symbol) CurrencyMargin() string { return s.info.CurrencyMargin }

// Digits returns the number of decimal places in the symbol's prices.
func (s *Symbol) Digits() int { return s.info.Digits }

// Point returns the symbol's point size.
func (s *Symbol) Point() float64 { return s.info.Point }

// Spread returns the spread in points.
func (s *Symbol) Spread() int { return s.info.Spread }

// StopsLevel returns the minimal distance from the current price for stop
// orders and stop levels, in points.
func (s *Symbol) StopsLevel() int { return s.info.TradeStopsLevel }

// FreezeLevel returns the distance within which order changes are frozen,
// in points.
func (s *Symbol) FreezeLevel() int { return s.info.TradeFreezeLevel }

// ContractSize returns the size of one lot.
func (s *Symbol) ContractSize() float64 { return s.info.TradeContractSize }

// TickValue returns the value of one tick for a one-lot position, in the
// account currency.
func (s *Symbol) TickValue() float64 { return s.info.TradeTickValue }

// TickSize returns the minimal price change.
func (s *Symbol) TickSize() float64 { return s.info.TradeTickSize }

// LotsMin returns the minimal volume of a deal.
func (s *Symbol) LotsMin() float64 { return s.info.VolumeMin }

// LotsMax returns the maximal volume of a deal.
func (s *Symbol) LotsMax() float64 { return s.info.VolumeMax }

// LotsStep returns the volume granularity of a deal.
func (s *Symbol) LotsStep() float64 { return s.info.VolumeStep }

// LotsLimit returns the maximal aggregate volume of open positions and
// pending orders in one direction.
func (s *Symbol) LotsLimit() float64 { return s.info.VolumeLimit }

// MarginInitial returns the margin to open a one-lot position.
func (s *Symbol) MarginInitial() float64 { return s.info.MarginInitial }

// MarginMaintenance returns the margin to hold a one-lot position.
func (s *Symbol) MarginMaintenance() float64 { return s.info.MarginMaintenance }

// TradeCalcMode returns the margin and profit calculation mode.
func (s *Symbol) TradeCalcMode() types.CalcMode { return s.info.TradeCalcMode }

// TradeMode returns the operations allowed on the symbol.
func (s *Symbol) TradeMode() types.SymbolTradeMode { return s.info.TradeMode }

// FillingMode returns the symbol's supported filling-mode flags.
func (s *Symbol) FillingMode() int { return s.info.FillingMode }

// NormalizePrice rounds a price to the symbol's tick size, then to the
// symbol's digits. Prices built from arithmetic must be normalized before
// they go into a trade request, or the server rejects them.
func (s *Symbol) NormalizePrice(price float64) float64 {
	if ts := s.info.TradeTickSize; ts > 0 {
		price = math.Round(price/ts) * ts
	}

	return utils.RoundPrice(price, s.info.Digits)
}
