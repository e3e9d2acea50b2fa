// Package terminal defines the trading terminal contract shared by the
// offline tester and the live bridge gateway. Strategies and the trade
// helpers in pkg/trade talk to this interface only, so the same robot code
// runs against simulated history and a real terminal without changes.
package terminal

import (
	"context"
	"time"

	"github.com/rxtech-lab/mtsim/internal/types"
)

type Terminal interface {
	// Initialize establishes the connection to the terminal and loads
	// the symbols required for the session. It must be called before any
	// other method.
	Initialize(ctx context.Context) error
	// Shutdown releases the connection. Calling any data or trade method
	// after Shutdown returns an error.
	Shutdown() error
	// Version returns the terminal version and build information.
	Version() (types.TerminalVersion, error)
	// LastError returns the result code and description of the last
	// failed call. A successful call resets it to types.ResOK.
	LastError() (int, string)

	// AccountInfo returns the current state of the trade account.
	AccountInfo() (types.AccountInfo, error)
	// SymbolsTotal returns the number of symbols available in the session.
	SymbolsTotal() (int, error)
	// SymbolInfo returns the full specification and current quote state
	// of a symbol.
	SymbolInfo(symbol string) (types.SymbolInfo, error)
	// SymbolInfoTick returns the last known tick for a symbol.
	SymbolInfoTick(symbol string) (types.Tick, error)
	// SymbolSelect shows or hides a symbol in the session. Hiding a
	// symbol with open orders or positions fails.
	SymbolSelect(symbol string, enable bool) error

	// CopyRatesFrom returns up to count bars with open time at or before
	// from, ordered oldest first.
	CopyRatesFrom(symbol string, timeframe types.Timeframe, from time.Time, count int) ([]types.Rate, error)
	// CopyRatesFromPos returns count bars starting at the given offset
	// counted back from the most recent bar, where offset 0 is the
	// current bar.
	CopyRatesFromPos(symbol string, timeframe types.Timeframe, start, count int) ([]types.Rate, error)
	// CopyRatesRange returns all bars with open time in [from, to].
	CopyRatesRange(symbol string, timeframe types.Timeframe, from, to time.Time) ([]types.Rate, error)
	// CopyTicksFrom returns up to count ticks starting at from, filtered
	// by the flag mask.
	CopyTicksFrom(symbol string, from time.Time, count int, flags types.CopyTicks) ([]types.Tick, error)
	// CopyTicksRange returns all ticks in [from, to] matching the flag
	// mask.
	CopyTicksRange(symbol string, from, to time.Time, flags types.CopyTicks) ([]types.Tick, error)

	// OrdersTotal returns the number of active pending orders.
	OrdersTotal() (int, error)
	// OrdersGet returns active pending orders narrowed by the filters.
	// Ticket takes precedence over symbol, symbol over group.
	OrdersGet(filters ...Filter) ([]types.TradeOrder, error)
	// PositionsTotal returns the number of open positions.
	PositionsTotal() (int, error)
	// PositionsGet returns open positions narrowed by the filters.
	PositionsGet(filters ...Filter) ([]types.TradePosition, error)
	// HistoryOrdersTotal returns the number of completed orders in the
	// interval.
	HistoryOrdersTotal(from, to time.Time) (int, error)
	// HistoryOrdersGet returns completed orders in the interval narrowed
	// by the filters. A ticket or position filter overrides the interval.
	HistoryOrdersGet(from, to time.Time, filters ...Filter) ([]types.TradeOrder, error)
	// HistoryDealsTotal returns the number of deals in the interval.
	HistoryDealsTotal(from, to time.Time) (int, error)
	// HistoryDealsGet returns deals in the interval narrowed by the
	// filters. A ticket or position filter overrides the interval.
	HistoryDealsGet(from, to time.Time, filters ...Filter) ([]types.TradeDeal, error)

	// OrderSend executes a trade request. The returned result carries the
	// terminal retcode even when err is nil, so callers must check
	// result.Ok().
	OrderSend(request types.TradeRequest) (types.TradeResult, error)
	// OrderCalcMargin returns the margin required to open the trade in
	// the account currency.
	OrderCalcMargin(orderType types.OrderType, symbol string, volume, price float64) (float64, error)
	// OrderCalcProfit returns the profit of a trade opened at priceOpen
	// and closed at priceClose, in the account currency.
	OrderCalcProfit(orderType types.OrderType, symbol string, volume, priceOpen, priceClose float64) (float64, error)
}
