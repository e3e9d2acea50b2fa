// Package gateway implements terminal.Terminal over a live bridge. Where the
// tester replays downloaded history, the gateway forwards every call to the
// terminal the bridge fronts, so a strategy moves from simulation to a real
// account without touching its code.
package gateway

import (
	"context"
	"iter"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/mtsim/internal/gateway/bridge"
	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/terminal"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/internal/utils"
	"github.com/rxtech-lab/mtsim/internal/version"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// History bounds used when a ticket or position filter overrides the
// caller's interval and the terminal must search everything it holds. The
// horizon stays inside the RFC 3339 year range the wire format can carry.
var (
	historyEpoch   = time.Unix(0, 0).UTC()
	historyHorizon = time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Bridge is the slice of the wire client the gateway consumes. bridge.Client
// implements it; tests substitute their own.
type Bridge interface {
	Version(ctx context.Context) (types.TerminalVersion, error)
	AccountInfo(ctx context.Context) (types.AccountInfo, error)
	SymbolsTotal(ctx context.Context) (int, error)
	SymbolInfo(ctx context.Context, symbol string) (types.SymbolInfo, error)
	SymbolInfoTick(ctx context.Context, symbol string) (types.Tick, error)
	SymbolSelect(ctx context.Context, symbol string, enable bool) error
	CopyRatesFrom(ctx context.Context, symbol string, timeframe types.Timeframe, from time.Time, count int) ([]types.Rate, error)
	CopyRatesFromPos(ctx context.Context, symbol string, timeframe types.Timeframe, start, count int) ([]types.Rate, error)
	CopyRatesRange(ctx context.Context, symbol string, timeframe types.Timeframe, from, to time.Time) ([]types.Rate, error)
	CopyTicksFrom(ctx context.Context, symbol string, from time.Time, count int, flags types.CopyTicks) ([]types.Tick, error)
	CopyTicksRange(ctx context.Context, symbol string, from, to time.Time, flags types.CopyTicks) ([]types.Tick, error)
	Orders(ctx context.Context) ([]types.TradeOrder, error)
	Positions(ctx context.Context) ([]types.TradePosition, error)
	HistoryOrders(ctx context.Context, from, to time.Time) ([]types.TradeOrder, error)
	HistoryDeals(ctx context.Context, from, to time.Time) ([]types.TradeDeal, error)
	OrderSend(ctx context.Context, request types.TradeRequest) (types.TradeResult, error)
	OrderCalcMargin(ctx context.Context, orderType types.OrderType, symbol string, volume, price float64) (float64, error)
	OrderCalcProfit(ctx context.Context, orderType types.OrderType, symbol string, volume, priceOpen, priceClose float64) (float64, error)
	LastError(ctx context.Context) (int, string, error)
	StreamTicks(ctx context.Context, symbols []string) iter.Seq2[bridge.TickEvent, error]
	Close() error
}

var _ Bridge = (*bridge.Client)(nil)

// Gateway is the live terminal. Every data and trade call goes straight to
// the bridge; the gateway adds the session guard, the result-code mirror for
// LastError and local filter application, nothing else.
//
// A Gateway is safe for concurrent use. Calls share the bridge client's rate
// limiter and the error mirror is guarded, so TUI refresh loops can poll it
// while a strategy trades.
type Gateway struct {
	bridge  Bridge
	symbols []string
	log     *logger.Logger

	mu          sync.Mutex
	initialized bool
	lastErrCode int
	lastErrDesc string
}

var _ terminal.Terminal = (*Gateway)(nil)

// NewGateway creates a gateway over the given bridge. The symbols are
// selected into the terminal's market watch during Initialize; Initialize
// must be called before any other method.
func NewGateway(b Bridge, symbols []string, log *logger.Logger) *Gateway {
	return &Gateway{
		bridge:      b,
		symbols:     symbols,
		log:         log,
		lastErrCode: types.ResOK,
		lastErrDesc: "Success",
	}
}

// Initialize performs the bridge handshake: it fetches the bridge version,
// verifies it against this library's version and selects the configured
// symbols into the market watch.
func (g *Gateway) Initialize(ctx context.Context) error {
	g.mu.Lock()
	already := g.initialized
	g.mu.Unlock()

	if already {
		return nil
	}

	remote, err := g.bridge.Version(ctx)
	if err != nil {
		return g.fail(err)
	}

	if err := version.CheckBridgeCompatibility(version.GetVersion(), remote.Released); err != nil {
		return g.fail(err)
	}

	for _, symbol := range g.symbols {
		if err := g.bridge.SymbolSelect(ctx, symbol, true); err != nil {
			return g.fail(errors.Wrapf(errors.GetCode(err), err, "failed to select %s on the terminal", symbol))
		}
	}

	g.mu.Lock()
	g.initialized = true
	g.mu.Unlock()
	g.ok()

	g.log.Info("gateway connected",
		zap.Int("terminal", remote.Terminal),
		zap.Int("build", remote.Build),
		zap.String("bridge_version", remote.Released),
		zap.Strings("symbols", g.symbols),
	)

	return nil
}

// Shutdown ends the session and releases the bridge's pooled connections.
// Further calls fail until Initialize runs again.
func (g *Gateway) Shutdown() error {
	g.mu.Lock()
	already := !g.initialized
	g.initialized = false
	g.mu.Unlock()

	if already {
		return nil
	}

	g.log.Info("gateway shut down")

	return g.bridge.Close()
}

// Version reports the connected terminal build.
func (g *Gateway) Version() (types.TerminalVersion, error) {
	if err := g.ready(); err != nil {
		return types.TerminalVersion{}, g.fail(err)
	}

	remote, err := g.bridge.Version(context.Background())
	if err != nil {
		return types.TerminalVersion{}, g.fail(err)
	}

	g.ok()

	return remote, nil
}

// LastError returns the result code and description of the last failed
// call.
func (g *Gateway) LastError() (int, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.lastErrCode, g.lastErrDesc
}

// AccountInfo returns the live account snapshot.
func (g *Gateway) AccountInfo() (types.AccountInfo, error) {
	if err := g.ready(); err != nil {
		return types.AccountInfo{}, g.fail(err)
	}

	account, err := g.bridge.AccountInfo(context.Background())
	if err != nil {
		return types.AccountInfo{}, g.fail(err)
	}

	g.ok()

	return account, nil
}

// SymbolsTotal returns the number of symbols the terminal knows.
func (g *Gateway) SymbolsTotal() (int, error) {
	if err := g.ready(); err != nil {
		return 0, g.fail(err)
	}

	total, err := g.bridge.SymbolsTotal(context.Background())
	if err != nil {
		return 0, g.fail(err)
	}

	g.ok()

	return total, nil
}

// SymbolInfo returns a symbol's live specification and quote state.
func (g *Gateway) SymbolInfo(symbol string) (types.SymbolInfo, error) {
	if err := g.ready(); err != nil {
		return types.SymbolInfo{}, g.fail(err)
	}

	info, err := g.bridge.SymbolInfo(context.Background(), symbol)
	if err != nil {
		return types.SymbolInfo{}, g.fail(err)
	}

	g.ok()

	return info, nil
}

// SymbolInfoTick returns the terminal's last tick for a symbol.
func (g *Gateway) SymbolInfoTick(symbol string) (types.Tick, error) {
	if err := g.ready(); err != nil {
		return types.Tick{}, g.fail(err)
	}

	tick, err := g.bridge.SymbolInfoTick(context.Background(), symbol)
	if err != nil {
		return types.Tick{}, g.fail(err)
	}

	g.ok()

	return tick, nil
}

// SymbolSelect shows or hides a symbol in the terminal's market watch.
func (g *Gateway) SymbolSelect(symbol string, enable bool) error {
	if err := g.ready(); err != nil {
		return g.fail(err)
	}

	if err := g.bridge.SymbolSelect(context.Background(), symbol, enable); err != nil {
		return g.fail(err)
	}

	g.ok()

	return nil
}

// CopyRatesFrom returns up to count bars with open time at or before from,
// oldest first.
func (g *Gateway) CopyRatesFrom(symbol string, timeframe types.Timeframe, from time.Time, count int) ([]types.Rate, error) {
	if err := g.ready(); err != nil {
		return nil, g.fail(err)
	}

	rates, err := g.bridge.CopyRatesFrom(context.Background(), symbol, timeframe, utils.EnsureUTC(from), count)
	if err != nil {
		return nil, g.fail(err)
	}

	g.ok()

	return rates, nil
}

// CopyRatesFromPos returns count bars starting start bars back from the
// current one.
func (g *Gateway) CopyRatesFromPos(symbol string, timeframe types.Timeframe, start, count int) ([]types.Rate, error) {
	if err := g.ready(); err != nil {
		return nil, g.fail(err)
	}

	rates, err := g.bridge.CopyRatesFromPos(context.Background(), symbol, timeframe, start, count)
	if err != nil {
		return nil, g.fail(err)
	}

	g.ok()

	return rates, nil
}

// CopyRatesRange returns all bars with open time inside [from, to].
func (g *Gateway) CopyRatesRange(symbol string, timeframe types.Timeframe, from, to time.Time) ([]types.Rate, error) {
	if err := g.ready(); err != nil {
		return nil, g.fail(err)
	}

	rates, err := g.bridge.CopyRatesRange(context.Background(), symbol, timeframe, utils.EnsureUTC(from), utils.EnsureUTC(to))
	if err != nil {
		return nil, g.fail(err)
	}

	g.ok()

	return rates, nil
}

// CopyTicksFrom returns up to count ticks starting at from.
func (g *Gateway) CopyTicksFrom(symbol string, from time.Time, count int, flags types.CopyTicks) ([]types.Tick, error) {
	if err := g.ready(); err != nil {
		return nil, g.fail(err)
	}

	ticks, err := g.bridge.CopyTicksFrom(context.Background(), symbol, utils.EnsureUTC(from), count, flags)
	if err != nil {
		return nil, g.fail(err)
	}

	g.ok()

	return ticks, nil
}

// CopyTicksRange returns all ticks inside [from, to].
func (g *Gateway) CopyTicksRange(symbol string, from, to time.Time, flags types.CopyTicks) ([]types.Tick, error) {
	if err := g.ready(); err != nil {
		return nil, g.fail(err)
	}

	ticks, err := g.bridge.CopyTicksRange(context.Background(), symbol, utils.EnsureUTC(from), utils.EnsureUTC(to), flags)
	if err != nil {
		return nil, g.fail(err)
	}

	g.ok()

	return ticks, nil
}

// OrdersTotal returns the number of live pending orders.
func (g *Gateway) OrdersTotal() (int, error) {
	orders, err := g.OrdersGet()
	if err != nil {
		return 0, err
	}

	return len(orders), nil
}

// OrdersGet returns live pending orders narrowed by the filters. The bridge
// reports the full book; the gateway narrows it the same way the tester
// does.
func (g *Gateway) OrdersGet(filters ...terminal.Filter) ([]types.TradeOrder, error) {
	if err := g.ready(); err != nil {
		return nil, g.fail(err)
	}

	orders, err := g.bridge.Orders(context.Background())
	if err != nil {
		return nil, g.fail(err)
	}

	set := terminal.ApplyFilters(filters...)

	matched := make([]types.TradeOrder, 0, len(orders))
	for _, order := range orders {
		if set.MatchLive(order.Symbol, order.Ticket) {
			matched = append(matched, order)
		}
	}

	g.ok()

	return matched, nil
}

// PositionsTotal returns the number of open positions.
func (g *Gateway) PositionsTotal() (int, error) {
	positions, err := g.PositionsGet()
	if err != nil {
		return 0, err
	}

	return len(positions), nil
}

// PositionsGet returns open positions narrowed by the filters.
func (g *Gateway) PositionsGet(filters ...terminal.Filter) ([]types.TradePosition, error) {
	if err := g.ready(); err != nil {
		return nil, g.fail(err)
	}

	positions, err := g.bridge.Positions(context.Background())
	if err != nil {
		return nil, g.fail(err)
	}

	set := terminal.ApplyFilters(filters...)

	matched := make([]types.TradePosition, 0, len(positions))
	for _, position := range positions {
		if set.MatchLive(position.Symbol, position.Ticket) {
			matched = append(matched, position)
		}
	}

	g.ok()

	return matched, nil
}

// HistoryOrdersTotal counts completed orders with setup time inside
// [from, to].
func (g *Gateway) HistoryOrdersTotal(from, to time.Time) (int, error) {
	orders, err := g.HistoryOrdersGet(from, to)
	if err != nil {
		return 0, err
	}

	return len(orders), nil
}

// HistoryOrdersGet returns completed orders narrowed by the filters. A
// ticket or position filter overrides the interval, so the terminal is asked
// for its whole history before the filter picks the matches.
func (g *Gateway) HistoryOrdersGet(from, to time.Time, filters ...terminal.Filter) ([]types.TradeOrder, error) {
	if err := g.ready(); err != nil {
		return nil, g.fail(err)
	}

	set := terminal.ApplyFilters(filters...)
	from, to = utils.EnsureUTC(from), utils.EnsureUTC(to)

	queryFrom, queryTo := from, to
	if set.Ticket != 0 || set.Position != 0 {
		queryFrom, queryTo = historyEpoch, historyHorizon
	}

	orders, err := g.bridge.HistoryOrders(context.Background(), queryFrom, queryTo)
	if err != nil {
		return nil, g.fail(err)
	}

	matched := make([]types.TradeOrder, 0, len(orders))
	for _, order := range orders {
		setup := time.Unix(order.TimeSetup, 0).UTC()
		if set.MatchHistory(order.Symbol, order.Ticket, order.PositionID, setup, from, to) {
			matched = append(matched, order)
		}
	}

	g.ok()

	return matched, nil
}

// HistoryDealsTotal counts deals executed inside [from, to].
func (g *Gateway) HistoryDealsTotal(from, to time.Time) (int, error) {
	deals, err := g.HistoryDealsGet(from, to)
	if err != nil {
		return 0, err
	}

	return len(deals), nil
}

// HistoryDealsGet returns deals narrowed by the filters. A ticket or
// position filter overrides the interval.
func (g *Gateway) HistoryDealsGet(from, to time.Time, filters ...terminal.Filter) ([]types.TradeDeal, error) {
	if err := g.ready(); err != nil {
		return nil, g.fail(err)
	}

	set := terminal.ApplyFilters(filters...)
	from, to = utils.EnsureUTC(from), utils.EnsureUTC(to)

	queryFrom, queryTo := from, to
	if set.Ticket != 0 || set.Position != 0 {
		queryFrom, queryTo = historyEpoch, historyHorizon
	}

	deals, err := g.bridge.HistoryDeals(context.Background(), queryFrom, queryTo)
	if err != nil {
		return nil, g.fail(err)
	}

	matched := make([]types.TradeDeal, 0, len(deals))
	for _, deal := range deals {
		executed := time.Unix(deal.Time, 0).UTC()
		if set.MatchHistory(deal.Symbol, deal.Ticket, deal.PositionID, executed, from, to) {
			matched = append(matched, deal)
		}
	}

	g.ok()

	return matched, nil
}

// OrderSend forwards a trade request to the terminal. The result carries the
// terminal retcode even when err is nil, so callers must check result.Ok().
func (g *Gateway) OrderSend(request types.TradeRequest) (types.TradeResult, error) {
	if err := g.ready(); err != nil {
		return types.TradeResult{}, g.fail(err)
	}

	result, err := g.bridge.OrderSend(context.Background(), request)
	if err != nil {
		return types.TradeResult{}, g.fail(err)
	}

	g.ok()

	return result, nil
}

// OrderCalcMargin returns the margin required to open the trade, in the
// account currency.
func (g *Gateway) OrderCalcMargin(orderType types.OrderType, symbol string, volume, price float64) (float64, error) {
	if err := g.ready(); err != nil {
		return 0, g.fail(err)
	}

	margin, err := g.bridge.OrderCalcMargin(context.Background(), orderType, symbol, volume, price)
	if err != nil {
		return 0, g.fail(err)
	}

	g.ok()

	return margin, nil
}

// OrderCalcProfit returns the profit of a trade opened at priceOpen and
// closed at priceClose, in the account currency.
func (g *Gateway) OrderCalcProfit(orderType types.OrderType, symbol string, volume, priceOpen, priceClose float64) (float64, error) {
	if err := g.ready(); err != nil {
		return 0, g.fail(err)
	}

	profit, err := g.bridge.OrderCalcProfit(context.Background(), orderType, symbol, volume, priceOpen, priceClose)
	if err != nil {
		return 0, g.fail(err)
	}

	g.ok()

	return profit, nil
}

// StreamTicks subscribes to the live tick feed. The session's symbols are
// streamed when none are given. Cancel the context to stop; the feed
// otherwise redials dropped connections on its own.
func (g *Gateway) StreamTicks(ctx context.Context, symbols ...string) iter.Seq2[bridge.TickEvent, error] {
	if len(symbols) == 0 {
		symbols = g.symbols
	}

	if err := g.ready(); err != nil {
		return func(yield func(bridge.TickEvent, error) bool) {
			yield(bridge.TickEvent{}, g.fail(err))
		}
	}

	return g.bridge.StreamTicks(ctx, symbols)
}

// ready guards every data and trade method against use before Initialize or
// after Shutdown.
func (g *Gateway) ready() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.initialized {
		return errors.New(errors.ErrCodeNotInitialized, "gateway not initialized, call Initialize first")
	}

	return nil
}

// ok clears the last error after a successful call.
func (g *Gateway) ok() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastErrCode = types.ResOK
	g.lastErrDesc = "Success"
}

// fail records err for LastError and passes it through.
func (g *Gateway) fail(err error) error {
	code, desc := g.resolveResult(err)

	g.mu.Lock()
	g.lastErrCode, g.lastErrDesc = code, desc
	g.mu.Unlock()

	return err
}

// resolveResult maps a failed call onto the terminal result code LastError
// reports. A bridge status error carries the terminal's own code in its
// envelope; when the envelope arrived without one, the terminal still knows,
// so the gateway asks it directly.
func (g *Gateway) resolveResult(err error) (int, string) {
	var status *bridge.StatusError
	if errors.As(err, &status) {
		if status.Code != 0 {
			return status.Code, status.Message
		}

		if code, desc, lerr := g.bridge.LastError(context.Background()); lerr == nil && code != types.ResOK {
			return code, desc
		}
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeNotInitialized, errors.ErrCodeShutdown, errors.ErrCodeVersionMismatch,
		errors.ErrCodeBridgeUnreachable, errors.ErrCodeBridgeProtocol, errors.ErrCodeStreamClosed:
		return types.ResInternalFail, err.Error()
	case errors.ErrCodeInvalidParameter, errors.ErrCodeInvalidConfiguration:
		return types.ResInvalidParams, err.Error()
	default:
		return types.ResFail, err.Error()
	}
}
