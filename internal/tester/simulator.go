// Package tester implements the offline strategy tester: a simulated
// terminal that replays downloaded history tick by tick, fills trade
// requests against the replayed quotes and writes run reports. Strategies
// talk to it through terminal.Terminal only, so the same robot runs
// unchanged against the live gateway.
package tester

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/mtsim/internal/history"
	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/terminal"
	"github.com/rxtech-lab/mtsim/internal/tester/commission"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/internal/utils"
	"github.com/rxtech-lab/mtsim/internal/version"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// Simulated account defaults, used when the config leaves the field unset.
const (
	defaultLogin       int64 = 11223344
	defaultAccountName       = "John Doe"
	defaultServer            = "MetaTrader5-Simulator"
	defaultCurrency          = "USD"
	defaultLimitOrders       = 200
	defaultMarginCall        = 50.0
	defaultStopOut           = 30.0
)

// terminalBuild is the build number the simulated terminal reports.
const terminalBuild = 4620

// symbolState is one instrument loaded into the session.
type symbolState struct {
	spec     types.SymbolInfo
	selected bool
}

// Simulator is the offline terminal. It owns the whole simulated trading
// state: the account, the live order and position containers, the trade
// history and the last replayed tick per symbol. The replay loop drives it
// by feeding ticks; everything else reacts to the current tick cache.
//
// A Simulator is not safe for concurrent use. The replay and the strategy
// callbacks run on a single goroutine, the same way an expert advisor runs
// inside the terminal.
type Simulator struct {
	config Config
	store  *history.Store
	log    *logger.Logger

	calc       calculator
	commission commission.Model
	tickets    *ticketSource

	initialized bool

	lastErrCode int
	lastErrDesc string

	account types.AccountInfo
	symbols map[string]*symbolState
	ticks   map[string]types.Tick

	orders        []types.TradeOrder
	positions     []types.TradePosition
	ordersHistory []types.TradeOrder
	dealsHistory  []types.TradeDeal

	equity []types.EquityPoint
}

var _ terminal.Terminal = (*Simulator)(nil)

// NewSimulator creates a simulator over the given history store. The config
// decides the replayed symbols, the starting balance and the commission
// model; Initialize must be called before any other method.
func NewSimulator(config Config, store *history.Store, log *logger.Logger) *Simulator {
	return &Simulator{
		config:      config,
		store:       store,
		log:         log,
		calc:        calculator{log: log},
		commission:  commission.GetModel(config.Commission.TakeOr(commission.ModelFlat)),
		tickets:     newTicketSource(time.Now().UnixNano()),
		lastErrCode: types.ResOK,
		lastErrDesc: "Success",
		symbols:     make(map[string]*symbolState),
		ticks:       make(map[string]types.Tick),
	}
}

// Initialize loads the captured specification of every configured symbol
// and seeds the simulated account from the config deposit.
func (s *Simulator) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return s.fail(errors.Wrap(errors.ErrCodeTesterInitFailed, "initialization canceled", err))
	}

	if s.initialized {
		return nil
	}

	if len(s.config.Symbols) == 0 {
		return s.fail(errors.New(errors.ErrCodeNoSymbolsLoaded, "tester config names no symbols"))
	}

	for _, symbol := range s.config.Symbols {
		spec, err := s.store.LoadSymbolSpec(symbol)
		if err != nil {
			return s.fail(errors.Wrapf(errors.ErrCodeTesterInitFailed, err,
				"failed to load the captured specification for %s, download it first", symbol))
		}

		s.symbols[symbol] = &symbolState{spec: spec, selected: true}
	}

	s.account = s.seedAccount()
	s.initialized = true
	s.ok()

	s.log.Info("tester terminal initialized",
		zap.Strings("symbols", s.config.Symbols),
		zap.Float64("deposit", s.config.Deposit),
		zap.Int64("leverage", s.config.Leverage),
	)

	return nil
}

// seedAccount builds the opening account snapshot. Identity fields fall back
// to simulator defaults when the config does not override them.
func (s *Simulator) seedAccount() types.AccountInfo {
	server := s.config.Server.TakeOr(defaultServer)

	return types.AccountInfo{
		Login:          s.config.Login.TakeOr(defaultLogin),
		TradeMode:      types.AccountTradeModeDemo,
		Leverage:       s.config.Leverage,
		LimitOrders:    defaultLimitOrders,
		MarginSoMode:   types.AccountStopoutModePercent,
		TradeAllowed:   true,
		TradeExpert:    true,
		MarginMode:     types.AccountMarginModeRetailHedging,
		CurrencyDigits: 2,

		Balance:      s.config.Deposit,
		Equity:       s.config.Deposit,
		MarginFree:   s.config.Deposit,
		MarginSoCall: defaultMarginCall,
		MarginSoSo:   defaultStopOut,

		Name:     defaultAccountName,
		Server:   server,
		Currency: s.config.Currency.TakeOr(defaultCurrency),
		Company:  s.config.Company.TakeOr(server),
	}
}

// Shutdown ends the session. Further calls fail until Initialize runs again.
func (s *Simulator) Shutdown() error {
	if !s.initialized {
		return nil
	}

	s.initialized = false
	s.log.Info("tester terminal shut down")

	return nil
}

// Version reports the simulated terminal build.
func (s *Simulator) Version() (types.TerminalVersion, error) {
	if err := s.ready(); err != nil {
		return types.TerminalVersion{}, s.fail(err)
	}

	s.ok()

	return types.TerminalVersion{
		Terminal: 500,
		Build:    terminalBuild,
		Released: version.GetVersion(),
	}, nil
}

// LastError returns the result code and description of the last failed
// call.
func (s *Simulator) LastError() (int, string) {
	return s.lastErrCode, s.lastErrDesc
}

// AccountInfo returns the current simulated account snapshot.
func (s *Simulator) AccountInfo() (types.AccountInfo, error) {
	if err := s.ready(); err != nil {
		return types.AccountInfo{}, s.fail(err)
	}

	s.ok()

	return s.account, nil
}

// SymbolsTotal returns the number of symbols loaded into the session.
func (s *Simulator) SymbolsTotal() (int, error) {
	if err := s.ready(); err != nil {
		return 0, s.fail(err)
	}

	s.ok()

	return len(s.symbols), nil
}

// SymbolInfo returns a symbol's captured specification with the quote
// fields refreshed from the current replay tick.
func (s *Simulator) SymbolInfo(symbol string) (types.SymbolInfo, error) {
	if err := s.ready(); err != nil {
		return types.SymbolInfo{}, s.fail(err)
	}

	state, ok := s.symbols[symbol]
	if !ok {
		return types.SymbolInfo{}, s.fail(errors.Newf(errors.ErrCodeSymbolNotFound,
			"symbol %s is not loaded in the tester", symbol))
	}

	spec := state.spec
	spec.Select = state.selected
	spec.Visible = state.selected

	if tick, ok := s.ticks[symbol]; ok {
		spec.Time = tick.Time
		spec.Bid = tick.Bid
		spec.Ask = tick.Ask
		spec.Last = tick.Last
	}

	s.ok()

	return spec, nil
}

// SymbolInfoTick returns the last replayed tick of a symbol.
func (s *Simulator) SymbolInfoTick(symbol string) (types.Tick, error) {
	if err := s.ready(); err != nil {
		return types.Tick{}, s.fail(err)
	}

	tick, ok := s.ticks[symbol]
	if !ok {
		return types.Tick{}, s.fail(errors.Newf(errors.ErrCodeTickUnavailable,
			"no tick replayed for %s yet", symbol))
	}

	s.ok()

	return tick, nil
}

// SymbolSelect shows or hides a symbol. Showing a symbol outside the
// replayed set loads its captured specification from the store so its
// history stays queryable; hiding a symbol with live orders or positions
// fails.
func (s *Simulator) SymbolSelect(symbol string, enable bool) error {
	if err := s.ready(); err != nil {
		return s.fail(err)
	}

	state, ok := s.symbols[symbol]
	if !ok && !enable {
		return s.fail(errors.Newf(errors.ErrCodeSymbolNotFound,
			"symbol %s is not loaded in the tester", symbol))
	}

	if !ok {
		spec, err := s.store.LoadSymbolSpec(symbol)
		if err != nil {
			return s.fail(errors.Wrapf(errors.ErrCodeSymbolNotFound, err,
				"no captured specification for symbol %s", symbol))
		}

		s.symbols[symbol] = &symbolState{spec: spec, selected: true}
		s.ok()

		return nil
	}

	if !enable && s.symbolInUse(symbol) {
		return s.fail(errors.Newf(errors.ErrCodeInvalidParameter,
			"cannot hide %s, open orders or positions reference it", symbol))
	}

	state.selected = enable
	s.ok()

	return nil
}

// symbolInUse reports whether any live order or position references symbol.
func (s *Simulator) symbolInUse(symbol string) bool {
	for _, order := range s.orders {
		if order.Symbol == symbol {
			return true
		}
	}

	for _, position := range s.positions {
		if position.Symbol == symbol {
			return true
		}
	}

	return false
}

// tickUpdate publishes the next replayed tick of a symbol. Every quote the
// simulator hands out afterwards derives from it.
func (s *Simulator) tickUpdate(symbol string, tick types.Tick) {
	s.ticks[symbol] = tick
}

// CopyRatesFrom returns up to count bars with open time at or before from,
// oldest first.
func (s *Simulator) CopyRatesFrom(symbol string, timeframe types.Timeframe, from time.Time, count int) ([]types.Rate, error) {
	if err := s.ready(); err != nil {
		return nil, s.fail(err)
	}

	rates, err := s.store.RatesFrom(symbol, timeframe, utils.EnsureUTC(from), count)
	if err != nil {
		return nil, s.fail(err)
	}

	s.ok()

	return rates, nil
}

// CopyRatesFromPos returns count bars starting start bars back from the
// symbol's current replay time. Before the first tick the anchor falls back
// to the wall clock, so warm-up requests in strategy initialization still
// see the newest stored bars.
func (s *Simulator) CopyRatesFromPos(symbol string, timeframe types.Timeframe, start, count int) ([]types.Rate, error) {
	if err := s.ready(); err != nil {
		return nil, s.fail(err)
	}

	anchor := time.Now().UTC()
	if tick, ok := s.ticks[symbol]; ok {
		anchor = tick.Time
	} else {
		s.log.Warn("no replay tick for symbol yet, anchoring bar positions at the wall clock",
			zap.String("symbol", symbol))
	}

	rates, err := s.store.RatesFromPos(symbol, timeframe, anchor, start, count)
	if err != nil {
		return nil, s.fail(err)
	}

	s.ok()

	return rates, nil
}

// CopyRatesRange returns all bars with open time inside [from, to].
func (s *Simulator) CopyRatesRange(symbol string, timeframe types.Timeframe, from, to time.Time) ([]types.Rate, error) {
	if err := s.ready(); err != nil {
		return nil, s.fail(err)
	}

	rates, err := s.store.RatesRange(symbol, timeframe, utils.EnsureUTC(from), utils.EnsureUTC(to))
	if err != nil {
		return nil, s.fail(err)
	}

	s.ok()

	return rates, nil
}

// CopyTicksFrom returns up to count ticks starting at from.
func (s *Simulator) CopyTicksFrom(symbol string, from time.Time, count int, flags types.CopyTicks) ([]types.Tick, error) {
	if err := s.ready(); err != nil {
		return nil, s.fail(err)
	}

	ticks, err := s.store.TicksFrom(symbol, utils.EnsureUTC(from), count, flags)
	if err != nil {
		return nil, s.fail(err)
	}

	s.ok()

	return ticks, nil
}

// CopyTicksRange returns all ticks inside [from, to].
func (s *Simulator) CopyTicksRange(symbol string, from, to time.Time, flags types.CopyTicks) ([]types.Tick, error) {
	if err := s.ready(); err != nil {
		return nil, s.fail(err)
	}

	ticks, err := s.store.TicksRange(symbol, utils.EnsureUTC(from), utils.EnsureUTC(to), flags)
	if err != nil {
		return nil, s.fail(err)
	}

	s.ok()

	return ticks, nil
}

// OrdersTotal returns the number of live pending orders.
func (s *Simulator) OrdersTotal() (int, error) {
	if err := s.ready(); err != nil {
		return 0, s.fail(err)
	}

	s.ok()

	return len(s.orders), nil
}

// OrdersGet returns live pending orders narrowed by the filters.
func (s *Simulator) OrdersGet(filters ...terminal.Filter) ([]types.TradeOrder, error) {
	if err := s.ready(); err != nil {
		return nil, s.fail(err)
	}

	set := terminal.ApplyFilters(filters...)

	matched := make([]types.TradeOrder, 0, len(s.orders))
	for _, order := range s.orders {
		if set.MatchLive(order.Symbol, order.Ticket) {
			matched = append(matched, order)
		}
	}

	s.ok()

	return matched, nil
}

// PositionsTotal returns the number of open positions.
func (s *Simulator) PositionsTotal() (int, error) {
	if err := s.ready(); err != nil {
		return 0, s.fail(err)
	}

	s.ok()

	return len(s.positions), nil
}

// PositionsGet returns open positions narrowed by the filters.
func (s *Simulator) PositionsGet(filters ...terminal.Filter) ([]types.TradePosition, error) {
	if err := s.ready(); err != nil {
		return nil, s.fail(err)
	}

	set := terminal.ApplyFilters(filters...)

	matched := make([]types.TradePosition, 0, len(s.positions))
	for _, position := range s.positions {
		if set.MatchLive(position.Symbol, position.Ticket) {
			matched = append(matched, position)
		}
	}

	s.ok()

	return matched, nil
}

// HistoryOrdersTotal counts completed orders with setup time inside
// [from, to].
func (s *Simulator) HistoryOrdersTotal(from, to time.Time) (int, error) {
	if err := s.ready(); err != nil {
		return 0, s.fail(err)
	}

	from, to = utils.EnsureUTC(from), utils.EnsureUTC(to)

	total := 0
	for _, order := range s.ordersHistory {
		setup := time.Unix(order.TimeSetup, 0).UTC()
		if !setup.Before(from) && !setup.After(to) {
			total++
		}
	}

	s.ok()

	return total, nil
}

// HistoryOrdersGet returns completed orders narrowed by the filters. A
// ticket or position filter overrides the interval.
func (s *Simulator) HistoryOrdersGet(from, to time.Time, filters ...terminal.Filter) ([]types.TradeOrder, error) {
	if err := s.ready(); err != nil {
		return nil, s.fail(err)
	}

	set := terminal.ApplyFilters(filters...)
	from, to = utils.EnsureUTC(from), utils.EnsureUTC(to)

	matched := make([]types.TradeOrder, 0, len(s.ordersHistory))
	for _, order := range s.ordersHistory {
		setup := time.Unix(order.TimeSetup, 0).UTC()
		if set.MatchHistory(order.Symbol, order.Ticket, order.PositionID, setup, from, to) {
			matched = append(matched, order)
		}
	}

	s.ok()

	return matched, nil
}

// HistoryDealsTotal counts deals executed inside [from, to].
func (s *Simulator) HistoryDealsTotal(from, to time.Time) (int, error) {
	if err := s.ready(); err != nil {
		return 0, s.fail(err)
	}

	from, to = utils.EnsureUTC(from), utils.EnsureUTC(to)

	total := 0
	for _, deal := range s.dealsHistory {
		executed := time.Unix(deal.Time, 0).UTC()
		if !executed.Before(from) && !executed.After(to) {
			total++
		}
	}

	s.ok()

	return total, nil
}

// HistoryDealsGet returns deals narrowed by the filters. A ticket or
// position filter overrides the interval.
func (s *Simulator) HistoryDealsGet(from, to time.Time, filters ...terminal.Filter) ([]types.TradeDeal, error) {
	if err := s.ready(); err != nil {
		return nil, s.fail(err)
	}

	set := terminal.ApplyFilters(filters...)
	from, to = utils.EnsureUTC(from), utils.EnsureUTC(to)

	matched := make([]types.TradeDeal, 0, len(s.dealsHistory))
	for _, deal := range s.dealsHistory {
		executed := time.Unix(deal.Time, 0).UTC()
		if set.MatchHistory(deal.Symbol, deal.Ticket, deal.PositionID, executed, from, to) {
			matched = append(matched, deal)
		}
	}

	s.ok()

	return matched, nil
}

// OrderCalcMargin returns the margin required to open the trade, in the
// account currency.
func (s *Simulator) OrderCalcMargin(orderType types.OrderType, symbol string, volume, price float64) (float64, error) {
	if err := s.ready(); err != nil {
		return 0, s.fail(err)
	}

	if volume <= 0 || price <= 0 {
		return 0, s.fail(errors.Newf(errors.ErrCodeInvalidParameter,
			"volume and price must be positive, got volume=%v price=%v", volume, price))
	}

	state, ok := s.symbols[symbol]
	if !ok {
		return 0, s.fail(errors.Newf(errors.ErrCodeSymbolNotFound,
			"symbol %s is not loaded in the tester", symbol))
	}

	s.ok()

	return s.calc.margin(state.spec, s.account.Leverage, volume, price), nil
}

// OrderCalcProfit returns the profit of a trade opened at priceOpen and
// closed at priceClose, in the account currency.
func (s *Simulator) OrderCalcProfit(orderType types.OrderType, symbol string, volume, priceOpen, priceClose float64) (float64, error) {
	if err := s.ready(); err != nil {
		return 0, s.fail(err)
	}

	state, ok := s.symbols[symbol]
	if !ok {
		return 0, s.fail(errors.Newf(errors.ErrCodeSymbolNotFound,
			"symbol %s is not loaded in the tester", symbol))
	}

	profit, err := s.calc.profit(state.spec, s.ticks[symbol], orderType, volume, priceOpen, priceClose)
	if err != nil {
		return 0, s.fail(err)
	}

	s.ok()

	return profit, nil
}

// ready guards every data and trade method against use before Initialize or
// after Shutdown.
func (s *Simulator) ready() error {
	if !s.initialized {
		return errors.New(errors.ErrCodeNotInitialized, "terminal not initialized, call Initialize first")
	}

	return nil
}

// ok clears the last error after a successful call.
func (s *Simulator) ok() {
	s.lastErrCode = types.ResOK
	s.lastErrDesc = "Success"
}

// fail records err for LastError and passes it through.
func (s *Simulator) fail(err error) error {
	s.lastErrCode = resCode(errors.GetCode(err))
	s.lastErrDesc = err.Error()

	return err
}

// resCode maps an internal error code onto the terminal result code that
// LastError reports.
func resCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeNotInitialized, errors.ErrCodeShutdown:
		return types.ResInternalFail
	case errors.ErrCodeSymbolNotFound, errors.ErrCodeSpecNotFound, errors.ErrCodeNoHistoryData,
		errors.ErrCodeOrderNotFound, errors.ErrCodePositionNotFound, errors.ErrCodeTickUnavailable:
		return types.ResNotFound
	case errors.ErrCodeInvalidParameter, errors.ErrCodeInvalidVolume, errors.ErrCodeInvalidPrice,
		errors.ErrCodeInvalidTimeframe, errors.ErrCodeInvalidDateRange, errors.ErrCodeMissingParameter,
		errors.ErrCodeInvalidTradeRequest:
		return types.ResInvalidParams
	default:
		return types.ResFail
	}
}
