package gateway

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/mtsim/internal/gateway/bridge"
	"github.com/rxtech-lab/mtsim/internal/logger"
	"github.com/rxtech-lab/mtsim/internal/terminal"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/internal/version"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// stubBridge serves canned state and records what the gateway asked for.
type stubBridge struct {
	version    types.TerminalVersion
	versionErr error

	account    types.AccountInfo
	accountErr error

	symbolsTotal int
	specs        map[string]types.SymbolInfo
	specErr      error
	ticks        map[string]types.Tick

	selected    map[string]bool
	selectErr   error
	selectCalls int

	rates     []types.Rate
	ratesErr  error
	rateQuery struct {
		symbol    string
		timeframe types.Timeframe
		from      time.Time
		to        time.Time
		start     int
		count     int
	}

	tickHistory []types.Tick
	tickFlags   types.CopyTicks

	orders    []types.TradeOrder
	positions []types.TradePosition

	historyOrders []types.TradeOrder
	historyDeals  []types.TradeDeal
	historyFrom   time.Time
	historyTo     time.Time

	result      types.TradeResult
	sendErr     error
	sentRequest types.TradeRequest

	margin float64
	profit float64

	lastErrCode  int
	lastErrDesc  string
	lastErrErr   error
	lastErrCalls int

	events          []bridge.TickEvent
	streamedSymbols []string

	closeCalls int
}

func (b *stubBridge) Version(context.Context) (types.TerminalVersion, error) {
	return b.version, b.versionErr
}

func (b *stubBridge) AccountInfo(context.Context) (types.AccountInfo, error) {
	return b.account, b.accountErr
}

func (b *stubBridge) SymbolsTotal(context.Context) (int, error) {
	return b.symbolsTotal, nil
}

func (b *stubBridge) SymbolInfo(_ context.Context, symbol string) (types.SymbolInfo, error) {
	if b.specErr != nil {
		return types.SymbolInfo{}, b.specErr
	}

	return b.specs[symbol], nil
}

func (b *stubBridge) SymbolInfoTick(_ context.Context, symbol string) (types.Tick, error) {
	return b.ticks[symbol], nil
}

func (b *stubBridge) SymbolSelect(_ context.Context, symbol string, enable bool) error {
	b.selectCalls++

	if b.selectErr != nil {
		return b.selectErr
	}

	if b.selected == nil {
		b.selected = make(map[string]bool)
	}

	b.selected[symbol] = enable

	return nil
}

func (b *stubBridge) CopyRatesFrom(_ context.Context, symbol string, timeframe types.Timeframe, from time.Time, count int) ([]types.Rate, error) {
	b.rateQuery.symbol, b.rateQuery.timeframe = symbol, timeframe
	b.rateQuery.from, b.rateQuery.count = from, count

	return b.rates, b.ratesErr
}

func (b *stubBridge) CopyRatesFromPos(_ context.Context, symbol string, timeframe types.Timeframe, start, count int) ([]types.Rate, error) {
	b.rateQuery.symbol, b.rateQuery.timeframe = symbol, timeframe
	b.rateQuery.start, b.rateQuery.count = start, count

	return b.rates, b.ratesErr
}

func (b *stubBridge) CopyRatesRange(_ context.Context, symbol string, timeframe types.Timeframe, from, to time.Time) ([]types.Rate, error) {
	b.rateQuery.symbol, b.rateQuery.timeframe = symbol, timeframe
	b.rateQuery.from, b.rateQuery.to = from, to

	return b.rates, b.ratesErr
}

func (b *stubBridge) CopyTicksFrom(_ context.Context, symbol string, from time.Time, count int, flags types.CopyTicks) ([]types.Tick, error) {
	b.rateQuery.symbol, b.rateQuery.from, b.rateQuery.count = symbol, from, count
	b.tickFlags = flags

	return b.tickHistory, nil
}

func (b *stubBridge) CopyTicksRange(_ context.Context, symbol string, from, to time.Time, flags types.CopyTicks) ([]types.Tick, error) {
	b.rateQuery.symbol, b.rateQuery.from, b.rateQuery.to = symbol, from, to
	b.tickFlags = flags

	return b.tickHistory, nil
}

func (b *stubBridge) Orders(context.Context) ([]types.TradeOrder, error) {
	return b.orders, nil
}

func (b *stubBridge) Positions(context.Context) ([]types.TradePosition, error) {
	return b.positions, nil
}

func (b *stubBridge) HistoryOrders(_ context.Context, from, to time.Time) ([]types.TradeOrder, error) {
	b.historyFrom, b.historyTo = from, to

	return b.historyOrders, nil
}

func (b *stubBridge) HistoryDeals(_ context.Context, from, to time.Time) ([]types.TradeDeal, error) {
	b.historyFrom, b.historyTo = from, to

	return b.historyDeals, nil
}

func (b *stubBridge) OrderSend(_ context.Context, request types.TradeRequest) (types.TradeResult, error) {
	b.sentRequest = request

	return b.result, b.sendErr
}

func (b *stubBridge) OrderCalcMargin(context.Context, types.OrderType, string, float64, float64) (float64, error) {
	return b.margin, nil
}

func (b *stubBridge) OrderCalcProfit(context.Context, types.OrderType, string, float64, float64, float64) (float64, error) {
	return b.profit, nil
}

func (b *stubBridge) LastError(context.Context) (int, string, error) {
	b.lastErrCalls++

	return b.lastErrCode, b.lastErrDesc, b.lastErrErr
}

func (b *stubBridge) StreamTicks(_ context.Context, symbols []string) iter.Seq2[bridge.TickEvent, error] {
	b.streamedSymbols = symbols

	return func(yield func(bridge.TickEvent, error) bool) {
		for _, event := range b.events {
			if !yield(event, nil) {
				return
			}
		}
	}
}

func (b *stubBridge) Close() error {
	b.closeCalls++

	return nil
}

type GatewayTestSuite struct {
	suite.Suite
	log *logger.Logger
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewayTestSuite))
}

func (suite *GatewayTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)

	suite.log = log
}

// compatibleBridge returns a stub whose version passes the handshake.
func (suite *GatewayTestSuite) compatibleBridge() *stubBridge {
	return &stubBridge{
		version: types.TerminalVersion{Terminal: 500, Build: 4620, Released: version.GetVersion()},
	}
}

// connected builds a gateway over the stub and runs Initialize.
func (suite *GatewayTestSuite) connected(b *stubBridge, symbols ...string) *Gateway {
	gw := NewGateway(b, symbols, suite.log)
	suite.Require().NoError(gw.Initialize(context.Background()))

	return gw
}

func (suite *GatewayTestSuite) TestInitializeSelectsSymbols() {
	b := suite.compatibleBridge()
	gw := suite.connected(b, "EURUSD", "XAUUSD")

	suite.True(b.selected["EURUSD"])
	suite.True(b.selected["XAUUSD"])
	suite.Equal(2, b.selectCalls)

	// A second Initialize is a no-op.
	suite.Require().NoError(gw.Initialize(context.Background()))
	suite.Equal(2, b.selectCalls)
}

func (suite *GatewayTestSuite) TestInitializeVersionMismatch() {
	b := suite.compatibleBridge()
	b.version.Released = "99.0.0"

	gw := NewGateway(b, []string{"EURUSD"}, suite.log)

	err := gw.Initialize(context.Background())
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeVersionMismatch, errors.GetCode(err))
	suite.Zero(b.selectCalls)

	// The handshake failed, so the session never opened.
	_, err = gw.AccountInfo()
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeNotInitialized, errors.GetCode(err))
}

func (suite *GatewayTestSuite) TestInitializeSelectFailure() {
	b := suite.compatibleBridge()
	b.selectErr = errors.New(errors.ErrCodeBridgeStatus, "market watch is full")

	gw := NewGateway(b, []string{"EURUSD"}, suite.log)

	err := gw.Initialize(context.Background())
	suite.Require().Error(err)
	suite.Contains(err.Error(), "failed to select EURUSD")
}

func (suite *GatewayTestSuite) TestNotInitializedGuard() {
	gw := NewGateway(suite.compatibleBridge(), nil, suite.log)

	_, err := gw.AccountInfo()
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeNotInitialized, errors.GetCode(err))

	code, desc := gw.LastError()
	suite.Equal(types.ResInternalFail, code)
	suite.Contains(desc, "not initialized")
}

func (suite *GatewayTestSuite) TestAccountInfoPassthrough() {
	b := suite.compatibleBridge()
	b.account = types.AccountInfo{Login: 5500123, Balance: 25000, Currency: "USD", Leverage: 100}

	gw := suite.connected(b)

	account, err := gw.AccountInfo()
	suite.Require().NoError(err)
	suite.Equal(b.account, account)

	code, desc := gw.LastError()
	suite.Equal(types.ResOK, code)
	suite.Equal("Success", desc)
}

func (suite *GatewayTestSuite) TestVersionPassthrough() {
	b := suite.compatibleBridge()
	gw := suite.connected(b)

	remote, err := gw.Version()
	suite.Require().NoError(err)
	suite.Equal(4620, remote.Build)
}

func (suite *GatewayTestSuite) TestSymbolDataPassthrough() {
	b := suite.compatibleBridge()
	b.symbolsTotal = 1284
	b.specs = map[string]types.SymbolInfo{
		"EURUSD": {Name: "EURUSD", Digits: 5, Point: 0.00001},
	}
	b.ticks = map[string]types.Tick{
		"EURUSD": {Bid: 1.10000, Ask: 1.10010},
	}

	gw := suite.connected(b, "EURUSD")

	total, err := gw.SymbolsTotal()
	suite.Require().NoError(err)
	suite.Equal(1284, total)

	info, err := gw.SymbolInfo("EURUSD")
	suite.Require().NoError(err)
	suite.Equal(5, info.Digits)

	tick, err := gw.SymbolInfoTick("EURUSD")
	suite.Require().NoError(err)
	suite.InDelta(1.10010, tick.Ask, 1e-9)
}

func (suite *GatewayTestSuite) TestCopyRatesForwardsQuery() {
	b := suite.compatibleBridge()
	b.rates = []types.Rate{{Close: 1.1}, {Close: 1.2}}

	gw := suite.connected(b, "EURUSD")

	from := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	rates, err := gw.CopyRatesFrom("EURUSD", types.TimeframeH1, from, 2)
	suite.Require().NoError(err)
	suite.Len(rates, 2)
	suite.Equal("EURUSD", b.rateQuery.symbol)
	suite.Equal(types.TimeframeH1, b.rateQuery.timeframe)
	suite.Equal(time.UTC, b.rateQuery.from.Location())
	suite.Equal(2, b.rateQuery.count)

	_, err = gw.CopyRatesFromPos("EURUSD", types.TimeframeM5, 3, 40)
	suite.Require().NoError(err)
	suite.Equal(3, b.rateQuery.start)
	suite.Equal(40, b.rateQuery.count)
}

func (suite *GatewayTestSuite) TestCopyTicksForwardsFlags() {
	b := suite.compatibleBridge()
	b.tickHistory = []types.Tick{{Bid: 1.1}}

	gw := suite.connected(b, "EURUSD")

	ticks, err := gw.CopyTicksFrom("EURUSD", time.Now(), 100, types.CopyTicksTrade)
	suite.Require().NoError(err)
	suite.Len(ticks, 1)
	suite.Equal(types.CopyTicksTrade, b.tickFlags)
}

func (suite *GatewayTestSuite) TestOrdersGetAppliesFilters() {
	b := suite.compatibleBridge()
	b.orders = []types.TradeOrder{
		{Ticket: 1, Symbol: "EURUSD"},
		{Ticket: 2, Symbol: "XAUUSD"},
		{Ticket: 3, Symbol: "EURUSD"},
	}

	gw := suite.connected(b)

	all, err := gw.OrdersGet()
	suite.Require().NoError(err)
	suite.Len(all, 3)

	eur, err := gw.OrdersGet(terminal.WithSymbol("EURUSD"))
	suite.Require().NoError(err)
	suite.Len(eur, 2)

	one, err := gw.OrdersGet(terminal.WithTicket(2))
	suite.Require().NoError(err)
	suite.Require().Len(one, 1)
	suite.Equal("XAUUSD", one[0].Symbol)

	total, err := gw.OrdersTotal()
	suite.Require().NoError(err)
	suite.Equal(3, total)
}

func (suite *GatewayTestSuite) TestPositionsGetAppliesFilters() {
	b := suite.compatibleBridge()
	b.positions = []types.TradePosition{
		{Ticket: 10, Symbol: "EURUSD"},
		{Ticket: 11, Symbol: "GBPUSD"},
	}

	gw := suite.connected(b)

	group, err := gw.PositionsGet(terminal.WithGroup("*USD"))
	suite.Require().NoError(err)
	suite.Len(group, 2)

	one, err := gw.PositionsGet(terminal.WithTicket(11))
	suite.Require().NoError(err)
	suite.Require().Len(one, 1)
	suite.Equal("GBPUSD", one[0].Symbol)

	total, err := gw.PositionsTotal()
	suite.Require().NoError(err)
	suite.Equal(2, total)
}

func (suite *GatewayTestSuite) TestHistoryIntervalForwarded() {
	b := suite.compatibleBridge()

	setup := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	b.historyOrders = []types.TradeOrder{
		{Ticket: 100, Symbol: "EURUSD", TimeSetup: setup.Unix()},
		{Ticket: 101, Symbol: "EURUSD", TimeSetup: setup.Add(48 * time.Hour).Unix()},
	}

	gw := suite.connected(b)

	from := setup.Add(-time.Hour)
	to := setup.Add(time.Hour)

	orders, err := gw.HistoryOrdersGet(from, to)
	suite.Require().NoError(err)
	suite.Require().Len(orders, 1)
	suite.Equal(int64(100), orders[0].Ticket)
	suite.Equal(from, b.historyFrom)
	suite.Equal(to, b.historyTo)

	total, err := gw.HistoryOrdersTotal(from, to)
	suite.Require().NoError(err)
	suite.Equal(1, total)
}

func (suite *GatewayTestSuite) TestHistoryTicketOverridesInterval() {
	b := suite.compatibleBridge()

	setup := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	b.historyOrders = []types.TradeOrder{
		{Ticket: 100, Symbol: "EURUSD", TimeSetup: setup.Unix(), PositionID: 900},
	}

	gw := suite.connected(b)

	// The requested interval misses the order entirely; the ticket filter
	// must still find it.
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	orders, err := gw.HistoryOrdersGet(from, to, terminal.WithTicket(100))
	suite.Require().NoError(err)
	suite.Require().Len(orders, 1)

	suite.Equal(time.Unix(0, 0).UTC(), b.historyFrom)
	suite.Equal(9999, b.historyTo.Year())
}

func (suite *GatewayTestSuite) TestHistoryDealsPositionFilter() {
	b := suite.compatibleBridge()

	executed := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	b.historyDeals = []types.TradeDeal{
		{Ticket: 200, Symbol: "EURUSD", Time: executed.Unix(), PositionID: 900},
		{Ticket: 201, Symbol: "EURUSD", Time: executed.Unix(), PositionID: 901},
	}

	gw := suite.connected(b)

	deals, err := gw.HistoryDealsGet(executed.Add(-time.Hour), executed.Add(time.Hour), terminal.WithPosition(901))
	suite.Require().NoError(err)
	suite.Require().Len(deals, 1)
	suite.Equal(int64(201), deals[0].Ticket)

	total, err := gw.HistoryDealsTotal(executed.Add(-time.Hour), executed.Add(time.Hour))
	suite.Require().NoError(err)
	suite.Equal(2, total)
}

func (suite *GatewayTestSuite) TestOrderSendForwardsRequest() {
	b := suite.compatibleBridge()
	b.result = types.TradeResult{Retcode: types.RetcodeDone, Deal: 301, Order: 101, Volume: 0.10, Price: 1.10010}

	gw := suite.connected(b, "EURUSD")

	request := types.TradeRequest{
		Action: types.TradeActionDeal,
		Symbol: "EURUSD",
		Volume: 0.10,
		Price:  1.10010,
		Type:   types.OrderTypeBuy,
	}

	result, err := gw.OrderSend(request)
	suite.Require().NoError(err)
	suite.True(result.Ok())
	suite.Equal(request, b.sentRequest)
}

func (suite *GatewayTestSuite) TestOrderSendRejectedResultIsNotAnError() {
	b := suite.compatibleBridge()
	b.result = types.TradeResult{Retcode: types.RetcodeNoMoney, Comment: "No money"}

	gw := suite.connected(b, "EURUSD")

	result, err := gw.OrderSend(types.TradeRequest{Action: types.TradeActionDeal, Symbol: "EURUSD", Volume: 0.1})
	suite.Require().NoError(err)
	suite.False(result.Ok())
	suite.Equal(types.RetcodeNoMoney, result.Retcode)
}

func (suite *GatewayTestSuite) TestCalcPassthrough() {
	b := suite.compatibleBridge()
	b.margin = 1100.25
	b.profit = -38.40

	gw := suite.connected(b, "EURUSD")

	margin, err := gw.OrderCalcMargin(types.OrderTypeBuy, "EURUSD", 1, 1.1)
	suite.Require().NoError(err)
	suite.InDelta(1100.25, margin, 1e-9)

	profit, err := gw.OrderCalcProfit(types.OrderTypeBuy, "EURUSD", 1, 1.1, 1.2)
	suite.Require().NoError(err)
	suite.InDelta(-38.40, profit, 1e-9)
}

func (suite *GatewayTestSuite) TestStatusErrorMirrorsTerminalCode() {
	b := suite.compatibleBridge()
	b.specErr = errors.Wrap(errors.ErrCodeBridgeStatus, "bridge returned 404 for /symbol_info",
		&bridge.StatusError{Code: types.ResNotFound, Message: "symbol UNKNOWN not found"})

	gw := suite.connected(b)

	_, err := gw.SymbolInfo("UNKNOWN")
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeBridgeStatus, errors.GetCode(err))

	code, desc := gw.LastError()
	suite.Equal(types.ResNotFound, code)
	suite.Equal("symbol UNKNOWN not found", desc)
	suite.Zero(b.lastErrCalls)
}

func (suite *GatewayTestSuite) TestStatusErrorWithoutCodeAsksBridge() {
	b := suite.compatibleBridge()
	b.specErr = errors.Wrap(errors.ErrCodeBridgeStatus, "bridge returned 502 for /symbol_info",
		&bridge.StatusError{Message: "Bad Gateway"})
	b.lastErrCode = types.ResInvalidParams
	b.lastErrDesc = "Invalid params"

	gw := suite.connected(b)

	_, err := gw.SymbolInfo("EURUSD")
	suite.Require().Error(err)

	code, desc := gw.LastError()
	suite.Equal(types.ResInvalidParams, code)
	suite.Equal("Invalid params", desc)
	suite.Equal(1, b.lastErrCalls)
}

func (suite *GatewayTestSuite) TestTransportErrorReportsInternalFail() {
	b := suite.compatibleBridge()
	b.accountErr = errors.New(errors.ErrCodeBridgeUnreachable, "connection refused")

	gw := suite.connected(b)

	_, err := gw.AccountInfo()
	suite.Require().Error(err)

	code, desc := gw.LastError()
	suite.Equal(types.ResInternalFail, code)
	suite.Contains(desc, "connection refused")
}

func (suite *GatewayTestSuite) TestErrorMirrorResetsOnSuccess() {
	b := suite.compatibleBridge()
	b.accountErr = errors.New(errors.ErrCodeBridgeUnreachable, "connection refused")

	gw := suite.connected(b)

	_, err := gw.AccountInfo()
	suite.Require().Error(err)

	b.accountErr = nil

	_, err = gw.AccountInfo()
	suite.Require().NoError(err)

	code, _ := gw.LastError()
	suite.Equal(types.ResOK, code)
}

func (suite *GatewayTestSuite) TestShutdownClosesBridge() {
	b := suite.compatibleBridge()
	gw := suite.connected(b)

	suite.Require().NoError(gw.Shutdown())
	suite.Equal(1, b.closeCalls)

	_, err := gw.AccountInfo()
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeNotInitialized, errors.GetCode(err))

	// A second Shutdown is a no-op.
	suite.Require().NoError(gw.Shutdown())
	suite.Equal(1, b.closeCalls)
}

func (suite *GatewayTestSuite) TestStreamTicksDefaultsToSessionSymbols() {
	b := suite.compatibleBridge()
	b.events = []bridge.TickEvent{
		{Symbol: "EURUSD", Tick: types.Tick{Bid: 1.1}},
		{Symbol: "XAUUSD", Tick: types.Tick{Bid: 2400}},
	}

	gw := suite.connected(b, "EURUSD", "XAUUSD")

	var got []string
	for event, err := range gw.StreamTicks(context.Background()) {
		suite.Require().NoError(err)
		got = append(got, event.Symbol)
	}

	suite.Equal([]string{"EURUSD", "XAUUSD"}, got)
	suite.Equal([]string{"EURUSD", "XAUUSD"}, b.streamedSymbols)
}

func (suite *GatewayTestSuite) TestStreamTicksRequiresSession() {
	gw := NewGateway(suite.compatibleBridge(), []string{"EURUSD"}, suite.log)

	for _, err := range gw.StreamTicks(context.Background(), "EURUSD") {
		suite.Require().Error(err)
		suite.Equal(errors.ErrCodeNotInitialized, errors.GetCode(err))
	}
}
