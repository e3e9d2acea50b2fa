// Package mockbridge provides an in-process terminal bridge for end-to-end
// tests. It serves the bridge REST endpoints and the tick feed over real HTTP
// and WebSocket, backed by a seeded account, symbol table and a minimal order
// engine, so the wire client and the gateway can be exercised without a
// terminal.
package mockbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/internal/version"
)

// Server is a scripted terminal bridge. All quote and history data is seeded
// by the test; the order engine fills market deals at the request price and
// keeps the books consistent, but performs none of the terminal's validation
// beyond symbol and ticket lookups. Use RejectNext to script a trade server
// rejection.
type Server struct {
	mu sync.RWMutex

	httpServer *http.Server
	listener   net.Listener

	upgrader websocket.Upgrader

	version types.TerminalVersion
	account types.AccountInfo
	symbols map[string]types.SymbolInfo
	ticks   map[string]types.Tick

	rates       map[rateKey][]types.Rate
	tickHistory map[string][]types.Tick

	orders        []types.TradeOrder
	positions     []types.TradePosition
	historyOrders []types.TradeOrder
	historyDeals  []types.TradeDeal

	ticketSeq int64
	dealSeq   int64

	rejectNext *types.TradeResult

	lastErrCode int
	lastErrDesc string

	wsClients map[*websocket.Conn]map[string]bool
	wsMu      sync.Mutex
}

// rateKey addresses one seeded bar series.
type rateKey struct {
	symbol    string
	timeframe types.Timeframe
}

// Config seeds the bridge state. Zero-value fields get working defaults: the
// version reports this library's own build and the account trades 10000 USD
// at 1:100.
type Config struct {
	Version types.TerminalVersion
	Account types.AccountInfo
	Symbols []types.SymbolInfo
	Ticks   map[string]types.Tick
}

// errorEnvelope is the body the bridge attaches to a non-2xx response. Code
// carries the terminal result code.
type errorEnvelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// tickFrame is one frame of the tick feed.
type tickFrame struct {
	Symbol string     `json:"symbol"`
	Tick   types.Tick `json:"tick"`
}

// NewServer creates a stopped mock bridge with the given state.
func NewServer(config Config) *Server {
	server := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		version:     config.Version,
		account:     config.Account,
		symbols:     make(map[string]types.SymbolInfo),
		ticks:       make(map[string]types.Tick),
		rates:       make(map[rateKey][]types.Rate),
		tickHistory: make(map[string][]types.Tick),
		ticketSeq:   1000,
		dealSeq:     5000,
		lastErrCode: types.ResOK,
		lastErrDesc: "Success",
		wsClients:   make(map[*websocket.Conn]map[string]bool),
	}

	if server.version.Released == "" {
		server.version = types.TerminalVersion{Terminal: 500, Build: 4620, Released: version.GetVersion()}
	}

	if server.account.Login == 0 {
		server.account.Login = 9000001
	}

	if server.account.Balance == 0 {
		server.account.Balance = 10000
	}

	if server.account.Leverage == 0 {
		server.account.Leverage = 100
	}

	if server.account.Currency == "" {
		server.account.Currency = "USD"
	}

	server.account.Equity = server.account.Balance
	server.account.MarginFree = server.account.Balance

	for _, spec := range config.Symbols {
		server.symbols[spec.Name] = spec
	}

	for symbol, tick := range config.Ticks {
		server.ticks[symbol] = tick
	}

	return server
}

// Start listens on the given address and serves until Stop. An empty address
// picks a random free port.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	router := mux.NewRouter()

	router.HandleFunc("/version", s.handleVersion).Methods("GET")
	router.HandleFunc("/account_info", s.handleAccountInfo).Methods("GET")
	router.HandleFunc("/symbols_total", s.handleSymbolsTotal).Methods("GET")
	router.HandleFunc("/symbol_info", s.handleSymbolInfo).Methods("GET")
	router.HandleFunc("/symbol_info_tick", s.handleSymbolInfoTick).Methods("GET")
	router.HandleFunc("/symbol_select", s.handleSymbolSelect).Methods("POST")
	router.HandleFunc("/copy_rates_from", s.handleCopyRatesFrom).Methods("GET")
	router.HandleFunc("/copy_rates_from_pos", s.handleCopyRatesFromPos).Methods("GET")
	router.HandleFunc("/copy_rates_range", s.handleCopyRatesRange).Methods("GET")
	router.HandleFunc("/copy_ticks_from", s.handleCopyTicksFrom).Methods("GET")
	router.HandleFunc("/copy_ticks_range", s.handleCopyTicksRange).Methods("GET")
	router.HandleFunc("/orders", s.handleOrders).Methods("GET")
	router.HandleFunc("/positions", s.handlePositions).Methods("GET")
	router.HandleFunc("/history_orders", s.handleHistoryOrders).Methods("GET")
	router.HandleFunc("/history_deals", s.handleHistoryDeals).Methods("GET")
	router.HandleFunc("/order_send", s.handleOrderSend).Methods("POST")
	router.HandleFunc("/order_calc_margin", s.handleOrderCalcMargin).Methods("GET")
	router.HandleFunc("/order_calc_profit", s.handleOrderCalcProfit).Methods("GET")
	router.HandleFunc("/last_error", s.handleLastError).Methods("GET")

	router.HandleFunc("/stream/ticks", s.handleStreamTicks)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			fmt.Printf("mock bridge error: %v\n", err)
		}
	}()

	return nil
}

// Stop closes all streams and shuts the server down.
func (s *Server) Stop() error {
	s.DropStreams()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Address returns the address the server is listening on.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// BaseURL returns the REST root of the running server.
func (s *Server) BaseURL() string {
	return "http://" + s.Address()
}

// Test hooks

// SetVersion replaces the version the bridge reports.
func (s *Server) SetVersion(v types.TerminalVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = v
}

// SetTick replaces the current tick of a symbol without broadcasting it.
func (s *Server) SetTick(symbol string, tick types.Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks[symbol] = tick
}

// PushTick replaces the current tick of a symbol and broadcasts it to every
// subscribed stream.
func (s *Server) PushTick(symbol string, tick types.Tick) {
	s.mu.Lock()
	s.ticks[symbol] = tick
	s.mu.Unlock()

	frame := tickFrame{Symbol: symbol, Tick: tick}

	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	for conn, subscribed := range s.wsClients {
		if !subscribed[symbol] {
			continue
		}

		if err := conn.WriteJSON(frame); err != nil {
			conn.Close()
			delete(s.wsClients, conn)
		}
	}
}

// SeedRates installs the bar series served for a symbol and timeframe. Bars
// must be in ascending time order; the last one counts as the current bar.
func (s *Server) SeedRates(symbol string, timeframe types.Timeframe, rates []types.Rate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[rateKey{symbol: symbol, timeframe: timeframe}] = rates
}

// SeedTickHistory installs the tick series served by the copy_ticks
// endpoints, in ascending time order.
func (s *Server) SeedTickHistory(symbol string, ticks []types.Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickHistory[symbol] = ticks
}

// RejectNext makes the next order_send fail with the given retcode, the way
// a trade server rejection does. The response is still HTTP 200; only the
// retcode carries the failure.
func (s *Server) RejectNext(retcode types.Retcode, comment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectNext = &types.TradeResult{Retcode: retcode, Comment: comment}
}

// SetLastError seeds the terminal's last error.
func (s *Server) SetLastError(code int, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErrCode, s.lastErrDesc = code, description
}

// Balance returns the current account balance.
func (s *Server) Balance() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.account.Balance
}

// Positions returns a copy of the open positions.
func (s *Server) Positions() []types.TradePosition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.TradePosition, len(s.positions))
	copy(out, s.positions)

	return out
}

// PendingOrders returns a copy of the live pending orders.
func (s *Server) PendingOrders() []types.TradeOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.TradeOrder, len(s.orders))
	copy(out, s.orders)

	return out
}

// Selected reports whether a symbol is visible in the market watch.
func (s *Server) Selected(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.symbols[symbol].Visible
}

// StreamClients returns the number of connected tick streams.
func (s *Server) StreamClients() int {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	return len(s.wsClients)
}

// DropStreams closes every tick stream while the server keeps running, the
// way a bridge restart does from the client's point of view.
func (s *Server) DropStreams() {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	for conn := range s.wsClients {
		conn.Close()
		delete(s.wsClients, conn)
	}
}

// REST handlers

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	v := s.version
	s.mu.RUnlock()

	writeJSON(w, v)
}

func (s *Server) handleAccountInfo(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	account := s.account
	s.mu.RUnlock()

	writeJSON(w, account)
}

func (s *Server) handleSymbolsTotal(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	total := len(s.symbols)
	s.mu.RUnlock()

	writeJSON(w, struct {
		Total int `json:"total"`
	}{Total: total})
}

func (s *Server) handleSymbolInfo(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	s.mu.RLock()
	spec, ok := s.symbols[symbol]
	tick := s.ticks[symbol]
	s.mu.RUnlock()

	if !ok {
		s.failRequest(w, http.StatusNotFound, types.ResNotFound, "unknown symbol "+symbol)
		return
	}

	// The terminal folds the live quote into the symbol properties.
	spec.Bid, spec.Ask, spec.Last = tick.Bid, tick.Ask, tick.Last
	if !tick.Time.IsZero() {
		spec.Time = tick.Time
	}

	writeJSON(w, spec)
}

func (s *Server) handleSymbolInfoTick(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	s.mu.RLock()
	_, known := s.symbols[symbol]
	tick := s.ticks[symbol]
	s.mu.RUnlock()

	if !known {
		s.failRequest(w, http.StatusNotFound, types.ResNotFound, "unknown symbol "+symbol)
		return
	}

	writeJSON(w, tick)
}

func (s *Server) handleSymbolSelect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symbol string `json:"symbol"`
		Enable bool   `json:"enable"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.failRequest(w, http.StatusBadRequest, types.ResInvalidParams, "invalid symbol_select body")
		return
	}

	s.mu.Lock()
	spec, ok := s.symbols[body.Symbol]
	if ok {
		spec.Select = body.Enable
		spec.Visible = body.Enable
		s.symbols[body.Symbol] = spec
	}
	s.mu.Unlock()

	if !ok {
		s.failRequest(w, http.StatusNotFound, types.ResNotFound, "unknown symbol "+body.Symbol)
		return
	}

	writeJSON(w, struct{}{})
}

func (s *Server) handleCopyRatesFrom(w http.ResponseWriter, r *http.Request) {
	symbol, timeframe, ok := s.rateSeries(w, r)
	if !ok {
		return
	}

	from, ok := s.queryTime(w, r, "from")
	if !ok {
		return
	}

	count, ok := s.queryInt(w, r, "count")
	if !ok {
		return
	}

	s.mu.RLock()
	series := s.rates[rateKey{symbol: symbol, timeframe: timeframe}]
	s.mu.RUnlock()

	matched := make([]types.Rate, 0, count)
	for _, rate := range series {
		if !rate.Time.After(from) {
			matched = append(matched, rate)
		}
	}

	if len(matched) > count {
		matched = matched[len(matched)-count:]
	}

	writeJSON(w, matched)
}

func (s *Server) handleCopyRatesFromPos(w http.ResponseWriter, r *http.Request) {
	symbol, timeframe, ok := s.rateSeries(w, r)
	if !ok {
		return
	}

	start, ok := s.queryInt(w, r, "start")
	if !ok {
		return
	}

	count, ok := s.queryInt(w, r, "count")
	if !ok {
		return
	}

	s.mu.RLock()
	series := s.rates[rateKey{symbol: symbol, timeframe: timeframe}]
	s.mu.RUnlock()

	// Position 0 is the newest bar, counting backwards.
	end := len(series) - start
	if end < 0 {
		end = 0
	}

	begin := end - count
	if begin < 0 {
		begin = 0
	}

	writeJSON(w, series[begin:end])
}

func (s *Server) handleCopyRatesRange(w http.ResponseWriter, r *http.Request) {
	symbol, timeframe, ok := s.rateSeries(w, r)
	if !ok {
		return
	}

	from, ok := s.queryTime(w, r, "from")
	if !ok {
		return
	}

	to, ok := s.queryTime(w, r, "to")
	if !ok {
		return
	}

	s.mu.RLock()
	series := s.rates[rateKey{symbol: symbol, timeframe: timeframe}]
	s.mu.RUnlock()

	matched := make([]types.Rate, 0, len(series))
	for _, rate := range series {
		if !rate.Time.Before(from) && !rate.Time.After(to) {
			matched = append(matched, rate)
		}
	}

	writeJSON(w, matched)
}

// The copy_ticks handlers accept the flag mask but do not filter on it; the
// seeded series is served as is.

func (s *Server) handleCopyTicksFrom(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	from, ok := s.queryTime(w, r, "from")
	if !ok {
		return
	}

	count, ok := s.queryInt(w, r, "count")
	if !ok {
		return
	}

	s.mu.RLock()
	series := s.tickHistory[symbol]
	s.mu.RUnlock()

	matched := make([]types.Tick, 0, count)
	for _, tick := range series {
		if !tick.Time.Before(from) {
			matched = append(matched, tick)
		}

		if len(matched) == count {
			break
		}
	}

	writeJSON(w, matched)
}

func (s *Server) handleCopyTicksRange(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	from, ok := s.queryTime(w, r, "from")
	if !ok {
		return
	}

	to, ok := s.queryTime(w, r, "to")
	if !ok {
		return
	}

	s.mu.RLock()
	series := s.tickHistory[symbol]
	s.mu.RUnlock()

	matched := make([]types.Tick, 0, len(series))
	for _, tick := range series {
		if !tick.Time.Before(from) && !tick.Time.After(to) {
			matched = append(matched, tick)
		}
	}

	writeJSON(w, matched)
}

func (s *Server) handleOrders(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	orders := make([]types.TradeOrder, len(s.orders))
	copy(orders, s.orders)
	s.mu.RUnlock()

	writeJSON(w, orders)
}

func (s *Server) handlePositions(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	positions := make([]types.TradePosition, len(s.positions))
	copy(positions, s.positions)
	s.mu.RUnlock()

	writeJSON(w, positions)
}

func (s *Server) handleHistoryOrders(w http.ResponseWriter, r *http.Request) {
	from, ok := s.queryTime(w, r, "from")
	if !ok {
		return
	}

	to, ok := s.queryTime(w, r, "to")
	if !ok {
		return
	}

	s.mu.RLock()
	matched := make([]types.TradeOrder, 0, len(s.historyOrders))
	for _, order := range s.historyOrders {
		setup := time.Unix(order.TimeSetup, 0).UTC()
		if !setup.Before(from) && !setup.After(to) {
			matched = append(matched, order)
		}
	}
	s.mu.RUnlock()

	writeJSON(w, matched)
}

func (s *Server) handleHistoryDeals(w http.ResponseWriter, r *http.Request) {
	from, ok := s.queryTime(w, r, "from")
	if !ok {
		return
	}

	to, ok := s.queryTime(w, r, "to")
	if !ok {
		return
	}

	s.mu.RLock()
	matched := make([]types.TradeDeal, 0, len(s.historyDeals))
	for _, deal := range s.historyDeals {
		executed := time.Unix(deal.Time, 0).UTC()
		if !executed.Before(from) && !executed.After(to) {
			matched = append(matched, deal)
		}
	}
	s.mu.RUnlock()

	writeJSON(w, matched)
}

func (s *Server) handleOrderSend(w http.ResponseWriter, r *http.Request) {
	var request types.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.failRequest(w, http.StatusBadRequest, types.ResInvalidParams, "invalid trade request body")
		return
	}

	s.mu.Lock()
	result := s.execute(request)
	s.mu.Unlock()

	writeJSON(w, result)
}

func (s *Server) handleOrderCalcMargin(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	volume, ok := s.queryFloat(w, r, "volume")
	if !ok {
		return
	}

	price, ok := s.queryFloat(w, r, "price")
	if !ok {
		return
	}

	s.mu.RLock()
	spec, known := s.symbols[symbol]
	leverage := s.account.Leverage
	s.mu.RUnlock()

	if !known {
		s.failRequest(w, http.StatusNotFound, types.ResNotFound, "unknown symbol "+symbol)
		return
	}

	writeJSON(w, struct {
		Margin float64 `json:"margin"`
	}{Margin: volume * contractSize(spec) * price / float64(leverage)})
}

func (s *Server) handleOrderCalcProfit(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	orderType, ok := s.queryInt(w, r, "type")
	if !ok {
		return
	}

	volume, ok := s.queryFloat(w, r, "volume")
	if !ok {
		return
	}

	priceOpen, ok := s.queryFloat(w, r, "price_open")
	if !ok {
		return
	}

	priceClose, ok := s.queryFloat(w, r, "price_close")
	if !ok {
		return
	}

	s.mu.RLock()
	spec, known := s.symbols[symbol]
	s.mu.RUnlock()

	if !known {
		s.failRequest(w, http.StatusNotFound, types.ResNotFound, "unknown symbol "+symbol)
		return
	}

	profit := (priceClose - priceOpen) * volume * contractSize(spec)
	if types.OrderType(orderType) == types.OrderTypeSell {
		profit = -profit
	}

	writeJSON(w, struct {
		Profit float64 `json:"profit"`
	}{Profit: profit})
}

func (s *Server) handleLastError(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	code, desc := s.lastErrCode, s.lastErrDesc
	s.mu.RUnlock()

	writeJSON(w, struct {
		Code        int    `json:"code"`
		Description string `json:"description"`
	}{Code: code, Description: desc})
}

// handleStreamTicks upgrades the connection and registers it for PushTick
// broadcasts. The handler blocks until the peer closes or DropStreams cuts
// the connection.
func (s *Server) handleStreamTicks(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		http.Error(w, "missing symbols parameter", http.StatusBadRequest)
		return
	}

	subscribed := make(map[string]bool)
	for _, symbol := range strings.Split(raw, ",") {
		subscribed[symbol] = true
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.wsMu.Lock()
	s.wsClients[conn] = subscribed
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsClients, conn)
		s.wsMu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Order engine

// execute runs one trade request against the books. Callers hold s.mu.
func (s *Server) execute(request types.TradeRequest) types.TradeResult {
	if s.rejectNext != nil {
		result := *s.rejectNext
		s.rejectNext = nil

		return result
	}

	switch request.Action {
	case types.TradeActionDeal:
		tick, ok := s.ticks[request.Symbol]
		if !ok {
			return types.TradeResult{Retcode: types.RetcodePriceOff, Comment: "No quotes"}
		}

		if request.Position != 0 {
			return s.closePosition(request, tick)
		}

		return s.openPosition(request, tick)
	case types.TradeActionPending:
		return s.placePending(request)
	case types.TradeActionSLTP:
		return s.modifyStops(request)
	case types.TradeActionModify:
		return s.modifyPending(request)
	case types.TradeActionRemove:
		return s.removePending(request)
	default:
		return types.TradeResult{Retcode: types.RetcodeInvalid, Comment: "Unsupported trade action"}
	}
}

func (s *Server) openPosition(request types.TradeRequest, tick types.Tick) types.TradeResult {
	price := request.Price
	if price == 0 {
		price = tick.Ask
		if request.Type == types.OrderTypeSell {
			price = tick.Bid
		}
	}

	ts := tick.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	s.ticketSeq++
	orderTicket := s.ticketSeq
	s.ticketSeq++
	positionTicket := s.ticketSeq
	s.dealSeq++
	dealTicket := s.dealSeq

	s.positions = append(s.positions, types.TradePosition{
		Ticket:       positionTicket,
		Time:         ts.Unix(),
		TimeMsc:      ts.UnixMilli(),
		Type:         types.PositionType(request.Type),
		Magic:        request.Magic,
		Identifier:   positionTicket,
		Reason:       types.DealReasonExpert,
		Volume:       request.Volume,
		PriceOpen:    price,
		SL:           request.SL,
		TP:           request.TP,
		PriceCurrent: price,
		Symbol:       request.Symbol,
		Comment:      request.Comment,
	})

	s.historyOrders = append(s.historyOrders, types.TradeOrder{
		Ticket:        orderTicket,
		TimeSetup:     ts.Unix(),
		TimeSetupMsc:  ts.UnixMilli(),
		TimeDone:      ts.Unix(),
		TimeDoneMsc:   ts.UnixMilli(),
		Type:          request.Type,
		TypeTime:      request.TypeTime,
		TypeFilling:   request.TypeFilling,
		State:         types.OrderStateFilled,
		Magic:         request.Magic,
		PositionID:    positionTicket,
		Reason:        types.DealReasonExpert,
		VolumeInitial: request.Volume,
		PriceOpen:     price,
		SL:            request.SL,
		TP:            request.TP,
		PriceCurrent:  price,
		Symbol:        request.Symbol,
		Comment:       request.Comment,
	})

	s.historyDeals = append(s.historyDeals, types.TradeDeal{
		Ticket:     dealTicket,
		Order:      orderTicket,
		Time:       ts.Unix(),
		TimeMsc:    ts.UnixMilli(),
		Type:       types.DealType(request.Type),
		Entry:      types.DealEntryIn,
		Magic:      request.Magic,
		PositionID: positionTicket,
		Reason:     types.DealReasonExpert,
		Volume:     request.Volume,
		Price:      price,
		Symbol:     request.Symbol,
		Comment:    request.Comment,
	})

	return types.TradeResult{
		Retcode: types.RetcodeDone,
		Deal:    dealTicket,
		Order:   orderTicket,
		Volume:  request.Volume,
		Price:   price,
		Bid:     tick.Bid,
		Ask:     tick.Ask,
	}
}

func (s *Server) closePosition(request types.TradeRequest, tick types.Tick) types.TradeResult {
	idx := -1
	for i, position := range s.positions {
		if position.Ticket == request.Position {
			idx = i
			break
		}
	}

	if idx < 0 {
		return types.TradeResult{Retcode: types.RetcodeInvalid, Comment: "Position not found"}
	}

	position := s.positions[idx]

	price := request.Price
	if price == 0 {
		price = tick.Bid
		if position.Type == types.PositionTypeSell {
			price = tick.Ask
		}
	}

	spec := s.symbols[position.Symbol]

	profit := (price - position.PriceOpen) * position.Volume * contractSize(spec)
	if position.Type == types.PositionTypeSell {
		profit = -profit
	}

	ts := tick.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	s.positions = append(s.positions[:idx], s.positions[idx+1:]...)

	s.account.Balance += profit
	s.account.Equity = s.account.Balance
	s.account.MarginFree = s.account.Balance

	s.dealSeq++
	dealTicket := s.dealSeq

	s.historyDeals = append(s.historyDeals, types.TradeDeal{
		Ticket:     dealTicket,
		Time:       ts.Unix(),
		TimeMsc:    ts.UnixMilli(),
		Type:       types.DealType(request.Type),
		Entry:      types.DealEntryOut,
		Magic:      request.Magic,
		PositionID: position.Ticket,
		Reason:     types.DealReasonExpert,
		Volume:     position.Volume,
		Price:      price,
		Profit:     profit,
		Symbol:     position.Symbol,
		Comment:    request.Comment,
	})

	return types.TradeResult{
		Retcode: types.RetcodeDone,
		Deal:    dealTicket,
		Volume:  position.Volume,
		Price:   price,
		Bid:     tick.Bid,
		Ask:     tick.Ask,
	}
}

func (s *Server) placePending(request types.TradeRequest) types.TradeResult {
	if !request.Type.IsPending() {
		return types.TradeResult{Retcode: types.RetcodeInvalidOrder, Comment: "Pending placement requires a pending order type"}
	}

	now := time.Now().UTC()

	s.ticketSeq++
	ticket := s.ticketSeq

	order := types.TradeOrder{
		Ticket:         ticket,
		TimeSetup:      now.Unix(),
		TimeSetupMsc:   now.UnixMilli(),
		Type:           request.Type,
		TypeTime:       request.TypeTime,
		TypeFilling:    request.TypeFilling,
		State:          types.OrderStatePlaced,
		Magic:          request.Magic,
		Reason:         types.DealReasonExpert,
		VolumeInitial:  request.Volume,
		VolumeCurrent:  request.Volume,
		PriceOpen:      request.Price,
		SL:             request.SL,
		TP:             request.TP,
		PriceStopLimit: request.StopLimit,
		Symbol:         request.Symbol,
		Comment:        request.Comment,
	}

	if !request.Expiration.IsZero() {
		order.TimeExpiration = request.Expiration.Unix()
	}

	s.orders = append(s.orders, order)

	return types.TradeResult{Retcode: types.RetcodeDone, Order: ticket, Volume: request.Volume, Price: request.Price}
}

func (s *Server) modifyStops(request types.TradeRequest) types.TradeResult {
	for i := range s.positions {
		if s.positions[i].Ticket == request.Position {
			s.positions[i].SL = request.SL
			s.positions[i].TP = request.TP

			return types.TradeResult{Retcode: types.RetcodeDone}
		}
	}

	return types.TradeResult{Retcode: types.RetcodeInvalid, Comment: "Position not found"}
}

func (s *Server) modifyPending(request types.TradeRequest) types.TradeResult {
	for i := range s.orders {
		if s.orders[i].Ticket == request.Order {
			s.orders[i].PriceOpen = request.Price
			s.orders[i].SL = request.SL
			s.orders[i].TP = request.TP
			s.orders[i].PriceStopLimit = request.StopLimit

			if !request.Expiration.IsZero() {
				s.orders[i].TimeExpiration = request.Expiration.Unix()
			}

			return types.TradeResult{Retcode: types.RetcodeDone, Order: request.Order}
		}
	}

	return types.TradeResult{Retcode: types.RetcodeInvalid, Comment: "Order not found"}
}

func (s *Server) removePending(request types.TradeRequest) types.TradeResult {
	for i, order := range s.orders {
		if order.Ticket != request.Order {
			continue
		}

		now := time.Now().UTC()

		s.orders = append(s.orders[:i], s.orders[i+1:]...)

		order.State = types.OrderStateCanceled
		order.TimeDone = now.Unix()
		order.TimeDoneMsc = now.UnixMilli()
		s.historyOrders = append(s.historyOrders, order)

		return types.TradeResult{Retcode: types.RetcodeDone, Order: order.Ticket}
	}

	return types.TradeResult{Retcode: types.RetcodeInvalid, Comment: "Order not found"}
}

// Helpers

// contractSize returns the symbol's contract size, defaulting to 1 so an
// unseeded spec still produces finite numbers.
func contractSize(spec types.SymbolInfo) float64 {
	if spec.TradeContractSize <= 0 {
		return 1
	}

	return spec.TradeContractSize
}

// rateSeries pulls the symbol and timeframe parameters shared by the
// copy_rates handlers.
func (s *Server) rateSeries(w http.ResponseWriter, r *http.Request) (string, types.Timeframe, bool) {
	symbol := r.URL.Query().Get("symbol")

	timeframe, err := types.ParseTimeframe(r.URL.Query().Get("timeframe"))
	if err != nil {
		s.failRequest(w, http.StatusBadRequest, types.ResInvalidParams, err.Error())
		return "", 0, false
	}

	return symbol, timeframe, true
}

func (s *Server) queryTime(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, r.URL.Query().Get(name))
	if err != nil {
		s.failRequest(w, http.StatusBadRequest, types.ResInvalidParams, "invalid "+name+" parameter")
		return time.Time{}, false
	}

	return t, true
}

func (s *Server) queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		s.failRequest(w, http.StatusBadRequest, types.ResInvalidParams, "invalid "+name+" parameter")
		return 0, false
	}

	return n, true
}

func (s *Server) queryFloat(w http.ResponseWriter, r *http.Request, name string) (float64, bool) {
	v, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
	if err != nil {
		s.failRequest(w, http.StatusBadRequest, types.ResInvalidParams, "invalid "+name+" parameter")
		return 0, false
	}

	return v, true
}

// failRequest writes the error envelope and records it as the terminal's
// last error, the way the real bridge does.
func (s *Server) failRequest(w http.ResponseWriter, status, code int, message string) {
	s.mu.Lock()
	s.lastErrCode, s.lastErrDesc = code, message
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorEnvelope{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
