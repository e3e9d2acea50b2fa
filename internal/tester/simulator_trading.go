package tester

import (
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/internal/utils"
)

// marketContext bundles what a trade handler needs about the request
// symbol: its spec, the current replay tick and the tick's timestamps,
// which stamp every trade object the handler creates.
type marketContext struct {
	spec types.SymbolInfo
	tick types.Tick
	ts   int64
	msc  int64
}

// reject builds a failed trade result. The terminal's description of the
// retcode fills the comment unless the caller supplies one.
func reject(retcode types.Retcode, comment string) types.TradeResult {
	if comment == "" {
		comment = retcode.String()
	}

	return types.TradeResult{Retcode: retcode, Comment: comment}
}

// tickMsc returns the millisecond stamp of a tick, deriving it from the
// tick time when the source carried none.
func tickMsc(tick types.Tick) int64 {
	if tick.TimeMsc > 0 {
		return tick.TimeMsc
	}

	return tick.Time.UnixMilli()
}

// OrderSend executes a trade request against the current replay tick. The
// result carries the terminal retcode even when err is nil, so callers must
// check result.Ok(); err is reserved for calls that never reached the trade
// logic.
func (s *Simulator) OrderSend(request types.TradeRequest) (types.TradeResult, error) {
	if err := s.ready(); err != nil {
		return types.TradeResult{}, s.fail(err)
	}

	if err := request.Validate(); err != nil {
		s.fail(err)
		s.log.Debug("malformed trade request", zap.Error(err))

		return reject(types.RetcodeInvalid, ""), nil
	}

	var result types.TradeResult

	switch request.Action {
	case types.TradeActionDeal:
		result = s.executeDeal(request)
	case types.TradeActionPending:
		result = s.placePending(request)
	case types.TradeActionSLTP:
		result = s.modifyStops(request)
	case types.TradeActionModify:
		result = s.modifyPending(request)
	case types.TradeActionRemove:
		result = s.removePending(request)
	default:
		result = reject(types.RetcodeInvalid, "Unsupported trade action")
	}

	if result.Ok() {
		s.ok()
	} else {
		s.lastErrCode = types.ResFail
		s.lastErrDesc = result.Comment
		s.log.Debug("trade request rejected",
			zap.String("action", request.Action.String()),
			zap.String("symbol", request.Symbol),
			zap.Int("retcode", int(result.Retcode)),
			zap.String("comment", result.Comment),
		)
	}

	return result, nil
}

// market resolves the trading context for a symbol. A non-nil result means
// the request cannot proceed: the symbol is unknown or has not ticked yet.
func (s *Simulator) market(symbol string) (marketContext, *types.TradeResult) {
	state, ok := s.symbols[symbol]
	if !ok {
		rej := reject(types.RetcodeInvalid, "Unknown symbol "+symbol)

		return marketContext{}, &rej
	}

	tick, ok := s.ticks[symbol]
	if !ok {
		rej := reject(types.RetcodePriceOff, "")

		return marketContext{}, &rej
	}

	return marketContext{
		spec: state.spec,
		tick: tick,
		ts:   tick.Time.Unix(),
		msc:  tickMsc(tick),
	}, nil
}

// executeDeal opens a position at market, or closes one when the request
// references a position ticket.
func (s *Simulator) executeDeal(request types.TradeRequest) types.TradeResult {
	mc, rej := s.market(request.Symbol)
	if rej != nil {
		return *rej
	}

	if request.Type != types.OrderTypeBuy && request.Type != types.OrderTypeSell {
		return reject(types.RetcodeInvalidOrder, "Deal requires a market order type")
	}

	if request.Position != 0 {
		return s.closePosition(request, mc)
	}

	orderTicket := s.tickets.next()

	result, positionTicket := s.openPosition(request, mc, orderTicket)
	if !result.Ok() {
		return result
	}

	s.ordersHistory = append(s.ordersHistory, types.TradeOrder{
		Ticket:        orderTicket,
		TimeSetup:     mc.ts,
		TimeSetupMsc:  mc.msc,
		TimeDone:      mc.ts,
		TimeDoneMsc:   mc.msc,
		Type:          request.Type,
		TypeTime:      request.TypeTime,
		TypeFilling:   request.TypeFilling,
		State:         types.OrderStateFilled,
		Magic:         request.Magic,
		PositionID:    positionTicket,
		Reason:        types.DealReasonExpert,
		VolumeInitial: request.Volume,
		PriceOpen:     request.Price,
		SL:            request.SL,
		TP:            request.TP,
		PriceCurrent:  request.Price,
		Symbol:        request.Symbol,
		Comment:       request.Comment,
	})

	return result
}

// openPosition runs the market-open mechanics shared by direct deals and
// triggered pending orders: stop, lot, exposure and margin validation, then
// the position and its entry deal. orderTicket attributes the deal to the
// order that caused the fill and is excluded from the exposure sum so a
// triggering pending order does not count itself twice.
func (s *Simulator) openPosition(request types.TradeRequest, mc marketContext, orderTicket int64) (types.TradeResult, int64) {
	v := tradeValidator{spec: mc.spec}

	if !v.validSL(request.Price, request.SL, request.Type) || !v.validTP(request.Price, request.TP, request.Type) {
		return reject(types.RetcodeInvalidStops, ""), 0
	}

	if !v.validLot(request.Volume) {
		return reject(types.RetcodeInvalidVolume, ""), 0
	}

	if s.volumeLimitReached(request.Symbol, request.Volume, orderTicket) {
		return reject(types.RetcodeLimitVolume, ""), 0
	}

	margin := s.calc.margin(mc.spec, s.account.Leverage, request.Volume, request.Price)
	if margin > s.account.MarginFree {
		return reject(types.RetcodeNoMoney, ""), 0
	}

	positionTicket := s.tickets.next()

	s.positions = append(s.positions, types.TradePosition{
		Ticket:        positionTicket,
		Time:          mc.ts,
		TimeMsc:       mc.msc,
		TimeUpdate:    mc.ts,
		TimeUpdateMsc: mc.msc,
		Type:          types.PositionType(request.Type),
		Magic:         request.Magic,
		Identifier:    positionTicket,
		Reason:        types.DealReasonExpert,
		Volume:        request.Volume,
		PriceOpen:     request.Price,
		SL:            request.SL,
		TP:            request.TP,
		PriceCurrent:  request.Price,
		Symbol:        request.Symbol,
		Comment:       request.Comment,
	})

	deal := types.TradeDeal{
		Ticket:     s.tickets.nextDeal(),
		Order:      orderTicket,
		Time:       mc.ts,
		TimeMsc:    mc.msc,
		Type:       types.DealType(request.Type),
		Entry:      types.DealEntryIn,
		Magic:      request.Magic,
		PositionID: positionTicket,
		Reason:     types.DealReasonExpert,
		Volume:     request.Volume,
		Price:      request.Price,
		Commission: s.commission.Calculate(request.Volume),
		Symbol:     request.Symbol,
		Comment:    request.Comment,
	}

	s.bookDeal(&deal)

	s.log.Debug("position opened",
		zap.Int64("position", positionTicket),
		zap.String("symbol", request.Symbol),
		zap.String("type", request.Type.String()),
		zap.Float64("volume", request.Volume),
		zap.Float64("price", request.Price),
	)

	return types.TradeResult{
		Retcode: types.RetcodeDone,
		Deal:    deal.Ticket,
		Order:   orderTicket,
		Volume:  request.Volume,
		Price:   request.Price,
		Bid:     mc.tick.Bid,
		Ask:     mc.tick.Ask,
	}, positionTicket
}

// closePosition fully closes the referenced position. The close must arrive
// with the opposite order type, priced at the current market for that side;
// the realized profit is settled into the balance along with the deal
// commission.
func (s *Simulator) closePosition(request types.TradeRequest, mc marketContext) types.TradeResult {
	idx := s.findPosition(request.Position)
	if idx < 0 {
		return reject(types.RetcodeInvalid, "Position not found")
	}

	position := s.positions[idx]

	if int(position.Type) == int(request.Type) {
		return reject(types.RetcodeInvalid, "Close order type must be the opposite of the position type")
	}

	eps := mc.spec.PriceEpsilon()

	// A sell position closes with a buy at the ask, a buy position with a
	// sell at the bid.
	market := mc.tick.Bid
	if request.Type == types.OrderTypeBuy {
		market = mc.tick.Ask
	}

	if !priceEqual(request.Price, market, eps) {
		return reject(types.RetcodeInvalidPrice, "")
	}

	profit, err := s.calc.profit(mc.spec, mc.tick, types.OrderType(position.Type),
		position.Volume, position.PriceOpen, request.Price)
	if err != nil {
		return reject(types.RetcodeError, "")
	}

	s.positions = append(s.positions[:idx], s.positions[idx+1:]...)

	deal := types.TradeDeal{
		Ticket:     s.tickets.nextDeal(),
		Time:       mc.ts,
		TimeMsc:    mc.msc,
		Type:       types.DealType(request.Type),
		Entry:      types.DealEntryOut,
		Magic:      request.Magic,
		PositionID: position.Ticket,
		Reason:     closeReason(position, request.Price, eps),
		Volume:     position.Volume,
		Price:      request.Price,
		Commission: s.commission.Calculate(position.Volume),
		Profit:     profit,
		Symbol:     position.Symbol,
		Comment:    request.Comment,
	}

	s.bookDeal(&deal)

	s.log.Debug("position closed",
		zap.Int64("position", position.Ticket),
		zap.String("symbol", position.Symbol),
		zap.Float64("price", request.Price),
		zap.Float64("profit", profit),
	)

	return types.TradeResult{
		Retcode: types.RetcodeDone,
		Deal:    deal.Ticket,
		Volume:  position.Volume,
		Price:   request.Price,
		Bid:     mc.tick.Bid,
		Ask:     mc.tick.Ask,
	}
}

// closeReason attributes a close to the stop it crossed. A buy position
// exiting at or below its stop loss (or at or above its take profit) is
// credited to that stop, mirrored for sells; anything else counts as an
// expert decision.
func closeReason(position types.TradePosition, price, eps float64) types.DealReason {
	buy := position.Type == types.PositionTypeBuy

	if position.SL > 0 {
		if buy && price <= position.SL+eps || !buy && price >= position.SL-eps {
			return types.DealReasonSL
		}
	}

	if position.TP > 0 {
		if buy && price >= position.TP-eps || !buy && price <= position.TP+eps {
			return types.DealReasonTP
		}
	}

	return types.DealReasonExpert
}

// placePending validates a pending order and books it into the live
// container.
func (s *Simulator) placePending(request types.TradeRequest) types.TradeResult {
	mc, rej := s.market(request.Symbol)
	if rej != nil {
		return *rej
	}

	if !request.Type.IsPending() {
		return reject(types.RetcodeInvalidOrder, "Pending placement requires a pending order type")
	}

	if s.account.LimitOrders > 0 && len(s.orders) >= s.account.LimitOrders {
		return reject(types.RetcodeLimitOrders, "")
	}

	v := tradeValidator{spec: mc.spec}

	if !v.validSL(request.Price, request.SL, request.Type) || !v.validTP(request.Price, request.TP, request.Type) {
		return reject(types.RetcodeInvalidStops, "")
	}

	if !v.validLot(request.Volume) {
		return reject(types.RetcodeInvalidVolume, "")
	}

	if s.volumeLimitReached(request.Symbol, request.Volume, 0) {
		return reject(types.RetcodeLimitVolume, "")
	}

	expiration, ok := pendingExpiration(request)
	if !ok {
		return reject(types.RetcodeInvalidExpiration, "")
	}

	order := types.TradeOrder{
		Ticket:         s.tickets.next(),
		TimeSetup:      mc.ts,
		TimeSetupMsc:   mc.msc,
		TimeExpiration: expiration,
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
		PriceCurrent:   request.Price,
		PriceStopLimit: request.StopLimit,
		Symbol:         request.Symbol,
		Comment:        request.Comment,
	}

	s.orders = append(s.orders, order)

	s.log.Debug("pending order placed",
		zap.Int64("ticket", order.Ticket),
		zap.String("symbol", order.Symbol),
		zap.String("type", order.Type.String()),
		zap.Float64("price", order.PriceOpen),
	)

	return types.TradeResult{
		Retcode: types.RetcodeDone,
		Order:   order.Ticket,
		Volume:  request.Volume,
		Price:   request.Price,
		Bid:     mc.tick.Bid,
		Ask:     mc.tick.Ask,
	}
}

// pendingExpiration resolves the expiration stamp of a pending order from
// its lifetime policy. Specified-day orders live until the end of the
// expiration day; good-till-cancelled orders never expire.
func pendingExpiration(request types.TradeRequest) (int64, bool) {
	switch request.TypeTime {
	case types.OrderTimeSpecified:
		if request.Expiration.IsZero() {
			return 0, false
		}

		return request.Expiration.Unix(), true
	case types.OrderTimeSpecifiedDay:
		if request.Expiration.IsZero() {
			return 0, false
		}

		day := request.Expiration.UTC()

		return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, time.UTC).Unix(), true
	default:
		return 0, true
	}
}

// modifyStops changes an open position's protective levels. Levels are
// validated against the position's entry side and must keep the stops and
// freeze distance from the current market price. Zero levels clear the
// stops.
func (s *Simulator) modifyStops(request types.TradeRequest) types.TradeResult {
	idx := s.findPosition(request.Position)
	if idx < 0 {
		return reject(types.RetcodeInvalid, "Position not found")
	}

	position := &s.positions[idx]

	mc, rej := s.market(position.Symbol)
	if rej != nil {
		return *rej
	}

	v := tradeValidator{spec: mc.spec}
	positionType := types.OrderType(position.Type)

	if !v.validSL(position.PriceOpen, request.SL, positionType) || !v.validTP(position.PriceOpen, request.TP, positionType) {
		return reject(types.RetcodeInvalidStops, "")
	}

	market := mc.tick.Bid
	if position.Type == types.PositionTypeSell {
		market = mc.tick.Ask
	}

	if v.insideStopsLevel(market, request.SL) || v.insideStopsLevel(market, request.TP) {
		return reject(types.RetcodeInvalidStops, "")
	}

	if v.insideFreezeLevel(market, request.SL) || v.insideFreezeLevel(market, request.TP) {
		return reject(types.RetcodeFrozen, "")
	}

	position.SL = request.SL
	position.TP = request.TP
	position.TimeUpdate = mc.ts
	position.TimeUpdateMsc = mc.msc

	return types.TradeResult{Retcode: types.RetcodeDone, Bid: mc.tick.Bid, Ask: mc.tick.Ask}
}

// modifyPending updates a pending order's price and levels in place.
// Expiration and the stop limit price keep their old values when the
// request leaves them unset.
func (s *Simulator) modifyPending(request types.TradeRequest) types.TradeResult {
	idx := s.findOrder(request.Order)
	if idx < 0 {
		return reject(types.RetcodeInvalid, "Order not found")
	}

	order := &s.orders[idx]

	mc, rej := s.market(order.Symbol)
	if rej != nil {
		return *rej
	}

	if request.Price <= 0 {
		return reject(types.RetcodeInvalidPrice, "")
	}

	v := tradeValidator{spec: mc.spec}

	if !v.validSL(request.Price, request.SL, order.Type) || !v.validTP(request.Price, request.TP, order.Type) {
		return reject(types.RetcodeInvalidStops, "")
	}

	if v.insideFreezeLevel(request.Price, request.SL) || v.insideFreezeLevel(request.Price, request.TP) {
		return reject(types.RetcodeFrozen, "")
	}

	order.PriceOpen = request.Price
	order.PriceCurrent = request.Price
	order.SL = request.SL
	order.TP = request.TP

	if !request.Expiration.IsZero() {
		order.TimeExpiration = request.Expiration.Unix()
	}

	if request.StopLimit > 0 {
		order.PriceStopLimit = request.StopLimit
	}

	return types.TradeResult{Retcode: types.RetcodeDone, Order: order.Ticket, Bid: mc.tick.Bid, Ask: mc.tick.Ask}
}

// removePending cancels a pending order and moves it to history.
func (s *Simulator) removePending(request types.TradeRequest) types.TradeResult {
	idx := s.findOrder(request.Order)
	if idx < 0 {
		return reject(types.RetcodeInvalid, "Order not found")
	}

	order := s.orders[idx]
	s.orders = append(s.orders[:idx], s.orders[idx+1:]...)

	done := time.Now().UTC()
	if tick, ok := s.ticks[order.Symbol]; ok {
		done = tick.Time
	}

	order.State = types.OrderStateCanceled
	order.TimeDone = done.Unix()
	order.TimeDoneMsc = done.UnixMilli()
	s.ordersHistory = append(s.ordersHistory, order)

	s.log.Debug("pending order removed", zap.Int64("ticket", order.Ticket))

	return types.TradeResult{Retcode: types.RetcodeDone, Order: order.Ticket}
}

// bookDeal applies a deal's cash effects to the account and records it in
// history. The balance after the deal is stamped onto the record, so the
// deal log doubles as the balance curve.
func (s *Simulator) bookDeal(deal *types.TradeDeal) {
	s.account.Balance = utils.RoundMoney(s.account.Balance + deal.Profit + deal.Commission + deal.Swap + deal.Fee)
	deal.Balance = s.account.Balance
	s.dealsHistory = append(s.dealsHistory, *deal)
}

// volumeLimitReached reports whether adding volume would push the symbol's
// total exposure (open positions plus resting orders) past its volume
// limit. excludeOrder is left out of the sum; a zero limit means unlimited.
func (s *Simulator) volumeLimitReached(symbol string, volume float64, excludeOrder int64) bool {
	state, ok := s.symbols[symbol]
	if !ok || state.spec.VolumeLimit <= 0 {
		return false
	}

	total := volume

	for _, position := range s.positions {
		if position.Symbol == symbol {
			total += position.Volume
		}
	}

	for _, order := range s.orders {
		if order.Symbol == symbol && order.Ticket != excludeOrder {
			total += order.VolumeCurrent
		}
	}

	return total > state.spec.VolumeLimit
}

// findPosition returns the index of the position with the given ticket, or
// -1 when none is open.
func (s *Simulator) findPosition(ticket int64) int {
	for i, position := range s.positions {
		if position.Ticket == ticket {
			return i
		}
	}

	return -1
}

// findOrder returns the index of the live order with the given ticket, or
// -1 when none rests.
func (s *Simulator) findOrder(ticket int64) int {
	for i, order := range s.orders {
		if order.Ticket == ticket {
			return i
		}
	}

	return -1
}
