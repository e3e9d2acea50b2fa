package tester

import (
	"go.uber.org/zap"

	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/internal/utils"
)

// The monitoring passes run once per replay round, before the strategy sees
// the new ticks: refresh the account snapshot, mark positions to market and
// close the ones whose stops were crossed, then trigger or expire pending
// orders.

// accountMonitoring recomputes the floating account fields from the open
// positions.
func (s *Simulator) accountMonitoring() {
	var profit, margin float64

	for _, position := range s.positions {
		profit += position.Profit

		if state, ok := s.symbols[position.Symbol]; ok {
			margin += s.calc.margin(state.spec, s.account.Leverage, position.Volume, position.PriceOpen)
		}
	}

	equity := s.account.Balance + profit

	s.account.Profit = utils.RoundMoney(profit)
	s.account.Equity = utils.RoundMoney(equity)
	s.account.Margin = utils.RoundMoney(margin)
	s.account.MarginFree = utils.RoundMoney(equity - margin)

	if margin > 0 {
		s.account.MarginLevel = utils.RoundMoney(equity / margin * 100)
	} else {
		s.account.MarginLevel = 0
	}

	s.recordEquity()
}

// recordEquity samples the account curve at the latest replayed tick time.
// Consecutive samples in the same second collapse into one, and nothing is
// recorded while the curve is flat.
func (s *Simulator) recordEquity() {
	var at int64

	for _, tick := range s.ticks {
		if ts := tick.Time.Unix(); ts > at {
			at = ts
		}
	}

	if at == 0 {
		return
	}

	point := types.EquityPoint{
		Time:    at,
		Balance: s.account.Balance,
		Equity:  s.account.Equity,
		Margin:  s.account.Margin,
	}

	if len(s.equity) > 0 {
		last := &s.equity[len(s.equity)-1]

		if last.Time == at {
			*last = point

			return
		}

		if last.Balance == point.Balance && last.Equity == point.Equity && last.Margin == point.Margin {
			return
		}
	}

	s.equity = append(s.equity, point)
}

// positionsMonitoring marks every open position to the current tick and
// closes those whose take profit or stop loss was reached. A buy position
// is valued and closed at the bid, a sell at the ask; take profit wins when
// a single tick crosses both levels.
func (s *Simulator) positionsMonitoring() {
	var closes []types.TradeRequest

	for i := range s.positions {
		position := &s.positions[i]

		state, ok := s.symbols[position.Symbol]
		if !ok {
			continue
		}

		tick, ok := s.ticks[position.Symbol]
		if !ok {
			continue
		}

		var price float64
		var closeType types.OrderType

		switch position.Type {
		case types.PositionTypeBuy:
			price = tick.Bid
			closeType = types.OrderTypeSell
		case types.PositionTypeSell:
			price = tick.Ask
			closeType = types.OrderTypeBuy
		default:
			s.log.Warn("unknown position type",
				zap.Int64("ticket", position.Ticket),
				zap.Int("type", int(position.Type)),
			)

			continue
		}

		profit, err := s.calc.profit(state.spec, tick, types.OrderType(position.Type),
			position.Volume, position.PriceOpen, price)
		if err == nil {
			position.Profit = profit
		}

		position.PriceCurrent = price
		position.TimeUpdate = tick.Time.Unix()
		position.TimeUpdateMsc = tickMsc(tick)

		buy := position.Type == types.PositionTypeBuy

		var comment string

		switch {
		case position.TP > 0 && (buy && price >= position.TP || !buy && price <= position.TP):
			comment = "TP hit"
		case position.SL > 0 && (buy && price <= position.SL || !buy && price >= position.SL):
			comment = "SL hit"
		default:
			continue
		}

		closes = append(closes, types.TradeRequest{
			Action:   types.TradeActionDeal,
			Magic:    position.Magic,
			Symbol:   position.Symbol,
			Volume:   position.Volume,
			Price:    price,
			Type:     closeType,
			Comment:  comment,
			Position: position.Ticket,
		})
	}

	for _, request := range closes {
		result, err := s.OrderSend(request)
		if err != nil || !result.Ok() {
			s.log.Warn("stop close failed",
				zap.Int64("position", request.Position),
				zap.String("comment", result.Comment),
				zap.Error(err),
			)
		}
	}
}

// pendingMonitoring expires and triggers resting orders against the current
// ticks. Limit orders fill at their own price, stop orders at the market
// price that breached them, and stop-limit orders convert into limit orders
// at their stop limit price. An order whose trigger fill is rejected stays
// resting and is retried on the next round.
func (s *Simulator) pendingMonitoring() {
	idx := 0

	for idx < len(s.orders) {
		order := s.orders[idx]

		tick, ok := s.ticks[order.Symbol]
		if !ok {
			idx++

			continue
		}

		if order.TimeExpiration > 0 && tick.Time.Unix() >= order.TimeExpiration {
			s.expirePending(idx, tick)

			continue
		}

		filled := false

		switch order.Type {
		case types.OrderTypeBuyLimit:
			if tick.Ask <= order.PriceOpen {
				filled = s.fillPending(idx, types.OrderTypeBuy, order.PriceOpen)
			}
		case types.OrderTypeBuyStop:
			if tick.Ask >= order.PriceOpen {
				filled = s.fillPending(idx, types.OrderTypeBuy, tick.Ask)
			}
		case types.OrderTypeBuyStopLimit:
			if tick.Ask >= order.PriceOpen {
				s.convertStopLimit(idx, types.OrderTypeBuyLimit)
			}
		case types.OrderTypeSellLimit:
			if tick.Bid >= order.PriceOpen {
				filled = s.fillPending(idx, types.OrderTypeSell, order.PriceOpen)
			}
		case types.OrderTypeSellStop:
			if tick.Bid <= order.PriceOpen {
				filled = s.fillPending(idx, types.OrderTypeSell, tick.Bid)
			}
		case types.OrderTypeSellStopLimit:
			if tick.Bid <= order.PriceOpen {
				s.convertStopLimit(idx, types.OrderTypeSellLimit)
			}
		}

		if !filled {
			idx++
		}
	}
}

// expirePending removes a resting order and records it in history as
// expired, stamped with the tick that outlived it.
func (s *Simulator) expirePending(idx int, tick types.Tick) {
	order := s.orders[idx]
	s.orders = append(s.orders[:idx], s.orders[idx+1:]...)

	order.State = types.OrderStateExpired
	order.TimeDone = tick.Time.Unix()
	order.TimeDoneMsc = tickMsc(tick)
	s.ordersHistory = append(s.ordersHistory, order)

	s.log.Debug("pending order expired",
		zap.Int64("ticket", order.Ticket),
		zap.String("symbol", order.Symbol),
	)
}

// convertStopLimit turns a triggered stop-limit order into a limit order
// resting at its stop limit price. The converted order is picked up on a
// later round, never on the one that converted it.
func (s *Simulator) convertStopLimit(idx int, limitType types.OrderType) {
	order := &s.orders[idx]

	order.Type = limitType
	order.PriceOpen = order.PriceStopLimit
	order.PriceCurrent = order.PriceStopLimit

	s.log.Debug("stop limit order converted",
		zap.Int64("ticket", order.Ticket),
		zap.String("type", limitType.String()),
		zap.Float64("price", order.PriceOpen),
	)
}

// fillPending opens a position from a triggered pending order. On success
// the order leaves the live container and lands in history as filled,
// linked to the new position; on rejection it stays resting and the round
// moves on.
func (s *Simulator) fillPending(idx int, dealType types.OrderType, price float64) bool {
	order := s.orders[idx]

	mc, rej := s.market(order.Symbol)
	if rej != nil {
		return false
	}

	request := types.TradeRequest{
		Action:  types.TradeActionDeal,
		Magic:   order.Magic,
		Symbol:  order.Symbol,
		Volume:  order.VolumeCurrent,
		Price:   price,
		SL:      order.SL,
		TP:      order.TP,
		Type:    dealType,
		Comment: order.Comment,
	}

	result, positionTicket := s.openPosition(request, mc, order.Ticket)
	if !result.Ok() {
		s.log.Debug("pending order trigger rejected",
			zap.Int64("ticket", order.Ticket),
			zap.Int("retcode", int(result.Retcode)),
			zap.String("comment", result.Comment),
		)

		return false
	}

	s.orders = append(s.orders[:idx], s.orders[idx+1:]...)

	order.State = types.OrderStateFilled
	order.PositionID = positionTicket
	order.VolumeCurrent = 0
	order.TimeDone = mc.ts
	order.TimeDoneMsc = mc.msc
	s.ordersHistory = append(s.ordersHistory, order)

	s.log.Debug("pending order filled",
		zap.Int64("ticket", order.Ticket),
		zap.Int64("position", positionTicket),
		zap.Float64("price", price),
	)

	return true
}
