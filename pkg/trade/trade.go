// Package trade provides the helper classes robots build their order flow
// on: Trade assembles and sends trade requests with the expert's magic
// number, deviation and filling type filled in, and Symbol caches a symbol's
// specification and latest quote behind typed accessors. Both talk to the
// terminal interface only, so they work against the offline tester and the
// live gateway alike.
package trade

import (
	"time"

	"github.com/rxtech-lab/mtsim/internal/terminal"
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// maxCommentLength is the terminal's limit on the order comment field.
// Longer comments are truncated, not rejected.
const maxCommentLength = 31

// Trade builds and sends trade requests. Configure it once with the
// expert's magic number, the accepted slippage and the filling policy;
// every request it sends carries them. The last request and result stay
// accessible through the Result accessors until the next call.
//
// Trade is not safe for concurrent use.
type Trade struct {
	api terminal.Terminal

	magic     int64
	deviation int64
	filling   types.OrderFilling

	request types.TradeRequest
	result  types.TradeResult
}

// NewTrade binds the helper to a terminal.
func NewTrade(api terminal.Terminal) *Trade {
	return &Trade{api: api}
}

// SetExpertMagicNumber sets the expert id stamped on every request.
func (t *Trade) SetExpertMagicNumber(magic int64) {
	t.magic = magic
}

// SetDeviationInPoints sets the maximum accepted price slippage for market
// orders, in points.
func (t *Trade) SetDeviationInPoints(deviation int64) {
	t.deviation = deviation
}

// SetTypeFilling sets the volume filling policy for subsequent requests.
func (t *Trade) SetTypeFilling(filling types.OrderFilling) {
	t.filling = filling
}

// SetTypeFillingBySymbol picks the filling policy from the symbol's
// supported filling mode.
func (t *Trade) SetTypeFillingBySymbol(symbol string) error {
	spec, err := t.api.SymbolInfo(symbol)
	if err != nil {
		return err
	}

	t.filling = fillingForMode(spec.FillingMode)

	return nil
}

// fillingForMode maps a symbol filling-mode flag to the order filling type.
// Mixed or unknown modes fall back to Return, which every server accepts.
func fillingForMode(mode int) types.OrderFilling {
	switch mode {
	case types.SymbolFillingFOK:
		return types.OrderFillingFOK
	case types.SymbolFillingIOC:
		return types.OrderFillingIOC
	case types.SymbolFillingBOC:
		return types.OrderFillingBOC
	default:
		return types.OrderFillingReturn
	}
}

// Buy opens a long position. A zero price buys at the current ask.
func (t *Trade) Buy(volume float64, symbol string, price, sl, tp float64, comment string) error {
	return t.PositionOpen(symbol, types.OrderTypeBuy, volume, price, sl, tp, comment)
}

// Sell opens a short position. A zero price sells at the current bid.
func (t *Trade) Sell(volume float64, symbol string, price, sl, tp float64, comment string) error {
	return t.PositionOpen(symbol, types.OrderTypeSell, volume, price, sl, tp, comment)
}

// PositionOpen opens a position with a market order. Only the market order
// types are accepted; a zero price is replaced with the current ask for a
// buy and the current bid for a sell.
func (t *Trade) PositionOpen(symbol string, orderType types.OrderType, volume, price, sl, tp float64, comment string) error {
	if orderType != types.OrderTypeBuy && orderType != types.OrderTypeSell {
		return errors.Newf(errors.ErrCodeInvalidParameter, "position open expects a market order type, got %s", orderType)
	}

	if price == 0 {
		tick, err := t.api.SymbolInfoTick(symbol)
		if err != nil {
			return err
		}

		if orderType == types.OrderTypeBuy {
			price = tick.Ask
		} else {
			price = tick.Bid
		}
	}

	return t.send(types.TradeRequest{
		Action:      types.TradeActionDeal,
		Symbol:      symbol,
		Volume:      volume,
		Type:        orderType,
		Price:       price,
		SL:          sl,
		TP:          tp,
		Deviation:   t.deviation,
		Magic:       t.magic,
		TypeTime:    types.OrderTimeGTC,
		TypeFilling: t.filling,
		Comment:     clipComment(comment),
	})
}

// BuyLimit places a pending buy below the market.
func (t *Trade) BuyLimit(volume, price float64, symbol string, sl, tp float64, typeTime types.OrderTime, expiration time.Time, comment string) error {
	return t.OrderOpen(symbol, types.OrderTypeBuyLimit, volume, 0, price, sl, tp, typeTime, expiration, comment)
}

// SellLimit places a pending sell above the market.
func (t *Trade) SellLimit(volume, price float64, symbol string, sl, tp float64, typeTime types.OrderTime, expiration time.Time, comment string) error {
	return t.OrderOpen(symbol, types.OrderTypeSellLimit, volume, 0, price, sl, tp, typeTime, expiration, comment)
}

// BuyStop places a pending buy above the market.
func (t *Trade) BuyStop(volume, price float64, symbol string, sl, tp float64, typeTime types.OrderTime, expiration time.Time, comment string) error {
	return t.OrderOpen(symbol, types.OrderTypeBuyStop, volume, 0, price, sl, tp, typeTime, expiration, comment)
}

// SellStop places a pending sell below the market.
func (t *Trade) SellStop(volume, price float64, symbol string, sl, tp float64, typeTime types.OrderTime, expiration time.Time, comment string) error {
	return t.OrderOpen(symbol, types.OrderTypeSellStop, volume, 0, price, sl, tp, typeTime, expiration, comment)
}

// BuyStopLimit places a stop order that converts into a buy limit at
// stopLimit once the market trades through price.
func (t *Trade) BuyStopLimit(volume, price, stopLimit float64, symbol string, sl, tp float64, typeTime types.OrderTime, expiration time.Time, comment string) error {
	return t.OrderOpen(symbol, types.OrderTypeBuyStopLimit, volume, stopLimit, price, sl, tp, typeTime, expiration, comment)
}

// SellStopLimit places a stop order that converts into a sell limit at
// stopLimit once the market trades through price.
func (t *Trade) SellStopLimit(volume, price, stopLimit float64, symbol string, sl, tp float64, typeTime types.OrderTime, expiration time.Time, comment string) error {
	return t.OrderOpen(symbol, types.OrderTypeSellStopLimit, volume, stopLimit, price, sl, tp, typeTime, expiration, comment)
}

// OrderOpen places a pending order. The symbol is selected into the session
// first when it is not visible. Stop-limit types read stopLimit as the limit
// price to place once the stop triggers; the other types ignore it.
// OrderTimeSpecified and OrderTimeSpecifiedDay require an expiration.
func (t *Trade) OrderOpen(symbol string, orderType types.OrderType, volume, stopLimit, price, sl, tp float64, typeTime types.OrderTime, expiration time.Time, comment string) error {
	if !orderType.IsPending() {
		return errors.Newf(errors.ErrCodeInvalidParameter, "order open expects a pending order type, got %s", orderType)
	}

	if err := t.ensureVisible(symbol); err != nil {
		return err
	}

	request := types.TradeRequest{
		Action:      types.TradeActionPending,
		Symbol:      symbol,
		Volume:      volume,
		Type:        orderType,
		Price:       price,
		SL:          sl,
		TP:          tp,
		Magic:       t.magic,
		TypeTime:    typeTime,
		TypeFilling: t.filling,
		Comment:     clipComment(comment),
	}

	switch orderType {
	case types.OrderTypeBuyStopLimit, types.OrderTypeSellStopLimit:
		request.StopLimit = stopLimit
	}

	if typeTime == types.OrderTimeSpecified || typeTime == types.OrderTimeSpecifiedDay {
		if expiration.IsZero() {
			return errors.New(errors.ErrCodeInvalidExpiration, "expiration is required for time-specified orders")
		}

		request.Expiration = expiration
	}

	return t.send(request)
}

// PositionClose closes an open position by ticket with an opposite market
// order: a long is closed at the bid, a short at the ask.
func (t *Trade) PositionClose(ticket int64) error {
	position, err := t.position(ticket)
	if err != nil {
		return err
	}

	tick, err := t.api.SymbolInfoTick(position.Symbol)
	if err != nil {
		return err
	}

	orderType := types.OrderTypeSell
	price := tick.Bid

	if position.Type == types.PositionTypeSell {
		orderType = types.OrderTypeBuy
		price = tick.Ask
	}

	return t.send(types.TradeRequest{
		Action:      types.TradeActionDeal,
		Symbol:      position.Symbol,
		Volume:      position.Volume,
		Type:        orderType,
		Position:    ticket,
		Price:       price,
		Deviation:   t.deviation,
		Magic:       t.magic,
		TypeTime:    types.OrderTimeGTC,
		TypeFilling: t.filling,
	})
}

// PositionModify replaces a position's stop loss and take profit levels.
func (t *Trade) PositionModify(ticket int64, sl, tp float64) error {
	position, err := t.position(ticket)
	if err != nil {
		return err
	}

	return t.send(types.TradeRequest{
		Action:   types.TradeActionSLTP,
		Symbol:   position.Symbol,
		Position: ticket,
		SL:       sl,
		TP:       tp,
		Magic:    t.magic,
	})
}

// OrderDelete removes a pending order by ticket.
func (t *Trade) OrderDelete(ticket int64) error {
	return t.send(types.TradeRequest{
		Action: types.TradeActionRemove,
		Order:  ticket,
		Magic:  t.magic,
	})
}

// OrderModify rewrites a pending order's price, stops and lifetime. The
// order keeps its type; stopLimit applies to stop-limit orders only.
func (t *Trade) OrderModify(ticket int64, price, sl, tp float64, typeTime types.OrderTime, expiration time.Time, stopLimit float64) error {
	orders, err := t.api.OrdersGet(terminal.WithTicket(ticket))
	if err != nil {
		return err
	}

	if len(orders) == 0 {
		return errors.Newf(errors.ErrCodeOrderNotFound, "order #%d not found", ticket)
	}

	order := orders[0]

	request := types.TradeRequest{
		Action:      types.TradeActionModify,
		Order:       ticket,
		Symbol:      order.Symbol,
		Price:       price,
		SL:          sl,
		TP:          tp,
		Type:        order.Type,
		Magic:       t.magic,
		TypeTime:    typeTime,
		TypeFilling: t.filling,
	}

	switch order.Type {
	case types.OrderTypeBuyStopLimit, types.OrderTypeSellStopLimit:
		request.StopLimit = stopLimit
	}

	if typeTime == types.OrderTimeSpecified || typeTime == types.OrderTimeSpecifiedDay {
		if expiration.IsZero() {
			return errors.New(errors.ErrCodeInvalidExpiration, "expiration is required for time-specified orders")
		}

		request.Expiration = expiration
	}

	return t.send(request)
}

// Request returns the last request sent.
func (t *Trade) Request() types.TradeRequest { return t.request }

// Result returns the last result received.
func (t *Trade) Result() types.TradeResult { return t.result }

// ResultRetcode returns the trade server return code of the last request.
func (t *Trade) ResultRetcode() types.Retcode { return t.result.Retcode }

// ResultDeal returns the deal ticket of the last request.
func (t *Trade) ResultDeal() int64 { return t.result.Deal }

// ResultOrder returns the order ticket of the last request.
func (t *Trade) ResultOrder() int64 { return t.result.Order }

// ResultVolume returns the executed volume of the last request.
func (t *Trade) ResultVolume() float64 { return t.result.Volume }

// ResultPrice returns the execution price of the last request.
func (t *Trade) ResultPrice() float64 { return t.result.Price }

// ResultBid returns the bid the server reported with the last result.
func (t *Trade) ResultBid() float64 { return t.result.Bid }

// ResultAsk returns the ask the server reported with the last result.
func (t *Trade) ResultAsk() float64 { return t.result.Ask }

// ResultComment returns the server's comment on the last result.
func (t *Trade) ResultComment() string { return t.result.Comment }

// send stores the request, executes it and stores the result, so the
// Result accessors reflect the outcome even when the server rejected it.
func (t *Trade) send(request types.TradeRequest) error {
	t.request = request

	result, err := t.api.OrderSend(request)
	t.result = result

	if err != nil {
		return err
	}

	if !result.Ok() {
		return errors.Newf(errors.ErrCodeOrderFailed, "%s rejected with retcode %d: %s",
			request.Action, result.Retcode, result.Comment)
	}

	return nil
}

// position fetches one open position by ticket.
func (t *Trade) position(ticket int64) (types.TradePosition, error) {
	positions, err := t.api.PositionsGet(terminal.WithTicket(ticket))
	if err != nil {
		return types.TradePosition{}, err
	}

	if len(positions) == 0 {
		return types.TradePosition{}, errors.Newf(errors.ErrCodePositionNotFound, "position #%d not found", ticket)
	}

	return positions[0], nil
}

// ensureVisible selects the symbol into the session when it is not visible
// yet. Pending placement on a hidden symbol would be rejected.
func (t *Trade) ensureVisible(symbol string) error {
	spec, err := t.api.SymbolInfo(symbol)
	if err != nil {
		return err
	}

	if spec.Visible {
		return nil
	}

	return t.api.SymbolSelect(symbol, true)
}

func clipComment(comment string) string {
	if len(comment) > maxCommentLength {
		return comment[:maxCommentLength]
	}

	return comment
}
