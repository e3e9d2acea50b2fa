package types

// The enumerations below carry the MetaTrader 5 wire values so that requests,
// stored history and bridge payloads stay bit-compatible with the terminal.

// OrderType is the trade order type (market, pending and close-by orders).
type OrderType int

const (
	OrderTypeBuy           OrderType = 0
	OrderTypeSell          OrderType = 1
	OrderTypeBuyLimit      OrderType = 2
	OrderTypeSellLimit     OrderType = 3
	OrderTypeBuyStop       OrderType = 4
	OrderTypeSellStop      OrderType = 5
	OrderTypeBuyStopLimit  OrderType = 6
	OrderTypeSellStopLimit OrderType = 7
	OrderTypeCloseBy       OrderType = 8
)

var orderTypeDescriptions = map[OrderType]string{
	OrderTypeBuy:           "Market Buy order",
	OrderTypeSell:          "Market Sell order",
	OrderTypeBuyLimit:      "Buy Limit pending order",
	OrderTypeSellLimit:     "Sell Limit pending order",
	OrderTypeBuyStop:       "Buy Stop pending order",
	OrderTypeSellStop:      "Sell Stop pending order",
	OrderTypeBuyStopLimit:  "Upon reaching the order price, a pending Buy Limit order is placed at the StopLimit price",
	OrderTypeSellStopLimit: "Upon reaching the order price, a pending Sell Limit order is placed at the StopLimit price",
	OrderTypeCloseBy:       "Order to close a position by an opposite one",
}

func (t OrderType) String() string { return orderTypeDescriptions[t] }

// IsBuy reports whether the order opens or grows a long exposure.
func (t OrderType) IsBuy() bool {
	switch t {
	case OrderTypeBuy, OrderTypeBuyLimit, OrderTypeBuyStop, OrderTypeBuyStopLimit:
		return true
	default:
		return false
	}
}

// IsSell reports whether the order opens or grows a short exposure.
func (t OrderType) IsSell() bool {
	switch t {
	case OrderTypeSell, OrderTypeSellLimit, OrderTypeSellStop, OrderTypeSellStopLimit:
		return true
	default:
		return false
	}
}

// IsPending reports whether the order rests in the book until triggered.
func (t OrderType) IsPending() bool {
	switch t {
	case OrderTypeBuyLimit, OrderTypeSellLimit, OrderTypeBuyStop, OrderTypeSellStop,
		OrderTypeBuyStopLimit, OrderTypeSellStopLimit:
		return true
	default:
		return false
	}
}

// PositionType is the direction of an open position.
type PositionType int

const (
	PositionTypeBuy  PositionType = 0
	PositionTypeSell PositionType = 1
)

func (t PositionType) String() string {
	if t == PositionTypeSell {
		return "SELL"
	}

	return "BUY"
}

// TradeAction selects the operation a trade request performs.
type TradeAction int

const (
	TradeActionDeal    TradeAction = 1  // market order, immediate execution
	TradeActionPending TradeAction = 5  // place a pending order
	TradeActionSLTP    TradeAction = 6  // change an open position's stop levels
	TradeActionModify  TradeAction = 7  // change a pending order's parameters
	TradeActionRemove  TradeAction = 8  // delete a pending order
	TradeActionCloseBy TradeAction = 10 // close a position by an opposite one
)

var tradeActionNames = map[TradeAction]string{
	TradeActionDeal:    "DEAL",
	TradeActionPending: "PENDING",
	TradeActionSLTP:    "SLTP",
	TradeActionModify:  "MODIFY",
	TradeActionRemove:  "REMOVE",
	TradeActionCloseBy: "CLOSE_BY",
}

func (a TradeAction) String() string { return tradeActionNames[a] }

// OrderState is the lifecycle state of an order.
type OrderState int

const (
	OrderStateStarted       OrderState = 0
	OrderStatePlaced        OrderState = 1
	OrderStateCanceled      OrderState = 2
	OrderStatePartial       OrderState = 3
	OrderStateFilled        OrderState = 4
	OrderStateRejected      OrderState = 5
	OrderStateExpired       OrderState = 6
	OrderStateRequestAdd    OrderState = 7
	OrderStateRequestModify OrderState = 8
	OrderStateRequestCancel OrderState = 9
)

var orderStateDescriptions = map[OrderState]string{
	OrderStateStarted:       "Order checked, but not yet accepted by broker",
	OrderStatePlaced:        "Order accepted",
	OrderStateCanceled:      "Order canceled by client",
	OrderStatePartial:       "Order partially executed",
	OrderStateFilled:        "Order fully executed",
	OrderStateRejected:      "Order rejected",
	OrderStateExpired:       "Order expired",
	OrderStateRequestAdd:    "Order is being registered (placing to the trading system)",
	OrderStateRequestModify: "Order is being modified (changing its parameters)",
	OrderStateRequestCancel: "Order is being deleted (deleting from the trading system)",
}

func (s OrderState) String() string { return orderStateDescriptions[s] }

// OrderTime controls how long an order stays alive.
type OrderTime int

const (
	OrderTimeGTC          OrderTime = 0 // good till cancelled
	OrderTimeDay          OrderTime = 1 // good till the end of the trade day
	OrderTimeSpecified    OrderTime = 2 // good till the expiration time
	OrderTimeSpecifiedDay OrderTime = 3 // good till 23:59:59 of the expiration day
)

// OrderFilling is the volume filling policy.
type OrderFilling int

const (
	OrderFillingFOK    OrderFilling = 0 // fill or kill
	OrderFillingIOC    OrderFilling = 1 // immediate or cancel
	OrderFillingReturn OrderFilling = 2 // partial fills allowed, remainder stays
	OrderFillingBOC    OrderFilling = 3 // book or cancel, passive placement only
)

// Symbol filling-mode flags. symbol_info.filling_mode is a bit mask of these.
const (
	SymbolFillingFOK = 1
	SymbolFillingIOC = 2
	SymbolFillingBOC = 4
)

// DealType classifies an executed deal.
type DealType int

const (
	DealTypeBuy                    DealType = 0
	DealTypeSell                   DealType = 1
	DealTypeBalance                DealType = 2
	DealTypeCredit                 DealType = 3
	DealTypeCharge                 DealType = 4
	DealTypeCorrection             DealType = 5
	DealTypeBonus                  DealType = 6
	DealTypeCommission             DealType = 7
	DealTypeCommissionDaily        DealType = 8
	DealTypeCommissionMonthly      DealType = 9
	DealTypeCommissionAgentDaily   DealType = 10
	DealTypeCommissionAgentMonthly DealType = 11
	DealTypeInterest               DealType = 12
	DealTypeBuyCanceled            DealType = 13
	DealTypeSellCanceled           DealType = 14
)

var dealTypeDescriptions = map[DealType]string{
	DealTypeBuy:                    "BUY",
	DealTypeSell:                   "SELL",
	DealTypeBalance:                "BALANCE",
	DealTypeCredit:                 "CREDIT",
	DealTypeCharge:                 "CHARGE",
	DealTypeCorrection:             "CORRECTION",
	DealTypeBonus:                  "BONUS",
	DealTypeCommission:             "COMMISSION",
	DealTypeCommissionDaily:        "COMMISSION DAILY",
	DealTypeCommissionMonthly:      "COMMISSION MONTHLY",
	DealTypeCommissionAgentDaily:   "AGENT COMMISSION DAILY",
	DealTypeCommissionAgentMonthly: "AGENT COMMISSION MONTHLY",
	DealTypeInterest:               "INTEREST",
	DealTypeBuyCanceled:            "BUY CANCELED",
	DealTypeSellCanceled:           "SELL CANCELED",
}

func (t DealType) String() string { return dealTypeDescriptions[t] }

// DealEntry marks whether a deal opened, closed or reversed a position.
type DealEntry int

const (
	DealEntryIn    DealEntry = 0
	DealEntryOut   DealEntry = 1
	DealEntryInOut DealEntry = 2
	DealEntryOutBy DealEntry = 3
)

var dealEntryNames = map[DealEntry]string{
	DealEntryIn:    "IN",
	DealEntryOut:   "OUT",
	DealEntryInOut: "INOUT",
	DealEntryOutBy: "OUT_BY",
}

func (e DealEntry) String() string { return dealEntryNames[e] }

// DealReason records what triggered a deal.
type DealReason int

const (
	DealReasonClient   DealReason = 0
	DealReasonMobile   DealReason = 1
	DealReasonWeb      DealReason = 2
	DealReasonExpert   DealReason = 3
	DealReasonSL       DealReason = 4
	DealReasonTP       DealReason = 5
	DealReasonSO       DealReason = 6
	DealReasonRollover DealReason = 7
	DealReasonVMargin  DealReason = 8
	DealReasonSplit    DealReason = 9
)

// Retcode is the trade server return code of an order_send request.
type Retcode int

const (
	RetcodeRequote           Retcode = 10004
	RetcodeReject            Retcode = 10006
	RetcodeCancel            Retcode = 10007
	RetcodePlaced            Retcode = 10008
	RetcodeDone              Retcode = 10009
	RetcodeDonePartial       Retcode = 10010
	RetcodeError             Retcode = 10011
	RetcodeTimeout           Retcode = 10012
	RetcodeInvalid           Retcode = 10013
	RetcodeInvalidVolume     Retcode = 10014
	RetcodeInvalidPrice      Retcode = 10015
	RetcodeInvalidStops      Retcode = 10016
	RetcodeTradeDisabled     Retcode = 10017
	RetcodeMarketClosed      Retcode = 10018
	RetcodeNoMoney           Retcode = 10019
	RetcodePriceChanged      Retcode = 10020
	RetcodePriceOff          Retcode = 10021
	RetcodeInvalidExpiration Retcode = 10022
	RetcodeOrderChanged      Retcode = 10023
	RetcodeTooManyRequests   Retcode = 10024
	RetcodeNoChanges         Retcode = 10025
	RetcodeFrozen            Retcode = 10029
	RetcodeInvalidFill       Retcode = 10030
	RetcodeLimitOrders       Retcode = 10033
	RetcodeLimitVolume       Retcode = 10034
	RetcodeInvalidOrder      Retcode = 10035
	RetcodePositionClosed    Retcode = 10036
)

var retcodeDescriptions = map[Retcode]string{
	RetcodeRequote:           "Requote",
	RetcodeReject:            "Request rejected",
	RetcodeCancel:            "Request canceled by trader",
	RetcodePlaced:            "Order placed",
	RetcodeDone:              "Request completed",
	RetcodeDonePartial:       "Only part of the request was completed",
	RetcodeError:             "Request processing error",
	RetcodeTimeout:           "Request canceled by timeout",
	RetcodeInvalid:           "Invalid request",
	RetcodeInvalidVolume:     "Invalid volume in the request",
	RetcodeInvalidPrice:      "Invalid price in the request",
	RetcodeInvalidStops:      "Invalid stops in the request",
	RetcodeTradeDisabled:     "Trade is disabled",
	RetcodeMarketClosed:      "Market is closed",
	RetcodeNoMoney:           "There is not enough money to complete the request",
	RetcodePriceChanged:      "Prices changed",
	RetcodePriceOff:          "There are no quotes to process the request",
	RetcodeInvalidExpiration: "Invalid order expiration date in the request",
	RetcodeOrderChanged:      "Order state changed",
	RetcodeTooManyRequests:   "Too frequent requests",
	RetcodeNoChanges:         "No changes in request",
	RetcodeFrozen:            "Order or position frozen",
	RetcodeInvalidFill:       "Invalid order filling type",
	RetcodeLimitOrders:       "The number of pending orders has reached the limit",
	RetcodeLimitVolume:       "The volume of orders and positions for the symbol has reached the limit",
	RetcodeInvalidOrder:      "Incorrect or prohibited order type",
	RetcodePositionClosed:    "Position with the specified POSITION_IDENTIFIER has already been closed",
}

func (r Retcode) String() string { return retcodeDescriptions[r] }

// CalcMode is the symbol's margin and profit calculation mode.
type CalcMode int

const (
	CalcModeForex           CalcMode = 0
	CalcModeFutures         CalcMode = 1
	CalcModeCFD             CalcMode = 2
	CalcModeCFDIndex        CalcMode = 3
	CalcModeCFDLeverage     CalcMode = 4
	CalcModeForexNoLeverage CalcMode = 5
	CalcModeExchStocks      CalcMode = 32
	CalcModeExchFutures     CalcMode = 33
	CalcModeExchBonds       CalcMode = 37
	CalcModeExchStocksMoex  CalcMode = 38
	CalcModeExchBondsMoex   CalcMode = 39
	CalcModeServCollateral  CalcMode = 64
)

// CopyTicks selects which tick kinds a copy request returns.
type CopyTicks int

const (
	CopyTicksAll   CopyTicks = -1
	CopyTicksInfo  CopyTicks = 1
	CopyTicksTrade CopyTicks = 2
)

// TickFlag marks what changed in a tick. Flags combine as a bit mask.
type TickFlag int

const (
	TickFlagBid    TickFlag = 2
	TickFlagAsk    TickFlag = 4
	TickFlagLast   TickFlag = 8
	TickFlagVolume TickFlag = 16
	TickFlagBuy    TickFlag = 32
	TickFlagSell   TickFlag = 64
)

// FlagMask converts a CopyTicks selector to the tick flag mask it matches.
// CopyTicksAll returns 0, meaning no filtering.
func (c CopyTicks) FlagMask() TickFlag {
	switch c {
	case CopyTicksInfo:
		return TickFlagBid | TickFlagAsk
	case CopyTicksTrade:
		return TickFlagLast | TickFlagVolume
	default:
		return 0
	}
}

// AccountTradeMode is the account type.
type AccountTradeMode int

const (
	AccountTradeModeDemo    AccountTradeMode = 0
	AccountTradeModeContest AccountTradeMode = 1
	AccountTradeModeReal    AccountTradeMode = 2
)

// AccountMarginMode is the margin calculation mode of the account.
type AccountMarginMode int

const (
	AccountMarginModeRetailNetting AccountMarginMode = 0
	AccountMarginModeExchange      AccountMarginMode = 1
	AccountMarginModeRetailHedging AccountMarginMode = 2
)

// AccountStopoutMode expresses margin_so_call/margin_so_so units.
type AccountStopoutMode int

const (
	AccountStopoutModePercent AccountStopoutMode = 0
	AccountStopoutModeMoney   AccountStopoutMode = 1
)

// SymbolTradeMode restricts the operations allowed on a symbol.
type SymbolTradeMode int

const (
	SymbolTradeModeDisabled  SymbolTradeMode = 0
	SymbolTradeModeLongOnly  SymbolTradeMode = 1
	SymbolTradeModeShortOnly SymbolTradeMode = 2
	SymbolTradeModeCloseOnly SymbolTradeMode = 3
	SymbolTradeModeFull      SymbolTradeMode = 4
)

// Terminal result codes reported by LastError.
const (
	ResOK                  = 1
	ResFail                = -1
	ResInvalidParams       = -2
	ResNoMemory            = -3
	ResNotFound            = -4
	ResInvalidVersion      = -5
	ResAuthFailed          = -6
	ResUnsupported         = -7
	ResAutoTradingDisabled = -8
	ResInternalFail        = -10000
)
