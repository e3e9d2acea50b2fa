package types

// TradeOrder is an order as the terminal reports it, live or historical.
type TradeOrder struct {
	Ticket         int64        `json:"ticket"`
	TimeSetup      int64        `json:"time_setup"`
	TimeSetupMsc   int64        `json:"time_setup_msc"`
	TimeDone       int64        `json:"time_done"`
	TimeDoneMsc    int64        `json:"time_done_msc"`
	TimeExpiration int64        `json:"time_expiration"`
	Type           OrderType    `json:"type"`
	TypeTime       OrderTime    `json:"type_time"`
	TypeFilling    OrderFilling `json:"type_filling"`
	State          OrderState   `json:"state"`
	Magic          int64        `json:"magic"`
	PositionID     int64        `json:"position_id"`
	PositionByID   int64        `json:"position_by_id"`
	Reason         DealReason   `json:"reason"`
	VolumeInitial  float64      `json:"volume_initial"`
	VolumeCurrent  float64      `json:"volume_current"`
	PriceOpen      float64      `json:"price_open"`
	SL             float64      `json:"sl"`
	TP             float64      `json:"tp"`
	PriceCurrent   float64      `json:"price_current"`
	PriceStopLimit float64      `json:"price_stoplimit"`
	Symbol         string       `json:"symbol"`
	Comment        string       `json:"comment"`
	ExternalID     string       `json:"external_id"`
}

// TradePosition is an open position snapshot.
type TradePosition struct {
	Ticket        int64        `json:"ticket"`
	Time          int64        `json:"time"`
	TimeMsc       int64        `json:"time_msc"`
	TimeUpdate    int64        `json:"time_update"`
	TimeUpdateMsc int64        `json:"time_update_msc"`
	Type          PositionType `json:"type"`
	Magic         int64        `json:"magic"`
	Identifier    int64        `json:"identifier"`
	Reason        DealReason   `json:"reason"`
	Volume        float64      `json:"volume"`
	PriceOpen     float64      `json:"price_open"`
	SL            float64      `json:"sl"`
	TP            float64      `json:"tp"`
	PriceCurrent  float64      `json:"price_current"`
	Swap          float64      `json:"swap"`
	Profit        float64      `json:"profit"`
	Symbol        string       `json:"symbol"`
	Comment       string       `json:"comment"`
	ExternalID    string       `json:"external_id"`
}

// TradeDeal is an executed deal in the account history. Balance carries the
// account balance after the deal was booked, so the deal log doubles as a
// balance curve.
type TradeDeal struct {
	Ticket     int64      `json:"ticket"`
	Order      int64      `json:"order"`
	Time       int64      `json:"time"`
	TimeMsc    int64      `json:"time_msc"`
	Type       DealType   `json:"type"`
	Entry      DealEntry  `json:"entry"`
	Magic      int64      `json:"magic"`
	PositionID int64      `json:"position_id"`
	Reason     DealReason `json:"reason"`
	Volume     float64    `json:"volume"`
	Price      float64    `json:"price"`
	Commission float64    `json:"commission"`
	Swap       float64    `json:"swap"`
	Profit     float64    `json:"profit"`
	Fee        float64    `json:"fee"`
	Symbol     string     `json:"symbol"`
	Comment    string     `json:"comment"`
	ExternalID string     `json:"external_id"`
	Balance    float64    `json:"balance"`
}
