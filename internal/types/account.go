package types

// AccountInfo mirrors the terminal's trade account snapshot.
type AccountInfo struct {
	Login          int64              `json:"login"`
	TradeMode      AccountTradeMode   `json:"trade_mode"`
	Leverage       int64              `json:"leverage"`
	LimitOrders    int                `json:"limit_orders"`
	MarginSoMode   AccountStopoutMode `json:"margin_so_mode"`
	TradeAllowed   bool               `json:"trade_allowed"`
	TradeExpert    bool               `json:"trade_expert"`
	MarginMode     AccountMarginMode  `json:"margin_mode"`
	CurrencyDigits int                `json:"currency_digits"`
	FifoClose      bool               `json:"fifo_close"`

	Balance           float64 `json:"balance"`
	Credit            float64 `json:"credit"`
	Profit            float64 `json:"profit"`
	Equity            float64 `json:"equity"`
	Margin            float64 `json:"margin"`
	MarginFree        float64 `json:"margin_free"`
	MarginLevel       float64 `json:"margin_level"`
	MarginSoCall      float64 `json:"margin_so_call"`
	MarginSoSo        float64 `json:"margin_so_so"`
	MarginInitial     float64 `json:"margin_initial"`
	MarginMaintenance float64 `json:"margin_maintenance"`
	Assets            float64 `json:"assets"`
	Liabilities       float64 `json:"liabilities"`
	CommissionBlocked float64 `json:"commission_blocked"`

	Name     string `json:"name"`
	Server   string `json:"server"`
	Currency string `json:"currency"`
	Company  string `json:"company"`
}
