package types

import "time"

// SymbolInfo describes a financial instrument the way the terminal reports
// it. The field set is the subset of the terminal's symbol properties the
// tester, the calculators and the trade helpers consume. JSON tags match the
// terminal property names so downloader-captured specs round-trip.
type SymbolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`

	CurrencyBase   string `json:"currency_base"`
	CurrencyProfit string `json:"currency_profit"`
	CurrencyMargin string `json:"currency_margin"`

	Digits int     `json:"digits"`
	Point  float64 `json:"point"`
	Spread int     `json:"spread"`

	Select  bool      `json:"select"`
	Visible bool      `json:"visible"`
	Time    time.Time `json:"time"`

	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
	Last float64 `json:"last"`

	TradeCalcMode        CalcMode        `json:"trade_calc_mode"`
	TradeMode            SymbolTradeMode `json:"trade_mode"`
	TradeStopsLevel      int             `json:"trade_stops_level"`
	TradeFreezeLevel     int             `json:"trade_freeze_level"`
	TradeContractSize    float64         `json:"trade_contract_size"`
	TradeTickValue       float64         `json:"trade_tick_value"`
	TradeTickSize        float64         `json:"trade_tick_size"`
	TradeFaceValue       float64         `json:"trade_face_value"`
	TradeAccruedInterest float64         `json:"trade_accrued_interest"`
	TradeLiquidityRate   float64         `json:"trade_liquidity_rate"`

	VolumeMin   float64 `json:"volume_min"`
	VolumeMax   float64 `json:"volume_max"`
	VolumeStep  float64 `json:"volume_step"`
	VolumeLimit float64 `json:"volume_limit"`

	SwapMode  int     `json:"swap_mode"`
	SwapLong  float64 `json:"swap_long"`
	SwapShort float64 `json:"swap_short"`

	MarginInitial     float64 `json:"margin_initial"`
	MarginMaintenance float64 `json:"margin_maintenance"`

	FillingMode int `json:"filling_mode"`
}

// PriceEpsilon is the comparison tolerance for this symbol's prices,
// 10^-digits.
func (s SymbolInfo) PriceEpsilon() float64 {
	eps := 1.0
	for i := 0; i < s.Digits; i++ {
		eps /= 10
	}

	return eps
}
