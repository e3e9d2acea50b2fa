package types

import "time"

// Tick is a single quote update for a symbol.
type Tick struct {
	Time       time.Time `json:"time"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	Last       float64   `json:"last"`
	Volume     uint64    `json:"volume"`
	TimeMsc    int64     `json:"time_msc"`
	Flags      TickFlag  `json:"flags"`
	VolumeReal float64   `json:"volume_real"`
}

// Rate is one OHLC bar of a symbol at some timeframe.
type Rate struct {
	Time       time.Time `json:"time"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	TickVolume int64     `json:"tick_volume"`
	Spread     int       `json:"spread"`
	RealVolume int64     `json:"real_volume"`
}

// Mid is the bar midpoint, used where a single indicative price is needed.
func (r Rate) Mid() float64 {
	return (r.High + r.Low) / 2
}
