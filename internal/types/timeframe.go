package types

import (
	"time"

	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// Timeframe identifies a chart period. Values carry the MetaTrader 5 bit
// encoding: minutes are stored raw, hours and days carry 0x4000, weeks
// 0x8000 and months 0xC000, with the period count in the low bits.
type Timeframe int

const (
	TimeframeM1  Timeframe = 1
	TimeframeM2  Timeframe = 2
	TimeframeM3  Timeframe = 3
	TimeframeM4  Timeframe = 4
	TimeframeM5  Timeframe = 5
	TimeframeM6  Timeframe = 6
	TimeframeM10 Timeframe = 10
	TimeframeM12 Timeframe = 12
	TimeframeM15 Timeframe = 15
	TimeframeM20 Timeframe = 20
	TimeframeM30 Timeframe = 30
	TimeframeH1  Timeframe = 0x4000 | 1
	TimeframeH2  Timeframe = 0x4000 | 2
	TimeframeH3  Timeframe = 0x4000 | 3
	TimeframeH4  Timeframe = 0x4000 | 4
	TimeframeH6  Timeframe = 0x4000 | 6
	TimeframeH8  Timeframe = 0x4000 | 8
	TimeframeH12 Timeframe = 0x4000 | 12
	TimeframeD1  Timeframe = 0x4000 | 24
	TimeframeW1  Timeframe = 0x8000 | 1
	TimeframeMN1 Timeframe = 0xC000 | 1
)

// Timeframes maps the chart period names to their encoded values. Iteration
// order is not stable; use TimeframeNames when order matters.
var Timeframes = map[string]Timeframe{
	"M1":  TimeframeM1,
	"M2":  TimeframeM2,
	"M3":  TimeframeM3,
	"M4":  TimeframeM4,
	"M5":  TimeframeM5,
	"M6":  TimeframeM6,
	"M10": TimeframeM10,
	"M12": TimeframeM12,
	"M15": TimeframeM15,
	"M20": TimeframeM20,
	"M30": TimeframeM30,
	"H1":  TimeframeH1,
	"H2":  TimeframeH2,
	"H3":  TimeframeH3,
	"H4":  TimeframeH4,
	"H6":  TimeframeH6,
	"H8":  TimeframeH8,
	"H12": TimeframeH12,
	"D1":  TimeframeD1,
	"W1":  TimeframeW1,
	"MN1": TimeframeMN1,
}

// TimeframeNames lists the supported period names from shortest to longest.
var TimeframeNames = []string{
	"M1", "M2", "M3", "M4", "M5", "M6", "M10", "M12", "M15", "M20", "M30",
	"H1", "H2", "H3", "H4", "H6", "H8", "H12", "D1", "W1", "MN1",
}

var timeframeNamesByValue = func() map[Timeframe]string {
	m := make(map[Timeframe]string, len(Timeframes))
	for name, tf := range Timeframes {
		m[tf] = name
	}

	return m
}()

// ParseTimeframe resolves a period name such as "M15" or "H4".
func ParseTimeframe(name string) (Timeframe, error) {
	tf, ok := Timeframes[name]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeInvalidTimeframe, "unknown timeframe %q", name)
	}

	return tf, nil
}

// String returns the period name, or an empty string for unknown values.
func (tf Timeframe) String() string {
	return timeframeNamesByValue[tf]
}

// Valid reports whether the value is one of the supported chart periods.
func (tf Timeframe) Valid() bool {
	_, ok := timeframeNamesByValue[tf]

	return ok
}

// PeriodSeconds decodes the bit-packed period into seconds.
func (tf Timeframe) PeriodSeconds() int {
	p := int(tf)

	switch {
	case p&0xC000 == 0xC000: // months
		return (p & 0x3FFF) * 30 * 24 * 3600
	case p&0x8000 == 0x8000: // weeks
		return (p & 0x7FFF) * 7 * 24 * 3600
	case p&0x4000 == 0x4000: // hours and days
		return (p & 0x3FFF) * 3600
	default: // minutes
		return p * 60
	}
}

// Duration is PeriodSeconds as a time.Duration.
func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.PeriodSeconds()) * time.Second
}
