package indicator

import (
	"math"

	"github.com/rxtech-lab/mtsim/internal/types"
)

// ATR returns the average true range as of the last bar. The true range is
// the bar's high-low span widened by any gap from the previous close, and
// the average uses the same Wilder smoothing as RSI. It needs period+1 bars
// for the first previous close.
func ATR(rates []types.Rate, period int) (float64, error) {
	if err := checkPeriod("ATR", period); err != nil {
		return 0, err
	}

	if err := checkBars("ATR", rates, period+1); err != nil {
		return 0, err
	}

	ranges := make([]float64, 0, len(rates)-1)

	for i := 1; i < len(rates); i++ {
		high := rates[i].High
		low := rates[i].Low
		prevClose := rates[i-1].Close

		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		ranges = append(ranges, tr)
	}

	atr := 0.0
	for i := 0; i < period; i++ {
		atr += ranges[i]
	}

	atr /= float64(period)

	for i := period; i < len(ranges); i++ {
		atr = (atr*float64(period-1) + ranges[i]) / float64(period)
	}

	return atr, nil
}
