package indicator

import "github.com/rxtech-lab/mtsim/internal/types"

// EMA returns the exponential moving average of the applied price as of the
// last bar. The first period bars seed the average with their simple mean
// and the rest apply the alpha = 2/(period+1) recursion, so the more bars
// given beyond the period, the closer the value sits to the one a chart
// shows.
func EMA(rates []types.Rate, period int, price AppliedPrice) (float64, error) {
	if err := checkPeriod("EMA", period); err != nil {
		return 0, err
	}

	if err := checkBars("EMA", rates, period); err != nil {
		return 0, err
	}

	series := emaSeries(prices(rates, price), period)

	return series[len(series)-1], nil
}

// emaSeries runs the EMA recursion over values. Entries before index
// period-1 are zero; index period-1 holds the simple-average seed.
// Callers guarantee len(values) >= period.
func emaSeries(values []float64, period int) []float64 {
	series := make([]float64, len(values))

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}

	series[period-1] = seed / float64(period)

	alpha := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		series[i] = values[i]*alpha + series[i-1]*(1-alpha)
	}

	return series
}
