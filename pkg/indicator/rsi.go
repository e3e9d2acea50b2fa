package indicator

import "github.com/rxtech-lab/mtsim/internal/types"

// RSI returns the relative strength index of the applied price as of the
// last bar, using Wilder's smoothing. It needs period+1 bars for the first
// price change. A window with no losing bars reads 100, one with no winning
// bars reads 0.
func RSI(rates []types.Rate, period int, price AppliedPrice) (float64, error) {
	if err := checkPeriod("RSI", period); err != nil {
		return 0, err
	}

	if err := checkBars("RSI", rates, period+1); err != nil {
		return 0, err
	}

	values := prices(rates, price)

	gains := make([]float64, 0, len(values)-1)
	losses := make([]float64, 0, len(values)-1)

	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	avgGain := 0.0
	avgLoss := 0.0

	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs)), nil
}
