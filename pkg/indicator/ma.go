package indicator

import "github.com/rxtech-lab/mtsim/internal/types"

// SMA returns the simple moving average of the applied price over the last
// period bars.
func SMA(rates []types.Rate, period int, price AppliedPrice) (float64, error) {
	if err := checkPeriod("SMA", period); err != nil {
		return 0, err
	}

	if err := checkBars("SMA", rates, period); err != nil {
		return 0, err
	}

	sum := 0.0
	for _, value := range prices(rates[len(rates)-period:], price) {
		sum += value
	}

	return sum / float64(period), nil
}
