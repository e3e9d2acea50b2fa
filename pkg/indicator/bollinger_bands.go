package indicator

import (
	"math"

	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// Bollinger returns the upper, middle and lower Bollinger Bands over the
// last period bars. The middle band is the simple average of the applied
// price; the outer bands sit deviations population standard deviations
// away from it.
func Bollinger(rates []types.Rate, period int, deviations float64, price AppliedPrice) (upper, middle, lower float64, err error) {
	if err := checkPeriod("Bollinger", period); err != nil {
		return 0, 0, 0, err
	}

	if deviations <= 0 {
		return 0, 0, 0, errors.Newf(errors.ErrCodeInvalidParameter,
			"Bollinger deviations must be positive, got %f", deviations)
	}

	if err := checkBars("Bollinger", rates, period); err != nil {
		return 0, 0, 0, err
	}

	window := prices(rates[len(rates)-period:], price)

	sum := 0.0
	for _, value := range window {
		sum += value
	}

	middle = sum / float64(period)

	squaredDiffSum := 0.0
	for _, value := range window {
		diff := value - middle
		squaredDiffSum += diff * diff
	}

	stdDev := math.Sqrt(squaredDiffSum / float64(period))

	upper = middle + deviations*stdDev
	lower = middle - deviations*stdDev

	return upper, middle, lower, nil
}
