package indicator

import (
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// MACD returns the MACD line (fast EMA minus slow EMA), the signal line
// (EMA of the MACD line) and the histogram (their difference) as of the
// last bar. The customary parameters are 12, 26 and 9. It needs
// slowPeriod+signalPeriod-1 bars to seed both averages.
func MACD(rates []types.Rate, fastPeriod, slowPeriod, signalPeriod int, price AppliedPrice) (macd, signal, histogram float64, err error) {
	if err := checkPeriod("MACD fast", fastPeriod); err != nil {
		return 0, 0, 0, err
	}

	if err := checkPeriod("MACD slow", slowPeriod); err != nil {
		return 0, 0, 0, err
	}

	if err := checkPeriod("MACD signal", signalPeriod); err != nil {
		return 0, 0, 0, err
	}

	if fastPeriod >= slowPeriod {
		return 0, 0, 0, errors.Newf(errors.ErrCodeInvalidParameter,
			"MACD fast period %d must be below slow period %d", fastPeriod, slowPeriod)
	}

	if err := checkBars("MACD", rates, slowPeriod+signalPeriod-1); err != nil {
		return 0, 0, 0, err
	}

	values := prices(rates, price)
	fast := emaSeries(values, fastPeriod)
	slow := emaSeries(values, slowPeriod)

	// The MACD line exists once the slow average is seeded.
	line := make([]float64, 0, len(values)-slowPeriod+1)
	for i := slowPeriod - 1; i < len(values); i++ {
		line = append(line, fast[i]-slow[i])
	}

	signalSeries := emaSeries(line, signalPeriod)

	macd = line[len(line)-1]
	signal = signalSeries[len(signalSeries)-1]

	return macd, signal, macd - signal, nil
}
