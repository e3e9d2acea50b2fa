// Package indicator provides the bar-series calculations robots build
// signals from: moving averages, RSI, ATR, MACD and Bollinger Bands. All
// functions take rates in ascending time order, as the terminal's CopyRates
// calls return them, and compute the value as of the last bar given.
package indicator

import (
	"github.com/rxtech-lab/mtsim/internal/types"
	"github.com/rxtech-lab/mtsim/pkg/errors"
)

// AppliedPrice selects the bar price a calculation runs on, mirroring the
// terminal's applied-price constants.
type AppliedPrice int

const (
	PriceClose AppliedPrice = iota
	PriceOpen
	PriceHigh
	PriceLow
	// PriceMedian is (high+low)/2.
	PriceMedian
	// PriceTypical is (high+low+close)/3.
	PriceTypical
	// PriceWeighted is (high+low+2*close)/4.
	PriceWeighted
)

// String returns the applied price name.
func (p AppliedPrice) String() string {
	switch p {
	case PriceClose:
		return "close"
	case PriceOpen:
		return "open"
	case PriceHigh:
		return "high"
	case PriceLow:
		return "low"
	case PriceMedian:
		return "median"
	case PriceTypical:
		return "typical"
	case PriceWeighted:
		return "weighted"
	default:
		return "unknown"
	}
}

// value extracts the applied price from a single bar.
func (p AppliedPrice) value(rate types.Rate) float64 {
	switch p {
	case PriceOpen:
		return rate.Open
	case PriceHigh:
		return rate.High
	case PriceLow:
		return rate.Low
	case PriceMedian:
		return (rate.High + rate.Low) / 2
	case PriceTypical:
		return (rate.High + rate.Low + rate.Close) / 3
	case PriceWeighted:
		return (rate.High + rate.Low + 2*rate.Close) / 4
	default:
		return rate.Close
	}
}

// prices extracts the applied price series from rates.
func prices(rates []types.Rate, price AppliedPrice) []float64 {
	values := make([]float64, len(rates))
	for i, rate := range rates {
		values[i] = price.value(rate)
	}

	return values
}

func checkPeriod(name string, period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"%s period must be a positive integer, got %d", name, period)
	}

	return nil
}

func checkBars(name string, rates []types.Rate, required int) error {
	if len(rates) < required {
		return errors.NewInsufficientDataErrorf(required, len(rates), "",
			"insufficient bars for %s: required %d, got %d", name, required, len(rates))
	}

	return nil
}
