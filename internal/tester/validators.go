package tester

import (
	"math"

	"github.com/rxtech-lab/mtsim/internal/types"
)

// volumeStepEpsilon is the tolerance used when checking that a lot size is
// a whole multiple of the symbol's volume step.
const volumeStepEpsilon = 1e-7

// tradeValidator checks a trade request against a symbol's trading
// constraints, mirroring the checks the trade server runs before accepting
// an order.
type tradeValidator struct {
	spec types.SymbolInfo
}

// priceEqual compares two prices within eps, the symbol's price precision.
func priceEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// validSL reports whether a stop loss sits on the losing side of the entry
// price. A zero stop loss is always valid.
func (v tradeValidator) validSL(entry, sl float64, orderType types.OrderType) bool {
	if sl <= 0 {
		return true
	}

	switch {
	case orderType.IsBuy():
		return sl < entry
	case orderType.IsSell():
		return sl > entry
	default:
		return false
	}
}

// validTP reports whether a take profit sits on the winning side of the
// entry price. A zero take profit is always valid.
func (v tradeValidator) validTP(entry, tp float64, orderType types.OrderType) bool {
	if tp <= 0 {
		return true
	}

	switch {
	case orderType.IsBuy():
		return tp > entry
	case orderType.IsSell():
		return tp < entry
	default:
		return false
	}
}

// validLot reports whether a volume respects the symbol's minimum, maximum
// and step.
func (v tradeValidator) validLot(volume float64) bool {
	if volume < v.spec.VolumeMin || volume > v.spec.VolumeMax {
		return false
	}

	if v.spec.VolumeStep > 0 {
		steps := volume / v.spec.VolumeStep
		if math.Abs(steps-math.Round(steps)) > volumeStepEpsilon {
			return false
		}
	}

	return true
}

// insideStopsLevel reports whether a stop sits closer to the reference
// price than the symbol's minimal stop distance. Zero stops and a zero
// stops level always pass.
func (v tradeValidator) insideStopsLevel(reference, stop float64) bool {
	if stop <= 0 || v.spec.TradeStopsLevel <= 0 {
		return false
	}

	return math.Abs(reference-stop) < float64(v.spec.TradeStopsLevel)*v.spec.Point
}

// insideFreezeLevel reports whether a stop sits inside the symbol's freeze
// distance, where the terminal prohibits modifications.
func (v tradeValidator) insideFreezeLevel(reference, stop float64) bool {
	if stop <= 0 || v.spec.TradeFreezeLevel <= 0 {
		return false
	}

	return math.Abs(reference-stop) < float64(v.spec.TradeFreezeLevel)*v.spec.Point
}
