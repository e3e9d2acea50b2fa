package utils

import (
	"math"
	"time"
)

// MonthBounds returns the first and last instant of dt's month in UTC. The
// end bound is 23:59:59 of the month's last day, matching how download
// ranges are chunked.
func MonthBounds(dt time.Time) (time.Time, time.Time) {
	dt = dt.UTC()
	start := time.Date(dt.Year(), dt.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)

	return start, end
}

// NextMonth returns the first instant of the month after dt, in UTC.
func NextMonth(dt time.Time) time.Time {
	start, _ := MonthBounds(dt)

	return start.AddDate(0, 1, 0)
}

// EnsureUTC normalizes a timestamp to UTC. The zero time is returned as is.
func EnsureUTC(dt time.Time) time.Time {
	if dt.IsZero() {
		return dt
	}

	return dt.UTC()
}

// RoundPrice rounds a price to the given number of digits.
func RoundPrice(price float64, digits int) float64 {
	scale := math.Pow10(digits)

	return math.Round(price*scale) / scale
}

// RoundMoney rounds an amount to two decimal places, the precision used for
// margin and profit figures.
func RoundMoney(amount float64) float64 {
	return RoundPrice(amount, 2)
}
