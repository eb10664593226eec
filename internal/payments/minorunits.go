package payments

import "math"

// ToMinorUnits converts a decimal price to the gateway's minor currency
// unit (cents). Rounding is round-half-up (12.505 -> 1251), fixed
// system-wide; prices are never negative so half-away-from-zero and
// half-up coincide.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
