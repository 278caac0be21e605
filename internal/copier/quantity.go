package copier

import "github.com/shopspring/decimal"

// ScaledQuantity computes floor(masterQty × multiplier), clamped to the
// follower's max order quantity when a cap is set. Decimal math keeps
// fractional multipliers exact (0.1 × 10 is 1, not 0.9999…).
func ScaledQuantity(masterQty int64, multiplier float64, maxQty int64) int64 {
	qty := decimal.NewFromInt(masterQty).
		Mul(decimal.NewFromFloat(multiplier)).
		Floor().
		IntPart()

	if qty < 0 {
		return 0
	}
	if maxQty > 0 && qty > maxQty {
		return maxQty
	}
	return qty
}
