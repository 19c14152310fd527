package core

// TitheRatePercent is the fixed tithe rate. Not configurable.
const TitheRatePercent = 10

// Allocation is the tithe/savings split of an income amount. All three
// values are in the same currency as the input.
type Allocation struct {
	Tithe     Money
	Remainder Money
	Savings   Money
}

// ComputeAllocation splits converted income cents into tithe, remainder
// and savings. Tithe is a fixed 10% of the income; savings is
// savingsPercentage of what remains after the tithe. Both divisions use
// half-up rounding so the split of 1000.00 at 20% is exactly
// 100.00 / 900.00 / 180.00.
func ComputeAllocation(income Money, savingsPercentage int) Allocation {
	tithe := roundedPercent(income.Cents, TitheRatePercent)
	remainder := income.Cents - tithe

	var savings int64
	if savingsPercentage > 0 {
		savings = roundedPercent(remainder, int64(savingsPercentage))
	}

	return Allocation{
		Tithe:     Money{Cents: tithe},
		Remainder: Money{Cents: remainder},
		Savings:   Money{Cents: savings},
	}
}

// roundedPercent computes cents*pct/100 with half-up rounding in pure
// integer arithmetic.
func roundedPercent(cents, pct int64) int64 {
	n := cents * pct
	q := n / 100
	if n%100 >= 50 {
		q++
	}
	return q
}
