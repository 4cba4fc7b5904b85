package invoice

import (
	"github.com/shopspring/decimal"
)

// TotalPaid sums the given payment amounts.
func TotalPaid(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amt := range amounts {
		total = total.Add(amt)
	}
	return total
}

// RecomputeStatus derives an invoice's status from the amounts paid against it:
// paid iff the payments sum to at least the invoice amount.
func RecomputeStatus(inv Invoice, paid ...decimal.Decimal) string {
	if TotalPaid(paid...).GreaterThanOrEqual(inv.Amount) {
		return StatusPaid
	}
	return StatusUnpaid
}

// Outstanding is what remains to be paid on inv, never negative.
func Outstanding(inv Invoice, paid ...decimal.Decimal) decimal.Decimal {
	rest := inv.Amount.Sub(TotalPaid(paid...))
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}
