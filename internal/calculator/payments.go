package calculator

import "github.com/mizutamari/warikan/internal/models"

// TotalApportionable sums the amounts of all records flagged for
// apportionment. Personal (unflagged) records are ignored.
func TotalApportionable(records []models.ExpenseRecord) int64 {
	var total int64
	for _, r := range records {
		if r.ShouldApportion {
			total += r.AmountMinorUnits
		}
	}
	return total
}

// AggregatePayments sums, per payer, the amounts actually paid toward
// shared expenses. Unflagged records are excluded entirely; members who
// paid nothing are simply absent from the map.
func AggregatePayments(records []models.ExpenseRecord) map[string]int64 {
	paid := make(map[string]int64)
	for _, r := range records {
		if r.ShouldApportion {
			paid[r.PayerMemberID] += r.AmountMinorUnits
		}
	}
	return paid
}
