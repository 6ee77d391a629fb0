package calculator

import (
	"github.com/mizutamari/warikan/internal/models"
)

type party struct {
	memberID  string
	remaining int64
}

// Net reduces a zero-sum balance set to a minimal list of directed
// transfers that clears every balance.
//
// Greedy matching: repeatedly pair the debtor with the largest remaining
// debt against the creditor with the largest remaining credit and transfer
// min(debt, credit) between them. Each step zeroes at least one party, so
// at most N-1 transfers are emitted for N non-zero balances. Ties on
// magnitude are broken by ascending member ID, keeping the output
// byte-identical across runs on identical input.
//
// Returns ErrUnbalanced without producing any transfers if the balances do
// not sum to exactly zero.
func Net(balances []models.Balance, description string) ([]models.Transfer, error) {
	if err := CheckZeroSum(balances); err != nil {
		return nil, err
	}

	var debtors, creditors []party
	for _, b := range balances {
		switch {
		case b.DeltaMinorUnits < 0:
			debtors = append(debtors, party{memberID: b.MemberID, remaining: -b.DeltaMinorUnits})
		case b.DeltaMinorUnits > 0:
			creditors = append(creditors, party{memberID: b.MemberID, remaining: b.DeltaMinorUnits})
		}
	}

	var transfers []models.Transfer
	for len(debtors) > 0 && len(creditors) > 0 {
		d := largest(debtors)
		c := largest(creditors)

		amount := debtors[d].remaining
		if creditors[c].remaining < amount {
			amount = creditors[c].remaining
		}

		transfers = append(transfers, models.Transfer{
			FromMemberID:     debtors[d].memberID,
			ToMemberID:       creditors[c].memberID,
			AmountMinorUnits: amount,
			Description:      description,
		})

		debtors[d].remaining -= amount
		creditors[c].remaining -= amount
		if debtors[d].remaining == 0 {
			debtors = append(debtors[:d], debtors[d+1:]...)
		}
		if creditors[c].remaining == 0 {
			creditors = append(creditors[:c], creditors[c+1:]...)
		}
	}

	return transfers, nil
}

// largest returns the index of the party with the largest remaining amount,
// breaking ties by ascending member ID.
func largest(parties []party) int {
	best := 0
	for i := 1; i < len(parties); i++ {
		if parties[i].remaining > parties[best].remaining ||
			(parties[i].remaining == parties[best].remaining && parties[i].memberID < parties[best].memberID) {
			best = i
		}
	}
	return best
}
