package calculator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mizutamari/warikan/internal/models"
)

// ErrUnbalanced means the balances do not sum to zero. This indicates
// inconsistent ledger data (e.g. an apportioned expense paid by someone
// outside the member list) and must abort the run, never be patched over.
var ErrUnbalanced = errors.New("balances do not sum to zero")

// ComputeDeltas produces one balance per member: actual paid minus fair
// share, both defaulting to zero for members absent from either map.
// Only members in memberIDs (plus any fair-share keys) get a balance;
// payments keyed by anyone else are deliberately NOT folded in, so an
// apportioned expense paid by a non-member leaves a non-zero residual for
// CheckZeroSum to reject instead of being netted as if the stranger were a
// creditor.
//
// The result is sorted by ascending member ID.
func ComputeDeltas(fairShares, paid map[string]int64, memberIDs []string) []models.Balance {
	ids := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		ids[id] = struct{}{}
	}
	for id := range fairShares {
		ids[id] = struct{}{}
	}

	balances := make([]models.Balance, 0, len(ids))
	for id := range ids {
		balances = append(balances, models.Balance{
			MemberID:        id,
			DeltaMinorUnits: paid[id] - fairShares[id],
		})
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].MemberID < balances[j].MemberID
	})
	return balances
}

// CheckZeroSum verifies the core invariant that all deltas cancel out.
func CheckZeroSum(balances []models.Balance) error {
	var sum int64
	for _, b := range balances {
		sum += b.DeltaMinorUnits
	}
	if sum != 0 {
		return fmt.Errorf("%w: residual %d", ErrUnbalanced, sum)
	}
	return nil
}

// UnknownPayers returns the payer IDs in paid that are not in memberIDs,
// sorted ascending. A non-empty result means the ledger attributes shared
// payments to someone outside the household.
func UnknownPayers(paid map[string]int64, memberIDs []string) []string {
	ids := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		ids[id] = struct{}{}
	}
	var unknown []string
	for id := range paid {
		if _, ok := ids[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	return unknown
}
