// Package calculator implements the settlement arithmetic: apportionment
// weights, fair-share splitting, payment aggregation, balance deltas, and
// transfer netting. Every function is pure and deterministic, and all money
// arithmetic is exact int64 minor units (no floating point).
package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mizutamari/warikan/internal/models"
)

// ErrIncomeOverflow means the declared incomes are too large to weight
// exactly in int64 arithmetic.
var ErrIncomeOverflow = errors.New("declared incomes overflow int64")

// Weight is one member's apportionment weight as an exact fraction Num/Den.
// All weights produced by ComputeWeights share the same denominator and
// their numerators sum to it, so the set sums to exactly 1.
type Weight struct {
	MemberID string
	Num      int64
	Den      int64
}

// Decimal renders the weight as a decimal fraction for display.
// Arithmetic never uses this form.
func (w Weight) Decimal() decimal.Decimal {
	if w.Den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(w.Num).DivRound(decimal.NewFromInt(w.Den), 6)
}

// ComputeWeights derives one apportionment weight per member from the
// period's income declarations and the household policy.
//
// Under income weighting, weight_i = netIncome_i / sum(netIncome). Members
// with no declaration get weight zero by default, or an imputed average
// income under models.MissingIncomeAverage. If every net income is zero the
// split falls back to equal weights rather than dividing by zero.
//
// The returned slice is sorted by ascending member ID. It is never empty
// unless memberIDs is empty, and it always sums to exactly 1. Declared
// incomes large enough to overflow the exact arithmetic fail with
// ErrIncomeOverflow.
func ComputeWeights(memberIDs []string, incomes []models.IncomeDeclaration, policy models.Policy) ([]Weight, error) {
	ids := append([]string(nil), memberIDs...)
	sort.Strings(ids)

	if policy.WeightingMode == models.WeightingEqual {
		return equalWeights(ids), nil
	}

	// Latest declaration per member wins.
	latest := make(map[string]models.IncomeDeclaration, len(incomes))
	for _, d := range incomes {
		if prev, ok := latest[d.MemberID]; !ok || d.DeclaredAt > prev.DeclaredAt {
			latest[d.MemberID] = d
		}
	}

	var declaredSum int64
	var declaredCount int64
	for _, id := range ids {
		if d, ok := latest[id]; ok {
			net := d.NetIncome()
			if net > math.MaxInt64-declaredSum {
				return nil, fmt.Errorf("%w: summing declared incomes", ErrIncomeOverflow)
			}
			declaredSum += net
			declaredCount++
		}
	}

	// Scale declared incomes by the declaring-member count so an imputed
	// average (declaredSum / declaredCount) stays an exact integer.
	scale := int64(1)
	imputed := int64(0)
	if policy.MissingIncomeMode == models.MissingIncomeAverage && declaredCount > 0 && declaredCount < int64(len(ids)) {
		scale = declaredCount
		imputed = declaredSum
	}

	nums := make([]int64, len(ids))
	var den int64
	for i, id := range ids {
		if d, ok := latest[id]; ok {
			net := d.NetIncome()
			if net > 0 && scale > math.MaxInt64/net {
				return nil, fmt.Errorf("%w: scaling income for member %s", ErrIncomeOverflow, id)
			}
			nums[i] = net * scale
		} else {
			nums[i] = imputed
		}
		if nums[i] > math.MaxInt64-den {
			return nil, fmt.Errorf("%w: accumulating denominator", ErrIncomeOverflow)
		}
		den += nums[i]
	}

	if den == 0 {
		return equalWeights(ids), nil
	}

	weights := make([]Weight, len(ids))
	for i, id := range ids {
		weights[i] = Weight{MemberID: id, Num: nums[i], Den: den}
	}
	return weights, nil
}

func equalWeights(sortedIDs []string) []Weight {
	n := int64(len(sortedIDs))
	weights := make([]Weight, len(sortedIDs))
	for i, id := range sortedIDs {
		weights[i] = Weight{MemberID: id, Num: 1, Den: n}
	}
	return weights
}
