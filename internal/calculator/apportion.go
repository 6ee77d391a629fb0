package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrBadWeights means the weight set does not sum to exactly 1.
	ErrBadWeights = errors.New("weights do not sum to 1")

	// ErrAmountOverflow means an intermediate product exceeded int64.
	ErrAmountOverflow = errors.New("amount overflows int64")
)

// Apportion splits total across members in proportion to their weights,
// using the largest-remainder method so the shares sum to exactly total.
//
// Each raw share is total*num/den floored to minor units; the leftover units
// are then handed out one at a time to the members with the largest
// fractional remainder, ties broken by ascending member ID. Members with
// weight zero never receive a remainder unit and always end at share zero.
func Apportion(total int64, weights []Weight) (map[string]int64, error) {
	if total < 0 {
		return nil, fmt.Errorf("total must be non-negative, got %d", total)
	}
	if len(weights) == 0 {
		return map[string]int64{}, nil
	}

	den := weights[0].Den
	var numSum int64
	for _, w := range weights {
		if w.Den != den || w.Num < 0 {
			return nil, ErrBadWeights
		}
		numSum += w.Num
	}
	if den <= 0 || numSum != den {
		return nil, ErrBadWeights
	}

	type candidate struct {
		memberID  string
		remainder int64
	}

	shares := make(map[string]int64, len(weights))
	var floored int64
	var candidates []candidate
	for _, w := range weights {
		if w.Num == 0 {
			shares[w.MemberID] = 0
			continue
		}
		if total > 0 && w.Num > math.MaxInt64/total {
			return nil, fmt.Errorf("%w: %d * %d/%d", ErrAmountOverflow, total, w.Num, den)
		}
		product := total * w.Num
		share := product / den
		shares[w.MemberID] = share
		floored += share
		candidates = append(candidates, candidate{memberID: w.MemberID, remainder: product % den})
	}

	// Hand out the rounding remainder, largest fractional part first.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].remainder != candidates[j].remainder {
			return candidates[i].remainder > candidates[j].remainder
		}
		return candidates[i].memberID < candidates[j].memberID
	})
	for i := int64(0); i < total-floored; i++ {
		shares[candidates[i].memberID]++
	}

	return shares, nil
}
