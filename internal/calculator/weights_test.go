package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/mizutamari/warikan/internal/models"
)

func decl(memberID string, gross, deduction, declaredAt int64) models.IncomeDeclaration {
	return models.IncomeDeclaration{
		MemberID:        memberID,
		GrossAmount:     gross,
		DeductionAmount: deduction,
		DeclaredAt:      declaredAt,
	}
}

func TestComputeWeights(t *testing.T) {
	incomePolicy := models.Policy{
		WeightingMode:     models.WeightingIncome,
		MissingIncomeMode: models.MissingIncomeZero,
	}

	tests := []struct {
		name         string
		memberIDs    []string
		incomes      []models.IncomeDeclaration
		policy       models.Policy
		validateFunc func(t *testing.T, weights []Weight)
	}{
		{
			name:      "income weighted 75/25",
			memberIDs: []string{"alice", "bob"},
			incomes: []models.IncomeDeclaration{
				decl("alice", 300000, 0, 1),
				decl("bob", 100000, 0, 1),
			},
			policy: incomePolicy,
			validateFunc: func(t *testing.T, weights []Weight) {
				wantFraction(t, weights, "alice", 300000, 400000)
				wantFraction(t, weights, "bob", 100000, 400000)
				if got := byMember(t, weights, "alice").Decimal().String(); got != "0.75" {
					t.Errorf("alice decimal weight = %s, want 0.75", got)
				}
			},
		},
		{
			name:      "all zero incomes fall back to equal split",
			memberIDs: []string{"a", "b", "c"},
			incomes: []models.IncomeDeclaration{
				decl("a", 0, 0, 1),
				decl("b", 0, 0, 1),
				decl("c", 0, 0, 1),
			},
			policy: incomePolicy,
			validateFunc: func(t *testing.T, weights []Weight) {
				for _, id := range []string{"a", "b", "c"} {
					wantFraction(t, weights, id, 1, 3)
				}
			},
		},
		{
			name:      "no declarations at all fall back to equal split",
			memberIDs: []string{"a", "b"},
			incomes:   nil,
			policy:    incomePolicy,
			validateFunc: func(t *testing.T, weights []Weight) {
				wantFraction(t, weights, "a", 1, 2)
				wantFraction(t, weights, "b", 1, 2)
			},
		},
		{
			name:      "deduction clamps net income at zero",
			memberIDs: []string{"a", "b"},
			incomes: []models.IncomeDeclaration{
				decl("a", 100000, 150000, 1),
				decl("b", 200000, 50000, 1),
			},
			policy: incomePolicy,
			validateFunc: func(t *testing.T, weights []Weight) {
				wantFraction(t, weights, "a", 0, 150000)
				wantFraction(t, weights, "b", 150000, 150000)
			},
		},
		{
			name:      "equal split policy ignores incomes",
			memberIDs: []string{"a", "b"},
			incomes: []models.IncomeDeclaration{
				decl("a", 900000, 0, 1),
				decl("b", 100000, 0, 1),
			},
			policy: models.Policy{WeightingMode: models.WeightingEqual},
			validateFunc: func(t *testing.T, weights []Weight) {
				wantFraction(t, weights, "a", 1, 2)
				wantFraction(t, weights, "b", 1, 2)
			},
		},
		{
			// Default policy: a member without a declaration carries no
			// apportioned liability.
			name:      "missing declaration gets weight zero by default",
			memberIDs: []string{"a", "b", "c"},
			incomes: []models.IncomeDeclaration{
				decl("a", 200000, 0, 1),
				decl("b", 200000, 0, 1),
			},
			policy: incomePolicy,
			validateFunc: func(t *testing.T, weights []Weight) {
				wantFraction(t, weights, "a", 200000, 400000)
				wantFraction(t, weights, "b", 200000, 400000)
				wantFraction(t, weights, "c", 0, 400000)
			},
		},
		{
			name:      "missing declaration imputed the declared average",
			memberIDs: []string{"a", "b", "c"},
			incomes: []models.IncomeDeclaration{
				decl("a", 300000, 0, 1),
				decl("b", 100000, 0, 1),
			},
			policy: models.Policy{
				WeightingMode:     models.WeightingIncome,
				MissingIncomeMode: models.MissingIncomeAverage,
			},
			validateFunc: func(t *testing.T, weights []Weight) {
				// Scaled by declaring count (2): a=600000, b=200000,
				// c imputed 400000 (the 200000 average, scaled).
				wantFraction(t, weights, "a", 600000, 1200000)
				wantFraction(t, weights, "b", 200000, 1200000)
				wantFraction(t, weights, "c", 400000, 1200000)
			},
		},
		{
			name:      "latest duplicate declaration wins",
			memberIDs: []string{"a", "b"},
			incomes: []models.IncomeDeclaration{
				decl("a", 100000, 0, 1),
				decl("a", 300000, 0, 2),
				decl("b", 100000, 0, 1),
			},
			policy: incomePolicy,
			validateFunc: func(t *testing.T, weights []Weight) {
				wantFraction(t, weights, "a", 300000, 400000)
				wantFraction(t, weights, "b", 100000, 400000)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weights, err := ComputeWeights(tt.memberIDs, tt.incomes, tt.policy)
			if err != nil {
				t.Fatalf("ComputeWeights failed: %v", err)
			}
			if len(weights) != len(tt.memberIDs) {
				t.Fatalf("got %d weights, want %d", len(weights), len(tt.memberIDs))
			}
			for i := 1; i < len(weights); i++ {
				if weights[i-1].MemberID >= weights[i].MemberID {
					t.Errorf("weights not sorted by member ID: %q before %q", weights[i-1].MemberID, weights[i].MemberID)
				}
			}
			var numSum int64
			for _, w := range weights {
				if w.Den != weights[0].Den {
					t.Errorf("mixed denominators: %d vs %d", w.Den, weights[0].Den)
				}
				numSum += w.Num
			}
			if len(weights) > 0 && numSum != weights[0].Den {
				t.Errorf("weights sum to %d/%d, want exactly 1", numSum, weights[0].Den)
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, weights)
			}
		})
	}
}

func TestComputeWeightsOverflowingIncomes(t *testing.T) {
	tests := []struct {
		name    string
		incomes []models.IncomeDeclaration
		policy  models.Policy
	}{
		{
			name: "summing declared incomes overflows",
			incomes: []models.IncomeDeclaration{
				decl("a", math.MaxInt64, 0, 1),
				decl("b", 1, 0, 1),
			},
			policy: models.Policy{
				WeightingMode:     models.WeightingIncome,
				MissingIncomeMode: models.MissingIncomeZero,
			},
		},
		{
			// Two declarers and one missing member make the imputation
			// scale 2, which overflows the largest declared income.
			name: "average imputation scaling overflows",
			incomes: []models.IncomeDeclaration{
				decl("a", math.MaxInt64/2+1, 0, 1),
				decl("b", 1, 0, 1),
			},
			policy: models.Policy{
				WeightingMode:     models.WeightingIncome,
				MissingIncomeMode: models.MissingIncomeAverage,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeWeights([]string{"a", "b", "c"}, tt.incomes, tt.policy)
			if !errors.Is(err, ErrIncomeOverflow) {
				t.Errorf("ComputeWeights = %v, want ErrIncomeOverflow", err)
			}
		})
	}
}

func byMember(t *testing.T, weights []Weight, memberID string) Weight {
	t.Helper()
	for _, w := range weights {
		if w.MemberID == memberID {
			return w
		}
	}
	t.Fatalf("no weight for member %q", memberID)
	return Weight{}
}

func wantFraction(t *testing.T, weights []Weight, memberID string, num, den int64) {
	t.Helper()
	w := byMember(t, weights, memberID)
	if w.Num != num || w.Den != den {
		t.Errorf("%s weight = %d/%d, want %d/%d", memberID, w.Num, w.Den, num, den)
	}
}
