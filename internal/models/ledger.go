package models

// Member represents a household participant.
// Membership is fixed for the duration of a settlement run.
type Member struct {
	// ID is the unique identifier for the member (UUID format).
	ID string

	// HouseholdID is the household this member belongs to.
	HouseholdID string

	// Name is the display name of the member.
	Name string

	// JoinedAt is the Unix timestamp when the member joined the household.
	JoinedAt int64
}

// Household represents a group of members sharing expenses.
type Household struct {
	// ID is the unique identifier for the household (UUID format).
	ID string

	// Name is the display name of the household.
	Name string

	// CreatedAt is the Unix timestamp when the household was created.
	CreatedAt int64
}

// IncomeDeclaration is a member's declared income for one period.
// Declarations are used only to derive apportionment weights; the engine
// never mutates them. If a member declares more than once for a period,
// the latest declaration wins.
type IncomeDeclaration struct {
	MemberID string
	Period   Period

	// GrossAmount is the declared gross income in minor units.
	GrossAmount int64

	// DeductionAmount is subtracted from gross before weighting.
	// Net income is clamped at zero.
	DeductionAmount int64

	// DeclaredAt is the Unix timestamp of the declaration, used to pick
	// the latest when duplicates exist.
	DeclaredAt int64
}

// NetIncome returns max(0, gross - deduction).
func (d IncomeDeclaration) NetIncome() int64 {
	net := d.GrossAmount - d.DeductionAmount
	if net < 0 {
		return 0
	}
	return net
}

// ExpenseRecord is a payment made by one member.
// Only records with ShouldApportion set participate in settlement; records
// without it are personal expenses and are excluded entirely.
type ExpenseRecord struct {
	// ID is the unique identifier for the record (UUID format).
	ID string

	// HouseholdID is the household the record belongs to.
	HouseholdID string

	// PayerMemberID is the member who actually paid.
	PayerMemberID string

	// AmountMinorUnits is the non-negative amount paid.
	AmountMinorUnits int64

	Period Period

	// ShouldApportion marks the record as a shared expense.
	ShouldApportion bool

	// Description is an optional label (e.g., "groceries").
	Description string

	// CreatedAt is the Unix timestamp when the record was created.
	CreatedAt int64
}

// Weighting modes for a household policy.
const (
	WeightingIncome = "income_weighted"
	WeightingEqual  = "equal_split"
)

// Missing-income modes: what weight a member with no declaration gets when
// other members did declare.
const (
	MissingIncomeZero    = "zero"
	MissingIncomeAverage = "average"
)

// RoundingLargestRemainder is the only rounding mode currently implemented.
const RoundingLargestRemainder = "largest_remainder"

// Policy is a household's apportionment policy.
type Policy struct {
	HouseholdID string

	// WeightingMode is WeightingIncome or WeightingEqual.
	WeightingMode string

	// MissingIncomeMode is MissingIncomeZero or MissingIncomeAverage.
	// Only meaningful under WeightingIncome.
	MissingIncomeMode string

	// RoundingMode is how sub-unit remainders are distributed.
	RoundingMode string
}

// DefaultPolicy returns the policy applied to households that never set one.
func DefaultPolicy(householdID string) Policy {
	return Policy{
		HouseholdID:       householdID,
		WeightingMode:     WeightingIncome,
		MissingIncomeMode: MissingIncomeZero,
		RoundingMode:      RoundingLargestRemainder,
	}
}
