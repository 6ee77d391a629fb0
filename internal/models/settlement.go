package models

// Settlement statuses. A settlement is created as DRAFT, may be recomputed
// any number of times while DRAFT, and transitions exactly once to
// FINALIZED.
const (
	StatusDraft     = "DRAFT"
	StatusFinalized = "FINALIZED"
)

// Transfer represents a single directed payment that helps clear a
// settlement: FromMemberID pays ToMemberID the given amount.
type Transfer struct {
	// FromMemberID is the member who owes (debtor settling up).
	FromMemberID string

	// ToMemberID is the member who is owed (creditor being paid).
	ToMemberID string

	// AmountMinorUnits is always positive.
	AmountMinorUnits int64

	// Description is an optional label, e.g. "settlement 2026-08".
	Description string
}

// Balance is a member's settlement delta: actual paid minus fair share.
// Positive means the member is owed money, negative means the member owes.
type Balance struct {
	MemberID        string
	DeltaMinorUnits int64
}

// MemberShare is one member's line on a settlement report.
type MemberShare struct {
	MemberID string

	// Weight is the member's apportionment weight rendered as a decimal
	// string (e.g. "0.75"). Informational only; all arithmetic is exact.
	Weight string

	// FairShare is what the member should have contributed, in minor units.
	FairShare int64

	// Paid is what the member actually paid toward shared expenses.
	Paid int64

	// Delta is Paid - FairShare.
	Delta int64
}

// Settlement is the persisted result of a settlement run for one
// household and period. It exclusively owns its transfer list.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// HouseholdID is the household this settlement belongs to.
	HouseholdID string

	Period Period

	// Status is StatusDraft or StatusFinalized.
	Status string

	// Transfers is the ordered minimal transfer list produced by netting.
	Transfers []Transfer

	// Shares is the per-member breakdown the transfers were derived from.
	Shares []MemberShare

	// TotalExpenses is the sum of apportionable expenses for the period.
	TotalExpenses int64

	// CreatedAt is the Unix timestamp when the draft was first created.
	CreatedAt int64

	// FinalizedAt is the Unix timestamp of finalization, 0 while DRAFT.
	FinalizedAt int64
}
