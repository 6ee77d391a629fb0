package sqlite

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/mizutamari/warikan/internal/models"
	"github.com/mizutamari/warikan/internal/storage"
)

// setupTestStore creates a store backed by a temp database file.
func setupTestStore(t *testing.T) (*SQLiteStore, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	return store, func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}
}

// seedHousehold creates a household with the given member names and returns
// the household ID plus member IDs keyed by name.
func seedHousehold(t *testing.T, store *SQLiteStore, memberNames ...string) (string, map[string]string) {
	t.Helper()
	ctx := context.Background()

	household := &models.Household{Name: "test household"}
	if err := store.CreateHousehold(ctx, household); err != nil {
		t.Fatalf("CreateHousehold failed: %v", err)
	}

	memberIDs := make(map[string]string, len(memberNames))
	for _, name := range memberNames {
		member := &models.Member{HouseholdID: household.ID, Name: name}
		if err := store.AddMember(ctx, member); err != nil {
			t.Fatalf("AddMember(%s) failed: %v", name, err)
		}
		memberIDs[name] = member.ID
	}
	return household.ID, memberIDs
}

func TestHouseholdAndMembers(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	householdID, _ := seedHousehold(t, store, "alice", "bob")

	household, err := store.GetHousehold(ctx, householdID)
	if err != nil {
		t.Fatalf("GetHousehold failed: %v", err)
	}
	if household.Name != "test household" {
		t.Errorf("household name = %q", household.Name)
	}
	if household.CreatedAt == 0 {
		t.Error("CreatedAt not populated")
	}

	members, err := store.ListMembers(ctx, householdID)
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	for i := 1; i < len(members); i++ {
		if members[i-1].ID >= members[i].ID {
			t.Error("members not ordered by ID")
		}
	}

	if _, err := store.GetHousehold(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetHousehold(missing) = %v, want ErrNotFound", err)
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	period := models.Period{Year: 2026, Month: time.August}

	householdID, memberIDs := seedHousehold(t, store, "alice", "bob")

	expenses := []*models.ExpenseRecord{
		{HouseholdID: householdID, PayerMemberID: memberIDs["alice"], AmountMinorUnits: 3000, Period: period, ShouldApportion: true, Description: "groceries"},
		{HouseholdID: householdID, PayerMemberID: memberIDs["bob"], AmountMinorUnits: 1200, Period: period, ShouldApportion: false},
		{HouseholdID: householdID, PayerMemberID: memberIDs["alice"], AmountMinorUnits: 500, Period: models.Period{Year: 2026, Month: time.July}, ShouldApportion: true},
	}
	for _, e := range expenses {
		if err := store.RecordExpense(ctx, e); err != nil {
			t.Fatalf("RecordExpense failed: %v", err)
		}
	}

	got, err := store.ListExpenses(ctx, householdID, period)
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d expenses for period, want 2 (other periods excluded)", len(got))
	}
	if got[0].Description != "groceries" || !got[0].ShouldApportion {
		t.Errorf("first expense = %+v", got[0])
	}

	// Duplicate declarations: latest declared_at wins.
	decls := []*models.IncomeDeclaration{
		{MemberID: memberIDs["alice"], Period: period, GrossAmount: 100000, DeclaredAt: 10},
		{MemberID: memberIDs["alice"], Period: period, GrossAmount: 300000, DeclaredAt: 20},
		{MemberID: memberIDs["bob"], Period: period, GrossAmount: 150000, DeductionAmount: 50000, DeclaredAt: 15},
	}
	for _, d := range decls {
		if err := store.DeclareIncome(ctx, d); err != nil {
			t.Fatalf("DeclareIncome failed: %v", err)
		}
	}

	incomes, err := store.ListIncomes(ctx, householdID, period)
	if err != nil {
		t.Fatalf("ListIncomes failed: %v", err)
	}
	if len(incomes) != 2 {
		t.Fatalf("got %d income declarations, want 2", len(incomes))
	}
	byMember := make(map[string]models.IncomeDeclaration)
	for _, d := range incomes {
		byMember[d.MemberID] = d
	}
	if got := byMember[memberIDs["alice"]].GrossAmount; got != 300000 {
		t.Errorf("alice gross = %d, want 300000 (latest declaration)", got)
	}
	if got := byMember[memberIDs["bob"]].NetIncome(); got != 100000 {
		t.Errorf("bob net income = %d, want 100000", got)
	}

	if err := store.DeclareIncome(ctx, &models.IncomeDeclaration{MemberID: "missing", Period: period}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeclareIncome(missing member) = %v, want ErrNotFound", err)
	}
}

func TestRecordExpenseRejectsForeignPayer(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	period := models.Period{Year: 2026, Month: time.August}

	householdID, _ := seedHousehold(t, store, "alice", "bob")
	_, otherIDs := seedHousehold(t, store, "mallory")

	// A payer from another household must not get into the ledger; at
	// settlement time their payments would net out toward a non-member.
	err := store.RecordExpense(ctx, &models.ExpenseRecord{
		HouseholdID:      householdID,
		PayerMemberID:    otherIDs["mallory"],
		AmountMinorUnits: 1000,
		Period:           period,
		ShouldApportion:  true,
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("RecordExpense(foreign payer) = %v, want ErrNotFound", err)
	}

	err = store.RecordExpense(ctx, &models.ExpenseRecord{
		HouseholdID:      householdID,
		PayerMemberID:    "missing",
		AmountMinorUnits: 1000,
		Period:           period,
		ShouldApportion:  true,
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("RecordExpense(unknown payer) = %v, want ErrNotFound", err)
	}

	expenses, err := store.ListExpenses(ctx, householdID, period)
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(expenses) != 0 {
		t.Errorf("got %d expenses after rejected writes, want 0", len(expenses))
	}
}

func TestPolicyDefaultAndOverride(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	householdID, _ := seedHousehold(t, store, "alice")

	policy, err := store.GetPolicy(ctx, householdID)
	if err != nil {
		t.Fatalf("GetPolicy failed: %v", err)
	}
	if policy != models.DefaultPolicy(householdID) {
		t.Errorf("unset policy = %+v, want default", policy)
	}

	custom := models.Policy{
		HouseholdID:       householdID,
		WeightingMode:     models.WeightingEqual,
		MissingIncomeMode: models.MissingIncomeAverage,
		RoundingMode:      models.RoundingLargestRemainder,
	}
	if err := store.SetPolicy(ctx, custom); err != nil {
		t.Fatalf("SetPolicy failed: %v", err)
	}
	// SetPolicy upserts.
	custom.WeightingMode = models.WeightingIncome
	if err := store.SetPolicy(ctx, custom); err != nil {
		t.Fatalf("SetPolicy (replace) failed: %v", err)
	}

	policy, err = store.GetPolicy(ctx, householdID)
	if err != nil {
		t.Fatalf("GetPolicy failed: %v", err)
	}
	if policy != custom {
		t.Errorf("policy = %+v, want %+v", policy, custom)
	}
}

func draftFor(householdID string, period models.Period, transfers ...models.Transfer) *models.Settlement {
	var total int64
	for _, tr := range transfers {
		total += tr.AmountMinorUnits
	}
	return &models.Settlement{
		HouseholdID:   householdID,
		Period:        period,
		Transfers:     transfers,
		TotalExpenses: total * 2,
	}
}

func TestUpsertDraftCreateAndReplace(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	period := models.Period{Year: 2026, Month: time.August}

	householdID, memberIDs := seedHousehold(t, store, "alice", "bob")

	first, err := store.UpsertDraft(ctx, draftFor(householdID, period,
		models.Transfer{FromMemberID: memberIDs["bob"], ToMemberID: memberIDs["alice"], AmountMinorUnits: 250, Description: "settlement 2026-08"},
	))
	if err != nil {
		t.Fatalf("UpsertDraft failed: %v", err)
	}
	if first.ID == "" || first.Status != models.StatusDraft || first.CreatedAt == 0 {
		t.Fatalf("draft not initialized: %+v", first)
	}

	// Replace keeps identity, swaps content.
	second, err := store.UpsertDraft(ctx, draftFor(householdID, period,
		models.Transfer{FromMemberID: memberIDs["bob"], ToMemberID: memberIDs["alice"], AmountMinorUnits: 400},
	))
	if err != nil {
		t.Fatalf("UpsertDraft (replace) failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("replace changed settlement ID: %s -> %s", first.ID, second.ID)
	}
	if second.CreatedAt != first.CreatedAt {
		t.Errorf("replace changed CreatedAt")
	}

	stored, err := store.GetSettlement(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetSettlement failed: %v", err)
	}
	if len(stored.Transfers) != 1 || stored.Transfers[0].AmountMinorUnits != 400 {
		t.Errorf("stored transfers = %+v, want single 400 transfer", stored.Transfers)
	}
	if stored.TotalExpenses != 800 {
		t.Errorf("stored total = %d, want 800", stored.TotalExpenses)
	}

	// A different period is an independent settlement.
	other, err := store.UpsertDraft(ctx, draftFor(householdID, models.Period{Year: 2026, Month: time.September}))
	if err != nil {
		t.Fatalf("UpsertDraft (other period) failed: %v", err)
	}
	if other.ID == first.ID {
		t.Error("different periods share a settlement ID")
	}

	settlements, err := store.ListSettlements(ctx, householdID)
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(settlements) != 2 {
		t.Fatalf("got %d settlements, want 2", len(settlements))
	}
	if settlements[0].Period.String() != "2026-09" {
		t.Errorf("settlements not newest first: %s", settlements[0].Period)
	}
}

func TestFinalizeLifecycle(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	period := models.Period{Year: 2026, Month: time.August}

	householdID, memberIDs := seedHousehold(t, store, "alice", "bob")

	draft, err := store.UpsertDraft(ctx, draftFor(householdID, period,
		models.Transfer{FromMemberID: memberIDs["bob"], ToMemberID: memberIDs["alice"], AmountMinorUnits: 250},
	))
	if err != nil {
		t.Fatalf("UpsertDraft failed: %v", err)
	}

	finalized, err := store.MarkFinalized(ctx, draft.ID, 1700000000)
	if err != nil {
		t.Fatalf("MarkFinalized failed: %v", err)
	}
	if finalized.Status != models.StatusFinalized || finalized.FinalizedAt != 1700000000 {
		t.Errorf("finalized settlement = %+v", finalized)
	}

	// Second finalize fails the compare-and-set.
	if _, err := store.MarkFinalized(ctx, draft.ID, 1700000001); !errors.Is(err, storage.ErrSettlementFinalized) {
		t.Errorf("second MarkFinalized = %v, want ErrSettlementFinalized", err)
	}

	// Recompute against a finalized settlement is rejected and leaves the
	// transfers untouched.
	if _, err := store.UpsertDraft(ctx, draftFor(householdID, period,
		models.Transfer{FromMemberID: memberIDs["alice"], ToMemberID: memberIDs["bob"], AmountMinorUnits: 999},
	)); !errors.Is(err, storage.ErrSettlementFinalized) {
		t.Errorf("UpsertDraft on finalized = %v, want ErrSettlementFinalized", err)
	}
	stored, err := store.GetSettlement(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetSettlement failed: %v", err)
	}
	if len(stored.Transfers) != 1 || stored.Transfers[0].AmountMinorUnits != 250 {
		t.Errorf("finalized transfers changed: %+v", stored.Transfers)
	}

	if _, err := store.MarkFinalized(ctx, "missing", 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("MarkFinalized(missing) = %v, want ErrNotFound", err)
	}
}
