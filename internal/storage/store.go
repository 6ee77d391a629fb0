// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mizutamari/warikan/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSettlementFinalized is returned when a write targets a settlement
	// that has already been finalized.
	ErrSettlementFinalized = errors.New("settlement is finalized")
)

// Store defines the interface for ledger and settlement persistence.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
type Store interface {
	// CreateHousehold persists a new household. ID and CreatedAt are
	// populated by the store if unset.
	CreateHousehold(ctx context.Context, household *models.Household) error

	// GetHousehold retrieves a household by ID.
	GetHousehold(ctx context.Context, householdID string) (*models.Household, error)

	// AddMember persists a new household member.
	AddMember(ctx context.Context, member *models.Member) error

	// ListMembers returns all members of a household, ordered by ID.
	ListMembers(ctx context.Context, householdID string) ([]*models.Member, error)

	// RecordExpense persists one expense record.
	RecordExpense(ctx context.Context, record *models.ExpenseRecord) error

	// ListExpenses returns all expense records for a household and period,
	// flagged and unflagged alike, as a single consistent snapshot.
	ListExpenses(ctx context.Context, householdID string, period models.Period) ([]models.ExpenseRecord, error)

	// DeclareIncome persists one income declaration.
	DeclareIncome(ctx context.Context, declaration *models.IncomeDeclaration) error

	// ListIncomes returns the effective income declarations for a household
	// and period, at most one per member (latest declaration wins).
	ListIncomes(ctx context.Context, householdID string, period models.Period) ([]models.IncomeDeclaration, error)

	// SetPolicy stores or replaces a household's apportionment policy.
	SetPolicy(ctx context.Context, policy models.Policy) error

	// GetPolicy returns the household's policy, or the default policy if
	// none was ever set.
	GetPolicy(ctx context.Context, householdID string) (models.Policy, error)

	// UpsertDraft creates or replaces the DRAFT settlement for the
	// settlement's household and period in a single transaction. An
	// existing draft keeps its ID and CreatedAt; its transfers, shares and
	// totals are replaced wholesale. Returns ErrSettlementFinalized
	// without writing anything if the existing settlement is FINALIZED.
	UpsertDraft(ctx context.Context, settlement *models.Settlement) (*models.Settlement, error)

	// MarkFinalized atomically transitions a settlement from DRAFT to
	// FINALIZED (compare-and-set on status). Returns ErrNotFound if no
	// such settlement exists and ErrSettlementFinalized if it is already
	// FINALIZED.
	MarkFinalized(ctx context.Context, settlementID string, finalizedAt int64) (*models.Settlement, error)

	// GetSettlement retrieves a settlement with its transfers and shares.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// ListSettlements returns all settlements for a household, newest
	// period first, each with transfers and shares attached.
	ListSettlements(ctx context.Context, householdID string) ([]*models.Settlement, error)

	// Close releases any resources held by the store.
	Close() error
}
