package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mizutamari/warikan/internal/models"
	"github.com/mizutamari/warikan/internal/storage"
)

// RecordExpense persists one expense record. The payer must be a member of
// record.HouseholdID; a payer from another household would poison the
// settlement balances.
func (s *SQLiteStore) RecordExpense(ctx context.Context, record *models.ExpenseRecord) error {
	if record.AmountMinorUnits < 0 {
		return fmt.Errorf("expense amount must be non-negative, got %d", record.AmountMinorUnits)
	}

	var payerHousehold string
	err := s.db.QueryRowContext(ctx,
		"SELECT household_id FROM members WHERE id = ?", record.PayerMemberID,
	).Scan(&payerHousehold)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("payer %s: %w", record.PayerMemberID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve payer household: %w", err)
	}
	if payerHousehold != record.HouseholdID {
		return fmt.Errorf("payer %s is not a member of household %s: %w",
			record.PayerMemberID, record.HouseholdID, storage.ErrNotFound)
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}

	var description interface{}
	if record.Description != "" {
		description = record.Description
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO expense_records (id, household_id, payer_member_id, amount, period, should_apportion, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.HouseholdID, record.PayerMemberID, record.AmountMinorUnits,
		record.Period.String(), record.ShouldApportion, description, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense record: %w", err)
	}
	return nil
}

// ListExpenses returns all expense records for a household and period.
func (s *SQLiteStore) ListExpenses(ctx context.Context, householdID string, period models.Period) ([]models.ExpenseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, household_id, payer_member_id, amount, should_apportion, description, created_at
		 FROM expense_records WHERE household_id = ? AND period = ? ORDER BY created_at, id`,
		householdID, period.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var records []models.ExpenseRecord
	for rows.Next() {
		record := models.ExpenseRecord{Period: period}
		var description sql.NullString
		if err := rows.Scan(&record.ID, &record.HouseholdID, &record.PayerMemberID,
			&record.AmountMinorUnits, &record.ShouldApportion, &description, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense record: %w", err)
		}
		if description.Valid {
			record.Description = description.String
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expense records: %w", err)
	}
	return records, nil
}

// DeclareIncome persists one income declaration.
func (s *SQLiteStore) DeclareIncome(ctx context.Context, declaration *models.IncomeDeclaration) error {
	if declaration.GrossAmount < 0 || declaration.DeductionAmount < 0 {
		return fmt.Errorf("income amounts must be non-negative")
	}
	if declaration.DeclaredAt == 0 {
		declaration.DeclaredAt = time.Now().Unix()
	}

	var householdID string
	err := s.db.QueryRowContext(ctx,
		"SELECT household_id FROM members WHERE id = ?", declaration.MemberID,
	).Scan(&householdID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("member %s: %w", declaration.MemberID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve member household: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO income_declarations (household_id, member_id, period, gross_amount, deduction_amount, declared_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, declaration.MemberID, declaration.Period.String(),
		declaration.GrossAmount, declaration.DeductionAmount, declaration.DeclaredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert income declaration: %w", err)
	}
	return nil
}

// ListIncomes returns the effective declarations for a household and period,
// at most one per member. When a member declared more than once, the row
// with the greatest declared_at wins.
func (s *SQLiteStore) ListIncomes(ctx context.Context, householdID string, period models.Period) ([]models.IncomeDeclaration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT member_id, gross_amount, deduction_amount, MAX(declared_at)
		 FROM income_declarations WHERE household_id = ? AND period = ?
		 GROUP BY member_id ORDER BY member_id`,
		householdID, period.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list incomes: %w", err)
	}
	defer rows.Close()

	var declarations []models.IncomeDeclaration
	for rows.Next() {
		declaration := models.IncomeDeclaration{Period: period}
		if err := rows.Scan(&declaration.MemberID, &declaration.GrossAmount,
			&declaration.DeductionAmount, &declaration.DeclaredAt); err != nil {
			return nil, fmt.Errorf("failed to scan income declaration: %w", err)
		}
		declarations = append(declarations, declaration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate income declarations: %w", err)
	}
	return declarations, nil
}

// SetPolicy stores or replaces a household's apportionment policy.
func (s *SQLiteStore) SetPolicy(ctx context.Context, policy models.Policy) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO household_policies (household_id, weighting_mode, missing_income_mode, rounding_mode)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(household_id) DO UPDATE SET
		   weighting_mode = excluded.weighting_mode,
		   missing_income_mode = excluded.missing_income_mode,
		   rounding_mode = excluded.rounding_mode`,
		policy.HouseholdID, policy.WeightingMode, policy.MissingIncomeMode, policy.RoundingMode,
	)
	if err != nil {
		return fmt.Errorf("failed to set policy: %w", err)
	}
	return nil
}

// GetPolicy returns the household's policy, defaulting when none was set.
func (s *SQLiteStore) GetPolicy(ctx context.Context, householdID string) (models.Policy, error) {
	policy := models.Policy{HouseholdID: householdID}
	err := s.db.QueryRowContext(ctx,
		`SELECT weighting_mode, missing_income_mode, rounding_mode
		 FROM household_policies WHERE household_id = ?`,
		householdID,
	).Scan(&policy.WeightingMode, &policy.MissingIncomeMode, &policy.RoundingMode)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultPolicy(householdID), nil
	}
	if err != nil {
		return models.Policy{}, fmt.Errorf("failed to get policy: %w", err)
	}
	return policy, nil
}
