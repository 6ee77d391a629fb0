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

// UpsertDraft creates or replaces the DRAFT settlement for the settlement's
// household and period in one transaction. The draft keeps its original ID
// and CreatedAt across recomputations; transfers, shares, and totals are
// replaced wholesale. A FINALIZED settlement for the same household/period
// fails the upsert with storage.ErrSettlementFinalized before any write.
func (s *SQLiteStore) UpsertDraft(ctx context.Context, settlement *models.Settlement) (*models.Settlement, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID, existingStatus string
	var existingCreatedAt int64
	err = tx.QueryRowContext(ctx,
		"SELECT id, status, created_at FROM settlements WHERE household_id = ? AND period = ?",
		settlement.HouseholdID, settlement.Period.String(),
	).Scan(&existingID, &existingStatus, &existingCreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		settlement.ID = uuid.New().String()
		settlement.CreatedAt = time.Now().Unix()
		settlement.Status = models.StatusDraft
		_, err = tx.ExecContext(ctx,
			`INSERT INTO settlements (id, household_id, period, status, total_expenses, created_at, finalized_at)
			 VALUES (?, ?, ?, ?, ?, ?, NULL)`,
			settlement.ID, settlement.HouseholdID, settlement.Period.String(),
			settlement.Status, settlement.TotalExpenses, settlement.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert settlement: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up settlement: %w", err)
	case existingStatus == models.StatusFinalized:
		return nil, fmt.Errorf("settlement %s: %w", existingID, storage.ErrSettlementFinalized)
	default:
		settlement.ID = existingID
		settlement.CreatedAt = existingCreatedAt
		settlement.Status = models.StatusDraft
		// Guard against a concurrent finalize between the read above and
		// this write: the status predicate makes the replace a no-op if the
		// row is no longer DRAFT.
		res, err := tx.ExecContext(ctx,
			"UPDATE settlements SET total_expenses = ? WHERE id = ? AND status = ?",
			settlement.TotalExpenses, existingID, models.StatusDraft,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update settlement: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			return nil, fmt.Errorf("settlement %s: %w", existingID, storage.ErrSettlementFinalized)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM settlement_transfers WHERE settlement_id = ?", existingID); err != nil {
			return nil, fmt.Errorf("failed to clear transfers: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM settlement_shares WHERE settlement_id = ?", existingID); err != nil {
			return nil, fmt.Errorf("failed to clear shares: %w", err)
		}
	}

	for position, transfer := range settlement.Transfers {
		var description interface{}
		if transfer.Description != "" {
			description = transfer.Description
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO settlement_transfers (settlement_id, position, from_member_id, to_member_id, amount, description)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			settlement.ID, position, transfer.FromMemberID, transfer.ToMemberID,
			transfer.AmountMinorUnits, description,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert transfer: %w", err)
		}
	}

	for _, share := range settlement.Shares {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO settlement_shares (settlement_id, member_id, weight, fair_share, paid, delta)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			settlement.ID, share.MemberID, share.Weight, share.FairShare, share.Paid, share.Delta,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return settlement, nil
}

// MarkFinalized transitions a settlement from DRAFT to FINALIZED with a
// compare-and-set on status, so a concurrent recompute and finalize cannot
// both win.
func (s *SQLiteStore) MarkFinalized(ctx context.Context, settlementID string, finalizedAt int64) (*models.Settlement, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE settlements SET status = ?, finalized_at = ? WHERE id = ? AND status = ?",
		models.StatusFinalized, finalizedAt, settlementID, models.StatusDraft,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize settlement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish missing from already finalized.
		var status string
		err := s.db.QueryRowContext(ctx, "SELECT status FROM settlements WHERE id = ?", settlementID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check settlement status: %w", err)
		}
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrSettlementFinalized)
	}
	return s.GetSettlement(ctx, settlementID)
}

// GetSettlement retrieves a settlement with its transfers and shares.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement := &models.Settlement{}
	var periodStr string
	var finalizedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, household_id, period, status, total_expenses, created_at, finalized_at
		 FROM settlements WHERE id = ?`,
		settlementID,
	).Scan(&settlement.ID, &settlement.HouseholdID, &periodStr, &settlement.Status,
		&settlement.TotalExpenses, &settlement.CreatedAt, &finalizedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	settlement.Period, err = models.ParsePeriod(periodStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored period: %w", err)
	}
	if finalizedAt.Valid {
		settlement.FinalizedAt = finalizedAt.Int64
	}

	if err := s.loadTransfersAndShares(ctx, settlement); err != nil {
		return nil, err
	}
	return settlement, nil
}

// ListSettlements returns all settlements for a household, newest period
// first.
func (s *SQLiteStore) ListSettlements(ctx context.Context, householdID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, household_id, period, status, total_expenses, created_at, finalized_at
		 FROM settlements WHERE household_id = ? ORDER BY period DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement := &models.Settlement{}
		var periodStr string
		var finalizedAt sql.NullInt64
		if err := rows.Scan(&settlement.ID, &settlement.HouseholdID, &periodStr, &settlement.Status,
			&settlement.TotalExpenses, &settlement.CreatedAt, &finalizedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlement.Period, err = models.ParsePeriod(periodStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored period: %w", err)
		}
		if finalizedAt.Valid {
			settlement.FinalizedAt = finalizedAt.Int64
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	for _, settlement := range settlements {
		if err := s.loadTransfersAndShares(ctx, settlement); err != nil {
			return nil, err
		}
	}
	return settlements, nil
}

func (s *SQLiteStore) loadTransfersAndShares(ctx context.Context, settlement *models.Settlement) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_member_id, to_member_id, amount, description
		 FROM settlement_transfers WHERE settlement_id = ? ORDER BY position`,
		settlement.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get transfers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var transfer models.Transfer
		var description sql.NullString
		if err := rows.Scan(&transfer.FromMemberID, &transfer.ToMemberID,
			&transfer.AmountMinorUnits, &description); err != nil {
			return fmt.Errorf("failed to scan transfer: %w", err)
		}
		if description.Valid {
			transfer.Description = description.String
		}
		settlement.Transfers = append(settlement.Transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate transfers: %w", err)
	}

	shareRows, err := s.db.QueryContext(ctx,
		`SELECT member_id, weight, fair_share, paid, delta
		 FROM settlement_shares WHERE settlement_id = ? ORDER BY member_id`,
		settlement.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get shares: %w", err)
	}
	defer shareRows.Close()

	for shareRows.Next() {
		var share models.MemberShare
		if err := shareRows.Scan(&share.MemberID, &share.Weight, &share.FairShare,
			&share.Paid, &share.Delta); err != nil {
			return fmt.Errorf("failed to scan share: %w", err)
		}
		settlement.Shares = append(settlement.Shares, share)
	}
	if err := shareRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate shares: %w", err)
	}
	return nil
}
