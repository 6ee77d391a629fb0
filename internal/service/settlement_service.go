// Package service implements the settlement lifecycle: running the
// settlement computation for a household and period, finalizing drafts,
// and reading settlements back.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mizutamari/warikan/internal/calculator"
	"github.com/mizutamari/warikan/internal/models"
	"github.com/mizutamari/warikan/internal/storage"
)

// SettlementService orchestrates the settlement pipeline against a store.
//
// The computation itself is pure; the only shared mutable state is the
// persisted settlement row. Runs for the same household/period are
// serialized by a keyed in-process lock on top of the store's transactional
// upsert, so two concurrent recomputations cannot interleave their writes.
// Runs for different households or periods proceed independently.
type SettlementService struct {
	store storage.Store

	mu         sync.Mutex
	activeRuns map[string]struct{}
}

// NewSettlementService creates a new SettlementService with the given
// storage backend.
func NewSettlementService(store storage.Store) *SettlementService {
	return &SettlementService{
		store:      store,
		activeRuns: make(map[string]struct{}),
	}
}

// tryAcquireRun marks a household/period run as in flight. It returns false
// if one is already running. The returned release removes the entry again,
// so the set only ever holds currently running keys.
func (s *SettlementService) tryAcquireRun(householdID string, period models.Period) (release func(), ok bool) {
	key := householdID + "|" + period.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.activeRuns[key]; busy {
		return nil, false
	}
	s.activeRuns[key] = struct{}{}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.activeRuns, key)
	}, true
}

// Run computes a fresh settlement for the household and period from current
// ledger data and upserts it as a DRAFT. Identical ledger data always
// yields an identical draft (same transfers, same order), so Run is
// idempotent with respect to ledger state. A FINALIZED settlement for the
// period makes the call fail with ErrSettlementFinalized; a concurrent run
// for the same household/period fails with ErrRunInProgress.
func (s *SettlementService) Run(ctx context.Context, householdID string, period models.Period) (*models.Settlement, error) {
	start := time.Now()
	settlement, err := s.run(ctx, householdID, period)
	runDuration.Observe(time.Since(start).Seconds())
	runsTotal.WithLabelValues(outcomeFor(err)).Inc()

	if err != nil {
		slog.Warn("settlement run failed",
			"household_id", householdID,
			"period", period.String(),
			"error", err,
		)
		return nil, err
	}

	transfersPerSettlement.Observe(float64(len(settlement.Transfers)))
	slog.Info("settlement run complete",
		"household_id", householdID,
		"period", period.String(),
		"settlement_id", settlement.ID,
		"total_expenses", settlement.TotalExpenses,
		"transfers", len(settlement.Transfers),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return settlement, nil
}

func (s *SettlementService) run(ctx context.Context, householdID string, period models.Period) (*models.Settlement, error) {
	if err := period.Validate(); err != nil {
		return nil, &ValidationError{Reason: "invalid period", Cause: err}
	}

	release, ok := s.tryAcquireRun(householdID, period)
	if !ok {
		return nil, fmt.Errorf("%w: household %s period %s", ErrRunInProgress, householdID, period)
	}
	defer release()

	if _, err := s.store.GetHousehold(ctx, householdID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &ValidationError{Reason: "unknown household", Cause: err}
		}
		return nil, fmt.Errorf("failed to load household: %w", err)
	}

	members, err := s.store.ListMembers(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	if len(members) == 0 {
		return nil, &ValidationError{Reason: "household has no active members"}
	}
	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}

	policy, err := s.store.GetPolicy(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	incomes, err := s.store.ListIncomes(ctx, householdID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load incomes: %w", err)
	}
	expenses, err := s.store.ListExpenses(ctx, householdID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	total := calculator.TotalApportionable(expenses)
	weights, err := calculator.ComputeWeights(memberIDs, incomes, policy)
	if err != nil {
		return nil, &ConsistencyFault{HouseholdID: householdID, Period: period.String(), Cause: err}
	}

	fairShares, err := calculator.Apportion(total, weights)
	if err != nil {
		return nil, &ConsistencyFault{HouseholdID: householdID, Period: period.String(), Cause: err}
	}
	paid := calculator.AggregatePayments(expenses)
	if unknown := calculator.UnknownPayers(paid, memberIDs); len(unknown) > 0 {
		return nil, &ConsistencyFault{
			HouseholdID: householdID,
			Period:      period.String(),
			Cause:       fmt.Errorf("apportionable expenses paid by non-members: %v", unknown),
		}
	}
	balances := calculator.ComputeDeltas(fairShares, paid, memberIDs)
	if err := calculator.CheckZeroSum(balances); err != nil {
		return nil, &ConsistencyFault{HouseholdID: householdID, Period: period.String(), Cause: err}
	}

	transfers, err := calculator.Net(balances, "settlement "+period.String())
	if err != nil {
		return nil, &ConsistencyFault{HouseholdID: householdID, Period: period.String(), Cause: err}
	}

	shares := make([]models.MemberShare, len(weights))
	for i, w := range weights {
		shares[i] = models.MemberShare{
			MemberID:  w.MemberID,
			Weight:    w.Decimal().String(),
			FairShare: fairShares[w.MemberID],
			Paid:      paid[w.MemberID],
			Delta:     paid[w.MemberID] - fairShares[w.MemberID],
		}
	}

	settlement, err := s.store.UpsertDraft(ctx, &models.Settlement{
		HouseholdID:   householdID,
		Period:        period,
		Transfers:     transfers,
		Shares:        shares,
		TotalExpenses: total,
	})
	if err != nil {
		if errors.Is(err, storage.ErrSettlementFinalized) {
			return nil, fmt.Errorf("%w: household %s period %s", ErrSettlementFinalized, householdID, period)
		}
		return nil, fmt.Errorf("failed to persist draft: %w", err)
	}
	return settlement, nil
}

// Finalize transitions a DRAFT settlement to FINALIZED, stamping
// FinalizedAt. The transition is a compare-and-set in the store, happens at
// most once, and is irreversible; afterwards no recomputation can touch the
// settlement.
func (s *SettlementService) Finalize(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement, err := s.store.MarkFinalized(ctx, settlementID, time.Now().Unix())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrSettlementNotFound, settlementID)
		case errors.Is(err, storage.ErrSettlementFinalized):
			return nil, fmt.Errorf("%w: %s", ErrSettlementFinalized, settlementID)
		}
		return nil, fmt.Errorf("failed to finalize settlement: %w", err)
	}

	slog.Info("settlement finalized",
		"settlement_id", settlement.ID,
		"household_id", settlement.HouseholdID,
		"period", settlement.Period.String(),
	)
	return settlement, nil
}

// Get retrieves one settlement by ID. Reads never mutate state.
func (s *SettlementService) Get(ctx context.Context, settlementID string) (*models.Settlement, error) {
	settlement, err := s.store.GetSettlement(ctx, settlementID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSettlementNotFound, settlementID)
		}
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return settlement, nil
}

// List returns all settlements for a household, newest period first.
func (s *SettlementService) List(ctx context.Context, householdID string) ([]*models.Settlement, error) {
	settlements, err := s.store.ListSettlements(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	return settlements, nil
}

func outcomeFor(err error) string {
	var validation *ValidationError
	var consistency *ConsistencyFault
	switch {
	case err == nil:
		return outcomeOK
	case errors.As(err, &validation):
		return outcomeValidation
	case errors.As(err, &consistency):
		return outcomeConsistency
	case errors.Is(err, ErrSettlementFinalized), errors.Is(err, ErrRunInProgress):
		return outcomeConflict
	default:
		return outcomeInternal
	}
}
