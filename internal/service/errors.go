package service

import (
	"errors"
	"fmt"
)

var (
	// ErrSettlementNotFound is returned when a settlement ID does not exist.
	ErrSettlementNotFound = errors.New("settlement not found")

	// ErrSettlementFinalized is returned when run or finalize targets a
	// settlement that has already been finalized. No mutation is performed.
	ErrSettlementFinalized = errors.New("settlement already finalized")

	// ErrRunInProgress is returned when a run for the same household and
	// period is already executing. Callers may retry.
	ErrRunInProgress = errors.New("settlement run already in progress")
)

// ValidationError is a caller-facing, recoverable input error: invalid
// period, unknown household, household with no active members. No partial
// state is written.
type ValidationError struct {
	Reason string
	Cause  error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation failed: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// ConsistencyFault is a fatal internal-consistency error: the computed
// balances do not reconcile. It indicates corrupted ledger data, is never
// silently patched, and aborts the run for operator investigation.
type ConsistencyFault struct {
	HouseholdID string
	Period      string
	Cause       error
}

func (e *ConsistencyFault) Error() string {
	return fmt.Sprintf("consistency fault for household %s period %s: %v", e.HouseholdID, e.Period, e.Cause)
}

func (e *ConsistencyFault) Unwrap() error { return e.Cause }
