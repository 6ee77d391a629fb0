// Package models defines the core domain models for Warikan.
//
// # Model Groups
//
// Ledger models, owned by the household ledger and only ever read by the
// settlement engine:
//   - Member: a household participant
//   - IncomeDeclaration: a member's declared income for one period
//   - ExpenseRecord: a payment made by a member, optionally apportionable
//   - Policy: how a household apportions shared expenses
//
// Settlement models, produced and owned by the settlement engine:
//   - Balance: a member's paid-minus-fair-share delta for one run
//   - Transfer: a single directed payment between two members
//   - Settlement: the persisted result of a run, DRAFT or FINALIZED
//
// # Design Principles
//
//  1. **Integer money**: all amounts are int64 minor units; no floating
//     point anywhere in the money path.
//  2. **Stable IDs**: members and settlements are identified by ID strings
//     (UUID format), never by pointer.
//  3. **Immutable once finalized**: a FINALIZED settlement and its transfers
//     are never modified; recomputation is a DRAFT-only operation.
package models
