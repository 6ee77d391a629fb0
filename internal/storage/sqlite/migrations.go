package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// IMPORTANT: households must be created BEFORE the tables that reference it.
const schema = `
CREATE TABLE IF NOT EXISTS households (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
    id TEXT PRIMARY KEY,
    household_id TEXT NOT NULL,
    name TEXT NOT NULL,
    joined_at INTEGER NOT NULL,
    FOREIGN KEY (household_id) REFERENCES households(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS income_declarations (
    household_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    period TEXT NOT NULL,
    gross_amount INTEGER NOT NULL CHECK (gross_amount >= 0),
    deduction_amount INTEGER NOT NULL CHECK (deduction_amount >= 0),
    declared_at INTEGER NOT NULL,
    FOREIGN KEY (household_id) REFERENCES households(id) ON DELETE CASCADE,
    FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS expense_records (
    id TEXT PRIMARY KEY,
    household_id TEXT NOT NULL,
    payer_member_id TEXT NOT NULL,
    amount INTEGER NOT NULL CHECK (amount >= 0),
    period TEXT NOT NULL,
    should_apportion INTEGER NOT NULL,
    description TEXT,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (household_id) REFERENCES households(id) ON DELETE CASCADE,
    FOREIGN KEY (payer_member_id) REFERENCES members(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS household_policies (
    household_id TEXT PRIMARY KEY,
    weighting_mode TEXT NOT NULL,
    missing_income_mode TEXT NOT NULL,
    rounding_mode TEXT NOT NULL,
    FOREIGN KEY (household_id) REFERENCES households(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS settlements (
    id TEXT PRIMARY KEY,
    household_id TEXT NOT NULL,
    period TEXT NOT NULL,
    status TEXT NOT NULL,
    total_expenses INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    finalized_at INTEGER,
    UNIQUE (household_id, period),
    FOREIGN KEY (household_id) REFERENCES households(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS settlement_transfers (
    settlement_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    from_member_id TEXT NOT NULL,
    to_member_id TEXT NOT NULL,
    amount INTEGER NOT NULL CHECK (amount > 0),
    description TEXT,
    PRIMARY KEY (settlement_id, position),
    FOREIGN KEY (settlement_id) REFERENCES settlements(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS settlement_shares (
    settlement_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    weight TEXT NOT NULL,
    fair_share INTEGER NOT NULL,
    paid INTEGER NOT NULL,
    delta INTEGER NOT NULL,
    PRIMARY KEY (settlement_id, member_id),
    FOREIGN KEY (settlement_id) REFERENCES settlements(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_members_household_id ON members(household_id);
CREATE INDEX IF NOT EXISTS idx_incomes_household_period ON income_declarations(household_id, period);
CREATE INDEX IF NOT EXISTS idx_expenses_household_period ON expense_records(household_id, period);
CREATE INDEX IF NOT EXISTS idx_settlements_household_id ON settlements(household_id);
CREATE INDEX IF NOT EXISTS idx_settlement_transfers_settlement_id ON settlement_transfers(settlement_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
