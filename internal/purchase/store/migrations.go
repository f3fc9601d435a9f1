package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema lives here rather than in external migration files; both engines get
// the same logical table. Postgres keeps native DATE/NUMERIC/UUID columns,
// SQLite stores dates as ISO-8601 text and money as REAL (rounded back to two
// places when aggregated).

const postgresSchema = `
CREATE TABLE IF NOT EXISTS purchases (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	account_id UUID NOT NULL,
	name TEXT NOT NULL,
	category TEXT NOT NULL,
	purchase_date DATE NOT NULL,
	unit_price NUMERIC(12,2) NOT NULL,
	quantity NUMERIC(12,3) NOT NULL,
	unit_measure TEXT NOT NULL,
	total_value NUMERIC(14,2) NOT NULL,
	currency TEXT NOT NULL DEFAULT 'BRL',
	location TEXT,
	observations TEXT,
	status TEXT NOT NULL DEFAULT 'ativo',
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_purchases_account_date
	ON purchases (account_id, purchase_date);

CREATE INDEX IF NOT EXISTS idx_purchases_account_status
	ON purchases (account_id, status);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS purchases (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	name TEXT NOT NULL,
	category TEXT NOT NULL,
	purchase_date TEXT NOT NULL,
	unit_price REAL NOT NULL,
	quantity REAL NOT NULL,
	unit_measure TEXT NOT NULL,
	total_value REAL NOT NULL,
	currency TEXT NOT NULL DEFAULT 'BRL',
	location TEXT,
	observations TEXT,
	status TEXT NOT NULL DEFAULT 'ativo',
	version INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_purchases_account_date
	ON purchases (account_id, purchase_date);

CREATE INDEX IF NOT EXISTS idx_purchases_account_status
	ON purchases (account_id, status);
`

// Migrate applies the Postgres schema. Safe to run repeatedly.
func (s *Postgres) Migrate(ctx context.Context) error {
	return applySchema(ctx, s.db, postgresSchema)
}

// Migrate applies the SQLite schema. Safe to run repeatedly.
func (s *SQLite) Migrate(ctx context.Context) error {
	return applySchema(ctx, s.db, sqliteSchema)
}

func applySchema(ctx context.Context, db *sql.DB, schema string) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	return nil
}
