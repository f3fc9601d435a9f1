// Package store provides the persistence layer for purchases. Postgres is
// the production engine; a SQLite variant covers single-node deployments and
// in-process tests. Both implement purchase.Repository: every mutation is a
// single conditional statement, so the database's row-level atomicity is the
// only serialization point the versioning protocol needs.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/duartefn/mercado/internal/purchase"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// orderClause maps an ordering to SQL. Identical column names exist in both
// engines, so the SQLite store shares it. The id tie-break keeps pagination
// stable when the primary key repeats.
func orderClause(o purchase.OrderBy) string {
	switch o {
	case purchase.OrderDateAsc:
		return "purchase_date ASC, id ASC"
	case purchase.OrderNameAsc:
		return "name ASC, id ASC"
	case purchase.OrderNameDesc:
		return "name DESC, id ASC"
	case purchase.OrderValueAsc:
		return "total_value ASC, id ASC"
	case purchase.OrderValueDesc:
		return "total_value DESC, id ASC"
	default:
		return "purchase_date DESC, id ASC"
	}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanPurchase reads one row in the fixed column order:
// id, account_id, name, category, purchase_date, unit_price, quantity,
// unit_measure, total_value, currency, location, observations, status,
// version, created_at, updated_at.
func scanPurchase(s scanner) (*purchase.Purchase, error) {
	var p purchase.Purchase

	var category, unit, status string

	var location, observations sql.NullString

	if err := s.Scan(
		&p.ID, &p.AccountID, &p.Name, &category, &p.PurchaseDate,
		&p.UnitPrice, &p.Quantity, &unit, &p.TotalValue, &p.Currency,
		&location, &observations, &status, &p.Version,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Category = purchase.Category(category)
	p.UnitMeasure = purchase.Unit(unit)
	p.Status = purchase.Status(status)
	p.Location = location.String
	p.Observations = observations.String

	return &p, nil
}

const selectPurchaseColumns = `
	id, account_id, name, category, purchase_date, unit_price, quantity,
	unit_measure, total_value, currency, location, observations, status,
	version, created_at, updated_at
`

func (s *Postgres) Insert(ctx context.Context, p *purchase.Purchase) error {
	return insertOne(ctx, s.db, p)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertOne(ctx context.Context, db execer, p *purchase.Purchase) error {
	query := `
		INSERT INTO purchases (
			account_id, name, category, purchase_date, unit_price, quantity,
			unit_measure, total_value, currency, location, observations,
			status, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, NOW(), NOW())
		RETURNING id, status, version, created_at, updated_at
	`

	var status string

	err := db.QueryRowContext(ctx, query,
		p.AccountID,
		p.Name,
		p.Category,
		p.PurchaseDate,
		p.UnitPrice,
		p.Quantity,
		p.UnitMeasure,
		p.TotalValue,
		p.Currency,
		nullable(p.Location),
		nullable(p.Observations),
		purchase.StatusActive,
	).Scan(&p.ID, &status, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting purchase: %w", err)
	}

	p.Status = purchase.Status(status)

	return nil
}

func (s *Postgres) InsertBatch(ctx context.Context, ps []*purchase.Purchase) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch insert: %w", err)
	}
	defer tx.Rollback()

	for _, p := range ps {
		if err := insertOne(ctx, tx, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch insert: %w", err)
	}

	return nil
}

func (s *Postgres) FindByID(ctx context.Context, accountID, id uuid.UUID) (*purchase.Purchase, error) {
	query := `SELECT ` + selectPurchaseColumns + `
		FROM purchases
		WHERE id = $1 AND account_id = $2`

	p, err := scanPurchase(s.db.QueryRowContext(ctx, query, id, accountID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, purchase.ErrNotFound
		}

		return nil, fmt.Errorf("getting purchase: %w", err)
	}

	return p, nil
}

func (s *Postgres) UpdateVersioned(ctx context.Context, p *purchase.Purchase, expectedVersion int64) error {
	query := `
		UPDATE purchases
		SET name = $1, category = $2, purchase_date = $3, unit_price = $4,
			quantity = $5, unit_measure = $6, total_value = $7, currency = $8,
			location = $9, observations = $10,
			version = version + 1, updated_at = NOW()
		WHERE id = $11 AND account_id = $12 AND status = $13 AND version = $14
		RETURNING status, version, created_at, updated_at
	`

	var status string

	err := s.db.QueryRowContext(ctx, query,
		p.Name,
		p.Category,
		p.PurchaseDate,
		p.UnitPrice,
		p.Quantity,
		p.UnitMeasure,
		p.TotalValue,
		p.Currency,
		nullable(p.Location),
		nullable(p.Observations),
		p.ID,
		p.AccountID,
		purchase.StatusActive,
		expectedVersion,
	).Scan(&status, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return s.classifyMiss(ctx, p.AccountID, p.ID)
		}

		return fmt.Errorf("updating purchase: %w", err)
	}

	p.Status = purchase.Status(status)

	return nil
}

func (s *Postgres) DeleteVersioned(ctx context.Context, accountID, id uuid.UUID, expectedVersion int64) error {
	query := `
		UPDATE purchases
		SET status = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND account_id = $3 AND status = $4 AND version = $5
	`

	res, err := s.db.ExecContext(ctx, query,
		purchase.StatusDeleted, id, accountID, purchase.StatusActive, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("deleting purchase: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting purchase: %w", err)
	}

	if n == 0 {
		return s.classifyMiss(ctx, accountID, id)
	}

	return nil
}

// classifyMiss tells a stale version apart from a missing or already-deleted
// row after a conditional write matched nothing. The follow-up read is
// advisory only; the write itself already failed atomically.
func (s *Postgres) classifyMiss(ctx context.Context, accountID, id uuid.UUID) error {
	var status string

	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM purchases WHERE id = $1 AND account_id = $2`,
		id, accountID,
	).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return purchase.ErrNotFound
		}

		return fmt.Errorf("checking purchase state: %w", err)
	}

	if purchase.Status(status) != purchase.StatusActive {
		return purchase.ErrNotFound
	}

	return purchase.ErrVersionConflict
}

func (s *Postgres) Query(ctx context.Context, accountID uuid.UUID, f purchase.ListFilter) (purchase.QueryResult, error) {
	query := `SELECT ` + selectPurchaseColumns + `,
		COUNT(*) OVER () AS total_count,
		SUM(total_value) OVER () AS total_value_filtered
		FROM purchases
		WHERE account_id = $1`

	args := []any{accountID}
	argIdx := 2

	if f.Status != purchase.StatusAll {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, f.Status)
		argIdx++
	}

	if f.StartDate != nil {
		query += fmt.Sprintf(" AND purchase_date >= $%d", argIdx)

		args = append(args, *f.StartDate)
		argIdx++
	}

	if f.EndDate != nil {
		query += fmt.Sprintf(" AND purchase_date <= $%d", argIdx)

		args = append(args, *f.EndDate)
		argIdx++
	}

	if f.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIdx)

		args = append(args, f.Category)
		argIdx++
	}

	if f.Name != "" {
		query += fmt.Sprintf(" AND name ILIKE '%%' || $%d || '%%'", argIdx)

		args = append(args, f.Name)
		argIdx++
	}

	query += " ORDER BY " + orderClause(f.OrderBy)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return purchase.QueryResult{}, fmt.Errorf("listing purchases: %w", err)
	}
	defer rows.Close()

	var result purchase.QueryResult

	result.TotalValue = decimal.Zero

	for rows.Next() {
		var p purchase.Purchase

		var category, unit, status string

		var location, observations sql.NullString

		if err := rows.Scan(
			&p.ID, &p.AccountID, &p.Name, &category, &p.PurchaseDate,
			&p.UnitPrice, &p.Quantity, &unit, &p.TotalValue, &p.Currency,
			&location, &observations, &status, &p.Version,
			&p.CreatedAt, &p.UpdatedAt,
			&result.Total, &result.TotalValue,
		); err != nil {
			return purchase.QueryResult{}, fmt.Errorf("scanning purchase: %w", err)
		}

		p.Category = purchase.Category(category)
		p.UnitMeasure = purchase.Unit(unit)
		p.Status = purchase.Status(status)
		p.Location = location.String
		p.Observations = observations.String

		result.Rows = append(result.Rows, &p)
	}

	if err := rows.Err(); err != nil {
		return purchase.QueryResult{}, fmt.Errorf("iterating purchases: %w", err)
	}

	return result, nil
}

// nullable stores empty optional strings as NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
