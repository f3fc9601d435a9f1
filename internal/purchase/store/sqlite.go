package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/duartefn/mercado/internal/purchase"
)

// SQLite is the single-node variant of the purchase store. Dates are stored
// as ISO-8601 text, money as REAL; ids and timestamps are assigned in Go
// since there is no server side to assign them.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Insert(ctx context.Context, p *purchase.Purchase) error {
	return s.insertOne(ctx, s.db, p)
}

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLite) insertOne(ctx context.Context, db sqlExecer, p *purchase.Purchase) error {
	now := time.Now().UTC().Truncate(time.Second)

	p.ID = uuid.New()
	p.Status = purchase.StatusActive
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO purchases (
			id, account_id, name, category, purchase_date, unit_price,
			quantity, unit_measure, total_value, currency, location,
			observations, status, version, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		p.ID.String(),
		p.AccountID.String(),
		p.Name,
		string(p.Category),
		p.PurchaseDate.Format(time.DateOnly),
		p.UnitPrice.InexactFloat64(),
		p.Quantity.InexactFloat64(),
		string(p.UnitMeasure),
		p.TotalValue.InexactFloat64(),
		p.Currency,
		nullable(p.Location),
		nullable(p.Observations),
		string(p.Status),
		p.Version,
		now.Format(time.RFC3339),
		now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting purchase: %w", err)
	}

	return nil
}

func (s *SQLite) InsertBatch(ctx context.Context, ps []*purchase.Purchase) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch insert: %w", err)
	}
	defer tx.Rollback()

	for _, p := range ps {
		if err := s.insertOne(ctx, tx, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch insert: %w", err)
	}

	return nil
}

// scanSQLitePurchase reads one row in selectPurchaseColumns order, parsing
// the text-encoded ids, dates and timestamps.
func scanSQLitePurchase(s scanner) (*purchase.Purchase, error) {
	var p purchase.Purchase

	var id, accountID, category, unit, status, date, createdAt, updatedAt string

	var unitPrice, quantity, totalValue float64

	var location, observations sql.NullString

	if err := s.Scan(
		&id, &accountID, &p.Name, &category, &date,
		&unitPrice, &quantity, &unit, &totalValue, &p.Currency,
		&location, &observations, &status, &p.Version,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing id: %w", err)
	}

	if p.AccountID, err = uuid.Parse(accountID); err != nil {
		return nil, fmt.Errorf("parsing account id: %w", err)
	}

	if p.PurchaseDate, err = time.Parse(time.DateOnly, date); err != nil {
		return nil, fmt.Errorf("parsing purchase date: %w", err)
	}

	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	p.Category = purchase.Category(category)
	p.UnitMeasure = purchase.Unit(unit)
	p.Status = purchase.Status(status)
	p.UnitPrice = decimal.NewFromFloat(unitPrice)
	p.Quantity = decimal.NewFromFloat(quantity)
	p.TotalValue = decimal.NewFromFloat(totalValue)
	p.Location = location.String
	p.Observations = observations.String

	return &p, nil
}

func (s *SQLite) FindByID(ctx context.Context, accountID, id uuid.UUID) (*purchase.Purchase, error) {
	query := `SELECT ` + selectPurchaseColumns + `
		FROM purchases
		WHERE id = ? AND account_id = ?`

	p, err := scanSQLitePurchase(s.db.QueryRowContext(ctx, query, id.String(), accountID.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, purchase.ErrNotFound
		}

		return nil, fmt.Errorf("getting purchase: %w", err)
	}

	return p, nil
}

func (s *SQLite) UpdateVersioned(ctx context.Context, p *purchase.Purchase, expectedVersion int64) error {
	now := time.Now().UTC().Truncate(time.Second)

	query := `
		UPDATE purchases
		SET name = ?, category = ?, purchase_date = ?, unit_price = ?,
			quantity = ?, unit_measure = ?, total_value = ?, currency = ?,
			location = ?, observations = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND account_id = ? AND status = ? AND version = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		p.Name,
		string(p.Category),
		p.PurchaseDate.Format(time.DateOnly),
		p.UnitPrice.InexactFloat64(),
		p.Quantity.InexactFloat64(),
		string(p.UnitMeasure),
		p.TotalValue.InexactFloat64(),
		p.Currency,
		nullable(p.Location),
		nullable(p.Observations),
		now.Format(time.RFC3339),
		p.ID.String(),
		p.AccountID.String(),
		string(purchase.StatusActive),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("updating purchase: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating purchase: %w", err)
	}

	if n == 0 {
		return s.classifyMiss(ctx, p.AccountID, p.ID)
	}

	// Refresh repository-assigned fields on the entity.
	stored, err := s.FindByID(ctx, p.AccountID, p.ID)
	if err != nil {
		return fmt.Errorf("reloading purchase: %w", err)
	}

	p.Status = stored.Status
	p.Version = stored.Version
	p.CreatedAt = stored.CreatedAt
	p.UpdatedAt = stored.UpdatedAt

	return nil
}

func (s *SQLite) DeleteVersioned(ctx context.Context, accountID, id uuid.UUID, expectedVersion int64) error {
	now := time.Now().UTC().Truncate(time.Second)

	query := `
		UPDATE purchases
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND account_id = ? AND status = ? AND version = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		string(purchase.StatusDeleted),
		now.Format(time.RFC3339),
		id.String(),
		accountID.String(),
		string(purchase.StatusActive),
		expectedVersion,
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

func (s *SQLite) classifyMiss(ctx context.Context, accountID, id uuid.UUID) error {
	var status string

	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM purchases WHERE id = ? AND account_id = ?`,
		id.String(), accountID.String(),
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

func (s *SQLite) Query(ctx context.Context, accountID uuid.UUID, f purchase.ListFilter) (purchase.QueryResult, error) {
	query := `SELECT ` + selectPurchaseColumns + `,
		COUNT(*) OVER () AS total_count,
		ROUND(SUM(total_value) OVER (), 2) AS total_value_filtered
		FROM purchases
		WHERE account_id = ?`

	args := []any{accountID.String()}

	if f.Status != purchase.StatusAll {
		query += " AND status = ?"

		args = append(args, string(f.Status))
	}

	if f.StartDate != nil {
		query += " AND purchase_date >= ?"

		args = append(args, f.StartDate.Format(time.DateOnly))
	}

	if f.EndDate != nil {
		query += " AND purchase_date <= ?"

		args = append(args, f.EndDate.Format(time.DateOnly))
	}

	if f.Category != "" {
		query += " AND category = ?"

		args = append(args, f.Category)
	}

	if f.Name != "" {
		query += " AND name LIKE '%' || ? || '%'"

		args = append(args, f.Name)
	}

	query += " ORDER BY " + orderClause(f.OrderBy)
	query += " LIMIT ? OFFSET ?"
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

		var id, acct, category, unit, status, date, createdAt, updatedAt string

		var unitPrice, quantity, totalValue, totalValueFiltered float64

		var location, observations sql.NullString

		if err := rows.Scan(
			&id, &acct, &p.Name, &category, &date,
			&unitPrice, &quantity, &unit, &totalValue, &p.Currency,
			&location, &observations, &status, &p.Version,
			&createdAt, &updatedAt,
			&result.Total, &totalValueFiltered,
		); err != nil {
			return purchase.QueryResult{}, fmt.Errorf("scanning purchase: %w", err)
		}

		if p.ID, err = uuid.Parse(id); err != nil {
			return purchase.QueryResult{}, fmt.Errorf("parsing id: %w", err)
		}

		if p.AccountID, err = uuid.Parse(acct); err != nil {
			return purchase.QueryResult{}, fmt.Errorf("parsing account id: %w", err)
		}

		if p.PurchaseDate, err = time.Parse(time.DateOnly, date); err != nil {
			return purchase.QueryResult{}, fmt.Errorf("parsing purchase date: %w", err)
		}

		if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return purchase.QueryResult{}, fmt.Errorf("parsing created_at: %w", err)
		}

		if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return purchase.QueryResult{}, fmt.Errorf("parsing updated_at: %w", err)
		}

		p.Category = purchase.Category(category)
		p.UnitMeasure = purchase.Unit(unit)
		p.Status = purchase.Status(status)
		p.UnitPrice = decimal.NewFromFloat(unitPrice)
		p.Quantity = decimal.NewFromFloat(quantity)
		p.TotalValue = decimal.NewFromFloat(totalValue)
		p.Location = location.String
		p.Observations = observations.String

		result.TotalValue = decimal.NewFromFloat(totalValueFiltered)

		result.Rows = append(result.Rows, &p)
	}

	if err := rows.Err(); err != nil {
		return purchase.QueryResult{}, fmt.Errorf("iterating purchases: %w", err)
	}

	return result, nil
}
