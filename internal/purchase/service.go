package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=purchase
type Repository interface {
	// Insert assigns id, version=1, status=ativo and both timestamps on p.
	Insert(ctx context.Context, p *Purchase) error

	// InsertBatch inserts all records in a single database transaction.
	InsertBatch(ctx context.Context, ps []*Purchase) error

	// FindByID returns the record regardless of status, or ErrNotFound.
	FindByID(ctx context.Context, accountID, id uuid.UUID) (*Purchase, error)

	// UpdateVersioned atomically applies p's fields to the stored row iff it
	// is still ativo and at expectedVersion, bumping version and updated_at.
	// Fails with ErrVersionConflict on a stale version, ErrNotFound when the
	// row is absent or already deleted.
	UpdateVersioned(ctx context.Context, p *Purchase, expectedVersion int64) error

	// DeleteVersioned is the same conditional write, setting status=excluido
	// instead of replacing fields.
	DeleteVersioned(ctx context.Context, accountID, id uuid.UUID, expectedVersion int64) error

	// Query returns one page plus the count and total value of the whole
	// filtered set, computed store-side.
	Query(ctx context.Context, accountID uuid.UUID, f ListFilter) (QueryResult, error)
}

// OrderBy names the supported list orderings. Every ordering breaks ties on
// id ascending so pagination stays stable when keys repeat.
type OrderBy string

const (
	OrderDateDesc  OrderBy = "date_desc"
	OrderDateAsc   OrderBy = "date_asc"
	OrderNameAsc   OrderBy = "name_asc"
	OrderNameDesc  OrderBy = "name_desc"
	OrderValueDesc OrderBy = "value_desc"
	OrderValueAsc  OrderBy = "value_asc"
)

var orderings = map[OrderBy]struct{}{
	OrderDateDesc: {}, OrderDateAsc: {},
	OrderNameAsc: {}, OrderNameDesc: {},
	OrderValueDesc: {}, OrderValueAsc: {},
}

// ListFilter selects and pages purchases for one account.
type ListFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  string // exact match; empty matches all
	Name      string // substring match; empty matches all
	Status    Status // ativo, excluido or todos
	Page      int
	PageSize  int
	OrderBy   OrderBy
}

// QueryResult is one page of rows plus filtered-set aggregates.
type QueryResult struct {
	Rows       []*Purchase
	Total      int64
	TotalValue decimal.Decimal
}

// ListResult is what List hands back to the transport layer.
type ListResult struct {
	Purchases  []*Purchase
	Page       int
	PageSize   int
	Total      int64
	TotalValue decimal.Decimal
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateParams carries the caller-supplied fields for create and update.
// There is deliberately no total field: totals are always derived.
type CreateParams struct {
	Name         string
	Category     Category
	PurchaseDate time.Time
	UnitPrice    decimal.Decimal
	Quantity     decimal.Decimal
	UnitMeasure  Unit
	Currency     string
	Location     string
	Observations string
}

// validate re-checks what upstream request validation should already have
// enforced. The repository is never reached with an out-of-range field.
func (s *Service) validate(params CreateParams) error {
	if n := len([]rune(params.Name)); n < 1 || n > 100 {
		return fmt.Errorf("%w: name must be 1-100 characters", ErrInvalid)
	}

	if !params.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalid, params.Category)
	}

	if !params.UnitMeasure.Valid() {
		return fmt.Errorf("%w: unknown unit %q", ErrInvalid, params.UnitMeasure)
	}

	if params.PurchaseDate.After(s.now()) {
		return fmt.Errorf("%w: purchase date cannot be in the future", ErrInvalid)
	}

	if len([]rune(params.Location)) > 100 {
		return fmt.Errorf("%w: location must be at most 100 characters", ErrInvalid)
	}

	if len([]rune(params.Observations)) > 500 {
		return fmt.Errorf("%w: observations must be at most 500 characters", ErrInvalid)
	}

	return nil
}

// build validates params and assembles an unsaved Purchase with its total
// computed. Any total a caller smuggled into the request is ignored by
// construction: CreateParams has no such field.
func (s *Service) build(accountID uuid.UUID, params CreateParams) (*Purchase, error) {
	if err := s.validate(params); err != nil {
		return nil, err
	}

	total, err := ComputeTotal(params.UnitPrice, params.Quantity)
	if err != nil {
		return nil, err
	}

	currency := params.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	return &Purchase{
		AccountID:    accountID,
		Name:         params.Name,
		Category:     params.Category,
		PurchaseDate: params.PurchaseDate,
		UnitPrice:    params.UnitPrice,
		Quantity:     params.Quantity,
		UnitMeasure:  params.UnitMeasure,
		TotalValue:   total,
		Currency:     currency,
		Location:     params.Location,
		Observations: params.Observations,
	}, nil
}

func (s *Service) Create(ctx context.Context, accountID uuid.UUID, params CreateParams) (*Purchase, error) {
	p, err := s.build(accountID, params)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("creating purchase: %w", err)
	}

	return p, nil
}

// CreateBatch validates and inserts all params in one transaction. The first
// invalid row aborts the whole batch.
func (s *Service) CreateBatch(ctx context.Context, accountID uuid.UUID, params []CreateParams) ([]*Purchase, error) {
	if len(params) == 0 {
		return nil, nil
	}

	ps := make([]*Purchase, len(params))

	for i, param := range params {
		p, err := s.build(accountID, param)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		ps[i] = p
	}

	if err := s.repo.InsertBatch(ctx, ps); err != nil {
		return nil, fmt.Errorf("creating purchase batch: %w", err)
	}

	return ps, nil
}

// Update replaces the record's fields guarded by the version the caller last
// observed. ErrNotFound and ErrVersionConflict pass through unchanged so the
// transport layer can tell "gone" from "modified by someone else".
func (s *Service) Update(ctx context.Context, accountID, id uuid.UUID, params CreateParams, expectedVersion int64) (*Purchase, error) {
	p, err := s.build(accountID, params)
	if err != nil {
		return nil, err
	}

	p.ID = id

	if err := s.repo.UpdateVersioned(ctx, p, expectedVersion); err != nil {
		return nil, err
	}

	return p, nil
}

// Delete marks the record excluido. It refuses to touch storage unless the
// caller explicitly confirmed, and deleting an already-deleted record
// surfaces ErrNotFound rather than succeeding silently.
func (s *Service) Delete(ctx context.Context, accountID, id uuid.UUID, expectedVersion int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	return s.repo.DeleteVersioned(ctx, accountID, id, expectedVersion)
}

// Get returns the record of any status, including deleted ones.
func (s *Service) Get(ctx context.Context, accountID, id uuid.UUID) (*Purchase, error) {
	return s.repo.FindByID(ctx, accountID, id)
}

// List returns a filtered page plus aggregates over the whole filtered set.
// Missing date bounds each default to the current calendar month's edge.
func (s *Service) List(ctx context.Context, accountID uuid.UUID, filter ListFilter) (*ListResult, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}

	if filter.PageSize <= 0 {
		filter.PageSize = 10
	}

	if filter.OrderBy == "" {
		filter.OrderBy = OrderDateDesc
	}

	if _, ok := orderings[filter.OrderBy]; !ok {
		return nil, fmt.Errorf("%w: unknown ordering %q", ErrInvalid, filter.OrderBy)
	}

	switch filter.Status {
	case "":
		filter.Status = StatusActive
	case StatusActive, StatusDeleted, StatusAll:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, filter.Status)
	}

	first, last := monthBounds(s.now())
	if filter.StartDate == nil {
		filter.StartDate = &first
	}

	if filter.EndDate == nil {
		filter.EndDate = &last
	}

	if filter.StartDate.After(*filter.EndDate) {
		return nil, fmt.Errorf("%w: start date cannot be after end date", ErrInvalid)
	}

	res, err := s.repo.Query(ctx, accountID, filter)
	if err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}

	return &ListResult{
		Purchases:  res.Rows,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		Total:      res.Total,
		TotalValue: res.TotalValue,
	}, nil
}

// monthBounds returns the first and last calendar day of now's month.
func monthBounds(now time.Time) (time.Time, time.Time) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)

	return first, last
}
