package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duartefn/mercado/internal/database"
	"github.com/duartefn/mercado/internal/purchase"
	"github.com/duartefn/mercado/internal/purchase/store"
)

func newTestStore(t *testing.T) *store.SQLite {
	t.Helper()

	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.NewSQLite(db)
	require.NoError(t, st.Migrate(context.Background()))

	return st
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type seedOpts struct {
	name     string
	category purchase.Category
	date     time.Time
	price    string
	quantity string
}

func seed(t *testing.T, st *store.SQLite, accountID uuid.UUID, o seedOpts) *purchase.Purchase {
	t.Helper()

	if o.category == "" {
		o.category = purchase.CategoryOutros
	}

	if o.price == "" {
		o.price = "2.50"
	}

	if o.quantity == "" {
		o.quantity = "1"
	}

	total, err := purchase.ComputeTotal(dec(o.price), dec(o.quantity))
	require.NoError(t, err)

	p := &purchase.Purchase{
		AccountID:    accountID,
		Name:         o.name,
		Category:     o.category,
		PurchaseDate: o.date,
		UnitPrice:    dec(o.price),
		Quantity:     dec(o.quantity),
		UnitMeasure:  purchase.UnitUnidade,
		TotalValue:   total,
		Currency:     "BRL",
	}

	require.NoError(t, st.Insert(context.Background(), p))

	return p
}

func activeFilter() purchase.ListFilter {
	return purchase.ListFilter{
		Status:   purchase.StatusActive,
		Page:     1,
		PageSize: 10,
		OrderBy:  purchase.OrderDateDesc,
	}
}

func TestSQLite_InsertAssignsIdentity(t *testing.T) {
	st := newTestStore(t)
	account := uuid.New()

	p := seed(t, st, account, seedOpts{name: "Café", date: date(2026, 8, 3), price: "18.90", quantity: "2"})

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, int64(1), p.Version)
	assert.Equal(t, purchase.StatusActive, p.Status)
	assert.False(t, p.CreatedAt.IsZero())
	assert.False(t, p.UpdatedAt.IsZero())

	got, err := st.FindByID(context.Background(), account, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Café", got.Name)
	assert.True(t, got.TotalValue.Equal(dec("37.80")))
	assert.Equal(t, int64(1), got.Version)
}

func TestSQLite_FindByID_AccountScoped(t *testing.T) {
	st := newTestStore(t)
	account := uuid.New()

	p := seed(t, st, account, seedOpts{name: "Leite", date: date(2026, 8, 5)})

	_, err := st.FindByID(context.Background(), uuid.New(), p.ID)
	assert.ErrorIs(t, err, purchase.ErrNotFound)
}

func TestSQLite_UpdateVersioned(t *testing.T) {
	st := newTestStore(t)
	account := uuid.New()
	ctx := context.Background()

	p := seed(t, st, account, seedOpts{name: "Feijão", date: date(2026, 8, 7), price: "7.00", quantity: "1"})

	upd := *p
	upd.Name = "Feijão preto"
	upd.UnitPrice = dec("7.50")
	upd.TotalValue = dec("7.50")

	require.NoError(t, st.UpdateVersioned(ctx, &upd, 1))
	assert.Equal(t, int64(2), upd.Version)

	got, err := st.FindByID(ctx, account, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Feijão preto", got.Name)
	assert.Equal(t, int64(2), got.Version)

	// A stale version must be rejected and leave the row untouched.
	stale := *got
	stale.Name = "should not land"
	assert.ErrorIs(t, st.UpdateVersioned(ctx, &stale, 1), purchase.ErrVersionConflict)

	got, err = st.FindByID(ctx, account, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Feijão preto", got.Name)
	assert.Equal(t, int64(2), got.Version)
}

func TestSQLite_UpdateVersioned_Missing(t *testing.T) {
	st := newTestStore(t)
	account := uuid.New()

	ghost := purchase.Purchase{
		ID:           uuid.New(),
		AccountID:    account,
		Name:         "Fantasma",
		Category:     purchase.CategoryOutros,
		PurchaseDate: date(2026, 8, 1),
		UnitPrice:    dec("1.00"),
		Quantity:     dec("1"),
		UnitMeasure:  purchase.UnitUnidade,
		TotalValue:   dec("1.00"),
		Currency:     "BRL",
	}

	assert.ErrorIs(t, st.UpdateVersioned(context.Background(), &ghost, 1), purchase.ErrNotFound)
}

func TestSQLite_DeleteVersioned(t *testing.T) {
	st := newTestStore(t)
	account := uuid.New()
	ctx := context.Background()

	p := seed(t, st, account, seedOpts{name: "Iogurte", date: date(2026, 8, 9)})

	// Wrong version first: conflict, row stays active.
	assert.ErrorIs(t, st.DeleteVersioned(ctx, account, p.ID, 7), purchase.ErrVersionConflict)

	require.NoError(t, st.DeleteVersioned(ctx, account, p.ID, 1))

	got, err := st.FindByID(ctx, account, p.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase.StatusDeleted, got.Status)
	assert.Equal(t, int64(2), got.Version)

	// Second delete, even with the now-current version, is NotFound: the
	// match rule excludes rows that are already excluido.
	assert.ErrorIs(t, st.DeleteVersioned(ctx, account, p.ID, 2), purchase.ErrNotFound)

	// Updates against a deleted row are NotFound too.
	upd := *got
	assert.ErrorIs(t, st.UpdateVersioned(ctx, &upd, 2), purchase.ErrNotFound)
}

func TestSQLite_Query_StatusFilter(t *testing.T) {
	st := newTestStore(t)
	account := uuid.New()
	ctx := context.Background()

	kept := seed(t, st, account, seedOpts{name: "Banana", date: date(2026, 8, 2)})
	gone := seed(t, st, account, seedOpts{name: "Maçã", date: date(2026, 8, 3)})
	require.NoError(t, st.DeleteVersioned(ctx, account, gone.ID, 1))

	f := activeFilter()

	res, err := st.Query(ctx, account, f)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, kept.ID, res.Rows[0].ID)

	f.Status = purchase.StatusDeleted
	res, err = st.Query(ctx, account, f)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, gone.ID, res.Rows[0].ID)

	f.Status = purchase.StatusAll
	res, err = st.Query(ctx, account, f)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, int64(2), res.Total)
}

func TestSQLite_Query_PaginationStable(t *testing.T) {
	st := newTestStore(t)
	account := uuid.New()
	ctx := context.Background()

	// Same date everywhere so ordering falls back to the id tie-break.
	day := date(2026, 8, 15)
	wantTotal := decimal.Zero

	ids := make(map[uuid.UUID]bool, 7)

	for _, o := range []seedOpts{
		{name: "a", price: "1.10"}, {name: "b", price: "2.20"},
		{name: "c", price: "3.30"}, {name: "d", price: "4.40"},
		{name: "e", price: "5.50"}, {name: "f", price: "6.60"},
		{name: "g", price: "7.70"},
	} {
		o.date = day

		p := seed(t, st, account, o)
		ids[p.ID] = false
		wantTotal = wantTotal.Add(p.TotalValue)
	}

	f := activeFilter()
	f.PageSize = 3

	var (
		seen     int
		prevID   uuid.UUID
		lastPage int
	)

	for page := 1; page <= 3; page++ {
		f.Page = page

		res, err := st.Query(ctx, account, f)
		require.NoError(t, err)

		// Filtered-set aggregates are identical on every page.
		assert.Equal(t, int64(7), res.Total, "page %d", page)
		assert.True(t, res.TotalValue.Equal(wantTotal),
			"page %d: total %s, want %s", page, res.TotalValue, wantTotal)

		for _, p := range res.Rows {
			visited, known := ids[p.ID]
			require.True(t, known, "page %d returned a foreign row", page)
			require.False(t, visited, "page %d repeated row %s", page, p.ID)
			ids[p.ID] = true

			if seen > 0 {
				assert.Less(t, prevID.String(), p.ID.String(),
					"equal dates must page in id order")
			}

			prevID = p.ID
			seen++
		}

		lastPage = page
	}

	assert.Equal(t, 3, lastPage)
	assert.Equal(t, 7, seen, "concatenated pages must reproduce the full set")
}

func TestSQLite_Query_Orderings(t *testing.T) {
	st := newTestStore(t)
	account := uuid.New()
	ctx := context.Background()

	seed(t, st, account, seedOpts{name: "Beterraba", date: date(2026, 8, 1), price: "3.00"})
	seed(t, st, account, seedOpts{name: "Alface", date: date(2026, 8, 20), price: "2.00"})
	seed(t, st, account, seedOpts{name: "Cenoura", date: date(2026, 8, 10), price: "4.00"})

	tests := []struct {
		orderBy   purchase.OrderBy
		wantNames []string
	}{
		{purchase.OrderDateDesc, []string{"Alface", "Cenoura", "Beterraba"}},
		{purchase.OrderDateAsc, []string{"Beterraba", "Cenoura", "Alface"}},
		{purchase.OrderNameAsc, []string{"Alface", "Beterraba", "Cenoura"}},
		{purchase.OrderNameDesc, []string{"Cenoura", "Beterraba", "Alface"}},
		{purchase.OrderValueAsc, []string{"Alface", "Beterraba", "Cenoura"}},
		{purchase.OrderValueDesc, []string{"Cenoura", "Beterraba", "Alface"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.orderBy), func(t *testing.T) {
			f := activeFilter()
			f.OrderBy = tt.orderBy

			res, err := st.Query(ctx, account, f)
			require.NoError(t, err)
			require.Len(t, res.Rows, len(tt.wantNames))

			for i, want := range tt.wantNames {
				assert.Equal(t, want, res.Rows[i].Name, "position %d", i)
			}
		})
	}
}

func TestSQLite_Query_EqualKeysBreakTiesOnID(t *testing.T) {
	st := newTestStore(t)
	account := uuid.New()
	ctx := context.Background()

	day := date(2026, 8, 12)
	for i := 0; i < 5; i++ {
		seed(t, st, account, seedOpts{name: "Ovos", date: day, price: "12.00"})
	}

	for _, orderBy := range []purchase.OrderBy{
		purchase.OrderDateDesc, purchase.OrderNameAsc, purchase.OrderValueDesc,
	} {
		f := activeFilter()
		f.OrderBy = orderBy

		res, err := st.Query(ctx, account, f)
		require.NoError(t, err)
		require.Len(t, res.Rows, 5)

		for i := 1; i < len(res.Rows); i++ {
			assert.Less(t, res.Rows[i-1].ID.String(), res.Rows[i].ID.String(),
				"%s: rows with equal keys must come back in id order", orderBy)
		}
	}
}

func TestSQLite_Query_Filters(t *testing.T) {
	st := newTestStore(t)
	account := uuid.New()
	ctx := context.Background()

	seed(t, st, account, seedOpts{name: "Queijo minas", category: purchase.CategoryLaticinios, date: date(2026, 8, 4), price: "32.00"})
	seed(t, st, account, seedOpts{name: "Queijo prato", category: purchase.CategoryLaticinios, date: date(2026, 8, 18), price: "28.00"})
	seed(t, st, account, seedOpts{name: "Picanha", category: purchase.CategoryCarnes, date: date(2026, 8, 18), price: "89.90"})
	seed(t, st, account, seedOpts{name: "Picanha suína", category: purchase.CategoryCarnes, date: date(2026, 7, 30), price: "54.00"})

	t.Run("Category", func(t *testing.T) {
		f := activeFilter()
		f.Category = string(purchase.CategoryLaticinios)

		res, err := st.Query(ctx, account, f)
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Total)
		assert.True(t, res.TotalValue.Equal(dec("60.00")), "got %s", res.TotalValue)
	})

	t.Run("NameSubstring", func(t *testing.T) {
		f := activeFilter()
		f.Name = "icanha"

		res, err := st.Query(ctx, account, f)
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Total)
	})

	t.Run("DateRange", func(t *testing.T) {
		f := activeFilter()
		start := date(2026, 8, 1)
		end := date(2026, 8, 10)
		f.StartDate = &start
		f.EndDate = &end

		res, err := st.Query(ctx, account, f)
		require.NoError(t, err)
		require.Len(t, res.Rows, 1)
		assert.Equal(t, "Queijo minas", res.Rows[0].Name)
	})

	t.Run("OtherAccountSeesNothing", func(t *testing.T) {
		res, err := st.Query(ctx, uuid.New(), activeFilter())
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
		assert.Equal(t, int64(0), res.Total)
		assert.True(t, res.TotalValue.IsZero())
	})
}

func TestSQLite_InsertBatch(t *testing.T) {
	st := newTestStore(t)
	account := uuid.New()
	ctx := context.Background()

	ps := make([]*purchase.Purchase, 3)
	for i := range ps {
		ps[i] = &purchase.Purchase{
			AccountID:    account,
			Name:         "Item",
			Category:     purchase.CategoryOutros,
			PurchaseDate: date(2026, 8, 11),
			UnitPrice:    dec("1.50"),
			Quantity:     dec("2"),
			UnitMeasure:  purchase.UnitPacote,
			TotalValue:   dec("3.00"),
			Currency:     "BRL",
		}
	}

	require.NoError(t, st.InsertBatch(ctx, ps))

	for _, p := range ps {
		assert.NotEqual(t, uuid.Nil, p.ID)
		assert.Equal(t, int64(1), p.Version)
	}

	f := activeFilter()
	res, err := st.Query(ctx, account, f)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	assert.True(t, res.TotalValue.Equal(dec("9.00")))
}
