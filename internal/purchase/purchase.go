package purchase

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is the closed set of food categories a purchase can belong to.
type Category string

const (
	CategoryFrutas     Category = "Frutas"
	CategoryVerduras   Category = "Verduras"
	CategoryCarnes     Category = "Carnes"
	CategoryLaticinios Category = "Laticínios"
	CategoryGraos      Category = "Grãos"
	CategoryBebidas    Category = "Bebidas"
	CategoryCongelados Category = "Congelados"
	CategoryOutros     Category = "Outros"
)

var categories = map[Category]struct{}{
	CategoryFrutas:     {},
	CategoryVerduras:   {},
	CategoryCarnes:     {},
	CategoryLaticinios: {},
	CategoryGraos:      {},
	CategoryBebidas:    {},
	CategoryCongelados: {},
	CategoryOutros:     {},
}

// Valid reports whether c is a member of the category set.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Unit is the closed set of units of measure.
type Unit string

const (
	UnitKg      Unit = "kg"
	UnitG       Unit = "g"
	UnitL       Unit = "l"
	UnitMl      Unit = "ml"
	UnitUnidade Unit = "unidade"
	UnitPacote  Unit = "pacote"
	UnitCaixa   Unit = "caixa"
	UnitDuzia   Unit = "dúzia"
)

var units = map[Unit]struct{}{
	UnitKg: {}, UnitG: {}, UnitL: {}, UnitMl: {},
	UnitUnidade: {}, UnitPacote: {}, UnitCaixa: {}, UnitDuzia: {},
}

// Valid reports whether u is a member of the unit set.
func (u Unit) Valid() bool {
	_, ok := units[u]
	return ok
}

// Status is the lifecycle state of a purchase. The only transition is
// ativo -> excluido; deleted rows are kept and stay queryable.
type Status string

const (
	StatusActive  Status = "ativo"
	StatusDeleted Status = "excluido"

	// StatusAll is a filter-only value, never stored.
	StatusAll Status = "todos"
)

// DefaultCurrency is applied when a request omits the currency.
const DefaultCurrency = "BRL"

// Purchase is a single food purchase record owned by an account.
type Purchase struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	Name         string
	Category     Category
	PurchaseDate time.Time
	UnitPrice    decimal.Decimal
	Quantity     decimal.Decimal
	UnitMeasure  Unit
	TotalValue   decimal.Decimal // always ComputeTotal(UnitPrice, Quantity)
	Currency     string
	Location     string
	Observations string
	Status       Status
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	// ErrNotFound means the id does not exist for the account, or the row
	// is already deleted when a mutation required it active.
	ErrNotFound = errors.New("purchase not found")

	// ErrVersionConflict means the record was modified since the caller
	// last read it. The caller must re-fetch and resubmit deliberately;
	// nothing here retries on its behalf.
	ErrVersionConflict = errors.New("purchase modified by another writer")

	// ErrNotConfirmed means a delete was attempted without the explicit
	// confirmation flag.
	ErrNotConfirmed = errors.New("deletion not confirmed")

	// ErrInvalid wraps field-level validation failures.
	ErrInvalid = errors.New("invalid purchase")
)
