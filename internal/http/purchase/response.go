package purchase

import (
	"time"

	"github.com/google/uuid"

	"github.com/duartefn/mercado/internal/purchase"
)

// Field names follow the SPA's API contract (camelCase, pt-BR status
// values). Money fields go out as JSON numbers; the stored values carry two
// decimal places, so the float conversion is exact for display purposes.
type purchaseResponse struct {
	ID           uuid.UUID         `json:"id"`
	Name         string            `json:"name"`
	Category     purchase.Category `json:"category"`
	PurchaseDate string            `json:"purchaseDate"`
	UnitPrice    float64           `json:"unitPrice"`
	Quantity     float64           `json:"quantity"`
	UnitMeasure  purchase.Unit     `json:"unitMeasure"`
	TotalValue   float64           `json:"totalValue"`
	Currency     string            `json:"currency"`
	Location     string            `json:"location,omitempty"`
	Observations string            `json:"observations,omitempty"`
	Status       purchase.Status   `json:"status"`
	Version      int64             `json:"version"`
	DateCreated  time.Time         `json:"dateCreated"`
	DateUpdated  time.Time         `json:"dateUpdated"`
}

type listMetadata struct {
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	Total      int64   `json:"total"`
	TotalValue float64 `json:"totalValue"`
}

type listResponse struct {
	Data     []purchaseResponse `json:"data"`
	Metadata listMetadata       `json:"metadata"`
}

func toResponse(p *purchase.Purchase) purchaseResponse {
	return purchaseResponse{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		PurchaseDate: p.PurchaseDate.Format(time.DateOnly),
		UnitPrice:    p.UnitPrice.InexactFloat64(),
		Quantity:     p.Quantity.InexactFloat64(),
		UnitMeasure:  p.UnitMeasure,
		TotalValue:   p.TotalValue.InexactFloat64(),
		Currency:     p.Currency,
		Location:     p.Location,
		Observations: p.Observations,
		Status:       p.Status,
		Version:      p.Version,
		DateCreated:  p.CreatedAt,
		DateUpdated:  p.UpdatedAt,
	}
}

func toListResponse(res *purchase.ListResult) listResponse {
	data := make([]purchaseResponse, len(res.Purchases))
	for i, p := range res.Purchases {
		data[i] = toResponse(p)
	}

	return listResponse{
		Data: data,
		Metadata: listMetadata{
			Page:       res.Page,
			PageSize:   res.PageSize,
			Total:      res.Total,
			TotalValue: res.TotalValue.InexactFloat64(),
		},
	}
}
