package purchase

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/duartefn/mercado/internal/http/auth"
	"github.com/duartefn/mercado/internal/purchase"
)

type Handler struct {
	svc *purchase.Service
}

func NewHandler(svc *purchase.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// writeError maps the service error taxonomy onto status codes. NotFound and
// VersionConflict stay distinct so the SPA can tell "gone" from "someone
// else edited this"; everything unexpected collapses to a 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, purchase.ErrNotFound):
		http.Error(w, "purchase not found", http.StatusNotFound)
	case errors.Is(err, purchase.ErrVersionConflict):
		http.Error(w, "purchase modified by another user", http.StatusConflict)
	case errors.Is(err, purchase.ErrNotConfirmed):
		http.Error(w, "deletion must be confirmed", http.StatusUnprocessableEntity)
	case errors.Is(err, purchase.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type purchaseRequest struct {
	Name         string            `json:"name"`
	Category     purchase.Category `json:"category"`
	PurchaseDate string            `json:"purchaseDate"`
	UnitPrice    decimal.Decimal   `json:"unitPrice"`
	Quantity     decimal.Decimal   `json:"quantity"`
	UnitMeasure  purchase.Unit     `json:"unitMeasure"`
	Currency     string            `json:"currency"`
	Location     string            `json:"location"`
	Observations string            `json:"observations"`
}

func (req purchaseRequest) toParams() (purchase.CreateParams, error) {
	date, err := parseDate(req.PurchaseDate)
	if err != nil {
		return purchase.CreateParams{}, err
	}

	return purchase.CreateParams{
		Name:         req.Name,
		Category:     req.Category,
		PurchaseDate: date,
		UnitPrice:    req.UnitPrice,
		Quantity:     req.Quantity,
		UnitMeasure:  req.UnitMeasure,
		Currency:     req.Currency,
		Location:     req.Location,
		Observations: req.Observations,
	}, nil
}

// parseDate accepts the SPA's date-only form values and full timestamps.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params, err := req.toParams()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.Create(r.Context(), accountID, params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(p))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	p, err := h.svc.Get(r.Context(), accountID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(p))
}

type updateRequest struct {
	purchaseRequest
	Version int64 `json:"version"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params, err := req.toParams()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.Update(r.Context(), accountID, id, params, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	version, err := strconv.ParseInt(r.URL.Query().Get("version"), 10, 64)
	if err != nil {
		http.Error(w, "invalid version", http.StatusBadRequest)
		return
	}

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	if err := h.svc.Delete(r.Context(), accountID, id, version, confirmed); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	filter := purchase.ListFilter{
		Category: r.URL.Query().Get("category"),
		Name:     r.URL.Query().Get("name"),
		Status:   purchase.Status(r.URL.Query().Get("status")),
		OrderBy:  purchase.OrderBy(r.URL.Query().Get("orderBy")),
	}

	if s := r.URL.Query().Get("startDate"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		filter.StartDate = &t
	}

	if s := r.URL.Query().Get("endDate"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		filter.EndDate = &t
	}

	if s := r.URL.Query().Get("page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			filter.Page = n
		}
	}

	if s := r.URL.Query().Get("pageSize"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			filter.PageSize = n
		}
	}

	res, err := h.svc.List(r.Context(), accountID, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toListResponse(res))
}
