package importcsv

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/duartefn/mercado/internal/http/auth"
	"github.com/duartefn/mercado/internal/importer"
	"github.com/duartefn/mercado/internal/purchase"
)

type Handler struct {
	importSvc   *importer.Service
	purchaseSvc *purchase.Service
}

func NewHandler(importSvc *importer.Service, purchaseSvc *purchase.Service) *Handler {
	return &Handler{importSvc: importSvc, purchaseSvc: purchaseSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
}

type importResponse struct {
	Imported int `json:"imported"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	params, err := h.importSvc.Import(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(params) == 0 {
		http.Error(w, "no purchase rows found", http.StatusBadRequest)
		return
	}

	created, err := h.purchaseSvc.CreateBatch(r.Context(), accountID, params)
	if err != nil {
		if errors.Is(err, purchase.ErrInvalid) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(importResponse{Imported: len(created)}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
