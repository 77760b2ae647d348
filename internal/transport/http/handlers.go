package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"auditflow/internal/audit"
	"auditflow/internal/catalog"
	"auditflow/pkg/platform/sentinel"
)

// Handler delegates catalog mutations to the service.
type Handler struct {
	service *catalog.Service
	logger  *slog.Logger
}

func NewHandler(service *catalog.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type productRequest struct {
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Description  string  `json:"description"`
	ImageURL     string  `json:"imageUrl"`
	Category     string  `json:"category"`
	Size         string  `json:"size"`
	SupplierCode string  `json:"supplierCode"`
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p := catalog.NewProduct(req.Name, req.Price, req.Description, req.ImageURL, req.Category, req.Size)
	p.SupplierCode = req.SupplierCode

	if err := h.service.Create(r.Context(), p); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"id": p.ID.String()})
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.service.Update(r.Context(), id, func(p *catalog.Product) {
		p.Name = req.Name
		p.Price = req.Price
		p.Description = req.Description
		p.ImageURL = req.ImageURL
		p.Category = req.Category
		p.Size = req.Size
		p.SupplierCode = req.SupplierCode
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"id": p.ID.String()})
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	if err := h.service.SoftDelete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePurgeProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	if err := h.service.Purge(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		http.Error(w, "product not found", http.StatusNotFound)
	case errors.Is(err, audit.ErrPublish):
		// The business write committed but its audit message did not reach
		// the channel. Surface it: silently dropping audit is not an option.
		h.logger.Error("save committed but audit publish failed",
			"path", r.URL.Path,
			"error", err,
		)
		http.Error(w, "audit capture failed", http.StatusInternalServerError)
	default:
		h.logger.Error("catalog operation failed",
			"path", r.URL.Path,
			"error", err,
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
