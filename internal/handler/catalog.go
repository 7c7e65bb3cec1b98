package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/marejada-pos/api/internal/store"
)

// CatalogStore defines the store methods needed by catalog handlers.
type CatalogStore interface {
	ListCatalog(ctx context.Context, branchID uuid.UUID) ([]store.CatalogItem, error)
}

// CatalogHandler serves the branch price book.
type CatalogHandler struct {
	store CatalogStore
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(store CatalogStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/catalog
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type catalogEntryResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Size     string    `json:"size,omitempty"`
	Price    string    `json:"price"`
	Addon    bool      `json:"addon,omitempty"`
	Bundle   bool      `json:"bundle,omitempty"`
}

type catalogListResponse struct {
	Items []catalogEntryResponse `json:"items"`
}

// List handles GET /branches/{bid}/catalog.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return
	}

	items, err := h.store.ListCatalog(r.Context(), branchID)
	if err != nil {
		log.Printf("ERROR: list catalog: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := catalogListResponse{Items: make([]catalogEntryResponse, len(items))}
	for i, it := range items {
		resp.Items[i] = catalogEntryResponse{
			ID:       it.ID,
			Name:     it.Name,
			Category: it.Category,
			Size:     it.Size,
			Price:    it.Price.StringFixed(2),
			Addon:    it.Addon,
			Bundle:   it.Bundle,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
