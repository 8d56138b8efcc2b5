package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/eikewelk/econdata/internal/api"
	"github.com/eikewelk/econdata/internal/collections"
	"github.com/eikewelk/econdata/internal/junction"
	"github.com/eikewelk/econdata/internal/models"
	"github.com/eikewelk/econdata/internal/storage"
	"github.com/go-playground/validator/v10"
)

// Client is what the handlers need from the econdata API.
type Client interface {
	junction.Client
}

type Handler struct {
	client    Client
	editors   *storage.EditorStore
	shortlist []models.ID
	validate  *validator.Validate

	catalogMu sync.Mutex
	catalog   []models.Product
}

// New creates the handlers. shortlist names the products offered first when
// curating a listing.
func New(client Client, shortlist []models.ID) *Handler {
	return &Handler{
		client:    client,
		editors:   storage.New(),
		shortlist: shortlist,
		validate:  validator.New(),
	}
}

// Routes registers all endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/listings", h.HandleListings)
	mux.HandleFunc("GET /api/products", h.HandleProducts)
	mux.HandleFunc("POST /api/products/reload", h.HandleReloadProducts)
	mux.HandleFunc("GET /api/search-tasks", h.HandleSearchTasks)
	mux.HandleFunc("GET /api/listings/{id}/products", h.HandleProductsInListing)
	mux.HandleFunc("POST /api/listings/{id}/products", h.HandleAddProduct)
	mux.HandleFunc("DELETE /api/listings/{id}/products/{recordID}", h.HandleRemoveProduct)
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	http.Error(w, message, code)
}

// writeAPIError maps errors from the upstream API to a response.
func (h *Handler) writeAPIError(w http.ResponseWriter, err error) {
	var se *api.StatusError
	switch {
	case errors.Is(err, junction.ErrNoMatchingCandidate):
		h.writeError(w, err.Error(), http.StatusUnprocessableEntity)
	case api.IsNotFound(err):
		h.writeError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &se):
		h.writeError(w, "Upstream API error: "+err.Error(), http.StatusBadGateway)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, "Request cancelled: "+err.Error(), http.StatusGatewayTimeout)
	default:
		h.writeError(w, "Internal error: "+err.Error(), http.StatusInternalServerError)
	}
}

// products returns the product catalog, loading it on first use.
func (h *Handler) products(ctx context.Context) ([]models.Product, error) {
	h.catalogMu.Lock()
	defer h.catalogMu.Unlock()

	if h.catalog != nil {
		return h.catalog, nil
	}

	browser := collections.NewProducts(h.client)
	if err := browser.Load(ctx, nil); err != nil {
		return nil, err
	}
	items, err := browser.Items("")
	if err != nil {
		return nil, err
	}
	slog.Info("Product catalog loaded", "products", len(items))
	h.catalog = items
	return h.catalog, nil
}

func (h *Handler) resetCatalog() {
	h.catalogMu.Lock()
	h.catalog = nil
	h.catalogMu.Unlock()
	h.editors.Clear()
}

// fewProducts picks the shortlisted products from the catalog, in shortlist
// order. Unknown ids are skipped.
func fewProducts(catalog []models.Product, shortlist []models.ID) []models.Product {
	byID := make(map[models.ID]models.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}
	few := make([]models.Product, 0, len(shortlist))
	for _, id := range shortlist {
		if p, ok := byID[id]; ok {
			few = append(few, p)
		}
	}
	return few
}

// editor returns the editor of a listing, creating and initializing it on
// first use. An editor is only published once Initialize succeeded, so other
// requests never see a half-built one. initialized reports whether the
// records were just loaded by this call.
func (h *Handler) editor(ctx context.Context, listingID models.ID) (editor *junction.Editor, initialized bool, err error) {
	if editor, ok := h.editors.Get(listingID); ok {
		return editor, false, nil
	}

	catalog, err := h.products(ctx)
	if err != nil {
		return nil, false, err
	}

	fresh := junction.NewEditor(h.client, listingID, catalog, fewProducts(catalog, h.shortlist))
	if err := fresh.Initialize(ctx); err != nil {
		return nil, false, err
	}

	// A concurrent first request may have won; keep its editor.
	editor, created := h.editors.GetOrCreate(listingID, func() *junction.Editor { return fresh })
	return editor, created, nil
}
