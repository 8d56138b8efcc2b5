package handlers

import (
	"net/http"

	"github.com/eikewelk/econdata/internal/collections"
	"github.com/eikewelk/econdata/internal/models"
)

type listResponse[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}

// serveBrowser loads a collection and answers with the items ordered by the
// "order" query parameter and filtered by "q".
func serveBrowser[T collections.Record](h *Handler, w http.ResponseWriter, r *http.Request, b *collections.Browser[T]) {
	if order := r.URL.Query().Get("order"); order != "" {
		b.SetOrder(order)
	}
	if err := b.CheckOrder(); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := b.Load(r.Context(), nil); err != nil {
		h.writeAPIError(w, err)
		return
	}

	items, err := b.Items(r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, listResponse[T]{Count: len(items), Items: items})
}

func (h *Handler) HandleListings(w http.ResponseWriter, r *http.Request) {
	serveBrowser(h, w, r, collections.NewListings(h.client))
}

func (h *Handler) HandleSearchTasks(w http.ResponseWriter, r *http.Request) {
	serveBrowser(h, w, r, collections.NewSearchTasks(h.client))
}

// HandleProducts serves the cached catalog, the same one used to resolve
// products in listings.
func (h *Handler) HandleProducts(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.products(r.Context())
	if err != nil {
		h.writeAPIError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listResponse[models.Product]{Count: len(catalog), Items: catalog})
}

// HandleReloadProducts drops the cached catalog and all editors built on it.
func (h *Handler) HandleReloadProducts(w http.ResponseWriter, r *http.Request) {
	h.resetCatalog()
	h.HandleProducts(w, r)
}
