package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/eikewelk/econdata/internal/junction"
	"github.com/eikewelk/econdata/internal/models"
)

type recordView struct {
	ID             models.ID       `json:"id"`
	ProductURL     *string         `json:"product_url"`
	Product        *models.Product `json:"product"`
	State          string          `json:"state"`
	Label          string          `json:"label"`
	IsTrainingData bool            `json:"is_training_data"`
}

type productsInListingResponse struct {
	ListingID   models.ID        `json:"listing_id"`
	Records     []recordView     `json:"records"`
	FewProducts []models.Product `json:"few_products"`
}

type addProductRequest struct {
	Name string `json:"name" validate:"max=256"`
}

func (h *Handler) writeEditor(w http.ResponseWriter, status int, e *junction.Editor) {
	records := e.Records()
	resp := productsInListingResponse{
		ListingID:   e.ListingID(),
		Records:     make([]recordView, 0, len(records)),
		FewProducts: e.FewProducts(),
	}
	for _, rec := range records {
		resp.Records = append(resp.Records, recordView{
			ID:             rec.ID,
			ProductURL:     rec.ProductURL,
			Product:        rec.Product,
			State:          rec.State.String(),
			Label:          rec.Label,
			IsTrainingData: rec.IsTrainingData,
		})
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) HandleProductsInListing(w http.ResponseWriter, r *http.Request) {
	listingID := models.ID(r.PathValue("id"))

	editor, initialized, err := h.editor(r.Context(), listingID)
	if err != nil {
		h.writeAPIError(w, err)
		return
	}
	if !initialized {
		if err := editor.Refresh(r.Context()); err != nil {
			h.writeAPIError(w, err)
			return
		}
	}
	h.writeEditor(w, http.StatusOK, editor)
}

func (h *Handler) HandleAddProduct(w http.ResponseWriter, r *http.Request) {
	listingID := models.ID(r.PathValue("id"))

	var req addProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	editor, _, err := h.editor(r.Context(), listingID)
	if err != nil {
		h.writeAPIError(w, err)
		return
	}
	if err := editor.AddProduct(r.Context(), req.Name); err != nil {
		h.writeAPIError(w, err)
		return
	}
	slog.Info("Product added to listing", "listing", listingID, "name", req.Name)
	h.writeEditor(w, http.StatusCreated, editor)
}

func (h *Handler) HandleRemoveProduct(w http.ResponseWriter, r *http.Request) {
	listingID := models.ID(r.PathValue("id"))
	recordID := models.ID(r.PathValue("recordID"))

	editor, _, err := h.editor(r.Context(), listingID)
	if err != nil {
		h.writeAPIError(w, err)
		return
	}
	if err := editor.RemoveProduct(r.Context(), recordID); err != nil {
		h.writeAPIError(w, err)
		return
	}
	slog.Info("Record removed from listing", "listing", listingID, "record", recordID)
	h.writeEditor(w, http.StatusOK, editor)
}
