// Package junction curates which products appear in a listing.
//
// An Editor keeps a reference-resolved view of the products-in-listing
// records of one listing and offers create/delete operations. It never
// patches its view in place: every successful mutation is followed by a full
// refresh from page 1, so the view always reflects the server.
package junction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/eikewelk/econdata/internal/api"
	"github.com/eikewelk/econdata/internal/models"
	"github.com/eikewelk/econdata/internal/paging"
)

// ErrNoMatchingCandidate is returned by AddProduct when a non-empty product
// name matches no candidate product. No request is sent.
var ErrNoMatchingCandidate = errors.New("no candidate product with this name")

// ListingFilter is the query parameter selecting the records of one listing.
const ListingFilter = "listing"

// Client is the subset of *api.Client used by the editor.
type Client interface {
	paging.Getter
	Post(ctx context.Context, ref string, body, out any) error
	Delete(ctx context.Context, ref string) error
}

// Editor edits the products-in-listing records of one listing.
type Editor struct {
	client    Client
	listingID models.ID
	loader    *paging.Loader[Record]

	candidates []models.Product

	mu  sync.RWMutex
	few []models.Product
}

// NewEditor creates an editor for listingID. candidates is the full product
// catalog used for resolution and name lookup; few is the shortlist offered
// for selection. Neither slice is modified.
func NewEditor(client Client, listingID models.ID, candidates, few []models.Product) *Editor {
	e := &Editor{
		client:     client,
		listingID:  listingID,
		candidates: append([]models.Product(nil), candidates...),
		few:        append([]models.Product(nil), few...),
	}
	e.loader = paging.New(client, api.ProductsInListingPath, paging.WithMapper(Resolver(candidates)))
	return e
}

// ListingID returns the listing this editor is bound to.
func (e *Editor) ListingID() models.ID {
	return e.listingID
}

// Initialize prepends the "no product" sentinel to the shortlist and loads
// the records.
func (e *Editor) Initialize(ctx context.Context) error {
	e.mu.Lock()
	e.few = append([]models.Product{{Name: ""}}, e.few...)
	e.mu.Unlock()
	return e.Refresh(ctx)
}

// Refresh rebuilds the records from page 1. If a page fails, the records of
// the preceding pages remain visible and the error is returned.
func (e *Editor) Refresh(ctx context.Context) error {
	filters := url.Values{ListingFilter: {string(e.listingID)}}
	records, err := e.loader.Load(ctx, filters)
	if err != nil {
		return fmt.Errorf("refresh products of listing %s: %w", e.listingID, err)
	}
	slog.Debug("Products in listing refreshed", "listing", e.listingID, "records", len(records))
	return nil
}

// Records returns the resolved records in server order.
func (e *Editor) Records() []Record {
	return e.loader.Items()
}

// FewProducts returns the shortlist, including the sentinel once
// Initialize has run.
func (e *Editor) FewProducts() []models.Product {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.Product(nil), e.few...)
}

// Candidates returns the product catalog used for resolution.
func (e *Editor) Candidates() []models.Product {
	return append([]models.Product(nil), e.candidates...)
}

// AddProduct records that the product called productName appears in the
// listing. An empty name records that the listing contains no interesting
// product. The new record is always marked as training data.
func (e *Editor) AddProduct(ctx context.Context, productName string) error {
	body := models.NewProductsInListing{
		Listing:        api.ListingURL(e.listingID),
		IsTrainingData: true,
	}

	if productName != "" {
		product, ok := e.findByName(productName)
		if !ok {
			slog.Info("Product not found, nothing added", "listing", e.listingID, "name", productName)
			return fmt.Errorf("%w: %q", ErrNoMatchingCandidate, productName)
		}
		ref := api.ProductURL(product.ID)
		body.Product = &ref
	}

	slog.Info("Adding product to listing", "listing", e.listingID, "name", productName)
	if err := e.client.Post(ctx, api.ProductsInListingPath, body, nil); err != nil {
		return fmt.Errorf("add product %q to listing %s: %w", productName, e.listingID, err)
	}
	return e.Refresh(ctx)
}

// RemoveProduct deletes the record with the given id.
func (e *Editor) RemoveProduct(ctx context.Context, recordID models.ID) error {
	slog.Info("Removing product from listing", "listing", e.listingID, "record", recordID)
	if err := e.client.Delete(ctx, api.ProductsInListingURL(recordID)); err != nil {
		return fmt.Errorf("remove record %s from listing %s: %w", recordID, e.listingID, err)
	}
	return e.Refresh(ctx)
}

func (e *Editor) findByName(name string) (models.Product, bool) {
	for _, p := range e.candidates {
		if p.Name == name {
			return p, true
		}
	}
	return models.Product{}, false
}
