package junction

import (
	"fmt"

	"github.com/eikewelk/econdata/internal/api"
	"github.com/eikewelk/econdata/internal/models"
)

// Resolution describes what a record's product reference resolved to.
type Resolution int

const (
	// NoProduct marks a record stating that the listing contains no
	// interesting product.
	NoProduct Resolution = iota
	// Resolved marks a record whose product was found among the candidates.
	Resolved
	// Unresolved marks a record whose product URL matches no candidate.
	Unresolved
)

func (r Resolution) String() string {
	switch r {
	case NoProduct:
		return "no-product"
	case Resolved:
		return "resolved"
	case Unresolved:
		return "unresolved"
	}
	return "unknown"
}

func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Resolution) UnmarshalText(text []byte) error {
	switch string(text) {
	case "no-product":
		*r = NoProduct
	case "resolved":
		*r = Resolved
	case "unresolved":
		*r = Unresolved
	default:
		return fmt.Errorf("unknown resolution %q", text)
	}
	return nil
}

// Display labels for records without a resolved product.
const (
	NoProductLabel  = "<No Products>"
	UnresolvedLabel = "<Unknown Product>"
)

// Record is one products-in-listing association. ProductURL and Listing are
// the raw hyperlinked references as served; Product, State and Label are
// filled in by resolution. After resolution Product is nil unless State is
// Resolved.
type Record struct {
	ID             models.ID `json:"id" yaml:"id"`
	Listing        string    `json:"listing" yaml:"listing"`
	ProductURL     *string   `json:"product" yaml:"product_url,omitempty"`
	IsTrainingData bool      `json:"is_training_data" yaml:"is_training_data"`

	Product *models.Product `json:"resolved_product,omitempty" yaml:"resolved_product,omitempty"`
	State   Resolution      `json:"state" yaml:"state"`
	Label   string          `json:"label" yaml:"label"`
}

// Resolver returns a function resolving records against candidates.
func Resolver(candidates []models.Product) func(Record) Record {
	byID := make(map[models.ID]models.Product, len(candidates))
	for _, p := range candidates {
		byID[p.ID] = p
	}
	return func(rec Record) Record {
		return resolve(rec, byID, api.IDFromURL)
	}
}

// resolve sets Product, State and Label from ProductURL.
func resolve(rec Record, byID map[models.ID]models.Product, idFromURL func(string) (models.ID, bool)) Record {
	rec.Product = nil
	if rec.ProductURL == nil || *rec.ProductURL == "" {
		rec.State = NoProduct
		rec.Label = NoProductLabel
		return rec
	}

	id, ok := idFromURL(*rec.ProductURL)
	if ok {
		if p, found := byID[id]; found {
			rec.Product = &p
			rec.State = Resolved
			rec.Label = p.Name
			return rec
		}
	}
	rec.State = Unresolved
	rec.Label = UnresolvedLabel
	return rec
}
