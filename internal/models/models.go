package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ID is a resource identifier. The backend serializes character primary keys
// as strings and auto-increment keys as numbers; both decode to ID.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Page is the paged envelope returned by every collection endpoint.
type Page[T any] struct {
	Count    int     `json:"count,omitempty"`
	Next     *string `json:"next"`
	Previous *string `json:"previous,omitempty"`
	Results  []T     `json:"results"`
}

// HasNext reports whether the server advertised a further page.
func (p Page[T]) HasNext() bool {
	return p.Next != nil
}

// Listing is a listing on an e-commerce site.
type Listing struct {
	ID                ID         `json:"id" yaml:"id"`
	Site              string     `json:"site" yaml:"site"`
	IDSite            string     `json:"id_site" yaml:"id_site"`
	Title             string     `json:"title" yaml:"title"`
	Description       string     `json:"description" yaml:"description,omitempty"`
	ProdSpec          string     `json:"prod_spec" yaml:"prod_spec,omitempty"`
	Condition         string     `json:"condition" yaml:"condition,omitempty"`
	Time              *time.Time `json:"time" yaml:"time,omitempty"`
	Currency          string     `json:"currency" yaml:"currency,omitempty"`
	Price             *float64   `json:"price" yaml:"price,omitempty"`
	ShippingPrice     *float64   `json:"shipping_price" yaml:"shipping_price,omitempty"`
	IsReal            *bool      `json:"is_real" yaml:"is_real,omitempty"`
	IsSold            *bool      `json:"is_sold" yaml:"is_sold,omitempty"`
	Location          string     `json:"location" yaml:"location,omitempty"`
	ShippingLocations string     `json:"shipping_locations" yaml:"shipping_locations,omitempty"`
	Seller            string     `json:"seller" yaml:"seller,omitempty"`
	Buyer             string     `json:"buyer" yaml:"buyer,omitempty"`
	ItemURL           string     `json:"item_url" yaml:"item_url,omitempty"`
	Status            string     `json:"status" yaml:"status,omitempty"`
	ListingType       string     `json:"listing_type" yaml:"listing_type,omitempty"`
}

func (l Listing) FieldValue(name string) (any, bool) {
	switch name {
	case "id":
		return string(l.ID), true
	case "site":
		return l.Site, true
	case "title":
		return l.Title, true
	case "condition":
		return l.Condition, true
	case "time":
		return l.Time, true
	case "currency":
		return l.Currency, true
	case "price":
		return l.Price, true
	case "shipping_price":
		return l.ShippingPrice, true
	case "location":
		return l.Location, true
	case "seller":
		return l.Seller, true
	case "status":
		return l.Status, true
	case "listing_type":
		return l.ListingType, true
	}
	return nil, false
}

func (l Listing) SearchText() string {
	return strings.Join([]string{string(l.ID), l.Title, l.Description, l.Location, l.Seller}, " ")
}

// Product is an entry of the product catalog.
type Product struct {
	ID              ID     `json:"id" yaml:"id" parquet:"id"`
	Name            string `json:"name" yaml:"name" parquet:"name"`
	ImportantWords  string `json:"important_words" yaml:"important_words,omitempty" parquet:"important_words"`
	Categories      string `json:"categories" yaml:"categories,omitempty" parquet:"categories"`
	Description     string `json:"description" yaml:"description,omitempty" parquet:"description"`
	DescriptionURL1 string `json:"description_url1" yaml:"description_url1,omitempty" parquet:"description_url1"`
	DescriptionURL2 string `json:"description_url2" yaml:"description_url2,omitempty" parquet:"description_url2"`
}

func (p Product) FieldValue(name string) (any, bool) {
	switch name {
	case "id":
		return string(p.ID), true
	case "name":
		return p.Name, true
	case "categories":
		return p.Categories, true
	case "important_words":
		return p.ImportantWords, true
	}
	return nil, false
}

func (p Product) SearchText() string {
	return strings.Join([]string{string(p.ID), p.Name, p.ImportantWords, p.Categories}, " ")
}

// SearchTask is a recurring search for a product on a remote site.
type SearchTask struct {
	ID          ID       `json:"id" yaml:"id"`
	Recurrence  string   `json:"recurrence" yaml:"recurrence"`
	Server      string   `json:"server" yaml:"server"`
	Product     *string  `json:"product" yaml:"product,omitempty"`
	QueryString string   `json:"query_string" yaml:"query_string"`
	NListings   int      `json:"n_listings" yaml:"n_listings"`
	PriceMin    *float64 `json:"price_min" yaml:"price_min,omitempty"`
	PriceMax    *float64 `json:"price_max" yaml:"price_max,omitempty"`
	Currency    string   `json:"currency" yaml:"currency,omitempty"`
}

func (s SearchTask) FieldValue(name string) (any, bool) {
	switch name {
	case "id":
		return string(s.ID), true
	case "recurrence":
		return s.Recurrence, true
	case "server":
		return s.Server, true
	case "query_string":
		return s.QueryString, true
	case "n_listings":
		return s.NListings, true
	case "price_min":
		return s.PriceMin, true
	case "price_max":
		return s.PriceMax, true
	}
	return nil, false
}

func (s SearchTask) SearchText() string {
	return strings.Join([]string{string(s.ID), s.Server, s.QueryString}, " ")
}

// ProductsInListing records that a product appears in a listing. Product and
// Listing hold hyperlinked identifiers; Product is nil when the listing was
// marked as containing no interesting product.
type ProductsInListing struct {
	ID             ID      `json:"id"`
	Product        *string `json:"product"`
	Listing        string  `json:"listing"`
	IsTrainingData bool    `json:"is_training_data"`
}

// NewProductsInListing is the request body for creating a ProductsInListing.
type NewProductsInListing struct {
	Product        *string `json:"product"`
	Listing        string  `json:"listing"`
	IsTrainingData bool    `json:"is_training_data"`
}
