package api

import (
	"net/url"
	"strings"

	"github.com/eikewelk/econdata/internal/models"
)

// Collection endpoints, relative to the server root.
const (
	ListingsPath          = "/econdata/api/listings/"
	ProductsPath          = "/econdata/api/products/"
	ProductsInListingPath = "/econdata/api/products-in-listings/"
	SearchTasksPath       = "/collect/api/search_tasks/"
)

// ItemPath is the hyperlinked identifier of one item of a collection.
func ItemPath(collection string, id models.ID) string {
	return strings.TrimSuffix(collection, "/") + "/" + url.PathEscape(string(id)) + "/"
}

func ListingURL(id models.ID) string { return ItemPath(ListingsPath, id) }

func ProductURL(id models.ID) string { return ItemPath(ProductsPath, id) }

func ProductsInListingURL(id models.ID) string { return ItemPath(ProductsInListingPath, id) }

// IDFromURL extracts the identifier encoded in the last path segment of a
// hyperlinked reference, e.g. "7" from "http://host/econdata/api/products/7/".
func IDFromURL(ref string) (models.ID, bool) {
	path := ref
	if u, err := url.Parse(ref); err == nil {
		path = u.EscapedPath()
	}
	path = strings.TrimRight(path, "/")
	i := strings.LastIndex(path, "/")
	seg := path[i+1:]
	if seg == "" {
		return "", false
	}
	if unescaped, err := url.PathUnescape(seg); err == nil {
		seg = unescaped
	}
	return models.ID(seg), true
}
