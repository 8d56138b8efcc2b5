// Package collections provides sortable, filterable views over the listing,
// product and search-task collections.
package collections

import (
	"cmp"
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/eikewelk/econdata/internal/api"
	"github.com/eikewelk/econdata/internal/models"
	"github.com/eikewelk/econdata/internal/paging"
)

// Record is an item that can be ordered by a named field and matched
// against a free-text query.
type Record interface {
	FieldValue(name string) (any, bool)
	SearchText() string
}

// Browser materializes a collection and presents it ordered and filtered.
type Browser[T Record] struct {
	loader    *paging.Loader[T]
	orderProp string
	desc      bool
}

// NewBrowser creates a browser over the collection at path, ordered by
// orderProp. An orderProp prefixed with "-" sorts descending; an empty
// orderProp keeps server order.
func NewBrowser[T Record](client paging.Getter, path, orderProp string, opts ...paging.Option[T]) *Browser[T] {
	b := &Browser[T]{loader: paging.New(client, path, opts...)}
	b.SetOrder(orderProp)
	return b
}

// NewListings browses listings, newest first.
func NewListings(client paging.Getter, opts ...paging.Option[models.Listing]) *Browser[models.Listing] {
	return NewBrowser(client, api.ListingsPath, "-time", opts...)
}

// NewProducts browses the product catalog in server order.
func NewProducts(client paging.Getter, opts ...paging.Option[models.Product]) *Browser[models.Product] {
	return NewBrowser(client, api.ProductsPath, "", opts...)
}

// NewSearchTasks browses the search tasks in server order.
func NewSearchTasks(client paging.Getter, opts ...paging.Option[models.SearchTask]) *Browser[models.SearchTask] {
	return NewBrowser(client, api.SearchTasksPath, "", opts...)
}

// SetOrder changes the ordering field.
func (b *Browser[T]) SetOrder(orderProp string) {
	b.desc = strings.HasPrefix(orderProp, "-")
	b.orderProp = strings.TrimPrefix(orderProp, "-")
}

// CheckOrder reports an error if the order field is not a field of T.
func (b *Browser[T]) CheckOrder() error {
	if b.orderProp == "" {
		return nil
	}
	var zero T
	if _, ok := zero.FieldValue(b.orderProp); !ok {
		return fmt.Errorf("cannot order by unknown field %q", b.orderProp)
	}
	return nil
}

// Load fetches the whole collection.
func (b *Browser[T]) Load(ctx context.Context, filters url.Values) error {
	_, err := b.loader.Load(ctx, filters)
	return err
}

// Items returns the loaded items that contain query (case-insensitive),
// ordered by the current order field. Items whose field is unset sort last.
func (b *Browser[T]) Items(query string) ([]T, error) {
	items := b.loader.Items()

	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		items = slices.DeleteFunc(items, func(it T) bool {
			return !strings.Contains(strings.ToLower(it.SearchText()), q)
		})
	}

	if b.orderProp == "" {
		return items, nil
	}

	if err := b.CheckOrder(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(items, func(x, y T) int {
		xv, _ := x.FieldValue(b.orderProp)
		yv, _ := y.FieldValue(b.orderProp)
		xs, ys := sortKey(xv), sortKey(yv)
		// unset values sort last in both directions
		switch {
		case xs == nil && ys == nil:
			return 0
		case xs == nil:
			return 1
		case ys == nil:
			return -1
		}
		c := compareKeys(xs, ys)
		if b.desc {
			return -c
		}
		return c
	})
	return items, nil
}

// sortKey normalizes a field value to string, float64 or time.Time; nil
// means unset.
func sortKey(v any) any {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return float64(v)
	case float64:
		return v
	case *float64:
		if v == nil {
			return nil
		}
		return *v
	case time.Time:
		return v
	case *time.Time:
		if v == nil {
			return nil
		}
		return *v
	}
	return nil
}

func compareKeys(x, y any) int {
	switch xv := x.(type) {
	case string:
		return cmp.Compare(xv, y.(string))
	case float64:
		return cmp.Compare(xv, y.(float64))
	case time.Time:
		return xv.Compare(y.(time.Time))
	}
	return 0
}
