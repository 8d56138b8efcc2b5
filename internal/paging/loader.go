// Package paging materializes server-paginated collections.
//
// A collection endpoint answers with the envelope {"results": [...],
// "next": URL|null}. Loader walks the pages in order, requesting page n+1
// only after page n arrived, and appends every page's results to a local
// sequence that is cleared at the start of each pass.
package paging

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strconv"
	"sync"

	"github.com/eikewelk/econdata/internal/models"
)

// PageParam is the query parameter carrying the page number.
const PageParam = "page"

// Getter fetches a JSON document. *api.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, ref string, query url.Values, out any) error
}

// ProgressFunc is called after each page was appended, with the number of
// items materialized so far and the number of the page just appended.
type ProgressFunc func(loaded, page int)

// Option configures a Loader.
type Option[T any] func(*Loader[T])

// WithProgress registers a progress callback.
func WithProgress[T any](fn ProgressFunc) Option[T] {
	return func(l *Loader[T]) {
		l.progress = fn
	}
}

// WithMapper transforms every decoded item before it is appended.
func WithMapper[T any](fn func(T) T) Option[T] {
	return func(l *Loader[T]) {
		l.mapper = fn
	}
}

// Loader materializes one collection endpoint. Passes are serialized: a Load
// started while another is running waits for it to finish, then rebuilds the
// sequence from page 1.
type Loader[T any] struct {
	client   Getter
	path     string
	progress ProgressFunc
	mapper   func(T) T

	pass chan struct{}

	mu    sync.RWMutex
	items []T
	done  bool
}

// New creates a loader for the collection at path.
func New[T any](client Getter, path string, opts ...Option[T]) *Loader[T] {
	l := &Loader[T]{
		client: client,
		path:   path,
		pass:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the collection endpoint.
func (l *Loader[T]) Path() string {
	return l.path
}

// Pages returns a lazy sequence over the pages of the collection, starting
// at page 1. The sequence ends after the first page whose next field is
// null, after the first error (yielded with a zero page), or when ctx is
// done. Filters are sent with every page request.
func (l *Loader[T]) Pages(ctx context.Context, filters url.Values) iter.Seq2[models.Page[T], error] {
	return func(yield func(models.Page[T], error) bool) {
		for n := 1; ; n++ {
			if err := ctx.Err(); err != nil {
				yield(models.Page[T]{}, fmt.Errorf("page %d of %s: %w", n, l.path, err))
				return
			}

			query := url.Values{}
			for k, vs := range filters {
				query[k] = append([]string(nil), vs...)
			}
			query.Set(PageParam, strconv.Itoa(n))

			var page models.Page[T]
			if err := l.client.Get(ctx, l.path, query, &page); err != nil {
				yield(models.Page[T]{}, fmt.Errorf("page %d of %s: %w", n, l.path, err))
				return
			}
			if !yield(page, nil) {
				return
			}
			if !page.HasNext() {
				return
			}
		}
	}
}

// Load runs a fresh pass: the local sequence is cleared, then every page is
// fetched and appended. On error the items appended so far stay visible and
// the error is returned; the pass is not retried.
func (l *Loader[T]) Load(ctx context.Context, filters url.Values) ([]T, error) {
	select {
	case l.pass <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for running pass on %s: %w", l.path, ctx.Err())
	}
	defer func() { <-l.pass }()

	l.reset()

	n := 0
	for page, err := range l.Pages(ctx, filters) {
		if err != nil {
			slog.Error("Pagination pass aborted", "path", l.path, "loaded", l.Len(), "err", err)
			return l.Items(), err
		}
		n++
		loaded := l.append(page.Results)
		slog.Debug("Page loaded", "path", l.path, "page", n, "results", len(page.Results), "loaded", loaded)
		if l.progress != nil {
			l.progress(loaded, n)
		}
	}

	l.mu.Lock()
	l.done = true
	l.mu.Unlock()

	return l.Items(), nil
}

func (l *Loader[T]) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	l.done = false
}

func (l *Loader[T]) append(results []T) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, item := range results {
		if l.mapper != nil {
			item = l.mapper(item)
		}
		l.items = append(l.items, item)
	}
	return len(l.items)
}

// Items returns a copy of the materialized sequence.
func (l *Loader[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of materialized items.
func (l *Loader[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Complete reports whether the last pass reached the final page.
func (l *Loader[T]) Complete() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.done
}
