package paging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eikewelk/econdata/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// pagedServer serves pages[n-1] for ?page=n and records every query.
type pagedServer struct {
	t       *testing.T
	pages   [][]item
	failOn  int
	delay   time.Duration
	mu      sync.Mutex
	queries []map[string]string
	hits    atomic.Int32
}

func (s *pagedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)
	q := map[string]string{}
	for k := range r.URL.Query() {
		q[k] = r.URL.Query().Get(k)
	}
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 || n > len(s.pages) {
		http.Error(w, "Invalid page.", http.StatusNotFound)
		return
	}
	if n == s.failOn {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	var next *string
	if n < len(s.pages) {
		u := "http://" + r.Host + r.URL.Path + "?page=" + strconv.Itoa(n+1)
		next = &u
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(map[string]any{
		"count":   s.count(),
		"next":    next,
		"results": s.pages[n-1],
	})
	if err != nil {
		s.t.Errorf("encode page: %v", err)
	}
}

func (s *pagedServer) count() int {
	total := 0
	for _, p := range s.pages {
		total += len(p)
	}
	return total
}

func newLoader(t *testing.T, s *pagedServer, opts ...Option[item]) *Loader[item] {
	t.Helper()
	s.t = t
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	client, err := api.NewClient(srv.URL)
	require.NoError(t, err)
	return New(client, "/econdata/api/products/", opts...)
}

func threePages() [][]item {
	return [][]item{
		{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}},
		{{ID: "3", Name: "c"}},
		{{ID: "4", Name: "d"}, {ID: "5", Name: "e"}},
	}
}

func TestLoadConcatenatesPagesInOrder(t *testing.T) {
	s := &pagedServer{pages: threePages()}
	l := newLoader(t, s)

	items, err := l.Load(context.Background(), nil)
	require.NoError(t, err)

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids)
	assert.Equal(t, 5, l.Len())
	assert.True(t, l.Complete())
}

func TestLoadStopsWhenNextIsNull(t *testing.T) {
	s := &pagedServer{pages: threePages()}
	l := newLoader(t, s)

	_, err := l.Load(context.Background(), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, s.hits.Load())
}

func TestLoadSendsFiltersWithEveryPage(t *testing.T) {
	s := &pagedServer{pages: threePages()}
	l := newLoader(t, s)

	_, err := l.Load(context.Background(), map[string][]string{"listing": {"L-1"}})
	require.NoError(t, err)

	require.Len(t, s.queries, 3)
	for i, q := range s.queries {
		assert.Equal(t, "L-1", q["listing"], "request %d", i)
		assert.Equal(t, strconv.Itoa(i+1), q["page"], "request %d", i)
	}
}

func TestLoadKeepsPartialResultsOnFailure(t *testing.T) {
	s := &pagedServer{pages: threePages(), failOn: 2}
	l := newLoader(t, s)

	items, err := l.Load(context.Background(), nil)
	require.Error(t, err)

	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, l.Len())
	assert.False(t, l.Complete())
	assert.EqualValues(t, 2, s.hits.Load(), "no retry and no further pages")
}

func TestLoadClearsPreviousPass(t *testing.T) {
	s := &pagedServer{pages: threePages()}
	l := newLoader(t, s)

	first, err := l.Load(context.Background(), nil)
	require.NoError(t, err)
	second, err := l.Load(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, second, 5)
}

func TestOverlappingLoadsAreSerialized(t *testing.T) {
	s := &pagedServer{pages: threePages(), delay: 10 * time.Millisecond}
	l := newLoader(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Load(context.Background(), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, l.Len(), "no duplicates from interleaved passes")
	assert.EqualValues(t, 9, s.hits.Load())
}

func TestProgressAndMapper(t *testing.T) {
	s := &pagedServer{pages: threePages()}
	var calls [][2]int
	l := newLoader(t, s,
		WithProgress[item](func(loaded, page int) {
			calls = append(calls, [2]int{loaded, page})
		}),
		WithMapper(func(it item) item {
			it.Name = "mapped-" + it.Name
			return it
		}),
	)

	items, err := l.Load(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{2, 1}, {3, 2}, {5, 3}}, calls)
	assert.Equal(t, "mapped-a", items[0].Name)
}

func TestPagesStopsWhenConsumerBreaks(t *testing.T) {
	s := &pagedServer{pages: threePages()}
	l := newLoader(t, s)

	for page, err := range l.Pages(context.Background(), nil) {
		require.NoError(t, err)
		assert.Len(t, page.Results, 2)
		break
	}
	assert.EqualValues(t, 1, s.hits.Load())
	assert.Equal(t, 0, l.Len(), "Pages does not materialize")
}

func TestLoadHonoursCancelledContext(t *testing.T) {
	s := &pagedServer{pages: threePages()}
	l := newLoader(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Load(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
}
