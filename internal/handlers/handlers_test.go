package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/eikewelk/econdata/internal/api"
	"github.com/eikewelk/econdata/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend is a single-page econdata API holding products and
// products-in-listing records in memory.
type backend struct {
	mu      sync.Mutex
	records []map[string]any
	nextID  int
	hits    map[string]int
	failPIL bool
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits[r.Method+" "+r.URL.Path]++

	page := func(results any) {
		_ = json.NewEncoder(w).Encode(map[string]any{"next": nil, "results": results})
	}

	switch {
	case r.URL.Path == api.ProductsPath:
		page([]models.Product{{ID: "7", Name: "Widget"}, {ID: "8", Name: "Gadget"}})
	case r.URL.Path == api.ListingsPath:
		page([]map[string]any{
			{"id": "a", "title": "Old", "time": "2017-01-01T00:00:00Z"},
			{"id": "b", "title": "New", "time": "2017-06-01T00:00:00Z"},
		})
	case r.URL.Path == api.ProductsInListingPath && r.Method == http.MethodGet && b.failPIL:
		http.Error(w, "boom", http.StatusInternalServerError)
	case r.URL.Path == api.ProductsInListingPath && r.Method == http.MethodGet:
		listing := api.ListingURL(models.ID(r.URL.Query().Get("listing")))
		results := []map[string]any{}
		for _, rec := range b.records {
			if rec["listing"] == listing {
				results = append(results, rec)
			}
		}
		page(results)
	case r.URL.Path == api.ProductsInListingPath && r.Method == http.MethodPost:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.nextID++
		body["id"] = b.nextID
		b.records = append(b.records, body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	case strings.HasPrefix(r.URL.Path, api.ProductsInListingPath) && r.Method == http.MethodDelete:
		http.Error(w, "Not found.", http.StatusNotFound)
	default:
		http.NotFound(w, r)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *backend) {
	t.Helper()
	b := &backend{hits: map[string]int{}}
	upstream := httptest.NewServer(b)
	t.Cleanup(upstream.Close)

	client, err := api.NewClient(upstream.URL)
	require.NoError(t, err)

	mux := http.NewServeMux()
	New(client, []models.ID{"8", "missing"}).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, b
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestListingsOrdered(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/listings")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count int              `json:"count"`
		Items []models.Listing `json:"items"`
	}
	decode(t, resp, &body)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, models.ID("b"), body.Items[0].ID)
}

func TestProductsCatalogCached(t *testing.T) {
	srv, b := newTestServer(t)

	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + "/api/products")
		require.NoError(t, err)
		resp.Body.Close()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, 1, b.hits["GET "+api.ProductsPath])
}

func TestCurateListing(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/listings/a/products")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var initial productsInListingResponse
	decode(t, resp, &initial)
	assert.Empty(t, initial.Records)
	require.Len(t, initial.FewProducts, 2)
	assert.Equal(t, "", initial.FewProducts[0].Name)
	assert.Equal(t, "Gadget", initial.FewProducts[1].Name)

	resp, err = http.Post(srv.URL+"/api/listings/a/products", "application/json", strings.NewReader(`{"name":"Widget"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var added productsInListingResponse
	decode(t, resp, &added)
	require.Len(t, added.Records, 1)
	assert.Equal(t, "resolved", added.Records[0].State)
	assert.Equal(t, "Widget", added.Records[0].Label)

	resp, err = http.Post(srv.URL+"/api/listings/a/products", "application/json", strings.NewReader(`{"name":"Nope"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRemoveUnknownRecord(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/listings/a/products/99", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddProductRejectsBadJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/listings/a/products", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConcurrentFirstUseOfListing(t *testing.T) {
	srv, _ := newTestServer(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(srv.URL + "/api/listings/a/products")
			if !assert.NoError(t, err) {
				return
			}
			var body productsInListingResponse
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			if assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body)) {
				assert.Equal(t, "", body.FewProducts[0].Name)
			}
		}()
	}
	wg.Wait()
}

func TestEditorPublishedOnlyAfterInitialize(t *testing.T) {
	b := &backend{hits: map[string]int{}, failPIL: true}
	upstream := httptest.NewServer(b)
	t.Cleanup(upstream.Close)
	client, err := api.NewClient(upstream.URL)
	require.NoError(t, err)
	h := New(client, nil)

	_, _, err = h.editor(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, 0, h.editors.Len())

	b.mu.Lock()
	b.failPIL = false
	b.mu.Unlock()

	e, initialized, err := h.editor(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, initialized)
	assert.Equal(t, 1, h.editors.Len())

	again, initialized, err := h.editor(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, initialized)
	assert.Same(t, e, again)
}

func TestUnknownOrderFieldSendsNoRequest(t *testing.T) {
	srv, b := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/listings?order=-nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Zero(t, b.hits["GET "+api.ListingsPath])
}
