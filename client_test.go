package facetmux_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/facetmux/facetmux"
	"github.com/facetmux/facetmux/internal/domain"
)

// fakeBackend imitates the search service: it records every search request
// and answers with canned per-collection responses.
type fakeBackend struct {
	mu       sync.Mutex
	requests []backendRequest
	// responses keys on collection name; body is raw wire JSON.
	responses map[string]string
	// failures keys on collection name and forces a 503.
	failures map[string]bool
}

type backendRequest struct {
	Collection string
	Query      map[string]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		responses: make(map[string]string),
		failures:  make(map[string]bool),
	}
}

func (f *fakeBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 4 || parts[0] != "collections" {
			http.NotFound(w, r)
			return
		}
		collection := parts[1]

		query := make(map[string]string)
		for k, vs := range r.URL.Query() {
			query[k] = vs[0]
		}
		f.mu.Lock()
		f.requests = append(f.requests, backendRequest{Collection: collection, Query: query})
		f.mu.Unlock()

		if f.failures[collection] {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		body, ok := f.responses[collection]
		if !ok {
			body = `{"found": 0, "hits": []}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func (f *fakeBackend) seen() []backendRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backendRequest(nil), f.requests...)
}

func hitsJSON(scores ...float64) string {
	hits := make([]string, len(scores))
	for i, s := range scores {
		hits[i] = fmt.Sprintf(`{"document": {"id": "doc-%d"}, "text_match": %v}`, i, s)
	}
	return "[" + strings.Join(hits, ",") + "]"
}

func newTestClient(t *testing.T, backend *fakeBackend, opts ...facetmux.Option) *facetmux.Client {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	opts = append([]facetmux.Option{
		facetmux.WithServer(srv.URL, "test-key"),
		facetmux.WithCollections(
			facetmux.CollectionSpec{
				Name:        "products",
				QueryBy:     []string{"name", "description"},
				Weight:      2.0,
				DefaultSort: "_text_match:desc",
				Fields: []facetmux.FieldSpec{
					{Name: "price", Type: facetmux.FieldNumeric},
					{Name: "in_stock", Type: facetmux.FieldBool},
				},
			},
			facetmux.CollectionSpec{Name: "categories", QueryBy: []string{"title"}},
		),
	}, opts...)

	client, err := facetmux.New(opts...)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func TestSearch_FilterExpressionOnTheWire(t *testing.T) {
	backend := newFakeBackend()
	client := newTestClient(t, backend)

	_, err := client.Collection("products").
		Query("phone").
		Refine("category", "Electronics", "Books").
		AtLeast("price", 100).
		Do(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reqs := backend.seen()
	if len(reqs) != 1 {
		t.Fatalf("backend saw %d requests, want 1", len(reqs))
	}
	got := reqs[0].Query["filter_by"]
	want := "(category:=`Electronics` || category:=`Books`) && price:>=100"
	if got != want {
		t.Errorf("filter_by: got %q, want %q", got, want)
	}
	if reqs[0].Query["query_by"] != "name,description" {
		t.Errorf("registered query fields not applied: %q", reqs[0].Query["query_by"])
	}
	if reqs[0].Query["sort_by"] != "_text_match:desc" {
		t.Errorf("default sort not applied: %q", reqs[0].Query["sort_by"])
	}
}

func TestSearch_DisjunctiveFanOut(t *testing.T) {
	backend := newFakeBackend()
	backend.responses["products"] = `{
		"found": 5,
		"hits": ` + hitsJSON(100) + `,
		"facet_counts": [
			{"field_name": "category", "counts": [{"value": "Electronics", "count": 5}, {"value": "Books", "count": 3}]}
		]
	}`
	client := newTestClient(t, backend)

	result, err := client.Collection("products").
		Query("phone").
		DisjunctiveOn("category").
		Refine("category", "Electronics").
		AtLeast("price", 100).
		Do(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.QueriesIssued != 2 {
		t.Errorf("got %d queries, want 2", result.QueriesIssued)
	}

	reqs := backend.seen()
	if len(reqs) != 2 {
		t.Fatalf("backend saw %d requests, want 2", len(reqs))
	}
	var sawPrimary, sawAux bool
	for _, r := range reqs {
		switch r.Query["filter_by"] {
		case "category:=`Electronics` && price:>=100":
			sawPrimary = true
		case "price:>=100":
			sawAux = true
			if r.Query["facet_by"] != "category" {
				t.Errorf("auxiliary facet_by: got %q, want category", r.Query["facet_by"])
			}
		default:
			t.Errorf("unexpected filter_by %q", r.Query["filter_by"])
		}
	}
	if !sawPrimary || !sawAux {
		t.Errorf("primary=%v auxiliary=%v", sawPrimary, sawAux)
	}

	if len(result.Facets) != 1 || result.Facets[0].Field != "category" {
		t.Fatalf("facets wrong: %+v", result.Facets)
	}
	if len(result.Facets[0].Values) != 2 {
		t.Errorf("category counts should come from the unrestricted query: %+v", result.Facets[0].Values)
	}
}

func TestSearch_DisjunctiveDisabledGlobally(t *testing.T) {
	backend := newFakeBackend()
	client := newTestClient(t, backend, facetmux.WithDisjunctiveFacets(false))

	result, err := client.Collection("products").
		DisjunctiveOn("category").
		Refine("category", "Electronics").
		Do(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.QueriesIssued != 1 {
		t.Errorf("got %d queries, want 1", result.QueriesIssued)
	}
}

func TestSearch_UnregisteredCollectionNeedsQueryBy(t *testing.T) {
	backend := newFakeBackend()
	client := newTestClient(t, backend)

	_, err := client.Collection("unknown").Query("q").Do(context.Background())
	if err == nil {
		t.Fatal("expected error for missing query fields")
	}

	// explicit QueryBy makes an ad-hoc collection searchable
	_, err = client.Collection("unknown").Query("q").QueryBy("name").Do(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearch_PerPageCapped(t *testing.T) {
	backend := newFakeBackend()
	client := newTestClient(t, backend, facetmux.WithPagination(20, 50))

	_, err := client.Collection("products").PerPage(500).Do(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := backend.seen()[0].Query["per_page"]; got != "50" {
		t.Errorf("per_page: got %q, want 50", got)
	}
}

func TestSearch_InvalidGeoFailsAtDo(t *testing.T) {
	backend := newFakeBackend()
	client := newTestClient(t, backend)

	_, err := client.Collection("products").
		Near("location", 123, 0, 5).
		Do(context.Background())
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
	if len(backend.seen()) != 0 {
		t.Error("no request should reach the backend")
	}
}

func TestSearch_PrimaryFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.failures["products"] = true
	client := newTestClient(t, backend)

	_, err := client.Collection("products").Query("q").Do(context.Background())
	if !errors.Is(err, domain.ErrPrimaryQueryFailed) {
		t.Fatalf("expected ErrPrimaryQueryFailed, got %v", err)
	}
}

func TestFederated_MergeAcrossCollections(t *testing.T) {
	backend := newFakeBackend()
	backend.responses["products"] = `{"found": 2, "hits": ` + hitsJSON(100, 50) + `}`
	backend.responses["categories"] = `{"found": 1, "hits": ` + hitsJSON(80) + `}`
	client := newTestClient(t, backend)

	result, err := client.Federated("products", "categories").
		Query("phone").
		Do(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(result.Hits))
	}
	// products (weight 2.0) top hit leads; its weight survives into the result
	if result.Hits[0].Collection != "products" || result.Hits[0].Weight != 2.0 {
		t.Errorf("top hit wrong: %+v", result.Hits[0])
	}
	if out := result.Collections["products"]; out.Failed || out.Found != 2 {
		t.Errorf("products outcome wrong: %+v", out)
	}
}

func TestFederated_PerCallOverrides(t *testing.T) {
	backend := newFakeBackend()
	client := newTestClient(t, backend)

	_, err := client.Federated("products", "categories").
		Query("q").
		Weight("products", 0).
		Limit("products", 3).
		Where("products", "in_stock", "true").
		SortBy("products", "price:asc").
		Do(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, r := range backend.seen() {
		if r.Collection != "products" {
			continue
		}
		if r.Query["filter_by"] != "in_stock:=true" {
			t.Errorf("filter override: got %q", r.Query["filter_by"])
		}
		if r.Query["per_page"] != "3" {
			t.Errorf("limit override: got %q", r.Query["per_page"])
		}
		if r.Query["sort_by"] != "price:asc" {
			t.Errorf("sort override: got %q", r.Query["sort_by"])
		}
	}
}

func TestFederated_UnknownCollection(t *testing.T) {
	backend := newFakeBackend()
	client := newTestClient(t, backend)

	_, err := client.Federated("products", "nope").Query("q").Do(context.Background())
	if !errors.Is(err, domain.ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestFederated_AllCollectionsFailed(t *testing.T) {
	backend := newFakeBackend()
	backend.failures["products"] = true
	backend.failures["categories"] = true
	client := newTestClient(t, backend)

	_, err := client.Federated("products", "categories").Query("q").Do(context.Background())
	if !errors.Is(err, domain.ErrAllCollectionsFailed) {
		t.Fatalf("expected ErrAllCollectionsFailed, got %v", err)
	}
}

func TestFederated_NegativeWeightRejected(t *testing.T) {
	backend := newFakeBackend()
	client := newTestClient(t, backend)

	_, err := client.Federated("products").Weight("products", -1).Do(context.Background())
	if err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := facetmux.New()
	if err == nil {
		t.Error("missing server URL should fail")
	}

	_, err = facetmux.New(
		facetmux.WithServer("http://localhost:8108", "key"),
		facetmux.WithMergeDefaults("alphabetical", 0),
	)
	if err == nil {
		t.Error("unknown strategy should fail")
	}

	_, err = facetmux.New(
		facetmux.WithServer("http://localhost:8108", "key"),
		facetmux.WithCollections(facetmux.CollectionSpec{Name: "p", QueryBy: []string{"n"}, Weight: -1}),
	)
	if err == nil {
		t.Error("negative registered weight should fail")
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	t.Cleanup(srv.Close)

	client, err := facetmux.New(facetmux.WithServer(srv.URL, "key"))
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	report := client.Health(context.Background())
	if !report.OK || !report.Checks["backend"] {
		t.Errorf("report wrong: %+v", report)
	}
}
