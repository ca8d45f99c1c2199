package backend

import "context"

// SearchParams are the wire-level parameters for one collection query.
// FilterBy and SortBy carry expressions already serialized into the
// backend's query language.
type SearchParams struct {
	Query          string
	QueryBy        []string
	FilterBy       string
	SortBy         string
	FacetBy        []string
	MaxFacetValues int
	Page           int
	PerPage        int
}

// Hit is one document returned by the backend, with its raw relevance score
// and highlight payload preserved verbatim.
type Hit struct {
	Document  map[string]any
	Highlight map[string]any
	Score     float64
}

// FacetValue is one facet value with its count, as reported by the backend.
type FacetValue struct {
	Value string
	Count int
}

// FacetStats holds min/max statistics for a numeric facet field.
type FacetStats struct {
	Min float64
	Max float64
}

// FacetCount is one field's facet block in a response.
type FacetCount struct {
	FieldName string
	Counts    []FacetValue
	Stats     *FacetStats
}

// SearchResponse is the structured result of one collection query.
type SearchResponse struct {
	Hits         []Hit
	Found        int
	Page         int
	PerPage      int
	SearchTimeMs int
	FacetCounts  []FacetCount
}

// Searcher is the contract the backing search service client fulfils.
// One call, one collection; fan-out and retries live above and below it
// respectively.
type Searcher interface {
	Search(ctx context.Context, collection string, params SearchParams) (*SearchResponse, error)
}

// Pinger checks backend availability.
type Pinger interface {
	Ping(ctx context.Context) error
}
