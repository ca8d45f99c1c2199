package facets

import (
	"context"

	"github.com/facetmux/facetmux/internal/backend"
)

// Searcher executes one collection query against the backing search service.
type Searcher interface {
	Search(ctx context.Context, collection string, params backend.SearchParams) (*backend.SearchResponse, error)
}
