package facetmux

import (
	"context"
	"fmt"
	"time"

	"github.com/facetmux/facetmux/internal/domain"
	"github.com/facetmux/facetmux/internal/domain/search/merge"
	"github.com/facetmux/facetmux/internal/domain/search/sortby"
	"github.com/facetmux/facetmux/internal/domain/search/state"
	"github.com/facetmux/facetmux/internal/logger"
	federateuc "github.com/facetmux/facetmux/internal/usecase/federate"
)

// FederatedBuilder is a fluent builder for one multi-collection search.
type FederatedBuilder struct {
	c *Client

	q           string
	collections []string
	strategy    merge.Strategy
	globalMax   int

	weights map[string]float64
	filters map[string]*state.FilterState
	sorts   map[string][]sortby.Field
	limits  map[string]int

	err error
}

// Federated starts a search across the named collections, merged under the
// client's default strategy. All collections must be registered.
func (c *Client) Federated(collections ...string) *FederatedBuilder {
	return &FederatedBuilder{
		c:           c,
		collections: collections,
		strategy:    c.strategy,
		globalMax:   c.globalMax,
		weights:     make(map[string]float64),
		filters:     make(map[string]*state.FilterState),
		sorts:       make(map[string][]sortby.Field),
		limits:      make(map[string]int),
	}
}

// Query sets the shared text query. Empty means match-all.
func (b *FederatedBuilder) Query(q string) *FederatedBuilder {
	b.q = q
	return b
}

// Strategy overrides the merge strategy for this call.
func (b *FederatedBuilder) Strategy(s string) *FederatedBuilder {
	b.strategy = merge.Strategy(s)
	return b
}

// MaxResults truncates the merged list after strategy ordering.
func (b *FederatedBuilder) MaxResults(n int) *FederatedBuilder {
	b.globalMax = n
	return b
}

// Weight assigns an explicit per-call weight to one collection, including
// zero, overriding the registered weight.
func (b *FederatedBuilder) Weight(collection string, w float64) *FederatedBuilder {
	if w < 0 {
		if b.err == nil {
			b.err = fmt.Errorf("collection %q: weight must be >= 0, got %v", collection, w)
		}
		return b
	}
	b.weights[collection] = w
	return b
}

// Limit caps one collection's own result list for this call.
func (b *FederatedBuilder) Limit(collection string, n int) *FederatedBuilder {
	b.limits[collection] = n
	return b
}

// Refine replaces the OR-selected values for a field in one collection's
// filter override.
func (b *FederatedBuilder) Refine(collection, field string, values ...string) *FederatedBuilder {
	b.state(collection).SetDisjunctive(field, values...)
	return b
}

// RefineRange replaces a numeric facet's selection in range mode for one
// collection: the selected values collapse into one min/max range clause.
func (b *FederatedBuilder) RefineRange(collection, field string, values ...string) *FederatedBuilder {
	b.state(collection).SetDisjunctiveRange(field, values...)
	return b
}

// Where sets a single-valued filter in one collection's filter override.
func (b *FederatedBuilder) Where(collection, field, value string) *FederatedBuilder {
	b.state(collection).SetSelective(field, value)
	return b
}

// Custom sets an OR-group filter outside the facet UI in one collection's
// filter override.
func (b *FederatedBuilder) Custom(collection, field string, values ...string) *FederatedBuilder {
	b.state(collection).SetCustom(field, values...)
	return b
}

// Between sets inclusive numeric bounds in one collection's filter override.
func (b *FederatedBuilder) Between(collection, field string, min, max float64) *FederatedBuilder {
	b.state(collection).SetNumericRange(field, &min, &max)
	return b
}

// AtLeast sets an inclusive lower numeric bound in one collection's filter
// override.
func (b *FederatedBuilder) AtLeast(collection, field string, min float64) *FederatedBuilder {
	b.state(collection).SetNumericRange(field, &min, nil)
	return b
}

// AtMost sets an inclusive upper numeric bound in one collection's filter
// override.
func (b *FederatedBuilder) AtMost(collection, field string, max float64) *FederatedBuilder {
	b.state(collection).SetNumericRange(field, nil, &max)
	return b
}

// DateBetween sets inclusive calendar-date bounds in one collection's filter
// override; either zero time is treated as an open bound.
func (b *FederatedBuilder) DateBetween(collection, field string, start, end time.Time) *FederatedBuilder {
	var s, e *time.Time
	if !start.IsZero() {
		s = &start
	}
	if !end.IsZero() {
		e = &end
	}
	b.state(collection).SetDateRange(field, s, e)
	return b
}

// Raw ANDs a raw passthrough expression, verbatim, with one collection's
// built clauses.
func (b *FederatedBuilder) Raw(collection, expr string) *FederatedBuilder {
	st := b.state(collection)
	if existing := st.Passthrough(); existing != "" {
		st.SetPassthrough(existing + " && " + expr)
	} else {
		st.SetPassthrough(expr)
	}
	return b
}

// SortBy overrides one collection's sort order from a "field:direction"
// comma list.
func (b *FederatedBuilder) SortBy(collection, expr string) *FederatedBuilder {
	fields, err := sortby.Parse(expr)
	if err != nil {
		if b.err == nil {
			b.err = fmt.Errorf("collection %q: %w: %w", collection, domain.ErrInvalidSort, err)
		}
		return b
	}
	b.sorts[collection] = fields
	return b
}

func (b *FederatedBuilder) state(collection string) *state.FilterState {
	st, ok := b.filters[collection]
	if !ok {
		st = state.New()
		b.filters[collection] = st
	}
	return st
}

// Do executes the federated search and returns the merged result.
func (b *FederatedBuilder) Do(ctx context.Context) (*FederatedResult, error) {
	if b.err != nil {
		return nil, fmt.Errorf("federated search: %w", b.err)
	}
	if len(b.collections) == 0 {
		return nil, fmt.Errorf("federated search: %w", domain.ErrNoCollections)
	}

	configs := make([]federateuc.CollectionConfig, 0, len(b.collections))
	for _, name := range b.collections {
		meta, ok := b.c.collections[name]
		if !ok {
			return nil, fmt.Errorf("federated search: %w: %q", domain.ErrUnknownCollection, name)
		}

		weight := meta.weight
		if w, ok := b.weights[name]; ok {
			weight = w
		}
		limit := meta.spec.Limit
		if l, ok := b.limits[name]; ok {
			limit = l
		}
		sortFields := meta.sort
		if s, ok := b.sorts[name]; ok {
			sortFields = s
		}
		var filters *state.FilterState
		if st, ok := b.filters[name]; ok {
			filters = st.Clone()
		}

		configs = append(configs, federateuc.CollectionConfig{
			Name:    name,
			QueryBy: meta.spec.QueryBy,
			Weight:  weight,
			Limit:   limit,
			Schema:  meta.schema,
			Filters: filters,
			Sort:    sortFields,
		})
	}

	ctx = logger.ContextWithLogger(ctx, b.c.logger)
	res, err := b.c.fedSvc.Execute(ctx, federateuc.Request{
		Query:       b.q,
		Collections: configs,
		Strategy:    b.strategy,
		GlobalMax:   b.globalMax,
	})
	if err != nil {
		return nil, fmt.Errorf("federated search: %w", err)
	}
	return federatedFromMerged(res.SearchID, res.Merged), nil
}
