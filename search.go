package facetmux

import (
	"context"
	"fmt"
	"time"

	"github.com/facetmux/facetmux/internal/domain"
	"github.com/facetmux/facetmux/internal/domain/collection/field"
	"github.com/facetmux/facetmux/internal/domain/search/sortby"
	"github.com/facetmux/facetmux/internal/domain/search/state"
	"github.com/facetmux/facetmux/internal/logger"
	"github.com/facetmux/facetmux/internal/query"
	facetsuc "github.com/facetmux/facetmux/internal/usecase/facets"
)

// QueryBuilder is a fluent builder for one single-collection search.
// It owns a private FilterState; Do hands the orchestrator a snapshot, so
// reusing the builder after Do cannot affect an in-flight invocation.
type QueryBuilder struct {
	c          *Client
	collection string

	q           string
	queryBy     []string
	filters     *state.FilterState
	sort        []sortby.Field
	facets      []string
	disjunctive []string
	page        int
	perPage     int

	// First construction error; surfaced at Do.
	err error
}

// Collection starts a search against one collection. Registered collections
// contribute their field schema, query fields and default sort.
func (c *Client) Collection(name string) *QueryBuilder {
	b := &QueryBuilder{c: c, collection: name, filters: state.New()}
	if meta, ok := c.collections[name]; ok {
		b.queryBy = meta.spec.QueryBy
		b.sort = meta.sort
	}
	return b
}

// Query sets the text query. Empty means match-all.
func (b *QueryBuilder) Query(q string) *QueryBuilder {
	b.q = q
	return b
}

// QueryBy overrides the fields the text query matches against.
func (b *QueryBuilder) QueryBy(fields ...string) *QueryBuilder {
	b.queryBy = fields
	return b
}

// FacetOn requests facet counts for fields.
func (b *QueryBuilder) FacetOn(fields ...string) *QueryBuilder {
	b.facets = append(b.facets, fields...)
	return b
}

// DisjunctiveOn flags fields as disjunctive (OR-semantics with
// self-exclusion count queries). Fields are also added to the facet list if
// not already requested.
func (b *QueryBuilder) DisjunctiveOn(fields ...string) *QueryBuilder {
	for _, f := range fields {
		if !contains(b.disjunctive, f) {
			b.disjunctive = append(b.disjunctive, f)
		}
		if !contains(b.facets, f) {
			b.facets = append(b.facets, f)
		}
	}
	return b
}

// Refine replaces the OR-selected values for a disjunctive field.
func (b *QueryBuilder) Refine(field string, values ...string) *QueryBuilder {
	b.filters.SetDisjunctive(field, values...)
	return b
}

// Toggle flips one value in a disjunctive field's selection.
func (b *QueryBuilder) Toggle(field, value string) *QueryBuilder {
	b.filters.ToggleDisjunctive(field, value)
	return b
}

// RefineRange replaces a numeric facet's selection in range mode: the
// selected values collapse into one min/max range clause.
func (b *QueryBuilder) RefineRange(field string, values ...string) *QueryBuilder {
	b.filters.SetDisjunctiveRange(field, values...)
	return b
}

// Where sets a single-valued, mutually exclusive filter.
func (b *QueryBuilder) Where(field, value string) *QueryBuilder {
	b.filters.SetSelective(field, value)
	return b
}

// Custom sets an OR-group filter outside the facet UI.
func (b *QueryBuilder) Custom(field string, values ...string) *QueryBuilder {
	b.filters.SetCustom(field, values...)
	return b
}

// Between sets inclusive numeric bounds.
func (b *QueryBuilder) Between(field string, min, max float64) *QueryBuilder {
	b.filters.SetNumericRange(field, &min, &max)
	return b
}

// AtLeast sets an inclusive lower numeric bound.
func (b *QueryBuilder) AtLeast(field string, min float64) *QueryBuilder {
	b.filters.SetNumericRange(field, &min, nil)
	return b
}

// AtMost sets an inclusive upper numeric bound.
func (b *QueryBuilder) AtMost(field string, max float64) *QueryBuilder {
	b.filters.SetNumericRange(field, nil, &max)
	return b
}

// DateBetween sets inclusive calendar-date bounds; either zero time is
// treated as an open bound.
func (b *QueryBuilder) DateBetween(field string, start, end time.Time) *QueryBuilder {
	var s, e *time.Time
	if !start.IsZero() {
		s = &start
	}
	if !end.IsZero() {
		e = &end
	}
	b.filters.SetDateRange(field, s, e)
	return b
}

// Near adds a geo-radius clause (radius in kilometers). Coordinates outside
// valid bounds fail the search at Do rather than being clamped.
func (b *QueryBuilder) Near(field string, lat, lon, radiusKm float64) *QueryBuilder {
	clause, err := query.GeoClause(field, lat, lon, radiusKm)
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return b
	}
	b.Raw(clause)
	return b
}

// Raw ANDs a raw passthrough expression, verbatim, with built clauses.
func (b *QueryBuilder) Raw(expr string) *QueryBuilder {
	if existing := b.filters.Passthrough(); existing != "" {
		b.filters.SetPassthrough(existing + " && " + expr)
	} else {
		b.filters.SetPassthrough(expr)
	}
	return b
}

// SortBy sets the sort order from a "field:direction" comma list.
// Order is tie-break priority.
func (b *QueryBuilder) SortBy(expr string) *QueryBuilder {
	fields, err := sortby.Parse(expr)
	if err != nil {
		if b.err == nil {
			b.err = fmt.Errorf("%w: %w", domain.ErrInvalidSort, err)
		}
		return b
	}
	b.sort = fields
	return b
}

// Page sets the 1-based result page.
func (b *QueryBuilder) Page(n int) *QueryBuilder {
	b.page = n
	return b
}

// PerPage sets the page size, capped by the client's maximum.
func (b *QueryBuilder) PerPage(n int) *QueryBuilder {
	b.perPage = n
	return b
}

// Do executes the search and returns the reconciled result.
func (b *QueryBuilder) Do(ctx context.Context) (*Result, error) {
	if b.err != nil {
		return nil, fmt.Errorf("search %q: %w", b.collection, b.err)
	}
	if len(b.queryBy) == 0 {
		return nil, fmt.Errorf("search %q: no query fields (register the collection or use QueryBy)", b.collection)
	}

	perPage := b.perPage
	if perPage <= 0 {
		perPage = b.c.defaultPerPage
	}
	if perPage > b.c.maxPerPage {
		perPage = b.c.maxPerPage
	}

	spec := query.Spec{
		Query:          b.q,
		QueryBy:        b.queryBy,
		Filters:        b.filters.Clone(),
		Schema:         b.schema(),
		Sort:           b.sort,
		Facets:         b.facets,
		MaxFacetValues: b.c.maxFacetValues,
		Page:           b.page,
		PerPage:        perPage,
	}

	ctx = logger.ContextWithLogger(ctx, b.c.logger)
	res, err := b.c.facetsSvc.Execute(ctx, facetsuc.Request{
		Collection:  b.collection,
		Spec:        spec,
		Disjunctive: b.disjunctive,
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", b.collection, err)
	}

	out := &Result{
		SearchID:      res.SearchID,
		Hits:          hitsFromBackend(res.Response.Hits),
		Found:         res.Response.Found,
		Page:          res.Response.Page,
		PerPage:       res.Response.PerPage,
		SearchTimeMs:  res.Response.SearchTimeMs,
		Facets:        facetsFromCounts(res.Facets),
		QueriesIssued: res.QueriesIssued,
	}
	if len(res.FieldErrors) > 0 {
		out.FacetErrors = res.FieldErrors
	}
	return out, nil
}

func (b *QueryBuilder) schema() field.Schema {
	if meta, ok := b.c.collections[b.collection]; ok {
		return meta.schema
	}
	return field.Schema{}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
