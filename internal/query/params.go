package query

import (
	"fmt"

	"github.com/facetmux/facetmux/internal/backend"
	"github.com/facetmux/facetmux/internal/domain"
	"github.com/facetmux/facetmux/internal/domain/collection/field"
	"github.com/facetmux/facetmux/internal/domain/search/sortby"
	"github.com/facetmux/facetmux/internal/domain/search/state"
)

// Spec is everything needed to serialize one collection query: the text
// query, the FilterState snapshot, and presentation parameters. It is built
// once per invocation and read-only afterwards.
type Spec struct {
	Query          string
	QueryBy        []string
	Filters        *state.FilterState
	Schema         field.Schema
	Sort           []sortby.Field
	Facets         []string
	MaxFacetValues int
	Page           int
	PerPage        int
}

// BuildParams serializes a Spec into wire-level search parameters.
func BuildParams(spec Spec) (backend.SearchParams, error) {
	filterBy, err := BuildFilter(spec.Filters, spec.Schema)
	if err != nil {
		return backend.SearchParams{}, err
	}
	return buildParams(spec, filterBy)
}

// BuildParamsExcluding serializes a Spec with one disjunctive field's clause
// omitted from the filter expression (auxiliary facet query).
func BuildParamsExcluding(spec Spec, excludeField string) (backend.SearchParams, error) {
	filterBy, err := BuildFilterExcluding(spec.Filters, spec.Schema, excludeField)
	if err != nil {
		return backend.SearchParams{}, err
	}
	return buildParams(spec, filterBy)
}

func buildParams(spec Spec, filterBy string) (backend.SearchParams, error) {
	sortBy, err := sortby.Build(spec.Sort)
	if err != nil {
		return backend.SearchParams{}, fmt.Errorf("%w: %w", domain.ErrInvalidSort, err)
	}
	return backend.SearchParams{
		Query:          spec.Query,
		QueryBy:        spec.QueryBy,
		FilterBy:       filterBy,
		SortBy:         sortBy,
		FacetBy:        spec.Facets,
		MaxFacetValues: spec.MaxFacetValues,
		Page:           spec.Page,
		PerPage:        spec.PerPage,
	}, nil
}
