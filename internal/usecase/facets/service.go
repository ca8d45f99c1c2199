// Package facets orchestrates the extra queries needed for statistically
// correct facet counts under OR-semantics filtering. A field whose own
// selected values are part of the active filter would report counts already
// restricted to that selection; the fix is one auxiliary query per
// disjunctive field whose filter omits only that field's clause, with the
// field's displayed counts taken from its own auxiliary response.
package facets

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/facetmux/facetmux/internal/backend"
	"github.com/facetmux/facetmux/internal/domain"
	"github.com/facetmux/facetmux/internal/domain/search/facet"
	"github.com/facetmux/facetmux/internal/logger"
	"github.com/facetmux/facetmux/internal/metrics"
	"github.com/facetmux/facetmux/internal/query"
)

// Request is one search invocation. Spec holds the immutable FilterState
// snapshot; Disjunctive lists the fields needing self-exclusion queries.
// A disjunctive field missing from Spec.Facets is faceted implicitly so its
// auxiliary counts are never discarded.
type Request struct {
	Collection  string
	Spec        query.Spec
	Disjunctive []string
}

// Result is the reconciled outcome of one invocation. Response is the
// primary response (hits, pagination, found). Facets carries the merged
// per-field counts. FieldErrors records auxiliary-query failures; a field
// listed there has no counts rather than stale or zero-filled ones.
type Result struct {
	SearchID    string
	Response    *backend.SearchResponse
	Facets      *facet.Counts
	FieldErrors map[string]error
	// QueriesIssued is the fan-out size, for diagnostics.
	QueriesIssued int
}

// Service coordinates the primary query and the disjunctive auxiliary fan-out.
type Service struct {
	searcher Searcher
	// disabled bypasses the fan-out entirely: one round trip, naive counts.
	disabled bool
}

// New creates a facet orchestration service.
func New(searcher Searcher) *Service {
	return &Service{searcher: searcher}
}

// NewDisabled creates a service with disjunctive mode globally off. Callers
// accept self-suppressing counts in exchange for a single round trip.
func NewDisabled(searcher Searcher) *Service {
	return &Service{searcher: searcher, disabled: true}
}

// Execute runs one search invocation. All requests are dispatched
// concurrently and joined once every one of them has settled; a failed
// auxiliary query becomes a per-field diagnostic, a failed primary query is
// fatal for the invocation.
func (s *Service) Execute(ctx context.Context, req Request) (*Result, error) {
	searchID := uuid.NewString()
	log := logger.FromContext(ctx).With(
		zap.String("search_id", searchID),
		zap.String("collection", req.Collection),
	)

	disjunctive := req.Disjunctive
	if s.disabled {
		disjunctive = nil
	}

	spec := req.Spec
	spec.Facets = withDisjunctiveFields(spec.Facets, disjunctive)

	params, err := buildBatch(spec, disjunctive)
	if err != nil {
		return nil, err
	}

	responses := make([]*backend.SearchResponse, len(params))
	errs := make([]error, len(params))

	// Join, not race: every request settles before reconciliation starts,
	// so one auxiliary failure cannot discard the other results.
	var g errgroup.Group
	for i := range params {
		g.Go(func() error {
			responses[i], errs[i] = s.searcher.Search(ctx, req.Collection, params[i])
			return nil
		})
	}
	_ = g.Wait()

	metrics.ObserveFanOut(metrics.SearchKindFaceted, len(params))

	if errs[0] != nil {
		metrics.SearchCompleted(metrics.SearchKindFaceted, false)
		return nil, fmt.Errorf("%w: %w", domain.ErrPrimaryQueryFailed, errs[0])
	}

	result := &Result{
		SearchID:      searchID,
		Response:      responses[0],
		QueriesIssued: len(params),
		FieldErrors:   make(map[string]error),
	}
	result.Facets = reconcile(spec.Facets, disjunctive, responses, errs, result.FieldErrors)

	for f, ferr := range result.FieldErrors {
		log.Warn("auxiliary facet query failed",
			zap.String("field", f), zap.Error(ferr))
	}
	log.Debug("search settled",
		zap.Int("queries", len(params)),
		zap.Int("found", responses[0].Found))
	metrics.SearchCompleted(metrics.SearchKindFaceted, true)

	return result, nil
}

// withDisjunctiveFields returns the facet list with every disjunctive field
// present. Appending happens on a copy so the caller's spec stays untouched.
func withDisjunctiveFields(facets, disjunctive []string) []string {
	out := facets
	copied := false
	for _, f := range disjunctive {
		if containsField(out, f) {
			continue
		}
		if !copied {
			out = append(make([]string, 0, len(facets)+len(disjunctive)), facets...)
			copied = true
		}
		out = append(out, f)
	}
	return out
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

// buildBatch serializes the primary request plus one auxiliary request per
// disjunctive field. Index 0 is always the primary; auxiliary index i+1
// corresponds positionally to disjunctive[i].
func buildBatch(spec query.Spec, disjunctive []string) ([]backend.SearchParams, error) {
	params := make([]backend.SearchParams, 0, 1+len(disjunctive))

	primary, err := query.BuildParams(spec)
	if err != nil {
		return nil, err
	}
	params = append(params, primary)

	for _, f := range disjunctive {
		aux, err := query.BuildParamsExcluding(spec, f)
		if err != nil {
			return nil, err
		}
		// Only this field's counts are read from the auxiliary response.
		aux.FacetBy = []string{f}
		params = append(params, aux)
	}
	return params, nil
}

// reconcile assembles the merged facet counts: each disjunctive field's
// block comes from its own auxiliary response, every other field's from the
// primary. A failed auxiliary leaves its field absent and recorded in
// fieldErrors.
func reconcile(
	facetFields, disjunctive []string,
	responses []*backend.SearchResponse,
	errs []error,
	fieldErrors map[string]error,
) *facet.Counts {
	auxIndex := make(map[string]int, len(disjunctive))
	for i, f := range disjunctive {
		auxIndex[f] = i + 1
	}

	counts := facet.NewCounts()
	for _, f := range facetFields {
		idx, isDisjunctive := auxIndex[f]
		if !isDisjunctive {
			if block, ok := findBlock(responses[0], f); ok {
				counts.Set(block)
			}
			continue
		}
		if errs[idx] != nil {
			fieldErrors[f] = errs[idx]
			continue
		}
		if block, ok := findBlock(responses[idx], f); ok {
			counts.Set(block)
		}
	}
	return counts
}

func findBlock(resp *backend.SearchResponse, fieldName string) (facet.FieldCounts, bool) {
	if resp == nil {
		return facet.FieldCounts{}, false
	}
	for _, fc := range resp.FacetCounts {
		if fc.FieldName != fieldName {
			continue
		}
		block := facet.FieldCounts{Field: fieldName}
		for _, c := range fc.Counts {
			block.Counts = append(block.Counts, facet.ValueCount{Value: c.Value, Count: c.Count})
		}
		if fc.Stats != nil {
			block.Stats = &facet.Stats{Min: fc.Stats.Min, Max: fc.Stats.Max}
		}
		return block, true
	}
	return facet.FieldCounts{}, false
}
