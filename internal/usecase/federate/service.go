// Package federate queries several collections concurrently and merges their
// ranked result lists into one coherently ordered list.
package federate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/facetmux/facetmux/internal/backend"
	"github.com/facetmux/facetmux/internal/domain"
	"github.com/facetmux/facetmux/internal/domain/search/merge"
	"github.com/facetmux/facetmux/internal/logger"
	"github.com/facetmux/facetmux/internal/metrics"
	"github.com/facetmux/facetmux/internal/query"
)

// Request is one federated search invocation. Each collection's config
// carries its own filter/sort overrides and schema.
type Request struct {
	Query       string
	Collections []CollectionConfig
	Strategy    merge.Strategy
	// GlobalMax truncates the merged list after ordering. Zero means no cap.
	GlobalMax int
}

// Result is the merged outcome of one federated invocation.
type Result struct {
	SearchID string
	Merged   *Merged
}

// Service coordinates the per-collection fan-out and the merge.
type Service struct {
	searcher Searcher
}

// New creates a federated search service.
func New(searcher Searcher) *Service {
	return &Service{searcher: searcher}
}

// Execute dispatches every collection query concurrently, joins once all
// have settled, and merges. One collection failing never aborts the merge;
// its outcome is recorded as a failure. Every collection failing is fatal.
func (s *Service) Execute(ctx context.Context, req Request) (*Result, error) {
	if len(req.Collections) == 0 {
		return nil, domain.ErrNoCollections
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = merge.Relevance
	}
	if !strategy.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, strategy)
	}

	searchID := uuid.NewString()
	log := logger.FromContext(ctx).With(
		zap.String("search_id", searchID),
		zap.String("strategy", string(strategy)),
	)

	results := make([]CollectionResult, len(req.Collections))
	for i, cfg := range req.Collections {
		results[i].Config = cfg
	}

	params := make([]backend.SearchParams, len(req.Collections))
	for i, cfg := range req.Collections {
		p, err := query.BuildParams(query.Spec{
			Query:   req.Query,
			QueryBy: cfg.QueryBy,
			Filters: cfg.Filters,
			Schema:  cfg.Schema,
			Sort:    cfg.Sort,
			PerPage: cfg.Limit,
		})
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", cfg.Name, err)
		}
		params[i] = p
	}

	var g errgroup.Group
	for i := range req.Collections {
		g.Go(func() error {
			results[i].Response, results[i].Err =
				s.searcher.Search(ctx, req.Collections[i].Name, params[i])
			return nil
		})
	}
	_ = g.Wait()

	metrics.ObserveFanOut(metrics.SearchKindFederated, len(req.Collections))

	failed := 0
	for i := range results {
		if results[i].Err != nil {
			failed++
			log.Warn("collection query failed",
				zap.String("collection", results[i].Config.Name),
				zap.Error(results[i].Err))
		}
	}
	if failed == len(results) {
		metrics.SearchCompleted(metrics.SearchKindFederated, false)
		return nil, fmt.Errorf("%w: %d of %d", domain.ErrAllCollectionsFailed, failed, len(results))
	}

	merged, err := Merge(results, strategy, req.GlobalMax)
	if err != nil {
		metrics.SearchCompleted(metrics.SearchKindFederated, false)
		return nil, err
	}

	log.Debug("federated search settled",
		zap.Int("collections", len(results)),
		zap.Int("failed", failed),
		zap.Int("hits", len(merged.Hits)))
	metrics.SearchCompleted(metrics.SearchKindFederated, true)

	return &Result{SearchID: searchID, Merged: merged}, nil
}
