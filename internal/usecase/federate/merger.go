package federate

import (
	"fmt"
	"sort"

	"github.com/facetmux/facetmux/internal/backend"
	"github.com/facetmux/facetmux/internal/domain"
	"github.com/facetmux/facetmux/internal/domain/collection/field"
	"github.com/facetmux/facetmux/internal/domain/search/merge"
	"github.com/facetmux/facetmux/internal/domain/search/sortby"
	"github.com/facetmux/facetmux/internal/domain/search/state"
)

// CollectionConfig describes one collection's participation in a federated
// search. Immutable per search call.
type CollectionConfig struct {
	Name    string
	QueryBy []string
	// Weight scales normalized scores for merging. Must be >= 0; callers
	// default an unset weight to 1.0 before reaching the merger.
	Weight float64
	// Limit caps this collection's own result list (per_page upstream).
	Limit  int
	Schema field.Schema
	// Filters and Sort are collection-specific overrides.
	Filters *state.FilterState
	Sort    []sortby.Field
}

// CollectionResult pairs a collection's config with its settled response.
// Exactly one of Response and Err is meaningful.
type CollectionResult struct {
	Config   CollectionConfig
	Response *backend.SearchResponse
	Err      error
}

// MergedHit is one hit in the globally ordered list. MergedScore is the only
// field consumed for ordering; the rest exist for provenance and diagnostics.
type MergedHit struct {
	Document  map[string]any
	Highlight map[string]any
	// Collection is the source collection name.
	Collection string
	// CollectionRank is the hit's 1-based position within its own
	// collection's result list.
	CollectionRank int
	RawScore       float64
	// NormalizedScore rescales RawScore into [0,1] using the source
	// collection's own observed score range.
	NormalizedScore  float64
	MergedScore      float64
	CollectionWeight float64
}

// Outcome records one collection's contribution. A non-nil Err means the
// query did not succeed, which is distinct from a legitimate zero-hit Found.
type Outcome struct {
	Found        int
	SearchTimeMs int
	Err          error
}

// Merged is the result of one federated merge.
type Merged struct {
	Hits []MergedHit
	// ByCollection keys on collection name.
	ByCollection map[string]Outcome
}

// Merge produces one globally ordered hit list from independently queried
// collections. It is a pure function of its inputs: re-running it over the
// same settled responses yields byte-identical ordering. A failed collection
// contributes zero hits and a failure Outcome; it never aborts the merge.
// globalMax, if positive, truncates after strategy ordering, never before.
func Merge(results []CollectionResult, strategy merge.Strategy, globalMax int) (*Merged, error) {
	if !strategy.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, strategy)
	}

	merged := &Merged{ByCollection: make(map[string]Outcome, len(results))}
	perCollection := make([][]MergedHit, len(results))

	for i, r := range results {
		if r.Err != nil {
			merged.ByCollection[r.Config.Name] = Outcome{Err: r.Err}
			continue
		}
		merged.ByCollection[r.Config.Name] = Outcome{
			Found:        r.Response.Found,
			SearchTimeMs: r.Response.SearchTimeMs,
		}
		perCollection[i] = scoreHits(r.Config, r.Response.Hits)
	}

	switch strategy {
	case merge.Relevance, merge.CollectionWeighted:
		merged.Hits = mergeByScore(perCollection)
	case merge.RoundRobin:
		merged.Hits = mergeRoundRobin(results, perCollection)
	case merge.CollectionPriority:
		merged.Hits = mergeByPriority(results, perCollection)
	}

	if globalMax > 0 && len(merged.Hits) > globalMax {
		merged.Hits = merged.Hits[:globalMax]
	}
	return merged, nil
}

// scoreHits performs the strategy-independent per-hit preprocessing:
// 1-based collection rank, min/max score normalization, weighted merge score.
// A collection contributing a single hit, or a flat score range, normalizes
// to 1.0.
func scoreHits(cfg CollectionConfig, hits []backend.Hit) []MergedHit {
	if len(hits) == 0 {
		return nil
	}

	minScore, maxScore := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < minScore {
			minScore = h.Score
		}
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	span := maxScore - minScore

	out := make([]MergedHit, len(hits))
	for i, h := range hits {
		normalized := 1.0
		if span > 0 {
			normalized = (h.Score - minScore) / span
		}
		out[i] = MergedHit{
			Document:         h.Document,
			Highlight:        h.Highlight,
			Collection:       cfg.Name,
			CollectionRank:   i + 1,
			RawScore:         h.Score,
			NormalizedScore:  normalized,
			MergedScore:      normalized * cfg.Weight,
			CollectionWeight: cfg.Weight,
		}
	}
	return out
}

// mergeByScore flattens and sorts by merged score descending; ties break by
// collection weight descending, then original collection rank ascending.
func mergeByScore(perCollection [][]MergedHit) []MergedHit {
	var all []MergedHit
	for _, hits := range perCollection {
		all = append(all, hits...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].MergedScore != all[j].MergedScore {
			return all[i].MergedScore > all[j].MergedScore
		}
		if all[i].CollectionWeight != all[j].CollectionWeight {
			return all[i].CollectionWeight > all[j].CollectionWeight
		}
		return all[i].CollectionRank < all[j].CollectionRank
	})
	return all
}

// mergeRoundRobin interleaves collections in priority order, one hit from
// each in turn, skipping exhausted collections and preserving each
// collection's internal rank order.
func mergeRoundRobin(results []CollectionResult, perCollection [][]MergedHit) []MergedHit {
	order := priorityOrder(results)

	total := 0
	for _, hits := range perCollection {
		total += len(hits)
	}

	out := make([]MergedHit, 0, total)
	cursors := make([]int, len(perCollection))
	for len(out) < total {
		for _, idx := range order {
			if cursors[idx] < len(perCollection[idx]) {
				out = append(out, perCollection[idx][cursors[idx]])
				cursors[idx]++
			}
		}
	}
	return out
}

// mergeByPriority emits every hit of the highest-priority collection before
// any hit of the next, internal order preserved.
func mergeByPriority(results []CollectionResult, perCollection [][]MergedHit) []MergedHit {
	var out []MergedHit
	for _, idx := range priorityOrder(results) {
		out = append(out, perCollection[idx]...)
	}
	return out
}

// priorityOrder totals collections by descending weight, ties broken by
// declaration order.
func priorityOrder(results []CollectionResult) []int {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return results[order[i]].Config.Weight > results[order[j]].Config.Weight
	})
	return order
}
