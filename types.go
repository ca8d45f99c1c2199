package facetmux

import (
	"github.com/facetmux/facetmux/internal/backend"
	"github.com/facetmux/facetmux/internal/domain/search/facet"
	federateuc "github.com/facetmux/facetmux/internal/usecase/federate"
)

// FieldType declares how a field's literals serialize in filter expressions.
type FieldType string

// Field type constants.
const (
	FieldString  FieldType = "string"
	FieldNumeric FieldType = "numeric"
	FieldBool    FieldType = "bool"
)

// FieldSpec declares one filterable field.
type FieldSpec struct {
	Name string
	Type FieldType
}

// CollectionSpec declares one searchable collection.
type CollectionSpec struct {
	Name    string
	QueryBy []string
	// Weight scales this collection's normalized scores in federated
	// merges. Zero defaults to 1.0 at registration.
	Weight float64
	// Limit caps this collection's own result list in federated searches.
	Limit       int
	DefaultSort string
	Fields      []FieldSpec
}

// Hit is one document returned by a single-collection search.
type Hit struct {
	Document  map[string]any
	Highlight map[string]any
	Score     float64
}

// FacetValue is one facet value with its match count.
type FacetValue struct {
	Value string
	Count int
}

// FacetStats holds min/max statistics for a numeric facet field.
type FacetStats struct {
	Min float64
	Max float64
}

// FacetField is one field's reconciled facet block.
type FacetField struct {
	Field  string
	Values []FacetValue
	Stats  *FacetStats
}

// Result is the outcome of one single-collection search invocation.
type Result struct {
	SearchID     string
	Hits         []Hit
	Found        int
	Page         int
	PerPage      int
	SearchTimeMs int
	Facets       []FacetField
	// FacetErrors records disjunctive fields whose auxiliary query failed.
	// Such a field has no entry in Facets rather than incorrect counts.
	FacetErrors map[string]error
	// QueriesIssued is the fan-out size of this invocation.
	QueriesIssued int
}

// MergedHit is one hit in a federated result, with collection provenance.
type MergedHit struct {
	Document       map[string]any
	Highlight      map[string]any
	Collection     string
	CollectionRank int
	RawScore       float64
	// NormalizedScore is RawScore rescaled into [0,1] within its collection.
	NormalizedScore float64
	// MergedScore is NormalizedScore times the collection weight; it is the
	// ordering key for score-based strategies.
	MergedScore float64
	Weight      float64
}

// CollectionOutcome records one collection's contribution to a federated
// search. Failed distinguishes a query failure from a zero-hit success.
type CollectionOutcome struct {
	Found        int
	SearchTimeMs int
	Failed       bool
	Err          error
}

// FederatedResult is the outcome of one federated search invocation.
type FederatedResult struct {
	SearchID    string
	Hits        []MergedHit
	Collections map[string]CollectionOutcome
}

// HealthReport is the outcome of a health probe.
type HealthReport struct {
	OK     bool
	Checks map[string]bool
}

// --- Converters from internal types ---

func hitsFromBackend(hits []backend.Hit) []Hit {
	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = Hit{Document: h.Document, Highlight: h.Highlight, Score: h.Score}
	}
	return out
}

func facetsFromCounts(counts *facet.Counts) []FacetField {
	if counts == nil {
		return nil
	}
	out := make([]FacetField, 0, counts.Len())
	for _, fc := range counts.Fields() {
		ff := FacetField{Field: fc.Field}
		for _, v := range fc.Counts {
			ff.Values = append(ff.Values, FacetValue{Value: v.Value, Count: v.Count})
		}
		if fc.Stats != nil {
			ff.Stats = &FacetStats{Min: fc.Stats.Min, Max: fc.Stats.Max}
		}
		out = append(out, ff)
	}
	return out
}

func federatedFromMerged(searchID string, merged *federateuc.Merged) *FederatedResult {
	out := &FederatedResult{
		SearchID:    searchID,
		Hits:        make([]MergedHit, len(merged.Hits)),
		Collections: make(map[string]CollectionOutcome, len(merged.ByCollection)),
	}
	for i, h := range merged.Hits {
		out.Hits[i] = MergedHit{
			Document:        h.Document,
			Highlight:       h.Highlight,
			Collection:      h.Collection,
			CollectionRank:  h.CollectionRank,
			RawScore:        h.RawScore,
			NormalizedScore: h.NormalizedScore,
			MergedScore:     h.MergedScore,
			Weight:          h.CollectionWeight,
		}
	}
	for name, o := range merged.ByCollection {
		out.Collections[name] = CollectionOutcome{
			Found:        o.Found,
			SearchTimeMs: o.SearchTimeMs,
			Failed:       o.Err != nil,
			Err:          o.Err,
		}
	}
	return out
}
