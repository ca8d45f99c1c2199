package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/facetmux/facetmux"
)

// Filter DTOs use arrays rather than maps so the serialized filter
// expression follows exactly the clause order the caller sent.

type facetFilterDTO struct {
	Field     string   `json:"field"`
	Values    []string `json:"values"`
	RangeMode bool     `json:"range_mode,omitempty"`
}

type numericFilterDTO struct {
	Field string   `json:"field"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

type dateFilterDTO struct {
	Field string `json:"field"`
	Start string `json:"start,omitempty"` // RFC 3339
	End   string `json:"end,omitempty"`
}

type selectiveFilterDTO struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type filtersDTO struct {
	Disjunctive []facetFilterDTO     `json:"disjunctive,omitempty"`
	Numeric     []numericFilterDTO   `json:"numeric,omitempty"`
	Date        []dateFilterDTO      `json:"date,omitempty"`
	Selective   []selectiveFilterDTO `json:"selective,omitempty"`
	Custom      []facetFilterDTO     `json:"custom,omitempty"`
	Passthrough string               `json:"passthrough,omitempty"`
}

type searchRequest struct {
	Collection        string     `json:"collection"`
	Query             string     `json:"q"`
	QueryBy           []string   `json:"query_by,omitempty"`
	FacetBy           []string   `json:"facet_by,omitempty"`
	DisjunctiveFacets []string   `json:"disjunctive_facets,omitempty"`
	SortBy            string     `json:"sort_by,omitempty"`
	Page              int        `json:"page,omitempty"`
	PerPage           int        `json:"per_page,omitempty"`
	Filters           filtersDTO `json:"filters"`
}

type federatedCollectionDTO struct {
	Name    string     `json:"name"`
	Weight  *float64   `json:"weight,omitempty"`
	Limit   int        `json:"limit,omitempty"`
	SortBy  string     `json:"sort_by,omitempty"`
	Filters filtersDTO `json:"filters"`
}

type federatedRequest struct {
	Query       string                   `json:"q"`
	Strategy    string                   `json:"strategy,omitempty"`
	MaxResults  int                      `json:"max_results,omitempty"`
	Collections []federatedCollectionDTO `json:"collections"`
}

type hitDTO struct {
	Document  map[string]any `json:"document"`
	Highlight map[string]any `json:"highlight,omitempty"`
	Score     float64        `json:"score"`
}

type facetValueDTO struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type facetFieldDTO struct {
	Field  string          `json:"field"`
	Values []facetValueDTO `json:"values"`
	Min    *float64        `json:"min,omitempty"`
	Max    *float64        `json:"max,omitempty"`
}

type searchResponse struct {
	SearchID      string            `json:"search_id"`
	Found         int               `json:"found"`
	Page          int               `json:"page"`
	PerPage       int               `json:"per_page"`
	SearchTimeMs  int               `json:"search_time_ms"`
	Hits          []hitDTO          `json:"hits"`
	Facets        []facetFieldDTO   `json:"facets,omitempty"`
	FacetErrors   map[string]string `json:"facet_errors,omitempty"`
	QueriesIssued int               `json:"queries_issued"`
}

type mergedHitDTO struct {
	Document        map[string]any `json:"document"`
	Highlight       map[string]any `json:"highlight,omitempty"`
	Collection      string         `json:"collection"`
	CollectionRank  int            `json:"collection_rank"`
	RawScore        float64        `json:"raw_score"`
	NormalizedScore float64        `json:"normalized_score"`
	MergedScore     float64        `json:"merged_score"`
	Weight          float64        `json:"weight"`
}

type collectionOutcomeDTO struct {
	Found        int    `json:"found"`
	SearchTimeMs int    `json:"search_time_ms"`
	Failed       bool   `json:"failed"`
	Error        string `json:"error,omitempty"`
}

type federatedResponse struct {
	SearchID    string                          `json:"search_id"`
	Hits        []mergedHitDTO                  `json:"hits"`
	Collections map[string]collectionOutcomeDTO `json:"collections"`
}

type healthResponse struct {
	OK     bool            `json:"ok"`
	Checks map[string]bool `json:"checks"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func applyFilters(b *facetmux.QueryBuilder, f filtersDTO) {
	for _, d := range f.Disjunctive {
		if d.RangeMode {
			b.RefineRange(d.Field, d.Values...)
		} else {
			b.Refine(d.Field, d.Values...)
		}
	}
	for _, n := range f.Numeric {
		switch {
		case n.Min != nil && n.Max != nil:
			b.Between(n.Field, *n.Min, *n.Max)
		case n.Min != nil:
			b.AtLeast(n.Field, *n.Min)
		case n.Max != nil:
			b.AtMost(n.Field, *n.Max)
		}
	}
	for _, d := range f.Date {
		start, end := parseDate(d.Start), parseDate(d.End)
		b.DateBetween(d.Field, start, end)
	}
	for _, s := range f.Selective {
		b.Where(s.Field, s.Value)
	}
	for _, c := range f.Custom {
		b.Custom(c.Field, c.Values...)
	}
	if f.Passthrough != "" {
		b.Raw(f.Passthrough)
	}
}

// applyCollectionFilters mirrors applyFilters for one collection's override
// in a federated call, covering every filter kind the DTO can carry.
func applyCollectionFilters(b *facetmux.FederatedBuilder, name string, f filtersDTO) {
	for _, d := range f.Disjunctive {
		if d.RangeMode {
			b.RefineRange(name, d.Field, d.Values...)
		} else {
			b.Refine(name, d.Field, d.Values...)
		}
	}
	for _, n := range f.Numeric {
		switch {
		case n.Min != nil && n.Max != nil:
			b.Between(name, n.Field, *n.Min, *n.Max)
		case n.Min != nil:
			b.AtLeast(name, n.Field, *n.Min)
		case n.Max != nil:
			b.AtMost(name, n.Field, *n.Max)
		}
	}
	for _, d := range f.Date {
		b.DateBetween(name, d.Field, parseDate(d.Start), parseDate(d.End))
	}
	for _, s := range f.Selective {
		b.Where(name, s.Field, s.Value)
	}
	for _, c := range f.Custom {
		b.Custom(name, c.Field, c.Values...)
	}
	if f.Passthrough != "" {
		b.Raw(name, f.Passthrough)
	}
}

// parseDate returns the zero time for empty or malformed input; the builder
// treats zero times as open bounds.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func searchResponseFromResult(r *facetmux.Result) searchResponse {
	out := searchResponse{
		SearchID:      r.SearchID,
		Found:         r.Found,
		Page:          r.Page,
		PerPage:       r.PerPage,
		SearchTimeMs:  r.SearchTimeMs,
		Hits:          make([]hitDTO, len(r.Hits)),
		QueriesIssued: r.QueriesIssued,
	}
	for i, h := range r.Hits {
		out.Hits[i] = hitDTO{Document: h.Document, Highlight: h.Highlight, Score: h.Score}
	}
	for _, f := range r.Facets {
		fd := facetFieldDTO{Field: f.Field}
		for _, v := range f.Values {
			fd.Values = append(fd.Values, facetValueDTO{Value: v.Value, Count: v.Count})
		}
		if f.Stats != nil {
			min, max := f.Stats.Min, f.Stats.Max
			fd.Min, fd.Max = &min, &max
		}
		out.Facets = append(out.Facets, fd)
	}
	if len(r.FacetErrors) > 0 {
		out.FacetErrors = make(map[string]string, len(r.FacetErrors))
		for field, err := range r.FacetErrors {
			out.FacetErrors[field] = err.Error()
		}
	}
	return out
}

func federatedResponseFromResult(r *facetmux.FederatedResult) federatedResponse {
	out := federatedResponse{
		SearchID:    r.SearchID,
		Hits:        make([]mergedHitDTO, len(r.Hits)),
		Collections: make(map[string]collectionOutcomeDTO, len(r.Collections)),
	}
	for i, h := range r.Hits {
		out.Hits[i] = mergedHitDTO{
			Document:        h.Document,
			Highlight:       h.Highlight,
			Collection:      h.Collection,
			CollectionRank:  h.CollectionRank,
			RawScore:        h.RawScore,
			NormalizedScore: h.NormalizedScore,
			MergedScore:     h.MergedScore,
			Weight:          h.Weight,
		}
	}
	for name, o := range r.Collections {
		dto := collectionOutcomeDTO{
			Found:        o.Found,
			SearchTimeMs: o.SearchTimeMs,
			Failed:       o.Failed,
		}
		if o.Err != nil {
			dto.Error = o.Err.Error()
		}
		out.Collections[name] = dto
	}
	return out
}

func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
