package query

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/facetmux/facetmux/internal/domain"
	"github.com/facetmux/facetmux/internal/domain/collection/field"
	"github.com/facetmux/facetmux/internal/domain/search/sortby"
	"github.com/facetmux/facetmux/internal/domain/search/state"
)

func floatPtr(f float64) *float64 { return &f }

func testSchema() field.Schema {
	return field.NewSchema([]field.Field{
		field.Reconstruct("price", field.Numeric),
		field.Reconstruct("rating", field.Numeric),
		field.Reconstruct("in_stock", field.Bool),
		field.Reconstruct("category", field.String),
	})
}

func TestEqualityClause_Quoting(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		unquoted bool
		want     string
	}{
		{"string field quoted", "category", "Books", false, "category:=`Books`"},
		{"numeric field bare", "price", "100", true, "price:=100"},
		{"bool field bare", "in_stock", "true", true, "in_stock:=true"},
		{"delimiter escaped", "brand", "O`Neill", false, "brand:=`O\\`Neill`"},
		{"backslash escaped first", "path", `a\b`, false, "path:=`a\\\\b`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EqualityClause(tt.field, tt.value, tt.unquoted)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOrGroup_SingleValueCollapses(t *testing.T) {
	got := OrGroup("category", []string{"Books"}, false)
	want := EqualityClause("category", "Books", false)
	if got != want {
		t.Errorf("single-value group %q should equal equality clause %q", got, want)
	}
}

func TestOrGroup_MultipleValues(t *testing.T) {
	got := OrGroup("category", []string{"Electronics", "Books"}, false)
	want := "(category:=`Electronics` || category:=`Books`)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRangeClause(t *testing.T) {
	tests := []struct {
		name     string
		min, max *float64
		want     string
	}{
		{"both bounds", floatPtr(10), floatPtr(50), "price:[10..50]"},
		{"equal bounds still range", floatPtr(10), floatPtr(10), "price:[10..10]"},
		{"lower only", floatPtr(100), nil, "price:>=100"},
		{"upper only", nil, floatPtr(99.5), "price:<=99.5"},
		{"no bounds emit nothing", nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RangeClause("price", tt.min, tt.max)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGeoClause(t *testing.T) {
	got, err := GeoClause("location", 48.85661, 2.35222, 5.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "location:(48.8566, 2.3522, 5.1000 km)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGeoClause_Invalid(t *testing.T) {
	tests := []struct {
		name             string
		lat, lon, radius float64
	}{
		{"latitude too high", 90.1, 0, 1},
		{"latitude too low", -91, 0, 1},
		{"longitude too high", 0, 180.5, 1},
		{"longitude too low", 0, -181, 1},
		{"zero radius", 10, 10, 0},
		{"negative radius", 10, 10, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GeoClause("location", tt.lat, tt.lon, tt.radius)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, domain.ErrInvalidFilter) {
				t.Errorf("expected ErrInvalidFilter, got %v", err)
			}
		})
	}
}

func TestGeoClause_RejectsMalformedFieldName(t *testing.T) {
	_, err := GeoClause("loc`", 10, 10, 1)
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestBuildFilter_RejectsMalformedFieldName(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(st *state.FilterState)
	}{
		{"delimiter injection in disjunctive field", func(st *state.FilterState) {
			st.SetDisjunctive("cat` || ignore:=`x", "Books")
		}},
		{"operator in numeric field", func(st *state.FilterState) {
			st.SetNumericRange("price && rating", floatPtr(1), nil)
		}},
		{"parenthesis in date field", func(st *state.FilterState) {
			now := time.Now()
			st.SetDateRange("added(", &now, nil)
		}},
		{"space in selective field", func(st *state.FilterState) {
			st.SetSelective("store id", "s1")
		}},
		{"custom field too long", func(st *state.FilterState) {
			st.SetCustom(strings.Repeat("a", 65), "v")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := state.New()
			tt.mutate(st)
			_, err := BuildFilter(st, testSchema())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, domain.ErrInvalidFilter) {
				t.Errorf("expected ErrInvalidFilter, got %v", err)
			}
		})
	}
}

func TestBuildFilter_Empty(t *testing.T) {
	got, err := BuildFilter(state.New(), testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("empty state should build to empty string, got %q", got)
	}

	// nil state is also a no-op
	got, err = BuildFilter(nil, testSchema())
	if err != nil || got != "" {
		t.Errorf("nil state: got %q, %v", got, err)
	}
}

func TestBuildFilter_ExactScenario(t *testing.T) {
	st := state.New()
	st.SetDisjunctive("category", "Electronics", "Books")
	st.SetNumericRange("price", floatPtr(100), nil)

	got, err := BuildFilter(st, testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "(category:=`Electronics` || category:=`Books`) && price:>=100"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildFilter_Deterministic(t *testing.T) {
	st := state.New()
	st.SetDisjunctive("category", "Electronics", "Books")
	st.SetDisjunctive("brand", "Sony")
	st.SetNumericRange("price", floatPtr(10), floatPtr(500))
	now := time.Unix(1700000000, 0).UTC()
	st.SetDateRange("released_at", &now, nil)
	st.SetSelective("status", "active")
	st.SetCustom("store_id", "s1", "s2")
	st.SetPassthrough("rating:>=4")

	first, err := BuildFilter(st, testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for range 10 {
		again, err := BuildFilter(st, testSchema())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("expression not deterministic: %q vs %q", first, again)
		}
	}
}

func TestBuildFilter_ClauseOrder(t *testing.T) {
	// Mutate kinds in reverse of the serialization order; the output must
	// still be disjunctive, numeric, date, selective, custom, passthrough.
	st := state.New()
	st.SetPassthrough("raw:=1")
	st.SetCustom("store_id", "s1")
	st.SetSelective("status", "active")
	start := time.Unix(1600000000, 0).UTC()
	st.SetDateRange("released_at", &start, nil)
	st.SetNumericRange("price", nil, floatPtr(50))
	st.SetDisjunctive("category", "Books")

	got, err := BuildFilter(st, testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "category:=`Books` && price:<=50 && released_at:>=1600000000 && " +
		"status:=`active` && store_id:=`s1` && raw:=1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildFilter_DateRangeBothBounds(t *testing.T) {
	st := state.New()
	start := time.Unix(1600000000, 0).UTC()
	end := time.Unix(1700000000, 0).UTC()
	st.SetDateRange("released_at", &start, &end)

	got, err := BuildFilter(st, testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "released_at:[1600000000..1700000000]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildFilter_NumericFieldUnquoted(t *testing.T) {
	st := state.New()
	st.SetDisjunctive("rating", "3", "4", "5")

	got, err := BuildFilter(st, testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "(rating:=3 || rating:=4 || rating:=5)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildFilter_RangeMode(t *testing.T) {
	st := state.New()
	st.SetDisjunctiveRange("price", "250", "10", "99.5")

	got, err := BuildFilter(st, testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "price:[10..250]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildFilter_RangeModeRejectsNonNumeric(t *testing.T) {
	st := state.New()
	st.SetDisjunctiveRange("price", "10", "cheap")

	_, err := BuildFilter(st, testSchema())
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestBuildFilterExcluding(t *testing.T) {
	st := state.New()
	st.SetDisjunctive("category", "Electronics", "Books")
	st.SetDisjunctive("brand", "Sony")
	st.SetNumericRange("price", floatPtr(100), nil)

	got, err := BuildFilterExcluding(st, testSchema(), "category")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "brand:=`Sony` && price:>=100"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// The full expression still carries the excluded field's clause.
	full, err := BuildFilter(st, testSchema())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantFull := "(category:=`Electronics` || category:=`Books`) && brand:=`Sony` && price:>=100"
	if full != wantFull {
		t.Errorf("got %q, want %q", full, wantFull)
	}
}

func TestBuildParams(t *testing.T) {
	st := state.New()
	st.SetDisjunctive("category", "Books")

	params, err := BuildParams(Spec{
		Query:          "phone",
		QueryBy:        []string{"name", "description"},
		Filters:        st,
		Schema:         testSchema(),
		Facets:         []string{"category", "brand"},
		MaxFacetValues: 20,
		Page:           2,
		PerPage:        30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.FilterBy != "category:=`Books`" {
		t.Errorf("filter_by: got %q", params.FilterBy)
	}
	if params.Page != 2 || params.PerPage != 30 || params.MaxFacetValues != 20 {
		t.Errorf("pagination not carried: %+v", params)
	}
}

func TestBuildParams_InvalidSort(t *testing.T) {
	_, err := BuildParams(Spec{
		Query:   "q",
		QueryBy: []string{"name"},
		Sort:    []sortby.Field{{Name: "price", Direction: "sideways"}},
	})
	if !errors.Is(err, domain.ErrInvalidSort) {
		t.Fatalf("expected ErrInvalidSort, got %v", err)
	}
}
