// Package query serializes typed search state into the backend's textual
// query language. The produced syntax (equality `field:=value`, backtick
// string delimiters, OR-groups `(a || b)`, ranges `field:[min..max]`,
// comparisons `field:>=n`) is a wire-format compatibility requirement: the
// backend parses these strings server-side, so escaping rules and clause
// ordering must be reproduced exactly.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/facetmux/facetmux/internal/domain"
	"github.com/facetmux/facetmux/internal/domain/collection/field"
	"github.com/facetmux/facetmux/internal/domain/search/state"
)

const (
	andSeparator = " && "
	orSeparator  = " || "
	delimiter    = "`"
)

// BuildFilter composes the full filter expression for one FilterState
// snapshot. Clause order is fixed (disjunctive, numeric, date, selective,
// custom, passthrough) and entry order follows the snapshot's insertion
// order, so identical snapshots always serialize identically.
//
// Empty-valued entries produce no clause. An empty state produces "".
func BuildFilter(st *state.FilterState, schema field.Schema) (string, error) {
	return buildFilter(st, schema, "")
}

// BuildFilterExcluding composes the filter expression with the given
// disjunctive field's own clause omitted while every other clause is
// retained. This is the auxiliary-query expression of the disjunctive facet
// technique: the excluded field's counts must not be restricted by its own
// selection.
func BuildFilterExcluding(st *state.FilterState, schema field.Schema, excludeField string) (string, error) {
	return buildFilter(st, schema, excludeField)
}

func buildFilter(st *state.FilterState, schema field.Schema, excludeField string) (string, error) {
	if st == nil {
		return "", nil
	}
	var clauses []string

	for _, e := range st.Disjunctive() {
		if excludeField != "" && e.Field == excludeField {
			continue
		}
		if err := validateField(e.Field); err != nil {
			return "", err
		}
		clause, err := facetClause(e, schema)
		if err != nil {
			return "", err
		}
		if clause != "" {
			clauses = append(clauses, clause)
		}
	}

	for _, e := range st.Numeric() {
		if err := validateField(e.Field); err != nil {
			return "", err
		}
		if clause := RangeClause(e.Field, e.Min, e.Max); clause != "" {
			clauses = append(clauses, clause)
		}
	}

	for _, e := range st.Date() {
		if err := validateField(e.Field); err != nil {
			return "", err
		}
		if clause := dateClause(e); clause != "" {
			clauses = append(clauses, clause)
		}
	}

	for _, e := range st.Selective() {
		if e.Value == "" {
			continue
		}
		if err := validateField(e.Field); err != nil {
			return "", err
		}
		clauses = append(clauses, EqualityClause(e.Field, e.Value, schema.Unquoted(e.Field)))
	}

	for _, e := range st.Custom() {
		if err := validateField(e.Field); err != nil {
			return "", err
		}
		clause, err := facetClause(e, schema)
		if err != nil {
			return "", err
		}
		if clause != "" {
			clauses = append(clauses, clause)
		}
	}

	if p := st.Passthrough(); p != "" {
		clauses = append(clauses, p)
	}

	return strings.Join(clauses, andSeparator), nil
}

// facetClause serializes one OR-selected entry. Range-mode entries collapse
// their selected values into a single min/max range clause instead.
func facetClause(e state.FacetEntry, schema field.Schema) (string, error) {
	if len(e.Values) == 0 {
		return "", nil
	}
	if e.RangeMode {
		return rangeModeClause(e)
	}
	return OrGroup(e.Field, e.Values, schema.Unquoted(e.Field)), nil
}

// rangeModeClause converts a range-mode facet's discrete selections into one
// inclusive range covering their numeric span.
func rangeModeClause(e state.FacetEntry) (string, error) {
	var min, max float64
	for i, v := range e.Values {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "", fmt.Errorf("%w: field %q: range-mode value %q is not numeric",
				domain.ErrInvalidFilter, e.Field, v)
		}
		if i == 0 || n < min {
			min = n
		}
		if i == 0 || n > max {
			max = n
		}
	}
	return RangeClause(e.Field, &min, &max), nil
}

// EqualityClause emits a single-value equality. String values are wrapped in
// the backend's literal delimiter; numeric and bool fields emit the bare
// literal so the backend does not coerce them as strings.
func EqualityClause(fieldName, value string, unquoted bool) string {
	if unquoted {
		return fieldName + ":=" + value
	}
	return fieldName + ":=" + delimiter + EscapeValue(value) + delimiter
}

// OrGroup emits one equality clause per value, OR-joined and parenthesized.
// A single value collapses to the plain equality form with no parentheses.
func OrGroup(fieldName string, values []string, unquoted bool) string {
	if len(values) == 0 {
		return ""
	}
	if len(values) == 1 {
		return EqualityClause(fieldName, values[0], unquoted)
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = EqualityClause(fieldName, v, unquoted)
	}
	return "(" + strings.Join(parts, orSeparator) + ")"
}

// RangeClause emits an inclusive numeric range. Both bounds present uses the
// range syntax, a single bound uses the matching comparison. min == max still
// emits the range form. No bounds emits nothing.
func RangeClause(fieldName string, min, max *float64) string {
	switch {
	case min != nil && max != nil:
		return fieldName + ":[" + formatNumber(*min) + ".." + formatNumber(*max) + "]"
	case min != nil:
		return fieldName + ":>=" + formatNumber(*min)
	case max != nil:
		return fieldName + ":<=" + formatNumber(*max)
	}
	return ""
}

// dateClause converts calendar-date bounds to Unix seconds, then delegates to
// the numeric range rule.
func dateClause(e state.DateEntry) string {
	var min, max *float64
	if e.Start != nil {
		v := float64(e.Start.Unix())
		min = &v
	}
	if e.End != nil {
		v := float64(e.End.Unix())
		max = &v
	}
	return RangeClause(e.Field, min, max)
}

// GeoClause emits a geo-radius clause with fixed 4-decimal coordinates so
// expressions stay deterministic across runs with floating-point input.
// Radius is in kilometers. Bounds violations fail fast, never clamp.
func GeoClause(fieldName string, lat, lon, radiusKm float64) (string, error) {
	if err := validateField(fieldName); err != nil {
		return "", err
	}
	if lat < -90 || lat > 90 {
		return "", fmt.Errorf("%w: field %q: latitude %v out of range [-90, 90]",
			domain.ErrInvalidFilter, fieldName, lat)
	}
	if lon < -180 || lon > 180 {
		return "", fmt.Errorf("%w: field %q: longitude %v out of range [-180, 180]",
			domain.ErrInvalidFilter, fieldName, lon)
	}
	if radiusKm <= 0 {
		return "", fmt.Errorf("%w: field %q: radius must be positive, got %v",
			domain.ErrInvalidFilter, fieldName, radiusKm)
	}
	return fmt.Sprintf("%s:(%.4f, %.4f, %.4f km)", fieldName, lat, lon, radiusKm), nil
}

// validateField guards the build path against field names that the caller
// never registered. Values are escaped, but field names are concatenated
// verbatim, so a malformed name must fail before any request is serialized.
func validateField(name string) error {
	if err := field.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
	}
	return nil
}

// EscapeValue escapes the literal delimiter inside a value. Backslashes are
// escaped first, then delimiters, so already-escaped input is not
// double-escaped.
func EscapeValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, delimiter, `\`+delimiter)
}

// formatNumber renders a float with no trailing zeros (100 not 100.000000),
// keeping range clauses byte-stable for identical input.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
