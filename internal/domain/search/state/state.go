package state

import "time"

// FilterState is the canonical filter model owned by the search state reducer.
// Entry and value order is insertion order and is preserved by Clone, which is
// what makes expression building deterministic: the same snapshot always
// serializes to the same string.
//
// Every mutator maintains the invariant that an entry with no remaining
// constraint (empty value set, both bounds nil) is removed rather than kept
// empty, so builders never see an empty-valued clause.
type FilterState struct {
	disjunctive []FacetEntry
	numeric     []NumericEntry
	date        []DateEntry
	selective   []SelectiveEntry
	custom      []FacetEntry
	passthrough string
}

// FacetEntry holds OR-selected values for one field.
// RangeMode marks a numeric facet presented as a continuous range: its
// selected values collapse into one min/max range clause at build time.
type FacetEntry struct {
	Field     string
	Values    []string
	RangeMode bool
}

// NumericEntry is an inclusive numeric bound pair; either bound may be nil.
type NumericEntry struct {
	Field string
	Min   *float64
	Max   *float64
}

// DateEntry is an inclusive calendar-date bound pair; either bound may be nil.
// Bounds serialize to Unix seconds at build time.
type DateEntry struct {
	Field string
	Start *time.Time
	End   *time.Time
}

// SelectiveEntry is a single-valued, mutually exclusive filter for one field.
type SelectiveEntry struct {
	Field string
	Value string
}

// New creates an empty FilterState.
func New() *FilterState {
	return &FilterState{}
}

// SetDisjunctive replaces the OR-selected values for field.
// An empty value list removes the entry.
func (s *FilterState) SetDisjunctive(field string, values ...string) {
	s.disjunctive = setFacet(s.disjunctive, field, values, false)
}

// SetDisjunctiveRange marks field as a range-mode numeric facet with the given
// selected values. An empty value list removes the entry.
func (s *FilterState) SetDisjunctiveRange(field string, values ...string) {
	s.disjunctive = setFacet(s.disjunctive, field, values, true)
}

// ToggleDisjunctive adds value to field's selection if absent, removes it if
// present. Removing the last value removes the entry.
func (s *FilterState) ToggleDisjunctive(field, value string) {
	s.disjunctive = toggleFacet(s.disjunctive, field, value)
}

// SetCustom replaces the OR-group values for a custom (non-facet) field.
// An empty value list removes the entry.
func (s *FilterState) SetCustom(field string, values ...string) {
	s.custom = setFacet(s.custom, field, values, false)
}

// SetNumericRange sets inclusive bounds for field. Both bounds nil removes the entry.
func (s *FilterState) SetNumericRange(field string, min, max *float64) {
	if min == nil && max == nil {
		s.numeric = removeNumeric(s.numeric, field)
		return
	}
	for i := range s.numeric {
		if s.numeric[i].Field == field {
			s.numeric[i].Min, s.numeric[i].Max = min, max
			return
		}
	}
	s.numeric = append(s.numeric, NumericEntry{Field: field, Min: min, Max: max})
}

// SetDateRange sets inclusive date bounds for field. Both bounds nil removes the entry.
func (s *FilterState) SetDateRange(field string, start, end *time.Time) {
	if start == nil && end == nil {
		for i := range s.date {
			if s.date[i].Field == field {
				s.date = append(s.date[:i], s.date[i+1:]...)
				return
			}
		}
		return
	}
	for i := range s.date {
		if s.date[i].Field == field {
			s.date[i].Start, s.date[i].End = start, end
			return
		}
	}
	s.date = append(s.date, DateEntry{Field: field, Start: start, End: end})
}

// SetSelective sets the single selected value for field. Empty value removes the entry.
func (s *FilterState) SetSelective(field, value string) {
	if value == "" {
		for i := range s.selective {
			if s.selective[i].Field == field {
				s.selective = append(s.selective[:i], s.selective[i+1:]...)
				return
			}
		}
		return
	}
	for i := range s.selective {
		if s.selective[i].Field == field {
			s.selective[i].Value = value
			return
		}
	}
	s.selective = append(s.selective, SelectiveEntry{Field: field, Value: value})
}

// SetPassthrough sets the raw filter expression ANDed verbatim with built clauses.
func (s *FilterState) SetPassthrough(expr string) {
	s.passthrough = expr
}

// Clear removes every filter.
func (s *FilterState) Clear() {
	*s = FilterState{}
}

// ClearField removes every filter touching field, of any kind.
func (s *FilterState) ClearField(field string) {
	s.disjunctive = removeFacet(s.disjunctive, field)
	s.custom = removeFacet(s.custom, field)
	s.numeric = removeNumeric(s.numeric, field)
	s.SetDateRange(field, nil, nil)
	s.SetSelective(field, "")
}

// IsEmpty reports whether no filter of any kind is set.
func (s *FilterState) IsEmpty() bool {
	return len(s.disjunctive) == 0 && len(s.numeric) == 0 && len(s.date) == 0 &&
		len(s.selective) == 0 && len(s.custom) == 0 && s.passthrough == ""
}

// Disjunctive returns the disjunctive facet entries in insertion order.
func (s *FilterState) Disjunctive() []FacetEntry { return s.disjunctive }

// DisjunctiveValues returns the selected values for field (nil if none).
func (s *FilterState) DisjunctiveValues(field string) []string {
	for i := range s.disjunctive {
		if s.disjunctive[i].Field == field {
			return s.disjunctive[i].Values
		}
	}
	return nil
}

// Numeric returns the numeric range entries in insertion order.
func (s *FilterState) Numeric() []NumericEntry { return s.numeric }

// Date returns the date range entries in insertion order.
func (s *FilterState) Date() []DateEntry { return s.date }

// Selective returns the single-valued entries in insertion order.
func (s *FilterState) Selective() []SelectiveEntry { return s.selective }

// Custom returns the custom OR-group entries in insertion order.
func (s *FilterState) Custom() []FacetEntry { return s.custom }

// Passthrough returns the raw passthrough expression ("" if none).
func (s *FilterState) Passthrough() string { return s.passthrough }

// Clone returns a deep copy. Fan-out batches operate on a clone so that
// reducer mutations during an in-flight batch cannot leak into it.
func (s *FilterState) Clone() *FilterState {
	if s == nil {
		return New()
	}
	c := &FilterState{passthrough: s.passthrough}
	c.disjunctive = cloneFacets(s.disjunctive)
	c.custom = cloneFacets(s.custom)
	if len(s.numeric) > 0 {
		c.numeric = make([]NumericEntry, len(s.numeric))
		for i, e := range s.numeric {
			c.numeric[i] = NumericEntry{Field: e.Field, Min: clonePtr(e.Min), Max: clonePtr(e.Max)}
		}
	}
	if len(s.date) > 0 {
		c.date = make([]DateEntry, len(s.date))
		for i, e := range s.date {
			c.date[i] = DateEntry{Field: e.Field, Start: clonePtr(e.Start), End: clonePtr(e.End)}
		}
	}
	if len(s.selective) > 0 {
		c.selective = append([]SelectiveEntry(nil), s.selective...)
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFacets(entries []FacetEntry) []FacetEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]FacetEntry, len(entries))
	for i, e := range entries {
		out[i] = FacetEntry{
			Field:     e.Field,
			Values:    append([]string(nil), e.Values...),
			RangeMode: e.RangeMode,
		}
	}
	return out
}

func setFacet(entries []FacetEntry, field string, values []string, rangeMode bool) []FacetEntry {
	deduped := dedupe(values)
	if len(deduped) == 0 {
		return removeFacet(entries, field)
	}
	for i := range entries {
		if entries[i].Field == field {
			entries[i].Values = deduped
			entries[i].RangeMode = rangeMode
			return entries
		}
	}
	return append(entries, FacetEntry{Field: field, Values: deduped, RangeMode: rangeMode})
}

func toggleFacet(entries []FacetEntry, field, value string) []FacetEntry {
	for i := range entries {
		if entries[i].Field != field {
			continue
		}
		for j, v := range entries[i].Values {
			if v == value {
				entries[i].Values = append(entries[i].Values[:j], entries[i].Values[j+1:]...)
				if len(entries[i].Values) == 0 {
					return append(entries[:i], entries[i+1:]...)
				}
				return entries
			}
		}
		entries[i].Values = append(entries[i].Values, value)
		return entries
	}
	return append(entries, FacetEntry{Field: field, Values: []string{value}})
}

func removeFacet(entries []FacetEntry, field string) []FacetEntry {
	for i := range entries {
		if entries[i].Field == field {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}

func removeNumeric(entries []NumericEntry, field string) []NumericEntry {
	for i := range entries {
		if entries[i].Field == field {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
