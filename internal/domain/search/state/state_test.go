package state

import (
	"reflect"
	"testing"
	"time"
)

func floatPtr(f float64) *float64 { return &f }

func TestSetDisjunctive_PreservesInsertionOrder(t *testing.T) {
	s := New()
	s.SetDisjunctive("category", "Electronics", "Books")
	s.SetDisjunctive("brand", "Sony")

	entries := s.Disjunctive()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Field != "category" || entries[1].Field != "brand" {
		t.Errorf("field order not preserved: %q, %q", entries[0].Field, entries[1].Field)
	}
	if !reflect.DeepEqual(entries[0].Values, []string{"Electronics", "Books"}) {
		t.Errorf("value order not preserved: %v", entries[0].Values)
	}
}

func TestSetDisjunctive_ReplaceKeepsPosition(t *testing.T) {
	s := New()
	s.SetDisjunctive("category", "Books")
	s.SetDisjunctive("brand", "Sony")
	s.SetDisjunctive("category", "Toys")

	entries := s.Disjunctive()
	if entries[0].Field != "category" || !reflect.DeepEqual(entries[0].Values, []string{"Toys"}) {
		t.Errorf("replace moved or mangled the entry: %+v", entries)
	}
}

func TestSetDisjunctive_DedupesAndDropsEmpty(t *testing.T) {
	s := New()
	s.SetDisjunctive("category", "Books", "", "Books", "Toys")

	got := s.DisjunctiveValues("category")
	if !reflect.DeepEqual(got, []string{"Books", "Toys"}) {
		t.Errorf("got %v, want [Books Toys]", got)
	}
}

func TestSetDisjunctive_EmptyRemovesEntry(t *testing.T) {
	s := New()
	s.SetDisjunctive("category", "Books")
	s.SetDisjunctive("category")

	if !s.IsEmpty() {
		t.Errorf("entry should be removed, state: %+v", s.Disjunctive())
	}
}

func TestToggleDisjunctive(t *testing.T) {
	s := New()
	s.ToggleDisjunctive("category", "Books")
	s.ToggleDisjunctive("category", "Toys")
	if !reflect.DeepEqual(s.DisjunctiveValues("category"), []string{"Books", "Toys"}) {
		t.Fatalf("toggle-on failed: %v", s.DisjunctiveValues("category"))
	}

	s.ToggleDisjunctive("category", "Books")
	if !reflect.DeepEqual(s.DisjunctiveValues("category"), []string{"Toys"}) {
		t.Fatalf("toggle-off failed: %v", s.DisjunctiveValues("category"))
	}

	// removing the last value removes the entry
	s.ToggleDisjunctive("category", "Toys")
	if s.DisjunctiveValues("category") != nil {
		t.Errorf("entry should be gone: %v", s.DisjunctiveValues("category"))
	}
	if !s.IsEmpty() {
		t.Error("state should be empty")
	}
}

func TestSetNumericRange(t *testing.T) {
	s := New()
	s.SetNumericRange("price", floatPtr(10), floatPtr(50))
	s.SetNumericRange("price", floatPtr(20), nil)

	entries := s.Numeric()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if *entries[0].Min != 20 || entries[0].Max != nil {
		t.Errorf("bounds not replaced: %+v", entries[0])
	}

	s.SetNumericRange("price", nil, nil)
	if !s.IsEmpty() {
		t.Error("nil bounds should remove the entry")
	}
}

func TestSetDateRange(t *testing.T) {
	s := New()
	start := time.Unix(1600000000, 0)
	s.SetDateRange("released_at", &start, nil)
	if len(s.Date()) != 1 {
		t.Fatalf("got %d entries, want 1", len(s.Date()))
	}

	s.SetDateRange("released_at", nil, nil)
	if !s.IsEmpty() {
		t.Error("nil bounds should remove the entry")
	}
}

func TestSetSelective(t *testing.T) {
	s := New()
	s.SetSelective("status", "active")
	s.SetSelective("status", "archived")

	entries := s.Selective()
	if len(entries) != 1 || entries[0].Value != "archived" {
		t.Fatalf("value not replaced: %+v", entries)
	}

	s.SetSelective("status", "")
	if !s.IsEmpty() {
		t.Error("empty value should remove the entry")
	}
}

func TestClearField_RemovesEveryKind(t *testing.T) {
	s := New()
	s.SetDisjunctive("price", "10")
	s.SetCustom("price", "x")
	s.SetNumericRange("price", floatPtr(1), nil)
	start := time.Now()
	s.SetDateRange("price", &start, nil)
	s.SetSelective("price", "v")
	s.SetDisjunctive("category", "Books")

	s.ClearField("price")

	if len(s.Disjunctive()) != 1 || s.Disjunctive()[0].Field != "category" {
		t.Errorf("other fields must survive: %+v", s.Disjunctive())
	}
	if len(s.Numeric()) != 0 || len(s.Date()) != 0 || len(s.Selective()) != 0 || len(s.Custom()) != 0 {
		t.Error("ClearField left entries behind")
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.SetDisjunctive("category", "Books")
	s.SetPassthrough("raw:=1")
	s.Clear()
	if !s.IsEmpty() {
		t.Error("Clear should empty the state")
	}
}

func TestClone_Independent(t *testing.T) {
	s := New()
	s.SetDisjunctive("category", "Books")
	s.SetNumericRange("price", floatPtr(10), nil)

	c := s.Clone()
	s.SetDisjunctive("category", "Books", "Toys")
	s.SetNumericRange("price", floatPtr(99), nil)

	if !reflect.DeepEqual(c.DisjunctiveValues("category"), []string{"Books"}) {
		t.Errorf("clone saw mutation: %v", c.DisjunctiveValues("category"))
	}
	if *c.Numeric()[0].Min != 10 {
		t.Errorf("clone bound mutated: %v", *c.Numeric()[0].Min)
	}
}

func TestClone_Nil(t *testing.T) {
	var s *FilterState
	c := s.Clone()
	if c == nil || !c.IsEmpty() {
		t.Error("nil clone should be a fresh empty state")
	}
}
