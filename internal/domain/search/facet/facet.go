package facet

// ValueCount is one facet value with its match count.
type ValueCount struct {
	Value string
	Count int
}

// Stats holds numeric facet statistics reported by the backend.
type Stats struct {
	Min float64
	Max float64
}

// FieldCounts holds the full count block for one field. A field's block is
// always replaced wholesale on a new search, never merged across calls.
type FieldCounts struct {
	Field  string
	Counts []ValueCount
	Stats  *Stats
}

// Counts is the reconciled facet-count result for one search invocation,
// ordered by the caller's requested facet field order.
type Counts struct {
	fields []FieldCounts
	index  map[string]int
}

// NewCounts creates an empty Counts.
func NewCounts() *Counts {
	return &Counts{index: make(map[string]int)}
}

// Set replaces the count block for fc.Field, preserving first-set order.
func (c *Counts) Set(fc FieldCounts) {
	if i, ok := c.index[fc.Field]; ok {
		c.fields[i] = fc
		return
	}
	c.index[fc.Field] = len(c.fields)
	c.fields = append(c.fields, fc)
}

// Get returns the count block for field.
func (c *Counts) Get(field string) (FieldCounts, bool) {
	i, ok := c.index[field]
	if !ok {
		return FieldCounts{}, false
	}
	return c.fields[i], true
}

// Fields returns all count blocks in first-set order.
func (c *Counts) Fields() []FieldCounts { return c.fields }

// Len returns the number of fields with counts.
func (c *Counts) Len() int { return len(c.fields) }
