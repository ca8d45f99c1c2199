package sortby

import (
	"fmt"
	"strings"
)

// Direction is a sort direction token in the backend's sort language.
type Direction string

// Direction constants.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// IsValid checks if the direction is one of the two canonical tokens.
func (d Direction) IsValid() bool {
	return d == Asc || d == Desc
}

// Field is one (field, direction) sort pair. List order is tie-break
// priority: the first pair is the primary sort key.
type Field struct {
	Name      string
	Direction Direction
}

// Build serializes sort pairs as a comma-joined "field:direction" list.
// A pair without an explicit direction defaults to ascending; any other
// direction token is rejected.
func Build(fields []Field) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return "", fmt.Errorf("sort field %d: name is required", i)
		}
		dir := f.Direction
		if dir == "" {
			dir = Asc
		}
		if !dir.IsValid() {
			return "", fmt.Errorf("sort field %q: invalid direction %q", f.Name, f.Direction)
		}
		parts[i] = f.Name + ":" + string(dir)
	}
	return strings.Join(parts, ","), nil
}

// Parse is the inverse of Build: Parse(Build(x)) == x for well-formed x,
// with a missing direction defaulting to ascending.
func Parse(expr string) ([]Field, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	parts := strings.Split(expr, ",")
	fields := make([]Field, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty sort segment in %q", expr)
		}
		name, dir, found := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("sort segment %q: field name is required", part)
		}
		d := Asc
		if found {
			d = Direction(strings.TrimSpace(dir))
			if !d.IsValid() {
				return nil, fmt.Errorf("sort segment %q: invalid direction %q", part, dir)
			}
		}
		fields = append(fields, Field{Name: name, Direction: d})
	}
	return fields, nil
}
