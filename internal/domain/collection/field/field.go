package field

import "fmt"

// Type is the declared type of a collection field. It decides literal quoting
// in filter expressions: String values are delimited, Numeric and Bool are
// emitted bare so the backend does not coerce them as strings.
type Type string

// Field type constants.
const (
	String  Type = "string"
	Numeric Type = "numeric"
	Bool    Type = "bool"
)

// IsValid checks if the type is one of the supported values.
func (t Type) IsValid() bool {
	return t == String || t == Numeric || t == Bool
}

// Field is an immutable value object describing a declared collection field.
type Field struct {
	name      string
	fieldType Type
}

// New validates and creates a Field.
func New(name string, ft Type) (Field, error) {
	if err := ValidateName(name); err != nil {
		return Field{}, err
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	return Field{name: name, fieldType: ft}, nil
}

// ValidateName checks that a field name is safe to embed in a filter
// expression: non-empty, at most 64 chars, built from letters, digits,
// underscore, dot and hyphen. Any other character could splice extra
// clauses into the wire expression.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("field name %q too long (max 64)", name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
		default:
			return fmt.Errorf("field name %q contains invalid character %q", name, r)
		}
	}
	return nil
}

// Reconstruct creates a Field without validation (config hydration).
func Reconstruct(name string, ft Type) Field {
	return Field{name: name, fieldType: ft}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the field's declared type.
func (f Field) FieldType() Type { return f.fieldType }

// Schema maps field names to their declared types for one collection.
// Fields absent from the schema are treated as String.
type Schema struct {
	fields map[string]Type
}

// NewSchema builds a Schema from declared fields.
func NewSchema(fields []Field) Schema {
	m := make(map[string]Type, len(fields))
	for _, f := range fields {
		m[f.name] = f.fieldType
	}
	return Schema{fields: m}
}

// TypeOf returns the declared type of name, defaulting to String.
func (s Schema) TypeOf(name string) Type {
	if t, ok := s.fields[name]; ok {
		return t
	}
	return String
}

// Unquoted reports whether values of name serialize as bare literals.
func (s Schema) Unquoted(name string) bool {
	t := s.TypeOf(name)
	return t == Numeric || t == Bool
}
