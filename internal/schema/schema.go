package schema

import (
	"fmt"
	"strings"
)

type Field struct {
	Name string
	Type DataType
}

// Schema is an ordered list of uniquely named fields.
type Schema struct {
	fields []Field
}

func New(fields ...Field) (Schema, error) {
	seen := make(map[string]struct{}, len(fields))
	copied := make([]Field, 0, len(fields))
	for _, field := range fields {
		if strings.TrimSpace(field.Name) == "" {
			return Schema{}, fmt.Errorf("schema: field name is required")
		}
		if _, ok := seen[field.Name]; ok {
			return Schema{}, fmt.Errorf("schema: duplicate field %q", field.Name)
		}
		seen[field.Name] = struct{}{}
		copied = append(copied, field)
	}
	return Schema{fields: copied}, nil
}

func MustNew(fields ...Field) Schema {
	s, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func FromNamesAndTypes(names []string, types []DataType) (Schema, error) {
	if len(names) != len(types) {
		return Schema{}, fmt.Errorf("schema: %d names but %d types", len(names), len(types))
	}
	fields := make([]Field, len(names))
	for i := range names {
		fields[i] = Field{Name: names[i], Type: types[i]}
	}
	return New(fields...)
}

func (s Schema) Len() int { return len(s.fields) }

func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, field := range s.fields {
		out[i] = field.Name
	}
	return out
}

func (s Schema) Types() []DataType {
	out := make([]DataType, len(s.fields))
	for i, field := range s.fields {
		out[i] = field.Type
	}
	return out
}

func (s Schema) Lookup(name string) (DataType, bool) {
	if i := s.Index(name); i >= 0 {
		return s.fields[i].Type, true
	}
	return DataType{}, false
}

func (s Schema) Index(name string) int {
	for i, field := range s.fields {
		if field.Name == name {
			return i
		}
	}
	return -1
}

// Select returns the sub-schema for names in the given order.
func (s Schema) Select(names ...string) (Schema, error) {
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		t, ok := s.Lookup(name)
		if !ok {
			return Schema{}, fmt.Errorf("schema: field %q not found", name)
		}
		fields = append(fields, Field{Name: name, Type: t})
	}
	return New(fields...)
}

func (s Schema) Equal(other Schema) bool {
	if len(s.fields) != len(other.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != other.fields[i] {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	var b strings.Builder
	b.WriteString("schema{")
	for i, field := range s.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(field.Name)
		b.WriteString(": ")
		b.WriteString(field.Type.String())
	}
	b.WriteString("}")
	return b.String()
}
