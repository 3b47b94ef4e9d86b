// Package frame holds materialized tabular results: a schema plus rows.
package frame

import (
	"fmt"

	"github.com/duckmesh/duckframe/internal/expr"
	"github.com/duckmesh/duckframe/internal/schema"
)

type Frame struct {
	Schema schema.Schema
	Rows   [][]any
}

// New builds a frame, coercing every value to its column type.
func New(s schema.Schema, rows [][]any) (*Frame, error) {
	coerced, err := s.Apply(rows)
	if err != nil {
		return nil, fmt.Errorf("build frame: %w", err)
	}
	return &Frame{Schema: s, Rows: coerced}, nil
}

// FromRecords builds a frame from column names and rows, inferring each
// column type from its first non-nil value.
func FromRecords(columns []string, rows [][]any) (*Frame, error) {
	types := make([]schema.DataType, len(columns))
	for i := range columns {
		types[i] = schema.Null
		for _, row := range rows {
			if i < len(row) && row[i] != nil {
				types[i] = schema.Infer(row[i])
				break
			}
		}
	}
	s, err := schema.FromNamesAndTypes(columns, types)
	if err != nil {
		return nil, err
	}
	return New(s, rows)
}

func (f *Frame) Len() int { return len(f.Rows) }

func (f *Frame) Columns() []string { return f.Schema.Names() }

func (f *Frame) Column(name string) (*Series, error) {
	index := f.Schema.Index(name)
	if index < 0 {
		return nil, fmt.Errorf("frame: column %q not found", name)
	}
	typ, _ := f.Schema.Lookup(name)
	values := make([]any, len(f.Rows))
	for i, row := range f.Rows {
		values[i] = row[index]
	}
	return &Series{Name: name, Type: typ, Values: values}, nil
}

func (f *Frame) Value(row int, column string) (any, error) {
	if row < 0 || row >= len(f.Rows) {
		return nil, fmt.Errorf("frame: row %d out of range", row)
	}
	index := f.Schema.Index(column)
	if index < 0 {
		return nil, fmt.Errorf("frame: column %q not found", column)
	}
	return f.Rows[row][index], nil
}

type Series struct {
	Name   string
	Type   schema.DataType
	Values []any
}

func (s *Series) Len() int { return len(s.Values) }

// Result is what an eager execute returns; exactly one of Table, Column
// and Scalar is meaningful, selected by Shape.
type Result struct {
	Shape  expr.Shape
	Table  *Frame
	Column *Series
	Scalar any
}
