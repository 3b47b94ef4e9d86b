// Package expr is the expression tree compiled by the backends: table,
// column and scalar shaped nodes over database tables.
package expr

import (
	"fmt"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/schema"
)

type Shape int

const (
	ShapeTable Shape = iota + 1
	ShapeColumn
	ShapeScalar
)

func (s Shape) String() string {
	switch s {
	case ShapeTable:
		return "table"
	case ShapeColumn:
		return "column"
	case ShapeScalar:
		return "scalar"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

type Expr interface {
	Shape() Shape
}

type TableExpr interface {
	Expr
	Schema() schema.Schema
}

type ValueExpr interface {
	Expr
	Type() schema.DataType
	// Name is empty for unnamed values.
	Name() string
}

// Root is implemented by table leaves bound to a backend relation,
// including backend table handles that embed *DatabaseTable.
type Root interface {
	TableExpr
	Root() *DatabaseTable
}

// DatabaseTable is a leaf naming a relation in a backend. Source is the
// owning client and is not used by the tree itself.
type DatabaseTable struct {
	Name   string
	schema schema.Schema
	Source any
}

func NewDatabaseTable(name string, s schema.Schema, source any) *DatabaseTable {
	return &DatabaseTable{Name: name, schema: s, Source: source}
}

func (t *DatabaseTable) Shape() Shape          { return ShapeTable }
func (t *DatabaseTable) Schema() schema.Schema { return t.schema }
func (t *DatabaseTable) Root() *DatabaseTable  { return t }

// Rename returns a copy of the node bound to a new name. The receiver is
// left untouched.
func (t *DatabaseTable) Rename(name string) *DatabaseTable {
	return &DatabaseTable{Name: name, schema: t.schema, Source: t.Source}
}

type Selection struct {
	Table      TableExpr
	Columns    []ValueExpr
	Predicates []ValueExpr
}

func Select(t TableExpr, columns ...ValueExpr) (*Selection, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: select requires a table", catalog.ErrInvalidExpression)
	}
	seen := map[string]struct{}{}
	for _, column := range columns {
		name := column.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: selected values must be named", catalog.ErrInvalidExpression)
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: duplicate column %q", catalog.ErrInvalidExpression, name)
		}
		seen[name] = struct{}{}
	}
	return &Selection{Table: t, Columns: columns}, nil
}

func Filter(t TableExpr, predicates ...ValueExpr) (*Selection, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: filter requires a table", catalog.ErrInvalidExpression)
	}
	for _, predicate := range predicates {
		if predicate.Type().Kind != schema.KindBoolean {
			return nil, fmt.Errorf("%w: predicate must be boolean, got %s", catalog.ErrInvalidExpression, predicate.Type())
		}
	}
	return &Selection{Table: t, Predicates: predicates}, nil
}

func (s *Selection) Shape() Shape { return ShapeTable }

func (s *Selection) Schema() schema.Schema {
	if len(s.Columns) == 0 {
		return s.Table.Schema()
	}
	return valuesSchema(s.Columns)
}

type Limit struct {
	Table  TableExpr
	N      int
	Offset int
}

func Head(t TableExpr, n int) *Limit {
	return &Limit{Table: t, N: n}
}

func (l *Limit) Shape() Shape          { return ShapeTable }
func (l *Limit) Schema() schema.Schema { return l.Table.Schema() }

type Aggregation struct {
	Table   TableExpr
	By      []ValueExpr
	Metrics []ValueExpr
}

func Aggregate(t TableExpr, by []ValueExpr, metrics ...ValueExpr) (*Aggregation, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: aggregate requires a table", catalog.ErrInvalidExpression)
	}
	if len(metrics) == 0 {
		return nil, fmt.Errorf("%w: aggregate requires at least one metric", catalog.ErrInvalidExpression)
	}
	all := append(append([]ValueExpr{}, by...), metrics...)
	if _, err := Select(t, all...); err != nil {
		return nil, err
	}
	return &Aggregation{Table: t, By: by, Metrics: metrics}, nil
}

func (a *Aggregation) Shape() Shape { return ShapeTable }

func (a *Aggregation) Schema() schema.Schema {
	return valuesSchema(append(append([]ValueExpr{}, a.By...), a.Metrics...))
}

func valuesSchema(values []ValueExpr) schema.Schema {
	fields := make([]schema.Field, len(values))
	for i, value := range values {
		fields[i] = schema.Field{Name: value.Name(), Type: value.Type()}
	}
	// names were validated by the constructors
	s, _ := schema.New(fields...)
	return s
}
