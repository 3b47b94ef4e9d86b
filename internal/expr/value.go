package expr

import (
	"fmt"
	"strings"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/schema"
)

type ColumnRef struct {
	Table  TableExpr
	Column string
	typ    schema.DataType
}

func Col(t TableExpr, name string) (*ColumnRef, error) {
	typ, ok := t.Schema().Lookup(name)
	if !ok {
		return nil, catalog.NotFound("column", name)
	}
	return &ColumnRef{Table: t, Column: name, typ: typ}, nil
}

func (c *ColumnRef) Shape() Shape          { return ShapeColumn }
func (c *ColumnRef) Type() schema.DataType { return c.typ }
func (c *ColumnRef) Name() string          { return c.Column }

type Literal struct {
	Value any
	typ   schema.DataType
}

func Lit(value any) *Literal {
	return &Literal{Value: value, typ: schema.Infer(value)}
}

func LitOf(value any, t schema.DataType) *Literal {
	return &Literal{Value: value, typ: t}
}

func (l *Literal) Shape() Shape          { return ShapeScalar }
func (l *Literal) Type() schema.DataType { return l.typ }
func (l *Literal) Name() string          { return "" }

// Param is a placeholder bound to a literal value at compile time. Params
// are compared by identity.
type Param struct {
	Label string
	typ   schema.DataType
}

func NewParam(label string, t schema.DataType) *Param {
	return &Param{Label: label, typ: t}
}

func (p *Param) Shape() Shape          { return ShapeScalar }
func (p *Param) Type() schema.DataType { return p.typ }
func (p *Param) Name() string          { return "" }

var comparisonOps = map[string]bool{"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}
var logicalOps = map[string]bool{"AND": true, "OR": true}
var arithmeticOps = map[string]bool{"+": true, "-": true, "*": true, "/": true}

type BinaryOp struct {
	Op    string
	Left  ValueExpr
	Right ValueExpr
}

func Binary(op string, left, right ValueExpr) (*BinaryOp, error) {
	op = strings.ToUpper(strings.TrimSpace(op))
	if !comparisonOps[op] && !logicalOps[op] && !arithmeticOps[op] {
		return nil, fmt.Errorf("%w: unknown operator %q", catalog.ErrInvalidExpression, op)
	}
	if left == nil || right == nil {
		return nil, fmt.Errorf("%w: operator %q requires two operands", catalog.ErrInvalidExpression, op)
	}
	node := &BinaryOp{Op: op, Left: left, Right: right}
	if _, err := SourceTable(node); err != nil {
		return nil, err
	}
	return node, nil
}

func (b *BinaryOp) Shape() Shape {
	if b.Left.Shape() == ShapeColumn || b.Right.Shape() == ShapeColumn {
		return ShapeColumn
	}
	return ShapeScalar
}

func (b *BinaryOp) Type() schema.DataType {
	switch {
	case comparisonOps[b.Op], logicalOps[b.Op]:
		return schema.Boolean
	case b.Op == "/":
		return schema.Float64
	}
	l, r := b.Left.Type(), b.Right.Type()
	if l.Kind.IsFloating() || r.Kind.IsFloating() {
		return schema.Float64
	}
	if schema.Castable(r, l) {
		return l
	}
	return r
}

func (b *BinaryOp) Name() string { return "" }

type Reduction struct {
	Func string
	// Arg is nil for a row count.
	Arg   ValueExpr
	Table TableExpr
}

func Count(t TableExpr) *Reduction {
	return &Reduction{Func: "count", Table: t}
}

func Sum(v ValueExpr) (*Reduction, error)  { return reduce("sum", v) }
func Min(v ValueExpr) (*Reduction, error)  { return reduce("min", v) }
func Max(v ValueExpr) (*Reduction, error)  { return reduce("max", v) }
func Mean(v ValueExpr) (*Reduction, error) { return reduce("mean", v) }
func CountOf(v ValueExpr) (*Reduction, error) {
	return reduce("count", v)
}

func reduce(fn string, v ValueExpr) (*Reduction, error) {
	if v == nil || v.Shape() != ShapeColumn {
		return nil, fmt.Errorf("%w: %s requires a column", catalog.ErrInvalidExpression, fn)
	}
	if (fn == "sum" || fn == "mean") && !v.Type().Kind.IsNumeric() {
		return nil, fmt.Errorf("%w: %s requires a numeric column, got %s", catalog.ErrInvalidExpression, fn, v.Type())
	}
	t, err := SourceTable(v)
	if err != nil {
		return nil, err
	}
	return &Reduction{Func: fn, Arg: v, Table: t}, nil
}

func (r *Reduction) Shape() Shape { return ShapeScalar }

func (r *Reduction) Type() schema.DataType {
	switch r.Func {
	case "count":
		return schema.Int64
	case "mean":
		return schema.Float64
	case "sum":
		k := r.Arg.Type().Kind
		switch {
		case k.IsSignedInteger():
			return schema.Int64
		case k.IsUnsignedInteger():
			return schema.UInt64
		case k.IsFloating():
			return schema.Float64
		}
	}
	return r.Arg.Type()
}

func (r *Reduction) Name() string { return "" }

type Alias struct {
	Arg   ValueExpr
	Label string
}

// Named gives v a column name. Naming an alias replaces its name.
func Named(v ValueExpr, name string) *Alias {
	if a, ok := v.(*Alias); ok {
		v = a.Arg
	}
	return &Alias{Arg: v, Label: name}
}

func (a *Alias) Shape() Shape          { return a.Arg.Shape() }
func (a *Alias) Type() schema.DataType { return a.Arg.Type() }
func (a *Alias) Name() string          { return a.Label }
