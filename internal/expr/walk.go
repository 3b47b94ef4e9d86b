package expr

import (
	"fmt"

	"github.com/duckmesh/duckframe/internal/catalog"
)

// SourceTable returns the single table a value reads from, or nil when
// the value reads from no table at all.
func SourceTable(v ValueExpr) (TableExpr, error) {
	var found TableExpr
	var visit func(ValueExpr) error
	visit = func(node ValueExpr) error {
		var t TableExpr
		switch typed := node.(type) {
		case *ColumnRef:
			t = typed.Table
		case *Reduction:
			t = typed.Table
		case *BinaryOp:
			if err := visit(typed.Left); err != nil {
				return err
			}
			return visit(typed.Right)
		case *Alias:
			return visit(typed.Arg)
		}
		if t == nil {
			return nil
		}
		if found != nil && found != t {
			return fmt.Errorf("%w: value reads from more than one table", catalog.ErrInvalidExpression)
		}
		found = t
		return nil
	}
	if err := visit(v); err != nil {
		return nil, err
	}
	return found, nil
}

// ToProjection turns a named value into a one-column table over its source
// table.
func ToProjection(v ValueExpr) (TableExpr, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", catalog.ErrInvalidExpression)
	}
	t, err := SourceTable(v)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: value has no source table", catalog.ErrInvalidExpression)
	}
	return Select(t, v)
}

// Tables lists the distinct backend tables an expression reads from, in
// first-seen order.
func Tables(e Expr) []Root {
	var out []Root
	seen := map[*DatabaseTable]struct{}{}
	var visitTable func(TableExpr)
	var visitValue func(ValueExpr)
	visitTable = func(t TableExpr) {
		switch typed := t.(type) {
		case Root:
			node := typed.Root()
			if _, ok := seen[node]; !ok {
				seen[node] = struct{}{}
				out = append(out, typed)
			}
		case *Selection:
			visitTable(typed.Table)
			for _, v := range typed.Columns {
				visitValue(v)
			}
			for _, v := range typed.Predicates {
				visitValue(v)
			}
		case *Limit:
			visitTable(typed.Table)
		case *Aggregation:
			visitTable(typed.Table)
			for _, v := range typed.By {
				visitValue(v)
			}
			for _, v := range typed.Metrics {
				visitValue(v)
			}
		}
	}
	visitValue = func(v ValueExpr) {
		switch typed := v.(type) {
		case *ColumnRef:
			visitTable(typed.Table)
		case *Reduction:
			if typed.Table != nil {
				visitTable(typed.Table)
			}
			if typed.Arg != nil {
				visitValue(typed.Arg)
			}
		case *BinaryOp:
			visitValue(typed.Left)
			visitValue(typed.Right)
		case *Alias:
			visitValue(typed.Arg)
		}
	}
	switch typed := e.(type) {
	case TableExpr:
		visitTable(typed)
	case ValueExpr:
		visitValue(typed)
	}
	return out
}
