package compiler

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/ddl"
	"github.com/duckmesh/duckframe/internal/expr"
	"github.com/duckmesh/duckframe/internal/schema"
	"github.com/duckmesh/duckframe/internal/timecontext"
)

// TableRefFunc renders the FROM target of a backend table.
type TableRefFunc func(*expr.DatabaseTable) (string, error)

// QualifiedTableRef renders table names as they are stored on the node,
// quoting bare names.
func QualifiedTableRef(t *expr.DatabaseTable) (string, error) {
	if t.Name == "" {
		return "", fmt.Errorf("%w: table has no name", catalog.ErrInvalidExpression)
	}
	if ddl.IsFullyQualified(t.Name) {
		return t.Name, nil
	}
	return ddl.QuoteIdent(t.Name), nil
}

type Translator struct {
	TableRef TableRefFunc
}

func NewTranslator(ref TableRefFunc) *Translator {
	if ref == nil {
		ref = QualifiedTableRef
	}
	return &Translator{TableRef: ref}
}

func (t *Translator) ToAST(e expr.TableExpr, scope *Scope) (*AST, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil table expression", catalog.ErrInvalidExpression)
	}
	if scope == nil {
		scope = NewScope(nil)
	}
	tr := &translation{translator: t, scope: scope}
	sel, err := tr.table(e)
	if err != nil {
		return nil, err
	}
	return &AST{Queries: []*Select{sel}}, nil
}

// Translate compiles any expression. Values with a source table become a
// one-column query; values without one come back as a bare column.
func (t *Translator) Translate(e expr.Expr, scope *Scope) (Compiled, error) {
	if scope == nil {
		scope = NewScope(nil)
	}
	switch typed := e.(type) {
	case nil:
		return Compiled{}, fmt.Errorf("%w: nil expression", catalog.ErrInvalidExpression)
	case expr.TableExpr:
		ast, err := t.ToAST(typed, scope)
		if err != nil {
			return Compiled{}, err
		}
		return Compiled{Query: ast.Queries[0].Compile()}, nil
	case expr.ValueExpr:
		name := typed.Name()
		if name == "" {
			name = ProbeColumn
		}
		source, err := expr.SourceTable(typed)
		if err != nil {
			return Compiled{}, err
		}
		if source == nil {
			tr := &translation{translator: t, scope: scope}
			column, err := tr.value(typed)
			if err != nil {
				return Compiled{}, err
			}
			return Compiled{Column: column, Name: name}, nil
		}
		projection, err := expr.Select(source, expr.Named(typed, name))
		if err != nil {
			return Compiled{}, err
		}
		ast, err := t.ToAST(projection, scope)
		if err != nil {
			return Compiled{}, err
		}
		return Compiled{Query: ast.Queries[0].Compile(), Name: name}, nil
	default:
		return Compiled{}, fmt.Errorf("%w: %T", catalog.ErrUnsupportedExpression, e)
	}
}

type translation struct {
	translator *Translator
	scope      *Scope
	aliases    int
}

func (tr *translation) table(e expr.TableExpr) (*Select, error) {
	switch typed := e.(type) {
	case expr.Root:
		return tr.root(typed.Root())
	case *expr.Selection:
		sel, err := tr.nest(typed.Table, (*Select).simple)
		if err != nil {
			return nil, err
		}
		if len(typed.Columns) > 0 {
			columns, err := tr.selectList(typed.Columns)
			if err != nil {
				return nil, err
			}
			sel.Columns = columns
		}
		for _, predicate := range typed.Predicates {
			rendered, err := tr.value(predicate)
			if err != nil {
				return nil, err
			}
			sel.Where = append(sel.Where, rendered)
		}
		return sel, nil
	case *expr.Limit:
		sel, err := tr.nest(typed.Table, func(s *Select) bool { return s.Limit < 0 && s.Offset == 0 })
		if err != nil {
			return nil, err
		}
		sel.Limit = typed.N
		sel.Offset = typed.Offset
		return sel, nil
	case *expr.Aggregation:
		sel, err := tr.nest(typed.Table, (*Select).simple)
		if err != nil {
			return nil, err
		}
		columns, err := tr.selectList(append(append([]expr.ValueExpr{}, typed.By...), typed.Metrics...))
		if err != nil {
			return nil, err
		}
		sel.Columns = columns
		for _, by := range typed.By {
			rendered, err := tr.value(by)
			if err != nil {
				return nil, err
			}
			sel.GroupBy = append(sel.GroupBy, rendered)
		}
		return sel, nil
	case nil:
		return nil, fmt.Errorf("%w: nil table expression", catalog.ErrInvalidExpression)
	default:
		return nil, fmt.Errorf("%w: %T", catalog.ErrUnsupportedExpression, e)
	}
}

// nest translates inner and either reuses its select, when mergeable says
// so, or wraps it as an aliased subquery.
func (tr *translation) nest(inner expr.TableExpr, mergeable func(*Select) bool) (*Select, error) {
	sel, err := tr.table(inner)
	if err != nil {
		return nil, err
	}
	if mergeable(sel) {
		return sel, nil
	}
	tr.aliases++
	return &Select{
		Columns: []string{"*"},
		From:    fmt.Sprintf("(%s) AS t%d", sel.Compile(), tr.aliases-1),
		Limit:   -1,
	}, nil
}

func (tr *translation) root(t *expr.DatabaseTable) (*Select, error) {
	ref, err := tr.translator.TableRef(t)
	if err != nil {
		return nil, err
	}
	sel := &Select{Columns: []string{"*"}, From: ref, Limit: -1}
	if tc := tr.scope.TimeContext; tc != nil {
		if column, ok := t.Schema().Lookup(timecontext.Column); ok && column.Kind == schema.KindTimestamp {
			col := ddl.QuoteIdent(timecontext.Column)
			sel.Where = append(sel.Where,
				fmt.Sprintf("%s >= %s", col, timestampLiteral(tc.Begin.Time, column)),
				fmt.Sprintf("%s < %s", col, timestampLiteral(tc.End.Time, column)),
			)
		}
	}
	return sel, nil
}

func (tr *translation) selectList(values []expr.ValueExpr) ([]string, error) {
	columns := make([]string, 0, len(values))
	for _, v := range values {
		rendered, err := tr.value(v)
		if err != nil {
			return nil, err
		}
		if ref, ok := v.(*expr.ColumnRef); ok && ref.Column == v.Name() {
			columns = append(columns, rendered)
			continue
		}
		columns = append(columns, rendered+" AS "+ddl.QuoteIdent(v.Name()))
	}
	return columns, nil
}

var reductionFuncs = map[string]string{
	"count": "count",
	"sum":   "sum",
	"min":   "min",
	"max":   "max",
	"mean":  "avg",
}

func (tr *translation) value(v expr.ValueExpr) (string, error) {
	switch typed := v.(type) {
	case *expr.ColumnRef:
		return ddl.QuoteIdent(typed.Column), nil
	case *expr.Literal:
		return literal(typed.Value)
	case *expr.Param:
		value, ok := tr.scope.Params[typed]
		if !ok {
			return "", &catalog.InputError{Message: fmt.Sprintf("parameter %q is not bound", typed.Label)}
		}
		return literal(value)
	case *expr.BinaryOp:
		left, err := tr.value(typed.Left)
		if err != nil {
			return "", err
		}
		right, err := tr.value(typed.Right)
		if err != nil {
			return "", err
		}
		op := typed.Op
		if op == "!=" {
			op = "<>"
		}
		if op == "/" {
			return fmt.Sprintf("(CAST(%s AS DOUBLE PRECISION) / %s)", left, right), nil
		}
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil
	case *expr.Reduction:
		fn, ok := reductionFuncs[typed.Func]
		if !ok {
			return "", fmt.Errorf("%w: reduction %q", catalog.ErrUnsupportedExpression, typed.Func)
		}
		if typed.Arg == nil {
			return fn + "(*)", nil
		}
		arg, err := tr.value(typed.Arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s)", fn, arg), nil
	case *expr.Alias:
		return tr.value(typed.Arg)
	case nil:
		return "", fmt.Errorf("%w: nil value", catalog.ErrInvalidExpression)
	default:
		return "", fmt.Errorf("%w: %T", catalog.ErrUnsupportedExpression, v)
	}
}

func literal(value any) (string, error) {
	switch typed := value.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if typed {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(typed), nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", typed), nil
	case float32:
		return floatLiteral(float64(typed))
	case float64:
		return floatLiteral(typed)
	case string:
		return ddl.QuoteString(typed), nil
	case time.Time:
		return "TIMESTAMPTZ " + ddl.QuoteString(typed.Format("2006-01-02 15:04:05.999999-07:00")), nil
	case timecontext.Timestamp:
		if typed.Naive {
			return "TIMESTAMP " + ddl.QuoteString(typed.Time.Format("2006-01-02 15:04:05.999999")), nil
		}
		return literal(typed.Time)
	default:
		return "", &catalog.InputError{Message: fmt.Sprintf("cannot render %T as a literal", value)}
	}
}

func floatLiteral(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", &catalog.InputError{Message: fmt.Sprintf("cannot render %v as a literal", f)}
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

// timestampLiteral renders a localized bound against a column. Zoned
// columns compare against the absolute instant; naive columns against the
// session wall clock.
func timestampLiteral(t time.Time, column schema.DataType) string {
	if column.TimeZone != "" {
		return "TIMESTAMPTZ " + ddl.QuoteString(t.UTC().Format("2006-01-02 15:04:05.999999-07:00"))
	}
	return "TIMESTAMP " + ddl.QuoteString(t.Format("2006-01-02 15:04:05.999999"))
}
