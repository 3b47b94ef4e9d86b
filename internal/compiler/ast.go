// Package compiler translates expression trees into SQL select statements.
package compiler

import (
	"fmt"
	"strings"

	"github.com/duckmesh/duckframe/internal/ddl"
	"github.com/duckmesh/duckframe/internal/expr"
	"github.com/duckmesh/duckframe/internal/timecontext"
)

// ProbeColumn names the single column of value results.
const ProbeColumn = "tmp"

// Scope carries the bindings a translation runs under.
type Scope struct {
	Params      map[*expr.Param]any
	TimeContext *timecontext.Context
}

func NewScope(params map[*expr.Param]any) *Scope {
	if params == nil {
		params = map[*expr.Param]any{}
	}
	return &Scope{Params: params}
}

func (s *Scope) WithTimeContext(tc timecontext.Context) *Scope {
	copied := *s
	copied.TimeContext = &tc
	return &copied
}

type Select struct {
	Columns []string
	From    string
	Where   []string
	GroupBy []string
	// Limit < 0 means no limit.
	Limit  int
	Offset int
}

func (s *Select) Compile() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(s.Columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(s.Columns, ", "))
	}
	if s.From != "" {
		b.WriteString(" FROM ")
		b.WriteString(s.From)
	}
	if len(s.Where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(s.Where, " AND "))
	}
	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(s.GroupBy, ", "))
	}
	if s.Limit >= 0 {
		fmt.Fprintf(&b, " LIMIT %d", s.Limit)
	}
	if s.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", s.Offset)
	}
	return b.String()
}

// simple reports whether more clauses can be merged into s without
// wrapping it in a subquery.
func (s *Select) simple() bool {
	return isStar(s.Columns) && len(s.GroupBy) == 0 && s.Limit < 0 && s.Offset == 0
}

func isStar(columns []string) bool {
	return len(columns) == 0 || (len(columns) == 1 && columns[0] == "*")
}

type AST struct {
	Queries []*Select
}

// Compiled is either a full query or, for values that read from no table,
// a bare column expression that still needs a row to be evaluated against.
type Compiled struct {
	Query  string
	Column string
	Name   string
}

func (c Compiled) IsColumn() bool {
	return c.Query == ""
}

// ProbeQuery evaluates a bare column expression against a single row.
func ProbeQuery(column string) string {
	return fmt.Sprintf("SELECT %s AS %s FROM (SELECT 1) AS probe", column, ddl.QuoteIdent(ProbeColumn))
}
