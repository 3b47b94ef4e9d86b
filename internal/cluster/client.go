// Package cluster is the SQL engine client: catalog lookups, DDL, inserts
// and execution of expression trees against an engine session.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/compiler"
	"github.com/duckmesh/duckframe/internal/ddl"
	"github.com/duckmesh/duckframe/internal/engine"
	"github.com/duckmesh/duckframe/internal/expr"
	"github.com/duckmesh/duckframe/internal/frame"
	"github.com/duckmesh/duckframe/internal/observability"
	"github.com/duckmesh/duckframe/internal/schema"
	"github.com/duckmesh/duckframe/internal/timecontext"
)

type Client struct {
	session    *engine.Session
	translator *compiler.Translator
	logger     *slog.Logger
}

func New(session *engine.Session, logger *slog.Logger) *Client {
	return &Client{
		session:    session,
		translator: compiler.NewTranslator(compiler.QualifiedTableRef),
		logger:     observability.OrDiscard(logger),
	}
}

// Connect opens an engine session through the engine registry.
func Connect(ctx context.Context, cfg engine.Config, logger *slog.Logger) (*Client, error) {
	session, err := engine.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return New(session, logger), nil
}

func (c *Client) Session() *engine.Session { return c.session }

// TimeRange bounds a computation in time. Bounds take anything
// timecontext.Canonicalize accepts.
type TimeRange struct {
	Begin any
	End   any
}

type Options struct {
	Params      map[*expr.Param]any
	TimeContext *TimeRange
}

// Compile translates e under the parameter bindings and time context.
// Naive time bounds are read as wall clock time in the session zone.
func (c *Client) Compile(ctx context.Context, e expr.Expr, opts Options) (compiler.Compiled, error) {
	scope, err := c.scope(ctx, opts)
	if err != nil {
		return compiler.Compiled{}, err
	}
	return c.translator.Translate(e, scope)
}

func (c *Client) scope(ctx context.Context, opts Options) (*compiler.Scope, error) {
	scope := compiler.NewScope(opts.Params)
	if opts.TimeContext == nil {
		return scope, nil
	}
	tc, err := timecontext.Canonicalize(opts.TimeContext.Begin, opts.TimeContext.End)
	if err != nil {
		return nil, err
	}
	loc, err := c.location(ctx)
	if err != nil {
		return nil, err
	}
	return scope.WithTimeContext(tc.Localize(loc)), nil
}

func (c *Client) location(ctx context.Context) (*time.Location, error) {
	zone, err := c.session.TimeZone(ctx)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		c.logger.WarnContext(ctx, "unknown session time zone, using UTC", slog.String("time_zone", zone))
		return time.UTC, nil
	}
	return loc, nil
}

// Execute compiles e and materializes the result according to its shape.
func (c *Client) Execute(ctx context.Context, e expr.Expr, opts Options) (frame.Result, error) {
	if e == nil {
		return frame.Result{}, fmt.Errorf("%w: nil expression", catalog.ErrInvalidExpression)
	}
	shape := e.Shape()
	switch shape {
	case expr.ShapeTable, expr.ShapeColumn, expr.ShapeScalar:
	default:
		return frame.Result{}, fmt.Errorf("%w: %s", catalog.ErrUnsupportedExpression, shape)
	}

	compiled, err := c.Compile(ctx, e, opts)
	if err != nil {
		return frame.Result{}, err
	}
	query := compiled.Query
	if compiled.IsColumn() {
		query = compiler.ProbeQuery(compiled.Column)
		compiled.Name = compiler.ProbeColumn
	}
	f, err := c.collect(ctx, query)
	if err != nil {
		return frame.Result{}, err
	}

	switch shape {
	case expr.ShapeTable:
		return frame.Result{Shape: shape, Table: f}, nil
	case expr.ShapeColumn:
		series, err := f.Column(compiled.Name)
		if err != nil {
			return frame.Result{}, err
		}
		return frame.Result{Shape: shape, Column: series}, nil
	default:
		if f.Len() != 1 || f.Schema.Len() != 1 {
			return frame.Result{}, fmt.Errorf("scalar query returned %d rows and %d columns", f.Len(), f.Schema.Len())
		}
		return frame.Result{Shape: shape, Scalar: f.Rows[0][0]}, nil
	}
}

func (c *Client) collect(ctx context.Context, query string) (*frame.Frame, error) {
	rel, err := c.session.SQL(ctx, query)
	if err != nil {
		return nil, err
	}
	return rel.ToFrame(ctx)
}

// RawSQL submits stmt. Queries run when the cursor is fetched; other
// statements have already run when RawSQL returns.
func (c *Client) RawSQL(ctx context.Context, stmt string) (*Cursor, error) {
	rel, err := c.session.SQL(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return &Cursor{relation: rel}, nil
}

func (c *Client) run(ctx context.Context, stmt ddl.Statement) error {
	compiled, err := stmt.Compile()
	if err != nil {
		return err
	}
	cursor, err := c.RawSQL(ctx, compiled)
	if err != nil {
		return err
	}
	return cursor.Close()
}

// Table resolves a table or view. The handle is named from the catalog,
// not from the caller's spelling.
func (c *Client) Table(ctx context.Context, name, database string) (*Table, error) {
	info, err := c.session.LookupTable(ctx, name, database)
	if err != nil {
		if errors.Is(err, catalog.ErrClosed) {
			return nil, err
		}
		return nil, &catalog.InputError{Message: fmt.Sprintf("table %s does not exist", ddl.QualifiedName(name, database)), Err: err}
	}
	qualified := qualify(info)
	s, err := c.relationSchema(ctx, qualified)
	if err != nil {
		return nil, err
	}
	return &Table{
		DatabaseTable: expr.NewDatabaseTable(qualified, s, c),
		client:        c,
		info:          info,
	}, nil
}

func (c *Client) Database(ctx context.Context, name string) (*Database, error) {
	if name == "" {
		current, err := c.CurrentDatabase(ctx)
		if err != nil {
			return nil, err
		}
		name = current
	}
	exists, err := c.ExistsDatabase(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, catalog.NotFound(catalog.KindDatabase, name)
	}
	return &Database{Name: name, client: c}, nil
}

// ListTables lists table and view names of database, or of the current
// database, filtered by the like pattern when it is set.
func (c *Client) ListTables(ctx context.Context, like, database string) ([]string, error) {
	tables, err := c.session.ListTables(ctx, database)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(tables))
	for i, table := range tables {
		names[i] = table.Name
	}
	// a temporary relation may shadow a persistent one of the same name
	return catalog.MatchLike(catalog.SortedUnion(names), like)
}

func (c *Client) ListDatabases(ctx context.Context, like string) ([]string, error) {
	names, err := c.session.ListDatabases(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.MatchLike(names, like)
}

// ExistsTable reports whether the table resolves. Lookup misses are
// answers; other failures are returned.
func (c *Client) ExistsTable(ctx context.Context, name, database string) (bool, error) {
	_, err := c.session.LookupTable(ctx, name, database)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, catalog.ErrInput):
		return false, nil
	default:
		return false, err
	}
}

func (c *Client) ExistsDatabase(ctx context.Context, name string) (bool, error) {
	names, err := c.session.ListDatabases(ctx)
	if err != nil {
		return false, err
	}
	for _, candidate := range names {
		if candidate == name {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) CurrentDatabase(ctx context.Context) (string, error) {
	return c.session.CurrentDatabase(ctx)
}

func (c *Client) SetDatabase(ctx context.Context, name string) error {
	return c.session.SetDatabase(ctx, name)
}

func (c *Client) CreateDatabase(ctx context.Context, name, path string, force bool) error {
	return c.run(ctx, ddl.CreateDatabase{Name: name, Path: path, CanExist: force})
}

// DropDatabase drops a database; force ignores a missing database and
// drops its contents too.
func (c *Client) DropDatabase(ctx context.Context, name string, force bool) error {
	return c.run(ctx, ddl.DropDatabase{Name: name, MustExist: !force, Cascade: force})
}

// GetSchema reads the schema of a table in the current database.
func (c *Client) GetSchema(ctx context.Context, name, database string) (schema.Schema, error) {
	if database != "" {
		return schema.Schema{}, &catalog.UnsupportedArgumentError{Argument: "database", Reason: "schemas are read from the current database; qualify the name instead"}
	}
	return c.relationSchema(ctx, ddl.QualifiedName(name, ""))
}

func (c *Client) relationSchema(ctx context.Context, qualified string) (schema.Schema, error) {
	rel, err := c.session.SQL(ctx, "SELECT * FROM "+qualified)
	if err != nil {
		return schema.Schema{}, err
	}
	return rel.Schema(ctx)
}

// FetchFromCursor fetches the cursor and types its rows. A zero schema
// uses the cursor's own column types.
func (c *Client) FetchFromCursor(ctx context.Context, cursor *Cursor, s schema.Schema) (*frame.Frame, error) {
	if s.Len() == 0 {
		described, err := cursor.relation.Schema(ctx)
		if err != nil {
			return nil, err
		}
		s = described
	}
	rows, err := cursor.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return frame.New(s, rows)
}

func (c *Client) Close() error {
	return c.session.Close()
}
