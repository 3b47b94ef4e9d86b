// Package engine wraps a SQL engine connection as a session: a catalog of
// databases and tables, statement execution, lazy relations and bulk loads.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/ddl"
	"github.com/duckmesh/duckframe/internal/frame"
	"github.com/duckmesh/duckframe/internal/observability"
	"github.com/duckmesh/duckframe/internal/schema"
)

type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect is the engine specific half of a session.
type Dialect interface {
	Name() string
	DDL() ddl.Dialect
	ListDatabases(ctx context.Context, q Querier) ([]string, error)
	// ListTables lists the relations of one database. An unknown database
	// yields an empty list.
	ListTables(ctx context.Context, q Querier, database string) ([]catalog.TableInfo, error)
	CurrentDatabase(ctx context.Context, q Querier) (string, error)
	SetDatabase(ctx context.Context, q Querier, name string) error
	TimeZone(ctx context.Context, q Querier) (string, error)
	SetTimeZone(ctx context.Context, q Querier, zone string) error
	// Append bulk loads rows into an existing table whose columns are in
	// the given order.
	Append(ctx context.Context, conn *sql.Conn, database, table string, columns []string, rows [][]any) error
	// ReadCSV returns a query that scans the files.
	ReadCSV(paths []string, opts CSVOptions) (string, error)
}

const stagePrefix = "__duckframe_stage_"

// Session owns one pinned connection; session settings such as the current
// database and time zone live on it. A session is not safe for concurrent
// use.
type Session struct {
	db      *sql.DB
	conn    *sql.Conn
	tx      *sql.Tx
	dialect Dialect
	logger  *slog.Logger
	closed  bool
}

func NewSession(ctx context.Context, db *sql.DB, dialect Dialect, logger *slog.Logger) (*Session, error) {
	if db == nil || dialect == nil {
		return nil, fmt.Errorf("database handle and dialect are required")
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("pin %s connection: %w", dialect.Name(), err)
	}
	return &Session{
		db:      db,
		conn:    conn,
		dialect: dialect,
		logger:  observability.OrDiscard(logger),
	}, nil
}

func (s *Session) Dialect() Dialect { return s.dialect }

func (s *Session) Logger() *slog.Logger { return s.logger }

func (s *Session) querier() (Querier, error) {
	if s.closed {
		return nil, catalog.ErrClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}
	return s.conn, nil
}

// InTx runs fn in one transaction on the pinned connection. Every statement
// the session issues while fn runs joins it; an error from fn or from the
// commit rolls all of them back. Nested calls join the outer transaction.
func (s *Session) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, err := s.querier(); err != nil {
		return err
	}
	if s.tx != nil {
		return fn(ctx)
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.tx = tx
	defer func() {
		s.tx = nil
		if err == nil {
			if err = tx.Commit(); err != nil {
				err = fmt.Errorf("commit transaction: %w", err)
			}
			return
		}
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "rollback transaction", slog.Any("error", rollbackErr))
		}
	}()
	return fn(ctx)
}

func (s *Session) ListDatabases(ctx context.Context) ([]string, error) {
	q, err := s.querier()
	if err != nil {
		return nil, err
	}
	names, err := s.dialect.ListDatabases(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// ListTables lists the relations of database, or of the current database
// when database is empty.
func (s *Session) ListTables(ctx context.Context, database string) ([]catalog.TableInfo, error) {
	q, err := s.querier()
	if err != nil {
		return nil, err
	}
	if database == "" {
		if database, err = s.CurrentDatabase(ctx); err != nil {
			return nil, err
		}
	}
	tables, err := s.dialect.ListTables(ctx, q, database)
	if err != nil {
		return nil, fmt.Errorf("list tables in %q: %w", database, err)
	}
	return tables, nil
}

// LookupTable finds a relation by name. name may be fully qualified, in
// which case database is ignored. An exact match wins; otherwise names
// match case-insensitively and the returned info carries the catalog's
// spelling.
func (s *Session) LookupTable(ctx context.Context, name, database string) (catalog.TableInfo, error) {
	if ddl.IsFullyQualified(name) {
		db, table, err := ddl.ParseQualifiedName(name)
		if err != nil {
			return catalog.TableInfo{}, err
		}
		database, name = db, table
	}
	tables, err := s.ListTables(ctx, database)
	if err != nil {
		return catalog.TableInfo{}, err
	}
	for _, table := range tables {
		if table.Name == name {
			return table, nil
		}
	}
	for _, table := range tables {
		if strings.EqualFold(table.Name, name) {
			return table, nil
		}
	}
	if database == "" {
		database, _ = s.CurrentDatabase(ctx)
	}
	s.logger.DebugContext(ctx, "table lookup missed", slog.String("database", database), slog.String("table", name))
	return catalog.TableInfo{}, catalog.NotFound(catalog.KindTable, database+"."+name)
}

func (s *Session) CurrentDatabase(ctx context.Context) (string, error) {
	q, err := s.querier()
	if err != nil {
		return "", err
	}
	name, err := s.dialect.CurrentDatabase(ctx, q)
	if err != nil {
		return "", fmt.Errorf("current database: %w", err)
	}
	return name, nil
}

// SetDatabase switches the session's current database, which must exist.
func (s *Session) SetDatabase(ctx context.Context, name string) error {
	q, err := s.querier()
	if err != nil {
		return err
	}
	names, err := s.ListDatabases(ctx)
	if err != nil {
		return err
	}
	if !contains(names, name) {
		return catalog.NotFound(catalog.KindDatabase, name)
	}
	if err := s.dialect.SetDatabase(ctx, q, name); err != nil {
		return fmt.Errorf("set database %q: %w", name, err)
	}
	return nil
}

func (s *Session) TimeZone(ctx context.Context) (string, error) {
	q, err := s.querier()
	if err != nil {
		return "", err
	}
	zone, err := s.dialect.TimeZone(ctx, q)
	if err != nil {
		return "", fmt.Errorf("session time zone: %w", err)
	}
	return zone, nil
}

func (s *Session) SetTimeZone(ctx context.Context, zone string) error {
	q, err := s.querier()
	if err != nil {
		return err
	}
	if err := s.dialect.SetTimeZone(ctx, q, zone); err != nil {
		return fmt.Errorf("set time zone %q: %w", zone, err)
	}
	return nil
}

// SQL submits a statement. Queries come back as lazy relations and run
// when fetched; anything else runs now and yields an empty relation.
func (s *Session) SQL(ctx context.Context, stmt string) (*Relation, error) {
	stmt = trimStatement(stmt)
	if stmt == "" {
		return nil, &catalog.InputError{Message: "statement is empty"}
	}
	if _, err := s.querier(); err != nil {
		return nil, err
	}
	if IsQuery(stmt) {
		return &Relation{session: s, query: stmt}, nil
	}
	if err := s.Exec(ctx, stmt); err != nil {
		return nil, err
	}
	return &Relation{session: s, query: stmt, command: true}, nil
}

func (s *Session) Exec(ctx context.Context, stmt string) (err error) {
	q, err := s.querier()
	if err != nil {
		return err
	}
	ctx, finish := observability.StartStatement(ctx, s.logger, s.dialect.Name(), "command", stmt)
	defer func() { finish(err) }()
	if _, err = q.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

func (s *Session) exec(ctx context.Context, stmt ddl.Statement) error {
	compiled, err := stmt.Compile()
	if err != nil {
		return err
	}
	return s.Exec(ctx, compiled)
}

// ReadCSV returns a lazy relation over CSV files.
func (s *Session) ReadCSV(ctx context.Context, paths []string, opts CSVOptions) (*Relation, error) {
	if len(paths) == 0 {
		return nil, &catalog.InputError{Message: "at least one csv path is required"}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	query, err := s.dialect.ReadCSV(paths, opts)
	if err != nil {
		return nil, err
	}
	return s.SQL(ctx, query)
}

// CreateTableFromFrame creates database.name with the frame's columns and
// bulk loads its rows. With overwrite an existing table is dropped first;
// without it an existing table is an error.
func (s *Session) CreateTableFromFrame(ctx context.Context, database, name string, f *frame.Frame, overwrite bool) error {
	if f == nil {
		return fmt.Errorf("%w: frame is required", catalog.ErrInvalidArgument)
	}
	database, err := s.resolveDatabase(ctx, database)
	if err != nil {
		return err
	}
	target := ddl.QualifiedName(name, database)
	if overwrite {
		if err := s.exec(ctx, ddl.DropTable{Name: target}); err != nil {
			return err
		}
	}
	if err := s.exec(ctx, ddl.CreateTableWithSchema{
		Dialect: s.dialect.DDL(),
		Name:    target,
		Schema:  storable(f.Schema),
	}); err != nil {
		return err
	}
	return s.appendFrame(ctx, database, name, f)
}

// InsertFrame loads the frame into an existing table, matching columns by
// name. Rows go through a staging table; overwrite truncates the target
// first.
func (s *Session) InsertFrame(ctx context.Context, database, name string, f *frame.Frame, overwrite bool) error {
	if f == nil {
		return fmt.Errorf("%w: frame is required", catalog.ErrInvalidArgument)
	}
	database, err := s.resolveDatabase(ctx, database)
	if err != nil {
		return err
	}
	stage := stagePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.CreateTableFromFrame(ctx, database, stage, f, false); err != nil {
		return fmt.Errorf("stage frame: %w", err)
	}
	defer func() {
		if err := s.exec(context.WithoutCancel(ctx), ddl.DropTable{Name: ddl.QualifiedName(stage, database)}); err != nil {
			s.logger.WarnContext(ctx, "drop staging table", slog.String("table", stage), slog.Any("error", err))
		}
	}()

	target := ddl.QualifiedName(name, database)
	columns := f.Columns()
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = ddl.QuoteIdent(column)
	}
	insert := ddl.InsertSelect{
		Name:    target,
		Columns: columns,
		Query:   ddl.RawQuery(fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), ddl.QualifiedName(stage, database))),
	}
	if !overwrite {
		return s.exec(ctx, insert)
	}
	return s.InTx(ctx, func(ctx context.Context) error {
		if err := s.exec(ctx, ddl.TruncateTable{Name: target}); err != nil {
			return err
		}
		return s.exec(ctx, insert)
	})
}

func (s *Session) appendFrame(ctx context.Context, database, name string, f *frame.Frame) (err error) {
	if _, err := s.querier(); err != nil {
		return err
	}
	if f.Len() == 0 {
		return nil
	}
	ctx, finish := observability.StartStatement(ctx, s.logger, s.dialect.Name(), "bulk_load", ddl.QualifiedName(name, database))
	defer func() { finish(err) }()
	if err = s.dialect.Append(ctx, s.conn, database, name, f.Columns(), f.Rows); err != nil {
		return fmt.Errorf("bulk load %s: %w", ddl.QualifiedName(name, database), err)
	}
	observability.ObserveBulkLoad(s.dialect.Name(), f.Len())
	return nil
}

func (s *Session) resolveDatabase(ctx context.Context, database string) (string, error) {
	if database != "" {
		return database, nil
	}
	return s.CurrentDatabase(ctx)
}

// Close releases the pinned connection and the pool. A second Close
// reports ErrClosed.
func (s *Session) Close() error {
	if s.closed {
		return catalog.ErrClosed
	}
	s.closed = true
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	err := errors.Join(s.conn.Close(), s.db.Close())
	s.logger.Info("session closed", slog.String("engine", s.dialect.Name()))
	return err
}

var queryKeywords = map[string]bool{
	"SELECT":    true,
	"WITH":      true,
	"VALUES":    true,
	"SHOW":      true,
	"DESCRIBE":  true,
	"EXPLAIN":   true,
	"FROM":      true,
	"TABLE":     true,
	"SUMMARIZE": true,
}

// utilityKeywords start queries that cannot be nested as a subquery.
var utilityKeywords = map[string]bool{
	"SHOW":      true,
	"DESCRIBE":  true,
	"EXPLAIN":   true,
	"SUMMARIZE": true,
}

// IsQuery reports whether stmt produces rows.
func IsQuery(stmt string) bool {
	return queryKeywords[leadingKeyword(stmt)]
}

func leadingKeyword(stmt string) string {
	stmt = strings.TrimLeft(trimStatement(stmt), "( \t\r\n")
	end := strings.IndexFunc(stmt, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end < 0 {
		end = len(stmt)
	}
	return strings.ToUpper(stmt[:end])
}

func trimStatement(stmt string) string {
	trimmed := strings.TrimSpace(stmt)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

// storable maps frame column types onto types every dialect can create
// and bulk load.
func storable(s schema.Schema) schema.Schema {
	fields := s.Fields()
	for i, field := range fields {
		switch field.Type.Kind {
		case schema.KindNull, schema.KindUnknown:
			fields[i].Type = schema.String
		case schema.KindDecimal:
			fields[i].Type = schema.Float64.WithNullable(field.Type.Nullable)
		case schema.KindFloat16:
			fields[i].Type = schema.Float32.WithNullable(field.Type.Nullable)
		}
	}
	return schema.MustNew(fields...)
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
