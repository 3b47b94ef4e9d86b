// Package duckdb is the DuckDB engine. Databases are schemas of the
// attached catalog.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"strings"

	duckdb "github.com/marcboeker/go-duckdb/v2"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/ddl"
	"github.com/duckmesh/duckframe/internal/engine"
)

const Name = "duckdb"

func init() {
	engine.Register(Name, Open)
}

// Open starts a session. An empty DSN opens an in-memory database.
func Open(ctx context.Context, cfg engine.Config, logger *slog.Logger) (*engine.Session, error) {
	db, err := engine.OpenDB(ctx, "duckdb", cfg)
	if err != nil {
		return nil, err
	}
	return engine.Start(ctx, db, Dialect{}, cfg, logger)
}

type Dialect struct{}

func (Dialect) Name() string { return Name }

func (Dialect) DDL() ddl.Dialect { return ddl.DuckDB }

func (Dialect) ListDatabases(ctx context.Context, q engine.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
SELECT schema_name
FROM information_schema.schemata
WHERE catalog_name = current_database()
  AND schema_name NOT IN ('information_schema', 'pg_catalog')
ORDER BY schema_name`)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

// ListTables includes the session's temporary relations, which DuckDB keeps
// in the main schema of the temp catalog and resolves ahead of the
// attached database.
func (Dialect) ListTables(ctx context.Context, q engine.Querier, database string) ([]catalog.TableInfo, error) {
	rows, err := q.QueryContext(ctx, `
SELECT table_schema, table_name, table_type, table_catalog = 'temp' AS is_temporary
FROM information_schema.tables
WHERE table_catalog IN (current_database(), 'temp') AND table_schema = ?
ORDER BY table_name, table_catalog <> 'temp'`, database)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tables := make([]catalog.TableInfo, 0)
	for rows.Next() {
		var info catalog.TableInfo
		var tableType string
		if err := rows.Scan(&info.Database, &info.Name, &tableType, &info.Temporary); err != nil {
			return nil, err
		}
		info.Type = catalog.TableType(tableType)
		if info.Temporary && info.Type != catalog.TableTypeView {
			info.Type = catalog.TableTypeTemporary
		}
		tables = append(tables, info)
	}
	return tables, rows.Err()
}

func (Dialect) CurrentDatabase(ctx context.Context, q engine.Querier) (string, error) {
	var name string
	if err := q.QueryRowContext(ctx, `SELECT current_schema()`).Scan(&name); err != nil {
		return "", err
	}
	return name, nil
}

func (Dialect) SetDatabase(ctx context.Context, q engine.Querier, name string) error {
	var attached string
	if err := q.QueryRowContext(ctx, `SELECT current_database()`).Scan(&attached); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, "USE "+ddl.QuoteIdent(attached)+"."+ddl.QuoteIdent(name))
	return err
}

func (Dialect) TimeZone(ctx context.Context, q engine.Querier) (string, error) {
	var zone string
	if err := q.QueryRowContext(ctx, `SELECT current_setting('TimeZone')`).Scan(&zone); err != nil {
		return "", err
	}
	return zone, nil
}

func (Dialect) SetTimeZone(ctx context.Context, q engine.Querier, zone string) error {
	_, err := q.ExecContext(ctx, "SET TimeZone = "+ddl.QuoteString(zone))
	return err
}

// Append loads rows through the DuckDB appender on the pinned connection.
func (Dialect) Append(ctx context.Context, conn *sql.Conn, database, table string, _ []string, rows [][]any) error {
	return conn.Raw(func(driverConn any) error {
		dc, ok := driverConn.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		appender, err := duckdb.NewAppenderFromConn(dc, database, table)
		if err != nil {
			return fmt.Errorf("create appender: %w", err)
		}
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				_ = appender.Close()
				return err
			}
			values := make([]driver.Value, len(row))
			for j, value := range row {
				values[j] = value
			}
			if err := appender.AppendRow(values...); err != nil {
				_ = appender.Close()
				return fmt.Errorf("append row %d: %w", i, err)
			}
		}
		return appender.Close()
	})
}

// ReadCSV renders a read_csv scan. Quoted fields may always span lines,
// so MultiLine needs no option.
func (Dialect) ReadCSV(paths []string, opts engine.CSVOptions) (string, error) {
	quoted := make([]string, len(paths))
	for i, path := range paths {
		quoted[i] = ddl.QuoteString(path)
	}
	args := []string{
		"[" + strings.Join(quoted, ", ") + "]",
		fmt.Sprintf("header = %t", opts.Header),
		"escape = " + ddl.QuoteString(string(opts.Escape)),
	}
	switch strings.ToUpper(opts.Mode) {
	case engine.CSVModeDropMalformed:
		args = append(args, "ignore_errors = true")
	case engine.CSVModePermissive:
		args = append(args, "ignore_errors = true", "null_padding = true")
	}
	switch {
	case opts.Schema != nil:
		columns := make([]string, 0, opts.Schema.Len())
		for _, field := range opts.Schema.Fields() {
			typeName, err := ddl.DuckDB.TypeName(field.Type)
			if err != nil {
				return "", fmt.Errorf("csv column %q: %w", field.Name, err)
			}
			columns = append(columns, ddl.QuoteString(field.Name)+": "+ddl.QuoteString(typeName))
		}
		args = append(args, "columns = {"+strings.Join(columns, ", ")+"}")
	case !opts.InferSchema:
		args = append(args, "all_varchar = true")
	}
	return "SELECT * FROM read_csv(" + strings.Join(args, ", ") + ")", nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer func() { _ = rows.Close() }()
	values := make([]string, 0)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}
