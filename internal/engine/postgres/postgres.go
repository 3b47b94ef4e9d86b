// Package postgres is the PostgreSQL engine. Databases are schemas of the
// connected database.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/ddl"
	"github.com/duckmesh/duckframe/internal/engine"
)

const Name = "postgres"

func init() {
	engine.Register(Name, Open)
}

func Open(ctx context.Context, cfg engine.Config, logger *slog.Logger) (*engine.Session, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := engine.OpenDB(ctx, "pgx", cfg)
	if err != nil {
		return nil, err
	}
	return engine.Start(ctx, db, Dialect{}, cfg, logger)
}

type Dialect struct{}

func (Dialect) Name() string { return Name }

func (Dialect) DDL() ddl.Dialect { return ddl.Postgres }

func (Dialect) ListDatabases(ctx context.Context, q engine.Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
SELECT schema_name
FROM information_schema.schemata
WHERE schema_name NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
  AND schema_name NOT LIKE 'pg_temp_%'
  AND schema_name NOT LIKE 'pg_toast_temp_%'
ORDER BY schema_name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (Dialect) ListTables(ctx context.Context, q engine.Querier, database string) ([]catalog.TableInfo, error) {
	rows, err := q.QueryContext(ctx, `
SELECT table_schema, table_name, table_type
FROM information_schema.tables
WHERE table_schema = $1
ORDER BY table_name`, database)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	tables := make([]catalog.TableInfo, 0)
	for rows.Next() {
		var info catalog.TableInfo
		var tableType string
		if err := rows.Scan(&info.Database, &info.Name, &tableType); err != nil {
			return nil, err
		}
		info.Type = catalog.TableType(tableType)
		tables = append(tables, info)
	}
	return tables, rows.Err()
}

func (Dialect) CurrentDatabase(ctx context.Context, q engine.Querier) (string, error) {
	var name sql.NullString
	if err := q.QueryRowContext(ctx, `SELECT current_schema()`).Scan(&name); err != nil {
		return "", err
	}
	if !name.Valid {
		return "", catalog.NotFound(catalog.KindDatabase, "current_schema()")
	}
	return name.String, nil
}

func (Dialect) SetDatabase(ctx context.Context, q engine.Querier, name string) error {
	_, err := q.ExecContext(ctx, "SET search_path TO "+ddl.QuoteIdent(name))
	return err
}

func (Dialect) TimeZone(ctx context.Context, q engine.Querier) (string, error) {
	var zone string
	if err := q.QueryRowContext(ctx, `SHOW TIMEZONE`).Scan(&zone); err != nil {
		return "", err
	}
	return zone, nil
}

func (Dialect) SetTimeZone(ctx context.Context, q engine.Querier, zone string) error {
	_, err := q.ExecContext(ctx, "SET TIME ZONE "+ddl.QuoteString(zone))
	return err
}

// Append loads rows with COPY FROM over the pinned pgx connection.
func (Dialect) Append(ctx context.Context, conn *sql.Conn, database, table string, columns []string, rows [][]any) error {
	return conn.Raw(func(driverConn any) error {
		stdConn, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		copied, err := stdConn.Conn().CopyFrom(ctx, pgx.Identifier{database, table}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return err
		}
		if copied != int64(len(rows)) {
			return fmt.Errorf("copied %d of %d rows", copied, len(rows))
		}
		return nil
	})
}

func (Dialect) ReadCSV([]string, engine.CSVOptions) (string, error) {
	return "", &catalog.UnsupportedArgumentError{Argument: "csv", Reason: "postgres cannot scan csv files from the client"}
}
