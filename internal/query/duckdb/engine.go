package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/duckmesh/duckframe/internal/observability"
	"github.com/duckmesh/duckframe/internal/query"
	"github.com/duckmesh/duckframe/internal/storage"
)

// Engine runs SQL in a throwaway in-memory DuckDB over files of a tree,
// each table exposed as a view.
type Engine struct {
	Tree   storage.Tree
	Logger *slog.Logger
}

func NewEngine(tree storage.Tree, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{Tree: tree, Logger: logger}
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}

	start := time.Now()
	db, release, scannedBytes, err := e.open(ctx, request.Files)
	if err != nil {
		return query.Result{}, err
	}
	defer release()

	switch {
	case request.SchemaOnly:
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT 0", sqlText)
	case request.RowLimit > 0:
		sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, request.RowLimit)
	}
	e.Logger.DebugContext(ctx, "execute file query", slog.String("sql", sqlText), slog.Int("files", len(request.Files)))

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return query.Result{}, fmt.Errorf("query column types: %w", err)
	}
	types := make([]string, len(columnTypes))
	for i, columnType := range columnTypes {
		types[i] = columnType.DatabaseTypeName()
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return query.Result{
		Columns:      columns,
		Types:        types,
		Rows:         resultRows,
		ScannedFiles: len(request.Files),
		ScannedBytes: scannedBytes,
		Duration:     time.Since(start),
	}, nil
}

func (e *Engine) Copy(ctx context.Context, request query.CopyRequest) error {
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return fmt.Errorf("sql is required")
	}
	options, err := copyOptions(request.Format)
	if err != nil {
		return err
	}
	if e.Tree == nil {
		return fmt.Errorf("tree is required")
	}

	db, release, _, err := e.open(ctx, request.Files)
	if err != nil {
		return err
	}
	defer release()

	staging, err := e.Tree.Stage(ctx, request.Path)
	if err != nil {
		return fmt.Errorf("stage %q: %w", request.Path, err)
	}
	defer func() { _ = staging.Discard() }()
	copySQL := fmt.Sprintf("COPY (%s) TO %s (%s)", sqlText, quoteString(staging.Path), options)
	e.Logger.DebugContext(ctx, "copy file query", slog.String("sql", copySQL), slog.String("path", request.Path))
	if _, err := db.ExecContext(ctx, copySQL); err != nil {
		return fmt.Errorf("write %q: %w", request.Path, err)
	}
	if err := staging.Commit(); err != nil {
		return fmt.Errorf("commit %q: %w", request.Path, err)
	}
	return nil
}

// open starts an in-memory database with one view per table. The returned
// func closes the database and releases local copies.
func (e *Engine) open(ctx context.Context, files []query.TableFile) (*sql.DB, func(), int64, error) {
	var releases []func() error
	releaseAll := func() {
		for _, release := range releases {
			_ = release()
		}
	}
	if len(files) > 0 && e.Tree == nil {
		return nil, nil, 0, fmt.Errorf("tree is required")
	}

	type view struct {
		format string
		paths  []string
	}
	views := map[string]*view{}
	order := make([]string, 0)
	var scannedBytes int64
	for _, file := range files {
		localPath, release, err := e.Tree.Localize(ctx, file.Path)
		if err != nil {
			releaseAll()
			return nil, nil, 0, fmt.Errorf("localize %q: %w", file.Path, err)
		}
		releases = append(releases, release)
		v, ok := views[file.TableName]
		if !ok {
			v = &view{format: file.Format}
			views[file.TableName] = v
			order = append(order, file.TableName)
		}
		if v.format != file.Format {
			releaseAll()
			return nil, nil, 0, fmt.Errorf("table %q mixes %s and %s files", file.TableName, v.format, file.Format)
		}
		v.paths = append(v.paths, localPath)
		scannedBytes += file.SizeBytes
		observability.ObserveFileScan(file.Format, file.SizeBytes)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		releaseAll()
		return nil, nil, 0, fmt.Errorf("open duckdb: %w", err)
	}
	cleanup := func() {
		_ = db.Close()
		releaseAll()
	}

	for _, tableName := range order {
		v := views[tableName]
		scan, err := scanFunction(v.format, v.paths)
		if err != nil {
			cleanup()
			return nil, nil, 0, err
		}
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM %s`, quoteIdent(tableName), scan)
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			cleanup()
			return nil, nil, 0, fmt.Errorf("create view for table %q: %w", tableName, err)
		}
	}
	return db, cleanup, scannedBytes, nil
}

func scanFunction(format string, paths []string) (string, error) {
	switch format {
	case query.FormatParquet:
		return fmt.Sprintf("read_parquet(%s)", quoteStringArray(paths)), nil
	case query.FormatCSV:
		return fmt.Sprintf("read_csv(%s, header = true, auto_detect = true)", quoteStringArray(paths)), nil
	default:
		return "", fmt.Errorf("unsupported file format %q", format)
	}
}

func copyOptions(format string) (string, error) {
	switch format {
	case query.FormatParquet:
		return "FORMAT PARQUET", nil
	case query.FormatCSV:
		return "FORMAT CSV, HEADER", nil
	default:
		return "", fmt.Errorf("unsupported file format %q", format)
	}
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, quoteString(value))
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
