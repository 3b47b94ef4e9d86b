package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/duckmesh/duckframe/internal/frame"
	"github.com/duckmesh/duckframe/internal/observability"
	"github.com/duckmesh/duckframe/internal/schema"
)

// Column describes one result column.
type Column struct {
	Name         string
	DatabaseType string
	Type         schema.DataType
}

// Relation is a lazy result. Nothing runs until it is described or
// collected; command relations already ran and have no columns.
type Relation struct {
	session *Session
	query   string
	command bool
	columns []Column
}

func (r *Relation) Query() string { return r.query }

func (r *Relation) IsCommand() bool { return r.command }

// Describe reports the result columns without fetching rows.
func (r *Relation) Describe(ctx context.Context) ([]Column, error) {
	if r.command {
		return nil, nil
	}
	if r.columns != nil {
		return r.columns, nil
	}
	var (
		columns []Column
		err     error
	)
	if utilityKeywords[leadingKeyword(r.query)] {
		columns, err = r.describeDirect(ctx)
	} else {
		columns, _, err = r.run(ctx, fmt.Sprintf("SELECT * FROM (%s) AS relation LIMIT 0", r.query), "describe")
	}
	if err != nil {
		return nil, err
	}
	r.columns = columns
	return columns, nil
}

// describeDirect runs the statement itself and reads the column metadata
// without fetching rows.
func (r *Relation) describeDirect(ctx context.Context) (columns []Column, err error) {
	q, err := r.session.querier()
	if err != nil {
		return nil, err
	}
	ctx, finish := observability.StartStatement(ctx, r.session.logger, r.session.dialect.Name(), "describe", r.query)
	defer func() { finish(err) }()

	rows, err := q.QueryContext(ctx, r.query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("query column types: %w", err)
	}
	return describe(columnTypes), nil
}

func (r *Relation) Columns(ctx context.Context) ([]string, error) {
	columns, err := r.Describe(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(columns))
	for i, column := range columns {
		names[i] = column.Name
	}
	return names, nil
}

func (r *Relation) Schema(ctx context.Context) (schema.Schema, error) {
	columns, err := r.Describe(ctx)
	if err != nil {
		return schema.Schema{}, err
	}
	return schemaOf(columns)
}

// Collect runs the query and returns its rows as scanned by the driver.
func (r *Relation) Collect(ctx context.Context) ([]Column, [][]any, error) {
	if r.command {
		return nil, nil, nil
	}
	columns, rows, err := r.run(ctx, r.query, "query")
	if err != nil {
		return nil, nil, err
	}
	r.columns = columns
	return columns, rows, nil
}

// ToFrame collects the relation into a frame typed by the result columns.
func (r *Relation) ToFrame(ctx context.Context) (*frame.Frame, error) {
	columns, rows, err := r.Collect(ctx)
	if err != nil {
		return nil, err
	}
	s, err := schemaOf(columns)
	if err != nil {
		return nil, err
	}
	return frame.New(s, rows)
}

func (r *Relation) run(ctx context.Context, query, kind string) (columns []Column, out [][]any, err error) {
	q, err := r.session.querier()
	if err != nil {
		return nil, nil, err
	}
	ctx, finish := observability.StartStatement(ctx, r.session.logger, r.session.dialect.Name(), kind, query)
	defer func() { finish(err) }()

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, fmt.Errorf("query column types: %w", err)
	}
	columns = describe(columnTypes)

	out = make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return columns, out, nil
}

func describe(columnTypes []*sql.ColumnType) []Column {
	columns := make([]Column, len(columnTypes))
	for i, columnType := range columnTypes {
		dataType := schema.ParseSQLType(columnType.DatabaseTypeName())
		if nullable, ok := columnType.Nullable(); ok {
			dataType = dataType.WithNullable(nullable)
		}
		columns[i] = Column{
			Name:         columnType.Name(),
			DatabaseType: columnType.DatabaseTypeName(),
			Type:         dataType,
		}
	}
	return columns
}

func schemaOf(columns []Column) (schema.Schema, error) {
	fields := make([]schema.Field, len(columns))
	for i, column := range columns {
		fields[i] = schema.Field{Name: column.Name, Type: column.Type}
	}
	return schema.New(fields...)
}
