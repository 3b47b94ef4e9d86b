package cluster

import (
	"context"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/engine"
)

// Cursor is the handle RawSQL returns. Commands have no rows; queries run
// on the first FetchAll.
type Cursor struct {
	relation *engine.Relation
	fetched  bool
}

// ColumnDescription follows the DB-API cursor description layout.
type ColumnDescription struct {
	Name      string
	TypeCode  string
	Precision int64
	Scale     int64
	NullOK    bool
}

func (c *Cursor) Query() string { return c.relation.Query() }

func (c *Cursor) Columns(ctx context.Context) ([]string, error) {
	if c.relation.IsCommand() {
		return nil, nil
	}
	return c.relation.Columns(ctx)
}

func (c *Cursor) Description(ctx context.Context) ([]ColumnDescription, error) {
	if c.relation.IsCommand() {
		return nil, nil
	}
	columns, err := c.relation.Describe(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ColumnDescription, len(columns))
	for i, column := range columns {
		out[i] = ColumnDescription{
			Name:      column.Name,
			TypeCode:  column.DatabaseType,
			Precision: int64(column.Type.Precision),
			Scale:     int64(column.Type.Scale),
			NullOK:    column.Type.Nullable,
		}
	}
	return out, nil
}

// FetchAll runs the query and returns every row. A cursor can be fetched
// once.
func (c *Cursor) FetchAll(ctx context.Context) ([][]any, error) {
	if c.fetched {
		return nil, &catalog.InputError{Message: "cursor has already been fetched"}
	}
	c.fetched = true
	if c.relation.IsCommand() {
		return nil, nil
	}
	_, rows, err := c.relation.Collect(ctx)
	return rows, err
}

// Close releases the cursor. Rows are read in full by FetchAll, so there is
// nothing left open.
func (c *Cursor) Close() error {
	return nil
}
