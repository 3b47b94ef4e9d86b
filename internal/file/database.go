package file

import (
	"context"
	"errors"
	"fmt"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/storage"
)

// Database is a namespace node: a directory, or a table file when the
// listing mode lets files act as databases.
type Database struct {
	Name   string
	Path   string
	client *Client
}

func (d *Database) String() string { return fmt.Sprintf("Database(%s)", d.Name) }

func (d *Database) Table(ctx context.Context, name string) (*Table, error) {
	return d.client.Table(ctx, name, d.Path)
}

func (d *Database) Database(ctx context.Context, name string) (*Database, error) {
	return d.client.Database(ctx, name, d.Path)
}

func (d *Database) ListTables(ctx context.Context) ([]string, error) {
	return d.client.ListTables(ctx, d.Path)
}

func (d *Database) ListDatabases(ctx context.Context) ([]string, error) {
	return d.client.ListDatabases(ctx, d.Path)
}

// Dir lists every name Resolve can answer here.
func (d *Database) Dir(ctx context.Context) ([]string, error) {
	databases, err := d.ListDatabases(ctx)
	if err != nil {
		return nil, err
	}
	tables, err := d.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.SortedUnion(databases, tables), nil
}

// Resolved holds exactly one of Table and Database.
type Resolved struct {
	Table    *Table
	Database *Database
}

func (r Resolved) IsTable() bool { return r.Table != nil }

// Resolve looks name up as a table first and as a database second, so a
// table file shadows a directory of the same name.
func (d *Database) Resolve(ctx context.Context, name string) (Resolved, error) {
	table, err := d.Table(ctx, name)
	if err == nil {
		return Resolved{Table: table}, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return Resolved{}, err
	}
	db, err := d.Database(ctx, name)
	if err == nil {
		return Resolved{Database: db}, nil
	}
	if !errors.Is(err, catalog.ErrNotFound) {
		return Resolved{}, err
	}
	return Resolved{}, catalog.NotFound(catalog.KindPath, storage.JoinPath(d.Path, name))
}
