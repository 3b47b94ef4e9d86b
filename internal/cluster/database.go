package cluster

import (
	"context"

	"github.com/duckmesh/duckframe/internal/schema"
)

// Database scopes table operations to one engine database.
type Database struct {
	Name   string
	client *Client
}

func (d *Database) Table(ctx context.Context, name string) (*Table, error) {
	return d.client.Table(ctx, name, d.Name)
}

func (d *Database) ListTables(ctx context.Context, like string) ([]string, error) {
	return d.client.ListTables(ctx, like, d.Name)
}

func (d *Database) ExistsTable(ctx context.Context, name string) (bool, error) {
	return d.client.ExistsTable(ctx, name, d.Name)
}

// CreateTable creates a table here; opts.Database is overridden.
func (d *Database) CreateTable(ctx context.Context, name string, opts CreateTableOptions) error {
	opts.Database = d.Name
	return d.client.CreateTable(ctx, name, opts)
}

func (d *Database) Schema(ctx context.Context, name string) (schema.Schema, error) {
	table, err := d.Table(ctx, name)
	if err != nil {
		return schema.Schema{}, err
	}
	return table.Schema(), nil
}

func (d *Database) Drop(ctx context.Context, force bool) error {
	return d.client.DropDatabase(ctx, d.Name, force)
}
