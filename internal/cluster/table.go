package cluster

import (
	"context"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/ddl"
	"github.com/duckmesh/duckframe/internal/expr"
)

// Table is a resolved table or view. It is a leaf expression, so it can be
// selected from, filtered and executed like any other table expression.
type Table struct {
	*expr.DatabaseTable
	client *Client
	info   catalog.TableInfo
}

func (t *Table) Info() catalog.TableInfo { return t.info }

func (t *Table) Database() string { return t.info.Database }

func (t *Table) Insert(ctx context.Context, obj any, opts InsertOptions) error {
	return t.client.insert(ctx, t, obj, opts)
}

// Drop drops the table, or the view when the handle names one.
func (t *Table) Drop(ctx context.Context) error {
	return t.client.run(ctx, ddl.DropTable{Name: t.Name, MustExist: true, View: t.info.IsView()})
}

func (t *Table) Truncate(ctx context.Context) error {
	return t.client.run(ctx, ddl.TruncateTable{Name: t.Name})
}

func (t *Table) ComputeStats(ctx context.Context, noscan bool) error {
	return t.client.ComputeStats(ctx, t.info.Name, statementDatabase(t.info), noscan)
}

func (t *Table) Alter(ctx context.Context, opts AlterOptions) error {
	return t.client.AlterTable(ctx, t.info.Name, statementDatabase(t.info), opts)
}

// Rename renames the table and returns a handle bound to the new name.
// The receiver keeps the old name and should not be used afterwards.
func (t *Table) Rename(ctx context.Context, newName string) (*Table, error) {
	info := t.info
	if ddl.IsFullyQualified(newName) {
		database, name, err := ddl.ParseQualifiedName(newName)
		if err != nil {
			return nil, err
		}
		info.Database, info.Name = database, name
	} else {
		info.Name = newName
	}
	if err := t.client.Rename(ctx, t.info.Name, newName, statementDatabase(t.info)); err != nil {
		return nil, err
	}
	return &Table{
		DatabaseTable: t.DatabaseTable.Rename(qualify(info)),
		client:        t.client,
		info:          info,
	}, nil
}

// Head is a convenience for expr.Head on the table.
func (t *Table) Head(n int) *expr.Limit {
	return expr.Head(t, n)
}

// qualify names a catalog relation. Temporary relations stay unqualified
// and resolve through the session's temp catalog.
func qualify(info catalog.TableInfo) string {
	return ddl.QualifiedName(info.Name, statementDatabase(info))
}

func statementDatabase(info catalog.TableInfo) string {
	if info.Temporary {
		return ""
	}
	return info.Database
}
