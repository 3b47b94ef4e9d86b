package file

import (
	"github.com/duckmesh/duckframe/internal/expr"
	"github.com/duckmesh/duckframe/internal/storage"
)

// Table is a leaf expression over one file.
type Table struct {
	*expr.DatabaseTable
	client *Client
	entry  storage.Entry
}

// Path is the file backing the table, relative to the client root.
func (t *Table) Path() string { return t.entry.Path }

func (t *Table) SizeBytes() int64 { return t.entry.Size }

func (t *Table) Head(n int) *expr.Limit {
	return expr.Head(t, n)
}
