package query

import (
	"context"
	"time"
)

const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
)

// TableFile binds one file of a tree to the view name a query reads it
// through. Several files with the same TableName form one view.
type TableFile struct {
	TableName string
	Path      string
	Format    string
	SizeBytes int64
}

type Request struct {
	SQL      string
	RowLimit int
	Files    []TableFile
	// SchemaOnly returns columns and types without reading any rows.
	SchemaOnly bool
}

type Result struct {
	Columns      []string
	Types        []string
	Rows         [][]any
	ScannedFiles int
	ScannedBytes int64
	Duration     time.Duration
}

// CopyRequest writes the result of SQL to Path in Format.
type CopyRequest struct {
	SQL    string
	Files  []TableFile
	Path   string
	Format string
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
	Copy(ctx context.Context, request CopyRequest) error
}
