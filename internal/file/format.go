package file

import (
	"context"
	"fmt"
	"strings"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/query"
	"github.com/duckmesh/duckframe/internal/schema"
	"github.com/duckmesh/duckframe/internal/storage"
)

// Format is what a file format contributes to the backend: its extension,
// its default listing mode and how a table schema is read from a file.
type Format interface {
	Name() string
	Extension() string
	Listing() ListingMode
	Schema(ctx context.Context, tree storage.Tree, exec query.Engine, p string) (schema.Schema, error)
}

// Writer is implemented by formats that Client.Insert can write.
type Writer interface {
	Format
	WriteFormat() string
}

// FormatByName returns the built-in format registered under name.
func FormatByName(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case query.FormatCSV:
		return CSV(), nil
	case query.FormatParquet:
		return Parquet(), nil
	default:
		return nil, &catalog.UnsupportedArgumentError{Argument: "format", Reason: fmt.Sprintf("no file format named %q", name)}
	}
}

type csvFormat struct{}

// CSV reads comma separated files with a header row. Databases are
// directories and table files alike.
func CSV() Format { return csvFormat{} }

func (csvFormat) Name() string         { return query.FormatCSV }
func (csvFormat) Extension() string    { return "csv" }
func (csvFormat) Listing() ListingMode { return ListDirsOrFiles }
func (csvFormat) WriteFormat() string  { return query.FormatCSV }

// Schema sniffs column types with the local executor without reading rows
// into memory.
func (csvFormat) Schema(ctx context.Context, _ storage.Tree, exec query.Engine, p string) (schema.Schema, error) {
	result, err := exec.Execute(ctx, query.Request{
		SQL:        "SELECT * FROM " + schemaProbeView,
		SchemaOnly: true,
		Files:      []query.TableFile{{TableName: schemaProbeView, Path: p, Format: query.FormatCSV}},
	})
	if err != nil {
		return schema.Schema{}, fmt.Errorf("infer csv schema of %q: %w", p, err)
	}
	return schemaFromResult(result)
}

const schemaProbeView = "probe"

func schemaFromResult(result query.Result) (schema.Schema, error) {
	types := make([]schema.DataType, len(result.Types))
	for i, name := range result.Types {
		types[i] = schema.ParseSQLType(name)
	}
	return schema.FromNamesAndTypes(result.Columns, types)
}
