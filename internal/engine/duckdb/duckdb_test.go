package duckdb

import (
	"errors"
	"strings"
	"testing"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/engine"
	"github.com/duckmesh/duckframe/internal/schema"
)

func TestReadCSVRendersOptions(t *testing.T) {
	opts := engine.DefaultCSVOptions()
	opts.Mode = engine.CSVModePermissive
	query, err := Dialect{}.ReadCSV([]string{"/data/a.csv", "/data/it's.csv"}, opts)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	want := `SELECT * FROM read_csv(['/data/a.csv', '/data/it''s.csv'], header = true, escape = '"', ignore_errors = true, null_padding = true, all_varchar = true)`
	if query != want {
		t.Fatalf("ReadCSV() = %s\nwant %s", query, want)
	}
}

func TestReadCSVWithSchemaListsColumns(t *testing.T) {
	s := schema.MustNew(
		schema.Field{Name: "id", Type: schema.Int32},
		schema.Field{Name: "amount", Type: schema.Decimal(10, 2)},
	)
	opts := engine.DefaultCSVOptions()
	opts.Header = false
	opts.Schema = &s
	query, err := Dialect{}.ReadCSV([]string{"x.csv"}, opts)
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	if !strings.Contains(query, `columns = {'id': 'INTEGER', 'amount': 'DECIMAL(10, 2)'}`) {
		t.Fatalf("query = %s", query)
	}
	if strings.Contains(query, "all_varchar") {
		t.Fatalf("explicit schema should not force varchar: %s", query)
	}

	bad := schema.MustNew(schema.Field{Name: "x", Type: schema.Unknown})
	opts.Schema = &bad
	if _, err := (Dialect{}).ReadCSV([]string{"x.csv"}, opts); !errors.Is(err, catalog.ErrUnsupportedArgument) {
		t.Fatalf("ReadCSV(unknown type) error = %v", err)
	}
}
