package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/storage/local"
	"github.com/duckmesh/duckframe/internal/testutil"
)

func newLocalTree(t *testing.T, dir string) *local.Tree {
	t.Helper()
	tree, err := local.New(dir)
	if err != nil {
		t.Fatalf("local.New() error = %v", err)
	}
	return tree
}

func TestWalkerListingModes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.csv", []byte("x\n1\n"))
	testutil.WriteFile(t, dir, "b.csv", []byte("x\n2\n"))
	testutil.WriteFile(t, dir, "notes.txt", []byte("ignored"))
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	tree := newLocalTree(t, dir)

	tests := []struct {
		mode      ListingMode
		databases []string
	}{
		{mode: ListDirs, databases: []string{"sub"}},
		{mode: ListDirsOrFiles, databases: []string{"a", "b", "sub"}},
		{mode: ListFiles, databases: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			walker := NewWalker(tree, ".csv", tt.mode)
			tables, err := walker.Tables(ctx, "")
			if err != nil {
				t.Fatalf("Tables() error = %v", err)
			}
			if !reflect.DeepEqual(tables, []string{"a", "b"}) {
				t.Fatalf("Tables() = %v", tables)
			}
			databases, err := walker.Databases(ctx, "")
			if err != nil {
				t.Fatalf("Databases() error = %v", err)
			}
			if !reflect.DeepEqual(databases, tt.databases) {
				t.Fatalf("Databases() = %v, want %v", databases, tt.databases)
			}
		})
	}
}

func TestWalkerFilePathIsTableLevel(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "a.csv", []byte("x\n1\n"))
	testutil.WriteFile(t, dir, "a.txt", []byte("x\n1\n"))
	walker := NewWalker(newLocalTree(t, dir), "csv", ListDirsOrFiles)

	tables, err := walker.Tables(ctx, "a.csv")
	if err != nil || !reflect.DeepEqual(tables, []string{"a"}) {
		t.Fatalf("Tables(a.csv) = %v, %v", tables, err)
	}
	tables, err = walker.Tables(ctx, "a.txt")
	if err != nil || len(tables) != 0 {
		t.Fatalf("Tables(a.txt) = %v, %v", tables, err)
	}
	databases, err := walker.Databases(ctx, "a.csv")
	if err != nil || len(databases) != 0 {
		t.Fatalf("Databases(a.csv) = %v, %v", databases, err)
	}
	if _, err := walker.Tables(ctx, "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("Tables(missing) error = %v, want ErrNotFound", err)
	}
}

func TestParseListingMode(t *testing.T) {
	tests := map[string]ListingMode{
		"":              0,
		"dirs":          ListDirs,
		"DIRS_OR_FILES": ListDirsOrFiles,
		" files ":       ListFiles,
	}
	for input, want := range tests {
		got, err := ParseListingMode(input)
		if err != nil || got != want {
			t.Fatalf("ParseListingMode(%q) = %v, %v, want %v", input, got, err, want)
		}
	}
	if _, err := ParseListingMode("tables"); !errors.Is(err, catalog.ErrInput) {
		t.Fatalf("ParseListingMode(tables) error = %v, want ErrInput", err)
	}
}
