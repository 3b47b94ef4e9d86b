// Package file is the file backend: directories of a tree are databases
// and files with the format's extension are tables.
package file

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/storage"
)

// ListingMode decides which children of a directory count as databases.
// Tables are always the files carrying the extension.
type ListingMode int

const (
	// ListDirs treats subdirectories as databases.
	ListDirs ListingMode = iota + 1
	// ListDirsOrFiles treats subdirectories and table files as databases.
	ListDirsOrFiles
	// ListFiles has no databases below the root; the namespace is flat.
	ListFiles
)

func (m ListingMode) String() string {
	switch m {
	case ListDirs:
		return "dirs"
	case ListDirsOrFiles:
		return "dirs_or_files"
	case ListFiles:
		return "files"
	default:
		return fmt.Sprintf("ListingMode(%d)", int(m))
	}
}

// ParseListingMode reads a configured mode. The empty string selects the
// format default and returns 0.
func ParseListingMode(value string) (ListingMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return 0, nil
	case "dirs":
		return ListDirs, nil
	case "dirs_or_files":
		return ListDirsOrFiles, nil
	case "files":
		return ListFiles, nil
	default:
		return 0, &catalog.InputError{Message: fmt.Sprintf("unknown listing mode %q", value)}
	}
}

// Walker enumerates the namespace of a tree.
type Walker struct {
	tree      storage.Tree
	extension string
	mode      ListingMode
}

func NewWalker(tree storage.Tree, extension string, mode ListingMode) *Walker {
	return &Walker{tree: tree, extension: strings.TrimPrefix(extension, "."), mode: mode}
}

func (w *Walker) Mode() ListingMode { return w.mode }

// Tables lists table names at p. When p is a file it is the only
// candidate.
func (w *Walker) Tables(ctx context.Context, p string) ([]string, error) {
	entry, err := w.stat(ctx, p)
	if err != nil {
		return nil, err
	}
	if !entry.Dir {
		if stem, ok := storage.Stem(entry.Name, w.extension); ok {
			return []string{stem}, nil
		}
		return []string{}, nil
	}
	children, err := w.tree.ReadDir(ctx, entry.Path)
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(children))
	for _, child := range children {
		if child.Dir {
			continue
		}
		if stem, ok := storage.Stem(child.Name, w.extension); ok {
			tables = append(tables, stem)
		}
	}
	sort.Strings(tables)
	return tables, nil
}

// Databases lists database names at p according to the listing mode. A
// file path is already at table level and has none.
func (w *Walker) Databases(ctx context.Context, p string) ([]string, error) {
	entry, err := w.stat(ctx, p)
	if err != nil {
		return nil, err
	}
	if !entry.Dir || w.mode == ListFiles {
		return []string{}, nil
	}
	children, err := w.tree.ReadDir(ctx, entry.Path)
	if err != nil {
		return nil, err
	}
	var dirs, files []string
	for _, child := range children {
		if child.Dir {
			dirs = append(dirs, child.Name)
			continue
		}
		if w.mode != ListDirsOrFiles {
			continue
		}
		if stem, ok := storage.Stem(child.Name, w.extension); ok {
			files = append(files, stem)
		}
	}
	return catalog.SortedUnion(dirs, files), nil
}

func (w *Walker) stat(ctx context.Context, p string) (storage.Entry, error) {
	entry, err := w.tree.Stat(ctx, p)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return storage.Entry{}, catalog.NotFound(catalog.KindPath, displayPath(p))
		}
		return storage.Entry{}, err
	}
	return entry, nil
}

func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
