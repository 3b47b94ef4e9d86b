// Package local implements storage.Tree over a directory of the OS
// filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/duckmesh/duckframe/internal/storage"
)

type Tree struct {
	root string
}

func New(root string) (*Tree, error) {
	if root == "" {
		return nil, fmt.Errorf("root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}
	return &Tree{root: abs}, nil
}

func (t *Tree) Root() string { return t.root }

func (t *Tree) Stat(_ context.Context, p string) (storage.Entry, error) {
	cleaned, local, err := t.resolve(p)
	if err != nil {
		return storage.Entry{}, err
	}
	info, err := os.Stat(local)
	if err != nil {
		return storage.Entry{}, mapErr(cleaned, err)
	}
	return storage.Entry{Name: storage.BaseName(cleaned), Path: cleaned, Dir: info.IsDir(), Size: sizeOf(info)}, nil
}

func (t *Tree) ReadDir(_ context.Context, p string) ([]storage.Entry, error) {
	cleaned, local, err := t.resolve(p)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(local)
	if err != nil {
		return nil, mapErr(cleaned, err)
	}
	entries := make([]storage.Entry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		info, err := dirEntry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %q: %w", dirEntry.Name(), err)
		}
		entries = append(entries, storage.Entry{
			Name: dirEntry.Name(),
			Path: storage.JoinPath(cleaned, dirEntry.Name()),
			Dir:  info.IsDir(),
			Size: sizeOf(info),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Localize returns the file itself; there is nothing to release.
func (t *Tree) Localize(_ context.Context, p string) (string, func() error, error) {
	cleaned, local, err := t.resolve(p)
	if err != nil {
		return "", nil, err
	}
	if _, err := os.Stat(local); err != nil {
		return "", nil, mapErr(cleaned, err)
	}
	return local, noop, nil
}

// Stage writes in place; there is nothing to publish or clean up.
func (t *Tree) Stage(_ context.Context, p string) (*storage.Staging, error) {
	cleaned, local, err := t.resolve(p)
	if err != nil {
		return nil, err
	}
	if cleaned == "" {
		return nil, fmt.Errorf("stage: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return nil, fmt.Errorf("create parent of %q: %w", cleaned, err)
	}
	return storage.NewStaging(local, noop, noop), nil
}

func (t *Tree) resolve(p string) (string, string, error) {
	cleaned, err := storage.CleanPath(p)
	if err != nil {
		return "", "", err
	}
	return cleaned, filepath.Join(t.root, filepath.FromSlash(cleaned)), nil
}

func mapErr(p string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %q: %w", p, storage.ErrObjectNotFound)
	}
	return fmt.Errorf("stat %q: %w", p, err)
}

func sizeOf(info fs.FileInfo) int64 {
	if info.IsDir() {
		return 0
	}
	return info.Size()
}

func noop() error { return nil }
