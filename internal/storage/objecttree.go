package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ObjectTree presents an ObjectStore as a Tree. Directories are key
// prefixes; reads and writes go through temporary local copies.
type ObjectTree struct {
	Store   ObjectStore
	TempDir string
}

func NewObjectTree(store ObjectStore) *ObjectTree {
	return &ObjectTree{Store: store}
}

func (t *ObjectTree) Stat(ctx context.Context, p string) (Entry, error) {
	cleaned, err := CleanPath(p)
	if err != nil {
		return Entry{}, err
	}
	if cleaned == "" {
		return Entry{Dir: true}, nil
	}
	info, err := t.Store.Stat(ctx, cleaned)
	if err == nil {
		return Entry{Name: BaseName(cleaned), Path: cleaned, Size: info.Size}, nil
	}
	if !errors.Is(err, ErrObjectNotFound) {
		return Entry{}, err
	}
	children, err := t.Store.List(ctx, cleaned)
	if err != nil {
		return Entry{}, err
	}
	if len(children) == 0 {
		return Entry{}, fmt.Errorf("stat %q: %w", cleaned, ErrObjectNotFound)
	}
	return Entry{Name: BaseName(cleaned), Path: cleaned, Dir: true}, nil
}

func (t *ObjectTree) ReadDir(ctx context.Context, p string) ([]Entry, error) {
	cleaned, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	infos, err := t.Store.List(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", cleaned, err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		name := BaseName(info.Key)
		entries = append(entries, Entry{
			Name: name,
			Path: JoinPath(cleaned, name),
			Dir:  info.Dir,
			Size: info.Size,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (t *ObjectTree) Localize(ctx context.Context, p string) (string, func() error, error) {
	cleaned, err := CleanPath(p)
	if err != nil {
		return "", nil, err
	}
	workDir, err := os.MkdirTemp(t.TempDir, "duckframe-object-")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	release := func() error { return os.RemoveAll(workDir) }

	reader, err := t.Store.Get(ctx, cleaned)
	if err != nil {
		_ = release()
		return "", nil, fmt.Errorf("get object %q: %w", cleaned, err)
	}
	localPath := filepath.Join(workDir, BaseName(cleaned))
	if err := writeFile(localPath, reader); err != nil {
		_ = reader.Close()
		_ = release()
		return "", nil, fmt.Errorf("write local copy of %q: %w", cleaned, err)
	}
	if err := reader.Close(); err != nil {
		_ = release()
		return "", nil, fmt.Errorf("close object %q: %w", cleaned, err)
	}
	return localPath, release, nil
}

func (t *ObjectTree) Stage(ctx context.Context, p string) (*Staging, error) {
	cleaned, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	if cleaned == "" {
		return nil, fmt.Errorf("stage: path is required")
	}
	workDir, err := os.MkdirTemp(t.TempDir, "duckframe-stage-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	localPath := filepath.Join(workDir, BaseName(cleaned))
	upload := func() error {
		file, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("open staged file: %w", err)
		}
		defer func() { _ = file.Close() }()
		stat, err := file.Stat()
		if err != nil {
			return fmt.Errorf("stat staged file: %w", err)
		}
		if _, err := t.Store.Put(ctx, cleaned, file, stat.Size(), PutOptions{ContentType: contentTypeFor(cleaned)}); err != nil {
			return fmt.Errorf("upload %q: %w", cleaned, err)
		}
		return nil
	}
	return NewStaging(localPath, upload, func() error { return os.RemoveAll(workDir) }), nil
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
