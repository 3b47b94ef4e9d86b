package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	// Dir marks a common prefix returned by List rather than an object.
	Dir bool
}

type PutOptions struct {
	ContentType string
}

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	// List returns the immediate children of prefix, objects and
	// directories alike. An empty prefix lists the store root.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// Entry is one node of a Tree. Path is slash separated and relative to the
// tree root; the root itself has an empty path.
type Entry struct {
	Name string
	Path string
	Dir  bool
	Size int64
}

// Tree is the hierarchical namespace the file backend walks. Localize and
// Stage bridge to engines that only read and write local files: Localize
// returns a func that releases the local copy, Stage a pending write.
type Tree interface {
	Stat(ctx context.Context, p string) (Entry, error)
	ReadDir(ctx context.Context, p string) ([]Entry, error)
	Localize(ctx context.Context, p string) (string, func() error, error)
	Stage(ctx context.Context, p string) (*Staging, error)
}

// Staging is a pending write to a tree. The writer fills Path, then either
// commits or discards. Both release local resources and only the first
// call acts, so callers defer Discard right after staging.
type Staging struct {
	Path    string
	commit  func() error
	discard func() error
	done    bool
}

func NewStaging(path string, commit, discard func() error) *Staging {
	return &Staging{Path: path, commit: commit, discard: discard}
}

func (s *Staging) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	err := s.commit()
	if discardErr := s.discard(); err == nil {
		err = discardErr
	}
	return err
}

func (s *Staging) Discard() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.discard()
}
