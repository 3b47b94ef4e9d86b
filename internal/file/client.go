package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/compiler"
	"github.com/duckmesh/duckframe/internal/config"
	"github.com/duckmesh/duckframe/internal/ddl"
	"github.com/duckmesh/duckframe/internal/expr"
	"github.com/duckmesh/duckframe/internal/frame"
	"github.com/duckmesh/duckframe/internal/observability"
	"github.com/duckmesh/duckframe/internal/query"
	querydb "github.com/duckmesh/duckframe/internal/query/duckdb"
	"github.com/duckmesh/duckframe/internal/storage"
	"github.com/duckmesh/duckframe/internal/storage/local"
	"github.com/duckmesh/duckframe/internal/storage/s3"
)

// RootName names the namespace node of the client root.
const RootName = "root"

// Client serves one tree in one file format. Paths are relative to the
// tree root, "" being the root itself.
type Client struct {
	tree   storage.Tree
	format Format
	walker *Walker
	exec   query.Engine
	cache  *Cache
	logger *slog.Logger
}

// New builds a client. A zero listing mode uses the format default.
func New(tree storage.Tree, format Format, listing ListingMode, logger *slog.Logger) *Client {
	logger = observability.OrDiscard(logger)
	if listing == 0 {
		listing = format.Listing()
	}
	return &Client{
		tree:   tree,
		format: format,
		walker: NewWalker(tree, format.Extension(), listing),
		exec:   querydb.NewEngine(tree, logger),
		cache:  NewCache(),
		logger: logger,
	}
}

// Connect builds a client from configuration: an object store tree when
// the object store is enabled, the local directory Files.Root otherwise.
func Connect(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Client, error) {
	format, err := FormatByName(cfg.Files.Format)
	if err != nil {
		return nil, err
	}
	listing, err := ParseListingMode(cfg.Files.Listing)
	if err != nil {
		return nil, err
	}
	var tree storage.Tree
	if cfg.ObjectStore.Enabled {
		store, err := s3.New(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("connect object store: %w", err)
		}
		tree = storage.NewObjectTree(store)
	} else {
		localTree, err := local.New(cfg.Files.Root)
		if err != nil {
			return nil, err
		}
		tree = localTree
	}
	return New(tree, format, listing, logger), nil
}

func (c *Client) Format() Format { return c.format }

func (c *Client) Tree() storage.Tree { return c.tree }

func (c *Client) Cache() *Cache { return c.cache }

func (c *Client) ListTables(ctx context.Context, path string) ([]string, error) {
	return c.walker.Tables(ctx, path)
}

func (c *Client) ListDatabases(ctx context.Context, path string) ([]string, error) {
	return c.walker.Databases(ctx, path)
}

// Database returns the namespace node name below path. Without a name it
// returns the node at path itself, which is the root for an empty path.
func (c *Client) Database(ctx context.Context, name, path string) (*Database, error) {
	if name == "" {
		return &Database{Name: RootName, Path: path, client: c}, nil
	}
	names, err := c.walker.Databases(ctx, path)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(names, name) {
		return nil, catalog.NotFound(catalog.KindDatabase, name)
	}

	target := storage.JoinPath(path, name)
	entry, err := c.tree.Stat(ctx, target)
	switch {
	case err == nil && entry.Dir:
	case err == nil || errors.Is(err, storage.ErrObjectNotFound):
		target = storage.JoinPath(path, name+"."+c.format.Extension())
	default:
		return nil, err
	}
	return &Database{Name: name, Path: target, client: c}, nil
}

// Table resolves name at path, reads its schema and remembers the file in
// the cache.
func (c *Client) Table(ctx context.Context, name, path string) (*Table, error) {
	names, err := c.walker.Tables(ctx, path)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(names, name) {
		return nil, catalog.NotFound(catalog.KindTable, name)
	}

	entry, err := c.tree.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	if entry.Dir {
		if entry, err = c.tree.Stat(ctx, storage.JoinPath(path, name+"."+c.format.Extension())); err != nil {
			return nil, err
		}
	}
	s, err := c.format.Schema(ctx, c.tree, c.exec, entry.Path)
	if err != nil {
		return nil, err
	}
	c.cache.Put(name, entry)
	c.logger.DebugContext(ctx, "resolved file table", slog.String("table", name), slog.String("path", entry.Path), slog.String("format", c.format.Name()))
	return &Table{
		DatabaseTable: expr.NewDatabaseTable(name, s, c),
		client:        c,
		entry:         entry,
	}, nil
}

// Execute runs e eagerly against the files it reads and materializes the
// result according to its shape.
func (c *Client) Execute(ctx context.Context, e expr.Expr, params map[*expr.Param]any) (frame.Result, error) {
	if e == nil {
		return frame.Result{}, fmt.Errorf("%w: nil expression", catalog.ErrInvalidExpression)
	}
	shape := e.Shape()
	switch shape {
	case expr.ShapeTable, expr.ShapeColumn, expr.ShapeScalar:
	default:
		return frame.Result{}, fmt.Errorf("%w: %s", catalog.ErrUnsupportedExpression, shape)
	}

	compiled, files, err := c.compile(e, params)
	if err != nil {
		return frame.Result{}, err
	}
	sqlText := compiled.Query
	if compiled.IsColumn() {
		sqlText = compiler.ProbeQuery(compiled.Column)
		compiled.Name = compiler.ProbeColumn
	}
	result, err := c.exec.Execute(ctx, query.Request{SQL: sqlText, Files: files})
	if err != nil {
		return frame.Result{}, err
	}
	s, err := schemaFromResult(result)
	if err != nil {
		return frame.Result{}, err
	}
	f, err := frame.New(s, result.Rows)
	if err != nil {
		return frame.Result{}, err
	}

	switch shape {
	case expr.ShapeTable:
		return frame.Result{Shape: shape, Table: f}, nil
	case expr.ShapeColumn:
		series, err := f.Column(compiled.Name)
		if err != nil {
			return frame.Result{}, err
		}
		return frame.Result{Shape: shape, Column: series}, nil
	default:
		if f.Len() != 1 || f.Schema.Len() != 1 {
			return frame.Result{}, fmt.Errorf("scalar query returned %d rows and %d columns", f.Len(), f.Schema.Len())
		}
		return frame.Result{Shape: shape, Scalar: f.Rows[0][0]}, nil
	}
}

// Insert writes the result of a table expression to path, relative to the
// root, replacing any file there. Only formats implementing Writer can be
// written.
func (c *Client) Insert(ctx context.Context, path string, e expr.TableExpr, params map[*expr.Param]any) error {
	writer, ok := c.format.(Writer)
	if !ok {
		return fmt.Errorf("%w: %s files cannot be written", catalog.ErrNotImplemented, c.format.Name())
	}
	if e == nil {
		return fmt.Errorf("%w: nil expression", catalog.ErrInvalidExpression)
	}
	compiled, files, err := c.compile(e, params)
	if err != nil {
		return err
	}
	if err := c.exec.Copy(ctx, query.CopyRequest{
		SQL:    compiled.Query,
		Files:  files,
		Path:   path,
		Format: writer.WriteFormat(),
	}); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "wrote file table", slog.String("path", path), slog.String("format", writer.WriteFormat()))
	return nil
}

// compile translates e with every table it reads bound to a view of its
// files. Tables sharing a name get distinct views.
func (c *Client) compile(e expr.Expr, params map[*expr.Param]any) (compiler.Compiled, []query.TableFile, error) {
	views := map[*expr.DatabaseTable]string{}
	used := map[string]int{}
	var files []query.TableFile
	for _, root := range expr.Tables(e) {
		node := root.Root()
		entry, err := c.entryFor(root)
		if err != nil {
			return compiler.Compiled{}, nil, err
		}
		view := node.Name
		if n := used[node.Name]; n > 0 {
			view = fmt.Sprintf("%s_%d", node.Name, n+1)
		}
		used[node.Name]++
		views[node] = view
		files = append(files, query.TableFile{
			TableName: view,
			Path:      entry.Path,
			Format:    c.format.Name(),
			SizeBytes: entry.Size,
		})
	}
	translator := compiler.NewTranslator(func(t *expr.DatabaseTable) (string, error) {
		view, ok := views[t]
		if !ok {
			return "", fmt.Errorf("%w: table %q is not bound to a file", catalog.ErrInvalidExpression, t.Name)
		}
		return ddl.QuoteIdent(view), nil
	})
	compiled, err := translator.Translate(e, compiler.NewScope(params))
	if err != nil {
		return compiler.Compiled{}, nil, err
	}
	return compiled, files, nil
}

func (c *Client) entryFor(root expr.Root) (storage.Entry, error) {
	if table, ok := root.(*Table); ok && table.client == c {
		return table.entry, nil
	}
	node := root.Root()
	if node.Source != c {
		return storage.Entry{}, &catalog.InputError{Message: fmt.Sprintf("table %q does not belong to this file client", node.Name)}
	}
	entry, ok := c.cache.Get(node.Name)
	if !ok {
		return storage.Entry{}, catalog.NotFound(catalog.KindTable, node.Name)
	}
	return entry, nil
}
