package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/compiler"
	"github.com/duckmesh/duckframe/internal/ddl"
	"github.com/duckmesh/duckframe/internal/engine"
	"github.com/duckmesh/duckframe/internal/expr"
	"github.com/duckmesh/duckframe/internal/frame"
	"github.com/duckmesh/duckframe/internal/schema"
)

// CreateTableOptions takes exactly one of Obj and Schema. Obj is either a
// *frame.Frame, bulk loaded as is, or an expr.TableExpr, created with
// CREATE TABLE AS.
type CreateTableOptions struct {
	Obj      any
	Schema   *schema.Schema
	Database string
	// Force replaces an existing table for frames and tolerates one for
	// expressions and schemas.
	Force  bool
	Format string
	Params map[*expr.Param]any
}

func (c *Client) CreateTable(ctx context.Context, name string, opts CreateTableOptions) error {
	if (opts.Obj == nil) == (opts.Schema == nil) {
		return fmt.Errorf("%w: exactly one of obj and schema must be given", catalog.ErrInvalidArgument)
	}
	qualified := ddl.QualifiedName(name, opts.Database)
	c.logger.DebugContext(ctx, "create table", slog.String("table", qualified), slog.Bool("force", opts.Force))

	if opts.Schema != nil {
		return c.run(ctx, ddl.CreateTableWithSchema{
			Dialect:  c.session.Dialect().DDL(),
			Name:     qualified,
			Schema:   *opts.Schema,
			CanExist: opts.Force,
			Format:   opts.Format,
		})
	}

	switch obj := opts.Obj.(type) {
	case *frame.Frame:
		if opts.Format != "" {
			return &catalog.UnsupportedArgumentError{Argument: "format", Reason: "frames are loaded into native tables"}
		}
		return c.session.CreateTableFromFrame(ctx, opts.Database, name, obj, opts.Force)
	case expr.TableExpr:
		ast, err := c.translator.ToAST(obj, compiler.NewScope(opts.Params))
		if err != nil {
			return err
		}
		return c.run(ctx, ddl.CTAS{
			Name:     qualified,
			Query:    ast.Queries[0],
			CanExist: opts.Force,
			Format:   opts.Format,
		})
	default:
		return &catalog.InputError{Message: fmt.Sprintf("cannot create a table from %T", opts.Obj)}
	}
}

type ViewOptions struct {
	Database string
	// Force replaces an existing view.
	Force     bool
	Temporary bool
	Params    map[*expr.Param]any
}

func (c *Client) CreateView(ctx context.Context, name string, e expr.TableExpr, opts ViewOptions) error {
	if e == nil {
		return fmt.Errorf("%w: nil view expression", catalog.ErrInvalidExpression)
	}
	ast, err := c.translator.ToAST(e, compiler.NewScope(opts.Params))
	if err != nil {
		return err
	}
	target := ddl.QualifiedName(name, opts.Database)
	if opts.Temporary {
		target = ddl.QuoteIdent(name)
	}
	return c.run(ctx, ddl.CreateView{
		Name:      target,
		Query:     ast.Queries[0],
		CanExist:  opts.Force,
		Temporary: opts.Temporary,
	})
}

// DropTable drops a table; force ignores a missing one.
func (c *Client) DropTable(ctx context.Context, name, database string, force bool) error {
	return c.run(ctx, ddl.DropTable{Name: ddl.QualifiedName(name, database), MustExist: !force})
}

func (c *Client) DropView(ctx context.Context, name, database string, force bool) error {
	return c.run(ctx, ddl.DropTable{Name: ddl.QualifiedName(name, database), MustExist: !force, View: true})
}

// DropTableOrView looks the relation up and drops it as whichever kind it
// is.
func (c *Client) DropTableOrView(ctx context.Context, name, database string, force bool) error {
	info, err := c.session.LookupTable(ctx, name, database)
	if err != nil {
		if force && errors.Is(err, catalog.ErrNotFound) {
			return nil
		}
		return err
	}
	if info.IsView() {
		return c.DropView(ctx, info.Name, statementDatabase(info), force)
	}
	return c.DropTable(ctx, info.Name, statementDatabase(info), force)
}

func (c *Client) TruncateTable(ctx context.Context, name, database string) error {
	return c.run(ctx, ddl.TruncateTable{Name: ddl.QualifiedName(name, database)})
}

// Rename renames a table within its database.
func (c *Client) Rename(ctx context.Context, oldName, newName, database string) error {
	return c.run(ctx, ddl.RenameTable{Old: ddl.QualifiedName(oldName, database), New: newName})
}

type AlterOptions struct {
	Location   string
	Format     string
	Properties map[string]string
}

func (c *Client) AlterTable(ctx context.Context, name, database string, opts AlterOptions) error {
	return c.run(ctx, ddl.AlterTable{
		Dialect:    c.session.Dialect().DDL(),
		Name:       ddl.QualifiedName(name, database),
		Location:   opts.Location,
		Format:     opts.Format,
		Properties: opts.Properties,
	})
}

func (c *Client) ComputeStats(ctx context.Context, name, database string, noscan bool) error {
	return c.run(ctx, ddl.ComputeStats{
		Dialect: c.session.Dialect().DDL(),
		Name:    ddl.QualifiedName(name, database),
		NoScan:  noscan,
	})
}

type InsertOptions struct {
	Database  string
	Overwrite bool
	// Validate checks expression inputs against the table schema before
	// anything is written. Frames are never validated.
	Validate bool
	Params   map[*expr.Param]any
}

// Insert writes obj, a *frame.Frame or an expr.TableExpr, into an existing
// table.
func (c *Client) Insert(ctx context.Context, name string, obj any, opts InsertOptions) error {
	table, err := c.Table(ctx, name, opts.Database)
	if err != nil {
		return err
	}
	return table.Insert(ctx, obj, opts)
}

func (c *Client) insert(ctx context.Context, t *Table, obj any, opts InsertOptions) error {
	switch source := obj.(type) {
	case *frame.Frame:
		return c.session.InsertFrame(ctx, t.info.Database, t.info.Name, source, opts.Overwrite)
	case expr.TableExpr:
		if opts.Validate && !source.Schema().Equal(t.Schema()) {
			if err := catalog.ValidateInsert(source.Schema(), t.Schema()); err != nil {
				return err
			}
		}
		ast, err := c.translator.ToAST(source, compiler.NewScope(opts.Params))
		if err != nil {
			return err
		}
		insert := ddl.InsertSelect{
			Name:    t.Name,
			Columns: source.Schema().Names(),
			Query:   ast.Queries[0],
		}
		if !opts.Overwrite {
			return c.run(ctx, insert)
		}
		// the previous contents survive a failed insert
		return c.session.InTx(ctx, func(ctx context.Context) error {
			if err := c.run(ctx, ddl.TruncateTable{Name: t.Name}); err != nil {
				return err
			}
			return c.run(ctx, insert)
		})
	case nil:
		return fmt.Errorf("%w: nothing to insert", catalog.ErrInvalidArgument)
	default:
		return &catalog.InputError{Message: fmt.Sprintf("cannot insert %T", obj)}
	}
}

// SchemaFromCSV infers the schema of CSV files.
func (c *Client) SchemaFromCSV(ctx context.Context, path string, opts engine.CSVOptions) (schema.Schema, error) {
	opts.InferSchema = true
	opts.Schema = nil
	rel, err := c.session.ReadCSV(ctx, []string{path}, opts)
	if err != nil {
		return schema.Schema{}, err
	}
	return rel.Schema(ctx)
}

type CSVTableOptions struct {
	CSV engine.CSVOptions
	// Schema fixes the column types; without it types are inferred.
	Schema   *schema.Schema
	Database string
	Force    bool
	// TempView registers a temporary view over the files instead of
	// copying them into a table.
	TempView bool
	Format   string
}

func (c *Client) CreateTableFromCSV(ctx context.Context, name, path string, opts CSVTableOptions) error {
	if opts.Format != "" {
		return &catalog.UnsupportedArgumentError{Argument: "format", Reason: "tables have a fixed storage format"}
	}
	read := opts.CSV
	if opts.Schema != nil {
		read.Schema = opts.Schema
	} else {
		read.InferSchema = true
	}
	rel, err := c.session.ReadCSV(ctx, []string{path}, read)
	if err != nil {
		return err
	}
	query := ddl.RawQuery(rel.Query())

	if opts.TempView {
		return c.run(ctx, ddl.CreateView{Name: ddl.QuoteIdent(name), Query: query, CanExist: opts.Force, Temporary: true})
	}
	database := opts.Database
	if database == "" {
		if database, err = c.CurrentDatabase(ctx); err != nil {
			return err
		}
	}
	qualified := ddl.QualifiedName(name, database)
	if opts.Force {
		if err := c.run(ctx, ddl.DropTable{Name: qualified}); err != nil {
			return err
		}
	}
	return c.run(ctx, ddl.CTAS{Name: qualified, Query: query})
}
