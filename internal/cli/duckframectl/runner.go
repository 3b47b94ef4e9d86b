// Package duckframectl implements the duckframectl command line.
package duckframectl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/duckmesh/duckframe/internal/cluster"
	"github.com/duckmesh/duckframe/internal/config"
	"github.com/duckmesh/duckframe/internal/engine"
	_ "github.com/duckmesh/duckframe/internal/engine/duckdb"
	_ "github.com/duckmesh/duckframe/internal/engine/postgres"
	"github.com/duckmesh/duckframe/internal/file"
	"github.com/duckmesh/duckframe/internal/frame"
	"github.com/duckmesh/duckframe/internal/observability"
	"github.com/duckmesh/duckframe/internal/schema"
)

const serviceName = "duckframectl"

type Options struct {
	Lookup config.LookupFunc
	Stdout io.Writer
	Stderr io.Writer
}

// runner carries what the persistent pre-run resolved for the command
// being executed.
type runner struct {
	opts       Options
	configPath string
	output     string
	cfg        config.Config
	logger     *slog.Logger
}

// Run executes args and returns the process exit code.
func Run(ctx context.Context, args []string, opts Options) int {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	root := NewRootCmd(opts)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func NewRootCmd(opts Options) *cobra.Command {
	r := &runner{opts: opts}
	root := &cobra.Command{
		Use:   serviceName,
		Short: "Inspect file trees and SQL engines as databases of tables",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return r.load()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)
	root.PersistentFlags().StringVar(&r.configPath, "config", "", "YAML config file; environment variables override it")
	root.PersistentFlags().StringVarP(&r.output, "output", "o", "text", "output format (text|json)")

	root.AddCommand(r.filesCommand(), r.engineCommand())
	return root
}

func (r *runner) load() error {
	switch r.output {
	case "text", "json":
	default:
		return fmt.Errorf("unknown output format %q", r.output)
	}
	lookup := r.opts.Lookup
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	cfg, err := config.LoadFile(r.configPath, serviceName, lookup)
	if err != nil {
		return err
	}
	r.cfg = cfg
	r.logger = observability.NewLogger(cfg, r.opts.Stderr)
	return nil
}

func (r *runner) filesCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "files", Short: "Browse the configured file tree"}
	var path string
	var limit int

	ls := &cobra.Command{
		Use:   "ls [path]",
		Short: "List databases and tables below path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := file.Connect(cmd.Context(), r.cfg, r.logger)
			if err != nil {
				return err
			}
			db, err := client.Database(cmd.Context(), "", firstArg(args))
			if err != nil {
				return err
			}
			names, err := db.Dir(cmd.Context())
			if err != nil {
				return err
			}
			return r.printNames(names)
		},
	}
	tables := &cobra.Command{
		Use:   "tables [path]",
		Short: "List tables below path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := file.Connect(cmd.Context(), r.cfg, r.logger)
			if err != nil {
				return err
			}
			names, err := client.ListTables(cmd.Context(), firstArg(args))
			if err != nil {
				return err
			}
			return r.printNames(names)
		},
	}
	schemaCmd := &cobra.Command{
		Use:   "schema <table>",
		Short: "Print the schema read from a table file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := file.Connect(cmd.Context(), r.cfg, r.logger)
			if err != nil {
				return err
			}
			table, err := client.Table(cmd.Context(), args[0], path)
			if err != nil {
				return err
			}
			return r.printSchema(table.Schema())
		},
	}
	addPathFlag(schemaCmd.Flags(), &path)
	head := &cobra.Command{
		Use:   "head <table>",
		Short: "Print the first rows of a table file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := file.Connect(cmd.Context(), r.cfg, r.logger)
			if err != nil {
				return err
			}
			table, err := client.Table(cmd.Context(), args[0], path)
			if err != nil {
				return err
			}
			result, err := client.Execute(cmd.Context(), table.Head(limit), nil)
			if err != nil {
				return err
			}
			return r.printFrame(result.Table)
		},
	}
	addPathFlag(head.Flags(), &path)
	head.Flags().IntVarP(&limit, "limit", "n", 10, "number of rows")

	cmd.AddCommand(ls, tables, schemaCmd, head)
	return cmd
}

func (r *runner) engineCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "engine", Short: "Inspect the configured SQL engine"}
	var like, database string

	databases := &cobra.Command{
		Use:   "databases",
		Short: "List databases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withClient(cmd.Context(), func(client *cluster.Client) error {
				names, err := client.ListDatabases(cmd.Context(), like)
				if err != nil {
					return err
				}
				return r.printNames(names)
			})
		},
	}
	addLikeFlag(databases.Flags(), &like)

	tables := &cobra.Command{
		Use:   "tables",
		Short: "List tables and views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withClient(cmd.Context(), func(client *cluster.Client) error {
				names, err := client.ListTables(cmd.Context(), like, database)
				if err != nil {
					return err
				}
				return r.printNames(names)
			})
		},
	}
	addLikeFlag(tables.Flags(), &like)
	addDatabaseFlag(tables.Flags(), &database)

	schemaCmd := &cobra.Command{
		Use:   "schema <table>",
		Short: "Print the schema of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withClient(cmd.Context(), func(client *cluster.Client) error {
				table, err := client.Table(cmd.Context(), args[0], database)
				if err != nil {
					return err
				}
				return r.printSchema(table.Schema())
			})
		},
	}
	addDatabaseFlag(schemaCmd.Flags(), &database)

	sqlCmd := &cobra.Command{
		Use:   "sql <statement>",
		Short: "Run a statement and print its rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withClient(cmd.Context(), func(client *cluster.Client) error {
				cursor, err := client.RawSQL(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				defer func() { _ = cursor.Close() }()
				columns, err := cursor.Columns(cmd.Context())
				if err != nil {
					return err
				}
				if len(columns) == 0 {
					return nil
				}
				f, err := client.FetchFromCursor(cmd.Context(), cursor, schema.Schema{})
				if err != nil {
					return err
				}
				return r.printFrame(f)
			})
		},
	}

	cmd.AddCommand(databases, tables, schemaCmd, sqlCmd)
	return cmd
}

func (r *runner) withClient(ctx context.Context, fn func(*cluster.Client) error) (err error) {
	client, err := cluster.Connect(ctx, engine.Config{
		Type:            r.cfg.Engine.Type,
		DSN:             r.cfg.Engine.DSN,
		MaxOpenConns:    r.cfg.Engine.MaxOpenConns,
		ConnMaxIdleTime: r.cfg.Engine.ConnMaxIdleTime,
		ConnMaxLifetime: r.cfg.Engine.ConnMaxLifetime,
		TimeZone:        r.cfg.Engine.TimeZone,
	}, r.logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(client)
}

func (r *runner) printNames(names []string) error {
	if r.output == "json" {
		return r.printJSON(names)
	}
	for _, name := range names {
		_, _ = fmt.Fprintln(r.opts.Stdout, name)
	}
	return nil
}

type columnJSON struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

func (r *runner) printSchema(s schema.Schema) error {
	if r.output == "json" {
		columns := make([]columnJSON, 0, s.Len())
		for _, field := range s.Fields() {
			columns = append(columns, columnJSON{Name: field.Name, Type: field.Type.String(), Nullable: field.Type.Nullable})
		}
		return r.printJSON(columns)
	}
	w := tabwriter.NewWriter(r.opts.Stdout, 0, 4, 2, ' ', 0)
	for _, field := range s.Fields() {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", field.Name, field.Type)
	}
	return w.Flush()
}

func (r *runner) printFrame(f *frame.Frame) error {
	if r.output == "json" {
		records := make([]map[string]any, 0, f.Len())
		columns := f.Columns()
		for _, row := range f.Rows {
			record := make(map[string]any, len(columns))
			for i, column := range columns {
				record[column] = row[i]
			}
			records = append(records, record)
		}
		return r.printJSON(records)
	}
	w := tabwriter.NewWriter(r.opts.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(f.Columns(), "\t"))
	for _, row := range f.Rows {
		cells := make([]string, len(row))
		for i, value := range row {
			if value == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprint(value)
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func (r *runner) printJSON(value any) error {
	formatted, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(r.opts.Stdout, string(formatted))
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func addPathFlag(flags *pflag.FlagSet, target *string) {
	flags.StringVar(target, "path", "", "directory holding the table")
}

func addLikeFlag(flags *pflag.FlagSet, target *string) {
	flags.StringVar(target, "like", "", "regular expression matched from the start of each name")
}

func addDatabaseFlag(flags *pflag.FlagSet, target *string) {
	flags.StringVar(target, "database", "", "database holding the tables (default: current)")
}
