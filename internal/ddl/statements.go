package ddl

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/schema"
)

// Query is a compiled select usable inside a statement.
type Query interface {
	Compile() string
}

type Statement interface {
	Compile() (string, error)
}

// RawQuery adapts a literal select string to Query.
type RawQuery string

func (q RawQuery) Compile() string { return string(q) }

var propertyKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

type CreateDatabase struct {
	Name     string
	Path     string
	CanExist bool
}

func (s CreateDatabase) Compile() (string, error) {
	if err := requireName(s.Name); err != nil {
		return "", err
	}
	if s.Path != "" {
		return "", &catalog.UnsupportedArgumentError{Argument: "path", Reason: "databases are schemas without a location"}
	}
	return "CREATE SCHEMA " + ifNotExists(s.CanExist) + QuoteIdent(s.Name), nil
}

type DropDatabase struct {
	Name      string
	MustExist bool
	Cascade   bool
}

func (s DropDatabase) Compile() (string, error) {
	if err := requireName(s.Name); err != nil {
		return "", err
	}
	stmt := "DROP SCHEMA " + ifExists(!s.MustExist) + QuoteIdent(s.Name)
	if s.Cascade {
		stmt += " CASCADE"
	}
	return stmt, nil
}

type DropTable struct {
	Name      string
	MustExist bool
	View      bool
}

func (s DropTable) Compile() (string, error) {
	if err := requireName(s.Name); err != nil {
		return "", err
	}
	object := "TABLE"
	if s.View {
		object = "VIEW"
	}
	return fmt.Sprintf("DROP %s %s%s", object, ifExists(!s.MustExist), s.Name), nil
}

type TruncateTable struct {
	Name string
}

func (s TruncateTable) Compile() (string, error) {
	if err := requireName(s.Name); err != nil {
		return "", err
	}
	return "TRUNCATE TABLE " + s.Name, nil
}

// RenameTable renames within one database; New may be bare or qualified
// with the same database as Old.
type RenameTable struct {
	Old string
	New string
}

func (s RenameTable) Compile() (string, error) {
	if err := requireName(s.Old); err != nil {
		return "", err
	}
	if err := requireName(s.New); err != nil {
		return "", err
	}
	target := s.New
	if IsFullyQualified(s.New) {
		newDatabase, newName, err := ParseQualifiedName(s.New)
		if err != nil {
			return "", err
		}
		if IsFullyQualified(s.Old) {
			oldDatabase, _, err := ParseQualifiedName(s.Old)
			if err != nil {
				return "", err
			}
			if oldDatabase != newDatabase {
				return "", &catalog.UnsupportedArgumentError{Argument: "new_name", Reason: "tables cannot be renamed across databases"}
			}
		}
		target = newName
	}
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", s.Old, QuoteIdent(target)), nil
}

type AlterTable struct {
	Dialect    Dialect
	Name       string
	Location   string
	Format     string
	Properties map[string]string
}

func (s AlterTable) Compile() (string, error) {
	if err := requireName(s.Name); err != nil {
		return "", err
	}
	if s.Location != "" {
		return "", &catalog.UnsupportedArgumentError{Argument: "location", Reason: fmt.Sprintf("%s tables have no location", s.Dialect)}
	}
	if s.Format != "" {
		return "", &catalog.UnsupportedArgumentError{Argument: "format", Reason: fmt.Sprintf("%s tables have a fixed storage format", s.Dialect)}
	}
	if len(s.Properties) == 0 {
		return "", fmt.Errorf("%w: nothing to alter", catalog.ErrInvalidArgument)
	}
	if s.Dialect != Postgres {
		return "", &catalog.UnsupportedArgumentError{Argument: "properties", Reason: fmt.Sprintf("%s has no table properties", s.Dialect)}
	}
	keys := make([]string, 0, len(s.Properties))
	for key := range s.Properties {
		if !propertyKeyPattern.MatchString(key) {
			return "", &catalog.InputError{Message: fmt.Sprintf("invalid table property %q", key)}
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	assignments := make([]string, len(keys))
	for i, key := range keys {
		assignments[i] = fmt.Sprintf("%s = %s", key, QuoteString(s.Properties[key]))
	}
	return fmt.Sprintf("ALTER TABLE %s SET (%s)", s.Name, strings.Join(assignments, ", ")), nil
}

type CreateTableWithSchema struct {
	Dialect  Dialect
	Name     string
	Schema   schema.Schema
	CanExist bool
	Format   string
}

func (s CreateTableWithSchema) Compile() (string, error) {
	if err := requireName(s.Name); err != nil {
		return "", err
	}
	if s.Format != "" {
		return "", &catalog.UnsupportedArgumentError{Argument: "format", Reason: fmt.Sprintf("%s tables have a fixed storage format", s.Dialect)}
	}
	if s.Schema.Len() == 0 {
		return "", fmt.Errorf("%w: schema has no columns", catalog.ErrInvalidArgument)
	}
	columns := make([]string, 0, s.Schema.Len())
	for _, field := range s.Schema.Fields() {
		typeName, err := s.Dialect.TypeName(field.Type)
		if err != nil {
			return "", fmt.Errorf("column %q: %w", field.Name, err)
		}
		column := QuoteIdent(field.Name) + " " + typeName
		if !field.Type.Nullable {
			column += " NOT NULL"
		}
		columns = append(columns, column)
	}
	return fmt.Sprintf("CREATE TABLE %s%s (%s)", ifNotExists(s.CanExist), s.Name, strings.Join(columns, ", ")), nil
}

type CTAS struct {
	Name     string
	Query    Query
	CanExist bool
	Format   string
}

func (s CTAS) Compile() (string, error) {
	if err := requireName(s.Name); err != nil {
		return "", err
	}
	if s.Format != "" {
		return "", &catalog.UnsupportedArgumentError{Argument: "format", Reason: "tables have a fixed storage format"}
	}
	if s.Query == nil {
		return "", fmt.Errorf("%w: create table as select requires a query", catalog.ErrInvalidArgument)
	}
	return fmt.Sprintf("CREATE TABLE %s%s AS %s", ifNotExists(s.CanExist), s.Name, s.Query.Compile()), nil
}

type CreateView struct {
	Name      string
	Query     Query
	CanExist  bool
	Temporary bool
}

// Compile renders CREATE VIEW; CanExist replaces an existing view.
func (s CreateView) Compile() (string, error) {
	if err := requireName(s.Name); err != nil {
		return "", err
	}
	if s.Query == nil {
		return "", fmt.Errorf("%w: create view requires a query", catalog.ErrInvalidArgument)
	}
	var b strings.Builder
	b.WriteString("CREATE ")
	if s.CanExist {
		b.WriteString("OR REPLACE ")
	}
	if s.Temporary {
		b.WriteString("TEMPORARY ")
	}
	fmt.Fprintf(&b, "VIEW %s AS %s", s.Name, s.Query.Compile())
	return b.String(), nil
}

type InsertSelect struct {
	Name    string
	Columns []string
	Query   Query
}

func (s InsertSelect) Compile() (string, error) {
	if err := requireName(s.Name); err != nil {
		return "", err
	}
	if s.Query == nil {
		return "", fmt.Errorf("%w: insert requires a query", catalog.ErrInvalidArgument)
	}
	target := s.Name
	if len(s.Columns) > 0 {
		quoted := make([]string, len(s.Columns))
		for i, column := range s.Columns {
			quoted[i] = QuoteIdent(column)
		}
		target += " (" + strings.Join(quoted, ", ") + ")"
	}
	return fmt.Sprintf("INSERT INTO %s %s", target, s.Query.Compile()), nil
}

type ComputeStats struct {
	Dialect Dialect
	Name    string
	NoScan  bool
}

func (s ComputeStats) Compile() (string, error) {
	if err := requireName(s.Name); err != nil {
		return "", err
	}
	if s.NoScan {
		return "", &catalog.UnsupportedArgumentError{Argument: "noscan", Reason: fmt.Sprintf("%s always scans to compute statistics", s.Dialect)}
	}
	if s.Dialect == DuckDB {
		return "VACUUM ANALYZE " + s.Name, nil
	}
	return "ANALYZE " + s.Name, nil
}

func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", catalog.ErrInvalidArgument)
	}
	return nil
}

func ifExists(enabled bool) string {
	if enabled {
		return "IF EXISTS "
	}
	return ""
}

func ifNotExists(enabled bool) string {
	if enabled {
		return "IF NOT EXISTS "
	}
	return ""
}
