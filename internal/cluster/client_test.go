package cluster_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/cluster"
	"github.com/duckmesh/duckframe/internal/engine"
	"github.com/duckmesh/duckframe/internal/engine/duckdb"
	"github.com/duckmesh/duckframe/internal/expr"
	"github.com/duckmesh/duckframe/internal/frame"
	"github.com/duckmesh/duckframe/internal/schema"
	"github.com/duckmesh/duckframe/internal/testutil"
)

func openClient(t *testing.T, zone string) *cluster.Client {
	t.Helper()
	client, err := cluster.Connect(context.Background(), engine.Config{Type: duckdb.Name, TimeZone: zone}, testutil.NewTestLogger(t))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func rawExec(t *testing.T, client *cluster.Client, stmt string) {
	t.Helper()
	cursor, err := client.RawSQL(context.Background(), stmt)
	if err != nil {
		t.Fatalf("RawSQL(%q) error = %v", stmt, err)
	}
	if err := cursor.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func countRows(t *testing.T, client *cluster.Client, table string) int64 {
	t.Helper()
	cursor, err := client.RawSQL(context.Background(), "SELECT COUNT(*) FROM "+table)
	if err != nil {
		t.Fatalf("RawSQL() error = %v", err)
	}
	rows, err := cursor.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	return rows[0][0].(int64)
}

func TestCreateTableRequiresExactlyOneSource(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	s := schema.MustNew(schema.Field{Name: "id", Type: schema.Int64})
	f, err := frame.New(s, [][]any{{int64(1)}})
	if err != nil {
		t.Fatalf("frame.New() error = %v", err)
	}

	if err := client.CreateTable(ctx, "both", cluster.CreateTableOptions{Obj: f, Schema: &s}); !errors.Is(err, catalog.ErrInvalidArgument) {
		t.Fatalf("CreateTable(obj and schema) error = %v, want ErrInvalidArgument", err)
	}
	if err := client.CreateTable(ctx, "neither", cluster.CreateTableOptions{}); !errors.Is(err, catalog.ErrInvalidArgument) {
		t.Fatalf("CreateTable(neither) error = %v, want ErrInvalidArgument", err)
	}
	tables, err := client.ListTables(ctx, "", "")
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if len(tables) != 0 {
		t.Fatalf("tables = %v, want none", tables)
	}
}

func TestCreateTableWithSchemaRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	s := schema.MustNew(
		schema.Field{Name: "id", Type: schema.Int32},
		schema.Field{Name: "name", Type: schema.String},
		schema.Field{Name: "score", Type: schema.Float64},
		schema.Field{Name: "active", Type: schema.Boolean},
	)
	if err := client.CreateTable(ctx, "people", cluster.CreateTableOptions{Schema: &s}); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	if err := client.CreateTable(ctx, "people", cluster.CreateTableOptions{Schema: &s}); err == nil {
		t.Fatal("CreateTable() without force should fail on an existing table")
	}
	if err := client.CreateTable(ctx, "people", cluster.CreateTableOptions{Schema: &s, Force: true}); err != nil {
		t.Fatalf("CreateTable(force) error = %v", err)
	}

	table, err := client.Table(ctx, "people", "")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	if table.Name != `"main"."people"` {
		t.Fatalf("qualified name = %s", table.Name)
	}
	got := table.Schema()
	if !reflect.DeepEqual(got.Names(), s.Names()) {
		t.Fatalf("names = %v, want %v", got.Names(), s.Names())
	}
	for i, field := range got.Fields() {
		if field.Type.Kind != s.Fields()[i].Type.Kind {
			t.Fatalf("column %s kind = %s, want %s", field.Name, field.Type.Kind, s.Fields()[i].Type.Kind)
		}
	}

	if _, err := client.GetSchema(ctx, "people", "main"); !errors.Is(err, catalog.ErrUnsupportedArgument) {
		t.Fatalf("GetSchema(database) error = %v, want ErrUnsupportedArgument", err)
	}
	fetched, err := client.GetSchema(ctx, "people", "")
	if err != nil {
		t.Fatalf("GetSchema() error = %v", err)
	}
	if fetched.Len() != 4 {
		t.Fatalf("GetSchema() = %s", fetched)
	}
}

func TestCreateTableFromFrameAndExpression(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	f, err := frame.FromRecords([]string{"id", "name"}, [][]any{{int64(1), "ada"}, {int64(2), "grace"}, {int64(3), "linus"}})
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}
	if err := client.CreateTable(ctx, "people", cluster.CreateTableOptions{Obj: f}); err != nil {
		t.Fatalf("CreateTable(frame) error = %v", err)
	}
	if err := client.CreateTable(ctx, "people", cluster.CreateTableOptions{Obj: f, Format: "parquet"}); !errors.Is(err, catalog.ErrUnsupportedArgument) {
		t.Fatalf("CreateTable(frame, format) error = %v, want ErrUnsupportedArgument", err)
	}

	people, err := client.Table(ctx, "people", "")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	id, err := expr.Col(people, "id")
	if err != nil {
		t.Fatalf("Col() error = %v", err)
	}
	predicate, err := expr.Binary(">", id, expr.Lit(int64(1)))
	if err != nil {
		t.Fatalf("Binary() error = %v", err)
	}
	filtered, err := expr.Filter(people, predicate)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if err := client.CreateTable(ctx, "veterans", cluster.CreateTableOptions{Obj: filtered}); err != nil {
		t.Fatalf("CreateTable(expr) error = %v", err)
	}
	if got := countRows(t, client, "veterans"); got != 2 {
		t.Fatalf("veterans rows = %d, want 2", got)
	}
	if err := client.CreateTable(ctx, "veterans", cluster.CreateTableOptions{Obj: filtered, Force: true}); err != nil {
		t.Fatalf("CreateTable(expr, force) error = %v", err)
	}
	if got := countRows(t, client, "veterans"); got != 2 {
		t.Fatalf("veterans rows after forced create = %d, want 2", got)
	}
}

func TestInsertValidation(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	rawExec(t, client, "CREATE TABLE src (a INTEGER, b VARCHAR)")
	rawExec(t, client, "INSERT INTO src VALUES (1, 'x'), (2, 'y')")
	rawExec(t, client, "CREATE TABLE wide (a BIGINT, b VARCHAR)")
	rawExec(t, client, "CREATE TABLE texts (a VARCHAR, b VARCHAR)")
	rawExec(t, client, "CREATE TABLE others (a BIGINT, c VARCHAR)")

	source, err := client.Table(ctx, "src", "")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	if err := client.Insert(ctx, "wide", source, cluster.InsertOptions{Validate: true}); err != nil {
		t.Fatalf("Insert(int32 -> int64) error = %v", err)
	}
	if got := countRows(t, client, "wide"); got != 2 {
		t.Fatalf("wide rows = %d, want 2", got)
	}

	err = client.Insert(ctx, "texts", source, cluster.InsertOptions{Validate: true})
	var castErr *catalog.CastError
	if !errors.As(err, &castErr) || castErr.Column != "a" {
		t.Fatalf("Insert(int32 -> string) error = %v, want cast error on column a", err)
	}
	if got := countRows(t, client, "texts"); got != 0 {
		t.Fatalf("texts rows = %d after rejected insert", got)
	}

	if err := client.Insert(ctx, "others", source, cluster.InsertOptions{Validate: true}); !errors.Is(err, catalog.ErrSchemaMismatch) {
		t.Fatalf("Insert(name mismatch) error = %v, want ErrSchemaMismatch", err)
	}

	if err := client.Insert(ctx, "wide", source, cluster.InsertOptions{Overwrite: true}); err != nil {
		t.Fatalf("Insert(overwrite) error = %v", err)
	}
	if got := countRows(t, client, "wide"); got != 2 {
		t.Fatalf("wide rows after overwrite = %d, want 2", got)
	}
}

func TestTableInsertFrameSkipsValidation(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	rawExec(t, client, "CREATE TABLE texts (a VARCHAR, b VARCHAR)")
	table, err := client.Table(ctx, "texts", "")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}
	f, err := frame.FromRecords([]string{"b", "a"}, [][]any{{"x", int64(7)}})
	if err != nil {
		t.Fatalf("FromRecords() error = %v", err)
	}
	if err := table.Insert(ctx, f, cluster.InsertOptions{Validate: true}); err != nil {
		t.Fatalf("Insert(frame) error = %v", err)
	}
	result, err := client.Execute(ctx, table, cluster.Options{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Table.Len() != 1 || result.Table.Rows[0][0] != "7" || result.Table.Rows[0][1] != "x" {
		t.Fatalf("rows = %#v", result.Table.Rows)
	}
}

func TestRenameReturnsFreshHandle(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	rawExec(t, client, "CREATE TABLE old_name (id BIGINT)")
	old, err := client.Table(ctx, "old_name", "")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	renamed, err := old.Rename(ctx, "new_name")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if renamed.Name != `"main"."new_name"` || renamed.Info().Name != "new_name" {
		t.Fatalf("renamed handle = %s (%+v)", renamed.Name, renamed.Info())
	}
	if old.Name != `"main"."old_name"` {
		t.Fatalf("old handle was mutated: %s", old.Name)
	}
	if _, err := client.Execute(ctx, old, cluster.Options{}); err == nil {
		t.Fatal("Execute() on the old handle should fail")
	}
	if _, err := client.Execute(ctx, renamed, cluster.Options{}); err != nil {
		t.Fatalf("Execute() on the new handle error = %v", err)
	}
	if exists, err := client.ExistsTable(ctx, "old_name", ""); err != nil || exists {
		t.Fatalf("ExistsTable(old_name) = %v, %v", exists, err)
	}
}

func TestListTablesLikeIsAnchored(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	for _, name := range []string{"foo", "foobar", "barfoo"} {
		rawExec(t, client, fmt.Sprintf("CREATE TABLE %s (id INTEGER)", name))
	}
	got, err := client.ListTables(ctx, "foo.*", "")
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"foo", "foobar"}) {
		t.Fatalf("ListTables(foo.*) = %v", got)
	}
	if _, err := client.ListTables(ctx, "(", ""); !errors.Is(err, catalog.ErrInput) {
		t.Fatalf("ListTables(bad pattern) error = %v, want ErrInput", err)
	}

	databases, err := client.ListDatabases(ctx, "ma")
	if err != nil {
		t.Fatalf("ListDatabases() error = %v", err)
	}
	if !reflect.DeepEqual(databases, []string{"main"}) {
		t.Fatalf("ListDatabases(ma) = %v", databases)
	}
}

func TestExecuteDispatchesOnShape(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	rawExec(t, client, "CREATE TABLE people (id BIGINT, name VARCHAR)")
	rawExec(t, client, "INSERT INTO people VALUES (1, 'ada'), (2, 'grace')")
	people, err := client.Table(ctx, "people", "")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	result, err := client.Execute(ctx, people.Head(1), cluster.Options{})
	if err != nil {
		t.Fatalf("Execute(table) error = %v", err)
	}
	if result.Shape != expr.ShapeTable || result.Table.Len() != 1 {
		t.Fatalf("table result = %+v", result)
	}

	name, err := expr.Col(people, "name")
	if err != nil {
		t.Fatalf("Col() error = %v", err)
	}
	result, err = client.Execute(ctx, name, cluster.Options{})
	if err != nil {
		t.Fatalf("Execute(column) error = %v", err)
	}
	if result.Shape != expr.ShapeColumn || result.Column.Name != "name" || !reflect.DeepEqual(result.Column.Values, []any{"ada", "grace"}) {
		t.Fatalf("column result = %+v", result.Column)
	}

	result, err = client.Execute(ctx, expr.Count(people), cluster.Options{})
	if err != nil {
		t.Fatalf("Execute(count) error = %v", err)
	}
	if result.Shape != expr.ShapeScalar || result.Scalar != int64(2) {
		t.Fatalf("count = %#v", result.Scalar)
	}

	sum, err := expr.Binary("+", expr.Lit(int64(40)), expr.Lit(int64(2)))
	if err != nil {
		t.Fatalf("Binary() error = %v", err)
	}
	result, err = client.Execute(ctx, sum, cluster.Options{})
	if err != nil {
		t.Fatalf("Execute(literal) error = %v", err)
	}
	if fmt.Sprint(result.Scalar) != "42" {
		t.Fatalf("literal scalar = %#v", result.Scalar)
	}

	limit := expr.NewParam("limit", schema.Int64)
	threshold, err := expr.Binary("<=", mustCol(t, people, "id"), limit)
	if err != nil {
		t.Fatalf("Binary() error = %v", err)
	}
	filtered, err := expr.Filter(people, threshold)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	result, err = client.Execute(ctx, filtered, cluster.Options{Params: map[*expr.Param]any{limit: int64(1)}})
	if err != nil {
		t.Fatalf("Execute(params) error = %v", err)
	}
	if result.Table.Len() != 1 {
		t.Fatalf("parameterized rows = %d", result.Table.Len())
	}

	if _, err := client.Execute(ctx, nil, cluster.Options{}); !errors.Is(err, catalog.ErrInvalidExpression) {
		t.Fatalf("Execute(nil) error = %v", err)
	}
}

func TestExecuteAppliesTimeContextInSessionZone(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "America/New_York")
	rawExec(t, client, `CREATE TABLE events ("time" TIMESTAMP, v BIGINT)`)
	rawExec(t, client, `INSERT INTO events VALUES (TIMESTAMP '2024-01-01 06:00:00', 1), (TIMESTAMP '2024-01-02 06:00:00', 2)`)
	events, err := client.Table(ctx, "events", "")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	result, err := client.Execute(ctx, events, cluster.Options{TimeContext: &cluster.TimeRange{Begin: "2024-01-01", End: "2024-01-01 12:00"}})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Table.Len() != 1 {
		t.Fatalf("rows in time context = %d, want 1", result.Table.Len())
	}
	value, err := result.Table.Value(0, "v")
	if err != nil || value != int64(1) {
		t.Fatalf("v = %#v, %v", value, err)
	}

	if _, err := client.Execute(ctx, events, cluster.Options{TimeContext: &cluster.TimeRange{Begin: "2024-01-02", End: "2024-01-01"}}); !errors.Is(err, catalog.ErrInput) {
		t.Fatalf("Execute(inverted range) error = %v, want ErrInput", err)
	}
}

func TestTableLookupWrapsCatalogMiss(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	_, err := client.Table(ctx, "missing", "")
	if !errors.Is(err, catalog.ErrInput) || !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("Table(missing) error = %v, want input error wrapping not found", err)
	}
	exists, err := client.ExistsTable(ctx, "missing", "")
	if err != nil || exists {
		t.Fatalf("ExistsTable(missing) = %v, %v", exists, err)
	}
	if _, err := client.Database(ctx, "nowhere"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("Database(nowhere) error = %v", err)
	}
}

func TestDatabaseLifecycle(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	if err := client.CreateDatabase(ctx, "staging", "", false); err != nil {
		t.Fatalf("CreateDatabase() error = %v", err)
	}
	if err := client.CreateDatabase(ctx, "staging", "", true); err != nil {
		t.Fatalf("CreateDatabase(force) error = %v", err)
	}
	if err := client.CreateDatabase(ctx, "elsewhere", "/tmp/x", false); !errors.Is(err, catalog.ErrUnsupportedArgument) {
		t.Fatalf("CreateDatabase(path) error = %v", err)
	}
	exists, err := client.ExistsDatabase(ctx, "staging")
	if err != nil || !exists {
		t.Fatalf("ExistsDatabase(staging) = %v, %v", exists, err)
	}

	db, err := client.Database(ctx, "staging")
	if err != nil {
		t.Fatalf("Database() error = %v", err)
	}
	s := schema.MustNew(schema.Field{Name: "id", Type: schema.Int64})
	if err := db.CreateTable(ctx, "items", cluster.CreateTableOptions{Schema: &s}); err != nil {
		t.Fatalf("Database.CreateTable() error = %v", err)
	}
	tables, err := db.ListTables(ctx, "")
	if err != nil || !reflect.DeepEqual(tables, []string{"items"}) {
		t.Fatalf("Database.ListTables() = %v, %v", tables, err)
	}
	table, err := db.Table(ctx, "items")
	if err != nil {
		t.Fatalf("Database.Table() error = %v", err)
	}
	if table.Database() != "staging" {
		t.Fatalf("table database = %s", table.Database())
	}

	if err := client.SetDatabase(ctx, "staging"); err != nil {
		t.Fatalf("SetDatabase() error = %v", err)
	}
	current, err := client.CurrentDatabase(ctx)
	if err != nil || current != "staging" {
		t.Fatalf("CurrentDatabase() = %q, %v", current, err)
	}
	if err := client.SetDatabase(ctx, "main"); err != nil {
		t.Fatalf("SetDatabase(main) error = %v", err)
	}

	if err := client.DropDatabase(ctx, "staging", false); err == nil {
		t.Fatal("DropDatabase() without force should fail on a non-empty database")
	}
	if err := db.Drop(ctx, true); err != nil {
		t.Fatalf("Drop(force) error = %v", err)
	}
	if err := client.DropDatabase(ctx, "staging", true); err != nil {
		t.Fatalf("DropDatabase(force, missing) error = %v", err)
	}
}

func TestViewsAndDrops(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	rawExec(t, client, "CREATE TABLE people (id BIGINT, name VARCHAR)")
	rawExec(t, client, "INSERT INTO people VALUES (1, 'ada'), (2, 'grace')")
	people, err := client.Table(ctx, "people", "")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	if err := client.CreateView(ctx, "first_person", people.Head(1), cluster.ViewOptions{}); err != nil {
		t.Fatalf("CreateView() error = %v", err)
	}
	if err := client.CreateView(ctx, "first_person", people.Head(1), cluster.ViewOptions{}); err == nil {
		t.Fatal("CreateView() without force should fail on an existing view")
	}
	if err := client.CreateView(ctx, "first_person", people, cluster.ViewOptions{Force: true}); err != nil {
		t.Fatalf("CreateView(force) error = %v", err)
	}
	view, err := client.Table(ctx, "first_person", "")
	if err != nil {
		t.Fatalf("Table(view) error = %v", err)
	}
	if !view.Info().IsView() {
		t.Fatalf("info = %+v, want a view", view.Info())
	}
	if got := countRows(t, client, "first_person"); got != 2 {
		t.Fatalf("view rows = %d", got)
	}

	if err := client.DropTableOrView(ctx, "first_person", "", false); err != nil {
		t.Fatalf("DropTableOrView(view) error = %v", err)
	}
	if err := client.DropTableOrView(ctx, "first_person", "", false); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("DropTableOrView(missing) error = %v", err)
	}
	if err := client.DropTableOrView(ctx, "first_person", "", true); err != nil {
		t.Fatalf("DropTableOrView(missing, force) error = %v", err)
	}

	if err := people.Truncate(ctx); err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	if got := countRows(t, client, "people"); got != 0 {
		t.Fatalf("rows after truncate = %d", got)
	}
	if err := people.ComputeStats(ctx, true); !errors.Is(err, catalog.ErrUnsupportedArgument) {
		t.Fatalf("ComputeStats(noscan) error = %v", err)
	}
	if err := people.Alter(ctx, cluster.AlterOptions{Location: "s3://x"}); !errors.Is(err, catalog.ErrUnsupportedArgument) {
		t.Fatalf("Alter(location) error = %v", err)
	}
	if err := people.Drop(ctx); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if err := client.DropTable(ctx, "people", "", true); err != nil {
		t.Fatalf("DropTable(force) error = %v", err)
	}
	if err := client.DropTable(ctx, "people", "", false); err == nil {
		t.Fatal("DropTable() should fail on a missing table")
	}
}

func TestRawSQLCursor(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")

	cursor, err := client.RawSQL(ctx, "SELECT * FROM not_yet_created")
	if err != nil {
		t.Fatalf("RawSQL() error = %v, queries should run on fetch", err)
	}
	rawExec(t, client, "CREATE TABLE not_yet_created (id BIGINT, label VARCHAR)")
	rawExec(t, client, "INSERT INTO not_yet_created VALUES (1, 'one')")

	description, err := cursor.Description(ctx)
	if err != nil {
		t.Fatalf("Description() error = %v", err)
	}
	if len(description) != 2 || description[0].Name != "id" || description[0].TypeCode != "BIGINT" {
		t.Fatalf("description = %+v", description)
	}
	rows, err := cursor.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(rows) != 1 || rows[0][1] != "one" {
		t.Fatalf("rows = %#v", rows)
	}
	if _, err := cursor.FetchAll(ctx); !errors.Is(err, catalog.ErrInput) {
		t.Fatalf("second FetchAll() error = %v, want ErrInput", err)
	}

	typed, err := client.RawSQL(ctx, "SELECT id, label FROM not_yet_created")
	if err != nil {
		t.Fatalf("RawSQL() error = %v", err)
	}
	f, err := client.FetchFromCursor(ctx, typed, schema.Schema{})
	if err != nil {
		t.Fatalf("FetchFromCursor() error = %v", err)
	}
	if f.Len() != 1 || !reflect.DeepEqual(f.Columns(), []string{"id", "label"}) {
		t.Fatalf("frame = %+v", f)
	}
}

func TestCreateTableFromCSV(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "people.csv", []byte("id,name\n1,ada\n2,grace\n"))

	s, err := client.SchemaFromCSV(ctx, path, engine.DefaultCSVOptions())
	if err != nil {
		t.Fatalf("SchemaFromCSV() error = %v", err)
	}
	if typ, _ := s.Lookup("id"); typ.Kind != schema.KindInt64 {
		t.Fatalf("inferred schema = %s", s)
	}

	if err := client.CreateTableFromCSV(ctx, "people", path, cluster.CSVTableOptions{CSV: engine.DefaultCSVOptions()}); err != nil {
		t.Fatalf("CreateTableFromCSV() error = %v", err)
	}
	if err := client.CreateTableFromCSV(ctx, "people", path, cluster.CSVTableOptions{CSV: engine.DefaultCSVOptions(), Force: true}); err != nil {
		t.Fatalf("CreateTableFromCSV(force) error = %v", err)
	}
	if got := countRows(t, client, "people"); got != 2 {
		t.Fatalf("rows = %d", got)
	}
	if err := client.CreateTableFromCSV(ctx, "people_view", path, cluster.CSVTableOptions{CSV: engine.DefaultCSVOptions(), TempView: true}); err != nil {
		t.Fatalf("CreateTableFromCSV(temp view) error = %v", err)
	}
	if got := countRows(t, client, "people_view"); got != 2 {
		t.Fatalf("view rows = %d", got)
	}
}

func TestCloseTwice(t *testing.T) {
	client, err := cluster.Connect(context.Background(), engine.Config{Type: duckdb.Name, TimeZone: "UTC"}, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := client.Close(); !errors.Is(err, catalog.ErrClosed) {
		t.Fatalf("second Close() error = %v, want ErrClosed", err)
	}
	if _, err := client.Table(context.Background(), "x", ""); !errors.Is(err, catalog.ErrClosed) {
		t.Fatalf("Table() after close error = %v, want ErrClosed", err)
	}
}

func TestInsertOverwriteKeepsRowsOnFailure(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	rawExec(t, client, "CREATE TABLE dst (a INTEGER)")
	rawExec(t, client, "INSERT INTO dst VALUES (1), (2)")
	rawExec(t, client, "CREATE TABLE raw_input (a VARCHAR)")
	rawExec(t, client, "INSERT INTO raw_input VALUES ('x')")
	source, err := client.Table(ctx, "raw_input", "")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	if err := client.Insert(ctx, "dst", source, cluster.InsertOptions{Overwrite: true}); err == nil {
		t.Fatal("Insert(overwrite) expected conversion error")
	}
	if got := countRows(t, client, "dst"); got != 2 {
		t.Fatalf("dst rows after failed overwrite = %d, want 2", got)
	}

	rawExec(t, client, "UPDATE raw_input SET a = '5'")
	if err := client.Insert(ctx, "dst", source, cluster.InsertOptions{Overwrite: true}); err != nil {
		t.Fatalf("Insert(overwrite) error = %v", err)
	}
	if got := countRows(t, client, "dst"); got != 1 {
		t.Fatalf("dst rows after overwrite = %d, want 1", got)
	}
}

func TestTemporaryViewsResolveLikeTables(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	path := testutil.WriteFile(t, t.TempDir(), "people.csv", []byte("id,name\n1,ada\n2,grace\n"))

	if err := client.CreateTableFromCSV(ctx, "people_view", path, cluster.CSVTableOptions{CSV: engine.DefaultCSVOptions(), TempView: true}); err != nil {
		t.Fatalf("CreateTableFromCSV(temp view) error = %v", err)
	}
	view, err := client.Table(ctx, "people_view", "")
	if err != nil {
		t.Fatalf("Table(people_view) error = %v", err)
	}
	if !view.Info().Temporary || !view.Info().IsView() {
		t.Fatalf("info = %+v, want a temporary view", view.Info())
	}
	result, err := client.Execute(ctx, view, cluster.Options{})
	if err != nil {
		t.Fatalf("Execute(view) error = %v", err)
	}
	if result.Table.Len() != 2 {
		t.Fatalf("view rows = %d", result.Table.Len())
	}
	if exists, err := client.ExistsTable(ctx, "people_view", ""); err != nil || !exists {
		t.Fatalf("ExistsTable(people_view) = %v, %v", exists, err)
	}
	names, err := client.ListTables(ctx, "people", "")
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if !reflect.DeepEqual(names, []string{"people_view"}) {
		t.Fatalf("ListTables() = %v", names)
	}

	if err := client.CreateView(ctx, "adults", view, cluster.ViewOptions{Temporary: true}); err != nil {
		t.Fatalf("CreateView(temporary) error = %v", err)
	}
	if _, err := client.Table(ctx, "adults", ""); err != nil {
		t.Fatalf("Table(adults) error = %v", err)
	}
	if err := client.DropTableOrView(ctx, "adults", "", false); err != nil {
		t.Fatalf("DropTableOrView(adults) error = %v", err)
	}
	if exists, err := client.ExistsTable(ctx, "adults", ""); err != nil || exists {
		t.Fatalf("ExistsTable(adults) after drop = %v, %v", exists, err)
	}
}

func TestRenameToQualifiedNameKeepsBareInfo(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	rawExec(t, client, "CREATE TABLE draft (id BIGINT)")
	draft, err := client.Table(ctx, "draft", "")
	if err != nil {
		t.Fatalf("Table() error = %v", err)
	}

	final, err := draft.Rename(ctx, `"main"."final"`)
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if info := final.Info(); info.Name != "final" || info.Database != "main" {
		t.Fatalf("renamed info = %+v", info)
	}
	if final.Name != `"main"."final"` {
		t.Fatalf("renamed handle = %s", final.Name)
	}
	if err := final.Truncate(ctx); err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	if exists, err := client.ExistsTable(ctx, "final", "main"); err != nil || !exists {
		t.Fatalf("ExistsTable(final) = %v, %v", exists, err)
	}
}

func TestCursorDescribesExplain(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")

	cursor, err := client.RawSQL(ctx, "EXPLAIN SELECT 1")
	if err != nil {
		t.Fatalf("RawSQL() error = %v", err)
	}
	columns, err := cursor.Columns(ctx)
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	description, err := cursor.Description(ctx)
	if err != nil {
		t.Fatalf("Description() error = %v", err)
	}
	if len(columns) == 0 || len(description) != len(columns) {
		t.Fatalf("columns = %v, description = %+v", columns, description)
	}
	rows, err := cursor.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(rows) == 0 || len(rows[0]) != len(columns) {
		t.Fatalf("rows = %#v", rows)
	}
}

func TestExecuteZonedLiteralKeepsInstant(t *testing.T) {
	ctx := context.Background()
	client := openClient(t, "UTC")
	noon := time.Date(2024, 1, 1, 12, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60))

	result, err := client.Execute(ctx, expr.Lit(noon), cluster.Options{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	got, ok := result.Scalar.(time.Time)
	if !ok {
		t.Fatalf("scalar = %#v, want time.Time", result.Scalar)
	}
	if !got.Equal(noon) {
		t.Fatalf("scalar = %s, want %s", got.UTC(), noon.UTC())
	}
}

func mustCol(t *testing.T, table expr.TableExpr, name string) *expr.ColumnRef {
	t.Helper()
	col, err := expr.Col(table, name)
	if err != nil {
		t.Fatalf("Col(%s) error = %v", name, err)
	}
	return col
}
