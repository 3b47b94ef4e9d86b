package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/duckmesh/duckframe/internal/catalog"
	"github.com/duckmesh/duckframe/internal/engine"
)

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), engine.Config{Type: Name}, nil)
	if err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestListDatabasesSkipsSystemSchemas(t *testing.T) {
	session, mock := newSession(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.schemata")).
		WillReturnRows(sqlmock.NewRows([]string{"schema_name"}).AddRow("sales").AddRow("public"))

	names, err := session.ListDatabases(context.Background())
	if err != nil {
		t.Fatalf("ListDatabases() error = %v", err)
	}
	if len(names) != 2 || names[0] != "public" || names[1] != "sales" {
		t.Fatalf("names = %v", names)
	}
	assertSQLMock(t, mock)
}

func TestLookupTableDefaultsToCurrentSchema(t *testing.T) {
	session, mock := newSession(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT current_schema()")).
		WillReturnRows(sqlmock.NewRows([]string{"current_schema"}).AddRow("public"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name", "table_type"}).
			AddRow("public", "Events", "BASE TABLE").
			AddRow("public", "recent_events", "VIEW"))

	info, err := session.LookupTable(context.Background(), "events", "")
	if err != nil {
		t.Fatalf("LookupTable() error = %v", err)
	}
	if info.Name != "Events" || info.Database != "public" || info.Type != catalog.TableTypeBase {
		t.Fatalf("info = %#v", info)
	}
	assertSQLMock(t, mock)
}

func TestLookupTableMissing(t *testing.T) {
	session, mock := newSession(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WithArgs("sales").
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name", "table_type"}))

	_, err := session.LookupTable(context.Background(), `"sales"."orders"`, "")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("LookupTable() error = %v, want ErrNotFound", err)
	}
	assertSQLMock(t, mock)
}

func TestLookupTablePrefersExactCase(t *testing.T) {
	session, mock := newSession(t)
	tables := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"table_schema", "table_name", "table_type"}).
			AddRow("public", "Foo", "BASE TABLE").
			AddRow("public", "foo", "VIEW")
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).WithArgs("public").WillReturnRows(tables())
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).WithArgs("public").WillReturnRows(tables())

	info, err := session.LookupTable(context.Background(), "foo", "public")
	if err != nil {
		t.Fatalf("LookupTable(foo) error = %v", err)
	}
	if info.Name != "foo" || !info.IsView() {
		t.Fatalf("LookupTable(foo) = %#v, want the exact match", info)
	}
	info, err = session.LookupTable(context.Background(), "FOO", "public")
	if err != nil {
		t.Fatalf("LookupTable(FOO) error = %v", err)
	}
	if info.Name != "Foo" {
		t.Fatalf("LookupTable(FOO) = %#v, want the first case-insensitive match", info)
	}
	assertSQLMock(t, mock)
}

func TestInTxRollsBackWhenAStatementFails(t *testing.T) {
	session, mock := newSession(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`TRUNCATE TABLE "public"."events"`)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "public"."events"`)).WillReturnError(errors.New("invalid input syntax for type integer"))
	mock.ExpectRollback()

	err := session.InTx(context.Background(), func(ctx context.Context) error {
		if err := session.Exec(ctx, `TRUNCATE TABLE "public"."events"`); err != nil {
			return err
		}
		return session.Exec(ctx, `INSERT INTO "public"."events" SELECT * FROM "public"."staged"`)
	})
	if err == nil {
		t.Fatal("InTx() expected error")
	}
	assertSQLMock(t, mock)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "public"."events"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	if err := session.InTx(context.Background(), func(ctx context.Context) error {
		return session.Exec(ctx, `DELETE FROM "public"."events"`)
	}); err != nil {
		t.Fatalf("InTx() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestSetDatabaseChecksCatalogThenSetsSearchPath(t *testing.T) {
	session, mock := newSession(t)
	schemas := func() *sqlmock.Rows { return sqlmock.NewRows([]string{"schema_name"}).AddRow("public") }
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.schemata")).WillReturnRows(schemas())
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.schemata")).WillReturnRows(schemas())
	mock.ExpectExec(regexp.QuoteMeta(`SET search_path TO "public"`)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := session.SetDatabase(context.Background(), "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("SetDatabase(missing) error = %v", err)
	}
	if err := session.SetDatabase(context.Background(), "public"); err != nil {
		t.Fatalf("SetDatabase() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestTimeZoneReadsSessionSetting(t *testing.T) {
	session, mock := newSession(t)
	mock.ExpectQuery(regexp.QuoteMeta("SHOW TIMEZONE")).
		WillReturnRows(sqlmock.NewRows([]string{"TimeZone"}).AddRow("Europe/Berlin"))

	zone, err := session.TimeZone(context.Background())
	if err != nil {
		t.Fatalf("TimeZone() error = %v", err)
	}
	if zone != "Europe/Berlin" {
		t.Fatalf("zone = %q", zone)
	}
	assertSQLMock(t, mock)
}

func TestSQLRunsCommandsAndDefersQueries(t *testing.T) {
	session, mock := newSession(t)
	mock.ExpectExec(regexp.QuoteMeta(`TRUNCATE TABLE "public"."events"`)).WillReturnResult(sqlmock.NewResult(0, 3))

	rel, err := session.SQL(context.Background(), "SELECT * FROM events")
	if err != nil {
		t.Fatalf("SQL(query) error = %v", err)
	}
	if rel.IsCommand() {
		t.Fatal("SELECT should be a lazy query")
	}
	cmd, err := session.SQL(context.Background(), `TRUNCATE TABLE "public"."events";`)
	if err != nil {
		t.Fatalf("SQL(command) error = %v", err)
	}
	if !cmd.IsCommand() {
		t.Fatal("TRUNCATE should run as a command")
	}
	assertSQLMock(t, mock)
}

func TestReadCSVIsUnsupported(t *testing.T) {
	session, _ := newSession(t)
	_, err := session.ReadCSV(context.Background(), []string{"a.csv"}, engine.DefaultCSVOptions())
	if !errors.Is(err, catalog.ErrUnsupportedArgument) {
		t.Fatalf("ReadCSV() error = %v", err)
	}
}

func newSession(t *testing.T) (*engine.Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMock(t)
	session, err := engine.NewSession(context.Background(), db, Dialect{}, nil)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return session, mock
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
