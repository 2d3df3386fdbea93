package sqlite

import (
	"context"
	"testing"

	"github.com/tessera-db/tessera"
)

func openTestDB(t *testing.T) *Conn {
	t.Helper()
	if err := ensureLoaded(); err != nil {
		t.Skipf("libsqlite3 not available: %v", err)
	}
	conn, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func mustExec(t *testing.T, conn *Conn, sql string) {
	t.Helper()
	if _, err := conn.Execute(context.Background(), sql, nil); err != nil {
		t.Fatalf("Execute %q: %v", sql, err)
	}
}

func TestOpenAndQuery(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	res, err := conn.Query(ctx, "SELECT 1, 'hello', 2.5, NULL", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.RowCount() != 1 || res.ColumnCount() != 4 {
		t.Fatalf("got %d rows, %d columns", res.RowCount(), res.ColumnCount())
	}
	row := res.Rows[0]
	if v, _ := row.Get(0); v.Kind() != tessera.KindInt64 {
		t.Errorf("column 0 kind = %v", v.Kind())
	}
	if v, _ := row.Get(1); v.Text() != "hello" {
		t.Errorf("column 1 = %q", v.Text())
	}
	if v, _ := row.Get(2); v.Float64Value() != 2.5 {
		t.Errorf("column 2 = %v", v.Float64Value())
	}
	if v, _ := row.Get(3); !v.IsNull() {
		t.Errorf("column 3 should be NULL")
	}
}

func TestQueryZeroRowsKeepsColumns(t *testing.T) {
	conn := openTestDB(t)
	mustExec(t, conn, "CREATE TABLE t (a INTEGER, b TEXT)")

	res, err := conn.Query(context.Background(), "SELECT a, b FROM t", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.RowCount() != 0 {
		t.Fatalf("expected zero rows, got %d", res.RowCount())
	}
	if res.ColumnCount() != 2 {
		t.Fatalf("expected 2 columns, got %d", res.ColumnCount())
	}
	if res.Columns[0].Name != "a" || res.Columns[1].Name != "b" {
		t.Errorf("column names = %v", res.ColumnNames())
	}
}

func TestBindParameters(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	mustExec(t, conn, "CREATE TABLE t (i INTEGER, f REAL, s TEXT, b BLOB, n TEXT)")

	_, err := conn.Execute(ctx, "INSERT INTO t VALUES (?, ?, ?, ?, ?)", []tessera.Value{
		tessera.Int64(42),
		tessera.Float64(3.5),
		tessera.String("hi"),
		tessera.Bytes([]byte{1, 2, 3}),
		tessera.Null(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	res, err := conn.Query(ctx, "SELECT i, f, s, b, n FROM t", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	row := res.Rows[0]
	if v, _ := row.Get(0); v.Int64Value() != 42 {
		t.Errorf("i = %v", v.Int64Value())
	}
	if v, _ := row.Get(3); string(v.BytesValue()) != "\x01\x02\x03" {
		t.Errorf("b = %v", v.BytesValue())
	}
	if v, _ := row.Get(4); !v.IsNull() {
		t.Errorf("n should be NULL")
	}
}

func TestBindParameterCountMismatch(t *testing.T) {
	conn := openTestDB(t)
	_, err := conn.Query(context.Background(), "SELECT ?", nil)
	if err == nil {
		t.Fatal("expected error for missing parameter")
	}
	if !tessera.IsError(err, tessera.ErrQuery) {
		t.Errorf("expected ErrQuery, got %v", err)
	}
}

func TestExecuteAffectedRows(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	mustExec(t, conn, "CREATE TABLE t (a INTEGER)")
	mustExec(t, conn, "INSERT INTO t VALUES (1), (2), (3)")

	res, err := conn.Execute(ctx, "UPDATE t SET a = a + 1 WHERE a > 1", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.AffectedRows != 2 {
		t.Errorf("AffectedRows = %d, want 2", res.AffectedRows)
	}
}

func TestTransactionCommit(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	mustExec(t, conn, "CREATE TABLE t (a INTEGER)")

	tx, err := conn.BeginTransaction(ctx)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if _, err := tx.Execute(ctx, "INSERT INTO t VALUES (1)", nil); err != nil {
		t.Fatalf("Execute in tx: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	res, err := conn.Query(ctx, "SELECT COUNT(*) FROM t", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if v, _ := res.Rows[0].Get(0); v.Int64Value() != 1 {
		t.Errorf("count = %v, want 1", v.Int64Value())
	}
}

func TestTransactionRollback(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	mustExec(t, conn, "CREATE TABLE t (a INTEGER)")

	tx, err := conn.BeginTransaction(ctx)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if _, err := tx.Execute(ctx, "INSERT INTO t VALUES (1)", nil); err != nil {
		t.Fatalf("Execute in tx: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	res, err := conn.Query(ctx, "SELECT COUNT(*) FROM t", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if v, _ := res.Rows[0].Get(0); v.Int64Value() != 0 {
		t.Errorf("count = %v, want 0", v.Int64Value())
	}
}

func TestTransactionDoubleCommit(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	tx, err := conn.BeginTransaction(ctx)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := tx.Commit(ctx); err == nil {
		t.Fatal("second Commit should fail")
	}
	if err := tx.Rollback(ctx); err == nil {
		t.Fatal("Rollback after Commit should fail")
	}
}

func TestTransactionCloseRollsBack(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	mustExec(t, conn, "CREATE TABLE t (a INTEGER)")

	tx, err := conn.BeginTransaction(ctx)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if _, err := tx.Execute(ctx, "INSERT INTO t VALUES (1)", nil); err != nil {
		t.Fatalf("Execute in tx: %v", err)
	}
	if err := tx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The guard must be free again and the insert gone.
	res, err := conn.Query(ctx, "SELECT COUNT(*) FROM t", nil)
	if err != nil {
		t.Fatalf("Query after Close: %v", err)
	}
	if v, _ := res.Rows[0].Get(0); v.Int64Value() != 0 {
		t.Errorf("count = %v, want 0", v.Int64Value())
	}
}

func TestUpdateCell(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	mustExec(t, conn, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
	mustExec(t, conn, "INSERT INTO users VALUES (1, 'alice'), (2, 'bob')")

	newName := tessera.String("carol")
	affected, err := conn.UpdateCell(ctx, tessera.CellUpdateRequest{
		TableName:  "users",
		ColumnName: "name",
		NewValue:   &newName,
		Row:        tessera.PrimaryKey{{Column: "id", Value: tessera.Int64(2)}},
	})
	if err != nil {
		t.Fatalf("UpdateCell: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected = %d, want 1", affected)
	}

	res, err := conn.Query(ctx, "SELECT name FROM users WHERE id = 2", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if v, _ := res.Rows[0].Get(0); v.Text() != "carol" {
		t.Errorf("name = %q, want carol", v.Text())
	}
}

func TestUpdateCellRowIndexRejected(t *testing.T) {
	conn := openTestDB(t)
	newName := tessera.String("x")
	_, err := conn.UpdateCell(context.Background(), tessera.CellUpdateRequest{
		TableName:  "users",
		ColumnName: "name",
		NewValue:   &newName,
		Row:        tessera.RowIndex(3),
	})
	if !tessera.IsError(err, tessera.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}

func TestClosedConnectionRejectsOperations(t *testing.T) {
	conn := openTestDB(t)
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !conn.Closed() {
		t.Fatal("Closed() should be true")
	}
	if _, err := conn.Query(context.Background(), "SELECT 1", nil); !tessera.IsError(err, tessera.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
	// Close is idempotent.
	if err := conn.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestIntrospection(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	mustExec(t, conn, `CREATE TABLE authors (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)
	mustExec(t, conn, `CREATE TABLE books (
		id INTEGER PRIMARY KEY,
		author_id INTEGER NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
		title TEXT NOT NULL DEFAULT 'untitled'
	)`)
	mustExec(t, conn, "CREATE UNIQUE INDEX idx_books_title ON books (title)")
	mustExec(t, conn, "CREATE TRIGGER trg_books AFTER INSERT ON books BEGIN UPDATE books SET title = title; END")

	intro := conn.SchemaIntrospection()

	tables, err := intro.ListTables(ctx, "")
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("got %d tables, want 2", len(tables))
	}

	cols, err := intro.Columns(ctx, "", "books")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if len(cols) != 3 {
		t.Fatalf("got %d columns, want 3", len(cols))
	}
	if !cols[0].AutoIncrement {
		t.Error("id should be auto-increment")
	}
	if cols[1].Nullable {
		t.Error("author_id should be NOT NULL")
	}
	if cols[2].DefaultValue == nil {
		t.Error("title should have a default")
	}

	idx, err := intro.Indexes(ctx, "", "books")
	if err != nil {
		t.Fatalf("Indexes: %v", err)
	}
	found := false
	for _, i := range idx {
		if i.Name == "idx_books_title" {
			found = true
			if !i.Unique {
				t.Error("idx_books_title should be unique")
			}
			if len(i.Columns) != 1 || i.Columns[0] != "title" {
				t.Errorf("index columns = %v", i.Columns)
			}
		}
	}
	if !found {
		t.Error("idx_books_title not listed")
	}

	fks, err := intro.ForeignKeys(ctx, "", "books")
	if err != nil {
		t.Fatalf("ForeignKeys: %v", err)
	}
	if len(fks) != 1 {
		t.Fatalf("got %d foreign keys, want 1", len(fks))
	}
	if fks[0].ReferencedTable != "authors" || fks[0].OnDelete != "CASCADE" {
		t.Errorf("fk = %+v", fks[0])
	}

	pk, err := intro.PrimaryKey(ctx, "", "books")
	if err != nil {
		t.Fatalf("PrimaryKey: %v", err)
	}
	if pk == nil || len(pk.Columns) != 1 || pk.Columns[0] != "id" {
		t.Errorf("pk = %+v", pk)
	}

	trgs, err := intro.Triggers(ctx, "", "books")
	if err != nil {
		t.Fatalf("Triggers: %v", err)
	}
	if len(trgs) != 1 || trgs[0].Timing != "AFTER" || trgs[0].Event != "INSERT" {
		t.Errorf("triggers = %+v", trgs)
	}

	details, err := intro.TableDetails(ctx, "", "books")
	if err != nil {
		t.Fatalf("TableDetails: %v", err)
	}
	if details.Table.Name != "books" || len(details.Columns) != 3 {
		t.Errorf("details = %+v", details.Table)
	}

	if _, err := intro.TableDetails(ctx, "", "nope"); !tessera.IsError(err, tessera.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBrowseWithTableService(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	mustExec(t, conn, "CREATE TABLE nums (n INTEGER PRIMARY KEY)")
	for i := 1; i <= 25; i++ {
		if _, err := conn.Execute(ctx, "INSERT INTO nums VALUES (?)", []tessera.Value{tessera.Int64(int64(i))}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	svc := tessera.NewTableService(0)
	res, err := svc.BrowseTable(ctx, conn, "nums", "", 10, 0)
	if err != nil {
		t.Fatalf("BrowseTable: %v", err)
	}
	if res.RowCount() != 10 {
		t.Errorf("got %d rows, want 10", res.RowCount())
	}
	if res.TotalRows == nil || *res.TotalRows != 25 {
		t.Errorf("TotalRows = %v, want 25", res.TotalRows)
	}
	if res.IsEstimatedTotal {
		t.Error("sqlite counts must be exact")
	}

	last, err := svc.BrowseLastPage(ctx, conn, tessera.BrowseRequest{
		Table: "nums",
		Limit: 10,
	}, []string{"n"})
	if err != nil {
		t.Fatalf("BrowseLastPage: %v", err)
	}
	if last.RowCount() != 10 {
		t.Fatalf("last page rows = %d, want 10", last.RowCount())
	}
	if v, _ := last.Rows[0].Get(0); v.Int64Value() != 16 {
		t.Errorf("last page first row = %v, want 16", v.Int64Value())
	}
	if v, _ := last.Rows[9].Get(0); v.Int64Value() != 25 {
		t.Errorf("last page last row = %v, want 25", v.Int64Value())
	}
}

func TestLibVersion(t *testing.T) {
	version, err := LibVersion()
	if err != nil {
		t.Skipf("libsqlite3 not available: %v", err)
	}
	if version == "" {
		t.Fatal("version is empty")
	}
}
