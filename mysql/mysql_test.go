package mysql

import (
	"context"
	"os"
	"reflect"
	"testing"
)

func TestParseEnumValues(t *testing.T) {
	cases := []struct {
		columnType string
		want       []string
	}{
		{"enum('small','medium','large')", []string{"small", "medium", "large"}},
		{"set('a','b')", []string{"a", "b"}},
		{"enum('it''s')", []string{"it's"}},
		{"int", nil},
	}
	for _, tc := range cases {
		if got := parseEnumValues(tc.columnType); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parseEnumValues(%q) = %v, want %v", tc.columnType, got, tc.want)
		}
	}
}

// Integration coverage needs a live server; set TESSERA_MYSQL_DSN to run.
func openTestConn(t *testing.T) *Conn {
	t.Helper()
	dsn := os.Getenv("TESSERA_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TESSERA_MYSQL_DSN not set")
	}
	conn, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestQueryRoundTrip(t *testing.T) {
	conn := openTestConn(t)
	ctx := context.Background()

	res, err := conn.Query(ctx, "SELECT 1, 'hello', NULL", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.RowCount() != 1 || res.ColumnCount() != 3 {
		t.Fatalf("got %d rows, %d columns", res.RowCount(), res.ColumnCount())
	}
	if v, _ := res.Rows[0].Get(1); v.Text() != "hello" {
		t.Errorf("column 1 = %q", v.Text())
	}
	if v, _ := res.Rows[0].Get(2); !v.IsNull() {
		t.Error("column 2 should be NULL")
	}
}

func TestConnectionIDCaptured(t *testing.T) {
	conn := openTestConn(t)
	if conn.connID == 0 {
		t.Fatal("connection id not captured")
	}
}

func TestTransactionRollbackIntegration(t *testing.T) {
	conn := openTestConn(t)
	ctx := context.Background()

	if _, err := conn.Execute(ctx, "CREATE TEMPORARY TABLE tx_probe (a INT)", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	tx, err := conn.BeginTransaction(ctx)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if _, err := tx.Execute(ctx, "INSERT INTO tx_probe VALUES (1)", nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	res, err := conn.Query(ctx, "SELECT COUNT(*) FROM tx_probe", nil)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if v, _ := res.Rows[0].Get(0); v.Int64Value() != 0 {
		t.Errorf("count = %v, want 0", v.Int64Value())
	}
	if _, err := conn.Execute(ctx, "DROP TEMPORARY TABLE tx_probe", nil); err != nil {
		t.Fatalf("drop: %v", err)
	}
}
