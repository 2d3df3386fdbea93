package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/tessera-db/tessera"
)

// Integration coverage needs a live server; set TESSERA_POSTGRES_DSN to run.
func openTestConn(t *testing.T) *Conn {
	t.Helper()
	dsn := os.Getenv("TESSERA_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TESSERA_POSTGRES_DSN not set")
	}
	conn, err := Connect(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestQueryRoundTrip(t *testing.T) {
	conn := openTestConn(t)
	ctx := context.Background()

	res, err := conn.Query(ctx, "SELECT 1::int4, 'hello'::text, NULL::int8", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.RowCount() != 1 || res.ColumnCount() != 3 {
		t.Fatalf("got %d rows, %d columns", res.RowCount(), res.ColumnCount())
	}
	if v, _ := res.Rows[0].Get(0); v.Kind() != tessera.KindInt32 {
		t.Errorf("column 0 kind = %v", v.Kind())
	}
	if v, _ := res.Rows[0].Get(2); !v.IsNull() {
		t.Error("column 2 should be NULL")
	}
}

func TestTypedParameterBinding(t *testing.T) {
	conn := openTestConn(t)
	ctx := context.Background()

	// A string parameter against a date column must upgrade before binding.
	res, err := conn.Query(ctx, "SELECT $1::date", []tessera.Value{tessera.String("2024-03-15")})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if v, _ := res.Rows[0].Get(0); v.Kind() != tessera.KindDate {
		t.Errorf("kind = %v, want KindDate", v.Kind())
	}
}

func TestTransactionRollbackIntegration(t *testing.T) {
	conn := openTestConn(t)
	ctx := context.Background()

	if _, err := conn.Execute(ctx, "CREATE TEMP TABLE tx_probe (a int)", nil); err != nil {
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
}
