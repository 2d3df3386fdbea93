package tessera

import (
	"strings"
	"testing"
)

func TestQuoteIdentPerDialect(t *testing.T) {
	cases := []struct {
		d     *Dialect
		ident string
		want  string
	}{
		{DialectSQLite, "users", `"users"`},
		{DialectPostgres, `odd"name`, `"odd""name"`},
		{DialectMySQL, "users", "`users`"},
		{DialectMySQL, "odd`name", "`odd``name`"},
		{DialectSQLServer, "users", "[users]"},
		{DialectSQLServer, "odd]name", "[odd]]name]"},
	}
	for _, tc := range cases {
		if got := tc.d.QuoteIdent(tc.ident); got != tc.want {
			t.Errorf("%s QuoteIdent(%q) = %q, want %q", tc.d.Name, tc.ident, got, tc.want)
		}
	}
}

func TestQualifyTable(t *testing.T) {
	if got := DialectPostgres.QualifyTable("orders", "sales"); got != `"sales"."orders"` {
		t.Errorf("QualifyTable = %q", got)
	}
	if got := DialectSQLite.QualifyTable("orders", ""); got != `"orders"` {
		t.Errorf("QualifyTable = %q", got)
	}
}

func TestPlaceholderStyles(t *testing.T) {
	if got := DialectPostgres.PlaceholderAt(3); got != "$3" {
		t.Errorf("postgres placeholder = %q", got)
	}
	if got := DialectSQLServer.PlaceholderAt(2); got != "@P2" {
		t.Errorf("mssql placeholder = %q", got)
	}
	if got := DialectMySQL.PlaceholderAt(5); got != "?" {
		t.Errorf("mysql placeholder = %q", got)
	}
	if got := DialectSQLite.PlaceholderAt(1); got != "?" {
		t.Errorf("sqlite placeholder = %q", got)
	}
}

func TestFastCountClassification(t *testing.T) {
	if !DialectSQLite.FastCount {
		t.Error("sqlite is fast-count")
	}
	for _, d := range []*Dialect{DialectPostgres, DialectMySQL, DialectSQLServer} {
		if d.FastCount {
			t.Errorf("%s must be slow-count", d.Name)
		}
	}
}

func TestEstimateRowCountSQL(t *testing.T) {
	if sql := DialectSQLite.EstimateRowCountSQL("t", ""); sql != "" {
		t.Errorf("fast-count dialect must have no estimate SQL, got %q", sql)
	}

	pg := DialectPostgres.EstimateRowCountSQL("users", "")
	if !strings.Contains(pg, "reltuples") || !strings.Contains(pg, "'public'") {
		t.Errorf("postgres estimate = %q", pg)
	}
	pgSchema := DialectPostgres.EstimateRowCountSQL("users", "sales")
	if !strings.Contains(pgSchema, "'sales'") {
		t.Errorf("postgres estimate with schema = %q", pgSchema)
	}

	my := DialectMySQL.EstimateRowCountSQL("users", "")
	if !strings.Contains(my, "TABLE_ROWS") || !strings.Contains(my, "DATABASE()") {
		t.Errorf("mysql estimate = %q", my)
	}

	ms := DialectSQLServer.EstimateRowCountSQL("users", "")
	if !strings.Contains(ms, "sys.partitions") || !strings.Contains(ms, "'dbo'") {
		t.Errorf("mssql estimate = %q", ms)
	}

	// Single quotes in names must not break out of the literal.
	inj := DialectPostgres.EstimateRowCountSQL("a'b", "")
	if !strings.Contains(inj, "'a''b'") {
		t.Errorf("estimate must escape quotes: %q", inj)
	}
}

func TestLiteralRendering(t *testing.T) {
	if got := DialectPostgres.Literal(Null()); got != "NULL" {
		t.Errorf("null literal = %q", got)
	}
	if got := DialectPostgres.Literal(Bool(true)); got != "TRUE" {
		t.Errorf("postgres bool literal = %q", got)
	}
	if got := DialectMySQL.Literal(Bool(true)); got != "1" {
		t.Errorf("mysql bool literal = %q", got)
	}
	if got := DialectSQLite.Literal(String("it's")); got != "'it''s'" {
		t.Errorf("string literal = %q", got)
	}
	if got := DialectSQLite.Literal(Bytes([]byte{0xAB})); got != "X'AB'" {
		t.Errorf("sqlite blob literal = %q", got)
	}
	if got := DialectPostgres.Literal(Bytes([]byte{0xAB})); got != `'\xab'` {
		t.Errorf("postgres blob literal = %q", got)
	}
	if got := DialectSQLServer.Literal(Bytes([]byte{0xAB})); got != "0xAB" {
		t.Errorf("mssql blob literal = %q", got)
	}
	if got := DialectPostgres.Literal(Array([]Value{Int64(1), Int64(2)})); got != "ARRAY[1, 2]" {
		t.Errorf("postgres array literal = %q", got)
	}
	if got := DialectPostgres.Literal(Decimal("12.50")); got != "12.50" {
		t.Errorf("decimal literal = %q", got)
	}
}

func TestBuildUpdateCellSQL(t *testing.T) {
	newVal := String("carol")
	sql, err := BuildUpdateCellSQL(DialectPostgres, CellUpdateRequest{
		TableName:  "sales.users",
		ColumnName: "name",
		NewValue:   &newVal,
		Row: PrimaryKey{
			{Column: "id", Value: Int64(2)},
		},
	})
	if err != nil {
		t.Fatalf("BuildUpdateCellSQL: %v", err)
	}
	want := `UPDATE "sales"."users" SET "name" = 'carol' WHERE "id" = 2`
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
}

func TestBuildUpdateCellSQLNullValueAndNullCondition(t *testing.T) {
	sql, err := BuildUpdateCellSQL(DialectSQLite, CellUpdateRequest{
		TableName:  "t",
		ColumnName: "a",
		NewValue:   nil,
		Row: FullRow{
			{Column: "a", Value: Null()},
			{Column: "b", Value: Int64(1)},
		},
	})
	if err != nil {
		t.Fatalf("BuildUpdateCellSQL: %v", err)
	}
	want := `UPDATE "t" SET "a" = NULL WHERE "a" IS NULL AND "b" = 1`
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
}

func TestBuildUpdateCellSQLRejectsRowIndex(t *testing.T) {
	newVal := String("x")
	_, err := BuildUpdateCellSQL(DialectSQLite, CellUpdateRequest{
		TableName:  "t",
		ColumnName: "a",
		NewValue:   &newVal,
		Row:        RowIndex(4),
	})
	if !IsError(err, ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}

func TestBuildUpdateCellSQLEmptyIdentifier(t *testing.T) {
	newVal := String("x")
	_, err := BuildUpdateCellSQL(DialectSQLite, CellUpdateRequest{
		TableName:  "t",
		ColumnName: "a",
		NewValue:   &newVal,
		Row:        PrimaryKey{},
	})
	if !IsError(err, ErrQuery) {
		t.Fatalf("expected ErrQuery, got %v", err)
	}
}
