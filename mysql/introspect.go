package mysql

import (
	"context"
	"strings"

	"github.com/tessera-db/tessera"
)

// introspector reads schema metadata from information_schema. An empty
// schema argument means the connection's current database.
type introspector struct {
	conn *Conn
}

var _ tessera.SchemaIntrospection = (*introspector)(nil)

func (in *introspector) schemaOr(schema string) string {
	if schema == "" {
		return in.conn.dbName
	}
	return schema
}

func (in *introspector) ListTables(ctx context.Context, schema string) ([]tessera.TableInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT TABLE_NAME, TABLE_SCHEMA,
		       CASE TABLE_TYPE WHEN 'VIEW' THEN 'view' ELSE 'table' END,
		       COALESCE(TABLE_ROWS, -1),
		       COALESCE(TABLE_COMMENT, '')
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME`,
		[]tessera.Value{tessera.String(in.schemaOr(schema))})
	if err != nil {
		return nil, err
	}

	tables := make([]tessera.TableInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		sch, _ := row.Get(1)
		kind, _ := row.Get(2)
		count, _ := row.Get(3)
		comment, _ := row.Get(4)

		rowCount := int64(-1)
		if n, ok := count.AsInt64(); ok {
			rowCount = n
		}
		tables = append(tables, tessera.TableInfo{
			Name:     name.Text(),
			Schema:   sch.Text(),
			Type:     kind.Text(),
			RowCount: rowCount,
			Comment:  comment.Text(),
		})
	}
	return tables, nil
}

func (in *introspector) Columns(ctx context.Context, schema, table string) ([]tessera.ColumnInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, IS_NULLABLE, ORDINAL_POSITION,
		       COLUMN_DEFAULT, EXTRA, CHARACTER_MAXIMUM_LENGTH,
		       NUMERIC_PRECISION, NUMERIC_SCALE, COLUMN_COMMENT
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`,
		[]tessera.Value{tessera.String(in.schemaOr(schema)), tessera.String(table)})
	if err != nil {
		return nil, err
	}

	columns := make([]tessera.ColumnInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		dataType, _ := row.Get(1)
		columnType, _ := row.Get(2)
		nullable, _ := row.Get(3)
		ordinal, _ := row.Get(4)
		dflt, _ := row.Get(5)
		extra, _ := row.Get(6)
		maxLen, _ := row.Get(7)
		precision, _ := row.Get(8)
		scale, _ := row.Get(9)
		comment, _ := row.Get(10)

		col := tessera.ColumnInfo{
			Name:          name.Text(),
			DataType:      strings.ToLower(dataType.Text()),
			Nullable:      strings.EqualFold(nullable.Text(), "YES"),
			AutoIncrement: strings.Contains(strings.ToLower(extra.Text()), "auto_increment"),
		}
		if n, ok := ordinal.AsInt64(); ok {
			col.Ordinal = int(n) - 1
		}
		if !dflt.IsNull() {
			s := dflt.String()
			col.DefaultValue = &s
		}
		if n, ok := maxLen.AsInt64(); ok {
			col.MaxLength = &n
		}
		if n, ok := precision.AsInt64(); ok {
			p := int32(n)
			col.Precision = &p
		}
		if n, ok := scale.AsInt64(); ok {
			s := int32(n)
			col.Scale = &s
		}
		if s := comment.Text(); s != "" {
			col.Comment = &s
		}
		if col.DataType == "enum" || col.DataType == "set" {
			col.EnumValues = parseEnumValues(columnType.Text())
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// parseEnumValues extracts the members of an enum('a','b') or set('a','b')
// column type. Embedded quotes arrive doubled.
func parseEnumValues(columnType string) []string {
	start := strings.Index(columnType, "(")
	end := strings.LastIndex(columnType, ")")
	if start < 0 || end <= start {
		return nil
	}
	inner := columnType[start+1 : end]

	var values []string
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "'")
		part = strings.TrimSuffix(part, "'")
		values = append(values, strings.ReplaceAll(part, "''", "'"))
	}
	return values
}

func (in *introspector) Indexes(ctx context.Context, schema, table string) ([]tessera.IndexInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT INDEX_NAME, NON_UNIQUE, COLUMN_NAME
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY INDEX_NAME, SEQ_IN_INDEX`,
		[]tessera.Value{tessera.String(in.schemaOr(schema)), tessera.String(table)})
	if err != nil {
		return nil, err
	}

	byName := map[string]*tessera.IndexInfo{}
	var order []string
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		nonUnique, _ := row.Get(1)
		column, _ := row.Get(2)

		idx, ok := byName[name.Text()]
		if !ok {
			nu, _ := nonUnique.AsInt64()
			idx = &tessera.IndexInfo{
				Name:    name.Text(),
				Unique:  nu == 0,
				Primary: name.Text() == "PRIMARY",
			}
			byName[name.Text()] = idx
			order = append(order, name.Text())
		}
		idx.Columns = append(idx.Columns, column.Text())
	}

	indexes := make([]tessera.IndexInfo, 0, len(order))
	for _, name := range order {
		indexes = append(indexes, *byName[name])
	}
	return indexes, nil
}

func (in *introspector) ForeignKeys(ctx context.Context, schema, table string) ([]tessera.ForeignKeyInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT kcu.CONSTRAINT_NAME, kcu.COLUMN_NAME,
		       kcu.REFERENCED_TABLE_SCHEMA, kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME,
		       rc.UPDATE_RULE, rc.DELETE_RULE
		FROM information_schema.KEY_COLUMN_USAGE kcu
		JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
		  ON rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME AND rc.CONSTRAINT_SCHEMA = kcu.TABLE_SCHEMA
		WHERE kcu.TABLE_SCHEMA = ? AND kcu.TABLE_NAME = ? AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`,
		[]tessera.Value{tessera.String(in.schemaOr(schema)), tessera.String(table)})
	if err != nil {
		return nil, err
	}

	byName := map[string]*tessera.ForeignKeyInfo{}
	var order []string
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		column, _ := row.Get(1)
		refSchema, _ := row.Get(2)
		refTable, _ := row.Get(3)
		refColumn, _ := row.Get(4)
		onUpdate, _ := row.Get(5)
		onDelete, _ := row.Get(6)

		fk, ok := byName[name.Text()]
		if !ok {
			fk = &tessera.ForeignKeyInfo{
				Name:             name.Text(),
				ReferencedTable:  refTable.Text(),
				ReferencedSchema: refSchema.Text(),
				OnUpdate:         onUpdate.Text(),
				OnDelete:         onDelete.Text(),
			}
			byName[name.Text()] = fk
			order = append(order, name.Text())
		}
		fk.Columns = append(fk.Columns, column.Text())
		fk.ReferencedColumns = append(fk.ReferencedColumns, refColumn.Text())
	}

	fks := make([]tessera.ForeignKeyInfo, 0, len(order))
	for _, name := range order {
		fks = append(fks, *byName[name])
	}
	return fks, nil
}

func (in *introspector) PrimaryKey(ctx context.Context, schema, table string) (*tessera.PrimaryKeyInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT COLUMN_NAME
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND INDEX_NAME = 'PRIMARY'
		ORDER BY SEQ_IN_INDEX`,
		[]tessera.Value{tessera.String(in.schemaOr(schema)), tessera.String(table)})
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}

	pk := &tessera.PrimaryKeyInfo{Name: "PRIMARY"}
	for _, row := range res.Rows {
		column, _ := row.Get(0)
		pk.Columns = append(pk.Columns, column.Text())
	}
	return pk, nil
}

func (in *introspector) Triggers(ctx context.Context, schema, table string) ([]tessera.TriggerInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT TRIGGER_NAME, ACTION_TIMING, EVENT_MANIPULATION, ACTION_STATEMENT
		FROM information_schema.TRIGGERS
		WHERE EVENT_OBJECT_SCHEMA = ? AND EVENT_OBJECT_TABLE = ?
		ORDER BY TRIGGER_NAME`,
		[]tessera.Value{tessera.String(in.schemaOr(schema)), tessera.String(table)})
	if err != nil {
		return nil, err
	}

	triggers := make([]tessera.TriggerInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		timing, _ := row.Get(1)
		event, _ := row.Get(2)
		stmt, _ := row.Get(3)
		triggers = append(triggers, tessera.TriggerInfo{
			Name:       name.Text(),
			Timing:     timing.Text(),
			Event:      event.Text(),
			Definition: stmt.Text(),
		})
	}
	return triggers, nil
}

func (in *introspector) TableDetails(ctx context.Context, schema, table string) (*tessera.TableDetails, error) {
	res, err := in.conn.Query(ctx, `
		SELECT CASE TABLE_TYPE WHEN 'VIEW' THEN 'view' ELSE 'table' END,
		       COALESCE(TABLE_ROWS, -1)
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`,
		[]tessera.Value{tessera.String(in.schemaOr(schema)), tessera.String(table)})
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, tessera.Errorf(tessera.ErrNotFound, "table %q not found in schema %q", table, in.schemaOr(schema))
	}

	kind, _ := res.Rows[0].Get(0)
	count, _ := res.Rows[0].Get(1)
	rowCount := int64(-1)
	if n, ok := count.AsInt64(); ok {
		rowCount = n
	}

	columns, err := in.Columns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	indexes, err := in.Indexes(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	fks, err := in.ForeignKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	pk, err := in.PrimaryKey(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	return &tessera.TableDetails{
		Table: tessera.TableInfo{
			Name:     table,
			Schema:   in.schemaOr(schema),
			Type:     kind.Text(),
			RowCount: rowCount,
		},
		Columns:     columns,
		Indexes:     indexes,
		ForeignKeys: fks,
		PrimaryKey:  pk,
	}, nil
}
