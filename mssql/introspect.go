package mssql

import (
	"context"

	"github.com/tessera-db/tessera"
)

// introspector reads schema metadata from the sys catalog views. An empty
// schema argument means "dbo".
type introspector struct {
	conn *Conn
}

var _ tessera.SchemaIntrospection = (*introspector)(nil)

func schemaOr(schema string) string {
	if schema == "" {
		return "dbo"
	}
	return schema
}

// objectRef builds the bracket-quoted schema.table reference OBJECT_ID
// resolves.
func objectRef(schema, table string) string {
	return tessera.DialectSQLServer.QualifyTable(table, schemaOr(schema))
}

func boolOf(v tessera.Value) bool {
	b, _ := v.AsBool()
	return b
}

func intOf(v tessera.Value) int64 {
	n, _ := v.AsInt64()
	return n
}

func (in *introspector) ListTables(ctx context.Context, schema string) ([]tessera.TableInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT o.name, s.name,
		       CASE o.type WHEN 'V' THEN 'view' ELSE 'table' END,
		       COALESCE(p.row_total, -1)
		FROM sys.objects o
		JOIN sys.schemas s ON s.schema_id = o.schema_id
		LEFT JOIN (
			SELECT object_id, SUM(rows) AS row_total
			FROM sys.partitions
			WHERE index_id IN (0, 1)
			GROUP BY object_id
		) p ON p.object_id = o.object_id
		WHERE o.type IN ('U', 'V') AND s.name = @p1
		ORDER BY o.name`,
		[]tessera.Value{tessera.String(schemaOr(schema))})
	if err != nil {
		return nil, err
	}

	tables := make([]tessera.TableInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		sch, _ := row.Get(1)
		kind, _ := row.Get(2)
		count, _ := row.Get(3)
		tables = append(tables, tessera.TableInfo{
			Name:     name.Text(),
			Schema:   sch.Text(),
			Type:     kind.Text(),
			RowCount: intOf(count),
		})
	}
	return tables, nil
}

func (in *introspector) Columns(ctx context.Context, schema, table string) ([]tessera.ColumnInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT c.name, ty.name, c.is_nullable, c.column_id,
		       dc.definition, c.is_identity, c.max_length, c.precision, c.scale
		FROM sys.columns c
		JOIN sys.types ty ON ty.user_type_id = c.user_type_id
		LEFT JOIN sys.default_constraints dc ON dc.object_id = c.default_object_id
		WHERE c.object_id = OBJECT_ID(@p1)
		ORDER BY c.column_id`,
		[]tessera.Value{tessera.String(objectRef(schema, table))})
	if err != nil {
		return nil, err
	}

	columns := make([]tessera.ColumnInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		typeName, _ := row.Get(1)
		nullable, _ := row.Get(2)
		columnID, _ := row.Get(3)
		dflt, _ := row.Get(4)
		identity, _ := row.Get(5)
		maxLen, _ := row.Get(6)
		precision, _ := row.Get(7)
		scale, _ := row.Get(8)

		col := tessera.ColumnInfo{
			Name:          name.Text(),
			DataType:      typeName.Text(),
			Nullable:      boolOf(nullable),
			Ordinal:       int(intOf(columnID)) - 1,
			AutoIncrement: boolOf(identity),
		}
		if !dflt.IsNull() {
			s := dflt.String()
			col.DefaultValue = &s
		}
		if n := intOf(maxLen); n > 0 {
			col.MaxLength = &n
		}
		if n := intOf(precision); n > 0 {
			p := int32(n)
			col.Precision = &p
		}
		if n := intOf(scale); n > 0 {
			s := int32(n)
			col.Scale = &s
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func (in *introspector) Indexes(ctx context.Context, schema, table string) ([]tessera.IndexInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT i.name, i.is_unique, i.is_primary_key, col.name
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
		WHERE i.object_id = OBJECT_ID(@p1) AND i.name IS NOT NULL
		ORDER BY i.name, ic.key_ordinal`,
		[]tessera.Value{tessera.String(objectRef(schema, table))})
	if err != nil {
		return nil, err
	}

	byName := map[string]*tessera.IndexInfo{}
	var order []string
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		unique, _ := row.Get(1)
		primary, _ := row.Get(2)
		column, _ := row.Get(3)

		idx, ok := byName[name.Text()]
		if !ok {
			idx = &tessera.IndexInfo{
				Name:    name.Text(),
				Unique:  boolOf(unique),
				Primary: boolOf(primary),
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
		SELECT fk.name, pc.name, rs.name, rt.name, rc.name,
		       fk.update_referential_action_desc, fk.delete_referential_action_desc
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
		JOIN sys.schemas rs ON rs.schema_id = rt.schema_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		WHERE fk.parent_object_id = OBJECT_ID(@p1)
		ORDER BY fk.name, fkc.constraint_column_id`,
		[]tessera.Value{tessera.String(objectRef(schema, table))})
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
		SELECT i.name, col.name
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
		WHERE i.object_id = OBJECT_ID(@p1) AND i.is_primary_key = 1
		ORDER BY ic.key_ordinal`,
		[]tessera.Value{tessera.String(objectRef(schema, table))})
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}

	pk := &tessera.PrimaryKeyInfo{}
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		column, _ := row.Get(1)
		pk.Name = name.Text()
		pk.Columns = append(pk.Columns, column.Text())
	}
	return pk, nil
}

func (in *introspector) Triggers(ctx context.Context, schema, table string) ([]tessera.TriggerInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT tr.name,
		       CASE WHEN OBJECTPROPERTY(tr.object_id, 'ExecIsInsteadOfTrigger') = 1 THEN 'INSTEAD OF' ELSE 'AFTER' END,
		       CASE WHEN OBJECTPROPERTY(tr.object_id, 'ExecIsInsertTrigger') = 1 THEN 'INSERT'
		            WHEN OBJECTPROPERTY(tr.object_id, 'ExecIsUpdateTrigger') = 1 THEN 'UPDATE'
		            ELSE 'DELETE' END,
		       COALESCE(OBJECT_DEFINITION(tr.object_id), '')
		FROM sys.triggers tr
		WHERE tr.parent_id = OBJECT_ID(@p1)
		ORDER BY tr.name`,
		[]tessera.Value{tessera.String(objectRef(schema, table))})
	if err != nil {
		return nil, err
	}

	triggers := make([]tessera.TriggerInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		timing, _ := row.Get(1)
		event, _ := row.Get(2)
		definition, _ := row.Get(3)
		triggers = append(triggers, tessera.TriggerInfo{
			Name:       name.Text(),
			Timing:     timing.Text(),
			Event:      event.Text(),
			Definition: definition.Text(),
		})
	}
	return triggers, nil
}

func (in *introspector) TableDetails(ctx context.Context, schema, table string) (*tessera.TableDetails, error) {
	res, err := in.conn.Query(ctx, `
		SELECT CASE o.type WHEN 'V' THEN 'view' ELSE 'table' END,
		       COALESCE(p.row_total, -1)
		FROM sys.objects o
		LEFT JOIN (
			SELECT object_id, SUM(rows) AS row_total
			FROM sys.partitions
			WHERE index_id IN (0, 1)
			GROUP BY object_id
		) p ON p.object_id = o.object_id
		WHERE o.object_id = OBJECT_ID(@p1) AND o.type IN ('U', 'V')`,
		[]tessera.Value{tessera.String(objectRef(schema, table))})
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, tessera.Errorf(tessera.ErrNotFound, "table %q not found in schema %q", table, schemaOr(schema))
	}

	kind, _ := res.Rows[0].Get(0)
	count, _ := res.Rows[0].Get(1)

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
			Schema:   schemaOr(schema),
			Type:     kind.Text(),
			RowCount: intOf(count),
		},
		Columns:     columns,
		Indexes:     indexes,
		ForeignKeys: fks,
		PrimaryKey:  pk,
	}, nil
}
