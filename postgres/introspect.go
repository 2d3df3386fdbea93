package postgres

import (
	"context"
	"strings"

	"github.com/tessera-db/tessera"
)

// introspector reads schema metadata from pg_catalog and
// information_schema. An empty schema argument means "public".
type introspector struct {
	conn *Conn
}

var _ tessera.SchemaIntrospection = (*introspector)(nil)
var _ tessera.SequenceLister = (*introspector)(nil)

func schemaOr(schema string) string {
	if schema == "" {
		return "public"
	}
	return schema
}

func (in *introspector) ListTables(ctx context.Context, schema string) ([]tessera.TableInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT c.relname,
		       n.nspname,
		       CASE c.relkind WHEN 'v' THEN 'view' WHEN 'm' THEN 'view' ELSE 'table' END,
		       c.reltuples::bigint,
		       COALESCE(obj_description(c.oid), '')
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind IN ('r', 'p', 'v', 'm')
		ORDER BY c.relname`,
		[]tessera.Value{tessera.String(schemaOr(schema))})
	if err != nil {
		return nil, err
	}

	tables := make([]tessera.TableInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		nsp, _ := row.Get(1)
		kind, _ := row.Get(2)
		tuples, _ := row.Get(3)
		comment, _ := row.Get(4)

		count := int64(-1)
		if n, ok := tuples.AsInt64(); ok && n >= 0 {
			count = n
		}
		tables = append(tables, tessera.TableInfo{
			Name:     name.Text(),
			Schema:   nsp.Text(),
			Type:     kind.Text(),
			RowCount: count,
			Comment:  comment.Text(),
		})
	}
	return tables, nil
}

func (in *introspector) Columns(ctx context.Context, schema, table string) ([]tessera.ColumnInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT c.column_name,
		       c.data_type,
		       c.udt_name,
		       c.is_nullable,
		       c.ordinal_position,
		       c.column_default,
		       c.is_identity,
		       c.character_maximum_length,
		       c.numeric_precision,
		       c.numeric_scale,
		       col_description(pc.oid, c.ordinal_position)
		FROM information_schema.columns c
		JOIN pg_class pc ON pc.relname = c.table_name
		JOIN pg_namespace pn ON pn.oid = pc.relnamespace AND pn.nspname = c.table_schema
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`,
		[]tessera.Value{tessera.String(schemaOr(schema)), tessera.String(table)})
	if err != nil {
		return nil, err
	}

	columns := make([]tessera.ColumnInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		dataType, _ := row.Get(1)
		udtName, _ := row.Get(2)
		nullable, _ := row.Get(3)
		ordinal, _ := row.Get(4)
		dflt, _ := row.Get(5)
		identity, _ := row.Get(6)
		maxLen, _ := row.Get(7)
		precision, _ := row.Get(8)
		scale, _ := row.Get(9)
		comment, _ := row.Get(10)

		col := tessera.ColumnInfo{
			Name:     name.Text(),
			DataType: dataType.Text(),
			Nullable: nullable.Text() == "YES",
		}
		if n, ok := ordinal.AsInt64(); ok {
			col.Ordinal = int(n) - 1
		}
		if !dflt.IsNull() {
			s := dflt.String()
			col.DefaultValue = &s
			if strings.Contains(strings.ToLower(s), "nextval(") {
				col.AutoIncrement = true
			}
		}
		if identity.Text() == "YES" {
			col.AutoIncrement = true
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
		if !comment.IsNull() {
			s := comment.String()
			col.Comment = &s
		}
		if dataType.Text() == "USER-DEFINED" {
			col.DataType = udtName.Text()
			enums, err := in.enumValues(ctx, udtName.Text())
			if err == nil {
				col.EnumValues = enums
			}
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// enumValues lists the labels of an enum type in declaration order.
func (in *introspector) enumValues(ctx context.Context, typeName string) ([]string, error) {
	res, err := in.conn.Query(ctx, `
		SELECT e.enumlabel
		FROM pg_enum e
		JOIN pg_type t ON t.oid = e.enumtypid
		WHERE t.typname = $1
		ORDER BY e.enumsortorder`,
		[]tessera.Value{tessera.String(typeName)})
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		label, _ := row.Get(0)
		labels = append(labels, label.Text())
	}
	return labels, nil
}

func (in *introspector) Indexes(ctx context.Context, schema, table string) ([]tessera.IndexInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT i.relname,
		       ix.indisunique,
		       ix.indisprimary,
		       a.attname
		FROM pg_class t
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_index ix ON ix.indrelid = t.oid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = $1 AND t.relname = $2
		ORDER BY i.relname, array_position(ix.indkey, a.attnum)`,
		[]tessera.Value{tessera.String(schemaOr(schema)), tessera.String(table)})
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
			u, _ := unique.AsBool()
			p, _ := primary.AsBool()
			idx = &tessera.IndexInfo{Name: name.Text(), Unique: u, Primary: p}
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
		SELECT tc.constraint_name,
		       kcu.column_name,
		       ccu.table_schema,
		       ccu.table_name,
		       ccu.column_name,
		       rc.update_rule,
		       rc.delete_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name AND ccu.constraint_schema = tc.table_schema
		JOIN information_schema.referential_constraints rc
		  ON rc.constraint_name = tc.constraint_name AND rc.constraint_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position`,
		[]tessera.Value{tessera.String(schemaOr(schema)), tessera.String(table)})
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
		SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`,
		[]tessera.Value{tessera.String(schemaOr(schema)), tessera.String(table)})
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
		SELECT trigger_name, action_timing, event_manipulation, action_statement
		FROM information_schema.triggers
		WHERE event_object_schema = $1 AND event_object_table = $2
		ORDER BY trigger_name`,
		[]tessera.Value{tessera.String(schemaOr(schema)), tessera.String(table)})
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

// Sequences lists the sequences of a schema.
func (in *introspector) Sequences(ctx context.Context, schema string) ([]tessera.SequenceInfo, error) {
	res, err := in.conn.Query(ctx, `
		SELECT sequence_name, sequence_schema, data_type, start_value, increment
		FROM information_schema.sequences
		WHERE sequence_schema = $1
		ORDER BY sequence_name`,
		[]tessera.Value{tessera.String(schemaOr(schema))})
	if err != nil {
		return nil, err
	}

	seqs := make([]tessera.SequenceInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		nsp, _ := row.Get(1)
		dataType, _ := row.Get(2)
		start, _ := row.Get(3)
		increment, _ := row.Get(4)

		seq := tessera.SequenceInfo{
			Name:     name.Text(),
			Schema:   nsp.Text(),
			DataType: dataType.Text(),
		}
		if n, ok := start.AsInt64(); ok {
			seq.StartWith = n
		}
		if n, ok := increment.AsInt64(); ok {
			seq.Increment = n
		}
		seqs = append(seqs, seq)
	}
	return seqs, nil
}

func (in *introspector) TableDetails(ctx context.Context, schema, table string) (*tessera.TableDetails, error) {
	res, err := in.conn.Query(ctx, `
		SELECT c.relname,
		       n.nspname,
		       CASE c.relkind WHEN 'v' THEN 'view' WHEN 'm' THEN 'view' ELSE 'table' END,
		       c.reltuples::bigint
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind IN ('r', 'p', 'v', 'm')`,
		[]tessera.Value{tessera.String(schemaOr(schema)), tessera.String(table)})
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, tessera.Errorf(tessera.ErrNotFound, "table %q not found in schema %q", table, schemaOr(schema))
	}

	kind, _ := res.Rows[0].Get(2)
	tuples, _ := res.Rows[0].Get(3)
	count := int64(-1)
	if n, ok := tuples.AsInt64(); ok && n >= 0 {
		count = n
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
			Schema:   schemaOr(schema),
			Type:     kind.Text(),
			RowCount: count,
		},
		Columns:     columns,
		Indexes:     indexes,
		ForeignKeys: fks,
		PrimaryKey:  pk,
	}, nil
}
