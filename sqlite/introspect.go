package sqlite

import (
	"context"
	"sort"
	"strings"

	"github.com/tessera-db/tessera"
)

// introspector reads schema metadata through the pragma table-valued
// functions and sqlite_master. SQLite has no schemas, so the schema
// argument is ignored throughout.
type introspector struct {
	conn *Conn
}

var _ tessera.SchemaIntrospection = (*introspector)(nil)

// intOf reads a pragma column that is numeric by contract.
func intOf(v tessera.Value) int64 {
	n, _ := v.AsInt64()
	return n
}

func (in *introspector) ListTables(ctx context.Context, schema string) ([]tessera.TableInfo, error) {
	res, err := in.conn.Query(ctx,
		"SELECT name, type FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name",
		nil)
	if err != nil {
		return nil, err
	}

	tables := make([]tessera.TableInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		kind, _ := row.Get(1)
		tables = append(tables, tessera.TableInfo{
			Name:     name.Text(),
			Type:     kind.Text(),
			RowCount: -1,
		})
	}
	return tables, nil
}

func (in *introspector) Columns(ctx context.Context, schema, table string) ([]tessera.ColumnInfo, error) {
	res, err := in.conn.Query(ctx,
		"SELECT cid, name, type, \"notnull\", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid",
		[]tessera.Value{tessera.String(table)})
	if err != nil {
		return nil, err
	}

	pkCols := 0
	for _, row := range res.Rows {
		if v, _ := row.Get(5); intOf(v) > 0 {
			pkCols++
		}
	}

	columns := make([]tessera.ColumnInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		cid, _ := row.Get(0)
		name, _ := row.Get(1)
		typ, _ := row.Get(2)
		notNull, _ := row.Get(3)
		dflt, _ := row.Get(4)
		pk, _ := row.Get(5)

		col := tessera.ColumnInfo{
			Name:     name.Text(),
			DataType: strings.ToLower(typ.Text()),
			Nullable: intOf(notNull) == 0,
			Ordinal:  int(intOf(cid)),
		}
		if !dflt.IsNull() {
			s := dflt.String()
			col.DefaultValue = &s
		}
		// A lone INTEGER primary key aliases the rowid and auto-assigns.
		if intOf(pk) > 0 && pkCols == 1 && strings.EqualFold(col.DataType, "integer") {
			col.AutoIncrement = true
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func (in *introspector) Indexes(ctx context.Context, schema, table string) ([]tessera.IndexInfo, error) {
	res, err := in.conn.Query(ctx,
		"SELECT name, \"unique\", origin FROM pragma_index_list(?) ORDER BY seq",
		[]tessera.Value{tessera.String(table)})
	if err != nil {
		return nil, err
	}

	indexes := make([]tessera.IndexInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		unique, _ := row.Get(1)
		origin, _ := row.Get(2)

		cols, err := in.indexColumns(ctx, name.Text())
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, tessera.IndexInfo{
			Name:    name.Text(),
			Columns: cols,
			Unique:  intOf(unique) != 0,
			Primary: origin.Text() == "pk",
		})
	}
	return indexes, nil
}

func (in *introspector) indexColumns(ctx context.Context, index string) ([]string, error) {
	res, err := in.conn.Query(ctx,
		"SELECT name FROM pragma_index_info(?) ORDER BY seqno",
		[]tessera.Value{tessera.String(index)})
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		cols = append(cols, name.Text())
	}
	return cols, nil
}

func (in *introspector) ForeignKeys(ctx context.Context, schema, table string) ([]tessera.ForeignKeyInfo, error) {
	res, err := in.conn.Query(ctx,
		"SELECT id, seq, \"table\", \"from\", \"to\", on_update, on_delete FROM pragma_foreign_key_list(?) ORDER BY id, seq",
		[]tessera.Value{tessera.String(table)})
	if err != nil {
		return nil, err
	}

	byID := map[int64]*tessera.ForeignKeyInfo{}
	var order []int64
	for _, row := range res.Rows {
		id, _ := row.Get(0)
		refTable, _ := row.Get(2)
		from, _ := row.Get(3)
		to, _ := row.Get(4)
		onUpdate, _ := row.Get(5)
		onDelete, _ := row.Get(6)

		fk, ok := byID[intOf(id)]
		if !ok {
			fk = &tessera.ForeignKeyInfo{
				ReferencedTable: refTable.Text(),
				OnUpdate:        onUpdate.Text(),
				OnDelete:        onDelete.Text(),
			}
			byID[intOf(id)] = fk
			order = append(order, intOf(id))
		}
		fk.Columns = append(fk.Columns, from.Text())
		fk.ReferencedColumns = append(fk.ReferencedColumns, to.Text())
	}

	fks := make([]tessera.ForeignKeyInfo, 0, len(order))
	for _, id := range order {
		fks = append(fks, *byID[id])
	}
	return fks, nil
}

func (in *introspector) PrimaryKey(ctx context.Context, schema, table string) (*tessera.PrimaryKeyInfo, error) {
	res, err := in.conn.Query(ctx,
		"SELECT name, pk FROM pragma_table_info(?) WHERE pk > 0",
		[]tessera.Value{tessera.String(table)})
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}

	type pkCol struct {
		name string
		pos  int64
	}
	cols := make([]pkCol, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		pos, _ := row.Get(1)
		cols = append(cols, pkCol{name: name.Text(), pos: intOf(pos)})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].pos < cols[j].pos })

	pk := &tessera.PrimaryKeyInfo{}
	for _, c := range cols {
		pk.Columns = append(pk.Columns, c.name)
	}
	return pk, nil
}

func (in *introspector) Triggers(ctx context.Context, schema, table string) ([]tessera.TriggerInfo, error) {
	res, err := in.conn.Query(ctx,
		"SELECT name, sql FROM sqlite_master WHERE type = 'trigger' AND tbl_name = ? ORDER BY name",
		[]tessera.Value{tessera.String(table)})
	if err != nil {
		return nil, err
	}

	triggers := make([]tessera.TriggerInfo, 0, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row.Get(0)
		sql, _ := row.Get(1)
		timing, event := parseTriggerHead(sql.Text())
		triggers = append(triggers, tessera.TriggerInfo{
			Name:       name.Text(),
			Timing:     timing,
			Event:      event,
			Definition: sql.Text(),
		})
	}
	return triggers, nil
}

// parseTriggerHead pulls timing and event out of a CREATE TRIGGER
// definition. SQLite stores only the raw SQL.
func parseTriggerHead(sql string) (timing, event string) {
	upper := strings.ToUpper(sql)
	switch {
	case strings.Contains(upper, "INSTEAD OF"):
		timing = "INSTEAD OF"
	case strings.Contains(upper, "BEFORE"):
		timing = "BEFORE"
	default:
		timing = "AFTER"
	}
	for _, ev := range []string{"INSERT", "UPDATE", "DELETE"} {
		if strings.Contains(upper, ev) {
			event = ev
			break
		}
	}
	return timing, event
}

func (in *introspector) TableDetails(ctx context.Context, schema, table string) (*tessera.TableDetails, error) {
	res, err := in.conn.Query(ctx,
		"SELECT name, type FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?",
		[]tessera.Value{tessera.String(table)})
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, tessera.Errorf(tessera.ErrNotFound, "table %q not found", table)
	}
	kind, _ := res.Rows[0].Get(1)

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
			Type:     kind.Text(),
			RowCount: -1,
		},
		Columns:     columns,
		Indexes:     indexes,
		ForeignKeys: fks,
		PrimaryKey:  pk,
	}, nil
}
