package tessera

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultBrowseLimit is the page size used when a browse request does not
// specify one.
const DefaultBrowseLimit = 1000

// TableService orchestrates connections, dialects and introspection into
// browse/paginate/count/mutate operations with backend-aware cost
// strategies.
type TableService struct {
	defaultLimit int
	log          zerolog.Logger

	// countConn, when set, runs count queries on an independent connection
	// so data and count truly overlap instead of queueing on one guard.
	countConn Connection
}

// TableServiceOption configures a TableService.
type TableServiceOption func(*TableService)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(log zerolog.Logger) TableServiceOption {
	return func(s *TableService) { s.log = log }
}

// WithCountConnection supplies an independent connection for count queries.
func WithCountConnection(conn Connection) TableServiceOption {
	return func(s *TableService) { s.countConn = conn }
}

// NewTableService creates a table service. A defaultLimit of 0 selects
// DefaultBrowseLimit.
func NewTableService(defaultLimit int, opts ...TableServiceOption) *TableService {
	if defaultLimit <= 0 {
		defaultLimit = DefaultBrowseLimit
	}
	s := &TableService{defaultLimit: defaultLimit, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultLimit returns the page size used when a request does not set one.
func (s *TableService) DefaultLimit() int { return s.defaultLimit }

// BrowseRequest describes one table browse.
type BrowseRequest struct {
	Table  string
	Schema string
	// Where holds WHERE fragments, joined with AND.
	Where []string
	// OrderBy holds ORDER BY fragments already formatted as
	// "column ASC/DESC" (optionally with a NULLS FIRST/LAST suffix).
	OrderBy []string
	// Columns is the visible-column projection; empty selects *.
	Columns []string
	// Limit of 0 selects the service default.
	Limit  int
	Offset int
	// CachedTotal, when set, short-circuits counting entirely. Callers
	// pass it for simple page navigations where only the offset changed.
	CachedTotal *uint64
}

// BrowseTable fetches one page of a table and resolves the row total with
// the cost strategy of the backend: exact COUNT(*) for fast-count drivers,
// catalog estimate otherwise.
func (s *TableService) BrowseTable(ctx context.Context, conn Connection, table, schema string, limit, offset int) (*QueryResult, error) {
	return s.BrowseTableWithFilters(ctx, conn, BrowseRequest{
		Table:  table,
		Schema: schema,
		Limit:  limit,
		Offset: offset,
	})
}

// BrowseTableWithFilters is BrowseTable plus WHERE fragments, ORDER BY
// fragments and a visible-column projection.
//
// Counting strategy, in priority order:
//   - a cached total short-circuits counting entirely
//   - fast-count backends run an exact, filter-aware COUNT(*) concurrently
//     with the data query
//   - slow-count backends with no filters fetch a catalog estimate
//   - slow-count backends with filters skip counting: a whole-table
//     estimate would misrepresent the filtered subset, and an exact count
//     would reintroduce the scan this design avoids
func (s *TableService) BrowseTableWithFilters(ctx context.Context, conn Connection, req BrowseRequest) (*QueryResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	d := conn.Dialect()
	qualified := d.QualifyTable(req.Table, req.Schema)
	whereClause := buildWhere(req.Where)
	columns := s.projection(d, req.Columns)
	orderBy := ""
	if len(req.OrderBy) > 0 {
		orderBy = " ORDER BY " + strings.Join(req.OrderBy, ", ")
	}

	dataSQL := fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT %d OFFSET %d",
		columns, qualified, whereClause, orderBy, limit, req.Offset)
	s.log.Debug().Str("sql", dataSQL).Msg("browsing table")

	hasFilters := len(req.Where) > 0

	var result *QueryResult
	var total *uint64
	var estimated bool

	switch {
	case req.CachedTotal != nil:
		s.log.Debug().Uint64("cached_total", *req.CachedTotal).Msg("reusing cached total, skipping count")
		res, err := conn.Query(ctx, dataSQL, nil)
		if err != nil {
			return nil, err
		}
		result, total = res, req.CachedTotal

	case d.FastCount:
		countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", qualified, whereClause)
		s.log.Debug().Str("sql", countSQL).Msg("counting rows")

		var countRes *QueryResult
		var countErr error
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			res, err := conn.Query(gctx, dataSQL, nil)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
		countConn := s.countConnOr(conn)
		g.Go(func() error {
			// Count failure is non-critical; the page still renders
			// without a total.
			countRes, countErr = countConn.Query(gctx, countSQL, nil)
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if countErr != nil {
			s.log.Warn().Err(countErr).Msg("COUNT(*) failed, pagination total unavailable")
		} else {
			total = firstUint64(countRes)
		}

	case hasFilters:
		// Catalog estimates do not reflect WHERE filters; issue only the
		// data query.
		s.log.Debug().Str("driver", d.Name).Msg("filtered browse on slow-count backend, skipping count")
		res, err := conn.Query(ctx, dataSQL, nil)
		if err != nil {
			return nil, err
		}
		result = res

	default:
		res, err := conn.Query(ctx, dataSQL, nil)
		if err != nil {
			return nil, err
		}
		result = res

		estimateSQL := d.EstimateRowCountSQL(req.Table, req.Schema)
		s.log.Debug().Str("sql", estimateSQL).Msg("estimating row count from catalog")
		estRes, err := s.countConnOr(conn).Query(ctx, estimateSQL, nil)
		if err != nil {
			s.log.Warn().Err(err).Msg("row count estimate failed")
		} else if est := firstUint64(estRes); est != nil {
			total = est
			estimated = true
		}
	}

	result.TotalRows = total
	result.IsEstimatedTotal = estimated

	s.log.Info().
		Str("table", req.Table).
		Int("rows", len(result.Rows)).
		Bool("estimated", estimated).
		Int("filters", len(req.Where)).
		Msg("table page loaded")
	return result, nil
}

// CountRows runs an exact, filter-aware COUNT(*) regardless of the
// backend's cost class. Used when the caller explicitly needs the real
// number and accepts the scan.
func (s *TableService) CountRows(ctx context.Context, conn Connection, table, schema string, where []string) (uint64, error) {
	d := conn.Dialect()
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s",
		d.QualifyTable(table, schema), buildWhere(where))
	s.log.Debug().Str("sql", countSQL).Msg("on-demand row count")

	res, err := conn.Query(ctx, countSQL, nil)
	if err != nil {
		return 0, err
	}
	total := firstUint64(res)
	if total == nil {
		return 0, NewError(ErrQuery, "COUNT(*) query returned no result")
	}
	return *total, nil
}

// EstimateRowCount returns a row total and whether it is an estimate.
// Fast-count backends always run the exact COUNT(*) and report
// estimated=false, even when called directly.
func (s *TableService) EstimateRowCount(ctx context.Context, conn Connection, table, schema string) (uint64, bool, error) {
	d := conn.Dialect()
	if d.FastCount {
		total, err := s.CountRows(ctx, conn, table, schema, nil)
		return total, false, err
	}

	estimateSQL := d.EstimateRowCountSQL(table, schema)
	s.log.Debug().Str("sql", estimateSQL).Msg("estimating row count")
	res, err := conn.Query(ctx, estimateSQL, nil)
	if err != nil {
		return 0, false, err
	}
	est := firstUint64(res)
	if est == nil {
		return 0, false, NewError(ErrQuery, "row count estimate query returned no result")
	}
	return *est, true, nil
}

// BrowseLastPage jumps to the final page without a large OFFSET: it fetches
// the tail with an inverted ORDER BY and no offset, runs the count with the
// usual cost-class rule concurrently, and reverses the fetched rows
// client-side so display order matches forward pagination.
//
// pkColumns supply the ordering when the request has no user sort; every
// primary-key column is ordered DESC in that case.
func (s *TableService) BrowseLastPage(ctx context.Context, conn Connection, req BrowseRequest, pkColumns []string) (*QueryResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	d := conn.Dialect()
	qualified := d.QualifyTable(req.Table, req.Schema)
	whereClause := buildWhere(req.Where)
	columns := s.projection(d, req.Columns)
	reversed := reversedOrder(d, req.OrderBy, pkColumns)

	dataSQL := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT %d",
		columns, qualified, whereClause, reversed, limit)
	s.log.Debug().Str("sql", dataSQL).Msg("last page via reversed query")

	// The count follows the same cost-class rule as BrowseTable: exact for
	// fast-count backends, catalog estimate for unfiltered slow-count
	// browses, none at all when filters are active on a slow-count backend.
	var result *QueryResult
	var total *uint64
	var estimated bool
	hasFilters := len(req.Where) > 0

	if d.FastCount {
		countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", qualified, whereClause)
		s.log.Debug().Str("sql", countSQL).Msg("counting rows for last page")

		var countRes *QueryResult
		var countErr error
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			res, err := conn.Query(gctx, dataSQL, nil)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
		countConn := s.countConnOr(conn)
		g.Go(func() error {
			countRes, countErr = countConn.Query(gctx, countSQL, nil)
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if countErr != nil {
			s.log.Warn().Err(countErr).Msg("COUNT(*) failed, pagination total unavailable")
		} else {
			total = firstUint64(countRes)
		}
	} else {
		res, err := conn.Query(ctx, dataSQL, nil)
		if err != nil {
			return nil, err
		}
		result = res

		if !hasFilters {
			estimateSQL := d.EstimateRowCountSQL(req.Table, req.Schema)
			estRes, err := s.countConnOr(conn).Query(ctx, estimateSQL, nil)
			if err != nil {
				s.log.Warn().Err(err).Msg("row count estimate failed")
			} else if est := firstUint64(estRes); est != nil {
				total = est
				estimated = true
			}
		}
	}

	reverseRows(result.Rows)
	result.TotalRows = total
	result.IsEstimatedTotal = estimated

	s.log.Info().Str("table", req.Table).Int("rows", len(result.Rows)).Bool("estimated", estimated).Msg("last page loaded")
	return result, nil
}

// BrowseNearEndPage fetches any page near the end of a table whose total is
// already known, by flipping the sort and computing a small offset from the
// tail instead of a huge offset from the start. No count query is issued.
//
// For total T, limit L and forward offset O:
//
//	reverse_offset = max(0, T - O - L)
//	reverse_limit  = min(L, T - O)
//
// so a partial final page shrinks the limit and clamps the offset to 0.
func (s *TableService) BrowseNearEndPage(ctx context.Context, conn Connection, req BrowseRequest, totalRows uint64, pkColumns []string) (*QueryResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	d := conn.Dialect()
	qualified := d.QualifyTable(req.Table, req.Schema)
	whereClause := buildWhere(req.Where)
	columns := s.projection(d, req.Columns)
	reversed := reversedOrder(d, req.OrderBy, pkColumns)

	total := int(totalRows)
	reverseOffset := total - req.Offset - limit
	if reverseOffset < 0 {
		reverseOffset = 0
	}
	reverseLimit := limit
	if remaining := total - req.Offset; remaining < reverseLimit {
		reverseLimit = remaining
	}
	if reverseLimit < 0 {
		reverseLimit = 0
	}

	dataSQL := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT %d OFFSET %d",
		columns, qualified, whereClause, reversed, reverseLimit, reverseOffset)
	s.log.Debug().
		Int("offset", req.Offset).
		Int("reverse_offset", reverseOffset).
		Int("reverse_limit", reverseLimit).
		Str("sql", dataSQL).
		Msg("near-end page via reversed query")

	result, err := conn.Query(ctx, dataSQL, nil)
	if err != nil {
		return nil, err
	}

	reverseRows(result.Rows)
	result.TotalRows = &totalRows
	result.IsEstimatedTotal = false
	return result, nil
}

// CellUpdateData carries a single-cell edit from the caller. Values arrive
// as display strings; column types guide parsing so numeric-looking strings
// (phone numbers, postal codes) are not silently turned into integers.
type CellUpdateData struct {
	ColumnName string
	// NewValue nil means NULL, an empty string means ''.
	NewValue *string
	// Full row context, used to build the row identifier.
	AllColumnNames []string
	AllRowValues   []string
	AllColumnTypes []string
}

// RowInsertData carries a row insert. A nil value means NULL unless the
// column has a default or is auto-increment, in which case it is omitted
// from the statement entirely.
type RowInsertData struct {
	ColumnNames []string
	Values      []*string
	ColumnTypes []string
}

// RowDeleteData identifies rows to delete by their full column values.
type RowDeleteData struct {
	AllColumnNames []string
	Rows           [][]string
}

// UpdateCell updates one cell, preferring a primary-key row identifier and
// falling back to full-row equality when the table declares no key.
func (s *TableService) UpdateCell(ctx context.Context, conn Connection, table, schema string, data CellUpdateData) error {
	ident, err := s.buildRowIdentifier(ctx, conn, table, &data)
	if err != nil {
		return err
	}

	var colType string
	for i, name := range data.AllColumnNames {
		if name == data.ColumnName && i < len(data.AllColumnTypes) {
			colType = data.AllColumnTypes[i]
		}
	}

	var newValue *Value
	if data.NewValue != nil {
		v := ParseDisplayValue(*data.NewValue, colType)
		newValue = &v
	}

	// Raw identifiers go to the driver; each backend escapes per its
	// dialect inside UpdateCell.
	tableName := table
	if schema != "" {
		tableName = schema + "." + table
	}

	affected, err := conn.UpdateCell(ctx, CellUpdateRequest{
		TableName:  tableName,
		ColumnName: data.ColumnName,
		NewValue:   newValue,
		Row:        ident,
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return NewError(ErrQuery, "no rows matched; the row may have been modified or deleted by another session")
	}

	s.log.Info().Str("table", table).Str("column", data.ColumnName).Uint64("affected", affected).Msg("cell updated")
	return nil
}

// InsertRow inserts one row using backend-appropriate placeholder syntax.
// Columns whose value is nil are bound as NULL unless the catalog reports a
// default or auto-increment, in which case they are left out so the backend
// fills them.
func (s *TableService) InsertRow(ctx context.Context, conn Connection, table, schema string, data RowInsertData) error {
	d := conn.Dialect()

	if len(data.ColumnNames) == 0 {
		return NewError(ErrQuery, "no columns specified for insert")
	}
	if len(data.ColumnNames) != len(data.Values) {
		return NewError(ErrQuery, "column/value count mismatch for insert")
	}
	if len(data.ColumnTypes) != 0 && len(data.ColumnTypes) != len(data.ColumnNames) {
		return NewError(ErrQuery, "column/type count mismatch for insert")
	}

	catalog := s.catalogColumns(ctx, conn, schema, table)

	columnType := func(i int) string {
		if i < len(data.ColumnTypes) && data.ColumnTypes[i] != "" {
			return data.ColumnTypes[i]
		}
		if info, ok := catalog[data.ColumnNames[i]]; ok {
			return info.DataType
		}
		return ""
	}

	var columns, placeholders []string
	var params []Value
	paramIndex := 1

	for i, name := range data.ColumnNames {
		val := data.Values[i]
		if val == nil {
			info, known := catalog[name]
			hasDefault := known && info.DefaultValue != nil && strings.TrimSpace(*info.DefaultValue) != ""
			autoInc := known && (info.AutoIncrement ||
				(info.DefaultValue != nil && strings.Contains(strings.ToLower(*info.DefaultValue), "nextval(")))
			if hasDefault || autoInc {
				continue
			}
			columns = append(columns, d.QuoteIdent(name))
			placeholders = append(placeholders, "NULL")
			continue
		}
		columns = append(columns, d.QuoteIdent(name))
		placeholders = append(placeholders, d.PlaceholderAt(paramIndex))
		paramIndex++
		params = append(params, ParseDisplayValue(*val, columnType(i)))
	}

	if len(columns) == 0 {
		return NewError(ErrQuery, "no values provided for insert")
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QualifyTable(table, schema),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))
	s.log.Debug().Str("sql", sql).Msg("inserting row")

	if _, err := conn.Execute(ctx, sql, params); err != nil {
		return err
	}
	s.log.Info().Str("table", table).Msg("row inserted")
	return nil
}

// DeleteRows deletes the identified rows, one DELETE per row, and returns
// how many rows the backend actually removed. An empty input deletes
// nothing and returns 0 without issuing any statement.
func (s *TableService) DeleteRows(ctx context.Context, conn Connection, table, schema string, data RowDeleteData) (uint64, error) {
	if len(data.Rows) == 0 {
		return 0, nil
	}
	d := conn.Dialect()

	intro := conn.SchemaIntrospection()
	if intro == nil {
		return 0, NewError(ErrNotSupported, "backend does not support schema introspection")
	}
	pk, err := intro.PrimaryKey(ctx, schema, table)
	if err != nil {
		pk = nil
	}

	var totalDeleted uint64
	for _, rowValues := range data.Rows {
		ident := s.identifierForRow(pk, data.AllColumnNames, rowValues)

		whereClause, params, err := BuildWhereClause(ident, d)
		if err != nil {
			return totalDeleted, err
		}
		sql := fmt.Sprintf("DELETE FROM %s WHERE %s", d.QualifyTable(table, schema), whereClause)
		s.log.Debug().Str("sql", sql).Msg("deleting row")

		res, err := conn.Execute(ctx, sql, params)
		if err != nil {
			return totalDeleted, err
		}
		totalDeleted += res.AffectedRows
	}

	s.log.Info().Str("table", table).Uint64("deleted", totalDeleted).Msg("rows deleted")
	return totalDeleted, nil
}

// identifierForRow prefers the primary key and falls back to full-row
// equality.
func (s *TableService) identifierForRow(pk *PrimaryKeyInfo, columnNames, rowValues []string) RowIdentifier {
	if pk != nil {
		var pkValues PrimaryKey
		for _, pkCol := range pk.Columns {
			for i, col := range columnNames {
				if col == pkCol && i < len(rowValues) {
					pkValues = append(pkValues, ColumnValue{Column: pkCol, Value: ParseDisplayValue(rowValues[i], "")})
				}
			}
		}
		if len(pkValues) > 0 {
			return pkValues
		}
	}

	var full FullRow
	for i, col := range columnNames {
		if i < len(rowValues) {
			full = append(full, ColumnValue{Column: col, Value: ParseDisplayValue(rowValues[i], "")})
		}
	}
	return full
}

func (s *TableService) buildRowIdentifier(ctx context.Context, conn Connection, table string, data *CellUpdateData) (RowIdentifier, error) {
	intro := conn.SchemaIntrospection()
	if intro == nil {
		return nil, NewError(ErrNotSupported, "backend does not support schema introspection")
	}

	if pk, err := intro.PrimaryKey(ctx, "", table); err == nil && pk != nil {
		var pkValues PrimaryKey
		for _, pkCol := range pk.Columns {
			for i, col := range data.AllColumnNames {
				if col == pkCol && i < len(data.AllRowValues) {
					colType := ""
					if i < len(data.AllColumnTypes) {
						colType = data.AllColumnTypes[i]
					}
					pkValues = append(pkValues, ColumnValue{
						Column: pkCol,
						Value:  ParseDisplayValue(data.AllRowValues[i], colType),
					})
				}
			}
		}
		if len(pkValues) > 0 {
			s.log.Debug().Msg("using primary key for row identification")
			return pkValues, nil
		}
	}

	s.log.Debug().Msg("no primary key, using full row for identification")
	var full FullRow
	for i, col := range data.AllColumnNames {
		if i >= len(data.AllRowValues) {
			break
		}
		colType := ""
		if i < len(data.AllColumnTypes) {
			colType = data.AllColumnTypes[i]
		}
		full = append(full, ColumnValue{Column: col, Value: ParseDisplayValue(data.AllRowValues[i], colType)})
	}
	return full, nil
}

// catalogColumns fetches column info keyed by name, or nil when
// introspection is unavailable. Best-effort: failures degrade to nil.
func (s *TableService) catalogColumns(ctx context.Context, conn Connection, schema, table string) map[string]ColumnInfo {
	intro := conn.SchemaIntrospection()
	if intro == nil {
		return nil
	}
	cols, err := intro.Columns(ctx, schema, table)
	if err != nil {
		return nil
	}
	m := make(map[string]ColumnInfo, len(cols))
	for _, c := range cols {
		m[c.Name] = c
	}
	return m
}

func (s *TableService) countConnOr(conn Connection) Connection {
	if s.countConn != nil {
		return s.countConn
	}
	return conn
}

func (s *TableService) projection(d *Dialect, visible []string) string {
	if len(visible) == 0 {
		return "*"
	}
	escaped := make([]string, len(visible))
	for i, c := range visible {
		escaped[i] = d.QuoteIdent(c)
	}
	return strings.Join(escaped, ", ")
}

// BuildWhereClause renders a row identifier as a predicate with positional
// placeholders numbered from 1, plus the parameter values in order. NULL
// values become IS NULL predicates and contribute no parameter. RowIndex is
// rejected: positional indexes are unsafe under concurrent mutation.
func BuildWhereClause(ident RowIdentifier, d *Dialect) (string, []Value, error) {
	var pairs []ColumnValue
	switch id := ident.(type) {
	case RowIndex:
		return "", nil, NewError(ErrNotSupported, "row index-based operations not supported; use primary key or full row identifier")
	case PrimaryKey:
		pairs = id
	case FullRow:
		pairs = id
	default:
		return "", nil, Errorf(ErrNotSupported, "unknown row identifier %T", ident)
	}

	var conditions []string
	var params []Value
	position := 1
	for _, cv := range pairs {
		if cv.Value.IsNull() {
			conditions = append(conditions, d.QuoteIdent(cv.Column)+" IS NULL")
			continue
		}
		conditions = append(conditions, d.QuoteIdent(cv.Column)+" = "+d.PlaceholderAt(position))
		position++
		params = append(params, cv.Value)
	}
	return strings.Join(conditions, " AND "), params, nil
}

func buildWhere(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

// reversedOrder flips every user sort direction, or orders by all primary
// key columns DESC when no user sort exists.
func reversedOrder(d *Dialect, orderBy, pkColumns []string) string {
	if len(orderBy) == 0 {
		parts := make([]string, len(pkColumns))
		for i, col := range pkColumns {
			parts[i] = d.QuoteIdent(col) + " DESC"
		}
		return strings.Join(parts, ", ")
	}
	parts := make([]string, len(orderBy))
	for i, clause := range orderBy {
		parts[i] = reverseOrderByClause(clause)
	}
	return strings.Join(parts, ", ")
}

// reverseOrderByClause flips the direction of one ORDER BY fragment while
// preserving any NULLS FIRST / NULLS LAST suffix. A fragment with no
// explicit direction is implicit ASC and reverses to DESC.
func reverseOrderByClause(clause string) string {
	trimmed := strings.TrimSpace(clause)

	core, nullsSuffix := trimmed, ""
	for _, suffix := range []string{" NULLS FIRST", " nulls first"} {
		if strings.HasSuffix(core, suffix) {
			core, nullsSuffix = strings.TrimSuffix(core, suffix), " NULLS FIRST"
		}
	}
	for _, suffix := range []string{" NULLS LAST", " nulls last"} {
		if strings.HasSuffix(core, suffix) {
			core, nullsSuffix = strings.TrimSuffix(core, suffix), " NULLS LAST"
		}
	}

	var reversed string
	switch {
	case strings.HasSuffix(core, " ASC"):
		reversed = strings.TrimSuffix(core, " ASC") + " DESC"
	case strings.HasSuffix(core, " asc"):
		reversed = strings.TrimSuffix(core, " asc") + " DESC"
	case strings.HasSuffix(core, " DESC"):
		reversed = strings.TrimSuffix(core, " DESC") + " ASC"
	case strings.HasSuffix(core, " desc"):
		reversed = strings.TrimSuffix(core, " desc") + " ASC"
	default:
		reversed = core + " DESC"
	}
	return reversed + nullsSuffix
}

func reverseRows(rows []Row) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// firstUint64 pulls the first value of the first row as a non-negative
// count. Negative catalog estimates (e.g. an unanalyzed pg_class) clamp
// to 0.
func firstUint64(res *QueryResult) *uint64 {
	if res == nil || len(res.Rows) == 0 || len(res.Rows[0].Values) == 0 {
		return nil
	}
	n, ok := res.Rows[0].Values[0].AsInt64()
	if !ok {
		return nil
	}
	if n < 0 {
		n = 0
	}
	u := uint64(n)
	return &u
}

// ParseDisplayValue converts a display string into a typed Value, guided by
// the column type when known. Without a type hint it falls back to
// heuristic inference: integer, float, bool, then string.
func ParseDisplayValue(raw string, columnType string) Value {
	if raw == "" {
		return String("")
	}
	if strings.EqualFold(raw, "null") {
		return Null()
	}
	if columnType != "" {
		return parseWithType(raw, columnType)
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n >= -2147483648 && n <= 2147483647 {
			return Int32(int32(n))
		}
		return Int64(n)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Float64(f)
	}
	if strings.EqualFold(raw, "true") {
		return Bool(true)
	}
	if strings.EqualFold(raw, "false") {
		return Bool(false)
	}
	return String(raw)
}

func parseWithType(raw, columnType string) Value {
	colType := strings.ToLower(columnType)

	if IsStringType(colType) {
		return String(raw)
	}
	if IsBooleanType(colType) {
		switch strings.ToLower(raw) {
		case "true", "t", "1", "yes":
			return Bool(true)
		case "false", "f", "0", "no":
			return Bool(false)
		default:
			return String(raw)
		}
	}
	if IsIntegerType(colType) {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if n >= -2147483648 && n <= 2147483647 {
				return Int32(int32(n))
			}
			return Int64(n)
		}
		return String(raw)
	}
	if IsFloatType(colType) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return Float64(f)
		}
		return String(raw)
	}

	// Dates, timestamps, UUIDs, JSON: keep as string and let the backend's
	// coercion upgrade them when it knows the target type.
	return String(raw)
}

// IsStringType reports whether a lowercase backend type name is textual.
func IsStringType(colType string) bool {
	switch colType {
	case "text", "varchar", "char", "bpchar", "name", "citext",
		"character varying", "character", "nvarchar", "nchar",
		"longtext", "mediumtext", "tinytext", "enum", "set":
		return true
	}
	return false
}

// IsBooleanType reports whether a lowercase backend type name is boolean.
func IsBooleanType(colType string) bool {
	switch colType {
	case "bool", "boolean", "tinyint(1)", "bit":
		return true
	}
	return false
}

// IsIntegerType reports whether a lowercase backend type name is integral.
func IsIntegerType(colType string) bool {
	switch colType {
	case "int2", "int4", "int8", "smallint", "integer", "bigint", "int",
		"mediumint", "tinyint", "serial", "bigserial", "smallserial":
		return true
	}
	return false
}

// IsFloatType reports whether a lowercase backend type name is a float or
// fixed-point numeric.
func IsFloatType(colType string) bool {
	switch colType {
	case "float4", "float8", "real", "double precision", "double",
		"float", "numeric", "decimal", "money":
		return true
	}
	return false
}
