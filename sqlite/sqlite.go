package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tessera-db/tessera"
)

// Conn is a SQLite database connection. It is safe for concurrent use; an
// exclusive guard serializes every operation on the underlying handle.
type Conn struct {
	db     uintptr
	guard  *tessera.ExecGuard
	closed atomic.Bool
	log    zerolog.Logger
	path   string
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger attaches a logger to the connection.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Conn) { c.log = log }
}

// Open opens (or creates) a SQLite database. The path may be ":memory:", a
// file: URI, a ~-prefixed path or a relative path.
func Open(path string, opts ...Option) (*Conn, error) {
	if err := ensureLoaded(); err != nil {
		return nil, tessera.WrapError(tessera.ErrConnection, "sqlite library unavailable", err)
	}

	expanded, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	if expanded != ":memory:" && !strings.HasPrefix(expanded, "file:") {
		if parent := filepath.Dir(expanded); parent != "" {
			if _, statErr := os.Stat(parent); statErr != nil {
				return nil, tessera.Errorf(tessera.ErrConnection, "parent directory does not exist: %s", parent)
			}
		}
	}

	var db uintptr
	flags := int32(openReadWrite | openCreate | openURI | openNoMutex)
	if rc := libOpenV2(expanded, &db, flags, 0); rc != okCode {
		msg := "failed to open database"
		if db != 0 {
			msg = libErrmsg(db)
			libCloseV2(db)
		}
		return nil, tessera.Errorf(tessera.ErrConnection, "opening %q: %s", expanded, msg)
	}

	c := &Conn{
		db:    db,
		guard: tessera.NewExecGuard(),
		log:   zerolog.Nop(),
		path:  expanded,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := c.executeLocked(pragma, nil); err != nil {
			libCloseV2(db)
			return nil, tessera.WrapError(tessera.ErrConnection, "applying "+pragma, err)
		}
	}

	c.log.Info().Str("path", expanded).Msg("sqlite database opened")
	return c, nil
}

// expandPath resolves ~ and relative paths. ":memory:" and file: URIs pass
// through untouched.
func expandPath(path string) (string, error) {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path, nil
	}

	expanded := path
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", tessera.NewError(tessera.ErrConfiguration, "unable to determine home directory")
		}
		expanded = filepath.Join(home, rest)
	} else if strings.HasPrefix(path, "~") {
		return "", tessera.NewError(tessera.ErrConfiguration, "user-specific home directories (~user) are not supported")
	}

	if !filepath.IsAbs(expanded) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", tessera.WrapError(tessera.ErrIO, "resolving working directory", err)
		}
		expanded = filepath.Join(cwd, expanded)
	}
	return expanded, nil
}

// DriverName returns "sqlite".
func (c *Conn) DriverName() string { return "sqlite" }

// Dialect returns the SQLite dialect data.
func (c *Conn) Dialect() *tessera.Dialect { return tessera.DialectSQLite }

// Closed reports whether Close was called.
func (c *Conn) Closed() bool { return c.closed.Load() }

// Close closes the database handle. Idempotent.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.guard.Acquire(ctx); err == nil {
		defer c.guard.Release()
	}
	libCloseV2(c.db)
	c.db = 0
	c.log.Info().Str("path", c.path).Msg("sqlite database closed")
	return nil
}

// Query runs a row-returning statement.
func (c *Conn) Query(ctx context.Context, sql string, params []tessera.Value) (*tessera.QueryResult, error) {
	if c.closed.Load() {
		return nil, tessera.NewError(tessera.ErrConnection, "connection is closed")
	}
	if err := c.guard.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.guard.Release()
	return c.queryLocked(sql, params)
}

// Execute runs a non-row-returning statement.
func (c *Conn) Execute(ctx context.Context, sql string, params []tessera.Value) (*tessera.StatementResult, error) {
	if c.closed.Load() {
		return nil, tessera.NewError(tessera.ErrConnection, "connection is closed")
	}
	if err := c.guard.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.guard.Release()
	return c.executeLocked(sql, params)
}

// UpdateCell synthesizes a literal-based single-cell UPDATE.
func (c *Conn) UpdateCell(ctx context.Context, req tessera.CellUpdateRequest) (uint64, error) {
	sql, err := tessera.BuildUpdateCellSQL(c.Dialect(), req)
	if err != nil {
		return 0, err
	}
	c.log.Debug().Str("sql", sql).Msg("updating cell")
	res, err := c.Execute(ctx, sql, nil)
	if err != nil {
		return 0, err
	}
	return res.AffectedRows, nil
}

// CancelHandle returns a handle that interrupts the running query via
// sqlite3_interrupt. Safe from any goroutine, idempotent.
func (c *Conn) CancelHandle() tessera.CancelHandle {
	return &cancelHandle{conn: c}
}

// SchemaIntrospection returns the pragma-based introspector.
func (c *Conn) SchemaIntrospection() tessera.SchemaIntrospection {
	return &introspector{conn: c}
}

type cancelHandle struct {
	conn *Conn
}

func (h *cancelHandle) Cancel() {
	if h.conn.closed.Load() {
		return
	}
	h.conn.log.Debug().Msg("interrupting sqlite query")
	libInterrupt(h.conn.db)
}

// queryLocked runs a query with the guard already held.
func (c *Conn) queryLocked(sql string, params []tessera.Value) (*tessera.QueryResult, error) {
	start := time.Now()

	stmt, err := c.prepare(sql)
	if err != nil {
		return nil, err
	}
	defer libFinalize(stmt)

	if err := c.bindAll(stmt, params); err != nil {
		return nil, err
	}

	// Column metadata comes from the prepared statement descriptors, so a
	// zero-row result still carries it.
	colCount := int(libColumnCount(stmt))
	columns := make([]tessera.ColumnMeta, colCount)
	names := make([]string, colCount)
	for i := 0; i < colCount; i++ {
		name := libColumnName(stmt, int32(i))
		columns[i] = tessera.ColumnMeta{
			Name:     name,
			DataType: strings.ToLower(libColumnDecltype(stmt, int32(i))),
			Nullable: true,
			Ordinal:  i,
		}
		names[i] = name
	}

	result := tessera.NewQueryResult()
	result.Columns = columns

	for {
		rc := libStep(stmt)
		if rc == doneCode {
			break
		}
		if rc != rowCode {
			return nil, c.stepError(rc)
		}
		values := make([]tessera.Value, colCount)
		for i := 0; i < colCount; i++ {
			values[i] = readColumn(stmt, int32(i))
		}
		result.Rows = append(result.Rows, tessera.NewRow(names, values))
	}

	result.ExecutionTimeMs = uint64(time.Since(start).Milliseconds())
	return result, nil
}

// executeLocked runs a statement with the guard already held.
func (c *Conn) executeLocked(sql string, params []tessera.Value) (*tessera.StatementResult, error) {
	stmt, err := c.prepare(sql)
	if err != nil {
		return nil, err
	}
	defer libFinalize(stmt)

	if err := c.bindAll(stmt, params); err != nil {
		return nil, err
	}

	for {
		rc := libStep(stmt)
		if rc == doneCode {
			break
		}
		if rc == rowCode {
			// Row-returning statement run through Execute; drain it.
			continue
		}
		return nil, c.stepError(rc)
	}

	return &tessera.StatementResult{
		AffectedRows: uint64(libChanges(c.db)),
	}, nil
}

func (c *Conn) prepare(sql string) (uintptr, error) {
	var stmt uintptr
	if rc := libPrepareV2(c.db, sql, -1, &stmt, nil); rc != okCode {
		return 0, tessera.Errorf(tessera.ErrQuery, "preparing statement: %s", libErrmsg(c.db))
	}
	if stmt == 0 {
		return 0, tessera.NewError(tessera.ErrQuery, "empty statement")
	}
	return stmt, nil
}

func (c *Conn) bindAll(stmt uintptr, params []tessera.Value) error {
	expected := int(libBindParameterCount(stmt))
	if expected != len(params) {
		return tessera.Errorf(tessera.ErrQuery, "statement expects %d parameters, got %d", expected, len(params))
	}
	for i, p := range params {
		if rc := bindValue(stmt, int32(i+1), p); rc != okCode {
			return tessera.Errorf(tessera.ErrQuery, "binding parameter %d: %s", i+1, libErrmsg(c.db))
		}
	}
	return nil
}

func (c *Conn) stepError(rc int32) error {
	msg := libErrmsg(c.db)
	if rc == errInterrupt {
		return tessera.Errorf(tessera.ErrQuery, "query interrupted: %s", msg)
	}
	return tessera.Errorf(tessera.ErrQuery, "executing statement: %s", msg)
}

// bindValue maps a Value onto the SQLite bind call for its natural storage
// class. SQLite is dynamically typed, so no target-type coercion applies:
// integers are always 64-bit, temporals and UUIDs bind as text.
func bindValue(stmt uintptr, idx int32, v tessera.Value) int32 {
	switch v.Kind() {
	case tessera.KindNull:
		return libBindNull(stmt, idx)
	case tessera.KindBool:
		n := int64(0)
		if v.BoolValue() {
			n = 1
		}
		return libBindInt64(stmt, idx, n)
	case tessera.KindInt8, tessera.KindInt16, tessera.KindInt32, tessera.KindInt64:
		return libBindInt64(stmt, idx, v.Int64Value())
	case tessera.KindFloat32, tessera.KindFloat64:
		return libBindDouble(stmt, idx, v.Float64Value())
	case tessera.KindBytes:
		b := v.BytesValue()
		if len(b) == 0 {
			return libBindBlob(stmt, idx, nil, 0, transientDestructor)
		}
		return libBindBlob(stmt, idx, &b[0], int32(len(b)), transientDestructor)
	default:
		s := v.String()
		return libBindText(stmt, idx, s, int32(len(s)), transientDestructor)
	}
}

// readColumn converts the current row's column by its runtime storage
// class.
func readColumn(stmt uintptr, idx int32) tessera.Value {
	switch libColumnType(stmt, idx) {
	case typeInteger:
		return tessera.Int64(libColumnInt64(stmt, idx))
	case typeFloat:
		return tessera.Float64(libColumnDouble(stmt, idx))
	case typeText:
		return tessera.String(libColumnText(stmt, idx))
	case typeBlob:
		return tessera.Bytes(columnBlob(stmt, idx))
	default:
		return tessera.Null()
	}
}
