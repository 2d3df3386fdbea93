// Package mysql implements the MySQL/MariaDB backend on database/sql with
// the go-sql-driver. The session is pinned to one pool connection so the
// exclusive guard and KILL-based cancellation both refer to a stable server
// thread.
package mysql

import (
	"context"
	"database/sql"
	"strconv"
	"sync/atomic"
	"time"

	godrv "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/tessera-db/tessera"
	"github.com/tessera-db/tessera/internal/stdsql"
)

// Conn is a MySQL connection. db owns the pool; session is the single
// pinned connection all statements run on. connID is the server-side thread
// id of that session, captured at connect time for KILL QUERY.
type Conn struct {
	db      *sql.DB
	session *sql.Conn
	connID  uint64
	guard   *tessera.ExecGuard
	closed  atomic.Bool
	log     zerolog.Logger
	dbName  string
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger attaches a logger to the connection.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Conn) { c.log = log }
}

// Open opens a connection using a go-sql-driver DSN
// (user:pass@tcp(host:port)/dbname).
func Open(ctx context.Context, dsn string, opts ...Option) (*Conn, error) {
	cfg, err := godrv.ParseDSN(dsn)
	if err != nil {
		return nil, tessera.WrapError(tessera.ErrConfiguration, "parsing DSN", err)
	}
	// Temporal columns must come back as time.Time, not []byte.
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, tessera.WrapError(tessera.ErrConfiguration, "opening database", err)
	}

	session, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, tessera.WrapError(tessera.ErrConnection, "connecting to mysql", err)
	}

	c := &Conn{
		db:      db,
		session: session,
		guard:   tessera.NewExecGuard(),
		log:     zerolog.Nop(),
		dbName:  cfg.DBName,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := session.QueryRowContext(ctx, "SELECT CONNECTION_ID()").Scan(&c.connID); err != nil {
		session.Close()
		db.Close()
		return nil, tessera.WrapError(tessera.ErrConnection, "reading connection id", err)
	}

	c.log.Info().Str("database", cfg.DBName).Uint64("connection_id", c.connID).Msg("mysql connected")
	return c, nil
}

// DriverName returns "mysql".
func (c *Conn) DriverName() string { return "mysql" }

// Dialect returns the MySQL dialect data.
func (c *Conn) Dialect() *tessera.Dialect { return tessera.DialectMySQL }

// Closed reports whether Close was called.
func (c *Conn) Closed() bool { return c.closed.Load() }

// Close closes the session and the pool. Idempotent.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.guard.Acquire(ctx); err == nil {
		defer c.guard.Release()
	}
	err := c.session.Close()
	if dbErr := c.db.Close(); err == nil {
		err = dbErr
	}
	c.log.Info().Msg("mysql connection closed")
	return err
}

// Query runs a row-returning statement.
func (c *Conn) Query(ctx context.Context, query string, params []tessera.Value) (*tessera.QueryResult, error) {
	if c.closed.Load() {
		return nil, tessera.NewError(tessera.ErrConnection, "connection is closed")
	}
	if err := c.guard.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.guard.Release()
	return c.queryLocked(ctx, query, params)
}

// Execute runs a non-row-returning statement.
func (c *Conn) Execute(ctx context.Context, query string, params []tessera.Value) (*tessera.StatementResult, error) {
	if c.closed.Load() {
		return nil, tessera.NewError(tessera.ErrConnection, "connection is closed")
	}
	if err := c.guard.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.guard.Release()
	return c.executeLocked(ctx, query, params)
}

// UpdateCell synthesizes a literal-based single-cell UPDATE.
func (c *Conn) UpdateCell(ctx context.Context, req tessera.CellUpdateRequest) (uint64, error) {
	query, err := tessera.BuildUpdateCellSQL(c.Dialect(), req)
	if err != nil {
		return 0, err
	}
	c.log.Debug().Str("sql", query).Msg("updating cell")
	res, err := c.Execute(ctx, query, nil)
	if err != nil {
		return 0, err
	}
	return res.AffectedRows, nil
}

// CancelHandle returns a handle that kills the session's running statement
// from a fresh pool connection. MySQL has no out-of-band cancel protocol;
// KILL QUERY on the captured thread id is the supported mechanism.
func (c *Conn) CancelHandle() tessera.CancelHandle {
	return &cancelHandle{conn: c}
}

// SchemaIntrospection returns the information_schema-based introspector.
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
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h.conn.log.Debug().Uint64("connection_id", h.conn.connID).Msg("killing mysql query")
	killer, err := h.conn.db.Conn(ctx)
	if err != nil {
		h.conn.log.Warn().Err(err).Msg("unable to open kill connection")
		return
	}
	defer killer.Close()
	if _, err := killer.ExecContext(ctx, "KILL QUERY "+strconv.FormatUint(h.conn.connID, 10)); err != nil {
		h.conn.log.Warn().Err(err).Msg("KILL QUERY failed")
	}
}

func (c *Conn) queryLocked(ctx context.Context, query string, params []tessera.Value) (*tessera.QueryResult, error) {
	start := time.Now()

	rows, err := c.session.QueryContext(ctx, query, stdsql.BindArgs(params)...)
	if err != nil {
		return nil, tessera.WrapError(tessera.ErrQuery, "executing statement", err)
	}
	defer rows.Close()

	columns, err := stdsql.ColumnMeta(rows)
	if err != nil {
		return nil, tessera.WrapError(tessera.ErrQuery, "reading column metadata", err)
	}

	result := tessera.NewQueryResult()
	result.Columns = columns
	result.Rows, err = stdsql.ScanAll(rows, result.ColumnNames())
	if err != nil {
		return nil, tessera.WrapError(tessera.ErrQuery, "scanning rows", err)
	}

	result.ExecutionTimeMs = uint64(time.Since(start).Milliseconds())
	return result, nil
}

func (c *Conn) executeLocked(ctx context.Context, query string, params []tessera.Value) (*tessera.StatementResult, error) {
	res, err := c.session.ExecContext(ctx, query, stdsql.BindArgs(params)...)
	if err != nil {
		return nil, tessera.WrapError(tessera.ErrQuery, "executing statement", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	return &tessera.StatementResult{
		AffectedRows: uint64(affected),
	}, nil
}
