// Package postgres implements the PostgreSQL backend on pgx. It is the one
// backend whose prepared statements expose parameter type OIDs, so string
// parameters get best-effort upgrades to the temporal, JSON or UUID types
// the target column expects.
package postgres

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/tessera-db/tessera"
)

// Conn is a PostgreSQL connection. An exclusive guard serializes every
// operation; cancellation goes out of band over a separate cancel-request
// connection.
type Conn struct {
	pg     *pgx.Conn
	guard  *tessera.ExecGuard
	closed atomic.Bool
	log    zerolog.Logger
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger attaches a logger to the connection.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Conn) { c.log = log }
}

// Connect opens a connection using a pgx connection string or URL.
func Connect(ctx context.Context, connString string, opts ...Option) (*Conn, error) {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, tessera.WrapError(tessera.ErrConfiguration, "parsing connection string", err)
	}
	pg, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, tessera.WrapError(tessera.ErrConnection, "connecting to postgres", err)
	}

	c := &Conn{
		pg:    pg,
		guard: tessera.NewExecGuard(),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log.Info().Str("database", cfg.Database).Str("host", cfg.Host).Msg("postgres connected")
	return c, nil
}

// DriverName returns "postgres".
func (c *Conn) DriverName() string { return "postgres" }

// Dialect returns the PostgreSQL dialect data.
func (c *Conn) Dialect() *tessera.Dialect { return tessera.DialectPostgres }

// Closed reports whether Close was called.
func (c *Conn) Closed() bool { return c.closed.Load() }

// Close closes the connection. Idempotent.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.guard.Acquire(ctx); err == nil {
		defer c.guard.Release()
	}
	err := c.pg.Close(ctx)
	c.log.Info().Msg("postgres connection closed")
	return err
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
	return c.queryLocked(ctx, sql, params)
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
	return c.executeLocked(ctx, sql, params)
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

// CancelHandle returns a handle that sends a PostgreSQL cancel request over
// its own connection. Safe from any goroutine.
func (c *Conn) CancelHandle() tessera.CancelHandle {
	return &cancelHandle{conn: c}
}

// SchemaIntrospection returns the catalog-based introspector.
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
	h.conn.log.Debug().Msg("sending postgres cancel request")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.conn.pg.PgConn().CancelRequest(ctx); err != nil {
		h.conn.log.Warn().Err(err).Msg("cancel request failed")
	}
}

func (c *Conn) queryLocked(ctx context.Context, sql string, params []tessera.Value) (*tessera.QueryResult, error) {
	start := time.Now()

	args, err := c.bindParams(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	rows, err := c.pg.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapPgError(err)
	}
	defer rows.Close()

	// Field descriptions are available before the first row, so zero-row
	// results still carry full column metadata.
	fields := rows.FieldDescriptions()
	columns := make([]tessera.ColumnMeta, len(fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = tessera.ColumnMeta{
			Name:     f.Name,
			DataType: c.typeNameForOID(f.DataTypeOID),
			Nullable: true,
			Ordinal:  i,
		}
		names[i] = f.Name
	}

	result := tessera.NewQueryResult()
	result.Columns = columns

	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			return nil, wrapPgError(err)
		}
		values := make([]tessera.Value, len(raw))
		for i, cell := range raw {
			values[i] = cellValue(fields[i].DataTypeOID, cell)
		}
		result.Rows = append(result.Rows, tessera.NewRow(names, values))
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError(err)
	}

	result.ExecutionTimeMs = uint64(time.Since(start).Milliseconds())
	return result, nil
}

func (c *Conn) executeLocked(ctx context.Context, sql string, params []tessera.Value) (*tessera.StatementResult, error) {
	args, err := c.bindParams(ctx, sql, params)
	if err != nil {
		return nil, err
	}
	tag, err := c.pg.Exec(ctx, sql, args...)
	if err != nil {
		return nil, wrapPgError(err)
	}
	return &tessera.StatementResult{
		AffectedRows: uint64(tag.RowsAffected()),
	}, nil
}

// bindParams prepares the statement to learn parameter OIDs and coerces
// each value toward its target type. When the prepare fails the statement
// may still be executable (e.g. multi-statement input), so binding degrades
// to the type-agnostic representation.
func (c *Conn) bindParams(ctx context.Context, sql string, params []tessera.Value) ([]any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	sd, err := c.pg.Prepare(ctx, "", sql)
	if err != nil {
		c.log.Debug().Err(err).Msg("prepare failed, binding without target types")
		return bindFallback(params), nil
	}
	if len(sd.ParamOIDs) != len(params) {
		return nil, tessera.Errorf(tessera.ErrQuery, "statement expects %d parameters, got %d", len(sd.ParamOIDs), len(params))
	}
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = coerceParam(p, sd.ParamOIDs[i])
	}
	return args, nil
}

func (c *Conn) typeNameForOID(oid uint32) string {
	if t, ok := c.pg.TypeMap().TypeForOID(oid); ok {
		return t.Name
	}
	return ""
}

// wrapPgError lifts server error fields (detail, hint, column) into the
// driver-neutral error.
func wrapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &tessera.Error{
			Type:    tessera.ErrQuery,
			Message: pgErr.Message,
			Detail:  pgErr.Detail,
			Hint:    pgErr.Hint,
			Column:  pgErr.ColumnName,
			Err:     err,
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return tessera.WrapError(tessera.ErrQuery, "query interrupted", err)
	}
	return tessera.WrapError(tessera.ErrQuery, "executing statement", err)
}
