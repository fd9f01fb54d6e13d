// Package database provides connection pooling, statement execution and
// transaction primitives on top of PostgreSQL.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/metrics"
)

// Session is a single connection checked out from a Connector.
type Session interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Release()
}

// Connector owns the physical connections. It is the only component that
// opens or closes them.
type Connector interface {
	Acquire(ctx context.Context) (Session, error)
	Ping(ctx context.Context) error
	Stat() Stat
	Close()
}

// Stat is a point-in-time view of the pool.
type Stat struct {
	MaxConns      int32
	TotalConns    int32
	AcquiredConns int32
	IdleConns     int32
}

// Options configures Open.
type Options struct {
	URL              string
	MaxConns         int32
	MinConns         int32
	AcquireTimeout   time.Duration
	StatementTimeout time.Duration
}

// Pool hands out scoped connections and runs statements on them.
type Pool struct {
	connector      Connector
	acquireTimeout time.Duration
	logger         *slog.Logger
	metrics        metrics.Recorder
}

// Open creates a pgx connection pool and verifies it with a ping.
func Open(ctx context.Context, opts Options, logger *slog.Logger, recorder metrics.Recorder) (*Pool, error) {
	config, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse database URL: %w", ErrConnectionFailure, err)
	}

	// Connection pool settings
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 && opts.MinConns <= config.MaxConns {
		config.MinConns = opts.MinConns
	}
	if opts.StatementTimeout > 0 {
		config.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create connection pool: %w", ErrConnectionFailure, err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", ErrConnectionFailure, err)
	}

	return NewPool(&pgxConnector{pool: pool}, opts.AcquireTimeout, logger, recorder), nil
}

// NewPool wraps an existing Connector.
func NewPool(connector Connector, acquireTimeout time.Duration, logger *slog.Logger, recorder metrics.Recorder) *Pool {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		connector:      connector,
		acquireTimeout: acquireTimeout,
		logger:         logger.With("component", "database.pool"),
		metrics:        recorder,
	}
}

// Ping checks database connectivity.
func (p *Pool) Ping(ctx context.Context) error {
	return p.connector.Ping(ctx)
}

// Close closes every connection in the pool.
func (p *Pool) Close() {
	p.connector.Close()
}

// Stat returns current pool counters.
func (p *Pool) Stat() Stat {
	return p.connector.Stat()
}

// WithConn checks out a connection, runs fn with it and releases it on every
// exit path, including panics and cancellation.
func (p *Pool) WithConn(ctx context.Context, fn func(*Conn) error) error {
	conn, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return fn(conn)
}

// Execute runs a single statement on its own scoped connection.
func (p *Pool) Execute(ctx context.Context, stmt Statement) (*RowSet, error) {
	var rs *RowSet
	err := p.WithConn(ctx, func(c *Conn) error {
		var err error
		rs, err = c.Execute(ctx, stmt)
		return err
	})
	return rs, err
}

// RunTransaction runs steps inside BEGIN/COMMIT on one pinned connection.
// See Tx.Run for the failure contract.
func (p *Pool) RunTransaction(ctx context.Context, steps ...Step) ([]*RowSet, error) {
	var results []*RowSet
	err := p.WithConn(ctx, func(c *Conn) error {
		tx := NewTx(c)
		var err error
		results, err = tx.Run(ctx, steps)
		p.metrics.IncTransaction(tx.State().String())
		return err
	})
	return results, err
}

// ServerVersion reports the store's version string.
func (p *Pool) ServerVersion(ctx context.Context) (string, error) {
	rs, err := p.Execute(ctx, Statement{Intent: "server version", SQL: "SELECT version()"})
	if err != nil {
		return "", err
	}
	if rs.Len() != 1 {
		return "", &QueryError{Intent: "server version", Message: "expected one row, got " + strconv.Itoa(rs.Len())}
	}

	rec := rs.Record(0)
	version := rec.String("version")
	return version, rec.Err()
}

func (p *Pool) acquire(ctx context.Context) (*Conn, error) {
	acquireCtx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	start := time.Now()
	session, err := p.connector.Acquire(acquireCtx)
	p.metrics.ObserveAcquireWait(time.Since(start))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: acquire abandoned: %w", ErrConnectionFailure, ctxErr)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			st := p.connector.Stat()
			if st.MaxConns > 0 && st.AcquiredConns >= st.MaxConns {
				p.metrics.IncPoolExhausted()
				p.logger.Warn("connection pool exhausted",
					"max_conns", st.MaxConns,
					"acquired_conns", st.AcquiredConns,
				)
				return nil, fmt.Errorf("%w: %d of %d connections in use", ErrPoolExhausted, st.AcquiredConns, st.MaxConns)
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}

	return &Conn{session: session, pool: p}, nil
}

// pgxConnector adapts *pgxpool.Pool to Connector.
type pgxConnector struct {
	pool *pgxpool.Pool
}

func (c *pgxConnector) Acquire(ctx context.Context) (Session, error) {
	// pgxpool destroys a released connection that is still inside a
	// transaction, so an aborted session is never handed out again.
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *pgxConnector) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *pgxConnector) Stat() Stat {
	s := c.pool.Stat()
	return Stat{
		MaxConns:      s.MaxConns(),
		TotalConns:    s.TotalConns(),
		AcquiredConns: s.AcquiredConns(),
		IdleConns:     s.IdleConns(),
	}
}

func (c *pgxConnector) Close() {
	c.pool.Close()
}
