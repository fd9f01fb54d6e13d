package database

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// errReleased is returned when a statement is issued on a released Conn.
var errReleased = fmt.Errorf("%w: connection already released", ErrConnectionFailure)

// Conn is a connection checked out from the Pool for one logical operation.
// Obtain it through Pool.WithConn, which guarantees the release.
type Conn struct {
	session  Session
	pool     *Pool
	released atomic.Bool
}

// Release returns the connection to the pool. Only the first call has effect.
func (c *Conn) Release() {
	if c.released.CompareAndSwap(false, true) {
		c.session.Release()
	}
}

// Execute runs one parameterized statement in a single round trip and
// collects its rows.
func (c *Conn) Execute(ctx context.Context, stmt Statement) (*RowSet, error) {
	if c.released.Load() {
		return nil, errReleased
	}

	start := time.Now()
	rows, err := c.session.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, c.fail(stmt, start, err)
	}

	rs, err := collectRows(rows)
	if err != nil {
		return nil, c.fail(stmt, start, err)
	}

	c.pool.metrics.IncStatement("success")
	c.pool.metrics.ObserveStatementDuration(time.Since(start))
	c.pool.logger.Debug("statement executed",
		"intent", stmt.Intent,
		"rows", rs.Len(),
		"rows_affected", rs.RowsAffected,
		"args", fingerprint(stmt.Args),
		"duration_ms", float64(time.Since(start).Microseconds())/1000,
	)

	return rs, nil
}

// exec issues a statement that returns no rows, such as transaction control.
func (c *Conn) exec(ctx context.Context, intent, sql string) (pgconn.CommandTag, error) {
	if c.released.Load() {
		return pgconn.CommandTag{}, errReleased
	}

	start := time.Now()
	tag, err := c.session.Exec(ctx, sql)
	if err != nil {
		return tag, c.fail(Statement{Intent: intent, SQL: sql}, start, err)
	}

	c.pool.metrics.IncStatement("success")
	c.pool.metrics.ObserveStatementDuration(time.Since(start))
	return tag, nil
}

// fail classifies a driver error, records it and returns a QueryError.
func (c *Conn) fail(stmt Statement, start time.Time, err error) error {
	qe := newQueryError(stmt.Intent, err)

	c.pool.metrics.IncStatement("failed")
	c.pool.metrics.ObserveStatementDuration(time.Since(start))

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.pool.logger.Info("statement abandoned",
			"intent", stmt.Intent,
			"error", err,
		)
		return qe
	}

	c.pool.logger.Warn("statement failed",
		"intent", stmt.Intent,
		"sqlstate", qe.Code,
		"message", qe.Message,
		"args", fingerprint(stmt.Args),
	)
	return qe
}

// collectRows drains rows into a RowSet and closes them.
func collectRows(rows pgx.Rows) (*RowSet, error) {
	defer rows.Close()

	values := make([][]any, 0)
	for rows.Next() {
		row, err := rows.Values()
		if err != nil {
			return nil, err
		}
		values = append(values, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	// The command tag is only complete once the rows are closed.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rs := NewRowSet(columns, values...)
	rs.RowsAffected = rows.CommandTag().RowsAffected()
	return rs, nil
}
