// Package dbtest provides an in-process database.Connector that replays
// scripted results, for tests that must not reach a real store.
package dbtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
)

// Result is the scripted outcome of one Query call.
type Result struct {
	Columns []string
	Rows    [][]any
	// Tag is the command tag, e.g. "DELETE 1". Defaults to "SELECT <rows>".
	Tag string
	// Err is returned by Query instead of rows.
	Err error
}

// Call is one statement received by the connector.
type Call struct {
	SQL  string
	Args []any
}

// Connector replays Results in order, one per Query. Exec calls, used for
// transaction control, succeed unless ExecErrors names their SQL.
type Connector struct {
	// MaxConns limits concurrent sessions. Acquire blocks until the context
	// ends when the limit is reached. Zero means unlimited.
	MaxConns int32
	// AcquireErr, when set, fails every Acquire.
	AcquireErr error
	// PingErr is returned by Ping.
	PingErr error
	// ExecErrors fails Exec for the given SQL, e.g. "COMMIT".
	ExecErrors map[string]error
	// ExecTags overrides the command tag returned by Exec for the given SQL.
	ExecTags map[string]string

	mu       sync.Mutex
	script   []Result
	calls    []Call
	acquired int32
	acquires int
	releases int
	closed   bool
}

// NewConnector returns a connector that answers queries with results.
func NewConnector(results ...Result) *Connector {
	return &Connector{script: results}
}

// Push appends results to the script.
func (c *Connector) Push(results ...Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, results...)
}

// Calls returns every statement received, Exec and Query alike.
func (c *Connector) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// SQL returns the text of every statement received.
func (c *Connector) SQL() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	for i, call := range c.calls {
		out[i] = call.SQL
	}
	return out
}

// Acquires returns how many sessions were handed out.
func (c *Connector) Acquires() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquires
}

// Releases returns how many sessions were released.
func (c *Connector) Releases() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releases
}

// Closed reports whether Close was called.
func (c *Connector) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Acquire hands out a session.
func (c *Connector) Acquire(ctx context.Context) (database.Session, error) {
	if c.AcquireErr != nil {
		return nil, c.AcquireErr
	}

	c.mu.Lock()
	if c.MaxConns > 0 && c.acquired >= c.MaxConns {
		c.mu.Unlock()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	c.acquired++
	c.acquires++
	c.mu.Unlock()

	return &session{connector: c}, nil
}

// Ping returns PingErr.
func (c *Connector) Ping(ctx context.Context) error {
	return c.PingErr
}

// Stat reports the session counters.
func (c *Connector) Stat() database.Stat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return database.Stat{
		MaxConns:      c.MaxConns,
		TotalConns:    c.acquired,
		AcquiredConns: c.acquired,
	}
}

// Close marks the connector closed.
func (c *Connector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Connector) record(sql string, args []any) {
	c.calls = append(c.calls, Call{SQL: sql, Args: append([]any(nil), args...)})
}

type session struct {
	connector *Connector
	released  bool
}

func (s *session) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c := s.connector
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record(sql, args)
	if err := ctx.Err(); err != nil {
		return pgconn.CommandTag{}, err
	}
	if err, ok := c.ExecErrors[sql]; ok {
		return pgconn.CommandTag{}, err
	}
	if tag, ok := c.ExecTags[sql]; ok {
		return pgconn.NewCommandTag(tag), nil
	}
	return pgconn.NewCommandTag(sql), nil
}

func (s *session) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c := s.connector
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record(sql, args)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var res Result
	if len(c.script) > 0 {
		res = c.script[0]
		c.script = c.script[1:]
	}
	if res.Err != nil {
		return nil, res.Err
	}

	tag := res.Tag
	if tag == "" {
		tag = fmt.Sprintf("SELECT %d", len(res.Rows))
	}
	return newRows(res.Columns, res.Rows, tag), nil
}

func (s *session) Release() {
	c := s.connector
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.released {
		panic("dbtest: session released twice")
	}
	s.released = true
	c.acquired--
	c.releases++
}
