package database_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database/dbtest"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/metrics"
)

func newPool(t *testing.T, c *dbtest.Connector, acquireTimeout time.Duration) (*database.Pool, *metrics.InMemoryRecorder) {
	t.Helper()
	rec := metrics.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return database.NewPool(c, acquireTimeout, logger, rec), rec
}

func TestPool_Execute(t *testing.T) {
	c := dbtest.NewConnector(dbtest.Result{
		Columns: []string{"id", "nombre"},
		Rows:    [][]any{{int64(1), "Ana"}, {int64(2), "Luis"}},
	})
	pool, rec := newPool(t, c, time.Second)

	rs, err := pool.Execute(context.Background(), database.Statement{
		Intent: "list users",
		SQL:    "SELECT id, nombre FROM usuarios WHERE edad >= $1",
		Args:   []any{18},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "nombre"}, rs.Columns)
	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, "Luis", rs.Record(1).String("nombre"))

	calls := c.Calls()
	require.Len(t, calls, 1, "one round trip per statement")
	assert.Equal(t, []any{18}, calls[0].Args)

	assert.Equal(t, 1, c.Acquires())
	assert.Equal(t, 1, c.Releases())
	assert.Equal(t, uint64(1), rec.Snapshot().StatementsSucceeded)
}

func TestPool_Execute_RowsAffected(t *testing.T) {
	c := dbtest.NewConnector(dbtest.Result{Tag: "DELETE 3"})
	pool, _ := newPool(t, c, time.Second)

	rs, err := pool.Execute(context.Background(), database.Statement{Intent: "delete", SQL: "DELETE FROM pedidos"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rs.RowsAffected)
	assert.Equal(t, 0, rs.Len())
}

func TestPool_Execute_QueryFailure(t *testing.T) {
	c := dbtest.NewConnector(dbtest.Result{Err: errors.New("syntax error at or near \"SELEC\"")})
	pool, rec := newPool(t, c, time.Second)

	_, err := pool.Execute(context.Background(), database.Statement{Intent: "broken", SQL: "SELEC 1"})
	require.Error(t, err)

	var qe *database.QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "broken", qe.Intent)
	assert.ErrorIs(t, err, database.ErrQueryFailure)

	assert.Equal(t, 1, c.Releases(), "released on the error path")
	assert.Equal(t, uint64(1), rec.Snapshot().StatementsFailed)
}

func TestPool_WithConn_ReleasesOnPanic(t *testing.T) {
	c := dbtest.NewConnector()
	pool, _ := newPool(t, c, time.Second)

	assert.Panics(t, func() {
		_ = pool.WithConn(context.Background(), func(*database.Conn) error {
			panic("boom")
		})
	})
	assert.Equal(t, 1, c.Releases())
}

func TestConn_ReleaseIsIdempotent(t *testing.T) {
	c := dbtest.NewConnector()
	pool, _ := newPool(t, c, time.Second)

	var held *database.Conn
	err := pool.WithConn(context.Background(), func(conn *database.Conn) error {
		held = conn
		conn.Release()
		conn.Release()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Releases(), "deferred release after manual release is a no-op")

	_, err = held.Execute(context.Background(), database.Statement{Intent: "late", SQL: "SELECT 1"})
	assert.ErrorIs(t, err, database.ErrConnectionFailure)
}

func TestPool_Exhausted(t *testing.T) {
	c := dbtest.NewConnector()
	c.MaxConns = 1
	pool, rec := newPool(t, c, 20*time.Millisecond)

	err := pool.WithConn(context.Background(), func(*database.Conn) error {
		_, err := pool.Execute(context.Background(), database.Statement{Intent: "nested", SQL: "SELECT 1"})
		return err
	})

	assert.ErrorIs(t, err, database.ErrPoolExhausted)
	assert.ErrorIs(t, err, database.ErrConnectionFailure)
	assert.Equal(t, uint64(1), rec.Snapshot().PoolExhausted)
	assert.Equal(t, 1, c.Releases())
}

func TestPool_AcquireFailure(t *testing.T) {
	c := dbtest.NewConnector()
	c.AcquireErr = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	pool, _ := newPool(t, c, time.Second)

	_, err := pool.Execute(context.Background(), database.Statement{Intent: "x", SQL: "SELECT 1"})
	assert.ErrorIs(t, err, database.ErrConnectionFailure)
	assert.NotErrorIs(t, err, database.ErrPoolExhausted)
}

func TestPool_AcquireAbandoned(t *testing.T) {
	c := dbtest.NewConnector()
	c.MaxConns = 1
	pool, _ := newPool(t, c, time.Minute)

	err := pool.WithConn(context.Background(), func(*database.Conn) error {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := pool.Execute(ctx, database.Statement{Intent: "x", SQL: "SELECT 1"})
		return err
	})

	assert.ErrorIs(t, err, database.ErrConnectionFailure)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, database.ErrPoolExhausted)
}

func TestPool_ServerVersion(t *testing.T) {
	c := dbtest.NewConnector(dbtest.Result{
		Columns: []string{"version"},
		Rows:    [][]any{{"PostgreSQL 16.2"}},
	})
	pool, _ := newPool(t, c, time.Second)

	v, err := pool.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PostgreSQL 16.2", v)
}

func TestPool_PingStatClose(t *testing.T) {
	c := dbtest.NewConnector()
	c.MaxConns = 4
	pool, _ := newPool(t, c, time.Second)

	assert.NoError(t, pool.Ping(context.Background()))
	assert.Equal(t, int32(4), pool.Stat().MaxConns)

	c.PingErr = errors.New("down")
	assert.Error(t, pool.Ping(context.Background()))

	pool.Close()
	assert.True(t, c.Closed())
}
