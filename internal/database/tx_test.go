package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/database/dbtest"
)

func insertStep(sql string) database.Step {
	return database.Step{Statement: database.Statement{Intent: "step", SQL: sql, Args: []any{"v"}}}
}

func TestTx_Commit(t *testing.T) {
	c := dbtest.NewConnector(
		dbtest.Result{Columns: []string{"id"}, Rows: [][]any{{int64(5)}}},
		dbtest.Result{Columns: []string{"id"}, Rows: [][]any{{int64(9)}}},
	)
	pool, _ := newPool(t, c, time.Second)

	var tx *database.Tx
	var results []*database.RowSet
	err := pool.WithConn(context.Background(), func(conn *database.Conn) error {
		tx = database.NewTx(conn)
		assert.Equal(t, database.TxIdle, tx.State())

		var err error
		results, err = tx.Run(context.Background(), []database.Step{
			insertStep("INSERT a"),
			{
				Statement: database.Statement{Intent: "second", SQL: "INSERT b", Args: []any{int64(0), "x"}},
				Bind: func(prior []*database.RowSet) ([]any, error) {
					return []any{prior[0].Record(0).Int64("id"), "x"}, nil
				},
			},
		})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, database.TxCommitted, tx.State())
	require.Len(t, results, 2)
	assert.Equal(t, []string{"BEGIN", "INSERT a", "INSERT b", "COMMIT"}, c.SQL())
	assert.Equal(t, []any{int64(5), "x"}, c.Calls()[2].Args)
	assert.Equal(t, 1, c.Releases())

	_, err = tx.Run(context.Background(), nil)
	assert.Error(t, err, "a finished transaction cannot be reused")
}

func TestTx_StepFailureRollsBack(t *testing.T) {
	c := dbtest.NewConnector(
		dbtest.Result{Columns: []string{"id"}, Rows: [][]any{{int64(5)}}},
		dbtest.Result{Err: errors.New("check constraint violated")},
	)
	pool, rec := newPool(t, c, time.Second)

	_, err := pool.RunTransaction(context.Background(),
		insertStep("INSERT a"),
		insertStep("INSERT b"),
		insertStep("INSERT c"),
	)
	require.Error(t, err)

	var txErr *database.TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, 1, txErr.StepIndex)
	assert.ErrorIs(t, err, database.ErrTransactionFailure)
	assert.ErrorIs(t, err, database.ErrQueryFailure)

	assert.Equal(t, []string{"BEGIN", "INSERT a", "INSERT b", "ROLLBACK"}, c.SQL())
	assert.Equal(t, 1, c.Releases())
	assert.Equal(t, uint64(1), rec.Snapshot().TransactionsRolledBack)
}

func TestTx_BindFailureRollsBack(t *testing.T) {
	c := dbtest.NewConnector(dbtest.Result{Columns: []string{"id"}})
	pool, _ := newPool(t, c, time.Second)

	_, err := pool.RunTransaction(context.Background(),
		insertStep("INSERT a"),
		database.Step{
			Statement: database.Statement{Intent: "second", SQL: "INSERT b"},
			Bind: func(prior []*database.RowSet) ([]any, error) {
				return nil, errors.New("no id returned")
			},
		},
	)

	var txErr *database.TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, 1, txErr.StepIndex)
	assert.Equal(t, []string{"BEGIN", "INSERT a", "ROLLBACK"}, c.SQL())
}

func TestTx_BeginFailure(t *testing.T) {
	c := dbtest.NewConnector()
	c.ExecErrors = map[string]error{"BEGIN": errors.New("connection reset")}
	pool, rec := newPool(t, c, time.Second)

	_, err := pool.RunTransaction(context.Background(), insertStep("INSERT a"))
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrQueryFailure)
	assert.NotErrorIs(t, err, database.ErrTransactionFailure)
	assert.Equal(t, []string{"BEGIN"}, c.SQL())
	assert.Equal(t, 1, c.Releases())
	assert.Equal(t, uint64(1), rec.Snapshot().TransactionsNotBegun)
}

func TestTx_CommitFailure(t *testing.T) {
	c := dbtest.NewConnector(dbtest.Result{})
	c.ExecErrors = map[string]error{"COMMIT": errors.New("could not serialize access")}
	pool, _ := newPool(t, c, time.Second)

	_, err := pool.RunTransaction(context.Background(), insertStep("INSERT a"))

	var txErr *database.TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, 1, txErr.StepIndex, "commit failure reports len(steps)")
	assert.Equal(t, []string{"BEGIN", "INSERT a", "COMMIT", "ROLLBACK"}, c.SQL())
}

func TestTx_CommitAnsweredWithRollback(t *testing.T) {
	c := dbtest.NewConnector(dbtest.Result{})
	c.ExecTags = map[string]string{"COMMIT": "ROLLBACK"}
	pool, rec := newPool(t, c, time.Second)

	_, err := pool.RunTransaction(context.Background(), insertStep("INSERT a"))
	assert.ErrorIs(t, err, database.ErrTransactionFailure)
	assert.Equal(t, uint64(1), rec.Snapshot().TransactionsRolledBack)
}

func TestTx_RollbackSurvivesCancellation(t *testing.T) {
	c := dbtest.NewConnector()
	pool, _ := newPool(t, c, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tx *database.Tx
	err := pool.WithConn(ctx, func(conn *database.Conn) error {
		tx = database.NewTx(conn)
		_, err := tx.Run(ctx, []database.Step{{
			Statement: database.Statement{Intent: "abandoned", SQL: "INSERT a"},
			Bind: func(prior []*database.RowSet) ([]any, error) {
				// The caller goes away between BEGIN and the first statement.
				cancel()
				return nil, nil
			},
		}})
		return err
	})

	assert.ErrorIs(t, err, database.ErrTransactionFailure)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, database.TxRolledBack, tx.State())
	assert.Equal(t, []string{"BEGIN", "INSERT a", "ROLLBACK"}, c.SQL())
	assert.Equal(t, 1, c.Releases())
}

func TestTx_RollbackFailureIsJoined(t *testing.T) {
	c := dbtest.NewConnector(dbtest.Result{Err: errors.New("step failed")})
	c.ExecErrors = map[string]error{"ROLLBACK": errors.New("connection lost")}
	pool, _ := newPool(t, c, time.Second)

	_, err := pool.RunTransaction(context.Background(), insertStep("INSERT a"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "step failed")
	assert.ErrorContains(t, err, "connection lost")
	assert.Equal(t, 1, c.Releases())
}

func TestTxState_String(t *testing.T) {
	assert.Equal(t, "idle", database.TxIdle.String())
	assert.Equal(t, "begun", database.TxBegun.String())
	assert.Equal(t, "committed", database.TxCommitted.String())
	assert.Equal(t, "rolled_back", database.TxRolledBack.String())
}
