package database

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// rollbackTimeout bounds the ROLLBACK issued after a failure, which runs even
// when the caller's context is already cancelled.
const rollbackTimeout = 5 * time.Second

// TxState is the lifecycle state of a Tx.
type TxState int

const (
	TxIdle TxState = iota
	TxBegun
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxIdle:
		return "idle"
	case TxBegun:
		return "begun"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("TxState(%d)", int(s))
	}
}

// Step is one statement of a transaction. When Bind is set it computes the
// arguments from the results of the steps before it, replacing Args.
type Step struct {
	Statement
	Bind func(prior []*RowSet) ([]any, error)
}

// Tx runs a sequence of steps on one connection between BEGIN and COMMIT.
// A Tx is single use.
type Tx struct {
	conn  *Conn
	state TxState
}

// NewTx prepares a transaction on conn. The caller owns the connection.
func NewTx(conn *Conn) *Tx {
	return &Tx{conn: conn, state: TxIdle}
}

// State returns the current state.
func (t *Tx) State() TxState {
	return t.state
}

// Run issues BEGIN, executes every step in order and issues COMMIT when all
// of them succeed. If a step fails, ROLLBACK is issued before Run returns a
// *TransactionError naming the step; a failed COMMIT reports
// StepIndex == len(steps). A failed BEGIN returns the QueryError and leaves
// the Tx idle.
func (t *Tx) Run(ctx context.Context, steps []Step) ([]*RowSet, error) {
	if t.state != TxIdle {
		return nil, fmt.Errorf("transaction is %s", t.state)
	}

	if _, err := t.conn.exec(ctx, "begin transaction", "BEGIN"); err != nil {
		return nil, err
	}
	t.state = TxBegun

	results := make([]*RowSet, 0, len(steps))
	for i, step := range steps {
		stmt := step.Statement
		if step.Bind != nil {
			args, err := step.Bind(results)
			if err != nil {
				return nil, t.abort(ctx, i, fmt.Errorf("bind %s: %w", stmt.Intent, err))
			}
			stmt.Args = args
		}

		rs, err := t.conn.Execute(ctx, stmt)
		if err != nil {
			return nil, t.abort(ctx, i, err)
		}
		results = append(results, rs)
	}

	tag, err := t.conn.exec(ctx, "commit transaction", "COMMIT")
	if err != nil {
		return nil, t.abort(ctx, len(steps), err)
	}
	// PostgreSQL answers COMMIT of an aborted transaction with ROLLBACK.
	if tag.String() == "ROLLBACK" {
		t.state = TxRolledBack
		return nil, &TransactionError{StepIndex: len(steps), Cause: errors.New("commit was rolled back by the store")}
	}
	t.state = TxCommitted

	return results, nil
}

// abort rolls back and wraps cause. If ROLLBACK itself fails the connection
// is left outside the idle state and the pool discards it on release, which
// ends the transaction server side.
func (t *Tx) abort(ctx context.Context, index int, cause error) error {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	if _, err := t.conn.exec(rbCtx, "rollback transaction", "ROLLBACK"); err != nil {
		t.conn.pool.logger.Error("rollback failed",
			"failed_step", index,
			"error", err,
		)
		cause = errors.Join(cause, err)
	}
	t.state = TxRolledBack

	return &TransactionError{StepIndex: index, Cause: cause}
}
