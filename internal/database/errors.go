package database

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
)

// Failure kinds returned by this package. Callers match them with errors.Is.
var (
	// ErrConnectionFailure means the pool could not produce a usable connection.
	ErrConnectionFailure = errors.New("connection failure")

	// ErrPoolExhausted means every connection stayed checked out until the
	// acquire deadline. It is a ConnectionFailure.
	ErrPoolExhausted = fmt.Errorf("%w: pool exhausted", ErrConnectionFailure)

	// ErrQueryFailure means the store rejected a statement.
	ErrQueryFailure = errors.New("query failure")

	// ErrNotFound is a business-level absence, not a fault.
	ErrNotFound = errors.New("not found")

	// ErrNoFieldsProvided means an update was requested with nothing to set.
	ErrNoFieldsProvided = errors.New("no fields provided")

	// ErrUnknownColumn means a field names a column the builder does not declare.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrTransactionFailure means a step failed after BEGIN; the transaction
	// was rolled back before the error was returned.
	ErrTransactionFailure = errors.New("transaction failure")

	// ErrNonContiguousRows means a joined row-set interleaved parent rows.
	ErrNonContiguousRows = errors.New("parent rows are not contiguous")
)

// QueryError is a statement rejected by the store. It carries the statement
// intent and the store's message but never the bound argument values.
type QueryError struct {
	Intent  string
	Message string
	Code    string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (SQLSTATE %s)", e.Intent, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Intent, e.Message)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is reports QueryError as an ErrQueryFailure.
func (e *QueryError) Is(target error) bool { return target == ErrQueryFailure }

// TransactionError reports the step that failed inside a transaction.
// StepIndex equals the number of steps when COMMIT itself failed.
type TransactionError struct {
	StepIndex int
	Cause     error
}

func (e *TransactionError) Error() string {
	return "transaction failed at step " + strconv.Itoa(e.StepIndex) + ": " + e.Cause.Error()
}

func (e *TransactionError) Unwrap() error { return e.Cause }

// Is reports TransactionError as an ErrTransactionFailure.
func (e *TransactionError) Is(target error) bool { return target == ErrTransactionFailure }

// newQueryError converts a driver error into a QueryError.
func newQueryError(intent string, err error) *QueryError {
	qe := &QueryError{Intent: intent, Message: err.Error(), Err: err}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		qe.Message = pgErr.Message
		qe.Code = pgErr.Code
	}
	return qe
}

// SQLSTATE codes this package inspects.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// IsUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsForeignKeyViolation checks if the error is a PostgreSQL foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

func hasCode(err error, code string) bool {
	var qe *QueryError
	if errors.As(err, &qe) && qe.Code == code {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
