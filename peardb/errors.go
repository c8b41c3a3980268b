package peardb

import (
	"errors"
	"fmt"

	"github.com/kroma-labs/peardb-go/sqlstate"
)

// SuccessState is the SQLSTATE recorded after a successful operation.
const SuccessState = sqlstate.Success

// ErrorInfo is the (SQLSTATE, driver code, message) status recorded on a
// statement or connection after every operation.
type ErrorInfo = sqlstate.Info

var (
	// ErrInvalidAutoQueryMode is returned by AutoExecute for modes other than
	// AutoQueryInsert and AutoQueryUpdate. No SQL is executed.
	ErrInvalidAutoQueryMode = errors.New("peardb: invalid query mode passed to autoExecute")

	// ErrInvalidColumn is returned when a column index is outside the result set.
	ErrInvalidColumn = errors.New("peardb: invalid column index")

	// ErrNoTransaction is returned by Commit and Rollback when no
	// transaction is active.
	ErrNoTransaction = errors.New("peardb: there is no active transaction")

	// ErrTransactionActive is returned by AutoCommit(false) when a
	// transaction is already open.
	ErrTransactionActive = errors.New("peardb: there is already an active transaction")

	// ErrNotExecuted is returned when fetching from a statement that has not
	// been executed successfully.
	ErrNotExecuted = errors.New("peardb: statement has no result set")

	// ErrNilStatement is returned when executing a nil *Stmt.
	ErrNilStatement = errors.New("peardb: nil statement")
)

// Error is a failed database operation together with its classified status.
// It is the Go rendition of the legacy error object: GetCode and GetMessage
// return the SQLSTATE and the driver message.
type Error struct {
	Info ErrorInfo
	Err  error
}

// newError classifies err. It returns nil for a nil err.
func newError(err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	return &Error{Info: sqlstate.Classify(err), Err: err}
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("peardb: SQLSTATE[%s]: %s", e.Info.SQLState, e.Info.Message)
}

// Unwrap returns the driver error.
func (e *Error) Unwrap() error {
	return e.Err
}

// GetCode returns the SQLSTATE.
func (e *Error) GetCode() string {
	return e.Info.SQLState
}

// GetMessage returns the driver message.
func (e *Error) GetMessage() string {
	return e.Info.Message
}

// AsErrorInfo returns the status carried by err when err wraps an *Error.
func AsErrorInfo(err error) (ErrorInfo, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Info, true
	}
	return ErrorInfo{}, false
}
