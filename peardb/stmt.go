package peardb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CurrentRow is the FetchRow offset meaning "wherever the cursor is now".
const CurrentRow = -1

// Stmt is a prepared statement with the legacy statement accessors.
//
// After Execute the statement carries an error status (see ErrorInfo) and,
// for statements that return rows, a forward-only cursor. A Stmt is produced
// by DB.Prepare or DB.RunQuery and keeps a reference to the DB that made it.
// It must not be used from more than one goroutine at a time.
type Stmt struct {
	db    *DB
	stmt  *sqlx.Stmt
	id    string
	query string

	rows     *sqlx.Rows
	columns  []string
	cursor   bool
	fetched  int64
	affected int64

	info ErrorInfo
	err  error
}

// newStmt wraps a prepared statement.
func newStmt(db *DB, stmt *sqlx.Stmt, query string) *Stmt {
	return &Stmt{
		db:    db,
		stmt:  stmt,
		id:    uuid.NewString(),
		query: query,
	}
}

// newFailedStmt returns a statement whose preparation failed. Its status is
// the classified prepare error and every operation on it reports that error.
func newFailedStmt(db *DB, query string, err error) *Stmt {
	s := newStmt(db, nil, query)
	s.record(err)
	return s
}

// ID returns the statement identifier used in log events.
func (s *Stmt) ID() string {
	return s.id
}

// Query returns the SQL text as given to Prepare.
func (s *Stmt) Query() string {
	return s.query
}

// DB returns the DB that prepared the statement.
func (s *Stmt) DB() *DB {
	return s.db
}

// Execute binds params positionally and runs the statement. Statements that
// return rows open a cursor; all others record the number of affected rows.
// Leading comments are skipped when deciding, and a RETURNING clause opens a
// cursor for any statement.
//
// The outcome is also recorded as the statement's error status, so callers
// following the legacy style may ignore the returned error and poll IsError.
func (s *Stmt) Execute(ctx context.Context, params ...any) error {
	if s == nil {
		return ErrNilStatement
	}
	return s.run(ctx, returnsRows(s.query), params)
}

// executeQuery runs the statement with a cursor whatever its leading keyword.
// Helpers that always fetch use it.
func (s *Stmt) executeQuery(ctx context.Context, params []any) error {
	return s.run(ctx, true, params)
}

func (s *Stmt) run(ctx context.Context, cursor bool, params []any) error {
	if s.stmt == nil {
		return &Error{Info: s.info, Err: s.err}
	}

	s.closeRows()
	s.columns = nil
	s.fetched = 0
	s.affected = 0
	s.cursor = cursor

	cfg := s.db.cfg
	op := extractOperation(s.query)
	start := time.Now()

	ctx, o := cfg.startOperation(ctx, spanName(s.query), op, cfg.queryAttributes(s.query))

	var err error
	if s.cursor {
		s.rows, err = s.stmt.QueryxContext(ctx, params...)
		if err == nil {
			s.columns, err = s.rows.Columns()
		}
	} else {
		var result sql.Result
		result, err = s.stmt.ExecContext(ctx, params...)
		if err == nil {
			// Drivers that cannot report affected rows leave the count at zero.
			s.affected, _ = result.RowsAffected()
			cfg.Metrics.recordAffectedRows(ctx, s.affected, op, cfg.baseAttributes())
		}
	}

	if perr := s.record(err); perr != nil {
		err = perr
	}
	o.end(ctx, err)

	cfg.Logger.Debug().
		Str("stmt_id", s.id).
		Str("db.operation", op).
		Dur("duration", time.Since(start)).
		Int64("rows_affected", s.affected).
		Str("sqlstate", s.info.SQLState).
		Msg("peardb: statement executed")

	return err
}

// record stores the status for err and returns the classified error.
func (s *Stmt) record(err error) *Error {
	if err == nil {
		s.info = ErrorInfo{SQLState: SuccessState}
		s.err = nil
		return nil
	}

	pe := newError(err)
	s.info = pe.Info
	s.err = err

	s.db.cfg.Logger.Warn().
		Str("stmt_id", s.id).
		Str("sqlstate", pe.Info.SQLState).
		Str("driver_code", pe.Info.DriverCode).
		Msg(pe.Info.Message)

	return pe
}

// ErrorInfo returns the status recorded by the last operation.
func (s *Stmt) ErrorInfo() ErrorInfo {
	return s.info
}

// GetCode returns the recorded SQLSTATE, or "" when none was recorded.
func (s *Stmt) GetCode() string {
	return s.info.SQLState
}

// GetMessage returns the recorded error message, or "".
func (s *Stmt) GetMessage() string {
	return s.info.Message
}

// IsError reports whether a status is recorded and differs from SuccessState.
func (s *Stmt) IsError() bool {
	return s.info.IsError()
}

// NumRows returns the number of rows affected by an exec statement. For
// statements that return rows it is the number of rows fetched so far,
// since a forward-only cursor cannot be counted without reading it.
func (s *Stmt) NumRows() int64 {
	if s.cursor {
		return s.fetched
	}
	return s.affected
}

// ColumnCount returns the number of columns in the result set.
func (s *Stmt) ColumnCount() int {
	return len(s.columns)
}

// Columns returns the result set column names.
func (s *Stmt) Columns() []string {
	return s.columns
}

// mode resolves FetchModeDefault to the DB's configured mode.
func (s *Stmt) mode(m FetchMode) FetchMode {
	if m == FetchModeDefault {
		return s.db.cfg.FetchMode
	}
	return m
}

// next advances the cursor. It returns false with a nil error once the
// result set is exhausted, at which point the cursor is closed. A statement
// that executed without a cursor has no rows.
func (s *Stmt) next() (bool, error) {
	if s.rows == nil {
		if s.info.Present() && !s.info.IsError() {
			return false, nil
		}
		return false, ErrNotExecuted
	}

	if s.rows.Next() {
		return true, nil
	}

	err := s.rows.Err()
	s.closeRows()
	if perr := s.record(err); perr != nil {
		return false, perr
	}
	return false, nil
}

// Fetch returns the next row shaped by mode, or nil when no rows remain.
func (s *Stmt) Fetch(mode FetchMode) (*Row, error) {
	return s.FetchRow(mode, CurrentRow)
}

// FetchRow returns the row at offset, shaped by mode, or nil when no rows
// remain. offset is a zero based row index; rows between the cursor and
// offset are skipped. CurrentRow, or any offset at or behind the cursor,
// fetches the next row since the cursor only moves forward.
func (s *Stmt) FetchRow(mode FetchMode, offset int) (*Row, error) {
	for offset > CurrentRow && s.fetched < int64(offset) {
		ok, err := s.next()
		if err != nil || !ok {
			return nil, err
		}
		s.fetched++
	}

	ok, err := s.next()
	if err != nil || !ok {
		return nil, err
	}

	values, err := scanValues(s.rows)
	if err != nil {
		return nil, s.record(err)
	}
	s.fetched++

	return newRow(s.columns, values, s.mode(mode)), nil
}

// FetchAll returns every remaining row shaped by mode.
func (s *Stmt) FetchAll(mode FetchMode) ([]*Row, error) {
	all := []*Row{}
	for {
		row, err := s.Fetch(mode)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return all, nil
		}
		all = append(all, row)
	}
}

// FetchColumn returns the value of column col for every remaining row.
func (s *Stmt) FetchColumn(col int) ([]any, error) {
	if s.rows != nil && (col < 0 || col >= len(s.columns)) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidColumn, col, len(s.columns))
	}

	values := []any{}
	for {
		row, err := s.Fetch(FetchModeOrdered)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return values, nil
		}
		values = append(values, row.Ordered[col])
	}
}

// FetchInto scans the next row into the struct pointed to by dest using the
// `db` struct tags understood by sqlx. It reports false when no rows remain.
func (s *Stmt) FetchInto(dest any) (bool, error) {
	ok, err := s.next()
	if err != nil || !ok {
		return false, err
	}

	if err := s.rows.StructScan(dest); err != nil {
		return false, s.record(err)
	}
	s.fetched++

	return true, nil
}

// closeRows releases the cursor, if any.
func (s *Stmt) closeRows() {
	if s.rows != nil {
		_ = s.rows.Close()
		s.rows = nil
	}
}

// Close releases the cursor and the prepared statement.
func (s *Stmt) Close() error {
	s.closeRows()
	if s.stmt == nil {
		return nil
	}
	return s.stmt.Close()
}
