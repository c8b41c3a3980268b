package peardb

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// DB is a database handle exposing the legacy PEAR DB method set on top of
// *sqlx.DB.
//
// Queries use `?` placeholders, which are rebound to the driver's bindvar
// style before preparation. Query failures are returned as *Error values and
// recorded on the statement (see RunQuery and IsError) instead of panicking.
//
// A DB behaves like a single legacy connection handle: the transaction
// started by AutoCommit(false) applies to every statement the DB prepares
// until Commit or Rollback. It must not be used from more than one goroutine
// at a time.
type DB struct {
	db  *sqlx.DB
	tx  *sqlx.Tx
	cfg *config

	info ErrorInfo
}

// Open opens a database handle without contacting the server. username and
// password are merged into dsn the way driverName expects; pass empty
// strings when the DSN already carries credentials.
//
// Example:
//
//	db, err := peardb.Open("mysql", "tcp(localhost:3306)/app", "app", secret,
//	    peardb.WithDBSystem("mysql"),
//	)
func Open(driverName, dsn, username, password string, opts ...Option) (*DB, error) {
	merged, err := mergeCredentials(driverName, dsn, username, password)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, merged)
	if err != nil {
		return nil, err
	}

	return &DB{db: db, cfg: newConfig(opts...)}, nil
}

// Connect opens a handle and verifies the connection, like the legacy
// constructor did. Connection failures are returned unmodified.
//
// Example:
//
//	db, err := peardb.Connect(ctx, "postgres", "postgres://localhost/app", "app", secret)
func Connect(ctx context.Context, driverName, dsn, username, password string, opts ...Option) (*DB, error) {
	merged, err := mergeCredentials(driverName, dsn, username, password)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, driverName, merged)
	if err != nil {
		return nil, err
	}

	return &DB{db: db, cfg: newConfig(opts...)}, nil
}

// NewDB wraps an existing *sql.DB. driverName selects the bindvar style.
//
// Example:
//
//	sqlDB, _ := sql.Open("postgres", dsn)
//	db := peardb.NewDB(sqlDB, "postgres")
func NewDB(db *sql.DB, driverName string, opts ...Option) *DB {
	return &DB{
		db:  sqlx.NewDb(db, driverName),
		cfg: newConfig(opts...),
	}
}

// Underlying returns the wrapped *sqlx.DB.
func (db *DB) Underlying() *sqlx.DB {
	return db.db
}

// DriverName returns the driver name.
func (db *DB) DriverName() string {
	return db.db.DriverName()
}

// Rebind transforms a query from `?` placeholders to the driver's bindvar type.
func (db *DB) Rebind(query string) string {
	return db.db.Rebind(query)
}

// SetFetchMode sets the row shape used by GetAll, GetRow and FetchModeDefault.
// FetchModeDefault is ignored.
func (db *DB) SetFetchMode(mode FetchMode) {
	if mode != FetchModeDefault {
		db.cfg.FetchMode = mode
	}
}

// FetchMode returns the configured row shape.
func (db *DB) FetchMode() FetchMode {
	return db.cfg.FetchMode
}

// Ping verifies the connection.
func (db *DB) Ping(ctx context.Context) error {
	ctx, o := db.cfg.startOperation(ctx, "PING", "PING", db.cfg.baseAttributes())
	err := db.db.PingContext(ctx)
	o.end(ctx, err)
	return err
}

// Close rolls back an open transaction and closes the handle.
func (db *DB) Close() error {
	if db.tx != nil {
		_ = db.tx.Rollback()
		db.tx = nil
	}
	return db.db.Close()
}

// record stores the connection status for err and returns the classified error.
func (db *DB) record(err error) *Error {
	if err == nil {
		db.info = ErrorInfo{SQLState: SuccessState}
		return nil
	}

	pe := newError(err)
	db.info = pe.Info

	db.cfg.Logger.Warn().
		Str("sqlstate", pe.Info.SQLState).
		Str("driver_code", pe.Info.DriverCode).
		Msg(pe.Info.Message)

	return pe
}

// ErrorInfo returns the status of the last connection level operation
// (prepare, begin, commit, rollback).
func (db *DB) ErrorInfo() ErrorInfo {
	return db.info
}

// GetMessage returns the last connection level error message, or "".
func (db *DB) GetMessage() string {
	return db.info.Message
}

// Prepare prepares query and returns it as a Stmt bound to this DB. While a
// transaction is open the statement is prepared inside it.
func (db *DB) Prepare(ctx context.Context, query string) (*Stmt, error) {
	ctx, o := db.cfg.startOperation(ctx, "peardb.Prepare", "PREPARE", db.cfg.queryAttributes(query))

	rebound := db.db.Rebind(query)

	var (
		stmt *sqlx.Stmt
		err  error
	)
	if db.tx != nil {
		stmt, err = db.tx.PreparexContext(ctx, rebound)
	} else {
		stmt, err = db.db.PreparexContext(ctx, rebound)
	}

	if perr := db.record(err); perr != nil {
		o.end(ctx, perr)
		return nil, perr
	}

	o.end(ctx, nil)
	return newStmt(db, stmt, query), nil
}

// execute prepares query and runs it with a cursor. On failure the statement
// is closed.
func (db *DB) execute(ctx context.Context, query string, params []any) (*Stmt, error) {
	stmt, err := db.Prepare(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := stmt.executeQuery(ctx, params); err != nil {
		_ = stmt.Close()
		return nil, err
	}

	return stmt, nil
}

// GetOne runs query and returns the first column of the first row, or nil
// when the query returns no rows.
//
// Example:
//
//	count, err := db.GetOne(ctx, "SELECT COUNT(*) FROM users WHERE active = ?", true)
func (db *DB) GetOne(ctx context.Context, query string, params ...any) (value any, err error) {
	ctx, o := db.cfg.startCall(ctx, "getOne", query)
	defer func() { o.end(ctx, err) }()

	stmt, err := db.execute(ctx, query, params)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	row, err := stmt.Fetch(FetchModeOrdered)
	if err != nil || row == nil || len(row.Ordered) == 0 {
		return nil, err
	}

	return row.Ordered[0], nil
}

// GetAssoc runs query and maps the first column of each row to the rest of
// the row. Later rows overwrite earlier rows with the same key. Keys keep the
// type the driver scanned and are compared by Go equality, so int64(1) and
// "1" are distinct keys.
//
// When the result has exactly two columns and forceArray is false the value
// is the second column itself; otherwise it is a []any holding the remaining
// columns in order. Callers depend on both shapes.
//
// Example:
//
//	names, err := db.GetAssoc(ctx, "SELECT id, name FROM users", false)
//	// map[any]any{int64(1): "alice", int64(2): "bob"}
func (db *DB) GetAssoc(
	ctx context.Context,
	query string,
	forceArray bool,
	params ...any,
) (assoc map[any]any, err error) {
	ctx, o := db.cfg.startCall(ctx, "getAssoc", query)
	defer func() { o.end(ctx, err) }()

	stmt, err := db.execute(ctx, query, params)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows, err := stmt.FetchAll(FetchModeOrdered)
	if err != nil {
		return nil, err
	}

	columns := stmt.ColumnCount()
	assoc = make(map[any]any, len(rows))
	for _, row := range rows {
		if len(row.Ordered) == 0 {
			continue
		}
		key := row.Ordered[0]

		if columns == 2 && !forceArray {
			assoc[key] = row.Ordered[1]
			continue
		}

		rest := make([]any, len(row.Ordered)-1)
		copy(rest, row.Ordered[1:])
		assoc[key] = rest
	}

	return assoc, nil
}

// GetCol runs query and returns column (zero based) of every row, in row order.
func (db *DB) GetCol(ctx context.Context, query string, column int, params ...any) (values []any, err error) {
	ctx, o := db.cfg.startCall(ctx, "getCol", query)
	defer func() { o.end(ctx, err) }()

	stmt, err := db.execute(ctx, query, params)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	return stmt.FetchColumn(column)
}

// GetAll runs query and returns every row in the DB's fetch mode.
func (db *DB) GetAll(ctx context.Context, query string, params ...any) (rows []*Row, err error) {
	ctx, o := db.cfg.startCall(ctx, "getAll", query)
	defer func() { o.end(ctx, err) }()

	stmt, err := db.execute(ctx, query, params)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	return stmt.FetchAll(FetchModeDefault)
}

// GetRow runs query and returns its first row in the DB's fetch mode, or nil
// when the query returns no rows.
func (db *DB) GetRow(ctx context.Context, query string, params ...any) (row *Row, err error) {
	ctx, o := db.cfg.startCall(ctx, "getRow", query)
	defer func() { o.end(ctx, err) }()

	stmt, err := db.execute(ctx, query, params)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	return stmt.Fetch(FetchModeDefault)
}

// RunQuery prepares and executes query and returns the live statement for
// row by row fetching. It never returns nil: failures, including a failed
// prepare, are recorded on the statement and must be checked with IsError.
// The caller closes the statement.
//
// Example:
//
//	stmt := db.RunQuery(ctx, "SELECT id, name FROM users WHERE team = ?", team)
//	if db.IsError(stmt) {
//	    return fmt.Errorf("list users: %s", stmt.GetMessage())
//	}
//	defer stmt.Close()
//	for {
//	    row, err := stmt.FetchRow(peardb.FetchModeAssoc, peardb.CurrentRow)
//	    if err != nil || row == nil {
//	        break
//	    }
//	    ...
//	}
func (db *DB) RunQuery(ctx context.Context, query string, params ...any) *Stmt {
	return db.runQuery(ctx, "runQuery", query, params)
}

// Run_query is the legacy snake_case spelling of RunQuery.
//
//nolint:revive,stylecheck // Name kept for call-site compatibility.
func (db *DB) Run_query(ctx context.Context, query string, params ...any) *Stmt {
	return db.runQuery(ctx, "run_query", query, params)
}

func (db *DB) runQuery(ctx context.Context, method, query string, params []any) *Stmt {
	ctx, o := db.cfg.startCall(ctx, method, query)

	stmt, err := db.Prepare(ctx, query)
	if err != nil {
		stmt = newFailedStmt(db, query, err)
		o.end(ctx, err)
		return stmt
	}

	err = stmt.Execute(ctx, params...)
	o.end(ctx, err)
	return stmt
}

// IsError reports whether candidate is a *Stmt whose recorded status is an
// error. Any other value, including Go errors, yields false.
func (db *DB) IsError(candidate any) bool {
	db.cfg.Usage.track("isError")

	stmt, ok := candidate.(*Stmt)
	if !ok || stmt == nil {
		return false
	}
	return stmt.IsError()
}

// Execute runs a statement returned by Prepare with params. A nil stmt
// returns ErrNilStatement.
func (db *DB) Execute(ctx context.Context, stmt *Stmt, params ...any) error {
	db.cfg.Usage.track("execute")
	return stmt.Execute(ctx, params...)
}

// FreePrepared does nothing. It exists for call-site compatibility; use
// Stmt.Close to release a statement.
func (db *DB) FreePrepared(_ *Stmt) {
	db.cfg.Usage.track("freePrepared")
}
