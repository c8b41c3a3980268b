// Package sqlstate classifies database driver errors into the
// (SQLSTATE, driver code, message) triple that legacy database APIs
// expose through their errorInfo accessors.
//
// # Supported drivers
//
//   - github.com/lib/pq: *pq.Error
//   - github.com/jackc/pgx/v5: *pgconn.PgError
//   - github.com/go-sql-driver/mysql: *mysql.MySQLError
//   - github.com/mattn/go-sqlite3: sqlite3.Error (cgo builds)
//   - any error implementing SQLState() string
//
// Errors that carry no SQLSTATE fall back to a class derived from the
// failure (timeouts, cancellation, broken connections) or to HY000.
//
// # Usage
//
//	info := sqlstate.Classify(err)
//	if info.SQLState == sqlstate.IntegrityConstraintViolation {
//	    // duplicate key, foreign key, ...
//	}
//
// Additional drivers can be plugged in with Register.
package sqlstate
