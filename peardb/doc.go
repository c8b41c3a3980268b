// Package peardb provides the PEAR DB method set (getOne, getAssoc, getCol,
// getAll, getRow, runQuery, autoExecute, isError, ...) on top of
// database/sql and jmoiron/sqlx, so code written against that API can move
// to Go drivers without rewriting its call sites.
//
// # Features
//
//   - Legacy helpers with the legacy return shapes
//   - Statement error status (SQLSTATE, driver code, message) polled with
//     IsError / GetCode / GetMessage instead of raised
//   - `?` placeholders rebound for every driver
//   - OpenTelemetry tracing and metrics for every prepare and execute
//   - A Prometheus counter of legacy entry point usage
//
// # Quick Start
//
//	import "github.com/kroma-labs/peardb-go/peardb"
//
//	db, err := peardb.Connect(ctx, "mysql", "tcp(localhost:3306)/app", "app", secret,
//	    peardb.WithDBSystem("mysql"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	name, err := db.GetOne(ctx, "SELECT name FROM users WHERE id = ?", 7)
//
// # Error Status
//
// RunQuery never returns a Go error. The statement it returns records the
// outcome, which callers inspect the legacy way:
//
//	stmt := db.RunQuery(ctx, "DELETE FROM sessions WHERE expires < ?", now)
//	if db.IsError(stmt) {
//	    log.Printf("cleanup failed: %s %s", stmt.GetCode(), stmt.GetMessage())
//	}
//	defer stmt.Close()
//
// # getAssoc Shapes
//
// GetAssoc returns the second column itself for two-column results unless
// forceArray is set, and a []any of the remaining columns otherwise:
//
//	db.GetAssoc(ctx, "SELECT id, name FROM users", false)        // {1: "alice"}
//	db.GetAssoc(ctx, "SELECT id, name FROM users", true)         // {1: ["alice"]}
//	db.GetAssoc(ctx, "SELECT id, name, team FROM users", false)  // {1: ["alice", "core"]}
//
// # autoExecute WHERE Clauses
//
// The where argument of AutoExecute is appended to the UPDATE statement as
// raw SQL. It is not escaped or parameterized, exactly like the API it
// replaces, so it must only ever hold trusted text.
//
// # Observability
//
// Traces:
//   - peardb.<method> span per legacy helper call
//   - peardb.Prepare and one span per statement execution beneath it
//   - Attributes: db.system, db.name, db.instance, db.statement, db.operation,
//     db.response.status_code on failures
//
// Metrics:
//   - db.client.operation.duration (histogram by operation)
//   - peardb_legacy_calls_total{method} (Prometheus, see WithPrometheusRegisterer)
package peardb
