package peardb

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the instruments recorded for every prepare and execute.
type metrics struct {
	duration     metric.Float64Histogram
	affectedRows metric.Int64Histogram
}

// newMetrics creates the statement instruments on meter.
func newMetrics(meter metric.Meter) (*metrics, error) {
	duration, err := meter.Float64Histogram(
		"db.client.operation.duration",
		metric.WithDescription("Duration of statement prepare and execute calls in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.001, 0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 10,
		),
	)
	if err != nil {
		return nil, err
	}

	affected, err := meter.Int64Histogram(
		"db.client.response.affected_rows",
		metric.WithDescription("Rows affected by statements executed without a cursor"),
		metric.WithUnit("{row}"),
		metric.WithExplicitBucketBoundaries(0, 1, 10, 100, 1000, 10000),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{duration: duration, affectedRows: affected}, nil
}

// statusCode is the SQLSTATE reported for the outcome err.
func statusCode(err error) string {
	if err == nil {
		return SuccessState
	}
	return newError(err).Info.SQLState
}

// statementAttributes appends the operation keyword and SQLSTATE to attrs.
func statementAttributes(attrs []attribute.KeyValue, operation, state string) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs)+2)
	out = append(out, attrs...)
	if operation != "" {
		out = append(out, attribute.String("db.operation", operation))
	}
	return append(out, attribute.String("db.response.status_code", state))
}

// recordQueryDuration records one prepare or execute, labelled with its
// operation keyword and SQLSTATE.
func (m *metrics) recordQueryDuration(
	ctx context.Context,
	duration time.Duration,
	operation string,
	attrs []attribute.KeyValue,
	state string,
) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(statementAttributes(attrs, operation, state)...))
}

// recordAffectedRows records the row count of a successful exec statement.
func (m *metrics) recordAffectedRows(ctx context.Context, n int64, operation string, attrs []attribute.KeyValue) {
	if m == nil || m.affectedRows == nil {
		return
	}
	m.affectedRows.Record(ctx, n,
		metric.WithAttributes(statementAttributes(attrs, operation, SuccessState)...))
}

// poolStat is one connection pool figure read from sql.DBStats.
type poolStat struct {
	name        string
	description string
	counter     bool
	read        func(sql.DBStats) int64
}

var poolStats = []poolStat{
	{
		name:        "db.client.connections.open",
		description: "Number of open connections in the pool",
		read:        func(s sql.DBStats) int64 { return int64(s.OpenConnections) },
	},
	{
		name:        "db.client.connections.idle",
		description: "Number of idle connections in the pool",
		read:        func(s sql.DBStats) int64 { return int64(s.Idle) },
	},
	{
		name:        "db.client.connections.used",
		description: "Number of connections currently in use",
		read:        func(s sql.DBStats) int64 { return int64(s.InUse) },
	},
	{
		name:        "db.client.connections.wait_count",
		description: "Total number of times a caller waited for a connection",
		counter:     true,
		read:        func(s sql.DBStats) int64 { return s.WaitCount },
	},
}

// RecordPoolMetrics reports the connection pool of db on meter. The
// db.system, db.name and db.instance attributes configured on the DB are
// added automatically; attrs are appended to them.
//
// Example:
//
//	db, _ := peardb.Open("mysql", dsn, user, pass,
//	    peardb.WithDBSystem("mysql"),
//	)
//	err := peardb.RecordPoolMetrics(db, otel.GetMeterProvider().Meter("myapp"))
func RecordPoolMetrics(db *DB, meter metric.Meter, attrs ...attribute.KeyValue) error {
	if db.cfg != nil {
		attrs = append(db.cfg.baseAttributes(), attrs...)
	}

	instruments := make([]metric.Int64Observable, len(poolStats))
	observables := make([]metric.Observable, len(poolStats))
	for i, ps := range poolStats {
		var (
			inst metric.Int64Observable
			err  error
		)
		if ps.counter {
			inst, err = meter.Int64ObservableCounter(ps.name,
				metric.WithDescription(ps.description), metric.WithUnit("{connection}"))
		} else {
			inst, err = meter.Int64ObservableGauge(ps.name,
				metric.WithDescription(ps.description), metric.WithUnit("{connection}"))
		}
		if err != nil {
			return err
		}
		instruments[i] = inst
		observables[i] = inst
	}

	pool := db.db.DB
	opt := metric.WithAttributes(attrs...)
	_, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := pool.Stats()
		for i, ps := range poolStats {
			o.ObserveInt64(instruments[i], ps.read(stats), opt)
		}
		return nil
	}, observables...)

	return err
}
