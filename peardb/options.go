package peardb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/peardb-go/peardb"
)

// config holds the configuration shared by a DB and every Stmt it prepares.
type config struct {
	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If not set, uses the global provider via otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// Tracer is the tracer instance.
	Tracer trace.Tracer

	// Meter is the meter instance.
	Meter metric.Meter

	// Metrics holds the metric instruments.
	Metrics *metrics

	// Usage counts calls to the legacy entry points. Nil when no
	// Prometheus registerer was configured.
	Usage *usage

	// Registerer receives the legacy call counter.
	Registerer prometheus.Registerer

	// Logger receives statement level events.
	Logger zerolog.Logger

	// FetchMode is the row shape used when a caller passes FetchModeDefault.
	FetchMode FetchMode

	// DBSystem identifies the database management system.
	DBSystem string

	// DBName is the name of the database.
	DBName string

	// InstanceName identifies a specific database instance.
	InstanceName string

	// QuerySanitizer sanitizes SQL queries before adding to spans.
	QuerySanitizer func(query string) string

	// DisableQuery disables recording of SQL queries in spans.
	DisableQuery bool
}

// newConfig creates a new config with defaults and applies options.
func newConfig(opts ...Option) *config {
	cfg := &config{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		Logger:         zerolog.Nop(),
		FetchMode:      FetchModeBoth,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	if cfg.Registerer != nil {
		u, err := newUsage(cfg.Registerer)
		if err != nil {
			cfg.Logger.Warn().Err(err).Msg("peardb: legacy call counter not registered")
		}
		cfg.Usage = u
	}

	return cfg
}

// Option configures a DB.
type Option func(*config)

// WithTracerProvider sets a custom tracer provider.
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(...)
//	db, _ := peardb.Open("postgres", dsn, "", "",
//	    peardb.WithTracerProvider(tp),
//	)
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
//
// Example:
//
//	mp := sdkmetric.NewMeterProvider(...)
//	db, _ := peardb.Open("postgres", dsn, "", "",
//	    peardb.WithMeterProvider(mp),
//	)
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		cfg.MeterProvider = mp
	}
}

// WithPrometheusRegisterer registers the peardb_legacy_calls_total counter on reg.
// The counter is labelled by legacy method name and is meant to show which
// deprecated entry points a codebase still relies on.
//
// Example:
//
//	db, _ := peardb.Open("mysql", dsn, "app", secret,
//	    peardb.WithPrometheusRegisterer(prometheus.DefaultRegisterer),
//	)
func WithPrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(cfg *config) {
		cfg.Registerer = reg
	}
}

// WithLogger sets the logger used for statement events.
// The default logger discards everything.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	db, _ := peardb.Open("postgres", dsn, "", "",
//	    peardb.WithLogger(logger),
//	)
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = l
	}
}

// WithFetchMode sets the row shape returned by GetAll, GetRow and by
// FetchRow(FetchModeDefault, ...). The default is FetchModeBoth.
// FetchModeDefault is ignored.
func WithFetchMode(mode FetchMode) Option {
	return func(cfg *config) {
		if mode != FetchModeDefault {
			cfg.FetchMode = mode
		}
	}
}

// WithDBSystem sets the database system identifier.
// This is added as the "db.system" attribute on all spans.
//
// Example:
//
//	db, _ := peardb.Open("postgres", dsn, "", "",
//	    peardb.WithDBSystem("postgresql"),
//	)
func WithDBSystem(system string) Option {
	return func(cfg *config) {
		cfg.DBSystem = system
	}
}

// WithDBName sets the database name.
// This is added as the "db.name" attribute on all spans.
func WithDBName(name string) Option {
	return func(cfg *config) {
		cfg.DBName = name
	}
}

// WithInstanceName sets an identifier for this database connection.
// This is added as the "db.instance" attribute on all spans.
//
// Example:
//
//	// Primary for writes
//	writerDB, _ := peardb.Open("mysql", primaryDSN, user, pass,
//	    peardb.WithInstanceName("primary"),
//	)
//
//	// Replica for reads
//	readerDB, _ := peardb.Open("mysql", replicaDSN, user, pass,
//	    peardb.WithInstanceName("replica"),
//	)
func WithInstanceName(name string) Option {
	return func(cfg *config) {
		cfg.InstanceName = name
	}
}

// WithQuerySanitizer sets a custom query sanitizer function.
//
// Use DefaultQuerySanitizer for a basic implementation:
//
//	db, _ := peardb.Open("postgres", dsn, "", "",
//	    peardb.WithQuerySanitizer(peardb.DefaultQuerySanitizer),
//	)
func WithQuerySanitizer(fn func(string) string) Option {
	return func(cfg *config) {
		cfg.QuerySanitizer = fn
	}
}

// WithDisableQuery disables recording of SQL queries in spans.
// The "db.statement" attribute will not be added to spans,
// but "db.operation" will still be recorded.
func WithDisableQuery() Option {
	return func(cfg *config) {
		cfg.DisableQuery = true
	}
}
