package database

import (
	"context"
	"time"

	"github.com/kroma-labs/peardb-go/example/peardb/internal/config"
	"github.com/kroma-labs/peardb-go/peardb"
	_ "github.com/lib/pq" // Register postgres driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"go.opentelemetry.io/otel"
)

// DB is the legacy style handle used by the example app.
type DB struct {
	*peardb.DB
	logger zerolog.Logger
}

// New connects with peardb instrumentation. Legacy call counts are registered
// on the default Prometheus registry so they show up next to the OTel metrics.
func New(ctx context.Context, logger zerolog.Logger) (*DB, error) {
	db, err := peardb.Connect(ctx, config.DefaultDriver, config.DefaultDSN,
		config.DefaultUser, config.DefaultPassword,
		peardb.WithDBSystem(config.DefaultDBSystem),
		peardb.WithDBName(config.DefaultDBName),
		peardb.WithInstanceName(config.DefaultInstance),
		peardb.WithFetchMode(peardb.FetchModeAssoc),
		peardb.WithQuerySanitizer(peardb.DefaultQuerySanitizer),
		peardb.WithPrometheusRegisterer(prometheus.DefaultRegisterer),
		peardb.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	sqlDB := db.Underlying()
	sqlDB.SetMaxOpenConns(config.DefaultMaxOpen)
	sqlDB.SetMaxIdleConns(config.DefaultMaxIdle)
	sqlDB.SetConnMaxLifetime(time.Duration(config.DefaultMaxLifetime) * time.Second)

	if err := peardb.RecordPoolMetrics(db, otel.GetMeterProvider().Meter("example-app")); err != nil {
		logger.Warn().Err(err).Msg("failed to register pool metrics")
	}

	return &DB{DB: db, logger: logger}, nil
}
