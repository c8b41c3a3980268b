package config

import (
	"github.com/rs/zerolog"

	"github.com/kroma-labs/peardb-go/peardb"
)

// Config holds the settings of the peardb command-line tool.
type Config struct {
	// Driver is the database/sql driver name.
	Driver string `mapstructure:"driver" validate:"required,oneof=mysql postgres pgx sqlite3"`

	// DSN is the driver specific data source name.
	DSN string `mapstructure:"dsn" validate:"required"`

	// User and Password are merged into DSN when set.
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`

	// DBSystem, DBName and Instance label spans and metrics.
	DBSystem string `mapstructure:"db_system"`
	DBName   string `mapstructure:"db_name"`
	Instance string `mapstructure:"instance"`

	FetchMode string `mapstructure:"fetch_mode" validate:"required,oneof=ordered assoc both"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// PeardbFetchMode returns the configured row shape.
func (c *Config) PeardbFetchMode() peardb.FetchMode {
	switch c.FetchMode {
	case "ordered":
		return peardb.FetchModeOrdered
	case "assoc":
		return peardb.FetchModeAssoc
	default:
		return peardb.FetchModeBoth
	}
}

// Level returns the zerolog level for LogLevel, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Options returns the peardb options implied by the configuration.
func (c *Config) Options(logger zerolog.Logger) []peardb.Option {
	system := c.DBSystem
	if system == "" {
		system = dbSystemFor(c.Driver)
	}

	opts := []peardb.Option{
		peardb.WithLogger(logger),
		peardb.WithFetchMode(c.PeardbFetchMode()),
		peardb.WithDBSystem(system),
	}
	if c.DBName != "" {
		opts = append(opts, peardb.WithDBName(c.DBName))
	}
	if c.Instance != "" {
		opts = append(opts, peardb.WithInstanceName(c.Instance))
	}
	return opts
}

// dbSystemFor maps a driver name to its OpenTelemetry db.system value.
func dbSystemFor(driver string) string {
	switch driver {
	case "postgres", "pgx":
		return "postgresql"
	case "sqlite3":
		return "sqlite"
	default:
		return driver
	}
}
