package main

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kroma-labs/peardb-go/internal/config"
	"github.com/kroma-labs/peardb-go/peardb"
)

// opener returns a connected DB for cfg.
type opener func(ctx context.Context, cfg *config.Config, opts ...peardb.Option) (*peardb.DB, error)

// connect is the production opener.
func connect(ctx context.Context, cfg *config.Config, opts ...peardb.Option) (*peardb.DB, error) {
	return peardb.Connect(ctx, cfg.Driver, cfg.DSN, cfg.User, cfg.Password, opts...)
}

// app is the state shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
	out        io.Writer
	open       opener

	cfg      *config.Config
	logger   zerolog.Logger
	registry *prometheus.Registry
}

func newRootCommand(out io.Writer, open opener) *cobra.Command {
	a := &app{
		v:        viper.New(),
		out:      out,
		open:     open,
		logger:   zerolog.Nop(),
		registry: prometheus.NewRegistry(),
	}

	cmd := &cobra.Command{
		Use:   "peardb",
		Short: "Run legacy PEAR DB helpers against a database",
		Long: `peardb executes the legacy database helpers (getOne, getAll, getAssoc,
autoExecute, ...) against a live database and prints the results as JSON.

Settings come from flags, PEARDB_* environment variables, a .env file and
.peardb.yaml, in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v, a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = zerolog.New(cmd.ErrOrStderr()).
				Level(cfg.Level()).
				With().
				Timestamp().
				Logger()
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.logUsage()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default .peardb.yaml)")
	flags.String("driver", "", "database driver: mysql, postgres, pgx or sqlite3")
	flags.String("dsn", "", "data source name")
	flags.String("user", "", "user merged into the DSN")
	flags.String("password", "", "password merged into the DSN")
	flags.String("fetch-mode", "", "row shape: ordered, assoc or both")
	flags.String("log-level", "", "log level: debug, info, warn or error")

	for key, flag := range map[string]string{
		"driver":     "driver",
		"dsn":        "dsn",
		"user":       "user",
		"password":   "password",
		"fetch_mode": "fetch-mode",
		"log_level":  "log-level",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(
		a.newOneCommand(),
		a.newRowCommand(),
		a.newAllCommand(),
		a.newColCommand(),
		a.newAssocCommand(),
		a.newRunCommand(),
		a.newInsertCommand(),
		a.newUpdateCommand(),
	)

	return cmd
}

// withDB opens the database, runs fn and closes it.
func (a *app) withDB(ctx context.Context, fn func(db *peardb.DB) error) error {
	opts := append(a.cfg.Options(a.logger), peardb.WithPrometheusRegisterer(a.registry))

	db, err := a.open(ctx, a.cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			a.logger.Warn().Err(cerr).Msg("close database")
		}
	}()

	return fn(db)
}

// logUsage logs the legacy call counters gathered during the command.
func (a *app) logUsage() {
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Warn().Err(err).Msg("gather legacy call counters")
		return
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			event := a.logger.Debug().Str("metric", mf.GetName())
			for _, l := range m.GetLabel() {
				event = event.Str(l.GetName(), l.GetValue())
			}
			event.Float64("value", m.GetCounter().GetValue()).Msg("legacy call usage")
		}
	}
}
