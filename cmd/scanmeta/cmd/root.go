// Package cmd provides CLI command implementations
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/scanmeta/pkg/config"
	"github.com/ChrisMcGann/scanmeta/pkg/logging"
	"github.com/ChrisMcGann/scanmeta/pkg/store"
)

var (
	v          = config.New()
	configFile string

	settings *config.Settings
	log      *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "scanmeta",
	Short: "scanmeta - Mass spectrometry scan metadata extraction",
	Long: `scanmeta reads raw acquisition exports (mzML, MGF) and stores one
metadata record per scan, described with PSI-MS controlled-vocabulary terms.

Records are kept in a SQLite or MySQL database and can be exported to a
standalone SQLite file per data file.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(validateCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Config file (default: ./scanmeta.yaml or the user config directory)")
	flags.String("driver", "", "Database driver: sqlite or mysql")
	flags.String("dsn", "", "Database DSN (required for mysql)")
	flags.String("db", "", "SQLite database path")
	flags.Bool("db-debug", false, "Log SQL statements")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: console or json")
}

// flagKeys maps config keys to the flags that override them. Subcommands
// share flag names, so binding happens once the command to run is known.
var flagKeys = map[string]string{
	"database.driver":     "driver",
	"database.dsn":        "dsn",
	"database.path":       "db",
	"database.debug":      "db-debug",
	"log.level":           "log-level",
	"log.format":          "log-format",
	"ingest.workers":      "workers",
	"ingest.batchsize":    "batch-size",
	"ingest.onerror":      "on-error",
	"filter.mslevels":     "ms-levels",
	"filter.minrt":        "min-rt",
	"filter.maxrt":        "max-rt",
	"filter.minpeaks":     "min-peaks",
	"filter.filltic":      "fill-tic",
	"reader.analyzer":     "analyzer",
	"reader.dissociation": "dissociation",
}

// bindFlags binds config keys to the flags of flags that exist. A flag only
// overrides the config file and environment when it is set on the command
// line.
func bindFlags(flags *pflag.FlagSet) error {
	for key, name := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setup(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd.Flags()); err != nil {
		return err
	}

	var err error
	settings, err = config.Load(v, configFile)
	if err != nil {
		return err
	}

	log, err = logging.New(settings.Log.Level, settings.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	if used := v.ConfigFileUsed(); used != "" {
		log.Debug("loaded config file", zap.String("path", used))
	}
	return nil
}

// openStore connects to the configured database and migrates the schema.
func openStore() (*store.Store, error) {
	st, err := store.Open(store.Config{
		Driver: settings.Database.Driver,
		DSN:    settings.Database.DSN,
		Path:   settings.Database.Path,
		Debug:  settings.Database.Debug,
		Logger: log,
	})
	if err != nil {
		return nil, err
	}

	if err := st.AutoMigrate(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
