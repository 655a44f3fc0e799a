// Package cmd wires configuration, storage and the HTTP server into the
// food-delivery-backend command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"food-delivery-backend/config"
	"food-delivery-backend/logger"
)

// NewRootCommand builds the command tree. Flags override environment
// variables, which override defaults.
func NewRootCommand() *cobra.Command {
	v := config.NewViper()

	root := &cobra.Command{
		Use:           "food-delivery-backend",
		Short:         "Food delivery order management backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("db-driver", "", "database driver: sqlite, mysql or postgres")
	flags.String("db-dsn", "", "database connection string")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json or console")
	for key, name := range map[string]string{
		"db.driver":  "db-driver",
		"db.dsn":     "db-dsn",
		"log.level":  "log-level",
		"log.format": "log-format",
	} {
		// Only a flag set on the command line overrides env and defaults.
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(
		newServeCommand(v),
		newMigrateCommand(v),
		newCreateAdminCommand(v),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs.
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func setup(v *viper.Viper) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	db, err := config.OpenDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := config.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}
