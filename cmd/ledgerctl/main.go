// Command ledgerctl administers a clinic ledger deployment: schema
// migrations, manual recurrence ticks, the event outbox, the product catalog
// and service tokens.
package main

import (
	"fmt"
	"os"

	"github.com/clinic-ledger/backend/internal/infrastructure/config"
	"github.com/clinic-ledger/backend/internal/infrastructure/logger"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/joho/godotenv/autoload"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Administer the clinic ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)
		os.Exit(1)
	}
}

// env holds what most subcommands need: configuration and a console logger
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(logger.Config{Level: logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return &env{cfg: cfg, log: log}, nil
}

func (e *env) openDatabase() (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(e.log, logger.GormConfig{Level: logger.GormLevel(logLevel), RedactParams: true})
	db, err := persistence.NewDatabaseWithLogger(&e.cfg.Database, gormLog)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func (e *env) close() {
	_ = e.log.Sync()
}
