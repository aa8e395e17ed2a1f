package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"backoffice/internal/backend"
	"backoffice/internal/cli"
	"backoffice/internal/config"
	"backoffice/internal/core"
	applog "backoffice/internal/log"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// loadConfig applies the global flags on top of the environment.
func loadConfig() *config.Config {
	cfg := config.Load()
	if *backendFlag != "" {
		cfg.DataBackend = *backendFlag
	}
	if *dbFlag != "" {
		cfg.SQLiteDBPath = *dbFlag
	}
	if *seedFlag != "" {
		cfg.SeedDir = *seedFlag
	}
	cfg.LogLevel = *levelFlag
	return cfg
}

// openLedger builds the ledger service the same way the server does.
func openLedger(ctx context.Context) (*backend.BackendResult, *config.Config, error) {
	cfg := loadConfig()
	logger := cli.SetupLogger(applog.ComponentCLI, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Memory backend: writes are not persisted after this command exits")
	}
	return res, cfg, nil
}

func closeLedger(res *backend.BackendResult) {
	if err := res.Cleanup(); err != nil {
		fmt.Fprintln(os.Stderr, "close:", err)
	}
}

func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, core.NewValidationError(field, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: "amount", Message: "must be a positive number", Err: err}
	}
	return d, nil
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "error:", err)
	return subcommands.ExitFailure
}
