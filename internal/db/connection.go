package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/cozy-creator/player-predictor/internal/config"
	"github.com/cozy-creator/player-predictor/internal/db/drivers"

	"github.com/uptrace/bun/extra/bundebug"
)

// NewConnection opens the history database. The DSN scheme selects the
// driver: postgres URLs use pgdriver, libsql and http(s) URLs use the libsql
// client, anything else is treated as a local sqlite DSN.
func NewConnection(ctx context.Context, cfg *config.Config) (drivers.Driver, error) {
	dsn := cfg.DB.DSN
	if dsn == "" {
		return nil, ErrHistoryDisabled
	}

	var (
		driver drivers.Driver
		err    error
	)
	switch DriverFor(dsn) {
	case "pg":
		driver, err = drivers.NewPGDriver(ctx, dsn)
	case drivers.DriverNameLibSQL:
		driver, err = drivers.NewSQLiteDriver(ctx, drivers.DriverNameLibSQL, dsn)
	default:
		driver, err = drivers.NewSQLiteDriver(ctx, drivers.DriverNameSQLite, dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	driver.GetDB().AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(cfg.DB.Debug),
		bundebug.WithVerbose(cfg.DB.Debug),
	))

	return driver, nil
}

// DriverFor returns the driver name used for dsn.
func DriverFor(dsn string) string {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "pg"
	case strings.HasPrefix(lower, "libsql://"), strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return drivers.DriverNameLibSQL
	default:
		return drivers.DriverNameSQLite
	}
}
