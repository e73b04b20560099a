package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	// file:// migration source.
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/keyxmakerx/moodwise/internal/config"
)

// RunMigrations applies pending files from migrationsPath over a dedicated
// single connection opened with cfg.MigrationDSN, then closes it.
// Already-applied versions are skipped.
func RunMigrations(ctx context.Context, cfg config.DatabaseConfig, migrationsPath string) error {
	dsn, err := cfg.MigrationDSN()
	if err != nil {
		return err
	}

	db, err := openPool(dsn, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := waitUntilReady(ctx, "mariadb", startupRetry, db.PingContext); err != nil {
		return err
	}

	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading migration version: %w", err)
	}
	slog.Info("migrations applied",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}
