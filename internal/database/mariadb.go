package database

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "mysql" driver.
	_ "github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/moodwise/internal/config"
)

// NewMariaDB opens the shared connection pool and waits for the server to
// accept connections. The pool's DSN never enables multi-statement
// queries; migrations get their own connection for that.
func NewMariaDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := openPool(cfg.DSN(), cfg)
	if err != nil {
		return nil, err
	}

	if err := waitUntilReady(ctx, "mariadb", startupRetry, db.PingContext); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openPool(dsn string, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}
