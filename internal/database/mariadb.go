// Package database provides connection setup for MariaDB and Redis, the
// embedded schema migrations, and small helpers shared by every repository
// (transactions, duplicate-key detection).
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/tally/internal/config"
)

// erDupEntry is MariaDB's ER_DUP_ENTRY, raised on unique key violations.
const erDupEntry = 1062

// pinger is the part of *sql.DB the startup check needs.
type pinger interface {
	PingContext(ctx context.Context) error
}

// NewMariaDB opens a pool configured from cfg and waits for the server to
// answer. MariaDB is often still booting when the API container starts, so
// the ping is retried with exponential backoff before giving up.
func NewMariaDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := waitForPing(db, 10, time.Second); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// waitForPing pings p up to attempts times, doubling the wait between tries
// (capped at 30s).
func waitForPing(p pinger, attempts int, backoff time.Duration) error {
	var pingErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr = p.PingContext(ctx)
		cancel()

		if pingErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		slog.Warn("mariadb not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", attempts),
			slog.Duration("backoff", backoff),
			slog.Any("error", pingErr),
		)
		time.Sleep(backoff)
		backoff = min(backoff*2, 30*time.Second)
	}
	return fmt.Errorf("pinging mariadb after %d attempts: %w", attempts, pingErr)
}

// WithTx runs fn inside a transaction. fn's error (or a panic) rolls the
// transaction back; otherwise it is committed. No retries are attempted.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}
	return nil
}

// IsDuplicateEntry reports whether err is a MariaDB unique key violation.
func IsDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == erDupEntry
}

// Placeholders returns "?, ?, ?" for n parameters, for IN clauses.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',', ' ')
		}
		b = append(b, '?')
	}
	return string(b)
}
