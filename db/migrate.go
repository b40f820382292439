// Package db holds the schema migrations and the code that applies them.
package db

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // pgx v5 driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate brings the schema up to the latest embedded migration.
// connURL is a postgres:// (or postgresql://) connection URL; progress is
// recorded in the schema_migrations table by golang-migrate.
func Migrate(connURL string, logger *slog.Logger) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	target, err := pgxURL(connURL)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, target)
	if err != nil {
		return fmt.Errorf("open migration target: %w", err)
	}
	defer func() {
		if cerr := splitClose(m); cerr != nil {
			logger.Warn("closing migrator", "error", cerr)
		}
	}()

	before, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		// A half-applied migration needs manual cleanup, not more migrations.
		return fmt.Errorf("schema dirty at version %d, resolve manually before starting", before)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Debug("schema up to date", "version", before)
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	after, _, err := m.Version()
	if err != nil {
		logger.Warn("migrations applied but version unreadable", "error", err)
		return nil
	}
	logger.Info("migrations applied", "from", before, "to", after)
	return nil
}

func splitClose(m *migrate.Migrate) error {
	srcErr, dbErr := m.Close()
	return errors.Join(srcErr, dbErr)
}

// pgxURL rewrites the connection URL scheme to pgx5:// so golang-migrate
// picks its pgx v5 driver. The rest of the URL passes through untouched.
func pgxURL(connURL string) (string, error) {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(connURL, scheme); ok {
			return "pgx5://" + rest, nil
		}
	}
	return "", fmt.Errorf("unsupported database URL %q: want postgres:// or postgresql://", connURL)
}
