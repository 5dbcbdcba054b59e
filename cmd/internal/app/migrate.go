package app

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded schema migrations against cfg.DatabaseURL.
// It is a no-op when the schema is already current.
func Migrate(cfg Config, log Logger) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.Warn("db.migrate.close", "err", srcErr)
		}
		if dbErr != nil {
			log.Warn("db.migrate.close", "err", dbErr)
		}
	}()

	switch err := m.Up(); {
	case err == nil:
		log.Info("db.migrate.applied")
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("db.migrate.up_to_date")
	default:
		return err
	}

	return nil
}

// migrateURL rewrites a postgres:// URL onto the scheme golang-migrate uses
// to select its pgx/v5 driver.
func migrateURL(u string) string {
	switch {
	case strings.HasPrefix(u, "postgres://"):
		return "pgx5://" + strings.TrimPrefix(u, "postgres://")
	case strings.HasPrefix(u, "postgresql://"):
		return "pgx5://" + strings.TrimPrefix(u, "postgresql://")
	}
	return u
}
