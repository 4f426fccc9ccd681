package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

// WithMigrationsTable appends the x-migrations-table option so this service
// keeps its own migration history next to other services in the same DB.
func WithMigrationsTable(dbURL, table string) string {
	if strings.Contains(dbURL, "?") {
		return dbURL + "&x-migrations-table=" + table
	}
	return dbURL + "?x-migrations-table=" + table
}

// Migrate applies every pending migration found at sourceURL.
func Migrate(sourceURL, dbURL, table string) error {
	m, err := migrate.New(sourceURL, WithMigrationsTable(dbURL, table))
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not apply migration: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("could not read migration version: %w", err)
	}
	log.WithFields(log.Fields{"version": version, "dirty": dirty}).Info("Database migration successfully applied")
	return nil
}

// Open connects to Postgres and verifies the connection.
func Open(dbURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	return db, nil
}
