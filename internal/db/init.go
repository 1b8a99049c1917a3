// Package db initializes the backend store and runs its background
// maintenance. Postgres is the default; SQLite is supported for
// single-binary deployments and is selected by DSN.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect identifies the SQL dialect of an open store handle. Repositories
// use it to pick the placeholder style.
type Dialect int

const (
	// Postgres is the lib/pq dialect ($1 placeholders).
	Postgres Dialect = iota
	// SQLite is the mattn/go-sqlite3 dialect (? placeholders).
	SQLite
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    api_key TEXT NOT NULL UNIQUE,
    backend_domain TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS flows (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    weight INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS assignments (
    device_id TEXT NOT NULL,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    flow_id TEXT NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
    assigned_at TIMESTAMP NOT NULL,
    last_seen TIMESTAMP NOT NULL,
    PRIMARY KEY (device_id, project_id)
);
`

// Init opens the store described by dsn, creates the schema if needed, and
// returns the handle together with its dialect.
//
// A DSN starting with "sqlite://" or ending in ".db" opens SQLite; anything
// else opens Postgres.
func Init(dsn string) (*sql.DB, Dialect, error) {
	driver, source, dialect := detect(dsn)

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, dialect, fmt.Errorf("open %s: %w", driver, err)
	}

	if err := db.Ping(); err != nil {
		return nil, dialect, fmt.Errorf("ping %s: %w", driver, err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, dialect, fmt.Errorf("create schema: %w", err)
	}

	return db, dialect, nil
}

func detect(dsn string) (driver, source string, dialect Dialect) {
	if path, ok := strings.CutPrefix(dsn, "sqlite://"); ok {
		return "sqlite3", path, SQLite
	}
	if strings.HasSuffix(dsn, ".db") {
		return "sqlite3", dsn, SQLite
	}
	return "postgres", dsn, Postgres
}
