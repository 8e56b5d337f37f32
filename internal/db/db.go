// Package db opens the catalog SQLite database and manages its schema via
// golang-migrate file migrations.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// New opens (creating if absent) the SQLite database at path and applies the
// connection pragmas the store relies on.
func New(path string) (*DB, error) {
	sdb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if _, err := sdb.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
		PRAGMA foreign_keys = ON;
	`); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return &DB{sdb}, nil
}
