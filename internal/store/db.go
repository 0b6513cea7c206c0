// Package store is the node's SQLite message log and group roster.
package store

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a SQLite database connection for the profile's mesh.db.
type DB struct {
	*sql.DB
}

// dsnOptions are go-sqlite3 connection parameters. Write transactions take
// the lock up front so SaveGroup never fails half way on SQLITE_BUSY.
var dsnOptions = url.Values{
	"_journal_mode": {"WAL"},
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"on"},
	"_txlock":       {"immediate"},
}

// Open opens or creates the database at path. Call Migrate before use.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?"+dsnOptions.Encode())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db %s: %w", path, err)
	}
	return &DB{db}, nil
}
