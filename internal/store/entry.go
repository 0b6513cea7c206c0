package store

import (
	"strings"
	"time"
)

// AppendEntry stores e and sets its ID and CreatedAt.
func (db *DB) AppendEntry(e *Entry) error {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO messages (origin, sender, body, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.Origin, e.Sender, e.Body, e.Timestamp, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	e.CreatedAt = now
	return nil
}

// ListEntries returns the most recent limit entries in display order, oldest
// first.
func (db *DB) ListEntries(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	return db.queryEntries(`
		SELECT id, origin, sender, body, timestamp, created_at FROM (
			SELECT id, origin, sender, body, timestamp, created_at
			FROM messages
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`, limit)
}

// SearchEntries returns up to limit entries whose body contains query,
// newest first. Matching is case-insensitive for ASCII.
func (db *DB) SearchEntries(query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	return db.queryEntries(`
		SELECT id, origin, sender, body, timestamp, created_at
		FROM messages
		WHERE body LIKE ? ESCAPE '\'
		ORDER BY id DESC
		LIMIT ?`, "%"+escapeLike(query)+"%", limit)
}

// EntryCount returns the number of stored entries.
func (db *DB) EntryCount() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

func (db *DB) queryEntries(q string, args ...any) ([]Entry, error) {
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Origin, &e.Sender, &e.Body, &e.Timestamp, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
