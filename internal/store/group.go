package store

import (
	"database/sql"
	"errors"
	"time"
)

// SaveGroup replaces the stored roster with name and memberIDs in a single
// transaction.
func (db *DB) SaveGroup(name string, memberIDs []string) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UnixMilli()
	if _, err = tx.Exec(`
		INSERT INTO group_info (slot, name, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		name, now); err != nil {
		return err
	}

	// Keep added_at for members that stay.
	existing := make(map[string]int64)
	rows, err := tx.Query(`SELECT peer_id, added_at FROM members`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id string
		var at int64
		if err = rows.Scan(&id, &at); err != nil {
			_ = rows.Close()
			return err
		}
		existing[id] = at
	}
	if err = rows.Close(); err != nil {
		return err
	}

	if _, err = tx.Exec(`DELETE FROM members`); err != nil {
		return err
	}
	for _, id := range memberIDs {
		at, ok := existing[id]
		if !ok {
			at = now
		}
		if _, err = tx.Exec(`INSERT INTO members (peer_id, added_at) VALUES (?, ?)`, id, at); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadGroup returns the stored roster. A fresh database yields an empty group.
func (db *DB) LoadGroup() (*Group, error) {
	g := &Group{}
	err := db.QueryRow(`SELECT name FROM group_info WHERE slot = 1`).Scan(&g.Name)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	rows, err := db.Query(`SELECT peer_id FROM members ORDER BY peer_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		g.Members = append(g.Members, id)
	}
	return g, rows.Err()
}
