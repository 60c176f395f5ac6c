package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dshills/stepwise/internal/config"
)

const createConfigTable = `CREATE TABLE IF NOT EXISTS config (
	grp   TEXT NOT NULL,
	field TEXT NOT NULL,
	idx   INTEGER NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (grp, field, idx)
)`

// SQLite is a config.Store persisted in a SQLite database.
type SQLite struct {
	*Memory
	db *sql.DB
}

// OpenSQLite opens the database at dsn and loads its contents.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(createConfigTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create config table: %w", err)
	}

	s := &SQLite{Memory: NewMemory(), db: db}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) load() error {
	rows, err := s.db.Query(`SELECT grp, field, idx, value FROM config`)
	if err != nil {
		return fmt.Errorf("query config: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var grp, field, value string
		var idx int
		if err := rows.Scan(&grp, &field, &idx, &value); err != nil {
			return fmt.Errorf("scan config row: %w", err)
		}
		s.Memory.Set(grp, field, idx, value)
	}
	return rows.Err()
}

// Flush replaces the table contents with the in-memory state in one
// transaction.
func (s *SQLite) Flush() error {
	if s.closed {
		return config.ErrStoreClosed
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM config`); err != nil {
		return fmt.Errorf("clear config: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO config (grp, field, idx, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range s.Groups() {
		for _, f := range s.Fields(g) {
			for idx, v := range s.groups[g][f] {
				if _, err := stmt.Exec(g, f, idx, v); err != nil {
					return fmt.Errorf("insert %s.%s[%d]: %w", g, f, idx, err)
				}
			}
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQLite) Close() error {
	s.closed = true
	return s.db.Close()
}
