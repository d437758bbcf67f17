// Package sqlite serves colony metadata rows from a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"starviewcore/pkg/viewapi"
)

const schema = `CREATE TABLE IF NOT EXISTS colony_meta (
	source TEXT NOT NULL,
	idx INTEGER NOT NULL,
	system_id TEXT NOT NULL,
	PRIMARY KEY (source, idx)
)`

// Store keeps one metadata table keyed by source URL and point index.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the database at path.
func New(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "starview.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create colony_meta table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// ColonyMetadata returns the rows for source ordered by index. Indices must
// run 0..n-1 without gaps; anything else would misalign the point cloud.
func (s *Store) ColonyMetadata(ctx context.Context, source string) ([]viewapi.ColonyMeta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT idx, system_id FROM colony_meta WHERE source = ? ORDER BY idx`, source)
	if err != nil {
		return nil, fmt.Errorf("select colony_meta: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []viewapi.ColonyMeta
	for rows.Next() {
		var idx int
		var id string
		if err := rows.Scan(&idx, &id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if idx != len(out) {
			return nil, fmt.Errorf("colony metadata for %s: expected index %d, found %d", source, len(out), idx)
		}
		out = append(out, viewapi.ColonyMeta{SystemID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("colony metadata for %s: %w", source, sql.ErrNoRows)
	}
	return out, nil
}

// Import replaces every row for source.
func (s *Store) Import(ctx context.Context, source string, entries []viewapi.ColonyMeta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM colony_meta WHERE source = ?`, source); err != nil {
		return fmt.Errorf("clear %s: %w", source, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO colony_meta (source, idx, system_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, source, i, e.SystemID); err != nil {
			return fmt.Errorf("insert %s[%d]: %w", source, i, err)
		}
	}
	return tx.Commit()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
