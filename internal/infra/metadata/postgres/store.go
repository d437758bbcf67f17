// Package postgres serves colony metadata rows from Postgres through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"starviewcore/pkg/viewapi"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/starview?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the function used to open connections and returns a
// restore func. Tests use it to inject a stub driver.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

// Store reads and writes the colony_meta table.
type Store struct {
	db *sql.DB
}

// New connects using dsn (falling back to a local default) and ensures the
// table exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS colony_meta (
		source TEXT NOT NULL,
		idx INTEGER NOT NULL,
		system_id TEXT NOT NULL,
		PRIMARY KEY (source, idx)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create colony_meta table: %w", err)
	}
	return &Store{db: db}, nil
}

// ColonyMetadata returns the rows for source ordered by index.
func (s *Store) ColonyMetadata(ctx context.Context, source string) ([]viewapi.ColonyMeta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT idx, system_id FROM colony_meta WHERE source = $1 ORDER BY idx`, source)
	if err != nil {
		return nil, fmt.Errorf("select colony_meta: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []viewapi.ColonyMeta
	for rows.Next() {
		var idx int64
		var id string
		if err := rows.Scan(&idx, &id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if idx != int64(len(out)) {
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

// Import replaces every row for source in one transaction.
func (s *Store) Import(ctx context.Context, source string, entries []viewapi.ColonyMeta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM colony_meta WHERE source = $1`, source); err != nil {
		return fmt.Errorf("clear %s: %w", source, err)
	}
	for i, e := range entries {
		if _, err := tx.ExecContext(ctx, `INSERT INTO colony_meta (source, idx, system_id) VALUES ($1, $2, $3)`, source, int64(i), e.SystemID); err != nil {
			return fmt.Errorf("insert %s[%d]: %w", source, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error { return s.db.Close() }
