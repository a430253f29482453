package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lexcodex/cxxrefine/framework/cxx"
	_ "github.com/mattn/go-sqlite3"
)

// SymbolStore persists coarse symbol trees in a SQLite database. A row is
// only served back for the exact content hash it was written with.
type SymbolStore struct {
	db *sql.DB
}

// SymbolRecord describes one stored tree.
type SymbolRecord struct {
	URI         string
	ContentHash string
	Source      string
	IndexedAt   time.Time
	Symbols     int
}

// NewSymbolStore opens/creates the database at dbPath.
func NewSymbolStore(dbPath string) (*SymbolStore, error) {
	if dbPath == "" {
		return nil, errors.New("database path required")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	store := &SymbolStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SymbolStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS symbol_trees (
		uri TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		source TEXT NOT NULL,
		payload TEXT NOT NULL,
		symbol_count INTEGER,
		indexed_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_symbol_trees_source ON symbol_trees(source);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SymbolStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSymbols upserts the tree for uri.
func (s *SymbolStore) SaveSymbols(ctx context.Context, uri, contentHash, source string, symbols []*cxx.SourceSymbol) error {
	if uri == "" {
		return errors.New("uri required")
	}
	payload, err := json.Marshal(symbols)
	if err != nil {
		return fmt.Errorf("encode symbols for %s: %w", uri, err)
	}
	count := 0
	cxx.Walk(symbols, func(*cxx.SourceSymbol) bool {
		count++
		return true
	})
	query := `
	INSERT INTO symbol_trees (uri, content_hash, source, payload, symbol_count, indexed_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(uri) DO UPDATE SET
		content_hash=excluded.content_hash,
		source=excluded.source,
		payload=excluded.payload,
		symbol_count=excluded.symbol_count,
		indexed_at=excluded.indexed_at
	`
	_, err = s.db.ExecContext(ctx, query, uri, contentHash, source, string(payload), count, time.Now().UTC())
	return err
}

// LoadSymbols returns the tree stored for uri when it was written for
// contentHash. Parent links are restored.
func (s *SymbolStore) LoadSymbols(ctx context.Context, uri, contentHash string) ([]*cxx.SourceSymbol, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM symbol_trees WHERE uri = ? AND content_hash = ?`, uri, contentHash)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var symbols []*cxx.SourceSymbol
	if err := json.Unmarshal([]byte(payload), &symbols); err != nil {
		return nil, false, fmt.Errorf("decode symbols for %s: %w", uri, err)
	}
	cxx.LinkParents(symbols)
	return symbols, true, nil
}

// DeleteSymbols removes the row for uri. Missing rows are not an error.
func (s *SymbolStore) DeleteSymbols(ctx context.Context, uri string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM symbol_trees WHERE uri = ?`, uri)
	return err
}

// Records lists stored trees ordered by URI.
func (s *SymbolStore) Records(ctx context.Context) ([]SymbolRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT uri, content_hash, source, symbol_count, indexed_at FROM symbol_trees ORDER BY uri`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []SymbolRecord
	for rows.Next() {
		var record SymbolRecord
		if err := rows.Scan(&record.URI, &record.ContentHash, &record.Source, &record.Symbols, &record.IndexedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Prune deletes rows indexed before cutoff and reports how many were removed.
func (s *SymbolStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM symbol_trees WHERE indexed_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
