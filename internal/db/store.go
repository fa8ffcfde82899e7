package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/arbitroy/stockflow/backend/internal/logging"
)

// SQLiteStore implements Store on the kv_store table.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements are created on first use and reused.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewSQLiteStore creates a store over an opened, migrated database.
func NewSQLiteStore(db *DB) *SQLiteStore {
	return &SQLiteStore{db: db.DB}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (s *SQLiteStore) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := s.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := s.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements. The underlying DB stays open.
func (s *SQLiteStore) Close() error {
	var firstErr error
	s.stmtCache.Range(func(key, value interface{}) bool {
		if err := value.(*sql.Stmt).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.stmtCache.Delete(key)
		return true
	})
	return firstErr
}

const (
	upsertQuery = `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	selectQuery = `SELECT value FROM kv_store WHERE key = ?`
	existsQuery = `SELECT 1 FROM kv_store WHERE key = ?`
	deleteQuery = `DELETE FROM kv_store WHERE key = ?`
	keysQuery   = `SELECT key FROM kv_store WHERE substr(key, 1, ?) = ? ORDER BY key`
)

// Save implements Store.
func (s *SQLiteStore) Save(key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		logging.Error("store: failed to encode value", err, map[string]interface{}{"key": key})
		return
	}

	stmt, err := s.PrepareStmt(upsertQuery)
	if err != nil {
		logging.Error("store: failed to save", err, map[string]interface{}{"key": key})
		return
	}
	if _, err := stmt.Exec(key, data, time.Now().UnixMilli()); err != nil {
		logging.Error("store: failed to save", err, map[string]interface{}{"key": key})
	}
}

// Load implements Store.
func (s *SQLiteStore) Load(key string, out interface{}) bool {
	stmt, err := s.PrepareStmt(selectQuery)
	if err != nil {
		logging.Error("store: failed to load", err, map[string]interface{}{"key": key})
		return false
	}

	var data []byte
	if err := stmt.QueryRow(key).Scan(&data); err != nil {
		if err != sql.ErrNoRows {
			logging.Error("store: failed to load", err, map[string]interface{}{"key": key})
		}
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		logging.Warn("store: corrupt value treated as absent", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}
	return true
}

// Has implements Store.
func (s *SQLiteStore) Has(key string) bool {
	stmt, err := s.PrepareStmt(existsQuery)
	if err != nil {
		return false
	}
	var one int
	return stmt.QueryRow(key).Scan(&one) == nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(key string) {
	stmt, err := s.PrepareStmt(deleteQuery)
	if err != nil {
		logging.Error("store: failed to clear", err, map[string]interface{}{"key": key})
		return
	}
	if _, err := stmt.Exec(key); err != nil {
		logging.Error("store: failed to clear", err, map[string]interface{}{"key": key})
	}
}

// Keys implements Store.
func (s *SQLiteStore) Keys(prefix string) []string {
	stmt, err := s.PrepareStmt(keysQuery)
	if err != nil {
		return nil
	}
	rows, err := stmt.Query(len(prefix), prefix)
	if err != nil {
		logging.Error("store: failed to list keys", err, map[string]interface{}{"prefix": prefix})
		return nil
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return keys
		}
		keys = append(keys, k)
	}
	return keys
}
