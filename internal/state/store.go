// Package state persists the engine state that outlives a single run.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/daverage/bbtrack/internal/dip"
)

const dipWarningKey = "dip_warning"

// Store keeps JSON values in the engine_state key-value table.
type Store struct {
	db *sql.DB
}

// NewStore creates a new state store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// LoadDipWarning returns the persisted warning, or the zero warning when none
// is stored.
func (s *Store) LoadDipWarning(ctx context.Context) (dip.Warning, error) {
	var w dip.Warning
	found, err := s.get(ctx, dipWarningKey, &w)
	if err != nil || !found {
		return dip.Warning{}, err
	}
	return w, nil
}

// SaveDipWarning persists w. An inactive warning clears the stored value so
// that NoWarning is always represented by an absent row.
func (s *Store) SaveDipWarning(ctx context.Context, w dip.Warning) error {
	if !w.Active {
		return s.clear(ctx, dipWarningKey)
	}
	return s.set(ctx, dipWarningKey, w)
}

func (s *Store) get(ctx context.Context, key string, v interface{}) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM engine_state WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO engine_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *Store) clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM engine_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to clear %s: %w", key, err)
	}
	return nil
}
