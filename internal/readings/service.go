// Package readings stores daily temperature readings, one per calendar date.
package readings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daverage/bbtrack/internal/ovulation"
	"github.com/daverage/bbtrack/internal/storage"
)

// Service handles reading operations
type Service struct {
	db  *storage.DB
	loc *time.Location
}

// NewService creates a new reading service. Dates are interpreted in loc.
func NewService(db *storage.DB, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{db: db, loc: loc}
}

// Upsert saves the reading for its date, replacing any reading already stored
// for that day. The stored ID survives replacement. created reports whether
// the date was new.
func (s *Service) Upsert(ctx context.Context, in Input) (entry *Entry, created bool, err error) {
	date, err := in.validate(s.loc)
	if err != nil {
		return nil, false, err
	}

	_, err = s.Get(ctx, date)
	switch {
	case errors.Is(err, ErrNotFound):
		created = true
	case err != nil:
		return nil, false, err
	}

	now := time.Now().UTC()
	_, err = s.db.GetConnection().ExecContext(ctx, `
		INSERT INTO readings (id, date, temperature, fever, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			temperature = excluded.temperature,
			fever = excluded.fever,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, uuid.NewString(), date, in.Temperature, in.Fever, in.Notes, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to save reading for %s: %w", date, err)
	}

	entry, err = s.Get(ctx, date)
	if err != nil {
		return nil, false, err
	}
	return entry, created, nil
}

// Get retrieves the reading stored for date.
func (s *Service) Get(ctx context.Context, date string) (*Entry, error) {
	row := s.db.GetConnection().QueryRowContext(ctx, `
		SELECT id, date, temperature, fever, notes, created_at, updated_at
		FROM readings
		WHERE date = ?
	`, date)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, date)
		}
		return nil, err
	}
	return entry, nil
}

// Delete removes the reading stored for date.
func (s *Service) Delete(ctx context.Context, date string) error {
	if _, err := ovulation.ParseDate(date, s.loc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReading, err)
	}

	result, err := s.db.GetConnection().ExecContext(ctx, `DELETE FROM readings WHERE date = ?`, date)
	if err != nil {
		return fmt.Errorf("failed to delete reading for %s: %w", date, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, date)
	}
	return nil
}

// List returns stored readings newest first. limit <= 0 returns all of them.
func (s *Service) List(ctx context.Context, limit int) ([]*Entry, error) {
	query := `
		SELECT id, date, temperature, fever, notes, created_at, updated_at
		FROM readings
		ORDER BY date DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.GetConnection().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Count returns the number of stored readings, fever days included.
func (s *Service) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetConnection().QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&count)
	return count, err
}

// Readings returns every stored reading for the engine, oldest first.
func (s *Service) Readings(ctx context.Context) ([]ovulation.Reading, error) {
	entries, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	out := make([]ovulation.Reading, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		r, err := entries[i].ToReading(s.loc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*Entry, error) {
	var entry Entry
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(
		&entry.ID,
		&entry.Date,
		&entry.Temperature,
		&entry.Fever,
		&entry.Notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		entry.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		entry.UpdatedAt = updatedAt.Time
	}
	return &entry, nil
}
