package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunAnalytics queries recorded inference runs.
type RunAnalytics struct {
	DB *sql.DB
}

// NewRunAnalytics creates a new RunAnalytics instance
func NewRunAnalytics(db *sql.DB) *RunAnalytics {
	return &RunAnalytics{
		DB: db,
	}
}

// RunSummary aggregates every recorded run.
type RunSummary struct {
	TotalRuns         int            `json:"total_runs" yaml:"total_runs"`
	ByConfidence      map[string]int `json:"by_confidence" yaml:"by_confidence"`
	DetectionRate     float64        `json:"detection_rate" yaml:"detection_rate"` // percent of runs with a date
	LastOvulationDate string         `json:"last_ovulation_date,omitempty" yaml:"last_ovulation_date,omitempty"`
	LastRunAt         *time.Time     `json:"last_run_at,omitempty" yaml:"last_run_at,omitempty"`
}

// Recent returns up to limit runs, newest first.
func (ra *RunAnalytics) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := ra.DB.QueryContext(ctx, `
		SELECT id, ran_at, readings_used, fever_excluded, ovulation_date, confidence,
			pattern, score, message, dip_transition, dip_active, duration_ms
		FROM inference_runs
		ORDER BY ran_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query inference runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var ranAt string
		if err := rows.Scan(
			&run.ID,
			&ranAt,
			&run.ReadingsUsed,
			&run.FeverExcluded,
			&run.OvulationDate,
			&run.Confidence,
			&run.Pattern,
			&run.Score,
			&run.Message,
			&run.DipTransition,
			&run.DipActive,
			&run.DurationMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan inference run: %w", err)
		}
		if run.RanAt, err = time.Parse(ranAtLayout, ranAt); err != nil {
			return nil, fmt.Errorf("invalid run timestamp %q: %w", ranAt, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Summary calculates run totals and the most recent inferred date.
func (ra *RunAnalytics) Summary(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{
		ByConfidence: make(map[string]int),
	}

	rows, err := ra.DB.QueryContext(ctx, `
		SELECT confidence, COUNT(*)
		FROM inference_runs
		GROUP BY confidence
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs by confidence: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("failed to scan confidence count: %w", err)
		}
		summary.ByConfidence[level] = count
		summary.TotalRuns += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if summary.TotalRuns == 0 {
		return summary, nil
	}

	var detected int
	err = ra.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM inference_runs WHERE ovulation_date <> ''
	`).Scan(&detected)
	if err != nil {
		return nil, fmt.Errorf("failed to count detections: %w", err)
	}
	summary.DetectionRate = float64(detected) / float64(summary.TotalRuns) * 100

	var lastDate sql.NullString
	var lastRun string
	err = ra.DB.QueryRowContext(ctx, `
		SELECT ran_at,
			(SELECT ovulation_date FROM inference_runs
			 WHERE ovulation_date <> ''
			 ORDER BY ran_at DESC, rowid DESC LIMIT 1)
		FROM inference_runs
		ORDER BY ran_at DESC, rowid DESC
		LIMIT 1
	`).Scan(&lastRun, &lastDate)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest run: %w", err)
	}
	if lastDate.Valid {
		summary.LastOvulationDate = lastDate.String
	}
	if t, err := time.Parse(ranAtLayout, lastRun); err == nil {
		summary.LastRunAt = &t
	}

	return summary, nil
}
