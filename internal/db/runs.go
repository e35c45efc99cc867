package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/magtrack/internal/timeutil"
)

// Run summarises one invocation of the correction pipeline.
type Run struct {
	ID         string
	GPXPath    string
	CSVPath    string
	OutputPath string
	JoinMode   string
	Samples    int
	Matched    int
	Unfiltered float64 // meters; NaN when undefined
	Filtered   float64 // meters; NaN when undefined
	CreatedAt  time.Time
}

func (r *Run) String() string {
	return fmt.Sprintf("%s  %s  %s + %s -> %s  join=%s  matched=%d/%d  unfiltered=%.2f m  filtered=%.2f m",
		timeutil.FormatInstant(r.CreatedAt), r.ID, r.GPXPath, r.CSVPath, r.OutputPath,
		r.JoinMode, r.Matched, r.Samples, r.Unfiltered, r.Filtered)
}

// createdAtLayout is fixed width so created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// RecordRun stores r. An empty ID is replaced by a new UUID and a zero
// CreatedAt by the current time; the stored ID is returned.
func (db *DB) RecordRun(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, gpx_path, csv_path, output_path, join_mode,
			samples, matched, unfiltered_m, filtered_m, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.GPXPath, r.CSVPath, r.OutputPath, r.JoinMode,
		r.Samples, r.Matched, nullFloat(r.Unfiltered), nullFloat(r.Filtered),
		r.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run %s: %w", r.ID, err)
	}
	return r.ID, nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, gpx_path, csv_path, output_path, join_mode,
		       samples, matched, unfiltered_m, filtered_m, created_at
		  FROM runs
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                    Run
			unfiltered, filtered sql.NullFloat64
			created              string
		)
		if err := rows.Scan(
			&r.ID, &r.GPXPath, &r.CSVPath, &r.OutputPath, &r.JoinMode,
			&r.Samples, &r.Matched, &unfiltered, &filtered, &created,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Unfiltered = floatOrNaN(unfiltered)
		r.Filtered = floatOrNaN(filtered)
		if r.CreatedAt, err = timeutil.ParseInstant(created); err != nil {
			return nil, fmt.Errorf("run %s has bad created_at %q: %w", r.ID, created, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}
