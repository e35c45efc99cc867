package db

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_AppliesMigrations(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, db.MigrateUp())

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n))
	assert.Zero(t, n)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	first, err := Open(path)
	require.NoError(t, err)
	_, err = first.RecordRun(context.Background(), Run{GPXPath: "a.gpx", CSVPath: "a.csv", OutputPath: "out.gpx", JoinMode: "index"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
	runs, err := second.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestMigrateDown(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.MigrateDown())

	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	_, err = db.Exec(`SELECT 1 FROM runs`)
	assert.Error(t, err, "runs table should be dropped")
}

func TestRecordRun_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	created := time.Date(2023, 6, 14, 9, 30, 0, 0, time.UTC)

	want := Run{
		ID:         uuid.NewString(),
		GPXPath:    "ride.gpx",
		CSVPath:    "ride.csv",
		OutputPath: "out.gpx",
		JoinMode:   "time",
		Samples:    120,
		Matched:    118,
		Unfiltered: 1523.25,
		Filtered:   2047.5,
		CreatedAt:  created,
	}
	id, err := db.RecordRun(ctx, want)
	require.NoError(t, err)
	assert.Equal(t, want.ID, id)

	runs, err := db.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.True(t, got.CreatedAt.Equal(created))
	got.CreatedAt = want.CreatedAt
	assert.Equal(t, want, got)
}

func TestRecordRun_Defaults(t *testing.T) {
	db := setupTestDB(t)
	id, err := db.RecordRun(context.Background(), Run{GPXPath: "a.gpx"})
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "generated ID should be a UUID")

	runs, err := db.RecentRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].CreatedAt.IsZero())
}

func TestRecordRun_NaNStoredAsNull(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	id, err := db.RecordRun(ctx, Run{Unfiltered: 10, Filtered: math.NaN()})
	require.NoError(t, err)

	var filtered *float64
	require.NoError(t, db.QueryRow(`SELECT filtered_m FROM runs WHERE run_id = ?`, id).Scan(&filtered))
	assert.Nil(t, filtered)

	runs, err := db.RecentRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 10.0, runs[0].Unfiltered)
	assert.True(t, math.IsNaN(runs[0].Filtered))
}

func TestRecentRuns_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	// Sub-second offsets guard the text ordering of created_at.
	offsets := []time.Duration{0, 2 * time.Second, 500 * time.Millisecond, time.Second}
	for i, off := range offsets {
		_, err := db.RecordRun(ctx, Run{GPXPath: string(rune('a' + i)), CreatedAt: base.Add(off)})
		require.NoError(t, err)
	}

	runs, err := db.RecentRuns(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "b", runs[0].GPXPath)
	assert.Equal(t, "d", runs[1].GPXPath)
	assert.Equal(t, "c", runs[2].GPXPath)

	none, err := db.RecentRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordRun_DuplicateID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	_, err := db.RecordRun(ctx, Run{ID: "fixed"})
	require.NoError(t, err)
	_, err = db.RecordRun(ctx, Run{ID: "fixed"})
	assert.Error(t, err)
}

func TestRecordRun_CancelledContext(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := db.RecordRun(ctx, Run{})
	assert.Error(t, err)
}

func TestRunString(t *testing.T) {
	r := Run{
		ID:         "abc",
		GPXPath:    "in.gpx",
		CSVPath:    "in.csv",
		OutputPath: "out.gpx",
		JoinMode:   "index",
		Samples:    3,
		Matched:    2,
		Unfiltered: 1.234,
		Filtered:   math.NaN(),
		CreatedAt:  time.Date(2023, 6, 14, 9, 30, 0, 0, time.UTC),
	}
	assert.Equal(t,
		"2023-06-14T09:30:00Z  abc  in.gpx + in.csv -> out.gpx  join=index  matched=2/3  unfiltered=1.23 m  filtered=NaN m",
		r.String())
}
