package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/hairizuanbinnoorazman/search-robot/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestStore(t *testing.T) *SQLStore {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Run{})
	return NewSQLStore(db, logger.NewTestLogger())
}

func TestSQLStore_Create(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("defaults status and start time", func(t *testing.T) {
		run := &Run{Command: "search", Query: "311", TargetURL: "https://lacity.gov/"}
		require.NoError(t, store.Create(ctx, run))
		assert.NotEqual(t, uuid.Nil, run.ID)
		assert.Equal(t, StatusRunning, run.Status)
		assert.False(t, run.StartedAt.IsZero())
		assert.Zero(t, run.Duration())
	})

	t.Run("missing command", func(t *testing.T) {
		err := store.Create(ctx, &Run{Query: "311"})
		assert.ErrorIs(t, err, ErrInvalidCommand)
	})

	t.Run("invalid status", func(t *testing.T) {
		err := store.Create(ctx, &Run{Command: "agent", Status: "paused"})
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestSQLStore_GetByID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := &Run{Command: "agent", Query: "parking"}
	require.NoError(t, store.Create(ctx, run))

	got, err := store.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "agent", got.Command)
	assert.Equal(t, "parking", got.Query)

	_, err = store.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLStore_Finish(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run := &Run{Command: "search", Query: "311"}
	require.NoError(t, store.Create(ctx, run))

	err := store.Finish(ctx, run.ID, Outcome{
		Status:    StatusSucceeded,
		Mode:      "ui",
		Title:     "311 Services",
		ResultURL: "https://lacity.gov/311",
	})
	require.NoError(t, err)

	got, err := store.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, got.Status)
	assert.Equal(t, "ui", got.Mode)
	assert.Equal(t, "311 Services", got.Title)
	assert.Equal(t, "https://lacity.gov/311", got.ResultURL)
	require.NotNil(t, got.EndedAt)
	assert.GreaterOrEqual(t, got.Duration(), time.Duration(0))

	t.Run("already finished", func(t *testing.T) {
		err := store.Finish(ctx, run.ID, Outcome{Status: StatusFailed})
		assert.ErrorIs(t, err, ErrRunNotRunning)
	})

	t.Run("status must be final", func(t *testing.T) {
		err := store.Finish(ctx, run.ID, Outcome{Status: StatusRunning})
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("unknown run", func(t *testing.T) {
		err := store.Finish(ctx, uuid.New(), Outcome{Status: StatusFailed})
		assert.ErrorIs(t, err, ErrRunNotFound)
	})
}

func TestSQLStore_List(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, cmd := range []string{"search", "agent", "search"} {
		run := &Run{Command: cmd, Query: "311", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.Create(ctx, run))
	}

	tests := []struct {
		name    string
		command string
		limit   int
		offset  int
		want    []string
	}{
		{name: "all newest first", limit: 10, want: []string{"search", "agent", "search"}},
		{name: "limit", limit: 1, want: []string{"search"}},
		{name: "offset", limit: 10, offset: 1, want: []string{"agent", "search"}},
		{name: "filter by command", command: "agent", limit: 10, want: []string{"agent"}},
		{name: "no match", command: "history", limit: 10, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := store.List(ctx, tt.command, tt.limit, tt.offset)
			require.NoError(t, err)

			var got []string
			for _, r := range runs {
				got = append(got, r.Command)
			}
			assert.Equal(t, tt.want, got)
			for i := 1; i < len(runs); i++ {
				assert.True(t, !runs[i].StartedAt.After(runs[i-1].StartedAt))
			}
		})
	}
}

func TestSQLStore_Count(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, cmd := range []string{"search", "agent", "search"} {
		require.NoError(t, store.Create(ctx, &Run{Command: cmd}))
	}

	n, err := store.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = store.Count(ctx, "search")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		status Status
		valid  bool
		final  bool
	}{
		{StatusRunning, true, false},
		{StatusSucceeded, true, true},
		{StatusNoResult, true, true},
		{StatusTimeout, true, true},
		{StatusFailed, true, true},
		{StatusInterrupted, true, true},
		{Status("paused"), false, false},
		{Status(""), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.IsValid())
			assert.Equal(t, tt.final, tt.status.IsFinal())
		})
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "disabled", cfg: Config{}, wantErr: ErrDisabled},
		{name: "none", cfg: Config{Driver: DriverNone, DSN: "x"}, wantErr: ErrDisabled},
		{name: "missing dsn", cfg: Config{Driver: DriverSQLite}, wantErr: ErrMissingDSN},
		{name: "unknown driver", cfg: Config{Driver: "postgres", DSN: "x"}, wantErr: ErrUnknownDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Open(tt.cfg)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, db)
		})
	}

	t.Run("sqlite migrates the run table", func(t *testing.T) {
		db, err := Open(Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "runs.db")})
		require.NoError(t, err)
		defer func() { assert.NoError(t, Close(db)) }()

		assert.True(t, db.Migrator().HasTable(&Run{}))
	})

	t.Run("migrations are idempotent and reversible", func(t *testing.T) {
		cfg := Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "runs.db")}
		require.NoError(t, Migrate(cfg))
		require.NoError(t, Migrate(cfg))

		db, err := Open(cfg)
		require.NoError(t, err)
		store := NewSQLStore(db, logger.NewTestLogger())
		run := &Run{Command: "search", Query: "311"}
		require.NoError(t, store.Create(context.Background(), run))
		require.NoError(t, store.Finish(context.Background(), run.ID, Outcome{Status: StatusSucceeded, Mode: "direct"}))
		require.NoError(t, Close(db))

		require.NoError(t, Rollback(cfg))

		db, err = gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{})
		require.NoError(t, err)
		defer func() { assert.NoError(t, Close(db)) }()
		assert.False(t, db.Migrator().HasTable(&Run{}))
	})
}
