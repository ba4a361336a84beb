package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-haassohn/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-haassohn/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-haassohn/migrations"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "state.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	require.NoError(t, db.Migrate(ctx, migrations.FS))
	return NewSQLiteRepository(db.DB)
}

func TestSQLiteRepository_SaveLoad(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	ts := time.Date(2026, 10, 19, 8, 30, 0, 123, time.UTC)

	require.NoError(t, repo.Save(ctx, Value{Path: "device.sp_temp", Value: 21.5, Ack: true, Source: SourceDevice, UpdatedAt: ts}))
	require.NoError(t, repo.Save(ctx, Value{Path: "device.error", Value: "[]", Ack: true, UpdatedAt: ts}))
	require.NoError(t, repo.Save(ctx, Value{Path: "device.prg", Value: false, Ack: true, UpdatedAt: ts}))
	// Upsert.
	require.NoError(t, repo.Save(ctx, Value{Path: "device.prg", Value: true, Ack: true, UpdatedAt: ts.Add(time.Second)}))

	values, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, values, 3)

	assert.Equal(t, "device.error", values[0].Path)
	assert.Equal(t, "[]", values[0].Value)
	assert.Equal(t, "device.prg", values[1].Path)
	assert.Equal(t, true, values[1].Value)
	assert.True(t, values[1].UpdatedAt.Equal(ts.Add(time.Second)))
	assert.Equal(t, 21.5, values[2].Value)
	assert.Equal(t, SourceDevice, values[2].Source)
	assert.True(t, values[2].Ack)
}

func TestSQLiteRepository_RegistryRoundTrip(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	first := NewRegistry(testObjects(), repo)
	require.NoError(t, first.SetState(ctx, "device.is_temp", 19.5, true))

	second := NewRegistry(testObjects(), repo)
	require.NoError(t, second.RefreshCache(ctx))

	v, err := second.GetState(ctx, "device.is_temp")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 19.5, v.Value)
}

func TestSQLiteRepository_CommandLog(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	assert.Error(t, repo.RecordCommand(ctx, CommandRecord{Path: "device.prg"}), "id is required")

	require.NoError(t, repo.RecordCommand(ctx, CommandRecord{ID: "a", Path: "device.prg", Value: true, Status: "accepted", CreatedAt: base}))
	require.NoError(t, repo.RecordCommand(ctx, CommandRecord{ID: "b", Path: "device.sp_temp", Value: 22.0, Status: "failed", Error: "status 500", CreatedAt: base.Add(time.Minute)}))

	recs, err := repo.RecentCommands(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID)
	assert.Equal(t, "status 500", recs[0].Error)
	assert.Equal(t, 22.0, recs[0].Value)
	assert.Equal(t, "a", recs[1].ID)
	assert.Empty(t, recs[1].Error)

	recs, err = repo.RecentCommands(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
