package localdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
	"github.com/dmitrijs2005/moodkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/moodkeeper/internal/client/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestInitDatabase_CreatesTables(t *testing.T) {
	ctx := context.Background()
	db, err := InitDatabase(ctx, filepath.Join(t.TempDir(), "moodkeeper.db"))
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"goose_db_version", "metadata", "entries", "activity"} {
		assert.True(t, tableExists(t, db, table), table)
	}
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "moodkeeper.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db))
}

func TestRepositories_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := InitDatabase(ctx, filepath.Join(t.TempDir(), "moodkeeper.db"))
	require.NoError(t, err)
	defer db.Close()

	repos := NewRepositories(db)

	require.NoError(t, metadata.SetString(ctx, repos.Metadata, metadata.KeyAccount, "0xabc"))
	acc, err := metadata.GetString(ctx, repos.Metadata, metadata.KeyAccount)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", acc)

	entries := []models.Entry{{ID: 1, EntryKey: "sentiment-1", Name: "Ann", Team: "Eng", IsVerified: true, DecryptedValue: 7}}
	require.NoError(t, repos.Snapshot.Replace(ctx, entries))
	got, err := repos.Snapshot.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	require.NoError(t, repos.Activity.Record(ctx, status.Activity{RequestID: "r", Account: "0xabc", Message: "Created sentiment: Ann", At: time.Now()}))
	items, err := repos.Activity.List(ctx, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
}
