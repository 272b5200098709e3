package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/moodkeeper/internal/coprocessor"
	"github.com/dmitrijs2005/moodkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/moodkeeper/internal/server/repositories/ciphertexts"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubGoose(t *testing.T, fn func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error) {
	t.Helper()
	orig := gooseUpContext
	gooseUpContext = fn
	t.Cleanup(func() { gooseUpContext = orig })
}

func TestPostgresRepositoryManager_Ciphertexts(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var m RepositoryManager = NewPostgresRepositoryManager()
	repo := m.Ciphertexts(db)

	assert.IsType(t, &ciphertexts.PostgresRepository{}, repo)
	assert.Implements(t, (*coprocessor.Repository)(nil), repo)
}

func TestRunMigrations(t *testing.T) {
	tests := []struct {
		name    string
		upErr   error
		wantErr string
	}{
		{name: "applied"},
		{name: "goose fails", upErr: errors.New("relation already exists"), wantErr: "relation already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })

			var gotDir string
			stubGoose(t, func(_ context.Context, got *sql.DB, dir string, _ ...goose.OptionsFunc) error {
				assert.Same(t, db, got)
				gotDir = dir
				return tt.upErr
			})

			err = NewPostgresRepositoryManager().RunMigrations(context.Background(), db)
			assert.Equal(t, ".", gotDir)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	body, err := fs.ReadFile(migrations.Migrations, names[0])
	require.NoError(t, err)
	sqlText := string(body)
	assert.True(t, strings.Contains(sqlText, "-- +goose Up"))
	assert.True(t, strings.Contains(sqlText, "-- +goose Down"))
	assert.Contains(t, sqlText, "ciphertexts")
}

type noMigrations struct {
	PostgresRepositoryManager
	called bool
}

func (m *noMigrations) RunMigrations(context.Context, *sql.DB) error {
	m.called = true
	return nil
}

func TestOpen_UnreachableDatabase(t *testing.T) {
	m := &noMigrations{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	db, err := Open(ctx, "postgres://moodkeeper@127.0.0.1:1/moodkeeper?connect_timeout=1", m)
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "db ping error")
	assert.False(t, m.called)
}
