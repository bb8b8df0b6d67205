package session

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage(time.Hour)

	_, found, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, m.Save(ctx, "k", "v"))
	got, found, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", got)

	require.NoError(t, m.Delete(ctx, "k"))
	_, found, _ = m.Load(ctx, "k")
	assert.False(t, found)
}

func TestFileStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, err := NewFileStorage(dir, time.Hour)
	require.NoError(t, err)

	key := SnapshotKey("0b7c3a4e-visitor")
	require.NoError(t, f.Save(ctx, key, `{"role":"AGENT"}`))

	got, found, err := f.Load(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"role":"AGENT"}`, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	require.NoError(t, f.Delete(ctx, key))
	require.NoError(t, f.Delete(ctx, key))
	_, found, err = f.Load(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileStorageExpiresOldSnapshots(t *testing.T) {
	ctx := context.Background()
	f, err := NewFileStorage(t.TempDir(), time.Minute)
	require.NoError(t, err)
	require.NoError(t, f.Save(ctx, "k", "v"))

	f.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, found, err := f.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPostgresStorageLoad(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	storage := NewPostgresStorage(mock, time.Hour)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM session_snapshots WHERE storage_key = $1")).
			WithArgs("portal.session:v1").
			WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(`{"role":"CUSTOMER"}`))

		got, found, err := storage.Load(ctx, "portal.session:v1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `{"role":"CUSTOMER"}`, got)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM session_snapshots")).
			WithArgs("portal.session:v2").
			WillReturnError(pgx.ErrNoRows)

		_, found, err := storage.Load(ctx, "portal.session:v2")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM session_snapshots")).
			WithArgs("portal.session:v3").
			WillReturnError(errors.New("connection reset"))

		_, _, err := storage.Load(ctx, "portal.session:v3")
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorageSaveAndDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	storage := NewPostgresStorage(mock, time.Hour)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_snapshots (storage_key,payload,expires_at) VALUES ($1,$2,$3) ON CONFLICT (storage_key)")).
		WithArgs("portal.session:v1", `{"role":"AGENT"}`, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM session_snapshots WHERE storage_key = $1")).
		WithArgs("portal.session:v1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, storage.Save(ctx, "portal.session:v1", `{"role":"AGENT"}`))
	require.NoError(t, storage.Delete(ctx, "portal.session:v1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
