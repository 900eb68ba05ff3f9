package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseBackend checks the compare-and-swap contract every backend shares
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()
	const key = "contract"

	_, err := b.Get(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	v1, err := b.Put(ctx, key, []byte(`["a"]`), VersionAbsent)
	require.NoError(t, err)
	assert.Equal(t, Checksum([]byte(`["a"]`)), v1)

	_, err = b.Put(ctx, key, []byte(`["b"]`), VersionAbsent)
	assert.ErrorIs(t, err, ErrVersionConflict, "create-only write over existing key")

	blob, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, string(blob.Data))
	assert.Equal(t, v1, blob.Version)

	v2, err := b.Put(ctx, key, []byte(`["a","b"]`), v1)
	require.NoError(t, err)

	_, err = b.Put(ctx, key, []byte(`["stale"]`), v1)
	assert.ErrorIs(t, err, ErrVersionConflict, "stale version must not overwrite")

	_, err = b.Put(ctx, key, []byte(`["forced"]`), VersionAny)
	require.NoError(t, err)

	blob, err = b.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `["forced"]`, string(blob.Data))
	assert.NotEqual(t, v2, blob.Version)
}

func TestMemoryBackend_Contract(t *testing.T) {
	exerciseBackend(t, NewMemoryBackend())
}

func TestFileBackend_Contract(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	exerciseBackend(t, b)
}

func TestFileBackend_SanitizesKeyAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	_, err = b.Put(context.Background(), "../escape/key", []byte("[]"), VersionAny)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".._escape_key.json", entries[0].Name())
	_, err = os.Stat(filepath.Join(dir, entries[0].Name()))
	assert.NoError(t, err)
}

func TestFileBackend_StorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b1, err := NewFileBackend(dir)
	require.NoError(t, err)
	s1 := newTestStore(t, b1)
	saved, err := s1.Upsert(ctx, sampleReference())
	require.NoError(t, err)

	b2, err := NewFileBackend(dir)
	require.NoError(t, err)
	s2 := newTestStore(t, b2)
	got, err := s2.Get(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved.Title, got.Title)
}

func newMiniredisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisBackend_Contract(t *testing.T) {
	exerciseBackend(t, NewRedisBackendFromClient(newMiniredisClient(t)))
}

func TestRedisBackend_StoreWithRedisLocker(t *testing.T) {
	ctx := context.Background()
	client := newMiniredisClient(t)
	backend := NewRedisBackendFromClient(client)

	s := newTestStore(t, backend, WithLocker(NewRedisLocker(client, DefaultKey, time.Second)))

	refs, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, refs, SeedSize)

	_, err = s.Upsert(ctx, sampleReference())
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "ref-1"))

	refs, err = s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, refs, SeedSize)
}

func TestRedisLocker_ExcludesSecondHolder(t *testing.T) {
	client := newMiniredisClient(t)
	l := NewRedisLocker(client, "k", time.Second)

	unlock, err := l.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx)
	assert.Error(t, err)

	require.NoError(t, unlock(context.Background()))

	unlock, err = l.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock(context.Background()))
}

func TestPostgresBackend_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	b := NewPostgresBackend(db)

	mock.ExpectQuery(`SELECT payload, checksum\s+FROM reference_store`).
		WithArgs("k").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "checksum"}).AddRow(`[]`, "abc"))

	blob, err := b.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(blob.Data))
	assert.Equal(t, "abc", blob.Version)

	mock.ExpectQuery(`SELECT payload, checksum\s+FROM reference_store`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "checksum"}))

	_, err = b.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackend_PutVersions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	b := NewPostgresBackend(db)
	ctx := context.Background()
	data := []byte(`["x"]`)
	sum := Checksum(data)

	mock.ExpectExec(`ON CONFLICT \(storage_key\) DO NOTHING`).
		WithArgs("k", `["x"]`, sum, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	v, err := b.Put(ctx, "k", data, VersionAbsent)
	require.NoError(t, err)
	assert.Equal(t, sum, v)

	mock.ExpectExec(`UPDATE reference_store`).
		WithArgs("k", `["x"]`, sum, sqlmock.AnyArg(), "stale").
		WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = b.Put(ctx, "k", data, "stale")
	assert.ErrorIs(t, err, ErrVersionConflict)

	mock.ExpectExec(`ON CONFLICT \(storage_key\) DO UPDATE SET`).
		WithArgs("k", `["x"]`, sum, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = b.Put(ctx, "k", data, VersionAny)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackend_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS reference_store`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewPostgresBackend(db).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
