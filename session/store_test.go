package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore checks the Store contract shared by every backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Clear(ctx), "clear on empty store")

	in := testSnapshot()
	require.NoError(t, store.Save(ctx, in))

	out, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.User, out.User)
	assert.Equal(t, in.AccessToken, out.AccessToken)
	assert.Equal(t, in.RefreshToken, out.RefreshToken)
	assert.Equal(t, in.CSRFToken, out.CSRFToken)
	assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt))

	rotated := testSnapshot()
	rotated.AccessToken = "T2"
	rotated.RefreshToken = "R2"
	rotated.CSRFToken = "C2"
	require.NoError(t, store.Save(ctx, rotated))

	out, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T2", out.AccessToken)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clear is idempotent")

	_, err = store.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	partial := testSnapshot()
	partial.RefreshToken = ""
	require.ErrorIs(t, store.Save(ctx, partial), ErrPartialCredentials)
}

func TestMemoryStoreContract(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreRawIsCopy(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), testSnapshot()))

	raw := store.Raw()
	raw[0] = 'x'

	_, err := store.Load(context.Background())
	require.NoError(t, err)
}

func TestFileStoreContract(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFileStoreWritesOwnerOnlyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), testSnapshot()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	require.ErrorIs(t, err, ErrInvalidSnapshot)
}

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "acs", "test-client", 0), mr
}

func TestRedisStoreContract(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	exerciseStore(t, store)
}

func TestRedisStoreKeyAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisStore(rdb, "", "", time.Hour)
	assert.Equal(t, "acs:default", store.Key())

	require.NoError(t, store.Save(context.Background(), testSnapshot()))
	assert.True(t, mr.Exists("acs:default"))
	assert.Equal(t, time.Hour, mr.TTL("acs:default"))
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	mr.Close()

	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorIs(t, store.Save(context.Background(), testSnapshot()), ErrStoreUnavailable)
}

func TestSQLiteStoreContract(t *testing.T) {
	store, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "state", "session.db"))
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	store, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, testSnapshot()))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	out, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", out.User.Username)
}
