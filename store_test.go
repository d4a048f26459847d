package authclient

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authclient/session"
)

func sampleSnapshot() *session.Snapshot {
	return &session.Snapshot{
		User:         &session.User{ID: "u1", Email: testEmail, Username: testUsername},
		AccessToken:  "a",
		RefreshToken: "r",
		CSRFToken:    "c",
		ExpiresAt:    time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func roundTrip(t *testing.T, store session.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, store.Save(ctx, sampleSnapshot()))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r", got.RefreshToken)
	assert.Equal(t, testUsername, got.User.Username)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestOpenStoreBackends(t *testing.T) {
	dir := t.TempDir()
	mr := miniredis.RunT(t)

	cases := map[string]SessionConfig{
		"memory": {Store: StoreMemory},
		"file":   {Store: StoreFile, Path: filepath.Join(dir, "nested", "session.json")},
		"sqlite": {Store: StoreSQLite, Path: filepath.Join(dir, "session.db")},
		"redis":  {Store: StoreRedis, RedisAddr: mr.Addr(), RedisPrefix: "acs", ClientID: "cli", RedisTTL: time.Hour},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			store, closeStore, err := OpenStore(context.Background(), cfg)
			require.NoError(t, err)
			defer func() { assert.NoError(t, closeStore()) }()
			roundTrip(t, store)
		})
	}
}

func TestOpenStoreRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, _, err := OpenStore(context.Background(), SessionConfig{Store: StoreRedis, RedisAddr: addr})
	assert.ErrorIs(t, err, session.ErrStoreUnavailable)
}

func TestOpenStoreUnknownKind(t *testing.T) {
	_, _, err := OpenStore(context.Background(), SessionConfig{Store: "etcd"})
	assert.Error(t, err)
}

func TestStorePathExpandsHome(t *testing.T) {
	path, err := storePath("~/.authclient/session.json", "ignored")
	require.NoError(t, err)
	assert.NotContains(t, path, "~")
	assert.True(t, filepath.IsAbs(path))

	path, err = storePath("", "session.db")
	require.NoError(t, err)
	assert.Equal(t, "session.db", filepath.Base(path))
}
