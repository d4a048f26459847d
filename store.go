package authclient

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authclient/session"
)

// OpenStore opens the session store selected by cfg. The returned close
// function releases its resources and must be called after Manager.Close.
func OpenStore(ctx context.Context, cfg SessionConfig) (session.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case StoreMemory:
		return session.NewMemoryStore(), noop, nil

	case StoreFile:
		path, err := storePath(cfg.Path, "session.json")
		if err != nil {
			return nil, nil, err
		}
		store, err := session.NewFileStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case StoreSQLite:
		path, err := storePath(cfg.Path, "session.db")
		if err != nil {
			return nil, nil, err
		}
		store, err := session.OpenSQLiteStore(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
		}
		return session.NewRedisStore(client, cfg.RedisPrefix, cfg.ClientID, cfg.RedisTTL), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported session store %q", cfg.Store)
	}
}

func storePath(configured, name string) (string, error) {
	if configured != "" {
		return homedir.Expand(configured)
	}
	dir, err := session.DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
