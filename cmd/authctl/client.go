package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/internal/logattr"
)

// loadEnvFile reads --env-file into the environment. Variables already set
// win. A missing file is only an error when the flag was given explicitly.
func loadEnvFile(c *cli.Context) error {
	path, err := homedir.Expand(c.String(flagEnvFile))
	if err != nil {
		return fmt.Errorf("error resolving env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !c.IsSet(flagEnvFile) {
			return nil
		}
		return fmt.Errorf("error loading env file %s: %w", path, err)
	}
	return nil
}

func getConfig(c *cli.Context) (authclient.Config, error) {
	var (
		cfg authclient.Config
		err error
	)
	if file := c.String(flagConfig); file != "" {
		path, expandErr := homedir.Expand(file)
		if expandErr != nil {
			return cfg, fmt.Errorf("error resolving config file: %w", expandErr)
		}
		cfg, err = authclient.LoadConfigFile(path)
	} else {
		cfg, err = authclient.LoadConfigFromEnv()
		if err == nil && os.Getenv(authclient.EnvPrefix+"SESSION_STORE") == "" {
			cfg.Session.Store = authclient.StoreSQLite
		}
	}
	if err != nil {
		return cfg, fmt.Errorf("error reading configuration: %w", err)
	}

	if c.IsSet(flagStore) {
		cfg.Session.Store = authclient.StoreKind(c.String(flagStore))
	}
	// each invocation is one operation; nothing stays around to refresh
	cfg.Refresh.Enabled = false
	cfg.Audit.Enabled = c.Bool(flagAudit)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// getManager builds a Manager hydrated from the configured store. The
// returned release function closes both.
func getManager(c *cli.Context) (*authclient.Manager, func(), error) {
	cfg, err := getConfig(c)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelWarn
	if c.Bool(flagDebug) {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level})).
		With(logattr.Component("authctl"))

	store, closeStore, err := authclient.OpenStore(c.Context, cfg.Session)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening session store: %w", err)
	}

	builder := authclient.New().
		WithConfig(cfg).
		WithStore(store).
		WithLogger(log)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(authclient.NewJSONWriterSink(c.App.ErrWriter))
	}
	m, err := builder.BuildContext(c.Context)
	if err != nil {
		_ = closeStore()
		return nil, nil, fmt.Errorf("error building session manager: %w", err)
	}

	release := func() {
		m.Close()
		if err := closeStore(); err != nil {
			log.Warn("session store close failed", logattr.Error(err))
		}
	}
	return m, release, nil
}

// failure turns an operation error into the user-safe message. The raw
// error is only logged at debug level.
func failure(c *cli.Context, err error) error {
	if c.Bool(flagDebug) {
		fmt.Fprintf(c.App.ErrWriter, "debug: %v\n", err)
	}
	return cli.Exit(authclient.UserMessage(err), 1)
}
