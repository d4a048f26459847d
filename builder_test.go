package authclient

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authclient/session"
)

func TestBuilderRequiresStore(t *testing.T) {
	_, err := New().WithConfig(validConfig()).Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session store required")
}

func TestBuilderValidatesConfig(t *testing.T) {
	_, err := New().WithStore(session.NewMemoryStore()).Build()
	assert.Error(t, err, "default config has no backend url")

	cfg := validConfig()
	cfg.Token.SigningMethod = "hs256"
	cfg.Token.Secret = "s3cret"
	cfg.Token.Leeway = 0
	_, err = New().WithConfig(cfg).WithStore(session.NewMemoryStore()).Build()
	assert.NoError(t, err)
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().WithConfig(validConfig()).WithStore(session.NewMemoryStore())
	m, err := b.Build()
	require.NoError(t, err)
	defer m.Close()

	_, err = b.Build()
	assert.Error(t, err)
}

func TestBuilderCopiesConfig(t *testing.T) {
	cfg := validConfig()
	b := New().WithConfig(cfg).WithStore(session.NewMemoryStore())
	cfg.Admin.Username = "someone-else"

	m, err := b.Build()
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, "admin", m.config.Admin.Username)
}

func TestBuilderLoggerAndMetricsToggles(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store := session.NewMemoryStore()
	store.SetRaw([]byte(`garbage`))

	m, err := New().
		WithConfig(validConfig()).
		WithStore(store).
		WithLogger(logger).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		BuildContext(context.Background())
	require.NoError(t, err)
	defer m.Close()

	assert.True(t, m.metrics.LatencyEnabled())
	assert.Equal(t, uint64(1), m.MetricsSnapshot().Counters[MetricSessionDiscarded])
	assert.Contains(t, buf.String(), "discarding unusable persisted session")
	assert.Contains(t, buf.String(), `"component":"authclient"`)
}
