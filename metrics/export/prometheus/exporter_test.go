package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/internal/fakebackend"
	"github.com/MrEthical07/authclient/session"
)

type fakeSource struct {
	snapshot authclient.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authclient.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewFromSource(fakeSource{
		snapshot: authclient.MetricsSnapshot{
			Counters:   map[authclient.MetricID]uint64{},
			Histograms: map[authclient.MetricID][]uint64{},
		},
	})
	assert.Empty(t, exp.Render())
	assert.Empty(t, (*Exporter)(nil).Render())
}

func TestRenderCountersAndHistogram(t *testing.T) {
	exp := NewFromSource(fakeSource{
		snapshot: authclient.MetricsSnapshot{
			Counters: map[authclient.MetricID]uint64{
				authclient.MetricLoginSuccess:      7,
				authclient.MetricForcedTermination: 2,
			},
			Histograms: map[authclient.MetricID][]uint64{
				authclient.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	assert.Contains(t, out, "authclient_login_success_total 7\n")
	assert.Contains(t, out, "authclient_forced_termination_total 2\n")
	assert.Contains(t, out, "authclient_refresh_failure_total 0\n")
	assert.Contains(t, out, `authclient_request_latency_seconds_bucket{le="0.005"} 1`)
	assert.Contains(t, out, `authclient_request_latency_seconds_bucket{le="+Inf"} 36`)
	assert.Contains(t, out, "authclient_request_latency_seconds_count 36\n")
	assert.Contains(t, out, "authclient_audit_dropped_total 2\n")
	assert.Contains(t, out, "# TYPE authclient_request_latency_seconds histogram\n")
}

func TestRenderOmitsDisabledHistogram(t *testing.T) {
	exp := NewFromSource(fakeSource{
		snapshot: authclient.MetricsSnapshot{
			Counters:   map[authclient.MetricID]uint64{authclient.MetricLogout: 1},
			Histograms: map[authclient.MetricID][]uint64{},
		},
	})
	assert.NotContains(t, exp.Render(), "latency")
}

func TestHandlerServesManagerMetrics(t *testing.T) {
	backend := fakebackend.New(fakebackend.Config{})
	backend.AddAccount(fakebackend.Account{Email: "ada@example.com", Username: "ada", Password: "correct-horse-1"})
	server := httptest.NewServer(backend)
	defer server.Close()

	cfg := authclient.DefaultConfig()
	cfg.Backend.BaseURL = server.URL
	cfg.Refresh.Enabled = false
	m, err := authclient.New().
		WithConfig(cfg).
		WithStore(session.NewMemoryStore()).
		WithHTTPClient(server.Client()).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.Login(context.Background(), authclient.LoginRequest{Email: "ada@example.com", Password: "correct-horse-1"}))

	rec := httptest.NewRecorder()
	New(m).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "authclient_login_success_total 1\n")
	assert.Contains(t, rec.Body.String(), "authclient_request_total 1\n")
	assert.Contains(t, rec.Body.String(), `authclient_request_latency_seconds_count 1`)
}

func BenchmarkRender(b *testing.B) {
	exp := NewFromSource(fakeSource{
		snapshot: authclient.MetricsSnapshot{
			Counters: map[authclient.MetricID]uint64{
				authclient.MetricLoginSuccess:   1000,
				authclient.MetricLoginFailure:   40,
				authclient.MetricRefreshSuccess: 800,
				authclient.MetricRefreshFailure: 10,
				authclient.MetricRequest:        2400,
			},
			Histograms: map[authclient.MetricID][]uint64{
				authclient.MetricRequestLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
