package authclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authclient/internal/fakebackend"
	"github.com/MrEthical07/authclient/session"
)

const (
	testEmail    = "ada@example.com"
	testUsername = "ada"
	testPassword = "correct-horse-1"
)

type harness struct {
	backend *fakebackend.Backend
	server  *httptest.Server
	store   *session.MemoryStore
	manager *Manager
	sink    *ChannelSink
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	backend fakebackend.Config
	mutate  []func(*Config)
	store   *session.MemoryStore
}

func withConfig(fn func(*Config)) harnessOption {
	return func(h *harnessConfig) { h.mutate = append(h.mutate, fn) }
}

func withBackend(cfg fakebackend.Config) harnessOption {
	return func(h *harnessConfig) { h.backend = cfg }
}

func withStore(store *session.MemoryStore) harnessOption {
	return func(h *harnessConfig) { h.store = store }
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.Backend.BaseURL = baseURL
	cfg.Backend.Timeout = 5 * time.Second
	cfg.Session.Store = StoreMemory
	cfg.Refresh.Enabled = false
	cfg.Metrics.Enabled = true
	cfg.Audit.Enabled = true
	return cfg
}

func newHarness(t testing.TB, opts ...harnessOption) *harness {
	t.Helper()

	hc := harnessConfig{}
	for _, opt := range opts {
		opt(&hc)
	}

	backend := fakebackend.New(hc.backend)
	backend.AddAccount(fakebackend.Account{Email: testEmail, Username: testUsername, Password: testPassword})
	server := httptestServer(t, backend)

	return attachManager(t, backend, server, hc)
}

// attachManager builds a Manager against an existing backend, as a second
// process would.
func attachManager(t testing.TB, backend *fakebackend.Backend, server *httptest.Server, hc harnessConfig) *harness {
	t.Helper()

	cfg := testConfig(server.URL)
	for _, fn := range hc.mutate {
		fn(&cfg)
	}
	store := hc.store
	if store == nil {
		store = session.NewMemoryStore()
	}
	sink := NewChannelSink(512)

	m, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithHTTPClient(server.Client()).
		WithAuditSink(sink).
		Build()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	return &harness{backend: backend, server: server, store: store, manager: m, sink: sink}
}

func httptestServer(t testing.TB, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	require.NoError(t, h.manager.Login(context.Background(), LoginRequest{Email: testEmail, Password: testPassword}))
	require.True(t, h.manager.State().IsAuthenticated)
}

func (h *harness) persisted(t *testing.T) *session.Snapshot {
	t.Helper()
	snap, err := h.store.Load(context.Background())
	if err != nil {
		require.ErrorIs(t, err, session.ErrNotFound)
		return nil
	}
	return snap
}

// waitAudit reads events until one of eventType arrives.
func (h *harness) waitAudit(t *testing.T, eventType string) AuditEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-timeout:
			t.Fatalf("audit event %q not delivered", eventType)
			return AuditEvent{}
		}
	}
}

// stateRecorder collects every published State.
type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}
