package authclient

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authclient/internal/logattr"
)

func TestNextRefreshDelay(t *testing.T) {
	cfg := RefreshConfig{Enabled: true, Interval: 14 * time.Minute, LeadTime: time.Minute, MinInterval: 5 * time.Second}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		expiresAt time.Time
		want      time.Duration
	}{
		{name: "unknown expiry", expiresAt: time.Time{}, want: 14 * time.Minute},
		{name: "ahead of lead time", expiresAt: now.Add(15 * time.Minute), want: 14 * time.Minute},
		{name: "long lived", expiresAt: now.Add(time.Hour), want: 59 * time.Minute},
		{name: "inside lead time", expiresAt: now.Add(30 * time.Second), want: 5 * time.Second},
		{name: "already expired", expiresAt: now.Add(-time.Minute), want: 5 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nextRefreshDelay(now, tc.expiresAt, cfg))
		})
	}
}

type schedulerProbe struct {
	mu            sync.Mutex
	expiresAt     time.Time
	authenticated bool
	refreshes     atomic.Int32
	fired         chan struct{}
}

func (p *schedulerProbe) expiry() (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expiresAt, p.authenticated
}

func (p *schedulerProbe) refresh(context.Context) error {
	p.refreshes.Add(1)
	select {
	case p.fired <- struct{}{}:
	default:
	}
	return nil
}

func (p *schedulerProbe) set(expiresAt time.Time, authenticated bool) {
	p.mu.Lock()
	p.expiresAt = expiresAt
	p.authenticated = authenticated
	p.mu.Unlock()
}

func newProbeScheduler(p *schedulerProbe) *refreshScheduler {
	cfg := RefreshConfig{Enabled: true, Interval: time.Hour, LeadTime: time.Minute, MinInterval: 10 * time.Millisecond}
	return newRefreshScheduler(cfg, p.refresh, p.expiry, time.Now, logattr.Discard())
}

func TestSchedulerRefreshesBeforeExpiry(t *testing.T) {
	p := &schedulerProbe{fired: make(chan struct{}, 1)}
	p.set(time.Now().Add(30*time.Second), true)
	s := newProbeScheduler(p)
	defer s.Close()

	require.True(t, s.Start())
	select {
	case <-p.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not fire")
	}
	assert.True(t, s.Running())
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	p := &schedulerProbe{fired: make(chan struct{}, 1)}
	p.set(time.Now().Add(time.Hour), true)
	s := newProbeScheduler(p)
	defer s.Close()

	assert.True(t, s.Start())
	assert.False(t, s.Start())
	s.Stop()
	assert.False(t, s.Running())
	assert.True(t, s.Start())
}

func TestSchedulerStopsItselfWhenAnonymous(t *testing.T) {
	p := &schedulerProbe{fired: make(chan struct{}, 1)}
	s := newProbeScheduler(p)
	defer s.Close()

	require.True(t, s.Start())
	require.Eventually(t, func() bool { return !s.Running() }, time.Second, 5*time.Millisecond)
	assert.Zero(t, p.refreshes.Load())
}

func TestSchedulerRescheduleRecomputesDeadline(t *testing.T) {
	p := &schedulerProbe{fired: make(chan struct{}, 1)}
	p.set(time.Now().Add(time.Hour), true)
	s := newProbeScheduler(p)
	defer s.Close()

	require.True(t, s.Start())
	p.set(time.Now().Add(30*time.Second), true)
	s.Reschedule()

	select {
	case <-p.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("rescheduled refresh did not fire")
	}
}

func TestSchedulerDisabled(t *testing.T) {
	p := &schedulerProbe{fired: make(chan struct{}, 1)}
	s := newRefreshScheduler(RefreshConfig{}, p.refresh, p.expiry, time.Now, logattr.Discard())
	assert.False(t, s.Start())
	assert.False(t, s.Running())
	s.Close()
}

func TestManagerSchedulesRefreshAfterLogin(t *testing.T) {
	h := newHarness(t, withConfig(func(c *Config) {
		c.Refresh.Enabled = true
		c.Refresh.LeadTime = 15 * time.Minute
		c.Refresh.MinInterval = 20 * time.Millisecond
	}))
	h.login(t)
	before := h.manager.Credentials().RefreshToken

	require.Eventually(t, func() bool {
		return h.backend.Calls("/auth/refresh") > 0 && h.manager.Credentials().RefreshToken != before
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, h.manager.State().IsAuthenticated)

	h.manager.Logout(context.Background())
	assert.False(t, h.manager.scheduler.Running())
}
