package authclient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/authclient/internal/logattr"
)

// refreshScheduler drives RefreshTokens ahead of access token expiry. At most
// one schedule is active; Stop only prevents future ticks and never waits for
// a refresh already dispatched.
type refreshScheduler struct {
	cfg     RefreshConfig
	refresh func(context.Context) error
	// expiry returns the current access token expiry and whether the session
	// is authenticated.
	expiry func() (time.Time, bool)
	now    func() time.Time
	log    *slog.Logger

	mu      sync.Mutex
	current *schedulerRun
}

type schedulerRun struct {
	cancel context.CancelFunc
	kick   chan struct{}
	done   chan struct{}
}

func newRefreshScheduler(cfg RefreshConfig, refresh func(context.Context) error, expiry func() (time.Time, bool), now func() time.Time, log *slog.Logger) *refreshScheduler {
	return &refreshScheduler{
		cfg:     cfg,
		refresh: refresh,
		expiry:  expiry,
		now:     now,
		log:     log.With(logattr.Component("scheduler")),
	}
}

// Start begins a schedule unless one is already active. It reports whether a
// new schedule was started.
func (s *refreshScheduler) Start() bool {
	if !s.cfg.Enabled {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &schedulerRun{
		cancel: cancel,
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	s.current = run
	go s.loop(ctx, run)
	return true
}

// Stop cancels future ticks. It is safe to call from the schedule's own
// goroutine.
func (s *refreshScheduler) Stop() {
	s.mu.Lock()
	run := s.current
	s.current = nil
	s.mu.Unlock()

	if run != nil {
		run.cancel()
	}
}

// Reschedule makes an active schedule recompute its deadline.
func (s *refreshScheduler) Reschedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return
	}
	select {
	case s.current.kick <- struct{}{}:
	default:
	}
}

func (s *refreshScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Close stops the schedule and waits for its goroutine to exit. It must not
// be called from a refresh triggered by the schedule.
func (s *refreshScheduler) Close() {
	s.mu.Lock()
	run := s.current
	s.current = nil
	s.mu.Unlock()

	if run != nil {
		run.cancel()
		<-run.done
	}
}

func (s *refreshScheduler) loop(ctx context.Context, run *schedulerRun) {
	defer close(run.done)

	for {
		if ctx.Err() != nil {
			return
		}
		expiresAt, ok := s.expiry()
		if !ok {
			s.selfCancel(run)
			return
		}

		delay := nextRefreshDelay(s.now(), expiresAt, s.cfg)
		s.log.Debug("refresh scheduled", logattr.Deadline(s.now().Add(delay)))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-run.kick:
			timer.Stop()
			continue
		case <-timer.C:
		}

		if _, ok := s.expiry(); !ok {
			s.selfCancel(run)
			return
		}

		// The refresh outlives cancellation of this schedule; only future
		// ticks are cancelled.
		if err := s.refresh(context.Background()); err != nil {
			s.log.Warn("scheduled refresh failed", logattr.Error(err))
		}
	}
}

func (s *refreshScheduler) selfCancel(run *schedulerRun) {
	s.mu.Lock()
	if s.current == run {
		s.current = nil
	}
	s.mu.Unlock()
	run.cancel()
	s.log.Debug("refresh schedule stopped: session is anonymous")
}

// nextRefreshDelay returns how long to wait before refreshing credentials
// that expire at expiresAt. Unknown expiry falls back to the fixed interval.
func nextRefreshDelay(now, expiresAt time.Time, cfg RefreshConfig) time.Duration {
	if expiresAt.IsZero() {
		return cfg.Interval
	}
	d := expiresAt.Sub(now) - cfg.LeadTime
	if d < cfg.MinInterval {
		return cfg.MinInterval
	}
	return d
}
