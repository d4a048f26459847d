package authclient

import (
	"sync"

	"golang.org/x/time/rate"
)

const (
	throttleForgotPassword     = "forgot_password"
	throttleResendVerification = "resend_verification"
)

// actionThrottle limits how often the client fires e-mail triggering
// requests. Each action has its own token bucket.
type actionThrottle struct {
	cfg ThrottleConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newActionThrottle(cfg ThrottleConfig) *actionThrottle {
	return &actionThrottle{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow consumes one token for action. A disabled throttle allows all.
func (t *actionThrottle) Allow(action string) bool {
	if t == nil || !t.cfg.Enabled {
		return true
	}

	t.mu.Lock()
	limiter, ok := t.limiters[action]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(t.cfg.Interval), t.cfg.Burst)
		t.limiters[action] = limiter
	}
	t.mu.Unlock()

	return limiter.Allow()
}
