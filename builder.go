package authclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/authclient/internal/audit"
	"github.com/MrEthical07/authclient/internal/logattr"
	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/session"
)

// Builder assembles a Manager. A Builder can be used once.
type Builder struct {
	config     Config
	store      session.Store
	httpClient *http.Client
	logger     *slog.Logger
	auditSink  AuditSink
	now        func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the persistent session store. It is required; see OpenStore.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithHTTPClient replaces the default client, whose timeout is
// Backend.Timeout.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithLogger sets the structured logger. Records are discarded by default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the time source used to resolve relative expiries and
// refresh deadlines.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration, hydrates the session from the store and
// returns the Manager. The refresh schedule is not started; call
// InitializeAuth.
func (b *Builder) Build() (*Manager, error) {
	return b.BuildContext(context.Background())
}

// BuildContext is Build with a context bounding hydration.
func (b *Builder) BuildContext(ctx context.Context) (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("session store required")
	}

	tokens, err := jwt.NewReader(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
		Secret:        []byte(cfg.Token.Secret),
		PublicKey:     []byte(cfg.Token.PublicKeyPEM),
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	log := b.logger
	if log == nil {
		log = logattr.Discard()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		config:      cfg,
		store:       b.store,
		tokens:      tokens,
		throttle:    newActionThrottle(cfg.Throttle),
		metrics:     NewMetrics(cfg.Metrics),
		log:         log.With(logattr.Component("authclient")),
		now:         now,
		subscribers: make(map[uint64]func(State)),
	}
	if cfg.Audit.Enabled {
		m.audit = audit.NewDispatcher(audit.Config{
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink)
	}

	m.gateway, err = newGateway(cfg.Backend, b.httpClient, m, m.metrics, log)
	if err != nil {
		m.audit.Close()
		return nil, err
	}
	m.scheduler = newRefreshScheduler(cfg.Refresh, m.RefreshTokens, m.scheduleExpiry, now, log)

	m.hydrate(ctx)

	b.built = true
	return m, nil
}
