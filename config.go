package authclient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by LoadConfigFromEnv.
const EnvPrefix = "AUTHCLIENT_"

// Config holds every tunable of a Manager. Build it with DefaultConfig,
// LoadConfigFromEnv or LoadConfigFile, then pass it to Builder.WithConfig;
// the Builder keeps its own copy.
type Config struct {
	Backend  BackendConfig  `toml:"backend" envPrefix:"BACKEND_"`
	Admin    AdminConfig    `toml:"admin" envPrefix:"ADMIN_"`
	Token    TokenConfig    `toml:"token" envPrefix:"TOKEN_"`
	Refresh  RefreshConfig  `toml:"refresh" envPrefix:"REFRESH_"`
	Session  SessionConfig  `toml:"session" envPrefix:"SESSION_"`
	Throttle ThrottleConfig `toml:"throttle" envPrefix:"THROTTLE_"`
	Audit    AuditConfig    `toml:"audit" envPrefix:"AUDIT_"`
	Metrics  MetricsConfig  `toml:"metrics" envPrefix:"METRICS_"`
}

/*
====================================
BACKEND CONFIG
====================================
*/

// BackendConfig locates the authentication backend and names the headers
// the Gateway writes.
type BackendConfig struct {
	BaseURL         string        `toml:"base_url" env:"BASE_URL"`
	Timeout         time.Duration `toml:"timeout" env:"TIMEOUT"`
	AuthHeader      string        `toml:"auth_header" env:"AUTH_HEADER"`
	CSRFHeader      string        `toml:"csrf_header" env:"CSRF_HEADER"`
	RequestIDHeader string        `toml:"request_id_header" env:"REQUEST_ID_HEADER"`
	UserAgent       string        `toml:"user_agent" env:"USER_AGENT"`
}

/*
====================================
ADMIN CONFIG
====================================
*/

// AdminConfig names the reserved administrator identifier.
type AdminConfig struct {
	Username string `toml:"username" env:"USERNAME"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls how access tokens are read. With SigningMethod empty
// the exp claim is read without verification and only used for scheduling.
type TokenConfig struct {
	SigningMethod string        `toml:"signing_method" env:"SIGNING_METHOD"` // "", "ed25519" or "hs256"
	Secret        string        `toml:"secret" env:"SECRET"`
	PublicKeyPEM  string        `toml:"public_key_pem" env:"PUBLIC_KEY_PEM"`
	Issuer        string        `toml:"issuer" env:"ISSUER"`
	Audience      string        `toml:"audience" env:"AUDIENCE"`
	Leeway        time.Duration `toml:"leeway" env:"LEEWAY"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig drives the refresh schedule. The next refresh fires LeadTime
// before the access token expires, never sooner than MinInterval; Interval is
// used when the expiry is unknown.
type RefreshConfig struct {
	Enabled     bool          `toml:"enabled" env:"ENABLED"`
	Interval    time.Duration `toml:"interval" env:"INTERVAL"`
	LeadTime    time.Duration `toml:"lead_time" env:"LEAD_TIME"`
	MinInterval time.Duration `toml:"min_interval" env:"MIN_INTERVAL"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// StoreKind selects a session.Store backend in OpenStore.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreFile   StoreKind = "file"
	StoreRedis  StoreKind = "redis"
	StoreSQLite StoreKind = "sqlite"
)

// SessionConfig selects and configures the persistent session store.
type SessionConfig struct {
	Store       StoreKind     `toml:"store" env:"STORE"`
	Path        string        `toml:"path" env:"PATH"`
	RedisAddr   string        `toml:"redis_addr" env:"REDIS_ADDR"`
	RedisPrefix string        `toml:"redis_prefix" env:"REDIS_PREFIX"`
	RedisTTL    time.Duration `toml:"redis_ttl" env:"REDIS_TTL"`
	ClientID    string        `toml:"client_id" env:"CLIENT_ID"`
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig limits how often the client sends forgot-password and
// resend-verification requests. Each action allows Burst requests and then
// one per Interval.
type ThrottleConfig struct {
	Enabled  bool          `toml:"enabled" env:"ENABLED"`
	Interval time.Duration `toml:"interval" env:"INTERVAL"`
	Burst    int           `toml:"burst" env:"BURST"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `toml:"enabled" env:"ENABLED"`
	BufferSize int  `toml:"buffer_size" env:"BUFFER_SIZE"`
	DropIfFull bool `toml:"drop_if_full" env:"DROP_IF_FULL"`
}

// MetricsConfig toggles in-process counters and the request latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool `toml:"enabled" env:"ENABLED"`
	EnableLatencyHistograms bool `toml:"enable_latency_histograms" env:"ENABLE_LATENCY_HISTOGRAMS"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when none is supplied.
// Backend.BaseURL is empty and must be set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			Timeout:         10 * time.Second,
			AuthHeader:      "Authorization",
			CSRFHeader:      "X-CSRF-Token",
			RequestIDHeader: "X-Request-ID",
			UserAgent:       "authclient",
		},
		Admin: AdminConfig{
			Username: "admin",
		},
		Refresh: RefreshConfig{
			Enabled:     true,
			Interval:    14 * time.Minute,
			LeadTime:    time.Minute,
			MinInterval: 5 * time.Second,
		},
		Session: SessionConfig{
			Store:       StoreFile,
			RedisPrefix: "acs",
			ClientID:    "default",
		},
		Throttle: ThrottleConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
			Burst:    2,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// every field is a value type
	return cfg
}

/*
====================================
LOADING
====================================
*/

// LoadConfigFromEnv returns DefaultConfig overridden by AUTHCLIENT_*
// environment variables, for example AUTHCLIENT_BACKEND_BASE_URL or
// AUTHCLIENT_REFRESH_LEAD_TIME=90s. The result is validated.
func LoadConfigFromEnv() (Config, error) {
	cfg := defaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile returns DefaultConfig overridden by the TOML file at path.
// Durations are written as strings ("30s", "14m").
func LoadConfigFile(path string) (Config, error) {
	cfg := defaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Backend
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("Backend BaseURL is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("Backend BaseURL must be an absolute http(s) URL")
	}
	if c.Backend.Timeout <= 0 {
		return errors.New("Backend Timeout must be > 0")
	}
	if c.Backend.AuthHeader == "" || c.Backend.CSRFHeader == "" || c.Backend.RequestIDHeader == "" {
		return errors.New("Backend header names must not be empty")
	}

	// Admin
	if strings.TrimSpace(c.Admin.Username) == "" {
		return errors.New("Admin Username must not be empty")
	}

	// Token
	switch c.Token.SigningMethod {
	case "":
	case "hs256":
		if c.Token.Secret == "" {
			return errors.New("Token hs256 requires Secret")
		}
	case "ed25519":
		if c.Token.PublicKeyPEM == "" {
			return errors.New("Token ed25519 requires PublicKeyPEM")
		}
	default:
		return errors.New("unsupported Token SigningMethod")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be between 0 and 2m")
	}

	// Refresh
	if c.Refresh.Enabled {
		if c.Refresh.Interval <= 0 {
			return errors.New("Refresh Interval must be > 0")
		}
		if c.Refresh.MinInterval <= 0 {
			return errors.New("Refresh MinInterval must be > 0")
		}
		if c.Refresh.LeadTime < 0 {
			return errors.New("Refresh LeadTime must be >= 0")
		}
		if c.Refresh.MinInterval > c.Refresh.Interval {
			return errors.New("Refresh MinInterval must be <= Interval")
		}
	}

	// Session
	switch c.Session.Store {
	case StoreMemory, StoreFile, StoreSQLite:
	case StoreRedis:
		if c.Session.RedisAddr == "" {
			return errors.New("Session redis store requires RedisAddr")
		}
		if c.Session.RedisTTL < 0 {
			return errors.New("Session RedisTTL must be >= 0")
		}
	default:
		return errors.New("Session Store must be one of memory, file, redis, sqlite")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.Interval <= 0 {
			return errors.New("Throttle Interval must be > 0 when enabled")
		}
		if c.Throttle.Burst <= 0 {
			return errors.New("Throttle Burst must be > 0 when enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
