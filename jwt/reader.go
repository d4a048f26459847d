package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod names the algorithm the backend signs access tokens with.
type SigningMethod string

const (
	// MethodNone disables signature verification; claims are read unverified.
	MethodNone SigningMethod = ""
	// MethodEd25519 verifies EdDSA signatures with an ed25519 public key.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 verifies HMAC-SHA256 signatures with a shared secret.
	MethodHS256 SigningMethod = "hs256"
)

var (
	// ErrNotJWT is returned for access tokens that are not JWTs.
	ErrNotJWT = errors.New("access token is not a jwt")
	// ErrNoExpiry is returned when a JWT carries no exp claim.
	ErrNoExpiry = errors.New("access token has no expiry")
)

// Config configures a Reader.
type Config struct {
	SigningMethod SigningMethod
	Secret        []byte
	PublicKey     []byte
	VerifyKeys    map[string][]byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

// AccessClaims are the claims the client understands.
type AccessClaims struct {
	UID      string `json:"uid,omitempty"`
	SID      string `json:"sid,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Reader extracts claims from access tokens.
type Reader struct {
	config Config
}

// NewReader validates cfg and returns a Reader.
func NewReader(cfg Config) (*Reader, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodNone:
	case MethodHS256:
		if len(cfg.Secret) == 0 {
			return nil, errors.New("hs256 requires secret")
		}
	case MethodEd25519:
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	return &Reader{config: cfg}, nil
}

// Verifies reports whether the Reader checks signatures.
func (r *Reader) Verifies() bool {
	return r != nil && r.config.SigningMethod != MethodNone
}

// ExpiresAt returns the exp claim of token without verifying it. The result
// only schedules a refresh; it is never used to trust the token.
func (r *Reader) ExpiresAt(token string) (time.Time, error) {
	if !looksLikeJWT(token) {
		return time.Time{}, ErrNotJWT
	}
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// Claims parses token. With a signing method configured the signature and
// registered claims are validated; otherwise the claims are returned
// unverified.
func (r *Reader) Claims(token string) (*AccessClaims, error) {
	if !looksLikeJWT(token) {
		return nil, ErrNotJWT
	}
	if !r.Verifies() {
		claims := &AccessClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
		}
		return claims, nil
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{r.method().Alg()}),
	}
	if r.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(r.config.Leeway))
	}
	if r.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(r.config.Issuer))
	}
	if r.config.Audience != "" {
		options = append(options, jwt.WithAudience(r.config.Audience))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(token, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if len(r.config.VerifyKeys) > 0 {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			key, ok := r.config.VerifyKeys[kid]
			if !ok {
				return nil, errors.New("unknown kid")
			}
			return r.verifyKey(key)
		}
		if r.config.SigningMethod == MethodHS256 {
			return r.config.Secret, nil
		}
		return r.verifyKey(r.config.PublicKey)
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (r *Reader) method() jwt.SigningMethod {
	if r.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (r *Reader) verifyKey(key []byte) (interface{}, error) {
	if r.config.SigningMethod == MethodHS256 {
		return key, nil
	}
	return parseEdPublicKey(key)
}

func looksLikeJWT(token string) bool {
	return token != "" && strings.Count(token, ".") == 2
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
