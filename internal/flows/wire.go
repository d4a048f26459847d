package flows

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MrEthical07/authclient/session"
)

// Exchange is the part of a backend response the flows inspect.
type Exchange struct {
	Status int
	Body   []byte
}

// Sender issues one POST to path with a JSON body. A non-nil error means no
// usable response was received; the error is returned to the caller as is.
type Sender func(ctx context.Context, path string, body any) (Exchange, error)

// AuthPayload is the body of auth-producing responses.
type AuthPayload struct {
	User         *session.User `json:"user"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	CSRFToken    string        `json:"csrf_token"`
	ExpiresAt    *time.Time    `json:"expires_at,omitempty"`
	ExpiresIn    int64         `json:"expires_in,omitempty"`
}

var (
	errMalformedPayload  = errors.New("malformed auth payload")
	errIncompleteBundle  = errors.New("incomplete credential bundle")
	errMissingUserRecord = errors.New("auth payload without user")
)

// Bundle is a validated credential bundle.
type Bundle struct {
	AccessToken  string
	RefreshToken string
	CSRFToken    string
	ExpiresAt    time.Time
}

// ExpiryDeps resolves the access token expiry when the payload has none.
type ExpiryDeps struct {
	Now func() time.Time
	// TokenExpiry reads the expiry embedded in the access token, if any.
	TokenExpiry func(accessToken string) (time.Time, error)
}

func decodeAuthPayload(body []byte, requireUser bool, deps ExpiryDeps) (*session.User, Bundle, error) {
	var payload AuthPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, Bundle{}, errMalformedPayload
	}
	if payload.AccessToken == "" || payload.RefreshToken == "" || payload.CSRFToken == "" {
		return nil, Bundle{}, errIncompleteBundle
	}
	if requireUser && payload.User == nil {
		return nil, Bundle{}, errMissingUserRecord
	}

	bundle := Bundle{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		CSRFToken:    payload.CSRFToken,
		ExpiresAt:    ResolveExpiry(payload, deps),
	}
	return payload.User, bundle, nil
}

// ResolveExpiry picks expires_at, then expires_in, then the token's own exp
// claim. The zero time means unknown.
func ResolveExpiry(payload AuthPayload, deps ExpiryDeps) time.Time {
	switch {
	case payload.ExpiresAt != nil && !payload.ExpiresAt.IsZero():
		return payload.ExpiresAt.UTC()
	case payload.ExpiresIn > 0 && deps.Now != nil:
		return deps.Now().Add(time.Duration(payload.ExpiresIn) * time.Second).UTC()
	case deps.TokenExpiry != nil:
		if exp, err := deps.TokenExpiry(payload.AccessToken); err == nil {
			return exp.UTC()
		}
	}
	return time.Time{}
}
