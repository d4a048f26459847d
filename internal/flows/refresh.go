package flows

import (
	"context"
	"net/http"

	"github.com/MrEthical07/authclient/session"
)

// RefreshFailureKind classifies refresh failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	// RefreshFailureMissingToken: there was nothing to exchange.
	RefreshFailureMissingToken
	// RefreshFailureTransport: no response, or the Sender already mapped an
	// authorization failure; Err holds the Sender error.
	RefreshFailureTransport
	// RefreshFailureRejected: the backend refused the refresh token.
	RefreshFailureRejected
	RefreshFailureStatus
	RefreshFailureMalformed
)

// RefreshResult carries either the rotated bundle or failure metadata. User
// is nil when the backend did not return a user record.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Status  int
	User    *session.User
	Bundle  Bundle
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Path   string
	Send   Sender
	Expiry ExpiryDeps
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

// RunRefresh exchanges refreshToken for a new credential bundle.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if refreshToken == "" {
		return RefreshResult{Failure: RefreshFailureMissingToken}
	}

	resp, err := deps.Send(ctx, deps.Path, refreshBody{RefreshToken: refreshToken})
	if err != nil {
		return RefreshResult{Failure: RefreshFailureTransport, Err: err}
	}

	switch resp.Status {
	case http.StatusOK, http.StatusCreated:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return RefreshResult{Failure: RefreshFailureRejected, Status: resp.Status}
	default:
		return RefreshResult{Failure: RefreshFailureStatus, Status: resp.Status}
	}

	user, bundle, err := decodeAuthPayload(resp.Body, false, deps.Expiry)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureMalformed, Err: err, Status: resp.Status}
	}
	return RefreshResult{Status: resp.Status, User: user, Bundle: bundle}
}
