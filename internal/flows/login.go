package flows

import (
	"context"
	"net/http"

	"github.com/MrEthical07/authclient/session"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	// LoginFailureTransport: no response; Err holds the Sender error.
	LoginFailureTransport
	// LoginFailureRejected: the backend refused the credentials.
	LoginFailureRejected
	// LoginFailureInvalidInput: the backend refused the request shape.
	LoginFailureInvalidInput
	// LoginFailureRateLimited: the backend throttled the attempt.
	LoginFailureRateLimited
	// LoginFailureStatus: any other non-2xx status.
	LoginFailureStatus
	// LoginFailureMalformed: 2xx with an unusable body.
	LoginFailureMalformed
	// LoginFailureNotAdmin: the authenticated user is not the administrator.
	LoginFailureNotAdmin
)

// LoginResult carries either the new session or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Status  int
	User    *session.User
	Bundle  Bundle
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Path   string
	Send   Sender
	Expiry ExpiryDeps
	// RequireUsername, when set, rejects a successful response whose user
	// has a different username.
	RequireUsername string
}

// RunLogin posts body to deps.Path and classifies the outcome.
func RunLogin(ctx context.Context, body any, deps LoginDeps) LoginResult {
	resp, err := deps.Send(ctx, deps.Path, body)
	if err != nil {
		return LoginResult{Failure: LoginFailureTransport, Err: err}
	}

	switch {
	case resp.Status == http.StatusOK || resp.Status == http.StatusCreated:
	case resp.Status == http.StatusBadRequest,
		resp.Status == http.StatusUnauthorized,
		resp.Status == http.StatusForbidden:
		return LoginResult{Failure: LoginFailureRejected, Status: resp.Status}
	case resp.Status == http.StatusUnprocessableEntity:
		return LoginResult{Failure: LoginFailureInvalidInput, Status: resp.Status}
	case resp.Status == http.StatusTooManyRequests:
		return LoginResult{Failure: LoginFailureRateLimited, Status: resp.Status}
	default:
		return LoginResult{Failure: LoginFailureStatus, Status: resp.Status}
	}

	user, bundle, err := decodeAuthPayload(resp.Body, true, deps.Expiry)
	if err != nil {
		return LoginResult{Failure: LoginFailureMalformed, Err: err, Status: resp.Status}
	}
	if deps.RequireUsername != "" && user.Username != deps.RequireUsername {
		return LoginResult{Failure: LoginFailureNotAdmin, Status: resp.Status}
	}

	return LoginResult{Status: resp.Status, User: user, Bundle: bundle}
}
