package authclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrValidation is returned when input fails local checks. No request is sent.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned when the backend rejects a login, or
	// when an administrator login is attempted for a non-reserved username.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionExpired means the session has already been terminated because
	// the backend rejected the held credentials.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotAuthenticated is returned locally for operations that need a
	// complete credential bundle when none is held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNetwork is returned when the backend could not be reached.
	ErrNetwork = errors.New("network error")
	// ErrServer is returned for unexpected backend statuses and malformed
	// responses.
	ErrServer = errors.New("server error")
	// ErrConflict is returned when the backend reports a conflicting resource,
	// such as an email already registered.
	ErrConflict = errors.New("conflict")
	// ErrRateLimited is returned by the backend (429) or by the client-side
	// throttle on resend and forgot-password requests.
	ErrRateLimited = errors.New("rate limited")
	// ErrManagerClosed is returned by operations on a closed Manager.
	ErrManagerClosed = errors.New("manager closed")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%v: %s %s", ErrValidation, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// APIError carries the status of a backend response that was mapped to one
// of the package sentinels. The response body is never retained.
type APIError struct {
	Status int
	Kind   error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%v (status %d)", e.Kind, e.Status)
}

// Unwrap returns the mapped sentinel.
func (e *APIError) Unwrap() error { return e.Kind }

// statusError maps an unexpected backend status to a typed error. Statuses
// with operation-specific meaning (401 on login, for example) are handled by
// the caller before falling back to this mapping.
func statusError(status int) error {
	var kind error
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		kind = ErrValidation
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = ErrInvalidCredentials
	case status == http.StatusConflict:
		kind = ErrConflict
	case status == http.StatusTooManyRequests:
		kind = ErrRateLimited
	default:
		kind = ErrServer
	}
	return &APIError{Status: status, Kind: kind}
}

// UserMessage returns a fixed, user-safe message for err. Backend payloads
// and internal error text never pass through.
func UserMessage(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr) && verr.Field != "":
		return "Please check the " + strings.ReplaceAll(verr.Field, "_", " ") + " field and try again."
	case errors.Is(err, ErrValidation):
		return "Please check your input and try again."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid credentials."
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrNotAuthenticated):
		return "You need to sign in first."
	case errors.Is(err, ErrNetwork):
		return "Unable to reach the server. Check your connection and try again."
	case errors.Is(err, ErrConflict):
		return "That account already exists."
	case errors.Is(err, ErrRateLimited):
		return "Too many requests. Please wait a moment and try again."
	case errors.Is(err, ErrManagerClosed):
		return "The session manager has been shut down."
	default:
		return "Something went wrong. Please try again later."
	}
}
