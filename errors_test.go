package authclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusErrorMapping(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:          ErrValidation,
		http.StatusUnprocessableEntity: ErrValidation,
		http.StatusUnauthorized:        ErrInvalidCredentials,
		http.StatusForbidden:           ErrInvalidCredentials,
		http.StatusConflict:            ErrConflict,
		http.StatusTooManyRequests:     ErrRateLimited,
		http.StatusInternalServerError: ErrServer,
		http.StatusTeapot:              ErrServer,
	}
	for status, want := range cases {
		err := statusError(status)
		assert.ErrorIs(t, err, want, "status %d", status)

		var apiErr *APIError
		if assert.ErrorAs(t, err, &apiErr) {
			assert.Equal(t, status, apiErr.Status)
		}
	}
}

func TestValidationErrorUnwraps(t *testing.T) {
	err := invalid("new_password", "is too short")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: new_password is too short", err.Error())
	assert.Equal(t, "Please check the new password field and try again.", UserMessage(err))
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: ErrValidation, want: "Please check your input and try again."},
		{err: &APIError{Status: 401, Kind: ErrInvalidCredentials}, want: "Invalid credentials."},
		{err: fmt.Errorf("%w: %w", ErrSessionExpired, ErrNetwork), want: "Your session has expired. Please sign in again."},
		{err: ErrNotAuthenticated, want: "You need to sign in first."},
		{err: fmt.Errorf("%w: dial tcp: refused", ErrNetwork), want: "Unable to reach the server. Check your connection and try again."},
		{err: ErrConflict, want: "That account already exists."},
		{err: ErrRateLimited, want: "Too many requests. Please wait a moment and try again."},
		{err: ErrManagerClosed, want: "The session manager has been shut down."},
		{err: errors.New("pq: deadlock detected"), want: "Something went wrong. Please try again later."},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, UserMessage(tc.err))
	}
}

func TestCredentialsNeverPrintTokens(t *testing.T) {
	creds := Credentials{AccessToken: "secret-access", RefreshToken: "secret-refresh", CSRFToken: "secret-csrf"}
	assert.True(t, creds.Complete())
	assert.False(t, creds.Empty())
	assert.NotContains(t, fmt.Sprintf("%v %+v %s", creds, creds, creds), "secret")

	var buf strings.Builder
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("bundle", "creds", creds)
	assert.NotContains(t, buf.String(), "secret")
	assert.Contains(t, buf.String(), `"access":true`)

	assert.Equal(t, "Credentials{}", Credentials{}.String())
}
