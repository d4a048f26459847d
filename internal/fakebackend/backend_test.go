package fakebackend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/authclient/internal/flows"
	"github.com/MrEthical07/authclient/jwt"
)

func post(t *testing.T, h http.Handler, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodePayload(t *testing.T, rec *httptest.ResponseRecorder) flows.AuthPayload {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var p flows.AuthPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestLoginIssuesSignedBundle(t *testing.T) {
	b := New(Config{})
	b.AddAccount(Account{Email: "ada@example.com", Username: "ada", Password: "correct-horse"})

	p := decodePayload(t, post(t, b, PathLogin, map[string]string{"email": "ada@example.com", "password": "correct-horse"}, nil))
	require.NotNil(t, p.User)
	assert.Equal(t, "ada", p.User.Username)
	assert.NotEmpty(t, p.RefreshToken)
	assert.NotEmpty(t, p.CSRFToken)
	assert.Equal(t, int64(15*60), p.ExpiresIn)

	reader, err := jwt.NewReader(jwt.Config{SigningMethod: jwt.MethodHS256, Secret: b.Secret(), Issuer: "fakebackend"})
	require.NoError(t, err)
	claims, err := reader.Claims(p.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, p.User.ID, claims.UID)
	assert.Equal(t, "ada", claims.Username)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	b := New(Config{})
	b.AddAccount(Account{Email: "ada@example.com", Username: "ada", Password: "correct-horse"})

	rec := post(t, b, PathLogin, map[string]string{"email": "ada@example.com", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLoginOnlyForAdmin(t *testing.T) {
	b := New(Config{})
	b.AddAccount(Account{Email: "ada@example.com", Username: "ada", Password: "correct-horse"})

	rec := post(t, b, PathAdminLogin, map[string]string{"username": "ada", "password": "correct-horse"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	p := decodePayload(t, post(t, b, PathAdminLogin, map[string]string{"username": "admin", "password": "admin-password"}, nil))
	assert.Equal(t, "admin", p.User.Username)
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	b := New(Config{})
	b.AddAccount(Account{Email: "ada@example.com", Username: "ada", Password: "correct-horse"})
	first := decodePayload(t, post(t, b, PathLogin, map[string]string{"email": "ada@example.com", "password": "correct-horse"}, nil))

	second := decodePayload(t, post(t, b, PathRefresh, map[string]string{"refresh_token": first.RefreshToken}, nil))
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.CSRFToken, second.CSRFToken)

	rec := post(t, b, PathRefresh, map[string]string{"refresh_token": first.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// reuse revokes the whole family
	rec = post(t, b, PathRefresh, map[string]string{"refresh_token": second.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticatedEndpointsRequireCSRF(t *testing.T) {
	b := New(Config{})
	b.AddAccount(Account{Email: "ada@example.com", Username: "ada", Password: "correct-horse"})
	p := decodePayload(t, post(t, b, PathLogin, map[string]string{"email": "ada@example.com", "password": "correct-horse"}, nil))

	body := map[string]string{"current_password": "correct-horse", "new_password": "battery-staple"}
	bearer := http.Header{"Authorization": {"Bearer " + p.AccessToken}}
	rec := post(t, b, PathChangePassword, body, bearer)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bearer.Set(CSRFHeader, p.CSRFToken)
	rec = post(t, b, PathChangePassword, body, bearer)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.True(t, b.CheckPassword("ada@example.com", "battery-staple"))
	assert.False(t, b.CheckPassword("ada@example.com", "correct-horse"))
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	b := New(Config{Now: clock, AccessTTL: time.Minute, Expiry: ExpiresAt})
	b.AddAccount(Account{Email: "ada@example.com", Username: "ada", Password: "correct-horse"})
	p := decodePayload(t, post(t, b, PathLogin, map[string]string{"email": "ada@example.com", "password": "correct-horse"}, nil))
	require.NotNil(t, p.ExpiresAt)
	assert.True(t, now.Add(time.Minute).Equal(*p.ExpiresAt))

	now = now.Add(2 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, PathExportData, nil)
	req.Header.Set("Authorization", "Bearer "+p.AccessToken)
	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOneTimeGrants(t *testing.T) {
	b := New(Config{})
	b.AddAccount(Account{Email: "ada@example.com", Username: "ada", Password: "correct-horse"})

	token, err := b.IssueVerificationToken("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, post(t, b, PathVerifyEmail, map[string]string{"token": token}, nil).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, b, PathVerifyEmail, map[string]string{"token": token}, nil).Code)

	acct, _ := b.Account("ada@example.com")
	assert.True(t, acct.Verified)

	_, err = b.IssueResetToken("nobody@example.com")
	assert.Error(t, err)
}

func TestFaultInjectionAndCallLog(t *testing.T) {
	b := New(Config{})
	b.FailNext(PathForgotPassword, http.StatusServiceUnavailable)

	rec := post(t, b, PathForgotPassword, map[string]string{"email": "ada@example.com"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = post(t, b, PathForgotPassword, map[string]string{"email": "ada@example.com"}, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	b.FailAlways(PathForgotPassword, http.StatusTooManyRequests)
	assert.Equal(t, http.StatusTooManyRequests, post(t, b, PathForgotPassword, map[string]string{"email": "x@y.z"}, nil).Code)
	b.ClearFailures()
	assert.Equal(t, http.StatusAccepted, post(t, b, PathForgotPassword, map[string]string{"email": "x@y.z"}, nil).Code)

	assert.Equal(t, 4, b.Calls(PathForgotPassword))
	call, ok := b.LastCall(PathForgotPassword)
	require.True(t, ok)
	assert.JSONEq(t, `{"email":"x@y.z"}`, string(call.Body))
}

func TestHoldParksRequest(t *testing.T) {
	b := New(Config{})
	entered, release := b.Hold(PathForgotPassword)

	done := make(chan int, 1)
	go func() {
		done <- post(t, b, PathForgotPassword, map[string]string{"email": "x@y.z"}, nil).Code
	}()

	<-entered
	select {
	case <-done:
		t.Fatal("request completed while held")
	default:
	}
	release()
	assert.Equal(t, http.StatusAccepted, <-done)
}
