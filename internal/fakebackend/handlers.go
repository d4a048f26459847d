package fakebackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/authclient/internal/flows"
	"github.com/MrEthical07/authclient/jwt"
	"github.com/MrEthical07/authclient/session"
)

// Endpoint paths.
const (
	PathLogin              = "/auth/login"
	PathAdminLogin         = "/auth/admin/login"
	PathRegister           = "/auth/register"
	PathLogout             = "/auth/logout"
	PathRefresh            = "/auth/refresh"
	PathForgotPassword     = "/auth/forgot-password"
	PathResetPassword      = "/auth/reset-password"
	PathChangePassword     = "/auth/change-password"
	PathVerifyEmail        = "/auth/verify-email"
	PathResendVerification = "/auth/resend-verification"
	PathExportData         = "/auth/export-data"
	PathDeleteAccount      = "/auth/delete-account"
)

// CSRFHeader is the header mutating authenticated requests must carry.
const CSRFHeader = "X-CSRF-Token"

var errUnauthorized = errors.New("unauthorized")

func (b *Backend) routes() {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+PathLogin, b.handleLogin)
	mux.HandleFunc("POST "+PathAdminLogin, b.handleAdminLogin)
	mux.HandleFunc("POST "+PathRegister, b.handleRegister)
	mux.HandleFunc("POST "+PathLogout, b.handleLogout)
	mux.HandleFunc("POST "+PathRefresh, b.handleRefresh)
	mux.HandleFunc("POST "+PathForgotPassword, b.handleAcknowledgeEmail)
	mux.HandleFunc("POST "+PathResetPassword, b.handleResetPassword)
	mux.HandleFunc("POST "+PathChangePassword, b.handleChangePassword)
	mux.HandleFunc("POST "+PathVerifyEmail, b.handleVerifyEmail)
	mux.HandleFunc("POST "+PathResendVerification, b.handleAcknowledgeEmail)
	mux.HandleFunc("GET "+PathExportData, b.handleExportData)
	mux.HandleFunc("DELETE "+PathDeleteAccount, b.handleDeleteAccount)
	b.mux = mux
}

/*
====================================
SIGN IN
====================================
*/

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	b.mu.Lock()
	acct, ok := b.accounts[strings.ToLower(req.Email)]
	b.mu.Unlock()
	if !ok || !b.passwordOK(acct, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	b.issue(w, acct)
}

func (b *Backend) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	acct := b.accountByUsername(req.Username)
	if acct == nil || acct.Username != b.cfg.AdminUsername || !b.passwordOK(acct, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	b.issue(w, acct)
}

// issue starts a refresh family for acct and writes the auth payload.
func (b *Backend) issue(w http.ResponseWriter, acct *Account) {
	id, err := newOpaqueID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "entropy")
		return
	}
	fam := &family{email: strings.ToLower(acct.Email)}

	b.mu.Lock()
	acct.LastLogin = b.cfg.Now().UTC()
	b.families[id.String()] = fam
	b.mu.Unlock()

	b.writeBundle(w, id, fam, acct)
}

// writeBundle rotates fam's secret and CSRF token and writes a fresh bundle.
func (b *Backend) writeBundle(w http.ResponseWriter, id opaqueID, fam *family, acct *Account) {
	refresh, hash, err := mintOpaque(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "entropy")
		return
	}
	csrf, err := randomToken(24)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "entropy")
		return
	}

	now := b.cfg.Now()
	exp := now.Add(b.cfg.AccessTTL).Truncate(time.Second)
	access, err := b.signAccess(acct, id.String(), now, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign")
		return
	}

	b.mu.Lock()
	fam.hash = hash
	fam.csrf = csrf
	user := userRecord(acct)
	b.mu.Unlock()

	payload := flows.AuthPayload{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		CSRFToken:    csrf,
	}
	switch b.cfg.Expiry {
	case ExpiresAt:
		utc := exp.UTC()
		payload.ExpiresAt = &utc
	case ExpiresIn:
		payload.ExpiresIn = int64(b.cfg.AccessTTL / time.Second)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (b *Backend) signAccess(acct *Account, sid string, now, exp time.Time) (string, error) {
	claims := jwt.AccessClaims{
		UID:      acct.ID,
		SID:      sid,
		Username: acct.Username,
		RegisteredClaims: gjwt.RegisteredClaims{
			Issuer:    b.cfg.Issuer,
			Subject:   acct.ID,
			IssuedAt:  gjwt.NewNumericDate(now),
			ExpiresAt: gjwt.NewNumericDate(exp),
		},
	}
	return gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(b.cfg.Secret)
}

/*
====================================
SESSION
====================================
*/

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decode(w, r, &req) {
		return
	}
	id, hash, err := parseOpaque(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	b.mu.Lock()
	fam, ok := b.families[id.String()]
	if !ok || fam.revoked {
		b.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "session revoked")
		return
	}
	if !hashesEqual(fam.hash, hash) {
		// a rotated token was presented again
		fam.revoked = true
		b.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "refresh token reused")
		return
	}
	acct, ok := b.accounts[fam.email]
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "account deleted")
		return
	}
	b.writeBundle(w, id, fam, acct)
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, _, err := b.authenticate(r, true); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decode(w, r, &req) {
		return
	}
	if id, _, err := parseOpaque(req.RefreshToken); err == nil {
		b.mu.Lock()
		if fam, ok := b.families[id.String()]; ok {
			fam.revoked = true
		}
		b.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// authenticate checks the bearer token and, for mutating requests, the CSRF
// header against the token's refresh family.
func (b *Backend) authenticate(r *http.Request, mutating bool) (*Account, string, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return nil, "", errUnauthorized
	}

	claims := &jwt.AccessClaims{}
	_, err := gjwt.ParseWithClaims(raw, claims, func(*gjwt.Token) (any, error) {
		return b.cfg.Secret, nil
	},
		gjwt.WithValidMethods([]string{gjwt.SigningMethodHS256.Alg()}),
		gjwt.WithIssuer(b.cfg.Issuer),
		gjwt.WithTimeFunc(b.cfg.Now),
		gjwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, "", errUnauthorized
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	fam, ok := b.families[claims.SID]
	if !ok || fam.revoked {
		return nil, "", errUnauthorized
	}
	if mutating && r.Header.Get(CSRFHeader) != fam.csrf {
		return nil, "", errors.New("csrf token mismatch")
	}
	acct, ok := b.accounts[fam.email]
	if !ok {
		return nil, "", errUnauthorized
	}
	return acct, claims.SID, nil
}

/*
====================================
ACCOUNT
====================================
*/

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		Username        string `json:"username"`
		Password        string `json:"password"`
		PrivacyAccepted bool   `json:"privacy_accepted"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" || !req.PrivacyAccepted {
		writeError(w, http.StatusUnprocessableEntity, "incomplete registration")
		return
	}
	if _, exists := b.Account(req.Email); exists || b.accountByUsername(req.Username) != nil {
		writeError(w, http.StatusConflict, "account exists")
		return
	}
	acct := b.AddAccount(Account{Email: req.Email, Username: req.Username, Password: req.Password})
	writeJSON(w, http.StatusCreated, map[string]string{"id": acct.ID})
}

func (b *Backend) handleAcknowledgeEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}
	// accepted whether or not the address is registered
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (b *Backend) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if !decode(w, r, &req) {
		return
	}
	email, ok := b.redeem(b.resets, req.Token)
	if !ok || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "invalid reset token")
		return
	}
	encoded, err := hashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hash failed")
		return
	}

	b.mu.Lock()
	if acct, ok := b.accounts[email]; ok {
		acct.PasswordHash = encoded
	}
	b.revokeLocked(email)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (b *Backend) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &req) {
		return
	}
	email, ok := b.redeem(b.verifications, req.Token)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid verification token")
		return
	}
	b.mu.Lock()
	if acct, ok := b.accounts[email]; ok {
		acct.Verified = true
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (b *Backend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	acct, _, err := b.authenticate(r, true)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !decode(w, r, &req) {
		return
	}

	if req.NewPassword == "" || !b.passwordOK(acct, req.CurrentPassword) {
		writeError(w, http.StatusBadRequest, "current password does not match")
		return
	}
	encoded, err := hashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hash failed")
		return
	}

	b.mu.Lock()
	acct.PasswordHash = encoded
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "changed"})
}

func (b *Backend) handleExportData(w http.ResponseWriter, r *http.Request) {
	acct, _, err := b.authenticate(r, false)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	b.mu.Lock()
	user := userRecord(acct)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        user,
		"exported_at": b.cfg.Now().UTC(),
	})
}

func (b *Backend) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	acct, _, err := b.authenticate(r, true)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	if !b.passwordOK(acct, req.Password) {
		writeError(w, http.StatusBadRequest, "password does not match")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	email := strings.ToLower(acct.Email)
	delete(b.accounts, email)
	b.revokeLocked(email)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

/*
====================================
HELPERS
====================================
*/

// passwordOK checks password against acct outside the lock; hashing is slow.
func (b *Backend) passwordOK(acct *Account, password string) bool {
	b.mu.Lock()
	encoded := acct.PasswordHash
	b.mu.Unlock()
	return passwordMatches(password, encoded)
}

// redeem consumes a one-time grant token.
func (b *Backend) redeem(from map[string]grant, token string) (string, bool) {
	id, hash, err := parseOpaque(token)
	if err != nil {
		return "", false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := from[id.String()]
	if !ok || !hashesEqual(g.hash, hash) {
		return "", false
	}
	delete(from, id.String())
	return g.email, true
}

func (b *Backend) revokeLocked(email string) {
	for _, fam := range b.families {
		if fam.email == email {
			fam.revoked = true
		}
	}
}

func (b *Backend) accountByUsername(username string) *Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acct := range b.accounts {
		if strings.EqualFold(acct.Username, username) {
			return acct
		}
	}
	return nil
}

func userRecord(acct *Account) *session.User {
	return &session.User{
		ID:         acct.ID,
		Email:      acct.Email,
		Username:   acct.Username,
		IsVerified: acct.Verified,
		CreatedAt:  acct.CreatedAt,
		LastLogin:  acct.LastLogin,
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
