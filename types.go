package authclient

import (
	"log/slog"
	"time"

	"github.com/MrEthical07/authclient/session"
)

// User is the client's read replica of the backend user record.
type User = session.User

// Profile is the progress snapshot carried by a User.
type Profile = session.Profile

// Credentials is the bundle issued by the backend. It is always replaced as a
// unit. String and LogValue redact the tokens.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	CSRFToken    string
	// ExpiresAt is the access token expiry reported by the backend. Zero
	// means unknown.
	ExpiresAt time.Time
}

// Complete reports whether all three tokens are present.
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != "" && c.CSRFToken != ""
}

// Empty reports whether no token is present.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == "" && c.CSRFToken == ""
}

func (c Credentials) String() string {
	if c.Empty() {
		return "Credentials{}"
	}
	return "Credentials{REDACTED}"
}

// LogValue implements slog.LogValuer.
func (c Credentials) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Bool("access", c.AccessToken != ""),
		slog.Bool("refresh", c.RefreshToken != ""),
		slog.Bool("csrf", c.CSRFToken != ""),
	}
	if !c.ExpiresAt.IsZero() {
		attrs = append(attrs, slog.Time("expires_at", c.ExpiresAt))
	}
	return slog.GroupValue(attrs...)
}

// State is a copy of the client session. Derived flags are computed by the
// Manager on every transition.
type State struct {
	User            *User
	Credentials     Credentials
	IsAuthenticated bool
	IsAdmin         bool
	IsLoading       bool
	Error           string
}

// LoginRequest is the input of Manager.Login.
type LoginRequest struct {
	Email    string
	Password string
	// Remember is forwarded to the backend as remember_me. It does not change
	// local persistence.
	Remember bool
}

// AdminLoginRequest is the input of Manager.AdminLogin.
type AdminLoginRequest struct {
	Username string
	Password string
}

// RegisterRequest is the input of Manager.Register.
type RegisterRequest struct {
	Email           string
	Username        string
	Password        string
	PrivacyAccepted bool
}

// ResetPasswordRequest is the input of Manager.ResetPassword.
type ResetPasswordRequest struct {
	Token       string
	NewPassword string
}

// ChangePasswordRequest is the input of Manager.ChangePassword.
type ChangePasswordRequest struct {
	CurrentPassword string
	NewPassword     string
}
