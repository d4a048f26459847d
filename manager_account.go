package authclient

import (
	"context"
	"net/http"

	"github.com/MrEthical07/authclient/internal/logattr"
)

type emailBody struct {
	Email string `json:"email"`
}

type tokenBody struct {
	Token string `json:"token"`
}

type resetPasswordBody struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordBody struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type passwordBody struct {
	Password string `json:"password"`
}

// ForgotPassword asks the backend to e-mail a password reset link. Requests
// are throttled locally and fail with ErrRateLimited without a network call.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if !m.throttle.Allow(throttleForgotPassword) {
		m.metrics.Inc(MetricThrottled)
		return ErrRateLimited
	}

	_, err := m.call(ctx, Request{
		Method:    http.MethodPost,
		Path:      pathForgotPassword,
		Body:      emailBody{Email: email},
		Anonymous: true,
	})
	m.emitAudit(ctx, AuditPasswordResetAsked, err == nil, nil, err, nil)
	return err
}

// ResetPassword sets a new password using a one-time reset token.
func (m *Manager) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if err := req.validate(); err != nil {
		return err
	}

	_, err := m.call(ctx, Request{
		Method:    http.MethodPost,
		Path:      pathResetPassword,
		Body:      resetPasswordBody{Token: req.Token, NewPassword: req.NewPassword},
		Anonymous: true,
	})
	m.emitAudit(ctx, AuditPasswordReset, err == nil, nil, err, nil)
	return err
}

// ChangePassword changes the password of the signed-in user. It fails with
// ErrNotAuthenticated, without a request, when no credentials are held.
func (m *Manager) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if !m.Credentials().Complete() {
		return ErrNotAuthenticated
	}
	if err := req.validate(); err != nil {
		return err
	}

	_, err := m.call(ctx, Request{
		Method: http.MethodPost,
		Path:   pathChangePassword,
		Body:   changePasswordBody{CurrentPassword: req.CurrentPassword, NewPassword: req.NewPassword},
	})
	m.emitAudit(ctx, AuditPasswordChange, err == nil, m.currentUser(), err, nil)
	return err
}

// VerifyEmail confirms an e-mail address with a one-time token. A signed-in
// user record is marked verified on success.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if err := validateToken("token", token); err != nil {
		return err
	}

	_, err := m.call(ctx, Request{
		Method:    http.MethodPost,
		Path:      pathVerifyEmail,
		Body:      tokenBody{Token: token},
		Anonymous: true,
	})
	m.emitAudit(ctx, AuditEmailVerified, err == nil, nil, err, nil)
	if err != nil {
		return err
	}

	if user := m.currentUser(); user != nil && !user.IsVerified {
		user.IsVerified = true
		if err := m.SetUser(ctx, user); err != nil {
			m.log.DebugContext(ctx, "verified flag not applied", logattr.Error(err))
		}
	}
	return nil
}

// ResendVerification asks the backend to send a new verification e-mail.
// Requests are throttled locally like ForgotPassword.
func (m *Manager) ResendVerification(ctx context.Context, email string) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if !m.throttle.Allow(throttleResendVerification) {
		m.metrics.Inc(MetricThrottled)
		return ErrRateLimited
	}

	_, err := m.call(ctx, Request{
		Method:    http.MethodPost,
		Path:      pathResendVerification,
		Body:      emailBody{Email: email},
		Anonymous: true,
	})
	m.emitAudit(ctx, AuditVerificationResent, err == nil, nil, err, nil)
	return err
}

// ExportData downloads the signed-in user's data export. It fails with
// ErrNotAuthenticated, without a request, when no credentials are held.
func (m *Manager) ExportData(ctx context.Context) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	if !m.Credentials().Complete() {
		return nil, ErrNotAuthenticated
	}

	resp, err := m.call(ctx, Request{
		Method: http.MethodGet,
		Path:   pathExportData,
	})
	m.emitAudit(ctx, AuditDataExported, err == nil, m.currentUser(), err, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// DeleteAccount deletes the signed-in user's account and, on success,
// terminates the session. It fails with ErrNotAuthenticated, without a
// request, when no credentials are held.
func (m *Manager) DeleteAccount(ctx context.Context, password string) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if !m.Credentials().Complete() {
		return ErrNotAuthenticated
	}
	if err := validateSecret("password", password); err != nil {
		return err
	}
	done := m.track()
	defer done()

	user := m.currentUser()
	_, err := m.call(ctx, Request{
		Method: http.MethodDelete,
		Path:   pathDeleteAccount,
		Body:   passwordBody{Password: password},
	})
	m.emitAudit(ctx, AuditAccountDeleted, err == nil, user, err, nil)
	if err != nil {
		return err
	}

	m.reset(ctx, 0, false, "")
	m.log.InfoContext(ctx, "account deleted, session terminated")
	return nil
}
