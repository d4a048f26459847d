package authclient

import (
	"context"
	"errors"
	"time"
)

// AuditErrorCode is the error class recorded on a failed audit event.
type AuditErrorCode string

const (
	auditErrValidation         AuditErrorCode = "validation"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrNotAuthenticated   AuditErrorCode = "not_authenticated"
	auditErrNetwork            AuditErrorCode = "network"
	auditErrConflict           AuditErrorCode = "conflict"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrServer             AuditErrorCode = "server"
)

func (m *Manager) emitAudit(ctx context.Context, eventType string, success bool, user *User, err error, metadata map[string]string) {
	if m == nil || m.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		RequestID: RequestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if user != nil {
		event.UserID = user.ID
		event.Username = user.Username
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrNotAuthenticated):
		return auditErrNotAuthenticated
	case errors.Is(err, ErrNetwork):
		return auditErrNetwork
	case errors.Is(err, ErrConflict):
		return auditErrConflict
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	default:
		return auditErrServer
	}
}
