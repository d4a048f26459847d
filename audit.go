package authclient

import (
	"io"

	"github.com/MrEthical07/authclient/internal/audit"
)

// AuditEvent is one session lifecycle record. Events never carry tokens.
type AuditEvent = audit.Event

// AuditSink receives audit events from the Manager's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink delivers audit events on a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// Audit event types.
const (
	AuditLoginSuccess       = "login_success"
	AuditLoginFailure       = "login_failure"
	AuditAdminLoginSuccess  = "admin_login_success"
	AuditAdminLoginFailure  = "admin_login_failure"
	AuditRegister           = "register"
	AuditLogout             = "logout"
	AuditRefreshSuccess     = "refresh_success"
	AuditRefreshFailure     = "refresh_failure"
	AuditForcedTermination  = "forced_termination"
	AuditSessionHydrated    = "session_hydrated"
	AuditSessionDiscarded   = "session_discarded"
	AuditPasswordChange     = "password_change"
	AuditPasswordReset      = "password_reset"
	AuditPasswordResetAsked = "password_reset_request"
	AuditEmailVerified      = "email_verified"
	AuditVerificationResent = "verification_resent"
	AuditDataExported       = "data_exported"
	AuditAccountDeleted     = "account_deleted"
)
