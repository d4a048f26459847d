// Package logattr builds slog attributes for the client's structured logs.
//
// Helpers return an empty slog.Attr for zero inputs, which slog handlers
// drop, so callers can pass them unconditionally:
//
//	log.Warn("refresh failed", logattr.Error(err), logattr.RequestID(id))
package logattr

import (
	"log/slog"
	"time"
)

// Error returns the "error" attribute, or an empty Attr for a nil error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component names the subsystem emitting the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Operation names the session operation in progress.
func Operation(name string) slog.Attr {
	return slog.String("op", name)
}

func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

func Method(method string) slog.Attr {
	return slog.String("method", method)
}

func Path(path string) slog.Attr {
	return slog.String("path", path)
}

func StatusCode(code int) slog.Attr {
	if code == 0 {
		return slog.Attr{}
	}
	return slog.Int("status", code)
}

func Latency(d time.Duration) slog.Attr {
	return slog.Duration("latency", d)
}

// Username identifies the session owner. Tokens are never logged.
func Username(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("username", name)
}

// Deadline records when a scheduled action will fire.
func Deadline(t time.Time) slog.Attr {
	if t.IsZero() {
		return slog.Attr{}
	}
	return slog.Time("deadline", t)
}

// Reason explains a state transition such as a forced termination.
func Reason(reason string) slog.Attr {
	if reason == "" {
		return slog.Attr{}
	}
	return slog.String("reason", reason)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
