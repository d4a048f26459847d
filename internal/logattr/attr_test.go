package logattr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmptyAttrsAreDropped(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	log.Info("msg",
		Error(nil),
		RequestID(""),
		StatusCode(0),
		Username(""),
		Deadline(time.Time{}),
		Reason(""),
	)

	out := buf.String()
	for _, key := range []string{"error=", "request_id=", "status=", "username=", "deadline=", "reason="} {
		assert.NotContains(t, out, key)
	}
}

func TestAttrsRendered(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	log.Info("msg", Error(errors.New("boom")), Component("gateway"), StatusCode(401), Reason("unauthorized"))

	out := buf.String()
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "component=gateway")
	assert.Contains(t, out, "status=401")
	assert.Contains(t, out, "reason=unauthorized")
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}
