package authclient

import (
	"context"
	"net/http"
	"testing"

	"github.com/MrEthical07/authclient/internal/fakebackend"
)

func newBenchmarkHarness(b *testing.B) *harness {
	b.Helper()
	h := newHarness(b, withConfig(func(c *Config) {
		c.Audit.Enabled = false
		c.Metrics.EnableLatencyHistograms = true
	}))
	if err := h.manager.Login(context.Background(), LoginRequest{Email: testEmail, Password: testPassword}); err != nil {
		b.Fatalf("login failed: %v", err)
	}
	return h
}

func BenchmarkState(b *testing.B) {
	h := newBenchmarkHarness(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !h.manager.State().IsAuthenticated {
			b.Fatal("session lost")
		}
	}
}

func BenchmarkGatewayDo(b *testing.B) {
	h := newBenchmarkHarness(b)
	gw := h.manager.Gateway()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := gw.Do(ctx, Request{Method: http.MethodGet, Path: fakebackend.PathExportData}); err != nil {
			b.Fatalf("request failed: %v", err)
		}
	}
}

func BenchmarkRefreshTokens(b *testing.B) {
	h := newBenchmarkHarness(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := h.manager.RefreshTokens(ctx); err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
	}
}

func BenchmarkRefreshTokensParallel(b *testing.B) {
	h := newBenchmarkHarness(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if err := h.manager.RefreshTokens(ctx); err != nil {
				b.Errorf("refresh failed: %v", err)
				return
			}
		}
	})
}
