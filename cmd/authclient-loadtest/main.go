package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/internal/fakebackend"
	"github.com/MrEthical07/authclient/session"
)

const (
	loadEmail    = "load@example.com"
	loadPassword = "load-test-password"
)

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "authenticated requests in the gateway phase")
		refreshes   = flag.Int("refreshes", 2000, "refresh calls in the refresh phase")
		delay       = flag.Duration("refresh-delay", 2*time.Millisecond, "simulated backend latency of /auth/refresh")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "acs-load", "session key prefix")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *refreshes <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency, ops, and refreshes must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	client, cleanup, err := redisClient(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	backend := fakebackend.New(fakebackend.Config{})
	backend.AddAccount(fakebackend.Account{Email: loadEmail, Username: "load", Password: loadPassword})
	backend.SetDelay(fakebackend.PathRefresh, *delay)
	server := httptest.NewServer(backend)
	defer server.Close()

	cfg := authclient.DefaultConfig()
	cfg.Backend.BaseURL = server.URL
	cfg.Refresh.Enabled = false

	transport := &http.Transport{MaxIdleConnsPerHost: *concurrency}
	m, err := authclient.New().
		WithConfig(cfg).
		WithStore(session.NewRedisStore(client, *prefix, "loadtest", time.Hour)).
		WithHTTPClient(&http.Client{Transport: transport, Timeout: 10 * time.Second}).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		BuildContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build manager: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()

	if err := m.Login(ctx, authclient.LoginRequest{Email: loadEmail, Password: loadPassword}); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	gatewayStats := runPhase(*ops, *concurrency, func() error {
		_, err := m.Gateway().Do(ctx, authclient.Request{Method: http.MethodGet, Path: fakebackend.PathExportData})
		return err
	})
	refreshStats := runPhase(*refreshes, *concurrency, func() error {
		return m.RefreshTokens(ctx)
	})

	snapshot := m.MetricsSnapshot()
	fmt.Println("---- results ----")
	printStats("gateway", gatewayStats)
	printStats("refresh", refreshStats)
	fmt.Printf("refresh exchanges=%d coalesced=%d backend calls=%d\n",
		snapshot.Counters[authclient.MetricRefreshSuccess],
		snapshot.Counters[authclient.MetricRefreshCoalesced],
		backend.Calls(fakebackend.PathRefresh),
	)
	fmt.Printf("authenticated=%t\n", m.State().IsAuthenticated)
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// runPhase calls op ops times from concurrency workers.
func runPhase(ops, concurrency int, op func() error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				err := op()
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
