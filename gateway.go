package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/authclient/internal/logattr"
)

const maxResponseBytes = 32 << 20

// Request is one call to the authentication backend.
type Request struct {
	Method string
	// Path is resolved against Backend.BaseURL.
	Path  string
	Query url.Values
	// Body is encoded as JSON when non-nil.
	Body   any
	Header http.Header
	// Anonymous requests carry no credentials and never terminate the
	// session. Login, registration and one-time-token endpoints use it.
	Anonymous bool
}

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrServer, err)
	}
	return nil
}

// credentialSource is the Gateway's read-only view of the session.
type credentialSource interface {
	// requestCredentials returns the current bundle and the generation it
	// belongs to.
	requestCredentials() (Credentials, uint64)
	// ForceTerminate ends the session if generation is still current.
	ForceTerminate(ctx context.Context, generation uint64, reason string) bool
}

// Gateway sends requests to the backend with the session's credentials
// attached. On 401 or 403 for a credentialed request it terminates the
// session and returns ErrSessionExpired; it never retries.
type Gateway struct {
	client  *http.Client
	baseURL *url.URL
	cfg     BackendConfig
	source  credentialSource
	metrics *Metrics
	log     *slog.Logger
}

func newGateway(cfg BackendConfig, client *http.Client, source credentialSource, metrics *Metrics, log *slog.Logger) (*Gateway, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Gateway{
		client:  client,
		baseURL: base,
		cfg:     cfg,
		source:  source,
		metrics: metrics,
		log:     log.With(logattr.Component("gateway")),
	}, nil
}

// Do sends req. A non-nil error is ErrNetwork (no response), ErrSessionExpired
// (credentials rejected; the session is already terminated) or a request
// construction error. Every other response is returned unmodified.
func (g *Gateway) Do(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	target, err := g.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if g.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", g.cfg.UserAgent)
	}
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set(g.cfg.RequestIDHeader, requestID)

	var generation uint64
	credentialed := false
	if !req.Anonymous && g.source != nil {
		var creds Credentials
		creds, generation = g.source.requestCredentials()
		if creds.AccessToken != "" {
			httpReq.Header.Set(g.cfg.AuthHeader, "Bearer "+creds.AccessToken)
			credentialed = true
		}
		if creds.CSRFToken != "" && mutating(method) {
			httpReq.Header.Set(g.cfg.CSRFHeader, creds.CSRFToken)
			credentialed = true
		}
	}

	g.metrics.Inc(MetricRequest)
	start := time.Now()
	httpResp, err := g.client.Do(httpReq)
	g.metrics.Observe(MetricRequestLatency, time.Since(start))
	if err != nil {
		g.metrics.Inc(MetricRequestNetworkError)
		g.log.WarnContext(ctx, "backend unreachable",
			logattr.Method(method), logattr.Path(req.Path), logattr.RequestID(requestID), logattr.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		g.metrics.Inc(MetricRequestNetworkError)
		return nil, fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	g.log.DebugContext(ctx, "backend response",
		logattr.Method(method), logattr.Path(req.Path), logattr.StatusCode(httpResp.StatusCode),
		logattr.RequestID(requestID), logattr.Latency(time.Since(start)))

	if credentialed && (httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden) {
		reason := "unauthorized"
		if httpResp.StatusCode == http.StatusForbidden {
			reason = "forbidden"
		}
		g.source.ForceTerminate(ctx, generation, reason)
		return nil, &APIError{Status: httpResp.StatusCode, Kind: ErrSessionExpired}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

func (g *Gateway) resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("parse request path: %w", err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", errors.New("request path must be relative to the backend")
	}
	u := g.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		q := u.Query()
		for k, values := range query {
			for _, v := range values {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// mutating reports whether method changes server state and so carries the
// CSRF token.
func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
