// Package auth defines the external authentication handler the bridge
// delegates to, and its HTTP-backed production implementation.
//
// The handler owns the whole credential and session lifecycle: validating
// passwords, issuing session tokens, minting cookies. None of that is
// reimplemented here; the bridge only translates requests in and responses
// out.
package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"taskchat/internal/config"
	"taskchat/internal/metrics"
	"taskchat/internal/model"
)

// Handler processes authentication requests. Implementations are opaque to
// the bridge; tests substitute fakes.
type Handler interface {
	Handle(ctx context.Context, req *model.AuthRequest) (*model.AuthResponse, error)
}

// UpstreamHandler forwards auth requests to a better-auth-compatible service
// over HTTP.
type UpstreamHandler struct {
	httpClient *http.Client
	baseURL    *url.URL
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamHandler creates an UpstreamHandler with connection pooling and
// a bounded per-request timeout.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamHandler(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*UpstreamHandler, error) {
	base, err := url.Parse(cfg.Auth.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("parse auth.upstream_url: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.Auth.IdleConnections,
		MaxIdleConnsPerHost: cfg.Auth.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &UpstreamHandler{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Auth.TimeoutSeconds) * time.Second,
		},
		baseURL: base,
		logger:  logger.With("component", "auth_upstream"),
		metrics: m,
	}, nil
}

// Handle rewrites the request host to the configured auth service, forwards
// it, and returns the service's status, headers, and body untouched. The
// path and query travel through unchanged, so the auth service sees exactly
// the routes the browser requested.
func (h *UpstreamHandler) Handle(ctx context.Context, req *model.AuthRequest) (*model.AuthResponse, error) {
	target, err := h.rewriteURL(req.URL)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build auth request: %w", err)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}
	// The auth service routes on its own host.
	httpReq.Host = h.baseURL.Host

	h.logger.Debug("forwarding auth request",
		"method", req.Method,
		"path", httpReq.URL.Path,
	)

	start := time.Now()
	resp, err := h.httpClient.Do(httpReq)
	duration := time.Since(start).Seconds()

	method := metrics.NormalizeMethod(req.Method)

	if err != nil {
		if h.metrics != nil {
			h.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
		}
		return nil, fmt.Errorf("auth upstream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if h.metrics != nil {
		status := strconv.Itoa(resp.StatusCode)
		h.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
		h.metrics.UpstreamResponses.WithLabelValues(method, status).Inc()
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read auth response body: %w", err)
	}

	return &model.AuthResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       string(respBody),
	}, nil
}

// rewriteURL swaps the scheme and host of the bridged absolute URL for the
// auth service's, keeping path and query byte-for-byte.
func (h *UpstreamHandler) rewriteURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse bridged url: %w", err)
	}
	u.Scheme = h.baseURL.Scheme
	u.Host = h.baseURL.Host
	return u.String(), nil
}
