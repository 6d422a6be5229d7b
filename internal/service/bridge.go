// Package service implements the request/response translation at the heart
// of the auth bridge.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"taskchat/internal/auth"
	"taskchat/internal/config"
	"taskchat/internal/model"
)

// Bridge converts native HTTP requests into fetch-style AuthRequests,
// invokes the external auth handler, and hands back its response.
type Bridge struct {
	handler auth.Handler
	logger  *slog.Logger
	timeout time.Duration
}

// NewBridge creates a Bridge around the given auth handler.
func NewBridge(h auth.Handler, cfg *config.Config, logger *slog.Logger) *Bridge {
	return &Bridge{
		handler: h,
		logger:  logger.With("component", "bridge"),
		timeout: time.Duration(cfg.Auth.TimeoutSeconds) * time.Second,
	}
}

// Forward translates the native request and invokes the auth handler.
// The handler call is bounded by the configured timeout; the caller maps
// any returned error to a generic 500.
func (b *Bridge) Forward(req *http.Request) (*model.AuthResponse, error) {
	ar, err := b.translate(req)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("bridging auth request",
		"method", ar.Method,
		"url", ar.URL,
	)

	ctx := req.Context()
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	resp, err := b.handler.Handle(ctx, ar)
	if err != nil {
		return nil, fmt.Errorf("auth handler: %w", err)
	}
	return resp, nil
}

// translate builds the fetch-style request from the native one:
// an absolute URL resolved against the listener's own host, a single-valued
// header map (first value wins for repeated inbound names), and a fully
// buffered body. GET and HEAD requests never carry a body.
func (b *Bridge) translate(req *http.Request) (*model.AuthRequest, error) {
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	// RequestURI keeps the original path and query untouched; URL.Path would
	// have been decoded.
	target := scheme + "://" + req.Host + req.RequestURI

	header := make(map[string]string, len(req.Header))
	for name, vals := range req.Header {
		if len(vals) > 0 {
			header[name] = vals[0]
		}
	}

	var body []byte
	if req.Method != http.MethodGet && req.Method != http.MethodHead && req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
	}

	return &model.AuthRequest{
		Method: req.Method,
		URL:    target,
		Header: header,
		Body:   body,
	}, nil
}
