package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"taskchat/internal/config"
	"taskchat/internal/middleware"
	"taskchat/internal/service"
)

// BridgeHandler serves the auth namespace: it runs the bridge procedure and
// writes the handler's response back out natively.
type BridgeHandler struct {
	service *service.Bridge
	origin  string
	logger  *slog.Logger
}

// NewBridgeHandler creates a BridgeHandler.
func NewBridgeHandler(svc *service.Bridge, cfg *config.Config, logger *slog.Logger) *BridgeHandler {
	return &BridgeHandler{
		service: svc,
		origin:  cfg.CORS.Origin,
		logger:  logger.With("component", "bridge_handler"),
	}
}

// Handle forwards the request through the bridge and writes the response.
//
// Every response header except Set-Cookie is copied through, the fixed CORS
// policy is re-applied on top (so the auth handler cannot weaken it), and
// each Set-Cookie value is emitted as its own header line. Any failure
// collapses to a 500 with a JSON error body; auth requests are never retried
// here, that is the browser's call.
func (h *BridgeHandler) Handle(c echo.Context) error {
	resp, err := h.service.Forward(c.Request())
	if err != nil {
		h.logger.Error("bridge error",
			"err", err,
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
	}

	out := c.Response().Header()
	for key, vals := range resp.Header {
		switch http.CanonicalHeaderKey(key) {
		case "Set-Cookie":
			// handled below, one line per cookie
		case "Content-Length":
			// recomputed for the body written here
		default:
			for _, v := range vals {
				out.Add(key, v)
			}
		}
	}

	middleware.SetCORSHeaders(out, h.origin)

	for _, cookie := range resp.SetCookies() {
		out.Add("Set-Cookie", cookie)
	}

	c.Response().WriteHeader(resp.StatusCode)
	if _, err := c.Response().Write([]byte(resp.Body)); err != nil {
		// Headers are already on the wire; nothing left to remediate.
		h.logger.Error("writing response body",
			"err", err,
			"path", c.Request().URL.Path,
		)
	}

	return nil
}
