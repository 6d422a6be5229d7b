package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// NewErrorHandler maps errors reaching Echo's central handler to the bridge's
// JSON error bodies. Unknown routes (and unregistered methods on known
// routes) collapse to 404; everything unexpected collapses to a generic 500.
// CORS headers are already on the response by the time this runs.
func NewErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		body := map[string]string{"error": "Internal server error"}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			switch he.Code {
			case http.StatusNotFound, http.StatusMethodNotAllowed:
				code = http.StatusNotFound
				body["error"] = "Not found"
			default:
				code = he.Code
				if msg, ok := he.Message.(string); ok {
					body["error"] = msg
				} else {
					body["error"] = http.StatusText(he.Code)
				}
			}
		} else {
			logger.Error("unhandled error",
				"err", err,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}
