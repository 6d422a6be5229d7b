package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// allowMethods and allowHeaders are fixed: the bridge serves exactly one
// frontend and does not negotiate per-request.
const (
	allowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders = "Content-Type, Authorization"
)

// SetCORSHeaders applies the bridge's fixed CORS policy to the given header
// set, overwriting anything already there. Handlers that copy upstream
// headers call this again afterwards so the bridge policy always wins.
func SetCORSHeaders(h http.Header, origin string) {
	h.Set(echo.HeaderAccessControlAllowOrigin, origin)
	h.Set(echo.HeaderAccessControlAllowMethods, allowMethods)
	h.Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)
	h.Set(echo.HeaderAccessControlAllowCredentials, "true")
}

// CORS returns an Echo middleware that attaches the fixed CORS headers to
// every response, errors included, and answers any OPTIONS preflight with
// 204 regardless of path.
func CORS(origin string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			SetCORSHeaders(c.Response().Header(), origin)

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}
