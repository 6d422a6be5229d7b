package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"taskchat/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	db      *sql.DB
	version Version
}

// NewHealthHandler creates a HealthHandler. The db pool is the explicitly
// owned session-store handle; pass nil to skip the readiness ping.
func NewHealthHandler(cfg *config.Config, db *sql.DB, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, db: db, version: v}
}

// Health returns a simple OK response for liveness probes. It never touches
// the auth handler or the database.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status reports bridge status including session-store reachability.
func (h *HealthHandler) Status(c echo.Context) error {
	dbStatus := "disabled"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			dbStatus = "unreachable"
		} else {
			dbStatus = "ok"
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":        "ok",
		"version":       string(h.version),
		"auth_upstream": h.cfg.Auth.UpstreamURL,
		"database":      dbStatus,
	})
}
