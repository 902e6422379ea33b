package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": s.startTime.uptimeSeconds(),
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"postgres", s.checkPostgres},
		{"redis", s.checkRedis},
	}

	for _, check := range checks {
		if err := check.fn(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":       "unhealthy",
				"failed_check": check.name,
				"error":        err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) checkPostgres(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Server) checkRedis(ctx context.Context) error {
	return s.redisClient.Ping(ctx).Err()
}

// handleRealtimeStatus reports the live connection population and per-show
// viewer counts alongside the connection limiter state.
func (s *Server) handleRealtimeStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"total_connections":         s.registry.ConnectionCount(),
		"authenticated_connections": s.registry.AuthenticatedCount(),
		"show_viewer_counts":        s.registry.ViewerCounts(),
		"capacity": map[string]any{
			"current":    s.limits.Global().Current(),
			"max":        s.limits.Global().Max(),
			"unique_ips": s.limits.PerIP().UniqueIPs(),
		},
	})
}
