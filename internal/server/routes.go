package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Realtime feed (WebSocket, no auth at upgrade; clients authenticate in-band)
	s.echo.GET("/ws/:show_id", s.handleWebSocket)
	s.echo.GET("/api/realtime/status", s.handleRealtimeStatus)

	// Task runner API
	s.echo.GET("/api/tasks", s.handleListTasks)
	s.echo.GET("/api/tasks/results", s.handleTaskResults)
	s.echo.POST("/api/tasks/:id/run", s.handleRunTask)
	s.echo.POST("/api/tasks/:id/enable", s.handleEnableTask)
	s.echo.POST("/api/tasks/:id/disable", s.handleDisableTask)
}
