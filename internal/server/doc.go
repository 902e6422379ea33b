// Package server implements the HTTP server using Echo framework.
//
// Routes: WebSocket endpoint (per-show realtime feed), task runner API
// (list/run/enable/disable), health and metrics endpoints.
// Handlers split by concern: handlers_ws.go, handlers_tasks.go, handlers_health.go.
package server
