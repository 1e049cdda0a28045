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
	s.echo.GET("/version", s.handleVersion)

	// Read-only API
	s.echo.GET("/api/messages", s.handleRecentMessages)
	s.echo.GET("/api/stats", s.handleStats)

	// WebSocket endpoint, blocks for the session lifetime
	s.echo.GET("/ws", s.ws.HandleWebSocket)
}
