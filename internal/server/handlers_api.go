package server

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Shivam13602/Chatpulse/internal/version"
)

// handleRecentMessages returns the most recent persisted messages, newest
// first. The limit query parameter is clamped to the configured maximum.
func (s *Server) handleRecentMessages(c echo.Context) error {
	limit := s.config.MessageHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(400, map[string]string{"error": "limit must be a positive integer"})
		}
		if parsed < limit {
			limit = parsed
		}
	}

	messages, err := s.store.Recent(c.Request().Context(), limit)
	if err != nil {
		slog.Error("Failed to load recent messages", "error", err)
		return c.JSON(503, map[string]string{"error": "message history unavailable"})
	}

	if err := c.JSON(200, map[string]any{
		"messages": messages,
		"count":    len(messages),
	}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleStats(c echo.Context) error {
	if err := c.JSON(200, map[string]any{
		"connections":   s.registry.Len(),
		"peers":         s.peers.Count(),
		"store_backend": s.config.StoreBackend,
		"uptime":        s.clock.Since(s.startTime).Seconds(),
		"version":       version.Get().Version,
	}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
