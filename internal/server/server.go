package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Shivam13602/Chatpulse/internal/config"
	"github.com/Shivam13602/Chatpulse/internal/domain"
	"github.com/Shivam13602/Chatpulse/internal/gateway"
)

// connectionCounter exposes live connection counts for the stats endpoint.
type connectionCounter interface {
	Len() int
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	ws        *gateway.Handler
	store     domain.MessageStore
	registry  connectionCounter
	peers     *gateway.Peers
	clock     clockwork.Clock
	startTime time.Time
}

func NewServer(cfg *config.Config, ws *gateway.Handler, store domain.MessageStore, reg connectionCounter, peers *gateway.Peers, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		config:    cfg,
		ws:        ws,
		store:     store,
		registry:  reg,
		peers:     peers,
		clock:     clock,
		startTime: clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
