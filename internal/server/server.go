package server

import (
	"context"
	"net"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/cleared-dev/bankfeed/internal/config"
	"github.com/cleared-dev/bankfeed/internal/handler"
	"github.com/cleared-dev/bankfeed/internal/logger"
	"github.com/cleared-dev/bankfeed/internal/middleware"
)

type Server struct {
	echo             *echo.Echo
	cfg              config.ServerConfig
	logger           *logger.Logger
	statementHandler *handler.StatementHandler
	healthHandler    *handler.HealthHandler
}

func New(
	cfg config.ServerConfig,
	log *logger.Logger,
	statementHandler *handler.StatementHandler,
	healthHandler *handler.HealthHandler,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:             e,
		cfg:              cfg,
		logger:           log,
		statementHandler: statementHandler,
		healthHandler:    healthHandler,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Addr is the listen address built from the host and port settings.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, s.cfg.Port)
}

// Start blocks serving HTTP until Shutdown. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server",
		"address", s.Addr(),
	)
	return s.echo.Start(s.Addr())
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echoMiddleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.Logging(s.logger))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler.Check)
	s.echo.POST("/statements/parse", s.statementHandler.Parse)
}

// Handler exposes the router for httptest.
func (s *Server) Handler() *echo.Echo {
	return s.echo
}
