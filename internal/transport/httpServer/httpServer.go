package httpServer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"eventsHarvester/internal/config"
	"eventsHarvester/internal/transport/httpServer/routers"

	"github.com/go-chi/chi/v5"
)

type HttpServer struct {
	logger *slog.Logger
	cfg    *config.Config
	server *http.Server
}

func NewHttpServer(logger *slog.Logger, cfg *config.Config, router *routers.Router) *HttpServer {
	op := "httpServer.NewHttpServer()"
	log := logger.With(slog.String("op", op))

	mux := chi.NewRouter()
	router.Mount(mux)

	addr := net.JoinHostPort(cfg.HttpServer.Address, cfg.HttpServer.Port)
	log.Info("Creating http server", slog.String("address", addr))

	return &HttpServer{
		logger: logger,
		cfg:    cfg,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  cfg.HttpServer.Timeout,
			WriteTimeout: cfg.HttpServer.Timeout,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Listen blocks serving HTTP until Shutdown.
func (s *HttpServer) Listen() error {
	op := "HttpServer.Listen()"
	log := s.logger.With(slog.String("op", op))

	log.Info("http server started", slog.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *HttpServer) Shutdown(ctx context.Context) error {
	op := "HttpServer.Shutdown()"

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
