// Package server wires the HTTP surface: the WebSocket endpoint for client
// sessions and a small Fiber API for health, introspection and collaborator
// notifications.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/drivelink/realtime/config"
	"github.com/drivelink/realtime/src/service"
	"github.com/drivelink/realtime/src/session"
)

// Server hosts the realtime endpoints on one fasthttp listener.
type Server struct {
	cfg      *config.Config
	app      *fiber.App
	srv      *fasthttp.Server
	svc      *service.Service
	sessions *session.Handler
	logger   zerolog.Logger
}

// New assembles the server. The WebSocket upgrade runs as a raw fasthttp
// handler because Fiber v3 does not expose *fasthttp.RequestCtx; every
// other route goes through the Fiber app.
func New(cfg *config.Config, svc *service.Service, sessions *session.Handler, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		sessions: sessions,
		logger:   logger.With().Str("component", "server").Logger(),
	}

	s.app = fiber.New()
	s.registerRoutes(s.app)

	wsHandler := s.wsHandler()
	appHandler := s.app.Handler()
	s.srv = &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Path()) == "/ws/chat" {
				wsHandler(ctx)
				return
			}
			appHandler(ctx)
		},
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
	}
	return s
}

// Start blocks serving until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.cfg.Addr).Msg("realtime server starting")
	return s.srv.ListenAndServe(s.cfg.Addr)
}

// Shutdown stops accepting connections and drains in-flight requests.
// Open WebSocket sessions are torn down by their own read loops when the
// listener closes.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("realtime server shutting down")
	return s.srv.ShutdownWithContext(ctx)
}

func (s *Server) staleAge() time.Duration {
	return 2 * time.Duration(s.cfg.PingInterval) * time.Second
}
