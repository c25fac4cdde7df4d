// Command realtimed runs the realtime messaging and presence service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/drivelink/realtime/config"
	"github.com/drivelink/realtime/server"
	"github.com/drivelink/realtime/src/auth"
	"github.com/drivelink/realtime/src/dispatch"
	"github.com/drivelink/realtime/src/ingress"
	"github.com/drivelink/realtime/src/presence"
	"github.com/drivelink/realtime/src/registry"
	"github.com/drivelink/realtime/src/service"
	"github.com/drivelink/realtime/src/session"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := config.FromEnv()

	reg := registry.New(logger)
	dispatcher := dispatch.New(reg, logger)
	tracker := presence.NewTracker(dispatcher, logger)
	svc := service.New(reg, dispatcher, tracker, logger)

	verifier := auth.NewVerifier(cfg.Secret)
	sessions := session.NewHandler(
		verifier,
		reg,
		tracker,
		time.Duration(cfg.PingInterval)*time.Second,
		logger,
	)

	// The Redis ingress is optional: without it the collaborator API is
	// reachable over HTTP only.
	redisIngress := ingress.NewRedisIngress(ingress.RedisConfigFromEnv(), svc, logger)
	if err := redisIngress.Start(); err != nil {
		logger.Warn().Err(err).Msg("redis ingress unavailable, running HTTP-only")
		if stopErr := redisIngress.Stop(); stopErr != nil {
			logger.Warn().Err(stopErr).Msg("redis ingress cleanup failed")
		}
		redisIngress = nil
	}

	srv := server.New(cfg, svc, sessions, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if redisIngress != nil && redisIngress.Available() {
		if err := redisIngress.Stop(); err != nil {
			logger.Error().Err(err).Msg("redis ingress stop failed")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
}
