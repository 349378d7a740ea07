package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/partyhub/relay/internal/relay"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg("no .env file found, using environment variables")
	}

	cfg := relay.NewConfigFromEnv()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	hub := relay.NewHub(cfg, relay.AllowAllJoins(), logger)
	mux := relay.SetupRoutes(hub, logger)
	server := relay.CreateServer(hub.Config().Port, mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- relay.StartServer(server, logger)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server failed")
		}
		return
	}

	if err := relay.ShutdownServer(server, shutdownTimeout, logger); err != nil {
		logger.Warn().Err(err).Msg("forced HTTP shutdown")
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		logger.Warn().Err(err).Msg("hub shutdown incomplete")
	}
}
