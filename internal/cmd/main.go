package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Fangzx-code/TCP-IP/internal/events"
	"github.com/Fangzx-code/TCP-IP/internal/gateway"
	"github.com/Fangzx-code/TCP-IP/internal/room"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded")
	}

	cfg, err := loadConfig(getEnv("CONFIG_FILE", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher events.Publisher = events.NewNopPublisher()
	if cfg.NATS.URL != "" {
		natsCfg := events.DefaultNATSConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		natsPublisher, err := events.NewNATSPublisher(natsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect event publisher")
		}
		publisher = natsPublisher
	}
	defer publisher.Close()

	manager := gateway.NewManager()
	gameRoom := room.NewRoom(room.Config{
		MaxPlayers:   cfg.MaxPlayers,
		GameDuration: cfg.GameDuration,
	}, manager, publisher)

	httpServer := setupHTTPServer(cfg, gameRoom, manager)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
		}
	}()

	tcpServer := gateway.NewTCPServer(cfg.ListenAddr, gameRoom, manager)
	errCh := make(chan error, 1)
	go func() {
		errCh <- tcpServer.Listen(ctx)
	}()

	log.Info().
		Int("max_players", cfg.MaxPlayers).
		Int("game_duration", cfg.GameDuration).
		Msg("waiting for players")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("game server failed")
		}
	}

	gameRoom.Shutdown()
	manager.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}

	log.Info().Msg("server stopped")
}

func setupLogging(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
