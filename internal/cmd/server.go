package main

import (
	"encoding/json"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/Fangzx-code/TCP-IP/internal/gateway"
	"github.com/Fangzx-code/TCP-IP/internal/room"
)

func setupHTTPServer(cfg *Config, gameRoom *room.Room, manager *gateway.Manager) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	wsHandler := gateway.NewWebSocketHandler(gameRoom, manager)
	mux.HandleFunc("/ws", wsHandler.HandleConnection)

	setupHealthCheck(mux)
	setupStats(mux, gameRoom, manager)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: c.Handler(mux),
	}
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Debug().Err(err).Msg("failed to write health check response")
		}
	})
}

func setupStats(mux *http.ServeMux, gameRoom *room.Room, manager *gateway.Manager) {
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := map[string]interface{}{
			"phase":            gameRoom.Phase().String(),
			"players":          gameRoom.Count(),
			"names":            gameRoom.Names(),
			"scores":           gameRoom.ScoresSnapshot(),
			"prizes_remaining": gameRoom.PrizesRemaining(),
			"connections":      manager.Count(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Debug().Err(err).Msg("failed to write stats response")
		}
	})
}
