package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds everything tunable about the server. Values come from an
// optional YAML file first, then environment variables override.
type Config struct {
	ListenAddr   string `yaml:"listen_addr"`   // TCP game port
	HTTPAddr     string `yaml:"http_addr"`     // WebSocket, health and stats
	MaxPlayers   int    `yaml:"max_players"`   // room capacity
	GameDuration int    `yaml:"game_duration"` // round length in seconds
	LogLevel     string `yaml:"log_level"`

	NATS struct {
		URL           string `yaml:"url"` // empty disables event publishing
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
}

func defaultConfig() Config {
	cfg := Config{
		ListenAddr:   ":65432",
		HTTPAddr:     ":8080",
		MaxPlayers:   2,
		GameDuration: 60,
		LogLevel:     "info",
	}
	cfg.NATS.SubjectPrefix = "arcade.events"
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.MaxPlayers = getEnvAsInt("MAX_PLAYERS", cfg.MaxPlayers)
	cfg.GameDuration = getEnvAsInt("GAME_DURATION", cfg.GameDuration)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	cfg.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", cfg.NATS.SubjectPrefix)

	return &cfg, nil
}
