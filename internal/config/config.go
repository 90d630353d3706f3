// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"uno-dealer/internal/game"
)

// Config holds the service-level settings read from the environment.
type Config struct {
	Addr string
	Game game.Config
}

// Load reads the environment into a Config, applying table defaults for
// anything unset.
func Load() Config {
	cfg := Config{
		Addr: ":8080",
		Game: game.DefaultConfig(),
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}

	cfg.Game.TurnTimeout = envDuration("TURN_TIMEOUT", cfg.Game.TurnTimeout)
	cfg.Game.WindowTimeout = envDuration("WINDOW_TIMEOUT", cfg.Game.WindowTimeout)
	cfg.Game.TotalTurn = envInt("TOTAL_TURN", cfg.Game.TotalTurn)
	cfg.Game.HandCap = envInt("HAND_CAP", cfg.Game.HandCap)
	cfg.Game.PenaltyCount = envInt("PENALTY_COUNT", cfg.Game.PenaltyCount)
	cfg.Game.NoPlayReshuffle = envInt("NO_PLAY_RESHUFFLE", cfg.Game.NoPlayReshuffle)
	cfg.Game.DrawChainStacks = envBool("DRAW_CHAIN_STACKS", cfg.Game.DrawChainStacks)
	if v := os.Getenv("WHITE_WILD_VARIANT"); v != "" {
		cfg.Game.WhiteWild = game.WhiteWildVariant(v)
	}
	return cfg
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return v
}
