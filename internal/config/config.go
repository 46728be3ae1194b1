// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/hexworld/internal/pathfind"
	"github.com/talgya/hexworld/internal/world"
)

// ErrInvalid wraps every validation failure from Load.
var ErrInvalid = errors.New("invalid configuration")

// Config holds everything cmd/hexworld needs to start.
type Config struct {
	DBPath   string
	Port     int
	AdminKey string // Bearer token for mutating endpoints. Empty = mutations disabled.

	Grid world.GenConfig

	Metric   string // "straight" (default, offset space), "cube" or "hex"
	Weighted bool   // Use tile movement cost as step cost

	TickInterval time.Duration
	LogLevel     slog.Level
}

// Load reads HEXWORLD_* variables, falling back to defaults.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Config{
		DBPath:   envOrDefault(getenv, "HEXWORLD_DB_PATH", "data/hexworld.db"),
		AdminKey: getenv("HEXWORLD_ADMIN_KEY"),
		Grid:     world.DefaultGenConfig(),
		Metric:   envOrDefault(getenv, "HEXWORLD_METRIC", "straight"),
	}

	var err error
	if cfg.Port, err = envIntOrDefault(getenv, "HEXWORLD_PORT", 8080); err != nil {
		return cfg, err
	}
	if cfg.Grid.Cols, err = envIntOrDefault(getenv, "HEXWORLD_GRID_COLS", cfg.Grid.Cols); err != nil {
		return cfg, err
	}
	if cfg.Grid.Rows, err = envIntOrDefault(getenv, "HEXWORLD_GRID_ROWS", cfg.Grid.Rows); err != nil {
		return cfg, err
	}
	seed, err := envIntOrDefault(getenv, "HEXWORLD_SEED", 42)
	if err != nil {
		return cfg, err
	}
	cfg.Grid.Seed = int64(seed)

	if cfg.Grid.Layout, err = world.ParseLayout(getenv("HEXWORLD_LAYOUT")); err != nil {
		return cfg, fmt.Errorf("%w: HEXWORLD_LAYOUT: %v", ErrInvalid, err)
	}

	if v := getenv("HEXWORLD_WEIGHTED"); v != "" {
		if cfg.Weighted, err = strconv.ParseBool(v); err != nil {
			return cfg, fmt.Errorf("%w: HEXWORLD_WEIGHTED: %v", ErrInvalid, err)
		}
	}

	tickMS, err := envIntOrDefault(getenv, "HEXWORLD_TICK_MS", 500)
	if err != nil {
		return cfg, err
	}
	cfg.TickInterval = time.Duration(tickMS) * time.Millisecond

	if v := getenv("HEXWORLD_LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("%w: HEXWORLD_LOG_LEVEL: %v", ErrInvalid, err)
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	case c.Grid.Cols <= 0 || c.Grid.Rows <= 0:
		return fmt.Errorf("%w: grid %dx%d must be positive", ErrInvalid, c.Grid.Cols, c.Grid.Rows)
	case c.TickInterval <= 0:
		return fmt.Errorf("%w: tick interval must be positive", ErrInvalid)
	}
	if _, err := c.metric(); err != nil {
		return err
	}
	return nil
}

// PathOptions translates the path settings for pathfind.NewFinder.
func (c Config) PathOptions() pathfind.Options {
	m, _ := c.metric()
	return pathfind.Options{Metric: m, Layout: c.Grid.Layout, WeightByMovementCost: c.Weighted}
}

func (c Config) metric() (pathfind.Metric, error) {
	switch strings.ToLower(c.Metric) {
	case "", "straight":
		return c.Grid.Layout.StraightLine, nil
	case "cube":
		return world.CubeStraightLine, nil
	case "hex":
		return world.Distance, nil
	}
	return nil, fmt.Errorf("%w: unknown metric %q", ErrInvalid, c.Metric)
}

func envOrDefault(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return n, nil
}
