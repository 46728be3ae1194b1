// Command hexworld serves a hex-grid world: it loads or generates the tile
// registry, moves routed units on a tick loop and exposes the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexworld/internal/api"
	"github.com/talgya/hexworld/internal/config"
	"github.com/talgya/hexworld/internal/engine"
	"github.com/talgya/hexworld/internal/persistence"
	"github.com/talgya/hexworld/internal/world"
)

const (
	seedUnits     = 12
	seedBuildings = 6
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		slog.Error("failed to create data dir", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Registry: load or generate ───────────────────────────────────
	reg := world.NewRegistry()
	var meta persistence.Meta

	n, err := db.LoadRegistry(ctx, reg)
	switch {
	case errors.Is(err, persistence.ErrNoSavedState):
		cfg.Grid = cfg.Grid.ResolveSeed()
		slog.Info("no saved state found, generating new world...",
			"cols", cfg.Grid.Cols, "rows", cfg.Grid.Rows, "layout", cfg.Grid.Layout, "seed", cfg.Grid.Seed)
		reg = seedWorld(cfg.Grid)
	case err != nil:
		slog.Error("failed to load tiles", "error", err)
		os.Exit(1)
	default:
		if meta, err = db.LoadMeta(ctx); err != nil {
			slog.Error("failed to load metadata", "error", err)
			os.Exit(1)
		}
		slog.Info("world state restored",
			"tiles", n,
			"tick", meta.LastTick,
			"season", meta.Season,
			"saved", humanize.Time(meta.SavedAt),
		)
	}

	for t, c := range world.TerrainCounts(reg) {
		slog.Debug("terrain", "type", world.TerrainName(t), "count", c)
	}

	w := engine.NewWorld(reg, cfg.PathOptions())
	w.Resume(meta.LastTick, meta.LastEventSeq, meta.Season)

	// Save on fresh generation only (loaded worlds are already saved).
	if meta.LastTick == 0 && n == 0 {
		if err := db.SaveWorldState(ctx, w, 0); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Interval = cfg.TickInterval
	eng.SetTick(meta.LastTick)
	eng.SetSpeed(1)

	eng.OnTick = func(tick uint64) { w.Advance(tick) }
	eng.OnSeason = func(tick uint64) { w.AdvanceSeason(tick) }
	eng.OnSave = func(tick uint64) {
		if err := db.SaveWorldState(ctx, w, tick); err != nil {
			slog.Error("autosave failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("HEXWORLD_ADMIN_KEY not set, admin POST endpoints and stream commands are disabled")
	}
	apiServer := &api.Server{
		World:    w,
		Eng:      eng,
		DB:       db,
		Port:     cfg.Port,
		AdminKey: cfg.AdminKey,
	}
	srv := apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	stats := w.Stats()
	fmt.Printf("\nhexworld is up: %s tiles, %s edges, %d occupied.\n",
		humanize.Comma(int64(stats.Tiles)), humanize.Comma(int64(stats.Edges)), stats.Occupied)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	if meta.LastTick > 0 {
		fmt.Printf("Resuming from tick %s (%s)\n", humanize.Comma(int64(meta.LastTick)), meta.Season)
	}
	fmt.Println("Running... (Ctrl+C to stop)")

	eng.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveWorldState(shutdownCtx, w, eng.Tick()); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Stopped. World state saved.")
}

// seedWorld generates a fresh grid and drops units and buildings on it.
func seedWorld(grid world.GenConfig) *world.Registry {
	reg := world.Generate(grid)

	units := world.PlacePlaceables(reg, world.PlaceConfig{
		Kind:    world.KindUnit,
		Count:   seedUnits,
		MinDist: 2,
		Seed:    grid.Seed,
		Faction: world.FactionBlue,
	})
	buildings := world.PlacePlaceables(reg, world.PlaceConfig{
		Kind:    world.KindBuilding,
		Count:   seedBuildings,
		MinDist: 3,
		Seed:    grid.Seed + 1,
		Faction: world.FactionNeutral,
	})

	slog.Info("world generated",
		"tiles", humanize.Comma(int64(reg.Len())),
		"units", len(units),
		"buildings", len(buildings),
	)
	return reg
}
