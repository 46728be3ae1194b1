// World ties the tile registry and the path finder together behind a single
// lock and turns placement, removal and move requests into graph updates.

package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/hexworld/internal/pathfind"
	"github.com/talgya/hexworld/internal/world"
)

// Errors returned by World operations.
var (
	ErrTileNotFound = errors.New("tile not found")
	ErrNotAUnit     = errors.New("origin tile holds no unit")
)

const maxEvents = 500

// World holds the registry, the finder and the routes of moving units.
// All methods are safe for concurrent use.
type World struct {
	mu     sync.RWMutex
	reg    *world.Registry
	finder *pathfind.Finder
	routes map[uuid.UUID]*Route
	season Season

	lastTick uint64
	eventSeq uint64
	events   []Event // Oldest first, capped at maxEvents

	subMu sync.Mutex
	subs  map[int]chan Event
	subID int
}

// NewWorld wraps reg. The World takes ownership; callers must not mutate reg
// directly afterwards.
func NewWorld(reg *world.Registry, opts pathfind.Options) *World {
	if reg == nil {
		reg = world.NewRegistry()
	}
	return &World{
		reg:    reg,
		finder: pathfind.NewFinder(reg, opts),
		routes: make(map[uuid.UUID]*Route),
		subs:   make(map[int]chan Event),
	}
}

// PlaceEvent asks for a tile at Coord.
type PlaceEvent struct {
	Coord        world.CubeCoord  `json:"coord"`
	Terrain      world.Terrain    `json:"terrain"`
	Traversable  bool             `json:"traversable"`
	Water        bool             `json:"water"`
	MovementCost float64          `json:"movement_cost"`
	Placeable    *world.Placeable `json:"placeable,omitempty"`
}

// RemoveEvent asks for the tile at Coord to be removed.
type RemoveEvent struct {
	Coord world.CubeCoord `json:"coord"`
}

// MoveEvent asks for the unit on Origin to travel to Destination.
type MoveEvent struct {
	Origin      world.CubeCoord `json:"origin"`
	Destination world.CubeCoord `json:"destination"`
}

// Place registers a new tile built from ev, replacing any tile at the same
// coordinate. A placeable already on a replaced tile is dropped.
func (w *World) Place(ev PlaceEvent) (world.Tile, error) {
	if !ev.Coord.Valid() {
		return world.Tile{}, fmt.Errorf("place %s: coordinate components must sum to zero", ev.Coord)
	}
	if ev.MovementCost < 0 {
		return world.Tile{}, fmt.Errorf("place %s: negative movement cost", ev.Coord)
	}

	tile := world.NewTile(ev.Coord)
	tile.Terrain = ev.Terrain
	tile.Traversable = ev.Traversable
	tile.Water = ev.Water
	if ev.MovementCost > 0 {
		tile.MovementCost = ev.MovementCost
	}
	if ev.Placeable != nil {
		p := *ev.Placeable
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		tile.SetPlaceable(&p)
	}

	w.mu.Lock()
	old, replaced := w.reg.Lookup(ev.Coord)
	if replaced && old.Placeable != nil {
		delete(w.routes, old.Placeable.ID)
	}
	w.reg.Register(tile)
	snapshot := *tile

	desc := fmt.Sprintf("tile placed at %s", ev.Coord)
	if replaced {
		desc = fmt.Sprintf("tile replaced at %s", ev.Coord)
	}
	coord := snapshot.Coord
	e := w.appendLocked(Event{Description: desc, Category: CategoryPlace, Coord: &coord})
	w.unlockAndPublish(e)
	return snapshot, nil
}

// Remove unregisters the tile at ev.Coord. It reports whether a tile was removed.
func (w *World) Remove(ev RemoveEvent) bool {
	w.mu.Lock()
	tile := w.reg.UnregisterAt(ev.Coord)
	if tile == nil {
		w.mu.Unlock()
		return false
	}
	if tile.Placeable != nil {
		delete(w.routes, tile.Placeable.ID)
	}

	coord := ev.Coord
	e := w.appendLocked(Event{
		Description: fmt.Sprintf("tile removed at %s", coord),
		Category:    CategoryRemove,
		Coord:       &coord,
	})
	w.unlockAndPublish(e)
	return true
}

// Lookup returns a copy of the tile at coord.
func (w *World) Lookup(coord world.CubeCoord) (world.Tile, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	tile, ok := w.reg.Lookup(coord)
	if !ok {
		return world.Tile{}, false
	}
	return *tile, true
}

// Neighbors returns copies of the tiles adjacent to coord in probe order.
func (w *World) Neighbors(coord world.CubeCoord) []world.Tile {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return copyTiles(w.reg.NeighborsOf(coord))
}

// FindPath returns the route between two registered tiles. An empty slice
// means the destination is unreachable.
func (w *World) FindPath(origin, destination world.CubeCoord) ([]world.Tile, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	res, err := w.search(origin, destination)
	if err != nil {
		return nil, err
	}
	return copyTiles(res.Path), nil
}

func (w *World) search(origin, destination world.CubeCoord) (pathfind.Result, error) {
	from, ok := w.reg.Lookup(origin)
	if !ok {
		return pathfind.Result{}, fmt.Errorf("origin %s: %w", origin, ErrTileNotFound)
	}
	to, ok := w.reg.Lookup(destination)
	if !ok {
		return pathfind.Result{}, fmt.Errorf("destination %s: %w", destination, ErrTileNotFound)
	}
	return w.finder.Search(from, to), nil
}

// Snapshot returns copies of every tile in row order.
func (w *World) Snapshot() []world.Tile {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return copyTiles(w.reg.Tiles())
}

// Stats summarizes the world for status reporting.
type Stats struct {
	Tiles       int    `json:"tiles"`
	Edges       int    `json:"edges"`
	Traversable int    `json:"traversable"`
	Occupied    int    `json:"occupied"`
	Moving      int    `json:"moving"`
	Season      string `json:"season"`
	Tick        uint64 `json:"tick"`
}

// Stats computes a summary under the read lock.
func (w *World) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s := Stats{
		Tiles:  w.reg.Len(),
		Edges:  w.reg.EdgeCount(),
		Moving: len(w.routes),
		Season: w.season.String(),
		Tick:   w.lastTick,
	}
	for _, t := range w.reg.Tiles() {
		if t.Traversable {
			s.Traversable++
		}
		if t.Occupied {
			s.Occupied++
		}
	}
	return s
}

// Resume restores counters and season after a load so new events continue
// the saved sequence.
func (w *World) Resume(tick, eventSeq uint64, season Season) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastTick = tick
	w.eventSeq = eventSeq
	w.season = season
}

// Season returns the current season.
func (w *World) Season() Season {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.season
}

// SetSeason changes the current season.
func (w *World) SetSeason(s Season) {
	w.mu.Lock()
	w.season = s
	w.mu.Unlock()
	slog.Info("season changed", "season", s)
}

func copyTiles(tiles []*world.Tile) []world.Tile {
	result := make([]world.Tile, len(tiles))
	for i, t := range tiles {
		result[i] = *t
	}
	return result
}
