package engine

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/talgya/hexworld/internal/world"
)

// Route is the remaining journey of a unit. Steps[0] is the tile the unit
// currently stands on; the last step is its destination.
type Route struct {
	UnitID uuid.UUID         `json:"unit_id"`
	Steps  []world.CubeCoord `json:"steps"`
}

// Arrived reports whether there is nowhere left to go.
func (r Route) Arrived() bool {
	return len(r.Steps) < 2
}

// Move finds a path for the unit standing on ev.Origin and queues it.
// The unit advances one tile per Advance call. An unreachable destination
// yields a Route with no steps and clears any route the unit already had.
func (w *World) Move(ev MoveEvent) (Route, error) {
	w.mu.Lock()
	origin, ok := w.reg.Lookup(ev.Origin)
	if !ok {
		w.mu.Unlock()
		return Route{}, fmt.Errorf("origin %s: %w", ev.Origin, ErrTileNotFound)
	}
	if origin.Placeable == nil || origin.Placeable.Kind != world.KindUnit {
		w.mu.Unlock()
		return Route{}, fmt.Errorf("origin %s: %w", ev.Origin, ErrNotAUnit)
	}
	unit := origin.Placeable

	res, err := w.search(ev.Origin, ev.Destination)
	if err != nil {
		w.mu.Unlock()
		return Route{}, err
	}

	route := Route{UnitID: unit.ID, Steps: make([]world.CubeCoord, len(res.Path))}
	for i, t := range res.Path {
		route.Steps[i] = t.Coord
	}
	if route.Arrived() {
		delete(w.routes, unit.ID)
	} else {
		queued := route
		queued.Steps = slices.Clone(route.Steps)
		w.routes[unit.ID] = &queued
	}

	desc := fmt.Sprintf("%s routed %s -> %s in %d steps", unit.Name, ev.Origin, ev.Destination, len(route.Steps))
	if !res.Found() {
		desc = fmt.Sprintf("%s cannot reach %s", unit.Name, ev.Destination)
	}
	coord := ev.Origin
	e := w.appendLocked(Event{Description: desc, Category: CategoryMove, Coord: &coord})
	w.unlockAndPublish(e)

	slog.Info("move requested",
		"unit", unit.Name,
		"from", ev.Origin,
		"to", ev.Destination,
		"steps", len(route.Steps),
		"expanded", res.Expanded,
	)
	return route, nil
}

// Advance moves every routed unit one tile along its route and returns how
// many moved. A unit whose next tile is gone, blocked, or occupied loses its
// route and stays put.
func (w *World) Advance(tick uint64) int {
	var pending []Event
	moved := 0

	w.mu.Lock()
	w.lastTick = tick

	ids := make([]uuid.UUID, 0, len(w.routes))
	for id := range w.routes {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	for _, id := range ids {
		r := w.routes[id]
		if r.Arrived() {
			delete(w.routes, id)
			continue
		}

		cur, ok := w.reg.Lookup(r.Steps[0])
		if !ok || cur.Placeable == nil || cur.Placeable.ID != id {
			delete(w.routes, id)
			continue
		}
		next, ok := w.reg.Lookup(r.Steps[1])
		if !ok || !next.Traversable || next.Occupied {
			delete(w.routes, id)
			at := cur.Coord
			pending = append(pending, w.appendLocked(Event{
				Description: fmt.Sprintf("%s stopped at %s: route blocked", cur.Placeable.Name, at),
				Category:    CategoryStep,
				Coord:       &at,
			}))
			continue
		}

		unit := cur.Placeable
		cur.SetPlaceable(nil)
		next.SetPlaceable(unit)
		r.Steps = r.Steps[1:]
		moved++

		at := next.Coord
		desc := fmt.Sprintf("%s stepped to %s", unit.Name, at)
		if r.Arrived() {
			delete(w.routes, id)
			desc = fmt.Sprintf("%s arrived at %s", unit.Name, at)
		}
		pending = append(pending, w.appendLocked(Event{Description: desc, Category: CategoryStep, Coord: &at}))
	}
	w.unlockAndPublish(pending...)
	return moved
}

// Routes returns copies of every queued route.
func (w *World) Routes() []Route {
	w.mu.RLock()
	defer w.mu.RUnlock()

	result := make([]Route, 0, len(w.routes))
	for _, r := range w.routes {
		result = append(result, Route{UnitID: r.UnitID, Steps: slices.Clone(r.Steps)})
	}
	slices.SortFunc(result, func(a, b Route) int { return bytes.Compare(a.UnitID[:], b.UnitID[:]) })
	return result
}
