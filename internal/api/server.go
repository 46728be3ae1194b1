// Package api provides the HTTP API over the world service.
// GET endpoints are public (read-only). Mutating POST endpoints require a
// bearer token; path queries are public but rate limited.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexworld/internal/engine"
	"github.com/talgya/hexworld/internal/persistence"
	"github.com/talgya/hexworld/internal/world"
)

// Server serves the world over HTTP.
type Server struct {
	World    *engine.World
	Eng      *engine.Engine
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// PathLimiter throttles /api/v1/path per client. Nil = default limits.
	PathLimiter *RateLimiter

	startedAt time.Time
}

// Handler builds the request router.
func (s *Server) Handler() http.Handler {
	if s.startedAt.IsZero() {
		s.startedAt = time.Now()
	}
	if s.PathLimiter == nil {
		s.PathLimiter = NewRateLimiter(600, time.Minute)
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/tiles", s.handleTiles)
	mux.HandleFunc("/api/v1/tile/", s.handleTileDetail)
	mux.HandleFunc("/api/v1/convert", s.handleConvert)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/routes", s.handleRoutes)
	mux.HandleFunc("/api/v1/path", RateLimitMiddleware(s.PathLimiter, s.handlePath))

	// Event feed; commands over the socket need the admin token.
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/place", s.adminOnly(s.handlePlace))
	mux.HandleFunc("/api/v1/remove", s.adminOnly(s.handleRemove))
	mux.HandleFunc("/api/v1/move", s.adminOnly(s.handleMove))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine. Shut it down with the
// returned server.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of allowed origins.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || s.AdminKey == "" {
		return false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.AdminKey)) == 1
}

// adminOnly wraps a handler to require POST with bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no HEXWORLD_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.World.Stats()
	status := map[string]any{
		"name":        "hexworld",
		"tick":        stats.Tick,
		"season":      stats.Season,
		"tiles":       stats.Tiles,
		"tiles_human": humanize.Comma(int64(stats.Tiles)),
		"edges":       stats.Edges,
		"traversable": stats.Traversable,
		"occupied":    stats.Occupied,
		"moving":      stats.Moving,
		"started":     humanize.Time(s.startedAt),
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.Speed()
	}
	writeJSON(w, status)
}

// handleTiles returns every tile for map renderers.
func (s *Server) handleTiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.World.Snapshot())
}

// handleTileDetail serves GET /api/v1/tile/:q/:r with the tile's neighbors.
func (s *Server) handleTileDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	// /api/v1/tile/:q/:r → parts[0]="" [1]="api" [2]="v1" [3]="tile" [4]=q [5]=r
	if len(parts) < 6 {
		http.Error(w, "usage: /api/v1/tile/:q/:r", http.StatusBadRequest)
		return
	}
	q, err1 := strconv.Atoi(parts[4])
	rr, err2 := strconv.Atoi(parts[5])
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid coordinates", http.StatusBadRequest)
		return
	}

	coord := world.Cube(q, rr)
	tile, ok := s.World.Lookup(coord)
	if !ok {
		http.Error(w, "tile not found", http.StatusNotFound)
		return
	}

	neighbors := s.World.Neighbors(coord)
	coords := make([]world.CubeCoord, len(neighbors))
	for i, n := range neighbors {
		coords[i] = n.Coord
	}

	writeJSON(w, map[string]any{
		"tile":         tile,
		"terrain_name": world.TerrainName(tile.Terrain),
		"neighbors":    coords,
	})
}

// handleConvert serves GET /api/v1/convert?col=&row=&layout=&layer= and reports
// the cube and stored coordinates plus the tile there, if any.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	col, err1 := strconv.Atoi(r.URL.Query().Get("col"))
	row, err2 := strconv.Atoi(r.URL.Query().Get("row"))
	if err1 != nil || err2 != nil {
		http.Error(w, "col and row are required integers", http.StatusBadRequest)
		return
	}
	layout, err := world.ParseLayout(r.URL.Query().Get("layout"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	layer := 0
	if v := r.URL.Query().Get("layer"); v != "" {
		if layer, err = strconv.Atoi(v); err != nil {
			http.Error(w, "layer must be an integer", http.StatusBadRequest)
			return
		}
	}

	cube := layout.ToCube(world.OffsetCoord{Col: col, Row: row})
	stored := world.StoredFromCube(cube, layer)
	result := map[string]any{
		"layout":           layout.String(),
		"offset":           world.OffsetCoord{Col: col, Row: row},
		"cube":             cube,
		"stored":           stored,
		"stored_neighbors": world.StoredNeighbors(stored),
	}
	if tile, ok := s.World.Lookup(cube); ok {
		result["tile"] = tile
	}
	writeJSON(w, result)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, s.World.Events(limit))
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.World.Routes())
}

// coordJSON accepts {q, r} or {q, r, s}; s is derived when omitted.
type coordJSON struct {
	Q int  `json:"q"`
	R int  `json:"r"`
	S *int `json:"s,omitempty"`
}

func (c coordJSON) cube() (world.CubeCoord, error) {
	coord := world.Cube(c.Q, c.R)
	if c.S != nil && *c.S != coord.S {
		return coord, fmt.Errorf("q+r+s must be 0, got %d", c.Q+c.R+*c.S)
	}
	return coord, nil
}

type pathRequest struct {
	Origin      coordJSON `json:"origin"`
	Destination coordJSON `json:"destination"`
}

// pathResponse is shared by /path and /move.
type pathResponse struct {
	Path      []world.CubeCoord `json:"path"`
	Reachable bool              `json:"reachable"`
	Steps     int               `json:"steps"`
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	origin, err := req.Origin.cube()
	if err != nil {
		http.Error(w, "origin: "+err.Error(), http.StatusBadRequest)
		return
	}
	destination, err := req.Destination.cube()
	if err != nil {
		http.Error(w, "destination: "+err.Error(), http.StatusBadRequest)
		return
	}

	tiles, err := s.World.FindPath(origin, destination)
	if errors.Is(err, engine.ErrTileNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "path search failed", http.StatusInternalServerError)
		return
	}

	coords := make([]world.CubeCoord, len(tiles))
	for i, t := range tiles {
		coords[i] = t.Coord
	}
	writeJSON(w, pathResponse{Path: coords, Reachable: len(coords) > 0, Steps: max(len(coords)-1, 0)})
}

type placeRequest struct {
	Coord        coordJSON        `json:"coord"`
	Terrain      world.Terrain    `json:"terrain"`
	Traversable  *bool            `json:"traversable"`
	Water        bool             `json:"water"`
	MovementCost float64          `json:"movement_cost"`
	Placeable    *world.Placeable `json:"placeable,omitempty"`
}

func (p placeRequest) event() (engine.PlaceEvent, error) {
	coord, err := p.Coord.cube()
	if err != nil {
		return engine.PlaceEvent{}, err
	}
	traversable := !p.Water
	if p.Traversable != nil {
		traversable = *p.Traversable
	}
	return engine.PlaceEvent{
		Coord:        coord,
		Terrain:      p.Terrain,
		Traversable:  traversable,
		Water:        p.Water,
		MovementCost: p.MovementCost,
		Placeable:    p.Placeable,
	}, nil
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	ev, err := req.event()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tile, err := s.World.Place(ev)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, tile)
}

type removeRequest struct {
	Coord coordJSON `json:"coord"`
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	coord, err := req.Coord.cube()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.World.Remove(engine.RemoveEvent{Coord: coord}) {
		http.Error(w, "tile not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"removed": coord})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	origin, err1 := req.Origin.cube()
	destination, err2 := req.Destination.cube()
	if err := errors.Join(err1, err2); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	route, err := s.World.Move(engine.MoveEvent{Origin: origin, Destination: destination})
	switch {
	case errors.Is(err, engine.ErrTileNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, engine.ErrNotAUnit):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "move failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"unit_id": route.UnitID,
		"route": pathResponse{
			Path:      route.Steps,
			Reachable: len(route.Steps) > 0,
			Steps:     max(len(route.Steps)-1, 0),
		},
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not running", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Speed < 0 || req.Speed > 1000 {
		http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
		return
	}
	s.Eng.SetSpeed(req.Speed)
	slog.Info("speed changed", "speed", req.Speed)

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	tick := s.World.Stats().Tick
	if err := s.DB.SaveWorldState(r.Context(), s.World, tick); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    tick,
		"message": "snapshot saved",
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
