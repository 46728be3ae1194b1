package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/hexworld/internal/engine"
	"github.com/talgya/hexworld/internal/pathfind"
	"github.com/talgya/hexworld/internal/world"
)

const testKey = "test-admin-key"

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	w := engine.NewWorld(nil, pathfind.Options{})
	for q := 0; q < 3; q++ {
		if _, err := w.Place(engine.PlaceEvent{Coord: world.Cube(q, 0), Traversable: true}); err != nil {
			t.Fatal(err)
		}
	}
	s := &Server{World: w, Eng: engine.NewEngine(), AdminKey: testKey}
	return s, s.Handler()
}

func do(h http.Handler, method, path, body string, auth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestStatus(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(h, http.MethodGet, "/api/v1/status", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["tiles"] != float64(3) || body["season"] != "Spring" {
		t.Fatalf("body = %v", body)
	}
}

func TestTileDetail(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, http.MethodGet, "/api/v1/tile/1/0", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body struct {
		Tile      world.Tile        `json:"tile"`
		Neighbors []world.CubeCoord `json:"neighbors"`
	}
	decode(t, rec, &body)
	if body.Tile.Coord != world.Cube(1, 0) || len(body.Neighbors) != 2 {
		t.Fatalf("body = %+v", body)
	}

	if rec := do(h, http.MethodGet, "/api/v1/tile/9/9", "", false); rec.Code != http.StatusNotFound {
		t.Fatalf("missing tile: status %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/v1/tile/x/0", "", false); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad coords: status %d", rec.Code)
	}
}

func TestConvert(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(h, http.MethodGet, "/api/v1/convert?col=1&row=1", "", false)
	var body struct {
		Cube world.CubeCoord `json:"cube"`
	}
	decode(t, rec, &body)
	if body.Cube != world.Cube(1, 1) {
		t.Fatalf("cube = %v", body.Cube)
	}

	rec = do(h, http.MethodGet, "/api/v1/convert?col=1&row=1&layout=even", "", false)
	decode(t, rec, &body)
	if body.Cube != world.Cube(0, 1) {
		t.Fatalf("even-r cube = %v", body.Cube)
	}

	if rec := do(h, http.MethodGet, "/api/v1/convert?col=1", "", false); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing row: status %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/v1/convert?col=1&row=1&layer=up", "", false); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad layer: status %d", rec.Code)
	}
}

func TestConvertStoredCoordinates(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(h, http.MethodGet, "/api/v1/convert?col=2&row=1&layer=3", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body struct {
		Cube            world.CubeCoord     `json:"cube"`
		Stored          world.StoredCoord   `json:"stored"`
		StoredNeighbors []world.StoredCoord `json:"stored_neighbors"`
	}
	decode(t, rec, &body)

	if body.Stored != (world.StoredCoord{X: 2, Layer: 3, Z: 1}) {
		t.Fatalf("stored = %+v", body.Stored)
	}
	if len(body.StoredNeighbors) != 6 {
		t.Fatalf("stored neighbors = %v", body.StoredNeighbors)
	}
	want := map[world.CubeCoord]bool{}
	for _, n := range body.Cube.Neighbors() {
		want[n] = true
	}
	for _, n := range body.StoredNeighbors {
		if n.Layer != 3 || !want[n.Cube()] {
			t.Fatalf("stored neighbor %+v is not adjacent to %v", n, body.Cube)
		}
	}
}

func TestPath(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, http.MethodPost, "/api/v1/path", `{"origin":{"q":0,"r":0},"destination":{"q":2,"r":0,"s":-2}}`, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var body pathResponse
	decode(t, rec, &body)
	if !body.Reachable || body.Steps != 2 || len(body.Path) != 3 {
		t.Fatalf("body = %+v", body)
	}

	rec = do(h, http.MethodPost, "/api/v1/path", `{"origin":{"q":0,"r":0},"destination":{"q":2,"r":0,"s":0}}`, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad s: status %d", rec.Code)
	}
	rec = do(h, http.MethodPost, "/api/v1/path", `{"origin":{"q":0,"r":0},"destination":{"q":8,"r":0}}`, false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing destination: status %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/v1/path", "", false); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: status %d", rec.Code)
	}
}

func TestPathRateLimited(t *testing.T) {
	s, _ := newTestServer(t)
	s.PathLimiter = NewRateLimiter(1, time.Minute)
	h := s.Handler()

	body := `{"origin":{"q":0,"r":0},"destination":{"q":1,"r":0}}`
	if rec := do(h, http.MethodPost, "/api/v1/path", body, false); rec.Code != http.StatusOK {
		t.Fatalf("first: status %d", rec.Code)
	}
	rec := do(h, http.MethodPost, "/api/v1/path", body, false)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second: status %d", rec.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	s, h := newTestServer(t)

	if rec := do(h, http.MethodPost, "/api/v1/remove", `{"coord":{"q":2,"r":0}}`, false); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/v1/remove", "", true); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: status %d", rec.Code)
	}

	s.AdminKey = ""
	if rec := do(h, http.MethodPost, "/api/v1/remove", `{"coord":{"q":2,"r":0}}`, true); rec.Code != http.StatusForbidden {
		t.Fatalf("disabled: status %d", rec.Code)
	}
}

func TestPlaceRemoveMove(t *testing.T) {
	s, h := newTestServer(t)

	rec := do(h, http.MethodPost, "/api/v1/place",
		`{"coord":{"q":0,"r":0},"placeable":{"kind":"unit","name":"Frostrider","faction":"blue"}}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("place: status %d: %s", rec.Code, rec.Body)
	}
	var placed world.Tile
	decode(t, rec, &placed)
	if !placed.Traversable || placed.Placeable == nil || placed.Placeable.Kind != world.KindUnit {
		t.Fatalf("placed = %+v", placed)
	}

	rec = do(h, http.MethodPost, "/api/v1/move", `{"origin":{"q":0,"r":0},"destination":{"q":2,"r":0}}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("move: status %d: %s", rec.Code, rec.Body)
	}
	if len(s.World.Routes()) != 1 {
		t.Fatal("move did not queue a route")
	}

	rec = do(h, http.MethodPost, "/api/v1/move", `{"origin":{"q":1,"r":0},"destination":{"q":2,"r":0}}`, true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("move without unit: status %d", rec.Code)
	}

	if rec := do(h, http.MethodPost, "/api/v1/remove", `{"coord":{"q":0,"r":0}}`, true); rec.Code != http.StatusOK {
		t.Fatalf("remove: status %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/remove", `{"coord":{"q":0,"r":0}}`, true); rec.Code != http.StatusNotFound {
		t.Fatalf("second remove: status %d", rec.Code)
	}

	rec = do(h, http.MethodGet, "/api/v1/events?limit=2", "", false)
	var events []engine.Event
	decode(t, rec, &events)
	if len(events) != 2 || events[1].Category != engine.CategoryRemove {
		t.Fatalf("events = %+v", events)
	}
}

func TestSpeedAndSnapshot(t *testing.T) {
	s, h := newTestServer(t)

	if rec := do(h, http.MethodPost, "/api/v1/speed", `{"speed":4}`, true); rec.Code != http.StatusOK {
		t.Fatalf("speed: status %d", rec.Code)
	}
	if s.Eng.Speed() != 4 {
		t.Fatalf("Speed = %v", s.Eng.Speed())
	}
	if rec := do(h, http.MethodPost, "/api/v1/speed", `{"speed":-1}`, true); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative speed: status %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/snapshot", "", true); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("snapshot without db: status %d", rec.Code)
	}
}

func dialStream(t *testing.T, h http.Handler, auth bool) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	header := http.Header{}
	if auth {
		header.Set("Authorization", "Bearer "+testKey)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestStreamCommands(t *testing.T) {
	s, h := newTestServer(t)
	conn := dialStream(t, h, true)

	cmd := map[string]any{
		"action": "place",
		"tile":   map[string]any{"coord": map[string]int{"q": 3, "r": 0}},
	}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatal(err)
	}

	var gotAck, gotEvent bool
	for !(gotAck && gotEvent) {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		switch msg.Type {
		case "ack":
			gotAck = true
		case "event":
			if msg.Event.Category == engine.CategoryPlace {
				gotEvent = true
			}
		case "error":
			t.Fatalf("error reply: %s", msg.Error)
		}
	}
	if _, ok := s.World.Lookup(world.Cube(3, 0)); !ok {
		t.Fatal("streamed place did not register the tile")
	}
}

func TestStreamRejectsAnonymousCommands(t *testing.T) {
	_, h := newTestServer(t)
	conn := dialStream(t, h, false)

	if err := conn.WriteJSON(map[string]any{"action": "remove", "coord": map[string]int{"q": 0, "r": 0}}); err != nil {
		t.Fatal(err)
	}
	var msg streamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "error" || msg.Error != "unauthorized" {
		t.Fatalf("reply = %+v", msg)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("clientIP = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := clientIP(req); got != "1.2.3.4" {
		t.Fatalf("clientIP with XFF = %q", got)
	}
}
