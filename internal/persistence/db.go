// Package persistence provides SQLite-based storage for the tile graph.
// Only what is needed to rehydrate the registry is stored: coordinates,
// tile attributes and the typed placeable on each tile.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hexworld/internal/engine"
	"github.com/talgya/hexworld/internal/world"
)

// SchemaVersion is written to world_meta on every save.
const SchemaVersion = 3

// ErrNoSavedState is returned by LoadRegistry when the store holds no tiles.
var ErrNoSavedState = errors.New("no saved world state")

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tiles (
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		s INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		terrain INTEGER NOT NULL,
		traversable INTEGER NOT NULL,
		occupied INTEGER NOT NULL,
		water INTEGER NOT NULL,
		has_building INTEGER NOT NULL,
		movement_cost REAL NOT NULL,
		placeable_id TEXT,
		placeable_kind TEXT,
		placeable_name TEXT,
		placeable_faction TEXT,
		PRIMARY KEY (q, r)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seq INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tiles_seq ON tiles(seq);
	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// tileRow is the stored form of a tile.
type tileRow struct {
	Q                int            `db:"q"`
	R                int            `db:"r"`
	S                int            `db:"s"`
	Seq              int            `db:"seq"`
	Terrain          uint8          `db:"terrain"`
	Traversable      bool           `db:"traversable"`
	Occupied         bool           `db:"occupied"`
	Water            bool           `db:"water"`
	HasBuilding      bool           `db:"has_building"`
	MovementCost     float64        `db:"movement_cost"`
	PlaceableID      sql.NullString `db:"placeable_id"`
	PlaceableKind    sql.NullString `db:"placeable_kind"`
	PlaceableName    sql.NullString `db:"placeable_name"`
	PlaceableFaction sql.NullString `db:"placeable_faction"`
}

func toRow(seq int, t world.Tile) tileRow {
	row := tileRow{
		Q:            t.Coord.Q,
		R:            t.Coord.R,
		S:            t.Coord.S,
		Seq:          seq,
		Terrain:      uint8(t.Terrain),
		Traversable:  t.Traversable,
		Occupied:     t.Occupied,
		Water:        t.Water,
		HasBuilding:  t.HasBuilding,
		MovementCost: t.MovementCost,
	}
	if p := t.Placeable; p != nil {
		row.PlaceableID = sql.NullString{String: p.ID.String(), Valid: true}
		row.PlaceableKind = sql.NullString{String: p.Kind.String(), Valid: true}
		row.PlaceableName = sql.NullString{String: p.Name, Valid: true}
		row.PlaceableFaction = sql.NullString{String: p.Faction.String(), Valid: true}
	}
	return row
}

func (row tileRow) tile() (*world.Tile, error) {
	coord := world.CubeCoord{Q: row.Q, R: row.R, S: row.S}
	if !coord.Valid() {
		return nil, fmt.Errorf("tile %s: invalid cube coordinate", coord)
	}
	t := &world.Tile{
		Coord:        coord,
		Terrain:      world.Terrain(row.Terrain),
		Traversable:  row.Traversable,
		Occupied:     row.Occupied,
		Water:        row.Water,
		HasBuilding:  row.HasBuilding,
		MovementCost: row.MovementCost,
	}
	if !row.PlaceableID.Valid {
		return t, nil
	}

	id, err := uuid.Parse(row.PlaceableID.String)
	if err != nil {
		return nil, fmt.Errorf("tile %s: placeable id: %w", coord, err)
	}
	kind, err := world.ParsePlaceableKind(row.PlaceableKind.String)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", coord, err)
	}
	faction, err := world.ParseFaction(row.PlaceableFaction.String)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", coord, err)
	}
	t.Placeable = &world.Placeable{
		ID:      id,
		Kind:    kind,
		Name:    row.PlaceableName.String,
		Faction: faction,
	}
	return t, nil
}

// SaveTiles writes all tiles to the database (full replace), preserving order.
func (db *DB) SaveTiles(ctx context.Context, tiles []world.Tile) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tiles"); err != nil {
		return err
	}

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO tiles
		(q, r, s, seq, terrain, traversable, occupied, water, has_building, movement_cost,
		 placeable_id, placeable_kind, placeable_name, placeable_faction)
		VALUES (:q, :r, :s, :seq, :terrain, :traversable, :occupied, :water, :has_building,
		 :movement_cost, :placeable_id, :placeable_kind, :placeable_name, :placeable_faction)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range tiles {
		if _, err := stmt.ExecContext(ctx, toRow(i, t)); err != nil {
			return fmt.Errorf("insert tile %s: %w", t.Coord, err)
		}
	}

	return tx.Commit()
}

// LoadRegistry replays every stored tile into reg in saved order, then
// rebuilds adjacency once. Returns the number of tiles loaded.
func (db *DB) LoadRegistry(ctx context.Context, reg *world.Registry) (int, error) {
	var rows []tileRow
	err := db.conn.SelectContext(ctx, &rows, `SELECT q, r, s, seq, terrain, traversable, occupied,
		water, has_building, movement_cost, placeable_id, placeable_kind, placeable_name,
		placeable_faction FROM tiles ORDER BY seq`)
	if err != nil {
		return 0, fmt.Errorf("select tiles: %w", err)
	}
	if len(rows) == 0 {
		return 0, ErrNoSavedState
	}

	for _, row := range rows {
		t, err := row.tile()
		if err != nil {
			return 0, err
		}
		reg.Register(t)
	}
	reg.RebuildAllNeighbors()

	return len(rows), nil
}

// HasWorldState reports whether any tiles are stored.
func (db *DB) HasWorldState(ctx context.Context) bool {
	var n int
	if err := db.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM tiles"); err != nil {
		return false
	}
	return n > 0
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(ctx context.Context, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO events (seq, tick, description, category) VALUES (?, ?, ?, ?)",
			e.Seq, e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(ctx context.Context, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.SelectContext(ctx, &events,
		"SELECT seq, tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.GetContext(ctx, &value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveWorldState performs a full save of the world's tiles and metadata.
// Only events not yet stored are appended.
func (db *DB) SaveWorldState(ctx context.Context, w *engine.World, tick uint64) error {
	tiles := w.Snapshot()
	slog.Info("saving world state", "tiles", len(tiles), "tick", tick)

	if err := db.SaveTiles(ctx, tiles); err != nil {
		return fmt.Errorf("save tiles: %w", err)
	}

	var savedSeq uint64
	if s, err := db.GetMeta(ctx, "last_event_seq"); err == nil {
		savedSeq, _ = strconv.ParseUint(s, 10, 64)
	}
	var fresh []engine.Event
	for _, e := range w.Events(0) {
		if e.Seq > savedSeq {
			fresh = append(fresh, e)
			savedSeq = e.Seq
		}
	}
	if err := db.SaveEvents(ctx, fresh); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	meta := map[string]string{
		"last_event_seq": strconv.FormatUint(savedSeq, 10),
		"last_tick":      strconv.FormatUint(tick, 10),
		"season":         w.Season().String(),
		"saved_at":       time.Now().UTC().Format(time.RFC3339),
		"version":        strconv.Itoa(SchemaVersion),
	}
	for k, v := range meta {
		if err := db.SaveMeta(ctx, k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	slog.Info("world state saved")
	return nil
}

// Meta is the metadata written alongside the tiles.
type Meta struct {
	LastTick     uint64
	LastEventSeq uint64
	Season       engine.Season
	SavedAt      time.Time
	Version      int
}

// LoadMeta reads the metadata of the last save. Missing keys keep their zero
// values.
func (db *DB) LoadMeta(ctx context.Context) (Meta, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := db.conn.SelectContext(ctx, &rows, "SELECT key, value FROM world_meta"); err != nil {
		return Meta{}, fmt.Errorf("select meta: %w", err)
	}

	var m Meta
	for _, row := range rows {
		switch row.Key {
		case "last_tick":
			m.LastTick, _ = strconv.ParseUint(row.Value, 10, 64)
		case "last_event_seq":
			m.LastEventSeq, _ = strconv.ParseUint(row.Value, 10, 64)
		case "season":
			m.Season, _ = engine.ParseSeason(row.Value)
		case "saved_at":
			m.SavedAt, _ = time.Parse(time.RFC3339, row.Value)
		case "version":
			m.Version, _ = strconv.Atoi(row.Value)
		}
	}
	return m, nil
}
