package world

import "testing"

func TestGenerateSmallGrid(t *testing.T) {
	cfg := SmallTestConfig()
	reg := Generate(cfg)

	if reg.Len() != cfg.Cols*cfg.Rows {
		t.Fatalf("Len = %d, want %d", reg.Len(), cfg.Cols*cfg.Rows)
	}
	for row := 0; row < cfg.Rows; row++ {
		for col := 0; col < cfg.Cols; col++ {
			if !reg.Contains(cfg.Layout.ToCube(OffsetCoord{Col: col, Row: row})) {
				t.Fatalf("missing tile at col=%d row=%d", col, row)
			}
		}
	}
	for _, tile := range reg.Tiles() {
		if tile.Water && tile.Traversable {
			t.Fatalf("water tile %v is traversable", tile.Coord)
		}
		if tile.Terrain == TerrainMountain && tile.Traversable {
			t.Fatalf("mountain tile %v is traversable", tile.Coord)
		}
	}
	assertSymmetric(t, reg)

	total := 0
	for _, c := range TerrainCounts(reg) {
		total += c
	}
	if total != reg.Len() {
		t.Fatalf("TerrainCounts sums to %d, want %d", total, reg.Len())
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(SmallTestConfig())
	b := Generate(SmallTestConfig())
	for _, ta := range a.Tiles() {
		tb, ok := b.Lookup(ta.Coord)
		if !ok || tb.Terrain != ta.Terrain || tb.Traversable != ta.Traversable {
			t.Fatalf("tile %v differs between runs with the same seed", ta.Coord)
		}
	}
}

func TestGenerateChunkJoinsSeam(t *testing.T) {
	cfg := SmallTestConfig()
	reg := Generate(cfg)
	added := GenerateChunk(reg, cfg, cfg.Cols, 0)

	if added != cfg.Cols*cfg.Rows {
		t.Fatalf("GenerateChunk placed %d, want %d", added, cfg.Cols*cfg.Rows)
	}
	if reg.Len() != 2*cfg.Cols*cfg.Rows {
		t.Fatalf("Len = %d, want %d", reg.Len(), 2*cfg.Cols*cfg.Rows)
	}

	left := cfg.Layout.ToCube(OffsetCoord{Col: cfg.Cols - 1, Row: 0})
	right := cfg.Layout.ToCube(OffsetCoord{Col: cfg.Cols, Row: 0})
	linked := false
	for _, n := range reg.NeighborsOf(left) {
		if n.Coord == right {
			linked = true
		}
	}
	if !linked {
		t.Fatalf("seam tiles %v and %v are not neighbors", left, right)
	}
	assertSymmetric(t, reg)
}

func TestPlacePlaceables(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 7
	reg := Generate(cfg)

	placed := PlacePlaceables(reg, PlaceConfig{Kind: KindUnit, Count: 5, MinDist: 3, Seed: 7, Faction: FactionRed})
	if len(placed) != 5 {
		t.Fatalf("placed %d units, want 5", len(placed))
	}

	names := map[string]bool{}
	for i, tile := range placed {
		if !tile.Traversable || !tile.Occupied || tile.Placeable == nil {
			t.Fatalf("bad placement on %v: %+v", tile.Coord, tile)
		}
		if tile.Placeable.Kind != KindUnit || tile.Placeable.Faction != FactionRed {
			t.Fatalf("placeable has wrong kind or faction: %+v", tile.Placeable)
		}
		if names[tile.Placeable.Name] {
			t.Fatalf("duplicate name %q", tile.Placeable.Name)
		}
		names[tile.Placeable.Name] = true
		for _, other := range placed[:i] {
			if Distance(tile.Coord, other.Coord) < 3 {
				t.Fatalf("%v and %v closer than MinDist", tile.Coord, other.Coord)
			}
		}
	}

	buildings := PlacePlaceables(reg, PlaceConfig{Kind: KindBuilding, Count: 3, MinDist: 2, Seed: 8})
	for _, tile := range buildings {
		if !tile.HasBuilding {
			t.Fatalf("building tile %v missing HasBuilding", tile.Coord)
		}
		for _, u := range placed {
			if u == tile {
				t.Fatalf("building placed on occupied tile %v", tile.Coord)
			}
		}
	}
}

func TestGenerateNamesCapsAtCombinations(t *testing.T) {
	reg := NewRegistry()
	for q := 0; q < 200; q++ {
		reg.Register(NewTile(Cube(q*3, 0)))
	}
	placed := PlacePlaceables(reg, PlaceConfig{Kind: KindDecoration, Count: 500, Seed: 1})
	if len(placed) != 75 {
		t.Fatalf("placed %d decorations, want 75 (all name combinations)", len(placed))
	}
}

func TestPlaceableKindText(t *testing.T) {
	for _, k := range []PlaceableKind{KindUnit, KindBuilding, KindDecoration} {
		b, _ := k.MarshalText()
		var got PlaceableKind
		if err := got.UnmarshalText(b); err != nil || got != k {
			t.Fatalf("kind %v did not survive text encoding: %v", k, err)
		}
	}
	if _, err := ParsePlaceableKind("tree"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if f, err := ParseFaction(""); err != nil || f != FactionNone {
		t.Fatalf("ParseFaction(\"\") = %v, %v", f, err)
	}
}

func TestResolveSeed(t *testing.T) {
	cfg := SmallTestConfig()
	if got := cfg.ResolveSeed(); got.Seed != cfg.Seed {
		t.Fatalf("non-zero seed changed: %d -> %d", cfg.Seed, got.Seed)
	}
	cfg.Seed = 0
	if got := cfg.ResolveSeed(); got.Seed == 0 {
		t.Fatal("zero seed not resolved")
	}
}

func TestChunksMatchSingleGrid(t *testing.T) {
	cfg := SmallTestConfig()
	cfg.Seed = 0
	cfg = cfg.ResolveSeed()

	chunked := Generate(cfg)
	GenerateChunk(chunked, cfg, cfg.Cols, 0)

	wide := cfg
	wide.Cols = 2 * cfg.Cols
	whole := Generate(wide)

	if chunked.Len() != whole.Len() || chunked.EdgeCount() != whole.EdgeCount() {
		t.Fatalf("chunked %s vs whole %s", chunked, whole)
	}
	for _, want := range whole.Tiles() {
		got, ok := chunked.Lookup(want.Coord)
		if !ok || got.Terrain != want.Terrain {
			t.Fatalf("tile %v differs between chunked and single generation", want.Coord)
		}
	}
}
