package world

import (
	"fmt"

	"github.com/google/uuid"
)

// Terrain types for generated tiles.
type Terrain uint8

const (
	TerrainGrass    Terrain = iota // Open ground
	TerrainForest                  // Woodland, slower to cross
	TerrainHills                   // Broken ground
	TerrainMountain                // Impassable peaks
	TerrainWater                   // Impassable except as an endpoint
)

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainGrass:
		return "Grass"
	case TerrainForest:
		return "Forest"
	case TerrainHills:
		return "Hills"
	case TerrainMountain:
		return "Mountain"
	case TerrainWater:
		return "Water"
	default:
		return "Unknown"
	}
}

// Tile is a node in the world graph.
// Neighbors are not stored here; the Registry owns adjacency.
type Tile struct {
	Coord        CubeCoord  `json:"coord"`
	Terrain      Terrain    `json:"terrain"`
	Traversable  bool       `json:"traversable"`
	Occupied     bool       `json:"occupied"`
	Water        bool       `json:"water"`
	HasBuilding  bool       `json:"has_building"`
	MovementCost float64    `json:"movement_cost"`
	Placeable    *Placeable `json:"placeable,omitempty"`
}

// NewTile returns a traversable, unoccupied tile with unit movement cost.
func NewTile(coord CubeCoord) *Tile {
	return &Tile{
		Coord:        coord,
		Traversable:  true,
		MovementCost: 1,
	}
}

// SetPlaceable puts p on the tile, replacing any previous occupant.
// A nil p clears the tile.
func (t *Tile) SetPlaceable(p *Placeable) {
	t.Placeable = p
	t.Occupied = p != nil
	t.HasBuilding = p != nil && p.Kind == KindBuilding
}

func (t *Tile) String() string {
	return fmt.Sprintf("Tile%s", t.Coord)
}

// PlaceableKind is the closed set of things a tile can hold.
type PlaceableKind uint8

const (
	KindUnit PlaceableKind = iota
	KindBuilding
	KindDecoration
)

var kindNames = [...]string{"unit", "building", "decoration"}

func (k PlaceableKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind#%d", k)
}

// ParsePlaceableKind is the inverse of PlaceableKind.String.
func ParsePlaceableKind(s string) (PlaceableKind, error) {
	for i, name := range kindNames {
		if name == s {
			return PlaceableKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown placeable kind %q", s)
}

// MarshalText encodes the kind by name.
func (k PlaceableKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *PlaceableKind) UnmarshalText(b []byte) error {
	v, err := ParsePlaceableKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Faction owning a placeable.
type Faction uint8

const (
	FactionNone Faction = iota
	FactionNeutral
	FactionBlue
	FactionGreen
	FactionRed
	FactionYellow
)

var factionNames = [...]string{"none", "neutral", "blue", "green", "red", "yellow"}

func (f Faction) String() string {
	if int(f) < len(factionNames) {
		return factionNames[f]
	}
	return fmt.Sprintf("faction#%d", f)
}

// ParseFaction is the inverse of Faction.String. Empty means FactionNone.
func ParseFaction(s string) (Faction, error) {
	if s == "" {
		return FactionNone, nil
	}
	for i, name := range factionNames {
		if name == s {
			return Faction(i), nil
		}
	}
	return FactionNone, fmt.Errorf("unknown faction %q", s)
}

// MarshalText encodes the faction by name.
func (f Faction) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a faction name.
func (f *Faction) UnmarshalText(b []byte) error {
	v, err := ParseFaction(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Placeable is a unit, building or decoration sitting on a tile.
type Placeable struct {
	ID      uuid.UUID     `json:"id"`
	Kind    PlaceableKind `json:"kind"`
	Name    string        `json:"name"`
	Faction Faction       `json:"faction"`
}

// NewPlaceable creates a placeable with a fresh identifier.
func NewPlaceable(kind PlaceableKind, name string, faction Faction) *Placeable {
	return &Placeable{
		ID:      uuid.New(),
		Kind:    kind,
		Name:    name,
		Faction: faction,
	}
}
