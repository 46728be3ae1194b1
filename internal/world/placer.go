// Placeable seeding: finds open tiles and drops units or buildings on them.
package world

import (
	"math/rand"
	"sort"
)

// PlaceConfig controls PlacePlaceables.
type PlaceConfig struct {
	Kind    PlaceableKind
	Count   int
	MinDist int // Minimum hex distance between two seeded placeables
	Seed    int64
	Faction Faction
}

// PlacePlaceables puts up to cfg.Count placeables of cfg.Kind on free,
// traversable tiles, preferring tiles with more open neighbors.
// Returns the tiles that received one, best first.
func PlacePlaceables(reg *Registry, cfg PlaceConfig) []*Tile {
	rng := rand.New(rand.NewSource(cfg.Seed + 200))

	type scored struct {
		tile  *Tile
		score float64
	}
	var candidates []scored

	for _, tile := range reg.Tiles() {
		if !tile.Traversable || tile.Occupied {
			continue
		}
		s := placementScore(reg, tile)
		if s > 0 {
			// Small jitter so equal scores don't always pick the same corner.
			candidates = append(candidates, scored{tile, s + rng.Float64()*0.1})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	names := generateNames(rng, cfg.Kind, cfg.Count)
	var placed []*Tile
	for _, c := range candidates {
		if len(placed) >= len(names) {
			break
		}
		if tooClose(c.tile.Coord, placed, cfg.MinDist) {
			continue
		}
		c.tile.SetPlaceable(NewPlaceable(cfg.Kind, names[len(placed)], cfg.Faction))
		placed = append(placed, c.tile)
	}

	return placed
}

// placementScore rates a tile by how open its surroundings are.
func placementScore(reg *Registry, tile *Tile) float64 {
	score := 1.0
	if tile.MovementCost > 0 {
		score = 1.0 / tile.MovementCost
	}
	for _, n := range reg.NeighborsOf(tile.Coord) {
		if n.Traversable && !n.Occupied {
			score += 0.5
		}
	}
	return score
}

func tooClose(coord CubeCoord, existing []*Tile, minDist int) bool {
	for _, t := range existing {
		if Distance(coord, t.Coord) < minDist {
			return true
		}
	}
	return false
}

// generateNames produces procedural placeable names by combining syllables.
func generateNames(rng *rand.Rand, kind PlaceableKind, count int) []string {
	prefixes := []string{
		"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
		"Silver", "Red", "White", "High", "Low", "Oak", "Pine", "Frost",
	}
	var suffixes []string
	switch kind {
	case KindBuilding:
		suffixes = []string{"keep", "hall", "mill", "forge", "tower", "barn"}
	case KindDecoration:
		suffixes = []string{"stone", "shrine", "cairn", "well", "statue"}
	default:
		suffixes = []string{"guard", "scout", "rider", "warden", "bow"}
	}

	// Cap at the number of distinct combinations.
	limit := len(prefixes) * len(suffixes)
	if count > limit {
		count = limit
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)
	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}

	return names
}
