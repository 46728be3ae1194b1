// Grid generation using layered simplex noise.
// Lays out a rectangular offset grid, samples elevation and moisture per tile,
// and derives terrain and traversability from them.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds grid generation parameters.
type GenConfig struct {
	Cols        int     // Columns per chunk
	Rows        int     // Rows per chunk
	Seed        int64   // Random seed (0 = random)
	Layout      Layout  // Offset convention for every tile in the grid
	WaterLevel  float64 // Elevation below which tiles are water (0.0–1.0)
	MountainLvl float64 // Elevation above which tiles are impassable (0.0–1.0)
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Cols:        32,
		Rows:        24,
		Seed:        0,
		Layout:      LayoutOddR,
		WaterLevel:  0.28,
		MountainLvl: 0.78,
	}
}

// SmallTestConfig returns a tiny, fully deterministic grid.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Cols:        6,
		Rows:        5,
		Seed:        42,
		Layout:      LayoutOddR,
		WaterLevel:  0.30,
		MountainLvl: 0.80,
	}
}

// ResolveSeed returns cfg with a zero Seed replaced by a random one, so that
// several chunks can be generated from the same noise field.
func (cfg GenConfig) ResolveSeed() GenConfig {
	for cfg.Seed == 0 {
		cfg.Seed = rand.Int63()
	}
	return cfg
}

// Generate creates a registry holding one cols×rows chunk at offset (0, 0).
func Generate(cfg GenConfig) *Registry {
	reg := NewRegistry()
	GenerateChunk(reg, cfg, 0, 0)
	return reg
}

// GenerateChunk lays a cols×rows block of tiles into reg with its top-left
// offset at (originCol, originRow), then rebuilds adjacency so the chunk joins
// up with anything already registered.
// Noise is sampled in world space, so chunks generated with the same non-zero
// seed line up seamlessly. A zero seed is drawn afresh on every call; use
// ResolveSeed first when generating more than one chunk.
func GenerateChunk(reg *Registry, cfg GenConfig, originCol, originRow int) int {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)

	placed := 0
	for row := originRow; row < originRow+cfg.Rows; row++ {
		for col := originCol; col < originCol+cfg.Cols; col++ {
			coord := cfg.Layout.ToCube(OffsetCoord{Col: col, Row: row})

			// Axial to cartesian: x = q + r/2, y = r*sqrt(3)/2.
			x := float64(coord.Q) + float64(coord.R)*0.5
			y := float64(coord.R) * math.Sqrt(3.0) / 2.0

			elev := octaveNoise(elevNoise, x, y, 4, 0.09, 0.5)
			moist := octaveNoise(moistNoise, x, y, 3, 0.07, 0.5)

			reg.Register(newGeneratedTile(coord, deriveTerrain(elev, moist, cfg)))
			placed++
		}
	}

	reg.RebuildAllNeighbors()
	return placed
}

// deriveTerrain determines terrain type from elevation and moisture.
func deriveTerrain(elev, moist float64, cfg GenConfig) Terrain {
	if elev < cfg.WaterLevel {
		return TerrainWater
	}
	if elev > cfg.MountainLvl {
		return TerrainMountain
	}
	if elev > (cfg.MountainLvl+cfg.WaterLevel)/2+0.15 {
		return TerrainHills
	}
	if moist > 0.55 {
		return TerrainForest
	}
	return TerrainGrass
}

func newGeneratedTile(coord CubeCoord, terrain Terrain) *Tile {
	tile := NewTile(coord)
	tile.Terrain = terrain
	switch terrain {
	case TerrainForest:
		tile.MovementCost = 2
	case TerrainHills:
		tile.MovementCost = 3
	case TerrainMountain:
		tile.Traversable = false
	case TerrainWater:
		tile.Traversable = false
		tile.Water = true
	}
	return tile
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(reg *Registry) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, tile := range reg.tiles {
		counts[tile.Terrain]++
	}
	return counts
}
