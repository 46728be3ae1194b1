package world

import (
	"fmt"
	"sort"
)

// Registry owns every tile in the world, keyed by cube coordinate, together with
// the adjacency graph between them.
//
// Adjacency is kept symmetric after every mutating call: if B is a neighbor of A
// then A is a neighbor of B. A Registry is not safe for concurrent use.
type Registry struct {
	tiles map[CubeCoord]*Tile
	adj   map[CubeCoord]map[CubeCoord]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tiles: make(map[CubeCoord]*Tile),
		adj:   make(map[CubeCoord]map[CubeCoord]struct{}),
	}
}

// Register inserts tile at its coordinate, replacing any tile already there,
// and links it with every registered neighbor in both directions.
func (reg *Registry) Register(tile *Tile) {
	if tile == nil {
		return
	}
	reg.tiles[tile.Coord] = tile
	reg.link(tile.Coord)
}

// Unregister removes tile and every edge that points at it.
// It is a no-op if tile is not the tile registered at its coordinate.
func (reg *Registry) Unregister(tile *Tile) {
	if tile == nil {
		return
	}
	if cur, ok := reg.tiles[tile.Coord]; !ok || cur != tile {
		return
	}
	reg.UnregisterAt(tile.Coord)
}

// UnregisterAt removes whatever tile is registered at coord.
// It returns the removed tile, or nil if there was none.
func (reg *Registry) UnregisterAt(coord CubeCoord) *Tile {
	tile, ok := reg.tiles[coord]
	if !ok {
		return nil
	}
	for n := range reg.adj[coord] {
		delete(reg.adj[n], coord)
	}
	delete(reg.adj, coord)
	delete(reg.tiles, coord)
	return tile
}

// Lookup returns the tile at coord.
func (reg *Registry) Lookup(coord CubeCoord) (*Tile, bool) {
	tile, ok := reg.tiles[coord]
	return tile, ok
}

// Contains reports whether a tile is registered at coord.
func (reg *Registry) Contains(coord CubeCoord) bool {
	_, ok := reg.tiles[coord]
	return ok
}

// NeighborsOf returns the registered neighbors of coord in Directions order.
// Missing directions are skipped.
func (reg *Registry) NeighborsOf(coord CubeCoord) []*Tile {
	set := reg.adj[coord]
	if len(set) == 0 {
		return nil
	}
	result := make([]*Tile, 0, len(set))
	for _, n := range coord.Neighbors() {
		if _, ok := set[n]; !ok {
			continue
		}
		if tile, ok := reg.tiles[n]; ok {
			result = append(result, tile)
		}
	}
	return result
}

// RebuildAllNeighbors discards the adjacency graph and recomputes it from the
// registered coordinates. Run it once after a bulk load.
func (reg *Registry) RebuildAllNeighbors() {
	reg.adj = make(map[CubeCoord]map[CubeCoord]struct{}, len(reg.tiles))
	for coord := range reg.tiles {
		reg.link(coord)
	}
}

// link recomputes the neighbor set of coord and adds the back-references.
func (reg *Registry) link(coord CubeCoord) {
	set := make(map[CubeCoord]struct{}, 6)
	for _, n := range coord.Neighbors() {
		if _, ok := reg.tiles[n]; !ok {
			continue
		}
		set[n] = struct{}{}
		back := reg.adj[n]
		if back == nil {
			back = make(map[CubeCoord]struct{}, 6)
			reg.adj[n] = back
		}
		back[coord] = struct{}{}
	}
	reg.adj[coord] = set
}

// Len returns the number of registered tiles.
func (reg *Registry) Len() int {
	return len(reg.tiles)
}

// EdgeCount returns the number of undirected adjacency edges.
func (reg *Registry) EdgeCount() int {
	n := 0
	for _, set := range reg.adj {
		n += len(set)
	}
	return n / 2
}

// Tiles returns every registered tile ordered by row then column.
func (reg *Registry) Tiles() []*Tile {
	result := make([]*Tile, 0, len(reg.tiles))
	for _, t := range reg.tiles {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Coord, result[j].Coord
		if a.R != b.R {
			return a.R < b.R
		}
		return a.Q < b.Q
	})
	return result
}

// Clear removes every tile.
func (reg *Registry) Clear() {
	reg.tiles = make(map[CubeCoord]*Tile)
	reg.adj = make(map[CubeCoord]map[CubeCoord]struct{})
}

// String returns a summary of the registry.
func (reg *Registry) String() string {
	return fmt.Sprintf("Registry(tiles=%d, edges=%d)", reg.Len(), reg.EdgeCount())
}
