// Package world provides the hex coordinate system, tiles, and the tile registry
// that owns the adjacency graph.
// Cube coordinates (q, r, s) with q+r+s == 0 are the canonical key everywhere.
package world

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// CubeCoord represents a position on the hex grid using cube coordinates.
type CubeCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
	S int `json:"s"`
}

// Cube builds a cube coordinate from axial (q, r), deriving s.
func Cube(q, r int) CubeCoord {
	return CubeCoord{Q: q, R: r, S: -q - r}
}

// Valid reports whether the coordinate satisfies q+r+s == 0.
func (c CubeCoord) Valid() bool {
	return c.Q+c.R+c.S == 0
}

// Add returns the component-wise sum of two coordinates.
func (c CubeCoord) Add(o CubeCoord) CubeCoord {
	return CubeCoord{Q: c.Q + o.Q, R: c.R + o.R, S: c.S + o.S}
}

// Sub returns the component-wise difference c - o.
func (c CubeCoord) Sub(o CubeCoord) CubeCoord {
	return CubeCoord{Q: c.Q - o.Q, R: c.R - o.R, S: c.S - o.S}
}

func (c CubeCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.Q, c.R, c.S)
}

// Directions defines the six unit offsets in probe order.
// The order is fixed; NeighborsOf results follow it.
var Directions = [6]CubeCoord{
	{Q: 1, R: 0, S: -1},
	{Q: 1, R: -1, S: 0},
	{Q: 0, R: -1, S: 1},
	{Q: -1, R: 0, S: 1},
	{Q: -1, R: 1, S: 0},
	{Q: 0, R: 1, S: -1},
}

// NeighborOffsets returns the six unit offsets of a cube coordinate. They are
// the same everywhere; StoredNeighborOffsets is the row-parity counterpart.
func NeighborOffsets(_ CubeCoord) [6]CubeCoord {
	return Directions
}

// Neighbors returns the six adjacent coordinates in probe order.
func (c CubeCoord) Neighbors() [6]CubeCoord {
	var result [6]CubeCoord
	for i, dir := range NeighborOffsets(c) {
		result[i] = c.Add(dir)
	}
	return result
}

// IsAdjacent reports whether a and b are one step apart.
func IsAdjacent(a, b CubeCoord) bool {
	return Distance(a, b) == 1
}

// Distance returns the hex (grid step) distance between two coordinates.
func Distance(a, b CubeCoord) int {
	d := a.Sub(b)
	// Max of the three absolute differences in cube coordinates.
	return max(abs(d.Q), abs(d.R), abs(d.S))
}

// CubeStraightLine returns the Euclidean length of the cube vector between a and b,
// truncated toward zero.
func CubeStraightLine(a, b CubeCoord) int {
	d := a.Sub(b)
	sq := float64(d.Q*d.Q + d.R*d.R + d.S*d.S)
	return int(math.Sqrt(sq))
}

func abs[T constraints.Signed](x T) T {
	if x < 0 {
		return -x
	}
	return x
}
