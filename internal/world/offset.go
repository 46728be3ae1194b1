package world

import (
	"fmt"
	"math"
)

// OffsetCoord is a rectangular (column, row) grid position.
type OffsetCoord struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Layout selects which rows are shoved right in a rectangular grid.
// A grid must use one layout for every tile; the two are not interchangeable.
type Layout uint8

const (
	LayoutOddR  Layout = iota // Odd rows shoved right (default)
	LayoutEvenR               // Even rows shoved right
)

// ParseLayout accepts "odd", "odd-r", "even" or "even-r".
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "odd", "odd-r", "oddr", "":
		return LayoutOddR, nil
	case "even", "even-r", "evenr":
		return LayoutEvenR, nil
	}
	return LayoutOddR, fmt.Errorf("unknown layout %q", s)
}

func (l Layout) String() string {
	if l == LayoutEvenR {
		return "even-r"
	}
	return "odd-r"
}

// OffsetToCube converts using the odd-row-shoved-right convention.
func OffsetToCube(col, row int) CubeCoord {
	q := col - (row-(row&1))/2
	return Cube(q, row)
}

// OffsetToCubeEvenR converts using the even-row-shoved-right convention.
func OffsetToCubeEvenR(col, row int) CubeCoord {
	q := col - (row+(row&1))/2
	return Cube(q, row)
}

// ToCube converts an offset coordinate with this layout.
func (l Layout) ToCube(o OffsetCoord) CubeCoord {
	if l == LayoutEvenR {
		return OffsetToCubeEvenR(o.Col, o.Row)
	}
	return OffsetToCube(o.Col, o.Row)
}

// ToOffset is the inverse of ToCube.
func (l Layout) ToOffset(c CubeCoord) OffsetCoord {
	if l == LayoutEvenR {
		return OffsetCoord{Col: c.Q + (c.R+(c.R&1))/2, Row: c.R}
	}
	return OffsetCoord{Col: c.Q + (c.R-(c.R&1))/2, Row: c.R}
}

// StraightLine returns the Euclidean distance between a and b measured on
// their offset (column, row) positions in this layout, truncated toward zero.
func (l Layout) StraightLine(a, b CubeCoord) int {
	oa, ob := l.ToOffset(a), l.ToOffset(b)
	dc, dr := oa.Col-ob.Col, oa.Row-ob.Row
	return int(math.Sqrt(float64(dc*dc + dr*dr)))
}

// StoredCoord is the (x, layer, z) vector placed tiles are recorded with:
// x is the column, z the row, and layer the stacking height.
// Layer plays no part in adjacency.
type StoredCoord struct {
	X     int `json:"x"`
	Layer int `json:"layer"`
	Z     int `json:"z"`
}

// StoredFromCube returns the stored coordinate of c on the given layer.
func StoredFromCube(c CubeCoord, layer int) StoredCoord {
	o := LayoutOddR.ToOffset(c)
	return StoredCoord{X: o.Col, Layer: layer, Z: o.Row}
}

// Cube converts a stored coordinate using the odd-r rule on (X, Z).
func (s StoredCoord) Cube() CubeCoord {
	return OffsetToCube(s.X, s.Z)
}

// Add returns the component-wise sum.
func (s StoredCoord) Add(o StoredCoord) StoredCoord {
	return StoredCoord{X: s.X + o.X, Layer: s.Layer + o.Layer, Z: s.Z + o.Z}
}

// Row-parity neighbor tables for stored coordinates.
var (
	evenRowOffsets = [6]StoredCoord{
		{X: 1}, {Z: 1}, {X: -1, Z: 1},
		{X: -1}, {X: -1, Z: -1}, {Z: -1},
	}
	oddRowOffsets = [6]StoredCoord{
		{X: 1}, {X: 1, Z: 1}, {Z: 1},
		{X: -1}, {Z: -1}, {X: 1, Z: -1},
	}
)

// StoredNeighborOffsets returns the six offsets for s, chosen by the parity of s.Z.
func StoredNeighborOffsets(s StoredCoord) [6]StoredCoord {
	if s.Z&1 == 0 {
		return evenRowOffsets
	}
	return oddRowOffsets
}

// StoredNeighbors returns the six stored coordinates adjacent to s.
func StoredNeighbors(s StoredCoord) [6]StoredCoord {
	var result [6]StoredCoord
	for i, off := range StoredNeighborOffsets(s) {
		result[i] = s.Add(off)
	}
	return result
}
