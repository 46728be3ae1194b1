// Package pathfind computes routes between tiles over the registry's
// adjacency graph using a cost-ordered best-first search.
package pathfind

import (
	"container/heap"
	"slices"

	"github.com/talgya/hexworld/internal/world"
)

// Graph supplies adjacency. *world.Registry satisfies it.
type Graph interface {
	NeighborsOf(coord world.CubeCoord) []*world.Tile
}

// Metric measures the distance between two coordinates.
type Metric func(a, b world.CubeCoord) int

// Options configures a Finder. The zero value ranks by straight-line distance
// between odd-r offset positions with a constant step cost.
type Options struct {
	// Metric used for both endpoint distances. Defaults to Layout.StraightLine.
	Metric Metric
	// Layout of the grid the default metric measures in.
	Layout world.Layout
	// WeightByMovementCost uses each tile's MovementCost (rounded up) as its
	// step cost instead of the constant 1.
	WeightByMovementCost bool
}

// Finder runs path queries against a Graph.
type Finder struct {
	graph    Graph
	metric   Metric
	weighted bool
}

// NewFinder creates a finder over g.
func NewFinder(g Graph, opts Options) *Finder {
	metric := opts.Metric
	if metric == nil {
		metric = opts.Layout.StraightLine
	}
	return &Finder{
		graph:    g,
		metric:   metric,
		weighted: opts.WeightByMovementCost,
	}
}

// Result is the outcome of one search.
type Result struct {
	Path     []*world.Tile // Origin first, destination last; empty if unreachable
	Expanded int           // Nodes moved to the closed set
}

// Found reports whether the search reached the destination.
func (r Result) Found() bool {
	return len(r.Path) > 0
}

// FindPath returns the route from origin to destination, inclusive of both.
// The result is empty (never nil) when the destination cannot be reached.
func (f *Finder) FindPath(origin, destination *world.Tile) []*world.Tile {
	return f.Search(origin, destination).Path
}

// Search runs the query and reports how much of the graph it touched.
//
// Traversability is only checked when expanding outward, so a popped
// destination matches even if it is not traversable itself. Closed nodes are
// never reopened.
func (f *Finder) Search(origin, destination *world.Tile) Result {
	if origin == nil || destination == nil {
		return Result{Path: []*world.Tile{}}
	}

	open := &frontier{}
	heap.Init(open)
	openIndex := make(map[world.CubeCoord]*Node)
	closed := make(map[world.CubeCoord]*Node)
	seq := 0

	push := func(n *Node) {
		n.seq = seq
		seq++
		heap.Push(open, n)
		openIndex[n.Tile.Coord] = n
	}

	push(f.newNode(origin, origin, destination, 0))

	for open.Len() > 0 {
		current := heap.Pop(open).(*Node)
		coord := current.Tile.Coord
		delete(openIndex, coord)
		closed[coord] = current

		if coord == destination.Coord {
			return Result{
				Path:     reconstruct(current, origin.Coord),
				Expanded: len(closed),
			}
		}

		score := current.Score()
		for _, neighbor := range f.graph.NeighborsOf(coord) {
			if !neighbor.Traversable {
				continue
			}
			if _, done := closed[neighbor.Coord]; done {
				continue
			}

			candidate := f.newNode(neighbor, origin, destination, score)
			candidate.Parent = current

			existing, queued := openIndex[neighbor.Coord]
			if !queued {
				push(candidate)
				continue
			}
			if candidate.Score() < existing.Score() {
				existing.Parent = current
				existing.PathCost = candidate.PathCost
				heap.Fix(open, existing.index)
			}
		}
	}

	return Result{Path: []*world.Tile{}, Expanded: len(closed)}
}

func (f *Finder) newNode(tile, origin, destination *world.Tile, pathCost int) *Node {
	return &Node{
		Tile:              tile,
		BaseCost:          stepCost(tile, f.weighted),
		CostFromOrigin:    f.metric(tile.Coord, origin.Coord),
		CostToDestination: f.metric(tile.Coord, destination.Coord),
		PathCost:          pathCost,
	}
}

// reconstruct walks parent links back to the origin and returns the tiles in
// origin-to-goal order.
func reconstruct(goal *Node, origin world.CubeCoord) []*world.Tile {
	var path []*world.Tile
	for n := goal; n != nil; n = n.Parent {
		path = append(path, n.Tile)
		if n.Tile.Coord == origin {
			break
		}
	}
	slices.Reverse(path)
	return path
}

// Cost sums the step costs along a path, excluding the origin tile.
func Cost(path []*world.Tile) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i].MovementCost
	}
	return total
}
