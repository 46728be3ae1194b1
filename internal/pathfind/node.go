package pathfind

import (
	"math"

	"github.com/talgya/hexworld/internal/world"
)

// baseStepCost is the cost of entering any tile when movement cost weighting is off.
const baseStepCost = 1

// Node wraps a tile for the duration of one search.
type Node struct {
	Tile   *world.Tile
	Parent *Node // Node this one was reached from

	BaseCost          int
	CostFromOrigin    int // Metric distance back to the origin tile
	CostToDestination int // Metric distance on to the destination tile
	PathCost          int // Score of the parent when this node was reached

	seq   int // Insertion order, last tie-break
	index int // Position in the frontier heap
}

// Score is the ranking key: accumulated path cost plus the step cost plus the
// distances to both endpoints.
func (n *Node) Score() int {
	return n.PathCost + n.BaseCost + n.CostFromOrigin + n.CostToDestination
}

func stepCost(tile *world.Tile, weighted bool) int {
	if !weighted {
		return baseStepCost
	}
	if tile.MovementCost <= 0 {
		return 0
	}
	return int(math.Ceil(tile.MovementCost))
}

// frontier is a min-heap of open nodes ordered by score, then by remaining
// distance, then by insertion order.
type frontier []*Node

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	si, sj := f[i].Score(), f[j].Score()
	if si != sj {
		return si < sj
	}
	if f[i].CostToDestination != f[j].CostToDestination {
		return f[i].CostToDestination < f[j].CostToDestination
	}
	return f[i].seq < f[j].seq
}

func (f frontier) Swap(i, j int) {
	f[i], f[j] = f[j], f[i]
	f[i].index = i
	f[j].index = j
}

func (f *frontier) Push(x any) {
	n := x.(*Node)
	n.index = len(*f)
	*f = append(*f, n)
}

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*f = old[:n-1]
	return item
}
