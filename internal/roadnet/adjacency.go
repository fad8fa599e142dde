package roadnet

import (
	"sort"

	"github.com/RoaringBitmap/roaring/roaring64"
)

// Adjacency is an ephemeral undirected view over the connection list,
// rebuilt per traversal query. Directed connections collapse into one
// neighbor relation per node pair (a Dual edge contributes one relation,
// not two) and edges whose endpoints no longer exist are dropped.
type Adjacency struct {
	neighbors map[uint64][]uint64
}

// BuildAdjacency builds a fresh undirected adjacency view from the
// current connections.
func (s *Store) BuildAdjacency() *Adjacency {
	adj := &Adjacency{neighbors: make(map[uint64][]uint64, s.nodes.Len())}
	seen := make(map[ConnKey]struct{}, s.conns.Len())

	itr := s.conns.Iterator()
	for !itr.Done() {
		_, c, _ := itr.Next()
		if _, ok := s.nodes.Get(c.Start); !ok {
			continue
		}
		if _, ok := s.nodes.Get(c.End); !ok {
			continue
		}
		key := ConnKey{Start: c.Start, End: c.End}
		if key.Start > key.End {
			key.Start, key.End = key.End, key.Start
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		adj.neighbors[c.Start] = append(adj.neighbors[c.Start], c.End)
		adj.neighbors[c.End] = append(adj.neighbors[c.End], c.Start)
	}

	for id := range adj.neighbors {
		ns := adj.neighbors[id]
		sort.Slice(ns, func(i, j int) bool { return ns[i] < ns[j] })
	}
	return adj
}

// Neighbors returns the undirected neighbors of a node in ascending order.
func (a *Adjacency) Neighbors(id uint64) []uint64 {
	return a.neighbors[id]
}

// Degree returns the undirected degree of a node.
func (a *Adjacency) Degree(id uint64) int {
	return len(a.neighbors[id])
}

// ShortestPath returns the unweighted shortest node-id path between start
// and goal, inclusive of both ends, following connections in either
// direction. Returns nil if either id is missing or the goal is
// unreachable; start == goal yields [start].
func (s *Store) ShortestPath(start, goal uint64) []uint64 {
	if start == goal {
		return []uint64{start}
	}
	if _, ok := s.nodes.Get(start); !ok {
		return nil
	}
	if _, ok := s.nodes.Get(goal); !ok {
		return nil
	}

	adj := s.BuildAdjacency()

	visited := roaring64.New()
	visited.Add(start)
	predecessors := make(map[uint64]uint64)
	queue := []uint64{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == goal {
			break
		}
		for _, neighbor := range adj.Neighbors(current) {
			if visited.CheckedAdd(neighbor) {
				predecessors[neighbor] = current
				queue = append(queue, neighbor)
			}
		}
	}

	if !visited.Contains(goal) {
		return nil
	}

	path := []uint64{goal}
	for current := goal; current != start; {
		prev, ok := predecessors[current]
		if !ok {
			return nil
		}
		path = append(path, prev)
		current = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// WalkSegmentBoundary follows a chain of degree-2 nodes starting at
// firstNeighbor (away from anchor) until it reaches a segment boundary —
// a node whose undirected degree is not 2 — or loops back onto the path.
// The returned path includes anchor and firstNeighbor.
func (a *Adjacency) WalkSegmentBoundary(anchor, firstNeighbor uint64) []uint64 {
	path := []uint64{anchor, firstNeighbor}
	onPath := roaring64.New()
	onPath.Add(anchor)
	onPath.Add(firstNeighbor)

	previous := anchor
	current := firstNeighbor

	for a.Degree(current) == 2 {
		var next uint64
		advanced := false
		for _, neighbor := range a.Neighbors(current) {
			if neighbor != previous {
				next = neighbor
				advanced = true
				break
			}
		}
		if !advanced || onPath.Contains(next) {
			break
		}
		path = append(path, next)
		onPath.Add(next)
		previous = current
		current = next
	}
	return path
}

// SelectSegment returns the corridor of nodes around anchor, walking each
// neighbor chain out to the nearest segment boundary. When the anchor is
// itself a junction, only the two shortest paths are kept so a junction
// click does not select an entire branching subnetwork. The result starts
// with anchor and contains no duplicates.
func (s *Store) SelectSegment(anchor uint64) []uint64 {
	if _, ok := s.nodes.Get(anchor); !ok {
		return nil
	}

	adj := s.BuildAdjacency()
	neighbors := adj.Neighbors(anchor)
	if len(neighbors) == 0 {
		return []uint64{anchor}
	}

	paths := make([][]uint64, 0, len(neighbors))
	for _, neighbor := range neighbors {
		paths = append(paths, adj.WalkSegmentBoundary(anchor, neighbor))
	}
	if len(paths) > 2 {
		sort.SliceStable(paths, func(i, j int) bool { return len(paths[i]) < len(paths[j]) })
		paths = paths[:2]
	}

	selected := roaring64.New()
	result := []uint64{anchor}
	selected.Add(anchor)
	for _, path := range paths {
		for _, id := range path {
			if selected.CheckedAdd(id) {
				result = append(result, id)
			}
		}
	}
	return result
}
