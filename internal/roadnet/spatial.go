package roadnet

import (
	"math"
	"sort"

	"github.com/benbjohnson/immutable"

	"github.com/route-studio/roadgraph/internal/geo"
)

// SpatialHit is the result of a distance query against the spatial index.
type SpatialHit struct {
	NodeID   uint64
	Distance float32
}

type cellKey struct {
	X, Y int64
}

type spatialEntry struct {
	id  uint64
	pos geo.Point
}

// spatialIndex buckets node positions into a uniform grid. Waypoint
// networks are roughly uniformly distributed over a bounded map, so a
// grid with cell size ~extent/sqrt(n) gives expected O(1) queries
// without tree rebalancing. The index is immutable once built and tagged
// with the store revision it was built from; entries with non-finite
// positions are left out so they never match any query.
type spatialIndex struct {
	rev      uint64
	cells    map[cellKey][]spatialEntry
	cellSize float64
	count    int
	minCell  cellKey
	maxCell  cellKey
}

func buildSpatialIndex(nodes *immutable.Map[uint64, Node], rev uint64) *spatialIndex {
	entries := make([]spatialEntry, 0, nodes.Len())
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	itr := nodes.Iterator()
	for !itr.Done() {
		_, n, _ := itr.Next()
		if !n.Pos.IsFinite() {
			continue
		}
		entries = append(entries, spatialEntry{id: n.ID, pos: n.Pos})
		minX = math.Min(minX, float64(n.Pos.X))
		minY = math.Min(minY, float64(n.Pos.Y))
		maxX = math.Max(maxX, float64(n.Pos.X))
		maxY = math.Max(maxY, float64(n.Pos.Y))
	}

	idx := &spatialIndex{rev: rev, cells: make(map[cellKey][]spatialEntry), count: len(entries)}
	if len(entries) == 0 {
		idx.cellSize = 1
		return idx
	}

	extent := math.Max(maxX-minX, maxY-minY)
	idx.cellSize = extent / math.Sqrt(float64(len(entries)))
	if idx.cellSize <= 0 || math.IsNaN(idx.cellSize) {
		idx.cellSize = 1
	}

	first := true
	for _, e := range entries {
		key := idx.cellOf(e.pos)
		idx.cells[key] = append(idx.cells[key], e)
		if first {
			idx.minCell, idx.maxCell = key, key
			first = false
			continue
		}
		if key.X < idx.minCell.X {
			idx.minCell.X = key.X
		}
		if key.Y < idx.minCell.Y {
			idx.minCell.Y = key.Y
		}
		if key.X > idx.maxCell.X {
			idx.maxCell.X = key.X
		}
		if key.Y > idx.maxCell.Y {
			idx.maxCell.Y = key.Y
		}
	}
	return idx
}

func (idx *spatialIndex) cellOf(p geo.Point) cellKey {
	return cellKey{
		X: int64(math.Floor(float64(p.X) / idx.cellSize)),
		Y: int64(math.Floor(float64(p.Y) / idx.cellSize)),
	}
}

// nearest finds the closest indexed node to the query point using an
// expanding ring of grid cells. The search stops once no cell in the
// next ring can hold a closer candidate. Ties break toward the lowest
// node id.
func (idx *spatialIndex) nearest(query geo.Point) (SpatialHit, bool) {
	if idx.count == 0 || !query.IsFinite() {
		return SpatialHit{}, false
	}

	center := idx.cellOf(query)
	maxRing := chebyshevReach(center, idx.minCell, idx.maxCell)

	bestID := uint64(0)
	bestDistSq := math.Inf(1)
	found := false

	for ring := int64(0); ring <= maxRing; ring++ {
		// A cell at Chebyshev distance r is at least (r-1) cell sizes
		// away from any point inside the center cell.
		if found && float64(ring-1)*idx.cellSize > math.Sqrt(bestDistSq) {
			break
		}
		idx.forEachRingCell(center, ring, func(entries []spatialEntry) {
			for _, e := range entries {
				d := float64(query.DistanceSquared(e.pos))
				if !found || d < bestDistSq || (d == bestDistSq && e.id < bestID) {
					bestDistSq = d
					bestID = e.id
					found = true
				}
			}
		})
	}

	if !found {
		return SpatialHit{}, false
	}
	return SpatialHit{NodeID: bestID, Distance: float32(math.Sqrt(bestDistSq))}, true
}

// forEachRingCell visits the occupied cells whose Chebyshev distance to
// center is exactly ring.
func (idx *spatialIndex) forEachRingCell(center cellKey, ring int64, fn func([]spatialEntry)) {
	if ring == 0 {
		if entries, ok := idx.cells[center]; ok {
			fn(entries)
		}
		return
	}
	for dx := -ring; dx <= ring; dx++ {
		for _, dy := range ringYs(dx, ring) {
			if entries, ok := idx.cells[cellKey{X: center.X + dx, Y: center.Y + dy}]; ok {
				fn(entries)
			}
		}
	}
}

// ringYs returns the dy offsets belonging to the ring perimeter for a
// given dx column.
func ringYs(dx, ring int64) []int64 {
	if dx == -ring || dx == ring {
		ys := make([]int64, 0, 2*ring+1)
		for dy := -ring; dy <= ring; dy++ {
			ys = append(ys, dy)
		}
		return ys
	}
	return []int64{-ring, ring}
}

func chebyshevReach(from, min, max cellKey) int64 {
	reach := absInt64(from.X - min.X)
	if v := absInt64(from.Y - min.Y); v > reach {
		reach = v
	}
	if v := absInt64(max.X - from.X); v > reach {
		reach = v
	}
	if v := absInt64(max.Y - from.Y); v > reach {
		reach = v
	}
	return reach
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// withinRect returns the ids of all nodes inside the inclusive rectangle,
// in ascending order. A degenerate min==max rectangle matches nodes at
// exactly that position; NaN bounds match nothing.
func (idx *spatialIndex) withinRect(min, max geo.Point) []uint64 {
	if idx.count == 0 || !min.IsFinite() || !max.IsFinite() || min.X > max.X || min.Y > max.Y {
		return nil
	}

	rect := geo.Rect{Min: min, Max: max}
	lo := idx.cellOf(min)
	hi := idx.cellOf(max)
	if lo.X < idx.minCell.X {
		lo.X = idx.minCell.X
	}
	if lo.Y < idx.minCell.Y {
		lo.Y = idx.minCell.Y
	}
	if hi.X > idx.maxCell.X {
		hi.X = idx.maxCell.X
	}
	if hi.Y > idx.maxCell.Y {
		hi.Y = idx.maxCell.Y
	}

	var ids []uint64
	for cx := lo.X; cx <= hi.X; cx++ {
		for cy := lo.Y; cy <= hi.Y; cy++ {
			for _, e := range idx.cells[cellKey{X: cx, Y: cy}] {
				if rect.Contains(e.pos) {
					ids = append(ids, e.id)
				}
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// withinRadius returns all nodes within radius of the query point,
// sorted by distance (ties by id). Negative or NaN radii match nothing.
func (idx *spatialIndex) withinRadius(query geo.Point, radius float32) []SpatialHit {
	if idx.count == 0 || !query.IsFinite() {
		return nil
	}
	r := float64(radius)
	if math.IsNaN(r) || r < 0 {
		return nil
	}

	min := geo.Pt(query.X-radius, query.Y-radius)
	max := geo.Pt(query.X+radius, query.Y+radius)
	lo := idx.cellOf(min)
	hi := idx.cellOf(max)
	if lo.X < idx.minCell.X {
		lo.X = idx.minCell.X
	}
	if lo.Y < idx.minCell.Y {
		lo.Y = idx.minCell.Y
	}
	if hi.X > idx.maxCell.X {
		hi.X = idx.maxCell.X
	}
	if hi.Y > idx.maxCell.Y {
		hi.Y = idx.maxCell.Y
	}

	rSq := r * r
	var hits []SpatialHit
	for cx := lo.X; cx <= hi.X; cx++ {
		for cy := lo.Y; cy <= hi.Y; cy++ {
			for _, e := range idx.cells[cellKey{X: cx, Y: cy}] {
				dSq := float64(query.DistanceSquared(e.pos))
				if dSq <= rSq {
					hits = append(hits, SpatialHit{NodeID: e.id, Distance: float32(math.Sqrt(dSq))})
				}
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].NodeID < hits[j].NodeID
	})
	return hits
}

// ---------------------------------------------------------------------------
// Store query surface
// ---------------------------------------------------------------------------

// ensureSpatial rebuilds the spatial index if it is missing or was built
// at an older revision. Queries never answer from a stale index.
func (s *Store) ensureSpatial() *spatialIndex {
	if s.spatial == nil || s.spatial.rev != s.rev {
		s.spatial = buildSpatialIndex(s.nodes, s.rev)
	}
	return s.spatial
}

// EnsureSpatialIndex builds the spatial index eagerly. Useful before
// handing a snapshot to concurrent readers, which must not trigger the
// lazy rebuild themselves.
func (s *Store) EnsureSpatialIndex() {
	s.ensureSpatial()
}

// NearestNode returns the closest node to the query point, or false if
// the store is empty or the query is not finite.
func (s *Store) NearestNode(query geo.Point) (SpatialHit, bool) {
	return s.ensureSpatial().nearest(query)
}

// NodesWithinRect returns the ids of all nodes inside the inclusive
// rectangle in ascending order.
func (s *Store) NodesWithinRect(min, max geo.Point) []uint64 {
	return s.ensureSpatial().withinRect(min, max)
}

// NodesWithinRadius returns all nodes within radius of the query point,
// sorted by distance.
func (s *Store) NodesWithinRadius(query geo.Point, radius float32) []SpatialHit {
	return s.ensureSpatial().withinRadius(query, radius)
}
