package roadnet

import (
	"sort"

	"github.com/RoaringBitmap/roaring/roaring64"
)

// MergeReport summarizes a duplicate-node merge pass.
type MergeReport struct {
	RemovedNodes           int
	DuplicateGroups        int
	RemappedConnections    int
	RemovedSelfConnections int
	RemappedMarkers        int
}

// HadDuplicates reports whether the pass removed anything.
func (r MergeReport) HadDuplicates() bool {
	return r.RemovedNodes > 0
}

// unionFind is a plain path-compressing union-find over node ids.
type unionFind struct {
	parent map[uint64]uint64
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[uint64]uint64)}
}

func (u *unionFind) find(id uint64) uint64 {
	root, ok := u.parent[id]
	if !ok {
		u.parent[id] = id
		return id
	}
	if root == id {
		return id
	}
	root = u.find(root)
	u.parent[id] = root
	return root
}

func (u *unionFind) union(a, b uint64) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// Keep the lowest id as root so the canonical pick falls out directly.
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}

// duplicateGroups partitions nodes into proximity groups where any two
// members are transitively within threshold Euclidean distance, using
// spatial-index range queries per node instead of pairwise comparison.
// Returns the duplicate→canonical remap and the number of groups that
// contain more than one node. A non-positive or NaN threshold produces
// no groups.
func (s *Store) duplicateGroups(threshold float32) (remap map[uint64]uint64, groups int) {
	remap = make(map[uint64]uint64)
	if !(threshold > 0) {
		return remap, 0
	}

	idx := s.ensureSpatial()
	uf := newUnionFind()

	ids := s.NodeIDs()
	for _, id := range ids {
		n, ok := s.nodes.Get(id)
		if !ok || !n.Pos.IsFinite() {
			continue
		}
		for _, hit := range idx.withinRadius(n.Pos, threshold) {
			if hit.NodeID != id {
				uf.union(id, hit.NodeID)
			}
		}
	}

	// Every touched id was unioned with at least one other node, so every
	// root here represents a group of size > 1.
	roots := make(map[uint64]struct{})
	for _, id := range ids {
		if _, touched := uf.parent[id]; !touched {
			continue
		}
		root := uf.find(id)
		roots[root] = struct{}{}
		if id != root {
			remap[id] = root
		}
	}
	return remap, len(roots)
}

// CountDuplicates performs the clustering step of Deduplicate as a dry
// run: it returns how many nodes a merge at this threshold would remove
// and how many duplicate groups exist, without mutating anything.
func (s *Store) CountDuplicates(threshold float32) (removedNodes, duplicateGroups int) {
	remap, groups := s.duplicateGroups(threshold)
	return len(remap), groups
}

// Deduplicate merges all nodes that lie transitively within threshold of
// each other into the group member with the lowest id. Connections are
// rewritten onto the canonical ids; connections that degenerate into
// self-loops are dropped and tallied. Markers on removed nodes move to
// the canonical node unless it already carries one. The pass is a single
// synchronous batch; a second call at the same threshold removes nothing.
func (s *Store) Deduplicate(threshold float32) MergeReport {
	remap, groups := s.duplicateGroups(threshold)
	if len(remap) == 0 {
		return MergeReport{}
	}

	report := MergeReport{
		RemovedNodes:    len(remap),
		DuplicateGroups: groups,
	}

	removed := roaring64.New()
	for id := range remap {
		removed.Add(id)
	}

	// Rewrite connections in deterministic key order so collisions between
	// remapped edges resolve the same way every run.
	oldConns := s.Connections()
	newConns := s.conns
	for _, c := range oldConns {
		newConns = newConns.Delete(c.Key())
	}
	for _, c := range oldConns {
		origStart, origEnd := c.Start, c.End
		if canonical, ok := remap[c.Start]; ok {
			c.Start = canonical
		}
		if canonical, ok := remap[c.End]; ok {
			c.End = canonical
		}

		if c.Start == c.End {
			report.RemovedSelfConnections++
			continue
		}

		if c.Start != origStart || c.End != origEnd {
			report.RemappedConnections++
			sn, sok := s.nodes.Get(c.Start)
			en, eok := s.nodes.Get(c.End)
			if sok && eok {
				c.UpdateGeometry(sn.Pos, en.Pos)
			}
		}

		if existing, ok := newConns.Get(c.Key()); ok {
			// Merged edges keep the stronger traversability: Dual wins.
			if c.Direction == DirDual && existing.Direction != DirDual {
				existing.Direction = DirDual
				newConns = newConns.Set(existing.Key(), existing)
			}
			continue
		}
		newConns = newConns.Set(c.Key(), c)
	}
	s.conns = newConns

	// Drop the non-canonical nodes.
	iter := removed.Iterator()
	for iter.HasNext() {
		s.nodes = s.nodes.Delete(iter.Next())
	}
	s.markDirty()

	// Move markers onto canonical nodes. Sorted order means the canonical
	// node's own marker (lowest id) claims the slot first; later arrivals
	// are dropped per the one-marker-per-node rule.
	oldMarkers := s.Markers()
	sort.Slice(oldMarkers, func(i, j int) bool { return oldMarkers[i].NodeID < oldMarkers[j].NodeID })
	newMarkers := s.markers
	for _, m := range oldMarkers {
		canonical, ok := remap[m.NodeID]
		if !ok {
			continue
		}
		newMarkers = newMarkers.Delete(m.NodeID)
		report.RemappedMarkers++
		if _, taken := newMarkers.Get(canonical); taken {
			continue
		}
		m.NodeID = canonical
		newMarkers = newMarkers.Set(canonical, m)
	}
	s.markers = newMarkers

	return report
}
