package roadnet

import (
	"errors"
	"sort"

	"github.com/benbjohnson/immutable"

	"github.com/route-studio/roadgraph/internal/geo"
)

var (
	// ErrDuplicateNode is returned when adding a node whose id is taken.
	ErrDuplicateNode = errors.New("node id already exists")
	// ErrUnknownNode is returned when a record references a missing node.
	ErrUnknownNode = errors.New("node not found")
	// ErrSelfLoop is returned when a connection would start and end on the
	// same node.
	ErrSelfLoop = errors.New("connection endpoints are identical")
)

// connKeyHasher hashes ConnKey for the persistent connection map.
type connKeyHasher struct{}

func (connKeyHasher) Hash(k ConnKey) uint32 {
	h := k.Start*0x9e3779b97f4a7c15 + k.End
	return uint32(h ^ (h >> 32))
}

func (connKeyHasher) Equal(a, b ConnKey) bool {
	return a == b
}

// Store is the waypoint graph store: node, connection, and marker tables
// plus a revision-tagged spatial index. It is the only contract the rest
// of the editor sees.
//
// The tables are persistent (structurally shared) maps, so Clone is O(1)
// and a subsequent mutation copies only the touched branches. The store
// assumes exclusive access per instance: single writer, no internal
// locking. Wrap it in a Handle for cross-goroutine sharing.
type Store struct {
	nodes   *immutable.Map[uint64, Node]
	conns   *immutable.Map[ConnKey, Connection]
	markers *immutable.Map[uint64, Marker]

	// rev counts committed node mutations. The spatial index records the
	// revision it was built from; a mismatch means it is stale and must be
	// rebuilt before it may answer a query.
	rev     uint64
	spatial *spatialIndex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nodes:   immutable.NewMap[uint64, Node](nil),
		conns:   immutable.NewMap[ConnKey, Connection](connKeyHasher{}),
		markers: immutable.NewMap[uint64, Marker](nil),
	}
}

// Clone returns an independent snapshot of the store. The underlying
// tables are structurally shared, so this is O(1); mutations on either
// side never affect the other.
func (s *Store) Clone() *Store {
	cp := *s
	return &cp
}

// markDirty records a node mutation so the spatial index rebuilds before
// the next query.
func (s *Store) markDirty() {
	s.rev++
}

// ---------------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------------

// AddNode inserts a node. Fails with ErrDuplicateNode if the id is taken;
// the store is left unchanged.
func (s *Store) AddNode(n Node) error {
	if _, ok := s.nodes.Get(n.ID); ok {
		return ErrDuplicateNode
	}
	s.nodes = s.nodes.Set(n.ID, n)
	s.markDirty()
	return nil
}

// Node returns the node with the given id.
func (s *Store) Node(id uint64) (Node, bool) {
	return s.nodes.Get(id)
}

// RemoveNode removes a node and all connections attached to it. Markers
// are not cascaded here; the editing layer decides when to call
// RemoveMarker or RemoveOrphanMarkers. Returns false if the id is unknown.
func (s *Store) RemoveNode(id uint64) bool {
	if _, ok := s.nodes.Get(id); !ok {
		return false
	}
	s.nodes = s.nodes.Delete(id)

	var dead []ConnKey
	itr := s.conns.Iterator()
	for !itr.Done() {
		key, _, _ := itr.Next()
		if key.Start == id || key.End == id {
			dead = append(dead, key)
		}
	}
	for _, key := range dead {
		s.conns = s.conns.Delete(key)
	}
	s.markDirty()
	return true
}

// MoveNode mutates a node's position in place. The caller must trigger
// RebuildConnectionGeometry afterwards for attached connections. Returns
// false if the id is unknown.
func (s *Store) MoveNode(id uint64, pos geo.Point) bool {
	n, ok := s.nodes.Get(id)
	if !ok {
		return false
	}
	if n.Pos == pos {
		return true
	}
	n.Pos = pos
	s.nodes = s.nodes.Set(id, n)
	s.markDirty()
	return true
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	return s.nodes.Len()
}

// NodeIDs returns all node ids in ascending order.
func (s *Store) NodeIDs() []uint64 {
	ids := make([]uint64, 0, s.nodes.Len())
	itr := s.nodes.Iterator()
	for !itr.Done() {
		id, _, _ := itr.Next()
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ForEachNode calls fn for every node until fn returns false. Iteration
// order is unspecified; use NodeIDs for deterministic order.
func (s *Store) ForEachNode(fn func(Node) bool) {
	itr := s.nodes.Iterator()
	for !itr.Done() {
		_, n, _ := itr.Next()
		if !fn(n) {
			return
		}
	}
}

// NextNodeID returns the smallest id greater than every assigned id.
func (s *Store) NextNodeID() uint64 {
	var max uint64
	itr := s.nodes.Iterator()
	for !itr.Done() {
		id, _, _ := itr.Next()
		if id > max {
			max = id
		}
	}
	return max + 1
}

// ---------------------------------------------------------------------------
// Connections
// ---------------------------------------------------------------------------

// AddConnection inserts a connection. Self-loops and connections whose
// endpoints do not exist are rejected atomically with a typed error.
// Inserting over an existing (start, end) pair replaces the old record.
func (s *Store) AddConnection(c Connection) error {
	if c.Start == c.End {
		return ErrSelfLoop
	}
	if _, ok := s.nodes.Get(c.Start); !ok {
		return ErrUnknownNode
	}
	if _, ok := s.nodes.Get(c.End); !ok {
		return ErrUnknownNode
	}
	s.conns = s.conns.Set(c.Key(), c)
	return nil
}

// HasConnection reports whether the exact (start, end) connection exists.
func (s *Store) HasConnection(start, end uint64) bool {
	_, ok := s.conns.Get(ConnKey{Start: start, End: end})
	return ok
}

// FindConnection returns the exact (start, end) connection.
func (s *Store) FindConnection(start, end uint64) (Connection, bool) {
	return s.conns.Get(ConnKey{Start: start, End: end})
}

// FindConnectionsBetween returns the connections between two nodes in
// either direction.
func (s *Store) FindConnectionsBetween(a, b uint64) []Connection {
	out := make([]Connection, 0, 2)
	if c, ok := s.conns.Get(ConnKey{Start: a, End: b}); ok {
		out = append(out, c)
	}
	if c, ok := s.conns.Get(ConnKey{Start: b, End: a}); ok {
		out = append(out, c)
	}
	return out
}

// RemoveConnection removes the exact (start, end) connection. Returns
// false if it does not exist.
func (s *Store) RemoveConnection(start, end uint64) bool {
	key := ConnKey{Start: start, End: end}
	if _, ok := s.conns.Get(key); !ok {
		return false
	}
	s.conns = s.conns.Delete(key)
	return true
}

// RemoveConnectionsBetween removes the connections between two nodes in
// both directions and returns how many were removed.
func (s *Store) RemoveConnectionsBetween(a, b uint64) int {
	removed := 0
	if s.RemoveConnection(a, b) {
		removed++
	}
	if s.RemoveConnection(b, a) {
		removed++
	}
	return removed
}

// SetConnectionDirection updates the direction of an existing connection.
func (s *Store) SetConnectionDirection(start, end uint64, dir Direction) bool {
	key := ConnKey{Start: start, End: end}
	c, ok := s.conns.Get(key)
	if !ok {
		return false
	}
	c.Direction = dir
	s.conns = s.conns.Set(key, c)
	return true
}

// SetConnectionPriority updates the priority of an existing connection.
func (s *Store) SetConnectionPriority(start, end uint64, prio Priority) bool {
	key := ConnKey{Start: start, End: end}
	c, ok := s.conns.Get(key)
	if !ok {
		return false
	}
	c.Priority = prio
	s.conns = s.conns.Set(key, c)
	return true
}

// InvertConnection swaps start and end of an existing connection and
// refreshes its cached geometry.
func (s *Store) InvertConnection(start, end uint64) bool {
	key := ConnKey{Start: start, End: end}
	c, ok := s.conns.Get(key)
	if !ok {
		return false
	}
	s.conns = s.conns.Delete(key)
	c.Start, c.End = end, start
	sn, sok := s.nodes.Get(c.Start)
	en, eok := s.nodes.Get(c.End)
	if sok && eok {
		c.UpdateGeometry(sn.Pos, en.Pos)
	}
	s.conns = s.conns.Set(c.Key(), c)
	return true
}

// RebuildConnectionGeometry refreshes the cached midpoint and angle of
// every connection from the current node positions. Callers invoke this
// after moving nodes.
func (s *Store) RebuildConnectionGeometry() {
	for _, c := range s.Connections() {
		sn, sok := s.nodes.Get(c.Start)
		en, eok := s.nodes.Get(c.End)
		if !sok || !eok {
			continue
		}
		c.UpdateGeometry(sn.Pos, en.Pos)
		s.conns = s.conns.Set(c.Key(), c)
	}
}

// ConnectionCount returns the number of connections.
func (s *Store) ConnectionCount() int {
	return s.conns.Len()
}

// Connections returns all connections ordered by (start, end) for
// deterministic iteration.
func (s *Store) Connections() []Connection {
	out := make([]Connection, 0, s.conns.Len())
	itr := s.conns.Iterator()
	for !itr.Done() {
		_, c, _ := itr.Next()
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// ---------------------------------------------------------------------------
// Markers
// ---------------------------------------------------------------------------

// SetMarker attaches a marker to its node, replacing any marker already
// on that node. Fails with ErrUnknownNode if the node does not exist.
func (s *Store) SetMarker(m Marker) error {
	if _, ok := s.nodes.Get(m.NodeID); !ok {
		return ErrUnknownNode
	}
	s.markers = s.markers.Set(m.NodeID, m)
	return nil
}

// Marker returns the marker attached to the given node.
func (s *Store) Marker(nodeID uint64) (Marker, bool) {
	return s.markers.Get(nodeID)
}

// HasMarker reports whether a node carries a marker.
func (s *Store) HasMarker(nodeID uint64) bool {
	_, ok := s.markers.Get(nodeID)
	return ok
}

// RemoveMarker removes the marker attached to a node. Returns false if
// the node has no marker.
func (s *Store) RemoveMarker(nodeID uint64) bool {
	if _, ok := s.markers.Get(nodeID); !ok {
		return false
	}
	s.markers = s.markers.Delete(nodeID)
	return true
}

// RemoveOrphanMarkers drops every marker whose node no longer exists.
// This is the explicit marker-cascade step invoked by the editing layer
// after node deletions.
func (s *Store) RemoveOrphanMarkers() int {
	var orphans []uint64
	itr := s.markers.Iterator()
	for !itr.Done() {
		id, _, _ := itr.Next()
		if _, ok := s.nodes.Get(id); !ok {
			orphans = append(orphans, id)
		}
	}
	for _, id := range orphans {
		s.markers = s.markers.Delete(id)
	}
	return len(orphans)
}

// MarkerCount returns the number of markers.
func (s *Store) MarkerCount() int {
	return s.markers.Len()
}

// Markers returns all markers ordered by node id.
func (s *Store) Markers() []Marker {
	out := make([]Marker, 0, s.markers.Len())
	itr := s.markers.Iterator()
	for !itr.Done() {
		_, m, _ := itr.Next()
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// ---------------------------------------------------------------------------
// Node flags
// ---------------------------------------------------------------------------

// RecalculateNodeFlags recomputes the Regular/SubPrio flag for the given
// nodes from their attached connections: any Regular-priority connection
// (or none at all) makes the node Regular, only SubPriority connections
// make it SubPrio. Warning and Reserved nodes are left untouched.
func (s *Store) RecalculateNodeFlags(nodeIDs []uint64) {
	conns := s.Connections()
	for _, id := range nodeIDs {
		n, ok := s.nodes.Get(id)
		if !ok {
			continue
		}
		if n.Flag == FlagWarning || n.Flag == FlagReserved {
			continue
		}

		hasAny := false
		hasRegular := false
		for _, c := range conns {
			if c.Start != id && c.End != id {
				continue
			}
			hasAny = true
			if c.Priority == PrioRegular {
				hasRegular = true
				break
			}
		}

		flag := FlagSubPrio
		if !hasAny || hasRegular {
			flag = FlagRegular
		}
		if n.Flag != flag {
			n.Flag = flag
			s.nodes = s.nodes.Set(id, n)
		}
	}
}
