package roadnet

import (
	"errors"
	"testing"

	"github.com/route-studio/roadgraph/internal/geo"
)

func addTestNode(t *testing.T, s *Store, id uint64, x, y float32) {
	t.Helper()
	if err := s.AddNode(NewNode(id, geo.Pt(x, y), FlagRegular)); err != nil {
		t.Fatalf("AddNode(%d) returned error: %v", id, err)
	}
}

func connect(t *testing.T, s *Store, start, end uint64, dir Direction) {
	t.Helper()
	sn, _ := s.Node(start)
	en, _ := s.Node(end)
	c := NewConnection(start, end, dir, PrioRegular, sn.Pos, en.Pos)
	if err := s.AddConnection(c); err != nil {
		t.Fatalf("AddConnection(%d,%d) returned error: %v", start, end, err)
	}
}

func TestStore_AddAndGetNode(t *testing.T) {
	s := NewStore()
	addTestNode(t, s, 1, 10, 20)

	n, ok := s.Node(1)
	if !ok {
		t.Fatal("Node(1) not found after AddNode")
	}
	if n.Pos != geo.Pt(10, 20) {
		t.Errorf("Pos = %v, want (10,20)", n.Pos)
	}
	if s.NodeCount() != 1 {
		t.Errorf("NodeCount = %d, want 1", s.NodeCount())
	}
}

func TestStore_AddNodeDuplicateID(t *testing.T) {
	s := NewStore()
	addTestNode(t, s, 1, 0, 0)

	err := s.AddNode(NewNode(1, geo.Pt(99, 99), FlagRegular))
	if !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("err = %v, want ErrDuplicateNode", err)
	}
	// The original record is untouched.
	n, _ := s.Node(1)
	if n.Pos != geo.Pt(0, 0) {
		t.Errorf("Pos = %v, want (0,0)", n.Pos)
	}
}

func TestStore_RemoveNodeCascadesConnections(t *testing.T) {
	s := NewStore()
	addTestNode(t, s, 1, 0, 0)
	addTestNode(t, s, 2, 1, 0)
	addTestNode(t, s, 3, 2, 0)
	connect(t, s, 1, 2, DirRegular)
	connect(t, s, 2, 3, DirRegular)
	connect(t, s, 3, 1, DirRegular)

	if !s.RemoveNode(2) {
		t.Fatal("RemoveNode(2) = false, want true")
	}
	if s.ConnectionCount() != 1 {
		t.Errorf("ConnectionCount = %d, want 1", s.ConnectionCount())
	}
	if !s.HasConnection(3, 1) {
		t.Error("connection 3->1 should survive")
	}
	if s.RemoveNode(2) {
		t.Error("second RemoveNode(2) should return false")
	}
}

func TestStore_MoveNode(t *testing.T) {
	s := NewStore()
	addTestNode(t, s, 1, 0, 0)

	if !s.MoveNode(1, geo.Pt(5, 5)) {
		t.Fatal("MoveNode(1) = false, want true")
	}
	n, _ := s.Node(1)
	if n.Pos != geo.Pt(5, 5) {
		t.Errorf("Pos = %v, want (5,5)", n.Pos)
	}
	if s.MoveNode(42, geo.Pt(1, 1)) {
		t.Error("MoveNode of missing node should return false")
	}
}

func TestStore_NextNodeID(t *testing.T) {
	s := NewStore()
	if got := s.NextNodeID(); got != 1 {
		t.Errorf("NextNodeID on empty store = %d, want 1", got)
	}
	addTestNode(t, s, 1, 0, 0)
	addTestNode(t, s, 7, 0, 1)
	if got := s.NextNodeID(); got != 8 {
		t.Errorf("NextNodeID = %d, want 8", got)
	}
	// Ids are not recycled by removal of the max.
	s.RemoveNode(7)
	addTestNode(t, s, 8, 0, 2)
	if got := s.NextNodeID(); got != 9 {
		t.Errorf("NextNodeID after remove = %d, want 9", got)
	}
}

func TestStore_AddConnectionValidation(t *testing.T) {
	s := NewStore()
	addTestNode(t, s, 1, 0, 0)

	c := NewConnection(1, 1, DirRegular, PrioRegular, geo.Pt(0, 0), geo.Pt(0, 0))
	if err := s.AddConnection(c); !errors.Is(err, ErrSelfLoop) {
		t.Errorf("self-loop err = %v, want ErrSelfLoop", err)
	}

	c = NewConnection(1, 2, DirRegular, PrioRegular, geo.Pt(0, 0), geo.Pt(1, 0))
	if err := s.AddConnection(c); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("missing endpoint err = %v, want ErrUnknownNode", err)
	}
	if s.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount = %d, want 0 after rejected inserts", s.ConnectionCount())
	}
}

func TestStore_AddConnectionReplaces(t *testing.T) {
	s := NewStore()
	addTestNode(t, s, 1, 0, 0)
	addTestNode(t, s, 2, 2, 0)
	connect(t, s, 1, 2, DirRegular)
	connect(t, s, 1, 2, DirDual)

	if s.ConnectionCount() != 1 {
		t.Fatalf("ConnectionCount = %d, want 1", s.ConnectionCount())
	}
	c, _ := s.FindConnection(1, 2)
	if c.Direction != DirDual {
		t.Errorf("Direction = %v, want Dual after replace", c.Direction)
	}
}

func TestStore_ConnectionGeometry(t *testing.T) {
	s := NewStore()
	addTestNode(t, s, 1, 0, 0)
	addTestNode(t, s, 2, 4, 0)
	connect(t, s, 1, 2, DirRegular)

	c, _ := s.FindConnection(1, 2)
	if c.Mid != geo.Pt(2, 0) {
		t.Errorf("Mid = %v, want (2,0)", c.Mid)
	}

	s.MoveNode(2, geo.Pt(0, 4))
	s.RebuildConnectionGeometry()
	c, _ = s.FindConnection(1, 2)
	if c.Mid != geo.Pt(0, 2) {
		t.Errorf("Mid after move = %v, want (0,2)", c.Mid)
	}
}

func TestStore_InvertConnection(t *testing.T) {
	s := NewStore()
	addTestNode(t, s, 1, 0, 0)
	addTestNode(t, s, 2, 2, 0)
	connect(t, s, 1, 2, DirReverse)

	if !s.InvertConnection(1, 2) {
		t.Fatal("InvertConnection = false, want true")
	}
	if s.HasConnection(1, 2) {
		t.Error("old (1,2) key should be gone")
	}
	c, ok := s.FindConnection(2, 1)
	if !ok {
		t.Fatal("inverted connection (2,1) not found")
	}
	if c.Direction != DirReverse {
		t.Errorf("Direction = %v, want unchanged Reverse", c.Direction)
	}
}

func TestStore_FindConnectionsBetween(t *testing.T) {
	s := NewStore()
	addTestNode(t, s, 1, 0, 0)
	addTestNode(t, s, 2, 2, 0)
	connect(t, s, 1, 2, DirRegular)
	connect(t, s, 2, 1, DirRegular)

	if got := len(s.FindConnectionsBetween(1, 2)); got != 2 {
		t.Errorf("FindConnectionsBetween = %d connections, want 2", got)
	}
	if got := s.RemoveConnectionsBetween(1, 2); got != 2 {
		t.Errorf("RemoveConnectionsBetween = %d, want 2", got)
	}
	if s.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount = %d, want 0", s.ConnectionCount())
	}
}

func TestStore_Markers(t *testing.T) {
	s := NewStore()
	addTestNode(t, s, 1, 0, 0)

	if err := s.SetMarker(NewMarker(42, "ghost", "All", 1, false)); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("SetMarker on missing node err = %v, want ErrUnknownNode", err)
	}

	if err := s.SetMarker(NewMarker(1, "Depot", "All", 1, false)); err != nil {
		t.Fatalf("SetMarker returned error: %v", err)
	}
	if err := s.SetMarker(NewMarker(1, "Depot East", "Farm", 1, false)); err != nil {
		t.Fatalf("SetMarker replace returned error: %v", err)
	}
	if s.MarkerCount() != 1 {
		t.Fatalf("MarkerCount = %d, want 1", s.MarkerCount())
	}
	m, _ := s.Marker(1)
	if m.Name != "Depot East" || m.Group != "Farm" {
		t.Errorf("marker = %+v, want replaced record", m)
	}
}

func TestStore_RemoveOrphanMarkers(t *testing.T) {
	s := NewStore()
	addTestNode(t, s, 1, 0, 0)
	addTestNode(t, s, 2, 1, 0)
	s.SetMarker(NewMarker(1, "A", "All", 1, false))
	s.SetMarker(NewMarker(2, "B", "All", 2, false))

	s.RemoveNode(1)
	if s.MarkerCount() != 2 {
		t.Fatal("markers should not cascade on RemoveNode")
	}
	if got := s.RemoveOrphanMarkers(); got != 1 {
		t.Errorf("RemoveOrphanMarkers = %d, want 1", got)
	}
	if s.HasMarker(1) {
		t.Error("orphan marker should be gone")
	}
	if !s.HasMarker(2) {
		t.Error("live marker should survive")
	}
}

func TestStore_CloneIsIndependent(t *testing.T) {
	s := NewStore()
	addTestNode(t, s, 1, 0, 0)
	addTestNode(t, s, 2, 1, 0)
	connect(t, s, 1, 2, DirRegular)

	snap := s.Clone()

	s.MoveNode(1, geo.Pt(50, 50))
	s.RemoveNode(2)
	addTestNode(t, s, 3, 9, 9)

	if snap.NodeCount() != 2 {
		t.Errorf("snapshot NodeCount = %d, want 2", snap.NodeCount())
	}
	n, _ := snap.Node(1)
	if n.Pos != geo.Pt(0, 0) {
		t.Errorf("snapshot Pos = %v, want original (0,0)", n.Pos)
	}
	if !snap.HasConnection(1, 2) {
		t.Error("snapshot should keep connection 1->2")
	}
	if _, ok := snap.Node(3); ok {
		t.Error("snapshot should not see node added after Clone")
	}
}

func TestStore_RecalculateNodeFlags(t *testing.T) {
	s := NewStore()
	addTestNode(t, s, 1, 0, 0)
	addTestNode(t, s, 2, 1, 0)
	sn, _ := s.Node(1)
	en, _ := s.Node(2)
	c := NewConnection(1, 2, DirRegular, PrioSubPriority, sn.Pos, en.Pos)
	if err := s.AddConnection(c); err != nil {
		t.Fatal(err)
	}

	s.RecalculateNodeFlags([]uint64{1, 2})
	n, _ := s.Node(1)
	if n.Flag != FlagSubPrio {
		t.Errorf("Flag = %v, want SubPrio with only sub-priority connections", n.Flag)
	}

	s.SetConnectionPriority(1, 2, PrioRegular)
	s.RecalculateNodeFlags([]uint64{1, 2})
	n, _ = s.Node(1)
	if n.Flag != FlagRegular {
		t.Errorf("Flag = %v, want Regular", n.Flag)
	}

	// Warning nodes are never reclassified.
	if err := s.AddNode(NewNode(9, geo.Pt(5, 5), FlagWarning)); err != nil {
		t.Fatal(err)
	}
	s.RecalculateNodeFlags([]uint64{9})
	n, _ = s.Node(9)
	if n.Flag != FlagWarning {
		t.Errorf("Flag = %v, want Warning untouched", n.Flag)
	}
}

// An editing sequence touching all three tables keeps referential
// integrity at every step.
func TestStore_EditSequenceIntegrity(t *testing.T) {
	s := NewStore()
	for i := uint64(1); i <= 5; i++ {
		addTestNode(t, s, i, float32(i)*2, 0)
	}
	connect(t, s, 1, 2, DirRegular)
	connect(t, s, 2, 3, DirDual)
	connect(t, s, 3, 4, DirRegular)
	connect(t, s, 4, 5, DirReverse)
	s.SetMarker(NewMarker(3, "Mid", "All", 1, false))

	s.RemoveNode(3)
	s.RemoveOrphanMarkers()

	for _, c := range s.Connections() {
		if _, ok := s.Node(c.Start); !ok {
			t.Errorf("connection %d->%d has dangling start", c.Start, c.End)
		}
		if _, ok := s.Node(c.End); !ok {
			t.Errorf("connection %d->%d has dangling end", c.Start, c.End)
		}
	}
	for _, m := range s.Markers() {
		if _, ok := s.Node(m.NodeID); !ok {
			t.Errorf("marker %q attached to missing node %d", m.Name, m.NodeID)
		}
	}
}
