package roadnet

// Marker is a named point-of-interest label attached to exactly one node.
// At most one marker exists per node id; setting a second one replaces
// the first.
type Marker struct {
	NodeID uint64
	Name   string
	Group  string
	Index  uint32
	Debug  bool
}

// NewMarker creates a marker for the given node.
func NewMarker(nodeID uint64, name, group string, index uint32, debug bool) Marker {
	return Marker{NodeID: nodeID, Name: name, Group: group, Index: index, Debug: debug}
}
