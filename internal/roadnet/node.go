package roadnet

import "github.com/route-studio/roadgraph/internal/geo"

// NodeFlag is the rendering/priority category of a waypoint. The store
// carries it opaquely; only RecalculateNodeFlags interprets it.
type NodeFlag uint8

const (
	FlagRegular NodeFlag = iota
	FlagSubPrio
	FlagWarning
	FlagReserved
)

// FlagFromRaw maps the serialized flag value onto a NodeFlag.
// Unknown values fall back to Regular.
func FlagFromRaw(raw uint32) NodeFlag {
	switch raw {
	case 1:
		return FlagSubPrio
	case 2:
		return FlagWarning
	case 3:
		return FlagReserved
	default:
		return FlagRegular
	}
}

// Raw returns the serialized flag value.
func (f NodeFlag) Raw() uint32 {
	return uint32(f)
}

func (f NodeFlag) String() string {
	switch f {
	case FlagSubPrio:
		return "subprio"
	case FlagWarning:
		return "warning"
	case FlagReserved:
		return "reserved"
	default:
		return "regular"
	}
}

// Node is a single waypoint in the road network. IDs are caller-assigned,
// unique, and by convention greater than zero.
type Node struct {
	ID   uint64
	Pos  geo.Point
	Flag NodeFlag
}

// NewNode creates a waypoint at the given world position.
func NewNode(id uint64, pos geo.Point, flag NodeFlag) Node {
	return Node{ID: id, Pos: pos, Flag: flag}
}
