package roadnet

import (
	"math"

	"github.com/route-studio/roadgraph/internal/geo"
)

// Direction describes how a connection may be traversed.
type Direction uint8

const (
	// DirRegular is traversable start→end only.
	DirRegular Direction = iota
	// DirDual is traversable in both directions.
	DirDual
	// DirReverse is traversable end→start only.
	DirReverse
)

func (d Direction) String() string {
	switch d {
	case DirDual:
		return "dual"
	case DirReverse:
		return "reverse"
	default:
		return "regular"
	}
}

// Priority is the road class of a connection.
type Priority uint8

const (
	PrioRegular Priority = iota
	PrioSubPriority
)

func (p Priority) String() string {
	if p == PrioSubPriority {
		return "subpriority"
	}
	return "regular"
}

// ConnKey identifies a directed connection by its ordered endpoint pair.
type ConnKey struct {
	Start, End uint64
}

// Connection is a directed edge between two waypoints. Mid and Angle are
// denormalized render geometry derived from the endpoint positions; they
// are refreshed only by an explicit geometry recompute, never implicitly
// when a node moves.
type Connection struct {
	Start     uint64
	End       uint64
	Direction Direction
	Priority  Priority
	Mid       geo.Point
	Angle     float32
}

// NewConnection creates a connection and computes its render geometry from
// the given endpoint positions.
func NewConnection(start, end uint64, dir Direction, prio Priority, startPos, endPos geo.Point) Connection {
	c := Connection{Start: start, End: end, Direction: dir, Priority: prio}
	c.UpdateGeometry(startPos, endPos)
	return c
}

// Key returns the map key for this connection.
func (c Connection) Key() ConnKey {
	return ConnKey{Start: c.Start, End: c.End}
}

// UpdateGeometry recomputes the cached midpoint and angle from the
// endpoint positions.
func (c *Connection) UpdateGeometry(startPos, endPos geo.Point) {
	c.Mid = startPos.Mid(endPos)
	delta := endPos.Sub(startPos)
	c.Angle = float32(math.Atan2(float64(delta.Y), float64(delta.X)))
}
