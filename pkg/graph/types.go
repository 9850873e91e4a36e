package graph

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// =============================================================================
// Direction
// =============================================================================

// Direction is one of the eight compass directions an entity can face.
type Direction uint8

// Compass directions, clockwise from north.
const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

// NumDirections is the number of discrete directions.
const NumDirections = 8

var directionNames = [NumDirections]string{
	"north", "northeast", "east", "southeast",
	"south", "southwest", "west", "northwest",
}

// Valid reports whether d is one of the eight compass values.
func (d Direction) Valid() bool { return d < NumDirections }

// Opposite returns the direction rotated by 180 degrees.
func (d Direction) Opposite() Direction { return (d + 4) % NumDirections }

// Rotate returns d rotated clockwise by steps eighth-turns.
// Negative steps rotate counter-clockwise.
func (d Direction) Rotate(steps int) Direction {
	r := (int(d) + steps) % NumDirections
	if r < 0 {
		r += NumDirections
	}
	return Direction(r)
}

// String returns the lowercase compass name.
func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("direction(%d)", d)
	}
	return directionNames[d]
}

// ParseDirection parses a compass name or its numeric value ("east" or "2").
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < NumDirections {
		return Direction(n), nil
	}
	return 0, fmt.Errorf("invalid direction %q", s)
}

// =============================================================================
// Positions
// =============================================================================

// Position is a grid coordinate. Entities sit on half-tile offsets
// depending on their footprint, so coordinates are fractional.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Position) Add(q Position) Position { return Position{X: p.X + q.X, Y: p.Y + q.Y} }

// String formats the position as "(x, y)".
func (p Position) String() string { return fmt.Sprintf("(%g, %g)", p.X, p.Y) }

// Cell is an integer grid cell. Tiles are keyed by cell.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// String formats the cell as "(x, y)".
func (c Cell) String() string { return fmt.Sprintf("(%d, %d)", c.X, c.Y) }

// compareCells orders cells row-major: by Y, then X.
func compareCells(a, b Cell) int {
	if a.Y != b.Y {
		return a.Y - b.Y
	}
	return a.X - b.X
}

// Placement is the part of an entity a move changes.
type Placement struct {
	Position  Position
	Direction Direction
}

// =============================================================================
// Wires
// =============================================================================

// WireColor is the color of a circuit wire.
type WireColor string

// Wire colors.
const (
	Red   WireColor = "red"
	Green WireColor = "green"
)

// Valid reports whether c is a known wire color.
func (c WireColor) Valid() bool { return c == Red || c == Green }

// Connection is one end of a wire as seen from the entity that owns it.
type Connection struct {
	Point     int       // Own connection point (1, or 2 for combinator outputs)
	Peer      int       // Entity number at the other end
	PeerPoint int       // Connection point on the peer
	Color     WireColor // Wire color
}

// compareConnections defines the canonical order of an entity's connections.
func compareConnections(a, b Connection) int {
	switch {
	case a.Point != b.Point:
		return a.Point - b.Point
	case a.Color != b.Color:
		if a.Color < b.Color {
			return -1
		}
		return 1
	case a.Peer != b.Peer:
		return a.Peer - b.Peer
	default:
		return a.PeerPoint - b.PeerPoint
	}
}

// Wire is an undirected connection between two entities' connection points.
type Wire struct {
	A      int
	APoint int
	B      int
	BPoint int
	Color  WireColor
}

// Normalize returns the wire with endpoints ordered so that (A, APoint) <= (B, BPoint).
// Two wires describing the same connection normalize to equal values.
func (w Wire) Normalize() Wire {
	if w.A > w.B || (w.A == w.B && w.APoint > w.BPoint) {
		return Wire{A: w.B, APoint: w.BPoint, B: w.A, BPoint: w.APoint, Color: w.Color}
	}
	return w
}

// from returns the connection as stored on endpoint A.
func (w Wire) from() Connection {
	return Connection{Point: w.APoint, Peer: w.B, PeerPoint: w.BPoint, Color: w.Color}
}

// wireOf rebuilds the wire described by connection c owned by entity id.
func wireOf(id int, c Connection) Wire {
	return Wire{A: id, APoint: c.Point, B: c.Peer, BPoint: c.PeerPoint, Color: c.Color}
}

// reverse returns the connection as stored on the peer entity.
func (c Connection) reverse(owner int) Connection {
	return Connection{Point: c.PeerPoint, Peer: owner, PeerPoint: c.Point, Color: c.Color}
}

func validPoint(p int) bool { return p == 1 || p == 2 }

// =============================================================================
// Entity
// =============================================================================

// Filter is an indexed item filter (inserters, splitters, loaders).
type Filter struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// Direction types for entities with an input/output side (underground belts, loaders).
const (
	DirectionTypeInput  = "input"
	DirectionTypeOutput = "output"
)

// Entity is a placed object.
type Entity struct {
	Number    int // Unique, stable entity number (entity_number)
	Name      string
	Position  Position
	Direction Direction

	// Type-specific fields.
	Recipe        string
	DirectionType string         // "input", "output" or empty
	Filters       []Filter       // Ordered filters
	Items         map[string]int // Module/item requests

	// Connections in canonical order. Maintained by the Graph.
	Connections []Connection

	// Extra holds game fields the model does not interpret, preserved
	// verbatim for lossless round-trips.
	Extra map[string]json.RawMessage
}

// Placement returns the entity's position and direction.
func (e Entity) Placement() Placement {
	return Placement{Position: e.Position, Direction: e.Direction}
}

// PaintDirection returns the direction a copy of e should be painted with.
// Output-side entities report the direction of their input side.
func (e Entity) PaintDirection() Direction {
	if e.DirectionType == DirectionTypeOutput {
		return e.Direction.Opposite()
	}
	return e.Direction
}

// Clone returns a deep copy of e.
func (e Entity) Clone() Entity {
	c := e
	c.Filters = slices.Clone(e.Filters)
	c.Connections = slices.Clone(e.Connections)
	if e.Items != nil {
		c.Items = maps.Clone(e.Items)
	}
	if e.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(e.Extra))
		for k, v := range e.Extra {
			c.Extra[k] = slices.Clone(v)
		}
	}
	return c
}

// =============================================================================
// Tile
// =============================================================================

// Tile is placed ground cover. It has no identity beyond its cell.
type Tile struct {
	Name     string
	Position Cell
}
