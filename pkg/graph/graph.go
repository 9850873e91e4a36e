package graph

import (
	"fmt"
	"maps"
	"slices"

	bperrors "github.com/matzehuels/bpedit/pkg/errors"
)

var (
	// ErrNotFound is returned when an operation names an entity, tile or
	// wire that does not exist.
	ErrNotFound = bperrors.New(bperrors.ErrCodeNotFound, "not found")

	// ErrInvalidPlacement is returned by [Graph.CreateTile] when the cell
	// already holds a tile. Entities may overlap; tiles may not stack.
	ErrInvalidPlacement = bperrors.New(bperrors.ErrCodeInvalidPlacement, "cell already has a tile")

	// ErrDuplicateEntity is returned by [Graph.Create] when an explicit
	// entity number is already in use.
	ErrDuplicateEntity = bperrors.New(bperrors.ErrCodeInvalidInput, "entity number already in use")

	// ErrInvalidEntity is returned when an entity or patch carries a value
	// the model cannot hold (empty name, direction outside 0..7, unknown
	// direction type).
	ErrInvalidEntity = bperrors.New(bperrors.ErrCodeInvalidInput, "invalid entity")

	// ErrInvalidWire is returned for wires to unknown or identical entities,
	// invalid connection points or colors, and duplicate wires.
	ErrInvalidWire = bperrors.New(bperrors.ErrCodeInvalidInput, "invalid wire")
)

// Graph is the mutable entity/tile model of one blueprint.
//
// The zero value is not usable - use New to create a Graph.
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	entities map[int]*Entity
	tiles    map[Cell]string
	wiring   map[int]map[int]int // entity -> peer -> number of wires
	nextID   int
}

// New creates an empty graph. The first allocated entity number is 1.
func New() *Graph {
	return &Graph{
		entities: make(map[int]*Entity),
		tiles:    make(map[Cell]string),
		wiring:   make(map[int]map[int]int),
		nextID:   1,
	}
}

// =============================================================================
// Entity Mutations
// =============================================================================

// Create inserts an entity and returns its entity number.
//
// If e.Number is zero a fresh number is allocated; numbers are never reused
// after deletion. A non-zero e.Number restores a specific identity and fails
// with ErrDuplicateEntity if that number is in use.
//
// Connections on e are linked on both endpoints; every peer must exist.
// Either the entity is fully inserted or the graph is left unchanged.
func (g *Graph) Create(e Entity) (int, error) {
	if e.Number < 0 {
		return 0, fmt.Errorf("entity number %d: %w", e.Number, ErrInvalidEntity)
	}
	if e.Number != 0 {
		if _, exists := g.entities[e.Number]; exists {
			return 0, fmt.Errorf("entity %d: %w", e.Number, ErrDuplicateEntity)
		}
	}
	if err := validateEntity(e); err != nil {
		return 0, err
	}

	id := e.Number
	if id == 0 {
		id = g.nextID
	}
	if err := g.validateConnections(id, e.Connections); err != nil {
		return 0, err
	}

	stored := e.Clone()
	stored.Number = id
	stored.Connections = nil
	g.entities[id] = &stored
	if id >= g.nextID {
		g.nextID = id + 1
	}

	for _, c := range e.Connections {
		g.link(id, c)
	}
	return id, nil
}

// Update applies a partial change to entity id.
// Connection changes are applied to both endpoints of every added or
// removed wire. Returns ErrNotFound if id is absent.
func (g *Graph) Update(id int, p Patch) error {
	e, ok := g.entities[id]
	if !ok {
		return fmt.Errorf("entity %d: %w", id, ErrNotFound)
	}
	if err := validatePatch(p); err != nil {
		return fmt.Errorf("entity %d: %w", id, err)
	}
	if p.Connections != nil {
		if err := g.validateConnections(id, *p.Connections); err != nil {
			return err
		}
	}

	p.applyFields(e)

	if p.Connections != nil {
		want := *p.Connections
		for _, c := range slices.Clone(e.Connections) {
			if !slices.Contains(want, c) {
				g.unlink(id, c)
			}
		}
		for _, c := range want {
			g.link(id, c)
		}
	}
	return nil
}

// Move sets the position and direction of entity id.
func (g *Graph) Move(id int, to Placement) error {
	return g.Update(id, MovePatch(to))
}

// Delete removes entity id and every wire touching it.
// It returns the number of wire endpoints removed from peer entities.
func (g *Graph) Delete(id int) (int, error) {
	e, ok := g.entities[id]
	if !ok {
		return 0, fmt.Errorf("entity %d: %w", id, ErrNotFound)
	}

	removed := 0
	for _, c := range slices.Clone(e.Connections) {
		if g.removeConn(c.Peer, c.reverse(id)) {
			removed++
		}
		g.removeConn(id, c)
	}

	delete(g.entities, id)
	delete(g.wiring, id)
	return removed, nil
}

// Connect adds an undirected wire between two existing entities.
func (g *Graph) Connect(w Wire) error {
	e, ok := g.entities[w.A]
	if !ok {
		return fmt.Errorf("entity %d: %w", w.A, ErrNotFound)
	}
	c := w.from()
	if slices.Contains(e.Connections, c) {
		return fmt.Errorf("wire %d->%d already exists: %w", w.A, w.B, ErrInvalidWire)
	}
	return g.Update(w.A, Patch{Connections: Ptr(append(slices.Clone(e.Connections), c))})
}

// Disconnect removes an existing wire.
func (g *Graph) Disconnect(w Wire) error {
	e, ok := g.entities[w.A]
	if !ok {
		return fmt.Errorf("entity %d: %w", w.A, ErrNotFound)
	}
	c := w.from()
	if !slices.Contains(e.Connections, c) {
		return fmt.Errorf("wire %d->%d: %w", w.A, w.B, ErrNotFound)
	}
	rest := slices.DeleteFunc(slices.Clone(e.Connections), func(x Connection) bool { return x == c })
	return g.Update(w.A, Patch{Connections: &rest})
}

// =============================================================================
// Tile Mutations
// =============================================================================

// CreateTile places a tile. Returns ErrInvalidPlacement if the cell is occupied.
func (g *Graph) CreateTile(t Tile) error {
	if t.Name == "" {
		return fmt.Errorf("tile at %s: empty name: %w", t.Position, ErrInvalidEntity)
	}
	if _, exists := g.tiles[t.Position]; exists {
		return fmt.Errorf("tile at %s: %w", t.Position, ErrInvalidPlacement)
	}
	g.tiles[t.Position] = t.Name
	return nil
}

// DeleteTile removes the tile at c. Returns ErrNotFound if the cell is empty.
func (g *Graph) DeleteTile(c Cell) error {
	if _, exists := g.tiles[c]; !exists {
		return fmt.Errorf("tile at %s: %w", c, ErrNotFound)
	}
	delete(g.tiles, c)
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// Entity returns a copy of entity id.
func (g *Graph) Entity(id int) (Entity, bool) {
	e, ok := g.entities[id]
	if !ok {
		return Entity{}, false
	}
	return e.Clone(), true
}

// Has reports whether entity id exists.
func (g *Graph) Has(id int) bool {
	_, ok := g.entities[id]
	return ok
}

// Entities returns copies of all entities sorted by entity number.
func (g *Graph) Entities() []Entity {
	ids := slices.Sorted(maps.Keys(g.entities))
	out := make([]Entity, len(ids))
	for i, id := range ids {
		out[i] = g.entities[id].Clone()
	}
	return out
}

// Tile returns the tile at c.
func (g *Graph) Tile(c Cell) (Tile, bool) {
	name, ok := g.tiles[c]
	if !ok {
		return Tile{}, false
	}
	return Tile{Name: name, Position: c}, true
}

// Tiles returns all tiles in row-major order.
func (g *Graph) Tiles() []Tile {
	cells := slices.SortedFunc(maps.Keys(g.tiles), compareCells)
	out := make([]Tile, len(cells))
	for i, c := range cells {
		out[i] = Tile{Name: g.tiles[c], Position: c}
	}
	return out
}

// WiresOf returns the entity numbers wired to id, in ascending order.
func (g *Graph) WiresOf(id int) []int {
	return slices.Sorted(maps.Keys(g.wiring[id]))
}

// Wires returns every wire once, normalized and sorted.
func (g *Graph) Wires() []Wire {
	var out []Wire
	for _, e := range g.entities {
		for _, c := range e.Connections {
			w := wireOf(e.Number, c)
			if w.Normalize() == w {
				out = append(out, w)
			}
		}
	}
	slices.SortFunc(out, compareWires)
	return out
}

// EntityCount returns the number of entities.
func (g *Graph) EntityCount() int { return len(g.entities) }

// TileCount returns the number of tiles.
func (g *Graph) TileCount() int { return len(g.tiles) }

// IsEmpty reports whether the graph has no entities and no tiles.
func (g *Graph) IsEmpty() bool { return len(g.entities) == 0 && len(g.tiles) == 0 }

// NextID returns the entity number the next Create without explicit number
// will allocate.
func (g *Graph) NextID() int { return g.nextID }

// Bounds returns the smallest rectangle containing every entity position and
// tile cell. ok is false for an empty graph.
func (g *Graph) Bounds() (minPos, maxPos Position, ok bool) {
	first := true
	grow := func(p Position) {
		if first {
			minPos, maxPos, first = p, p, false
			return
		}
		minPos.X, minPos.Y = min(minPos.X, p.X), min(minPos.Y, p.Y)
		maxPos.X, maxPos.Y = max(maxPos.X, p.X), max(maxPos.Y, p.Y)
	}
	for _, e := range g.entities {
		grow(e.Position)
	}
	for c := range g.tiles {
		grow(Position{X: float64(c.X), Y: float64(c.Y)})
	}
	return minPos, maxPos, !first
}

// =============================================================================
// Internal Helpers
// =============================================================================

func compareWires(a, b Wire) int {
	switch {
	case a.A != b.A:
		return a.A - b.A
	case a.B != b.B:
		return a.B - b.B
	case a.APoint != b.APoint:
		return a.APoint - b.APoint
	case a.BPoint != b.BPoint:
		return a.BPoint - b.BPoint
	case a.Color < b.Color:
		return -1
	case a.Color > b.Color:
		return 1
	default:
		return 0
	}
}

func validateEntity(e Entity) error {
	if e.Name == "" {
		return fmt.Errorf("empty name: %w", ErrInvalidEntity)
	}
	if !e.Direction.Valid() {
		return fmt.Errorf("%s: %w", e.Direction, ErrInvalidEntity)
	}
	if !validDirectionType(e.DirectionType) {
		return fmt.Errorf("direction type %q: %w", e.DirectionType, ErrInvalidEntity)
	}
	return nil
}

func validatePatch(p Patch) error {
	if p.Name != nil && *p.Name == "" {
		return fmt.Errorf("empty name: %w", ErrInvalidEntity)
	}
	if p.Direction != nil && !p.Direction.Valid() {
		return fmt.Errorf("%s: %w", *p.Direction, ErrInvalidEntity)
	}
	if p.DirectionType != nil && !validDirectionType(*p.DirectionType) {
		return fmt.Errorf("direction type %q: %w", *p.DirectionType, ErrInvalidEntity)
	}
	return nil
}

func validDirectionType(s string) bool {
	return s == "" || s == DirectionTypeInput || s == DirectionTypeOutput
}

// validateConnections checks the connection list of entity id before any of
// it is applied.
func (g *Graph) validateConnections(id int, conns []Connection) error {
	for i, c := range conns {
		switch {
		case c.Peer == id:
			return fmt.Errorf("entity %d wired to itself: %w", id, ErrInvalidWire)
		case !validPoint(c.Point) || !validPoint(c.PeerPoint):
			return fmt.Errorf("entity %d: connection point %d->%d: %w", id, c.Point, c.PeerPoint, ErrInvalidWire)
		case !c.Color.Valid():
			return fmt.Errorf("entity %d: wire color %q: %w", id, c.Color, ErrInvalidWire)
		case slices.Contains(conns[:i], c):
			return fmt.Errorf("entity %d: duplicate wire to %d: %w", id, c.Peer, ErrInvalidWire)
		}
		if _, ok := g.entities[c.Peer]; !ok {
			return fmt.Errorf("entity %d: wire peer %d: %w", id, c.Peer, ErrNotFound)
		}
	}
	return nil
}

// link adds c to owner and its reverse to the peer.
func (g *Graph) link(owner int, c Connection) {
	g.addConn(owner, c)
	g.addConn(c.Peer, c.reverse(owner))
}

// unlink removes c from owner and its reverse from the peer.
func (g *Graph) unlink(owner int, c Connection) {
	g.removeConn(owner, c)
	g.removeConn(c.Peer, c.reverse(owner))
}

func (g *Graph) addConn(owner int, c Connection) bool {
	e := g.entities[owner]
	i, found := slices.BinarySearchFunc(e.Connections, c, compareConnections)
	if found {
		return false
	}
	e.Connections = slices.Insert(e.Connections, i, c)
	g.index(owner, c.Peer, 1)
	return true
}

func (g *Graph) removeConn(owner int, c Connection) bool {
	e, ok := g.entities[owner]
	if !ok {
		return false
	}
	i, found := slices.BinarySearchFunc(e.Connections, c, compareConnections)
	if !found {
		return false
	}
	e.Connections = slices.Delete(e.Connections, i, i+1)
	if len(e.Connections) == 0 {
		e.Connections = nil
	}
	g.index(owner, c.Peer, -1)
	return true
}

// index adjusts the wiring index count for owner -> peer.
func (g *Graph) index(owner, peer, delta int) {
	peers := g.wiring[owner]
	if peers == nil {
		peers = make(map[int]int)
		g.wiring[owner] = peers
	}
	peers[peer] += delta
	if peers[peer] <= 0 {
		delete(peers, peer)
	}
	if len(peers) == 0 {
		delete(g.wiring, owner)
	}
}
