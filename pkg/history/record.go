package history

import (
	"fmt"

	"github.com/matzehuels/bpedit/pkg/graph"
)

// Kind identifies the record variant. The values match the short names
// collaborators switch on.
type Kind string

// Record kinds.
const (
	KindAdd    Kind = "add"
	KindDelete Kind = "del"
	KindMove   Kind = "mov"
	KindUpdate Kind = "upd"
)

// Target is what a record mutated: an entity or a tile cell.
type Target struct {
	Entity int         // Entity number, 0 for tile records
	Tile   *graph.Cell // Tile cell, nil for entity records
}

// IsTile reports whether the target is a tile cell.
func (t Target) IsTile() bool { return t.Tile != nil }

func (t Target) String() string {
	if t.Tile != nil {
		return "tile " + t.Tile.String()
	}
	return fmt.Sprintf("entity %d", t.Entity)
}

// Record is one reversible graph mutation.
//
// The variants are [*Add], [*Delete], [*Move] and [*Update]; the set is
// closed. Records are immutable once created; accessors return copies.
type Record interface {
	Kind() Kind
	Target() Target

	// OtherEntity is the entity that caused this record as a cascade,
	// or the far end of a wire change. Zero when unset.
	OtherEntity() int

	Annotation() string

	undo(g *graph.Graph) error
	redo(g *graph.Graph) error
}

type meta struct {
	other      int
	annotation string
}

func (m meta) OtherEntity() int   { return m.other }
func (m meta) Annotation() string { return m.annotation }

// =============================================================================
// Add
// =============================================================================

// Add records the creation of an entity or a tile.
type Add struct {
	meta
	entity *graph.Entity
	tile   *graph.Tile
}

func (r *Add) Kind() Kind { return KindAdd }

func (r *Add) Target() Target { return targetOf(r.entity, r.tile) }

// Entity returns a copy of the created entity, wires included. ok is false
// for tile records.
func (r *Add) Entity() (e graph.Entity, ok bool) { return cloneEntity(r.entity) }

// Tile returns the created tile. ok is false for entity records.
func (r *Add) Tile() (t graph.Tile, ok bool) { return cloneTile(r.tile) }

func (r *Add) undo(g *graph.Graph) error {
	if r.tile != nil {
		return g.DeleteTile(r.tile.Position)
	}
	_, err := g.Delete(r.entity.Number)
	return err
}

func (r *Add) redo(g *graph.Graph) error {
	if r.tile != nil {
		return g.CreateTile(*r.tile)
	}
	_, err := g.Create(r.entity.Clone())
	return err
}

// =============================================================================
// Delete
// =============================================================================

// Delete records the removal of an entity or a tile. The entity is kept as
// it was before removal, wires included, so undo restores both the entity
// and every wire the removal cascaded away.
type Delete struct {
	meta
	entity *graph.Entity
	tile   *graph.Tile
}

func (r *Delete) Kind() Kind { return KindDelete }

func (r *Delete) Target() Target { return targetOf(r.entity, r.tile) }

// Entity returns a copy of the removed entity. ok is false for tile records.
func (r *Delete) Entity() (e graph.Entity, ok bool) { return cloneEntity(r.entity) }

// Tile returns the removed tile. ok is false for entity records.
func (r *Delete) Tile() (t graph.Tile, ok bool) { return cloneTile(r.tile) }

func (r *Delete) undo(g *graph.Graph) error {
	if r.tile != nil {
		return g.CreateTile(*r.tile)
	}
	_, err := g.Create(r.entity.Clone())
	return err
}

func (r *Delete) redo(g *graph.Graph) error {
	if r.tile != nil {
		return g.DeleteTile(r.tile.Position)
	}
	_, err := g.Delete(r.entity.Number)
	return err
}

// =============================================================================
// Move
// =============================================================================

// Move records a change of position and direction.
type Move struct {
	meta
	id            int
	before, after graph.Placement
}

func (r *Move) Kind() Kind { return KindMove }

func (r *Move) Target() Target { return Target{Entity: r.id} }

// Before returns the placement undo restores.
func (r *Move) Before() graph.Placement { return r.before }

// After returns the placement redo restores.
func (r *Move) After() graph.Placement { return r.after }

func (r *Move) undo(g *graph.Graph) error { return g.Move(r.id, r.before) }
func (r *Move) redo(g *graph.Graph) error { return g.Move(r.id, r.after) }

// =============================================================================
// Update
// =============================================================================

// Update records a field-level change. Before and after touch the same fields.
type Update struct {
	meta
	id            int
	before, after graph.Patch
}

func (r *Update) Kind() Kind { return KindUpdate }

func (r *Update) Target() Target { return Target{Entity: r.id} }

// Before returns a copy of the patch undo applies.
func (r *Update) Before() graph.Patch { return r.before.Clone() }

// After returns a copy of the patch redo applies.
func (r *Update) After() graph.Patch { return r.after.Clone() }

func (r *Update) undo(g *graph.Graph) error { return g.Update(r.id, r.before.Clone()) }
func (r *Update) redo(g *graph.Graph) error { return g.Update(r.id, r.after.Clone()) }

func cloneEntity(e *graph.Entity) (graph.Entity, bool) {
	if e == nil {
		return graph.Entity{}, false
	}
	return e.Clone(), true
}

func cloneTile(t *graph.Tile) (graph.Tile, bool) {
	if t == nil {
		return graph.Tile{}, false
	}
	return *t, true
}

func targetOf(e *graph.Entity, t *graph.Tile) Target {
	if t != nil {
		cell := t.Position
		return Target{Tile: &cell}
	}
	return Target{Entity: e.Number}
}

// Affected returns the entity numbers touched by records, including every
// OtherEntity, without duplicates and in first-seen order. Tile records
// contribute nothing.
func Affected(records []Record) []int {
	seen := make(map[int]bool)
	var out []int
	add := func(id int) {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, r := range records {
		add(r.Target().Entity)
		add(r.OtherEntity())
	}
	return out
}
