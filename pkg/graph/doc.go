// Package graph provides the mutable entity/tile model of a blueprint.
//
// A [Graph] holds placed entities keyed by their entity number, tiles keyed by
// grid cell, and a wiring index derived from the entities' connection lists.
// It is the single authoritative model the editor mutates; rendering and the
// interchange codec only read from it.
//
// # Architecture
//
// The package sits below the history engine:
//
//   - [Graph]: Entity/tile state machine (this package)
//   - pkg/history.Engine: Records every Graph mutation for undo/redo
//   - pkg/blueprint.Blueprint: Owns one Graph plus its History
//
// The Graph itself has no undo knowledge. It exposes three primitive mutations
// ([Graph.Create], [Graph.Update], [Graph.Delete]) plus their tile counterparts;
// [Graph.Move], [Graph.Connect] and [Graph.Disconnect] are specialisations of
// Update.
//
// # Core Types
//
//   - [Entity]: Placed object with identity, position, direction and fields
//   - [Tile]: Ground cover keyed by [Cell]
//   - [Connection], [Wire]: Circuit wires between entity connection points
//   - [Patch]: Field-level partial update, invertible with [Capture]
//
// # Identity
//
// Entity numbers are allocated from a monotonic counter and are never reused
// after deletion. Restoring an entity (undo of a delete, decoding a blueprint)
// may pass an explicit number, which must not be in use.
//
// # Wiring
//
// Wires are undirected. Both endpoints list the wire in their Connections,
// kept in canonical order, and every mutation keeps both sides consistent:
//
//	g := graph.New()
//	a, _ := g.Create(graph.Entity{Name: "small-lamp"})
//	b, _ := g.Create(graph.Entity{Name: "constant-combinator", Position: graph.Position{X: 1}})
//	_ = g.Connect(graph.Wire{A: a, APoint: 1, B: b, BPoint: 1, Color: graph.Red})
//	g.WiresOf(a) // [b]
//
// Deleting an endpoint removes every wire touching it and reports how many
// peer endpoints were cleaned.
//
// # Concurrency
//
// A Graph is not safe for concurrent use. Callers serialise access, typically
// through a single editing session.
package graph
