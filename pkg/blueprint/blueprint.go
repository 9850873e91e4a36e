package blueprint

import (
	"github.com/matzehuels/bpedit/pkg/graph"
	"github.com/matzehuels/bpedit/pkg/history"
)

// Item is a Blueprint or a Book. The set of implementations is closed.
type Item interface {
	Kind() Kind
	Meta() *Meta
	IsEmpty() bool
	item()
}

// Blueprint is one editable layout.
type Blueprint struct {
	meta    Meta
	graph   *graph.Graph
	history *history.Engine
}

// New creates an empty blueprint. The graph is created first, then the history
// engine recording it; opts configure the engine.
func New(opts ...history.Option) *Blueprint {
	g := graph.New()
	return &Blueprint{
		graph:   g,
		history: history.New(g, opts...),
	}
}

func (b *Blueprint) Kind() Kind  { return KindBlueprint }
func (b *Blueprint) Meta() *Meta { return &b.meta }
func (b *Blueprint) item()       {}

// Graph returns the entity/tile model. Mutations made on it directly bypass
// the history; editing code goes through History.
func (b *Blueprint) Graph() *graph.Graph { return b.graph }

// History returns the engine recording this blueprint's edits.
func (b *Blueprint) History() *history.Engine { return b.history }

// IsEmpty reports whether the blueprint has no entities and no tiles.
func (b *Blueprint) IsEmpty() bool { return b.graph.IsEmpty() }

// Entity looks up an entity by number.
func (b *Blueprint) Entity(id int) (graph.Entity, bool) { return b.graph.Entity(id) }

// Undo reverts the last transaction. See [history.Engine.Undo].
func (b *Blueprint) Undo() ([]history.Record, error) { return b.history.Undo() }

// Redo reapplies the next transaction. See [history.Engine.Redo].
func (b *Blueprint) Redo() ([]history.Record, error) { return b.history.Redo() }
