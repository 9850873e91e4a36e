package history

import (
	"fmt"
	"slices"
	"time"

	bperrors "github.com/matzehuels/bpedit/pkg/errors"
	"github.com/matzehuels/bpedit/pkg/graph"
	"github.com/matzehuels/bpedit/pkg/observability"
)

// DefaultMaxTransactions is the timeline length used when none is configured.
const DefaultMaxTransactions = 1000

// ErrTransactionOpen is returned by Undo and Redo while an explicit
// transaction started with Begin has not been committed.
var ErrTransactionOpen = bperrors.New(bperrors.ErrCodeInvalidInput, "transaction in progress")

// Direction tells collaborators which way records were replayed.
type Direction int

const (
	Undo Direction = iota
	Redo
)

func (d Direction) String() string {
	if d == Redo {
		return "redo"
	}
	return "undo"
}

// Hooks are per-engine callbacks. Nil fields are skipped. Events are also
// forwarded to the global observability registry.
type Hooks struct {
	// OnApplied receives the records replayed by Undo or Redo, in the order
	// they were applied.
	OnApplied func(records []Record, dir Direction)

	// OnCommit receives every transaction appended to the timeline.
	OnCommit func(tx Transaction)
}

// Transaction is the atomic unit of undo and redo.
type Transaction struct {
	Annotation string
	Records    []Record
	Time       time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxTransactions bounds the timeline. The oldest transactions are dropped
// once the limit is exceeded. Values <= 0 select DefaultMaxTransactions.
func WithMaxTransactions(n int) Option {
	return func(h *Engine) {
		if n > 0 {
			h.max = n
		}
	}
}

// WithHooks installs per-engine callbacks.
func WithHooks(hooks Hooks) Option {
	return func(h *Engine) { h.hooks = hooks }
}

// Engine records graph mutations and replays them for undo and redo.
//
// Mutations must go through the Engine's methods to be recorded. Records
// accumulate in an open transaction that Commit appends to the timeline.
// Engine is not safe for concurrent use.
type Engine struct {
	g *graph.Graph

	timeline []*Transaction
	cursor   int

	// Open transaction state
	open     *Transaction
	depth    int
	explicit bool

	max   int
	hooks Hooks
	now   func() time.Time
}

// New creates an engine recording mutations of g.
func New(g *graph.Graph, opts ...Option) *Engine {
	h := &Engine{
		g:   g,
		max: DefaultMaxTransactions,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Graph returns the graph the engine records.
func (h *Engine) Graph() *graph.Graph { return h.g }

// =============================================================================
// Recording Operations
// =============================================================================

// Create creates an entity and records an add.
func (h *Engine) Create(e graph.Entity) (int, error) {
	id, err := h.g.Create(e)
	if err != nil {
		return 0, err
	}
	snap, _ := h.g.Entity(id)
	h.record(&Add{meta: meta{annotation: fmt.Sprintf("add %s #%d", snap.Name, id)}, entity: &snap})
	return id, nil
}

// CreateTile places a tile and records an add.
func (h *Engine) CreateTile(t graph.Tile) error {
	if err := h.g.CreateTile(t); err != nil {
		return err
	}
	h.record(&Add{meta: meta{annotation: fmt.Sprintf("add %s at %s", t.Name, t.Position)}, tile: &t})
	return nil
}

// Update applies p to entity id and records an update. An empty patch on an
// existing entity records nothing.
func (h *Engine) Update(id int, p graph.Patch) error {
	before, ok := h.g.Entity(id)
	if !ok {
		return fmt.Errorf("entity %d: %w", id, graph.ErrNotFound)
	}
	if p.IsEmpty() {
		return nil
	}
	if err := h.g.Update(id, p); err != nil {
		return err
	}
	after, _ := h.g.Entity(id)
	h.record(&Update{
		meta:   meta{annotation: fmt.Sprintf("update %s #%d: %s", before.Name, id, p)},
		id:     id,
		before: graph.Capture(before, p),
		after:  graph.Capture(after, p),
	})
	return nil
}

// Move changes an entity's placement and records a move.
func (h *Engine) Move(id int, to graph.Placement) error {
	before, ok := h.g.Entity(id)
	if !ok {
		return fmt.Errorf("entity %d: %w", id, graph.ErrNotFound)
	}
	if err := h.g.Move(id, to); err != nil {
		return err
	}
	h.record(&Move{
		meta:   meta{annotation: fmt.Sprintf("move %s #%d to %s", before.Name, id, to.Position)},
		id:     id,
		before: before.Placement(),
		after:  to,
	})
	return nil
}

// Delete removes an entity. For every wired peer it first records an update
// tagged with the deleted entity as OtherEntity, capturing the peer's wires
// before and after, then records the delete itself. All records land in the
// same transaction.
func (h *Engine) Delete(id int) error {
	e, ok := h.g.Entity(id)
	if !ok {
		return fmt.Errorf("entity %d: %w", id, graph.ErrNotFound)
	}

	var cascade []Record
	for _, peer := range h.g.WiresOf(id) {
		p, _ := h.g.Entity(peer)
		kept := slices.DeleteFunc(slices.Clone(p.Connections), func(c graph.Connection) bool {
			return c.Peer == id
		})
		cascade = append(cascade, &Update{
			meta:   meta{other: id, annotation: fmt.Sprintf("unwire %s #%d from #%d", p.Name, peer, id)},
			id:     peer,
			before: graph.Patch{Connections: graph.Ptr(p.Connections)},
			after:  graph.Patch{Connections: graph.Ptr(kept)},
		})
	}

	if _, err := h.g.Delete(id); err != nil {
		return err
	}
	h.record(append(cascade, &Delete{
		meta:   meta{annotation: fmt.Sprintf("delete %s #%d", e.Name, id)},
		entity: &e,
	})...)
	return nil
}

// DeleteTile removes the tile at c and records a delete.
func (h *Engine) DeleteTile(c graph.Cell) error {
	t, ok := h.g.Tile(c)
	if !ok {
		return fmt.Errorf("tile at %s: %w", c, graph.ErrNotFound)
	}
	if err := h.g.DeleteTile(c); err != nil {
		return err
	}
	h.record(&Delete{meta: meta{annotation: fmt.Sprintf("delete %s at %s", t.Name, c)}, tile: &t})
	return nil
}

// Connect adds a wire, recorded as an update of w.A's connections with w.B as
// OtherEntity.
func (h *Engine) Connect(w graph.Wire) error {
	return h.rewire(w, "connect", h.g.Connect)
}

// Disconnect removes a wire, recorded like Connect.
func (h *Engine) Disconnect(w graph.Wire) error {
	return h.rewire(w, "disconnect", h.g.Disconnect)
}

func (h *Engine) rewire(w graph.Wire, verb string, apply func(graph.Wire) error) error {
	before, ok := h.g.Entity(w.A)
	if !ok {
		return fmt.Errorf("entity %d: %w", w.A, graph.ErrNotFound)
	}
	if err := apply(w); err != nil {
		return err
	}
	after, _ := h.g.Entity(w.A)
	h.record(&Update{
		meta:   meta{other: w.B, annotation: fmt.Sprintf("%s #%d %s wire to #%d", verb, w.A, w.Color, w.B)},
		id:     w.A,
		before: graph.Patch{Connections: graph.Ptr(before.Connections)},
		after:  graph.Patch{Connections: graph.Ptr(after.Connections)},
	})
	return nil
}

// =============================================================================
// Transactions
// =============================================================================

// Begin opens an explicit transaction. Nested calls are counted and only the
// outermost Commit closes it. If records are already pending in an implicit
// transaction they become part of the explicit one.
func (h *Engine) Begin(annotation string) {
	h.depth++
	if h.depth > 1 {
		return
	}
	h.explicit = true
	if h.open == nil {
		h.open = &Transaction{Time: h.now()}
	}
	if annotation != "" {
		h.open.Annotation = annotation
	}
}

// Commit closes the open transaction and appends it to the timeline.
// Inside nested Begin calls it only decrements the nesting depth.
// Committing an empty transaction is a no-op.
func (h *Engine) Commit() {
	if h.depth > 0 {
		h.depth--
		if h.depth > 0 {
			return
		}
	}
	h.explicit = false
	tx := h.open
	h.open = nil
	if tx == nil || len(tx.Records) == 0 {
		return
	}
	if tx.Annotation == "" {
		tx.Annotation = tx.Records[0].Annotation()
	}
	if h.cursor < len(h.timeline) {
		clear(h.timeline[h.cursor:])
		h.timeline = h.timeline[:h.cursor]
	}
	h.timeline = append(h.timeline, tx)
	h.cursor = len(h.timeline)
	if excess := len(h.timeline) - h.max; excess > 0 {
		clear(h.timeline[:excess])
		h.timeline = h.timeline[excess:]
		h.cursor = len(h.timeline)
	}

	if h.hooks.OnCommit != nil {
		h.hooks.OnCommit(*tx)
	}
	observability.History().OnCommit(tx.Annotation, len(tx.Records))
}

// Rollback undoes every pending record and discards the open transaction.
func (h *Engine) Rollback() error {
	tx := h.open
	h.open = nil
	h.depth = 0
	h.explicit = false
	if tx == nil {
		return nil
	}
	if _, err := h.replay(tx.Records, Undo); err != nil {
		return bperrors.Wrap(bperrors.ErrCodeInternal, err, "rollback %q", tx.Annotation)
	}
	return nil
}

// savepoint is the open-transaction state just before a Begin. Rolling back
// to it reverts only the records made since, leaving enclosing transactions
// as they were.
type savepoint struct {
	records    int
	depth      int
	annotation string
}

func (h *Engine) savepoint() savepoint {
	sp := savepoint{depth: h.depth}
	if h.open != nil {
		sp.records = len(h.open.Records)
		sp.annotation = h.open.Annotation
	}
	return sp
}

// rollbackTo undoes the records made after sp and restores its nesting.
func (h *Engine) rollbackTo(sp savepoint) error {
	var tail []Record
	if h.open != nil && len(h.open.Records) > sp.records {
		tail = slices.Clone(h.open.Records[sp.records:])
		clear(h.open.Records[sp.records:])
		h.open.Records = h.open.Records[:sp.records]
	}
	h.depth = sp.depth
	h.explicit = sp.depth > 0
	if h.open != nil {
		h.open.Annotation = sp.annotation
		if len(h.open.Records) == 0 && !h.explicit {
			h.open = nil
		}
	}
	if len(tail) == 0 {
		return nil
	}
	if _, err := h.replay(tail, Undo); err != nil {
		return bperrors.Wrap(bperrors.ErrCodeInternal, err, "rollback %d records", len(tail))
	}
	return nil
}

// Pending returns the number of records in the open transaction.
func (h *Engine) Pending() int {
	if h.open == nil {
		return 0
	}
	return len(h.open.Records)
}

// InTransaction reports whether an explicit transaction is open.
func (h *Engine) InTransaction() bool { return h.explicit }

// record appends rs to the open transaction, opening one if needed.
// The redo tail is discarded when the transaction commits, so a rolled back
// transaction keeps it.
func (h *Engine) record(rs ...Record) {
	if h.open == nil {
		h.open = &Transaction{Time: h.now()}
	}
	h.open.Records = append(h.open.Records, rs...)
}

// =============================================================================
// Undo / Redo
// =============================================================================

// Undo reverts the transaction before the cursor and returns its records in
// the order they were reverted. At the start of the timeline it returns an
// empty result and leaves everything unchanged.
//
// An implicit open transaction is committed first.
func (h *Engine) Undo() ([]Record, error) {
	if h.explicit {
		return nil, ErrTransactionOpen
	}
	h.Commit()
	if h.cursor == 0 {
		return nil, nil
	}
	tx := h.timeline[h.cursor-1]
	applied, err := h.replay(tx.Records, Undo)
	if err != nil {
		return nil, bperrors.Wrap(bperrors.ErrCodeInternal, err, "undo %q", tx.Annotation)
	}
	h.cursor--
	h.emit(tx, applied, Undo)
	return applied, nil
}

// Redo reapplies the transaction at the cursor and returns its records in
// forward order. At the tip of the timeline it returns an empty result.
func (h *Engine) Redo() ([]Record, error) {
	if h.explicit {
		return nil, ErrTransactionOpen
	}
	h.Commit()
	if h.cursor == len(h.timeline) {
		return nil, nil
	}
	tx := h.timeline[h.cursor]
	applied, err := h.replay(tx.Records, Redo)
	if err != nil {
		return nil, bperrors.Wrap(bperrors.ErrCodeInternal, err, "redo %q", tx.Annotation)
	}
	h.cursor++
	h.emit(tx, applied, Redo)
	return applied, nil
}

// replay applies records in reverse for Undo and in order for Redo.
// If a record fails, the records already replayed are reverted so the graph
// is left as it was.
func (h *Engine) replay(records []Record, dir Direction) ([]Record, error) {
	ordered := slices.Clone(records)
	if dir == Undo {
		slices.Reverse(ordered)
	}
	for i, r := range ordered {
		var err error
		if dir == Undo {
			err = r.undo(h.g)
		} else {
			err = r.redo(h.g)
		}
		if err != nil {
			for j := i - 1; j >= 0; j-- {
				if dir == Undo {
					_ = ordered[j].redo(h.g)
				} else {
					_ = ordered[j].undo(h.g)
				}
			}
			return nil, fmt.Errorf("%s %s: %w", r.Kind(), r.Target(), err)
		}
	}
	return ordered, nil
}

func (h *Engine) emit(tx *Transaction, applied []Record, dir Direction) {
	if h.hooks.OnApplied != nil {
		h.hooks.OnApplied(applied, dir)
	}
	observability.History().OnApplied(dir.String(), tx.Annotation, len(applied))
}

// =============================================================================
// Introspection
// =============================================================================

// CanUndo reports whether Undo would revert a transaction, counting an
// implicit open transaction.
func (h *Engine) CanUndo() bool { return h.cursor > 0 || (!h.explicit && h.Pending() > 0) }

// CanRedo reports whether Redo would reapply a transaction.
func (h *Engine) CanRedo() bool { return h.Pending() == 0 && h.cursor < len(h.timeline) }

// UndoCount returns the number of committed transactions before the cursor.
func (h *Engine) UndoCount() int { return h.cursor }

// RedoCount returns the number of transactions Redo can reapply.
// Pending records will discard them on commit, so the count is then zero.
func (h *Engine) RedoCount() int {
	if h.Pending() > 0 {
		return 0
	}
	return len(h.timeline) - h.cursor
}

// Len returns the number of committed transactions in the timeline.
func (h *Engine) Len() int { return len(h.timeline) }

// Cursor returns the timeline position; transactions before it are applied.
func (h *Engine) Cursor() int { return h.cursor }

// MaxTransactions returns the timeline bound.
func (h *Engine) MaxTransactions() int { return h.max }

// PeekUndo returns the transaction Undo would revert.
func (h *Engine) PeekUndo() (Transaction, bool) {
	if h.cursor == 0 {
		return Transaction{}, false
	}
	return *h.timeline[h.cursor-1], true
}

// PeekRedo returns the transaction Redo would reapply.
func (h *Engine) PeekRedo() (Transaction, bool) {
	if h.cursor == len(h.timeline) {
		return Transaction{}, false
	}
	return *h.timeline[h.cursor], true
}

// Annotations returns the annotations of all committed transactions, oldest first.
func (h *Engine) Annotations() []string {
	out := make([]string, len(h.timeline))
	for i, tx := range h.timeline {
		out[i] = tx.Annotation
	}
	return out
}

// Clear drops the timeline and any open transaction. The graph is not touched.
func (h *Engine) Clear() {
	h.timeline = nil
	h.cursor = 0
	h.open = nil
	h.depth = 0
	h.explicit = false
}
