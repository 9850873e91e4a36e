package bpstring

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/bpedit/pkg/blueprint"
	"github.com/matzehuels/bpedit/pkg/graph"
	"github.com/matzehuels/bpedit/pkg/history"
)

// copperKey is the entity Extra key holding non-circuit connection entries.
const copperKey = "connections"

// =============================================================================
// Model -> Document
// =============================================================================

// NewDocument builds the document for a blueprint or book.
func NewDocument(it blueprint.Item) (*Document, error) {
	return buildDocument(context.Background(), it, false)
}

func buildDocument(ctx context.Context, it blueprint.Item, concurrent bool) (*Document, error) {
	switch it := it.(type) {
	case *blueprint.Blueprint:
		bd, err := blueprintDoc(it)
		if err != nil {
			return nil, err
		}
		return &Document{Item: string(blueprint.KindBlueprint), Version: it.Meta().Version, Blueprint: bd, Extra: cloneRaw(it.Meta().DocumentExtra)}, nil
	case *blueprint.Book:
		bd, err := bookDoc(ctx, it, concurrent)
		if err != nil {
			return nil, err
		}
		return &Document{Item: string(blueprint.KindBook), Version: it.Meta().Version, Book: bd, Extra: cloneRaw(it.Meta().DocumentExtra)}, nil
	case nil:
		return nil, fmt.Errorf("nil item")
	default:
		return nil, fmt.Errorf("unsupported item %T", it)
	}
}

func bookDoc(ctx context.Context, book *blueprint.Book, concurrent bool) (*BookDoc, error) {
	m := book.Meta()
	items := book.Items()
	bd := &BookDoc{
		Item:        string(blueprint.KindBook),
		Label:       m.Label,
		Description: m.Description,
		Icons:       iconDocs(m.Icons),
		Blueprints:  make([]BookEntry, len(items)),
		ActiveIndex: book.Active(),
		Version:     m.Version,
		Extra:       cloneRaw(m.Extra),
	}

	build := func(i int, it blueprint.Item) error {
		entry := BookEntry{Index: i}
		switch it := it.(type) {
		case *blueprint.Blueprint:
			doc, err := blueprintDoc(it)
			if err != nil {
				return fmt.Errorf("book entry %d: %w", i, err)
			}
			entry.Blueprint = doc
		case *blueprint.Book:
			doc, err := bookDoc(ctx, it, false)
			if err != nil {
				return fmt.Errorf("book entry %d: %w", i, err)
			}
			entry.Book = doc
		}
		bd.Blueprints[i] = entry
		return nil
	}

	if !concurrent {
		for i, it := range items {
			if err := build(i, it); err != nil {
				return nil, err
			}
		}
		return bd, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, it := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return build(i, it)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bd, nil
}

func blueprintDoc(bp *blueprint.Blueprint) (*BlueprintDoc, error) {
	m := bp.Meta()
	g := bp.Graph()
	bd := &BlueprintDoc{
		Item:        string(blueprint.KindBlueprint),
		Label:       m.Label,
		Description: m.Description,
		Icons:       iconDocs(m.Icons),
		Version:     m.Version,
		Extra:       cloneRaw(m.Extra),
	}

	for _, e := range g.Entities() {
		ed, err := entityDoc(e)
		if err != nil {
			return nil, err
		}
		bd.Entities = append(bd.Entities, ed)
	}
	for _, t := range g.Tiles() {
		bd.Tiles = append(bd.Tiles, TileDoc{Name: t.Name, Position: CellDoc{X: t.Position.X, Y: t.Position.Y}})
	}
	return bd, nil
}

func entityDoc(e graph.Entity) (EntityDoc, error) {
	ed := EntityDoc{
		EntityNumber: e.Number,
		Name:         e.Name,
		Position:     PositionDoc{X: e.Position.X, Y: e.Position.Y},
		Direction:    int(e.Direction),
		Recipe:       e.Recipe,
		Type:         e.DirectionType,
		Items:        e.Items,
		Extra:        cloneRaw(e.Extra),
	}
	for _, f := range e.Filters {
		ed.Filters = append(ed.Filters, FilterDoc{Index: f.Index, Name: f.Name})
	}

	conns := &Connections{Points: make(map[int]CircuitPoint)}
	if raw, ok := ed.Extra[copperKey]; ok {
		delete(ed.Extra, copperKey)
		var copper Connections
		if err := json.Unmarshal(raw, &copper); err != nil {
			return EntityDoc{}, fmt.Errorf("entity %d: copper connections: %w", e.Number, err)
		}
		conns.Extra = copper.Extra
	}
	for _, c := range e.Connections {
		p := conns.Points[c.Point]
		ref := WireRef{EntityID: c.Peer}
		if c.PeerPoint != 1 {
			ref.CircuitID = c.PeerPoint
		}
		if c.Color == graph.Green {
			p.Green = append(p.Green, ref)
		} else {
			p.Red = append(p.Red, ref)
		}
		conns.Points[c.Point] = p
	}
	if !conns.IsEmpty() {
		ed.Connections = conns
	}
	if len(ed.Extra) == 0 {
		ed.Extra = nil
	}
	return ed, nil
}

func iconDocs(icons []blueprint.Icon) []IconDoc {
	var out []IconDoc
	for _, ic := range icons {
		out = append(out, IconDoc{Index: ic.Index, Signal: SignalDoc{Type: ic.Signal.Type, Name: ic.Signal.Name}})
	}
	return out
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// =============================================================================
// Document -> Model
// =============================================================================

// Model builds the item described by a validated document. Blueprints get
// a fresh history configured with opts; building does not record history.
func (d *Document) Model(opts ...history.Option) (blueprint.Item, error) {
	return buildItem(context.Background(), d, false, opts)
}

func buildItem(ctx context.Context, d *Document, concurrent bool, opts []history.Option) (blueprint.Item, error) {
	switch {
	case d.Blueprint != nil:
		bp, err := buildBlueprint(d.Blueprint, d.Version, opts)
		if err != nil {
			return nil, err
		}
		bp.Meta().DocumentExtra = cloneRaw(d.Extra)
		return bp, nil
	case d.Book != nil:
		book, err := buildBook(ctx, d.Book, d.Version, concurrent, opts)
		if err != nil {
			return nil, err
		}
		book.Meta().DocumentExtra = cloneRaw(d.Extra)
		return book, nil
	default:
		return nil, fmt.Errorf("document has neither blueprint nor blueprint_book")
	}
}

func buildBook(ctx context.Context, bd *BookDoc, version uint64, concurrent bool, opts []history.Option) (*blueprint.Book, error) {
	book := blueprint.NewBook()
	setMeta(book.Meta(), bd.Label, bd.Description, bd.Icons, pickVersion(bd.Version, version), bd.Extra)

	// Entries are ordered by their index, not their position in the list.
	entries := slices.Clone(bd.Blueprints)
	slices.SortStableFunc(entries, func(a, b BookEntry) int { return a.Index - b.Index })

	items := make([]blueprint.Item, len(entries))
	build := func(i int, entry BookEntry) error {
		var err error
		if entry.Blueprint != nil {
			items[i], err = buildBlueprint(entry.Blueprint, 0, opts)
		} else {
			items[i], err = buildBook(ctx, entry.Book, 0, false, opts)
		}
		if err != nil {
			return fmt.Errorf("book entry %d: %w", entry.Index, err)
		}
		return nil
	}

	if concurrent {
		g, gctx := errgroup.WithContext(ctx)
		for i, entry := range entries {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return build(i, entry)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, entry := range entries {
			if err := build(i, entry); err != nil {
				return nil, err
			}
		}
	}

	for _, it := range items {
		if err := book.Append(it); err != nil {
			return nil, err
		}
	}

	// active_index refers to an entry index; map it onto the list position.
	active := slices.IndexFunc(entries, func(e BookEntry) bool { return e.Index == bd.ActiveIndex })
	if active < 0 {
		active = bd.ActiveIndex
	}
	book.SetActive(active)
	return book, nil
}

func buildBlueprint(bd *BlueprintDoc, version uint64, opts []history.Option) (*blueprint.Blueprint, error) {
	bp := blueprint.New(opts...)
	setMeta(bp.Meta(), bd.Label, bd.Description, bd.Icons, pickVersion(bd.Version, version), bd.Extra)
	g := bp.Graph()

	// Entities first, wires once every endpoint exists.
	var wires []graph.Wire
	seen := make(map[graph.Wire]bool)
	for _, ed := range bd.Entities {
		e := graph.Entity{
			Number:        ed.EntityNumber,
			Name:          ed.Name,
			Position:      graph.Position{X: ed.Position.X, Y: ed.Position.Y},
			Direction:     graph.Direction(ed.Direction),
			Recipe:        ed.Recipe,
			DirectionType: ed.Type,
			Items:         ed.Items,
			Extra:         cloneRaw(ed.Extra),
		}
		for _, f := range ed.Filters {
			e.Filters = append(e.Filters, graph.Filter{Index: f.Index, Name: f.Name})
		}
		if ed.Connections != nil {
			if len(ed.Connections.Extra) > 0 {
				raw, err := marshal(Connections{Extra: ed.Connections.Extra})
				if err != nil {
					return nil, err
				}
				if e.Extra == nil {
					e.Extra = make(map[string]json.RawMessage)
				}
				e.Extra[copperKey] = raw
			}
			for _, point := range slices.Sorted(maps.Keys(ed.Connections.Points)) {
				p := ed.Connections.Points[point]
				for color, refs := range map[graph.WireColor][]WireRef{graph.Red: p.Red, graph.Green: p.Green} {
					for _, ref := range refs {
						peerPoint := ref.CircuitID
						if peerPoint == 0 {
							peerPoint = 1
						}
						w := graph.Wire{A: ed.EntityNumber, APoint: point, B: ref.EntityID, BPoint: peerPoint, Color: color}.Normalize()
						if !seen[w] {
							seen[w] = true
							wires = append(wires, w)
						}
					}
				}
			}
		}
		if _, err := g.Create(e); err != nil {
			return nil, fmt.Errorf("entity %d: %w", ed.EntityNumber, err)
		}
	}

	slices.SortFunc(wires, compareWires)
	for _, w := range wires {
		if err := g.Connect(w); err != nil {
			return nil, fmt.Errorf("wire %d-%d: %w", w.A, w.B, err)
		}
	}

	for _, td := range bd.Tiles {
		if err := g.CreateTile(graph.Tile{Name: td.Name, Position: graph.Cell{X: td.Position.X, Y: td.Position.Y}}); err != nil {
			return nil, err
		}
	}
	return bp, nil
}

func setMeta(m *blueprint.Meta, label, description string, icons []IconDoc, version uint64, extra map[string]json.RawMessage) {
	m.Label = label
	m.Description = description
	m.Version = version
	m.Extra = cloneRaw(extra)
	m.Icons = nil
	for _, ic := range icons {
		m.Icons = append(m.Icons, blueprint.Icon{Index: ic.Index, Signal: blueprint.Signal{Type: ic.Signal.Type, Name: ic.Signal.Name}})
	}
	slices.SortFunc(m.Icons, func(a, b blueprint.Icon) int { return a.Index - b.Index })
}

// pickVersion prefers the object's own version over the enclosing one.
func pickVersion(own, outer uint64) uint64 {
	if own != 0 {
		return own
	}
	return outer
}

func compareWires(a, b graph.Wire) int {
	switch {
	case a.A != b.A:
		return a.A - b.A
	case a.B != b.B:
		return a.B - b.B
	case a.APoint != b.APoint:
		return a.APoint - b.APoint
	case a.BPoint != b.BPoint:
		return a.BPoint - b.BPoint
	case a.Color != b.Color:
		if a.Color < b.Color {
			return -1
		}
		return 1
	}
	return 0
}
