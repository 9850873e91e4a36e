package cli

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/bpedit/pkg/graph"
	"github.com/matzehuels/bpedit/pkg/session"
)

// editScript is a TOML file of edits:
//
//	label = "Lamp grid"
//
//	[[op]]
//	op = "create"
//	ref = "lamp"
//	name = "small-lamp"
//	x = 0.5
//	y = 0.5
//
//	[[op]]
//	op = "connect"
//	a_ref = "lamp"
//	b = 2
//	color = "green"
//
// Entities are addressed by number (id, a, b) or by the ref a create gave
// them (ref, a_ref, b_ref).
type editScript struct {
	Label       *string  `toml:"label"`
	Description *string  `toml:"description"`
	Select      *int     `toml:"select"`
	Ops         []editOp `toml:"op"`
}

type editOp struct {
	Op         string   `toml:"op"`
	ID         int      `toml:"id"`
	Ref        string   `toml:"ref"`
	Name       string   `toml:"name"`
	X          *float64 `toml:"x"`
	Y          *float64 `toml:"y"`
	Direction  string   `toml:"direction"`
	Recipe     *string  `toml:"recipe"`
	Type       *string  `toml:"type"`
	A          int      `toml:"a"`
	ARef       string   `toml:"a_ref"`
	APoint     int      `toml:"a_point"`
	B          int      `toml:"b"`
	BRef       string   `toml:"b_ref"`
	BPoint     int      `toml:"b_point"`
	Color      string   `toml:"color"`
	Annotation string   `toml:"annotation"`
	Slot       int      `toml:"slot"`
}

// Script ops.
const (
	opCreate     = "create"
	opMove       = "move"
	opUpdate     = "update"
	opDelete     = "delete"
	opConnect    = "connect"
	opDisconnect = "disconnect"
	opTile       = "tile"
	opRemoveTile = "remove-tile"
	opBegin      = "begin"
	opCommit     = "commit"
	opRollback   = "rollback"
	opUndo       = "undo"
	opRedo       = "redo"
	opPipette    = "pipette"
	opPlace      = "place"
	opSlot       = "slot"
	opPick       = "pick"
)

func parseScript(data []byte) (*editScript, error) {
	var s editScript
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse script: unknown key %s", undecoded[0])
	}
	return &s, nil
}

// scriptResult records what running a script did.
type scriptResult struct {
	Steps           []step
	QuickbarChanged bool
}

type step struct {
	Undo       bool
	Annotation string
}

// scriptRunner applies a script to a session.
type scriptRunner struct {
	sess *session.Session
	refs map[string]int
	res  scriptResult
}

func runScript(sess *session.Session, script *editScript) (scriptResult, error) {
	r := &scriptRunner{sess: sess, refs: map[string]int{}}
	if script.Select != nil {
		if _, err := sess.SelectBlueprint(*script.Select); err != nil {
			return r.res, err
		}
	}
	meta := sess.Blueprint.Meta()
	if script.Label != nil {
		if err := meta.SetLabel(*script.Label); err != nil {
			return r.res, err
		}
	}
	if script.Description != nil {
		meta.Description = *script.Description
	}
	h := sess.Blueprint.History()
	for i, op := range script.Ops {
		if err := r.apply(op); err != nil {
			return r.res, fmt.Errorf("op %d (%s): %w", i+1, op.Op, err)
		}
		// Outside begin/commit every op is its own transaction.
		if !h.InTransaction() {
			h.Commit()
		}
	}
	if h.InTransaction() {
		return r.res, fmt.Errorf("script ends inside an open transaction")
	}
	return r.res, nil
}

func (r *scriptRunner) apply(op editOp) error {
	h := r.sess.Blueprint.History()
	switch op.Op {
	case opCreate:
		e, err := op.entity()
		if err != nil {
			return err
		}
		id, err := h.Create(e)
		if err != nil {
			return err
		}
		r.remember(op.Ref, id)
	case opMove:
		id, err := r.resolve(op.ID, op.Ref)
		if err != nil {
			return err
		}
		cur, _ := r.sess.Blueprint.Entity(id)
		to := cur.Placement()
		to.Position = op.positionFrom(to.Position)
		if op.Direction != "" {
			if to.Direction, err = graph.ParseDirection(op.Direction); err != nil {
				return err
			}
		}
		return h.Move(id, to)
	case opUpdate:
		id, err := r.resolve(op.ID, op.Ref)
		if err != nil {
			return err
		}
		cur, _ := r.sess.Blueprint.Entity(id)
		p, err := op.patch(cur.Position)
		if err != nil {
			return err
		}
		return h.Update(id, p)
	case opDelete:
		id, err := r.resolve(op.ID, op.Ref)
		if err != nil {
			return err
		}
		return h.Delete(id)
	case opConnect, opDisconnect:
		w, err := r.wire(op)
		if err != nil {
			return err
		}
		if op.Op == opConnect {
			return h.Connect(w)
		}
		return h.Disconnect(w)
	case opTile:
		return h.CreateTile(graph.Tile{Name: op.Name, Position: op.cell()})
	case opRemoveTile:
		return h.DeleteTile(op.cell())
	case opBegin:
		h.Begin(op.Annotation)
	case opCommit:
		h.Commit()
	case opRollback:
		return h.Rollback()
	case opUndo:
		records, err := r.sess.Undo()
		if err != nil {
			return err
		}
		if len(records) > 0 {
			tx, _ := h.PeekRedo()
			r.res.Steps = append(r.res.Steps, step{Undo: true, Annotation: tx.Annotation})
		}
	case opRedo:
		records, err := r.sess.Redo()
		if err != nil {
			return err
		}
		if len(records) > 0 {
			tx, _ := h.PeekUndo()
			r.res.Steps = append(r.res.Steps, step{Annotation: tx.Annotation})
		}
	case opPipette:
		id, err := r.resolve(op.ID, op.Ref)
		if err != nil {
			return err
		}
		_, err = r.sess.Pipette(id)
		return err
	case opPlace:
		id, err := r.sess.Place(op.position())
		if err != nil {
			return err
		}
		r.remember(op.Ref, id)
	case opSlot:
		if err := r.sess.Quickbar.Set(op.Slot, op.Name); err != nil {
			return err
		}
		r.res.QuickbarChanged = true
	case opPick:
		_, err := r.sess.PickSlot(op.Slot)
		return err
	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
	return nil
}

func (r *scriptRunner) remember(ref string, id int) {
	if ref != "" {
		r.refs[ref] = id
	}
}

func (r *scriptRunner) resolve(id int, ref string) (int, error) {
	if ref == "" {
		if id == 0 {
			return 0, fmt.Errorf("no entity given (set id or ref)")
		}
		return id, nil
	}
	n, ok := r.refs[ref]
	if !ok {
		return 0, fmt.Errorf("unknown ref %q", ref)
	}
	return n, nil
}

func (r *scriptRunner) wire(op editOp) (graph.Wire, error) {
	a, err := r.resolve(op.A, op.ARef)
	if err != nil {
		return graph.Wire{}, fmt.Errorf("a: %w", err)
	}
	b, err := r.resolve(op.B, op.BRef)
	if err != nil {
		return graph.Wire{}, fmt.Errorf("b: %w", err)
	}
	color := graph.WireColor(op.Color)
	if op.Color == "" {
		color = graph.Red
	}
	return graph.Wire{A: a, APoint: max(op.APoint, 1), B: b, BPoint: max(op.BPoint, 1), Color: color}, nil
}

func (op editOp) position() graph.Position {
	return op.positionFrom(graph.Position{})
}

// positionFrom returns from with the coordinates the op sets replaced.
func (op editOp) positionFrom(p graph.Position) graph.Position {
	if op.X != nil {
		p.X = *op.X
	}
	if op.Y != nil {
		p.Y = *op.Y
	}
	return p
}

func (op editOp) cell() graph.Cell {
	p := op.position()
	return graph.Cell{X: int(p.X), Y: int(p.Y)}
}

func (op editOp) entity() (graph.Entity, error) {
	e := graph.Entity{Name: op.Name, Position: op.position()}
	if op.Direction != "" {
		d, err := graph.ParseDirection(op.Direction)
		if err != nil {
			return e, err
		}
		e.Direction = d
	}
	if op.Recipe != nil {
		e.Recipe = *op.Recipe
	}
	if op.Type != nil {
		e.DirectionType = *op.Type
	}
	return e, nil
}

func (op editOp) patch(from graph.Position) (graph.Patch, error) {
	var p graph.Patch
	if op.Name != "" {
		p.Name = graph.Ptr(op.Name)
	}
	if op.X != nil || op.Y != nil {
		p.Position = graph.Ptr(op.positionFrom(from))
	}
	if op.Direction != "" {
		d, err := graph.ParseDirection(op.Direction)
		if err != nil {
			return p, err
		}
		p.Direction = &d
	}
	p.Recipe = op.Recipe
	p.DirectionType = op.Type
	return p, nil
}
