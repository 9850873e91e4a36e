// Package session holds the state of one editing session: the loaded book
// or blueprint, the codecs that read and write it, the quickbar and the
// brush picked with the pipette.
//
// A Session replaces process-wide globals. Components receive the session
// they work on:
//
//	sess := session.New(session.WithLogger(logger))
//	if err := sess.Load(ctx, clipboardText); err != nil {
//	    return err
//	}
//	id, _ := sess.Blueprint.History().Create(graph.Entity{Name: "small-lamp"})
//	s, err := sess.Copy(ctx)
package session

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/bpedit/pkg/blueprint"
	"github.com/matzehuels/bpedit/pkg/bpstring"
	bperrors "github.com/matzehuels/bpedit/pkg/errors"
	"github.com/matzehuels/bpedit/pkg/graph"
	"github.com/matzehuels/bpedit/pkg/history"
)

// Sentinel errors for session operations.
var (
	// ErrNoBlueprint is returned by Load when the text holds no decodable
	// blueprint string.
	ErrNoBlueprint = bperrors.New(bperrors.ErrCodeNotFound, "no blueprint string found")

	// ErrNoBook is returned by SelectBlueprint when the session holds a
	// single blueprint.
	ErrNoBook = bperrors.New(bperrors.ErrCodeInvalidInput, "session has no blueprint book")

	// ErrNoBrush is returned by Place before anything was picked.
	ErrNoBrush = bperrors.New(bperrors.ErrCodeInvalidInput, "no entity picked")
)

// Brush is the entity the pipette picked, ready to be painted.
type Brush struct {
	Name      string
	Direction graph.Direction
	Recipe    string
}

// Session is one editing session. Book is nil unless a book was loaded;
// Blueprint is always the blueprint being edited.
type Session struct {
	ID        uuid.UUID
	Book      *blueprint.Book
	Blueprint *blueprint.Blueprint
	Async     *bpstring.Async
	Sync      *bpstring.Sync
	Quickbar  Quickbar
	Brush     *Brush
	Logger    *log.Logger

	history []history.Option
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.Logger = l }
}

// WithCodecs sets the codecs. A nil async codec makes Copy use sync.
func WithCodecs(async *bpstring.Async, sync *bpstring.Sync) Option {
	return func(s *Session) {
		s.Async = async
		s.Sync = sync
	}
}

// WithQuickbar sets the initial quickbar.
func WithQuickbar(q Quickbar) Option {
	return func(s *Session) { s.Quickbar = q }
}

// WithHistory configures the history engine of blueprints created by Clear.
// Loaded blueprints get theirs from the codec.
func WithHistory(opts ...history.Option) Option {
	return func(s *Session) { s.history = opts }
}

// New creates a session editing an empty blueprint.
func New(opts ...Option) *Session {
	s := &Session{
		ID:     uuid.New(),
		Async:  bpstring.NewAsync(),
		Sync:   bpstring.NewSync(),
		Logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Quickbar == nil {
		s.Quickbar = NewQuickbar(DefaultQuickbarRows)
	}
	s.Clear()
	return s
}

// Item returns the top-level item: the book if one is loaded, otherwise the
// blueprint.
func (s *Session) Item() blueprint.Item {
	if s.Book != nil {
		return s.Book
	}
	return s.Blueprint
}

// Load finds the first blueprint string in text and makes it the session's
// item. A book selects its active blueprint. On failure the session is left
// unchanged.
func (s *Session) Load(ctx context.Context, text string) error {
	found, ok := s.find(ctx, text)
	if !ok {
		return ErrNoBlueprint
	}
	it, err := s.decode(ctx, found)
	if err != nil {
		return err
	}

	switch it := it.(type) {
	case *blueprint.Book:
		bp := it.ActiveBlueprint()
		if bp == nil {
			return bperrors.New(bperrors.ErrCodeInvalidInput, "blueprint book %q is empty", it.Meta().Label)
		}
		s.Book, s.Blueprint = it, bp
		s.Logger.Info("loaded blueprint book", "label", it.Meta().Label, "blueprints", len(it.Blueprints()), "active", it.Active())
	case *blueprint.Blueprint:
		s.Book, s.Blueprint = nil, it
		s.Logger.Info("loaded blueprint", "label", it.Meta().Label, "entities", it.Graph().EntityCount())
	}
	s.Brush = nil
	return nil
}

func (s *Session) find(ctx context.Context, text string) (string, bool) {
	if s.Async != nil {
		return s.Async.Find(ctx, text)
	}
	return bpstring.Find(ctx, text)
}

func (s *Session) decode(ctx context.Context, str string) (blueprint.Item, error) {
	if s.Async != nil {
		return s.Async.Decode(ctx, str)
	}
	return s.Sync.Decode(ctx, str)
}

// Clear replaces the session's item with an empty blueprint.
func (s *Session) Clear() {
	s.Book = nil
	s.Blueprint = blueprint.New(s.history...)
	s.Brush = nil
}

// Copy encodes the session's item. It uses the async codec, or the sync one
// when none is set.
func (s *Session) Copy(ctx context.Context) (string, error) {
	it := s.Item()
	if s.Async != nil {
		str, err := s.Async.Encode(ctx, it)
		if err == nil {
			s.Logger.Debug("copied", "kind", it.Kind(), "size", len(str))
		}
		return str, err
	}
	res := s.Sync.EncodeSync(it)
	if !res.OK() {
		return "", res.Err
	}
	s.Logger.Debug("copied", "kind", it.Kind(), "size", len(res.Value), "sync", true)
	return res.Value, nil
}

// Undo reverts the last transaction of the blueprint being edited.
func (s *Session) Undo() ([]history.Record, error) {
	records, err := s.Blueprint.Undo()
	s.logReplay("undo", records, err)
	return records, err
}

// Redo reapplies the next transaction of the blueprint being edited.
func (s *Session) Redo() ([]history.Record, error) {
	records, err := s.Blueprint.Redo()
	s.logReplay("redo", records, err)
	return records, err
}

func (s *Session) logReplay(op string, records []history.Record, err error) {
	switch {
	case err != nil:
		s.Logger.Warn(op+" failed", "err", err)
	case len(records) > 0:
		s.Logger.Debug(op, "records", len(records))
	}
}

// SelectBlueprint switches to the book's blueprint at index i, clamped to the
// book. It returns the index selected.
func (s *Session) SelectBlueprint(i int) (int, error) {
	if s.Book == nil {
		return 0, ErrNoBook
	}
	idx := s.Book.SetActive(i)
	bp := s.Book.ActiveBlueprint()
	if bp == nil {
		return 0, bperrors.New(bperrors.ErrCodeInvalidInput, "blueprint book is empty")
	}
	s.Blueprint = bp
	s.Brush = nil
	s.Logger.Debug("selected blueprint", "index", idx, "label", bp.Meta().Label)
	return idx, nil
}

// Pipette picks entity id as the brush. Output-type entities such as
// underground belt exits are painted facing the opposite way, so that the
// placed entity becomes an entrance pointing the same direction.
func (s *Session) Pipette(id int) (Brush, error) {
	e, ok := s.Blueprint.Entity(id)
	if !ok {
		return Brush{}, fmt.Errorf("entity %d: %w", id, graph.ErrNotFound)
	}
	b := Brush{Name: e.Name, Direction: e.Direction, Recipe: e.Recipe}
	if e.DirectionType == graph.DirectionTypeOutput {
		b.Direction = e.Direction.Opposite()
	}
	s.Brush = &b
	return b, nil
}

// Place paints the brush at pos through the blueprint's history and
// returns the new entity's number.
func (s *Session) Place(pos graph.Position) (int, error) {
	if s.Brush == nil {
		return 0, ErrNoBrush
	}
	return s.Blueprint.History().Create(graph.Entity{
		Name:      s.Brush.Name,
		Position:  pos,
		Direction: s.Brush.Direction,
		Recipe:    s.Brush.Recipe,
	})
}

// PickSlot sets the brush from quickbar slot i.
func (s *Session) PickSlot(i int) (Brush, error) {
	name := s.Quickbar.Slot(i)
	if name == "" {
		return Brush{}, bperrors.New(bperrors.ErrCodeInvalidInput, "quickbar slot %d is empty", i)
	}
	b := Brush{Name: name}
	s.Brush = &b
	return b, nil
}
