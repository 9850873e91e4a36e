package session

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bpedit/pkg/blueprint"
	"github.com/matzehuels/bpedit/pkg/bpstring"
	bperrors "github.com/matzehuels/bpedit/pkg/errors"
	"github.com/matzehuels/bpedit/pkg/graph"
	"github.com/matzehuels/bpedit/pkg/history"
)

func quiet() Option { return WithLogger(log.New(io.Discard)) }

func lampString(t *testing.T, label string, lamps int) string {
	t.Helper()
	bp := blueprint.New()
	bp.Meta().Label = label
	for i := range lamps {
		if _, err := bp.Graph().Create(graph.Entity{Name: "small-lamp", Position: graph.Position{X: float64(i)}}); err != nil {
			t.Fatal(err)
		}
	}
	s, err := bpstring.Encode(context.Background(), bp)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func bookString(t *testing.T, active int) string {
	t.Helper()
	book := blueprint.NewBook()
	book.Meta().Label = "book"
	for i, label := range []string{"a", "b", "c"} {
		bp := blueprint.New()
		bp.Meta().Label = label
		for j := range i + 1 {
			if _, err := bp.Graph().Create(graph.Entity{Name: "small-lamp", Position: graph.Position{X: float64(j)}}); err != nil {
				t.Fatal(err)
			}
		}
		if err := book.Append(bp); err != nil {
			t.Fatal(err)
		}
	}
	book.SetActive(active)
	s, err := bpstring.Encode(context.Background(), book)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewSession(t *testing.T) {
	s := New(quiet())
	if s.Book != nil || s.Blueprint == nil || !s.Blueprint.IsEmpty() {
		t.Fatalf("New() = %+v, want empty blueprint", s)
	}
	if len(s.Quickbar) != DefaultQuickbarRows*SlotsPerRow {
		t.Errorf("len(Quickbar) = %d", len(s.Quickbar))
	}
	if other := New(quiet()); other.ID == s.ID {
		t.Error("sessions share an ID")
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		text      string
		wantBook  bool
		wantLabel string
		wantCount int
	}{
		{"bare blueprint", lampString(t, "lamps", 3), false, "lamps", 3},
		{"blueprint in prose", "try this: " + lampString(t, "x", 1) + " thanks", false, "x", 1},
		{"book selects active", bookString(t, 1), true, "b", 2},
		{"book last active", bookString(t, 2), true, "c", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(quiet())
			if err := s.Load(ctx, tt.text); err != nil {
				t.Fatal(err)
			}
			if (s.Book != nil) != tt.wantBook {
				t.Errorf("Book = %v, want book %v", s.Book, tt.wantBook)
			}
			if got := s.Blueprint.Meta().Label; got != tt.wantLabel {
				t.Errorf("label = %q, want %q", got, tt.wantLabel)
			}
			if got := s.Blueprint.Graph().EntityCount(); got != tt.wantCount {
				t.Errorf("entities = %d, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestLoadFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	s := New(quiet())
	if err := s.Load(ctx, lampString(t, "keep", 2)); err != nil {
		t.Fatal(err)
	}
	before := s.Blueprint

	err := s.Load(ctx, "nothing to see here")
	if !bperrors.Is(err, bperrors.ErrCodeNotFound) {
		t.Fatalf("Load(noise) = %v, want NOT_FOUND", err)
	}
	if s.Blueprint != before {
		t.Error("failed Load replaced the blueprint")
	}
}

func TestCopyRoundTrip(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		opts []Option
	}{
		{"async", nil},
		{"sync fallback", []Option{WithCodecs(nil, bpstring.NewSync(bpstring.WithScheme(bpstring.SchemeZlib)))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(append([]Option{quiet()}, tt.opts...)...)
			if err := s.Load(ctx, bookString(t, 0)); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Blueprint.History().Create(graph.Entity{Name: "small-lamp", Position: graph.Position{Y: 5}}); err != nil {
				t.Fatal(err)
			}
			str, err := s.Copy(ctx)
			if err != nil {
				t.Fatal(err)
			}
			back := New(quiet())
			if err := back.Load(ctx, str); err != nil {
				t.Fatal(err)
			}
			if back.Book == nil || back.Book.Len() != 3 {
				t.Fatalf("copied item is not the book: %+v", back.Item())
			}
			if n := back.Blueprint.Graph().EntityCount(); n != 2 {
				t.Errorf("entities = %d, want 2", n)
			}
		})
	}
}

func TestUndoRedo(t *testing.T) {
	var applied []history.Direction
	s := New(quiet(), WithHistory(history.WithHooks(history.Hooks{
		OnApplied: func(_ []history.Record, dir history.Direction) { applied = append(applied, dir) },
	})))
	h := s.Blueprint.History()
	id, err := h.Create(graph.Entity{Name: "small-lamp"})
	if err != nil {
		t.Fatal(err)
	}
	h.Commit()

	if _, err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if s.Blueprint.Graph().Has(id) {
		t.Error("entity survived undo")
	}
	if _, err := s.Redo(); err != nil {
		t.Fatal(err)
	}
	if !s.Blueprint.Graph().Has(id) {
		t.Error("entity missing after redo")
	}
	if len(applied) != 2 || applied[0] != history.Undo || applied[1] != history.Redo {
		t.Errorf("OnApplied directions = %v", applied)
	}
	if records, err := s.Redo(); err != nil || len(records) != 0 {
		t.Errorf("Redo at head = %v, %v; want no-op", records, err)
	}
}

func TestSelectBlueprint(t *testing.T) {
	s := New(quiet())
	if _, err := s.SelectBlueprint(0); err != ErrNoBook {
		t.Fatalf("SelectBlueprint without book = %v, want ErrNoBook", err)
	}
	if err := s.Load(context.Background(), bookString(t, 0)); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		in, want  int
		wantLabel string
	}{
		{2, 2, "c"},
		{-4, 0, "a"},
		{9, 2, "c"},
		{1, 1, "b"},
	}
	for _, tt := range tests {
		got, err := s.SelectBlueprint(tt.in)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want || s.Blueprint.Meta().Label != tt.wantLabel {
			t.Errorf("SelectBlueprint(%d) = %d (%q), want %d (%q)", tt.in, got, s.Blueprint.Meta().Label, tt.want, tt.wantLabel)
		}
	}
}

func TestPipette(t *testing.T) {
	s := New(quiet())
	g := s.Blueprint.Graph()
	exit, err := g.Create(graph.Entity{Name: "underground-belt", Direction: graph.East, DirectionType: "output"})
	if err != nil {
		t.Fatal(err)
	}
	asm, err := g.Create(graph.Entity{Name: "assembling-machine-1", Position: graph.Position{X: 4}, Direction: graph.South, Recipe: "iron-gear-wheel"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		id   int
		want Brush
	}{
		{"output flipped", exit, Brush{Name: "underground-belt", Direction: graph.West}},
		{"plain kept", asm, Brush{Name: "assembling-machine-1", Direction: graph.South, Recipe: "iron-gear-wheel"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Pipette(tt.id)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Pipette = %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, err := s.Pipette(99); !bperrors.Is(err, bperrors.ErrCodeNotFound) {
		t.Errorf("Pipette(missing) = %v, want NOT_FOUND", err)
	}
}

func TestPlace(t *testing.T) {
	s := New(quiet())
	if _, err := s.Place(graph.Position{}); err != ErrNoBrush {
		t.Fatalf("Place without brush = %v", err)
	}
	if err := s.Quickbar.Set(3, "transport-belt"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.PickSlot(3); err != nil {
		t.Fatal(err)
	}
	id, err := s.Place(graph.Position{X: 2, Y: 2})
	if err != nil {
		t.Fatal(err)
	}
	e, ok := s.Blueprint.Entity(id)
	if !ok || e.Name != "transport-belt" {
		t.Fatalf("placed entity = %+v, %v", e, ok)
	}
	if _, err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if s.Blueprint.Graph().Has(id) {
		t.Error("Place was not recorded in history")
	}
	if _, err := s.PickSlot(4); err == nil {
		t.Error("PickSlot(empty) succeeded")
	}
}

func TestQuickbarStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "quickbar.json")
	qs, err := NewQuickbarStore(path)
	if err != nil {
		t.Fatal(err)
	}

	q, err := qs.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(q) != DefaultQuickbarRows*SlotsPerRow {
		t.Fatalf("missing file: len = %d", len(q))
	}

	q = NewQuickbar(3)
	for i, name := range map[int]string{0: "transport-belt", 9: "inserter", 25: "small-lamp"} {
		if err := q.Set(i, name); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Set(30, "x"); err == nil {
		t.Error("Set out of range succeeded")
	}
	if err := q.Set(1, "bad name"); err == nil {
		t.Error("Set accepted an invalid name")
	}
	if err := qs.Save(q); err != nil {
		t.Fatal(err)
	}

	back, err := qs.Load()
	if err != nil {
		t.Fatal(err)
	}
	if back.Rows() != 3 || back.Slot(9) != "inserter" || back.Slot(25) != "small-lamp" || back.Slot(1) != "" {
		t.Errorf("Load = %q", back)
	}
}

func TestQuickbarStoreShortAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quickbar.json")
	if err := os.WriteFile(path, []byte(`["transport-belt", null, "inserter"]`), 0o600); err != nil {
		t.Fatal(err)
	}
	qs, _ := NewQuickbarStore(path)
	q, err := qs.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(q) != SlotsPerRow || q.Slot(2) != "inserter" || q.Slot(1) != "" {
		t.Errorf("Load = %q", q)
	}

	if err := os.WriteFile(path, []byte(`{"slots":`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := qs.Load(); !bperrors.Is(err, bperrors.ErrCodeStoreCorrupt) {
		t.Errorf("Load(corrupt) = %v, want STORE_CORRUPT", err)
	}
}

func TestQuickbarStoreDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	qs, err := NewQuickbarStore("")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "bpedit", "quickbar.json"); qs.Path() != want {
		t.Errorf("Path() = %q, want %q", qs.Path(), want)
	}
}
