package blueprint

import (
	"errors"
	"testing"

	bperrors "github.com/matzehuels/bpedit/pkg/errors"
	"github.com/matzehuels/bpedit/pkg/graph"
	"github.com/matzehuels/bpedit/pkg/history"
)

func TestNewBlueprint(t *testing.T) {
	bp := New(history.WithMaxTransactions(5))
	if !bp.IsEmpty() {
		t.Error("new blueprint should be empty")
	}
	if bp.Kind() != KindBlueprint {
		t.Errorf("Kind() = %q", bp.Kind())
	}
	if bp.History().Graph() != bp.Graph() {
		t.Error("history records a different graph")
	}
	if bp.History().MaxTransactions() != 5 {
		t.Errorf("MaxTransactions() = %d, want 5", bp.History().MaxTransactions())
	}
}

func TestBlueprintUndoRedo(t *testing.T) {
	bp := New()
	id, err := bp.History().Create(graph.Entity{Name: "pipe"})
	if err != nil {
		t.Fatal(err)
	}
	bp.History().Commit()

	if _, ok := bp.Entity(id); !ok {
		t.Fatal("Entity() did not find created pipe")
	}
	if _, err := bp.Undo(); err != nil {
		t.Fatal(err)
	}
	if !bp.IsEmpty() {
		t.Error("blueprint not empty after undo")
	}
	if _, err := bp.Redo(); err != nil {
		t.Fatal(err)
	}
	if bp.IsEmpty() {
		t.Error("blueprint empty after redo")
	}

	// Tiles alone make a blueprint non-empty.
	tiles := New()
	_ = tiles.Graph().CreateTile(graph.Tile{Name: "landfill"})
	if tiles.IsEmpty() {
		t.Error("blueprint with a tile reported empty")
	}
}

func TestSetIcons(t *testing.T) {
	tests := []struct {
		name    string
		icons   []Icon
		wantErr bool
	}{
		{"none", nil, false},
		{"sorted on set", []Icon{{Index: 2, Signal: Signal{Name: "rail"}}, {Index: 1, Signal: Signal{Type: "virtual", Name: "signal-A"}}}, false},
		{"five", []Icon{{Index: 1, Signal: Signal{Name: "a"}}, {Index: 2, Signal: Signal{Name: "b"}}, {Index: 3, Signal: Signal{Name: "c"}}, {Index: 4, Signal: Signal{Name: "d"}}, {Index: 4, Signal: Signal{Name: "e"}}}, true},
		{"empty signal", []Icon{{Index: 1}}, true},
		{"bad index", []Icon{{Index: 0, Signal: Signal{Name: "rail"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Meta
			err := m.SetIcons(tt.icons)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetIcons() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !bperrors.Is(err, bperrors.ErrCodeInvalidIcons) {
				t.Errorf("code = %v, want %v", bperrors.GetCode(err), bperrors.ErrCodeInvalidIcons)
			}
			for i := 1; i < len(m.Icons); i++ {
				if m.Icons[i-1].Index > m.Icons[i].Index {
					t.Errorf("icons not sorted: %v", m.Icons)
				}
			}
		})
	}
}

func TestBookBlueprintClamped(t *testing.T) {
	book := NewBook()
	if book.Blueprint(0) != nil || book.ActiveBlueprint() != nil {
		t.Error("empty book should return nil blueprints")
	}

	a, b, c := New(), New(), New()
	for _, bp := range []*Blueprint{a, b, c} {
		if err := book.Append(bp); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		index int
		want  *Blueprint
	}{
		{-5, a},
		{0, a},
		{1, b},
		{2, c},
		{99, c},
	}
	for _, tt := range tests {
		if got := book.Blueprint(tt.index); got != tt.want {
			t.Errorf("Blueprint(%d) returned the wrong blueprint", tt.index)
		}
	}

	if got := book.SetActive(10); got != 2 || book.ActiveBlueprint() != c {
		t.Errorf("SetActive(10) = %d", got)
	}
}

func TestBookNested(t *testing.T) {
	inner := NewBook()
	x, y := New(), New()
	_ = inner.Append(x)
	_ = inner.Append(y)
	inner.SetActive(1)

	outer := NewBook()
	first := New()
	_ = outer.Append(first)
	_ = outer.Append(inner)

	if got := outer.Blueprint(1); got != y {
		t.Error("Blueprint(1) should return the nested book's active blueprint")
	}
	if got := outer.Blueprints(); len(got) != 3 || got[0] != first || got[2] != y {
		t.Errorf("Blueprints() = %d items", len(got))
	}

	if err := inner.Append(outer); !errors.Is(err, ErrCycle) {
		t.Errorf("cyclic Append() err = %v, want ErrCycle", err)
	}
	if err := outer.Append(outer); !errors.Is(err, ErrCycle) {
		t.Errorf("self Append() err = %v, want ErrCycle", err)
	}
}

func TestSetActiveKeepsHistories(t *testing.T) {
	book := NewBook()
	a, b := New(), New()
	_ = book.Append(a)
	_ = book.Append(b)

	_, _ = a.History().Create(graph.Entity{Name: "boiler"})
	a.History().Commit()

	book.SetActive(1)
	_, _ = b.History().Create(graph.Entity{Name: "steam-engine"})
	b.History().Commit()
	book.SetActive(0)

	if a.History().Len() != 1 || b.History().Len() != 1 {
		t.Errorf("history lengths = %d, %d; want 1, 1", a.History().Len(), b.History().Len())
	}
	if _, err := book.ActiveBlueprint().Undo(); err != nil {
		t.Fatal(err)
	}
	if !a.IsEmpty() || b.IsEmpty() {
		t.Error("undo on the active blueprint affected the wrong one")
	}
}
