package blueprint

import (
	"encoding/json"
	"maps"
	"slices"

	bperrors "github.com/matzehuels/bpedit/pkg/errors"
)

// Kind identifies an item variant. The values are the game's item names.
type Kind string

// Item kinds.
const (
	KindBlueprint Kind = "blueprint"
	KindBook      Kind = "blueprint-book"
)

// Signal identifies an item, fluid or virtual signal.
type Signal struct {
	Type string `json:"type,omitempty"` // "item", "fluid" or "virtual"; empty means item
	Name string `json:"name"`
}

// Icon is one of the up to four icons shown for a blueprint or book.
type Icon struct {
	Index  int    `json:"index"` // Slot, 1-based
	Signal Signal `json:"signal"`
}

// Meta is the metadata shared by blueprints and books.
type Meta struct {
	Label       string
	Description string
	Icons       []Icon
	Version     uint64 // Game version the item was exported with; 0 if unknown

	// Extra holds document fields the model does not interpret
	// (e.g. snap-to-grid settings), preserved for lossless round-trips.
	Extra map[string]json.RawMessage

	// DocumentExtra holds unknown fields of the enclosing document, next to
	// the blueprint or book object. Only top-level items carry it.
	DocumentExtra map[string]json.RawMessage
}

// SetLabel validates and sets the label.
func (m *Meta) SetLabel(label string) error {
	if err := bperrors.ValidateLabel(label); err != nil {
		return err
	}
	m.Label = label
	return nil
}

// SetIcons validates and replaces the icons. Icons are kept sorted by index.
func (m *Meta) SetIcons(icons []Icon) error {
	indexes := make([]int, len(icons))
	for i, ic := range icons {
		indexes[i] = ic.Index
		if err := bperrors.ValidateItemName(ic.Signal.Name); err != nil {
			return bperrors.Wrap(bperrors.ErrCodeInvalidIcons, err, "icon %d", ic.Index)
		}
	}
	if err := bperrors.ValidateIcons(indexes); err != nil {
		return err
	}
	sorted := slices.Clone(icons)
	slices.SortFunc(sorted, func(a, b Icon) int { return a.Index - b.Index })
	m.Icons = sorted
	return nil
}

// Clone returns a deep copy of m.
func (m Meta) Clone() Meta {
	c := m
	c.Icons = slices.Clone(m.Icons)
	if m.Extra != nil {
		c.Extra = maps.Clone(m.Extra)
	}
	if m.DocumentExtra != nil {
		c.DocumentExtra = maps.Clone(m.DocumentExtra)
	}
	return c
}
