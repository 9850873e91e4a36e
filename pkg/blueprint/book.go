package blueprint

import (
	"errors"
	"slices"
)

// ErrCycle is returned when appending a book to itself or to a book it contains.
var ErrCycle = errors.New("book cannot contain itself")

// Book is an ordered collection of blueprints and nested books.
type Book struct {
	meta   Meta
	items  []Item
	active int
}

// NewBook creates an empty book.
func NewBook() *Book { return &Book{} }

func (b *Book) Kind() Kind  { return KindBook }
func (b *Book) Meta() *Meta { return &b.meta }
func (b *Book) item()       {}

// IsEmpty reports whether the book has no items.
func (b *Book) IsEmpty() bool { return len(b.items) == 0 }

// Len returns the number of items.
func (b *Book) Len() int { return len(b.items) }

// Items returns the items in order. The slice is a copy; the items are not.
func (b *Book) Items() []Item { return slices.Clone(b.items) }

// Item returns the item at index i, or nil if i is out of range.
func (b *Book) Item(i int) Item {
	if i < 0 || i >= len(b.items) {
		return nil
	}
	return b.items[i]
}

// Append adds an item at the end. Nil items are ignored.
func (b *Book) Append(it Item) error {
	if it == nil {
		return nil
	}
	if nested, ok := it.(*Book); ok && nested.contains(b) {
		return ErrCycle
	}
	b.items = append(b.items, it)
	return nil
}

func (b *Book) contains(target *Book) bool {
	if b == target {
		return true
	}
	for _, it := range b.items {
		if nested, ok := it.(*Book); ok && nested.contains(target) {
			return true
		}
	}
	return false
}

// Active returns the active index.
func (b *Book) Active() int { return b.active }

// SetActive sets the active index, clamped to [0, Len-1], and returns the
// index actually set. Blueprint histories are not touched.
func (b *Book) SetActive(i int) int {
	b.active = b.clamp(i)
	return b.active
}

// Blueprint returns the blueprint at index i, clamped to [0, Len-1].
// If the item there is a book, its active blueprint is returned.
// It returns nil for an empty book.
func (b *Book) Blueprint(i int) *Blueprint {
	if len(b.items) == 0 {
		return nil
	}
	switch it := b.items[b.clamp(i)].(type) {
	case *Blueprint:
		return it
	case *Book:
		return it.ActiveBlueprint()
	}
	return nil
}

// ActiveBlueprint returns Blueprint(Active()).
func (b *Book) ActiveBlueprint() *Blueprint { return b.Blueprint(b.active) }

// Blueprints returns every blueprint in the book, depth-first.
func (b *Book) Blueprints() []*Blueprint {
	var out []*Blueprint
	for _, it := range b.items {
		switch it := it.(type) {
		case *Blueprint:
			out = append(out, it)
		case *Book:
			out = append(out, it.Blueprints()...)
		}
	}
	return out
}

func (b *Book) clamp(i int) int {
	return max(0, min(i, len(b.items)-1))
}
