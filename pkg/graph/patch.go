package graph

import (
	"maps"
	"slices"
	"strings"
)

// Patch is a field-level partial update of an entity.
// Nil fields are left untouched. Pointer-to-slice and pointer-to-map fields
// distinguish "clear the field" (pointer to nil) from "leave it alone" (nil pointer).
type Patch struct {
	Name          *string
	Position      *Position
	Direction     *Direction
	Recipe        *string
	DirectionType *string
	Filters       *[]Filter
	Items         *map[string]int
	Connections   *[]Connection
}

// Ptr returns a pointer to v. It keeps patch literals short:
//
//	graph.Patch{Recipe: graph.Ptr("iron-gear-wheel")}
func Ptr[T any](v T) *T { return &v }

// MovePatch returns the patch a move applies.
func MovePatch(p Placement) Patch {
	return Patch{Position: Ptr(p.Position), Direction: Ptr(p.Direction)}
}

// IsEmpty reports whether the patch touches no field.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Position == nil && p.Direction == nil &&
		p.Recipe == nil && p.DirectionType == nil && p.Filters == nil &&
		p.Items == nil && p.Connections == nil
}

// IsPlacementOnly reports whether the patch only touches position and direction.
func (p Patch) IsPlacementOnly() bool {
	return !p.IsEmpty() && p.Name == nil && p.Recipe == nil && p.DirectionType == nil &&
		p.Filters == nil && p.Items == nil && p.Connections == nil
}

// Fields returns the names of the touched fields in declaration order,
// using the interchange format's key names.
func (p Patch) Fields() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(p.Name != nil, "name")
	add(p.Position != nil, "position")
	add(p.Direction != nil, "direction")
	add(p.Recipe != nil, "recipe")
	add(p.DirectionType != nil, "type")
	add(p.Filters != nil, "filters")
	add(p.Items != nil, "items")
	add(p.Connections != nil, "connections")
	return out
}

// String lists the touched fields, e.g. "position,direction".
func (p Patch) String() string { return strings.Join(p.Fields(), ",") }

// Clone returns a deep copy of the patch.
func (p Patch) Clone() Patch {
	c := p
	if p.Name != nil {
		c.Name = Ptr(*p.Name)
	}
	if p.Position != nil {
		c.Position = Ptr(*p.Position)
	}
	if p.Direction != nil {
		c.Direction = Ptr(*p.Direction)
	}
	if p.Recipe != nil {
		c.Recipe = Ptr(*p.Recipe)
	}
	if p.DirectionType != nil {
		c.DirectionType = Ptr(*p.DirectionType)
	}
	if p.Filters != nil {
		c.Filters = Ptr(slices.Clone(*p.Filters))
	}
	if p.Items != nil {
		var items map[string]int
		if *p.Items != nil {
			items = maps.Clone(*p.Items)
		}
		c.Items = &items
	}
	if p.Connections != nil {
		c.Connections = Ptr(slices.Clone(*p.Connections))
	}
	return c
}

// Capture returns a patch touching the same fields as p, holding e's current
// values. Applying Capture(e, p) after p restores e.
func Capture(e Entity, p Patch) Patch {
	var c Patch
	if p.Name != nil {
		c.Name = Ptr(e.Name)
	}
	if p.Position != nil {
		c.Position = Ptr(e.Position)
	}
	if p.Direction != nil {
		c.Direction = Ptr(e.Direction)
	}
	if p.Recipe != nil {
		c.Recipe = Ptr(e.Recipe)
	}
	if p.DirectionType != nil {
		c.DirectionType = Ptr(e.DirectionType)
	}
	if p.Filters != nil {
		c.Filters = Ptr(slices.Clone(e.Filters))
	}
	if p.Items != nil {
		var items map[string]int
		if e.Items != nil {
			items = maps.Clone(e.Items)
		}
		c.Items = &items
	}
	if p.Connections != nil {
		c.Connections = Ptr(slices.Clone(e.Connections))
	}
	return c
}

// applyFields applies every field except Connections, which the Graph
// applies itself to keep both wire endpoints consistent.
func (p Patch) applyFields(e *Entity) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Position != nil {
		e.Position = *p.Position
	}
	if p.Direction != nil {
		e.Direction = *p.Direction
	}
	if p.Recipe != nil {
		e.Recipe = *p.Recipe
	}
	if p.DirectionType != nil {
		e.DirectionType = *p.DirectionType
	}
	if p.Filters != nil {
		e.Filters = slices.Clone(*p.Filters)
	}
	if p.Items != nil {
		e.Items = nil
		if *p.Items != nil {
			e.Items = maps.Clone(*p.Items)
		}
	}
}
