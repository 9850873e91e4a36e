package bpstring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// =============================================================================
// Document Types
// =============================================================================

// Document is the structured form carried inside an envelope.
//
// The game nests "item" and "version" inside the blueprint object; documents
// in that layout are accepted and normalized by [ParseDocument].
type Document struct {
	Item      string        `json:"item" validate:"required,oneof=blueprint blueprint-book"`
	Version   uint64        `json:"version,omitempty"`
	Blueprint *BlueprintDoc `json:"blueprint,omitempty" validate:"required_if=Item blueprint,excluded_with=Book"`
	Book      *BookDoc      `json:"blueprint_book,omitempty" validate:"required_if=Item blueprint-book"`

	Extra map[string]json.RawMessage `json:"-"`
}

// BlueprintDoc is a blueprint object.
type BlueprintDoc struct {
	Item        string      `json:"item,omitempty" validate:"omitempty,eq=blueprint"`
	Label       string      `json:"label,omitempty"`
	Description string      `json:"description,omitempty"`
	Icons       []IconDoc   `json:"icons,omitempty" validate:"max=4,unique=Index,dive"`
	Entities    []EntityDoc `json:"entities,omitempty" validate:"unique=EntityNumber,dive"`
	Tiles       []TileDoc   `json:"tiles,omitempty" validate:"dive"`
	Version     uint64      `json:"version,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// BookDoc is a blueprint book object.
type BookDoc struct {
	Item        string      `json:"item,omitempty" validate:"omitempty,eq=blueprint-book"`
	Label       string      `json:"label,omitempty"`
	Description string      `json:"description,omitempty"`
	Icons       []IconDoc   `json:"icons,omitempty" validate:"max=4,unique=Index,dive"`
	Blueprints  []BookEntry `json:"blueprints,omitempty" validate:"unique=Index,dive"`
	ActiveIndex int         `json:"active_index" validate:"min=0"`
	Version     uint64      `json:"version,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// BookEntry is one slot of a book. Exactly one of Blueprint and Book is set.
type BookEntry struct {
	Index     int           `json:"index" validate:"min=0"`
	Blueprint *BlueprintDoc `json:"blueprint,omitempty" validate:"required_without=Book,excluded_with=Book"`
	Book      *BookDoc      `json:"blueprint_book,omitempty"`
}

// IconDoc is a blueprint or book icon.
type IconDoc struct {
	Index  int       `json:"index" validate:"min=1,max=4"`
	Signal SignalDoc `json:"signal"`
}

// SignalDoc identifies an item, fluid or virtual signal.
type SignalDoc struct {
	Type string `json:"type,omitempty" validate:"omitempty,oneof=item fluid virtual"`
	Name string `json:"name" validate:"required"`
}

// PositionDoc is an entity position.
type PositionDoc struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CellDoc is a tile position.
type CellDoc struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// FilterDoc is an indexed item filter.
type FilterDoc struct {
	Index int    `json:"index" validate:"min=1"`
	Name  string `json:"name" validate:"required"`
}

// EntityDoc is one placed entity.
type EntityDoc struct {
	EntityNumber int            `json:"entity_number" validate:"min=1"`
	Name         string         `json:"name" validate:"required"`
	Position     PositionDoc    `json:"position"`
	Direction    int            `json:"direction,omitempty" validate:"min=0,max=7"`
	Recipe       string         `json:"recipe,omitempty"`
	Type         string         `json:"type,omitempty" validate:"omitempty,oneof=input output"`
	Filters      []FilterDoc    `json:"filters,omitempty" validate:"dive"`
	Items        map[string]int `json:"items,omitempty" validate:"dive,keys,required,endkeys,min=0"`
	Connections  *Connections   `json:"connections,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// TileDoc is one placed tile.
type TileDoc struct {
	Name     string  `json:"name" validate:"required"`
	Position CellDoc `json:"position"`
}

// WireRef is one wire as listed on an entity's connection point.
type WireRef struct {
	EntityID  int `json:"entity_id" validate:"min=1"`
	CircuitID int `json:"circuit_id,omitempty" validate:"min=0,max=2"` // 0 means 1
}

// CircuitPoint lists the wires on one connection point by color.
type CircuitPoint struct {
	Red   []WireRef `json:"red,omitempty" validate:"dive"`
	Green []WireRef `json:"green,omitempty" validate:"dive"`
}

// Connections is the game's nested wire layout:
//
//	{"1": {"red": [{"entity_id": 2}]}, "2": {"green": [{"entity_id": 3, "circuit_id": 1}]}}
//
// Numeric keys are circuit connection points. Other keys (copper wires such
// as "Cu0") are kept verbatim in Extra.
type Connections struct {
	Points map[int]CircuitPoint       `validate:"dive,keys,min=1,max=2,endkeys"`
	Extra  map[string]json.RawMessage `validate:"-"`
}

// =============================================================================
// JSON Encoding
// =============================================================================

var (
	documentKeys  = []string{"item", "version", "blueprint", "blueprint_book"}
	blueprintKeys = []string{"item", "label", "description", "icons", "entities", "tiles", "version"}
	bookKeys      = []string{"item", "label", "description", "icons", "blueprints", "active_index", "version"}
	entityKeys    = []string{"entity_number", "name", "position", "direction", "recipe", "type", "filters", "items", "connections"}
)

func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = Document(p)
	d.Extra = splitExtra(data, documentKeys)
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	type plain Document
	return marshalWithExtra(plain(d), d.Extra, documentKeys)
}

func (d *BlueprintDoc) UnmarshalJSON(data []byte) error {
	type plain BlueprintDoc
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = BlueprintDoc(p)
	d.Extra = splitExtra(data, blueprintKeys)
	return nil
}

func (d BlueprintDoc) MarshalJSON() ([]byte, error) {
	type plain BlueprintDoc
	return marshalWithExtra(plain(d), d.Extra, blueprintKeys)
}

func (d *BookDoc) UnmarshalJSON(data []byte) error {
	type plain BookDoc
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = BookDoc(p)
	d.Extra = splitExtra(data, bookKeys)
	return nil
}

func (d BookDoc) MarshalJSON() ([]byte, error) {
	type plain BookDoc
	return marshalWithExtra(plain(d), d.Extra, bookKeys)
}

func (e *EntityDoc) UnmarshalJSON(data []byte) error {
	type plain EntityDoc
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = EntityDoc(p)
	e.Extra = splitExtra(data, entityKeys)
	return nil
}

func (e EntityDoc) MarshalJSON() ([]byte, error) {
	type plain EntityDoc
	return marshalWithExtra(plain(e), e.Extra, entityKeys)
}

func (c *Connections) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return fmt.Errorf("connections: expected object, got %s", res.Type)
	}
	c.Points = make(map[int]CircuitPoint)
	var err error
	res.ForEach(func(key, value gjson.Result) bool {
		n, convErr := strconv.Atoi(key.String())
		if convErr != nil {
			if c.Extra == nil {
				c.Extra = make(map[string]json.RawMessage)
			}
			c.Extra[key.String()] = json.RawMessage(value.Raw)
			return true
		}
		var p CircuitPoint
		if err = json.Unmarshal([]byte(value.Raw), &p); err != nil {
			err = fmt.Errorf("connection point %d: %w", n, err)
			return false
		}
		c.Points[n] = p
		return true
	})
	return err
}

func (c Connections) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Points)+len(c.Extra))
	for k, v := range c.Extra {
		out[k] = v
	}
	for n, p := range c.Points {
		out[strconv.Itoa(n)] = p
	}
	return marshal(out)
}

// IsEmpty reports whether c lists no wires.
func (c *Connections) IsEmpty() bool {
	return c == nil || (len(c.Points) == 0 && len(c.Extra) == 0)
}

// splitExtra returns the members of a JSON object whose keys are not known.
func splitExtra(data []byte, known []string) map[string]json.RawMessage {
	var extra map[string]json.RawMessage
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		if !slices.Contains(known, key.String()) {
			if extra == nil {
				extra = make(map[string]json.RawMessage)
			}
			extra[key.String()] = json.RawMessage(value.Raw)
		}
		return true
	})
	return extra
}

// marshalWithExtra marshals v and appends the extra members in key order.
// Extras that shadow a known key are dropped.
func marshalWithExtra(v any, extra map[string]json.RawMessage, known []string) ([]byte, error) {
	data, err := marshal(v)
	if err != nil {
		return nil, err
	}
	for _, key := range slices.Sorted(maps.Keys(extra)) {
		if slices.Contains(known, key) {
			continue
		}
		raw, err := compactRaw(extra[key])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		if data, err = sjson.SetRawBytes(data, escapePath(key), raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
	}
	return data, nil
}

// marshal encodes v as compact JSON without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func compactRaw(raw json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// escapePath escapes the characters sjson treats as path syntax.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		if strings.ContainsRune(`\.*?|#@!:`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// =============================================================================
// Validation
// =============================================================================

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateBlueprintDoc, BlueprintDoc{})
	return v
}

// validateBlueprintDoc checks the cross-field rules tags cannot express:
// wire peers exist and tiles do not stack.
func validateBlueprintDoc(sl validator.StructLevel) {
	bd := sl.Current().Interface().(BlueprintDoc)

	numbers := make(map[int]bool, len(bd.Entities))
	for _, e := range bd.Entities {
		numbers[e.EntityNumber] = true
	}
	for i, e := range bd.Entities {
		if e.Connections == nil {
			continue
		}
		for _, p := range e.Connections.Points {
			for _, ref := range slices.Concat(p.Red, p.Green) {
				if !numbers[ref.EntityID] || ref.EntityID == e.EntityNumber {
					sl.ReportError(e.Connections, fmt.Sprintf("entities[%d].connections", i), "Connections", "wirepeer", strconv.Itoa(ref.EntityID))
				}
			}
		}
	}

	cells := make(map[CellDoc]bool, len(bd.Tiles))
	for i, t := range bd.Tiles {
		if cells[t.Position] {
			sl.ReportError(t.Position, fmt.Sprintf("tiles[%d].position", i), "Position", "uniquecell", "")
		}
		cells[t.Position] = true
	}
}

// Validate checks the document against the schema.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError joins field errors into one readable error.
func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Document.")
	switch e.Tag() {
	case "required", "required_if", "required_without":
		return fmt.Sprintf("%s is required", field)
	case "excluded_with":
		return fmt.Sprintf("%s conflicts with %s", field, e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "eq":
		return fmt.Sprintf("%s must be %q", field, e.Param())
	case "unique":
		return fmt.Sprintf("%s has duplicate %s values", field, e.Param())
	case "wirepeer":
		return fmt.Sprintf("%s wires to missing entity %s", field, e.Param())
	case "uniquecell":
		return fmt.Sprintf("%s has a tile already", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// =============================================================================
// Parsing
// =============================================================================

// ParseDocument parses and validates a JSON document. Failures are
// SchemaMismatch DecodeErrors.
func ParseDocument(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, decodeErr(StageDecompressed, SchemaMismatch, err)
	}
	d.normalize()
	if err := d.Validate(); err != nil {
		return nil, decodeErr(StageDecompressed, SchemaMismatch, err)
	}
	return &d, nil
}

// normalize fills the top-level item and version from the game's nested
// layout. Top-level values win when both exist.
func (d *Document) normalize() {
	switch {
	case d.Blueprint != nil:
		if d.Item == "" {
			d.Item = "blueprint"
		}
		if d.Version == 0 {
			d.Version = d.Blueprint.Version
		}
	case d.Book != nil:
		if d.Item == "" {
			d.Item = "blueprint-book"
		}
		if d.Version == 0 {
			d.Version = d.Book.Version
		}
	}
}

// JSON returns the canonical encoding of d. With indent the output is
// pretty-printed with two spaces.
func (d *Document) JSON(indent bool) ([]byte, error) {
	data, err := marshal(d)
	if err != nil || !indent {
		return data, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
