package bpstring

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/bpedit/pkg/observability"
)

const unorderedBlueprint = `{"blueprint":{"item":"blueprint","label":"pair","entities":[
	{"entity_number":2,"name":"constant-combinator","position":{"x":1,"y":0},"connections":{"1":{"green":[{"entity_id":1}]}}},
	{"entity_number":1,"name":"small-lamp","position":{"x":0,"y":0},"connections":{"1":{"green":[{"entity_id":2}]}}}
],"version":7},"schema_hint":"v2"}`

const unorderedBook = `{"blueprint_book":{"label":"mall","active_index":1,"blueprints":[
	{"index":1,"blueprint":{"label":"second"}},
	{"index":0,"blueprint_book":{"label":"inner","active_index":0,"blueprints":[{"index":0,"blueprint":{"label":"deep"}}]}}
]}}`

func TestEncodeDocumentMatchesAcrossCodecs(t *testing.T) {
	ctx := context.Background()
	for name, input := range map[string]string{"blueprint": unorderedBlueprint, "book": unorderedBook} {
		t.Run(name, func(t *testing.T) {
			parse := func() *Document {
				doc, err := ParseDocument([]byte(input))
				if err != nil {
					t.Fatal(err)
				}
				return doc
			}

			async, err := NewAsync().EncodeDocument(ctx, parse())
			if err != nil {
				t.Fatal(err)
			}
			res := NewSync().EncodeDocument(parse())
			if !res.OK() {
				t.Fatal(res.Err)
			}
			it, err := parse().Model()
			if err != nil {
				t.Fatal(err)
			}
			viaModel := NewSync().EncodeSync(it)
			if !viaModel.OK() {
				t.Fatal(viaModel.Err)
			}

			if async != res.Value {
				t.Errorf("Async.EncodeDocument != Sync.EncodeDocument")
			}
			if async != viaModel.Value {
				t.Errorf("Async.EncodeDocument != Sync.EncodeSync(doc.Model())")
			}
		})
	}
}

func TestEncodeDocumentKeepsDocumentFields(t *testing.T) {
	ctx := context.Background()
	for name, tt := range map[string]struct {
		input string
		want  []string
	}{
		"top-level extra": {unorderedBlueprint, []string{`"schema_hint":"v2"`}},
		"nested book item": {unorderedBook, []string{
			`"blueprint_book":{"item":"blueprint-book","label":"mall"`,
			`"blueprint_book":{"item":"blueprint-book","label":"inner"`,
		}},
	} {
		t.Run(name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			s, err := EncodeDocument(ctx, doc)
			if err != nil {
				t.Fatal(err)
			}
			back, err := DecodeDocument(ctx, s)
			if err != nil {
				t.Fatal(err)
			}
			data, err := back.JSON(false)
			if err != nil {
				t.Fatal(err)
			}
			for _, want := range tt.want {
				if !strings.Contains(string(data), want) {
					t.Errorf("re-encoded document lacks %s\n%s", want, data)
				}
			}
		})
	}
}

func TestDocumentExtraJSON(t *testing.T) {
	doc, err := ParseDocument([]byte(unorderedBlueprint))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(doc.Extra["schema_hint"]); got != `"v2"` {
		t.Errorf("Extra[schema_hint] = %s", got)
	}
	if _, ok := doc.Extra["blueprint"]; ok {
		t.Error("known key kept in Extra")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), `,"schema_hint":"v2"}`) {
		t.Errorf("Marshal = %s", data)
	}
}

type encodeCounter struct {
	observability.NoopCodecHooks
	mu    sync.Mutex
	kinds []string
}

func (c *encodeCounter) OnEncode(_ context.Context, kind, _ string, _ int, _ time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.kinds = append(c.kinds, kind)
	}
}

func TestEncodeDocumentReportsEncode(t *testing.T) {
	counter := &encodeCounter{}
	observability.SetCodecHooks(counter)
	t.Cleanup(observability.Reset)

	doc, err := ParseDocument([]byte(unorderedBlueprint))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := EncodeDocument(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	if res := NewSync().EncodeDocument(doc); !res.OK() {
		t.Fatal(res.Err)
	}

	counter.mu.Lock()
	defer counter.mu.Unlock()
	if len(counter.kinds) != 2 || counter.kinds[0] != "blueprint" || counter.kinds[1] != "blueprint" {
		t.Errorf("OnEncode kinds = %v, want two blueprint encodes", counter.kinds)
	}
}
