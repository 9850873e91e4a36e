package graph_test

import (
	"fmt"

	"github.com/matzehuels/bpedit/pkg/graph"
)

func Example() {
	g := graph.New()

	lamp, _ := g.Create(graph.Entity{Name: "small-lamp"})
	combinator, _ := g.Create(graph.Entity{
		Name:     "constant-combinator",
		Position: graph.Position{X: 1},
	})
	_ = g.Connect(graph.Wire{A: lamp, APoint: 1, B: combinator, BPoint: 1, Color: graph.Red})

	fmt.Println("entities:", g.EntityCount())
	fmt.Println("lamp wired to:", g.WiresOf(lamp))

	removed, _ := g.Delete(combinator)
	fmt.Println("wire ends removed:", removed)
	fmt.Println("lamp wired to:", g.WiresOf(lamp))
	// Output:
	// entities: 2
	// lamp wired to: [2]
	// wire ends removed: 1
	// lamp wired to: []
}

func ExampleGraph_Update() {
	g := graph.New()
	id, _ := g.Create(graph.Entity{Name: "assembling-machine-2"})

	p := graph.Patch{Recipe: graph.Ptr("electronic-circuit")}
	before, _ := g.Entity(id)
	inverse := graph.Capture(before, p)

	_ = g.Update(id, p)
	e, _ := g.Entity(id)
	fmt.Printf("%s: %q\n", p, e.Recipe)

	_ = g.Update(id, inverse)
	e, _ = g.Entity(id)
	fmt.Printf("%s: %q\n", inverse, e.Recipe)
	// Output:
	// recipe: "electronic-circuit"
	// recipe: ""
}
