package preload_test

import (
	"strings"
	"testing"

	"github.com/modpreload/modpreload/internal/graph"
	"github.com/modpreload/modpreload/internal/preload"
	"github.com/modpreload/modpreload/internal/test"
)

func expectTraverse(t *testing.T, g *graph.Graph, origin string, target string, expected string) {
	t.Helper()
	deps, removed, missing := preload.Traverse(g, origin, target)
	test.AssertEqual(t, len(missing), 0)
	text := strings.Join(deps, " ")
	if removed {
		text = "(removed) " + text
	}
	test.AssertEqual(t, text, expected)
}

func TestTraverseOrder(t *testing.T) {
	g := newGraph(
		code("origin.js", "", nil),
		code("t.js", "", []string{"a.js", "b.js"}, "t.css"),
		code("a.js", "", []string{"c.js"}, "a.css", "shared.css"),
		code("b.js", "", []string{"c.js"}, "b.css", "shared.css"),
		code("c.js", "", nil, "c.css"),
		asset("t.css", ""),
		asset("a.css", ""),
		asset("b.css", ""),
		asset("c.css", ""),
		asset("shared.css", ""),
	)

	// Each unit's stylesheets follow everything it imports
	expectTraverse(t, g, "origin.js", "t.js", "a.js c.js c.css a.css shared.css b.js b.css t.css")
	expectTraverse(t, g, "origin.js", "c.js", "c.css")
}

func TestTraverseSkipsOrigin(t *testing.T) {
	g := newGraph(
		code("origin.js", "", []string{"shared.js"}, "origin.css"),
		code("t.js", "", []string{"origin.js", "shared.js"}),
		code("shared.js", "", nil),
		asset("origin.css", ""),
	)

	// Everything the origin pulls in is reached only through the origin
	expectTraverse(t, g, "origin.js", "t.js", "shared.js")
	expectTraverse(t, g, "origin.js", "origin.js", "")
}

func TestTraverseRemoved(t *testing.T) {
	g := newGraph(
		code("origin.js", "", nil),
		code("t.js", "", []string{"styles.js"}),
		asset("x.css", ""),
	)
	g.Removed["styles.js"] = []string{"x.css"}

	expectTraverse(t, g, "origin.js", "t.js", "x.css")
	expectTraverse(t, g, "origin.js", "styles.js", "(removed) x.css")
}

func TestTraverseMissing(t *testing.T) {
	g := newGraph(
		code("origin.js", "", nil),
		code("t.js", "", []string{"gone.js"}, "gone.css"),
	)
	deps, _, missing := preload.Traverse(g, "origin.js", "t.js")
	test.AssertEqual(t, len(deps), 0)
	test.AssertEqual(t, len(missing), 2)
	test.AssertEqual(t, missing[0], preload.MissingDependency{Importer: "t.js", ID: "gone.js"})
	test.AssertEqual(t, missing[1], preload.MissingDependency{Importer: "t.js", ID: "gone.css"})
}

func TestRegistry(t *testing.T) {
	r := preload.Registry{}
	test.AssertEqual(t, r.String(), "[]")
	test.AssertEqual(t, r.Index("a.js", true), 0)
	test.AssertEqual(t, r.Index("b.css", true), 1)
	test.AssertEqual(t, r.Index("a.js", true), 0)
	test.AssertEqual(t, r.Index("a.js", false), 2)
	test.AssertEqual(t, r.Len(), 3)
	test.AssertEqual(t, r.String(), `["a.js","b.css",a.js]`)
}
