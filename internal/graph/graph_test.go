package graph_test

import (
	"strings"
	"testing"

	"github.com/modpreload/modpreload/internal/graph"
	"github.com/modpreload/modpreload/internal/test"
)

func TestSortedUnits(t *testing.T) {
	g := graph.New()
	g.Add(&graph.Unit{ID: "b.js"})
	g.Add(&graph.Unit{ID: "a.css", Kind: graph.UnitAsset})
	g.Add(&graph.Unit{ID: "a.js"})
	g.Add(&graph.Unit{ID: "assets/c.js"})

	test.AssertEqual(t, strings.Join(g.SortedIDs(), ","), "a.css,a.js,assets/c.js,b.js")

	var code []string
	for _, unit := range g.CodeUnits() {
		code = append(code, unit.ID)
	}
	test.AssertEqual(t, strings.Join(code, ","), "a.js,assets/c.js,b.js")

	_, ok := g.Unit("missing.js")
	test.AssertEqual(t, ok, false)
}

func TestImportedStylesAreASet(t *testing.T) {
	unit := &graph.Unit{ID: "a.js"}
	unit.AddImportedStyle("b.css")
	unit.AddImportedStyle("a.css")
	unit.AddImportedStyle("b.css")
	test.AssertEqual(t, strings.Join(unit.ImportedStyles, ","), "b.css,a.css")
}
