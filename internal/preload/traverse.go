package preload

import (
	"github.com/modpreload/modpreload/internal/graph"
)

// A reference from a unit to something that isn't in the bundle
type MissingDependency struct {
	Importer string
	ID       string
}

type traversal struct {
	graph   *graph.Graph
	visited map[string]bool
	added   map[string]bool
	deps    []string
	missing []MissingDependency
}

// Computes what must be loaded ahead of a dynamic import of "target" from
// "origin". Units come in discovery order and each unit's stylesheets come
// right after everything it imports. The origin is never included since it's
// already loaded, and neither is the target since the dynamic import fetches
// it.
//
// If the target is a removed style-only unit, the result is its stylesheets
// and "removedTarget" is true.
func Traverse(g *graph.Graph, origin string, target string) (deps []string, removedTarget bool, missing []MissingDependency) {
	t := traversal{
		graph:   g,
		visited: map[string]bool{origin: true},
		added:   make(map[string]bool),
	}
	if _, ok := g.Removed[target]; ok {
		if _, ok := g.Units[target]; !ok {
			removedTarget = true
		}
	}
	t.visit(target, origin)

	deps = make([]string, 0, len(t.deps))
	for _, dep := range t.deps {
		if dep != target {
			deps = append(deps, dep)
		}
	}
	return deps, removedTarget, t.missing
}

func (t *traversal) visit(id string, importer string) {
	if t.visited[id] {
		return
	}
	t.visited[id] = true

	if unit, ok := t.graph.Units[id]; ok {
		t.add(id)
		if unit.Kind == graph.UnitCode {
			for _, dep := range unit.DeclaredImports {
				t.visit(dep, id)
			}
			for _, style := range unit.ImportedStyles {
				t.addStyle(style, id)
			}
		}
		return
	}

	if styles, ok := t.graph.Removed[id]; ok {
		for _, style := range styles {
			t.addStyle(style, id)
		}
		return
	}

	t.missing = append(t.missing, MissingDependency{Importer: importer, ID: id})
}

func (t *traversal) addStyle(id string, importer string) {
	if _, ok := t.graph.Units[id]; !ok {
		t.missing = append(t.missing, MissingDependency{Importer: importer, ID: id})
		return
	}
	t.add(id)
}

func (t *traversal) add(id string) {
	if !t.added[id] {
		t.added[id] = true
		t.deps = append(t.deps, id)
	}
}
