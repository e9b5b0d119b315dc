package graph

import (
	"golang.org/x/exp/slices"

	"github.com/modpreload/modpreload/internal/sourcemap"
)

type UnitKind uint8

const (
	UnitCode UnitKind = iota
	UnitAsset
)

// A compiled output unit. IDs are paths relative to the output directory and
// always use forward slashes.
type Unit struct {
	ID   string
	Kind UnitKind
	Text string

	// Other code units this unit imports statically. Dynamic imports are not
	// listed here since they are what gets preloaded.
	DeclaredImports []string

	// Stylesheets this unit pulls in, in the order they must be applied.
	// There are no duplicates.
	ImportedStyles []string

	// The map from Text back to the original sources, if there is one
	Map *sourcemap.SourceMap

	// The ID of the sibling ".map" unit that Map was read from, if any
	MapFile string

	IsEntry bool

	// Set once the unit imports the runtime helper
	Participates bool
}

func (u *Unit) AddImportedStyle(id string) {
	if !slices.Contains(u.ImportedStyles, id) {
		u.ImportedStyles = append(u.ImportedStyles, id)
	}
}

// Units that existed before the final output was written but were dropped
// because they only imported stylesheets. Dynamic imports of these still
// need their stylesheets loaded.
type RemovedStyles map[string][]string

type Graph struct {
	Units   map[string]*Unit
	Removed RemovedStyles
}

func New() *Graph {
	return &Graph{
		Units:   make(map[string]*Unit),
		Removed: make(RemovedStyles),
	}
}

func (g *Graph) Add(unit *Unit) {
	g.Units[unit.ID] = unit
}

func (g *Graph) Unit(id string) (*Unit, bool) {
	unit, ok := g.Units[id]
	return unit, ok
}

// Sorted so that every pass over the graph is deterministic
func (g *Graph) SortedIDs() []string {
	ids := make([]string, 0, len(g.Units))
	for id := range g.Units {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (g *Graph) CodeUnits() []*Unit {
	var units []*Unit
	for _, id := range g.SortedIDs() {
		if unit := g.Units[id]; unit.Kind == UnitCode {
			units = append(units, unit)
		}
	}
	return units
}

// An artifact to be written to the output directory
type OutputFile struct {
	Path     string // Relative to the output directory
	Contents []byte
}
