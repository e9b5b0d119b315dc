package metafile

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/modpreload/modpreload/internal/graph"
	"github.com/modpreload/modpreload/internal/helpers"
	"github.com/modpreload/modpreload/internal/logger"
	"github.com/modpreload/modpreload/internal/scanner"
	"github.com/modpreload/modpreload/internal/splice"
)

// Returns the JavaScript outputs that exist only to load stylesheets. These
// have no exports, no code imports, and nothing but stylesheets contributes
// to them.
func (m *Metafile) StyleOnlyChunks(outdir string) []string {
	var ids []string
	for p, output := range m.Outputs {
		id, ok := outputID(outdir, p)
		if !ok || !isCode(id) || output.CSSBundle == "" || len(output.Exports) > 0 {
			continue
		}
		styleOnly := true
		for _, imp := range output.Imports {
			if imp.Kind == KindDynamicImport || (!imp.External && !strings.HasSuffix(imp.Path, ".css")) {
				styleOnly = false
			}
		}
		for input, info := range output.Inputs {
			if info.BytesInOutput > 0 && !strings.HasSuffix(input, ".css") {
				styleOnly = false
			}
		}
		if styleOnly {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Moves style-only units out of the graph and into the removed-style
// registry. Importers take over the stylesheets and their static imports of
// the removed unit are blanked out, which keeps every offset and so every
// source map valid. Returns the IDs that were removed.
func PruneStyleOnlyChunks(log logger.Log, g *graph.Graph, ids []string, s scanner.Scanner) []string {
	var removed []string
	for _, id := range ids {
		unit, ok := g.Units[id]
		if !ok || unit.Kind != graph.UnitCode {
			continue
		}
		g.Removed[id] = append([]string{}, unit.ImportedStyles...)
		delete(g.Units, id)
		delete(g.Units, id+".map")
		removed = append(removed, id)
	}
	if len(removed) == 0 {
		return nil
	}

	for i, unit := range g.CodeUnits() {
		var dropped []string
		imports := unit.DeclaredImports[:0:0]
		for _, dep := range unit.DeclaredImports {
			if styles, ok := g.Removed[dep]; ok && slices.Contains(removed, dep) {
				dropped = append(dropped, dep)
				for _, style := range styles {
					unit.AddImportedStyle(style)
				}
				continue
			}
			imports = append(imports, dep)
		}
		if len(dropped) == 0 {
			continue
		}
		unit.DeclaredImports = imports

		source := logger.Source{Index: uint32(i), PrettyPath: unit.ID, Contents: unit.Text}
		sites, ok := scanner.Scan(log, &source, s)
		if !ok {
			continue
		}
		edits := splice.New(unit.Text)
		for _, site := range sites {
			if site.IsDynamic || !site.HasSpecifier {
				continue
			}
			if target, ok := helpers.ResolveRelative(unit.ID, site.Specifier); ok && slices.Contains(dropped, target) {
				edits.OverwritePadded(int(site.StatementStart), int(site.StatementEnd), "")
			}
		}
		unit.Text = edits.String()
	}

	return removed
}
