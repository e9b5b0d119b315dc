package preload

import (
	"path"
	"strings"

	"github.com/modpreload/modpreload/internal/config"
	"github.com/modpreload/modpreload/internal/graph"
	"github.com/modpreload/modpreload/internal/helpers"
	"github.com/modpreload/modpreload/internal/logger"
	"github.com/modpreload/modpreload/internal/sourcemap"
)

// Reads the map of each code unit, unless the unit already has one. Maps
// that can't be found or parsed are dropped with a warning, and the rewrite
// then starts a new map from the unit text.
func attachInputMaps(log logger.Log, g *graph.Graph) {
	for _, unit := range g.CodeUnits() {
		if unit.Map != nil {
			continue
		}
		comment, ok := sourcemap.FindComment(unit.Text)
		if !ok {
			// Maps written without a comment sit next to their unit
			if mapUnit, ok := g.Units[unit.ID+".map"]; ok {
				unit.Map = sourcemap.Parse(log, logger.Source{PrettyPath: mapUnit.ID, Contents: mapUnit.Text})
				unit.MapFile = mapUnit.ID
			}
			continue
		}

		if contents, ok := comment.InlineContents(); ok {
			unit.Map = sourcemap.Parse(log, logger.Source{
				PrettyPath: unit.ID + " (inline source map)",
				Contents:   contents,
			})
			continue
		}

		if strings.Contains(comment.URL, ":") || strings.HasPrefix(comment.URL, "/") {
			continue
		}
		mapID, ok := helpers.ResolveRelative(unit.ID, "./"+comment.URL)
		if !ok {
			continue
		}
		mapUnit, ok := g.Units[mapID]
		if !ok {
			log.AddWarning(nil, logger.Loc{}, "Cannot find source map \""+mapID+"\" referenced by \""+unit.ID+"\"")
			continue
		}
		unit.Map = sourcemap.Parse(log, logger.Source{PrettyPath: mapID, Contents: mapUnit.Text})
		unit.MapFile = mapID
	}
}

// Sets the final text of a unit, updating its map so it still points into
// the original sources
func (p *pass) finishUnit(plan *unitPlan) {
	unit := plan.unit
	if !plan.splice.HasChanged() {
		return
	}
	text := plan.splice.String()

	if p.options.SourceMap == config.SourceMapNone {
		unit.Text = text
		return
	}

	name := path.Base(unit.ID)
	next := plan.splice.Map(name, unit.Map == nil)
	combined := sourcemap.Compose(next, unit.Map)
	combined.File = name

	switch p.options.SourceMap {
	case config.SourceMapInline:
		text = sourcemap.AppendInlineComment(text, combined)

	case config.SourceMapLinkedWithComment, config.SourceMapExternalWithoutComment:
		mapID := unit.MapFile
		if mapID == "" {
			mapID = unit.ID + ".map"
		}
		p.graph.Add(&graph.Unit{
			ID:   mapID,
			Kind: graph.UnitAsset,
			Text: string(combined.JSON()),
		})
		unit.MapFile = mapID
		if p.options.SourceMap == config.SourceMapLinkedWithComment {
			text = sourcemap.AppendLinkedComment(text, strings.TrimPrefix(helpers.RelativePath(helpers.Dir(unit.ID), mapID), "./"))
		}
	}

	unit.Text = text
	unit.Map = combined
}
