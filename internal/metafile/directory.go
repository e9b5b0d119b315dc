package metafile

import (
	"path"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/modpreload/modpreload/internal/fs"
	"github.com/modpreload/modpreload/internal/graph"
	"github.com/modpreload/modpreload/internal/helpers"
	"github.com/modpreload/modpreload/internal/logger"
	"github.com/modpreload/modpreload/internal/scanner"
)

// Builds a graph from an output directory alone, for builds that didn't
// write a metafile. Static imports are found by scanning each unit. Nothing
// says which stylesheets a unit needs, so only code is preloaded.
func LoadDirectory(log logger.Log, fsys fs.FS, outdir string, s scanner.Scanner) (*graph.Graph, error) {
	ids, err := fs.Walk(fsys, outdir)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to list %q", outdir)
	}

	units := make([]*graph.Unit, len(ids))
	group := errgroup.Group{}
	for i, id := range ids {
		i, id := i, id
		group.Go(func() error {
			text, err := fsys.ReadFile(path.Join(outdir, id))
			if err != nil {
				return errors.Wrapf(err, "Failed to read output %q", id)
			}
			unit := &graph.Unit{ID: id, Kind: graph.UnitAsset, Text: text}
			if isCode(id) {
				unit.Kind = graph.UnitCode
			}
			units[i] = unit
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	g := graph.New()
	for _, unit := range units {
		g.Add(unit)
	}

	for i, unit := range units {
		if unit.Kind != graph.UnitCode {
			continue
		}
		source := logger.Source{Index: uint32(i), PrettyPath: unit.ID, Contents: unit.Text}
		sites, ok := scanner.Scan(log, &source, s)
		if !ok {
			continue
		}
		for _, site := range sites {
			if site.IsDynamic || !site.HasSpecifier {
				continue
			}
			dep, ok := helpers.ResolveRelative(unit.ID, site.Specifier)
			if !ok {
				continue
			}
			if target, ok := g.Units[dep]; ok {
				if target.Kind == graph.UnitCode && !slices.Contains(unit.DeclaredImports, dep) {
					unit.DeclaredImports = append(unit.DeclaredImports, dep)
				} else if strings.HasSuffix(dep, ".css") {
					unit.AddImportedStyle(dep)
				}
			}
		}
	}

	return g, nil
}
