package preload

import (
	"strings"

	"github.com/modpreload/modpreload/internal/graph"
	"github.com/modpreload/modpreload/internal/helpers"
	"github.com/modpreload/modpreload/internal/logger"
	"github.com/modpreload/modpreload/internal/runtime"
	"github.com/modpreload/modpreload/internal/scanner"
	"github.com/modpreload/modpreload/internal/splice"
)

// How call sites are emitted. This is decided once per pass from the output
// format, so nothing has to be undone later for formats that can't preload.
type Variant uint8

const (
	// Participating units import the helper and dynamic imports with more
	// than their own target to load are wrapped
	EmitWithPreload Variant = iota

	// Nothing is wrapped. Only dynamic imports of removed style-only units
	// are touched.
	EmitWithoutPreload
)

func (v Variant) String() string {
	switch v {
	case EmitWithPreload:
		return "with-preload"
	case EmitWithoutPreload:
		return "without-preload"
	default:
		panic("Internal error")
	}
}

type siteAction uint8

const (
	siteUntouched siteAction = iota

	// "import(x)" becomes "__preload(() => import(x),[...])"
	siteWrap

	// "import(x)" becomes "__preload(() => Promise.resolve({}),[...])"
	siteWrapRemoved

	// "import(x)" becomes "Promise.resolve({})"
	siteReplaceRemoved
)

type sitePlan struct {
	site   scanner.ImportSite
	target string
	action siteAction

	// Registry indices, only for the wrapping actions
	indices []int
}

// Everything that happens to one unit. Edits are collected on the splice
// and only applied once every unit has been planned.
type unitPlan struct {
	unit   *graph.Unit
	source logger.Source
	splice *splice.Splice
	sites  []sitePlan

	// Set when the unit gets the helper import
	hasHeader bool

	// Where the unit already imports the helper, or -1
	helperImport int32
}

// Scans a unit and records its statically-resolvable dynamic imports.
// Returns false if the unit couldn't be scanned, in which case it's left
// exactly as it is.
func (p *pass) planUnit(unit *graph.Unit, index uint32) (*unitPlan, bool) {
	plan := &unitPlan{
		unit: unit,
		source: logger.Source{
			Index:      index,
			PrettyPath: unit.ID,
			Contents:   unit.Text,
		},
		splice:       splice.New(unit.Text),
		helperImport: -1,
	}

	sites, ok := scanner.Scan(p.log, &plan.source, p.scanner)
	if !ok {
		return nil, false
	}

	for _, site := range sites {
		if site.IsDynamic || !site.HasSpecifier {
			continue
		}
		if target, ok := helpers.ResolveRelative(unit.ID, site.Specifier); ok && target == p.helperID {
			plan.helperImport = site.StatementStart
			return plan, true
		}
	}

	literal := scanner.LiteralDynamicImports(sites)
	for _, site := range literal {
		target, ok := helpers.ResolveRelative(unit.ID, site.Specifier)
		if !ok {
			// Bare and absolute specifiers never name an output unit
			continue
		}
		plan.sites = append(plan.sites, sitePlan{site: site, target: target})
	}

	if p.variant == EmitWithPreload && len(literal) > 0 {
		unit.Participates = true
		plan.hasHeader = true
		at, prefix := headerOffset(unit.Text)
		specifier := helpers.RelativePath(helpers.Dir(unit.ID), p.helperID)
		plan.splice.Insert(at, prefix+runtime.Header(specifier))
	}

	return plan, true
}

// The helper import goes before everything except a byte order mark and a
// hashbang line, which must stay first.
func headerOffset(text string) (int, string) {
	offset := 0
	if strings.HasPrefix(text, "\uFEFF") {
		offset = len("\uFEFF")
	}
	if strings.HasPrefix(text[offset:], "#!") {
		newline := strings.IndexByte(text[offset:], '\n')
		if newline == -1 {
			return len(text), "\n"
		}
		return offset + newline + 1, ""
	}
	return offset, ""
}
