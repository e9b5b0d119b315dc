package preload

// This pass runs on the final output of a code-splitting build. Every dynamic
// import whose target is known gets wrapped so that the target's static
// dependencies and stylesheets start downloading in parallel with it, instead
// of being discovered one level at a time after it has been evaluated:
//
//   import("./page.js")
//
// becomes
//
//   __preload(() => import("./page.js"),[0,1],import.meta.url)
//
// where the numbers index into a registry of URLs that lives in the helper
// unit. Every unit with a dynamic import also gets an import of the helper at
// the top.

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/modpreload/modpreload/internal/config"
	"github.com/modpreload/modpreload/internal/graph"
	"github.com/modpreload/modpreload/internal/logger"
	"github.com/modpreload/modpreload/internal/runtime"
	"github.com/modpreload/modpreload/internal/scanner"
	"github.com/modpreload/modpreload/internal/splice"
)

type pass struct {
	log      logger.Log
	graph    *graph.Graph
	options  *config.Options
	scanner  scanner.Scanner
	variant  Variant
	helperID string
	registry Registry

	// Guards "failed" since units are planned in parallel
	mutex  sync.Mutex
	failed bool
}

type Result struct {
	Variant Variant

	// Units that import the helper, sorted
	Participating []string

	// Call sites that were wrapped or replaced
	PatchedSites int

	// Number of entries in the URL registry
	RegistrySize int

	// Set if a unit couldn't be scanned or a dependency was missing. Units
	// that failed are left as they were. The rest of the graph is still
	// rewritten.
	Failed bool

	// Set if some unit already imported the helper. Nothing was changed.
	AlreadyInjected bool
}

func VariantFor(options *config.Options) Variant {
	if options.EmitsPreload() {
		return EmitWithPreload
	}
	return EmitWithoutPreload
}

// Rewrites every code unit of the graph in place. If "s" is nil the default
// scanner is used.
func Inject(log logger.Log, g *graph.Graph, options config.Options, s scanner.Scanner) Result {
	if s == nil {
		s = scanner.Lexer{}
	}
	p := &pass{
		log:      log,
		graph:    g,
		options:  &options,
		scanner:  s,
		variant:  VariantFor(&options),
		helperID: options.Helper(),
	}

	if options.SourceMap != config.SourceMapNone {
		attachInputMaps(log, g)
	}

	// The helper is rendered fresh below, so an old copy is never scanned
	var units []*graph.Unit
	for _, unit := range g.CodeUnits() {
		if unit.ID != p.helperID {
			units = append(units, unit)
		}
	}

	// Scanning is independent per unit
	plans := make([]*unitPlan, len(units))
	waitGroup := sync.WaitGroup{}
	for i, unit := range units {
		waitGroup.Add(1)
		go func(i int, unit *graph.Unit) {
			defer waitGroup.Done()
			plan, ok := p.planUnit(unit, uint32(i))
			if !ok {
				p.fail()
				return
			}
			plans[i] = plan
		}(i, unit)
	}
	waitGroup.Wait()

	result := Result{Variant: p.variant}
	var ready []*unitPlan
	for _, plan := range plans {
		if plan == nil {
			continue
		}
		ready = append(ready, plan)
	}

	// Output that already went through this pass is left alone
	for _, plan := range ready {
		if plan.helperImport != -1 {
			p.log.AddWarning(&plan.source, logger.Loc{Start: plan.helperImport},
				fmt.Sprintf("Skipping the output because %q already imports the preload helper", plan.unit.ID))
			result.AlreadyInjected = true
			return result
		}
	}

	// Registry indices are handed out in unit order, so this part is serial
	for _, plan := range ready {
		p.patchUnit(plan)
		for _, sp := range plan.sites {
			if sp.action != siteUntouched {
				result.PatchedSites++
			}
		}
		if plan.hasHeader {
			result.Participating = append(result.Participating, plan.unit.ID)
		}
	}

	if len(result.Participating) > 0 {
		helper := &graph.Unit{
			ID:   p.helperID,
			Kind: graph.UnitCode,
			Text: runtime.Render(p.resolveMode()),
		}
		g.Add(helper)
		ready = append(ready, &unitPlan{unit: helper, splice: splice.New(helper.Text)})
		slices.SortFunc(ready, func(a *unitPlan, b *unitPlan) int {
			return strings.Compare(a.unit.ID, b.unit.ID)
		})
	}

	// The serialized registry goes into exactly one unit
	registry := p.registry.String()
	substituted := false
	for _, plan := range ready {
		text := ""
		if !substituted && p.variant == EmitWithPreload && hasRegistryToken(plan.unit.Text) {
			text = registry
			substituted = true
		}
		addFormatEdits(plan.splice, p.variant, text)
		p.finishUnit(plan)
	}

	result.RegistrySize = p.registry.Len()
	result.Failed = p.failed
	return result
}

func (p *pass) fail() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.failed = true
}

func (p *pass) resolveMode() (runtime.ResolveMode, string) {
	return ResolveModeFor(p.options)
}

// How registry entries become URLs at runtime. The base is only returned for
// the absolute mode and always ends with a slash.
func ResolveModeFor(options *config.Options) (runtime.ResolveMode, string) {
	if options.RenderBuiltURL != nil {
		return runtime.ResolveCustom, ""
	}
	if options.IsRelativeBase() {
		return runtime.ResolveRelative, ""
	}
	base := options.Base
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return runtime.ResolveAbsolute, base
}

// Returns the helper unit as a pass with these options would emit it for a
// bundle with an empty registry
func RenderHelper(options config.Options) string {
	p := &pass{options: &options}
	registry := p.registry.String()
	return PatchFormat(runtime.Render(p.resolveMode()), VariantFor(&options), registry)
}
