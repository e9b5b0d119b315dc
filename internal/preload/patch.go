package preload

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/modpreload/modpreload/internal/config"
	"github.com/modpreload/modpreload/internal/helpers"
	"github.com/modpreload/modpreload/internal/logger"
	"github.com/modpreload/modpreload/internal/runtime"
)

const emptyModule = "Promise.resolve({})"

// Decides what happens to each call site of a unit and records the edits
func (p *pass) patchUnit(plan *unitPlan) {
	for i := range plan.sites {
		sp := &plan.sites[i]
		switch p.variant {
		case EmitWithPreload:
			p.planPreload(plan, sp)
		case EmitWithoutPreload:
			p.planWithoutPreload(sp)
		}
		p.emitSite(plan, sp)
	}
}

func (p *pass) planPreload(plan *unitPlan, sp *sitePlan) {
	_, isUnit := p.graph.Units[sp.target]
	_, isRemoved := p.graph.Removed[sp.target]
	if !isUnit && !isRemoved {
		// Not something this build produced, so there's nothing to preload
		return
	}

	deps, removedTarget, missing := Traverse(p.graph, plan.unit.ID, sp.target)
	if len(missing) > 0 {
		r := logger.Range{Loc: logger.Loc{Start: sp.site.Start}, Len: sp.site.End - sp.site.Start}
		for _, m := range missing {
			p.fail()
			p.log.AddRangeError(&plan.source, r,
				fmt.Sprintf("Dependency %q of %q is missing from the bundle", m.ID, m.Importer))
		}
		return
	}

	if !removedTarget && len(deps) == 0 {
		// The dynamic import fetches the target itself
		return
	}

	deps = p.finalDeps(plan.unit.ID, sp.target, deps)
	if len(deps) == 0 {
		if removedTarget {
			sp.action = siteReplaceRemoved
		}
		return
	}

	sp.indices = make([]int, len(deps))
	for i, dep := range deps {
		sp.indices[i] = p.register(plan.unit.ID, dep)
	}
	if removedTarget {
		sp.action = siteWrapRemoved
	} else {
		sp.action = siteWrap
	}
}

func (p *pass) planWithoutPreload(sp *sitePlan) {
	if _, ok := p.graph.Units[sp.target]; ok {
		return
	}
	if _, ok := p.graph.Removed[sp.target]; ok {
		sp.action = siteReplaceRemoved
	}
}

// Applies the preload settings to a computed dependency list. Stylesheets are
// kept in every case since nothing else would load them in time.
func (p *pass) finalDeps(hostID string, target string, deps []string) []string {
	preload := p.options.ModulePreload

	if preload.Disabled {
		styles := make([]string, 0, len(deps))
		for _, dep := range deps {
			if config.KindOfPath(dep) == config.AssetStyle {
				styles = append(styles, dep)
			}
		}
		deps = styles
	}

	if preload.ResolveDependencies != nil {
		var code, styles []string
		for _, dep := range deps {
			if config.KindOfPath(dep) == config.AssetStyle {
				styles = append(styles, dep)
			} else {
				code = append(code, dep)
			}
		}
		resolved := preload.ResolveDependencies(target, code, config.HostContext{HostID: hostID, HostType: "js"})
		deps = append(append([]string{}, resolved...), styles...)
	}

	return deps
}

// Turns an output path into a registry entry and returns its index
func (p *pass) register(hostID string, dep string) int {
	if p.options.RenderBuiltURL != nil {
		built := p.options.RenderBuiltURL(dep, config.KindOfPath(dep), hostID)
		if built.RuntimeExpr != "" {
			return p.registry.Index(built.RuntimeExpr, false)
		}
		return p.registry.Index(built.URL, true)
	}
	if p.options.IsRelativeBase() {
		return p.registry.Index(helpers.RelativePath(helpers.Dir(hostID), dep), true)
	}
	return p.registry.Index(dep, true)
}

func (p *pass) emitSite(plan *unitPlan, sp *sitePlan) {
	s := plan.splice
	start := int(sp.site.StatementStart)
	end := int(sp.site.StatementEnd)

	switch sp.action {
	case siteWrap, siteWrapRemoved:
		s.Insert(start, runtime.PreloadMethod+"(() => ")
		if sp.action == siteWrapRemoved {
			s.Overwrite(start, end, emptyModule)
		}
		s.Insert(end, p.wrapperTail(sp.indices))

	case siteReplaceRemoved:
		// Keep the length when possible so that nothing after it moves
		if len(emptyModule) <= end-start {
			s.OverwritePadded(start, end, emptyModule)
		} else {
			s.Overwrite(start, end, emptyModule)
		}
	}
}

func (p *pass) wrapperTail(indices []int) string {
	sb := strings.Builder{}
	sb.WriteString(",[")
	for i, index := range indices {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(index))
	}
	sb.WriteByte(']')
	if p.options.NeedsImporterURL() {
		sb.WriteString(",import.meta.url")
	}
	sb.WriteByte(')')
	return sb.String()
}
