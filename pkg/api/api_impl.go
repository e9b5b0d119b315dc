package api

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/modpreload/modpreload/internal/config"
	"github.com/modpreload/modpreload/internal/fs"
	"github.com/modpreload/modpreload/internal/graph"
	"github.com/modpreload/modpreload/internal/helpers"
	"github.com/modpreload/modpreload/internal/htmldoc"
	"github.com/modpreload/modpreload/internal/logger"
	"github.com/modpreload/modpreload/internal/metafile"
	"github.com/modpreload/modpreload/internal/preload"
	"github.com/modpreload/modpreload/internal/preloader"
	"github.com/modpreload/modpreload/internal/runtime"
	"github.com/modpreload/modpreload/internal/scanner"
)

// Shared by every call in the process. Outputs that didn't change between
// two builds are not scanned again.
var scanCache = scanner.NewCache(scanner.Lexer{}, scanner.DefaultCacheSize)

func loadGraph(log logger.Log, fsys fs.FS, metafilePath string, outdir string) (*graph.Graph, *metafile.Metafile, error) {
	if metafilePath == "" {
		g, err := metafile.LoadDirectory(log, fsys, outdir, scanCache)
		return g, nil, err
	}
	return metafile.Load(fsys, metafilePath, outdir)
}

type injected struct {
	result  preload.Result
	removed []string
}

func injectGraph(log logger.Log, g *graph.Graph, m *metafile.Metafile, outdir string, options InjectOptions) injected {
	var removed []string
	if options.PruneStyleOnlyChunks && m != nil {
		removed = metafile.PruneStyleOnlyChunks(log, g, m.StyleOnlyChunks(outdir), scanCache)
	}
	result := preload.Inject(log, g, validateOptions(options), scanCache)
	return injected{result: result, removed: removed}
}

func injectImpl(fsys fs.FS, options InjectOptions) InjectResult {
	log := newLog(options.Color, options.ErrorLimit, options.LogLevel)
	result := InjectResult{}

	if options.Outdir == "" {
		log.AddError(nil, logger.Loc{}, "Must provide an output directory")
		result.Errors, result.Warnings = convertMessages(log.Done())
		return result
	}

	g, m, err := loadGraph(log, fsys, options.Metafile, options.Outdir)
	if err != nil {
		log.AddError(nil, logger.Loc{}, err.Error())
		result.Errors, result.Warnings = convertMessages(log.Done())
		return result
	}

	before := make(map[string]string, len(g.Units))
	for id, unit := range g.Units {
		before[id] = unit.Text
	}

	done := injectGraph(log, g, m, options.Outdir, options)
	if done.result.AlreadyInjected {
		result.Errors, result.Warnings = convertMessages(log.Done())
		return result
	}
	result.Participating = done.result.Participating
	result.PatchedSites = done.result.PatchedSites
	result.RegistrySize = done.result.RegistrySize

	for _, id := range g.SortedIDs() {
		text := g.Units[id].Text
		if old, ok := before[id]; !ok || old != text {
			result.OutputFiles = append(result.OutputFiles, OutputFile{
				Path:     path.Join(options.Outdir, id),
				Contents: []byte(text),
			})
		}
	}
	for _, id := range done.removed {
		result.RemovedFiles = append(result.RemovedFiles, path.Join(options.Outdir, id))
		if _, ok := before[id+".map"]; ok {
			result.RemovedFiles = append(result.RemovedFiles, path.Join(options.Outdir, id+".map"))
		}
	}

	// Nothing is written if anything went wrong
	if options.Write && !log.HasErrors() {
		if err := writeOutputs(fsys, result.OutputFiles, result.RemovedFiles); err != nil {
			log.AddError(nil, logger.Loc{}, err.Error())
		}
	}

	result.Errors, result.Warnings = convertMessages(log.Done())
	return result
}

func writeOutputs(fsys fs.FS, files []OutputFile, removed []string) error {
	group := errgroup.Group{}
	for _, file := range files {
		file := file
		group.Go(func() error {
			return errors.Wrapf(fsys.WriteFile(file.Path, file.Contents), "Failed to write %q", file.Path)
		})
	}
	for _, p := range removed {
		p := p
		group.Go(func() error {
			if err := fsys.RemoveFile(p); err != nil && !fs.IsNotExist(err) {
				return errors.Wrapf(err, "Failed to remove %q", p)
			}
			return nil
		})
	}
	return group.Wait()
}

// Stands in for the site a page is served from so that relative entries can
// be resolved the way the browser would
const pageOrigin = "https://page.invalid/"

func pageResolver(resolve preloader.Resolver) preloader.Resolver {
	return func(dep string, importerURL string) (string, error) {
		url, err := resolve(dep, importerURL)
		if err != nil {
			return "", err
		}
		return strings.TrimPrefix(url, pageOrigin), nil
	}
}

func linksImpl(fsys fs.FS, options LinksOptions) LinksResult {
	log := newLog(options.Color, options.ErrorLimit, options.LogLevel)
	result := LinksResult{}
	finish := func() LinksResult {
		result.Errors, result.Warnings = convertMessages(log.Done())
		return result
	}

	g, _, err := loadGraph(log, fsys, options.Metafile, options.Outdir)
	if err != nil {
		log.AddError(nil, logger.Loc{}, err.Error())
		return finish()
	}

	mode, base := preload.ResolveModeFor(&config.Options{Base: options.Base})

	// With a relative base, links are written relative to a page that sits at
	// the root of the output directory
	unitOf := func(href string) (string, bool) {
		if mode == runtime.ResolveRelative {
			if strings.HasPrefix(href, "/") || strings.Contains(href, ":") {
				return "", false
			}
			return helpers.ResolveRelative("", "./"+strings.TrimPrefix(href, "./"))
		}
		if !strings.HasPrefix(href, base) {
			return "", false
		}
		return strings.TrimPrefix(href, base), true
	}

	// Stylesheets that aren't in the output directory fail like they would in
	// the browser
	check := func(ctx context.Context, href string) error {
		id, ok := unitOf(href)
		if _, exists := g.Units[id]; !ok || !exists {
			return errors.Errorf("Unable to preload CSS for %s", href)
		}
		return nil
	}
	doc, err := htmldoc.ParseString(options.Page, check)
	if err != nil {
		log.AddError(nil, logger.Loc{}, err.Error())
		return finish()
	}

	origin := options.Entry
	if origin == "" {
		for _, src := range doc.ModuleScripts() {
			if id, ok := unitOf(src); ok {
				origin = id
				break
			}
		}
	}

	var registry preload.Registry
	var deps []int
	for _, target := range options.Targets {
		target = strings.TrimPrefix(helpers.ToSlash(target), "./")
		if _, ok := g.Units[target]; !ok {
			log.AddError(nil, logger.Loc{}, fmt.Sprintf("Unknown output %q", target))
			continue
		}
		closure, _, missing := preload.Traverse(g, origin, target)
		for _, m := range missing {
			log.AddError(nil, logger.Loc{}, fmt.Sprintf("Dependency %q of %q is missing from the bundle", m.ID, m.Importer))
		}
		if options.IncludeTargets && target != origin {
			closure = append([]string{target}, closure...)
		}
		for _, dep := range closure {
			if mode == runtime.ResolveRelative {
				dep = helpers.RelativePath(helpers.Dir(origin), dep)
			}
			deps = append(deps, registry.Index(dep, true))
		}
	}
	if log.HasErrors() {
		return finish()
	}

	entries := make([]string, registry.Len())
	for i := range entries {
		entries[i] = registry.Text(i)
	}
	session := preloader.NewSession(preloader.SessionOptions{
		Document: doc,
		Registry: entries,
		Resolve:  pageResolver(preloader.ResolverFor(mode, base)),
		IsModern: true,
		OnError: func(event *preloader.ErrorEvent) {
			log.AddWarning(nil, logger.Loc{}, event.Payload.Error())
			event.PreventDefault()
		},
	})

	before := len(doc.Links())
	noop := func(context.Context) error { return nil }
	if err := session.Preload(context.Background(), noop, deps, pageOrigin+origin); err != nil {
		log.AddError(nil, logger.Loc{}, err.Error())
		return finish()
	}
	for _, link := range doc.Links()[before:] {
		result.Links = append(result.Links, link.Href)
	}

	result.HTML = doc.String()
	return finish()
}
