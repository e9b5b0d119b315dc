package preload_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/modpreload/modpreload/internal/config"
	"github.com/modpreload/modpreload/internal/graph"
	"github.com/modpreload/modpreload/internal/logger"
	"github.com/modpreload/modpreload/internal/preload"
	"github.com/modpreload/modpreload/internal/scanner"
	"github.com/modpreload/modpreload/internal/sourcemap"
	"github.com/modpreload/modpreload/internal/test"
)

const header = `import { __preload, __preloadKeep } from "./preload-helper.js";__preloadKeep(__preload);`

func code(id string, text string, imports []string, styles ...string) *graph.Unit {
	return &graph.Unit{
		ID:              id,
		Kind:            graph.UnitCode,
		Text:            text,
		DeclaredImports: imports,
		ImportedStyles:  styles,
	}
}

func asset(id string, text string) *graph.Unit {
	return &graph.Unit{ID: id, Kind: graph.UnitAsset, Text: text}
}

func newGraph(units ...*graph.Unit) *graph.Graph {
	g := graph.New()
	for _, unit := range units {
		g.Add(unit)
	}
	return g
}

// "main.js" dynamically imports "page.js", which needs "shared.js" and
// "page.css"
func pageGraph(mainText string) *graph.Graph {
	return newGraph(
		code("main.js", mainText, nil),
		code("page.js", "export let x = 1;\n", []string{"shared.js"}, "page.css"),
		code("shared.js", "export let y = 2;\n", nil),
		asset("page.css", "body { color: red }\n"),
	)
}

func run(t *testing.T, g *graph.Graph, options config.Options) (preload.Result, string) {
	t.Helper()
	log := logger.NewDeferLog()
	result := preload.Inject(log, g, options, nil)
	return result, test.MsgsToString(log.Done())
}

func expectClean(t *testing.T, g *graph.Graph, options config.Options) preload.Result {
	t.Helper()
	result, msgs := run(t, g, options)
	test.AssertEqualWithDiff(t, msgs, "")
	test.AssertEqual(t, result.Failed, false)
	return result
}

func helperText(t *testing.T, g *graph.Graph) string {
	t.Helper()
	helper, ok := g.Unit(config.DefaultHelperPath)
	if !ok {
		t.Fatal("Missing helper unit")
	}
	return helper.Text
}

func TestWrapAbsoluteBase(t *testing.T) {
	g := pageGraph("import(\"./page.js\");\n")
	result := expectClean(t, g, config.Options{Base: "/static/"})

	test.AssertEqualWithDiff(t, g.Units["main.js"].Text,
		header+"__preload(() => import(\"./page.js\"),[0,1]);\n")
	test.AssertEqual(t, g.Units["main.js"].Participates, true)
	test.AssertEqual(t, g.Units["page.js"].Participates, false)
	test.AssertEqual(t, strings.Join(result.Participating, ","), "main.js")
	test.AssertEqual(t, result.PatchedSites, 1)
	test.AssertEqual(t, result.RegistrySize, 2)
	test.AssertEqual(t, result.Variant, preload.EmitWithPreload)

	helper := helperText(t, g)
	test.AssertEqual(t, strings.Contains(helper, `registry: ["shared.js","page.css"],`), true)
	test.AssertEqual(t, strings.Contains(helper, "isModern: true,"), true)
	test.AssertEqual(t, strings.Contains(helper, `resolve: (dep) => "/static/" + dep,`), true)
}

func TestBaseWithoutTrailingSlash(t *testing.T) {
	g := pageGraph("import(\"./page.js\");\n")
	expectClean(t, g, config.Options{Base: "https://cdn.example.com/app"})
	test.AssertEqual(t, strings.Contains(helperText(t, g), `resolve: (dep) => "https://cdn.example.com/app/" + dep,`), true)
}

func TestSingleDependencyIsNotWrapped(t *testing.T) {
	g := newGraph(
		code("main.js", "import('./leaf.js').then(m => m.run());\n", nil),
		code("leaf.js", "export function run() {}\n", nil),
	)
	result := expectClean(t, g, config.Options{Base: "/"})

	test.AssertEqualWithDiff(t, g.Units["main.js"].Text,
		header+"import('./leaf.js').then(m => m.run());\n")
	test.AssertEqual(t, result.PatchedSites, 0)
	test.AssertEqual(t, strings.Contains(helperText(t, g), "registry: [],"), true)
}

func TestRelativeBase(t *testing.T) {
	g := newGraph(
		code("pages/admin.js", "export const load = () => import(\"../chunks/page.js\");\n", nil),
		code("chunks/page.js", "export let x = 1;\n", []string{"chunks/shared.js"}, "assets/page.css"),
		code("chunks/shared.js", "export let y = 2;\n", nil),
		asset("assets/page.css", ""),
	)
	expectClean(t, g, config.Options{Base: "./"})

	test.AssertEqualWithDiff(t, g.Units["pages/admin.js"].Text,
		`import { __preload, __preloadKeep } from "../preload-helper.js";__preloadKeep(__preload);`+
			"export const load = () => __preload(() => import(\"../chunks/page.js\"),[0,1],import.meta.url);\n")

	helper := helperText(t, g)
	test.AssertEqual(t, strings.Contains(helper, `registry: ["../chunks/shared.js","../assets/page.css"],`), true)
	test.AssertEqual(t, strings.Contains(helper, "new URL(dep, importerUrl).href"), true)
}

func TestRegistryIsShared(t *testing.T) {
	g := newGraph(
		code("main.js", "import(\"./a.js\");import(\"./b.js\");\n", nil),
		code("other.js", "import(\"./b.js\");\n", nil),
		code("a.js", "", []string{"shared.js"}),
		code("b.js", "", []string{"shared.js"}, "b.css"),
		code("shared.js", "", nil),
		asset("b.css", ""),
	)
	result := expectClean(t, g, config.Options{Base: "/"})

	test.AssertEqualWithDiff(t, g.Units["main.js"].Text,
		header+"__preload(() => import(\"./a.js\"),[0]);__preload(() => import(\"./b.js\"),[0,1]);\n")
	test.AssertEqualWithDiff(t, g.Units["other.js"].Text,
		header+"__preload(() => import(\"./b.js\"),[0,1]);\n")
	test.AssertEqual(t, result.RegistrySize, 2)
	test.AssertEqual(t, strings.Join(result.Participating, ","), "main.js,other.js")
	test.AssertEqual(t, strings.Count(helperText(t, g), `["shared.js","b.css"]`), 1)
}

func TestCyclesTerminate(t *testing.T) {
	g := newGraph(
		code("main.js", "import(\"./a.js\");\n", []string{"a.js"}),
		code("a.js", "", []string{"b.js"}),
		code("b.js", "", []string{"a.js", "main.js"}),
	)
	expectClean(t, g, config.Options{Base: "/"})

	test.AssertEqualWithDiff(t, g.Units["main.js"].Text,
		header+"__preload(() => import(\"./a.js\"),[0]);\n")
	test.AssertEqual(t, strings.Contains(helperText(t, g), `registry: ["b.js"],`), true)
}

func TestExternalAndNonLiteralImportsAreLeftAlone(t *testing.T) {
	text := "import(\"https://example.com/x.js\");import(name);import(\"./not-built.js\");\n"
	g := newGraph(code("main.js", text, nil))
	result := expectClean(t, g, config.Options{Base: "/"})

	// A literal target still makes the unit import the helper
	test.AssertEqualWithDiff(t, g.Units["main.js"].Text, header+text)
	test.AssertEqual(t, result.PatchedSites, 0)
}

func TestUnitWithoutDynamicImportsIsUntouched(t *testing.T) {
	g := newGraph(code("main.js", "import \"./a.js\";\n", []string{"a.js"}), code("a.js", "", nil))
	result := expectClean(t, g, config.Options{})

	test.AssertEqual(t, g.Units["main.js"].Text, "import \"./a.js\";\n")
	test.AssertEqual(t, len(result.Participating), 0)
	_, ok := g.Unit(config.DefaultHelperPath)
	test.AssertEqual(t, ok, false)
}

func TestRemovedStyleOnlyTarget(t *testing.T) {
	g := newGraph(
		code("main.js", "import(\"./theme.js\");\n", nil),
		asset("theme.css", ""),
	)
	g.Removed["theme.js"] = []string{"theme.css"}
	result := expectClean(t, g, config.Options{Base: "/"})

	test.AssertEqualWithDiff(t, g.Units["main.js"].Text,
		header+"__preload(() => Promise.resolve({}),[0]);\n")
	test.AssertEqual(t, result.PatchedSites, 1)
	test.AssertEqual(t, strings.Contains(helperText(t, g), `registry: ["theme.css"],`), true)
}

func TestRemovedStyleOnlyDependency(t *testing.T) {
	g := newGraph(
		code("main.js", "import(\"./page.js\");\n", nil),
		code("page.js", "", []string{"theme.js"}),
		asset("theme.css", ""),
	)
	g.Removed["theme.js"] = []string{"theme.css"}
	expectClean(t, g, config.Options{Base: "/"})

	test.AssertEqualWithDiff(t, g.Units["main.js"].Text,
		header+"__preload(() => import(\"./page.js\"),[0]);\n")
	test.AssertEqual(t, strings.Contains(helperText(t, g), `registry: ["theme.css"],`), true)
}

func TestRemovedStyleOnlyTargetWithoutPreload(t *testing.T) {
	g := newGraph(
		code("main.js", "import(\"./theme-styles.js\");import(\"./t.js\");import(\"./page.js\");\n", nil),
		code("page.js", "", []string{"shared.js"}),
		code("shared.js", "", nil),
		asset("theme.css", ""),
	)
	g.Removed["theme-styles.js"] = []string{"theme.css"}
	g.Removed["t.js"] = []string{"theme.css"}
	result := expectClean(t, g, config.Options{Base: "/", DisablePreload: true})

	// The long call keeps its length. The short one can't.
	test.AssertEqualWithDiff(t, g.Units["main.js"].Text,
		"Promise.resolve({})        ;Promise.resolve({});import(\"./page.js\");\n")
	test.AssertEqual(t, result.Variant, preload.EmitWithoutPreload)
	test.AssertEqual(t, result.PatchedSites, 2)
	test.AssertEqual(t, g.Units["main.js"].Participates, false)
	_, ok := g.Unit(config.DefaultHelperPath)
	test.AssertEqual(t, ok, false)
}

func TestNonModernFormat(t *testing.T) {
	g := pageGraph("import(\"./page.js\");\n")
	result := expectClean(t, g, config.Options{OutputFormat: config.FormatIIFE})

	test.AssertEqual(t, g.Units["main.js"].Text, "import(\"./page.js\");\n")
	test.AssertEqual(t, len(result.Participating), 0)
	test.AssertEqual(t, result.RegistrySize, 0)
}

func TestMissingDependency(t *testing.T) {
	g := newGraph(
		code("main.js", "import(\"./page.js\");\n", nil),
		code("page.js", "", []string{"gone.js"}),
	)
	result, msgs := run(t, g, config.Options{Base: "/"})

	test.AssertEqualWithDiff(t, msgs,
		`main.js:1:7: error: Dependency "gone.js" of "page.js" is missing from the bundle
import("./page.js");
       ~~~~~~~~~~~
`)
	test.AssertEqual(t, result.Failed, true)
	test.AssertEqualWithDiff(t, g.Units["main.js"].Text, header+"import(\"./page.js\");\n")
}

func TestScanFailureLeavesUnitAlone(t *testing.T) {
	g := pageGraph("import(\"./page.js\"")
	g.Add(code("other.js", "import(\"./page.js\");\n", nil))
	result, msgs := run(t, g, config.Options{Base: "/"})

	test.AssertEqualWithDiff(t, msgs,
		`main.js:1:0: error: Expected ")" to end dynamic import
import("./page.js"
~~~~~~
`)
	test.AssertEqual(t, result.Failed, true)
	test.AssertEqual(t, g.Units["main.js"].Text, "import(\"./page.js\"")
	test.AssertEqualWithDiff(t, g.Units["other.js"].Text,
		header+"__preload(() => import(\"./page.js\"),[0,1]);\n")
}

func TestAlreadyInjectedOutputIsSkipped(t *testing.T) {
	g := pageGraph("import(\"./page.js\");\n")
	expectClean(t, g, config.Options{Base: "/"})
	injected := g.Units["main.js"].Text

	g.Add(code("late.js", "import(\"./page.js\");\n", nil))
	result, msgs := run(t, g, config.Options{Base: "/"})
	test.AssertEqual(t, result.AlreadyInjected, true)
	test.AssertEqual(t, result.PatchedSites, 0)
	test.AssertEqual(t, strings.HasPrefix(msgs,
		`main.js:1:0: warning: Skipping the output because "main.js" already imports the preload helper`+"\n"), true)
	test.AssertEqualWithDiff(t, g.Units["main.js"].Text, injected)
	test.AssertEqual(t, g.Units["late.js"].Text, "import(\"./page.js\");\n")
}

func TestHashbang(t *testing.T) {
	g := pageGraph("#!/usr/bin/env node\nimport(\"./page.js\");\n")
	expectClean(t, g, config.Options{Base: "/"})

	test.AssertEqualWithDiff(t, g.Units["main.js"].Text,
		"#!/usr/bin/env node\n"+header+"__preload(() => import(\"./page.js\"),[0,1]);\n")
}

func TestModulePreloadDisabledKeepsStyles(t *testing.T) {
	g := pageGraph("import(\"./page.js\");\n")
	expectClean(t, g, config.Options{Base: "/", ModulePreload: config.ModulePreload{Disabled: true}})

	test.AssertEqualWithDiff(t, g.Units["main.js"].Text,
		header+"__preload(() => import(\"./page.js\"),[0]);\n")
	test.AssertEqual(t, strings.Contains(helperText(t, g), `registry: ["page.css"],`), true)
}

func TestResolveDependenciesHook(t *testing.T) {
	var calls []string
	options := config.Options{Base: "/", ModulePreload: config.ModulePreload{
		ResolveDependencies: func(target string, deps []string, ctx config.HostContext) []string {
			calls = append(calls, target+" "+strings.Join(deps, ",")+" "+ctx.HostID+" "+ctx.HostType)
			return nil
		},
	}}
	g := pageGraph("import(\"./page.js\");\n")
	expectClean(t, g, options)

	test.AssertEqual(t, strings.Join(calls, "\n"), "page.js shared.js main.js js")

	// The stylesheet survives even though the hook dropped everything
	test.AssertEqualWithDiff(t, g.Units["main.js"].Text,
		header+"__preload(() => import(\"./page.js\"),[0]);\n")
	test.AssertEqual(t, strings.Contains(helperText(t, g), `registry: ["page.css"],`), true)
}

func TestRenderBuiltURL(t *testing.T) {
	options := config.Options{
		Base: "/",
		RenderBuiltURL: func(dep string, kind config.AssetKind, fromUnit string) config.BuiltURL {
			if kind == config.AssetStyle {
				return config.BuiltURL{RuntimeExpr: "window.cdn(" + strconv.Quote(dep) + ")"}
			}
			return config.BuiltURL{URL: "https://cdn.example.com/" + dep}
		},
	}
	g := pageGraph("import(\"./page.js\");\n")
	expectClean(t, g, options)

	test.AssertEqualWithDiff(t, g.Units["main.js"].Text,
		header+"__preload(() => import(\"./page.js\"),[0,1],import.meta.url);\n")
	helper := helperText(t, g)
	test.AssertEqual(t, strings.Contains(helper, `registry: ["https://cdn.example.com/shared.js",window.cdn("page.css")],`), true)
	test.AssertEqual(t, strings.Contains(helper, `/^\.\.?\//.test(dep)`), true)
}

func TestCustomHelperPath(t *testing.T) {
	g := newGraph(
		code("assets/main.js", "import(\"./page.js\");\n", nil),
		code("assets/page.js", "", []string{"assets/shared.js"}),
		code("assets/shared.js", "", nil),
	)
	expectClean(t, g, config.Options{Base: "/", HelperPath: "assets/vendor/preload.js"})

	test.AssertEqualWithDiff(t, g.Units["assets/main.js"].Text,
		`import { __preload, __preloadKeep } from "./vendor/preload.js";__preloadKeep(__preload);`+
			"__preload(() => import(\"./page.js\"),[0]);\n")
	_, ok := g.Unit("assets/vendor/preload.js")
	test.AssertEqual(t, ok, true)
}

func TestRegistryGoesIntoFirstPlaceholder(t *testing.T) {
	// A unit sorting before the helper that carries the placeholder takes the
	// registry instead
	g := pageGraph("import(\"./page.js\");\n")
	g.Add(code("a-vendored.js", "export const table = __PRELOAD_REGISTRY__;\n", nil))
	expectClean(t, g, config.Options{Base: "/"})

	test.AssertEqual(t, g.Units["a-vendored.js"].Text, "export const table = [\"shared.js\",\"page.css\"];\n")
	test.AssertEqual(t, strings.Contains(helperText(t, g), "registry: __PRELOAD_REGISTRY__,"), true)
}

func TestInjectWithCachedScanner(t *testing.T) {
	cache := scanner.NewCache(scanner.Lexer{}, scanner.DefaultCacheSize)
	for i := 0; i < 2; i++ {
		g := pageGraph("import(\"./page.js\");\n")
		log := logger.NewDeferLog()
		result := preload.Inject(log, g, config.Options{Base: "/"}, cache)
		test.AssertEqual(t, result.Failed, false)
		test.AssertEqualWithDiff(t, g.Units["main.js"].Text,
			header+"__preload(() => import(\"./page.js\"),[0,1]);\n")
	}
	test.AssertEqual(t, cache.Len(), 3)
}

func TestInlineSourceMap(t *testing.T) {
	g := pageGraph("import(\"./page.js\");\n")
	expectClean(t, g, config.Options{Base: "/", SourceMap: config.SourceMapInline})

	text := g.Units["main.js"].Text
	test.AssertEqual(t, strings.HasPrefix(text, header+"__preload(() => import(\"./page.js\"),[0,1]);\n//# sourceMappingURL=data:application/json;base64,"), true)

	comment, ok := sourcemap.FindComment(text)
	test.AssertEqual(t, ok, true)
	contents, ok := comment.InlineContents()
	test.AssertEqual(t, ok, true)
	log := logger.NewDeferLog()
	sm := sourcemap.Parse(log, test.SourceForTest(contents))
	test.AssertEqual(t, len(log.Done()), 0)

	test.AssertEqual(t, strings.Join(sm.Sources, ","), "main.js")
	test.AssertEqual(t, len(sm.SourcesContent), 1)

	column := int32(len(header) + len("__preload(() => "))
	m := sm.Find(0, column)
	test.AssertEqual(t, m.OriginalLine, int32(0))
	test.AssertEqual(t, m.OriginalColumn, int32(0))
	m = sm.Find(0, column+7)
	test.AssertEqual(t, m.OriginalColumn, int32(7))
}

func TestLinkedSourceMapIsComposed(t *testing.T) {
	g := pageGraph("import(\"./page.js\");\n//# sourceMappingURL=main.js.map\n")
	g.Add(asset("main.js.map", `{"version":3,"sources":["../src/main.ts"],"names":[],"mappings":"AAAA,OAAO","debugId":"0a1b"}`))
	expectClean(t, g, config.Options{Base: "/", SourceMap: config.SourceMapLinkedWithComment})

	text := g.Units["main.js"].Text
	test.AssertEqualWithDiff(t, text,
		header+"__preload(() => import(\"./page.js\"),[0,1]);\n//# sourceMappingURL=main.js.map\n")

	log := logger.NewDeferLog()
	sm := sourcemap.Parse(log, test.SourceForTest(g.Units["main.js.map"].Text))
	test.AssertEqual(t, len(log.Done()), 0)
	test.AssertEqual(t, strings.Join(sm.Sources, ","), "../src/main.ts")
	test.AssertEqual(t, sm.DebugID, "0a1b")
	test.AssertEqual(t, g.Units["main.js"].MapFile, "main.js.map")

	column := int32(len(header) + len("__preload(() => "))
	m := sm.Find(0, column+7)
	test.AssertEqual(t, m.OriginalLine, int32(0))
	test.AssertEqual(t, m.OriginalColumn, int32(7))
}

func TestExternalSourceMapHasNoComment(t *testing.T) {
	g := pageGraph("import(\"./page.js\");\n")
	expectClean(t, g, config.Options{Base: "/", SourceMap: config.SourceMapExternalWithoutComment})

	test.AssertEqual(t, strings.Contains(g.Units["main.js"].Text, "sourceMappingURL"), false)
	mapUnit, ok := g.Unit("main.js.map")
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, mapUnit.Kind, graph.UnitAsset)
}
