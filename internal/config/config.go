package config

import "strings"

type SourceMap uint8

const (
	SourceMapNone SourceMap = iota
	SourceMapInline
	SourceMapLinkedWithComment
	SourceMapExternalWithoutComment
)

type Format uint8

const (
	// The ES module format looks like this:
	//
	//   ... bundled code ...
	//   export {...};
	//
	// This is the only format where dynamic imports stay dynamic imports, so
	// it's the only one where preloading is emitted.
	FormatESModule Format = iota

	// IIFE stands for immediately-invoked function expression. That looks like
	// this:
	//
	//   (() => {
	//     ... bundled code ...
	//   })();
	//
	FormatIIFE

	// The CommonJS format looks like this:
	//
	//   ... bundled code ...
	//   module.exports = exports;
	//
	FormatCommonJS
)

func (f Format) SupportsPreload() bool {
	return f == FormatESModule
}

func (f Format) String() string {
	switch f {
	case FormatESModule:
		return "esm"
	case FormatIIFE:
		return "iife"
	case FormatCommonJS:
		return "cjs"
	default:
		panic("Internal error")
	}
}

func ParseFormat(text string) (Format, bool) {
	switch strings.ToLower(text) {
	case "esm", "es", "module":
		return FormatESModule, true
	case "iife":
		return FormatIIFE, true
	case "cjs", "commonjs":
		return FormatCommonJS, true
	}
	return FormatESModule, false
}

func ParseSourceMap(text string) (SourceMap, bool) {
	switch strings.ToLower(text) {
	case "", "none", "false":
		return SourceMapNone, true
	case "inline":
		return SourceMapInline, true
	case "linked", "true":
		return SourceMapLinkedWithComment, true
	case "external":
		return SourceMapExternalWithoutComment, true
	}
	return SourceMapNone, false
}

type AssetKind uint8

const (
	AssetCode AssetKind = iota
	AssetStyle
)

func KindOfPath(path string) AssetKind {
	if strings.HasSuffix(path, ".css") {
		return AssetStyle
	}
	return AssetCode
}

// Identifies the unit whose dynamic import is being preloaded
type HostContext struct {
	HostID   string
	HostType string // Always "js" for units rewritten by this pass
}

// Exactly one of the fields is set. A runtime expression is registered as-is
// and evaluated by the browser, so it must be valid JavaScript.
type BuiltURL struct {
	URL         string
	RuntimeExpr string
}

type ModulePreload struct {
	// When true, only the stylesheets of a dynamic import are loaded ahead of
	// it. Code dependencies are left to the browser.
	Disabled bool

	// Optional. Receives the computed dependency paths of a dynamic import and
	// returns the final list. Stylesheet dependencies the hook drops are added
	// back afterward.
	ResolveDependencies func(target string, deps []string, ctx HostContext) []string
}

const DefaultHelperPath = "preload-helper.js"

type Options struct {
	OutputFormat Format
	SourceMap    SourceMap

	// Public base of the output directory. An empty string or "./" means
	// dependencies are resolved relative to the importing unit at runtime.
	Base string

	ModulePreload ModulePreload

	// Optional. Overrides how a dependency path becomes a URL.
	RenderBuiltURL func(dep string, kind AssetKind, fromUnit string) BuiltURL

	// Output-relative path of the runtime helper unit
	HelperPath string

	// Library and server builds never preload. Dynamic imports are left alone
	// except for the ones whose target was a removed style-only unit.
	DisablePreload bool
}

// Whether call sites are wrapped and the helper is emitted
func (options *Options) EmitsPreload() bool {
	return options.OutputFormat.SupportsPreload() && !options.DisablePreload
}

func (options *Options) IsRelativeBase() bool {
	return options.Base == "" || options.Base == "./"
}

// True when dependency URLs must be resolved against the importing unit's
// URL, which is then passed as the third argument of the preload call.
func (options *Options) NeedsImporterURL() bool {
	return options.IsRelativeBase() || options.RenderBuiltURL != nil
}

func (options *Options) Helper() string {
	if options.HelperPath == "" {
		return DefaultHelperPath
	}
	return options.HelperPath
}
