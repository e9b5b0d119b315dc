package runtime

import (
	_ "embed"
	"strings"

	"github.com/modpreload/modpreload/internal/helpers"
)

//go:embed preload.js
var source string

// Placeholders that survive rendering. They are replaced by the format pass.
const (
	IsModernToken = "__PRELOAD_IS_MODERN__"
	RegistryToken = "__PRELOAD_REGISTRY__"
)

const resolverToken = "__PRELOAD_RESOLVER__"

const (
	PreloadMethod  = "__preload"
	KeepMethod     = "__preloadKeep"
	ErrorEventName = "modpreload:preloadError"
)

// The statement that keeps the helper import alive
func KeepMarker() string {
	return KeepMethod + "(" + PreloadMethod + ");"
}

// The statement inserted at the top of every participating unit
func Header(helperSpecifier string) string {
	return "import { " + PreloadMethod + ", " + KeepMethod + " } from " +
		string(helpers.QuoteForJSON(helperSpecifier)) + ";" + KeepMarker()
}

type ResolveMode uint8

const (
	// Registry entries are relative to the output directory, which is served
	// at a fixed base
	ResolveAbsolute ResolveMode = iota

	// Registry entries are relative to the importing unit
	ResolveRelative

	// Registry entries were produced by a custom hook. Entries starting with
	// "./" or "../" are relative to the importing unit, anything else is used
	// as-is.
	ResolveCustom
)

func Render(mode ResolveMode, base string) string {
	var resolver string
	switch mode {
	case ResolveAbsolute:
		resolver = "(dep) => " + string(helpers.QuoteForJSON(base)) + " + dep"
	case ResolveRelative:
		resolver = "(dep, importerUrl) => new URL(dep, importerUrl).href"
	case ResolveCustom:
		resolver = "(dep, importerUrl) => /^\\.\\.?\\//.test(dep) ? new URL(dep, importerUrl).href : dep"
	}
	return strings.Replace(source, resolverToken, resolver, 1)
}

// The unrendered source, for inspection
func Source() string {
	return source
}
