// This API exposes the preload pass to Go code. It can post-process an output
// directory that esbuild already wrote, run esbuild itself and inject into the
// result, or add preload links to an HTML page ahead of time.
package api

import "github.com/modpreload/modpreload/internal/preload"

type SourceMap uint8

const (
	SourceMapNone SourceMap = iota
	SourceMapInline
	SourceMapLinked
	SourceMapExternal
)

type Format uint8

const (
	FormatDefault Format = iota
	FormatIIFE
	FormatCommonJS
	FormatESModule
)

type AssetKind uint8

const (
	AssetCode AssetKind = iota
	AssetStyle
)

type Location struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, in bytes
	Length   int // in bytes
	LineText string
}

type Message struct {
	Text     string
	Location *Location
}

type StderrColor uint8

const (
	ColorIfTerminal StderrColor = iota
	ColorNever
	ColorAlways
)

type LogLevel uint8

const (
	LogLevelSilent LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

type OutputFile struct {
	Path     string
	Contents []byte
}

// Exactly one field should be set
type BuiltURL struct {
	URL         string
	RuntimeExpr string
}

////////////////////////////////////////////////////////////////////////////////
// Inject API

type InjectOptions struct {
	Color      StderrColor
	ErrorLimit int
	LogLevel   LogLevel

	Format    Format
	Sourcemap SourceMap

	// Where the output directory is served. Empty or "./" makes every URL
	// relative to the unit that imports it.
	Base       string
	HelperPath string

	// Leaves dynamic imports alone, as for library and server builds
	DisablePreload bool

	// Only preloads the stylesheets of dynamic imports
	DisableModulePreload bool

	ResolveDependencies func(target string, deps []string, hostID string) []string
	RenderBuiltURL      func(dep string, kind AssetKind, fromUnit string) BuiltURL

	// Removes JavaScript units that only load stylesheets
	PruneStyleOnlyChunks bool

	// The directory the build ran in, which is where the metafile's paths
	// start from. Defaults to the current directory. Relative paths in these
	// options and in the result are relative to it.
	AbsWorkingDir string

	Outdir string

	// The metafile of the build. Without one, static imports are found by
	// scanning the output directory and stylesheets aren't preloaded.
	Metafile string

	// When false, nothing is written and OutputFiles has the results
	Write bool
}

type InjectResult struct {
	Errors   []Message
	Warnings []Message

	// Files that were changed or added
	OutputFiles []OutputFile

	// Files that were removed from the output
	RemovedFiles []string

	// Units that import the preload helper
	Participating []string

	PatchedSites int
	RegistrySize int
}

func Inject(options InjectOptions) InjectResult {
	fsys, outdir := realFS(options.AbsWorkingDir, options.Outdir)
	options.Outdir = outdir
	return injectImpl(fsys, options)
}

////////////////////////////////////////////////////////////////////////////////
// Build API

type BuildResult struct {
	Errors   []Message
	Warnings []Message

	// Every output of the build, after injection
	OutputFiles []OutputFile

	Participating []string
	PatchedSites  int
	RegistrySize  int
}

// Runs esbuild with code splitting and injects into its output. The esbuild
// options must set "EntryPoints" and "Outdir". "Write" and "Metafile" are
// overridden. Files are written if "options.Write" is set.
func Build(esbuildOptions EsbuildOptions, options InjectOptions) BuildResult {
	fsys, _ := realFS(esbuildOptions.AbsWorkingDir, "")
	return buildImpl(fsys, esbuildOptions, options)
}

////////////////////////////////////////////////////////////////////////////////
// Links API

type LinksOptions struct {
	Color      StderrColor
	ErrorLimit int
	LogLevel   LogLevel

	// The HTML page to add links to
	Page string

	AbsWorkingDir string
	Outdir        string
	Metafile string

	// Where the output directory is served, like "/assets/"
	Base string

	// The output unit the page already loads. When empty, the first module
	// script of the page under "Base" is used.
	Entry string

	// Output units the page will import dynamically
	Targets []string

	// Adds a link for every target too and not just for its dependencies
	IncludeTargets bool
}

type LinksResult struct {
	Errors   []Message
	Warnings []Message

	HTML string

	// The URLs of the links that were added, in order
	Links []string
}

func Links(options LinksOptions) LinksResult {
	fsys, outdir := realFS(options.AbsWorkingDir, options.Outdir)
	options.Outdir = outdir
	return linksImpl(fsys, options)
}

////////////////////////////////////////////////////////////////////////////////
// Runtime API

// Returns the helper unit as it would be emitted for these options, with an
// empty registry
func RuntimeHelper(options InjectOptions) string {
	return preload.RenderHelper(validateOptions(options))
}
