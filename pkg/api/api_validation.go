package api

import (
	"os"
	"path/filepath"

	"github.com/modpreload/modpreload/internal/config"
	"github.com/modpreload/modpreload/internal/fs"
	"github.com/modpreload/modpreload/internal/logger"
)

func validateFormat(value Format) config.Format {
	switch value {
	case FormatDefault, FormatESModule:
		return config.FormatESModule
	case FormatIIFE:
		return config.FormatIIFE
	case FormatCommonJS:
		return config.FormatCommonJS
	default:
		panic("Invalid format")
	}
}

func validateSourceMap(value SourceMap) config.SourceMap {
	switch value {
	case SourceMapNone:
		return config.SourceMapNone
	case SourceMapLinked:
		return config.SourceMapLinkedWithComment
	case SourceMapInline:
		return config.SourceMapInline
	case SourceMapExternal:
		return config.SourceMapExternalWithoutComment
	default:
		panic("Invalid source map")
	}
}

func validateColor(value StderrColor) logger.StderrColor {
	switch value {
	case ColorIfTerminal:
		return logger.ColorIfTerminal
	case ColorNever:
		return logger.ColorNever
	case ColorAlways:
		return logger.ColorAlways
	default:
		panic("Invalid color")
	}
}

func validateLogLevel(value LogLevel) logger.LogLevel {
	switch value {
	case LogLevelSilent:
		return logger.LevelSilent
	case LogLevelInfo:
		return logger.LevelInfo
	case LogLevelWarning:
		return logger.LevelWarning
	case LogLevelError:
		return logger.LevelError
	default:
		panic("Invalid log level")
	}
}

func validateOptions(options InjectOptions) config.Options {
	result := config.Options{
		OutputFormat:   validateFormat(options.Format),
		SourceMap:      validateSourceMap(options.Sourcemap),
		Base:           options.Base,
		HelperPath:     options.HelperPath,
		DisablePreload: options.DisablePreload,
		ModulePreload: config.ModulePreload{
			Disabled: options.DisableModulePreload,
		},
	}

	if hook := options.ResolveDependencies; hook != nil {
		result.ModulePreload.ResolveDependencies = func(target string, deps []string, ctx config.HostContext) []string {
			return hook(target, deps, ctx.HostID)
		}
	}

	if hook := options.RenderBuiltURL; hook != nil {
		result.RenderBuiltURL = func(dep string, kind config.AssetKind, fromUnit string) config.BuiltURL {
			publicKind := AssetCode
			if kind == config.AssetStyle {
				publicKind = AssetStyle
			}
			built := hook(dep, publicKind, fromUnit)
			return config.BuiltURL{URL: built.URL, RuntimeExpr: built.RuntimeExpr}
		}
	}

	return result
}

func newLog(color StderrColor, errorLimit int, level LogLevel) logger.Log {
	return logger.NewStderrLog(logger.OutputOptions{
		IncludeSource: true,
		ErrorLimit:    errorLimit,
		Color:         validateColor(color),
		LogLevel:      validateLogLevel(level),
	})
}

func convertMessages(msgs []logger.Msg) (errors []Message, warnings []Message) {
	for _, msg := range msgs {
		var location *Location
		if loc := msg.Location; loc != nil {
			location = &Location{
				File:     loc.File,
				Line:     loc.Line,
				Column:   loc.Column,
				Length:   loc.Length,
				LineText: loc.LineText,
			}
		}
		switch msg.Kind {
		case logger.Error:
			errors = append(errors, Message{Text: msg.Text, Location: location})
		case logger.Warning:
			warnings = append(warnings, Message{Text: msg.Text, Location: location})
		}
	}
	return
}

// Returns the file system rooted at the working directory, along with the
// output directory relative to it
func realFS(workingDir string, outdir string) (fs.FS, string) {
	if workingDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}
		workingDir = cwd
	}
	if filepath.IsAbs(outdir) {
		if rel, err := filepath.Rel(workingDir, outdir); err == nil {
			outdir = filepath.ToSlash(rel)
		}
	}
	return fs.RealFS(workingDir), outdir
}
