package api

import (
	"os"
	"path/filepath"

	esbuild "github.com/evanw/esbuild/pkg/api"

	"github.com/modpreload/modpreload/internal/fs"
	"github.com/modpreload/modpreload/internal/helpers"
	"github.com/modpreload/modpreload/internal/logger"
	"github.com/modpreload/modpreload/internal/metafile"
)

type EsbuildOptions = esbuild.BuildOptions

func esbuildFormat(value Format) esbuild.Format {
	switch value {
	case FormatIIFE:
		return esbuild.FormatIIFE
	case FormatCommonJS:
		return esbuild.FormatCommonJS
	default:
		return esbuild.FormatESModule
	}
}

func esbuildSourceMap(value SourceMap) esbuild.SourceMap {
	switch value {
	case SourceMapInline:
		return esbuild.SourceMapInline
	case SourceMapLinked:
		return esbuild.SourceMapLinked
	case SourceMapExternal:
		return esbuild.SourceMapExternal
	default:
		return esbuild.SourceMapNone
	}
}

func addEsbuildMessages(log logger.Log, kind logger.MsgKind, msgs []esbuild.Message) {
	for _, msg := range msgs {
		var location *logger.MsgLocation
		if loc := msg.Location; loc != nil {
			location = &logger.MsgLocation{
				File:     loc.File,
				Line:     loc.Line,
				Column:   loc.Column,
				Length:   loc.Length,
				LineText: loc.LineText,
			}
		}
		log.AddMsg(logger.Msg{Kind: kind, Text: msg.Text, Location: location})
	}
}

func buildImpl(fsys fs.FS, esbuildOptions EsbuildOptions, options InjectOptions) BuildResult {
	log := newLog(options.Color, options.ErrorLimit, options.LogLevel)
	result := BuildResult{}
	finish := func() BuildResult {
		result.Errors, result.Warnings = convertMessages(log.Done())
		return result
	}

	if esbuildOptions.Outdir == "" {
		log.AddError(nil, logger.Loc{}, "Must provide an output directory")
		return finish()
	}

	workingDir := esbuildOptions.AbsWorkingDir
	if workingDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			log.AddError(nil, logger.Loc{}, err.Error())
			return finish()
		}
		workingDir = cwd
	}
	absOutdir := esbuildOptions.Outdir
	if !filepath.IsAbs(absOutdir) {
		absOutdir = filepath.Join(workingDir, absOutdir)
	}
	relOutdir, err := filepath.Rel(workingDir, absOutdir)
	if err != nil {
		log.AddError(nil, logger.Loc{}, err.Error())
		return finish()
	}

	// Dynamic imports only survive bundling as real chunks with code splitting
	esbuildOptions.Write = false
	esbuildOptions.Metafile = true
	esbuildOptions.Bundle = true
	esbuildOptions.Format = esbuildFormat(options.Format)
	esbuildOptions.Splitting = esbuildOptions.Format == esbuild.FormatESModule
	esbuildOptions.Sourcemap = esbuildSourceMap(options.Sourcemap)

	built := esbuild.Build(esbuildOptions)
	addEsbuildMessages(log, logger.Error, built.Errors)
	addEsbuildMessages(log, logger.Warning, built.Warnings)
	if len(built.Errors) > 0 {
		return finish()
	}

	contents := make(map[string]string, len(built.OutputFiles))
	for _, file := range built.OutputFiles {
		id, err := filepath.Rel(absOutdir, file.Path)
		if err != nil {
			log.AddError(nil, logger.Loc{}, err.Error())
			return finish()
		}
		contents[helpers.ToSlash(id)] = string(file.Contents)
	}

	m, err := metafile.Parse([]byte(built.Metafile))
	if err != nil {
		log.AddError(nil, logger.Loc{}, err.Error())
		return finish()
	}
	g, err := m.Graph(helpers.ToSlash(relOutdir), contents)
	if err != nil {
		log.AddError(nil, logger.Loc{}, err.Error())
		return finish()
	}

	done := injectGraph(log, g, m, helpers.ToSlash(relOutdir), options)
	result.Participating = done.result.Participating
	result.PatchedSites = done.result.PatchedSites
	result.RegistrySize = done.result.RegistrySize

	for _, id := range g.SortedIDs() {
		result.OutputFiles = append(result.OutputFiles, OutputFile{
			Path:     filepath.Join(absOutdir, filepath.FromSlash(id)),
			Contents: []byte(g.Units[id].Text),
		})
	}

	if options.Write && !log.HasErrors() {
		if err := writeOutputs(fsys, result.OutputFiles, nil); err != nil {
			log.AddError(nil, logger.Loc{}, err.Error())
		}
	}
	return finish()
}
