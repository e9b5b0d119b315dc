package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/modpreload/modpreload/internal/cli_helpers"
	"github.com/modpreload/modpreload/pkg/api"
)

// Adds the flags that control the preload pass. These are shared by every
// command that runs it.
func addPreloadFlags(flags *pflag.FlagSet) {
	flags.String("base", "/", "public URL the output directory is served at, or \"./\" for URLs relative to each unit")
	flags.String("format", "esm", "output format of the build (esm, iife, cjs)")
	flags.String("sourcemap", "", "source map mode (none, linked, inline, external)")
	flags.String("helper", "", "output path of the preload helper (default \"preload-helper.js\")")
	flags.Bool("no-preload", false, "leave dynamic imports alone, as for library and server builds")
	flags.Bool("no-modulepreload", false, "only preload the stylesheets of dynamic imports")
	flags.Bool("prune-css-chunks", true, "remove JavaScript chunks that only load stylesheets")
}

func addOutputFlags(flags *pflag.FlagSet) {
	flags.String("outdir", "dist", "the output directory of the build")
	flags.String("metafile", "", "the metafile of the build (without one, stylesheets aren't preloaded)")
	flags.String("cwd", "", "the directory the build ran in (default is the current directory)")
}

// Reads the preload flags of a command into API options
func injectOptionsFromFlags(cmd *cobra.Command) (api.InjectOptions, error) {
	flags := cmd.Flags()
	options := api.InjectOptions{
		Color:      rootLog.color,
		ErrorLimit: rootLog.errorLimit,
		LogLevel:   rootLog.level,
	}

	var note *cli_helpers.ErrorWithNote
	format, _ := flags.GetString("format")
	if options.Format, note = cli_helpers.ParseFormat(format); note != nil {
		return options, usageError(note)
	}
	sourcemap, _ := flags.GetString("sourcemap")
	if options.Sourcemap, note = cli_helpers.ParseSourceMap(sourcemap); note != nil {
		return options, usageError(note)
	}

	options.Base, _ = flags.GetString("base")
	options.HelperPath, _ = flags.GetString("helper")
	options.DisablePreload, _ = flags.GetBool("no-preload")
	options.DisableModulePreload, _ = flags.GetBool("no-modulepreload")
	options.PruneStyleOnlyChunks, _ = flags.GetBool("prune-css-chunks")

	// Commands that read an existing output directory
	if flags.Lookup("metafile") != nil {
		options.Outdir, _ = flags.GetString("outdir")
		options.Metafile, _ = flags.GetString("metafile")
		var err error
		if options.AbsWorkingDir, err = absFlag(flags, "cwd"); err != nil {
			return options, err
		}
	}
	return options, nil
}
