package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/modpreload/modpreload/pkg/api"
)

var buildCmd = &cobra.Command{
	Use:   "build [entry points]",
	Short: "Bundles with esbuild and adds preloading to the result",
	Long: "Runs esbuild with bundling, code splitting and a metafile, then rewrites\n" +
		"the output before it is written.",
	Args:          cobra.MinimumNArgs(1),
	RunE:          cmdRunBuild,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := buildCmd.Flags()
	flags.SortFlags = false
	flags.String("outdir", "dist", "the output directory")
	addPreloadFlags(flags)
	flags.Bool("minify", false, "minify the output")
	flags.StringSlice("external", nil, "exclude a module from the bundle (can be repeated)")
	flags.StringSlice("loader", nil, "use a loader for a file extension, like \".png=file\" (can be repeated)")
	flags.String("entry-names", "", "path template for entry point outputs, like \"[dir]/[name]-[hash]\"")
	flags.String("chunk-names", "", "path template for shared chunks")
	flags.Bool("dry-run", false, "build without writing anything")
	rootCmd.AddCommand(buildCmd)
}

func cmdRunBuild(cmd *cobra.Command, args []string) error {
	logger := commandLogger("build")
	flags := cmd.Flags()

	options, err := injectOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := flags.GetBool("dry-run")
	options.Write = !dryRun

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	esbuildOptions := api.EsbuildOptions{
		EntryPoints:   args,
		AbsWorkingDir: cwd,
	}
	esbuildOptions.Outdir, _ = flags.GetString("outdir")
	esbuildOptions.External, _ = flags.GetStringSlice("external")
	esbuildOptions.EntryNames, _ = flags.GetString("entry-names")
	esbuildOptions.ChunkNames, _ = flags.GetString("chunk-names")
	if minify, _ := flags.GetBool("minify"); minify {
		esbuildOptions.MinifyWhitespace = true
		esbuildOptions.MinifyIdentifiers = true
		esbuildOptions.MinifySyntax = true
	}
	loaders, _ := flags.GetStringSlice("loader")
	if esbuildOptions.Loader, err = parseLoaders(loaders); err != nil {
		return err
	}

	result := api.Build(esbuildOptions, options)
	if err := resultError(result.Errors); err != nil {
		return err
	}

	for _, file := range result.OutputFiles {
		logger.Debug().Str("path", file.Path).Int("bytes", len(file.Contents)).Msg("Built output")
	}
	logInjectSummary(logger.Info(), result.Participating, result.PatchedSites, result.RegistrySize, len(result.OutputFiles)).
		Bool("dryRun", dryRun).
		Msg("Built with preloading")
	return nil
}
