package main

import (
	"github.com/spf13/cobra"

	"github.com/modpreload/modpreload/pkg/api"
)

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Adds preloading to an output directory",
	Long: "Rewrites the JavaScript units of an output directory in place. The\n" +
		"metafile written by esbuild's --metafile tells which stylesheets each\n" +
		"unit needs.",
	Args:          cobra.NoArgs,
	RunE:          cmdRunInject,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	injectCmd.Flags().SortFlags = false
	addOutputFlags(injectCmd.Flags())
	addPreloadFlags(injectCmd.Flags())
	injectCmd.Flags().Bool("dry-run", false, "report what would change without writing anything")
	rootCmd.AddCommand(injectCmd)
}

func cmdRunInject(cmd *cobra.Command, args []string) error {
	logger := commandLogger("inject")

	options, err := injectOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	options.Write = !dryRun

	result := api.Inject(options)
	if err := resultError(result.Errors); err != nil {
		return err
	}

	for _, file := range result.OutputFiles {
		logger.Debug().Str("path", file.Path).Int("bytes", len(file.Contents)).Msg("Rewrote output")
	}
	for _, path := range result.RemovedFiles {
		logger.Info().Str("path", path).Msg("Removed style-only chunk")
	}
	logInjectSummary(logger.Info(), result.Participating, result.PatchedSites, result.RegistrySize, len(result.OutputFiles)).
		Bool("dryRun", dryRun).
		Msg("Injected preloading")
	return nil
}
