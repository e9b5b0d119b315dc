package main

import (
	"github.com/spf13/cobra"

	"github.com/modpreload/modpreload/internal/runtime"
	"github.com/modpreload/modpreload/pkg/api"
)

var runtimeCmd = &cobra.Command{
	Use:           "runtime",
	Short:         "Prints the preload helper",
	Long:          "Prints the helper unit that the preload pass adds to the output, rendered for the given base and format.",
	Args:          cobra.NoArgs,
	RunE:          cmdRunRuntime,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := runtimeCmd.Flags()
	addPreloadFlags(flags)
	flags.Bool("raw", false, "print the helper before its placeholders are filled in")
	rootCmd.AddCommand(runtimeCmd)
}

func cmdRunRuntime(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		_, err := out.Write([]byte(runtime.Source()))
		return err
	}

	options, err := injectOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	_, err = out.Write([]byte(api.RuntimeHelper(options)))
	return err
}
