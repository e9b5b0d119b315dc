package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/modpreload/modpreload/pkg/api"
)

var linksCmd = &cobra.Command{
	Use:   "links [targets]",
	Short: "Adds preload links for dynamic imports to an HTML page",
	Long: "Adds the links a page would add at runtime before importing each target,\n" +
		"so the server can send them with the page.",
	Args:          cobra.MinimumNArgs(1),
	RunE:          cmdRunLinks,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := linksCmd.Flags()
	flags.SortFlags = false
	flags.String("page", "index.html", "the HTML page to add links to")
	addOutputFlags(flags)
	flags.String("base", "/", "public URL the output directory is served at")
	flags.String("entry", "", "the output unit the page loads (default is its first module script)")
	flags.Bool("include-targets", false, "add links for the targets themselves too")
	flags.StringP("out", "o", "", "where to write the page (default is stdout)")
	rootCmd.AddCommand(linksCmd)
}

func cmdRunLinks(cmd *cobra.Command, args []string) error {
	logger := commandLogger("links")
	flags := cmd.Flags()

	pagePath, _ := flags.GetString("page")
	page, err := os.ReadFile(pagePath)
	if err != nil {
		return errors.Wrapf(err, "Failed to read page %q", pagePath)
	}

	options := api.LinksOptions{
		Color:      rootLog.color,
		ErrorLimit: rootLog.errorLimit,
		LogLevel:   rootLog.level,
		Page:       string(page),
		Targets:    args,
	}
	options.Outdir, _ = flags.GetString("outdir")
	options.Metafile, _ = flags.GetString("metafile")
	options.Base, _ = flags.GetString("base")
	options.Entry, _ = flags.GetString("entry")
	options.IncludeTargets, _ = flags.GetBool("include-targets")
	if options.AbsWorkingDir, err = absFlag(flags, "cwd"); err != nil {
		return err
	}

	result := api.Links(options)
	if err := resultError(result.Errors); err != nil {
		return err
	}

	out, _ := flags.GetString("out")
	if out == "" {
		_, err = cmd.OutOrStdout().Write([]byte(result.HTML))
	} else {
		err = os.WriteFile(out, []byte(result.HTML), 0644)
	}
	if err != nil {
		return errors.Wrap(err, "Failed to write page")
	}

	logger.Info().Strs("links", result.Links).Msg("Added preload links")
	return nil
}
