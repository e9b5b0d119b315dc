package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/modpreload/modpreload/internal/cli_helpers"
	"github.com/modpreload/modpreload/internal/exitcode"
	"github.com/modpreload/modpreload/pkg/api"
)

var rootCmd = &cobra.Command{
	Use:   "modpreload",
	Short: "Preloads the dependencies of dynamic imports in bundler output",
	Long: "modpreload rewrites the dynamic imports of a code-splitting build so that the\n" +
		"static dependencies and stylesheets of each target are fetched in parallel\n" +
		"with it instead of one level at a time.",
	PersistentPreRunE: cmdPrepare,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Flags that can take their default from the environment
var envFlags = map[string]string{
	"base":      "MODPRELOAD_BASE",
	"format":    "MODPRELOAD_FORMAT",
	"sourcemap": "MODPRELOAD_SOURCEMAP",
	"log-level": "MODPRELOAD_LOG_LEVEL",
}

type logOptions struct {
	color      api.StderrColor
	errorLimit int
	level      api.LogLevel
}

var rootLog logOptions

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("env-file", ".env", "file to load environment defaults from, if it exists")
	flags.String("log-level", "info", "what to log (info, warning, error, silent)")
	flags.String("color", "", "force use of color terminal escapes (true or false)")
	flags.Int("error-limit", 10, "maximum error count or 0 to disable")
}

func cmdPrepare(cmd *cobra.Command, args []string) error {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return err
	}
	if err := godotenv.Load(envFile); err != nil && (cmd.Flags().Changed("env-file") || !os.IsNotExist(errors.Cause(err))) {
		return errors.Wrapf(err, "Failed to load %q", envFile)
	}

	if err := applyEnvDefaults(cmd.Flags(), os.LookupEnv); err != nil {
		return exitcode.Set(err, exitcode.Usage)
	}

	level, _ := cmd.Flags().GetString("log-level")
	color, _ := cmd.Flags().GetString("color")
	var note *cli_helpers.ErrorWithNote
	if rootLog.level, note = cli_helpers.ParseLogLevel(level); note != nil {
		return usageError(note)
	}
	if rootLog.color, note = cli_helpers.ParseColor(color); note != nil {
		return usageError(note)
	}
	if rootLog.errorLimit, err = cmd.Flags().GetInt("error-limit"); err != nil {
		return err
	}

	cmdLogger = newLogger(os.Stderr, zerologLevel(rootLog.level), rootLog.color == api.ColorNever)
	return nil
}

// Flags set on the command line win over the environment
func applyEnvDefaults(flags *pflag.FlagSet, lookup func(string) (string, bool)) error {
	var err error
	flags.VisitAll(func(flag *pflag.Flag) {
		name, ok := envFlags[flag.Name]
		if !ok || flag.Changed || err != nil {
			return
		}
		if value, ok := lookup(name); ok {
			if setErr := flag.Value.Set(value); setErr != nil {
				err = errors.Wrapf(setErr, "Invalid value %q for %s", value, name)
			}
		}
	})
	return err
}

func usageError(note *cli_helpers.ErrorWithNote) error {
	return exitcode.Set(note, exitcode.Usage)
}

func resultError(errs []api.Message) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return exitcode.Reported(errors.New("1 error"))
	}
	return exitcode.Reported(errors.Errorf("%d errors", len(errs)))
}
