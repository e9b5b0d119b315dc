package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpreload/modpreload/internal/exitcode"
	"github.com/modpreload/modpreload/pkg/api"
)

func TestApplyEnvDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addPreloadFlags(flags)
	require.NoError(t, flags.Parse([]string{"--format=iife"}))

	env := map[string]string{
		"MODPRELOAD_BASE":      "/static/",
		"MODPRELOAD_FORMAT":    "cjs",
		"MODPRELOAD_SOURCEMAP": "linked",
	}
	lookup := func(name string) (string, bool) {
		value, ok := env[name]
		return value, ok
	}
	require.NoError(t, applyEnvDefaults(flags, lookup))

	base, _ := flags.GetString("base")
	format, _ := flags.GetString("format")
	sourcemap, _ := flags.GetString("sourcemap")
	assert.Equal(t, "/static/", base)
	assert.Equal(t, "iife", format)
	assert.Equal(t, "linked", sourcemap)
}

func TestInjectOptionsFromFlags(t *testing.T) {
	cmd := cobra.Command{Use: "test"}
	addOutputFlags(cmd.Flags())
	addPreloadFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--sourcemap=inline", "--no-modulepreload", "--metafile=meta.json"}))

	options, err := injectOptionsFromFlags(&cmd)
	require.NoError(t, err)
	assert.Equal(t, api.SourceMapInline, options.Sourcemap)
	assert.Equal(t, api.FormatESModule, options.Format)
	assert.True(t, options.DisableModulePreload)
	assert.True(t, options.PruneStyleOnlyChunks)
	assert.Equal(t, "dist", options.Outdir)
	assert.Equal(t, "meta.json", options.Metafile)
	assert.Equal(t, "/", options.Base)

	require.NoError(t, cmd.Flags().Set("format", "umd"))
	_, err = injectOptionsFromFlags(&cmd)
	require.Error(t, err)
	assert.Equal(t, exitcode.Usage, exitcode.Get(err))
}

func TestParseLoaders(t *testing.T) {
	loaders, err := parseLoaders([]string{".png=file", ".txt=text"})
	require.NoError(t, err)
	assert.Len(t, loaders, 2)

	_, err = parseLoaders([]string{"png=file"})
	assert.EqualError(t, err, "Invalid loader: \"png=file\"\nLoaders look like \".png=file\".")
	_, err = parseLoaders([]string{".png=image"})
	assert.Equal(t, exitcode.Usage, exitcode.Get(err))
}
