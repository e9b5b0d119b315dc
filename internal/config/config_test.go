package config_test

import (
	"testing"

	"github.com/modpreload/modpreload/internal/config"
	"github.com/modpreload/modpreload/internal/test"
)

func TestParseFormat(t *testing.T) {
	expect := func(text string, expected config.Format, expectedOk bool) {
		t.Helper()
		format, ok := config.ParseFormat(text)
		test.AssertEqual(t, ok, expectedOk)
		test.AssertEqual(t, format, expected)
	}

	expect("esm", config.FormatESModule, true)
	expect("IIFE", config.FormatIIFE, true)
	expect("commonjs", config.FormatCommonJS, true)
	expect("umd", config.FormatESModule, false)
}

func TestImporterURLModes(t *testing.T) {
	options := config.Options{}
	test.AssertEqual(t, options.NeedsImporterURL(), true)

	options.Base = "/static/"
	test.AssertEqual(t, options.NeedsImporterURL(), false)

	options.RenderBuiltURL = func(dep string, kind config.AssetKind, fromUnit string) config.BuiltURL {
		return config.BuiltURL{URL: dep}
	}
	test.AssertEqual(t, options.NeedsImporterURL(), true)
	test.AssertEqual(t, options.Helper(), config.DefaultHelperPath)
}

func TestEmitsPreload(t *testing.T) {
	options := config.Options{}
	test.AssertEqual(t, options.EmitsPreload(), true)

	options.DisablePreload = true
	test.AssertEqual(t, options.EmitsPreload(), false)

	options = config.Options{OutputFormat: config.FormatIIFE}
	test.AssertEqual(t, options.EmitsPreload(), false)
}
