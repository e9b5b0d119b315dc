package main

import (
	"fmt"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"

	"github.com/modpreload/modpreload/internal/cli_helpers"
	"github.com/modpreload/modpreload/internal/exitcode"
)

var loaders = map[string]esbuild.Loader{
	"base64":  esbuild.LoaderBase64,
	"binary":  esbuild.LoaderBinary,
	"copy":    esbuild.LoaderCopy,
	"css":     esbuild.LoaderCSS,
	"dataurl": esbuild.LoaderDataURL,
	"empty":   esbuild.LoaderEmpty,
	"file":    esbuild.LoaderFile,
	"js":      esbuild.LoaderJS,
	"json":    esbuild.LoaderJSON,
	"jsx":     esbuild.LoaderJSX,
	"text":    esbuild.LoaderText,
	"ts":      esbuild.LoaderTS,
	"tsx":     esbuild.LoaderTSX,
}

// Parses "--loader" values of the form ".ext=name"
func parseLoaders(values []string) (map[string]esbuild.Loader, error) {
	if len(values) == 0 {
		return nil, nil
	}
	result := make(map[string]esbuild.Loader, len(values))
	for _, value := range values {
		ext, name, ok := strings.Cut(value, "=")
		if !ok || !strings.HasPrefix(ext, ".") {
			return nil, exitcode.Set(cli_helpers.MakeErrorWithNote(
				fmt.Sprintf("Invalid loader: %q", value),
				"Loaders look like \".png=file\".",
			), exitcode.Usage)
		}
		loader, ok := loaders[name]
		if !ok {
			return nil, exitcode.Set(cli_helpers.MakeErrorWithNote(
				fmt.Sprintf("Invalid loader value: %q", name),
				"Valid values are \"base64\", \"binary\", \"copy\", \"css\", \"dataurl\", \"empty\", \"file\", \"js\", \"json\", \"jsx\", \"text\", \"ts\", or \"tsx\".",
			), exitcode.Usage)
		}
		result[ext] = loader
	}
	return result, nil
}
