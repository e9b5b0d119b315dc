// This package contains CLI-related code that must be shared with other
// internal code outside of the CLI package.

package cli_helpers

import (
	"fmt"
	"strings"

	"github.com/modpreload/modpreload/pkg/api"
)

type ErrorWithNote struct {
	Text string
	Note string
}

func MakeErrorWithNote(text string, note string) *ErrorWithNote {
	return &ErrorWithNote{
		Text: text,
		Note: note,
	}
}

func (e *ErrorWithNote) Error() string {
	if e.Note == "" {
		return e.Text
	}
	return e.Text + "\n" + e.Note
}

func ParseFormat(text string) (api.Format, *ErrorWithNote) {
	switch strings.ToLower(text) {
	case "", "default":
		return api.FormatDefault, nil
	case "esm":
		return api.FormatESModule, nil
	case "iife":
		return api.FormatIIFE, nil
	case "cjs":
		return api.FormatCommonJS, nil
	default:
		return api.FormatDefault, MakeErrorWithNote(
			fmt.Sprintf("Invalid format value: %q", text),
			"Valid values are \"esm\", \"iife\", or \"cjs\".",
		)
	}
}

func ParseSourceMap(text string) (api.SourceMap, *ErrorWithNote) {
	switch strings.ToLower(text) {
	case "", "none", "false":
		return api.SourceMapNone, nil
	case "linked", "true":
		return api.SourceMapLinked, nil
	case "inline":
		return api.SourceMapInline, nil
	case "external":
		return api.SourceMapExternal, nil
	default:
		return api.SourceMapNone, MakeErrorWithNote(
			fmt.Sprintf("Invalid sourcemap value: %q", text),
			"Valid values are \"none\", \"linked\", \"inline\", or \"external\".",
		)
	}
}

func ParseLogLevel(text string) (api.LogLevel, *ErrorWithNote) {
	switch strings.ToLower(text) {
	case "info":
		return api.LogLevelInfo, nil
	case "warning":
		return api.LogLevelWarning, nil
	case "error":
		return api.LogLevelError, nil
	case "silent":
		return api.LogLevelSilent, nil
	default:
		return api.LogLevelSilent, MakeErrorWithNote(
			fmt.Sprintf("Invalid log level value: %q", text),
			"Valid values are \"info\", \"warning\", \"error\", or \"silent\".",
		)
	}
}

func ParseColor(text string) (api.StderrColor, *ErrorWithNote) {
	switch strings.ToLower(text) {
	case "", "auto":
		return api.ColorIfTerminal, nil
	case "true", "always":
		return api.ColorAlways, nil
	case "false", "never":
		return api.ColorNever, nil
	default:
		return api.ColorIfTerminal, MakeErrorWithNote(
			fmt.Sprintf("Invalid color value: %q", text),
			"Valid values are \"true\" or \"false\".",
		)
	}
}
