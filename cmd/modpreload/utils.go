package main

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

// Returns a directory flag as an absolute path, or "" if it wasn't given
func absFlag(flags *pflag.FlagSet, name string) (string, error) {
	value, err := flags.GetString(name)
	if err != nil || value == "" {
		return "", err
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", errors.Wrapf(err, "Invalid path for --%s", name)
	}
	return abs, nil
}

func logInjectSummary(event *zerolog.Event, participating []string, sites int, registry int, files int) *zerolog.Event {
	return event.
		Int("units", len(participating)).
		Int("sites", sites).
		Int("registry", registry).
		Int("files", files)
}
