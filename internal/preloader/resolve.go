package preloader

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/modpreload/modpreload/internal/helpers"
	"github.com/modpreload/modpreload/internal/runtime"
)

// Registry entries are output-relative paths served at a fixed base
func AbsoluteResolver(base string) Resolver {
	return func(dep string, importerURL string) (string, error) {
		return helpers.JoinWithPublicPath(base, dep), nil
	}
}

// Registry entries are relative to the unit that imports them
func RelativeResolver() Resolver {
	return resolveAgainst
}

// Registry entries came from a custom hook. Only "./" and "../" entries are
// relative to the importing unit.
func CustomResolver() Resolver {
	return func(dep string, importerURL string) (string, error) {
		if strings.HasPrefix(dep, "./") || strings.HasPrefix(dep, "../") {
			return resolveAgainst(dep, importerURL)
		}
		return dep, nil
	}
}

func ResolverFor(mode runtime.ResolveMode, base string) Resolver {
	switch mode {
	case runtime.ResolveRelative:
		return RelativeResolver()
	case runtime.ResolveCustom:
		return CustomResolver()
	default:
		return AbsoluteResolver(base)
	}
}

func resolveAgainst(dep string, importerURL string) (string, error) {
	importer, err := url.Parse(importerURL)
	if err != nil {
		return "", errors.Wrapf(err, "Invalid importer URL %q", importerURL)
	}
	ref, err := url.Parse(dep)
	if err != nil {
		return "", errors.Wrapf(err, "Invalid dependency %q", dep)
	}
	return importer.ResolveReference(ref).String(), nil
}
