package scanner

import (
	"github.com/modpreload/modpreload/internal/logger"
)

// Scans a code unit and reports a failure as an error with a code frame
// pointing at the offending text. Returns false if the unit couldn't be
// scanned, in which case it must not be rewritten.
func Scan(log logger.Log, source *logger.Source, scanner Scanner) ([]ImportSite, bool) {
	sites, err := scanner.Scan(source.Contents)
	if err != nil {
		r := logger.Range{Loc: logger.Loc{Start: err.Offset}, Len: err.Len}
		if int(r.Loc.Start) > len(source.Contents) {
			r = logger.Range{Loc: logger.Loc{Start: int32(len(source.Contents))}}
		}
		log.AddRangeError(source, r, err.Text)
		return nil, false
	}
	return sites, true
}

// Returns the dynamic imports with a statically-known target. These are the
// only sites that can be preloaded.
func LiteralDynamicImports(sites []ImportSite) []ImportSite {
	var result []ImportSite
	for _, site := range sites {
		if site.IsDynamic && site.HasSpecifier {
			result = append(result, site)
		}
	}
	return result
}
