package sourcemap

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/modpreload/modpreload/internal/logger"
)

type jsonSourceMap struct {
	Version        int               `json:"version"`
	File           string            `json:"file"`
	SourceRoot     string            `json:"sourceRoot"`
	Sources        []*string         `json:"sources"`
	SourcesContent []json.RawMessage `json:"sourcesContent"`
	Names          []string          `json:"names"`
	Mappings       string            `json:"mappings"`
	DebugID        string            `json:"debugId"`
	Sections       json.RawMessage   `json:"sections"`
}

// Specification: https://sourcemaps.info/spec.html
//
// Problems are reported as warnings. A unit whose existing map can't be read
// is still rewritten, it just doesn't get a composed map.
func Parse(log logger.Log, source logger.Source) *SourceMap {
	var raw jsonSourceMap
	if err := json.Unmarshal([]byte(source.Contents), &raw); err != nil {
		loc := logger.Loc{}
		if syntaxErr, ok := err.(*json.SyntaxError); ok {
			loc.Start = int32(syntaxErr.Offset)
		}
		log.AddWarning(&source, loc, fmt.Sprintf("Invalid source map: %s", err.Error()))
		return nil
	}

	if raw.Sections != nil {
		log.AddWarning(&source, logger.Loc{}, "Source maps with \"sections\" are not supported")
		return nil
	}

	// Silently fail if the version was missing or incorrect
	if raw.Version != 3 {
		return nil
	}

	// Silently fail if the source map is pointless (i.e. empty)
	if len(raw.Sources) == 0 || raw.Mappings == "" {
		return nil
	}

	sources := make([]string, len(raw.Sources))
	for i, s := range raw.Sources {
		if s != nil {
			sources[i] = *s
			if raw.SourceRoot != "" {
				sources[i] = joinSourceRoot(raw.SourceRoot, *s)
			}
		}
	}

	var sourcesContent []SourceContent
	if len(raw.SourcesContent) > 0 {
		sourcesContent = make([]SourceContent, len(raw.SourcesContent))
		for i, item := range raw.SourcesContent {
			if len(item) > 0 && item[0] == '"' {
				sourcesContent[i] = SourceContent{Quoted: string(item)}
			}
		}
	}

	mappings, current, errorText := decodeMappings(raw.Mappings, len(sources), len(raw.Names))
	if errorText != "" {
		log.AddWarning(&source, logger.Loc{},
			fmt.Sprintf("Bad \"mappings\" data in source map at character %d: %s", current, errorText))
		return nil
	}

	return &SourceMap{
		File:           raw.File,
		Sources:        sources,
		SourcesContent: sourcesContent,
		Mappings:       mappings,
		Names:          raw.Names,
		DebugID:        raw.DebugID,
	}
}

func joinSourceRoot(root string, source string) string {
	if root[len(root)-1] == '/' {
		return root + source
	}
	return root + "/" + source
}

func decodeMappings(mappingsRaw string, sourcesLen int, namesLen int) (mappingArray, int, string) {
	var mappings mappingArray
	mappingsLen := len(mappingsRaw)
	var generatedLine int32
	var generatedColumn int32
	var sourceIndex int32
	var originalLine int32
	var originalColumn int32
	var originalName int32
	current := 0
	needSort := false

	for current < mappingsLen {
		// Handle a line break
		if mappingsRaw[current] == ';' {
			generatedLine++
			generatedColumn = 0
			current++
			continue
		}

		// Read the generated column
		generatedColumnDelta, i, ok := DecodeVLQ(mappingsRaw[current:])
		if !ok {
			return nil, current, "Missing generated column"
		}
		if generatedColumnDelta < 0 {
			// This would mess up binary search
			needSort = true
		}
		generatedColumn += generatedColumnDelta
		if generatedColumn < 0 {
			return nil, current, fmt.Sprintf("Invalid generated column value: %d", generatedColumn)
		}
		current += i

		// According to the specification, it's valid for a mapping to have 1,
		// 4, or 5 variable-length fields. Having one field means there's no
		// original location information, which is pretty useless. Just ignore
		// those entries.
		if current == mappingsLen {
			break
		}
		switch mappingsRaw[current] {
		case ',':
			current++
			continue
		case ';':
			continue
		}

		// Read the original source
		sourceIndexDelta, i, ok := DecodeVLQ(mappingsRaw[current:])
		if !ok {
			return nil, current, "Missing source index"
		}
		sourceIndex += sourceIndexDelta
		if sourceIndex < 0 || int(sourceIndex) >= sourcesLen {
			return nil, current, fmt.Sprintf("Invalid source index value: %d", sourceIndex)
		}
		current += i

		// Read the original line
		originalLineDelta, i, ok := DecodeVLQ(mappingsRaw[current:])
		if !ok {
			return nil, current, "Missing original line"
		}
		originalLine += originalLineDelta
		if originalLine < 0 {
			return nil, current, fmt.Sprintf("Invalid original line value: %d", originalLine)
		}
		current += i

		// Read the original column
		originalColumnDelta, i, ok := DecodeVLQ(mappingsRaw[current:])
		if !ok {
			return nil, current, "Missing original column"
		}
		originalColumn += originalColumnDelta
		if originalColumn < 0 {
			return nil, current, fmt.Sprintf("Invalid original column value: %d", originalColumn)
		}
		current += i

		// Read the optional name index
		var name Index32
		if originalNameDelta, i, ok := DecodeVLQ(mappingsRaw[current:]); ok {
			originalName += originalNameDelta
			if originalName < 0 || int(originalName) >= namesLen {
				return nil, current, fmt.Sprintf("Invalid name index value: %d", originalName)
			}
			name = MakeIndex32(uint32(originalName))
			current += i
		}

		// Handle the next character
		if current < mappingsLen {
			if c := mappingsRaw[current]; c == ',' {
				current++
			} else if c != ';' {
				return nil, current, fmt.Sprintf("Invalid character after mapping: %q", mappingsRaw[current:current+1])
			}
		}

		mappings = append(mappings, Mapping{
			GeneratedLine:   generatedLine,
			GeneratedColumn: generatedColumn,
			SourceIndex:     sourceIndex,
			OriginalLine:    originalLine,
			OriginalColumn:  originalColumn,
			OriginalName:    name,
		})
	}

	if needSort {
		// If we get here, some mappings are out of order. Lines can't be out of
		// order by construction but columns can. This is a pretty rare situation
		// because almost all source map generators always write out mappings in
		// order as they write the output instead of scrambling the order.
		sort.Stable(mappings)
	}

	return mappings, current, ""
}

// This type is just so we can use Go's native sort function
type mappingArray []Mapping

func (a mappingArray) Len() int          { return len(a) }
func (a mappingArray) Swap(i int, j int) { a[i], a[j] = a[j], a[i] }

func (a mappingArray) Less(i int, j int) bool {
	ai := a[i]
	aj := a[j]
	return ai.GeneratedLine < aj.GeneratedLine || (ai.GeneratedLine == aj.GeneratedLine && ai.GeneratedColumn < aj.GeneratedColumn)
}
