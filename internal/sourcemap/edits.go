package sourcemap

import (
	"unicode"

	"github.com/modpreload/modpreload/internal/helpers"
)

// Replaces the bytes in [Start, End) of the original text with Text. A pure
// insertion has Start == End.
type Edit struct {
	Start int32
	End   int32
	Text  string
}

// Generates the map from the text produced by applying "edits" back to
// "original". Edits must be sorted by Start and must not overlap.
//
// Mappings are emitted at boundaries only: the first character of every line,
// every word and every punctuation character of untouched text, and the start
// of every edit. Edited text maps to the position of the text it replaced.
func EditMap(original string, edits []Edit, sourceName string, includeContent bool) *SourceMap {
	b := editMapBuilder{original: original}
	pos := 0

	for _, edit := range edits {
		b.addUntouched(pos, int(edit.Start))
		if edit.Text != "" {
			b.addMapping()
			b.generated.AdvanceString(edit.Text)
		}
		b.originalPos.AdvanceString(original[edit.Start:edit.End])
		b.atSegmentStart = true
		pos = int(edit.End)
	}
	b.addUntouched(pos, len(original))

	sm := &SourceMap{
		Sources:  []string{sourceName},
		Mappings: b.mappings,
	}
	if includeContent {
		sm.SourcesContent = []SourceContent{{Quoted: string(helpers.QuoteForJSON(original))}}
	}
	return sm
}

type editMapBuilder struct {
	original       string
	mappings       []Mapping
	generated      LineColumnOffset
	originalPos    LineColumnOffset
	atSegmentStart bool
}

func (b *editMapBuilder) addMapping() {
	// Two edits can start at the same generated position if the first one
	// removed text without replacing it
	if n := len(b.mappings); n > 0 {
		last := &b.mappings[n-1]
		if int(last.GeneratedLine) == b.generated.Lines && int(last.GeneratedColumn) == b.generated.Columns {
			return
		}
	}

	b.mappings = append(b.mappings, Mapping{
		GeneratedLine:   int32(b.generated.Lines),
		GeneratedColumn: int32(b.generated.Columns),
		OriginalLine:    int32(b.originalPos.Lines),
		OriginalColumn:  int32(b.originalPos.Columns),
	})
}

func (b *editMapBuilder) addUntouched(start int, end int) {
	text := b.original[:end]
	atLineStart := b.originalPos.Columns == 0
	inWord := false

	for i := start; i < end; {
		c, width := decodeRune(text, i)

		if c == '\r' || isNewline(text, i, c) {
			// Only a lone "\r" or the "\n" of "\r\n" starts a new line
			if isNewline(text, i, c) {
				b.generated.Lines++
				b.generated.Columns = 0
				b.originalPos.Lines++
				b.originalPos.Columns = 0
				atLineStart = true
				b.atSegmentStart = false
			} else {
				b.generated.Columns++
				b.originalPos.Columns++
			}
			inWord = false
			i += width
			continue
		}

		isSpace := c == ' ' || c == '\t'
		isWord := isWordRune(c)
		if b.atSegmentStart || atLineStart || (!isSpace && (!isWord || !inWord)) {
			b.addMapping()
		}
		b.atSegmentStart = false
		atLineStart = false
		inWord = isWord

		columns := utf16Len(c)
		b.generated.Columns += columns
		b.originalPos.Columns += columns
		i += width
	}
}

func isWordRune(c rune) bool {
	return c == '_' || c == '$' || unicode.IsLetter(c) || unicode.IsDigit(c)
}
