package splice

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/modpreload/modpreload/internal/helpers"
	"github.com/modpreload/modpreload/internal/sourcemap"
)

// Collects edits against an immutable source text. Offsets always refer to
// the original text, so edits can be added in any order.
type Splice struct {
	source string
	edits  []sourcemap.Edit
}

func New(source string) *Splice {
	return &Splice{source: source}
}

func (s *Splice) Source() string {
	return s.source
}

func (s *Splice) HasChanged() bool {
	return len(s.edits) > 0
}

// Inserts text at an offset. Several insertions at the same offset appear in
// the order they were added, and before any replacement starting there.
func (s *Splice) Insert(at int, text string) {
	s.add(at, at, text)
}

func (s *Splice) Remove(start int, end int) {
	s.add(start, end, "")
}

func (s *Splice) Overwrite(start int, end int, text string) {
	s.add(start, end, text)
}

// Overwrites a span and pads the replacement with spaces so that the total
// length doesn't change. Every offset after the span stays valid.
func (s *Splice) OverwritePadded(start int, end int, text string) {
	if len(text) > end-start {
		panic(fmt.Sprintf("Internal error: replacement %q is longer than span [%d, %d)", text, start, end))
	}
	j := helpers.Joiner{}
	j.AddString(text)
	j.AddPadding(end - start - len(text))
	s.add(start, end, string(j.Done()))
}

func (s *Splice) add(start int, end int, text string) {
	if start < 0 || end < start || end > len(s.source) {
		panic(fmt.Sprintf("Internal error: invalid span [%d, %d) for text of length %d", start, end, len(s.source)))
	}
	if start == end && text == "" {
		return
	}
	s.edits = append(s.edits, sourcemap.Edit{Start: int32(start), End: int32(end), Text: text})
}

// Whether an edit already covers part of [start, end)
func (s *Splice) Touches(start int, end int) bool {
	for _, edit := range s.edits {
		if int(edit.Start) < end && start < int(edit.End) {
			return true
		}
	}
	return false
}

// Returns the edits sorted by position. Overlapping replacements are a bug in
// the caller.
func (s *Splice) Edits() []sourcemap.Edit {
	edits := append([]sourcemap.Edit{}, s.edits...)
	slices.SortStableFunc(edits, func(a sourcemap.Edit, b sourcemap.Edit) int {
		if a.Start != b.Start {
			return int(a.Start - b.Start)
		}
		aInsert := a.Start == a.End
		bInsert := b.Start == b.End
		if aInsert && !bInsert {
			return -1
		}
		if !aInsert && bInsert {
			return 1
		}
		return 0
	})

	for i := 1; i < len(edits); i++ {
		if edits[i].Start < edits[i-1].End {
			panic(fmt.Sprintf("Internal error: overlapping edits [%d, %d) and [%d, %d)",
				edits[i-1].Start, edits[i-1].End, edits[i].Start, edits[i].End))
		}
	}
	return edits
}

func (s *Splice) String() string {
	if len(s.edits) == 0 {
		return s.source
	}

	j := helpers.Joiner{}
	pos := 0
	for _, edit := range s.Edits() {
		j.AddString(s.source[pos:edit.Start])
		j.AddString(edit.Text)
		pos = int(edit.End)
	}
	j.AddString(s.source[pos:])
	return string(j.Done())
}

// Returns the map from the result of String() back to the source text
func (s *Splice) Map(sourceName string, includeContent bool) *sourcemap.SourceMap {
	return sourcemap.EditMap(s.source, s.Edits(), sourceName, includeContent)
}
