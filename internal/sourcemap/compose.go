package sourcemap

// Composes two maps. "next" maps the newest text to an intermediate text and
// "prev" maps that intermediate text to the original sources, so every source
// referenced by "next" is that intermediate text. The result maps the newest
// text directly to the original sources.
//
// Mappings of "next" that land on a position "prev" has no mapping for are
// dropped, since there is nothing meaningful to point them at.
func Compose(next *SourceMap, prev *SourceMap) *SourceMap {
	if prev == nil {
		return next
	}

	result := &SourceMap{
		File:           next.File,
		Sources:        prev.Sources,
		SourcesContent: prev.SourcesContent,
		DebugID:        prev.DebugID,
	}
	if result.DebugID == "" {
		result.DebugID = next.DebugID
	}

	namesMap := make(map[string]uint32)
	addName := func(name string) Index32 {
		i, ok := namesMap[name]
		if !ok {
			i = uint32(len(result.Names))
			result.Names = append(result.Names, name)
			namesMap[name] = i
		}
		return MakeIndex32(i)
	}

	result.Mappings = make([]Mapping, 0, len(next.Mappings))
	for _, m := range next.Mappings {
		traced := prev.Find(m.OriginalLine, m.OriginalColumn)

		// Some locations won't have a mapping
		if traced == nil {
			continue
		}

		composed := Mapping{
			GeneratedLine:   m.GeneratedLine,
			GeneratedColumn: m.GeneratedColumn,
			SourceIndex:     traced.SourceIndex,
			OriginalLine:    traced.OriginalLine,
			OriginalColumn:  traced.OriginalColumn,
		}

		// Map all the way back to the original name if present. Otherwise, keep
		// the name from the intermediate text.
		if traced.OriginalName.IsValid() {
			composed.OriginalName = addName(prev.Names[traced.OriginalName.GetIndex()])
		} else if m.OriginalName.IsValid() {
			composed.OriginalName = addName(next.Names[m.OriginalName.GetIndex()])
		}

		result.Mappings = append(result.Mappings, composed)
	}

	return result
}
