package sourcemap

import (
	"github.com/modpreload/modpreload/internal/helpers"
)

type sourceMapState struct {
	GeneratedColumn int
	SourceIndex     int
	OriginalLine    int
	OriginalColumn  int
	OriginalName    int
}

func appendMappingToBuffer(buffer []byte, lastByte byte, prevState sourceMapState, currentState sourceMapState, hasName bool) []byte {
	// Put commas in between mappings
	if lastByte != 0 && lastByte != ';' && lastByte != '"' {
		buffer = append(buffer, ',')
	}

	// Record the mapping (note that the generated line is recorded using ';' elsewhere)
	buffer = encodeVLQ(buffer, currentState.GeneratedColumn-prevState.GeneratedColumn)
	buffer = encodeVLQ(buffer, currentState.SourceIndex-prevState.SourceIndex)
	buffer = encodeVLQ(buffer, currentState.OriginalLine-prevState.OriginalLine)
	buffer = encodeVLQ(buffer, currentState.OriginalColumn-prevState.OriginalColumn)

	// Record the optional original name
	if hasName {
		buffer = encodeVLQ(buffer, currentState.OriginalName-prevState.OriginalName)
	}

	return buffer
}

// The mappings must be sorted by generated position
func EncodeMappings(mappings []Mapping) []byte {
	var buffer []byte
	var prevState sourceMapState
	generatedLine := int32(0)

	for _, m := range mappings {
		if m.GeneratedLine > generatedLine {
			for generatedLine < m.GeneratedLine {
				buffer = append(buffer, ';')
				generatedLine++
			}
			prevState.GeneratedColumn = 0
		}

		currentState := sourceMapState{
			GeneratedColumn: int(m.GeneratedColumn),
			SourceIndex:     int(m.SourceIndex),
			OriginalLine:    int(m.OriginalLine),
			OriginalColumn:  int(m.OriginalColumn),
			OriginalName:    prevState.OriginalName,
		}
		if m.OriginalName.IsValid() {
			currentState.OriginalName = int(m.OriginalName.GetIndex())
		}

		var lastByte byte
		if len(buffer) > 0 {
			lastByte = buffer[len(buffer)-1]
		}
		buffer = appendMappingToBuffer(buffer, lastByte, prevState, currentState, m.OriginalName.IsValid())
		prevState = currentState
	}

	return buffer
}

// Writes the map in the same layout esbuild uses for its own ".map" files
func (sm *SourceMap) JSON() []byte {
	j := helpers.Joiner{}
	j.AddString("{\n  \"version\": 3")

	if sm.File != "" {
		j.AddString(",\n  \"file\": ")
		j.AddBytes(helpers.QuoteForJSON(sm.File))
	}

	j.AddString(",\n  \"sources\": [")
	for i, source := range sm.Sources {
		if i != 0 {
			j.AddString(", ")
		}
		j.AddBytes(helpers.QuoteForJSON(source))
	}
	j.AddString("]")

	if len(sm.SourcesContent) > 0 {
		j.AddString(",\n  \"sourcesContent\": [")
		for i, content := range sm.SourcesContent {
			if i != 0 {
				j.AddString(",\n    ")
			} else {
				j.AddString("\n    ")
			}
			if content.Quoted == "" {
				j.AddString("null")
			} else {
				j.AddString(content.Quoted)
			}
		}
		j.AddString("\n  ]")
	}

	j.AddString(",\n  \"mappings\": \"")
	j.AddBytes(EncodeMappings(sm.Mappings))
	j.AddString("\"")

	j.AddString(",\n  \"names\": [")
	for i, name := range sm.Names {
		if i != 0 {
			j.AddString(", ")
		}
		j.AddBytes(helpers.QuoteForJSON(name))
	}
	j.AddString("]")

	if sm.DebugID != "" {
		j.AddString(",\n  \"debugId\": ")
		j.AddBytes(helpers.QuoteForJSON(sm.DebugID))
	}

	j.AddString("\n}\n")
	return j.Done()
}
