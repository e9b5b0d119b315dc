package preload

import (
	"strings"

	"github.com/modpreload/modpreload/internal/runtime"
	"github.com/modpreload/modpreload/internal/splice"
)

// Substitutes the format-dependent placeholders of a text. For the preload
// variant the flag becomes "true" and the first registry placeholder becomes
// "registry", unless that is empty. Otherwise the flag becomes "false", the
// registry becomes "[]" and every keep marker is blanked out.
//
// Running this on its own output changes nothing.
func PatchFormat(text string, variant Variant, registry string) string {
	s := splice.New(text)
	addFormatEdits(s, variant, registry)
	return s.String()
}

func addFormatEdits(s *splice.Splice, variant Variant, registry string) {
	text := s.Source()
	switch variant {
	case EmitWithPreload:
		replaceTokens(s, text, runtime.IsModernToken, "true", false)
		if registry != "" {
			replaceTokens(s, text, runtime.RegistryToken, registry, true)
		}

	case EmitWithoutPreload:
		replaceTokens(s, text, runtime.IsModernToken, "false", false)
		replaceTokens(s, text, runtime.RegistryToken, "[]", false)

		// Blanking keeps every offset after the marker valid
		marker := runtime.KeepMarker()
		for _, start := range findTokens(text, marker) {
			if !s.Touches(start, start+len(marker)) {
				s.OverwritePadded(start, start+len(marker), "")
			}
		}
	}
}

func replaceTokens(s *splice.Splice, text string, token string, replacement string, firstOnly bool) {
	for _, start := range findTokens(text, token) {
		if s.Touches(start, start+len(token)) {
			continue
		}
		s.Overwrite(start, start+len(token), replacement)
		if firstOnly {
			return
		}
	}
}

// Returns the offsets of "token" where it isn't part of a longer identifier
func findTokens(text string, token string) []int {
	var offsets []int
	for i := 0; ; {
		j := strings.Index(text[i:], token)
		if j == -1 {
			return offsets
		}
		start := i + j
		end := start + len(token)
		if (start == 0 || !isIdentifierByte(text[start-1])) &&
			(end == len(text) || !isIdentifierByte(text[end]) || !isIdentifierByte(token[len(token)-1])) {
			offsets = append(offsets, start)
		}
		i = end
	}
}

func isIdentifierByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '$' || c >= 0x80
}

// Returns whether a unit carries the registry placeholder
func hasRegistryToken(text string) bool {
	return len(findTokens(text, runtime.RegistryToken)) > 0
}
