package sourcemap

import (
	stdbase64 "encoding/base64"
	"net/url"
	"strings"
)

const dataURLPrefix = "data:application/json;base64,"

type Comment struct {
	Start int // Byte offset of the "//" of the comment
	End   int // Byte offset just past the comment, not including the newline
	URL   string
}

// Finds the last "//# sourceMappingURL=" comment in a code unit. The legacy
// "//@" form is also recognized.
func FindComment(text string) (Comment, bool) {
	end := len(text)
	for end > 0 {
		lineStart := strings.LastIndexAny(text[:end], "\r\n") + 1
		line := strings.TrimSpace(text[lineStart:end])

		if line != "" {
			if !strings.HasPrefix(line, "//# sourceMappingURL=") && !strings.HasPrefix(line, "//@ sourceMappingURL=") {
				// The comment must be the last non-empty line
				return Comment{}, false
			}
			commentStart := lineStart + strings.Index(text[lineStart:end], "//")
			commentEnd := commentStart + len(line)
			return Comment{
				Start: commentStart,
				End:   commentEnd,
				URL:   strings.TrimSpace(line[len("//# sourceMappingURL="):]),
			}, true
		}

		if lineStart == 0 {
			break
		}
		end = lineStart - 1
	}
	return Comment{}, false
}

// Returns the decoded map if the comment carries the map inline
func (c Comment) InlineContents() (string, bool) {
	if !strings.HasPrefix(c.URL, "data:") {
		return "", false
	}
	comma := strings.IndexByte(c.URL, ',')
	if comma == -1 {
		return "", false
	}
	header := c.URL[:comma]
	data := c.URL[comma+1:]
	if strings.HasSuffix(header, ";base64") {
		decoded, err := stdbase64.StdEncoding.DecodeString(data)
		if err != nil {
			return "", false
		}
		return string(decoded), true
	}
	decoded, err := url.PathUnescape(data)
	if err != nil {
		return "", false
	}
	return decoded, true
}

// Removes a trailing "sourceMappingURL" comment, if any
func StripComment(text string) string {
	if comment, ok := FindComment(text); ok {
		return strings.TrimRight(text[:comment.Start], " \t\r\n") + "\n"
	}
	return text
}

func AppendInlineComment(text string, sm *SourceMap) string {
	return ensureNewline(StripComment(text)) + "//# sourceMappingURL=" + dataURLPrefix +
		stdbase64.StdEncoding.EncodeToString(sm.JSON()) + "\n"
}

func AppendLinkedComment(text string, mapPath string) string {
	importURL := url.URL{Path: mapPath}
	return ensureNewline(StripComment(text)) + "//# sourceMappingURL=" + importURL.EscapedPath() + "\n"
}

func ensureNewline(text string) string {
	if text != "" && !strings.HasSuffix(text, "\n") {
		return text + "\n"
	}
	return text
}
