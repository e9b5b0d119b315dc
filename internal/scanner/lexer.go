package scanner

import (
	"unicode"
	"unicode/utf8"
)

type T uint8

const (
	TEndOfFile T = iota
	TIdentifier
	TNumber
	TString
	TRegExp
	TPunctuation

	// Template literals are split at their substitutions
	TNoSubstitutionTemplate
	TTemplateHead
	TTemplateMiddle
	TTemplateTail
)

// A tokenizer that knows just enough JavaScript to never mistake the inside
// of a string, comment, template or regular expression for code.
type lexer struct {
	text  string
	start int
	end   int
	token T

	// The text of the current token if it's an identifier or punctuation
	raw string

	prevEnd        int
	prevIsDot      bool
	regExpAllowed  bool
	templateBraces []bool // One entry per open brace, true for "${"
	err            *ScanError
}

func newLexer(text string) *lexer {
	l := &lexer{text: text}

	// Skip a byte order mark and a hashbang comment
	if len(text) >= 3 && text[:3] == "\xEF\xBB\xBF" {
		l.end = 3
	}
	if len(text) >= l.end+2 && text[l.end:l.end+2] == "#!" {
		for l.end < len(text) && text[l.end] != '\n' && text[l.end] != '\r' {
			l.end++
		}
	}

	l.next()
	return l
}

func (l *lexer) fail(offset int, length int, text string) {
	if l.err == nil {
		l.err = &ScanError{Offset: int32(offset), Len: int32(length), Text: text}
	}
	l.token = TEndOfFile
	l.start = len(l.text)
	l.end = len(l.text)
	l.raw = ""
}

// Whether a "/" after the current token starts a regular expression. This is
// decided from the previous token alone, which is correct for everything a
// bundler or minifier emits.
func (l *lexer) regExpCanFollow() bool {
	switch l.token {
	case TEndOfFile, TTemplateHead, TTemplateMiddle:
		return true

	case TIdentifier:
		switch l.raw {
		case "return", "typeof", "instanceof", "in", "of", "new", "delete", "void",
			"throw", "case", "do", "else", "yield", "await", "extends":
			return true
		}
		return false

	case TPunctuation:
		switch l.raw {
		case ")", "]", "++", "--":
			return false
		}
		return true
	}

	return false
}

func (l *lexer) next() {
	l.regExpAllowed = l.regExpCanFollow()
	l.prevIsDot = l.token == TPunctuation && (l.raw == "." || l.raw == "?.")
	l.prevEnd = l.end
	l.raw = ""

	for {
		l.start = l.end
		if l.end >= len(l.text) {
			l.token = TEndOfFile
			return
		}
		c := l.text[l.end]

		switch c {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			l.end++
			continue

		case '\'', '"':
			l.scanString(c)
			return

		case '`':
			l.end++
			l.scanTemplate(TNoSubstitutionTemplate, TTemplateHead)
			return

		case '/':
			if l.end+1 < len(l.text) {
				switch l.text[l.end+1] {
				case '/':
					l.skipLineComment()
					continue
				case '*':
					if !l.skipBlockComment() {
						return
					}
					continue
				}
			}
			if l.regExpAllowed {
				l.scanRegExp()
				return
			}
			l.scanPunctuation()
			return

		case '{':
			l.templateBraces = append(l.templateBraces, false)
			l.scanPunctuation()
			return

		case '}':
			if n := len(l.templateBraces); n > 0 {
				isTemplate := l.templateBraces[n-1]
				l.templateBraces = l.templateBraces[:n-1]
				if isTemplate {
					l.end++
					l.scanTemplate(TTemplateTail, TTemplateMiddle)
					return
				}
			}
			l.scanPunctuation()
			return

		case '<':
			// Legacy HTML comments are still valid in scripts
			if l.end+3 < len(l.text) && l.text[l.end:l.end+4] == "<!--" {
				l.skipLineComment()
				continue
			}
		}

		if c >= utf8.RuneSelf {
			r, width := utf8.DecodeRuneInString(l.text[l.end:])
			if unicode.IsSpace(r) || r == '\uFEFF' {
				l.end += width
				continue
			}
		}

		switch {
		case isIdentifierStart(c):
			l.scanIdentifier()
		case c >= '0' && c <= '9', c == '.' && l.end+1 < len(l.text) && isDigit(l.text[l.end+1]):
			l.scanNumber()
		default:
			l.scanPunctuation()
		}
		return
	}
}

func (l *lexer) skipLineComment() {
	for l.end < len(l.text) {
		switch l.text[l.end] {
		case '\n', '\r':
			return
		}
		l.end++
	}
}

func (l *lexer) skipBlockComment() bool {
	start := l.end
	l.end += 2
	for {
		if l.end+1 >= len(l.text) {
			l.fail(start, 2, "Expected \"*/\" to terminate multi-line comment")
			return false
		}
		if l.text[l.end] == '*' && l.text[l.end+1] == '/' {
			l.end += 2
			return true
		}
		l.end++
	}
}

func (l *lexer) scanString(quote byte) {
	l.token = TString
	l.end++
	for {
		if l.end >= len(l.text) {
			l.fail(l.start, 0, "Unterminated string literal")
			return
		}
		switch l.text[l.end] {
		case '\\':
			l.end += 2
			if l.end < len(l.text) && l.text[l.end-1] == '\r' && l.text[l.end] == '\n' {
				l.end++
			}
			continue
		case '\n', '\r':
			l.fail(l.start, 0, "Unterminated string literal")
			return
		case quote:
			l.end++
			return
		}
		l.end++
	}
}

func (l *lexer) scanTemplate(noSubstitution T, head T) {
	for {
		if l.end >= len(l.text) {
			l.fail(l.start, 0, "Unterminated template literal")
			return
		}
		switch l.text[l.end] {
		case '\\':
			l.end += 2
			continue
		case '`':
			l.end++
			l.token = noSubstitution
			return
		case '$':
			if l.end+1 < len(l.text) && l.text[l.end+1] == '{' {
				l.end += 2
				l.templateBraces = append(l.templateBraces, true)
				l.token = head
				return
			}
		}
		l.end++
	}
}

func (l *lexer) scanRegExp() {
	l.token = TRegExp
	l.end++
	isInsideClass := false
	for {
		if l.end >= len(l.text) {
			l.fail(l.start, 0, "Unterminated regular expression")
			return
		}
		switch l.text[l.end] {
		case '\\':
			l.end++
		case '[':
			isInsideClass = true
		case ']':
			isInsideClass = false
		case '\n', '\r':
			l.fail(l.start, 0, "Unterminated regular expression")
			return
		case '/':
			if !isInsideClass {
				l.end++
				for l.end < len(l.text) && isIdentifierContinue(l.text[l.end]) {
					l.end++
				}
				return
			}
		}
		l.end++
	}
}

func (l *lexer) scanIdentifier() {
	l.token = TIdentifier
	l.end++
	for l.end < len(l.text) && isIdentifierContinue(l.text[l.end]) {
		l.end++
	}
	l.raw = l.text[l.start:l.end]
}

func (l *lexer) scanNumber() {
	l.token = TNumber
	for l.end < len(l.text) {
		c := l.text[l.end]
		if isIdentifierContinue(c) || c == '.' {
			l.end++
			continue
		}

		// Exponent sign, as in "1e-7"
		if (c == '+' || c == '-') && (l.text[l.end-1] == 'e' || l.text[l.end-1] == 'E') &&
			!(l.end-l.start > 1 && (l.text[l.start+1] == 'x' || l.text[l.start+1] == 'X')) {
			l.end++
			continue
		}
		break
	}
}

var multiCharPunctuation = []string{"...", "?.", "++", "--", "=>"}

func (l *lexer) scanPunctuation() {
	l.token = TPunctuation
	for _, p := range multiCharPunctuation {
		if l.end+len(p) <= len(l.text) && l.text[l.end:l.end+len(p)] == p {
			// "a?.5:b" is a conditional, not optional chaining
			if p == "?." && l.end+2 < len(l.text) && isDigit(l.text[l.end+2]) {
				continue
			}
			l.end += len(p)
			l.raw = p
			return
		}
	}
	l.end++
	l.raw = l.text[l.start:l.end]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Non-ASCII bytes are accepted as identifier characters. Anything else would
// require a full Unicode identifier table, and mis-tokenizing inside an
// identifier can't hide an import.
func isIdentifierStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '$' || c == '\\' || c == '#' || c >= utf8.RuneSelf
}

func isIdentifierContinue(c byte) bool {
	return isIdentifierStart(c) || isDigit(c)
}
