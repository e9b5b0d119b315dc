package scanner

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// One import in a code unit. All offsets are byte offsets into the scanned
// text.
type ImportSite struct {
	// The specifier, including its quotes. For a dynamic import this is the
	// whole first argument, which may be an arbitrary expression.
	Start int32
	End   int32

	// The whole "import(...)" call, or the whole statement including a
	// trailing semicolon
	StatementStart int32
	StatementEnd   int32

	IsDynamic           bool
	HasImportAttributes bool

	// Only set when the specifier is a string literal or a template literal
	// without substitutions
	Specifier    string
	HasSpecifier bool
}

type ScanError struct {
	Offset int32
	Len    int32
	Text   string
}

type Scanner interface {
	Scan(text string) ([]ImportSite, *ScanError)
}

// The default scanner. It is stateless and safe for concurrent use.
type Lexer struct{}

func (Lexer) Scan(text string) ([]ImportSite, *ScanError) {
	p := parser{lexer: newLexer(text)}
	p.parse()
	if p.err != nil {
		return nil, p.err
	}
	return p.sites, nil
}

type parser struct {
	*lexer
	sites []ImportSite
}

func (p *parser) parse() {
	for p.token != TEndOfFile {
		if p.token == TIdentifier && !p.prevIsDot {
			switch p.raw {
			case "import":
				p.parseImport()
				continue
			case "export":
				p.parseExport()
				continue
			}
		}
		p.next()
	}
}

// Each parse function leaves the lexer on the first token that isn't part of
// what it recognized, so that token is still looked at by the main loop.
func (p *parser) parseImport() {
	statementStart := p.start
	p.next()

	switch p.token {
	case TPunctuation:
		switch p.raw {
		case "(":
			p.parseDynamicImport(statementStart)
		case "{", "*":
			p.parseFromClause(statementStart)
		}

	case TString:
		// import "./side-effect.js"
		p.finishStaticImport(statementStart)

	case TIdentifier:
		p.parseFromClause(statementStart)
	}
}

func (p *parser) parseExport() {
	statementStart := p.start
	p.next()

	if p.token == TPunctuation && (p.raw == "{" || p.raw == "*") {
		p.parseFromClause(statementStart)
	}
}

// Skips over the clause of an import or export statement up to a "from"
// followed by a string. Gives up on anything that can't be part of the clause,
// such as "export { a };" without a source.
func (p *parser) parseFromClause(statementStart int) {
	depth := 0
	prevWasFrom := false

	for {
		switch p.token {
		case TEndOfFile, TString, TNumber, TRegExp, TNoSubstitutionTemplate, TTemplateHead:
			if p.token == TString && prevWasFrom {
				p.finishStaticImport(statementStart)
			}
			return

		case TIdentifier:
			if depth == 0 && (p.raw == "import" || p.raw == "export") {
				return
			}
			prevWasFrom = depth == 0 && p.raw == "from"
			p.next()

		case TPunctuation:
			switch p.raw {
			case "{":
				depth++
			case "}":
				depth--
				if depth < 0 {
					return
				}
			case ",", "*":
			default:
				// "import x = require(...)" and friends
				return
			}
			prevWasFrom = false
			p.next()

		default:
			return
		}
	}
}

// The lexer is on the specifier string
func (p *parser) finishStaticImport(statementStart int) {
	site := ImportSite{
		Start:          int32(p.start),
		End:            int32(p.end),
		StatementStart: int32(statementStart),
	}
	site.Specifier, site.HasSpecifier = decodeStringLiteral(p.text[p.start+1 : p.end-1])
	p.next()

	// import json from "./data.json" with { type: "json" }
	if p.token == TIdentifier && (p.raw == "with" || p.raw == "assert") {
		p.next()
		if p.token == TPunctuation && p.raw == "{" {
			site.HasImportAttributes = true
			depth := 0
			for p.token != TEndOfFile {
				if p.token == TPunctuation {
					if p.raw == "{" {
						depth++
					} else if p.raw == "}" {
						depth--
						if depth == 0 {
							p.next()
							break
						}
					}
				}
				p.next()
			}
		}
	}

	if p.token == TPunctuation && p.raw == ";" {
		p.next()
	}
	site.StatementEnd = int32(p.prevEnd)
	p.sites = append(p.sites, site)
}

// The lexer is on the "(" of "import(". A class method named "import" also
// looks like this, but it has no argument and is ignored.
func (p *parser) parseDynamicImport(statementStart int) {
	p.next()
	depth := 0
	argStart := -1
	argEnd := -1
	argTokens := 0
	var firstToken T
	firstTokenStart := 0
	firstTokenEnd := 0
	inFirstArg := true
	hasAttributes := false

	for {
		if p.token == TEndOfFile {
			if p.err == nil {
				p.fail(statementStart, len("import"), "Expected \")\" to end dynamic import")
			}
			return
		}

		if p.token == TPunctuation {
			switch p.raw {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				if depth == 0 && p.raw == ")" {
					if inFirstArg && argTokens > 0 {
						argEnd = p.prevEnd
					}
					statementEnd := p.end
					p.next()
					if argTokens > 0 {
						site := ImportSite{
							Start:               int32(argStart),
							End:                 int32(argEnd),
							StatementStart:      int32(statementStart),
							StatementEnd:        int32(statementEnd),
							IsDynamic:           true,
							HasImportAttributes: hasAttributes,
						}
						if argTokens == 1 {
							raw := p.text[firstTokenStart+1 : firstTokenEnd-1]
							if firstToken == TString || firstToken == TNoSubstitutionTemplate {
								site.Specifier, site.HasSpecifier = decodeStringLiteral(raw)
							}
						}
						p.sites = append(p.sites, site)
					}
					return
				}
				depth--
			case ",":
				if depth == 0 {
					if inFirstArg {
						argEnd = p.prevEnd
						inFirstArg = false
					}
					p.next()
					if !(p.token == TPunctuation && p.raw == ")") {
						hasAttributes = true
					}
					continue
				}
			}
		}

		if inFirstArg {
			if argTokens == 0 {
				argStart = p.start
				firstToken = p.token
				firstTokenStart = p.start
				firstTokenEnd = p.end
			}
			argTokens++
		}
		p.next()
	}
}

// Returns the value of the contents of a string literal without its quotes.
// Returns false for escapes that can't be part of a module path.
func decodeStringLiteral(raw string) (string, bool) {
	if strings.IndexByte(raw, '\\') == -1 {
		return raw, true
	}

	sb := strings.Builder{}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(raw) {
			return "", false
		}
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case '\r':
			// Line continuation
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		case '\n':
		case 'x':
			if i+2 >= len(raw) {
				return "", false
			}
			value, err := strconv.ParseUint(raw[i+1:i+3], 16, 8)
			if err != nil {
				return "", false
			}
			sb.WriteRune(rune(value))
			i += 2
		case 'u':
			var hex string
			if i+1 < len(raw) && raw[i+1] == '{' {
				end := strings.IndexByte(raw[i:], '}')
				if end == -1 {
					return "", false
				}
				hex = raw[i+2 : i+end]
				i += end
			} else {
				if i+4 >= len(raw) {
					return "", false
				}
				hex = raw[i+1 : i+5]
				i += 4
			}
			value, err := strconv.ParseUint(hex, 16, 32)
			if err != nil || value > utf8.MaxRune {
				return "", false
			}
			sb.WriteRune(rune(value))
		default:
			sb.WriteByte(raw[i])
		}
	}
	return sb.String(), true
}
