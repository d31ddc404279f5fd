package formula

import (
	"strconv"
	"unicode"

	"github.com/teranos/reflow/errors"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokIdent
	tokOp     // + - * / %
	tokLParen // (
	tokRParen // )
	tokComma
	tokDot
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int // byte offset in source, for error messages
}

// lex tokenizes formula source text. Numbers are decimal with an optional
// fraction and exponent; strings are double-quoted without escapes;
// identifiers are [A-Za-z_][A-Za-z0-9_]*.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9':
			start := i
			for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.') {
				// A dot followed by a non-digit is path navigation, not a fraction
				if src[i] == '.' && (i+1 >= len(src) || src[i+1] < '0' || src[i+1] > '9') {
					break
				}
				i++
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && src[j] >= '0' && src[j] <= '9' {
					for j < len(src) && src[j] >= '0' && src[j] <= '9' {
						j++
					}
					i = j
				}
			}
			text := src[start:i]
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, errors.NewParse("malformed number %q at offset %d", text, start)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: num, pos: start})
		case c == '"':
			start := i
			i++
			for i < len(src) && src[i] != '"' {
				i++
			}
			if i >= len(src) {
				return nil, errors.NewParse("unterminated string at offset %d", start)
			}
			toks = append(toks, token{kind: tokString, text: src[start+1 : i], pos: start})
			i++
		case isIdentStart(rune(c)):
			start := i
			for i < len(src) && isIdentPart(rune(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '%':
			toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '.':
			toks = append(toks, token{kind: tokDot, text: ".", pos: i})
			i++
		default:
			return nil, errors.NewParse("unexpected character %q at offset %d", string(c), i)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
