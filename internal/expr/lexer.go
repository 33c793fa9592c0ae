package expr

import (
	"strconv"
	"strings"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokNumber
	tokIdent
	tokString
	tokPunct
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  int
}

// lex splits src into tokens. Only the characters the grammar can use are
// accepted; everything else is a syntax error.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				i++
			}
			if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
				j := i + 1
				if j < len(src) && (src[j] == '+' || src[j] == '-') {
					j++
				}
				if j < len(src) && isDigit(src[j]) {
					i = j
					for i < len(src) && isDigit(src[i]) {
						i++
					}
				}
			}
			text := src[start:i]
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, &SyntaxError{Expr: src, Pos: start, Msg: "bad number " + strconv.Quote(text)}
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: n, pos: start})

		case isIdentStart(c):
			start := i
			for i < len(src) && (isIdentStart(src[i]) || isDigit(src[i])) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})

		case c == '\'' || c == '"':
			start := i
			end := strings.IndexByte(src[i+1:], c)
			if end < 0 {
				return nil, &SyntaxError{Expr: src, Pos: start, Msg: "unterminated string"}
			}
			text := src[i+1 : i+1+end]
			if strings.ContainsAny(text, "\\\n") {
				return nil, &SyntaxError{Expr: src, Pos: start, Msg: "escapes are not supported in names"}
			}
			toks = append(toks, token{kind: tokString, text: text, pos: start})
			i += end + 2

		case strings.IndexByte("+-*/()[],.", c) >= 0:
			toks = append(toks, token{kind: tokPunct, text: string(c), pos: i})
			i++

		default:
			return nil, &SyntaxError{Expr: src, Pos: i, Msg: "unexpected character " + strconv.QuoteRune(rune(c))}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
