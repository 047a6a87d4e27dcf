package formula

import (
	"fmt"
	"strconv"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokPipe
	tokSuper // superscript exponent, value in num
)

type token struct {
	kind tokenKind
	num  float64
	text string
	pos  int
}

// superscripts maps the superscript digits accepted as postfix powers.
var superscripts = map[rune]float64{
	'²': 2,
	'³': 3,
	'⁴': 4,
}

// lex tokenizes a formula source. A leading "return" keyword and trailing
// semicolons are accepted and dropped so JS-flavored sources compile
// unchanged.
func lex(src string) ([]token, error) {
	runes := []rune(src)
	var toks []token
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == ';':
			i++
		case r >= '0' && r <= '9' || r == '.' && i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9':
			start := i
			for i < len(runes) && (runes[i] >= '0' && runes[i] <= '9' || runes[i] == '.') {
				i++
			}
			if i < len(runes) && (runes[i] == 'e' || runes[i] == 'E') {
				j := i + 1
				if j < len(runes) && (runes[j] == '+' || runes[j] == '-') {
					j++
				}
				if j < len(runes) && runes[j] >= '0' && runes[j] <= '9' {
					i = j
					for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
						i++
					}
				}
			}
			text := string(runes[start:i])
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q at offset %d", text, start)
			}
			toks = append(toks, token{kind: tokNumber, num: n, pos: start})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				// Superscript runes are letters to unicode but are their own
				// token, not part of the identifier.
				if _, sup := superscripts[runes[i]]; sup {
					break
				}
				i++
			}
			text := string(runes[start:i])
			if text == "return" {
				continue
			}
			toks = append(toks, token{kind: tokIdent, text: text, pos: start})
		default:
			if n, ok := superscripts[r]; ok {
				toks = append(toks, token{kind: tokSuper, num: n, pos: i})
				i++
				continue
			}
			var k tokenKind
			switch r {
			case '(':
				k = tokLParen
			case ')':
				k = tokRParen
			case ',':
				k = tokComma
			case '.':
				k = tokDot
			case '+':
				k = tokPlus
			case '-':
				k = tokMinus
			case '*':
				k = tokStar
			case '/':
				k = tokSlash
			case '^':
				k = tokCaret
			case '|':
				k = tokPipe
			default:
				return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
			}
			toks = append(toks, token{kind: k, pos: i})
			i++
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(runes)})
	return toks, nil
}
