package solidity

import "strings"

type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokNumber
	TokString
	TokPunct
)

// Token is a lexical token with the 1-based line it starts on.
type Token struct {
	Kind TokenKind
	Text string
	Line int
}

// Longest operators first.
var operators = []string{
	">>>=", "<<=", ">>=", "**=", ">>>",
	"==", "!=", "<=", ">=", "&&", "||", "++", "--", "+=", "-=", "*=", "/=",
	"%=", "&=", "|=", "^=", "<<", ">>", "**", "=>", "->",
}

// Tokenize splits src into tokens, dropping whitespace and comments. It
// never fails: unknown bytes become single-character punctuation.
func Tokenize(src string) []Token {
	var toks []Token
	line := 1
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				end = len(src) - i - 2
			} else {
				end += 2
			}
			line += strings.Count(src[i:i+2+end], "\n")
			i += 2 + end
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, Token{Kind: TokIdent, Text: src[i:j], Line: line})
			i = j
		case isDigit(c):
			j := i + 1
			for j < len(src) && (isIdentPart(src[j]) || src[j] == '.') {
				j++
			}
			toks = append(toks, Token{Kind: TokNumber, Text: src[i:j], Line: line})
			i = j
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(src) && src[j] != c && src[j] != '\n' {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			if j < len(src) && src[j] == c {
				j++
			}
			j = min(j, len(src))
			toks = append(toks, Token{Kind: TokString, Text: src[i:j], Line: line})
			i = j
		default:
			op := string(c)
			for _, o := range operators {
				if strings.HasPrefix(src[i:], o) {
					op = o
					break
				}
			}
			toks = append(toks, Token{Kind: TokPunct, Text: op, Line: line})
			i += len(op)
		}
	}
	return append(toks, Token{Kind: TokEOF, Line: line})
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// unquote strips the quotes of a string literal token.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
