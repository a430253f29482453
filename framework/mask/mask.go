// Package mask blanks out lexical noise in C++ source while preserving byte
// offsets, so regular expressions run over the result can report positions that
// are valid against the original text.
package mask

import "strings"

const filler = ' '

type literalKind uint8

const (
	literalComments literalKind = 1 << iota
	literalRawStrings
	literalQuotes
)

// Comments masks line and block comments. With keepMarkers the opening "//" or
// "/*" and the closing "*/" survive so callers can tell text ends in a comment.
func Comments(text string, keepMarkers bool) string {
	return maskLiterals(text, literalComments, keepMarkers)
}

// RawStringLiterals masks the contents of R"delim(...)delim" literals.
func RawStringLiterals(text string) string {
	return maskLiterals(text, literalRawStrings, false)
}

// Quotes masks the contents of string and character literals.
func Quotes(text string) string {
	return maskLiterals(text, literalQuotes, false)
}

// Parsable masks comments, raw string literals and quoted literals in one pass.
func Parsable(text string) string {
	return maskLiterals(text, literalComments|literalRawStrings|literalQuotes, false)
}

// Parentheses masks everything nested inside balanced (...) groups.
func Parentheses(text string) string {
	return maskBalanced(text, '(', ')')
}

// Braces masks everything nested inside balanced {...} groups.
func Braces(text string) string {
	return maskBalanced(text, '{', '}')
}

// AngleBrackets masks template argument lists. A '<' opens a group only when it
// directly follows an identifier character or the template keyword.
func AngleBrackets(text string) string {
	b := []byte(text)
	for i := 0; i < len(b); i++ {
		if b[i] != '<' || !isAngleOpener(b, i) {
			continue
		}
		end := matchAngle(b, i)
		if end < 0 {
			continue
		}
		fill(b, i+1, end)
		i = end
	}
	return string(b)
}

func maskLiterals(text string, what literalKind, keepMarkers bool) string {
	b := []byte(text)
	n := len(b)
	for i := 0; i < n; {
		c := b[i]
		switch {
		case c == '/' && i+1 < n && b[i+1] == '/':
			end := i + 2
			for end < n && b[end] != '\n' {
				end++
			}
			if what&literalComments != 0 {
				if keepMarkers {
					fill(b, i+2, end)
				} else {
					fill(b, i, end)
				}
			}
			i = end
		case c == '/' && i+1 < n && b[i+1] == '*':
			end, closed := n, false
			if idx := strings.Index(text[i+2:], "*/"); idx >= 0 {
				end, closed = i+2+idx+2, true
			}
			if what&literalComments != 0 {
				switch {
				case !keepMarkers:
					fill(b, i, end)
				case closed:
					fill(b, i+2, end-2)
				default:
					fill(b, i+2, end)
				}
			}
			i = end
		case c == 'R' && i+1 < n && b[i+1] == '"' && isRawPrefix(b, i):
			end, closed, ok := rawStringEnd(text, i)
			if !ok {
				i++
				continue
			}
			if what&literalRawStrings != 0 {
				if closed {
					fill(b, i+2, end-1)
				} else {
					fill(b, i+2, end)
				}
			}
			i = end
		case c == '"' || c == '\'':
			if c == '\'' && isDigitSeparator(b, i) {
				i++
				continue
			}
			end, closed := quoteEnd(b, i, c)
			if what&literalQuotes != 0 {
				if closed {
					fill(b, i+1, end-1)
				} else {
					fill(b, i+1, end)
				}
			}
			i = end
		default:
			i++
		}
	}
	return string(b)
}

// rawStringEnd returns the offset one past the closing quote of the raw string
// starting at start (the 'R'), or len(text) when it is unterminated. ok is
// false when no valid delimiter follows R".
func rawStringEnd(text string, start int) (end int, closed bool, ok bool) {
	open := strings.IndexByte(text[start+2:], '(')
	if open < 0 || open > 16 {
		return 0, false, false
	}
	delim := text[start+2 : start+2+open]
	if strings.ContainsAny(delim, " \t\r\n\\)") {
		return 0, false, false
	}
	body := start + 2 + open + 1
	closing := ")" + delim + "\""
	idx := strings.Index(text[body:], closing)
	if idx < 0 {
		return len(text), false, true
	}
	return body + idx + len(closing), true, true
}

func isRawPrefix(b []byte, i int) bool {
	start := i
	for start > 0 && isIdentByte(b[start-1]) {
		start--
	}
	switch string(b[start : i+1]) {
	case "R", "uR", "UR", "LR", "u8R":
		return true
	}
	return false
}

func quoteEnd(b []byte, start int, quote byte) (int, bool) {
	for i := start + 1; i < len(b); i++ {
		switch b[i] {
		case '\\':
			i++
		case quote:
			return i + 1, true
		}
	}
	return len(b), false
}

// isDigitSeparator reports whether the quote at i sits inside a numeric literal
// such as 1'000'000.
func isDigitSeparator(b []byte, i int) bool {
	if i == 0 || i+1 >= len(b) || !isIdentByte(b[i-1]) || !isIdentByte(b[i+1]) {
		return false
	}
	start := i - 1
	for start > 0 && (isIdentByte(b[start-1]) || b[start-1] == '\'') {
		start--
	}
	return b[start] >= '0' && b[start] <= '9'
}

func maskBalanced(text string, open, close byte) string {
	b := []byte(text)
	depth := 0
	for i, c := range b {
		switch {
		case c == open:
			if depth > 0 {
				b[i] = filler
			}
			depth++
		case c == close && depth > 0:
			depth--
			if depth > 0 {
				b[i] = filler
			}
		case depth > 0 && c != '\n' && c != '\r':
			b[i] = filler
		}
	}
	return string(b)
}

func isAngleOpener(b []byte, i int) bool {
	if i+1 < len(b) && (b[i+1] == '<' || b[i+1] == '=') {
		return false
	}
	if i == 0 || b[i-1] == '<' {
		return false
	}
	if isIdentByte(b[i-1]) {
		return precedingWord(b, i) != "operator"
	}
	j := i - 1
	for j >= 0 && isSpace(b[j]) {
		j--
	}
	return j >= 0 && isIdentByte(b[j]) && precedingWord(b, j+1) == "template"
}

func precedingWord(b []byte, end int) string {
	start := end
	for start > 0 && isIdentByte(b[start-1]) {
		start--
	}
	return string(b[start:end])
}

// matchAngle returns the index of the '>' closing the group opened at start, or
// -1 when the candidate runs into a statement or block boundary first.
func matchAngle(b []byte, start int) int {
	depth, parens := 1, 0
	for k := start + 1; k < len(b); k++ {
		switch b[k] {
		case '(':
			parens++
		case ')':
			if parens == 0 {
				return -1
			}
			parens--
		case ';', '{', '}':
			return -1
		case '<':
			if isAngleOpener(b, k) {
				depth++
			}
		case '>':
			if b[k-1] == '-' || parens > 0 {
				continue
			}
			depth--
			if depth == 0 {
				return k
			}
		}
	}
	return -1
}

func fill(b []byte, from, to int) {
	if to > len(b) {
		to = len(b)
	}
	for i := from; i < to; i++ {
		if b[i] != '\n' && b[i] != '\r' {
			b[i] = filler
		}
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
