package cxx

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/lexcodex/cxxrefine/framework/mask"
)

var (
	reTemplateHeaderSuffix  = regexp.MustCompile(`\btemplate\s*<[^<>]*>$`)
	reDeclarationTerminator = regexp.MustCompile(`\s*\{|\s*;\s*$`)
)

// TrueStart is the start of the symbol including a template header the coarse
// range left out.
func (s *Symbol) TrueStart() int {
	return s.trueStart.get(func() int {
		before := mask.AngleBrackets(mask.Parsable(s.doc.Text()[:s.start]))
		trimmed := strings.TrimRightFunc(before, unicode.IsSpace)
		if !strings.HasSuffix(trimmed, ">") {
			return s.start
		}
		loc := reTemplateHeaderSuffix.FindStringIndex(trimmed)
		if loc == nil {
			return s.start
		}
		return loc[0]
	})
}

// LeadingCommentStart is the start of a comment directly above the symbol, or
// TrueStart when there is none.
func (s *Symbol) LeadingCommentStart() int {
	return s.leadingComment.get(func() int {
		ts := s.TrueStart()
		masked := mask.Comments(s.doc.Text()[:ts], true)
		trimmed := strings.TrimRightFunc(masked, unicode.IsSpace)
		if strings.Count(masked[len(trimmed):], "\n") > 1 {
			return ts
		}
		if strings.HasSuffix(trimmed, "*/") {
			open := strings.LastIndex(trimmed, "/*")
			if open < 0 || !startsLine(trimmed, open) {
				return ts
			}
			return open
		}
		first := -1
		for pos := len(trimmed); pos > 0; {
			lineStart := strings.LastIndexByte(trimmed[:pos], '\n') + 1
			line := trimmed[lineStart:pos]
			body := strings.TrimLeftFunc(line, unicode.IsSpace)
			if !strings.HasPrefix(body, "//") {
				break
			}
			first = lineStart + len(line) - len(body)
			pos = lineStart - 1
		}
		if first < 0 {
			return ts
		}
		return first
	})
}

func (s *Symbol) HasLeadingComment() bool {
	return s.LeadingCommentStart() < s.TrueStart()
}

// LeadingComment is the raw text of the leading comment, including the line
// break and indentation that separate it from the declaration.
func (s *Symbol) LeadingComment() string {
	return s.doc.Text()[s.LeadingCommentStart():s.TrueStart()]
}

// DeclarationEnd is where the signature stops: before '{', before the final
// ';', or before a constructor's member initializer list.
func (s *Symbol) DeclarationEnd() int {
	return s.declarationEnd.get(func() int {
		masked := mask.Parentheses(s.ParsableText())
		nameEnd := s.selEnd - s.start
		loc := reDeclarationTerminator.FindStringIndex(masked[nameEnd:])
		if loc == nil {
			return s.end
		}
		end := nameEnd + loc[0]
		if s.IsConstructor() {
			if colon := initializerColon(masked[nameEnd:end]); colon >= 0 {
				end = nameEnd + colon
			}
		}
		return s.start + end
	})
}

// BodyStart is one past the last top-level '{', or the end of the range.
func (s *Symbol) BodyStart() int {
	return s.bodyStart.get(func() int {
		masked := mask.Braces(mask.Parentheses(s.ParsableText()))
		idx := strings.LastIndexByte(masked, '{')
		if idx < 0 {
			return s.end
		}
		return s.start + idx + 1
	})
}

// BodyEnd is the offset of the last top-level '}', or the end of the range.
func (s *Symbol) BodyEnd() int {
	return s.bodyEnd.get(func() int {
		masked := mask.Braces(mask.Parentheses(s.ParsableText()))
		idx := strings.LastIndexByte(masked, '}')
		if idx < 0 || s.start+idx < s.BodyStart() {
			return s.end
		}
		return s.start + idx
	})
}

// BodySpan is the text between the braces of a class, namespace or function.
func (s *Symbol) BodySpan() Span {
	return Span{Start: s.BodyStart(), End: s.BodyEnd()}
}

// ScopeStringStart is where a qualifier chain such as "A::B<T>::" in front of
// the identifier begins; the identifier start when there is none.
func (s *Symbol) ScopeStringStart() int {
	leading := mask.AngleBrackets(s.ParsableLeadingText())
	pos := len(strings.TrimRightFunc(leading, unicode.IsSpace))
	start := -1
	for {
		identStart, _, ok := qualifierBefore(leading, pos)
		if !ok {
			break
		}
		start = identStart
		pos = skipSpaceBack(leading, identStart)
	}
	if start < 0 {
		return s.selStart
	}
	return s.start + start
}

// qualifierBefore finds the identifier of a "Name::" or "Name<...>::" that ends
// at pos in angle-masked text.
func qualifierBefore(text string, pos int) (start, end int, ok bool) {
	if pos < 2 || text[pos-2:pos] != "::" {
		return 0, 0, false
	}
	pos = skipSpaceBack(text, pos-2)
	if pos > 0 && text[pos-1] == '>' {
		open := strings.LastIndexByte(text[:pos-1], '<')
		if open < 0 {
			return 0, 0, false
		}
		pos = skipSpaceBack(text, open)
	}
	start = pos
	for start > 0 && isIdentByte(text[start-1]) {
		start--
	}
	if start == pos || (text[start] >= '0' && text[start] <= '9') {
		return 0, 0, false
	}
	return start, pos, true
}

// initializerColon returns the start of the whitespace before the first ':'
// that is not part of '::', or -1.
func initializerColon(text string) int {
	for i := 0; i < len(text); i++ {
		if text[i] != ':' {
			continue
		}
		if i+1 < len(text) && text[i+1] == ':' {
			i++
			continue
		}
		return skipSpaceBack(text, i)
	}
	return -1
}

func startsLine(text string, offset int) bool {
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	return strings.TrimSpace(text[lineStart:offset]) == ""
}

func skipSpaceBack(text string, pos int) int {
	for pos > 0 && isSpaceByte(text[pos-1]) {
		pos--
	}
	return pos
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
