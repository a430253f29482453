package refactor

import (
	"errors"
	"regexp"
	"strings"

	"github.com/lexcodex/cxxrefine/framework/cxx"
	"github.com/lexcodex/cxxrefine/framework/mask"
)

var (
	ErrInvalidInclude = errors.New("not a valid include statement")
	ErrIncludeExists  = errors.New("the file is already included")
)

var (
	reIncludeStatement = regexp.MustCompile(`^(?:#\s*include\s*)?(<[^<>]+>|"[^"]+")$`)
	reIncludeLine      = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*include[ \t]*([<"])`)
	reGuardLine        = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*(?:pragma[ \t]+once|define[ \t]+\w+)[ \t]*\r?$`)
)

// AddInclude returns the edit that adds statement (`<vector>`,
// `"widget.h"`, with or without the #include directive) to doc. System
// includes go after the last system include, project includes after the last
// project include. Without includes of the same kind the new line goes next
// to the other kind, then below the header guard or the file comment.
func AddInclude(doc cxx.Document, statement string) ([]TextEdit, error) {
	m := reIncludeStatement.FindStringSubmatch(strings.TrimSpace(statement))
	if m == nil {
		return nil, ErrInvalidInclude
	}
	target := m[1]
	line := "#include " + target
	system := target[0] == '<'

	text := doc.Text()
	masked := mask.Comments(text, false)
	eol := doc.EOL()

	var lastSystem, lastProject, firstProject = -1, -1, -1
	for _, loc := range reIncludeLine.FindAllStringSubmatchIndex(masked, -1) {
		start := loc[0]
		end := lineEnd(text, start)
		if includeTarget(masked[start:end]) == target {
			return nil, ErrIncludeExists
		}
		if text[loc[2]] == '<' {
			lastSystem = start
		} else {
			lastProject = start
			if firstProject < 0 {
				firstProject = start
			}
		}
	}

	after := func(start int) []TextEdit {
		end := lineEnd(text, start)
		if end < len(text) {
			return []TextEdit{insertAt(doc, nextLine(text, end), line+eol)}
		}
		return []TextEdit{insertAt(doc, end, eol+line+eol)}
	}
	switch {
	case system && lastSystem >= 0:
		return after(lastSystem), nil
	case system && firstProject >= 0:
		return []TextEdit{insertAt(doc, firstProject, line+eol)}, nil
	case !system && lastProject >= 0:
		return after(lastProject), nil
	case !system && lastSystem >= 0:
		return after(lastSystem), nil
	}

	if loc := reGuardLine.FindStringIndex(masked); loc != nil {
		end := lineEnd(text, loc[0])
		if end < len(text) {
			return []TextEdit{insertAt(doc, nextLine(text, end), eol+line+eol)}, nil
		}
		return []TextEdit{insertAt(doc, end, eol+eol+line+eol)}, nil
	}
	if end := headerCommentEnd(text); end > 0 {
		return []TextEdit{insertAt(doc, end, eol+eol+line+eol)}, nil
	}
	if strings.TrimSpace(text) == "" {
		return []TextEdit{insertAt(doc, 0, line+eol)}, nil
	}
	return []TextEdit{insertAt(doc, 0, line+eol+eol)}, nil
}

func includeTarget(line string) string {
	m := reIncludeStatement.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return ""
	}
	return m[1]
}

// lineEnd is the offset of the line break (or '\r' before it) ending the
// line that contains offset.
func lineEnd(text string, offset int) int {
	nl := strings.IndexByte(text[offset:], '\n')
	if nl < 0 {
		return len(text)
	}
	end := offset + nl
	if end > offset && text[end-1] == '\r' {
		end--
	}
	return end
}

// nextLine is the start of the line after the line break at end.
func nextLine(text string, end int) int {
	if end < len(text) && text[end] == '\r' {
		end++
	}
	return end + 1
}
