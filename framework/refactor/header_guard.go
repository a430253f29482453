package refactor

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lexcodex/cxxrefine/framework/config"
	"github.com/lexcodex/cxxrefine/framework/cxx"
	"github.com/lexcodex/cxxrefine/framework/mask"
)

var (
	ErrNotHeader         = errors.New("not a header file")
	ErrHeaderGuardExists = errors.New("a header guard already exists")
)

var (
	reNotIdentifier = regexp.MustCompile(`[^\w\d_]`)
	rePragmaOnce    = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*pragma[ \t]+once\b`)
	reIfndef        = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*ifndef[ \t]+(\w+)`)
	reDefine        = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*define[ \t]+(\w+)`)
)

// HeaderGuardDefine expands format for the header at path. root is the
// workspace root behind ${PROJECT_NAME} and ${PROJECT_REL_PATH}. Characters
// that cannot appear in an identifier become '_'.
func HeaderGuardDefine(format, path, root string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.ToUpper(strings.TrimSuffix(base, ext))
	ext = strings.ToUpper(strings.TrimPrefix(ext, "."))
	var project, rel string
	if root != "" {
		project = strings.ToUpper(filepath.Base(root))
		if r, err := filepath.Rel(root, filepath.Dir(path)); err == nil && r != "." {
			rel = strings.ToUpper(filepath.ToSlash(r))
		}
	}
	define := strings.NewReplacer(
		"${FILE_NAME_EXT}", name+"_"+ext,
		"${FILE_NAME}", name,
		"${EXT}", ext,
		"${DIR}", strings.ToUpper(filepath.Base(filepath.Dir(path))),
		"${PROJECT_NAME}", project,
		"${PROJECT_REL_PATH}", rel,
	).Replace(format)
	define = reNotIdentifier.ReplaceAllString(define, "_")
	if define != "" && define[0] >= '0' && define[0] <= '9' {
		define = "INC_" + define
	}
	return define
}

// HasHeaderGuard reports whether text has #pragma once or an
// #ifndef/#define pair naming the same macro.
func HasHeaderGuard(text string) bool {
	masked := mask.Parsable(text)
	if rePragmaOnce.MatchString(masked) {
		return true
	}
	loc := reIfndef.FindStringSubmatchIndex(masked)
	if loc == nil {
		return false
	}
	define := reDefine.FindStringSubmatch(masked[loc[1]:])
	return define != nil && define[1] == masked[loc[2]:loc[3]]
}

// AddHeaderGuard returns the edits that guard the header doc: the opening
// lines go below a leading file comment, the #endif at the end. root is the
// workspace root.
func AddHeaderGuard(doc cxx.Document, cfg config.HeaderGuardConfig, root string) ([]TextEdit, error) {
	if !doc.IsHeader() {
		return nil, ErrNotHeader
	}
	text := doc.Text()
	if HasHeaderGuard(text) {
		return nil, ErrHeaderGuardExists
	}
	eol := doc.EOL()

	var lines []string
	var footer string
	if cfg.Style == config.GuardPragmaOnce || cfg.Style == config.GuardBoth {
		lines = append(lines, "#pragma once")
	}
	if cfg.Style != config.GuardPragmaOnce {
		format := cfg.DefineFormat
		if format == "" {
			format = config.DefaultHeaderGuardFormat
		}
		define := HeaderGuardDefine(format, cxx.URIToPath(doc.URI()), root)
		lines = append(lines, "#ifndef "+define, "#define "+define)
		footer = "#endif // " + define + eol
	}
	guard := strings.Join(lines, eol)

	var edits []TextEdit
	if end := headerCommentEnd(text); end > 0 {
		edits = append(edits, insertAt(doc, end, eol+eol+guard))
	} else {
		edits = append(edits, insertAt(doc, 0, guard+eol+eol))
	}
	if footer != "" {
		switch {
		case strings.TrimSpace(text) == "":
		case strings.HasSuffix(text, "\n"):
			footer = eol + footer
		default:
			footer = eol + eol + footer
		}
		edits = append(edits, insertAt(doc, len(text), footer))
	}
	return edits, nil
}

// headerCommentEnd is the end of the comments that open text, or 0.
func headerCommentEnd(text string) int {
	end := 0
	for i := 0; i < len(text); {
		switch {
		case text[i] == ' ' || text[i] == '\t' || text[i] == '\r' || text[i] == '\n':
			i++
		case strings.HasPrefix(text[i:], "//"):
			nl := strings.IndexByte(text[i:], '\n')
			if nl < 0 {
				return len(text)
			}
			end = i + nl
			if end > 0 && text[end-1] == '\r' {
				end--
			}
			i += nl
		case strings.HasPrefix(text[i:], "/*"):
			closing := strings.Index(text[i+2:], "*/")
			if closing < 0 {
				return len(text)
			}
			end = i + 2 + closing + 2
			i = end
		default:
			return end
		}
	}
	return end
}
