package cxx

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lexcodex/cxxrefine/framework/mask"
)

var (
	rePrimitiveTypes   = regexp.MustCompile(`\b(void|bool|char|wchar_t|char8_t|char16_t|char32_t|int|short|long|signed|unsigned|float|double)\b`)
	reStorageSpecifier = regexp.MustCompile(`\b(static|const|constexpr|inline|mutable|volatile|extern|thread_local)\b`)
	reTypedefNoise     = regexp.MustCompile(`\b(typedef|const|volatile)\b`)
	reCompoundTypedef  = regexp.MustCompile(`\b(struct|class|union)\b`)
	reEnumTypedef      = regexp.MustCompile(`\benum\b`)
)

var elaboratedKeywords = map[string]bool{
	"struct":   true,
	"class":    true,
	"union":    true,
	"enum":     true,
	"typename": true,
}

// IsPrimitive reports whether the type of a variable, typedef or alias is a
// built-in arithmetic type (or an enum). With Options.ResolveTypes, type names
// are followed through the document provider; the chain is bounded by
// Options.ResolveDepth and never revisits a definition.
func (a *Analyzer) IsPrimitive(ctx context.Context, sym *Symbol) (bool, error) {
	return a.isPrimitive(ctx, sym, map[string]bool{}, 0)
}

func (a *Analyzer) isPrimitive(ctx context.Context, sym *Symbol, visited map[string]bool, depth int) (bool, error) {
	if depth > a.opts.ResolveDepth {
		a.logger.Printf("[cxx] type resolution for %s stopped at depth %d", sym.Name(), depth)
		return false, nil
	}
	switch {
	case sym.IsVariable():
		leading := blankMatches(reStorageSpecifier, sym.ParsableLeadingText())
		return a.primitiveOrResolve(ctx, sym, leading, sym.start, visited, depth)
	case sym.IsTypedef():
		text := sym.ParsableText()
		if reCompoundTypedef.MatchString(text) || strings.Contains(mask.AngleBrackets(text), "<") {
			return false, nil
		}
		if reEnumTypedef.MatchString(text) {
			return true, nil
		}
		text = blankMatches(reTypedefNoise, text)
		return a.primitiveOrResolve(ctx, sym, text, sym.start, visited, depth)
	case sym.IsTypeAlias():
		text := sym.ParsableText()
		eq := strings.IndexByte(text, '=')
		if eq < 0 {
			return false, nil
		}
		rhs := blankMatches(reTypedefNoise, text[eq+1:])
		return a.primitiveOrResolve(ctx, sym, rhs, sym.start+eq+1, visited, depth)
	}
	return false, nil
}

// primitiveOrResolve tests text (which starts at document offset base) and,
// if allowed, follows its first unqualified type name.
func (a *Analyzer) primitiveOrResolve(ctx context.Context, sym *Symbol, text string, base int, visited map[string]bool, depth int) (bool, error) {
	if matchesPrimitiveType(text) {
		return true, nil
	}
	if !a.opts.ResolveTypes {
		return false, nil
	}
	ident, ok := firstTypeName(text)
	if !ok {
		return false, nil
	}
	return a.resolveType(ctx, sym, base+ident.Start, visited, depth)
}

func (a *Analyzer) resolveType(ctx context.Context, sym *Symbol, offset int, visited map[string]bool, depth int) (bool, error) {
	loc, err := a.findDefinition(ctx, sym.doc, sym.doc.PositionAt(offset))
	if err != nil || loc == nil {
		return false, err
	}
	key := fmt.Sprintf("%s:%d:%d", loc.URI, loc.Range.Start.Line, loc.Range.Start.Character)
	if visited[key] {
		a.logger.Printf("[cxx] type resolution cycle at %s", key)
		return false, nil
	}
	visited[key] = true
	doc, err := a.open(ctx, sym.doc, loc.URI)
	if err != nil || doc == nil {
		return false, err
	}
	typeSym, err := a.GetSymbol(ctx, doc, loc.Range.Start)
	if err != nil || typeSym == nil {
		return false, err
	}
	switch {
	case typeSym.IsEnum():
		return true, nil
	case typeSym.Kind().MightBeTypeAlias():
		return a.isPrimitive(ctx, typeSym, visited, depth+1)
	}
	return false, nil
}

// matchesPrimitiveType ignores primitive names that only appear inside
// template arguments.
func matchesPrimitiveType(text string) bool {
	return rePrimitiveTypes.MatchString(mask.AngleBrackets(text))
}

// firstTypeName finds the first identifier that is not a scope qualifier or an
// elaborated type keyword.
func firstTypeName(text string) (Span, bool) {
	masked := mask.AngleBrackets(text)
	for _, loc := range reIdentifier.FindAllStringIndex(masked, -1) {
		if loc[0] > 0 && isIdentByte(masked[loc[0]-1]) {
			continue
		}
		if elaboratedKeywords[masked[loc[0]:loc[1]]] {
			continue
		}
		rest := strings.TrimLeft(masked[loc[1]:], " \t\r\n")
		if strings.HasPrefix(rest, "::") {
			continue
		}
		return Span{Start: loc[0], End: loc[1]}, true
	}
	return Span{}, false
}

func blankMatches(re *regexp.Regexp, text string) string {
	return re.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat(" ", len(m))
	})
}
