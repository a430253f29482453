package cxx

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/lexcodex/cxxrefine/framework/mask"
)

var (
	reOutOfClassSpecifiers = regexp.MustCompile(`\b(virtual|static|explicit|friend)\b\s*`)
	reInlineSpecifier      = regexp.MustCompile(`\binline\b\s*`)
	reOverrideFinal        = regexp.MustCompile(`\s*\b(override|final)\b`)
)

// FormatDeclaration rewrites the signature of sym for insertion at pos in
// target. scopeString overrides the computed qualification when non-nil.
// checkForInline adds "inline" where a definition in a header needs it and
// keeps an existing one. The result is "" when the parameter list cannot be
// located.
func (a *Analyzer) FormatDeclaration(ctx context.Context, sym *Symbol, target Document, pos Position, scopeString *string, checkForInline bool) (string, error) {
	var scope string
	if scopeString != nil {
		scope = *scopeString
	} else {
		computed, err := a.ScopeString(ctx, sym, target, pos)
		if err != nil {
			return "", err
		}
		scope = computed
	}

	text := sym.doc.Text()
	trueStart := sym.TrueStart()
	declaration := strings.TrimSuffix(text[trueStart:sym.DeclarationEnd()], ";")
	masked := mask.Parentheses(mask.Parsable(declaration))
	nameEnd := sym.selEnd - trueStart
	if nameEnd > len(masked) {
		return "", nil
	}
	openParen := strings.IndexByte(masked[nameEnd:], '(')
	closeParen := strings.IndexByte(masked[nameEnd:], ')')
	if openParen < 0 || closeParen < openParen {
		return "", nil
	}
	openParen += nameEnd
	closeParen += nameEnd
	params := StripDefaultValues(declaration[openParen+1 : closeParen])

	var template string
	if sym.parent != nil && sym.parent.IsTemplate() {
		template = sym.parent.TemplateStatement(true) + target.EOL()
	}

	insideParent := sym.parent != nil &&
		sym.doc.URI() == target.URI() &&
		sym.parent.Span().ContainsExclusive(target.OffsetAt(pos))
	var inline string
	if checkForInline && !insideParent && target.IsHeader() && !sym.IsInline() && !sym.IsConstexpr() {
		inline = "inline "
	}

	scopeStart := sym.ScopeStringStart()
	leading := text[trueStart:scopeStart]
	oldScope := text[scopeStart:sym.selStart]
	leadingIndent := sym.doc.LineAt(sym.doc.PositionAt(sym.selStart).Line).FirstNonWhitespace
	oldAlignment := leadingIndent + len(strings.TrimLeftFunc(lastLine(leading), unicode.IsSpace)) + len(oldScope)

	leading = removeMatches(reOutOfClassSpecifiers, leading)
	if !target.IsHeader() || !checkForInline {
		leading = removeMatches(reInlineSpecifier, leading)
	}
	leading = dedent(leading, sym.Indentation())

	definition := sym.Name() + "(" + params + ")" + declaration[closeParen+1:]
	if oldAlignment > 0 {
		definition = realign(definition, oldAlignment, len(lastLine(leading))+len(inline)+len(scope))
	}
	return removeMatches(reOverrideFinal, template+inline+leading+scope+definition), nil
}

// GetDefinitionForTargetPosition formats the definition sym (signature and
// body) for insertion at pos in target. declaration, when known, supplies the
// scopes the definition must be qualified with.
func (a *Analyzer) GetDefinitionForTargetPosition(ctx context.Context, sym *Symbol, target Document, pos Position, declaration *Symbol, checkForInline bool) (string, error) {
	var scopeString *string
	if declaration != nil {
		scope, err := a.ScopeString(ctx, declaration, target, pos)
		if err != nil {
			return "", err
		}
		scopeString = &scope
	}
	signature, err := a.FormatDeclaration(ctx, sym, target, pos, scopeString, checkForInline)
	if err != nil || signature == "" {
		return "", err
	}
	indent := sym.Indentation()
	body := dedent(sym.doc.Text()[sym.DeclarationEnd():sym.end], indent)
	var comment string
	if a.opts.AlwaysMoveComments {
		comment = dedent(sym.LeadingComment(), indent)
	}
	return comment + signature + body, nil
}

// GetDeclarationForTargetPosition formats sym as a declaration for pos in target.
func (a *Analyzer) GetDeclarationForTargetPosition(ctx context.Context, sym *Symbol, target Document, pos Position) (string, error) {
	declaration, err := a.FormatDeclaration(ctx, sym, target, pos, nil, false)
	if err != nil || declaration == "" {
		return "", err
	}
	return declaration + ";", nil
}

// NewFunctionDefinition returns the signature of a definition for the function
// declaration sym, or "" when sym is not a function declaration.
func (a *Analyzer) NewFunctionDefinition(ctx context.Context, sym *Symbol, target Document, pos Position) (string, error) {
	if !sym.IsFunctionDeclaration() {
		return "", nil
	}
	return a.FormatDeclaration(ctx, sym, target, pos, nil, true)
}

// NewFunctionDeclaration turns a function definition back into a declaration.
func (s *Symbol) NewFunctionDeclaration() string {
	if !s.IsFunctionDefinition() {
		return ""
	}
	return strings.TrimRightFunc(s.doc.Text()[s.TrueStart():s.DeclarationEnd()], unicode.IsSpace) + ";"
}

// CombineDefinition merges this declaration with the body of def, indented to
// this declaration's column. def's leading comment is carried over when this
// declaration has none.
func (s *Symbol) CombineDefinition(def *Symbol) string {
	body := def.doc.Text()[def.DeclarationEnd():def.end]
	oldIndent, newIndent := def.Indentation(), s.Indentation()
	reindent := func(text string) string {
		lines := strings.Split(dedent(text, oldIndent), "\n")
		for i := 1; i < len(lines); i++ {
			if lines[i] != "" && lines[i] != "\r" {
				lines[i] = newIndent + lines[i]
			}
		}
		return strings.Join(lines, "\n")
	}
	declaration := strings.TrimRightFunc(s.FullText(), unicode.IsSpace)
	declaration = strings.TrimRightFunc(strings.TrimSuffix(declaration, ";"), unicode.IsSpace)
	if !s.HasLeadingComment() && def.HasLeadingComment() {
		return reindent(def.LeadingComment()) + newIndent + declaration + reindent(body)
	}
	return declaration + reindent(body)
}

// removeMatches deletes the matches of re found in the masked form of text, so
// comments and literals are never touched.
func removeMatches(re *regexp.Regexp, text string) string {
	locs := re.FindAllStringIndex(mask.Parsable(text), -1)
	if len(locs) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(text[last:loc[0]])
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// dedent strips indent from the start of every line.
func dedent(text, indent string) string {
	if indent == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimPrefix(lines[i], indent)
	}
	return strings.Join(lines, "\n")
}

// realign moves continuation lines indented by at least from columns so they
// are indented by to columns instead.
func realign(text string, from, to int) string {
	lines := strings.Split(text, "\n")
	old := strings.Repeat(" ", from)
	for i := 1; i < len(lines); i++ {
		if strings.HasPrefix(lines[i], old) {
			lines[i] = strings.Repeat(" ", to) + lines[i][from:]
		}
	}
	return strings.Join(lines, "\n")
}

func lastLine(text string) string {
	return text[strings.LastIndexByte(text, '\n')+1:]
}
