// Package refactor turns analyzed C++ symbols into text edits: new function
// definitions and declarations, moved definitions, header guards and
// equality operators. Edits are computed against the documents the analyzer
// reads; nothing is written to disk here.
package refactor

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/lexcodex/cxxrefine/framework/config"
	"github.com/lexcodex/cxxrefine/framework/cxx"
)

var (
	ErrNotFunctionDeclaration = errors.New("no function declaration detected")
	ErrNotFunctionDefinition  = errors.New("no function definition detected")
	ErrNotClassOrStruct       = errors.New("no class or struct detected")
	ErrNoParentClass          = errors.New("could not find the class this function belongs to")
	ErrNoMatchingFile         = errors.New("no matching header or source file was found")
	ErrConstexpr              = errors.New("constexpr functions must be defined in the file that they are declared")
	ErrInline                 = errors.New("inline functions must be defined in the file that they are declared")
	ErrTemplateInSource       = errors.New("templates must be defined in a header")
	ErrDefinitionExists       = errors.New("a definition for this function already exists")
	ErrDeclarationExists      = errors.New("a declaration for this function already exists")
	ErrFormatFailed           = errors.New("could not format the function signature")
)

// Matcher finds the source file of a header and the header of a source file.
// An empty result means there is none.
type Matcher interface {
	Match(path string) (string, error)
}

// Refactorer builds edits from symbols resolved by an analyzer.
type Refactorer struct {
	analyzer *cxx.Analyzer
	cfg      *config.Config
	matcher  Matcher
	logger   *log.Logger
}

// New returns a Refactorer. A nil cfg uses the defaults, a nil matcher
// disables matching-file targets and a nil logger discards output.
func New(analyzer *cxx.Analyzer, cfg *config.Config, matcher Matcher, logger *log.Logger) *Refactorer {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Refactorer{analyzer: analyzer, cfg: cfg, matcher: matcher, logger: logger}
}

// MatchingURI returns the URI of the header or source file paired with uri.
func (r *Refactorer) MatchingURI(uri string) (string, error) {
	if r.matcher == nil {
		return "", ErrNoMatchingFile
	}
	path, err := r.matcher.Match(cxx.URIToPath(uri))
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", ErrNoMatchingFile
	}
	return cxx.PathToURI(path), nil
}

func (r *Refactorer) open(ctx context.Context, current cxx.Document, uri string) (cxx.Document, error) {
	if uri == "" || uri == current.URI() {
		return current, nil
	}
	return r.analyzer.Source().Open(ctx, uri)
}

func (r *Refactorer) unit() string { return r.cfg.Format.Indentation }

// placement is a proposed position plus the layout of the text inserted there.
type placement struct {
	cxx.ProposedPosition
	indent  string // prefix of every inserted line
	closing string // indentation of the enclosing scope
	label   string // access specifier opening the inserted text
}

// format surrounds text with the line breaks its position needs and indents it.
func (p placement) format(text string, doc cxx.Document) string {
	eol := doc.EOL()
	body := indentLines(text, p.indent)
	var lead string
	if p.label != "" {
		lead = p.closing + p.label + eol
	}
	separator := eol + eol
	if p.NextTo {
		separator = eol
	}
	switch {
	case p.Before:
		return lead + strings.TrimPrefix(body, p.indent) + separator + p.indent
	case p.EmptyScope:
		out := eol + lead + body
		rest := doc.Text()[p.Offset:]
		if brace := strings.IndexByte(rest, '}'); brace >= 0 && !strings.Contains(rest[:brace], "\n") {
			out += eol + p.closing
		}
		return out
	case p.RelativeTo != nil:
		return separator + lead + body
	}
	head := doc.Text()[:p.Offset]
	switch {
	case blankBefore(head, len(head)):
		return lead + body + eol
	case strings.HasSuffix(head, "\n"):
		return eol + lead + body + eol
	}
	return eol + eol + lead + body + eol
}

func indentLines(text, indent string) string {
	if indent == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" && line != "\r" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}

// endOfDocument places text after everything else in doc.
func endOfDocument(doc cxx.Document) placement {
	return placement{ProposedPosition: cxx.ProposedPosition{Offset: len(doc.Text()), After: true}}
}

// after places text below sym, at sym's indentation.
func after(sym *cxx.Symbol) placement {
	span := sym.Span()
	return placement{
		ProposedPosition: cxx.ProposedPosition{Offset: span.End, RelativeTo: &span, After: true},
		indent:           sym.Indentation(),
	}
}

// before places text above sym and its leading comment.
func before(sym *cxx.Symbol) placement {
	span := sym.Span()
	return placement{
		ProposedPosition: cxx.ProposedPosition{Offset: sym.LeadingCommentStart(), RelativeTo: &span, Before: true},
		indent:           sym.Indentation(),
	}
}

// sameFilePlacement puts a definition for sym below the outermost class that
// contains it, or below sym itself.
func sameFilePlacement(sym *cxx.Symbol) placement {
	anchor := sym
	for p := sym.Parent(); p != nil && p.IsClassOrStruct(); p = p.Parent() {
		anchor = p
	}
	return after(anchor)
}

// memberPlacement lays out new members of class at pos, opening a public
// section when pos is not public.
func (r *Refactorer) memberPlacement(class *cxx.Symbol, pos cxx.ProposedPosition) placement {
	p := placement{ProposedPosition: pos, closing: class.Indentation()}
	if children := class.Children(); len(children) > 0 {
		p.indent = children[0].Indentation()
	} else {
		p.indent = class.Indentation() + r.unit()
	}
	if !class.PositionHasAccess(pos.Offset, cxx.AccessPublic) {
		p.label = cxx.AccessPublic.String() + ":"
	}
	return p
}

// targetPlacement finds where code owned by sym goes in target: inside the
// deepest namespace block of target that matches sym's namespaces, else at
// the end of target. missing lists the namespaces target lacks, outermost
// first.
func (r *Refactorer) targetPlacement(ctx context.Context, sym *cxx.Symbol, target cxx.Document) (p placement, missing []string, err error) {
	var namespaces []*cxx.Symbol
	for _, scope := range sym.Scopes() {
		if scope.IsNamespace() {
			namespaces = append(namespaces, scope)
		}
	}
	symbols, err := r.analyzer.Symbols(ctx, target)
	if err != nil {
		return placement{}, nil, err
	}
	level := make([]*cxx.Symbol, 0, len(symbols))
	for _, src := range symbols {
		level = append(level, cxx.NewSymbol(src, target))
	}

	var container *cxx.Symbol
	matched := 0
	for _, ns := range namespaces {
		next := findNamespace(level, ns.Name())
		if next == nil {
			break
		}
		container, level = next, next.Children()
		matched++
	}
	for _, ns := range namespaces[matched:] {
		missing = append(missing, ns.Name())
	}

	switch {
	case len(level) > 0:
		return after(level[len(level)-1]), missing, nil
	case container != nil:
		p = placement{
			ProposedPosition: cxx.ProposedPosition{Offset: container.BodyStart(), After: true, NextTo: true, EmptyScope: true},
			indent:           container.Indentation(),
			closing:          container.Indentation(),
		}
		if r.namespaceIndented(ctx, sym.Document()) {
			p.indent += r.unit()
		}
		return p, missing, nil
	}
	return endOfDocument(target), missing, nil
}

func findNamespace(symbols []*cxx.Symbol, name string) *cxx.Symbol {
	for _, sym := range symbols {
		if sym.IsNamespace() && sym.Name() == name {
			return sym
		}
	}
	return nil
}

// namespaceIndented applies the namespace indentation setting. Auto follows
// the first namespace with members in doc.
func (r *Refactorer) namespaceIndented(ctx context.Context, doc cxx.Document) bool {
	switch r.cfg.Format.NamespaceIndentation {
	case config.IndentAlways:
		return true
	case config.IndentNever:
		return false
	}
	symbols, err := r.analyzer.Symbols(ctx, doc)
	if err != nil {
		return false
	}
	indented := false
	cxx.Walk(symbols, func(src *cxx.SourceSymbol) bool {
		if src.Kind != cxx.KindNamespace || len(src.Children) == 0 {
			return true
		}
		first := src.Children[0]
		if first.Range.Start.Line == src.Range.Start.Line {
			return true
		}
		outer := doc.LineAt(src.Range.Start.Line).Indentation()
		inner := doc.LineAt(first.Range.Start.Line).Indentation()
		indented = len(inner) > len(outer)
		return false
	})
	return indented
}

// namespaceBraceOnNewLine applies the namespace brace setting. Auto follows
// the first namespace in doc.
func (r *Refactorer) namespaceBraceOnNewLine(ctx context.Context, doc cxx.Document) bool {
	switch r.cfg.Format.NamespaceBraces {
	case config.BraceNewLine:
		return true
	case config.BraceSameLine, config.BraceNewLineCtorDtor:
		return false
	}
	symbols, err := r.analyzer.Symbols(ctx, doc)
	if err != nil {
		return false
	}
	newLine := false
	cxx.Walk(symbols, func(src *cxx.SourceSymbol) bool {
		if src.Kind != cxx.KindNamespace {
			return true
		}
		ns := cxx.NewSymbol(src, doc)
		newLine = strings.Contains(doc.Text()[ns.SelectionSpan().End:ns.BodyStart()], "\n")
		return false
	})
	return newLine
}

// wrapInNamespaces encloses text in blocks for names, outermost first.
func (r *Refactorer) wrapInNamespaces(ctx context.Context, text string, names []string, source cxx.Document, eol string) string {
	if len(names) == 0 {
		return text
	}
	newLine := r.namespaceBraceOnNewLine(ctx, source)
	indented := r.namespaceIndented(ctx, source)
	for i := len(names) - 1; i >= 0; i-- {
		body := text
		if indented {
			body = indentLines(text, r.unit())
		}
		open := "namespace " + names[i]
		if newLine {
			open += eol + "{"
		} else {
			open += " {"
		}
		text = open + eol + body + eol + "} // namespace " + names[i]
	}
	return text
}

// generatedScope drops the namespaces that wrapInNamespaces will open from a
// scope string computed for a position outside of them.
func generatedScope(scope string, missing []string) string {
	if len(missing) == 0 {
		return scope
	}
	return strings.TrimPrefix(scope, strings.Join(missing, "::")+"::")
}

func (r *Refactorer) functionBraceOnNewLine(ctorOrDtor bool) bool {
	switch r.cfg.Format.FunctionBraces {
	case config.BraceSameLine:
		return false
	case config.BraceNewLineCtorDtor:
		return ctorOrDtor
	}
	return true
}

// functionSkeleton appends an initializer list and a braced body to
// signature. An empty body leaves one indented blank line.
func (r *Refactorer) functionSkeleton(signature string, ctorOrDtor bool, initializers []*cxx.Symbol, body, eol string) string {
	indent := r.unit()
	var b strings.Builder
	b.WriteString(signature)
	if len(initializers) > 0 {
		b.WriteString(eol + indent + ": ")
		for i, member := range initializers {
			if i > 0 {
				b.WriteString("," + eol + indent + "  ")
			}
			b.WriteString(member.Name() + "()")
		}
	}
	if r.functionBraceOnNewLine(ctorOrDtor) {
		b.WriteString(eol + "{" + eol)
	} else {
		b.WriteString(" {" + eol)
	}
	if body == "" {
		b.WriteString(indent)
	} else {
		b.WriteString(indentLines(body, indent))
	}
	b.WriteString(eol + "}")
	return b.String()
}

// removalSpan widens sym, and its leading comment when comments travel with
// definitions, to whole lines.
func (r *Refactorer) removalSpan(sym *cxx.Symbol) cxx.Span {
	text := sym.Document().Text()
	start, end := r.movedStart(sym), sym.Span().End
	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	if strings.TrimSpace(text[lineStart:start]) == "" {
		start = lineStart
	}
	rest := text[end:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && strings.TrimSpace(rest[:nl]) == "" {
		end += nl + 1
		// Drop one of the blank lines the removal would leave behind.
		next := text[end:]
		if nl := strings.IndexByte(next, '\n'); nl >= 0 && strings.TrimSpace(next[:nl]) == "" && blankBefore(text, start) {
			end += nl + 1
		}
	} else if strings.TrimSpace(rest) == "" {
		end = len(text)
	}
	return cxx.Span{Start: start, End: end}
}

func (r *Refactorer) movedStart(sym *cxx.Symbol) int {
	if r.analyzer.Options().AlwaysMoveComments {
		return sym.LeadingCommentStart()
	}
	return sym.TrueStart()
}

// blankBefore reports whether the line above offset is empty or offset is at
// the top of the document.
func blankBefore(text string, offset int) bool {
	head := text[:offset]
	return strings.TrimSpace(head) == "" || strings.HasSuffix(head, "\n\n") || strings.HasSuffix(head, "\n\r\n")
}
