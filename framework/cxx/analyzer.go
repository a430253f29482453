package cxx

import (
	"context"
	"io"
	"log"
	"strings"
	"unicode"

	"github.com/lexcodex/cxxrefine/framework/mask"
)

// DefaultResolveDepth bounds typedef and alias chains followed by IsPrimitive.
const DefaultResolveDepth = 8

// Options is the configuration snapshot an Analyzer reads.
type Options struct {
	// ResolveTypes lets IsPrimitive follow type names to their definitions.
	ResolveTypes bool
	// AlwaysMoveComments carries leading comments along with moved definitions.
	AlwaysMoveComments bool
	ResolveDepth       int
}

func DefaultOptions() Options {
	return Options{AlwaysMoveComments: true, ResolveDepth: DefaultResolveDepth}
}

// Analyzer runs the operations that need the document provider: symbol lookup
// by position, cross-document scope matching and type resolution.
type Analyzer struct {
	source SymbolSource
	opts   Options
	logger *log.Logger
}

// NewAnalyzer returns an Analyzer. A nil logger discards output.
func NewAnalyzer(source SymbolSource, opts Options, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.ResolveDepth <= 0 {
		opts.ResolveDepth = DefaultResolveDepth
	}
	return &Analyzer{source: source, opts: opts, logger: logger}
}

func (a *Analyzer) Options() Options { return a.opts }

func (a *Analyzer) Source() SymbolSource { return a.source }

// Symbols returns the coarse symbol forest of doc with parent links set.
func (a *Analyzer) Symbols(ctx context.Context, doc Document) ([]*SourceSymbol, error) {
	symbols, err := a.source.DocumentSymbols(ctx, doc)
	if err != nil {
		return nil, err
	}
	LinkParents(symbols)
	return symbols, nil
}

// symbolsOrNone treats provider failures as an empty document unless the
// context is done.
func (a *Analyzer) symbolsOrNone(ctx context.Context, doc Document) ([]*SourceSymbol, error) {
	symbols, err := a.Symbols(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Printf("[cxx] symbols for %s unavailable: %v", doc.URI(), err)
		return nil, nil
	}
	return symbols, nil
}

// GetSymbol returns the innermost symbol whose range contains pos, or nil.
func (a *Analyzer) GetSymbol(ctx context.Context, doc Document, pos Position) (*Symbol, error) {
	symbols, err := a.symbolsOrNone(ctx, doc)
	if err != nil {
		return nil, err
	}
	offset := doc.OffsetAt(pos)
	var find func(parent *Symbol, list []*SourceSymbol) *Symbol
	find = func(parent *Symbol, list []*SourceSymbol) *Symbol {
		for _, src := range list {
			sym := newSymbol(src, doc, parent)
			if offset < sym.TrueStart() || offset > sym.end {
				continue
			}
			if child := find(sym, src.Children); child != nil {
				return child
			}
			return sym
		}
		return nil
	}
	return find(nil, symbols), nil
}

// FindMatchingSymbol finds the symbol in doc that corresponds to sym: same
// name, compatible kind and the same chain of enclosing scope names.
func (a *Analyzer) FindMatchingSymbol(ctx context.Context, doc Document, sym *Symbol) (*Symbol, error) {
	symbols, err := a.symbolsOrNone(ctx, doc)
	if err != nil {
		return nil, err
	}
	matches := matchingSymbols(symbols, doc, sym)
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

func matchingSymbols(symbols []*SourceSymbol, doc Document, sym *Symbol) []*Symbol {
	want := scopeNames(sym.Scopes())
	var matches []*Symbol
	Walk(symbols, func(src *SourceSymbol) bool {
		if src.BaseName() != sym.Name() || !kindsMatch(src.Kind, sym.Kind()) {
			return true
		}
		candidate := NewSymbol(src, doc)
		if scopeNames(candidate.Scopes()) == want {
			matches = append(matches, candidate)
		}
		return true
	})
	return matches
}

func kindsMatch(a, b Kind) bool {
	switch {
	case a == b:
		return true
	case a.IsClassOrStruct() && b.IsClassOrStruct():
		return true
	case a.IsFunction() && b.IsFunction():
		return true
	}
	return false
}

func scopeNames(scopes []*Symbol) string {
	names := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		names = append(names, scope.Name())
	}
	return strings.Join(names, "::")
}

// ScopeString returns the "A::B<T>::" qualification sym needs when referenced
// at pos in target. Scopes whose block in target already contains pos are
// omitted.
func (a *Analyzer) ScopeString(ctx context.Context, sym *Symbol, target Document, pos Position) (string, error) {
	scopes := sym.Scopes()
	if sym.Kind().IsScope() {
		scopes = append(scopes, sym)
	}
	if len(scopes) == 0 {
		return "", nil
	}
	symbols, err := a.symbolsOrNone(ctx, target)
	if err != nil {
		return "", err
	}
	offset := target.OffsetAt(pos)
	var b strings.Builder
	for _, scope := range scopes {
		matches := matchingSymbols(symbols, target, scope)
		inside := false
		for _, m := range matches {
			if m.Span().ContainsExclusive(offset) {
				inside = true
				break
			}
		}
		if inside {
			continue
		}
		templated := scope
		if len(matches) > 0 {
			templated = matches[0]
		}
		b.WriteString(scope.Name())
		if templated.IsTemplate() {
			b.WriteString(templated.TemplateParameters())
		}
		b.WriteString("::")
	}
	return b.String(), nil
}

// ImmediateScope returns the qualifier directly in front of the identifier,
// e.g. "Foo" in "void Foo::bar()".
func (s *Symbol) ImmediateScope() *SubSymbol {
	leading := mask.AngleBrackets(s.ParsableLeadingText())
	pos := len(strings.TrimRightFunc(leading, unicode.IsSpace))
	start, end, ok := qualifierBefore(leading, pos)
	if !ok {
		return nil
	}
	sub := newSubSymbol(s.doc, Span{Start: s.start + start, End: s.start + end})
	return &sub
}

// GetParentClass resolves the class an out-of-line member belongs to by
// following its immediate scope qualifier. Nil when it cannot be found.
func (a *Analyzer) GetParentClass(ctx context.Context, sym *Symbol) (*Symbol, error) {
	if sym.parent != nil && sym.parent.IsClassOrStruct() {
		return sym.parent, nil
	}
	scope := sym.ImmediateScope()
	if scope == nil {
		return nil, nil
	}
	loc, err := a.findDefinition(ctx, sym.doc, sym.doc.PositionAt(scope.Selection.Start))
	if err != nil || loc == nil {
		return nil, err
	}
	doc, err := a.open(ctx, sym.doc, loc.URI)
	if err != nil || doc == nil {
		return nil, err
	}
	parent, err := a.GetSymbol(ctx, doc, loc.Range.Start)
	if err != nil || parent == nil || !parent.IsClassOrStruct() {
		return nil, err
	}
	return parent, nil
}

// findDefinition maps provider failures to "not found".
func (a *Analyzer) findDefinition(ctx context.Context, doc Document, pos Position) (*Location, error) {
	loc, err := a.source.FindDefinition(ctx, doc, pos)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Printf("[cxx] definition lookup in %s at %d:%d failed: %v", doc.URI(), pos.Line, pos.Character, err)
		return nil, nil
	}
	return loc, nil
}

func (a *Analyzer) open(ctx context.Context, current Document, uri string) (Document, error) {
	if uri == "" || uri == current.URI() {
		return current, nil
	}
	doc, err := a.source.Open(ctx, uri)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Printf("[cxx] open %s failed: %v", uri, err)
		return nil, nil
	}
	return doc, nil
}
