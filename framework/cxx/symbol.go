package cxx

import (
	"strings"
	"sync"
	"unicode"

	"github.com/lexcodex/cxxrefine/framework/mask"
)

type lazy[T any] struct {
	once sync.Once
	val  T
}

func (l *lazy[T]) get(compute func() T) T {
	l.once.Do(func() { l.val = compute() })
	return l.val
}

// Symbol refines a SourceSymbol against the text of its document. All derived
// positions are byte offsets and are computed once; a Symbol is never updated,
// build a new one when the text changes.
type Symbol struct {
	src    *SourceSymbol
	doc    Document
	parent *Symbol

	start, end       int
	selStart, selEnd int

	parsable       lazy[string]
	fullLeading    lazy[string]
	trueStart      lazy[int]
	leadingComment lazy[int]
	declarationEnd lazy[int]
	bodyStart      lazy[int]
	bodyEnd        lazy[int]
	children       lazy[[]*Symbol]
	accessSpecs    lazy[[]SubSymbol]
	baseClasses    lazy[[]SubSymbol]
}

// NewSymbol refines src. The parent chain is rebuilt from src.Parent so the
// result shares no state with other Symbols.
func NewSymbol(src *SourceSymbol, doc Document) *Symbol {
	var parent *Symbol
	if src.Parent != nil {
		parent = NewSymbol(src.Parent, doc)
	}
	return newSymbol(src, doc, parent)
}

func newSymbol(src *SourceSymbol, doc Document, parent *Symbol) *Symbol {
	s := &Symbol{src: src, doc: doc, parent: parent}
	text := doc.Text()
	s.start = doc.OffsetAt(src.Range.Start)
	s.end = endOfStatement(text, doc.OffsetAt(src.Range.End))
	if s.end < s.start {
		s.end = s.start
	}
	s.selStart = clamp(doc.OffsetAt(src.SelectionRange.Start), s.start, s.end)
	s.selEnd = clamp(doc.OffsetAt(src.SelectionRange.End), s.selStart, s.end)
	return s
}

// endOfStatement extends a coarse range end over a directly following ';'.
func endOfStatement(text string, end int) int {
	if end > 0 && text[end-1] == ';' {
		return end
	}
	i := end
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if i < len(text) && text[i] == ';' {
		return i + 1
	}
	return end
}

func (s *Symbol) Source() *SourceSymbol { return s.src }
func (s *Symbol) Document() Document    { return s.doc }
func (s *Symbol) Kind() Kind            { return s.src.Kind }
func (s *Symbol) Parent() *Symbol       { return s.parent }

// Name is the unqualified name of the symbol.
func (s *Symbol) Name() string { return s.src.BaseName() }

// Span is the coarse range extended over a trailing semicolon.
func (s *Symbol) Span() Span { return Span{Start: s.start, End: s.end} }

func (s *Symbol) SelectionSpan() Span { return Span{Start: s.selStart, End: s.selEnd} }

// FullSpan runs from TrueStart to the end of the symbol.
func (s *Symbol) FullSpan() Span { return Span{Start: s.TrueStart(), End: s.end} }

// RangeOf converts an offset span of this symbol's document into positions.
func (s *Symbol) RangeOf(span Span) Range {
	return Range{Start: s.doc.PositionAt(span.Start), End: s.doc.PositionAt(span.End)}
}

func (s *Symbol) Range() Range { return s.RangeOf(s.Span()) }

func (s *Symbol) Children() []*Symbol {
	return s.children.get(func() []*Symbol {
		children := make([]*Symbol, 0, len(s.src.Children))
		for _, child := range s.src.Children {
			children = append(children, newSymbol(child, s.doc, s))
		}
		return children
	})
}

// Scopes returns the enclosing namespaces, classes and structs, outermost first.
func (s *Symbol) Scopes() []*Symbol {
	var scopes []*Symbol
	for p := s.parent; p != nil; p = p.parent {
		if p.Kind().IsScope() {
			scopes = append([]*Symbol{p}, scopes...)
		}
	}
	return scopes
}

// Text is the document text of the symbol's (extended) range.
func (s *Symbol) Text() string { return s.doc.Text()[s.start:s.end] }

// FullText includes a recovered template header.
func (s *Symbol) FullText() string { return s.doc.Text()[s.TrueStart():s.end] }

// ParsableText is Text with comments and literals masked.
func (s *Symbol) ParsableText() string {
	return s.parsable.get(func() string { return mask.Parsable(s.Text()) })
}

// ParsableLeadingText is the masked text in front of the identifier.
func (s *Symbol) ParsableLeadingText() string {
	return s.ParsableText()[:s.selStart-s.start]
}

// FullLeadingText is the raw text from TrueStart up to the identifier.
func (s *Symbol) FullLeadingText() string {
	return s.doc.Text()[s.TrueStart():s.selStart]
}

func (s *Symbol) parsableFullLeadingText() string {
	return s.fullLeading.get(func() string { return mask.Parsable(s.FullLeadingText()) })
}

// parsableSignatureTail is the masked text between the identifier and DeclarationEnd.
func (s *Symbol) parsableSignatureTail() string {
	return s.ParsableText()[s.selEnd-s.start : s.DeclarationEnd()-s.start]
}

// parsableTrimmed drops trailing whitespace from ParsableText.
func (s *Symbol) parsableTrimmed() string {
	return strings.TrimRightFunc(s.ParsableText(), unicode.IsSpace)
}

func (s *Symbol) line() Line {
	return s.doc.LineAt(s.doc.PositionAt(s.start).Line)
}

// Indentation is the leading whitespace of the line the symbol starts on.
func (s *Symbol) Indentation() string {
	return s.line().Indentation()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
