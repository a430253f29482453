package cxx

import "strings"

// SubSymbol is a span of document text with no symbol kind of its own, such as
// an access specifier or a base class clause. The selection narrows the span to
// the identifier that names it.
type SubSymbol struct {
	doc       Document
	Span      Span
	Selection Span
}

func newSubSymbol(doc Document, span Span) SubSymbol {
	return SubSymbol{doc: doc, Span: span, Selection: span}
}

func (s SubSymbol) Document() Document { return s.doc }

func (s SubSymbol) Text() string { return s.doc.Text()[s.Span.Start:s.Span.End] }

// Name is the selected text.
func (s SubSymbol) Name() string {
	return strings.TrimSpace(s.doc.Text()[s.Selection.Start:s.Selection.End])
}

func (s SubSymbol) Range() Range {
	return Range{Start: s.doc.PositionAt(s.Span.Start), End: s.doc.PositionAt(s.Span.End)}
}

func (s SubSymbol) SelectionRange() Range {
	return Range{Start: s.doc.PositionAt(s.Selection.Start), End: s.doc.PositionAt(s.Selection.End)}
}
