package cxx

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// Position mirrors an LSP position. Character is a byte column.
type Position struct {
	Line      int `json:"line" yaml:"line"`
	Character int `json:"character" yaml:"character"`
}

// Before reports whether p sorts strictly before other.
func (p Position) Before(other Position) bool {
	return p.Line < other.Line || p.Line == other.Line && p.Character < other.Character
}

// Range describes a half-open span of positions.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

func (r Range) Contains(p Position) bool {
	return !p.Before(r.Start) && !r.End.Before(p)
}

// ContainsExclusive is Contains without the boundary positions.
func (r Range) ContainsExclusive(p Position) bool {
	return r.Start.Before(p) && p.Before(r.End)
}

// Location describes a file and range.
type Location struct {
	URI   string `json:"uri" yaml:"uri"`
	Range Range  `json:"range" yaml:"range"`
}

// Span is a half-open byte offset range into a document.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) ContainsExclusive(offset int) bool {
	return s.Start < offset && offset < s.End
}

// Line is a single line of a document without its terminator.
type Line struct {
	Number             int
	Text               string
	FirstNonWhitespace int
}

// Indentation returns the leading whitespace of the line.
func (l Line) Indentation() string {
	return l.Text[:l.FirstNonWhitespace]
}

// Document is a read-only text buffer with offset and position conversion.
type Document interface {
	URI() string
	Text() string
	GetText(r Range) string
	OffsetAt(p Position) int
	PositionAt(offset int) Position
	LineAt(line int) Line
	LineCount() int
	EOL() string
	IsHeader() bool
}

// SymbolSource supplies coarse symbol trees and cross-file lookups. A nil
// location from FindDefinition means "not found", not an error.
type SymbolSource interface {
	DocumentSymbols(ctx context.Context, doc Document) ([]*SourceSymbol, error)
	FindDefinition(ctx context.Context, doc Document, pos Position) (*Location, error)
	Open(ctx context.Context, uri string) (Document, error)
}

// DefaultHeaderExtensions are used when no extensions are configured.
var DefaultHeaderExtensions = []string{"h", "hpp", "hh", "hxx"}

// TextDocument is an in-memory Document.
type TextDocument struct {
	uri        string
	text       string
	lineStarts []int
	eol        string
	header     bool
}

// NewTextDocument indexes text for position conversion. headerExtensions
// decides IsHeader; nil falls back to DefaultHeaderExtensions.
func NewTextDocument(uri, text string, headerExtensions []string) *TextDocument {
	if headerExtensions == nil {
		headerExtensions = DefaultHeaderExtensions
	}
	doc := &TextDocument{
		uri:        uri,
		text:       text,
		lineStarts: []int{0},
		eol:        "\n",
	}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			doc.lineStarts = append(doc.lineStarts, i+1)
		}
	}
	if idx := strings.IndexByte(text, '\n'); idx > 0 && text[idx-1] == '\r' {
		doc.eol = "\r\n"
	}
	ext := strings.TrimPrefix(path.Ext(URIToPath(uri)), ".")
	for _, candidate := range headerExtensions {
		if strings.EqualFold(strings.TrimPrefix(candidate, "."), ext) {
			doc.header = true
			break
		}
	}
	return doc
}

func (d *TextDocument) URI() string    { return d.uri }
func (d *TextDocument) Text() string   { return d.text }
func (d *TextDocument) EOL() string    { return d.eol }
func (d *TextDocument) IsHeader() bool { return d.header }
func (d *TextDocument) LineCount() int { return len(d.lineStarts) }

func (d *TextDocument) GetText(r Range) string {
	start, end := d.OffsetAt(r.Start), d.OffsetAt(r.End)
	if end < start {
		return ""
	}
	return d.text[start:end]
}

// OffsetAt clamps positions outside the document to its bounds.
func (d *TextDocument) OffsetAt(p Position) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(d.lineStarts) {
		return len(d.text)
	}
	start := d.lineStarts[p.Line]
	end := d.lineEnd(p.Line)
	offset := start + p.Character
	if p.Character < 0 {
		offset = start
	}
	if offset > end {
		offset = end
	}
	return offset
}

func (d *TextDocument) PositionAt(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	line := sort.Search(len(d.lineStarts), func(i int) bool { return d.lineStarts[i] > offset }) - 1
	return Position{Line: line, Character: offset - d.lineStarts[line]}
}

func (d *TextDocument) LineAt(n int) Line {
	if n < 0 {
		n = 0
	}
	if n >= len(d.lineStarts) {
		n = len(d.lineStarts) - 1
	}
	text := strings.TrimSuffix(d.text[d.lineStarts[n]:d.lineEnd(n)], "\r")
	first := strings.IndexFunc(text, func(r rune) bool { return !unicode.IsSpace(r) })
	if first < 0 {
		first = len(text)
	}
	return Line{Number: n, Text: text, FirstNonWhitespace: first}
}

// lineEnd is the offset of the line terminator of line n (or end of text).
func (d *TextDocument) lineEnd(n int) int {
	if n+1 < len(d.lineStarts) {
		return d.lineStarts[n+1] - 1
	}
	return len(d.text)
}

// PathToURI converts an absolute file path to a file:// URI.
func PathToURI(p string) string {
	if strings.HasPrefix(p, "file://") {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(p)}
	return u.String()
}

// URIToPath converts a file:// URI to a path. Anything else is returned as is.
func URIToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}
	return filepath.FromSlash(u.Path)
}
