package cxx

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixture is an in-memory document plus a hand-built coarse symbol tree.
type fixture struct {
	t     *testing.T
	doc   *TextDocument
	roots []*SourceSymbol
}

func newFixture(t *testing.T, uri, text string) *fixture {
	t.Helper()
	return &fixture{t: t, doc: NewTextDocument(uri, text, nil)}
}

// add registers a symbol whose range starts at the first occurrence of from
// and, when to is set, ends after the first occurrence of to that follows.
func (f *fixture) add(parent *SourceSymbol, kind Kind, name, from, to string) *SourceSymbol {
	f.t.Helper()
	text := f.doc.Text()
	start := strings.Index(text, from)
	require.GreaterOrEqual(f.t, start, 0, "range start %q", from)
	end := start + len(from)
	if to != "" {
		idx := strings.Index(text[start:], to)
		require.GreaterOrEqual(f.t, idx, 0, "range end %q", to)
		end = start + idx + len(to)
	}
	base := name
	if idx := strings.LastIndex(base, "::"); idx >= 0 {
		base = base[idx+2:]
	}
	sel := findName(text[start:end], base, kind.IsFunction())
	require.GreaterOrEqual(f.t, sel, 0, "selection %q", base)
	sym := &SourceSymbol{
		Name:           name,
		Kind:           kind,
		Range:          Range{Start: f.doc.PositionAt(start), End: f.doc.PositionAt(end)},
		SelectionRange: Range{Start: f.doc.PositionAt(start + sel), End: f.doc.PositionAt(start + sel + len(base))},
	}
	if parent != nil {
		parent.Children = append(parent.Children, sym)
	} else {
		f.roots = append(f.roots, sym)
	}
	LinkParents(f.roots)
	return sym
}

func (f *fixture) symbol(src *SourceSymbol) *Symbol {
	return NewSymbol(src, f.doc)
}

func (f *fixture) offset(marker string) int {
	f.t.Helper()
	idx := strings.Index(f.doc.Text(), marker)
	require.GreaterOrEqual(f.t, idx, 0, "marker %q", marker)
	return idx
}

func (f *fixture) position(marker string) Position {
	return f.doc.PositionAt(f.offset(marker))
}

func findName(text, name string, wantCall bool) int {
	for i := 0; i < len(text); {
		idx := strings.Index(text[i:], name)
		if idx < 0 {
			return -1
		}
		pos := i + idx
		end := pos + len(name)
		word := (pos == 0 || !isIdentByte(text[pos-1]) || name[0] == '~') &&
			(end == len(text) || !isIdentByte(text[end]))
		if word && (!wantCall || strings.HasPrefix(strings.TrimLeft(text[end:], " \t"), "(")) {
			return pos
		}
		i = pos + 1
	}
	return -1
}

// fakeSource serves fixtures and resolves definitions by the word under the cursor.
type fakeSource struct {
	fixtures map[string]*fixture
	defs     map[string]Location
	lookups  int
}

func newFakeSource(fixtures ...*fixture) *fakeSource {
	src := &fakeSource{fixtures: map[string]*fixture{}, defs: map[string]Location{}}
	for _, f := range fixtures {
		src.fixtures[f.doc.URI()] = f
	}
	return src
}

func (s *fakeSource) define(name string, f *fixture, sym *SourceSymbol) {
	s.defs[name] = Location{URI: f.doc.URI(), Range: sym.Range}
}

func (s *fakeSource) DocumentSymbols(_ context.Context, doc Document) ([]*SourceSymbol, error) {
	if f, ok := s.fixtures[doc.URI()]; ok {
		return f.roots, nil
	}
	return nil, nil
}

func (s *fakeSource) FindDefinition(_ context.Context, doc Document, pos Position) (*Location, error) {
	s.lookups++
	text := doc.Text()
	offset := doc.OffsetAt(pos)
	start, end := offset, offset
	for start > 0 && isIdentByte(text[start-1]) {
		start--
	}
	for end < len(text) && isIdentByte(text[end]) {
		end++
	}
	loc, ok := s.defs[text[start:end]]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

func (s *fakeSource) Open(_ context.Context, uri string) (Document, error) {
	if f, ok := s.fixtures[uri]; ok {
		return f.doc, nil
	}
	return nil, fmt.Errorf("no document %s", uri)
}

func requireContainment(t *testing.T, sym *Symbol) {
	t.Helper()
	sel := sym.SelectionSpan()
	require.LessOrEqual(t, sym.LeadingCommentStart(), sym.TrueStart(), sym.Name())
	require.LessOrEqual(t, sym.TrueStart(), sel.Start, sym.Name())
	require.LessOrEqual(t, sel.Start, sel.End, sym.Name())
	require.LessOrEqual(t, sel.End, sym.DeclarationEnd(), sym.Name())
	require.LessOrEqual(t, sym.DeclarationEnd(), sym.Span().End, sym.Name())
}
