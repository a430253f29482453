package cxx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nestedHeader = `#pragma once
namespace N {
class C {
public:
    void bar();
};

}
`

func nestedFixture(t *testing.T) (*fixture, *SourceSymbol) {
	f := newFixture(t, "file:///n.h", nestedHeader)
	ns := f.add(nil, KindNamespace, "N", "namespace N", "};\n\n}")
	class := f.add(ns, KindClass, "C", "class C", "\n}")
	bar := f.add(class, KindMethod, "bar", "void bar()", "")
	return f, bar
}

func TestGetSymbolReturnsInnermost(t *testing.T) {
	f, _ := nestedFixture(t)
	a := NewAnalyzer(newFakeSource(f), DefaultOptions(), nil)
	ctx := context.Background()

	sym, err := a.GetSymbol(ctx, f.doc, f.position("bar"))
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, "bar", sym.Name())
	assert.Equal(t, "C", sym.Parent().Name())

	sym, err = a.GetSymbol(ctx, f.doc, f.position("public"))
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, "C", sym.Name())

	sym, err = a.GetSymbol(ctx, f.doc, Position{})
	require.NoError(t, err)
	assert.Nil(t, sym)
}

func TestScopeStringOmitsEnclosingScopes(t *testing.T) {
	f, barSrc := nestedFixture(t)
	other := newFixture(t, "file:///n.cpp", "#include \"n.h\"\n")
	a := NewAnalyzer(newFakeSource(f, other), DefaultOptions(), nil)
	ctx := context.Background()
	bar := f.symbol(barSrc)

	afterClass := f.doc.PositionAt(f.offset("};\n\n}") + 3)
	scope, err := a.ScopeString(ctx, bar, f.doc, afterClass)
	require.NoError(t, err)
	assert.Equal(t, "C::", scope)

	scope, err = a.ScopeString(ctx, bar, f.doc, f.position("    void bar"))
	require.NoError(t, err)
	assert.Equal(t, "", scope)

	scope, err = a.ScopeString(ctx, bar, other.doc, Position{Line: 1})
	require.NoError(t, err)
	assert.Equal(t, "N::C::", scope)
}

func TestScopeStringAppendsTemplateParameters(t *testing.T) {
	f := newFixture(t, "file:///box.h", "template <typename T, typename A = Alloc>\nclass Box {\n    T get() const;\n};\n")
	class := f.add(nil, KindClass, "Box", "class Box", "\n}")
	get := f.add(class, KindMethod, "get", "T get() const", "")
	other := newFixture(t, "file:///box.cpp", "")
	a := NewAnalyzer(newFakeSource(f, other), DefaultOptions(), nil)

	scope, err := a.ScopeString(context.Background(), f.symbol(get), other.doc, Position{})
	require.NoError(t, err)
	assert.Equal(t, "Box<T, A>::", scope)
}

func TestFindMatchingSymbol(t *testing.T) {
	f, barSrc := nestedFixture(t)
	same := newFixture(t, "file:///copy.h", nestedHeader)
	ns := same.add(nil, KindNamespace, "N", "namespace N", "};\n\n}")
	class := same.add(ns, KindClass, "C", "class C", "\n}")
	same.add(class, KindMethod, "bar", "void bar()", "")
	moved := newFixture(t, "file:///moved.h", "class C {\n    void bar();\n};\n")
	movedClass := moved.add(nil, KindClass, "C", "class C", "\n}")
	moved.add(movedClass, KindMethod, "bar", "void bar()", "")

	a := NewAnalyzer(newFakeSource(f, same, moved), DefaultOptions(), nil)
	ctx := context.Background()
	bar := f.symbol(barSrc)

	match, err := a.FindMatchingSymbol(ctx, same.doc, bar)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, same.doc.URI(), match.Document().URI())
	assert.Equal(t, "C", match.Parent().Name())

	match, err = a.FindMatchingSymbol(ctx, moved.doc, bar)
	require.NoError(t, err)
	assert.Nil(t, match, "scope chains differ")
}

func TestGetParentClass(t *testing.T) {
	header := newFixture(t, "file:///foo.h", "class Foo {\npublic:\n    void bar(int x = 1);\n};\n")
	class := header.add(nil, KindClass, "Foo", "class Foo", "\n}")
	decl := header.add(class, KindMethod, "bar", "void bar(int x = 1)", "")
	source := newFixture(t, "file:///foo.cpp", "void Foo::bar(int x = 1) { return; }\n")
	def := source.add(nil, KindMethod, "Foo::bar", "void Foo::bar(int x = 1) { return; }", "")

	src := newFakeSource(header, source)
	src.define("Foo", header, class)
	a := NewAnalyzer(src, DefaultOptions(), nil)
	ctx := context.Background()

	parent, err := a.GetParentClass(ctx, source.symbol(def))
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, "Foo", parent.Name())
	assert.Equal(t, header.doc.URI(), parent.Document().URI())

	parent, err = a.GetParentClass(ctx, header.symbol(decl))
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, "Foo", parent.Name())

	delete(src.defs, "Foo")
	parent, err = a.GetParentClass(ctx, source.symbol(def))
	require.NoError(t, err)
	assert.Nil(t, parent)
}

type failingSource struct{}

var errUnavailable = errors.New("server unavailable")

func (failingSource) DocumentSymbols(context.Context, Document) ([]*SourceSymbol, error) {
	return nil, errUnavailable
}

func (failingSource) FindDefinition(context.Context, Document, Position) (*Location, error) {
	return nil, errUnavailable
}

func (failingSource) Open(context.Context, string) (Document, error) {
	return nil, errUnavailable
}

func TestProviderFailuresMeanNotFound(t *testing.T) {
	f, barSrc := nestedFixture(t)
	a := NewAnalyzer(failingSource{}, Options{ResolveTypes: true}, nil)
	ctx := context.Background()

	sym, err := a.GetSymbol(ctx, f.doc, f.position("bar"))
	require.NoError(t, err)
	assert.Nil(t, sym)

	scope, err := a.ScopeString(ctx, f.symbol(barSrc), f.doc, Position{})
	require.NoError(t, err)
	assert.Equal(t, "N::C::", scope)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = a.GetSymbol(canceled, f.doc, f.position("bar"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewAnalyzerDefaults(t *testing.T) {
	a := NewAnalyzer(failingSource{}, Options{}, nil)
	assert.Equal(t, DefaultResolveDepth, a.Options().ResolveDepth)
	assert.False(t, a.Options().AlwaysMoveComments)
	assert.True(t, DefaultOptions().AlwaysMoveComments)
}
