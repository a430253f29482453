package cxx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spanTexts(doc Document, spans []Span) []string {
	out := make([]string, 0, len(spans))
	for _, span := range spans {
		out = append(out, strings.TrimSpace(doc.Text()[span.Start:span.End]))
	}
	return out
}

func TestRangesOfAccessInClass(t *testing.T) {
	f := newFixture(t, "file:///c.h", "class C { public: int a; private: int b; };\n")
	class := f.add(nil, KindClass, "C", "class C { public: int a; private: int b; }", "")
	f.add(class, KindField, "a", "int a", "")
	f.add(class, KindField, "b", "int b", "")
	c := f.symbol(class)

	specs := c.AccessSpecifiers()
	require.Len(t, specs, 2)
	assert.Equal(t, "public:", specs[0].Text())
	assert.Equal(t, "private:", specs[1].Text())

	assert.Equal(t, []string{"int b;"}, spanTexts(f.doc, c.RangesOfAccess(AccessPrivate)))
	assert.Equal(t, []string{"int a;"}, spanTexts(f.doc, c.RangesOfAccess(AccessPublic)))
	assert.Empty(t, c.RangesOfAccess(AccessProtected))

	assert.True(t, c.PositionHasAccess(f.offset("int a"), AccessPublic))
	assert.False(t, c.PositionHasAccess(f.offset("int a"), AccessPrivate))
}

func TestRangesOfAccessInStructKeepsImplicitRegion(t *testing.T) {
	f := newFixture(t, "file:///s.h", "struct S { int a; private: int b; };\n")
	class := f.add(nil, KindStruct, "S", "struct S { int a; private: int b; }", "")
	f.add(class, KindField, "a", "int a", "")
	f.add(class, KindField, "b", "int b", "")
	s := f.symbol(class)

	assert.Equal(t, []string{"int a;"}, spanTexts(f.doc, s.RangesOfAccess(AccessPublic)))
	assert.Equal(t, []string{"int b;"}, spanTexts(f.doc, s.RangesOfAccess(AccessPrivate)))
}

func TestAccessSpecifiersIgnoreMembersAndQualifiers(t *testing.T) {
	src := `class Q {
public:
    std::string name() const { label: return std::string(); }
    int bits : 3;
protected:
public:
    void run();
};
`
	f := newFixture(t, "file:///q.h", src)
	class := f.add(nil, KindClass, "Q", "class Q", "\n}")
	f.add(class, KindMethod, "name", "std::string name() const", "}")
	f.add(class, KindField, "bits", "int bits : 3", "")
	f.add(class, KindMethod, "run", "void run()", "")
	q := f.symbol(class)

	var labels []string
	for _, spec := range q.AccessSpecifiers() {
		labels = append(labels, spec.Text())
	}
	assert.Equal(t, []string{"public:", "protected:", "public:"}, labels)

	public := spanTexts(f.doc, q.RangesOfAccess(AccessPublic))
	require.Len(t, public, 2)
	assert.True(t, strings.HasPrefix(public[0], "std::string name()"))
	assert.Equal(t, "void run();", public[1])
	assert.Equal(t, []string{""}, spanTexts(f.doc, q.RangesOfAccess(AccessProtected)))
}

func TestBaseClasses(t *testing.T) {
	f := newFixture(t, "file:///d.h", "class D : public Base1, private NS::Base2<int> {};\nstruct E {};\n")
	d := f.symbol(f.add(nil, KindClass, "D", "class D : public Base1, private NS::Base2<int> {}", ""))
	e := f.symbol(f.add(nil, KindStruct, "E", "struct E {}", ""))

	bases := d.BaseClasses()
	require.Len(t, bases, 2)
	assert.Equal(t, "Base1", bases[0].Text())
	assert.Equal(t, "Base1", bases[0].Name())
	assert.Equal(t, "NS::Base2<int>", bases[1].Text())
	assert.Equal(t, "Base2", bases[1].Name())
	assert.Equal(t, f.offset("Base2"), bases[1].Selection.Start)

	assert.Empty(t, e.BaseClasses())
}

func TestFindPositionForNewMemberFunction(t *testing.T) {
	f := newFixture(t, "file:///c.h", "class C { public: int a; private: int b; };\nclass E {};\n")
	class := f.add(nil, KindClass, "C", "class C { public: int a; private: int b; }", "")
	a := f.add(class, KindField, "a", "int a", "")
	b := f.add(class, KindField, "b", "int b", "")
	c := f.symbol(class)
	e := f.symbol(f.add(nil, KindClass, "E", "class E {}", ""))

	pos, ok := c.FindPositionForNewMemberFunction(AccessPublic, "", false)
	require.True(t, ok)
	assert.True(t, pos.After)
	assert.Equal(t, NewSymbol(a, f.doc).Span().End, pos.Offset)

	pos, ok = c.FindPositionForNewMemberFunction(AccessPrivate, "b", true)
	require.True(t, ok)
	assert.True(t, pos.Before)
	assert.True(t, pos.NextTo)
	assert.Equal(t, f.offset("int b"), pos.Offset)

	pos, ok = c.FindPositionForNewMemberFunction(AccessProtected, "", false)
	require.True(t, ok)
	assert.Equal(t, NewSymbol(b, f.doc).Span().End, pos.Offset)

	pos, ok = e.FindPositionForNewMemberFunction(AccessPublic, "", false)
	require.True(t, ok)
	assert.True(t, pos.EmptyScope)
	assert.Equal(t, f.offset("E {}")+3, pos.Offset)

	_, ok = NewSymbol(a, f.doc).FindPositionForNewMemberFunction(AccessPublic, "", false)
	assert.False(t, ok)
}
