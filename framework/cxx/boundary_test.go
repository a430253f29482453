package cxx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrueStartRecoversTemplateHeader(t *testing.T) {
	f := newFixture(t, "file:///a.h", "// first line\n// second line\ntemplate <typename T>\nT max(T a, T b);\n")
	sym := f.symbol(f.add(nil, KindFunction, "max", "T max(T a, T b)", ""))

	assert.Equal(t, f.offset("template"), sym.TrueStart())
	assert.Equal(t, 0, sym.LeadingCommentStart())
	assert.True(t, sym.HasLeadingComment())
	assert.Equal(t, f.offset(";"), sym.DeclarationEnd())
	assert.Equal(t, f.offset(";")+1, sym.Span().End, "range is extended over the semicolon")
	assert.True(t, sym.IsTemplate())
	assert.True(t, strings.HasPrefix(sym.FullText(), "template <typename T>\nT max"))
}

func TestTrueStartIgnoresUnrelatedAngleBrackets(t *testing.T) {
	f := newFixture(t, "file:///a.h", "std::vector<int> values;\nint count;\n")
	sym := f.symbol(f.add(nil, KindVariable, "count", "int count", ""))
	assert.Equal(t, f.offset("int count"), sym.TrueStart())
	assert.False(t, sym.IsTemplate())
}

func TestLeadingCommentRequiresContiguity(t *testing.T) {
	f := newFixture(t, "file:///a.h", "// detached\n\nvoid f();\nint x; /* trailing */\nvoid g();\n/**\n * Documented.\n */\nvoid h();\n")
	fSym := f.symbol(f.add(nil, KindFunction, "f", "void f()", ""))
	gSym := f.symbol(f.add(nil, KindFunction, "g", "void g()", ""))
	hSym := f.symbol(f.add(nil, KindFunction, "h", "void h()", ""))

	assert.False(t, fSym.HasLeadingComment())
	assert.False(t, gSym.HasLeadingComment())
	require.True(t, hSym.HasLeadingComment())
	assert.Equal(t, f.offset("/**"), hSym.LeadingCommentStart())
	assert.Equal(t, "/**\n * Documented.\n */\n", hSym.LeadingComment())
}

func TestDeclarationEndExcludesConstructorInitializers(t *testing.T) {
	src := "Foo::Foo(int a) : a_(a), b_{a} {}\n"
	f := newFixture(t, "file:///foo.cpp", src)
	sym := f.symbol(f.add(nil, KindFunction, "Foo::Foo", "Foo::Foo(int a) : a_(a), b_{a} {}", ""))

	require.True(t, sym.IsConstructor())
	assert.Equal(t, f.offset(" : a_"), sym.DeclarationEnd())
	assert.Equal(t, strings.LastIndex(src, "{")+1, sym.BodyStart())
	assert.Equal(t, strings.LastIndex(src, "}"), sym.BodyEnd())
	assert.True(t, sym.IsFunctionDefinition())
}

func TestClassBoundaries(t *testing.T) {
	src := "class Widget : public Base {\npublic:\n    Widget();\n};\n"
	f := newFixture(t, "file:///w.h", src)
	class := f.add(nil, KindClass, "Widget", "class Widget", "\n}")
	f.add(class, KindConstructor, "Widget", "Widget();", "")
	sym := f.symbol(class)

	assert.Equal(t, f.offset(" {"), sym.DeclarationEnd())
	assert.Equal(t, f.offset("{")+1, sym.BodyStart())
	assert.Equal(t, f.offset("};"), sym.BodyEnd())
	assert.Equal(t, f.offset("};")+2, sym.Span().End)

	ctor := sym.Children()[0]
	assert.True(t, ctor.IsConstructor())
	assert.Same(t, sym, ctor.Parent())
}

func TestBodyDefaultsToRangeEndWithoutBraces(t *testing.T) {
	f := newFixture(t, "file:///a.h", "void f(int (*cb)(int));\n")
	sym := f.symbol(f.add(nil, KindFunction, "f", "void f(int (*cb)(int))", ""))
	assert.Equal(t, sym.Span().End, sym.BodyStart())
	assert.Equal(t, sym.Span().End, sym.BodyEnd())
	assert.Equal(t, f.offset(";"), sym.DeclarationEnd())
}

func TestBoundaryContainmentAndIdempotence(t *testing.T) {
	src := `namespace N {
// Widget docs.
template <typename T, typename U = int>
class Widget : public Base<T> {
public:
    /* ctor */
    explicit Widget(T value) : value_(value) {}
    virtual ~Widget() = default;
    const T& get() const { return value_; }
private:
    T value_;
};
}
`
	f := newFixture(t, "file:///w.h", src)
	ns := f.add(nil, KindNamespace, "N", "namespace N", "};\n}")
	class := f.add(ns, KindClass, "Widget", "class Widget", "\n}")
	f.add(class, KindConstructor, "Widget", "explicit Widget(T value)", "{}")
	f.add(class, KindMethod, "~Widget", "virtual ~Widget()", "default")
	f.add(class, KindMethod, "get", "const T& get()", "}")
	f.add(class, KindField, "value_", "T value_", "")

	var all []*Symbol
	var collect func(list []*Symbol)
	collect = func(list []*Symbol) {
		for _, sym := range list {
			all = append(all, sym)
			collect(sym.Children())
		}
	}
	collect([]*Symbol{f.symbol(ns)})
	require.Len(t, all, 6)

	for _, sym := range all {
		requireContainment(t, sym)
		fresh := NewSymbol(sym.Source(), f.doc)
		assert.Equal(t, sym.TrueStart(), fresh.TrueStart())
		assert.Equal(t, sym.TrueStart(), sym.TrueStart())
		assert.Equal(t, sym.DeclarationEnd(), fresh.DeclarationEnd())
		assert.Equal(t, sym.AccessSpecifiers(), sym.AccessSpecifiers())
		assert.Equal(t, len(sym.AccessSpecifiers()), len(fresh.AccessSpecifiers()))
	}

	widget := all[1]
	assert.Equal(t, f.offset("template <"), widget.TrueStart())
	assert.Equal(t, f.offset("// Widget docs."), widget.LeadingCommentStart())

	ctor := all[2]
	assert.True(t, ctor.HasLeadingComment())
	assert.Equal(t, f.offset(" : value_"), ctor.DeclarationEnd())
}

func TestScopeStringStartAndImmediateScope(t *testing.T) {
	f := newFixture(t, "file:///a.cpp", "void ns::Outer<T>::Inner::run() {}\nvoid plain() {}\n")
	run := f.symbol(f.add(nil, KindFunction, "ns::Outer<T>::Inner::run", "void ns::Outer", "{}"))
	plain := f.symbol(f.add(nil, KindFunction, "plain", "void plain()", "{}"))

	assert.Equal(t, f.offset("ns::Outer"), run.ScopeStringStart())
	scope := run.ImmediateScope()
	require.NotNil(t, scope)
	assert.Equal(t, "Inner", scope.Name())

	assert.Equal(t, plain.SelectionSpan().Start, plain.ScopeStringStart())
	assert.Nil(t, plain.ImmediateScope())
}
