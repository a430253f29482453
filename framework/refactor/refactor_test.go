package refactor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lexcodex/cxxrefine/framework/config"
	"github.com/lexcodex/cxxrefine/framework/cxx"
	"github.com/lexcodex/cxxrefine/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pairs is a Matcher backed by a fixed table of paths.
type pairs map[string]string

func (p pairs) Match(path string) (string, error) { return p[path], nil }

// fixture writes files to a temp dir and analyzes them with the offline
// tree-sitter source.
type fixture struct {
	t        *testing.T
	dir      string
	source   *tools.TreeSitterSource
	analyzer *cxx.Analyzer
	pairs    pairs
	cfg      *config.Config
	r        *Refactorer
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	f := &fixture{t: t, dir: t.TempDir(), pairs: pairs{}, cfg: config.Default()}
	var paths []string
	for name, text := range files {
		path := f.path(name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
		paths = append(paths, path)
	}
	f.source = tools.NewTreeSitterSource(nil, nil)
	require.NoError(t, f.source.Index(context.Background(), paths))
	f.analyzer = cxx.NewAnalyzer(f.source, cxx.DefaultOptions(), nil)
	f.r = New(f.analyzer, f.cfg, f.pairs, nil)
	return f
}

func (f *fixture) path(name string) string { return filepath.Join(f.dir, filepath.FromSlash(name)) }
func (f *fixture) uri(name string) string  { return cxx.PathToURI(f.path(name)) }

func (f *fixture) pair(header, source string) {
	f.pairs[cxx.URIToPath(f.uri(header))] = cxx.URIToPath(f.uri(source))
	f.pairs[cxx.URIToPath(f.uri(source))] = cxx.URIToPath(f.uri(header))
}

func (f *fixture) doc(name string) cxx.Document {
	f.t.Helper()
	doc, err := f.source.Open(context.Background(), f.uri(name))
	require.NoError(f.t, err)
	return doc
}

// symbol returns the innermost symbol at the first occurrence of marker.
func (f *fixture) symbol(name, marker string) *cxx.Symbol {
	f.t.Helper()
	doc := f.doc(name)
	idx := strings.Index(doc.Text(), marker)
	require.GreaterOrEqual(f.t, idx, 0, "marker %q", marker)
	sym, err := f.analyzer.GetSymbol(context.Background(), doc, doc.PositionAt(idx))
	require.NoError(f.t, err)
	require.NotNil(f.t, sym, "symbol at %q", marker)
	return sym
}

func (f *fixture) apply(edits []TextEdit, name string) string {
	f.t.Helper()
	doc := f.doc(name)
	out, err := Apply(doc.Text(), doc.URI(), edits)
	require.NoError(f.t, err)
	return out
}

const widgetHeader = `#pragma once

namespace ui {

class Widget {
public:
    Widget(int id);
    ~Widget();
    int id() const;

private:
    const int id_;
};

}
`

const widgetSource = `#include "widget.h"

namespace ui {

}
`

func widgetFixture(t *testing.T) *fixture {
	f := newFixture(t, map[string]string{"widget.h": widgetHeader, "widget.cpp": widgetSource})
	f.pair("widget.h", "widget.cpp")
	return f
}

func TestAddDefinitionInMatchingSource(t *testing.T) {
	f := widgetFixture(t)

	edits, err := f.r.AddDefinition(context.Background(), f.symbol("widget.h", "id() const"), "")
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, f.uri("widget.cpp"), edits[0].URI)
	assert.True(t, edits[0].IsInsert())

	assert.Equal(t, "#include \"widget.h\"\n\nnamespace ui {\nint Widget::id() const\n{\n    \n}\n\n}\n", f.apply(edits, "widget.cpp"))
}

func TestAddDefinitionSeedsConstructorInitializers(t *testing.T) {
	f := widgetFixture(t)

	edits, err := f.r.AddDefinition(context.Background(), f.symbol("widget.h", "Widget(int id)"), "")
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0].NewText, "Widget::Widget(int id)\n    : id_()\n{\n    \n}")
}

func TestAddDefinitionBraceStyles(t *testing.T) {
	const header = "struct Timer {\n    Timer();\n    void start();\n};\n"
	tests := []struct {
		name   string
		braces config.BraceFormat
		marker string
		want   string
	}{
		{"same line", config.BraceSameLine, "start", "inline void Timer::start() {\n    \n}"},
		{"new line", config.BraceNewLine, "start", "inline void Timer::start()\n{\n    \n}"},
		{"ctor on new line", config.BraceNewLineCtorDtor, "Timer()", "inline Timer::Timer()\n{\n    \n}"},
		{"others on same line", config.BraceNewLineCtorDtor, "start", "inline void Timer::start() {\n    \n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]string{"timer.h": header})
			f.cfg.Format.FunctionBraces = tt.braces

			edits, err := f.r.AddDefinition(context.Background(), f.symbol("timer.h", tt.marker), f.uri("timer.h"))
			require.NoError(t, err)
			assert.Equal(t, header[:len(header)-1]+"\n\n"+tt.want+"\n", f.apply(edits, "timer.h"))
		})
	}
}

func TestAddDefinitionGeneratesMissingNamespaces(t *testing.T) {
	f := newFixture(t, map[string]string{
		"run.h":   "namespace a {\nnamespace b {\nvoid run();\n}\n}\n",
		"run.cpp": "#include \"run.h\"\n",
	})
	f.pair("run.h", "run.cpp")

	edits, err := f.r.AddDefinition(context.Background(), f.symbol("run.h", "run()"), "")
	require.NoError(t, err)
	assert.Equal(t,
		"#include \"run.h\"\n\nnamespace a {\nnamespace b {\nvoid run()\n{\n    \n}\n} // namespace b\n} // namespace a\n",
		f.apply(edits, "run.cpp"))

	f.cfg.Format.GenerateNamespaces = false
	edits, err = f.r.AddDefinition(context.Background(), f.symbol("run.h", "run()"), "")
	require.NoError(t, err)
	assert.Contains(t, edits[0].NewText, "void a::b::run()")
}

func TestAddDefinitionFailures(t *testing.T) {
	f := newFixture(t, map[string]string{
		"math.h": "constexpr int twice(int v);\ninline void touch();\nint counter;\nvoid orphan();\n",
	})
	ctx := context.Background()

	_, err := f.r.AddDefinition(ctx, f.symbol("math.h", "counter"), "")
	assert.ErrorIs(t, err, ErrNotFunctionDeclaration)

	_, err = f.r.AddDefinition(ctx, f.symbol("math.h", "orphan"), "")
	assert.ErrorIs(t, err, ErrNoMatchingFile)

	source := f.uri("math.cpp")
	_, err = f.r.AddDefinition(ctx, f.symbol("math.h", "twice"), source)
	assert.ErrorIs(t, err, ErrConstexpr)
	_, err = f.r.AddDefinition(ctx, f.symbol("math.h", "touch"), source)
	assert.ErrorIs(t, err, ErrInline)

	edits, err := f.r.AddDefinition(ctx, f.symbol("math.h", "twice"), f.uri("math.h"))
	require.NoError(t, err)
	assert.Contains(t, edits[0].NewText, "constexpr int twice(int v)")
}

func TestAddDefinitionDetectsExistingDefinition(t *testing.T) {
	f := newFixture(t, map[string]string{
		"widget.h":   widgetHeader,
		"widget.cpp": "#include \"widget.h\"\n\nint ui::Widget::id() const { return id_; }\n",
	})
	f.pair("widget.h", "widget.cpp")

	_, err := f.r.AddDefinition(context.Background(), f.symbol("widget.h", "id() const"), "")
	assert.ErrorIs(t, err, ErrDefinitionExists)
	assert.Contains(t, err.Error(), "widget.cpp:3")
}

const counterHeader = `class Counter {
public:
    int next() { return ++value_; }
private:
    int value_ = 0;
};
`

func TestMoveDefinitionOutOfClass(t *testing.T) {
	f := newFixture(t, map[string]string{
		"counter.h":   counterHeader,
		"counter.cpp": "#include \"counter.h\"\n",
	})
	f.pair("counter.h", "counter.cpp")

	edits, err := f.r.MoveDefinition(context.Background(), f.symbol("counter.h", "next"), "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.uri("counter.h"), f.uri("counter.cpp")}, URIs(edits))

	assert.Equal(t, "class Counter {\npublic:\n    int next();\nprivate:\n    int value_ = 0;\n};\n", f.apply(edits, "counter.h"))
	assert.Equal(t, "#include \"counter.h\"\n\nint Counter::next() { return ++value_; }\n", f.apply(edits, "counter.cpp"))
}

func TestMoveDefinitionBelowClass(t *testing.T) {
	f := newFixture(t, map[string]string{"counter.h": counterHeader})

	edits, err := f.r.MoveDefinition(context.Background(), f.symbol("counter.h", "next"), f.uri("counter.h"))
	require.NoError(t, err)
	got := f.apply(edits, "counter.h")
	assert.Contains(t, got, "    int next();\n")
	assert.True(t, strings.HasSuffix(got, "};\n\ninline int Counter::next() { return ++value_; }\n"), got)
}

func TestMoveDefinitionMergesIntoDeclaration(t *testing.T) {
	f := newFixture(t, map[string]string{
		"counter.h":   "class Counter {\npublic:\n    int next();\nprivate:\n    int value_ = 0;\n};\n",
		"counter.cpp": "#include \"counter.h\"\n\nint Counter::next()\n{\n    return ++value_;\n}\n",
	})
	f.pair("counter.h", "counter.cpp")

	edits, err := f.r.MoveDefinition(context.Background(), f.symbol("counter.cpp", "next"), "")
	require.NoError(t, err)
	require.Len(t, edits, 2)

	assert.Equal(t,
		"class Counter {\npublic:\n    int next()\n    {\n        return ++value_;\n    }\nprivate:\n    int value_ = 0;\n};\n",
		f.apply(edits, "counter.h"))
	assert.Equal(t, "#include \"counter.h\"\n\n", f.apply(edits, "counter.cpp"))
}

func TestMoveDefinitionFailures(t *testing.T) {
	f := newFixture(t, map[string]string{
		"calc.h":   "struct Calc {\n    constexpr int one() const { return 1; }\n    int two() const;\n};\n",
		"calc.cpp": "int Missing::three() { return 3; }\n",
	})
	f.pair("calc.h", "calc.cpp")
	ctx := context.Background()

	_, err := f.r.MoveDefinition(ctx, f.symbol("calc.h", "two"), "")
	assert.ErrorIs(t, err, ErrNotFunctionDefinition)

	_, err = f.r.MoveDefinition(ctx, f.symbol("calc.h", "one"), "")
	assert.ErrorIs(t, err, ErrConstexpr)

	_, err = f.r.MoveDefinition(ctx, f.symbol("calc.cpp", "three"), "")
	assert.ErrorIs(t, err, ErrNoParentClass)
}

func TestAddDeclarationForMember(t *testing.T) {
	f := newFixture(t, map[string]string{
		"counter.h":   "class Counter {\npublic:\n    int next();\nprivate:\n    int value_ = 0;\n};\n",
		"counter.cpp": "#include \"counter.h\"\n\nvoid Counter::reset()\n{\n    value_ = 0;\n}\n",
	})
	f.pair("counter.h", "counter.cpp")

	edits, err := f.r.AddDeclaration(context.Background(), f.symbol("counter.cpp", "reset"), "")
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t,
		"class Counter {\npublic:\n    int next();\n\n    void reset();\nprivate:\n    int value_ = 0;\n};\n",
		f.apply(edits, "counter.h"))

	_, err = f.r.AddDeclaration(context.Background(), f.symbol("counter.h", "next"), "")
	assert.ErrorIs(t, err, ErrNotFunctionDefinition)
}

func TestAddDeclarationOpensPublicSection(t *testing.T) {
	f := newFixture(t, map[string]string{
		"secret.h":   "class Secret {\n    int value_;\n};\n",
		"secret.cpp": "int Secret::reveal() const { return value_; }\n",
	})

	edits, err := f.r.AddDeclaration(context.Background(), f.symbol("secret.cpp", "reveal"), "")
	require.NoError(t, err)
	assert.Equal(t, "class Secret {\n    int value_;\n\npublic:\n    int reveal() const;\n};\n", f.apply(edits, "secret.h"))
}

func TestAddDeclarationForFreeFunction(t *testing.T) {
	f := newFixture(t, map[string]string{
		"util.h":   "#pragma once\n\nnamespace util {\n\nint other();\n\n}\n",
		"util.cpp": "#include \"util.h\"\n\nnamespace util {\n\nint clamp(int v)\n{\n    return v < 0 ? 0 : v;\n}\n\n}\n",
	})
	f.pair("util.h", "util.cpp")
	ctx := context.Background()

	edits, err := f.r.AddDeclaration(ctx, f.symbol("util.cpp", "clamp"), "")
	require.NoError(t, err)
	assert.Equal(t, "#pragma once\n\nnamespace util {\n\nint other();\n\nint clamp(int v);\n\n}\n", f.apply(edits, "util.h"))

	edits, err = f.r.AddDeclaration(ctx, f.symbol("util.cpp", "clamp"), f.uri("util.cpp"))
	require.NoError(t, err)
	assert.Contains(t, f.apply(edits, "util.cpp"), "namespace util {\n\nint clamp(int v);\n\nint clamp(int v)\n{")
}

func TestAddDeclarationRejectsDeclaredFunctions(t *testing.T) {
	f := newFixture(t, map[string]string{
		"counter.h":   "class Counter {\npublic:\n    int next();\n    int peek() const { return 0; }\n};\n",
		"counter.cpp": "#include \"counter.h\"\n\nint Counter::next()\n{\n    return 1;\n}\n",
	})
	ctx := context.Background()

	_, err := f.r.AddDeclaration(ctx, f.symbol("counter.cpp", "next"), "")
	assert.ErrorIs(t, err, ErrDeclarationExists)

	_, err = f.r.AddDeclaration(ctx, f.symbol("counter.h", "peek"), "")
	assert.ErrorIs(t, err, ErrDeclarationExists)
}
