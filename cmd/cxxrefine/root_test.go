package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), out.String())
	return out.String()
}

func writeWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
	}
	return dir
}

const cliHeader = `#pragma once

namespace ui {

class Widget {
public:
    int id() const;

private:
    int id_;
};

}
`

func TestAddDefinitionWritesMatchingSource(t *testing.T) {
	dir := writeWorkspace(t, map[string]string{
		"widget.h":   cliHeader,
		"widget.cpp": "#include \"widget.h\"\n\nnamespace ui {\n\n}\n",
	})

	out := runCLI(t, "--root", dir, "add-definition", "widget.h:7:9", "--write")
	assert.Contains(t, out, "updated "+filepath.Join(dir, "widget.cpp"))

	data, err := os.ReadFile(filepath.Join(dir, "widget.cpp"))
	require.NoError(t, err)
	assert.Equal(t, "#include \"widget.h\"\n\nnamespace ui {\nint Widget::id() const\n{\n    \n}\n\n}\n", string(data))
}

func TestInspectAndSymbols(t *testing.T) {
	dir := writeWorkspace(t, map[string]string{"widget.h": cliHeader})

	out := runCLI(t, "--root", dir, "inspect", "widget.h:7:9")
	assert.Contains(t, out, "name: id")
	assert.Contains(t, out, "- function_declaration")
	assert.Contains(t, out, "parent_class: Widget")
	assert.Contains(t, out, "inline int ui::Widget::id() const")

	out = runCLI(t, "--root", dir, "--json", "symbols", "widget.h")
	assert.Contains(t, out, `"name": "Widget"`)

	out = runCLI(t, "--root", dir, "access", "widget.h:10:9")
	assert.Contains(t, out, "class: Widget")
	assert.Contains(t, out, "- id_")
}

func TestHeaderGuardCommand(t *testing.T) {
	dir := writeWorkspace(t, map[string]string{"point.h": "struct Point {};\n"})

	runCLI(t, "--root", dir, "header-guard", "point.h", "--write")
	data, err := os.ReadFile(filepath.Join(dir, "point.h"))
	require.NoError(t, err)
	assert.Equal(t, "#ifndef POINT_H\n#define POINT_H\n\nstruct Point {};\n\n#endif // POINT_H\n", string(data))
}

func TestConfigSetAndGet(t *testing.T) {
	dir := t.TempDir()

	runCLI(t, "--root", dir, "config", "set", "format.function_braces", "same_line")
	assert.FileExists(t, filepath.Join(dir, ".cxxrefine.yaml"))

	out := runCLI(t, "--root", dir, "config", "get", "format.function_braces")
	assert.Equal(t, "same_line\n", out)

	root := newRootCmd()
	root.SetArgs([]string{"--root", dir, "config", "set", "format.function_braces", "sideways"})
	root.SetOut(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}

func TestAddIncludeCommand(t *testing.T) {
	dir := writeWorkspace(t, map[string]string{"point.cpp": "#include \"point.h\"\n\nint x;\n"})

	runCLI(t, "--root", dir, "add-include", "point.cpp", "<vector>", "--write")
	data, err := os.ReadFile(filepath.Join(dir, "point.cpp"))
	require.NoError(t, err)
	assert.Equal(t, "#include <vector>\n#include \"point.h\"\n\nint x;\n", string(data))
}
