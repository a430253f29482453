package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lexcodex/cxxrefine/framework/cxx"
)

// parseLocation splits "path:line:column" (1-based) into a path and a cxx
// position. The column defaults to 1.
func parseLocation(arg string) (string, cxx.Position, error) {
	parts := strings.Split(arg, ":")
	numbers := make([]int, 0, 2)
	for len(parts) > 1 && len(numbers) < 2 {
		n, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			break
		}
		numbers = append([]int{n}, numbers...)
		parts = parts[:len(parts)-1]
	}
	path := strings.Join(parts, ":")
	if path == "" || len(numbers) == 0 {
		return "", cxx.Position{}, fmt.Errorf("location %q: want path:line[:column]", arg)
	}
	line, column := numbers[0], 1
	if len(numbers) == 2 {
		column = numbers[1]
	}
	if line < 1 || column < 1 {
		return "", cxx.Position{}, fmt.Errorf("location %q: line and column start at 1", arg)
	}
	return path, cxx.Position{Line: line - 1, Character: column - 1}, nil
}

// printValue renders v as YAML, or as indented JSON with --json.
func printValue(w io.Writer, v any) error {
	if flagJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// location renders a range as path:line:column of its start, 1-based.
func location(uri string, r cxx.Range) string {
	return fmt.Sprintf("%s:%d:%d", cxx.URIToPath(uri), r.Start.Line+1, r.Start.Character+1)
}

func spanText(doc cxx.Document, span cxx.Span) string {
	start, end := doc.PositionAt(span.Start), doc.PositionAt(span.End)
	return fmt.Sprintf("%d:%d-%d:%d", start.Line+1, start.Character+1, end.Line+1, end.Character+1)
}
