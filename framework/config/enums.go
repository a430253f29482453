package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// BraceFormat decides where the opening curly brace of a generated function
// or namespace goes.
type BraceFormat string

const (
	BraceAuto            BraceFormat = "auto"
	BraceSameLine        BraceFormat = "same_line"
	BraceNewLineCtorDtor BraceFormat = "new_line_ctor_dtor"
	BraceNewLine         BraceFormat = "new_line"
)

// NamespaceIndentation decides whether bodies generated inside a namespace
// are indented.
type NamespaceIndentation string

const (
	IndentAuto   NamespaceIndentation = "auto"
	IndentAlways NamespaceIndentation = "always"
	IndentNever  NamespaceIndentation = "never"
)

// HeaderGuardStyle selects #define guards, #pragma once, or both.
type HeaderGuardStyle string

const (
	GuardDefine     HeaderGuardStyle = "define"
	GuardPragmaOnce HeaderGuardStyle = "pragma_once"
	GuardBoth       HeaderGuardStyle = "both"
)

var (
	braceFormats     = []BraceFormat{BraceAuto, BraceSameLine, BraceNewLineCtorDtor, BraceNewLine}
	indentations     = []NamespaceIndentation{IndentAuto, IndentAlways, IndentNever}
	headerGuardStyle = []HeaderGuardStyle{GuardDefine, GuardPragmaOnce, GuardBoth}
)

func parseEnum[T ~string](kind, value string, allowed []T) (T, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for _, candidate := range allowed {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	names := make([]string, 0, len(allowed))
	for _, candidate := range allowed {
		names = append(names, string(candidate))
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q (want one of %s)", kind, value, strings.Join(names, ", "))
}

func ParseBraceFormat(value string) (BraceFormat, error) {
	return parseEnum("brace format", value, braceFormats)
}

func ParseNamespaceIndentation(value string) (NamespaceIndentation, error) {
	return parseEnum("namespace indentation", value, indentations)
}

func ParseHeaderGuardStyle(value string) (HeaderGuardStyle, error) {
	return parseEnum("header guard style", value, headerGuardStyle)
}

func (f *BraceFormat) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseBraceFormat(node.Value)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (n *NamespaceIndentation) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseNamespaceIndentation(node.Value)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

func (s *HeaderGuardStyle) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseHeaderGuardStyle(node.Value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
