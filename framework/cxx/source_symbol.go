package cxx

import "strings"

// SourceSymbol is a coarse symbol as reported by a language server: a name, a
// kind, an overall range and the range of the identifier.
type SourceSymbol struct {
	Name           string          `json:"name" yaml:"name"`
	Detail         string          `json:"detail,omitempty" yaml:"detail,omitempty"`
	Kind           Kind            `json:"kind" yaml:"kind"`
	Range          Range           `json:"range" yaml:"range"`
	SelectionRange Range           `json:"selection_range" yaml:"selection_range"`
	Children       []*SourceSymbol `json:"children,omitempty" yaml:"children,omitempty"`

	// Parent is re-derived by LinkParents for every snapshot and never
	// serialized.
	Parent *SourceSymbol `json:"-" yaml:"-"`
}

// LinkParents sets the Parent back-link of every symbol in the forest.
func LinkParents(symbols []*SourceSymbol) {
	var link func(parent *SourceSymbol, children []*SourceSymbol)
	link = func(parent *SourceSymbol, children []*SourceSymbol) {
		for _, child := range children {
			child.Parent = parent
			link(child, child.Children)
		}
	}
	link(nil, symbols)
}

// BaseName strips any scope qualification clangd includes for out-of-line
// definitions ("Foo::bar" -> "bar").
func (s *SourceSymbol) BaseName() string {
	name := s.Name
	if idx := strings.LastIndex(name, "::"); idx >= 0 {
		name = name[idx+2:]
	}
	return strings.TrimSpace(name)
}

// Scopes returns the enclosing namespaces, classes and structs, outermost first.
func (s *SourceSymbol) Scopes() []*SourceSymbol {
	var scopes []*SourceSymbol
	for p := s.Parent; p != nil; p = p.Parent {
		if p.Kind.IsScope() {
			scopes = append([]*SourceSymbol{p}, scopes...)
		}
	}
	return scopes
}

// Walk visits the forest depth first until visit returns false.
func Walk(symbols []*SourceSymbol, visit func(*SourceSymbol) bool) bool {
	for _, sym := range symbols {
		if !visit(sym) {
			return false
		}
		if !Walk(sym.Children, visit) {
			return false
		}
	}
	return true
}
