package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lexcodex/cxxrefine/framework/cxx"
)

type symbolView struct {
	Name     string       `json:"name" yaml:"name"`
	Kind     string       `json:"kind" yaml:"kind"`
	Detail   string       `json:"detail,omitempty" yaml:"detail,omitempty"`
	Range    string       `json:"range" yaml:"range"`
	Children []symbolView `json:"children,omitempty" yaml:"children,omitempty"`
}

func viewSymbols(doc cxx.Document, symbols []*cxx.SourceSymbol) []symbolView {
	views := make([]symbolView, 0, len(symbols))
	for _, src := range symbols {
		sym := cxx.NewSymbol(src, doc)
		views = append(views, symbolView{
			Name:     src.Name,
			Kind:     src.Kind.String(),
			Detail:   src.Detail,
			Range:    spanText(doc, sym.FullSpan()),
			Children: viewSymbols(doc, src.Children),
		})
	}
	return views
}

func newSymbolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "symbols [file]",
		Short: "List the symbol tree of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				doc, err := s.open(ctx, args[0])
				if err != nil {
					return err
				}
				symbols, err := s.analyzer.Symbols(ctx, doc)
				if err != nil {
					return err
				}
				return printValue(cmd.OutOrStdout(), viewSymbols(doc, symbols))
			})
		},
	}
}

type inspectView struct {
	Name           string            `json:"name" yaml:"name"`
	Kind           string            `json:"kind" yaml:"kind"`
	Location       string            `json:"location" yaml:"location"`
	Scopes         []string          `json:"scopes,omitempty" yaml:"scopes,omitempty"`
	ImmediateScope string            `json:"immediate_scope,omitempty" yaml:"immediate_scope,omitempty"`
	ParentClass    string            `json:"parent_class,omitempty" yaml:"parent_class,omitempty"`
	Template       string            `json:"template,omitempty" yaml:"template,omitempty"`
	TemplateParams string            `json:"template_parameters,omitempty" yaml:"template_parameters,omitempty"`
	LeadingComment string            `json:"leading_comment,omitempty" yaml:"leading_comment,omitempty"`
	Text           string            `json:"text" yaml:"text"`
	Boundaries     map[string]string `json:"boundaries" yaml:"boundaries"`
	Properties     []string          `json:"properties,omitempty" yaml:"properties,omitempty"`
	Declaration    string            `json:"declaration,omitempty" yaml:"declaration,omitempty"`
	Definition     string            `json:"definition,omitempty" yaml:"definition,omitempty"`
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file:line:column]",
		Short: "Describe the symbol at a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				sym, err := s.symbolAt(ctx, args[0])
				if err != nil {
					return err
				}
				view, err := inspect(ctx, s.analyzer, sym)
				if err != nil {
					return err
				}
				return printValue(cmd.OutOrStdout(), view)
			})
		},
	}
}

func inspect(ctx context.Context, a *cxx.Analyzer, sym *cxx.Symbol) (inspectView, error) {
	doc := sym.Document()
	view := inspectView{
		Name:           sym.Name(),
		Kind:           sym.Kind().String(),
		Location:       location(doc.URI(), sym.RangeOf(sym.SelectionSpan())),
		Template:       sym.TemplateStatement(false),
		TemplateParams: sym.TemplateParameters(),
		LeadingComment: sym.LeadingComment(),
		Text:           sym.FullText(),
		Boundaries: map[string]string{
			"leading_comment": spanText(doc, cxx.Span{Start: sym.LeadingCommentStart(), End: sym.TrueStart()}),
			"signature":       spanText(doc, cxx.Span{Start: sym.TrueStart(), End: sym.DeclarationEnd()}),
			"body":            spanText(doc, sym.BodySpan()),
		},
	}
	for _, scope := range sym.Scopes() {
		view.Scopes = append(view.Scopes, scope.Name())
	}
	if scope := sym.ImmediateScope(); scope != nil {
		view.ImmediateScope = scope.Name()
	}
	parent, err := a.GetParentClass(ctx, sym)
	if err != nil {
		return inspectView{}, err
	}
	if parent != nil {
		view.ParentClass = parent.Name()
	}
	primitive, err := a.IsPrimitive(ctx, sym)
	if err != nil {
		return inspectView{}, err
	}

	for _, p := range []struct {
		name string
		ok   bool
	}{
		{"function", sym.IsFunction()},
		{"function_declaration", sym.IsFunctionDeclaration()},
		{"function_definition", sym.IsFunctionDefinition()},
		{"constructor", sym.IsConstructor()},
		{"destructor", sym.IsDestructor()},
		{"virtual", sym.IsVirtual()},
		{"pure_virtual", sym.IsPureVirtual()},
		{"deleted_or_defaulted", sym.IsDeletedOrDefaulted()},
		{"constexpr", sym.IsConstexpr()},
		{"inline", sym.IsInline()},
		{"static", sym.IsStatic()},
		{"const", sym.IsConst()},
		{"pointer", sym.IsPointer()},
		{"reference", sym.IsReference()},
		{"template", sym.IsTemplate()},
		{"typedef", sym.IsTypedef()},
		{"type_alias", sym.IsTypeAlias()},
		{"variable", sym.IsVariable()},
		{"member_variable", sym.IsMemberVariable()},
		{"class_or_struct", sym.IsClassOrStruct()},
		{"primitive", primitive},
	} {
		if p.ok {
			view.Properties = append(view.Properties, p.name)
		}
	}

	// Synthesize for the end of the symbol's own file.
	pos := doc.PositionAt(len(doc.Text()))
	switch {
	case sym.IsFunctionDeclaration():
		if view.Definition, err = a.NewFunctionDefinition(ctx, sym, doc, pos); err != nil {
			return inspectView{}, err
		}
	case sym.IsFunctionDefinition():
		view.Declaration = sym.NewFunctionDeclaration()
	}
	return view, nil
}

type accessView struct {
	Class       string              `json:"class" yaml:"class"`
	Specifiers  []string            `json:"specifiers,omitempty" yaml:"specifiers,omitempty"`
	Ranges      map[string][]string `json:"ranges" yaml:"ranges"`
	BaseClasses []string            `json:"base_classes,omitempty" yaml:"base_classes,omitempty"`
	Members     []string            `json:"members,omitempty" yaml:"members,omitempty"`
	NeedsInit   []string            `json:"requires_initialization,omitempty" yaml:"requires_initialization,omitempty"`
}

func newAccessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "access [file:line:column]",
		Short: "Show access sections, base classes and members of a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				sym, err := s.symbolAt(ctx, args[0])
				if err != nil {
					return err
				}
				for sym != nil && !sym.IsClassOrStruct() {
					sym = sym.Parent()
				}
				if sym == nil {
					return errNoClass(args[0])
				}
				return printValue(cmd.OutOrStdout(), describeAccess(sym))
			})
		},
	}
}

func describeAccess(class *cxx.Symbol) accessView {
	doc := class.Document()
	view := accessView{Class: class.Name(), Ranges: make(map[string][]string)}
	for _, spec := range class.AccessSpecifiers() {
		view.Specifiers = append(view.Specifiers, spec.Name())
	}
	for _, level := range []cxx.AccessLevel{cxx.AccessPublic, cxx.AccessProtected, cxx.AccessPrivate} {
		for _, span := range class.RangesOfAccess(level) {
			view.Ranges[level.String()] = append(view.Ranges[level.String()], spanText(doc, span))
		}
	}
	for _, base := range class.BaseClasses() {
		view.BaseClasses = append(view.BaseClasses, base.Name())
	}
	for _, member := range class.MemberVariables() {
		view.Members = append(view.Members, member.Name())
	}
	for _, member := range class.MemberVariablesThatRequireInitialization() {
		view.NeedsInit = append(view.NeedsInit, member.Name())
	}
	return view
}
