package refactor

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexcodex/cxxrefine/framework/cxx"
)

// Placement selects where the definition of a generated member goes.
type Placement string

const (
	PlaceInline      Placement = "inline"
	PlaceCurrentFile Placement = "current_file"
	PlaceSourceFile  Placement = "source_file"
)

// ParsePlacement accepts inline, current_file or source_file.
func ParsePlacement(value string) (Placement, error) {
	normalized := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(value)))
	switch Placement(normalized) {
	case PlaceInline, PlaceCurrentFile, PlaceSourceFile:
		return Placement(normalized), nil
	}
	return "", fmt.Errorf("invalid placement %q (want one of inline, current_file, source_file)", value)
}

// EqualityOptions configures GenerateEqualityOperators.
type EqualityOptions struct {
	// Members lists the compared member variables; empty compares every
	// non-static member.
	Members  []string
	Equal    Placement
	NotEqual Placement // empty skips operator!=
}

type operator struct {
	name   string
	params string
	body   string
}

func (op operator) signature(scope string) string {
	return "bool " + scope + op.name + "(" + op.params + ") const"
}

// GenerateEqualityOperators declares operator== (and operator!=) in the
// public section of class and defines them where opts says.
func (r *Refactorer) GenerateEqualityOperators(ctx context.Context, class *cxx.Symbol, opts EqualityOptions) ([]TextEdit, error) {
	if class == nil || !class.IsClassOrStruct() {
		return nil, ErrNotClassOrStruct
	}
	members, err := selectMembers(class, opts.Members)
	if err != nil {
		return nil, err
	}
	doc := class.Document()
	eol := doc.EOL()
	pos, ok := class.FindPositionForNewMemberFunction(cxx.AccessPublic, "", false)
	if !ok {
		return nil, ErrNotClassOrStruct
	}

	params := "const " + class.Name() + " &other"
	ops := []operator{{name: "operator==", params: params, body: equalBody(members, eol, r.unit())}}
	placements := []Placement{opts.Equal}
	if opts.NotEqual != "" {
		ops = append(ops, operator{name: "operator!=", params: params, body: "return !(*this == other);"})
		placements = append(placements, opts.NotEqual)
	}

	var inClass []string
	separator := eol
	outOfClass := make(map[Placement][]operator)
	for i, op := range ops {
		switch placements[i] {
		case PlaceCurrentFile, PlaceSourceFile:
			inClass = append(inClass, op.signature("")+";")
			outOfClass[placements[i]] = append(outOfClass[placements[i]], op)
		default:
			inClass = append(inClass, r.functionSkeleton(op.signature(""), false, nil, op.body, eol))
			separator = eol + eol
		}
	}
	if outOfClass[PlaceSourceFile] != nil && isTemplated(class) {
		return nil, ErrTemplateInSource
	}

	p := r.memberPlacement(class, pos)
	edits := []TextEdit{insertAt(doc, pos.Offset, p.format(strings.Join(inClass, separator), doc))}
	for _, where := range []Placement{PlaceCurrentFile, PlaceSourceFile} {
		if len(outOfClass[where]) == 0 {
			continue
		}
		edit, err := r.defineOperators(ctx, class, outOfClass[where], where)
		if err != nil {
			return nil, err
		}
		edits = append(edits, edit)
	}
	r.logger.Printf("[refactor] equality operators for %s comparing %d members", class.Name(), len(members))
	return edits, nil
}

func (r *Refactorer) defineOperators(ctx context.Context, class *cxx.Symbol, ops []operator, where Placement) (TextEdit, error) {
	doc := class.Document()
	target := doc
	var p placement
	var missing []string
	if where == PlaceSourceFile {
		uri, err := r.MatchingURI(doc.URI())
		if err != nil {
			return TextEdit{}, err
		}
		if target, err = r.open(ctx, doc, uri); err != nil {
			return TextEdit{}, err
		}
		if p, missing, err = r.targetPlacement(ctx, class, target); err != nil {
			return TextEdit{}, err
		}
	} else {
		p = sameFilePlacement(class)
	}
	generate := len(missing) > 0 && r.cfg.Format.GenerateNamespaces

	scope, err := r.analyzer.ScopeString(ctx, class, target, target.PositionAt(p.Offset))
	if err != nil {
		return TextEdit{}, err
	}
	if generate {
		scope = generatedScope(scope, missing)
	}
	eol := target.EOL()
	var prefix string
	if class.IsTemplate() {
		prefix = class.TemplateStatement(true) + eol
	} else if target.IsHeader() {
		prefix = "inline "
	}
	definitions := make([]string, 0, len(ops))
	for _, op := range ops {
		definitions = append(definitions, prefix+r.functionSkeleton(op.signature(scope), false, nil, op.body, eol))
	}
	text := strings.Join(definitions, eol+eol)
	if generate {
		text = r.wrapInNamespaces(ctx, text, missing, doc, eol)
	}
	return insertAt(target, p.Offset, p.format(text, target)), nil
}

func equalBody(members []*cxx.Symbol, eol, indent string) string {
	if len(members) == 0 {
		return "(void)other;" + eol + "return true;"
	}
	var b strings.Builder
	b.WriteString("return ")
	for i, member := range members {
		if i > 0 {
			b.WriteString(eol + indent + "&& ")
		}
		b.WriteString(member.Name() + " == other." + member.Name())
	}
	b.WriteString(";")
	return b.String()
}

func selectMembers(class *cxx.Symbol, names []string) ([]*cxx.Symbol, error) {
	all := class.NonStaticMemberVariables()
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]*cxx.Symbol, len(all))
	for _, member := range all {
		byName[member.Name()] = member
	}
	selected := make([]*cxx.Symbol, 0, len(names))
	for _, name := range names {
		member, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%s has no non-static member %q", class.Name(), name)
		}
		selected = append(selected, member)
	}
	return selected, nil
}

// isTemplated reports whether class or one of its enclosing classes is a
// template.
func isTemplated(class *cxx.Symbol) bool {
	if class.IsTemplate() {
		return true
	}
	for _, scope := range class.Scopes() {
		if scope.IsClassOrStruct() && scope.IsTemplate() {
			return true
		}
	}
	return false
}
