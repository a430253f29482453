package refactor

import (
	"context"

	"github.com/lexcodex/cxxrefine/framework/cxx"
)

// AddDeclaration returns the edit that declares the function definition def.
// Members are declared in the public section of their class. Free functions
// are declared in targetURI (the matching header when empty and def lives in
// a source file) inside the matching namespace, or above the first function
// definition when targetURI is def's own file.
func (r *Refactorer) AddDeclaration(ctx context.Context, def *cxx.Symbol, targetURI string) ([]TextEdit, error) {
	if def == nil || !def.IsFunctionDefinition() {
		return nil, ErrNotFunctionDefinition
	}
	if p := def.Parent(); p != nil && p.IsClassOrStruct() {
		return nil, ErrDeclarationExists
	}
	declaration, err := r.findDeclaration(ctx, def)
	if err != nil {
		return nil, err
	}
	if declaration != nil {
		return nil, ErrDeclarationExists
	}

	if def.ImmediateScope() != nil {
		class, err := r.analyzer.GetParentClass(ctx, def)
		if err != nil {
			return nil, err
		}
		if class == nil {
			return nil, ErrNoParentClass
		}
		return r.addMemberDeclaration(ctx, def, class)
	}

	doc := def.Document()
	if targetURI == "" {
		targetURI = doc.URI()
		if !doc.IsHeader() {
			if matching, err := r.MatchingURI(doc.URI()); err == nil {
				targetURI = matching
			}
		}
	}
	target, err := r.open(ctx, doc, targetURI)
	if err != nil {
		return nil, err
	}

	var p placement
	var missing []string
	if target.URI() == doc.URI() {
		first, err := r.firstDefinition(ctx, def)
		if err != nil {
			return nil, err
		}
		p = before(first)
	} else if p, missing, err = r.targetPlacement(ctx, def, target); err != nil {
		return nil, err
	}
	generate := len(missing) > 0 && r.cfg.Format.GenerateNamespaces
	pos := target.PositionAt(p.Offset)

	var text string
	if generate {
		scope, err := r.analyzer.ScopeString(ctx, def, target, pos)
		if err != nil {
			return nil, err
		}
		scope = generatedScope(scope, missing)
		text, err = r.analyzer.FormatDeclaration(ctx, def, target, pos, &scope, false)
		if err != nil {
			return nil, err
		}
		if text != "" {
			text = r.wrapInNamespaces(ctx, text+";", missing, doc, target.EOL())
		}
	} else if text, err = r.analyzer.GetDeclarationForTargetPosition(ctx, def, target, pos); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ErrFormatFailed
	}
	r.logger.Printf("[refactor] add declaration of %s to %s", def.Name(), target.URI())
	return []TextEdit{insertAt(target, p.Offset, p.format(text, target))}, nil
}

func (r *Refactorer) addMemberDeclaration(ctx context.Context, def, class *cxx.Symbol) ([]TextEdit, error) {
	pos, ok := class.FindPositionForNewMemberFunction(cxx.AccessPublic, "", false)
	if !ok {
		return nil, ErrNoParentClass
	}
	target := class.Document()
	text, err := r.analyzer.GetDeclarationForTargetPosition(ctx, def, target, target.PositionAt(pos.Offset))
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ErrFormatFailed
	}
	p := r.memberPlacement(class, pos)
	r.logger.Printf("[refactor] declare %s in %s", def.Name(), class.Name())
	return []TextEdit{insertAt(target, pos.Offset, p.format(text, target))}, nil
}

// firstDefinition is the first function definition among def's siblings.
func (r *Refactorer) firstDefinition(ctx context.Context, def *cxx.Symbol) (*cxx.Symbol, error) {
	var siblings []*cxx.Symbol
	if p := def.Parent(); p != nil {
		siblings = p.Children()
	} else {
		doc := def.Document()
		symbols, err := r.analyzer.Symbols(ctx, doc)
		if err != nil {
			return nil, err
		}
		for _, src := range symbols {
			siblings = append(siblings, cxx.NewSymbol(src, doc))
		}
	}
	for _, sibling := range siblings {
		if sibling.IsFunctionDefinition() {
			return sibling, nil
		}
	}
	return def, nil
}
