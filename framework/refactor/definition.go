package refactor

import (
	"context"
	"fmt"
	"strings"

	"github.com/lexcodex/cxxrefine/framework/cxx"
)

// AddDefinition returns the edit that adds an empty definition for the
// function declaration decl to targetURI. An empty targetURI means the source
// file matching decl's header, or decl's own file when it is a source file.
// Constructors get an initializer list for the members that require one.
func (r *Refactorer) AddDefinition(ctx context.Context, decl *cxx.Symbol, targetURI string) ([]TextEdit, error) {
	if decl == nil || !decl.IsFunctionDeclaration() {
		return nil, ErrNotFunctionDeclaration
	}
	doc := decl.Document()
	if targetURI == "" {
		targetURI = doc.URI()
		if doc.IsHeader() {
			matching, err := r.MatchingURI(doc.URI())
			if err != nil {
				return nil, err
			}
			targetURI = matching
		}
	}
	if targetURI != doc.URI() {
		if decl.IsConstexpr() {
			return nil, ErrConstexpr
		}
		if decl.IsInline() {
			return nil, ErrInline
		}
	}
	existing, err := r.existingDefinition(ctx, decl)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s:%d", ErrDefinitionExists, cxx.URIToPath(existing.URI), existing.Range.Start.Line+1)
	}

	target, err := r.open(ctx, doc, targetURI)
	if err != nil {
		return nil, err
	}
	var p placement
	var missing []string
	if target.URI() == doc.URI() {
		p = sameFilePlacement(decl)
	} else if p, missing, err = r.targetPlacement(ctx, decl, target); err != nil {
		return nil, err
	}
	generate := len(missing) > 0 && r.cfg.Format.GenerateNamespaces
	pos := target.PositionAt(p.Offset)

	var signature string
	if generate {
		scope, err := r.analyzer.ScopeString(ctx, decl, target, pos)
		if err != nil {
			return nil, err
		}
		scope = generatedScope(scope, missing)
		signature, err = r.analyzer.FormatDeclaration(ctx, decl, target, pos, &scope, true)
		if err != nil {
			return nil, err
		}
	} else if signature, err = r.analyzer.NewFunctionDefinition(ctx, decl, target, pos); err != nil {
		return nil, err
	}
	if signature == "" {
		return nil, ErrFormatFailed
	}

	var initializers []*cxx.Symbol
	if decl.IsConstructor() && decl.Parent() != nil {
		initializers = decl.Parent().MemberVariablesThatRequireInitialization()
	}
	eol := target.EOL()
	text := r.functionSkeleton(signature, decl.IsConstructor() || decl.IsDestructor(), initializers, "", eol)
	if generate {
		text = r.wrapInNamespaces(ctx, text, missing, doc, eol)
	}
	r.logger.Printf("[refactor] add definition of %s to %s", decl.Name(), target.URI())
	return []TextEdit{insertAt(target, p.Offset, p.format(text, target))}, nil
}

// existingDefinition asks the symbol source where decl is defined. Lookup
// failures count as "no definition" unless ctx is done.
func (r *Refactorer) existingDefinition(ctx context.Context, decl *cxx.Symbol) (*cxx.Location, error) {
	doc := decl.Document()
	selection := decl.SelectionSpan()
	loc, err := r.analyzer.Source().FindDefinition(ctx, doc, doc.PositionAt(selection.Start))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Printf("[refactor] definition lookup for %s failed: %v", decl.Name(), err)
		return nil, nil
	}
	if loc == nil || loc.URI == doc.URI() && decl.RangeOf(selection).Contains(loc.Range.Start) {
		return nil, nil
	}
	target, err := r.open(ctx, doc, loc.URI)
	if err != nil {
		r.logger.Printf("[refactor] open %s: %v", loc.URI, err)
		return nil, nil
	}
	def, err := r.analyzer.GetSymbol(ctx, target, loc.Range.Start)
	if err != nil || def == nil || !def.IsFunctionDefinition() || def.Name() != decl.Name() {
		return nil, err
	}
	if owner := decl.Parent(); owner != nil && owner.IsClassOrStruct() && !belongsTo(def, owner) {
		return nil, nil
	}
	return loc, nil
}

// belongsTo reports whether def is defined in class or qualified by its name.
func belongsTo(def, class *cxx.Symbol) bool {
	if p := def.Parent(); p != nil && p.IsClassOrStruct() {
		return p.Name() == class.Name()
	}
	scope := def.ImmediateScope()
	return scope != nil && scope.Name() == class.Name()
}

// findDeclaration returns the declaration an out-of-line definition belongs
// to. Definitions inside their class and functions without a declaration
// return nil.
func (r *Refactorer) findDeclaration(ctx context.Context, def *cxx.Symbol) (*cxx.Symbol, error) {
	if p := def.Parent(); p != nil && p.IsClassOrStruct() {
		return nil, nil
	}
	if def.ImmediateScope() != nil {
		class, err := r.analyzer.GetParentClass(ctx, def)
		if err != nil || class == nil {
			return nil, err
		}
		for _, child := range class.Children() {
			if child.Name() == def.Name() && child.IsFunctionDeclaration() {
				return child, nil
			}
		}
		return nil, nil
	}

	doc := def.Document()
	docs := []cxx.Document{doc}
	if uri, err := r.MatchingURI(doc.URI()); err == nil {
		if other, err := r.open(ctx, doc, uri); err == nil {
			docs = append(docs, other)
		}
	}
	for _, candidate := range docs {
		symbols, err := r.analyzer.Symbols(ctx, candidate)
		if err != nil {
			return nil, err
		}
		var found *cxx.Symbol
		cxx.Walk(symbols, func(src *cxx.SourceSymbol) bool {
			if src.BaseName() != def.Name() || !src.Kind.IsFunction() {
				return true
			}
			sym := cxx.NewSymbol(src, candidate)
			if sym.IsFunctionDeclaration() && scopeNames(sym) == scopeNames(def) {
				found = sym
				return false
			}
			return true
		})
		if found != nil {
			return found, nil
		}
	}
	return nil, nil
}

func scopeNames(sym *cxx.Symbol) string {
	var b strings.Builder
	for _, scope := range sym.Scopes() {
		b.WriteString(scope.Name() + "::")
	}
	return b.String()
}

// MoveDefinition moves the function definition def to targetURI, the
// matching file when empty. A definition without a separate declaration
// leaves one behind. When the declaration lives in the target, the
// definition is merged into it.
func (r *Refactorer) MoveDefinition(ctx context.Context, def *cxx.Symbol, targetURI string) ([]TextEdit, error) {
	if def == nil || !def.IsFunctionDefinition() {
		return nil, ErrNotFunctionDefinition
	}
	doc := def.Document()
	if targetURI == "" {
		matching, err := r.MatchingURI(doc.URI())
		if err != nil {
			return nil, err
		}
		targetURI = matching
	}
	target, err := r.open(ctx, doc, targetURI)
	if err != nil {
		return nil, err
	}
	if target.URI() != doc.URI() && !target.IsHeader() {
		if def.IsConstexpr() {
			return nil, ErrConstexpr
		}
		if def.IsInline() {
			return nil, ErrInline
		}
	}

	declaration, err := r.findDeclaration(ctx, def)
	if err != nil {
		return nil, err
	}
	inClass := def.Parent() != nil && def.Parent().IsClassOrStruct()
	if declaration == nil && !inClass && def.ImmediateScope() != nil {
		return nil, ErrNoParentClass
	}

	if declaration != nil && declaration.Document().URI() == target.URI() {
		r.logger.Printf("[refactor] merge definition of %s into its declaration in %s", def.Name(), target.URI())
		return []TextEdit{
			replaceSpan(target, cxx.Span{Start: declaration.TrueStart(), End: declaration.Span().End}, declaration.CombineDefinition(def)),
			replaceSpan(doc, r.removalSpan(def), ""),
		}, nil
	}

	var p placement
	var missing []string
	if target.URI() == doc.URI() {
		if !inClass {
			return nil, fmt.Errorf("%w: %s is already defined outside of a class", ErrNotFunctionDefinition, def.Name())
		}
		p = sameFilePlacement(def)
	} else if p, missing, err = r.targetPlacement(ctx, def, target); err != nil {
		return nil, err
	}
	pos := target.PositionAt(p.Offset)
	text, err := r.analyzer.GetDefinitionForTargetPosition(ctx, def, target, pos, declaration, true)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ErrFormatFailed
	}
	if len(missing) > 0 && r.cfg.Format.GenerateNamespaces {
		scope, err := r.analyzer.ScopeString(ctx, scopeOwner(def, declaration), target, pos)
		if err != nil {
			return nil, err
		}
		full := scope
		scope = generatedScope(scope, missing)
		text = strings.Replace(text, full+def.Name()+"(", scope+def.Name()+"(", 1)
		text = r.wrapInNamespaces(ctx, text, missing, doc, target.EOL())
	}

	insert := insertAt(target, p.Offset, p.format(text, target))
	var leave TextEdit
	if declaration == nil && (inClass || doc.IsHeader()) {
		leave = replaceSpan(doc, cxx.Span{Start: r.movedStart(def), End: def.Span().End}, def.NewFunctionDeclaration())
	} else {
		leave = replaceSpan(doc, r.removalSpan(def), "")
	}
	r.logger.Printf("[refactor] move definition of %s to %s", def.Name(), target.URI())
	return []TextEdit{leave, insert}, nil
}

func scopeOwner(def, declaration *cxx.Symbol) *cxx.Symbol {
	if declaration != nil {
		return declaration
	}
	return def
}
