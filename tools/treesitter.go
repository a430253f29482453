package tools

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/lexcodex/cxxrefine/framework/cxx"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

// TreeSitterSource is an offline cxx.SymbolSource. It parses documents with
// the tree-sitter C++ grammar and reports symbols the way clangd would:
// template headers and trailing semicolons are outside the ranges, and
// out-of-line definitions keep their qualified names.
type TreeSitterSource struct {
	headerExtensions []string
	logger           *log.Logger

	mu    sync.Mutex
	index map[string]*parsedDocument
}

type parsedDocument struct {
	doc     cxx.Document
	symbols []*cxx.SourceSymbol
}

// NewTreeSitterSource returns an empty source. A nil logger discards output.
func NewTreeSitterSource(headerExtensions []string, logger *log.Logger) *TreeSitterSource {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &TreeSitterSource{
		headerExtensions: headerExtensions,
		logger:           logger,
		index:            make(map[string]*parsedDocument),
	}
}

// Index opens and parses files so that FindDefinition can resolve names
// declared in them.
func (s *TreeSitterSource) Index(ctx context.Context, paths []string) error {
	for _, path := range paths {
		doc, err := s.Open(ctx, cxx.PathToURI(path))
		if err != nil {
			return err
		}
		if _, err := s.DocumentSymbols(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// Open reads the file behind uri from disk and remembers it for FindDefinition.
func (s *TreeSitterSource) Open(ctx context.Context, uri string) (cxx.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	entry, ok := s.index[uri]
	s.mu.Unlock()
	if ok {
		return entry.doc, nil
	}
	data, err := os.ReadFile(cxx.URIToPath(uri))
	if err != nil {
		return nil, err
	}
	doc := cxx.NewTextDocument(uri, string(data), s.headerExtensions)
	s.mu.Lock()
	s.index[uri] = &parsedDocument{doc: doc}
	s.mu.Unlock()
	return doc, nil
}

// Forget drops uri so the next Open reads it from disk again.
func (s *TreeSitterSource) Forget(uri string) {
	s.mu.Lock()
	delete(s.index, uri)
	s.mu.Unlock()
}

func (s *TreeSitterSource) DocumentSymbols(ctx context.Context, doc cxx.Document) ([]*cxx.SourceSymbol, error) {
	symbols, err := s.parsed(ctx, doc)
	if err != nil {
		return nil, err
	}
	return cloneSymbols(symbols), nil
}

func (s *TreeSitterSource) parsed(ctx context.Context, doc cxx.Document) ([]*cxx.SourceSymbol, error) {
	s.mu.Lock()
	entry, ok := s.index[doc.URI()]
	s.mu.Unlock()
	if ok && entry.symbols != nil && entry.doc.Text() == doc.Text() {
		return entry.symbols, nil
	}
	symbols, err := parseSymbols(ctx, doc)
	if err != nil {
		return nil, err
	}
	if symbols == nil {
		symbols = []*cxx.SourceSymbol{}
	}
	s.mu.Lock()
	s.index[doc.URI()] = &parsedDocument{doc: doc, symbols: symbols}
	s.mu.Unlock()
	return symbols, nil
}

// FindDefinition looks the identifier under pos up by name, first in doc and
// then in every other document this source has seen. Type-like symbols win
// over functions and variables.
func (s *TreeSitterSource) FindDefinition(ctx context.Context, doc cxx.Document, pos cxx.Position) (*cxx.Location, error) {
	word := wordAt(doc.Text(), doc.OffsetAt(pos))
	if word == "" {
		return nil, nil
	}
	if _, err := s.parsed(ctx, doc); err != nil {
		return nil, err
	}

	s.mu.Lock()
	uris := make([]string, 0, len(s.index))
	for uri := range s.index {
		if uri != doc.URI() {
			uris = append(uris, uri)
		}
	}
	s.mu.Unlock()
	sort.Strings(uris)
	uris = append([]string{doc.URI()}, uris...)

	// The symbol under the cursor only answers when nothing else has its name.
	var fallback, self *cxx.Location
	for _, uri := range uris {
		s.mu.Lock()
		entry := s.index[uri]
		s.mu.Unlock()
		symbols, err := s.parsed(ctx, entry.doc)
		if err != nil {
			s.logger.Printf("[treesitter] skip %s: %v", uri, err)
			continue
		}
		var found *cxx.Location
		cxx.Walk(symbols, func(sym *cxx.SourceSymbol) bool {
			if sym.BaseName() != word {
				return true
			}
			loc := &cxx.Location{URI: uri, Range: sym.SelectionRange}
			if uri == doc.URI() && sym.SelectionRange.Contains(pos) {
				self = loc
				return true
			}
			if isTypeKind(sym.Kind) {
				found = loc
				return false
			}
			if fallback == nil {
				fallback = loc
			}
			return true
		})
		if found != nil {
			return found, nil
		}
	}
	if fallback == nil {
		return self, nil
	}
	return fallback, nil
}

func isTypeKind(kind cxx.Kind) bool {
	switch kind {
	case cxx.KindClass, cxx.KindStruct, cxx.KindEnum, cxx.KindTypeAlias, cxx.KindNamespace:
		return true
	}
	return false
}

func wordAt(text string, offset int) string {
	isWord := func(c byte) bool {
		return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
	}
	start, end := offset, offset
	for start > 0 && isWord(text[start-1]) {
		start--
	}
	for end < len(text) && isWord(text[end]) {
		end++
	}
	return text[start:end]
}

func parseSymbols(ctx context.Context, doc cxx.Document) ([]*cxx.SourceSymbol, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(cpp.GetLanguage())

	source := []byte(doc.Text())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", doc.URI(), err)
	}
	defer tree.Close()

	w := &symbolWalker{doc: doc, source: source}
	var roots []*cxx.SourceSymbol
	w.visit(tree.RootNode(), nil, &roots)
	return roots, nil
}

type symbolWalker struct {
	doc    cxx.Document
	source []byte
}

func (w *symbolWalker) visit(node *sitter.Node, parent *cxx.SourceSymbol, out *[]*cxx.SourceSymbol) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "translation_unit", "declaration_list", "field_declaration_list", "linkage_specification",
		"preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif", "preproc_elifdef":
		w.visitChildren(node, parent, out)
	case "template_declaration":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() != "template_parameter_list" {
				w.visit(child, parent, out)
			}
		}
	case "namespace_definition":
		w.namespace(node, parent, out)
	case "class_specifier", "struct_specifier", "union_specifier":
		w.record(node, parent, out)
	case "enum_specifier":
		w.enum(node, out)
	case "function_definition":
		if sym := w.function(node, node.ChildByFieldName("declarator"), parent, w.trimmedEnd(node)); sym != nil {
			*out = append(*out, sym)
		}
	case "declaration", "field_declaration":
		w.declaration(node, parent, out)
	case "type_definition":
		w.typedef(node, parent, out)
	case "alias_declaration":
		name := node.ChildByFieldName("name")
		if name != nil {
			*out = append(*out, w.symbol(node, name, w.content(name), cxx.KindTypeAlias, w.trimmedEnd(node)))
		}
	}
}

func (w *symbolWalker) visitChildren(node *sitter.Node, parent *cxx.SourceSymbol, out *[]*cxx.SourceSymbol) {
	for i := 0; i < int(node.ChildCount()); i++ {
		w.visit(node.Child(i), parent, out)
	}
}

func (w *symbolWalker) namespace(node *sitter.Node, parent *cxx.SourceSymbol, out *[]*cxx.SourceSymbol) {
	nameNode := node.ChildByFieldName("name")
	name := "(anonymous namespace)"
	if nameNode != nil {
		name = w.content(nameNode)
	}
	sym := w.symbol(node, nameNode, name, cxx.KindNamespace, node.EndByte())
	w.visit(node.ChildByFieldName("body"), sym, &sym.Children)
	*out = append(*out, sym)
}

func (w *symbolWalker) record(node *sitter.Node, parent *cxx.SourceSymbol, out *[]*cxx.SourceSymbol) {
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	kind := cxx.KindClass
	if node.Type() == "struct_specifier" {
		kind = cxx.KindStruct
	}
	nameNode := node.ChildByFieldName("name")
	name := "(anonymous " + strings.TrimSuffix(node.Type(), "_specifier") + ")"
	selection := nameNode
	if nameNode != nil {
		name = w.content(nameNode)
		if nameNode.Type() == "template_type" {
			selection = nameNode.ChildByFieldName("name")
		}
	}
	sym := w.symbol(node, selection, name, kind, node.EndByte())
	w.visit(body, sym, &sym.Children)
	*out = append(*out, sym)
}

func (w *symbolWalker) enum(node *sitter.Node, out *[]*cxx.SourceSymbol) {
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	nameNode := node.ChildByFieldName("name")
	name := "(anonymous enum)"
	if nameNode != nil {
		name = w.content(nameNode)
	}
	sym := w.symbol(node, nameNode, name, cxx.KindEnum, node.EndByte())
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child.Type() != "enumerator" {
			continue
		}
		if member := child.ChildByFieldName("name"); member != nil {
			sym.Children = append(sym.Children, w.symbol(child, member, w.content(member), cxx.KindEnumMember, child.EndByte()))
		}
	}
	*out = append(*out, sym)
}

// declaration handles block-scope, namespace-scope and member declarations:
// a type specifier with a body becomes its own symbol, then every declarator
// becomes a function or variable.
func (w *symbolWalker) declaration(node *sitter.Node, parent *cxx.SourceSymbol, out *[]*cxx.SourceSymbol) {
	typeNode := node.ChildByFieldName("type")
	if typeNode != nil {
		w.visit(typeNode, parent, out)
	}
	declarators := w.declarators(node, typeNode)
	for i, declarator := range declarators {
		end := w.trimmedEnd(node)
		if len(declarators) > 1 && i < len(declarators)-1 {
			end = declarator.EndByte()
		}
		if sym := w.function(node, declarator, parent, end); sym != nil {
			*out = append(*out, sym)
			continue
		}
		fn, name := unwrapDeclarator(declarator)
		if fn != nil || name == nil {
			continue
		}
		kind := cxx.KindVariable
		if parent != nil && parent.Kind.IsClassOrStruct() {
			kind = cxx.KindField
		}
		*out = append(*out, w.symbol(node, innermostName(name), w.content(name), kind, end))
	}
}

func (w *symbolWalker) typedef(node *sitter.Node, parent *cxx.SourceSymbol, out *[]*cxx.SourceSymbol) {
	typeNode := node.ChildByFieldName("type")
	if typeNode != nil {
		w.visit(typeNode, parent, out)
	}
	for _, declarator := range w.declarators(node, typeNode) {
		_, name := unwrapDeclarator(declarator)
		if name == nil {
			continue
		}
		*out = append(*out, w.symbol(node, name, w.content(name), cxx.KindTypeAlias, w.trimmedEnd(node)))
	}
}

// function returns a symbol when declarator declares a function, nil otherwise.
func (w *symbolWalker) function(node, declarator *sitter.Node, parent *cxx.SourceSymbol, end uint32) *cxx.SourceSymbol {
	fn, nameNode := unwrapDeclarator(declarator)
	if fn == nil || nameNode == nil {
		return nil
	}
	name := w.content(nameNode)
	selection := innermostName(nameNode)
	base := w.content(selection)

	kind := cxx.KindFunction
	switch {
	case parent != nil && parent.Kind.IsClassOrStruct():
		kind = cxx.KindMethod
		if base == parent.BaseName() {
			kind = cxx.KindConstructor
		}
	case nameNode.Type() == "qualified_identifier":
		kind = cxx.KindMethod
		if scope := lastScope(name); scope != "" && scope == base {
			kind = cxx.KindConstructor
		}
	}
	if nameNode.Type() == "destructor_name" || strings.HasPrefix(base, "~") {
		kind = cxx.KindMethod
		if parent == nil && nameNode.Type() != "qualified_identifier" {
			kind = cxx.KindFunction
		}
	}
	return w.symbol(node, selection, name, kind, end)
}

// lastScope returns the innermost scope of a qualified name without template
// arguments: "ns::Box<T>::Box" -> "Box".
func lastScope(name string) string {
	idx := strings.LastIndex(name, "::")
	if idx < 0 {
		return ""
	}
	scope := name[:idx]
	if i := strings.LastIndex(scope, "::"); i >= 0 {
		scope = scope[i+2:]
	}
	if i := strings.IndexByte(scope, '<'); i >= 0 {
		scope = scope[:i]
	}
	return strings.TrimSpace(scope)
}

var declaratorTypes = map[string]bool{
	"function_declarator":      true,
	"init_declarator":          true,
	"pointer_declarator":       true,
	"reference_declarator":     true,
	"array_declarator":         true,
	"parenthesized_declarator": true,
	"attributed_declarator":    true,
	"identifier":               true,
	"field_identifier":         true,
	"type_identifier":          true,
	"qualified_identifier":     true,
	"destructor_name":          true,
	"operator_name":            true,
	"template_function":        true,
}

// declarators lists the declarator children of a declaration, skipping the
// type specifier and anything after an "=" default member initializer.
func (w *symbolWalker) declarators(node, typeNode *sitter.Node) []*sitter.Node {
	var result []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "=" {
			break
		}
		if typeNode != nil && child.StartByte() == typeNode.StartByte() && child.EndByte() == typeNode.EndByte() {
			continue
		}
		if declaratorTypes[child.Type()] {
			result = append(result, child)
		}
	}
	return result
}

// unwrapDeclarator peels pointer, reference, array and init declarators. fn
// is the function declarator when the declaration declares a function.
func unwrapDeclarator(node *sitter.Node) (fn, name *sitter.Node) {
	for node != nil {
		switch node.Type() {
		case "function_declarator":
			if fn == nil {
				fn = node
			}
			node = node.ChildByFieldName("declarator")
		case "pointer_declarator", "array_declarator", "init_declarator", "attributed_declarator":
			node = node.ChildByFieldName("declarator")
		case "reference_declarator", "parenthesized_declarator":
			// function pointers are variables
			if node.Type() == "parenthesized_declarator" {
				fn = nil
			}
			if node.NamedChildCount() == 0 {
				return fn, nil
			}
			node = node.NamedChild(int(node.NamedChildCount()) - 1)
		default:
			return fn, node
		}
	}
	return fn, nil
}

// innermostName returns the unqualified identifier of a possibly qualified
// or templated name.
func innermostName(node *sitter.Node) *sitter.Node {
	for node != nil {
		switch node.Type() {
		case "qualified_identifier", "template_function", "template_type":
			next := node.ChildByFieldName("name")
			if next == nil {
				return node
			}
			node = next
		default:
			return node
		}
	}
	return node
}

func (w *symbolWalker) symbol(node, selection *sitter.Node, name string, kind cxx.Kind, end uint32) *cxx.SourceSymbol {
	start := node.StartByte()
	selStart, selEnd := start, start
	if selection != nil {
		selStart, selEnd = selection.StartByte(), selection.EndByte()
	}
	return &cxx.SourceSymbol{
		Name: strings.Join(strings.Fields(name), " "),
		Kind: kind,
		Range: cxx.Range{
			Start: w.doc.PositionAt(int(start)),
			End:   w.doc.PositionAt(int(end)),
		},
		SelectionRange: cxx.Range{
			Start: w.doc.PositionAt(int(selStart)),
			End:   w.doc.PositionAt(int(selEnd)),
		},
	}
}

// trimmedEnd is the end of node without a trailing semicolon.
func (w *symbolWalker) trimmedEnd(node *sitter.Node) uint32 {
	end := node.EndByte()
	start := node.StartByte()
	for end > start && (w.source[end-1] == ';' || w.source[end-1] == ' ' || w.source[end-1] == '\t') {
		end--
	}
	return end
}

func (w *symbolWalker) content(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Content(w.source)
}
