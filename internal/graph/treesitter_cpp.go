package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// cppAdapter extracts symbols and references from C++ source files.
type cppAdapter struct{}

func newCPPAdapter() *cppAdapter { return &cppAdapter{} }

func (a *cppAdapter) Language() Language { return LangCPP }

func (a *cppAdapter) Parse(content []byte, path string) ([]RawSymbol, []RawReference, error) {
	tree, err := parseTree(content, LangCPP, path)
	if err != nil {
		return nil, nil, err
	}
	defer tree.Close()

	acc := &rawAccum{}
	a.walk(tree.RootNode(), content, nil, "module", acc)
	return acc.symbols, acc.refs, nil
}

func (a *cppAdapter) walk(node *tree_sitter.Node, source []byte, scope []string, enclosing string, acc *rawAccum) {
	childScope := scope
	childEnclosing := enclosing

	switch node.Kind() {
	case "namespace_definition":
		if name := node.ChildByFieldName("name"); name != nil {
			text := name.Utf8Text(source)
			sym := rawSymbolAt(node, text, "namespace_definition", scope)
			sym.Doc = lineComments(node, source, "//")
			acc.addSymbol(sym)
			childScope = pushScope(scope, text)
			childEnclosing = "module"
		}

	case "class_specifier", "struct_specifier":
		if name, ok := a.extractClass(node, source, scope, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "class"
		}

	case "enum_specifier":
		if name := node.ChildByFieldName("name"); name != nil && node.ChildByFieldName("body") != nil {
			sym := rawSymbolAt(node, name.Utf8Text(source), "enum_specifier", scope)
			sym.Doc = lineComments(node, source, "//")
			acc.addSymbol(sym)
		}

	case "function_definition":
		if name, extraScope, ok := a.extractFunction(node, source, scope, enclosing, acc); ok {
			childScope = pushScope(extraScope, name)
			childEnclosing = "function"
		}

	case "field_declaration":
		if enclosing == "class" {
			a.extractField(node, source, scope, acc)
		}

	case "declaration":
		if enclosing == "module" {
			a.extractDeclaration(node, source, scope, acc)
		}

	case "preproc_include":
		a.extractInclude(node, source, scope, acc)

	case "call_expression":
		a.extractCall(node, source, scope, acc)

	case "new_expression":
		if typ := node.ChildByFieldName("type"); typ != nil {
			acc.addRef(RawReference{
				Scope:  scope,
				Target: typ.Utf8Text(source),
				Kind:   "instantiate",
				Line:   int(typ.StartPosition().Row) + 1,
			})
		}

	case "template_declaration":
		// Recurse into the templated entity with the same scope.
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		a.walk(child, source, childScope, childEnclosing, acc)
	}
}

func (a *cppAdapter) extractClass(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) (string, bool) {
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return "", false // forward declaration or anonymous
	}
	name := nameNode.Utf8Text(source)

	sym := rawSymbolAt(node, name, node.Kind(), scope)
	sym.Doc = lineComments(node, source, "//")
	sym.Signature = signatureBefore(node, body, source)
	acc.addSymbol(sym)

	classScope := pushScope(scope, name)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "base_class_clause" {
			continue
		}
		for j := uint(0); j < child.NamedChildCount(); j++ {
			base := child.NamedChild(j)
			if base == nil {
				continue
			}
			switch base.Kind() {
			case "type_identifier", "qualified_identifier", "template_type":
				target := base.Utf8Text(source)
				if base.Kind() == "template_type" {
					if n := base.ChildByFieldName("name"); n != nil {
						target = n.Utf8Text(source)
					}
				}
				acc.addRef(RawReference{
					Scope:  classScope,
					Target: target,
					Kind:   "inherit",
					Line:   int(base.StartPosition().Row) + 1,
				})
			}
		}
	}
	return name, true
}

// extractFunction resolves the declarator chain down to the function name.
// Qualified names like Widget::draw contribute the qualifier as extra scope
// and mark the symbol as a method.
func (a *cppAdapter) extractFunction(node *tree_sitter.Node, source []byte, scope []string, enclosing string, acc *rawAccum) (string, []string, bool) {
	fnDecl := findFunctionDeclarator(node.ChildByFieldName("declarator"))
	if fnDecl == nil {
		return "", nil, false
	}
	inner := fnDecl.ChildByFieldName("declarator")
	if inner == nil {
		return "", nil, false
	}

	extraScope := scope
	var name string
	kind := "function_definition"
	if enclosing == "class" {
		kind = "method_definition"
	}

	switch inner.Kind() {
	case "identifier", "field_identifier", "destructor_name", "operator_name":
		name = inner.Utf8Text(source)
	case "qualified_identifier":
		// Out-of-line member: Widget::draw. The qualifier joins the scope.
		segments := strings.Split(inner.Utf8Text(source), "::")
		if len(segments) < 2 {
			return "", nil, false
		}
		name = segments[len(segments)-1]
		for _, seg := range segments[:len(segments)-1] {
			extraScope = pushScope(extraScope, seg)
		}
		kind = "method_definition"
	default:
		return "", nil, false
	}
	if name == "" {
		return "", nil, false
	}

	sym := rawSymbolAt(node, name, kind, extraScope)
	sym.Doc = lineComments(node, source, "//")
	sym.Signature = signatureBefore(node, node.ChildByFieldName("body"), source)
	acc.addSymbol(sym)
	return name, extraScope, true
}

// findFunctionDeclarator unwraps pointer/reference declarators down to the
// function_declarator, or nil when the definition is not a function.
func findFunctionDeclarator(node *tree_sitter.Node) *tree_sitter.Node {
	for node != nil {
		switch node.Kind() {
		case "function_declarator":
			return node
		case "pointer_declarator", "reference_declarator":
			node = node.ChildByFieldName("declarator")
		default:
			return nil
		}
	}
	return nil
}

// extractField records class members: data members as fields, in-class method
// declarations as methods.
func (a *cppAdapter) extractField(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	decl := node.ChildByFieldName("declarator")
	if decl == nil {
		return
	}
	if fnDecl := findFunctionDeclarator(decl); fnDecl != nil {
		inner := fnDecl.ChildByFieldName("declarator")
		if inner == nil {
			return
		}
		switch inner.Kind() {
		case "field_identifier", "identifier", "destructor_name", "operator_name":
			sym := rawSymbolAt(node, inner.Utf8Text(source), "method_declaration", scope)
			sym.Doc = lineComments(node, source, "//")
			sym.Signature = strings.Join(strings.Fields(strings.TrimSuffix(node.Utf8Text(source), ";")), " ")
			acc.addSymbol(sym)
		}
		return
	}

	for d := decl; d != nil; {
		switch d.Kind() {
		case "field_identifier", "identifier":
			acc.addSymbol(rawSymbolAt(node, d.Utf8Text(source), "field_declaration", scope))
			return
		case "pointer_declarator", "reference_declarator", "array_declarator", "init_declarator":
			d = d.ChildByFieldName("declarator")
		default:
			return
		}
	}
}

// extractDeclaration records file-scope variable declarations.
func (a *cppAdapter) extractDeclaration(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		d := child
		if d.Kind() == "init_declarator" {
			d = d.ChildByFieldName("declarator")
		}
		for d != nil {
			switch d.Kind() {
			case "identifier":
				acc.addSymbol(rawSymbolAt(node, d.Utf8Text(source), "declaration", scope))
				d = nil
			case "pointer_declarator", "reference_declarator", "array_declarator":
				d = d.ChildByFieldName("declarator")
			default:
				d = nil
			}
		}
	}
}

// extractInclude emits an import reference for #include directives, stripped
// of angle brackets or quotes.
func (a *cppAdapter) extractInclude(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		return
	}
	target := strings.Trim(pathNode.Utf8Text(source), "<>\"")
	if target == "" {
		return
	}
	acc.addRef(RawReference{
		Scope:  scope,
		Target: target,
		Kind:   "import",
		Line:   int(node.StartPosition().Row) + 1,
	})
}

func (a *cppAdapter) extractCall(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	switch fnNode.Kind() {
	case "identifier", "field_expression", "qualified_identifier":
	default:
		return
	}
	callee := fnNode.Utf8Text(source)
	if callee == "" {
		return
	}
	acc.addRef(RawReference{
		Scope:  scope,
		Target: callee,
		Kind:   "call",
		Line:   int(fnNode.StartPosition().Row) + 1,
	})
}
