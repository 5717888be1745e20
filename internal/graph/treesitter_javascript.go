package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// jsAdapter extracts symbols and references from JavaScript source files.
type jsAdapter struct{}

func newJavaScriptAdapter() *jsAdapter { return &jsAdapter{} }

func (a *jsAdapter) Language() Language { return LangJavaScript }

func (a *jsAdapter) Parse(content []byte, path string) ([]RawSymbol, []RawReference, error) {
	tree, err := parseTree(content, LangJavaScript, path)
	if err != nil {
		return nil, nil, err
	}
	defer tree.Close()

	acc := &rawAccum{}
	a.walk(tree.RootNode(), content, nil, "module", acc)
	return acc.symbols, acc.refs, nil
}

func (a *jsAdapter) walk(node *tree_sitter.Node, source []byte, scope []string, enclosing string, acc *rawAccum) {
	childScope := scope
	childEnclosing := enclosing

	switch node.Kind() {
	case "function_declaration", "generator_function_declaration":
		if name, ok := jsNamedSymbol(node, source, node.Kind(), scope, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "function"
		}

	case "class_declaration":
		if name, ok := jsNamedSymbol(node, source, "class_declaration", scope, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "class"
			jsExtractHeritage(node, source, childScope, acc)
		}

	case "method_definition":
		if enclosing == "class" {
			if name, ok := jsPropertySymbol(node, source, "method_definition", scope, acc); ok {
				childScope = pushScope(scope, name)
				childEnclosing = "function"
			}
		}

	case "field_definition":
		if enclosing == "class" {
			jsPropertySymbol(node, source, "field_definition", scope, acc)
		}

	case "variable_declarator":
		if name, ok := a.extractDeclarator(node, source, scope, enclosing, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "function"
		}

	case "import_statement":
		jsExtractImport(node, source, scope, acc)

	case "call_expression":
		jsExtractCall(node, source, scope, acc)

	case "new_expression":
		jsExtractNew(node, source, scope, acc)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		a.walk(child, source, childScope, childEnclosing, acc)
	}
}

// extractDeclarator handles "const foo = () => {...}" (function symbol) and
// module-level "const foo = 42" (variable symbol).
func (a *jsAdapter) extractDeclarator(node *tree_sitter.Node, source []byte, scope []string, enclosing string, acc *rawAccum) (string, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil || nameNode.Kind() != "identifier" {
		return "", false
	}
	name := nameNode.Utf8Text(source)

	if value := node.ChildByFieldName("value"); value != nil {
		switch value.Kind() {
		case "arrow_function", "function_expression", "generator_function":
			sym := rawSymbolAt(node, name, "arrow_function", scope)
			sym.Doc = jsDeclarationDoc(node, source)
			sym.Signature = signatureBefore(node, value.ChildByFieldName("body"), source)
			acc.addSymbol(sym)
			return name, true
		}
	}

	if enclosing == "module" {
		acc.addSymbol(rawSymbolAt(node, name, "variable_declarator", scope))
	}
	return "", false
}

// jsNamedSymbol extracts a symbol from a node with a "name" field and pushes
// doc/signature metadata.
func jsNamedSymbol(node *tree_sitter.Node, source []byte, kind string, scope []string, acc *rawAccum) (string, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", false
	}
	name := nameNode.Utf8Text(source)
	sym := rawSymbolAt(node, name, kind, scope)
	sym.Doc = jsDeclarationDoc(node, source)
	sym.Signature = signatureBefore(node, node.ChildByFieldName("body"), source)
	acc.addSymbol(sym)
	return name, true
}

// jsPropertySymbol extracts a class member named by a property identifier.
func jsPropertySymbol(node *tree_sitter.Node, source []byte, kind string, scope []string, acc *rawAccum) (string, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = node.ChildByFieldName("property")
	}
	if nameNode == nil {
		return "", false
	}
	name := nameNode.Utf8Text(source)
	sym := rawSymbolAt(node, name, kind, scope)
	sym.Signature = signatureBefore(node, node.ChildByFieldName("body"), source)
	acc.addSymbol(sym)
	return name, true
}

// jsExtractHeritage emits inherit references for "class X extends Base".
// classScope already includes the class name.
func jsExtractHeritage(node *tree_sitter.Node, source []byte, classScope []string, acc *rawAccum) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "class_heritage" {
			continue
		}
		for j := uint(0); j < child.NamedChildCount(); j++ {
			base := child.NamedChild(j)
			if base == nil {
				continue
			}
			switch base.Kind() {
			case "identifier", "member_expression":
				acc.addRef(RawReference{
					Scope:  classScope,
					Target: base.Utf8Text(source),
					Kind:   "inherit",
					Line:   int(base.StartPosition().Row) + 1,
				})
			}
		}
	}
}

// jsExtractImport emits one module-level import reference for the source
// specifier, one per named binding targeting "<specifier>/<name>", and a
// binding symbol for each local name.
func jsExtractImport(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	srcNode := node.ChildByFieldName("source")
	if srcNode == nil {
		return
	}
	spec := strings.Trim(srcNode.Utf8Text(source), "\"'`")
	if spec == "" {
		return
	}

	acc.addRef(RawReference{
		Scope:  scope,
		Target: spec,
		Kind:   "import",
		Line:   int(node.StartPosition().Row) + 1,
	})

	for i := uint(0); i < node.NamedChildCount(); i++ {
		clause := node.NamedChild(i)
		if clause == nil || clause.Kind() != "import_clause" {
			continue
		}
		jsExtractImportClause(clause, source, spec, scope, acc)
	}
}

func jsExtractImportClause(clause *tree_sitter.Node, source []byte, spec string, scope []string, acc *rawAccum) {
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		child := clause.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			// Default import: binds a local name to the module.
			acc.addSymbol(rawSymbolAt(child, child.Utf8Text(source), "import", scope))

		case "namespace_import":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				if id := child.NamedChild(j); id != nil && id.Kind() == "identifier" {
					acc.addSymbol(rawSymbolAt(id, id.Utf8Text(source), "import", scope))
				}
			}

		case "named_imports":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				specNode := child.NamedChild(j)
				if specNode == nil || specNode.Kind() != "import_specifier" {
					continue
				}
				nameNode := specNode.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				name := nameNode.Utf8Text(source)

				acc.addRef(RawReference{
					Scope:  scope,
					Target: spec + "/" + name,
					Kind:   "import",
					Line:   int(specNode.StartPosition().Row) + 1,
				})

				binding := name
				if alias := specNode.ChildByFieldName("alias"); alias != nil {
					binding = alias.Utf8Text(source)
				}
				acc.addSymbol(rawSymbolAt(specNode, binding, "import", scope))
			}
		}
	}
}

func jsExtractCall(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	switch fnNode.Kind() {
	case "identifier", "member_expression":
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

func jsExtractNew(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	ctor := node.ChildByFieldName("constructor")
	if ctor == nil {
		return
	}
	switch ctor.Kind() {
	case "identifier", "member_expression":
	default:
		return
	}
	acc.addRef(RawReference{
		Scope:  scope,
		Target: ctor.Utf8Text(source),
		Kind:   "instantiate",
		Line:   int(ctor.StartPosition().Row) + 1,
	})
}

// jsDeclarationDoc collects "//" comments directly above a declaration. For
// declarations wrapped in an export statement the comments sit above the
// export.
func jsDeclarationDoc(node *tree_sitter.Node, source []byte) string {
	target := node
	if parent := node.Parent(); parent != nil && parent.Kind() == "export_statement" {
		target = parent
	}
	return lineComments(target, source, "//")
}
