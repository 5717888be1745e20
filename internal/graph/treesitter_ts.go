package graph

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// tsAdapter extracts symbols and references from TypeScript source files.
// It shares the JavaScript helpers for the constructs the two grammars have
// in common and adds the type-level declarations.
type tsAdapter struct{}

func newTypeScriptAdapter() *tsAdapter { return &tsAdapter{} }

func (a *tsAdapter) Language() Language { return LangTypeScript }

func (a *tsAdapter) Parse(content []byte, path string) ([]RawSymbol, []RawReference, error) {
	tree, err := parseTree(content, LangTypeScript, path)
	if err != nil {
		return nil, nil, err
	}
	defer tree.Close()

	acc := &rawAccum{}
	a.walk(tree.RootNode(), content, nil, "module", acc)
	return acc.symbols, acc.refs, nil
}

func (a *tsAdapter) walk(node *tree_sitter.Node, source []byte, scope []string, enclosing string, acc *rawAccum) {
	childScope := scope
	childEnclosing := enclosing

	switch node.Kind() {
	case "function_declaration", "generator_function_declaration":
		if name, ok := jsNamedSymbol(node, source, node.Kind(), scope, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "function"
		}

	case "class_declaration", "abstract_class_declaration":
		if name, ok := jsNamedSymbol(node, source, "class_declaration", scope, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "class"
			a.extractHeritage(node, source, childScope, acc)
		}

	case "interface_declaration":
		if name, ok := jsNamedSymbol(node, source, "interface_declaration", scope, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "class"
			a.extractHeritage(node, source, childScope, acc)
		}

	case "type_alias_declaration":
		jsNamedSymbol(node, source, "type_alias_declaration", scope, acc)

	case "enum_declaration":
		if name, ok := jsNamedSymbol(node, source, "enum_declaration", scope, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "class"
		}

	case "method_definition", "method_signature", "abstract_method_signature":
		if enclosing == "class" {
			if name, ok := jsPropertySymbol(node, source, "method_definition", scope, acc); ok {
				childScope = pushScope(scope, name)
				childEnclosing = "function"
			}
		}

	case "public_field_definition", "property_signature":
		if enclosing == "class" {
			jsPropertySymbol(node, source, "field_definition", scope, acc)
		}

	case "variable_declarator":
		js := jsAdapter{}
		if name, ok := js.extractDeclarator(node, source, scope, enclosing, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "function"
		}

	case "import_statement":
		jsExtractImport(node, source, scope, acc)

	case "call_expression":
		jsExtractCall(node, source, scope, acc)

	case "new_expression":
		jsExtractNew(node, source, scope, acc)

	case "type_annotation":
		a.extractTypeUse(node, source, scope, acc)
		return // annotation subtree fully handled

	case "internal_module":
		// "namespace Foo { ... }" is treated as a module scope.
		if name, ok := jsNamedSymbol(node, source, "internal_module", scope, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "module"
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		a.walk(child, source, childScope, childEnclosing, acc)
	}
}

// extractHeritage emits inherit references for extends and implements
// clauses on classes and interfaces.
func (a *tsAdapter) extractHeritage(node *tree_sitter.Node, source []byte, typeScope []string, acc *rawAccum) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "class_heritage", "extends_clause", "implements_clause", "extends_type_clause":
		default:
			continue
		}
		a.collectHeritageTargets(child, source, typeScope, acc)
	}
}

func (a *tsAdapter) collectHeritageTargets(node *tree_sitter.Node, source []byte, typeScope []string, acc *rawAccum) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier", "type_identifier", "member_expression", "nested_type_identifier":
			acc.addRef(RawReference{
				Scope:  typeScope,
				Target: child.Utf8Text(source),
				Kind:   "inherit",
				Line:   int(child.StartPosition().Row) + 1,
			})
		case "generic_type":
			if name := child.ChildByFieldName("name"); name != nil {
				acc.addRef(RawReference{
					Scope:  typeScope,
					Target: name.Utf8Text(source),
					Kind:   "inherit",
					Line:   int(name.StartPosition().Row) + 1,
				})
			}
		case "extends_clause", "implements_clause":
			a.collectHeritageTargets(child, source, typeScope, acc)
		}
	}
}

// extractTypeUse emits type-use references for every named type appearing in
// a type annotation.
func (a *tsAdapter) extractTypeUse(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	if node.Kind() == "type_identifier" {
		acc.addRef(RawReference{
			Scope:  scope,
			Target: node.Utf8Text(source),
			Kind:   "type_use",
			Line:   int(node.StartPosition().Row) + 1,
		})
		return
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		a.extractTypeUse(child, source, scope, acc)
	}
}
