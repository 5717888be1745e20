package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// goAdapter extracts symbols and references from Go source files.
type goAdapter struct{}

func newGoAdapter() *goAdapter { return &goAdapter{} }

func (a *goAdapter) Language() Language { return LangGo }

func (a *goAdapter) Parse(content []byte, path string) ([]RawSymbol, []RawReference, error) {
	tree, err := parseTree(content, LangGo, path)
	if err != nil {
		return nil, nil, err
	}
	defer tree.Close()

	acc := &rawAccum{}
	a.walk(tree.RootNode(), content, nil, "module", acc)
	return acc.symbols, acc.refs, nil
}

func (a *goAdapter) walk(node *tree_sitter.Node, source []byte, scope []string, enclosing string, acc *rawAccum) {
	childScope := scope
	childEnclosing := enclosing

	switch node.Kind() {
	case "function_declaration":
		if name := node.ChildByFieldName("name"); name != nil {
			text := name.Utf8Text(source)
			sym := rawSymbolAt(node, text, "function_declaration", scope)
			sym.Doc = lineComments(node, source, "//")
			sym.Signature = signatureBefore(node, node.ChildByFieldName("body"), source)
			acc.addSymbol(sym)
			childScope = pushScope(scope, text)
			childEnclosing = "function"
		}

	case "method_declaration":
		if name, recvScope, ok := a.extractMethod(node, source, scope, acc); ok {
			childScope = pushScope(recvScope, name)
			childEnclosing = "function"
		}

	case "type_declaration":
		a.extractTypes(node, source, scope, acc)

	case "const_declaration", "var_declaration":
		if enclosing == "module" {
			a.extractValueSpecs(node, source, scope, acc)
		}

	case "import_declaration":
		a.extractImports(node, source, scope, acc)

	case "call_expression":
		a.extractCall(node, source, scope, acc)

	case "composite_literal":
		if typ := node.ChildByFieldName("type"); typ != nil {
			switch typ.Kind() {
			case "type_identifier", "qualified_type":
				acc.addRef(RawReference{
					Scope:  scope,
					Target: typ.Utf8Text(source),
					Kind:   "instantiate",
					Line:   int(typ.StartPosition().Row) + 1,
				})
			}
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

// extractMethod scopes a method under its receiver type name, with the "*"
// stripped from pointer receivers.
func (a *goAdapter) extractMethod(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) (string, []string, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", nil, false
	}
	name := nameNode.Utf8Text(source)

	recvScope := scope
	if recv := node.ChildByFieldName("receiver"); recv != nil {
		if typ := receiverTypeName(recv, source); typ != "" {
			recvScope = pushScope(scope, typ)
		}
	}

	sym := rawSymbolAt(node, name, "method_declaration", recvScope)
	sym.Doc = lineComments(node, source, "//")
	sym.Signature = signatureBefore(node, node.ChildByFieldName("body"), source)
	acc.addSymbol(sym)
	return name, recvScope, true
}

func receiverTypeName(recv *tree_sitter.Node, source []byte) string {
	for i := uint(0); i < recv.NamedChildCount(); i++ {
		param := recv.NamedChild(i)
		if param == nil || param.Kind() != "parameter_declaration" {
			continue
		}
		typ := param.ChildByFieldName("type")
		if typ == nil {
			continue
		}
		text := typ.Utf8Text(source)
		text = strings.TrimPrefix(text, "*")
		// Generic receivers: Stack[T] scopes under Stack.
		if idx := strings.IndexByte(text, '['); idx != -1 {
			text = text[:idx]
		}
		return text
	}
	return ""
}

// extractTypes records every type_spec in a declaration, distinguishing
// struct and interface types, and records struct fields scoped under the
// type name.
func (a *goAdapter) extractTypes(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		spec := node.NamedChild(i)
		if spec == nil || spec.Kind() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		typeNode := spec.ChildByFieldName("type")
		if nameNode == nil {
			continue
		}
		name := nameNode.Utf8Text(source)

		kind := "type_spec"
		if typeNode != nil {
			switch typeNode.Kind() {
			case "struct_type":
				kind = "struct_type"
			case "interface_type":
				kind = "interface_type"
			}
		}

		doc := lineComments(node, source, "//")
		if node.NamedChildCount() > 1 {
			doc = lineComments(spec, source, "//")
		}
		sym := rawSymbolAt(spec, name, kind, scope)
		sym.Doc = doc
		acc.addSymbol(sym)

		if kind == "struct_type" {
			a.extractStructFields(typeNode, source, pushScope(scope, name), acc)
		}
	}
}

func (a *goAdapter) extractStructFields(structType *tree_sitter.Node, source []byte, typeScope []string, acc *rawAccum) {
	for i := uint(0); i < structType.NamedChildCount(); i++ {
		list := structType.NamedChild(i)
		if list == nil || list.Kind() != "field_declaration_list" {
			continue
		}
		for j := uint(0); j < list.NamedChildCount(); j++ {
			field := list.NamedChild(j)
			if field == nil || field.Kind() != "field_declaration" {
				continue
			}
			for k := uint(0); k < field.NamedChildCount(); k++ {
				id := field.NamedChild(k)
				if id != nil && id.Kind() == "field_identifier" {
					acc.addSymbol(rawSymbolAt(field, id.Utf8Text(source), "field_declaration", typeScope))
				}
			}
		}
	}
}

// extractValueSpecs records package-level const and var names.
func (a *goAdapter) extractValueSpecs(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		spec := node.NamedChild(i)
		if spec == nil {
			continue
		}
		switch spec.Kind() {
		case "const_spec", "var_spec":
		default:
			continue
		}
		for j := uint(0); j < spec.NamedChildCount(); j++ {
			id := spec.NamedChild(j)
			if id != nil && id.Kind() == "identifier" {
				acc.addSymbol(rawSymbolAt(spec, id.Utf8Text(source), spec.Kind(), scope))
			}
		}
	}
}

func (a *goAdapter) extractImports(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	var specs []*tree_sitter.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "import_spec":
			specs = append(specs, child)
		case "import_spec_list":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				if spec := child.NamedChild(j); spec != nil && spec.Kind() == "import_spec" {
					specs = append(specs, spec)
				}
			}
		}
	}
	for _, spec := range specs {
		pathNode := spec.ChildByFieldName("path")
		if pathNode == nil {
			continue
		}
		target := strings.Trim(pathNode.Utf8Text(source), `"`)
		if target == "" {
			continue
		}
		acc.addRef(RawReference{
			Scope:  scope,
			Target: target,
			Kind:   "import",
			Line:   int(spec.StartPosition().Row) + 1,
		})
	}
}

func (a *goAdapter) extractCall(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	switch fnNode.Kind() {
	case "identifier", "selector_expression":
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
