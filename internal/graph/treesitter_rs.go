package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// rsAdapter extracts symbols and references from Rust source files.
type rsAdapter struct{}

func newRustAdapter() *rsAdapter { return &rsAdapter{} }

func (a *rsAdapter) Language() Language { return LangRust }

func (a *rsAdapter) Parse(content []byte, path string) ([]RawSymbol, []RawReference, error) {
	tree, err := parseTree(content, LangRust, path)
	if err != nil {
		return nil, nil, err
	}
	defer tree.Close()

	acc := &rawAccum{}
	a.walk(tree.RootNode(), content, nil, "module", acc)
	return acc.symbols, acc.refs, nil
}

func (a *rsAdapter) walk(node *tree_sitter.Node, source []byte, scope []string, enclosing string, acc *rawAccum) {
	childScope := scope
	childEnclosing := enclosing

	switch node.Kind() {
	case "mod_item":
		if name := node.ChildByFieldName("name"); name != nil {
			text := name.Utf8Text(source)
			sym := rawSymbolAt(node, text, "mod_item", scope)
			sym.Doc = rsDocComments(node, source)
			acc.addSymbol(sym)
			childScope = pushScope(scope, text)
			childEnclosing = "module"
		}

	case "struct_item", "enum_item", "trait_item", "union_item":
		if name, ok := a.namedItem(node, source, node.Kind(), scope, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "class"
		}

	case "type_item":
		a.namedItem(node, source, "type_item", scope, acc)

	case "impl_item":
		if typeScope, ok := a.extractImpl(node, source, scope, acc); ok {
			childScope = typeScope
			childEnclosing = "impl"
		}

	case "function_item":
		kind := "function_item"
		if enclosing == "impl" || enclosing == "class" {
			kind = "method_item"
		}
		if name, ok := a.namedItem(node, source, kind, scope, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "function"
		}

	case "function_signature_item":
		// Trait method without a body. Kept distinct from method_item so the
		// impl-block definition under the implementing type stays the method.
		a.namedItem(node, source, "function_signature_item", scope, acc)

	case "field_declaration":
		if enclosing == "class" {
			if name := node.ChildByFieldName("name"); name != nil {
				acc.addSymbol(rawSymbolAt(node, name.Utf8Text(source), "field_declaration", scope))
			}
		}

	case "const_item", "static_item":
		if enclosing == "module" {
			a.namedItem(node, source, node.Kind(), scope, acc)
		}

	case "use_declaration":
		a.extractUse(node, source, scope, acc)

	case "call_expression":
		a.extractCall(node, source, scope, acc)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		a.walk(child, source, childScope, childEnclosing, acc)
	}
}

func (a *rsAdapter) namedItem(node *tree_sitter.Node, source []byte, kind string, scope []string, acc *rawAccum) (string, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", false
	}
	name := nameNode.Utf8Text(source)
	sym := rawSymbolAt(node, name, kind, scope)
	sym.Doc = rsDocComments(node, source)
	sym.Signature = signatureBefore(node, node.ChildByFieldName("body"), source)
	acc.addSymbol(sym)
	return name, true
}

// extractImpl scopes the block under the implemented type. A trait impl also
// emits an inherit reference from the type to the trait.
func (a *rsAdapter) extractImpl(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) ([]string, bool) {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return nil, false
	}
	typeName := rsTypeName(typeNode, source)
	if typeName == "" {
		return nil, false
	}
	typeScope := pushScope(scope, typeName)

	if trait := node.ChildByFieldName("trait"); trait != nil {
		acc.addRef(RawReference{
			Scope:  typeScope,
			Target: trait.Utf8Text(source),
			Kind:   "inherit",
			Line:   int(trait.StartPosition().Row) + 1,
		})
	}
	return typeScope, true
}

// rsTypeName strips generic arguments from an impl target: Stack<T> → Stack.
func rsTypeName(node *tree_sitter.Node, source []byte) string {
	switch node.Kind() {
	case "type_identifier":
		return node.Utf8Text(source)
	case "generic_type":
		if n := node.ChildByFieldName("type"); n != nil {
			return rsTypeName(n, source)
		}
	case "scoped_type_identifier":
		if n := node.ChildByFieldName("name"); n != nil {
			return n.Utf8Text(source)
		}
	case "reference_type":
		if n := node.ChildByFieldName("type"); n != nil {
			return rsTypeName(n, source)
		}
	}
	text := node.Utf8Text(source)
	if idx := strings.IndexByte(text, '<'); idx != -1 {
		text = text[:idx]
	}
	return text
}

// extractUse emits one import reference per leaf of a use tree:
// "use a::{b, c as d};" yields a::b and a::c.
func (a *rsAdapter) extractUse(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	arg := node.ChildByFieldName("argument")
	if arg == nil {
		return
	}
	a.useLeaves(arg, source, "", scope, acc)
}

func (a *rsAdapter) useLeaves(node *tree_sitter.Node, source []byte, prefix string, scope []string, acc *rawAccum) {
	join := func(prefix, part string) string {
		if prefix == "" {
			return part
		}
		return prefix + "::" + part
	}

	switch node.Kind() {
	case "identifier", "scoped_identifier", "crate", "self", "super":
		a.emitUse(join(prefix, node.Utf8Text(source)), node, scope, acc)

	case "use_as_clause":
		if path := node.ChildByFieldName("path"); path != nil {
			a.emitUse(join(prefix, path.Utf8Text(source)), path, scope, acc)
		}

	case "scoped_use_list":
		base := prefix
		if path := node.ChildByFieldName("path"); path != nil {
			base = join(prefix, path.Utf8Text(source))
		}
		if list := node.ChildByFieldName("list"); list != nil {
			for i := uint(0); i < list.NamedChildCount(); i++ {
				if child := list.NamedChild(i); child != nil {
					a.useLeaves(child, source, base, scope, acc)
				}
			}
		}

	case "use_list":
		for i := uint(0); i < node.NamedChildCount(); i++ {
			if child := node.NamedChild(i); child != nil {
				a.useLeaves(child, source, prefix, scope, acc)
			}
		}

	case "use_wildcard":
		if path := node.NamedChild(0); path != nil {
			a.emitUse(join(prefix, path.Utf8Text(source)), node, scope, acc)
		}
	}
}

func (a *rsAdapter) emitUse(target string, node *tree_sitter.Node, scope []string, acc *rawAccum) {
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

func (a *rsAdapter) extractCall(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	switch fnNode.Kind() {
	case "identifier", "scoped_identifier", "field_expression":
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

// rsDocComments collects "///" doc comments directly above an item, falling
// back to plain "//" comments.
func rsDocComments(node *tree_sitter.Node, source []byte) string {
	var lines []string
	prev := node.PrevSibling()
	expected := int(node.StartPosition().Row)
	for prev != nil {
		kind := prev.Kind()
		if kind != "line_comment" && kind != "doc_comment" && kind != "comment" {
			break
		}
		row := int(prev.EndPosition().Row)
		if row < expected-1 {
			break
		}
		text := prev.Utf8Text(source)
		text = strings.TrimPrefix(text, "///")
		text = strings.TrimPrefix(text, "//!")
		text = strings.TrimPrefix(text, "//")
		lines = append([]string{strings.TrimSpace(text)}, lines...)
		expected = int(prev.StartPosition().Row)
		prev = prev.PrevSibling()
	}
	return strings.Join(lines, "\n")
}
