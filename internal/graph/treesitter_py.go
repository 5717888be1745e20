package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// pyAdapter extracts symbols and references from Python source files.
type pyAdapter struct{}

func newPythonAdapter() *pyAdapter { return &pyAdapter{} }

func (a *pyAdapter) Language() Language { return LangPython }

func (a *pyAdapter) Parse(content []byte, path string) ([]RawSymbol, []RawReference, error) {
	tree, err := parseTree(content, LangPython, path)
	if err != nil {
		return nil, nil, err
	}
	defer tree.Close()

	acc := &rawAccum{}
	a.walk(tree.RootNode(), content, nil, "module", acc)
	return acc.symbols, acc.refs, nil
}

// walk descends the tree carrying the local scope chain and the kind of the
// nearest enclosing definition ("module", "class" or "function").
func (a *pyAdapter) walk(node *tree_sitter.Node, source []byte, scope []string, enclosing string, acc *rawAccum) {
	childScope := scope
	childEnclosing := enclosing

	switch node.Kind() {
	case "function_definition":
		if name, ok := a.extractFunction(node, source, scope, enclosing, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "function"
		}

	case "class_definition":
		if name, ok := a.extractClass(node, source, scope, acc); ok {
			childScope = pushScope(scope, name)
			childEnclosing = "class"
		}

	case "import_statement":
		a.extractImport(node, source, scope, acc)

	case "import_from_statement":
		a.extractFromImport(node, source, scope, acc)

	case "assignment":
		a.extractAssignment(node, source, scope, enclosing, acc)

	case "call":
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

func (a *pyAdapter) extractFunction(node *tree_sitter.Node, source []byte, scope []string, enclosing string, acc *rawAccum) (string, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", false
	}
	name := nameNode.Utf8Text(source)

	kind := "function_definition"
	if enclosing == "class" {
		kind = "method_definition"
	}

	sym := rawSymbolAt(node, name, kind, scope)
	body := node.ChildByFieldName("body")
	sym.Doc = pyDocstring(body, source)
	sym.Signature = signatureBefore(node, body, source)
	acc.addSymbol(sym)
	return name, true
}

func (a *pyAdapter) extractClass(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) (string, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", false
	}
	name := nameNode.Utf8Text(source)

	sym := rawSymbolAt(node, name, "class_definition", scope)
	body := node.ChildByFieldName("body")
	sym.Doc = pyDocstring(body, source)
	sym.Signature = signatureBefore(node, body, source)
	acc.addSymbol(sym)

	// Superclasses: class Foo(Base, pkg.Other) → inherit references.
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		classScope := pushScope(scope, name)
		for i := uint(0); i < supers.NamedChildCount(); i++ {
			base := supers.NamedChild(i)
			if base == nil {
				continue
			}
			switch base.Kind() {
			case "identifier", "attribute":
				acc.addRef(RawReference{
					Scope:  classScope,
					Target: base.Utf8Text(source),
					Kind:   "inherit",
					Line:   int(base.StartPosition().Row) + 1,
				})
			}
		}
	}
	return name, true
}

// extractImport handles "import a.b, c as d": one import reference per
// module plus a binding symbol for the local name.
func (a *pyAdapter) extractImport(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		var moduleNode, aliasNode *tree_sitter.Node
		switch child.Kind() {
		case "dotted_name":
			moduleNode = child
		case "aliased_import":
			moduleNode = child.ChildByFieldName("name")
			aliasNode = child.ChildByFieldName("alias")
		default:
			continue
		}
		if moduleNode == nil {
			continue
		}
		module := moduleNode.Utf8Text(source)
		if module == "" {
			continue
		}

		acc.addRef(RawReference{
			Scope:  scope,
			Target: module,
			Kind:   "import",
			Line:   int(child.StartPosition().Row) + 1,
		})

		binding := module
		if idx := strings.Index(module, "."); idx != -1 {
			binding = module[:idx] // "import a.b" binds the name "a"
		}
		if aliasNode != nil {
			binding = aliasNode.Utf8Text(source)
		}
		if binding != "" {
			acc.addSymbol(rawSymbolAt(child, binding, "import", scope))
		}
	}
}

// extractFromImport handles "from pkg.mod import a, b as c": one reference
// per imported name targeting module.name, plus binding symbols.
func (a *pyAdapter) extractFromImport(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}
	module := moduleNode.Utf8Text(source)
	if module == "" {
		return
	}

	sawName := false
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.StartByte() == moduleNode.StartByte() {
			continue
		}
		var nameNode, aliasNode *tree_sitter.Node
		switch child.Kind() {
		case "dotted_name", "identifier":
			nameNode = child
		case "aliased_import":
			nameNode = child.ChildByFieldName("name")
			aliasNode = child.ChildByFieldName("alias")
		case "wildcard_import":
			// "from x import *" yields a module-level reference only.
			sawName = true
			acc.addRef(RawReference{
				Scope:  scope,
				Target: module,
				Kind:   "import",
				Line:   int(child.StartPosition().Row) + 1,
			})
			continue
		default:
			continue
		}
		if nameNode == nil {
			continue
		}
		name := nameNode.Utf8Text(source)
		if name == "" {
			continue
		}
		sawName = true

		acc.addRef(RawReference{
			Scope:  scope,
			Target: module + "." + name,
			Kind:   "import",
			Line:   int(child.StartPosition().Row) + 1,
		})

		binding := name
		if aliasNode != nil {
			binding = aliasNode.Utf8Text(source)
		}
		acc.addSymbol(rawSymbolAt(child, binding, "import", scope))
	}

	if !sawName {
		acc.addRef(RawReference{
			Scope:  scope,
			Target: module,
			Kind:   "import",
			Line:   int(node.StartPosition().Row) + 1,
		})
	}
}

// extractAssignment records module-level assignments as variables and
// class-body assignments as fields. Function-local assignments are skipped.
func (a *pyAdapter) extractAssignment(node *tree_sitter.Node, source []byte, scope []string, enclosing string, acc *rawAccum) {
	var kind string
	switch enclosing {
	case "module":
		kind = "assignment"
	case "class":
		kind = "class_field"
	default:
		return
	}

	left := node.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	acc.addSymbol(rawSymbolAt(node, left.Utf8Text(source), kind, scope))
}

func (a *pyAdapter) extractCall(node *tree_sitter.Node, source []byte, scope []string, acc *rawAccum) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	switch fnNode.Kind() {
	case "identifier", "attribute":
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

// pyDocstring returns the docstring of a function or class body, stripped of
// quotes, or "".
func pyDocstring(body *tree_sitter.Node, source []byte) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first == nil || first.Kind() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str == nil || str.Kind() != "string" {
		return ""
	}
	return pyStripQuotes(str.Utf8Text(source))
}

func pyStripQuotes(s string) string {
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return strings.TrimSpace(s[len(q) : len(s)-len(q)])
		}
	}
	return strings.TrimSpace(s)
}
