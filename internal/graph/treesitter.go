package graph

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// tsLanguage returns the compiled tree-sitter grammar for a language.
func tsLanguage(lang Language) *tree_sitter.Language {
	switch lang {
	case LangPython:
		return tree_sitter.NewLanguage(tree_sitter_python.Language())
	case LangJavaScript:
		return tree_sitter.NewLanguage(tree_sitter_javascript.Language())
	case LangTypeScript:
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	case LangCPP:
		return tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	case LangGo:
		return tree_sitter.NewLanguage(tree_sitter_go.Language())
	case LangRust:
		return tree_sitter.NewLanguage(tree_sitter_rust.Language())
	default:
		return nil
	}
}

// parseTree parses content with the grammar for lang. A new tree-sitter
// parser is created per call, so concurrent parses of different files need
// no locking. The caller must Close the returned tree.
//
// A tree containing syntax error nodes produces a *ParseError locating the
// first error; no symbols are extracted from a broken file so that the
// previous good snapshot stays authoritative.
func parseTree(content []byte, lang Language, path string) (*tree_sitter.Tree, error) {
	grammar := tsLanguage(lang)
	if grammar == nil {
		return nil, fmt.Errorf("no grammar for language %s: %w", lang, ErrUnknownLanguage)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(grammar); err != nil {
		return nil, fmt.Errorf("set language %s: %w", lang, err)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s", path)
	}

	root := tree.RootNode()
	if root.HasError() {
		errNode := firstSyntaxError(root)
		pos := errNode.StartPosition()
		tree.Close()
		return nil, &ParseError{
			Path:   path,
			Line:   int(pos.Row) + 1,
			Column: int(pos.Column) + 1,
			Msg:    "syntax error",
		}
	}

	return tree, nil
}

// firstSyntaxError locates the shallowest, earliest ERROR or missing node
// under node. node must satisfy HasError.
func firstSyntaxError(node *tree_sitter.Node) *tree_sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.IsMissing() || child.HasError() {
			return firstSyntaxError(child)
		}
	}
	return node
}

// rawAccum collects adapter output during a tree walk.
type rawAccum struct {
	symbols []RawSymbol
	refs    []RawReference
}

func (a *rawAccum) addSymbol(s RawSymbol) {
	a.symbols = append(a.symbols, s)
}

func (a *rawAccum) addRef(r RawReference) {
	a.refs = append(a.refs, r)
}

// pushScope returns a new scope chain with name appended. The input slice is
// never aliased so sibling branches cannot clobber each other.
func pushScope(scope []string, name string) []string {
	out := make([]string, len(scope)+1)
	copy(out, scope)
	out[len(scope)] = name
	return out
}

// rawSymbolAt builds a RawSymbol from a node's spans.
func rawSymbolAt(node *tree_sitter.Node, name, kind string, scope []string) RawSymbol {
	return RawSymbol{
		Name:      name,
		Kind:      kind,
		Scope:     scope,
		StartLine: int(node.StartPosition().Row) + 1,
		EndLine:   int(node.EndPosition().Row) + 1,
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
	}
}

// signatureBefore returns the source text from the start of node up to the
// start of body, collapsed to one line. Used for function/class signatures.
func signatureBefore(node, body *tree_sitter.Node, source []byte) string {
	if body == nil {
		return ""
	}
	start := node.StartByte()
	end := body.StartByte()
	if end <= start || int(end) > len(source) {
		return ""
	}
	sig := string(source[start:end])
	sig = strings.Join(strings.Fields(sig), " ")
	return strings.TrimRight(sig, " :{")
}

// lineComments collects the contiguous run of comment lines directly above
// node and returns them stripped of comment markers. Shared by the C-family
// and script adapters for doc text.
func lineComments(node *tree_sitter.Node, source []byte, marker string) string {
	var lines []string
	prev := node.PrevSibling()
	expected := int(node.StartPosition().Row)
	for prev != nil && prev.Kind() == "comment" {
		row := int(prev.EndPosition().Row)
		if row < expected-1 {
			break
		}
		text := prev.Utf8Text(source)
		if !strings.HasPrefix(text, marker) {
			break
		}
		text = strings.TrimSpace(strings.TrimPrefix(text, marker))
		lines = append([]string{text}, lines...)
		expected = int(prev.StartPosition().Row)
		prev = prev.PrevSibling()
	}
	return strings.Join(lines, "\n")
}
