package graph

import (
	"bytes"
	"path/filepath"
	"strings"
)

// RawSymbol is a symbol as reported by a language adapter, before
// normalization. Scope is the local scope chain inside the file (enclosing
// classes, functions, namespaces), not yet joined with the file's module
// path. Kind is the adapter's own vocabulary; the normalization layer maps
// it to the canonical SymbolKind.
type RawSymbol struct {
	Name      string
	Kind      string
	Scope     []string
	StartLine int
	EndLine   int
	StartByte int
	EndByte   int
	Doc       string
	Signature string
}

// RawReference is a reference as reported by a language adapter. Target is
// raw source text (a dotted name, an import specifier, an include path);
// resolution against the global graph happens in the store, never in the
// adapter.
type RawReference struct {
	Scope  []string
	Target string
	Kind   string
	Line   int
}

// Adapter converts raw source text of one language into raw symbols and
// references. Adapters are stateless: concurrent Parse calls on different
// files are safe, and identical content always yields identical output in
// source-position order.
type Adapter interface {
	// Language returns the language tag this adapter handles.
	Language() Language

	// Parse extracts symbols and references from one file's content. A
	// syntactically invalid file returns a *ParseError; the previous
	// snapshot of the file stays authoritative.
	Parse(content []byte, path string) ([]RawSymbol, []RawReference, error)
}

// Registry dispatches files to adapters by extension, falling back to
// content sniffing when the extension is ambiguous or absent.
type Registry struct {
	adapters map[Language]Adapter
	byExt    map[string]Language
}

// extToLanguage maps unambiguous file extensions to languages.
var extToLanguage = map[string]Language{
	".py":  LangPython,
	".pyi": LangPython,
	".js":  LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".jsx": LangJavaScript,
	".ts":  LangTypeScript,
	".tsx": LangTypeScript,
	".cc":  LangCPP,
	".cpp": LangCPP,
	".cxx": LangCPP,
	".hpp": LangCPP,
	".hh":  LangCPP,
	".hxx": LangCPP,
	".go":  LangGo,
	".rs":  LangRust,
}

// NewRegistry returns a Registry with all supported language adapters
// registered.
func NewRegistry() *Registry {
	r := &Registry{
		adapters: make(map[Language]Adapter),
		byExt:    extToLanguage,
	}
	for _, a := range []Adapter{
		newPythonAdapter(),
		newJavaScriptAdapter(),
		newTypeScriptAdapter(),
		newCPPAdapter(),
		newGoAdapter(),
		newRustAdapter(),
	} {
		r.adapters[a.Language()] = a
	}
	return r
}

// Adapter returns the adapter for a language, or nil.
func (r *Registry) Adapter(lang Language) Adapter {
	return r.adapters[lang]
}

// Languages returns the registered language tags.
func (r *Registry) Languages() []Language {
	out := make([]Language, 0, len(r.adapters))
	for _, l := range SupportedLanguages {
		if _, ok := r.adapters[l]; ok {
			out = append(out, l)
		}
	}
	return out
}

// KnowsExtension reports whether path carries an extension that could map to
// a registered language. ".h" counts: it is resolved by sniffing at dispatch.
func (r *Registry) KnowsExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".h" {
		return true
	}
	_, ok := r.byExt[ext]
	return ok
}

// Detect determines the language for a file. Extension wins when
// unambiguous; ".h" and extensionless files are sniffed from content.
// Returns ErrUnknownLanguage when nothing matches.
func (r *Registry) Detect(path string, content []byte) (Language, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := r.byExt[ext]; ok {
		return lang, nil
	}
	if ext == ".h" {
		// A header with C++ constructs is C++; plain C headers are not
		// supported and fall through to unknown.
		if sniffCPPHeader(content) {
			return LangCPP, nil
		}
		return "", ErrUnknownLanguage
	}
	if ext == "" {
		if lang, ok := sniffShebang(content); ok {
			return lang, nil
		}
	}
	return "", ErrUnknownLanguage
}

// Dispatch resolves the adapter for a file via Detect.
func (r *Registry) Dispatch(path string, content []byte) (Adapter, Language, error) {
	lang, err := r.Detect(path, content)
	if err != nil {
		return nil, "", err
	}
	a, ok := r.adapters[lang]
	if !ok {
		return nil, "", ErrUnknownLanguage
	}
	return a, lang, nil
}

// cppHeaderMarkers are tokens that only appear in C++ (not plain C) headers.
var cppHeaderMarkers = [][]byte{
	[]byte("class "),
	[]byte("namespace "),
	[]byte("template<"),
	[]byte("template <"),
	[]byte("::"),
}

func sniffCPPHeader(content []byte) bool {
	for _, marker := range cppHeaderMarkers {
		if bytes.Contains(content, marker) {
			return true
		}
	}
	return false
}

// sniffShebang inspects the first line of an extensionless file for an
// interpreter line.
func sniffShebang(content []byte) (Language, bool) {
	if !bytes.HasPrefix(content, []byte("#!")) {
		return "", false
	}
	line := content
	if idx := bytes.IndexByte(content, '\n'); idx != -1 {
		line = content[:idx]
	}
	switch {
	case bytes.Contains(line, []byte("python")):
		return LangPython, true
	case bytes.Contains(line, []byte("node")):
		return LangJavaScript, true
	}
	return "", false
}
