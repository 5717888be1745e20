package graph

import (
	"bytes"
	"path"
	"strings"
)

// rawKindMaps translate each adapter's node-kind vocabulary into the
// canonical SymbolKind set.
var rawKindMaps = map[Language]map[string]SymbolKind{
	LangPython: {
		"function_definition": SymbolKindFunction,
		"method_definition":   SymbolKindMethod,
		"class_definition":    SymbolKindClass,
		"assignment":          SymbolKindVariable,
		"class_field":         SymbolKindField,
		"import":              SymbolKindImport,
	},
	LangJavaScript: {
		"function_declaration":           SymbolKindFunction,
		"generator_function_declaration": SymbolKindFunction,
		"arrow_function":                 SymbolKindFunction,
		"class_declaration":              SymbolKindClass,
		"method_definition":              SymbolKindMethod,
		"field_definition":               SymbolKindField,
		"variable_declarator":            SymbolKindVariable,
		"import":                         SymbolKindImport,
	},
	LangTypeScript: {
		"function_declaration":           SymbolKindFunction,
		"generator_function_declaration": SymbolKindFunction,
		"arrow_function":                 SymbolKindFunction,
		"class_declaration":              SymbolKindClass,
		"interface_declaration":          SymbolKindClass,
		"type_alias_declaration":         SymbolKindClass,
		"enum_declaration":               SymbolKindClass,
		"internal_module":                SymbolKindModule,
		"method_definition":              SymbolKindMethod,
		"field_definition":               SymbolKindField,
		"variable_declarator":            SymbolKindVariable,
		"import":                         SymbolKindImport,
	},
	LangCPP: {
		"namespace_definition": SymbolKindModule,
		"class_specifier":      SymbolKindClass,
		"struct_specifier":     SymbolKindClass,
		"enum_specifier":       SymbolKindClass,
		"function_definition":  SymbolKindFunction,
		"method_definition":    SymbolKindMethod,
		"method_declaration":   SymbolKindMethod,
		"field_declaration":    SymbolKindField,
		"declaration":          SymbolKindVariable,
	},
	LangGo: {
		"function_declaration": SymbolKindFunction,
		"method_declaration":   SymbolKindMethod,
		"type_spec":            SymbolKindClass,
		"struct_type":          SymbolKindClass,
		"interface_type":       SymbolKindClass,
		"field_declaration":    SymbolKindField,
		"const_spec":           SymbolKindVariable,
		"var_spec":             SymbolKindVariable,
	},
	LangRust: {
		"mod_item":                SymbolKindModule,
		"struct_item":             SymbolKindClass,
		"enum_item":               SymbolKindClass,
		"trait_item":              SymbolKindClass,
		"union_item":              SymbolKindClass,
		"type_item":               SymbolKindClass,
		"function_item":           SymbolKindFunction,
		"method_item":             SymbolKindMethod,
		"function_signature_item": SymbolKindMethod,
		"field_declaration":       SymbolKindField,
		"const_item":              SymbolKindVariable,
		"static_item":             SymbolKindVariable,
	},
}

var rawRefKinds = map[string]RefKind{
	"call":        RefKindCall,
	"import":      RefKindImport,
	"inherit":     RefKindInherit,
	"instantiate": RefKindInstantiate,
	"type_use":    RefKindTypeUse,
}

// modulePath derives the qualified-name prefix for a file from its relative
// path: directories become segments and the file stem becomes the final
// segment. Language conventions that make a file transparent to naming are
// applied (__init__.py, index.ts, Rust mod.rs, Go package files).
func modulePath(lang Language, filePath string) QualifiedName {
	p := strings.TrimSuffix(filePath, path.Ext(filePath))
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	segments := strings.Split(p, "/")

	drop := func(names ...string) {
		last := segments[len(segments)-1]
		for _, n := range names {
			if last == n {
				segments = segments[:len(segments)-1]
				return
			}
		}
	}

	switch lang {
	case LangPython:
		drop("__init__")
	case LangJavaScript, LangTypeScript:
		drop("index")
	case LangRust:
		if segments[0] == "src" {
			segments = segments[1:]
		}
		if len(segments) > 0 {
			drop("mod", "lib", "main")
		}
	case LangGo:
		// Go names by package, not file: the directory is the module path.
		segments = segments[:len(segments)-1]
	}

	out := make(QualifiedName, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Normalize converts adapter output for one file into canonical symbols and
// references: scopes are prefixed with the file's module path, raw kinds are
// mapped, a synthetic module symbol spanning the whole file is added, and
// duplicate IDs collapse first-wins.
func Normalize(lang Language, filePath string, content []byte, rawSyms []RawSymbol, rawRefs []RawReference) ([]Symbol, []Reference) {
	prefix := modulePath(lang, filePath)

	symbols := make([]Symbol, 0, len(rawSyms)+1)
	seen := make(map[string]bool, len(rawSyms)+1)

	add := func(s Symbol) {
		id := s.ID()
		if seen[id] {
			return
		}
		seen[id] = true
		symbols = append(symbols, s)
	}

	if len(prefix) > 0 {
		add(Symbol{
			Name:      append(QualifiedName{}, prefix...),
			Kind:      SymbolKindModule,
			Path:      filePath,
			Language:  lang,
			StartLine: 1,
			EndLine:   countLines(content),
			StartByte: 0,
			EndByte:   len(content),
		})
	}

	kindMap := rawKindMaps[lang]
	for _, raw := range rawSyms {
		kind, ok := kindMap[raw.Kind]
		if !ok {
			continue
		}
		name := make(QualifiedName, 0, len(prefix)+len(raw.Scope)+1)
		name = append(name, prefix...)
		name = append(name, raw.Scope...)
		name = append(name, raw.Name)
		add(Symbol{
			Name:      name,
			Kind:      kind,
			Path:      filePath,
			Language:  lang,
			StartLine: raw.StartLine,
			EndLine:   raw.EndLine,
			StartByte: raw.StartByte,
			EndByte:   raw.EndByte,
			Doc:       raw.Doc,
			Signature: raw.Signature,
		})
	}

	refs := make([]Reference, 0, len(rawRefs))
	for _, raw := range rawRefs {
		kind, ok := rawRefKinds[raw.Kind]
		if !ok {
			continue
		}
		target := normalizeTarget(raw.Target)
		if len(target) == 0 {
			continue
		}
		from := ""
		if len(raw.Scope) > 0 {
			name := make(QualifiedName, 0, len(prefix)+len(raw.Scope))
			name = append(name, prefix...)
			name = append(name, raw.Scope...)
			from = name.String()
		} else if len(prefix) > 0 {
			from = prefix.String()
		}
		refs = append(refs, Reference{
			FromPath:   filePath,
			FromSymbol: from,
			Target:     target,
			Kind:       kind,
			Line:       raw.Line,
			State:      RefStateUnresolved,
		})
	}

	return symbols, refs
}

// normalizeTarget converts a raw reference target (dotted name, import
// specifier, include path, Rust path) into qualified-name segments.
func normalizeTarget(raw string) QualifiedName {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'`<>")

	// Relative import specifiers: "./b", "../util/b".
	for {
		switch {
		case strings.HasPrefix(s, "./"):
			s = s[2:]
		case strings.HasPrefix(s, "../"):
			s = s[3:]
		default:
			goto trimmed
		}
	}
trimmed:
	if ext := path.Ext(s); ext != "" {
		if _, ok := extToLanguage[strings.ToLower(ext)]; ok || strings.EqualFold(ext, ".h") {
			s = strings.TrimSuffix(s, ext)
		}
	}

	s = strings.ReplaceAll(s, "::", "/")
	s = strings.ReplaceAll(s, ".", "/")

	parts := strings.Split(s, "/")
	out := make(QualifiedName, 0, len(parts))
	for _, p := range parts {
		switch p {
		case "", "crate", "self", "super":
			continue
		}
		out = append(out, p)
	}
	return out
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 1
	}
	n := bytes.Count(content, []byte{'\n'}) + 1
	if content[len(content)-1] == '\n' {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}
