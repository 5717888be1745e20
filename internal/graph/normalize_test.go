package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModulePath(t *testing.T) {
	cases := []struct {
		lang Language
		path string
		want QualifiedName
	}{
		{LangPython, "pkg/models.py", QualifiedName{"pkg", "models"}},
		{LangPython, "pkg/__init__.py", QualifiedName{"pkg"}},
		{LangJavaScript, "src/util/index.js", QualifiedName{"src", "util"}},
		{LangTypeScript, "b.ts", QualifiedName{"b"}},
		{LangRust, "src/store/mod.rs", QualifiedName{"store"}},
		{LangRust, "src/lib.rs", nil},
		{LangGo, "internal/graph/store.go", QualifiedName{"internal", "graph"}},
		{LangCPP, "ui/widget.cpp", QualifiedName{"ui", "widget"}},
	}
	for _, tc := range cases {
		got := modulePath(tc.lang, tc.path)
		if tc.want == nil {
			assert.Empty(t, got, "%s %s", tc.lang, tc.path)
		} else {
			assert.Equal(t, tc.want, got, "%s %s", tc.lang, tc.path)
		}
	}
}

func TestNormalizeTarget(t *testing.T) {
	cases := map[string]QualifiedName{
		"./b":                          {"b"},
		"./b/bar":                      {"b", "bar"},
		"../util/helpers.js":           {"util", "helpers"},
		"models.User":                  {"models", "User"},
		"std::collections::HashMap":    {"std", "collections", "HashMap"},
		"crate::store::Store":          {"store", "Store"},
		"widget.hpp":                   {"widget"},
		"<string>":                     {"string"},
		"'./config'":                   {"config"},
		"self.validate":                {"validate"},
	}
	for raw, want := range cases {
		assert.Equal(t, want, normalizeTarget(raw), "target %q", raw)
	}
}

func TestNormalize(t *testing.T) {
	content := []byte("class User:\n    def validate(self):\n        pass\n")

	rawSyms := []RawSymbol{
		{Name: "User", Kind: "class_definition", StartLine: 1, EndLine: 3},
		{Name: "validate", Kind: "method_definition", Scope: []string{"User"}, StartLine: 2, EndLine: 3},
		{Name: "mystery", Kind: "unmapped_kind", StartLine: 1, EndLine: 1},
	}
	rawRefs := []RawReference{
		{Scope: []string{"User", "validate"}, Target: "base.check", Kind: "call", Line: 3},
		{Target: "??", Kind: "nonsense", Line: 1},
	}

	syms, refs := Normalize(LangPython, "pkg/models.py", content, rawSyms, rawRefs)

	t.Run("module symbol synthesized", func(t *testing.T) {
		require.NotEmpty(t, syms)
		mod := syms[0]
		assert.Equal(t, QualifiedName{"pkg", "models"}, mod.Name)
		assert.Equal(t, SymbolKindModule, mod.Kind)
		assert.Equal(t, 1, mod.StartLine)
		assert.Equal(t, 3, mod.EndLine)
	})

	t.Run("names are prefixed", func(t *testing.T) {
		var names []string
		for _, s := range syms {
			names = append(names, s.Name.String())
		}
		assert.Contains(t, names, "pkg.models.User")
		assert.Contains(t, names, "pkg.models.User.validate")
		assert.NotContains(t, names, "pkg.models.mystery", "unmapped kinds are dropped")
	})

	t.Run("references carry enclosing symbol", func(t *testing.T) {
		require.Len(t, refs, 1, "unmapped ref kinds are dropped")
		ref := refs[0]
		assert.Equal(t, "pkg.models.User.validate", ref.FromSymbol)
		assert.Equal(t, QualifiedName{"base", "check"}, ref.Target)
		assert.Equal(t, RefKindCall, ref.Kind)
		assert.Equal(t, RefStateUnresolved, ref.State)
	})

	t.Run("duplicate ids collapse first wins", func(t *testing.T) {
		dupes := []RawSymbol{
			{Name: "User", Kind: "class_definition", StartLine: 1, EndLine: 3},
			{Name: "User", Kind: "assignment", StartLine: 5, EndLine: 5},
		}
		out, _ := Normalize(LangPython, "pkg/models.py", content, dupes, nil)
		var hits []Symbol
		for _, s := range out {
			if s.Name.Tail() == "User" {
				hits = append(hits, s)
			}
		}
		require.Len(t, hits, 1)
		assert.Equal(t, SymbolKindClass, hits[0].Kind)
	})
}
