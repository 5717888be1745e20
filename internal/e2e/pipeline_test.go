//go:build e2e

package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtlabs/cortex/internal/graph"
	"github.com/veldtlabs/cortex/internal/orchestrator"
	"github.com/veldtlabs/cortex/internal/query"
)

// copyFixture copies a fixture project into a temp dir so tests can mutate it.
func copyFixture(t *testing.T, name string) string {
	t.Helper()
	src := filepath.Join("..", "..", "testdata", "fixtures", name)
	dst := t.TempDir()

	entries, err := os.ReadDir(src)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dst, e.Name()), data, 0o644))
	}
	return dst
}

func index(t *testing.T, root string) (*graph.Store, *orchestrator.Orchestrator, *query.Facade) {
	t.Helper()
	store := graph.NewStore()
	orch := orchestrator.New(orchestrator.NewDirSource(root), store)
	_, err := orch.Run(context.Background())
	require.NoError(t, err)
	return store, orch, query.New(store, orch)
}

// TestPipeline_Python indexes a Python project and walks the graph from
// symbols through references to a briefing.
func TestPipeline_Python(t *testing.T) {
	root := copyFixture(t, "py_project")
	store, _, facade := index(t, root)

	t.Run("symbols extracted", func(t *testing.T) {
		syms, err := facade.Lookup("models.User")
		require.NoError(t, err)
		require.Len(t, syms, 1)
		assert.Equal(t, graph.SymbolKindClass, syms[0].Kind)
		assert.Equal(t, "A registered account holder.", syms[0].Doc)

		methods := facade.Search(graph.Filter{Kind: graph.SymbolKindMethod}, 0, 0)
		var names []string
		for _, s := range methods.Symbols {
			names = append(names, s.Name.String())
		}
		assert.Contains(t, names, "models.User.validate")
	})

	t.Run("cross-file references resolve", func(t *testing.T) {
		refs, err := facade.References("models.serialize")
		require.NoError(t, err)
		require.NotEmpty(t, refs)

		var fromApp bool
		for _, r := range refs {
			if r.FromPath == "app.py" && r.State == graph.RefStateResolved {
				fromApp = true
			}
		}
		assert.True(t, fromApp, "app.py call to serialize should resolve into models.py")
	})

	t.Run("inheritance resolves to the import binding", func(t *testing.T) {
		refs := store.FileReferences("models.py")
		var inherit *graph.Reference
		for i := range refs {
			if refs[i].Kind == graph.RefKindInherit {
				inherit = &refs[i]
			}
		}
		require.NotNil(t, inherit)
		assert.Equal(t, graph.QualifiedName{"Entity"}, inherit.Target)
		assert.Equal(t, graph.RefStateResolved, inherit.State)

		binding, ok := store.Symbol(inherit.ResolvedTo)
		require.True(t, ok)
		assert.Equal(t, graph.SymbolKindImport, binding.Kind, "base module itself is outside the project")
	})

	t.Run("briefing bundles context", func(t *testing.T) {
		b, err := facade.Briefing("models.User.validate")
		require.NoError(t, err)
		assert.NotEmpty(t, b.FileNeighbors)
	})
}

// TestPipeline_MixedJSTS verifies that a JavaScript import resolves into a
// TypeScript module: the graph is language-agnostic at the name layer.
func TestPipeline_MixedJSTS(t *testing.T) {
	root := copyFixture(t, "js_project")
	store, _, _ := index(t, root)

	refs := store.FileReferences("a.js")
	require.NotEmpty(t, refs)

	barSyms := store.SymbolsByName(graph.QualifiedName{"b", "bar"})
	require.Len(t, barSyms, 1)
	assert.Equal(t, graph.LangTypeScript, barSyms[0].Language)

	var importResolved bool
	for _, r := range refs {
		if r.Kind == graph.RefKindImport && r.ResolvedTo == barSyms[0].ID() {
			importResolved = true
		}
	}
	assert.True(t, importResolved, "JS import {bar} from './b' should resolve to the TS symbol b.bar")

	moduleRefs := store.References(graph.QualifiedName{"b"})
	assert.NotEmpty(t, moduleRefs, "module specifier should reference the synthetic module symbol")
}

// TestPipeline_CPP verifies namespace scoping and out-of-line method
// definitions across header and implementation files.
func TestPipeline_CPP(t *testing.T) {
	root := copyFixture(t, "cpp_project")
	store, _, facade := index(t, root)

	syms, err := facade.Lookup("ui.Widget.draw")
	require.NoError(t, err)
	require.NotEmpty(t, syms, "Widget::draw should be indexed")

	var fromCpp bool
	for _, s := range syms {
		if s.Path == "widget.cpp" {
			fromCpp = true
			assert.Equal(t, graph.SymbolKindMethod, s.Kind)
		}
	}
	assert.True(t, fromCpp, "out-of-line definition should carry the qualified scope")

	inherits := store.References(graph.QualifiedName{"ui", "Shape"})
	require.NotEmpty(t, inherits, "Widget : public Shape should reference Shape")
}

// TestPipeline_Incremental exercises the generational lifecycle: edit,
// break, fix.
func TestPipeline_Incremental(t *testing.T) {
	root := copyFixture(t, "py_project")
	store, orch, facade := index(t, root)
	ctx := context.Background()

	modelsPath := filepath.Join(root, "models.py")
	original, err := os.ReadFile(modelsPath)
	require.NoError(t, err)

	t.Run("edit adds symbols under a new generation", func(t *testing.T) {
		genBefore := store.Stats().Generation

		edited := string(original) + "\n\ndef audit(user):\n    return user.name\n"
		require.NoError(t, os.WriteFile(modelsPath, []byte(edited), 0o644))

		summary, err := orch.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Parsed)
		assert.Equal(t, 1, summary.Unchanged)
		assert.Greater(t, summary.Generation, genBefore)

		syms, err := facade.Lookup("models.audit")
		require.NoError(t, err)
		assert.Len(t, syms, 1)
	})

	t.Run("broken file keeps last good snapshot", func(t *testing.T) {
		require.NoError(t, os.WriteFile(modelsPath, []byte("class Broken(:\n"), 0o644))

		summary, err := orch.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)

		rec, ok := store.File("models.py")
		require.True(t, ok)
		assert.Equal(t, graph.ParseStatusStale, rec.Status)

		syms, err := facade.Lookup("models.User")
		require.NoError(t, err)
		assert.Len(t, syms, 1, "stale snapshot still answers queries")
	})

	t.Run("fix restores clean state", func(t *testing.T) {
		require.NoError(t, os.WriteFile(modelsPath, original, 0o644))

		summary, err := orch.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Parsed)

		rec, ok := store.File("models.py")
		require.True(t, ok)
		assert.Equal(t, graph.ParseStatusClean, rec.Status)

		_, err = facade.Lookup("models.audit")
		require.NoError(t, err)
		syms, _ := facade.Lookup("models.audit")
		assert.Empty(t, syms, "symbols from the edited version are gone after revert")
	})
}

// TestPipeline_SnapshotPersistence saves the graph and reloads it into a
// fresh store.
func TestPipeline_SnapshotPersistence(t *testing.T) {
	root := copyFixture(t, "py_project")
	store, _, _ := index(t, root)

	dbPath := filepath.Join(t.TempDir(), "graph.db")
	require.NoError(t, store.SaveSnapshot(dbPath))

	restored := graph.NewStore()
	require.NoError(t, restored.LoadSnapshot(dbPath))

	assert.Equal(t, store.Stats(), restored.Stats())
	require.Len(t, restored.SymbolsByName(graph.QualifiedName{"models", "User"}), 1)
}
