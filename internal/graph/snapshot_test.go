package graph

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.db")

	src := NewStore()
	gen := src.NextGeneration()
	target := sym("models.py", "models", "User")
	_, err := src.ApplyFileUpdate("models.py", LangPython, "h1", gen, []Symbol{target}, nil)
	require.NoError(t, err)
	_, err = src.ApplyFileUpdate("app.py", LangPython, "h2", gen, nil, []Reference{
		{Target: QualifiedName{"models", "User"}, Kind: RefKindImport, Line: 1},
	})
	require.NoError(t, err)

	require.NoError(t, src.SaveSnapshot(path))

	dst := NewStore()
	require.NoError(t, dst.LoadSnapshot(path))

	t.Run("contents survive", func(t *testing.T) {
		assert.Equal(t, src.Stats(), dst.Stats())

		rec, ok := dst.File("models.py")
		require.True(t, ok)
		assert.Equal(t, "h1", rec.Hash)
		assert.Equal(t, ParseStatusClean, rec.Status)

		refs := dst.FileReferences("app.py")
		require.Len(t, refs, 1)
		assert.Equal(t, RefStateResolved, refs[0].State)
		assert.Equal(t, target.ID(), refs[0].ResolvedTo)
	})

	t.Run("generation counter continues", func(t *testing.T) {
		assert.Equal(t, gen, dst.Generation())
		assert.Equal(t, gen+1, dst.NextGeneration())
	})

	t.Run("tail index is rebuilt", func(t *testing.T) {
		out := dst.SymbolsByName(QualifiedName{"User"})
		require.Len(t, out, 1)
		assert.Equal(t, "models.User", out[0].Name.String())
	})

	t.Run("overwrite replaces old contents", func(t *testing.T) {
		small := NewStore()
		g := small.NextGeneration()
		_, err := small.ApplyFileUpdate("only.py", LangPython, "h3", g, []Symbol{sym("only.py", "only", "f")}, nil)
		require.NoError(t, err)
		require.NoError(t, small.SaveSnapshot(path))

		reloaded := NewStore()
		require.NoError(t, reloaded.LoadSnapshot(path))
		assert.Equal(t, 1, reloaded.Stats().FileCount)
		_, ok := reloaded.File("models.py")
		assert.False(t, ok)
	})
}
