package graph

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sym(path string, name ...string) Symbol {
	return Symbol{
		Name:      QualifiedName(name),
		Kind:      SymbolKindFunction,
		Path:      path,
		Language:  LangPython,
		StartLine: 1,
		EndLine:   2,
	}
}

func TestStoreApplyFileUpdate(t *testing.T) {
	t.Run("insert and replace", func(t *testing.T) {
		s := NewStore()

		gen := s.NextGeneration()
		res, err := s.ApplyFileUpdate("a.py", LangPython, "h1", gen, []Symbol{
			sym("a.py", "a", "foo"),
			sym("a.py", "a", "bar"),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Added)
		assert.Equal(t, 0, res.Removed)

		rec, ok := s.File("a.py")
		require.True(t, ok)
		assert.Equal(t, ParseStatusClean, rec.Status)
		assert.Equal(t, gen, rec.Generation)
		assert.Len(t, rec.Symbols, 2)

		gen2 := s.NextGeneration()
		res, err = s.ApplyFileUpdate("a.py", LangPython, "h2", gen2, []Symbol{
			sym("a.py", "a", "foo"),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Added)
		assert.Equal(t, 2, res.Removed)

		assert.Len(t, s.Query(Filter{Path: "a.py"}), 1)
	})

	t.Run("stale generation rejected", func(t *testing.T) {
		s := NewStore()
		old := s.NextGeneration()
		newer := s.NextGeneration()

		_, err := s.ApplyFileUpdate("a.py", LangPython, "h2", newer, []Symbol{sym("a.py", "a", "foo")}, nil)
		require.NoError(t, err)

		_, err = s.ApplyFileUpdate("a.py", LangPython, "h1", old, []Symbol{sym("a.py", "a", "stale")}, nil)
		assert.ErrorIs(t, err, ErrStaleGeneration)

		syms := s.Query(Filter{Path: "a.py"})
		require.Len(t, syms, 1)
		assert.Equal(t, "a.foo", syms[0].Name.String(), "losing update must not leak symbols")
	})

	t.Run("failure keeps previous snapshot as stale", func(t *testing.T) {
		s := NewStore()
		gen := s.NextGeneration()
		_, err := s.ApplyFileUpdate("a.py", LangPython, "h1", gen, []Symbol{sym("a.py", "a", "foo")}, nil)
		require.NoError(t, err)

		gen2 := s.NextGeneration()
		require.NoError(t, s.MarkFileFailure("a.py", LangPython, "h2", gen2))

		rec, ok := s.File("a.py")
		require.True(t, ok)
		assert.Equal(t, ParseStatusStale, rec.Status)
		assert.Equal(t, "h2", rec.Hash, "hash advances so the broken file is not reparsed")
		assert.Len(t, s.Query(Filter{Path: "a.py"}), 1, "old symbols still served")
	})

	t.Run("failure on unknown file records error", func(t *testing.T) {
		s := NewStore()
		gen := s.NextGeneration()
		require.NoError(t, s.MarkFileFailure("broken.py", LangPython, "h1", gen))

		rec, ok := s.File("broken.py")
		require.True(t, ok)
		assert.Equal(t, ParseStatusError, rec.Status)
		assert.Empty(t, rec.Symbols)
	})

	t.Run("remove file demotes inbound refs", func(t *testing.T) {
		s := NewStore()
		gen := s.NextGeneration()
		_, err := s.ApplyFileUpdate("b.py", LangPython, "h1", gen, []Symbol{sym("b.py", "b", "target")}, nil)
		require.NoError(t, err)
		_, err = s.ApplyFileUpdate("a.py", LangPython, "h1", gen, nil, []Reference{
			{Target: QualifiedName{"b", "target"}, Kind: RefKindCall, Line: 1},
		})
		require.NoError(t, err)

		refs := s.FileReferences("a.py")
		require.Len(t, refs, 1)
		assert.Equal(t, RefStateResolved, refs[0].State)

		require.True(t, s.RemoveFile("b.py"))
		refs = s.FileReferences("a.py")
		require.Len(t, refs, 1)
		assert.Equal(t, RefStateUnresolved, refs[0].State)
		assert.Empty(t, refs[0].ResolvedTo)
	})
}

func TestStoreQuery(t *testing.T) {
	s := NewStore()
	gen := s.NextGeneration()

	klass := sym("m.py", "m", "User")
	klass.Kind = SymbolKindClass
	klass.Doc = "A registered account holder."
	method := sym("m.py", "m", "User", "validate")
	method.Kind = SymbolKindMethod
	fn := sym("m.py", "m", "serialize")

	_, err := s.ApplyFileUpdate("m.py", LangPython, "h1", gen, []Symbol{klass, method, fn}, nil)
	require.NoError(t, err)

	t.Run("by kind", func(t *testing.T) {
		out := s.Query(Filter{Kind: SymbolKindClass})
		require.Len(t, out, 1)
		assert.Equal(t, "m.User", out[0].Name.String())
	})

	t.Run("by prefix", func(t *testing.T) {
		out := s.Query(Filter{NamePrefix: QualifiedName{"m", "User"}})
		assert.Len(t, out, 2)
	})

	t.Run("by text over doc", func(t *testing.T) {
		out := s.Query(Filter{Text: "account holder"})
		require.Len(t, out, 1)
		assert.Equal(t, "m.User", out[0].Name.String())
	})

	t.Run("deterministic order and limit", func(t *testing.T) {
		out := s.Query(Filter{})
		require.Len(t, out, 3)
		assert.Equal(t, "m.User", out[0].Name.String())
		assert.Equal(t, "m.User.validate", out[1].Name.String())
		assert.Equal(t, "m.serialize", out[2].Name.String())

		assert.Len(t, s.Query(Filter{Limit: 2}), 2)
	})

	t.Run("lookup by suffix", func(t *testing.T) {
		out := s.SymbolsByName(QualifiedName{"validate"})
		require.Len(t, out, 1)
		assert.Equal(t, "m.User.validate", out[0].Name.String())
	})
}

func TestStoreStats(t *testing.T) {
	s := NewStore()
	gen := s.NextGeneration()

	_, err := s.ApplyFileUpdate("a.py", LangPython, "h1", gen,
		[]Symbol{sym("a.py", "a", "foo")},
		[]Reference{
			{Target: QualifiedName{"a", "foo"}, Kind: RefKindCall, Line: 1},
			{Target: QualifiedName{"nowhere"}, Kind: RefKindCall, Line: 2},
		})
	require.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, 1, stats.FileCount)
	assert.Equal(t, 1, stats.SymbolCount)
	assert.Equal(t, 2, stats.ReferenceCount)
	assert.Equal(t, 1, stats.ResolvedRefs)
	assert.Equal(t, 1, stats.PendingRefs)
	assert.Equal(t, gen, stats.Generation)
}

func TestStoreConcurrentReplacement(t *testing.T) {
	s := NewStore()

	// Readers race against repeated replacements of one file. Every observed
	// symbol set must come from a single generation: replace-then-expose
	// means a query never sees old and new symbols mixed.
	stop := make(chan struct{})
	var mixed atomic.Bool
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				syms := s.Query(Filter{Path: "a.py"})
				for _, sm := range syms {
					if sm.Generation != syms[0].Generation {
						mixed.Store(true)
						return
					}
				}
				for _, sm := range s.SymbolsByName(QualifiedName{"a", "foo"}) {
					if rec, ok := s.File(sm.Path); ok && sm.Generation > rec.Generation {
						mixed.Store(true)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		gen := s.NextGeneration()
		syms := []Symbol{sym("a.py", "a", "foo"), sym("a.py", "a", "bar")}
		if i%2 == 1 {
			syms = append(syms, sym("a.py", "a", "baz"))
		}
		_, err := s.ApplyFileUpdate("a.py", LangPython, fmt.Sprintf("h%d", i), gen, syms, nil)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	assert.False(t, mixed.Load(), "query observed symbols from two generations for one file")
}
