package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtlabs/cortex/internal/graph"
)

func TestWatcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "models.py", pyModels)

	source := NewDirSource(root)
	store := graph.NewStore()
	orch := New(source, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := orch.Run(ctx)
	require.NoError(t, err)

	batches := make(chan BatchSummary, 16)
	watcher := NewWatcher(source, orch,
		WithDebounce(50*time.Millisecond),
		WithBatchCallback(func(s BatchSummary) { batches <- s }))

	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	// Give the watcher time to register the tree.
	time.Sleep(200 * time.Millisecond)

	t.Run("write triggers reparse", func(t *testing.T) {
		writeFile(t, root, "extra.py", "def added():\n    pass\n")

		require.Eventually(t, func() bool {
			return len(store.SymbolsByName(graph.QualifiedName{"extra", "added"})) == 1
		}, 5*time.Second, 20*time.Millisecond, "new file should be indexed")

		select {
		case s := <-batches:
			assert.Greater(t, s.Parsed, 0)
		case <-time.After(5 * time.Second):
			t.Fatal("no batch callback")
		}
	})

	t.Run("remove triggers cleanup", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(root, "extra.py")))

		require.Eventually(t, func() bool {
			_, ok := store.File("extra.py")
			return !ok
		}, 5*time.Second, 20*time.Millisecond, "removed file should leave the graph")
	})

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
