package mcptools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtlabs/cortex/internal/graph"
	"github.com/veldtlabs/cortex/internal/orchestrator"
)

func newTestService(t *testing.T) *BrainService {
	t.Helper()
	root := t.TempDir()
	writeFixture(t, root, "models.py", `class User:
    """A registered account holder."""

    def validate(self):
        return True
`)
	writeFixture(t, root, "app.py", `from models import User

def main():
    User().validate()
`)

	store := graph.NewStore()
	source := orchestrator.NewDirSource(root)
	orch := orchestrator.New(source, store)
	return NewBrainService(store, orch, root)
}

func writeFixture(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIndexRepo(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, out, err := svc.IndexRepo(ctx, nil, IndexRepoInput{})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Summary.Parsed)
	assert.Equal(t, 2, out.Stats.FileCount)
	assert.Greater(t, out.Stats.SymbolCount, 0)

	t.Run("second run is incremental", func(t *testing.T) {
		_, out, err := svc.IndexRepo(ctx, nil, IndexRepoInput{})
		require.NoError(t, err)
		assert.Equal(t, 0, out.Summary.Parsed)
		assert.Equal(t, 2, out.Summary.Unchanged)
	})

	t.Run("bad path rejected", func(t *testing.T) {
		_, _, err := svc.IndexRepo(ctx, nil, IndexRepoInput{RepoPath: "/no/such/dir"})
		assert.Error(t, err)
	})
}

func TestQuerySymbols(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.IndexRepo(ctx, nil, IndexRepoInput{})
	require.NoError(t, err)

	t.Run("by text", func(t *testing.T) {
		_, out, err := svc.QuerySymbols(ctx, nil, QuerySymbolsInput{Query: "account holder"})
		require.NoError(t, err)
		require.Equal(t, 1, out.Total)
		assert.Equal(t, "models.User", out.Symbols[0].Name.String())
	})

	t.Run("by kind", func(t *testing.T) {
		_, out, err := svc.QuerySymbols(ctx, nil, QuerySymbolsInput{Kind: "method"})
		require.NoError(t, err)
		require.Equal(t, 1, out.Total)
		assert.Equal(t, "models.User.validate", out.Symbols[0].Name.String())
	})

	t.Run("by prefix with pagination", func(t *testing.T) {
		_, out, err := svc.QuerySymbols(ctx, nil, QuerySymbolsInput{Prefix: "models", Limit: 1})
		require.NoError(t, err)
		assert.Len(t, out.Symbols, 1)
		assert.Equal(t, 3, out.Total, "module, class and method under models")

		_, page2, err := svc.QuerySymbols(ctx, nil, QuerySymbolsInput{Prefix: "models", Offset: 1, Limit: 5})
		require.NoError(t, err)
		assert.Len(t, page2.Symbols, 2)
	})
}

func TestGetReferences(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.IndexRepo(ctx, nil, IndexRepoInput{})
	require.NoError(t, err)

	_, out, err := svc.GetReferences(ctx, nil, GetReferencesInput{Name: "models.User"})
	require.NoError(t, err)
	assert.Equal(t, len(out.References), out.Total)
	require.NotEmpty(t, out.References)
	assert.Equal(t, "app.py", out.References[0].FromPath)

	t.Run("name required", func(t *testing.T) {
		_, _, err := svc.GetReferences(ctx, nil, GetReferencesInput{})
		assert.Error(t, err)
	})
}

func TestGetBriefing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.IndexRepo(ctx, nil, IndexRepoInput{})
	require.NoError(t, err)

	_, out, err := svc.GetBriefing(ctx, nil, GetBriefingInput{Name: "models.User.validate"})
	require.NoError(t, err)
	assert.Equal(t, "models.User.validate", out.Briefing.Symbol.Name.String())
	assert.NotEmpty(t, out.Briefing.FileNeighbors)

	t.Run("unknown symbol", func(t *testing.T) {
		_, _, err := svc.GetBriefing(ctx, nil, GetBriefingInput{Name: "no.such.symbol"})
		assert.Error(t, err)
	})
}

func TestBatchSummary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("before any batch", func(t *testing.T) {
		_, out, err := svc.BatchSummary(ctx, nil, BatchSummaryInput{})
		require.NoError(t, err)
		assert.Nil(t, out.Summary)
		assert.Equal(t, 0, out.Stats.FileCount)
	})

	t.Run("after indexing", func(t *testing.T) {
		_, _, err := svc.IndexRepo(ctx, nil, IndexRepoInput{})
		require.NoError(t, err)

		_, out, err := svc.BatchSummary(ctx, nil, BatchSummaryInput{})
		require.NoError(t, err)
		require.NotNil(t, out.Summary)
		assert.Equal(t, 2, out.Summary.Parsed)
		assert.Equal(t, 2, out.Stats.FileCount)
	})
}

func TestNewBrainMCPServer(t *testing.T) {
	svc := newTestService(t)
	server := NewBrainMCPServer(svc)
	require.NotNil(t, server)
}
