package mcptools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/veldtlabs/cortex/internal/graph"
	"github.com/veldtlabs/cortex/internal/orchestrator"
	"github.com/veldtlabs/cortex/internal/query"
)

// BrainService holds the graph store, orchestrator and query facade used by
// the MCP tool handlers.
type BrainService struct {
	store   *graph.Store
	orch    *orchestrator.Orchestrator
	facade  *query.Facade
	log     *zap.Logger
	root    string
	workers int
}

// ServiceOption configures a BrainService.
type ServiceOption func(*BrainService)

// WithServiceLogger sets the service logger.
func WithServiceLogger(log *zap.Logger) ServiceOption {
	return func(s *BrainService) { s.log = log }
}

// WithIndexWorkers bounds re-index worker pools started by index_repo.
func WithIndexWorkers(n int) ServiceOption {
	return func(s *BrainService) { s.workers = n }
}

// NewBrainService creates a BrainService over an existing store and
// orchestrator. root is the repository index_repo defaults to.
func NewBrainService(store *graph.Store, orch *orchestrator.Orchestrator, root string, opts ...ServiceOption) *BrainService {
	s := &BrainService{
		store:  store,
		orch:   orch,
		facade: query.New(store, orch),
		log:    zap.NewNop(),
		root:   root,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IndexRepo runs a full parse batch over a repository and reports the batch
// summary plus resulting graph statistics.
func (s *BrainService) IndexRepo(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexRepoInput,
) (*mcp.CallToolResult, IndexRepoOutput, error) {
	root := input.RepoPath
	if root == "" {
		root = s.root
	}
	if root == "" {
		return nil, IndexRepoOutput{}, fmt.Errorf("repoPath is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, IndexRepoOutput{}, fmt.Errorf("cannot access repoPath: %w", err)
	}
	if !info.IsDir() {
		return nil, IndexRepoOutput{}, fmt.Errorf("repoPath is not a directory: %s", root)
	}

	orch := s.orch
	// A different root or exclude set gets a one-off orchestrator over the
	// same store.
	if root != s.root || len(input.ExcludeDirs) > 0 || len(input.Languages) > 0 {
		opts := []orchestrator.Option{
			orchestrator.WithLogger(s.log),
			orchestrator.WithWorkers(s.workers),
		}
		if len(input.Languages) > 0 {
			langs := make([]graph.Language, 0, len(input.Languages))
			for _, l := range input.Languages {
				langs = append(langs, graph.Language(strings.ToLower(l)))
			}
			opts = append(opts, orchestrator.WithLanguages(langs...))
		}
		source := orchestrator.NewDirSource(root, input.ExcludeDirs...)
		orch = orchestrator.New(source, s.store, opts...)
	}

	summary, err := orch.Run(ctx)
	if err != nil {
		return nil, IndexRepoOutput{}, fmt.Errorf("index %s: %w", root, err)
	}

	return nil, IndexRepoOutput{
		Summary: summary,
		Stats:   s.store.Stats(),
	}, nil
}

// QuerySymbols searches the graph by text, name prefix, kind and path.
func (s *BrainService) QuerySymbols(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuerySymbolsInput,
) (*mcp.CallToolResult, QuerySymbolsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	filter := graph.Filter{
		Text: input.Query,
		Path: input.Path,
	}
	if input.Kind != "" {
		filter.Kind = graph.SymbolKind(strings.ToLower(input.Kind))
	}
	if input.Prefix != "" {
		filter.NamePrefix = graph.ParseQualifiedName(input.Prefix)
	}

	res := s.facade.Search(filter, input.Offset, limit)
	return nil, QuerySymbolsOutput{
		Symbols: res.Symbols,
		Total:   res.Total,
		Offset:  res.Offset,
	}, nil
}

// GetReferences returns every reference pointing at a qualified name.
func (s *BrainService) GetReferences(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetReferencesInput,
) (*mcp.CallToolResult, GetReferencesOutput, error) {
	if input.Name == "" {
		return nil, GetReferencesOutput{}, fmt.Errorf("name is required")
	}
	refs, err := s.facade.References(input.Name)
	if err != nil {
		return nil, GetReferencesOutput{}, fmt.Errorf("get references: %w", err)
	}
	return nil, GetReferencesOutput{References: refs, Total: len(refs)}, nil
}

// GetBriefing assembles the context bundle for one symbol.
func (s *BrainService) GetBriefing(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetBriefingInput,
) (*mcp.CallToolResult, GetBriefingOutput, error) {
	if input.Name == "" {
		return nil, GetBriefingOutput{}, fmt.Errorf("name is required")
	}
	b, err := s.facade.Briefing(input.Name)
	if err != nil {
		return nil, GetBriefingOutput{}, fmt.Errorf("get briefing: %w", err)
	}
	return nil, GetBriefingOutput{Briefing: b}, nil
}

// BatchSummary reports the last completed parse batch and current graph
// statistics.
func (s *BrainService) BatchSummary(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ BatchSummaryInput,
) (*mcp.CallToolResult, BatchSummaryOutput, error) {
	out := BatchSummaryOutput{Stats: s.store.Stats()}
	if summary, ok := s.facade.BatchSummary(); ok {
		out.Summary = &summary
	}
	return nil, out, nil
}
