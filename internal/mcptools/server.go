package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewBrainMCPServer creates an MCP server with all code graph tools
// registered.
func NewBrainMCPServer(svc *BrainService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "cortex",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_repo",
		Description: "Index a repository into the symbol graph. Walks the file tree, parses source files with tree-sitter, extracts symbols and references, and resolves cross-file links. Incremental: unchanged files are skipped.",
	}, svc.IndexRepo)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_symbols",
		Description: "Search the symbol graph by free text, qualified-name prefix, kind or file path. Returns a paginated list of matching symbols with spans, signatures and doc comments.",
	}, svc.QuerySymbols)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_references",
		Description: "Find every reference to a qualified symbol name: resolved call, import, inherit, instantiate and type-use sites, plus unresolved references whose target is compatible with the name.",
	}, svc.GetReferences)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_briefing",
		Description: "Assemble a context bundle for one symbol: its definition, the other symbols in its file, its scope siblings, and its incoming and outgoing references.",
	}, svc.GetBriefing)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "batch_summary",
		Description: "Report the last parse batch (files parsed, unchanged, failed, removed) and current graph statistics.",
	}, svc.BatchSummary)

	return server
}

// RunMCPServer starts an HTTP server exposing the code graph MCP tools.
func RunMCPServer(ctx context.Context, svc *BrainService, addr string) error {
	server := NewBrainMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
