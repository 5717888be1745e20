package mcptools

import (
	"github.com/veldtlabs/cortex/internal/graph"
	"github.com/veldtlabs/cortex/internal/orchestrator"
	"github.com/veldtlabs/cortex/internal/query"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// IndexRepoInput is the input for the index_repo MCP tool.
type IndexRepoInput struct {
	RepoPath    string   `json:"repoPath,omitempty" jsonschema:"absolute path to the repository to index. Defaults to the repository the server was started on"`
	Languages   []string `json:"languages,omitempty" jsonschema:"languages to index. Values: python, javascript, typescript, cpp, go, rust. Default: all"`
	ExcludeDirs []string `json:"excludeDirs,omitempty" jsonschema:"directory names to exclude in addition to the defaults (e.g. generated, third_party)"`
}

// IndexRepoOutput is the result of the index_repo MCP tool.
type IndexRepoOutput struct {
	Summary orchestrator.BatchSummary `json:"summary"`
	Stats   graph.GraphStats          `json:"stats"`
}

// QuerySymbolsInput is the input for the query_symbols MCP tool.
type QuerySymbolsInput struct {
	Query  string `json:"query,omitempty" jsonschema:"free-text search over symbol names and doc comments (case-insensitive)"`
	Prefix string `json:"prefix,omitempty" jsonschema:"qualified-name prefix, e.g. pkg.models"`
	Kind   string `json:"kind,omitempty" jsonschema:"filter by symbol kind: module, class, function, method, variable, field, import"`
	Path   string `json:"path,omitempty" jsonschema:"restrict to symbols defined in one file path"`
	Offset int    `json:"offset,omitempty" jsonschema:"pagination offset"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// QuerySymbolsOutput is the result of the query_symbols MCP tool.
type QuerySymbolsOutput struct {
	Symbols []graph.Symbol `json:"symbols"`
	Total   int            `json:"total"`
	Offset  int            `json:"offset"`
}

// GetReferencesInput is the input for the get_references MCP tool.
type GetReferencesInput struct {
	Name string `json:"name" jsonschema:"qualified symbol name; dotted or :: separated, suffix match allowed"`
}

// GetReferencesOutput is the result of the get_references MCP tool.
type GetReferencesOutput struct {
	References []graph.Reference `json:"references"`
	Total      int               `json:"total"`
}

// GetBriefingInput is the input for the get_briefing MCP tool.
type GetBriefingInput struct {
	Name string `json:"name" jsonschema:"qualified symbol name to assemble context for"`
}

// GetBriefingOutput is the result of the get_briefing MCP tool.
type GetBriefingOutput struct {
	Briefing query.Briefing `json:"briefing"`
}

// BatchSummaryInput is the input for the batch_summary MCP tool.
type BatchSummaryInput struct{}

// BatchSummaryOutput is the result of the batch_summary MCP tool.
type BatchSummaryOutput struct {
	Summary *orchestrator.BatchSummary `json:"summary,omitempty"`
	Stats   graph.GraphStats           `json:"stats"`
}
