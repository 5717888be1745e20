package export

import (
	"encoding/json"
	"time"

	"github.com/veldtlabs/cortex/internal/graph"
)

// GraphExport is the top-level JSON export structure.
type GraphExport struct {
	ExportedAt string             `json:"exportedAt"`
	Generation uint64             `json:"generation"`
	Stats      graph.GraphStats   `json:"stats"`
	Files      []graph.FileRecord `json:"files"`
	Symbols    []graph.Symbol     `json:"symbols"`
	References []graph.Reference  `json:"references"`
}

// BuildExport snapshots the full graph into an export structure. Symbols are
// in canonical name order, references in source order per file.
func BuildExport(store *graph.Store) *GraphExport {
	stats := store.Stats()
	out := &GraphExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Generation: stats.Generation,
		Stats:      stats,
		Files:      store.Files(),
		Symbols:    store.Query(graph.Filter{}),
	}
	for _, rec := range out.Files {
		out.References = append(out.References, store.FileReferences(rec.Path)...)
	}
	return out
}

// WriteJSON renders the export with indentation for human diffing.
func WriteJSON(store *graph.Store) ([]byte, error) {
	return json.MarshalIndent(BuildExport(store), "", "  ")
}
