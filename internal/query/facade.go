package query

import (
	"fmt"

	"github.com/veldtlabs/cortex/internal/graph"
	"github.com/veldtlabs/cortex/internal/orchestrator"
)

// SummarySource exposes the last parse batch. Satisfied by
// *orchestrator.Orchestrator.
type SummarySource interface {
	LastSummary() (orchestrator.BatchSummary, bool)
}

// Facade is the read surface over the symbol graph. All methods are safe for
// concurrent use; they observe whatever snapshot the store exposes at call
// time.
type Facade struct {
	store     *graph.Store
	summaries SummarySource
}

// New returns a Facade over store. summaries may be nil when no orchestrator
// is attached (read-only snapshot serving).
func New(store *graph.Store, summaries SummarySource) *Facade {
	return &Facade{store: store, summaries: summaries}
}

// SearchResult is a page of symbols matching a filter.
type SearchResult struct {
	Symbols []graph.Symbol `json:"symbols"`
	Total   int            `json:"total"`
	Offset  int            `json:"offset"`
}

// Search returns symbols matching the filter, paginated. The filter's own
// Limit is ignored; offset/limit control the page. limit <= 0 means no cap.
func (f *Facade) Search(filter graph.Filter, offset, limit int) SearchResult {
	filter.Limit = 0
	all := f.store.Query(filter)
	total := len(all)

	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	page := all[offset:]
	if limit > 0 && len(page) > limit {
		page = page[:limit]
	}
	return SearchResult{Symbols: page, Total: total, Offset: offset}
}

// Lookup returns the symbols matching a rendered qualified name, exact
// matches first, suffix matches after.
func (f *Facade) Lookup(name string) ([]graph.Symbol, error) {
	qn := graph.ParseQualifiedName(name)
	if len(qn) == 0 {
		return nil, fmt.Errorf("empty symbol name")
	}
	return f.store.SymbolsByName(qn), nil
}

// References returns every reference pointing at a qualified name, including
// unresolved and ambiguous ones whose target is compatible with it.
func (f *Facade) References(name string) ([]graph.Reference, error) {
	qn := graph.ParseQualifiedName(name)
	if len(qn) == 0 {
		return nil, fmt.Errorf("empty symbol name")
	}
	return f.store.References(qn), nil
}

// Briefing is the context bundle for one symbol: the symbol itself, its
// file and scope neighborhood, and its inbound and outbound references.
type Briefing struct {
	Symbol        graph.Symbol      `json:"symbol"`
	FileNeighbors []graph.Symbol    `json:"fileNeighbors,omitempty"`
	ScopeSiblings []graph.Symbol    `json:"scopeSiblings,omitempty"`
	Incoming      []graph.Reference `json:"incoming,omitempty"`
	Outgoing      []graph.Reference `json:"outgoing,omitempty"`
}

// Briefing assembles the context bundle for a qualified name. An ambiguous
// name resolves to its first match in canonical order.
func (f *Facade) Briefing(name string) (Briefing, error) {
	syms, err := f.Lookup(name)
	if err != nil {
		return Briefing{}, err
	}
	if len(syms) == 0 {
		return Briefing{}, fmt.Errorf("symbol %q: %w", name, graph.ErrNotFound)
	}
	sym := syms[0]

	b := Briefing{Symbol: sym}

	for _, other := range f.store.Query(graph.Filter{Path: sym.Path}) {
		if other.ID() == sym.ID() {
			continue
		}
		b.FileNeighbors = append(b.FileNeighbors, other)
	}

	if len(sym.Name) > 1 {
		parent := sym.Name[:len(sym.Name)-1]
		for _, sib := range f.store.Query(graph.Filter{NamePrefix: parent}) {
			if sib.ID() == sym.ID() || len(sib.Name) != len(sym.Name) {
				continue
			}
			b.ScopeSiblings = append(b.ScopeSiblings, sib)
		}
	}

	b.Incoming = f.store.References(sym.Name)
	for _, ref := range f.store.FileReferences(sym.Path) {
		if ref.FromSymbol == sym.Name.String() ||
			(ref.Line >= sym.StartLine && ref.Line <= sym.EndLine) {
			b.Outgoing = append(b.Outgoing, ref)
		}
	}
	return b, nil
}

// BatchSummary returns the last completed parse batch.
func (f *Facade) BatchSummary() (orchestrator.BatchSummary, bool) {
	if f.summaries == nil {
		return orchestrator.BatchSummary{}, false
	}
	return f.summaries.LastSummary()
}

// Stats returns graph-wide counters.
func (f *Facade) Stats() graph.GraphStats {
	return f.store.Stats()
}

// Files returns per-file records, for status reporting.
func (f *Facade) Files() []graph.FileRecord {
	return f.store.Files()
}
