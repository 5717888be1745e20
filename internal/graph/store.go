package graph

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Store is the in-memory symbol graph. All mutation goes through generational
// file updates: a batch reserves a generation, parses files, and applies each
// file's new snapshot atomically. Readers always see either the previous or
// the new snapshot of a file, never a mix.
type Store struct {
	log *zap.Logger

	generation atomic.Uint64

	mu      sync.RWMutex
	files   map[string]*FileRecord
	symbols map[string]Symbol          // symbol ID → symbol
	byTail  map[string]map[string]bool // last name segment → symbol ID set
	refs    map[string][]Reference     // source file path → outgoing references
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store's logger. Defaults to a nop logger.
func WithLogger(log *zap.Logger) StoreOption {
	return func(s *Store) { s.log = log }
}

// NewStore returns an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		log:     zap.NewNop(),
		files:   make(map[string]*FileRecord),
		symbols: make(map[string]Symbol),
		byTail:  make(map[string]map[string]bool),
		refs:    make(map[string][]Reference),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextGeneration reserves and returns a new generation number. Every parse
// batch calls this once before applying file updates.
func (s *Store) NextGeneration() uint64 {
	return s.generation.Add(1)
}

// Generation returns the highest generation reserved so far.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// UpdateResult reports the effect of one file update.
type UpdateResult struct {
	Added   int
	Removed int
}

// ApplyFileUpdate replaces a file's snapshot with freshly parsed symbols and
// references. Updates carrying a generation older than the file's current one
// are rejected with ErrStaleGeneration. Inbound references resolved to
// symbols that vanish are demoted to unresolved, then a resolution sweep
// links everything that now has exactly one match.
func (s *Store) ApplyFileUpdate(path string, lang Language, hash string, gen uint64, syms []Symbol, refs []Reference) (UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.files[path]; ok && gen < rec.Generation {
		s.log.Debug("discarding stale update",
			zap.String("path", path),
			zap.Uint64("generation", gen),
			zap.Uint64("current", rec.Generation))
		return UpdateResult{}, ErrStaleGeneration
	}

	removed := s.removeFileSymbolsLocked(path)

	ids := make([]string, 0, len(syms))
	for i := range syms {
		syms[i].Path = path
		syms[i].Generation = gen
		id := syms[i].ID()
		s.symbols[id] = syms[i]
		s.indexTailLocked(id, syms[i].Name.Tail())
		ids = append(ids, id)
	}

	for i := range refs {
		refs[i].FromPath = path
		refs[i].Generation = gen
		refs[i].State = RefStateUnresolved
		refs[i].ResolvedTo = ""
		refs[i].Candidates = nil
	}
	s.refs[path] = refs

	s.files[path] = &FileRecord{
		Path:       path,
		Language:   lang,
		Hash:       hash,
		Generation: gen,
		Status:     ParseStatusClean,
		Symbols:    ids,
	}

	s.demoteDanglingLocked()
	s.resolveAllLocked()

	s.log.Debug("applied file update",
		zap.String("path", path),
		zap.Uint64("generation", gen),
		zap.Int("symbols", len(ids)),
		zap.Int("refs", len(refs)))
	return UpdateResult{Added: len(ids), Removed: removed}, nil
}

// MarkFileFailure records a failed parse. A file with an earlier good
// snapshot keeps its symbols and is marked stale; a file never parsed cleanly
// gets an error record with no symbols. The hash is updated either way so an
// unchanged broken file is not reparsed on the next batch.
func (s *Store) MarkFileFailure(path string, lang Language, hash string, gen uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.files[path]; ok {
		if gen < rec.Generation {
			return ErrStaleGeneration
		}
		rec.Hash = hash
		rec.Generation = gen
		if len(rec.Symbols) > 0 {
			rec.Status = ParseStatusStale
		} else {
			rec.Status = ParseStatusError
		}
		return nil
	}

	s.files[path] = &FileRecord{
		Path:       path,
		Language:   lang,
		Hash:       hash,
		Generation: gen,
		Status:     ParseStatusError,
	}
	return nil
}

// RemoveFile drops a file and all its symbols and references. Inbound
// references pointing at the removed symbols are demoted to unresolved.
func (s *Store) RemoveFile(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[path]; !ok {
		return false
	}
	s.removeFileSymbolsLocked(path)
	delete(s.refs, path)
	delete(s.files, path)

	s.demoteDanglingLocked()
	s.resolveAllLocked()
	return true
}

// removeFileSymbolsLocked drops a file's symbols from the indexes and
// returns how many were removed.
func (s *Store) removeFileSymbolsLocked(path string) int {
	rec, ok := s.files[path]
	if !ok {
		return 0
	}
	for _, id := range rec.Symbols {
		sym, ok := s.symbols[id]
		if !ok {
			continue
		}
		delete(s.symbols, id)
		if set := s.byTail[sym.Name.Tail()]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(s.byTail, sym.Name.Tail())
			}
		}
	}
	n := len(rec.Symbols)
	rec.Symbols = nil
	return n
}

func (s *Store) indexTailLocked(id, tail string) {
	if tail == "" {
		return
	}
	set := s.byTail[tail]
	if set == nil {
		set = make(map[string]bool)
		s.byTail[tail] = set
	}
	set[id] = true
}

// demoteDanglingLocked resets references whose resolved target no longer
// exists, making them eligible for re-resolution.
func (s *Store) demoteDanglingLocked() {
	for path, refs := range s.refs {
		for i := range refs {
			switch refs[i].State {
			case RefStateResolved:
				if _, ok := s.symbols[refs[i].ResolvedTo]; !ok {
					refs[i].State = RefStateUnresolved
					refs[i].ResolvedTo = ""
				}
			case RefStateAmbiguous:
				// Candidate sets go stale whenever symbols churn; re-resolve.
				refs[i].State = RefStateUnresolved
				refs[i].Candidates = nil
			}
		}
		s.refs[path] = refs
	}
}

// --- Read API ---

// File returns a file's record.
func (s *Store) File(path string) (FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.files[path]
	if !ok {
		return FileRecord{}, false
	}
	out := *rec
	out.Symbols = append([]string(nil), rec.Symbols...)
	return out, true
}

// Files returns all file records sorted by path.
func (s *Store) Files() []FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FileRecord, 0, len(s.files))
	for _, rec := range s.files {
		cp := *rec
		cp.Symbols = append([]string(nil), rec.Symbols...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Symbol returns a symbol by ID.
func (s *Store) Symbol(id string) (Symbol, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sym, ok := s.symbols[id]
	return sym, ok
}

// SymbolsByName returns every symbol whose qualified name ends with the given
// segments, exact names first. Results are sorted by canonical name then path.
func (s *Store) SymbolsByName(name QualifiedName) []Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Symbol
	if len(name) == 0 {
		return out
	}
	for id := range s.byTail[name.Tail()] {
		sym := s.symbols[id]
		if sym.Name.HasSuffix(name) {
			out = append(out, sym)
		}
	}
	sortSymbols(out)
	// Exact matches float to the front.
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Name) == len(name) && len(out[j].Name) != len(name)
	})
	return out
}

// Query returns symbols matching the filter, sorted by canonical name then
// path.
func (s *Store) Query(f Filter) []Symbol {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Symbol
	for _, sym := range s.symbols {
		if !matchFilter(sym, f) {
			continue
		}
		out = append(out, sym)
	}
	sortSymbols(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// References returns all references pointing at symbols with the given name:
// resolved references whose target symbol matches, plus unresolved and
// ambiguous references whose raw target is a suffix-match for it. Sorted by
// source path then line.
func (s *Store) References(name QualifiedName) []Reference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(name) == 0 {
		return nil
	}

	targetIDs := make(map[string]bool)
	for id := range s.byTail[name.Tail()] {
		if s.symbols[id].Name.HasSuffix(name) {
			targetIDs[id] = true
		}
	}

	var out []Reference
	for _, refs := range s.refs {
		for _, ref := range refs {
			switch ref.State {
			case RefStateResolved:
				if targetIDs[ref.ResolvedTo] {
					out = append(out, ref)
				}
			default:
				if ref.Target.HasSuffix(name) || name.HasSuffix(ref.Target) {
					out = append(out, ref)
				}
			}
		}
	}
	sortRefs(out)
	return out
}

// FileReferences returns the outgoing references of one file, sorted by line.
func (s *Store) FileReferences(path string) []Reference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]Reference(nil), s.refs[path]...)
	sortRefs(out)
	return out
}

// Stats summarizes the store.
func (s *Store) Stats() GraphStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := GraphStats{
		FileCount:   len(s.files),
		SymbolCount: len(s.symbols),
		Generation:  s.generation.Load(),
	}
	for _, refs := range s.refs {
		for _, ref := range refs {
			stats.ReferenceCount++
			switch ref.State {
			case RefStateResolved:
				stats.ResolvedRefs++
			case RefStateAmbiguous:
				stats.AmbiguousRefs++
			default:
				stats.PendingRefs++
			}
		}
	}
	return stats
}

func matchFilter(sym Symbol, f Filter) bool {
	if f.Kind != "" && sym.Kind != f.Kind {
		return false
	}
	if f.Path != "" && sym.Path != f.Path {
		return false
	}
	if len(f.NamePrefix) > 0 && !sym.Name.HasPrefix(f.NamePrefix) {
		return false
	}
	if f.Text != "" && !matchText(sym, f.Text) {
		return false
	}
	return true
}

func matchText(sym Symbol, text string) bool {
	needle := strings.ToLower(text)
	return strings.Contains(strings.ToLower(sym.Name.String()), needle) ||
		strings.Contains(strings.ToLower(sym.Doc), needle)
}

func sortSymbols(syms []Symbol) {
	sort.Slice(syms, func(i, j int) bool {
		ni, nj := syms[i].Name.String(), syms[j].Name.String()
		if ni != nj {
			return ni < nj
		}
		return syms[i].Path < syms[j].Path
	})
}

func sortRefs(refs []Reference) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].FromPath != refs[j].FromPath {
			return refs[i].FromPath < refs[j].FromPath
		}
		if refs[i].Line != refs[j].Line {
			return refs[i].Line < refs[j].Line
		}
		return refs[i].Target.String() < refs[j].Target.String()
	})
}
