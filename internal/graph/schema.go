package graph

import (
	"errors"
	"fmt"
	"strings"
)

// --- Enums ---

// SymbolKind classifies symbols in the code knowledge graph.
type SymbolKind string

const (
	SymbolKindModule   SymbolKind = "module"
	SymbolKindClass    SymbolKind = "class"
	SymbolKindFunction SymbolKind = "function"
	SymbolKindMethod   SymbolKind = "method"
	SymbolKindVariable SymbolKind = "variable"
	SymbolKindField    SymbolKind = "field"
	SymbolKindImport   SymbolKind = "import"
)

// RefKind classifies references between symbols.
type RefKind string

const (
	RefKindCall        RefKind = "call"
	RefKindImport      RefKind = "import"
	RefKindInherit     RefKind = "inherit"
	RefKindInstantiate RefKind = "instantiate"
	RefKindTypeUse     RefKind = "type-use"
)

// RefState tracks how far a reference has been linked against known symbols.
type RefState string

const (
	RefStateUnresolved RefState = "unresolved"
	RefStateResolved   RefState = "resolved"
	RefStateAmbiguous  RefState = "ambiguous"
)

// ParseStatus is the per-file parse outcome recorded on a FileRecord.
type ParseStatus string

const (
	// ParseStatusClean means the last parse of the file succeeded.
	ParseStatusClean ParseStatus = "clean"
	// ParseStatusError means the last parse failed and no earlier snapshot exists.
	ParseStatusError ParseStatus = "error"
	// ParseStatusStale means the last parse failed but an earlier successful
	// snapshot is still being served.
	ParseStatusStale ParseStatus = "stale"
)

// Language identifies a programming language for parsing.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangCPP        Language = "cpp"
	LangGo         Language = "go"
	LangRust       Language = "rust"
)

// SupportedLanguages are the languages with a registered adapter.
var SupportedLanguages = []Language{
	LangPython, LangJavaScript, LangTypeScript, LangCPP, LangGo, LangRust,
}

// scopeJoiner returns the separator used when rendering qualified names for
// a language.
func scopeJoiner(lang Language) string {
	switch lang {
	case LangCPP, LangRust:
		return "::"
	default:
		return "."
	}
}

// --- Qualified names ---

// QualifiedName is the ordered scope path identifying a symbol, outermost
// segment first (e.g. ["pkg", "models", "User", "validate"]).
type QualifiedName []string

// ParseQualifiedName splits a rendered qualified name on "::" and "." into
// its segments. Empty segments are dropped.
func ParseQualifiedName(s string) QualifiedName {
	s = strings.ReplaceAll(s, "::", ".")
	parts := strings.Split(s, ".")
	out := make(QualifiedName, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// String renders the name with the canonical "." joiner. Canonical form is
// used for store keys and cross-language matching.
func (q QualifiedName) String() string {
	return strings.Join(q, ".")
}

// DisplayIn renders the name with the joiner conventional for lang.
func (q QualifiedName) DisplayIn(lang Language) string {
	return strings.Join(q, scopeJoiner(lang))
}

// Tail returns the last segment, or "" for an empty name.
func (q QualifiedName) Tail() string {
	if len(q) == 0 {
		return ""
	}
	return q[len(q)-1]
}

// HasSuffix reports whether q ends with the full segment sequence suffix.
func (q QualifiedName) HasSuffix(suffix QualifiedName) bool {
	if len(suffix) == 0 || len(suffix) > len(q) {
		return false
	}
	offset := len(q) - len(suffix)
	for i, seg := range suffix {
		if q[offset+i] != seg {
			return false
		}
	}
	return true
}

// HasPrefix reports whether q starts with the full segment sequence prefix.
func (q QualifiedName) HasPrefix(prefix QualifiedName) bool {
	if len(prefix) > len(q) {
		return false
	}
	for i, seg := range prefix {
		if q[i] != seg {
			return false
		}
	}
	return true
}

// --- Models ---

// Symbol is one named code entity extracted from source.
type Symbol struct {
	Name       QualifiedName `json:"name"`
	Kind       SymbolKind    `json:"kind"`
	Path       string        `json:"path"`
	Language   Language      `json:"language"`
	StartLine  int           `json:"startLine"`
	EndLine    int           `json:"endLine"`
	StartByte  int           `json:"startByte"`
	EndByte    int           `json:"endByte"`
	Doc        string        `json:"doc,omitempty"`
	Signature  string        `json:"signature,omitempty"`
	Generation uint64        `json:"generation"`
}

// ID returns the store key for the symbol. Qualified name plus file path is
// unique within a parse generation.
func (s Symbol) ID() string {
	return s.Path + "\x00" + s.Name.String()
}

// Reference is a directed edge from a usage site to a target qualified name.
// The target starts out as raw adapter text; resolution links it to a known
// symbol when exactly one sufficiently specific match exists.
type Reference struct {
	FromPath   string        `json:"fromPath"`
	FromSymbol string        `json:"fromSymbol,omitempty"` // canonical name of enclosing symbol, "" = file scope
	Target     QualifiedName `json:"target"`
	Kind       RefKind       `json:"kind"`
	Line       int           `json:"line"`
	State      RefState      `json:"state"`
	ResolvedTo string        `json:"resolvedTo,omitempty"` // symbol ID when resolved
	Candidates []string      `json:"candidates,omitempty"` // symbol IDs when ambiguous
	Generation uint64        `json:"generation"`
}

// FileRecord tracks one source file known to the store.
type FileRecord struct {
	Path       string      `json:"path"`
	Language   Language    `json:"language"`
	Hash       string      `json:"hash"`
	Generation uint64      `json:"generation"`
	Status     ParseStatus `json:"status"`
	Symbols    []string    `json:"symbols"` // owned symbol IDs
}

// Filter selects symbols from the store. Zero-value fields are ignored.
type Filter struct {
	Kind       SymbolKind
	Path       string
	NamePrefix QualifiedName
	Text       string // free text over name and doc, case-insensitive
	Limit      int    // <= 0 means unlimited
}

// GraphStats summarizes the store contents.
type GraphStats struct {
	FileCount      int    `json:"fileCount"`
	SymbolCount    int    `json:"symbolCount"`
	ReferenceCount int    `json:"referenceCount"`
	ResolvedRefs   int    `json:"resolvedRefs"`
	PendingRefs    int    `json:"pendingRefs"`
	AmbiguousRefs  int    `json:"ambiguousRefs"`
	Generation     uint64 `json:"generation"`
}

// --- Errors ---

// ErrUnknownLanguage is returned when no adapter matches a file. The file is
// skipped and reported, never treated as a batch failure.
var ErrUnknownLanguage = errors.New("unknown language")

// ErrStaleGeneration is returned when an update carries a generation older
// than the one already applied for the file. The update is discarded.
var ErrStaleGeneration = errors.New("stale generation")

// ErrNotFound is returned by file sources for missing paths.
var ErrNotFound = errors.New("file not found")

// ParseError is a file-scoped syntax failure. It never aborts a batch; the
// orchestrator records it and keeps the file's previous snapshot.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s:%d:%d: %s", e.Path, e.Line, e.Column, e.Msg)
}
