package export

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/veldtlabs/cortex/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram of file-level
// dependencies. Files are grouped by top-level directory; resolved
// cross-file references become arrows, deduplicated per file pair.
func GenerateMermaid(store *graph.Store) string {
	files := store.Files()

	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(p string) string {
		if id, ok := nodeIDs[p]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[p] = id
		return id
	}

	// Group files by their top-level directory.
	groups := make(map[string][]string)
	for _, rec := range files {
		dir := topDir(rec.Path)
		groups[dir] = append(groups[dir], rec.Path)
	}
	groupNames := make([]string, 0, len(groups))
	for name := range groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range groupNames {
		members := groups[name]
		sort.Strings(members)

		if name != "." {
			sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID(name+"_group"), name))
		}
		for _, member := range members {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID(member), shortPath(member)))
		}
		if name != "." {
			sb.WriteString("  end\n")
		}
	}

	// Emit one arrow per referencing file pair.
	seen := make(map[string]bool)
	for _, rec := range files {
		for _, ref := range store.FileReferences(rec.Path) {
			if ref.State != graph.RefStateResolved {
				continue
			}
			target, ok := store.Symbol(ref.ResolvedTo)
			if !ok || target.Path == rec.Path {
				continue
			}
			key := rec.Path + "->" + target.Path
			if seen[key] {
				continue
			}
			seen[key] = true
			sb.WriteString(fmt.Sprintf("  %s --> %s\n", getID(rec.Path), getID(target.Path)))
		}
	}

	return sb.String()
}

// topDir returns the first path segment, or "." for root-level files.
func topDir(p string) string {
	if idx := strings.IndexByte(p, '/'); idx != -1 {
		return p[:idx]
	}
	return "."
}

// shortPath returns the last 2 path segments for readability.
func shortPath(p string) string {
	dir, file := path.Split(p)
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return file
	}
	segments := strings.Split(dir, "/")
	return segments[len(segments)-1] + "/" + file
}
