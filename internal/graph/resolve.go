package graph

import "sort"

// resolveAllLocked runs the lazy resolution sweep over every unresolved
// reference. Resolution matches the reference target as a suffix of known
// qualified names: exactly one match resolves, zero stays unresolved, and
// several matches prefer a single candidate in the referencing file before
// falling back to ambiguous with the candidates recorded.
func (s *Store) resolveAllLocked() {
	for path, refs := range s.refs {
		for i := range refs {
			if refs[i].State == RefStateUnresolved {
				s.resolveRefLocked(&refs[i])
			}
		}
		s.refs[path] = refs
	}
}

func (s *Store) resolveRefLocked(ref *Reference) {
	if len(ref.Target) == 0 {
		return
	}

	var matches []string
	for id := range s.byTail[ref.Target.Tail()] {
		if s.symbols[id].Name.HasSuffix(ref.Target) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return
	case 1:
		ref.State = RefStateResolved
		ref.ResolvedTo = matches[0]
		ref.Candidates = nil
		return
	}

	sort.Strings(matches)

	var local []string
	for _, id := range matches {
		if s.symbols[id].Path == ref.FromPath {
			local = append(local, id)
		}
	}
	if len(local) == 1 {
		ref.State = RefStateResolved
		ref.ResolvedTo = local[0]
		ref.Candidates = nil
		return
	}

	ref.State = RefStateAmbiguous
	ref.ResolvedTo = ""
	ref.Candidates = matches
}
