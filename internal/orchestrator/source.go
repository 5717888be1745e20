package orchestrator

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/veldtlabs/cortex/internal/graph"
)

// Source enumerates and reads the files of a code base. Paths are always
// slash-separated and relative to the source root.
type Source interface {
	// ListFiles returns every candidate file path.
	ListFiles(ctx context.Context) ([]string, error)

	// ReadFile returns a file's content, or graph.ErrNotFound for a path
	// that no longer exists.
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// defaultIgnoreDirs are directory names skipped during the walk.
var defaultIgnoreDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".idea":        true,
	".vscode":      true,
}

// DirSource reads files from a directory tree on disk.
type DirSource struct {
	root   string
	ignore map[string]bool
}

// NewDirSource returns a Source rooted at dir. extraIgnore directory names
// are skipped in addition to the defaults.
func NewDirSource(dir string, extraIgnore ...string) *DirSource {
	ignore := make(map[string]bool, len(defaultIgnoreDirs)+len(extraIgnore))
	for name := range defaultIgnoreDirs {
		ignore[name] = true
	}
	for _, name := range extraIgnore {
		if name != "" {
			ignore[name] = true
		}
	}
	return &DirSource{root: dir, ignore: ignore}
}

// Root returns the source root directory.
func (s *DirSource) Root() string { return s.root }

// Ignored reports whether a directory name is skipped during walks.
func (s *DirSource) Ignored(name string) bool { return s.ignore[name] }

func (s *DirSource) ListFiles(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if d.IsDir() {
			if p != s.root && (s.ignore[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}
	return out, nil
}

func (s *DirSource) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
	if os.IsNotExist(err) {
		return nil, graph.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
