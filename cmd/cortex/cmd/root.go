package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veldtlabs/cortex/internal/config"
	"github.com/veldtlabs/cortex/internal/graph"
	"github.com/veldtlabs/cortex/internal/orchestrator"
)

// version is set by the linker at build time.
var version = "dev"

var (
	flagRoot    string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:     "cortex",
	Short:   "cortex is a code knowledge graph for agents",
	Long:    "Parses multi-language codebases with tree-sitter, maintains a generational symbol graph, and serves symbol queries, references and briefings over MCP.",
	Version: version,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagRoot, "root", "r", ".", "repository root to index")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
}

// newLogger builds the process logger. Debug level when --verbose or the
// project config asks for it.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// stack is the wired application: store, source and orchestrator over one
// repository root.
type stack struct {
	root   string
	cfg    *config.ProjectConfig
	log    *zap.Logger
	store  *graph.Store
	source *orchestrator.DirSource
	orch   *orchestrator.Orchestrator
}

// buildStack loads project config, builds the store (restoring a snapshot if
// one exists) and wires the orchestrator.
func buildStack() (*stack, error) {
	root, err := filepath.Abs(flagRoot)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(flagVerbose || cfg.Verbose)
	if err != nil {
		return nil, err
	}

	store := graph.NewStore(graph.WithLogger(log))
	if path := snapshotPath(root, cfg); path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := store.LoadSnapshot(path); err != nil {
				log.Warn("snapshot load failed, starting empty", zap.Error(err))
				store = graph.NewStore(graph.WithLogger(log))
			}
		}
	}

	source := orchestrator.NewDirSource(root, cfg.ExcludeDirs...)
	opts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithWorkers(cfg.Workers),
	}
	if len(cfg.Languages) > 0 {
		langs := make([]graph.Language, 0, len(cfg.Languages))
		for _, l := range cfg.Languages {
			langs = append(langs, graph.Language(l))
		}
		opts = append(opts, orchestrator.WithLanguages(langs...))
	}

	return &stack{
		root:   root,
		cfg:    cfg,
		log:    log,
		store:  store,
		source: source,
		orch:   orchestrator.New(source, store, opts...),
	}, nil
}

// snapshotPath resolves where the graph snapshot lives. Empty config means
// .cortex/graph.db under the root.
func snapshotPath(root string, cfg *config.ProjectConfig) string {
	if cfg.StorePath != "" {
		if filepath.IsAbs(cfg.StorePath) {
			return cfg.StorePath
		}
		return filepath.Join(root, cfg.StorePath)
	}
	return filepath.Join(root, ".cortex", "graph.db")
}

// saveSnapshot persists the store, creating the parent directory.
func (s *stack) saveSnapshot() error {
	path := snapshotPath(s.root, s.cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return s.store.SaveSnapshot(path)
}
