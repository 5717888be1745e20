package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the repository into the symbol graph",
	RunE:  runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	s, err := buildStack()
	if err != nil {
		return err
	}
	defer s.log.Sync()

	summary, err := s.orch.Run(cmd.Context())
	if err != nil {
		return err
	}

	if err := s.saveSnapshot(); err != nil {
		s.log.Warn("snapshot save failed", zap.Error(err))
	}

	stats := s.store.Stats()
	fmt.Printf("generation %d: %d parsed, %d unchanged, %d failed, %d skipped, %d removed\n",
		summary.Generation, summary.Parsed, summary.Unchanged, summary.Failed, summary.Skipped, summary.Removed)
	fmt.Printf("graph: %d files, %d symbols, %d refs (%d resolved, %d pending, %d ambiguous)\n",
		stats.FileCount, stats.SymbolCount, stats.ReferenceCount,
		stats.ResolvedRefs, stats.PendingRefs, stats.AmbiguousRefs)
	for _, f := range summary.Failures {
		fmt.Printf("  failed %s:%d:%d %s\n", f.Path, f.Line, f.Column, f.Message)
	}
	return nil
}
