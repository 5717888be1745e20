package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veldtlabs/cortex/internal/graph"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show graph statistics from the saved snapshot",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := buildStack()
	if err != nil {
		return err
	}
	defer s.log.Sync()

	stats := s.store.Stats()
	if stats.FileCount == 0 {
		fmt.Println("No graph snapshot found. Run 'cortex index' first.")
		return nil
	}

	fmt.Printf("generation: %d\n", stats.Generation)
	fmt.Printf("files:      %d\n", stats.FileCount)
	fmt.Printf("symbols:    %d\n", stats.SymbolCount)
	fmt.Printf("references: %d (%d resolved, %d pending, %d ambiguous)\n",
		stats.ReferenceCount, stats.ResolvedRefs, stats.PendingRefs, stats.AmbiguousRefs)

	var clean, stale, broken int
	for _, rec := range s.store.Files() {
		switch rec.Status {
		case graph.ParseStatusClean:
			clean++
		case graph.ParseStatusStale:
			stale++
		case graph.ParseStatusError:
			broken++
		}
	}
	fmt.Printf("file state: %d clean, %d stale, %d error\n", clean, stale, broken)
	return nil
}
