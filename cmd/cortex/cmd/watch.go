package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veldtlabs/cortex/internal/orchestrator"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the repository and keep the graph current",
	Long:  "Runs a full index, then re-parses files as they change on disk until interrupted. The graph snapshot is saved on shutdown.",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 300*time.Millisecond, "quiet period before a change burst is re-parsed")
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := buildStack()
	if err != nil {
		return err
	}
	defer s.log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := s.orch.Run(ctx); err != nil {
		return err
	}

	watcher := orchestrator.NewWatcher(s.source, s.orch,
		orchestrator.WithWatcherLogger(s.log),
		orchestrator.WithDebounce(flagDebounce))

	err = watcher.Run(ctx)

	if saveErr := s.saveSnapshot(); saveErr != nil {
		s.log.Warn("snapshot save failed", zap.Error(saveErr))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
