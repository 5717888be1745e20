package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veldtlabs/cortex/internal/mcptools"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the symbol graph over MCP",
	Long:  "Indexes the repository, then serves the MCP tools over streamable HTTP until interrupted. The graph snapshot is saved on shutdown.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default :7432 or mcpAddr from cortex.yml)")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	addr := flagAddr
	if addr == "" {
		addr = s.cfg.MCPAddr
	}
	if addr == "" {
		addr = ":7432"
	}

	svc := mcptools.NewBrainService(s.store, s.orch, s.root,
		mcptools.WithServiceLogger(s.log),
		mcptools.WithIndexWorkers(s.cfg.Workers))

	s.log.Info("serving MCP", zap.String("addr", addr), zap.String("root", s.root))
	err = mcptools.RunMCPServer(ctx, svc, addr)

	if saveErr := s.saveSnapshot(); saveErr != nil {
		s.log.Warn("snapshot save failed", zap.Error(saveErr))
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
