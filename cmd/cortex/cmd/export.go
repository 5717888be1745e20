package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veldtlabs/cortex/internal/export"
)

var (
	flagFormat string
	flagOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the symbol graph as JSON or a Mermaid diagram",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&flagFormat, "format", "f", "json", "output format: json or mermaid")
	exportCmd.Flags().StringVarP(&flagOut, "out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := buildStack()
	if err != nil {
		return err
	}
	defer s.log.Sync()

	if s.store.Stats().FileCount == 0 {
		if _, err := s.orch.Run(cmd.Context()); err != nil {
			return err
		}
	}

	var data []byte
	switch flagFormat {
	case "json":
		data, err = export.WriteJSON(s.store)
		if err != nil {
			return err
		}
	case "mermaid":
		data = []byte(export.GenerateMermaid(s.store))
	default:
		return fmt.Errorf("unknown format %q (want json or mermaid)", flagFormat)
	}

	if flagOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(flagOut, data, 0o644)
}
