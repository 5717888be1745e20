// cortex indexes a codebase into a multi-language symbol graph and serves
// it to agents over MCP.
package main

import (
	"os"

	"github.com/veldtlabs/cortex/cmd/cortex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
