// Command rentikprosync is a CLI front-end over the workspace
// synchronization engine, for scripting, ops, and local testing without a
// desktop shell driving the engine through internal/rpcserver.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
