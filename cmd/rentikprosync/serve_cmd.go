package main

import (
	"github.com/spf13/cobra"

	"github.com/rentikpro/workspace-sync/internal/debug"
	"github.com/rentikpro/workspace-sync/internal/rpcserver"
)

var serveSocketPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the engine's operations over a Unix domain socket",
	Long: `serve runs the engine as a long-lived subprocess, so a desktop shell
can drive it with newline-delimited JSON requests instead of re-executing
the CLI for every operation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := rpcserver.NewServer(serveSocketPath)
		debug.PrintlnNormal(successStyle.Render("serving on " + serveSocketPath))
		return server.Start()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveSocketPath, "socket", "/tmp/rentikprosync.sock", "Unix domain socket path")
}
