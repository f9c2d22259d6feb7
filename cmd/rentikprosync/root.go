package main

import (
	"context"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rentikpro/workspace-sync/internal/config"
	"github.com/rentikpro/workspace-sync/internal/debug"
	"github.com/rentikpro/workspace-sync/internal/workspace"
)

// withWorkspaceLock runs fn while holding root's advisory file lock,
// failing closed with workspace.ErrWorkspaceBusy if another process has
// held it longer than the configured lock-wait. Every command that
// mutates a workspace root goes through this.
func withWorkspaceLock(root string, fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.GetDuration("lock-wait"))
	defer cancel()
	return workspace.WithRootLock(ctx, root, fn)
}

var (
	quietFlag   bool
	verboseFlag bool
	yesFlag     bool

	facade = workspace.NewFacade()

	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	conflictStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

var rootCmd = &cobra.Command{
	Use:   "rentikprosync",
	Short: "Workspace synchronization engine for RentikPro project folders",
	Long: `rentikprosync manages a local project workspace (a JSON manifest, a
SQLite database file, backups, and media) and optionally reconciles the
database with a remote copy over WebDAV.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&quietFlag, "quiet", config.GetBool("quiet"), "suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "enable diagnostic tracing")
	rootCmd.PersistentFlags().BoolVar(&yesFlag, "yes", config.GetBool("yes"), "skip destructive-action confirmation prompts")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(pickFolderCmd)
	rootCmd.AddCommand(serveCmd)
}
