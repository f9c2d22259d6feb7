package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rentikpro/workspace-sync/internal/debug"
)

var setupCmd = &cobra.Command{
	Use:   "setup <root>",
	Short: "Initialize a directory as a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := withWorkspaceLock(args[0], func() error {
			return facade.Setup(args[0], time.Now())
		}); err != nil {
			return err
		}
		debug.PrintlnNormal(successStyle.Render("workspace initialized: " + args[0]))
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <root>",
	Short: "Open a workspace and print its manifest and database path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := facade.Open(args[0], time.Now())
		if err != nil {
			return err
		}
		debug.PrintlnNormal(successStyle.Render("opened " + args[0]))
		debug.PrintNormal("manifest: %s\n", res.ManifestPath)
		debug.PrintNormal("database: %s (%d bytes)\n", res.DBPath, len(res.DBBytes))
		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:   "save <root> <db-file>",
	Short: "Write a database file into the workspace atomically",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[1], err)
		}
		if err := withWorkspaceLock(args[0], func() error {
			return facade.Save(args[0], data)
		}); err != nil {
			return err
		}
		debug.PrintlnNormal(successStyle.Render("saved"))
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <root>",
	Short: "Back up and delete the workspace database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !yesFlag {
			confirmed, err := confirm(fmt.Sprintf("Delete the database in %s? A backup will be attempted first.", args[0]))
			if err != nil {
				return err
			}
			if !confirmed {
				debug.PrintlnNormal("aborted")
				return nil
			}
		}
		if err := withWorkspaceLock(args[0], func() error {
			return facade.ResetWorkspace(args[0], time.Now())
		}); err != nil {
			return err
		}
		debug.PrintlnNormal(successStyle.Render("workspace reset"))
		return nil
	},
}

var pickFolderCmd = &cobra.Command{
	Use:    "pick-project-folder",
	Short:  "Not available outside the desktop shell",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("pick_project_folder is not available outside the desktop shell")
	},
}
