package main

import (
	"fmt"
	"strings"
	"time"

	glamour "charm.land/glamour/v2"
	"github.com/spf13/cobra"

	"github.com/rentikpro/workspace-sync/internal/debug"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list, and restore workspace backup archives",
}

var prettyList bool

var backupCreateCmd = &cobra.Command{
	Use:   "create <root>",
	Short: "Create a timestamped backup archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if err := withWorkspaceLock(args[0], func() error {
			var err error
			name, err = facade.CreateBackup(args[0], time.Now())
			return err
		}); err != nil {
			return err
		}
		debug.PrintlnNormal(successStyle.Render(name))
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list <root>",
	Short: "List backup archives, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := facade.ListBackups(args[0])
		if err != nil {
			return err
		}
		if !prettyList {
			for _, n := range names {
				debug.PrintlnNormal(n)
			}
			return nil
		}

		var md strings.Builder
		md.WriteString("| # | Archive |\n|---|---|\n")
		for i, n := range names {
			fmt.Fprintf(&md, "| %d | %s |\n", i+1, n)
		}
		rendered, err := glamour.Render(md.String(), "dark")
		if err != nil {
			return fmt.Errorf("render backup list: %w", err)
		}
		debug.PrintNormal("%s", rendered)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <root> <backup-name>",
	Short: "Restore the database from a backup archive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !yesFlag {
			confirmed, err := confirm(fmt.Sprintf("Overwrite the database in %s with %s?", args[0], args[1]))
			if err != nil {
				return err
			}
			if !confirmed {
				debug.PrintlnNormal("aborted")
				return nil
			}
		}
		var dbBytes []byte
		if err := withWorkspaceLock(args[0], func() error {
			var err error
			dbBytes, err = facade.RestoreBackup(args[0], args[1], time.Now())
			return err
		}); err != nil {
			return err
		}
		debug.PrintlnNormal(successStyle.Render(fmt.Sprintf("restored (%d bytes)", len(dbBytes))))
		return nil
	},
}

func init() {
	backupListCmd.Flags().BoolVar(&prettyList, "pretty", false, "render the list as a Markdown table")
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd)
}
