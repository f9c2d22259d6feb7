package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rentikpro/workspace-sync/internal/debug"
	"github.com/rentikpro/workspace-sync/internal/legacyproject"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Legacy project.json + db.sqlite compatibility operations",
}

var projectValidateCmd = &cobra.Command{
	Use:   "validate <root>",
	Short: "Validate a legacy project folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := legacyproject.ValidateProjectFolder(args[0])
		if res.OK {
			debug.PrintlnNormal(successStyle.Render("ok"))
			return nil
		}
		debug.PrintlnNormal(conflictStyle.Render(res.Error))
		return nil
	},
}

var projectOpenCmd = &cobra.Command{
	Use:   "open <root>",
	Short: "Open a legacy project folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := legacyproject.OpenProjectFolder(args[0])
		if err != nil {
			return err
		}
		debug.PrintNormal("project.json: %s\n", res.ProjectJSONPath)
		debug.PrintNormal("db.sqlite: %s\n", res.DBPath)
		return nil
	},
}

var writeOverwrite bool

var projectWriteCmd = &cobra.Command{
	Use:   "write <root> <project-json-file> <db-file>",
	Short: "Write a legacy project folder",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectJSON, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[1], err)
		}
		dbBytes, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[2], err)
		}
		var res legacyproject.ValidateResult
		if err := withWorkspaceLock(args[0], func() error {
			var err error
			res, err = legacyproject.WriteProjectFolder(args[0], string(projectJSON), base64.StdEncoding.EncodeToString(dbBytes), writeOverwrite)
			return err
		}); err != nil {
			return err
		}
		debug.PrintlnNormal(successStyle.Render("wrote " + res.ProjectJSONPath))
		return nil
	},
}

func init() {
	projectWriteCmd.Flags().BoolVar(&writeOverwrite, "overwrite", false, "overwrite existing project.json/db.sqlite")
	projectCmd.AddCommand(projectValidateCmd, projectOpenCmd, projectWriteCmd)
}
