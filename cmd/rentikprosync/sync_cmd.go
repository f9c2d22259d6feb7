package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rentikpro/workspace-sync/internal/config"
	"github.com/rentikpro/workspace-sync/internal/debug"
	"github.com/rentikpro/workspace-sync/internal/syncengine"
)

var (
	syncMode     string
	syncURL      string
	syncUser     string
	syncPass     string
	syncSlug     string
	syncClientID string
	syncForce    bool
	syncDBFile   string
)

var syncCmd = &cobra.Command{
	Use:   "sync <root>",
	Short: "Reconcile the local database with a remote WebDAV copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]

		if syncURL == "" {
			syncURL = config.GetString("webdav-url")
		}
		if syncUser == "" {
			syncUser = config.GetString("webdav-user")
		}
		if syncPass == "" {
			syncPass = config.GetString("webdav-pass")
		}
		if syncSlug == "" {
			syncSlug = config.GetString("slug")
		}

		if syncClientID == "" {
			id, err := config.LoadIdentity(root)
			if err != nil {
				return err
			}
			if id.ClientID == "" {
				id.ClientID, err = newDefaultClientID()
				if err != nil {
					return err
				}
				if err := config.SaveIdentity(root, id); err != nil {
					return err
				}
			}
			syncClientID = id.ClientID
		}

		dbPath := syncDBFile
		if dbPath == "" {
			dbPath = root + "/database.sqlite"
		}
		dbBytes, err := os.ReadFile(dbPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", dbPath, err)
		}

		var result syncengine.Result
		if err := withWorkspaceLock(root, func() error {
			result = syncengine.Sync(syncengine.Params{
				Mode:         syncengine.Mode(syncMode),
				RemoteBase:   syncURL,
				Username:     syncUser,
				Password:     syncPass,
				Slug:         syncSlug,
				LocalRoot:    root,
				ClientID:     syncClientID,
				Force:        syncForce,
				LocalDBBytes: dbBytes,
				Now:          time.Now(),
			})
			return nil
		}); err != nil {
			return err
		}

		return reportSyncResult(result)
	},
}

func reportSyncResult(r syncengine.Result) error {
	switch {
	case r.Conflict:
		debug.PrintlnNormal(conflictStyle.Render("conflict detected"))
		for side, path := range r.ConflictPaths {
			debug.PrintNormal("  %s quarantined at %s\n", side, path)
		}
		return fmt.Errorf("sync conflict")
	case !r.Success:
		return fmt.Errorf("%s", r.Error)
	case r.Applied:
		debug.PrintlnNormal(successStyle.Render("sync applied"))
	default:
		debug.PrintlnNormal(successStyle.Render("already up to date"))
	}
	return nil
}

func newDefaultClientID() (string, error) {
	return config.NewClientID()
}

func init() {
	syncCmd.Flags().StringVar(&syncMode, "mode", "up", "sync direction: up or down")
	syncCmd.Flags().StringVar(&syncURL, "url", "", "WebDAV base URL")
	syncCmd.Flags().StringVar(&syncUser, "user", "", "WebDAV username")
	syncCmd.Flags().StringVar(&syncPass, "pass", "", "WebDAV password")
	syncCmd.Flags().StringVar(&syncSlug, "slug", "", "workspace slug on the remote share")
	syncCmd.Flags().StringVar(&syncClientID, "client-id", "", "override the persisted client id")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "suppress conflict detection")
	syncCmd.Flags().StringVar(&syncDBFile, "db-file", "", "override the database file path (defaults to <root>/database.sqlite)")
}
