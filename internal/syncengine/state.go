// Package syncengine implements the Sync Reconciler: the three-way
// comparison between a workspace's local database, its last-synced state,
// and the remote copy on a WebDAV share, and the upload/download/quarantine
// procedures that follow from it.
package syncengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rentikpro/workspace-sync/internal/webdav"
	"github.com/rentikpro/workspace-sync/internal/workspace"
)

// State is the sync-state JSON document, stored locally at sync/state.json
// and remotely at <remote_root>/sync/state.json.
type State struct {
	Version      int    `json:"version"`
	LastModified int64  `json:"lastModified"`
	SHA256       string `json:"sha256"`
	ClientID     string `json:"clientId"`
}

// readLocalState returns nil, nil if no state file exists yet.
func readLocalState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read local state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse local state: %w", err)
	}
	return &s, nil
}

// writeLocalState writes s to path via the Atomic Writer, pretty-printed.
func writeLocalState(path string, s State) error {
	data, err := workspace.MarshalJSONPretty(s)
	if err != nil {
		return err
	}
	if err := workspace.AtomicWrite(path, data); err != nil {
		return fmt.Errorf("write local state: %w", err)
	}
	return nil
}

// readRemoteState returns nil, nil if the remote store has no state object
// yet (GET 404).
func readRemoteState(client *webdav.Client, url string) (*State, error) {
	data, err := client.GET(url)
	if errors.Is(err, webdav.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read remote state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse remote state: %w", err)
	}
	return &s, nil
}

// writeRemoteState PUTs s to url as pretty-printed JSON.
func writeRemoteState(client *webdav.Client, url string, s State) error {
	data, err := workspace.MarshalJSONPretty(s)
	if err != nil {
		return err
	}
	if err := client.PUT(url, data, "application/json"); err != nil {
		return fmt.Errorf("write remote state: %w", err)
	}
	return nil
}
