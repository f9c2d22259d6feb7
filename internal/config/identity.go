package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const identityFileName = ".rentikprosync.toml"

// Identity is the small, persisted, per-workspace client configuration:
// the client ID used to claim the remote lock and author state writes, and
// the last remote this workspace was pointed at.
type Identity struct {
	ClientID    string `toml:"client_id"`
	LastWebDAV  string `toml:"last_webdav_url"`
	LastSlug    string `toml:"last_slug"`
	LastSyncUTC int64  `toml:"last_sync_millis"`
}

// LoadIdentity reads root/.rentikprosync.toml. A missing file is not an
// error: it returns a zero-value Identity.
func LoadIdentity(root string) (Identity, error) {
	var id Identity
	path := filepath.Join(root, identityFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return id, nil
	}
	if _, err := toml.DecodeFile(path, &id); err != nil {
		return Identity{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return id, nil
}

// NewClientID generates a fresh random client identifier for a workspace
// that has never synced before.
func NewClientID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate client id: %w", err)
	}
	return "client-" + hex.EncodeToString(buf), nil
}

// SaveIdentity writes id to root/.rentikprosync.toml.
func SaveIdentity(root string, id Identity) error {
	path := filepath.Join(root, identityFileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(id); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
