// Package workspace resolves the on-disk layout of a project workspace,
// performs atomic writes against it, and exposes the Facade operations
// the desktop shell calls (setup, open, save, backup create/list/restore,
// reset).
package workspace

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	manifestFileName = "workspace.json"
	dbFileName       = "database.sqlite"
	backupsDirName   = "backups"
	mediaDirName     = "media"
	syncDirName      = "sync"
)

// Exported file-name constants, for packages (backup, syncengine) that need
// the canonical names without resolving a full Paths value.
const (
	ManifestFileName = manifestFileName
	DBFileName       = dbFileName
	// LegacyDBEntryName is the database entry name used by older archives
	// and by the remote store; extraction falls back to it.
	LegacyDBEntryName = "db.sqlite"
)

// ErrValidation is wrapped by every input-validation failure in this
// package: missing roots, non-directory paths, empty slugs, and the like.
// None of these leave any side effect behind.
var ErrValidation = errors.New("validation")

// Paths is the resolved set of canonical locations under a workspace root.
type Paths struct {
	Root        string
	Manifest    string
	DB          string
	BackupsDir  string
	MediaDir    string
	SyncDir     string
	SyncState   string
	ConflictDir string
	SyncBackups string
}

// Resolve derives the canonical workspace paths from a root directory.
func Resolve(root string) Paths {
	syncDir := filepath.Join(root, syncDirName)
	return Paths{
		Root:        root,
		Manifest:    filepath.Join(root, manifestFileName),
		DB:          filepath.Join(root, dbFileName),
		BackupsDir:  filepath.Join(root, backupsDirName),
		MediaDir:    filepath.Join(root, mediaDirName),
		SyncDir:     syncDir,
		SyncState:   filepath.Join(syncDir, "state.json"),
		ConflictDir: filepath.Join(syncDir, "conflicts"),
		SyncBackups: filepath.Join(syncDir, "backups"),
	}
}

// RemotePaths is the resolved set of WebDAV URLs for a workspace's remote
// counterpart, rooted at <base>/RentikProSync/<slug>.
type RemotePaths struct {
	Root      string
	SyncDir   string
	StateURL  string
	LockURL   string
	DB        string
	ParentDir string
}

// ResolveRemote derives the remote WebDAV URLs from a base URL and slug.
// It trims a trailing slash from base and surrounding whitespace from
// slug; an empty base or slug is a validation error with no side effects.
func ResolveRemote(base, slug string) (RemotePaths, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	slug = strings.TrimSpace(slug)
	if base == "" {
		return RemotePaths{}, fmt.Errorf("%w: missing WebDAV url", ErrValidation)
	}
	if slug == "" {
		return RemotePaths{}, fmt.Errorf("%w: missing slug", ErrValidation)
	}

	parent := joinURL(base, "RentikProSync")
	root := joinURL(parent, slug)
	syncDir := joinURL(root, "sync")
	return RemotePaths{
		Root:      root,
		SyncDir:   syncDir,
		StateURL:  joinURL(syncDir, "state.json"),
		LockURL:   joinURL(syncDir, "lock.json"),
		DB:        joinURL(root, "db.sqlite"),
		ParentDir: parent,
	}, nil
}

// joinURL concatenates a URL base and suffix with exactly one slash
// between them, regardless of how either side is already delimited.
func joinURL(base, suffix string) string {
	b := strings.TrimRight(base, "/")
	s := strings.TrimLeft(suffix, "/")
	return b + "/" + s
}
