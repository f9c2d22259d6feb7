package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rentikpro/workspace-sync/internal/backup"
	"github.com/rentikpro/workspace-sync/internal/debug"
)

// OpenResult is returned by Open: everything the desktop shell needs to
// start using a workspace.
type OpenResult struct {
	ManifestJSON string
	DBBytes      []byte
	ManifestPath string
	DBPath       string
	BackupsDir   string
}

// Facade exposes the operations the UI calls: setup, open, save, backup
// create/list/restore, reset. It deduplicates concurrent invocations of the
// same operation against the same root within this process via
// singleflight (Save is also keyed by the database bytes' hash and
// RestoreBackup by the backup name; ListBackups is not deduplicated); it
// does not itself serialize cross-process access (see RootLock for that).
type Facade struct {
	group singleflight.Group
}

// NewFacade builds a ready-to-use Facade.
func NewFacade() *Facade {
	return &Facade{}
}

func (f *Facade) dedupe(op, root string, fn func() (interface{}, error)) (interface{}, error) {
	key := op + ":" + root
	v, err, shared := f.group.Do(key, fn)
	if shared {
		debug.Logf("dedupe: joined in-flight %s", key)
	}
	return v, err
}

// Setup ensures root is a usable workspace: backups/ and media/ exist, and
// a default manifest is written if none exists yet.
func (f *Facade) Setup(root string, now time.Time) error {
	_, err := f.dedupe("setup", root, func() (interface{}, error) {
		return nil, f.setup(root, now)
	})
	return err
}

func (f *Facade) setup(root string, now time.Time) error {
	if err := requireDir(root); err != nil {
		return err
	}
	paths := Resolve(root)
	if err := ensureAncillaryDirs(paths); err != nil {
		return err
	}
	if _, err := EnsureDefaultManifest(paths.Manifest, now.UnixMilli()); err != nil {
		return err
	}
	return nil
}

// Open ensures the ancillary directories and manifest exist, requires a
// valid database, and returns everything needed to start working with the
// workspace.
func (f *Facade) Open(root string, now time.Time) (OpenResult, error) {
	v, err := f.dedupe("open", root, func() (interface{}, error) {
		return f.open(root, now)
	})
	if err != nil {
		return OpenResult{}, err
	}
	return v.(OpenResult), nil
}

func (f *Facade) open(root string, now time.Time) (OpenResult, error) {
	if err := requireDir(root); err != nil {
		return OpenResult{}, err
	}
	paths := Resolve(root)
	if err := ensureAncillaryDirs(paths); err != nil {
		return OpenResult{}, err
	}
	if _, err := EnsureDefaultManifest(paths.Manifest, now.UnixMilli()); err != nil {
		return OpenResult{}, err
	}

	dbBytes, err := os.ReadFile(paths.DB)
	if err != nil {
		if os.IsNotExist(err) {
			return OpenResult{}, fmt.Errorf("%w: no database at %s", ErrValidation, paths.DB)
		}
		return OpenResult{}, fmt.Errorf("read database: %w", err)
	}
	if err := ValidateDBMagic(dbBytes); err != nil {
		return OpenResult{}, err
	}

	manifestText, err := ReadManifestText(paths.Manifest)
	if err != nil {
		return OpenResult{}, fmt.Errorf("read manifest: %w", err)
	}

	return OpenResult{
		ManifestJSON: manifestText,
		DBBytes:      dbBytes,
		ManifestPath: paths.Manifest,
		DBPath:       paths.DB,
		BackupsDir:   paths.BackupsDir,
	}, nil
}

// Save rejects database bytes that fail the SQLite magic check and
// otherwise writes them atomically to the workspace's database path.
func (f *Facade) Save(root string, dbBytes []byte) error {
	_, err := f.dedupe("save:"+HashBytes(dbBytes), root, func() (interface{}, error) {
		return nil, f.save(root, dbBytes)
	})
	return err
}

func (f *Facade) save(root string, dbBytes []byte) error {
	if err := ValidateDBMagic(dbBytes); err != nil {
		return err
	}
	paths := Resolve(root)
	if err := AtomicWrite(paths.DB, dbBytes); err != nil {
		return fmt.Errorf("write database: %w", err)
	}
	return nil
}

// CreateBackup archives the current database, manifest, and metadata under
// the "backup_" prefix, returning the archive's basename.
func (f *Facade) CreateBackup(root string, now time.Time) (string, error) {
	v, err := f.dedupe("create_backup", root, func() (interface{}, error) {
		return backup.Create(root, "backup_", now, now.UnixMilli())
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ListBackups enumerates backups/ for .rentikpro and legacy .zip files,
// newest first.
func (f *Facade) ListBackups(root string) ([]string, error) {
	paths := Resolve(root)
	return backup.List(paths.BackupsDir)
}

// RestoreBackup extracts the database from the named archive and makes it
// the workspace's active database, after a best-effort safety backup of
// the current state.
func (f *Facade) RestoreBackup(root, name string, now time.Time) ([]byte, error) {
	v, err := f.dedupe("restore_backup:"+name, root, func() (interface{}, error) {
		return f.restoreBackup(root, name, now)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (f *Facade) restoreBackup(root, name string, now time.Time) ([]byte, error) {
	if err := validateBackupName(name); err != nil {
		return nil, err
	}

	if _, err := backup.Create(root, "autobackup_before_restore_", now, now.UnixMilli()); err != nil {
		debug.Logf("pre-restore auto-backup failed (best-effort, continuing): %v", err)
	}

	if !strings.HasSuffix(name, ".rentikpro") {
		name += ".rentikpro"
	}

	paths := Resolve(root)
	archivePath := filepath.Join(paths.BackupsDir, name)
	dbBytes, err := backup.ExtractDB(archivePath)
	if err != nil {
		return nil, fmt.Errorf("extract backup %s: %w", name, err)
	}

	if err := AtomicWrite(paths.DB, dbBytes); err != nil {
		return nil, fmt.Errorf("write restored database: %w", err)
	}

	info, err := os.Stat(paths.DB)
	if err != nil {
		return nil, fmt.Errorf("verify restored database: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: restored database is empty", ErrValidation)
	}

	return dbBytes, nil
}

// ResetWorkspace deletes the active database after a best-effort safety
// backup. It is not an error for the database to already be absent.
func (f *Facade) ResetWorkspace(root string, now time.Time) error {
	_, err := f.dedupe("reset_workspace", root, func() (interface{}, error) {
		return nil, f.resetWorkspace(root, now)
	})
	return err
}

func (f *Facade) resetWorkspace(root string, now time.Time) error {
	if _, err := backup.Create(root, "autobackup_before_reset_", now, now.UnixMilli()); err != nil {
		debug.Logf("pre-reset auto-backup failed (best-effort, continuing): %v", err)
	}

	paths := Resolve(root)
	if err := os.Remove(paths.DB); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove database: %w", err)
	}
	return nil
}

func requireDir(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrValidation, root)
	}
	return nil
}

func ensureAncillaryDirs(paths Paths) error {
	for _, dir := range []string{paths.BackupsDir, paths.MediaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func validateBackupName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty backup name", ErrValidation)
	}
	if strings.Contains(name, "/") || strings.Contains(name, "\\") || strings.Contains(name, "..") {
		return fmt.Errorf("%w: unsafe backup name %q", ErrValidation, name)
	}
	return nil
}
