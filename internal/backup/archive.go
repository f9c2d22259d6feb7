package backup

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rentikpro/workspace-sync/internal/workspace"
)

// metadata is the third entry written into every archive.
type metadata struct {
	App       string `json:"app"`
	Format    string `json:"format"`
	CreatedAt int64  `json:"createdAt"`
	DBFile    string `json:"dbFile"`
}

const metadataFormat = "rentikpro-workspace-backup"

// Create builds a .rentikpro archive under root/backups, bundling the
// current database, the manifest, and a metadata descriptor. root must
// already contain a valid database. now is the creation time used for the
// archive name (formatted in now's own location) and nowMillis is the
// millis-since-epoch value recorded in the metadata; both are passed in
// rather than read from the clock so callers can control them
// deterministically.
//
// It returns the archive's basename.
func Create(root, prefix string, now time.Time, nowMillis int64) (string, error) {
	paths := workspace.Resolve(root)

	dbBytes, err := os.ReadFile(paths.DB)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNoDatabase, paths.DB)
		}
		return "", wrap("read database", err)
	}
	if err := workspace.ValidateDBMagic(dbBytes); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoDatabase, err)
	}

	manifestText, err := workspace.ReadManifestText(paths.Manifest)
	if err != nil {
		if os.IsNotExist(err) {
			manifestText = "{}"
		} else {
			return "", wrap("read manifest", err)
		}
	}

	meta := metadata{
		App:       "rentikprosync",
		Format:    metadataFormat,
		CreatedAt: nowMillis,
		DBFile:    workspace.DBFileName,
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", wrap("marshal metadata", err)
	}

	if err := os.MkdirAll(paths.BackupsDir, 0o755); err != nil {
		return "", wrap("create backups dir", err)
	}

	name := fmt.Sprintf("%s%s.rentikpro", prefix, now.Format("20060102_150405"))
	archivePath := filepath.Join(paths.BackupsDir, name)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range []struct {
		name string
		data []byte
	}{
		{workspace.DBFileName, dbBytes},
		{workspace.ManifestFileName, []byte(manifestText)},
		{"metadata.json", metaBytes},
	} {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   entry.name,
			Method: zip.Deflate,
		})
		if err != nil {
			return "", wrap("create archive entry "+entry.name, err)
		}
		if _, err := w.Write(entry.data); err != nil {
			return "", wrap("write archive entry "+entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", wrap("close archive", err)
	}

	if err := workspace.AtomicWrite(archivePath, buf.Bytes()); err != nil {
		return "", wrap("write archive", err)
	}
	return name, nil
}

// ExtractDB opens a .rentikpro (or legacy .zip) archive and returns the
// database bytes it contains. The entry is located by its canonical name,
// falling back to the legacy name; any other layout is rejected.
func ExtractDB(archivePath string) ([]byte, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, wrap("open archive", err)
	}
	defer r.Close()

	var dbEntry *zip.File
	for _, f := range r.File {
		if f.Name == workspace.DBFileName {
			dbEntry = f
			break
		}
		if f.Name == workspace.LegacyDBEntryName && dbEntry == nil {
			dbEntry = f
		}
	}
	if dbEntry == nil {
		return nil, fmt.Errorf("%w: no %s or %s entry", ErrBadEntry, workspace.DBFileName, workspace.LegacyDBEntryName)
	}

	rc, err := dbEntry.Open()
	if err != nil {
		return nil, wrap("open archive entry", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, wrap("read archive entry", err)
	}
	if err := workspace.ValidateDBMagic(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadEntry, err)
	}
	return data, nil
}
