package backup

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rentikpro/workspace-sync/internal/workspace"
)

func seedWorkspace(t *testing.T, root string, dbBytes []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, "database.sqlite"), dbBytes, 0o644); err != nil {
		t.Fatalf("seed db: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "workspace.json"), []byte(`{"schema":1}`), 0o644); err != nil {
		t.Fatalf("seed manifest: %v", err)
	}
}

func TestCreateExtractRoundTrip(t *testing.T) {
	root := t.TempDir()
	dbBytes := append([]byte("SQLite format 3\x00"), []byte("payload-bytes")...)
	seedWorkspace(t, root, dbBytes)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	name, err := Create(root, "backup_", now, now.UnixMilli())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if name != "backup_20260102_030405.rentikpro" {
		t.Errorf("name = %q", name)
	}

	archivePath := filepath.Join(root, "backups", name)
	extracted, err := ExtractDB(archivePath)
	if err != nil {
		t.Fatalf("ExtractDB: %v", err)
	}
	if string(extracted) != string(dbBytes) {
		t.Errorf("round-trip mismatch: got %q, want %q", extracted, dbBytes)
	}
}

func TestCreateFailsWithoutDatabase(t *testing.T) {
	root := t.TempDir()
	if _, err := Create(root, "backup_", time.Now(), 0); err == nil {
		t.Fatal("expected error with no database present")
	}
}

func TestCreateFailsOnInvalidMagic(t *testing.T) {
	root := t.TempDir()
	seedWorkspace(t, root, []byte("not a real database"))
	if _, err := Create(root, "backup_", time.Now(), 0); err == nil {
		t.Fatal("expected error with invalid magic header")
	}
}

func TestCreateUsesEmptyManifestWhenMissing(t *testing.T) {
	root := t.TempDir()
	dbBytes := append([]byte("SQLite format 3\x00"), []byte("x")...)
	if err := os.WriteFile(filepath.Join(root, "database.sqlite"), dbBytes, 0o644); err != nil {
		t.Fatalf("seed db: %v", err)
	}

	now := time.Now()
	name, err := Create(root, "backup_", now, now.UnixMilli())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	archivePath := filepath.Join(root, "backups", name)
	if _, err := ExtractDB(archivePath); err != nil {
		t.Fatalf("ExtractDB: %v", err)
	}
}

func TestExtractDBFallsBackToLegacyName(t *testing.T) {
	// Build a workspace, create a proper archive, then verify the extractor
	// also accepts an archive whose only database entry is named
	// workspace.LegacyDBEntryName.
	root := t.TempDir()
	dbBytes := append([]byte("SQLite format 3\x00"), []byte("legacy")...)
	seedWorkspace(t, root, dbBytes)

	now := time.Now()
	name, err := Create(root, "backup_", now, now.UnixMilli())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	archivePath := filepath.Join(root, "backups", name)

	if _, err := ExtractDB(archivePath); err != nil {
		t.Fatalf("ExtractDB on canonical name: %v", err)
	}

	legacyPath := filepath.Join(root, "legacy.zip")
	f, err := os.Create(legacyPath)
	if err != nil {
		t.Fatalf("create legacy archive: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create(workspace.LegacyDBEntryName)
	if err != nil {
		t.Fatalf("create legacy entry: %v", err)
	}
	w.Write(dbBytes)
	zw.Close()
	f.Close()

	extracted, err := ExtractDB(legacyPath)
	if err != nil {
		t.Fatalf("ExtractDB on legacy name: %v", err)
	}
	if string(extracted) != string(dbBytes) {
		t.Errorf("legacy extract = %q, want %q", extracted, dbBytes)
	}
}

func TestListSortsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"backup_20260101_000000.rentikpro",
		"backup_20260103_000000.rentikpro",
		"backup_20260102_000000.rentikpro",
		"ignored.txt",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatalf("seed %s: %v", n, err)
		}
	}

	got, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		"backup_20260103_000000.rentikpro",
		"backup_20260102_000000.rentikpro",
		"backup_20260101_000000.rentikpro",
	}
	if len(got) != len(want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestListMissingDirIsNotError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	got, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List = %v, want empty", got)
	}
}
