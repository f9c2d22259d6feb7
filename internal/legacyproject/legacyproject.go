// Package legacyproject preserves the pre-workspace project.json + db.sqlite
// compatibility surface: pick_project_folder, validate_project_folder,
// open_project_folder, and write_project_folder. It deliberately shares no
// code with internal/workspace — this is a frozen legacy layout, not a
// variant of the current one.
package legacyproject

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	projectJSONName = "project.json"
	dbName          = "db.sqlite"
)

// ErrNotAvailable is returned by PickProjectFolder: a native folder-picker
// dialog has no backend analogue outside the desktop shell.
var ErrNotAvailable = errors.New("not available outside the desktop shell")

// ValidateResult mirrors the original ValidateProjectResult shape.
type ValidateResult struct {
	OK              bool
	Error           string
	ProjectJSONPath string
	DBPath          string
}

// OpenResult mirrors the original OpenProjectResult shape.
type OpenResult struct {
	ProjectJSON     string
	DBBase64        string
	ProjectJSONPath string
	DBPath          string
}

func projectPaths(root string) (string, string) {
	return filepath.Join(root, projectJSONName), filepath.Join(root, dbName)
}

// PickProjectFolder has no backend implementation: folder selection is a
// native dialog owned by the desktop shell.
func PickProjectFolder() (string, error) {
	return "", ErrNotAvailable
}

// ValidateProjectFolder reports whether root exists, is a directory, and
// contains both project.json and db.sqlite.
func ValidateProjectFolder(root string) ValidateResult {
	pj, db := projectPaths(root)

	info, err := os.Stat(root)
	if err != nil {
		return ValidateResult{OK: false, Error: "Folder does not exist", ProjectJSONPath: pj, DBPath: db}
	}
	if !info.IsDir() {
		return ValidateResult{OK: false, Error: "Path is not a folder", ProjectJSONPath: pj, DBPath: db}
	}

	_, pjErr := os.Stat(pj)
	pjOK := pjErr == nil
	_, dbErr := os.Stat(db)
	dbOK := dbErr == nil

	if pjOK && dbOK {
		return ValidateResult{OK: true, ProjectJSONPath: pj, DBPath: db}
	}

	missing := ""
	if !pjOK {
		missing += "project.json "
	}
	if !dbOK {
		missing += "db.sqlite"
	}
	return ValidateResult{
		OK:              false,
		Error:           fmt.Sprintf("Missing required files: %s", missing),
		ProjectJSONPath: pj,
		DBPath:          db,
	}
}

// OpenProjectFolder validates root and, if valid, reads both files back.
func OpenProjectFolder(root string) (OpenResult, error) {
	v := ValidateProjectFolder(root)
	if !v.OK {
		if v.Error == "" {
			return OpenResult{}, errors.New("Invalid project folder")
		}
		return OpenResult{}, errors.New(v.Error)
	}

	pj, db := projectPaths(root)
	projectJSON, err := os.ReadFile(pj)
	if err != nil {
		return OpenResult{}, fmt.Errorf("Failed reading project.json: %w", err)
	}
	dbBytes, err := os.ReadFile(db)
	if err != nil {
		return OpenResult{}, fmt.Errorf("Failed reading db.sqlite: %w", err)
	}

	return OpenResult{
		ProjectJSON:     string(projectJSON),
		DBBase64:        base64.StdEncoding.EncodeToString(dbBytes),
		ProjectJSONPath: pj,
		DBPath:          db,
	}, nil
}

// WriteProjectFolder creates root if missing and writes both files,
// refusing to clobber existing ones unless overwrite is set.
func WriteProjectFolder(root, projectJSON, dbBase64 string, overwrite bool) (ValidateResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return ValidateResult{}, fmt.Errorf("Failed to create folder: %w", err)
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			return ValidateResult{}, fmt.Errorf("Failed to create folder: %w", err)
		}
	} else if !info.IsDir() {
		return ValidateResult{}, errors.New("Path is not a folder")
	}

	pj, db := projectPaths(root)

	if !overwrite {
		if _, err := os.Stat(pj); err == nil {
			return ValidateResult{}, errors.New("project.json already exists")
		}
		if _, err := os.Stat(db); err == nil {
			return ValidateResult{}, errors.New("db.sqlite already exists")
		}
	}

	if err := os.WriteFile(pj, []byte(projectJSON), 0o644); err != nil {
		return ValidateResult{}, fmt.Errorf("Failed writing project.json: %w", err)
	}

	dbBytes, err := base64.StdEncoding.DecodeString(dbBase64)
	if err != nil {
		return ValidateResult{}, fmt.Errorf("Invalid db base64: %w", err)
	}
	if err := os.WriteFile(db, dbBytes, 0o644); err != nil {
		return ValidateResult{}, fmt.Errorf("Failed writing db.sqlite: %w", err)
	}

	return ValidateProjectFolder(root), nil
}
