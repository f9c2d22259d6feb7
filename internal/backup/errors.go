// Package backup produces and restores the timestamped .rentikpro archives
// that bundle a workspace's database, manifest, and a metadata descriptor.
package backup

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDatabase indicates there is no valid database to archive.
	ErrNoDatabase = errors.New("no database to back up")

	// ErrBadEntry indicates an archive is missing or misnamed its database
	// entry, or that entry fails the SQLite magic check on extraction.
	ErrBadEntry = errors.New("bad archive entry")
)

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
