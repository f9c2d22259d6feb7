package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// AtomicWrite writes bytes to path via a sibling ".tmp" file and a rename,
// so a concurrent reader of path never observes a partial write: it either
// sees the previous content or the new content, never a mix.
//
// On POSIX, rename(2) onto an existing file is already atomic and the tmp
// file is simply renamed over the target. On Windows, rename cannot
// overwrite an existing file, so the target is removed first; that opens a
// one-syscall window where the target is briefly absent, which the spec
// accepts as a platform limitation rather than a correctness gap.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", tmp, err)
	}

	if runtime.GOOS == "windows" {
		if _, err := os.Stat(path); err == nil {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("remove existing %s: %w", path, err)
			}
		}
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp into %s: %w", path, err)
	}
	return nil
}
