package backup

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// List enumerates regular files under dir ending in .rentikpro or the
// legacy .zip extension, sorted lexicographically descending. Because
// every name is timestamp-prefixed, descending byte order is also
// newest-first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, wrap("list backups dir "+dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".rentikpro" || ext == ".zip" {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
