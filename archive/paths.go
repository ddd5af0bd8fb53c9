package archive

import (
	"errors"
	"io"
	"os"
)

// HasContent reports whether an archive of paths would hold anything besides empty directories:
// at least one path is a file, a symlink or a directory with children.
func HasContent(paths []string) bool {
	for _, path := range paths {
		info, err := os.Lstat(path)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			return true
		}
		if empty, err := isEmptyDir(path); err == nil && !empty {
			return true
		}
	}
	return false
}

func isEmptyDir(path string) (bool, error) {
	dir, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer dir.Close() //nolint:errcheck

	if _, err := dir.Readdirnames(1); errors.Is(err, io.EOF) {
		return true, nil
	} else if err != nil {
		return false, err
	}
	return false, nil
}
