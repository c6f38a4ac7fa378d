// Package fsutil holds small filesystem helpers shared by the catalog,
// the runtimes and the CLI.
package fsutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "home dir")
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/.cache/askd
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// FileSize returns the size of a regular file, or false if path does not
// name one.
func FileSize(path string) (int64, bool) {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return 0, false
	}
	return fi.Size(), true
}
