//go:build !windows

package archive

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// isHidden returns true if the base name of the file starts with a dot.
func isHidden(path string, _ fs.FileInfo) (bool, error) {
	return strings.HasPrefix(filepath.Base(path), "."), nil
}
