package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// OpenExclFile creates a new file in parent directory that did not exist prior to this call.
//
// The file is named stem+ext, then stem-1+ext, stem-2+ext, etc. until os.O_EXCL succeeds, so "report.tar.gz" becomes
// "report-1.tar.gz" rather than "report.tar-1.gz" as long as ext is ".tar.gz". Caller is responsible for closing (and
// usually renaming or removing) the file upon a successful return.
func OpenExclFile(parent, stem, ext string, perm os.FileMode) (file *os.File, err error) {
	name := filepath.Join(parent, stem+ext)
	for i := 0; ; {
		switch file, err = os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm); {
		case err == nil:
			return
		case errors.Is(err, os.ErrExist):
			i++
			name = filepath.Join(parent, fmt.Sprintf("%s-%d%s", stem, i, ext))
		default:
			return nil, fmt.Errorf(`create file "%s" error: %w`, name, err)
		}
	}
}

// DirBase returns the last two elements of the given path, e.g. "parent/file.zip".
//
// Log lines read better with the parent directory included when the working directory is not obvious.
func DirBase(name string) string {
	dir, base := filepath.Dir(name), filepath.Base(name)
	if dir != "" && dir != "." {
		return filepath.Join(filepath.Base(dir), base)
	}

	if abs, err := filepath.Abs(name); err == nil {
		return filepath.Join(filepath.Base(filepath.Dir(abs)), base)
	}

	return base
}
