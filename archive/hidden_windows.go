package archive

import (
	"io/fs"
	"syscall"
)

// isHidden returns true if the file has the hidden attribute.
func isHidden(_ string, fi fs.FileInfo) (bool, error) {
	if attrs, ok := fi.Sys().(*syscall.Win32FileAttributeData); ok {
		return attrs.FileAttributes&syscall.FILE_ATTRIBUTE_HIDDEN != 0, nil
	}

	return false, nil
}
