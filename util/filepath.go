package util

import (
	"path/filepath"
	"strings"
)

// StemAndExt is a variant of filepath.Ext that keeps multi-part extensions such as ".tar.gz" together.
//
// For example, filepath.Ext("backup.tar.gz") returns ".gz" while StemAndExt("backup.tar.gz") returns "backup" and
// ".tar.gz". Each dot-separated part may be at most 6 characters long (including the dot) to count as extension so
// "v1.2.3-release" stays a stem instead of producing an extension of ".3-release".
func StemAndExt(path string) (stem, ext string) {
	n := len(path) - 1
	for i, j := n, max(0, n-6); i >= j; i-- {
		switch path[i] {
		case '\\', '/':
			stem = path[i+1:]
			return
		case '.':
			if i == 0 || path[i-1] == '/' || path[i-1] == '\\' {
				// dotfiles such as ".hezi" have no extension.
				break
			}

			ext = path[i:] + ext
			path = path[:i]
			n = len(path) - 1
			i, j = n+1, max(0, n-6)
			continue
		}
	}

	stem = filepath.Base(path)
	return
}

// Suffixes returns the last n dot-separated suffixes of name in lower case, the last one first.
//
// Suffixes("Backup.Tar.GZ", 2) returns ["gz", "tar"]. Fewer than n suffixes may be returned.
func Suffixes(name string, n int) []string {
	base := strings.ToLower(filepath.Base(name))
	parts := strings.Split(base, ".")
	if len(parts) <= 1 {
		return nil
	}

	parts = parts[1:]
	res := make([]string, 0, n)
	for i := len(parts) - 1; i >= 0 && len(res) < n; i-- {
		res = append(res, parts[i])
	}

	return res
}
