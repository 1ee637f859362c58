package codec

import (
	"fmt"
	"strings"
)

// Compression identifies a compression algorithm.
//
// The zero value is not valid; use None for uncompressed content.
type Compression string

const (
	None    Compression = "none"
	Gzip    Compression = "gzip"
	Bzip2   Compression = "bzip2"
	Lzma    Compression = "lzma"
	Zstd    Compression = "zstd"
	Deflate Compression = "deflate"
	// Aes marks encrypted content. It can be reported by listing but never decoded by this package.
	Aes Compression = "aes"
)

const unknownPrefix = "unknown ("

// Unknown creates a Compression for an algorithm that this package does not recognise.
func Unknown(name string) Compression {
	return Compression(unknownPrefix + name + ")")
}

// Known returns all known compression values in a stable order.
func Known() []Compression {
	return []Compression{None, Gzip, Bzip2, Lzma, Zstd, Deflate, Aes}
}

// IsUnknown returns true if c was created with Unknown.
func (c Compression) IsUnknown() bool {
	return strings.HasPrefix(string(c), unknownPrefix)
}

func (c Compression) String() string {
	return string(c)
}

// ParseCompression parses a compression name.
//
// Besides the canonical names, common aliases such as "gz", "xz", "zst", "bz2", and "zlib" are accepted.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "store", "stored":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "bzip2", "bz2":
		return Bzip2, nil
	case "lzma", "xz":
		return Lzma, nil
	case "zstd", "zst":
		return Zstd, nil
	case "deflate", "zlib":
		return Deflate, nil
	case "aes":
		return Aes, nil
	default:
		return "", fmt.Errorf("unknown compression %q", name)
	}
}

// UnmarshalFlag implements go-flags' Unmarshaler so Compression can be used directly as a command-line option.
func (c *Compression) UnmarshalFlag(value string) (err error) {
	*c, err = ParseCompression(value)
	return
}

// LevelRange returns the inclusive range of valid compression levels for c.
//
// ok is false for compressions that do not have levels.
func (c Compression) LevelRange() (lo, hi int, ok bool) {
	switch c {
	case Gzip, Bzip2, Lzma, Deflate:
		return 0, 9, true
	case Zstd:
		return 1, 19, true
	default:
		return 0, 0, false
	}
}

// ValidateLevel returns an InvalidLevelError if level is outside of c.LevelRange.
//
// Compressions without levels accept any level, which is then ignored.
func (c Compression) ValidateLevel(level int) error {
	lo, hi, ok := c.LevelRange()
	if ok && (level < lo || level > hi) {
		return &InvalidLevelError{Compression: c, Level: level, Min: lo, Max: hi}
	}

	return nil
}

// Sniff identifies the compression from the leading bytes of a stream.
//
// At least 6 bytes are needed to identify all supported formats; fewer bytes can still match the shorter signatures.
func Sniff(magic []byte) (Compression, bool) {
	switch {
	case hasPrefix(magic, 0x1f, 0x8b):
		return Gzip, true
	case hasPrefix(magic, 0x42, 0x5a, 0x68):
		return Bzip2, true
	case hasPrefix(magic, 0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00):
		return Lzma, true
	case hasPrefix(magic, 0x28, 0xb5, 0x2f, 0xfd):
		return Zstd, true
	default:
		return "", false
	}
}

func hasPrefix(b []byte, prefix ...byte) bool {
	if len(b) < len(prefix) {
		return false
	}

	for i, p := range prefix {
		if b[i] != p {
			return false
		}
	}

	return true
}
