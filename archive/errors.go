package archive

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCompressionMethodRequired is returned when creating an archive format that requires an explicit compression.
var ErrCompressionMethodRequired = errors.New("Compression method required for this type of archive.")

// FormatError is returned when the container structure of an archive is corrupt or cannot be parsed.
type FormatError struct {
	Type Type
	Err  error
}

func (e *FormatError) Error() string {
	switch e.Type {
	case Zip:
		return fmt.Sprintf("ZipError: %v", e.Err)
	case Tar:
		return fmt.Sprintf("TarError: %v", e.Err)
	case SevenZ:
		return fmt.Sprintf("SevenZError: %v", e.Err)
	case Iso:
		return fmt.Sprintf("ISOError: %v", e.Err)
	default:
		return fmt.Sprintf("%sError: %v", e.Type, e.Err)
	}
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// PasswordError is returned when an encrypted entry or archive cannot be decrypted, either because no password was
// given or because the password is wrong.
type PasswordError struct {
	Err error
}

func (e *PasswordError) Error() string {
	return fmt.Sprintf("PasswordError: %v", e.Err)
}

func (e *PasswordError) Unwrap() error {
	return e.Err
}

// IOError wraps a filesystem error with the operation and path that caused it.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf(`%s "%s" error: %v`, e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// UnknownFormatError is returned when detection does not recognise any supported format.
type UnknownFormatError struct {
	MagicNumbers MagicNumbers
}

func (e *UnknownFormatError) Error() string {
	return "Unknown archive type, magic numbers: " + e.MagicNumbers.String()
}

// MagicNumbers records every byte window probed during detection.
type MagicNumbers struct {
	Zip MagicBytes
	Tar MagicBytes
	Iso [3]MagicBytes
}

func (m MagicNumbers) String() string {
	return strings.Join([]string{
		"zip at " + m.Zip.Hex(),
		"tar at " + m.Tar.Hex(),
		"iso at " + m.Iso[0].Str(),
		"iso at " + m.Iso[1].Str(),
		"iso at " + m.Iso[2].Str(),
	}, ", ")
}

// MagicBytes are the bytes read at a specific offset.
//
// Bytes past the end of the source are zero.
type MagicBytes struct {
	Offset int64
	Bytes  []byte
}

// Hex formats as `0x000101: [75 73 74 61 72 00 30 30]`.
func (m MagicBytes) Hex() string {
	parts := make([]string, len(m.Bytes))
	for i, b := range m.Bytes {
		parts[i] = fmt.Sprintf("%02X", b)
	}

	return fmt.Sprintf("0x%06X: [%s]", m.Offset, strings.Join(parts, " "))
}

// Str formats as `0x008001: 'CD001'`.
func (m MagicBytes) Str() string {
	var sb strings.Builder
	for _, b := range m.Bytes {
		sb.WriteRune(rune(b))
	}

	return fmt.Sprintf("0x%06X: '%s'", m.Offset, sb.String())
}

// UnknownExtensionError is returned when an archive type cannot be guessed from a file name.
type UnknownExtensionError struct {
	Name string
}

func (e *UnknownExtensionError) Error() string {
	return "Unknown file extension: " + e.Name
}

// InvalidSourceError is returned when a backend cannot work with the given source.
type InvalidSourceError struct {
	Reason string
}

func (e *InvalidSourceError) Error() string {
	return "Invalid data source for the archive: " + e.Reason
}

// UnsupportedActionError is returned when an operation is not available for a container type, e.g. creating ISO
// images.
type UnsupportedActionError struct {
	Action string
	Type   Type
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("Action `%s` is unsupported for %s archives.", e.Action, e.Type)
}

// JSONError is returned when metadata cannot be encoded or decoded.
type JSONError struct {
	Err error
}

func (e *JSONError) Error() string {
	return fmt.Sprintf("JsonError: %v", e.Err)
}

func (e *JSONError) Unwrap() error {
	return e.Err
}

// EntryNotFoundError is returned by OpenEntry when the archive has no entry with the given path.
type EntryNotFoundError struct {
	Path string
}

func (e *EntryNotFoundError) Error() string {
	return "Entry not found: " + e.Path
}
