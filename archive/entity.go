package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/nguyengg/hezi/codec"
)

// Type is the container format of an archive.
type Type string

const (
	Zip    Type = "zip"
	Tar    Type = "tar"
	SevenZ Type = "7z"
	Iso    Type = "iso"
)

func (t Type) String() string {
	return string(t)
}

// ParseType parses the name of a container format.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "zip":
		return Zip, nil
	case "tar":
		return Tar, nil
	case "7z", "7zip", "sevenz":
		return SevenZ, nil
	case "iso":
		return Iso, nil
	default:
		return "", fmt.Errorf("unknown archive type %q", name)
	}
}

// UnmarshalFlag implements go-flags' Unmarshaler.
func (t *Type) UnmarshalFlag(value string) (err error) {
	*t, err = ParseType(value)
	return
}

// Kind is the kind of an archive entry.
type Kind string

const (
	File         Kind = "file"
	Directory    Kind = "dir"
	SymbolicLink Kind = "symlink"
	Unknown      Kind = "unknown"
)

func (k Kind) String() string {
	return string(k)
}

// ParseKind parses the name of an entry kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "file":
		return File, nil
	case "dir", "directory":
		return Directory, nil
	case "symlink", "link":
		return SymbolicLink, nil
	case "unknown":
		return Unknown, nil
	default:
		return "", fmt.Errorf("unknown entry kind %q", name)
	}
}

// Entity describes one entry of an archive.
//
// Size and CompressedSize are only set for File entities. Entities are plain values; they do not keep the archive
// open.
type Entity struct {
	// Name is the slash-separated path of the entry relative to the archive root.
	Name           string     `json:"name"`
	Size           *uint64    `json:"size,omitempty"`
	CompressedSize *uint64    `json:"compressed_size,omitempty"`
	LastModified   *time.Time `json:"last_modified,omitempty"`
	// Compression is a format-specific label of the compression method, e.g. "Deflated" for zip entries.
	Compression string `json:"compression,omitempty"`
	Kind        Kind   `json:"type"`
}

// Metadata aggregates the entities of an archive.
type Metadata struct {
	// TotalSize is the sum of the sizes of File entities.
	TotalSize uint64 `json:"total_size"`
	// CompressedSize is the size of the compressed payload, which is often the size of the whole archive.
	CompressedSize uint64 `json:"compressed_size"`
	// Compression is the compression applied to the whole archive, or empty if compression is per entry.
	Compression codec.Compression `json:"compression,omitempty"`
	Entries     []Entity          `json:"entries"`
	// Additional contains format-specific values such as the zip comment or ISO volume identifiers.
	Additional map[string]any `json:"additional,omitempty"`
}

// CreateResult is the result of a successful Create.
type CreateResult struct {
	Path string `json:"path"`
	// TotalSize is the sum of the sizes of the files added to the archive.
	TotalSize uint64 `json:"total_size"`
	// CompressedSize is the size of the archive on disk.
	CompressedSize uint64 `json:"compressed_size"`
}

// newMetadata computes Metadata.TotalSize from the given entities.
func newMetadata(entries []Entity) *Metadata {
	m := &Metadata{Entries: entries}
	for _, e := range entries {
		if e.Kind == File && e.Size != nil {
			m.TotalSize += *e.Size
		}
	}

	return m
}

func ptr[T any](v T) *T {
	return &v
}

// fileSizes returns the Size and CompressedSize for an entity of the given kind, which are nil unless kind is File.
func fileSizes(kind Kind, size, compressedSize uint64) (*uint64, *uint64) {
	if kind != File {
		return nil, nil
	}

	return ptr(size), ptr(compressedSize)
}
