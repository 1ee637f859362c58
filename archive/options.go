package archive

import (
	"io/fs"

	"github.com/nguyengg/hezi/codec"
)

// ListOptions customises Archive.List.
type ListOptions struct {
	// Password decrypts archives whose headers are encrypted.
	Password string
}

// ExtractOptions customises Archive.Extract.
type ExtractOptions struct {
	// Destination is the directory to extract to, created if it does not exist.
	//
	// Defaults to the current directory.
	Destination string
	Password    string
	// Files if non-empty limits extraction to the entries whose names match exactly.
	Files []string
	// Overwrite replaces existing files at the destination instead of skipping them.
	Overwrite bool
	// ShowHidden extracts hidden entries instead of skipping them.
	ShowHidden bool
}

// OpenOptions customises Archive.OpenEntry.
type OpenOptions struct {
	// Path is the name of the entry to open.
	Path     string
	Password string
}

// CreateOptions customises Create.
type CreateOptions struct {
	// Destination is the path of the archive to create.
	Destination string
	// Source is the root directory whose prefix is stripped from the names of Files.
	Source string
	// Files are the paths to add to the archive.
	//
	// If empty, every file and directory under Source is added.
	Files []string
	// Password encrypts the entries of zip archives.
	Password string
	// Type is the container type; if empty, it is guessed from the name of Destination.
	Type Type
	// Compression is the compression to use; if empty, the format's default is used if it has one.
	Compression codec.Compression
	// Level is the compression level which must be within codec.Compression.LevelRange.
	Level *int
	// Overwrite replaces an existing archive at Destination instead of failing.
	Overwrite bool
	// IncludeHidden adds hidden files instead of skipping them.
	IncludeHidden bool
}

// CreateInput is a file on disk to be added to a new archive.
type CreateInput struct {
	// Path is the path of the file on disk.
	Path string
	// Name is the slash-separated name of the entry in the archive.
	Name string
	Info fs.FileInfo
	Kind Kind
	// Linkname is the target of a symbolic link.
	Linkname string
	Hidden   bool
}

func (c CreateOptions) encoderOptions() []func(*codec.EncoderOptions) {
	if c.Level == nil {
		return nil
	}

	return []func(*codec.EncoderOptions){codec.WithLevel(*c.Level)}
}
