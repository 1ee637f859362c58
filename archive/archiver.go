// Package archive lists, extracts, creates, and reads single entries of zip, tar, 7z, and ISO9660 archives.
//
// Use Open to detect the format of a source.Source and get an Archive, or Create to write a new archive from files on
// disk. Every operation reports progress and per-entry failures through an explicit event.Sink; a failure to read a
// single entry is reported as event.FailedToReadEntry and does not abort the whole operation.
package archive

import (
	"context"
	"io"
	"os"

	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/event"
	"github.com/nguyengg/hezi/source"
)

// Backend implements the read operations for one container format.
//
// Backends are created by the Factory registered for their Type and are not safe for concurrent use.
type Backend interface {
	// List returns the entries of the archive in their native order.
	List(ctx context.Context, opts ListOptions, sink event.Sink) ([]Entity, error)
	// Metadata returns the entries of the archive as well as format-specific information.
	Metadata(ctx context.Context) (*Metadata, error)
	// Extract unpacks the archive to ExtractOptions.Destination.
	Extract(ctx context.Context, opts ExtractOptions, sink event.Sink) error
	// Open writes the decoded contents of the entry named by OpenOptions.Path to dst.
	//
	// If there is no such entry, an *EntryNotFoundError is returned and nothing is written to dst.
	Open(ctx context.Context, opts OpenOptions, dst io.Writer) error
}

// Creator writes new archives of one container format.
type Creator interface {
	// Create writes the given inputs as a new archive to dst.
	//
	// The options have been normalised by the package-level Create: the type and compression are always set, and
	// hidden inputs that should be skipped have already been removed from inputs.
	Create(ctx context.Context, dst *os.File, opts CreateOptions, inputs []CreateInput, sink event.Sink) error
}

// Factory creates the Backend to read an archive from src whose compression was determined by Detect.
type Factory func(src *source.Source, c codec.Compression) (Backend, error)

type format struct {
	open    Factory
	creator Creator
}

var formats = map[Type]format{}

// register makes a container format available to Open and Create.
//
// creator may be nil for read-only formats.
func register(t Type, open Factory, creator Creator) {
	if _, ok := formats[t]; ok {
		panic("archive: format " + t.String() + " registered twice")
	}

	formats[t] = format{open: open, creator: creator}
}

// Archive is an opened archive whose format has been detected.
type Archive struct {
	// Type is the detected container type.
	Type Type
	// Compression is the detected compression of the whole archive, which is codec.None unless Type is Tar.
	Compression codec.Compression

	src     *source.Source
	backend Backend
	owned   bool
}

// Open detects the format of the archive in src and returns the Archive to read it with.
//
// The caller still owns src and must close it after it is done with the returned Archive.
func Open(src *source.Source) (*Archive, error) {
	t, c, err := Detect(src)
	if err != nil {
		return nil, err
	}

	f, ok := formats[t]
	if !ok {
		return nil, &UnsupportedActionError{Action: "open", Type: t}
	}

	b, err := f.open(src, c)
	if err != nil {
		return nil, err
	}

	return &Archive{Type: t, Compression: c, src: src, backend: b}, nil
}

// OpenFile is a convenient wrapper around source.OpenFile and Open.
//
// The Archive owns the file and must be closed with Archive.Close.
func OpenFile(name string) (*Archive, error) {
	src, err := source.OpenFile(name)
	if err != nil {
		return nil, &IOError{Op: "open", Path: name, Err: err}
	}

	a, err := Open(src)
	if err != nil {
		_ = src.Close()
		return nil, err
	}

	a.owned = true
	return a, nil
}

// Name returns the name of the underlying source.
func (a *Archive) Name() string {
	return a.src.String()
}

// List returns the entries of the archive.
func (a *Archive) List(ctx context.Context, opts ListOptions, sink event.Sink) ([]Entity, error) {
	return a.backend.List(ctx, opts, sinkOrDiscard(sink))
}

// Metadata returns the entries of the archive and aggregated information about them.
func (a *Archive) Metadata(ctx context.Context) (*Metadata, error) {
	return a.backend.Metadata(ctx)
}

// Extract unpacks the archive.
func (a *Archive) Extract(ctx context.Context, opts ExtractOptions, sink event.Sink) error {
	if opts.Destination == "" {
		opts.Destination = "."
	}

	return a.backend.Extract(ctx, opts, sinkOrDiscard(sink))
}

// OpenEntry writes the decoded contents of a single entry to dst.
func (a *Archive) OpenEntry(ctx context.Context, opts OpenOptions, dst io.Writer) error {
	return a.backend.Open(ctx, opts, dst)
}

// Close closes the underlying source only if the Archive was created with OpenFile.
func (a *Archive) Close() error {
	if a.owned {
		return a.src.Close()
	}

	return nil
}

func sinkOrDiscard(sink event.Sink) event.Sink {
	if sink == nil {
		return event.Discard
	}

	return sink
}
