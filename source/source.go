// Package source provides the byte sources that archives are read from.
//
// A Source is either backed by a file on disk or by an in-memory buffer. Both are readable, seekable, and support
// random access via io.ReaderAt. Operations that need two independent passes over the same bytes must call
// Source.Reopen instead of rewinding a Source that somebody else is reading from.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrClosed is returned when reading from a closed Source.
var ErrClosed = errors.New("source: already closed")

// Source is a readable, seekable handle over either a file or an in-memory buffer.
//
// Source is not safe for concurrent use, but distinct Source values returned by Reopen are independent of each other.
type Source struct {
	name string

	// exactly one of f and r is non-nil while the source is open.
	f    *os.File
	data []byte
	r    *bytes.Reader
}

var _ interface {
	io.ReadSeekCloser
	io.ReaderAt
} = &Source{}

// OpenFile opens the named file as a Source.
func OpenFile(name string) (*Source, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf(`open file "%s" error: %w`, name, err)
	}

	return &Source{name: name, f: f}, nil
}

// FromFile wraps an already opened file.
//
// The Source takes ownership of the file; closing the Source closes the file.
func FromFile(f *os.File) *Source {
	return &Source{name: f.Name(), f: f}
}

// FromBytes creates an in-memory Source over data.
//
// The data must not be modified while the Source or any of its reopened copies are in use.
func FromBytes(data []byte) *Source {
	return &Source{data: data, r: bytes.NewReader(data)}
}

// FromReader reads src to completion into an in-memory Source.
func FromReader(src io.Reader) (*Source, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read stream error: %w", err)
	}

	return FromBytes(data), nil
}

// Name returns the path of a file Source, or empty string for in-memory sources.
func (s *Source) Name() string {
	return s.name
}

// IsFile returns true if the Source is backed by a file.
func (s *Source) IsFile() bool {
	return s.name != ""
}

// Size returns the total number of bytes of the source.
func (s *Source) Size() (int64, error) {
	switch {
	case s.f != nil:
		fi, err := s.f.Stat()
		if err != nil {
			return 0, fmt.Errorf(`stat file "%s" error: %w`, s.name, err)
		}

		return fi.Size(), nil
	case s.r != nil:
		return s.r.Size(), nil
	default:
		return 0, ErrClosed
	}
}

func (s *Source) Read(p []byte) (int, error) {
	switch {
	case s.f != nil:
		return s.f.Read(p)
	case s.r != nil:
		return s.r.Read(p)
	default:
		return 0, ErrClosed
	}
}

func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	switch {
	case s.f != nil:
		return s.f.ReadAt(p, off)
	case s.r != nil:
		return s.r.ReadAt(p, off)
	default:
		return 0, ErrClosed
	}
}

func (s *Source) Seek(offset int64, whence int) (int64, error) {
	switch {
	case s.f != nil:
		return s.f.Seek(offset, whence)
	case s.r != nil:
		return s.r.Seek(offset, whence)
	default:
		return 0, ErrClosed
	}
}

// Reopen returns a new Source over the same bytes with its own read offset starting at 0.
//
// File sources are reopened by name which may fail, e.g. if the file has since been removed. The caller must close
// the returned Source independently of s.
func (s *Source) Reopen() (*Source, error) {
	switch {
	case s.f != nil:
		return OpenFile(s.name)
	case s.r != nil:
		return FromBytes(s.data), nil
	default:
		return nil, ErrClosed
	}
}

// Close releases the underlying file if there is one.
//
// Calling Close more than once is a no-op.
func (s *Source) Close() (err error) {
	if s.f != nil {
		err = s.f.Close()
		s.f = nil
	}

	s.r = nil
	return
}

func (s *Source) String() string {
	if s.name != "" {
		return s.name
	}

	return fmt.Sprintf("<%d bytes in memory>", len(s.data))
}
