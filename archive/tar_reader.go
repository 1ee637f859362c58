package archive

import (
	"archive/tar"
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"iter"
	"strings"

	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/util"
)

// walk decodes a fresh copy of the source and visits its entries in stream order.
//
// The contents of an entry can only be read while it is being visited.
func (t *tarBackend) walk(ctx context.Context, _ string) iter.Seq2[*entry, error] {
	return func(yield func(*entry, error) bool) {
		src, err := t.src.Reopen()
		if err != nil {
			yield(nil, &IOError{Op: "reopen", Path: t.src.String(), Err: err})
			return
		}
		defer src.Close()

		dec, err := codec.NewDecoder(bufio.NewReaderSize(src, util.DefaultBufferSize), t.compression)
		if err != nil {
			yield(nil, &FormatError{Type: Tar, Err: err})
			return
		}
		defer dec.Close()

		tr := tar.NewReader(dec)
		for {
			hdr, err := tr.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, &FormatError{Type: Tar, Err: err})
				return
			}

			if !yield(t.newEntry(ctx, hdr, tr), nil) {
				return
			}

			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (t *tarBackend) newEntry(ctx context.Context, hdr *tar.Header, tr *tar.Reader) *entry {
	e := &entry{
		Entity: Entity{
			Name:         strings.ReplaceAll(hdr.Name, "\\", "/"),
			LastModified: ptr(hdr.ModTime.UTC()),
			Compression:  t.compression.String(),
		},
		mode:     fs.FileMode(hdr.Mode).Perm(),
		linkname: hdr.Linkname,
	}

	switch hdr.Typeflag {
	case tar.TypeReg:
		e.Kind = File
		e.open = func() (io.ReadCloser, error) {
			return io.NopCloser(tr), nil
		}
	case tar.TypeLink:
		// hard links have no contents of their own; their target always appears earlier in the stream.
		e.Kind = File
		target := hdr.Linkname
		e.open = func() (io.ReadCloser, error) {
			return t.openLinked(ctx, target)
		}
	case tar.TypeDir:
		e.Kind = Directory
	case tar.TypeSymlink:
		e.Kind = SymbolicLink
	default:
		e.Kind = Unknown
	}

	e.Size, e.CompressedSize = fileSizes(e.Kind, uint64(hdr.Size), uint64(hdr.Size))
	return e
}

// openLinked reads the contents of the named entry with an independent walk over the source.
func (t *tarBackend) openLinked(ctx context.Context, name string) (io.ReadCloser, error) {
	next, stop := iter.Pull2(t.walk(ctx, ""))

	want := entryName(name)
	for {
		e, err, ok := next()
		switch {
		case !ok:
			stop()
			return nil, &EntryNotFoundError{Path: name}
		case err != nil:
			stop()
			return nil, err
		case e.open == nil || entryName(e.Name) != want:
			continue
		}

		rc, err := e.open()
		if err != nil {
			stop()
			return nil, err
		}

		return &pulledReadCloser{ReadCloser: rc, stop: stop}, nil
	}
}

// pulledReadCloser stops the pulled iterator that produced the reader upon closing.
type pulledReadCloser struct {
	io.ReadCloser
	stop func()
}

func (r *pulledReadCloser) Close() error {
	err := r.ReadCloser.Close()
	r.stop()
	return err
}
