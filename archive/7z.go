package archive

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/event"
	"github.com/nguyengg/hezi/source"
)

func init() {
	register(SevenZ, newSevenZBackend, sevenZCreator{})
}

// sevenZCompression is the label of 7z entries; github.com/bodgit/sevenzip does not expose the coders of a folder so
// entries are labelled with the LZMA family that 7z archives almost always use.
const sevenZCompression = "lzma"

// sevenZBackend reads 7z archives with github.com/bodgit/sevenzip.
//
// Contents of solid archives are stored as one compressed stream per folder, so reading an entry decodes and discards
// every entry before it in the same folder. Open and Extract are therefore sequential per folder.
type sevenZBackend struct {
	src  *source.Source
	size int64
	// packSize is the total size of the packed streams, which precede the header.
	packSize uint64
}

func newSevenZBackend(src *source.Source, _ codec.Compression) (Backend, error) {
	size, err := src.Size()
	if err != nil {
		return nil, &IOError{Op: "stat", Path: src.String(), Err: err}
	}

	// the next header offset of the start header (bytes 12 to 20) is the total size of all packed streams.
	start := make([]byte, 8)
	if _, err = src.ReadAt(start, 12); err != nil {
		return nil, &FormatError{Type: SevenZ, Err: fmt.Errorf("read start header error: %w", err)}
	}

	return &sevenZBackend{src: src, size: size, packSize: binary.LittleEndian.Uint64(start)}, nil
}

func (s *sevenZBackend) List(ctx context.Context, opts ListOptions, sink event.Sink) ([]Entity, error) {
	return listEntries(ctx, s.walk, opts.Password, sink)
}

func (s *sevenZBackend) Metadata(ctx context.Context) (*Metadata, error) {
	entries, err := listEntries(ctx, s.walk, "", event.Discard)
	if err != nil {
		return nil, err
	}

	m := newMetadata(entries)
	m.CompressedSize = s.packSize
	return m, nil
}

func (s *sevenZBackend) Extract(ctx context.Context, opts ExtractOptions, sink event.Sink) error {
	return extractEntries(ctx, s.src.String(), s.walk, opts, sink)
}

func (s *sevenZBackend) Open(ctx context.Context, opts OpenOptions, dst io.Writer) error {
	return openEntry(ctx, s.walk, opts, dst)
}

func (s *sevenZBackend) walk(ctx context.Context, password string) iter.Seq2[*entry, error] {
	return func(yield func(*entry, error) bool) {
		zr, err := sevenzip.NewReaderWithPassword(s.src, s.size, password)
		if err != nil {
			yield(nil, sevenZError(err, password))
			return
		}

		packed := sevenZCompressedSizes(zr.File, s.packSize)
		for i, f := range zr.File {
			if ctx.Err() != nil {
				return
			}

			e, err := s.newEntry(f, packed[i], password)
			if !yield(e, err) {
				return
			}
		}
	}
}

// sevenZCompressedSizes estimates the packed size of each file.
//
// Files are grouped by the solid block holding their data (File.Stream) and each file gets its share of its block's
// packed size. The packed size of a single block is not exposed by the reader, so every block is given a share of
// packSize in proportion to its unpacked size, which amounts to the ratio of the whole archive.
func sevenZCompressedSizes(files []*sevenzip.File, packSize uint64) []uint64 {
	blocks := make(map[int]uint64)
	var total uint64
	for _, f := range files {
		blocks[f.Stream] += f.UncompressedSize
		total += f.UncompressedSize
	}

	sizes := make([]uint64, len(files))
	if total == 0 {
		return sizes
	}

	for i, f := range files {
		unpacked := blocks[f.Stream]
		if unpacked == 0 {
			continue
		}

		blockPacked := float64(packSize) * float64(unpacked) / float64(total)
		sizes[i] = uint64(blockPacked * float64(f.UncompressedSize) / float64(unpacked))
	}

	return sizes
}

func (s *sevenZBackend) newEntry(f *sevenzip.File, compressedSize uint64, password string) (*entry, error) {
	e := &entry{
		Entity: Entity{
			Name:        strings.ReplaceAll(f.Name, "\\", "/"),
			Compression: sevenZCompression,
		},
		mode:   f.Mode().Perm(),
		hidden: f.Attributes&0x02 != 0,
	}

	if !f.Modified.IsZero() {
		e.LastModified = ptr(f.Modified.UTC())
	}

	switch mode := f.Mode(); {
	case mode.IsDir():
		e.Kind = Directory
	case mode&fs.ModeSymlink != 0:
		e.Kind = SymbolicLink
	case mode.IsRegular():
		e.Kind = File
	default:
		e.Kind = Unknown
	}

	e.Size, e.CompressedSize = fileSizes(e.Kind, f.UncompressedSize, compressedSize)

	open := func() (io.ReadCloser, error) {
		rc, err := f.Open()
		if err != nil {
			return nil, sevenZError(err, password)
		}
		return &sevenZReadCloser{ReadCloser: rc, password: password}, nil
	}

	switch e.Kind {
	case File:
		e.open = open
	case SymbolicLink:
		rc, err := open()
		if err != nil {
			return e, err
		}
		defer rc.Close()

		var sb strings.Builder
		if _, err = io.Copy(&sb, io.LimitReader(rc, maxLinkLen)); err != nil {
			return e, err
		}
		e.linkname = sb.String()
	}

	return e, nil
}

// sevenZReadCloser classifies errors detected while decoding.
type sevenZReadCloser struct {
	io.ReadCloser
	password string
}

func (r *sevenZReadCloser) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = sevenZError(err, r.password)
	}

	return n, err
}

func sevenZError(err error, password string) error {
	var rerr *sevenzip.ReadError
	switch {
	case errors.As(err, &rerr) && rerr.Encrypted:
		if password == "" {
			return &PasswordError{Err: fmt.Errorf("archive is encrypted but no password was given: %w", err)}
		}
		return &PasswordError{Err: err}
	default:
		return &FormatError{Type: SevenZ, Err: err}
	}
}
