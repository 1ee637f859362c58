package archive

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"sync"

	azip "github.com/alexmullins/zip"
	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/event"
	"github.com/nguyengg/hezi/source"
)

func init() {
	register(Zip, newZipBackend, zipCreator{})
}

// zipBackend reads zip archives from the central directory.
//
// Entries are decoded with archive/zip except for encrypted entries which are decoded with github.com/alexmullins/zip
// since the standard library does not support WinZip AES.
type zipBackend struct {
	src  *source.Source
	size int64
	zr   *zip.Reader

	aesOnce sync.Once
	aes     *azip.Reader
	aesErr  error
}

func newZipBackend(src *source.Source, _ codec.Compression) (Backend, error) {
	size, err := src.Size()
	if err != nil {
		return nil, &IOError{Op: "stat", Path: src.String(), Err: err}
	}

	zr, err := zip.NewReader(src, size)
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return nil, &FormatError{Type: Zip, Err: err}
	}

	registerZipDecompressors(zr)

	return &zipBackend{src: src, size: size, zr: zr}, nil
}

func (z *zipBackend) List(ctx context.Context, opts ListOptions, sink event.Sink) ([]Entity, error) {
	return listEntries(ctx, z.walk, opts.Password, sink)
}

func (z *zipBackend) Metadata(ctx context.Context) (*Metadata, error) {
	entries, err := listEntries(ctx, z.walk, "", event.Discard)
	if err != nil {
		return nil, err
	}

	m := newMetadata(entries)
	m.CompressedSize = uint64(z.size)
	m.Additional = map[string]any{"comment": z.zr.Comment}
	return m, nil
}

func (z *zipBackend) Extract(ctx context.Context, opts ExtractOptions, sink event.Sink) error {
	return extractEntries(ctx, z.src.String(), z.walk, opts, sink)
}

func (z *zipBackend) Open(ctx context.Context, opts OpenOptions, dst io.Writer) error {
	return openEntry(ctx, z.walk, opts, dst)
}

// aesReader lazily parses the central directory again with the AES-capable reader.
func (z *zipBackend) aesReader() (*azip.Reader, error) {
	z.aesOnce.Do(func() {
		if z.aes, z.aesErr = azip.NewReader(z.src, z.size); z.aesErr != nil {
			z.aesErr = &FormatError{Type: Zip, Err: z.aesErr}
		}
	})

	return z.aes, z.aesErr
}
