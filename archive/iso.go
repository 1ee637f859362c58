package archive

import (
	"context"
	"io"
	"io/fs"
	"iter"

	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/event"
	"github.com/nguyengg/hezi/internal/iso9660"
	"github.com/nguyengg/hezi/source"
)

func init() {
	// ISO images are read-only.
	register(Iso, newIsoBackend, nil)
}

// isoBackend reads ISO9660 images with internal/iso9660.
//
// Contents are stored uncompressed so the compressed size of every entity is its size. Passwords are ignored.
type isoBackend struct {
	src *source.Source
	img *iso9660.Image
}

func newIsoBackend(src *source.Source, _ codec.Compression) (Backend, error) {
	img, err := iso9660.Open(src)
	if err != nil {
		return nil, &FormatError{Type: Iso, Err: err}
	}

	return &isoBackend{src: src, img: img}, nil
}

func (b *isoBackend) List(ctx context.Context, _ ListOptions, sink event.Sink) ([]Entity, error) {
	return listEntries(ctx, b.walk, "", sink)
}

func (b *isoBackend) Metadata(ctx context.Context) (*Metadata, error) {
	entries, err := listEntries(ctx, b.walk, "", event.Discard)
	if err != nil {
		return nil, err
	}

	m := newMetadata(entries)
	m.CompressedSize = m.TotalSize

	pvd := b.img.Primary
	m.Additional = map[string]any{
		"is_rock_ridge":                 b.img.RockRidge,
		"is_joliet":                     b.img.Joliet != nil,
		"block_size":                    b.img.BlockSize(),
		"volume_set_identifier":         pvd.VolumeSetIdentifier,
		"volume_identifier":             pvd.VolumeIdentifier,
		"system_identifier":             pvd.SystemIdentifier,
		"publisher_identifier":          pvd.PublisherIdentifier,
		"data_preparer_identifier":      pvd.DataPreparerIdentifier,
		"application_identifier":        pvd.ApplicationIdentifier,
		"copyright_file_identifier":     pvd.CopyrightFileIdentifier,
		"abstract_file_identifier":      pvd.AbstractFileIdentifier,
		"bibliographic_file_identifier": pvd.BibliographicFileIdentifier,
	}

	return m, nil
}

func (b *isoBackend) Extract(ctx context.Context, opts ExtractOptions, sink event.Sink) error {
	opts.Password = ""
	return extractEntries(ctx, b.src.String(), b.walk, opts, sink)
}

func (b *isoBackend) Open(ctx context.Context, opts OpenOptions, dst io.Writer) error {
	opts.Password = ""
	return openEntry(ctx, b.walk, opts, dst)
}

func (b *isoBackend) walk(ctx context.Context, _ string) iter.Seq2[*entry, error] {
	return func(yield func(*entry, error) bool) {
		for f, err := range b.img.Files() {
			if ctx.Err() != nil {
				return
			}

			if f == nil {
				yield(nil, &FormatError{Type: Iso, Err: err})
				return
			}

			e := newIsoEntry(f)
			if err != nil {
				if !yield(e, &FormatError{Type: Iso, Err: err}) {
					return
				}
				continue
			}

			if !yield(e, nil) {
				return
			}
		}
	}
}

func newIsoEntry(f *iso9660.File) *entry {
	e := &entry{
		Entity:     Entity{Name: f.Name},
		mode:       f.Mode.Perm(),
		linkname:   f.Linkname,
		rootedLink: true,
		hidden:     f.Hidden,
	}

	if !f.Modified.IsZero() {
		e.LastModified = ptr(f.Modified.UTC())
	}

	switch mode := f.Mode; {
	case mode.IsDir():
		e.Kind = Directory
	case mode&fs.ModeSymlink != 0:
		e.Kind = SymbolicLink
	case mode.IsRegular():
		e.Kind = File
		e.open = func() (io.ReadCloser, error) {
			return io.NopCloser(f.Open()), nil
		}
	default:
		e.Kind = Unknown
	}

	e.Size, e.CompressedSize = fileSizes(e.Kind, uint64(f.Size), uint64(f.Size))
	return e
}
