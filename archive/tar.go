package archive

import (
	"context"
	"io"

	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/event"
	"github.com/nguyengg/hezi/source"
)

func init() {
	register(Tar, newTarBackend, tarCreator{})
}

// tarBackend reads tar archives whose compression was determined by detection.
//
// Tar archives can only be read sequentially so every operation decodes the source again from the start via
// source.Source.Reopen.
type tarBackend struct {
	src         *source.Source
	compression codec.Compression
}

func newTarBackend(src *source.Source, c codec.Compression) (Backend, error) {
	if _, err := codec.For(c); err != nil {
		return nil, err
	}

	return &tarBackend{src: src, compression: c}, nil
}

func (t *tarBackend) List(ctx context.Context, opts ListOptions, sink event.Sink) ([]Entity, error) {
	return listEntries(ctx, t.walk, opts.Password, sink)
}

func (t *tarBackend) Metadata(ctx context.Context) (*Metadata, error) {
	entries, err := listEntries(ctx, t.walk, "", event.Discard)
	if err != nil {
		return nil, err
	}

	size, err := t.src.Size()
	if err != nil {
		return nil, &IOError{Op: "stat", Path: t.src.String(), Err: err}
	}

	m := newMetadata(entries)
	m.CompressedSize = uint64(size)
	m.Compression = t.compression
	return m, nil
}

func (t *tarBackend) Extract(ctx context.Context, opts ExtractOptions, sink event.Sink) error {
	return extractEntries(ctx, t.src.String(), t.walk, opts, sink)
}

func (t *tarBackend) Open(ctx context.Context, opts OpenOptions, dst io.Writer) error {
	return openEntry(ctx, t.walk, opts, dst)
}
