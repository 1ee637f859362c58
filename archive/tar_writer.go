package archive

import (
	"archive/tar"
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/event"
	"github.com/nguyengg/hezi/util"
)

type tarCreator struct{}

func (tarCreator) Create(ctx context.Context, dst *os.File, opts CreateOptions, inputs []CreateInput, sink event.Sink) error {
	if opts.Password != "" {
		return &UnsupportedActionError{Action: "encrypt", Type: Tar}
	}

	bw := bufio.NewWriterSize(dst, util.DefaultBufferSize)

	enc, err := codec.NewEncoder(bw, opts.Compression, opts.encoderOptions()...)
	if err != nil {
		return err
	}

	w := tar.NewWriter(enc)
	buf := make([]byte, util.DefaultBufferSize)

	for _, in := range inputs {
		if err = ctx.Err(); err != nil {
			return err
		}

		if err = addTar(ctx, w, in, buf); err != nil {
			return err
		}

		created(sink, in)
	}

	// the tar writer must be closed before the encoder is finished, which must be done before flushing.
	return util.ChainCloser(
		func() error {
			if err := w.Close(); err != nil {
				return &FormatError{Type: Tar, Err: err}
			}
			return nil
		},
		enc.Finish,
		func() error {
			if err := bw.Flush(); err != nil {
				return &IOError{Op: "write", Path: dst.Name(), Err: err}
			}
			return nil
		})()
}

func addTar(ctx context.Context, w *tar.Writer, in CreateInput, buf []byte) error {
	hdr, err := tar.FileInfoHeader(in.Info, in.Linkname)
	if err != nil {
		return &FormatError{Type: Tar, Err: fmt.Errorf(`create header for "%s" error: %w`, in.Path, err)}
	}

	hdr.Name = in.Name
	if in.Kind == Directory {
		hdr.Name = dirName(in.Name)
	}

	if err = w.WriteHeader(hdr); err != nil {
		return &FormatError{Type: Tar, Err: fmt.Errorf(`write header for "%s" error: %w`, in.Path, err)}
	}

	if in.Kind != File {
		return nil
	}

	f, err := os.Open(in.Path)
	if err != nil {
		return &IOError{Op: "open", Path: in.Path, Err: err}
	}
	defer f.Close()

	written, err := util.CopyBufferWithContext(ctx, w, io.LimitReader(f, hdr.Size), buf)
	if err != nil {
		return &IOError{Op: "add", Path: in.Path, Err: err}
	}
	if written != hdr.Size {
		return &IOError{Op: "add", Path: in.Path, Err: fmt.Errorf("file shrank from %d to %d bytes while being added", hdr.Size, written)}
	}

	return nil
}
