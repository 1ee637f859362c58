package archive

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/event"
	"github.com/nguyengg/hezi/internal/sevenzip"
	"github.com/nguyengg/hezi/util"
)

type sevenZCreator struct{}

func (sevenZCreator) Create(ctx context.Context, dst *os.File, opts CreateOptions, inputs []CreateInput, sink event.Sink) error {
	if opts.Password != "" {
		return &UnsupportedActionError{Action: "encrypt", Type: SevenZ}
	}

	var method sevenzip.Method
	switch opts.Compression {
	case codec.Lzma:
		method = sevenzip.LZMA2
	case codec.None:
		method = sevenzip.Copy
	default:
		return &codec.UnsupportedCompressionError{Compression: opts.Compression}
	}

	w, err := sevenzip.NewWriter(dst, func(o *sevenzip.Options) {
		o.Method = method
		if opts.Level != nil {
			o.Level = *opts.Level
		}
	})
	if err != nil {
		return &FormatError{Type: SevenZ, Err: err}
	}

	buf := make([]byte, util.DefaultBufferSize)
	for _, in := range inputs {
		if err = ctx.Err(); err != nil {
			return err
		}

		if err = add7z(ctx, w, in, buf); err != nil {
			return err
		}

		created(sink, in)
	}

	if err = w.Close(); err != nil {
		return &FormatError{Type: SevenZ, Err: err}
	}

	return nil
}

func add7z(ctx context.Context, w *sevenzip.Writer, in CreateInput, buf []byte) error {
	fw, err := w.Create(sevenzip.FileHeader{
		Name:     strings.TrimSuffix(in.Name, "/"),
		Modified: in.Info.ModTime(),
		Mode:     in.Info.Mode(),
	})
	if err != nil {
		return &FormatError{Type: SevenZ, Err: err}
	}

	switch in.Kind {
	case SymbolicLink:
		if _, err = io.WriteString(fw, in.Linkname); err != nil {
			return &FormatError{Type: SevenZ, Err: err}
		}
	case File:
		f, err := os.Open(in.Path)
		if err != nil {
			return &IOError{Op: "open", Path: in.Path, Err: err}
		}
		defer f.Close()

		if _, err = util.CopyBufferWithContext(ctx, fw, f, buf); err != nil {
			return &IOError{Op: "add", Path: in.Path, Err: err}
		}
	}

	return nil
}
