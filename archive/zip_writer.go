package archive

import (
	"archive/zip"
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	azip "github.com/alexmullins/zip"
	"github.com/klauspost/compress/flate"
	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/event"
	"github.com/nguyengg/hezi/util"
)

type zipCreator struct{}

// zipEntryWriter is the part of archive/zip.Writer and github.com/alexmullins/zip.Writer used to add entries.
type zipEntryWriter interface {
	create(in CreateInput) (io.Writer, error)
	close() error
}

func (zipCreator) Create(ctx context.Context, dst *os.File, opts CreateOptions, inputs []CreateInput, sink event.Sink) error {
	method, err := zipMethod(opts.Compression)
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(dst, util.DefaultBufferSize)

	var w zipEntryWriter
	if opts.Password != "" {
		if method != zip.Store && method != zip.Deflate {
			return &codec.UnsupportedCompressionError{Compression: opts.Compression}
		}

		w = &aesZipWriter{Writer: azip.NewWriter(bw), method: method, password: opts.Password}
	} else {
		w = newStdZipWriter(bw, method, opts)
	}

	buf := make([]byte, util.DefaultBufferSize)
	for _, in := range inputs {
		if err = ctx.Err(); err != nil {
			return err
		}

		if err = addZip(ctx, w, in, buf); err != nil {
			return err
		}

		created(sink, in)
	}

	if err = w.close(); err != nil {
		return &FormatError{Type: Zip, Err: err}
	}

	if err = bw.Flush(); err != nil {
		return &IOError{Op: "write", Path: dst.Name(), Err: err}
	}

	return nil
}

// zipMethod maps a compression to the zip method that writes it.
func zipMethod(c codec.Compression) (uint16, error) {
	switch c {
	case codec.None:
		return zip.Store, nil
	case codec.Deflate:
		return zip.Deflate, nil
	case codec.Bzip2:
		return zipBzip2, nil
	case codec.Zstd:
		return zipZstd, nil
	default:
		return 0, &codec.UnsupportedCompressionError{Compression: c}
	}
}

func addZip(ctx context.Context, w zipEntryWriter, in CreateInput, buf []byte) error {
	fw, err := w.create(in)
	if err != nil {
		return &FormatError{Type: Zip, Err: fmt.Errorf(`create entry for "%s" error: %w`, in.Path, err)}
	}

	switch in.Kind {
	case SymbolicLink:
		if _, err = io.Copy(fw, strings.NewReader(in.Linkname)); err != nil {
			return &FormatError{Type: Zip, Err: err}
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

type stdZipWriter struct {
	*zip.Writer
	method uint16
}

func newStdZipWriter(dst io.Writer, method uint16, opts CreateOptions) *stdZipWriter {
	w := &stdZipWriter{Writer: zip.NewWriter(dst), method: method}

	level := flate.DefaultCompression
	if opts.Level != nil && opts.Compression == codec.Deflate {
		level = *opts.Level
	}
	w.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	for m, c := range map[uint16]codec.Compression{zipBzip2: codec.Bzip2, zipZstd: codec.Zstd} {
		w.RegisterCompressor(m, func(w io.Writer) (io.WriteCloser, error) {
			enc, err := codec.NewEncoder(w, c, opts.encoderOptions()...)
			if err != nil {
				return nil, err
			}
			return &encoderCloser{enc}, nil
		})
	}

	return w
}

func (w *stdZipWriter) create(in CreateInput) (io.Writer, error) {
	fh := &zip.FileHeader{
		Name:     in.Name,
		Method:   w.method,
		Modified: in.Info.ModTime(),
	}
	fh.SetMode(in.Info.Mode())

	switch in.Kind {
	case Directory:
		fh.Name = dirName(in.Name)
		fh.Method = zip.Store
	case File:
		// entries of 4 GiB or more need zip64 headers which are only written if the size is known upfront.
		fh.UncompressedSize64 = uint64(in.Info.Size())
	}

	return w.CreateHeader(fh)
}

func (w *stdZipWriter) close() error {
	return w.Close()
}

// aesZipWriter encrypts every file entry with WinZip AES-256.
type aesZipWriter struct {
	*azip.Writer
	method   uint16
	password string
}

func (w *aesZipWriter) create(in CreateInput) (io.Writer, error) {
	fh := &azip.FileHeader{
		Name:   in.Name,
		Method: w.method,
	}
	fh.SetModTime(in.Info.ModTime())
	fh.SetMode(in.Info.Mode())

	if in.Kind == Directory {
		fh.Name = dirName(in.Name)
		fh.Method = azip.Store
	} else {
		fh.UncompressedSize64 = uint64(in.Info.Size())
		fh.SetPassword(w.password)
	}

	return w.CreateHeader(fh)
}

func (w *aesZipWriter) close() error {
	return w.Close()
}

// encoderCloser adapts a codec.Encoder into the io.WriteCloser expected of zip compressors.
type encoderCloser struct {
	codec.Encoder
}

func (e *encoderCloser) Close() error {
	return e.Finish()
}
