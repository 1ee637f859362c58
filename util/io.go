package util

import (
	"context"
	"fmt"
	"io"
)

// DefaultBufferSize is the size of the buffer used by CopyBufferWithContext when none is given.
const DefaultBufferSize = 32 * 1024

type restoreOnCloseReadSeeker struct {
	src    io.ReadSeeker
	offset int64
	err    error
}

// RestoreOnCloseReadSeeker remembers the current read offset of src and seeks back to it upon closing.
//
// Failing to capture the original offset is sticky: Read, Seek, and Close all return that error so that src is never
// consumed from an unknown position. Failing to restore the offset is only reported by Close.
func RestoreOnCloseReadSeeker(src io.ReadSeeker) io.ReadSeekCloser {
	r := &restoreOnCloseReadSeeker{src: src}
	r.offset, r.err = src.Seek(0, io.SeekCurrent)
	return r
}

func (r *restoreOnCloseReadSeeker) Read(p []byte) (n int, err error) {
	if r.err != nil {
		return 0, r.err
	}

	return r.src.Read(p)
}

func (r *restoreOnCloseReadSeeker) Seek(offset int64, whence int) (int64, error) {
	if r.err != nil {
		return r.offset, r.err
	}

	return r.src.Seek(offset, whence)
}

func (r *restoreOnCloseReadSeeker) Close() error {
	if r.err != nil {
		return r.err
	}

	_, r.err = r.src.Seek(r.offset, io.SeekStart)
	return r.err
}

// ChainCloser makes sure all the close functions are called exactly once and returns the first non-nil error.
//
// Close functions are called in the given order so pass the innermost writer first, e.g. the tar writer before the
// compressor wrapping the file.
func ChainCloser(fn1 func() error, fn2 func() error, fns ...func() error) func() error {
	return func() error {
		err := fn1()

		if err2 := fn2(); err == nil {
			err = err2
		}

		for _, fn := range fns {
			if err2 := fn(); err == nil {
				err = err2
			}
		}

		return err
	}
}

// CopyBufferWithContext is a variant of io.CopyBuffer that is cancellable via context.
//
// If buf is nil, a new buffer of size DefaultBufferSize is created. The context is checked after every write so a
// very small buffer adds overhead while a very large one delays cancellation.
//
// Unlike io.CopyBuffer, io.WriterTo and io.ReaderFrom are never used since neither supports context.
func CopyBufferWithContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (written int64, err error) {
	if buf == nil {
		buf = make([]byte, DefaultBufferSize)
	}

	var nr, nw int
	for {
		nr, err = src.Read(buf)

		if nr > 0 {
			switch nw, err = dst.Write(buf[0:nr]); {
			case err != nil:
				return written, err
			case nr < nw:
				return written, io.ErrShortWrite
			case nr != nw:
				return written, fmt.Errorf("invalid write: expected to write %d bytes, wrote %d bytes instead", nr, nw)
			}

			written += int64(nw)

			select {
			case <-ctx.Done():
				return written, ctx.Err()
			default:
			}
		}

		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
