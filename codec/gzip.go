package codec

import (
	"io"
	"runtime"

	"github.com/klauspost/pgzip"
)

// gzipCodec uses pgzip which compresses blocks in parallel while producing a standard gzip stream.
type gzipCodec struct {
}

var _ Codec = gzipCodec{}

func (c gzipCodec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return pgzip.NewReader(src)
}

func (c gzipCodec) NewEncoder(dst io.Writer, opts EncoderOptions) (Encoder, error) {
	level := pgzip.DefaultCompression
	if opts.Level != nil {
		level = *opts.Level
	}

	w, err := pgzip.NewWriterLevel(dst, level)
	if err != nil {
		return nil, err
	}

	blocks := opts.Concurrency
	if blocks < 1 {
		blocks = runtime.GOMAXPROCS(0)
	}

	if err = w.SetConcurrency(1<<20, blocks); err != nil {
		return nil, err
	}

	return &finisher{WriteCloser: w, name: "GzEncoder"}, nil
}
