package codec

import (
	"io"
	"runtime"

	"github.com/klauspost/compress/zstd"
)

type zstdCodec struct{}

var _ Codec = zstdCodec{}

func (c zstdCodec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, err
	}

	return dec.IOReadCloser(), nil
}

func (c zstdCodec) NewEncoder(dst io.Writer, opts EncoderOptions) (Encoder, error) {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	eopts := []zstd.EOption{zstd.WithEncoderConcurrency(concurrency)}
	if opts.Level != nil {
		eopts = append(eopts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(*opts.Level)))
	}

	w, err := zstd.NewWriter(dst, eopts...)
	if err != nil {
		return nil, err
	}

	return &finisher{WriteCloser: w, name: "ZstdEncoder"}, nil
}
