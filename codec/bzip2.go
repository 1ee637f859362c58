package codec

import (
	"io"

	"github.com/dsnet/compress/bzip2"
)

type bzip2Codec struct {
}

var _ Codec = bzip2Codec{}

func (c bzip2Codec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return bzip2.NewReader(src, nil)
}

func (c bzip2Codec) NewEncoder(dst io.Writer, opts EncoderOptions) (Encoder, error) {
	cfg := &bzip2.WriterConfig{Level: bzip2.DefaultCompression}
	if opts.Level != nil {
		// bzip2 has no "store" level so 0 is the fastest one.
		cfg.Level = max(*opts.Level, bzip2.BestSpeed)
	}

	w, err := bzip2.NewWriter(dst, cfg)
	if err != nil {
		return nil, err
	}

	return &finisher{WriteCloser: w, name: "BzEncoder"}, nil
}
