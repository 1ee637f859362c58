package codec

import (
	"io"

	"github.com/klauspost/compress/zlib"
)

// zlibCodec implements the Deflate compression as a zlib stream, which is what a standalone deflate stream carries.
type zlibCodec struct {
}

var _ Codec = zlibCodec{}

func (c zlibCodec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return zlib.NewReader(src)
}

func (c zlibCodec) NewEncoder(dst io.Writer, opts EncoderOptions) (Encoder, error) {
	level := zlib.DefaultCompression
	if opts.Level != nil {
		level = *opts.Level
	}

	w, err := zlib.NewWriterLevel(dst, level)
	if err != nil {
		return nil, err
	}

	return &finisher{WriteCloser: w, name: "ZlibEncoder"}, nil
}

// noneCodec passes bytes through unchanged.
type noneCodec struct {
}

var _ Codec = noneCodec{}

func (c noneCodec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(src), nil
}

func (c noneCodec) NewEncoder(dst io.Writer, _ EncoderOptions) (Encoder, error) {
	return passthrough{dst}, nil
}

type passthrough struct {
	io.Writer
}

func (p passthrough) Finish() error {
	return nil
}
