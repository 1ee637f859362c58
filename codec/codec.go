// Package codec maps a Compression to a decoding stream or an encoding sink.
//
// Compressors disagree on whether closing is required to produce valid output: gzip, zlib, bzip2, xz, and zstd all
// need to flush trailing checksums or frame epilogues while the uncompressed passthrough has nothing to flush. Encoder
// hides those differences behind a single Finish method that never closes the underlying io.Writer.
package codec

import (
	"io"
)

// Codec has methods to create decoders and encoders for one compression algorithm.
type Codec interface {
	// NewDecoder creates a decoder to decompress contents from the given io.Reader.
	//
	// Closing the decoder does not close src.
	NewDecoder(src io.Reader) (io.ReadCloser, error)
	// NewEncoder creates an encoder to compress contents to the given io.Writer.
	NewEncoder(dst io.Writer, opts EncoderOptions) (Encoder, error)
}

// Encoder is a compressing io.Writer that must be finished to produce valid output.
type Encoder interface {
	io.Writer
	// Finish flushes all buffered and trailing data to the underlying io.Writer, which is not closed.
	//
	// Errors are always of type *FinishError. Finish must be called exactly once.
	Finish() error
}

// EncoderOptions customises NewEncoder.
type EncoderOptions struct {
	// Level is the compression level. Nil means the default level of the algorithm.
	//
	// See Compression.LevelRange for valid values.
	Level *int

	// Concurrency is the number of workers used by encoders that support it (zstd and gzip). Values less than 1 mean
	// runtime.GOMAXPROCS(0).
	Concurrency int
}

// WithLevel sets EncoderOptions.Level.
func WithLevel(level int) func(*EncoderOptions) {
	return func(opts *EncoderOptions) {
		opts.Level = &level
	}
}

// WithConcurrency sets EncoderOptions.Concurrency.
func WithConcurrency(n int) func(*EncoderOptions) {
	return func(opts *EncoderOptions) {
		opts.Concurrency = n
	}
}

var codecs = map[Compression]Codec{
	None:    noneCodec{},
	Gzip:    gzipCodec{},
	Bzip2:   bzip2Codec{},
	Lzma:    xzCodec{},
	Zstd:    zstdCodec{},
	Deflate: zlibCodec{},
}

// For returns the Codec for the given compression.
//
// Aes and unknown compressions return an *UnsupportedCompressionError.
func For(c Compression) (Codec, error) {
	if cd, ok := codecs[c]; ok {
		return cd, nil
	}

	return nil, &UnsupportedCompressionError{Compression: c}
}

// NewDecoder creates a decoder for the given compression reading from src.
func NewDecoder(src io.Reader, c Compression) (io.ReadCloser, error) {
	cd, err := For(c)
	if err != nil {
		return nil, err
	}

	return cd.NewDecoder(src)
}

// NewEncoder creates an encoder for the given compression writing to dst.
//
// The level, if given, is validated against Compression.LevelRange.
func NewEncoder(dst io.Writer, c Compression, optFns ...func(*EncoderOptions)) (Encoder, error) {
	cd, err := For(c)
	if err != nil {
		return nil, err
	}

	opts := EncoderOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Level != nil {
		if err = c.ValidateLevel(*opts.Level); err != nil {
			return nil, err
		}
	}

	return cd.NewEncoder(dst, opts)
}

// finisher adapts an io.WriteCloser whose Close flushes the trailer into an Encoder.
type finisher struct {
	io.WriteCloser
	name string
}

func (f *finisher) Finish() error {
	if err := f.Close(); err != nil {
		return &FinishError{Encoder: f.name, Err: err}
	}

	return nil
}
