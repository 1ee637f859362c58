package codec

import (
	"bufio"
	"io"

	"github.com/ulikunitz/xz"
)

// xzDictCaps maps levels 0 to 9 to dictionary capacities similar to the presets of xz-utils.
var xzDictCaps = [...]int{
	256 << 10,
	1 << 20,
	2 << 20,
	4 << 20,
	4 << 20,
	8 << 20,
	8 << 20,
	16 << 20,
	32 << 20,
	64 << 20,
}

// xzCodec implements the Lzma compression with the xz container format.
type xzCodec struct {
}

var _ Codec = xzCodec{}

func (c xzCodec) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	r, err := xz.NewReader(bufio.NewReader(src))
	if err != nil {
		return nil, err
	}

	return io.NopCloser(r), nil
}

func (c xzCodec) NewEncoder(dst io.Writer, opts EncoderOptions) (Encoder, error) {
	cfg := xz.WriterConfig{DictCap: xzDictCaps[6]}
	if opts.Level != nil {
		cfg.DictCap = xzDictCaps[min(max(*opts.Level, 0), len(xzDictCaps)-1)]
	}

	w, err := cfg.NewWriter(dst)
	if err != nil {
		return nil, err
	}

	return &finisher{WriteCloser: w, name: "XzEncoder"}, nil
}
