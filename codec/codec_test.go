package codec

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRoundTrip encodes then decodes some data with every supported compression.
func TestRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 2048)

	tests := []struct {
		name   string
		c      Compression
		optFns []func(*EncoderOptions)
	}{
		{name: "none", c: None},
		{name: "gzip", c: Gzip},
		{name: "gzip level 1", c: Gzip, optFns: []func(*EncoderOptions){WithLevel(1)}},
		{name: "bzip2", c: Bzip2},
		{name: "bzip2 level 0", c: Bzip2, optFns: []func(*EncoderOptions){WithLevel(0)}},
		{name: "lzma", c: Lzma},
		{name: "lzma level 9", c: Lzma, optFns: []func(*EncoderOptions){WithLevel(9)}},
		{name: "zstd", c: Zstd},
		{name: "zstd single worker", c: Zstd, optFns: []func(*EncoderOptions){WithConcurrency(1), WithLevel(19)}},
		{name: "deflate", c: Deflate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			enc, err := NewEncoder(&buf, tt.c, tt.optFns...)
			require.NoErrorf(t, err, "NewEncoder() error = %v", err)

			_, err = enc.Write(data)
			require.NoErrorf(t, err, "Write() error = %v", err)
			require.NoErrorf(t, enc.Finish(), "Finish() error")

			if tt.c != None {
				got, ok := Sniff(buf.Bytes())
				if tt.c == Deflate {
					assert.False(t, ok, "zlib streams have no magic")
				} else {
					assert.Truef(t, ok, "Sniff() did not recognise %s output", tt.c)
					assert.Equal(t, tt.c, got)
				}
			}

			dec, err := NewDecoder(&buf, tt.c)
			require.NoErrorf(t, err, "NewDecoder() error = %v", err)

			got, err := io.ReadAll(dec)
			assert.NoErrorf(t, err, "ReadAll() error = %v", err)
			assert.NoError(t, dec.Close())
			assert.Equal(t, data, got)
		})
	}
}

func TestUnsupported(t *testing.T) {
	for _, c := range []Compression{Aes, Unknown("ppmd"), ""} {
		_, err := NewDecoder(bytes.NewReader(nil), c)

		var uce *UnsupportedCompressionError
		assert.ErrorAsf(t, err, &uce, "NewDecoder(%s) should fail", c)

		_, err = NewEncoder(io.Discard, c)
		assert.ErrorAsf(t, err, &uce, "NewEncoder(%s) should fail", c)
	}

	assert.Equal(t, "Unsupported compression: unknown (ppmd)", (&UnsupportedCompressionError{Unknown("ppmd")}).Error())
}

func TestValidateLevel(t *testing.T) {
	tests := []struct {
		c       Compression
		level   int
		wantErr bool
	}{
		{c: Gzip, level: 0},
		{c: Gzip, level: 9},
		{c: Gzip, level: 10, wantErr: true},
		{c: Bzip2, level: -1, wantErr: true},
		{c: Lzma, level: 5},
		{c: Deflate, level: 9},
		{c: Zstd, level: 0, wantErr: true},
		{c: Zstd, level: 19},
		{c: Zstd, level: 20, wantErr: true},
		{c: None, level: 100},
	}
	for _, tt := range tests {
		err := tt.c.ValidateLevel(tt.level)
		if tt.wantErr {
			var ile *InvalidLevelError
			assert.ErrorAsf(t, err, &ile, "%s.ValidateLevel(%d)", tt.c, tt.level)
		} else {
			assert.NoErrorf(t, err, "%s.ValidateLevel(%d)", tt.c, tt.level)
		}
	}

	_, err := NewEncoder(io.Discard, Zstd, WithLevel(22))
	assert.EqualError(t, err, "compression level must be between 1 and 19 but was 22")
}

func TestParseCompression(t *testing.T) {
	tests := map[string]Compression{
		"gzip": Gzip, "GZ": Gzip, "bz2": Bzip2, "xz": Lzma, "lzma": Lzma, "zst": Zstd, "zlib": Deflate, "none": None,
	}
	for name, want := range tests {
		got, err := ParseCompression(name)
		assert.NoErrorf(t, err, "ParseCompression(%s)", name)
		assert.Equal(t, want, got)
	}

	_, err := ParseCompression("rar")
	assert.Error(t, err)

	assert.True(t, Unknown("x").IsUnknown())
	assert.Equal(t, "unknown (x)", Unknown("x").String())
	assert.False(t, Gzip.IsUnknown())
}

type failingWriter struct {
}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestFinishError(t *testing.T) {
	tests := []struct {
		c    Compression
		name string
	}{
		{c: Gzip, name: "GzEncoder"},
		{c: Deflate, name: "ZlibEncoder"},
		{c: Bzip2, name: "BzEncoder"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncoder(failingWriter{}, tt.c)
			require.NoError(t, err)

			// encoders buffer internally so the error surfaces at the latest during Finish.
			_, _ = enc.Write([]byte("some data"))
			err = enc.Finish()

			var fe *FinishError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.name, fe.Encoder)
		})
	}
}
