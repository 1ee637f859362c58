package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"testing"

	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/internal/iso9660/isotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tarBytes returns a tar archive with one regular file per name, whose contents are the name itself.
func tarBytes(t *testing.T, names ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := tar.NewWriter(&buf)
	for _, name := range names {
		require.NoError(t, w.WriteHeader(&tar.Header{Name: name, Mode: 0644, Size: int64(len(name)), Typeflag: tar.TypeReg, Format: tar.FormatUSTAR}))
		_, err := io.WriteString(w, name)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func compress(t *testing.T, data []byte, c codec.Compression) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc, err := codec.NewEncoder(&buf, c)
	require.NoError(t, err)
	_, err = enc.Write(data)
	require.NoError(t, err)
	require.NoError(t, enc.Finish())

	return buf.Bytes()
}

func TestDetect(t *testing.T) {
	ustar := make([]byte, 512)
	copy(ustar[257:], "ustar\x0000")

	gnu := make([]byte, 512)
	copy(gnu[257:], "ustar  \x00")

	tests := []struct {
		name        string
		data        []byte
		want        Type
		compression codec.Compression
	}{
		{name: "zip local file header", data: []byte{0x50, 0x4B, 0x03, 0x04, 0, 0, 0, 0}, want: Zip, compression: codec.None},
		{name: "empty zip", data: []byte{0x50, 0x4B, 0x05, 0x06}, want: Zip, compression: codec.None},
		{name: "spanned zip", data: []byte{0x50, 0x4B, 0x07, 0x08}, want: Zip, compression: codec.None},
		{name: "7z", data: []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C, 0, 4}, want: SevenZ, compression: codec.None},
		{name: "ustar", data: ustar, want: Tar, compression: codec.None},
		{name: "gnu tar", data: gnu, want: Tar, compression: codec.None},
		{name: "tar", data: tarBytes(t, "a.txt"), want: Tar, compression: codec.None},
		{name: "tar.gz", data: compress(t, tarBytes(t, "a.txt"), codec.Gzip), want: Tar, compression: codec.Gzip},
		{name: "tar.bz2", data: compress(t, tarBytes(t, "a.txt"), codec.Bzip2), want: Tar, compression: codec.Bzip2},
		{name: "tar.xz", data: compress(t, tarBytes(t, "a.txt"), codec.Lzma), want: Tar, compression: codec.Lzma},
		{name: "tar.zst", data: compress(t, tarBytes(t, "a.txt"), codec.Zstd), want: Tar, compression: codec.Zstd},
		{name: "iso", data: isotest.Build([]isotest.Entry{{Name: "a.txt", Data: []byte("a")}}, isotest.Options{}), want: Iso, compression: codec.None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader(tt.data)
			_, err := r.Seek(3, io.SeekStart)
			require.NoError(t, err)

			got, c, err := Detect(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.compression, c)

			// position is restored.
			pos, err := r.Seek(0, io.SeekCurrent)
			require.NoError(t, err)
			assert.Equal(t, int64(3), pos)
		})
	}
}

func TestDetect_Unknown(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "ten bytes", data: []byte("0123456789")},
		// valid gzip whose contents are not a tar.
		{name: "gzip", data: compress(t, bytes.Repeat([]byte("x"), 1024), codec.Gzip)},
		// only two of the three volume descriptors.
		{name: "partial iso", data: func() []byte {
			b := make([]byte, 0x9010)
			copy(b[0x8001:], "CD001")
			copy(b[0x8801:], "CD001")
			return b
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Detect(bytes.NewReader(tt.data))

			var uerr *UnknownFormatError
			require.ErrorAs(t, err, &uerr)
			assert.Equal(t, int64(0), uerr.MagicNumbers.Zip.Offset)
			assert.Equal(t, int64(257), uerr.MagicNumbers.Tar.Offset)
			assert.Equal(t, int64(0x8001), uerr.MagicNumbers.Iso[0].Offset)
			assert.Equal(t, int64(0x8801), uerr.MagicNumbers.Iso[1].Offset)
			assert.Equal(t, int64(0x9001), uerr.MagicNumbers.Iso[2].Offset)
		})
	}
}

func TestUnknownFormatError_Error(t *testing.T) {
	_, _, err := Detect(bytes.NewReader([]byte("0123456789")))

	var uerr *UnknownFormatError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, []byte("01234567"), uerr.MagicNumbers.Zip.Bytes)
	assert.Equal(t, make([]byte, 8), uerr.MagicNumbers.Tar.Bytes)
	assert.Equal(t, "Unknown archive type, magic numbers: "+
		"zip at 0x000000: [30 31 32 33 34 35 36 37], "+
		"tar at 0x000101: [00 00 00 00 00 00 00 00], "+
		"iso at 0x008001: '\x00\x00\x00\x00\x00', "+
		"iso at 0x008801: '\x00\x00\x00\x00\x00', "+
		"iso at 0x009001: '\x00\x00\x00\x00\x00'", err.Error())
}

func TestMagicBytes(t *testing.T) {
	m := MagicBytes{Offset: 0x8001, Bytes: []byte("CD001")}
	assert.Equal(t, "0x008001: [43 44 30 30 31]", m.Hex())
	assert.Equal(t, "0x008001: 'CD001'", m.Str())
}

func TestGuessFromFilename(t *testing.T) {
	tests := []struct {
		name        string
		want        Type
		compression codec.Compression
		wantErr     bool
	}{
		{name: "a.zip", want: Zip},
		{name: "A.ZIP", want: Zip},
		{name: "path/to/a.7z", want: SevenZ},
		{name: "a.iso", want: Iso},
		{name: "a.tar", want: Tar, compression: codec.None},
		{name: "a.tar.gz", want: Tar, compression: codec.Gzip},
		{name: "a.tgz", want: Tar, compression: codec.Gzip},
		{name: "a.tar.xz", want: Tar, compression: codec.Lzma},
		{name: "a.tar.bz2", want: Tar, compression: codec.Bzip2},
		{name: "a.tar.zst", want: Tar, compression: codec.Zstd},
		{name: "backup.2024.zip", want: Zip},
		{name: "a.gz", wantErr: true},
		{name: "a.txt", wantErr: true},
		{name: "noext", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, c, err := GuessFromFilename(tt.name)
			if tt.wantErr {
				var eerr *UnknownExtensionError
				assert.ErrorAs(t, err, &eerr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.compression, c)
		})
	}
}
