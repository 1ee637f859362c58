package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/util"
)

const (
	tarMagicOffset = 257
	magicLen       = 8
)

var (
	zipMagics = [][]byte{
		{0x50, 0x4B, 0x03, 0x04},
		{0x50, 0x4B, 0x05, 0x06},
		{0x50, 0x4B, 0x07, 0x08},
	}
	sevenZMagic = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	ustarMagics = [][]byte{
		[]byte("ustar\x0000"),
		[]byte("ustar  \x00"),
	}
	isoMagic   = []byte("CD001")
	isoOffsets = [3]int64{0x8001, 0x8801, 0x9001}
)

// Detect identifies the container type and the compression of the archive in src.
//
// Only Tar archives can have a compression other than codec.None; the compression is found by decoding the leading
// bytes and checking for the ustar magic in the decoded stream. Sources too short for a probe never cause an error;
// the missing bytes are treated as zeroes. The position of src is restored before Detect returns.
//
// If no format matches, the returned error is an *UnknownFormatError listing every probed window.
func Detect(src io.ReadSeeker) (t Type, c codec.Compression, err error) {
	name := nameOf(src)
	rs := util.RestoreOnCloseReadSeeker(src)
	defer func() {
		if cerr := rs.Close(); cerr != nil && err == nil {
			err = &IOError{Op: "seek", Path: name, Err: cerr}
		}
	}()

	var m MagicNumbers

	if m.Zip, err = readMagic(rs, name, 0, magicLen); err != nil {
		return
	}
	for _, magic := range zipMagics {
		if bytes.HasPrefix(m.Zip.Bytes, magic) {
			return Zip, codec.None, nil
		}
	}
	if bytes.HasPrefix(m.Zip.Bytes, sevenZMagic) {
		return SevenZ, codec.None, nil
	}

	if m.Tar, err = readMagic(rs, name, tarMagicOffset, magicLen); err != nil {
		return
	}
	if isUstar(m.Tar.Bytes) {
		return Tar, codec.None, nil
	}

	if sniffed, ok := codec.Sniff(m.Zip.Bytes); ok {
		if ok, err = isCompressedTar(rs, name, sniffed); err != nil {
			return
		} else if ok {
			return Tar, sniffed, nil
		}
	}

	iso := true
	for i, off := range isoOffsets {
		if m.Iso[i], err = readMagic(rs, name, off, len(isoMagic)); err != nil {
			return
		}
		iso = iso && bytes.Equal(m.Iso[i].Bytes, isoMagic)
	}
	if iso {
		return Iso, codec.None, nil
	}

	return "", "", &UnknownFormatError{MagicNumbers: m}
}

// readMagic reads n bytes at the given absolute offset, zero-padding if the source ends early.
func readMagic(rs io.ReadSeeker, name string, offset int64, n int) (MagicBytes, error) {
	m := MagicBytes{Offset: offset, Bytes: make([]byte, n)}

	if _, err := rs.Seek(offset, io.SeekStart); err != nil {
		return m, &IOError{Op: "seek", Path: name, Err: err}
	}

	if _, err := io.ReadFull(rs, m.Bytes); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return m, &IOError{Op: "read", Path: name, Err: err}
	}

	return m, nil
}

// isCompressedTar decodes rs from the start with the given compression and checks the ustar magic of the decoded
// stream.
//
// Decoding failures mean the content is not a compressed tar and are not returned as errors.
func isCompressedTar(rs io.ReadSeeker, name string, c codec.Compression) (bool, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return false, &IOError{Op: "seek", Path: name, Err: err}
	}

	dec, err := codec.NewDecoder(rs, c)
	if err != nil {
		return false, nil
	}
	defer dec.Close()

	if _, err = io.CopyN(io.Discard, dec, tarMagicOffset); err != nil {
		return false, nil
	}

	magic := make([]byte, magicLen)
	if _, err = io.ReadFull(dec, magic); err != nil {
		return false, nil
	}

	return isUstar(magic), nil
}

func isUstar(b []byte) bool {
	for _, magic := range ustarMagics {
		if bytes.Equal(b, magic) {
			return true
		}
	}

	return false
}

func nameOf(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	if n, ok := v.(interface{ Name() string }); ok {
		return n.Name()
	}

	return "stream"
}

// extensions maps the lowercased last one or two dot-suffixes of a file name to its archive type and compression.
//
// An empty compression means the name does not decide it.
var extensions = []struct {
	suffixes    []string
	t           Type
	compression codec.Compression
}{
	{suffixes: []string{"tar.gz", "tgz", "tar.gzip"}, t: Tar, compression: codec.Gzip},
	{suffixes: []string{"tar.xz", "txz"}, t: Tar, compression: codec.Lzma},
	{suffixes: []string{"tar.bz2", "tbz2"}, t: Tar, compression: codec.Bzip2},
	{suffixes: []string{"tar.zst", "tzst", "tar.zstd"}, t: Tar, compression: codec.Zstd},
	{suffixes: []string{"tar"}, t: Tar, compression: codec.None},
	{suffixes: []string{"zip"}, t: Zip},
	{suffixes: []string{"7z", "7zip"}, t: SevenZ},
	{suffixes: []string{"iso"}, t: Iso},
}

// GuessFromFilename returns the archive type and, if the name decides it, the compression implied by the extension of
// the given file name.
//
// The returned compression is codec.None for plain tar names and empty for zip, 7z, and iso names. If the extension
// is not recognised, the returned error is an *UnknownExtensionError.
func GuessFromFilename(name string) (Type, codec.Compression, error) {
	suffixes := util.Suffixes(name, 2)

	// two-part suffixes such as .tar.gz take precedence over their last part.
	candidates := make([]string, 0, 2)
	if len(suffixes) == 2 {
		candidates = append(candidates, suffixes[1]+"."+suffixes[0])
	}
	if len(suffixes) > 0 {
		candidates = append(candidates, suffixes[0])
	}

	for _, candidate := range candidates {
		for _, ext := range extensions {
			for _, suffix := range ext.suffixes {
				if candidate == suffix {
					return ext.t, ext.compression, nil
				}
			}
		}
	}

	return "", "", &UnknownExtensionError{Name: strings.TrimSpace(name)}
}
