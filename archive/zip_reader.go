package archive

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"errors"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"io/fs"
	"iter"
	"strings"

	azip "github.com/alexmullins/zip"
	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// zip compression methods beyond Store and Deflate.
const (
	zipBzip2 uint16 = 12
	zipLzma  uint16 = 14
	zipZstd  uint16 = 93
	zipXz    uint16 = 95
	zipAes   uint16 = 99
)

// maxLinkLen caps how much of a symbolic link entry is read as its target.
const maxLinkLen = 4096

func registerZipDecompressors(zr *zip.Reader) {
	zr.RegisterDecompressor(zipBzip2, func(r io.Reader) io.ReadCloser {
		br, err := bzip2.NewReader(r, nil)
		if err != nil {
			return io.NopCloser(&errReader{err: err})
		}
		return br
	})
	zr.RegisterDecompressor(zipZstd, zstd.ZipDecompressor())
	zr.RegisterDecompressor(zipXz, func(r io.Reader) io.ReadCloser {
		xr, err := xz.NewReader(bufio.NewReader(r))
		if err != nil {
			return io.NopCloser(&errReader{err: err})
		}
		return io.NopCloser(xr)
	})
}

// openZipLzma decodes a method 14 entry.
//
// The raw data starts with a 2-byte version and a 2-byte properties length followed by the 5 properties bytes of a
// classic lzma header. The entry's uncompressed size completes that header so the stream ends whether or not it
// carries an end marker.
func openZipLzma(f *zip.File) (io.ReadCloser, error) {
	raw, err := f.OpenRaw()
	if err != nil {
		return nil, err
	}

	prefix := make([]byte, 4)
	if _, err = io.ReadFull(raw, prefix); err != nil {
		return nil, &FormatError{Type: Zip, Err: fmt.Errorf(`entry "%s" has a truncated lzma header: %w`, f.Name, err)}
	}
	if n := binary.LittleEndian.Uint16(prefix[2:]); n != 5 {
		return nil, &FormatError{Type: Zip, Err: fmt.Errorf(`entry "%s" has %d lzma properties bytes, expected 5`, f.Name, n)}
	}

	header := make([]byte, lzma.HeaderLen)
	if _, err = io.ReadFull(raw, header[:5]); err != nil {
		return nil, &FormatError{Type: Zip, Err: fmt.Errorf(`entry "%s" has a truncated lzma header: %w`, f.Name, err)}
	}
	binary.LittleEndian.PutUint64(header[5:], f.UncompressedSize64)

	lr, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header), bufio.NewReader(raw)))
	if err != nil {
		return nil, &FormatError{Type: Zip, Err: err}
	}

	return io.NopCloser(&checksumReader{r: lr, h: crc32.NewIEEE(), want: f.CRC32}), nil
}

// checksumReader returns zip.ErrChecksum at the end of r if the CRC-32 of its contents is not want.
type checksumReader struct {
	r    io.Reader
	h    hash.Hash32
	want uint32
}

func (r *checksumReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.h.Write(p[:n])
	if errors.Is(err, io.EOF) && r.h.Sum32() != r.want {
		err = zip.ErrChecksum
	}

	return n, err
}

type errReader struct {
	err error
}

func (r *errReader) Read([]byte) (int, error) {
	return 0, r.err
}

// zipMethodLabel returns the display label of a zip compression method.
func zipMethodLabel(method uint16) string {
	switch method {
	case zip.Store:
		return "Stored"
	case zip.Deflate:
		return "Deflated"
	case zipBzip2:
		return "Bzip2"
	case zipLzma:
		return "Lzma"
	case zipZstd:
		return "Zstd"
	case zipXz:
		return "Xz"
	case zipAes:
		return "Aes"
	default:
		return fmt.Sprintf("Unknown (%d)", method)
	}
}

// walk visits the entries in central directory order.
func (z *zipBackend) walk(ctx context.Context, password string) iter.Seq2[*entry, error] {
	return func(yield func(*entry, error) bool) {
		for i, f := range z.zr.File {
			if ctx.Err() != nil {
				return
			}

			e, err := z.newEntry(i, f, password)
			if !yield(e, err) {
				return
			}
		}
	}
}

func (z *zipBackend) newEntry(i int, f *zip.File, password string) (*entry, error) {
	e := &entry{
		Entity: Entity{
			Name:        f.Name,
			Compression: zipMethodLabel(f.Method),
		},
		mode:   f.Mode().Perm(),
		hidden: zipHidden(&f.FileHeader),
	}

	if !f.Modified.IsZero() {
		e.LastModified = ptr(f.Modified.UTC())
	}

	switch mode := f.Mode(); {
	case mode.IsDir():
		e.Kind = Directory
	case mode&fs.ModeSymlink != 0:
		e.Kind = SymbolicLink
	case mode.IsRegular():
		e.Kind = File
	default:
		e.Kind = Unknown
	}

	e.Size, e.CompressedSize = fileSizes(e.Kind, f.UncompressedSize64, f.CompressedSize64)

	open := f.Open
	if f.Method == zipLzma {
		open = func() (io.ReadCloser, error) {
			return openZipLzma(f)
		}
	}
	if f.Flags&0x1 != 0 {
		open = func() (io.ReadCloser, error) {
			return z.openEncrypted(i, f.Name, password)
		}
	}

	switch e.Kind {
	case File:
		e.open = func() (io.ReadCloser, error) {
			rc, err := open()
			if err != nil {
				return nil, zipError(err)
			}
			return rc, nil
		}
	case SymbolicLink:
		rc, err := open()
		if err != nil {
			return e, zipError(err)
		}
		defer rc.Close()

		var sb strings.Builder
		if _, err = io.Copy(&sb, io.LimitReader(rc, maxLinkLen)); err != nil {
			return e, zipError(err)
		}
		e.linkname = sb.String()
	}

	return e, nil
}

// openEncrypted opens the i-th entry of the central directory with the AES-capable reader.
func (z *zipBackend) openEncrypted(i int, name, password string) (io.ReadCloser, error) {
	if password == "" {
		return nil, &PasswordError{Err: fmt.Errorf(`entry "%s" is encrypted but no password was given`, name)}
	}

	ar, err := z.aesReader()
	if err != nil {
		return nil, err
	}
	if i >= len(ar.File) || ar.File[i].Name != name {
		return nil, &FormatError{Type: Zip, Err: fmt.Errorf(`entry "%s" not found in central directory`, name)}
	}

	af := ar.File[i]
	af.SetPassword(password)

	rc, err := af.Open()
	if err != nil {
		return nil, err
	}

	return &aesReadCloser{ReadCloser: rc}, nil
}

// aesReadCloser converts authentication failures detected at the end of an encrypted entry into *PasswordError.
type aesReadCloser struct {
	io.ReadCloser
}

func (r *aesReadCloser) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = zipError(err)
	}

	return n, err
}

// zipError classifies errors from either zip reader.
func zipError(err error) error {
	var perr *PasswordError
	var ferr *FormatError
	switch {
	case errors.As(err, &perr), errors.As(err, &ferr):
		return err
	case errors.Is(err, azip.ErrPassword), errors.Is(err, azip.ErrDecryption), errors.Is(err, azip.ErrAuthentication):
		return &PasswordError{Err: err}
	case errors.Is(err, zip.ErrChecksum), errors.Is(err, zip.ErrFormat), errors.Is(err, zip.ErrAlgorithm):
		return &FormatError{Type: Zip, Err: err}
	default:
		return err
	}
}

// zipHidden returns true if the entry was created on a DOS-like system with the hidden attribute.
func zipHidden(fh *zip.FileHeader) bool {
	switch fh.CreatorVersion >> 8 {
	case 0, 11, 14:
		return fh.ExternalAttrs&0x02 != 0
	default:
		return false
	}
}
