// Package sevenzip writes 7z archives.
//
// Only the subset of the format needed to archive files from disk is implemented: all contents are compressed into a
// single solid folder with either LZMA2 or no compression (the Copy method), and the header is written unencoded.
// Encryption is not supported. The output can be read by 7-Zip and github.com/bodgit/sevenzip.
package sevenzip

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"io/fs"
	"time"

	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/text/encoding/unicode"
)

// Method is the compression method of the solid folder.
type Method int

const (
	// LZMA2 compresses the folder with LZMA2.
	LZMA2 Method = iota
	// Copy stores the folder uncompressed.
	Copy
)

const signatureHeaderSize = 32

// nameEncoding encodes file names as UTF-16LE without a byte order mark.
var nameEncoding = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

var signature = []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c, 0, 4}

// ErrClosed is returned when writing to a closed Writer or to an entry that has been superseded by the next one.
var ErrClosed = errors.New("sevenzip: writer closed")

// dictCaps are the LZMA2 dictionary capacities for levels 0 through 9.
var dictCaps = [10]int{1 << 18, 1 << 20, 1 << 21, 1 << 22, 1 << 22, 1 << 23, 1 << 23, 1 << 24, 1 << 25, 1 << 26}

// Options customises NewWriter.
type Options struct {
	Method Method
	// Level selects the LZMA2 dictionary capacity between 0 and 9. Defaults to 6.
	Level int
}

// FileHeader describes an entry to be added with Writer.Create.
type FileHeader struct {
	// Name is the slash-separated name of the entry.
	Name     string
	Modified time.Time
	// Mode has the type bits and permissions of the entry, e.g. fs.ModeDir|0755.
	Mode fs.FileMode
}

type file struct {
	FileHeader
	size uint64
	crc  uint32
}

// Writer writes a 7z archive to an io.WriteSeeker.
//
// The signature header is written last since it has to point at the header that follows the compressed contents, so
// the destination must be seekable.
type Writer struct {
	dst   io.WriteSeeker
	start int64

	bw     *bufio.Writer
	packed *countingWriter
	enc    io.WriteCloser
	method Method
	dict   int

	files   []*file
	current *entryWriter
	closed  bool
}

// NewWriter writes a placeholder signature header at the current offset of dst and returns a Writer ready to add
// entries.
func NewWriter(dst io.WriteSeeker, optFns ...func(*Options)) (*Writer, error) {
	opts := &Options{Level: 6}
	for _, fn := range optFns {
		fn(opts)
	}

	if opts.Level < 0 || opts.Level > 9 {
		return nil, fmt.Errorf("sevenzip: level must be between 0 and 9 but was %d", opts.Level)
	}

	start, err := dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("sevenzip: seek error: %w", err)
	}

	w := &Writer{dst: dst, start: start, method: opts.Method, dict: dictCaps[opts.Level]}
	w.bw = bufio.NewWriter(dst)
	if _, err = w.bw.Write(make([]byte, signatureHeaderSize)); err != nil {
		return nil, err
	}

	w.packed = &countingWriter{w: w.bw}
	switch w.method {
	case LZMA2:
		if w.enc, err = (lzma.Writer2Config{DictCap: w.dict}).NewWriter2(w.packed); err != nil {
			return nil, fmt.Errorf("sevenzip: create lzma2 writer error: %w", err)
		}
	case Copy:
		w.enc = nopWriteCloser{w.packed}
	default:
		return nil, fmt.Errorf("sevenzip: unknown method %d", w.method)
	}

	return w, nil
}

// Create adds a new entry and returns the io.Writer for its contents.
//
// The returned io.Writer is only valid until the next call to Create or Close. Directories must not have contents;
// symbolic links should have their target as contents.
func (w *Writer) Create(fh FileHeader) (io.Writer, error) {
	if w.closed {
		return nil, ErrClosed
	}

	if w.current != nil {
		w.current.finish()
	}

	f := &file{FileHeader: fh}
	w.files = append(w.files, f)
	w.current = &entryWriter{w: w, f: f, crc: crc32.NewIEEE()}
	return w.current, nil
}

// Close finishes the compressed folder, writes the header, then goes back to fill in the signature header.
//
// Close does not close the underlying io.WriteSeeker, which is left positioned at the end of the archive.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	if w.current != nil {
		w.current.finish()
	}

	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("sevenzip: finish folder error: %w", err)
	}

	packSize := w.packed.n

	h, err := w.header(uint64(packSize))
	if err != nil {
		return err
	}
	if _, err = h.WriteTo(w.bw); err != nil {
		return err
	}
	if err = w.bw.Flush(); err != nil {
		return err
	}

	end, err := w.dst.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("sevenzip: seek error: %w", err)
	}

	start := make([]byte, 20)
	binary.LittleEndian.PutUint64(start[0:], uint64(packSize))
	binary.LittleEndian.PutUint64(start[8:], uint64(len(h.buf)))
	binary.LittleEndian.PutUint32(start[16:], crc32.ChecksumIEEE(h.buf))

	sh := make([]byte, 0, signatureHeaderSize)
	sh = append(sh, signature...)
	sh = binary.LittleEndian.AppendUint32(sh, crc32.ChecksumIEEE(start))
	sh = append(sh, start...)

	if _, err = w.dst.Seek(w.start, io.SeekStart); err != nil {
		return fmt.Errorf("sevenzip: seek error: %w", err)
	}
	if _, err = w.dst.Write(sh); err != nil {
		return err
	}
	if _, err = w.dst.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("sevenzip: seek error: %w", err)
	}

	return nil
}

// header encodes the plain header describing the single folder and all files.
func (w *Writer) header(packSize uint64) (*headerWriter, error) {
	h := &headerWriter{}
	h.byte(idHeader)

	streams := make([]*file, 0, len(w.files))
	for _, f := range w.files {
		if f.size > 0 {
			streams = append(streams, f)
		}
	}

	if len(streams) != 0 {
		var unpackSize uint64
		for _, f := range streams {
			unpackSize += f.size
		}

		h.byte(idMainStreamsInfo)

		h.byte(idPackInfo)
		h.number(0)
		h.number(1)
		h.byte(idSize)
		h.number(packSize)
		h.byte(idEnd)

		h.byte(idUnpackInfo)
		h.byte(idFolder)
		h.number(1)
		h.byte(0)
		h.number(1)
		switch w.method {
		case LZMA2:
			// one-byte id with properties.
			h.byte(0x21)
			h.byte(0x21)
			h.number(1)
			h.byte(lzma.EncodeDictCap(int64(w.dict)))
		case Copy:
			h.byte(0x01)
			h.byte(0x00)
		}
		h.byte(idCodersUnpackSize)
		h.number(unpackSize)
		h.byte(idEnd)

		h.byte(idSubStreamsInfo)
		h.byte(idNumUnpackStream)
		h.number(uint64(len(streams)))
		if len(streams) > 1 {
			h.byte(idSize)
			for _, f := range streams[:len(streams)-1] {
				h.number(f.size)
			}
		}
		h.byte(idCRC)
		h.byte(1)
		for _, f := range streams {
			h.uint32(f.crc)
		}
		h.byte(idEnd)

		h.byte(idEnd)
	}

	if len(w.files) != 0 {
		h.byte(idFilesInfo)
		h.number(uint64(len(w.files)))

		emptyStream := make([]bool, len(w.files))
		emptyFile := make([]bool, 0)
		for i, f := range w.files {
			if emptyStream[i] = f.size == 0; emptyStream[i] {
				emptyFile = append(emptyFile, !f.Mode.IsDir())
			}
		}

		if len(emptyFile) != 0 {
			body := &headerWriter{}
			body.boolVector(emptyStream)
			h.property(idEmptyStream, body)

			body = &headerWriter{}
			body.boolVector(emptyFile)
			h.property(idEmptyFile, body)
		}

		body := &headerWriter{}
		body.byte(0)
		enc := nameEncoding.NewEncoder()
		for _, f := range w.files {
			name, err := enc.Bytes([]byte(f.Name))
			if err != nil {
				return nil, fmt.Errorf(`sevenzip: encode name "%s" error: %w`, f.Name, err)
			}
			body.buf = append(append(body.buf, name...), 0, 0)
		}
		h.property(idName, body)

		body = &headerWriter{}
		body.byte(1)
		body.byte(0)
		for _, f := range w.files {
			body.uint64(filetime(f.Modified))
		}
		h.property(idMTime, body)

		body = &headerWriter{}
		body.byte(1)
		body.byte(0)
		for _, f := range w.files {
			body.uint32(attributes(f.Mode))
		}
		h.property(idWinAttributes, body)

		h.byte(idEnd)
	}

	h.byte(idEnd)
	return h, nil
}

// filetime converts t to the number of 100-nanosecond intervals since 1601-01-01 UTC.
func filetime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}

	const epochDiff = 116444736000000000
	return uint64(t.UnixNano()/100 + epochDiff)
}

// attributes encodes the Windows attributes with the Unix mode in the high 16 bits.
func attributes(mode fs.FileMode) uint32 {
	const (
		fileAttributeReadonly  = 0x01
		fileAttributeDirectory = 0x10
		fileAttributeArchive   = 0x20
		fileAttributeUnixExt   = 0x8000

		sIFDIR = 0o040000
		sIFREG = 0o100000
		sIFLNK = 0o120000
	)

	unix := uint32(mode.Perm())
	var attr uint32
	switch {
	case mode.IsDir():
		unix |= sIFDIR
		attr = fileAttributeDirectory
	case mode&fs.ModeSymlink != 0:
		unix |= sIFLNK
		attr = fileAttributeArchive
	default:
		unix |= sIFREG
		attr = fileAttributeArchive
	}

	if mode.Perm()&0o200 == 0 {
		attr |= fileAttributeReadonly
	}

	return attr | fileAttributeUnixExt | unix<<16
}

type entryWriter struct {
	w    *Writer
	f    *file
	crc  hash.Hash32
	done bool
}

func (e *entryWriter) Write(p []byte) (int, error) {
	if e.done {
		return 0, ErrClosed
	}
	if e.f.Mode.IsDir() && len(p) != 0 {
		return 0, fmt.Errorf(`sevenzip: directory "%s" cannot have contents`, e.f.Name)
	}

	n, err := e.w.enc.Write(p)
	e.f.size += uint64(n)
	_, _ = e.crc.Write(p[:n])
	return n, err
}

func (e *entryWriter) finish() {
	e.done = true
	e.f.crc = e.crc.Sum32()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
