package sevenzip

import (
	"encoding/binary"
	"io"
)

// property ids of the 7z header.
const (
	idEnd              = 0x00
	idHeader           = 0x01
	idMainStreamsInfo  = 0x04
	idFilesInfo        = 0x05
	idPackInfo         = 0x06
	idUnpackInfo       = 0x07
	idSubStreamsInfo   = 0x08
	idSize             = 0x09
	idCRC              = 0x0a
	idFolder           = 0x0b
	idCodersUnpackSize = 0x0c
	idNumUnpackStream  = 0x0d
	idEmptyStream      = 0x0e
	idEmptyFile        = 0x0f
	idName             = 0x11
	idMTime            = 0x14
	idWinAttributes    = 0x15
)

// headerWriter accumulates a 7z header in memory.
type headerWriter struct {
	buf []byte
}

func (h *headerWriter) byte(b byte) {
	h.buf = append(h.buf, b)
}

func (h *headerWriter) bytes(b []byte) {
	h.buf = append(h.buf, b...)
}

// number writes v with the variable-length encoding where the count of leading 1-bits of the first byte is the
// number of extra little-endian bytes that follow.
func (h *headerWriter) number(v uint64) {
	var first byte
	mask := byte(0x80)

	i := 0
	for ; i < 8; i++ {
		if v < uint64(1)<<(7*(i+1)) {
			first |= byte(v >> (8 * i))
			break
		}

		first |= mask
		mask >>= 1
	}

	h.byte(first)
	for ; i > 0; i-- {
		h.byte(byte(v))
		v >>= 8
	}
}

func (h *headerWriter) uint32(v uint32) {
	h.buf = binary.LittleEndian.AppendUint32(h.buf, v)
}

func (h *headerWriter) uint64(v uint64) {
	h.buf = binary.LittleEndian.AppendUint64(h.buf, v)
}

// boolVector writes the bits MSB first, padding the last byte with zeroes.
func (h *headerWriter) boolVector(bits []bool) {
	var b byte
	for i, bit := range bits {
		if bit {
			b |= 0x80 >> (i % 8)
		}

		if i%8 == 7 {
			h.byte(b)
			b = 0
		}
	}

	if len(bits)%8 != 0 {
		h.byte(b)
	}
}

// property writes a FilesInfo property whose size is the length of the given body.
func (h *headerWriter) property(id byte, body *headerWriter) {
	h.byte(id)
	h.number(uint64(len(body.buf)))
	h.bytes(body.buf)
}

func (h *headerWriter) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(h.buf)
	return int64(n), err
}
