package iso9660

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	flagHidden      = 0x01
	flagDirectory   = 0x02
	flagMultiExtent = 0x80

	minRecordSize = 34
)

// record is a parsed directory record.
type record struct {
	extent     uint32
	size       uint32
	recorded   time.Time
	flags      byte
	identifier []byte
	systemUse  []byte
}

func (r record) isDir() bool {
	return r.flags&flagDirectory != 0
}

// isSelfOrParent is true for the "." and ".." records.
func (r record) isSelfOrParent() bool {
	return len(r.identifier) == 1 && (r.identifier[0] == 0 || r.identifier[0] == 1)
}

func parseRecord(b []byte) (record, error) {
	if len(b) < minRecordSize {
		return record{}, fmt.Errorf("record too short (%d bytes)", len(b))
	}

	n := int(b[0])
	if n < minRecordSize || n > len(b) {
		return record{}, fmt.Errorf("invalid record length %d", n)
	}

	idLen := int(b[32])
	if 33+idLen > n {
		return record{}, fmt.Errorf("invalid identifier length %d", idLen)
	}

	r := record{
		extent:     binary.LittleEndian.Uint32(b[2:6]),
		size:       binary.LittleEndian.Uint32(b[10:14]),
		recorded:   recordingTime(b[18:25]),
		flags:      b[25],
		identifier: b[33 : 33+idLen],
	}

	// a padding byte follows identifiers of even length.
	su := 33 + idLen
	if idLen%2 == 0 {
		su++
	}
	if su < n {
		r.systemUse = b[su:n]
	}

	return r, nil
}

// recordingTime parses the 7-byte date and time of a directory record or a short-form TF timestamp.
func recordingTime(b []byte) time.Time {
	if b[0] == 0 && b[1] == 0 && b[2] == 0 {
		return time.Time{}
	}

	loc := time.FixedZone("", int(int8(b[6]))*15*60)
	return time.Date(1900+int(b[0]), time.Month(b[1]), int(b[2]), int(b[3]), int(b[4]), int(b[5]), 0, loc)
}

// decimalTime parses the 17-byte "YYYYMMDDHHMMSScc" date and time of a long-form TF timestamp.
func decimalTime(b []byte) time.Time {
	digits := string(b[:16])
	if strings.Trim(digits, "0") == "" {
		return time.Time{}
	}

	field := func(i, j int) int {
		v, _ := strconv.Atoi(digits[i:j])
		return v
	}

	loc := time.FixedZone("", int(int8(b[16]))*15*60)
	return time.Date(field(0, 4), time.Month(field(4, 6)), field(6, 8), field(8, 10), field(10, 12), field(12, 14),
		field(14, 16)*10_000_000, loc)
}

// readDirectory reads all records of the directory with the given extent and size.
//
// Records never cross a logical block boundary; a zero length byte means the rest of the block is padding.
func (img *Image) readDirectory(extent, size uint32) ([]record, error) {
	if size > maxDirectorySize {
		return nil, fmt.Errorf("directory at extent %d is too large (%d bytes)", extent, size)
	}

	data := make([]byte, size)
	if _, err := img.r.ReadAt(data, int64(extent)*int64(img.BlockSize())); err != nil {
		return nil, fmt.Errorf("read directory at extent %d error: %w", extent, err)
	}

	bs := img.BlockSize()
	var records []record
	for off := 0; off < len(data); {
		if data[off] == 0 {
			off = (off/bs + 1) * bs
			continue
		}

		r, err := parseRecord(data[off:])
		if err != nil {
			return records, fmt.Errorf("invalid record at offset %d of extent %d: %w", off, extent, err)
		}

		records = append(records, r)
		off += int(data[off])
	}

	return records, nil
}

const maxDirectorySize = 64 << 20

var errLoop = errors.New("directory loop detected")
