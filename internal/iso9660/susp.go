package iso9660

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// maxContinuations bounds the CE chain of a single system use area.
const maxContinuations = 16

// rockRidge has the Rock Ridge entries of one directory record.
type rockRidge struct {
	name      string
	mode      uint32
	hasMode   bool
	linkname  string
	isLink    bool
	modified  time.Time
	childLink uint32
	isChild   bool
	relocated bool
}

// detectRockRidge looks for the SP entry in the "." record of the primary root directory, then for any entry that
// indicates Rock Ridge.
func (img *Image) detectRockRidge() error {
	root := img.Primary.root
	records, err := img.readDirectory(root.extent, root.size)
	if err != nil {
		return err
	}
	if len(records) == 0 || !records[0].isSelfOrParent() {
		return nil
	}

	su := records[0].systemUse
	if len(su) < 7 || string(su[0:2]) != "SP" || su[4] != 0xbe || su[5] != 0xef {
		return nil
	}
	img.suspSkip = int(su[6])

	return img.eachEntry(su, func(sig string, _ []byte) bool {
		switch sig {
		case "ER", "RR", "PX", "NM":
			img.RockRidge = true
			return false
		}
		return true
	})
}

// eachEntry calls fn with the signature and bytes of every SUSP entry, following CE continuation areas.
//
// The entry bytes include the 4-byte header. Iteration stops when fn returns false or at the ST terminator.
func (img *Image) eachEntry(su []byte, fn func(sig string, b []byte) bool) error {
	for i := 0; su != nil; i++ {
		if i > maxContinuations {
			return fmt.Errorf("too many continuation areas")
		}

		var next []byte
		for len(su) >= 4 {
			n := int(su[2])
			if n < 4 || n > len(su) {
				break
			}

			b := su[:n]
			su = su[n:]

			switch sig := string(b[0:2]); sig {
			case "ST":
				su = nil
			case "CE":
				if n < 28 {
					continue
				}

				block := binary.LittleEndian.Uint32(b[4:8])
				offset := binary.LittleEndian.Uint32(b[12:16])
				length := binary.LittleEndian.Uint32(b[20:24])
				if length > uint32(img.BlockSize()) {
					return fmt.Errorf("invalid continuation area length %d", length)
				}

				next = make([]byte, length)
				if _, err := img.r.ReadAt(next, int64(block)*int64(img.BlockSize())+int64(offset)); err != nil {
					return fmt.Errorf("read continuation area error: %w", err)
				}
			default:
				if !fn(sig, b) {
					return nil
				}
			}
		}

		su = next
	}

	return nil
}

// rockRidge parses the Rock Ridge entries of the record.
func (img *Image) rockRidge(r record) (rr rockRidge, err error) {
	su := r.systemUse
	if len(su) < img.suspSkip {
		return rr, nil
	}
	su = su[img.suspSkip:]

	var name, link strings.Builder
	var linkContinues bool

	err = img.eachEntry(su, func(sig string, b []byte) bool {
		switch sig {
		case "NM":
			if len(b) < 5 {
				break
			}
			// CURRENT and PARENT flags only apply to "." and "..", which are never returned.
			if b[4]&0x06 == 0 {
				name.Write(b[5:])
			}
		case "PX":
			if len(b) < 12 {
				break
			}
			rr.mode = binary.LittleEndian.Uint32(b[4:8])
			rr.hasMode = true
		case "SL":
			if len(b) < 5 {
				break
			}
			rr.isLink = true
			linkContinues = appendSymlink(&link, b[5:], linkContinues)
		case "TF":
			rr.modified = modifyTime(b)
		case "CL":
			if len(b) < 8 {
				break
			}
			rr.childLink = binary.LittleEndian.Uint32(b[4:8])
			rr.isChild = true
		case "RE":
			rr.relocated = true
		}

		return true
	})

	rr.name = name.String()
	rr.linkname = link.String()
	return rr, err
}

// appendSymlink appends the component records of one SL entry to the link target.
//
// continues is true if the last component of the previous SL entry had the CONTINUE flag set, in which case the first
// component here is concatenated to it. The return value is the same for the last component of this entry.
func appendSymlink(sb *strings.Builder, b []byte, continues bool) bool {
	for len(b) >= 2 {
		flags, n := b[0], int(b[1])
		if 2+n > len(b) {
			break
		}
		content := b[2 : 2+n]
		b = b[2+n:]

		if sb.Len() != 0 && !continues && !strings.HasSuffix(sb.String(), "/") {
			sb.WriteByte('/')
		}

		switch {
		case flags&0x02 != 0:
			sb.WriteByte('.')
		case flags&0x04 != 0:
			sb.WriteString("..")
		case flags&0x08 != 0:
			sb.WriteByte('/')
		default:
			sb.Write(content)
		}

		continues = flags&0x01 != 0
	}

	return continues
}

// modifyTime returns the modification time of a TF entry.
//
// Timestamps are recorded in the order of their flag bits: creation, modify, access, and so on.
func modifyTime(b []byte) time.Time {
	if len(b) < 5 {
		return time.Time{}
	}

	flags := b[4]
	if flags&0x02 == 0 {
		return time.Time{}
	}

	size := 7
	if flags&0x80 != 0 {
		size = 17
	}

	off := 5
	if flags&0x01 != 0 {
		off += size
	}
	if off+size > len(b) {
		return time.Time{}
	}

	if size == 17 {
		return decimalTime(b[off : off+size])
	}
	return recordingTime(b[off : off+size])
}
