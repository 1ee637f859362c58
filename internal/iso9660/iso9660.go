// Package iso9660 reads ISO9660 images with the Joliet and Rock Ridge extensions.
//
// Only what is needed to list and read files is parsed: the primary and Joliet volume descriptors, directory records,
// and the SUSP entries NM, SL, PX, TF, CE, CL, and RE. Rock Ridge names take precedence over Joliet names, which take
// precedence over the plain ISO9660 names.
package iso9660

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// SectorSize is the size of a volume descriptor; the system area occupies the first 16 sectors.
const SectorSize = 2048

const (
	typePrimary       = 1
	typeSupplementary = 2
	typeTerminator    = 255

	maxDescriptors = 64
)

var standardIdentifier = []byte("CD001")

// ErrNotISO9660 is returned by Open when no primary volume descriptor can be found.
var ErrNotISO9660 = errors.New("iso9660: no primary volume descriptor")

// VolumeDescriptor has the identifiers of a primary or supplementary volume descriptor.
type VolumeDescriptor struct {
	SystemIdentifier            string
	VolumeIdentifier            string
	VolumeSetIdentifier         string
	PublisherIdentifier         string
	DataPreparerIdentifier      string
	ApplicationIdentifier       string
	CopyrightFileIdentifier     string
	AbstractFileIdentifier      string
	BibliographicFileIdentifier string
	VolumeSpaceSize             uint32
	LogicalBlockSize            uint16

	root   record
	joliet bool
}

// Image is an opened ISO9660 image.
type Image struct {
	// Primary is the primary volume descriptor.
	Primary *VolumeDescriptor
	// Joliet is the Joliet supplementary volume descriptor if the image has one.
	Joliet *VolumeDescriptor
	// RockRidge is true if the primary directory hierarchy has Rock Ridge entries.
	RockRidge bool

	r io.ReaderAt
	// suspSkip is the number of bytes to skip at the start of every system use area, from the SP entry.
	suspSkip int
}

// Open parses the volume descriptors of the image.
func Open(r io.ReaderAt) (*Image, error) {
	img := &Image{r: r}

	sector := make([]byte, SectorSize)
	for i := 0; i < maxDescriptors; i++ {
		if _, err := r.ReadAt(sector, int64(16+i)*SectorSize); err != nil {
			return nil, fmt.Errorf("iso9660: read volume descriptor %d error: %w", i, err)
		}

		if !bytes.Equal(sector[1:6], standardIdentifier) {
			return nil, fmt.Errorf("iso9660: invalid volume descriptor %d", i)
		}

		switch sector[0] {
		case typePrimary:
			if img.Primary == nil {
				vd, err := parseVolumeDescriptor(sector, false)
				if err != nil {
					return nil, err
				}
				img.Primary = vd
			}
		case typeSupplementary:
			if img.Joliet == nil && isJoliet(sector[88:120]) {
				vd, err := parseVolumeDescriptor(sector, true)
				if err != nil {
					return nil, err
				}
				img.Joliet = vd
			}
		case typeTerminator:
			i = maxDescriptors
		}
	}

	if img.Primary == nil {
		return nil, ErrNotISO9660
	}

	if err := img.detectRockRidge(); err != nil {
		return nil, err
	}

	return img, nil
}

// BlockSize returns the logical block size of the primary volume.
func (img *Image) BlockSize() int {
	return int(img.Primary.LogicalBlockSize)
}

func parseVolumeDescriptor(b []byte, joliet bool) (*VolumeDescriptor, error) {
	str := aString
	if joliet {
		str = jolietString
	}

	vd := &VolumeDescriptor{
		SystemIdentifier:            str(b[8:40]),
		VolumeIdentifier:            str(b[40:72]),
		VolumeSpaceSize:             binary.LittleEndian.Uint32(b[80:84]),
		LogicalBlockSize:            binary.LittleEndian.Uint16(b[128:130]),
		VolumeSetIdentifier:         str(b[190:318]),
		PublisherIdentifier:         str(b[318:446]),
		DataPreparerIdentifier:      str(b[446:574]),
		ApplicationIdentifier:       str(b[574:702]),
		CopyrightFileIdentifier:     str(b[702:739]),
		AbstractFileIdentifier:      str(b[739:776]),
		BibliographicFileIdentifier: str(b[776:813]),
		joliet:                      joliet,
	}

	switch vd.LogicalBlockSize {
	case 512, 1024, 2048:
	default:
		return nil, fmt.Errorf("iso9660: invalid logical block size %d", vd.LogicalBlockSize)
	}

	root, err := parseRecord(b[156:190])
	if err != nil {
		return nil, fmt.Errorf("iso9660: invalid root directory record: %w", err)
	}
	vd.root = root

	return vd, nil
}

// isJoliet checks the escape sequences of a supplementary volume descriptor for UCS-2 level 1, 2, or 3.
func isJoliet(escapes []byte) bool {
	for _, seq := range []string{"%/@", "%/C", "%/E"} {
		if bytes.HasPrefix(escapes, []byte(seq)) {
			return true
		}
	}

	return false
}

// aString trims the space padding of an a-characters or d-characters field.
func aString(b []byte) string {
	return strings.TrimRight(string(b), " \x00")
}

var jolietDecoder = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// jolietString decodes a UCS-2 big-endian field.
func jolietString(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}

	s, err := jolietDecoder.NewDecoder().Bytes(b)
	if err != nil {
		return aString(b)
	}

	return strings.TrimRight(string(s), " \x00")
}
