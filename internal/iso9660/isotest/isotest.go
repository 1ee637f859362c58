// Package isotest builds small ISO9660 images for tests.
//
// Images have a primary volume descriptor, optionally with Rock Ridge entries, then either a Joliet supplementary
// volume descriptor or an empty boot record, then the terminator. Three descriptors are always written since archive
// detection looks for all three. Path tables are not written.
package isotest

import (
	"encoding/binary"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
	"unicode/utf16"
)

const blockSize = 2048

// Entry is a file, directory, or symbolic link to put in the image. Missing parent directories are created.
type Entry struct {
	// Name is the slash-separated path.
	Name     string
	Data     []byte
	Dir      bool
	Linkname string
	Mode     fs.FileMode
	Modified time.Time
	Hidden   bool
}

// Options customises Build.
type Options struct {
	RockRidge bool
	Joliet    bool

	SystemIdentifier       string
	VolumeIdentifier       string
	VolumeSetIdentifier    string
	PublisherIdentifier    string
	DataPreparerIdentifier string
	ApplicationIdentifier  string
}

type node struct {
	Entry
	base     string
	children []*node

	// extent and size per hierarchy; files share theirs.
	extent [2]uint32
	size   [2]uint32
}

// Build returns the image containing the given entries.
func Build(entries []Entry, opts Options) []byte {
	root := &node{Entry: Entry{Dir: true, Mode: fs.ModeDir | 0o755}}
	for _, e := range entries {
		add(root, e)
	}
	sortTree(root)

	hierarchies := 1
	if opts.Joliet {
		hierarchies = 2
	}

	next := uint32(16 + 3)

	var dirs, files []*node
	walk(root, func(n *node) {
		if n.Dir {
			dirs = append(dirs, n)
		} else if n.Linkname == "" {
			files = append(files, n)
		}
	})

	b := &builder{opts: opts}
	for h := 0; h < hierarchies; h++ {
		for _, d := range dirs {
			d.size[h] = b.directorySize(d, h)
			d.extent[h] = next
			next += d.size[h] / blockSize
		}
	}

	for _, f := range files {
		if len(f.Data) == 0 {
			continue
		}
		f.extent[0], f.extent[1] = next, next
		f.size[0], f.size[1] = uint32(len(f.Data)), uint32(len(f.Data))
		next += (uint32(len(f.Data)) + blockSize - 1) / blockSize
	}

	img := make([]byte, int(next)*blockSize)

	pvd := img[16*blockSize : 17*blockSize]
	b.volumeDescriptor(pvd, 1, root, 0, next)
	if opts.Joliet {
		svd := img[17*blockSize : 18*blockSize]
		b.volumeDescriptor(svd, 2, root, 1, next)
		copy(svd[88:], "%/E")
	} else {
		boot := img[17*blockSize : 18*blockSize]
		copy(boot[1:6], "CD001")
		boot[6] = 1
	}
	term := img[18*blockSize:]
	term[0] = 255
	copy(term[1:6], "CD001")
	term[6] = 1

	for h := 0; h < hierarchies; h++ {
		for _, d := range dirs {
			b.writeDirectory(img[d.extent[h]*blockSize:], d, h, root)
		}
	}

	for _, f := range files {
		copy(img[f.extent[0]*blockSize:], f.Data)
	}

	return img
}

func add(root *node, e Entry) {
	parts := strings.Split(strings.Trim(e.Name, "/"), "/")
	parent := root
	for i, part := range parts {
		var child *node
		for _, c := range parent.children {
			if c.base == part {
				child = c
				break
			}
		}

		if i == len(parts)-1 {
			if child == nil {
				child = &node{base: part}
				parent.children = append(parent.children, child)
			}
			child.Entry = e
			if child.Mode == 0 {
				switch {
				case e.Dir:
					child.Mode = fs.ModeDir | 0o755
				case e.Linkname != "":
					child.Mode = fs.ModeSymlink | 0o777
				default:
					child.Mode = 0o644
				}
			}
			return
		}

		if child == nil {
			child = &node{base: part, Entry: Entry{Name: path.Join(parent.Name, part), Dir: true, Mode: fs.ModeDir | 0o755}}
			parent.children = append(parent.children, child)
		}
		parent = child
	}
}

func sortTree(n *node) {
	slices.SortFunc(n.children, func(a, b *node) int {
		return strings.Compare(a.base, b.base)
	})
	for _, c := range n.children {
		sortTree(c)
	}
}

func walk(n *node, fn func(*node)) {
	fn(n)
	for _, c := range n.children {
		walk(c, fn)
	}
}

type builder struct {
	opts Options
}

func (b *builder) directorySize(d *node, h int) uint32 {
	var size, used uint32
	add := func(n int) {
		if used+uint32(n) > blockSize {
			size += blockSize
			used = 0
		}
		used += uint32(n)
	}

	add(len(b.record(d, h, []byte{0}, true)))
	add(len(b.record(d, h, []byte{1}, false)))
	for _, c := range d.children {
		add(len(b.record(c, h, b.identifier(c, h), false)))
	}

	return size + blockSize
}

func (b *builder) writeDirectory(dst []byte, d *node, h int, root *node) {
	parent := root
	if d != root {
		walk(root, func(n *node) {
			for _, c := range n.children {
				if c == d {
					parent = n
				}
			}
		})
	}

	var off int
	write := func(rec []byte) {
		if off%blockSize+len(rec) > blockSize {
			off = (off/blockSize + 1) * blockSize
		}
		copy(dst[off:], rec)
		off += len(rec)
	}

	self := b.record(d, h, []byte{0}, d == root)
	write(self)

	dotdot := b.record(parent, h, []byte{1}, false)
	write(dotdot)

	for _, c := range d.children {
		write(b.record(c, h, b.identifier(c, h), false))
	}
}

func (b *builder) identifier(n *node, h int) []byte {
	name := n.base
	if h == 1 {
		if !n.Dir {
			name += ";1"
		}
		u := utf16.Encode([]rune(name))
		id := make([]byte, 0, 2*len(u))
		for _, v := range u {
			id = binary.BigEndian.AppendUint16(id, v)
		}
		return id
	}

	name = strings.ToUpper(name)
	if !n.Dir {
		name += ";1"
	}
	return []byte(name)
}

// record encodes the directory record of n. rootSelf adds the SP and ER entries of the root "." record.
func (b *builder) record(n *node, h int, id []byte, rootSelf bool) []byte {
	r := make([]byte, 33, 255)
	r = append(r, id...)
	if len(id)%2 == 0 {
		r = append(r, 0)
	}

	if h == 0 && b.opts.RockRidge {
		if rootSelf {
			r = append(r, 'S', 'P', 7, 1, 0xbe, 0xef, 0)
			r = append(r, 'E', 'R', byte(8+len("RRIP_1991A")), 1, byte(len("RRIP_1991A")), 0, 0, 1)
			r = append(r, "RRIP_1991A"...)
		}
		r = append(r, b.rockRidge(n, id)...)
	}

	r[0] = byte(len(r))
	binary.LittleEndian.PutUint32(r[2:], n.extent[h])
	binary.BigEndian.PutUint32(r[6:], n.extent[h])
	binary.LittleEndian.PutUint32(r[10:], n.size[h])
	binary.BigEndian.PutUint32(r[14:], n.size[h])
	putTime(r[18:25], n.Modified)
	if n.Dir {
		r[25] |= 0x02
	}
	if n.Hidden {
		r[25] |= 0x01
	}
	binary.LittleEndian.PutUint16(r[28:], 1)
	binary.BigEndian.PutUint16(r[30:], 1)
	r[32] = byte(len(id))

	return r
}

func (b *builder) rockRidge(n *node, id []byte) []byte {
	var su []byte

	if len(id) != 1 || id[0] > 1 {
		su = append(su, 'N', 'M', byte(5+len(n.base)), 1, 0)
		su = append(su, n.base...)
	}

	mode := uint32(n.Mode.Perm())
	switch {
	case n.Dir:
		mode |= 0o040000
	case n.Linkname != "":
		mode |= 0o120000
	default:
		mode |= 0o100000
	}
	px := []byte{'P', 'X', 36, 1}
	px = appendBoth32(px, mode)
	px = appendBoth32(px, 1)
	px = appendBoth32(px, 0)
	px = appendBoth32(px, 0)
	su = append(su, px...)

	if !n.Modified.IsZero() {
		tf := []byte{'T', 'F', 12, 1, 0x02, 0, 0, 0, 0, 0, 0, 0}
		putTime(tf[5:], n.Modified)
		su = append(su, tf...)
	}

	if n.Linkname != "" {
		var components []byte
		target := n.Linkname
		if strings.HasPrefix(target, "/") {
			components = append(components, 0x08, 0)
			target = strings.TrimPrefix(target, "/")
		}
		for _, part := range strings.Split(target, "/") {
			switch part {
			case "":
			case ".":
				components = append(components, 0x02, 0)
			case "..":
				components = append(components, 0x04, 0)
			default:
				components = append(components, 0, byte(len(part)))
				components = append(components, part...)
			}
		}
		su = append(su, 'S', 'L', byte(5+len(components)), 1, 0)
		su = append(su, components...)
	}

	return su
}

func (b *builder) volumeDescriptor(dst []byte, typ byte, root *node, h int, blocks uint32) {
	dst[0] = typ
	copy(dst[1:6], "CD001")
	dst[6] = 1

	str := func(field []byte, s string) {
		if h == 1 {
			u := utf16.Encode([]rune(s))
			for i := 0; i+1 < len(field); i += 2 {
				v := uint16(' ')
				if i/2 < len(u) {
					v = u[i/2]
				}
				binary.BigEndian.PutUint16(field[i:], v)
			}
			return
		}

		for i := range field {
			field[i] = ' '
		}
		copy(field, s)
	}

	str(dst[8:40], b.opts.SystemIdentifier)
	str(dst[40:72], b.opts.VolumeIdentifier)
	binary.LittleEndian.PutUint32(dst[80:], blocks)
	binary.BigEndian.PutUint32(dst[84:], blocks)
	binary.LittleEndian.PutUint16(dst[120:], 1)
	binary.BigEndian.PutUint16(dst[122:], 1)
	binary.LittleEndian.PutUint16(dst[124:], 1)
	binary.BigEndian.PutUint16(dst[126:], 1)
	binary.LittleEndian.PutUint16(dst[128:], blockSize)
	binary.BigEndian.PutUint16(dst[130:], blockSize)

	rec := b.record(root, h, []byte{0}, false)
	copy(dst[156:190], rec[:34])
	dst[156] = 34

	str(dst[190:318], b.opts.VolumeSetIdentifier)
	str(dst[318:446], b.opts.PublisherIdentifier)
	str(dst[446:574], b.opts.DataPreparerIdentifier)
	str(dst[574:702], b.opts.ApplicationIdentifier)
	str(dst[702:739], "")
	str(dst[739:776], "")
	str(dst[776:813], "")
	dst[881] = 1
}

func appendBoth32(b []byte, v uint32) []byte {
	b = binary.LittleEndian.AppendUint32(b, v)
	return binary.BigEndian.AppendUint32(b, v)
}

func putTime(dst []byte, t time.Time) {
	if t.IsZero() {
		return
	}

	t = t.UTC()
	dst[0] = byte(t.Year() - 1900)
	dst[1] = byte(t.Month())
	dst[2] = byte(t.Day())
	dst[3] = byte(t.Hour())
	dst[4] = byte(t.Minute())
	dst[5] = byte(t.Second())
	dst[6] = 0
}
