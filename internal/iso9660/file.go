package iso9660

import (
	"fmt"
	"io"
	"io/fs"
	"iter"
	"path"
	"strings"
	"time"
)

// maxDepth bounds the directory hierarchy; Rock Ridge relocation allows going past the 8 levels of plain ISO9660.
const maxDepth = 255

// File is a file, directory, or symbolic link of the image.
type File struct {
	// Name is the slash-separated path relative to the root directory.
	Name     string
	Size     int64
	Modified time.Time
	// Mode has the type bits and permissions. Permissions are only known for Rock Ridge images.
	Mode fs.FileMode
	// Linkname is the target of a Rock Ridge symbolic link.
	Linkname string
	// Hidden is the existence bit of the directory record.
	Hidden bool

	img     *Image
	extents []record
}

// IsDir reports whether the file is a directory.
func (f *File) IsDir() bool {
	return f.Mode.IsDir()
}

// Open returns the contents of the file.
func (f *File) Open() io.Reader {
	bs := int64(f.img.BlockSize())

	rs := make([]io.Reader, 0, len(f.extents))
	for _, r := range f.extents {
		rs = append(rs, io.NewSectionReader(f.img.r, int64(r.extent)*bs, int64(r.size)))
	}

	if len(rs) == 1 {
		return rs[0]
	}
	return io.MultiReader(rs...)
}

// Files returns all files of the image in pre-order, skipping the "." and ".." records.
//
// The Rock Ridge hierarchy is used if present, then the Joliet one. If a directory cannot be read, the directory is
// returned along with the error and iteration continues with its siblings. A nil File with an error means the root
// directory cannot be read.
func (img *Image) Files() iter.Seq2[*File, error] {
	vd := img.Primary
	if !img.RockRidge && img.Joliet != nil {
		vd = img.Joliet
	}

	return func(yield func(*File, error) bool) {
		w := &walker{img: img, joliet: vd.joliet, visited: map[uint32]bool{vd.root.extent: true}, yield: yield}

		records, err := img.readDirectory(vd.root.extent, vd.root.size)
		if err != nil {
			yield(nil, err)
			return
		}

		w.walk("", records, 0)
	}
}

type walker struct {
	img     *Image
	joliet  bool
	visited map[uint32]bool
	yield   func(*File, error) bool
}

// walk returns false if iteration should stop.
func (w *walker) walk(dir string, records []record, depth int) bool {
	var pending []record
	for _, r := range records {
		if r.isSelfOrParent() {
			continue
		}

		if r.flags&flagMultiExtent != 0 && !r.isDir() {
			pending = append(pending, r)
			continue
		}
		extents := append(pending, r)
		pending = nil

		f, err := w.newFile(dir, extents)
		if err != nil {
			if !w.yield(f, err) {
				return false
			}
			continue
		}
		if f == nil {
			continue
		}

		if !f.IsDir() {
			if !w.yield(f, nil) {
				return false
			}
			continue
		}

		if !w.yield(f, nil) {
			return false
		}

		dr := f.extents[0]
		switch {
		case depth >= maxDepth:
			err = fmt.Errorf(`directory "%s" is nested too deeply`, f.Name)
		case w.visited[dr.extent]:
			err = fmt.Errorf(`directory "%s": %w`, f.Name, errLoop)
		default:
			w.visited[dr.extent] = true

			var children []record
			if children, err = w.img.readDirectory(dr.extent, dr.size); err == nil {
				if !w.walk(f.Name, children, depth+1) {
					return false
				}
				continue
			}
		}

		if !w.yield(f, err) {
			return false
		}
	}

	return true
}

// newFile returns nil without error if the record should not be returned, e.g. relocated directories.
func (w *walker) newFile(dir string, extents []record) (*File, error) {
	last := extents[len(extents)-1]

	f := &File{
		Name:     path.Join(dir, w.name(last)),
		Modified: last.recorded,
		Hidden:   last.flags&flagHidden != 0,
		img:      w.img,
		extents:  extents,
	}
	for _, r := range extents {
		f.Size += int64(r.size)
	}

	if last.isDir() {
		f.Mode = fs.ModeDir | 0o755
		f.Size = 0
	} else {
		f.Mode = 0o644
	}

	if w.joliet || !w.img.RockRidge {
		return f, nil
	}

	rr, err := w.img.rockRidge(last)
	if err != nil {
		return f, err
	}
	if rr.relocated {
		return nil, nil
	}

	if rr.name != "" {
		f.Name = path.Join(dir, rr.name)
	}
	if !rr.modified.IsZero() {
		f.Modified = rr.modified
	}
	if rr.hasMode {
		f.Mode = posixMode(rr.mode)
	}

	switch {
	case rr.isLink:
		f.Mode = fs.ModeSymlink | f.Mode.Perm()
		f.Linkname = rr.linkname
		f.Size = 0
	case rr.isChild:
		dr, err := w.img.directoryAt(rr.childLink)
		if err != nil {
			return f, err
		}
		f.Mode = fs.ModeDir | f.Mode.Perm()
		f.Size = 0
		f.extents = []record{dr}
	}

	return f, nil
}

// name returns the Joliet or ISO9660 name of the record, without the version suffix.
func (w *walker) name(r record) string {
	var name string
	if w.joliet {
		name = jolietString(r.identifier)
	} else {
		name = string(r.identifier)
	}

	if r.isDir() {
		return name
	}

	if i := strings.LastIndexByte(name, ';'); i != -1 {
		name = name[:i]
	}
	if len(name) > 1 && name[len(name)-1] == '.' {
		name = name[:len(name)-1]
	}

	return name
}

// directoryAt returns the "." record of the directory starting at the given extent, which has the directory's size.
func (img *Image) directoryAt(extent uint32) (record, error) {
	b := make([]byte, img.BlockSize())
	if _, err := img.r.ReadAt(b, int64(extent)*int64(img.BlockSize())); err != nil {
		return record{}, fmt.Errorf("read directory at extent %d error: %w", extent, err)
	}

	r, err := parseRecord(b)
	if err != nil {
		return record{}, err
	}
	if !r.isSelfOrParent() {
		return record{}, fmt.Errorf("extent %d is not a directory", extent)
	}

	return r, nil
}

// posixMode converts the st_mode of a PX entry.
func posixMode(mode uint32) fs.FileMode {
	const (
		sIFMT  = 0o170000
		sIFDIR = 0o040000
		sIFLNK = 0o120000
		sIFREG = 0o100000
	)

	m := fs.FileMode(mode & 0o777)
	switch mode & sIFMT {
	case sIFDIR:
		m |= fs.ModeDir
	case sIFLNK:
		m |= fs.ModeSymlink
	case sIFREG:
	default:
		m |= fs.ModeIrregular
	}

	return m
}
