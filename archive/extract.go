package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nguyengg/hezi/event"
	"github.com/nguyengg/hezi/util"
)

// errUnsafePath is reported for entries whose names or link targets would escape the destination.
var errUnsafePath = errors.New("path escapes the destination directory")

type extractor struct {
	dir string
	// root is dir with symbolic links evaluated.
	root  string
	opts  ExtractOptions
	sink  event.Sink
	files map[string]bool
	dirs  []deferredDir
	buf   []byte
}

// deferredDir is a directory entry whose mode and modification time are applied after all files are extracted.
type deferredDir struct {
	path string
	e    *entry
}

// extractEntries writes the entries visited by walk to opts.Destination.
//
// Files are written to a temporary sibling and renamed into place only after their contents have been fully read, so
// a failed entry never leaves partial contents at its destination. Directories are created with their final mode and
// modification time only after all files have been written.
func extractEntries(ctx context.Context, name string, walk walkFunc, opts ExtractOptions, sink event.Sink) error {
	dir, err := filepath.Abs(opts.Destination)
	if err != nil {
		return &IOError{Op: "resolve", Path: opts.Destination, Err: err}
	}

	if err = os.MkdirAll(dir, 0755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	root, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return &IOError{Op: "resolve", Path: dir, Err: err}
	}

	x := &extractor{
		dir:  dir,
		root: root,
		opts: opts,
		sink: sink,
		buf:  make([]byte, util.DefaultBufferSize),
	}

	if len(opts.Files) != 0 {
		x.files = make(map[string]bool, len(opts.Files))
		for _, f := range opts.Files {
			x.files[entryName(f)] = true
		}
	}

	for e, err := range walk(ctx, opts.Password) {
		if err != nil {
			var perr *PasswordError
			if e == nil || errors.As(err, &perr) {
				return err
			}

			sink.Handle(event.FailedToReadEntry{Name: e.Name, Err: err})
			continue
		}

		if err = x.extract(ctx, e); err != nil {
			return err
		}

		if err = ctx.Err(); err != nil {
			return err
		}
	}

	x.finishDirs()

	sink.Handle(event.DoneExtracting{Name: name, Destination: dir})
	return nil
}

// extract writes a single entry. Only fatal errors such as cancellation are returned.
func (x *extractor) extract(ctx context.Context, e *entry) error {
	name := entryName(e.Name)
	if x.files != nil && !x.files[name] {
		return nil
	}

	dst, err := x.destination(name)
	if err != nil {
		x.sink.Handle(event.FailedToReadEntry{Name: e.Name, Err: err})
		return nil
	}
	if dst == x.dir {
		return nil
	}

	if e.Kind != Directory && !x.opts.Overwrite {
		if _, err = os.Lstat(dst); err == nil {
			x.sink.Handle(event.Skipped{Name: e.Name, Reason: event.AlreadyExists})
			return nil
		}
	}

	if !x.opts.ShowHidden && (e.hidden || isHiddenName(name)) {
		x.sink.Handle(event.Skipped{Name: e.Name, Reason: event.Hidden})
		return nil
	}

	switch e.Kind {
	case Directory:
		x.dirs = append(x.dirs, deferredDir{path: dst, e: e})
		return nil
	case SymbolicLink:
		x.sink.Handle(event.Extracting{Name: e.Name})
		if err = x.symlink(dst, e); err != nil {
			x.sink.Handle(event.FailedToReadEntry{Name: e.Name, Err: err})
		}
		return nil
	case File:
		x.sink.Handle(event.Extracting{Name: e.Name, Size: e.Size})
		if err = x.writeFile(ctx, dst, e); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			// a wrong password fails every other encrypted entry the same way.
			var perr *PasswordError
			if errors.As(err, &perr) {
				return err
			}

			x.sink.Handle(event.FailedToReadEntry{Name: e.Name, Err: err})
		}
		return nil
	default:
		x.sink.Handle(event.Skipped{Name: e.Name, Reason: event.UnknownType})
		return nil
	}
}

// destination returns the path on disk of the entry with the given normalised name.
func (x *extractor) destination(name string) (string, error) {
	if name == "" || name == "." {
		return x.dir, nil
	}

	if path.IsAbs(name) || filepath.IsAbs(filepath.FromSlash(name)) || filepath.VolumeName(filepath.FromSlash(name)) != "" {
		return "", fmt.Errorf(`unsafe entry name "%s": %w`, name, errUnsafePath)
	}

	cleaned := path.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf(`unsafe entry name "%s": %w`, name, errUnsafePath)
	}

	return filepath.Join(x.dir, filepath.FromSlash(cleaned)), nil
}

// checkInside returns errUnsafePath if the deepest existing ancestor of p, p included, resolves to a location outside
// the destination. Symbolic links extracted earlier can otherwise redirect later writes.
func (x *extractor) checkInside(p string) error {
	for cur := p; ; {
		if _, err := os.Lstat(cur); err == nil {
			resolved, err := filepath.EvalSymlinks(cur)
			if err != nil || !within(x.root, resolved) {
				return fmt.Errorf(`unsafe path "%s": %w`, p, errUnsafePath)
			}

			return nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return &IOError{Op: "stat", Path: cur, Err: err}
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil
		}
		cur = parent
	}
}

// mkdirInside creates dir after checking that it stays within the destination.
func (x *extractor) mkdirInside(dir string) error {
	if err := x.checkInside(dir); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	return nil
}

func (x *extractor) writeFile(ctx context.Context, dst string, e *entry) (err error) {
	parent := filepath.Dir(dst)
	if err = x.mkdirInside(parent); err != nil {
		return err
	}

	rc, err := e.open()
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := util.OpenExclFile(parent, "."+filepath.Base(dst), ".part", 0600)
	if err != nil {
		return err
	}

	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err = util.CopyBufferWithContext(ctx, f, rc, x.buf); err != nil {
		return err
	}

	if err = f.Close(); err != nil {
		return &IOError{Op: "close", Path: tmp, Err: err}
	}

	if x.opts.Overwrite {
		if err = os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &IOError{Op: "remove", Path: dst, Err: err}
		}
	}

	if err = os.Rename(tmp, dst); err != nil {
		return &IOError{Op: "rename", Path: dst, Err: err}
	}

	perm := e.mode.Perm()
	if perm == 0 {
		perm = 0644
	}
	if err = os.Chmod(dst, perm); err != nil {
		return &IOError{Op: "chmod", Path: dst, Err: err}
	}

	if e.LastModified != nil {
		if err = os.Chtimes(dst, *e.LastModified, *e.LastModified); err != nil {
			return &IOError{Op: "chtimes", Path: dst, Err: err}
		}
	}

	return nil
}

// symlink recreates a symbolic link whose target is relative to the link's own directory.
//
// Absolute targets are only accepted from entries with rootedLink set, in which case they are rebased onto the
// destination and written as relative links. The target is followed one element at a time, through any link already
// on disk, and must never leave the destination.
func (x *extractor) symlink(dst string, e *entry) error {
	target := filepath.FromSlash(e.linkname)
	if target == "" {
		return fmt.Errorf("symbolic link has no target")
	}

	parent := filepath.Dir(dst)
	if filepath.IsAbs(target) {
		if !e.rootedLink {
			return fmt.Errorf(`unsafe link target "%s": %w`, e.linkname, errUnsafePath)
		}

		rel, err := filepath.Rel(parent, filepath.Join(x.dir, target))
		if err != nil {
			return fmt.Errorf(`unsafe link target "%s": %w`, e.linkname, errUnsafePath)
		}
		target = rel
	}

	if err := x.mkdirInside(parent); err != nil {
		return err
	}

	resolved, err := filepath.EvalSymlinks(parent)
	if err != nil {
		return &IOError{Op: "resolve", Path: parent, Err: err}
	}
	if !x.linkInside(resolved, target) {
		return fmt.Errorf(`unsafe link target "%s": %w`, e.linkname, errUnsafePath)
	}

	if x.opts.Overwrite {
		if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &IOError{Op: "remove", Path: dst, Err: err}
		}
	}

	if err := os.Symlink(target, dst); err != nil {
		return &IOError{Op: "symlink", Path: dst, Err: err}
	}

	return nil
}

// linkInside returns true if the relative target, followed from the resolved directory dir, stays within the
// destination at every step.
func (x *extractor) linkInside(dir, target string) bool {
	cur := dir
	for _, elem := range strings.Split(target, string(filepath.Separator)) {
		switch elem {
		case "", ".":
			continue
		case "..":
			cur = filepath.Dir(cur)
		default:
			cur = filepath.Join(cur, elem)
			if fi, err := os.Lstat(cur); err == nil && fi.Mode()&fs.ModeSymlink != 0 {
				resolved, err := filepath.EvalSymlinks(cur)
				if err != nil {
					return false
				}
				cur = resolved
			}
		}

		if !within(x.root, cur) {
			return false
		}
	}

	return true
}

// within returns true if p is root or a descendant of root.
func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// finishDirs creates the deferred directories, then applies their modes and modification times deepest first so that
// creating or touching a child never changes its parent afterwards.
func (x *extractor) finishDirs() {
	dirs := x.dirs[:0]
	for _, d := range x.dirs {
		if err := x.mkdirInside(d.path); err != nil {
			x.sink.Handle(event.FailedToReadEntry{Name: d.e.Name, Err: err})
			continue
		}

		x.sink.Handle(event.Created{Name: d.e.Name, Kind: Directory.String()})
		dirs = append(dirs, d)
	}
	x.dirs = dirs

	slices.SortStableFunc(x.dirs, func(a, b deferredDir) int {
		return strings.Count(b.path, string(filepath.Separator)) - strings.Count(a.path, string(filepath.Separator))
	})

	for _, d := range x.dirs {
		if perm := d.e.mode.Perm(); perm != 0 {
			if err := os.Chmod(d.path, perm|0700); err != nil {
				x.sink.Handle(event.FailedToReadEntry{Name: d.e.Name, Err: &IOError{Op: "chmod", Path: d.path, Err: err}})
				continue
			}
		}

		if d.e.LastModified != nil {
			if err := os.Chtimes(d.path, *d.e.LastModified, *d.e.LastModified); err != nil {
				x.sink.Handle(event.FailedToReadEntry{Name: d.e.Name, Err: &IOError{Op: "chtimes", Path: d.path, Err: err}})
			}
		}
	}
}

// isHiddenName returns true if any element of the slash-separated name starts with a dot.
func isHiddenName(name string) bool {
	for _, elem := range strings.Split(name, "/") {
		if strings.HasPrefix(elem, ".") && elem != "." && elem != ".." {
			return true
		}
	}

	return false
}
