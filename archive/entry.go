package archive

import (
	"context"
	"io"
	"io/fs"
	"iter"
	"strings"

	"github.com/nguyengg/hezi/event"
	"github.com/nguyengg/hezi/util"
)

// entry is an archive entry visited by a backend's walk.
type entry struct {
	Entity

	mode fs.FileMode
	// linkname is the target of a symbolic link.
	linkname string
	// rootedLink is true if an absolute linkname is relative to the root of the archive.
	rootedLink bool
	// hidden is true if the archive marks the entry with the hidden attribute.
	hidden bool
	// open returns the decoded contents of a File entry.
	open func() (io.ReadCloser, error)
}

// walkFunc visits the entries of an archive in native order.
//
// A non-nil error paired with a non-nil entry is a failure to read that one entry and the walk continues. A non-nil
// error paired with a nil entry means the archive itself cannot be read any further.
type walkFunc func(ctx context.Context, password string) iter.Seq2[*entry, error]

// listEntries collects the entities visited by walk, reporting per-entry failures to sink.
func listEntries(ctx context.Context, walk walkFunc, password string, sink event.Sink) ([]Entity, error) {
	entities := make([]Entity, 0)

	for e, err := range walk(ctx, password) {
		if err != nil {
			if e == nil {
				return nil, err
			}

			sink.Handle(event.FailedToReadEntry{Name: e.Name, Err: err})
			continue
		}

		entities = append(entities, e.Entity)

		if err = ctx.Err(); err != nil {
			return nil, err
		}
	}

	return entities, nil
}

// openEntry copies the contents of the entry named opts.Path to dst.
//
// Entries are compared after normalising with entryName. Nothing is written to dst if the entry does not exist.
func openEntry(ctx context.Context, walk walkFunc, opts OpenOptions, dst io.Writer) error {
	want := entryName(opts.Path)

	for e, err := range walk(ctx, opts.Password) {
		switch {
		case e == nil && err != nil:
			return err
		case entryName(e.Name) != want:
			continue
		case err != nil:
			return err
		case e.open == nil:
			// directories and symlinks have no contents.
			return nil
		}

		rc, err := e.open()
		if err != nil {
			return err
		}

		_, err = util.CopyBufferWithContext(ctx, dst, rc, nil)
		if cerr := rc.Close(); err == nil {
			err = cerr
		}

		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return &EntryNotFoundError{Path: opts.Path}
}

// entryName normalises the name of an entry for comparison: backslashes become slashes, and leading "./" and trailing
// "/" are removed.
func entryName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	for strings.HasPrefix(name, "./") {
		name = name[2:]
	}

	return strings.TrimSuffix(name, "/")
}
