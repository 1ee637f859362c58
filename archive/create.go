package archive

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/event"
	"golang.org/x/sync/errgroup"
)

// Create writes a new archive at opts.Destination from the files on disk.
//
// The container type defaults to the one guessed from the destination's name, as does the compression for names such
// as "backup.tar.gz" or "backup.tar" (codec.None). A tar archive whose compression is decided by neither its name nor
// opts.Compression returns ErrCompressionMethodRequired; zip archives default to codec.Deflate and 7z archives to
// codec.Lzma. ISO images cannot be created.
//
// An existing destination is only replaced if opts.Overwrite is true; otherwise the returned *IOError wraps
// fs.ErrExist. The destination is removed if creation fails midway.
func Create(ctx context.Context, opts CreateOptions, sink event.Sink) (*CreateResult, error) {
	sink = sinkOrDiscard(sink)

	if opts.Type == "" {
		t, c, err := GuessFromFilename(opts.Destination)
		if err != nil {
			return nil, err
		}

		opts.Type = t
		if opts.Compression == "" {
			opts.Compression = c
		}
	}

	f, ok := formats[opts.Type]
	if !ok || f.creator == nil {
		return nil, &UnsupportedActionError{Action: "create", Type: opts.Type}
	}

	if opts.Compression == "" {
		switch opts.Type {
		case Zip:
			opts.Compression = codec.Deflate
		case SevenZ:
			opts.Compression = codec.Lzma
		default:
			return nil, ErrCompressionMethodRequired
		}
	}

	if opts.Level != nil {
		if err := opts.Compression.ValidateLevel(*opts.Level); err != nil {
			return nil, err
		}
	}

	inputs, err := gatherInputs(ctx, opts)
	if err != nil {
		return nil, err
	}

	included := inputs[:0]
	hiddenDirs := make([]string, 0)
	res := &CreateResult{Path: opts.Destination}
	for _, in := range inputs {
		if !opts.IncludeHidden && (in.Hidden || hasPrefixAny(in.Name, hiddenDirs)) {
			if in.Kind == Directory {
				hiddenDirs = append(hiddenDirs, dirName(in.Name))
			}

			sink.Handle(event.Skipped{Name: in.Name, Reason: event.Hidden})
			continue
		}

		if in.Kind == Unknown {
			sink.Handle(event.Skipped{Name: in.Name, Reason: event.UnknownType})
			continue
		}

		if in.Kind == File {
			res.TotalSize += uint64(in.Info.Size())
		}

		included = append(included, in)
	}

	if parent := filepath.Dir(opts.Destination); parent != "" {
		if err = os.MkdirAll(parent, 0755); err != nil {
			return nil, &IOError{Op: "mkdir", Path: parent, Err: err}
		}
	}

	flag := os.O_RDWR | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite {
		flag |= os.O_EXCL
	}

	dst, err := os.OpenFile(opts.Destination, flag, 0644)
	if err != nil {
		return nil, &IOError{Op: "create", Path: opts.Destination, Err: err}
	}

	if err = f.creator.Create(ctx, dst, opts, included, sink); err != nil {
		_ = dst.Close()
		_ = os.Remove(opts.Destination)
		return nil, err
	}

	fi, err := dst.Stat()
	if err == nil {
		res.CompressedSize = uint64(fi.Size())
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(opts.Destination)
		return nil, &IOError{Op: "close", Path: opts.Destination, Err: err}
	}

	return res, nil
}

// gatherInputs stats the files to add in parallel and returns them in the given order.
//
// If opts.Files is empty, every file and directory under opts.Source is added.
func gatherInputs(ctx context.Context, opts CreateOptions) ([]CreateInput, error) {
	files := opts.Files
	if len(files) == 0 {
		if opts.Source == "" {
			return nil, &InvalidSourceError{Reason: "no files to add"}
		}

		dst, _ := filepath.Abs(opts.Destination)
		err := filepath.WalkDir(opts.Source, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if abs, _ := filepath.Abs(path); path != opts.Source && abs != dst {
				files = append(files, path)
			}
			return ctx.Err()
		})
		if err != nil {
			return nil, &IOError{Op: "walk", Path: opts.Source, Err: err}
		}
	}

	inputs := make([]CreateInput, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(16)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			in, err := newCreateInput(opts.Source, file)
			if err != nil {
				return err
			}

			inputs[i] = in
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return inputs, nil
}

func newCreateInput(root, file string) (CreateInput, error) {
	fi, err := os.Lstat(file)
	if err != nil {
		return CreateInput{}, &IOError{Op: "stat", Path: file, Err: err}
	}

	in := CreateInput{
		Path: file,
		Name: stripPrefix(root, file, fi.IsDir()),
		Info: fi,
	}

	switch mode := fi.Mode(); {
	case mode.IsRegular():
		in.Kind = File
	case mode.IsDir():
		in.Kind = Directory
	case mode&fs.ModeSymlink != 0:
		in.Kind = SymbolicLink
		if in.Linkname, err = os.Readlink(file); err != nil {
			return CreateInput{}, &IOError{Op: "readlink", Path: file, Err: err}
		}
	default:
		in.Kind = Unknown
	}

	if in.Hidden, err = isHidden(file, fi); err != nil {
		return CreateInput{}, &IOError{Op: "stat", Path: file, Err: err}
	}

	return in, nil
}

// stripPrefix returns the slash-separated name of file relative to root.
//
// Files outside root keep their own path. A directory that is root itself is named ".".
func stripPrefix(root, file string, isDir bool) string {
	name := file
	if root != "" {
		if rel, err := filepath.Rel(root, file); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			name = rel
		}
	}

	name = filepath.ToSlash(name)
	if name == "" || name == "." {
		if isDir {
			return "."
		}

		return filepath.ToSlash(filepath.Base(file))
	}

	return strings.TrimPrefix(name, "/")
}

// dirName returns the name of a directory entry with a trailing slash as zip and tar expect.
func dirName(name string) string {
	if strings.HasSuffix(name, "/") {
		return name
	}

	return name + "/"
}

func hasPrefixAny(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}

	return false
}

// created reports a successfully added input.
func created(sink event.Sink, in CreateInput) {
	sink.Handle(event.Created{Name: in.Name, Kind: in.Kind.String()})
}
