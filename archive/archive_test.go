package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/event"
	"github.com/nguyengg/hezi/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz/lzma"
)

var world = strings.Repeat("world ", 100)

// writeTree creates a small tree with files, a directory, a symlink, and hidden files.
func writeTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dir", "b.txt"), []byte(world), 0600))
	require.NoError(t, os.Symlink("b.txt", filepath.Join(root, "dir", "link")))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("secret"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "config"), []byte("x"), 0644))

	return root
}

func names(entities []Entity) []string {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, entryName(e.Name))
	}

	return names
}

func ofType[T event.Event](events []event.Event) []T {
	var res []T
	for _, e := range events {
		if v, ok := e.(T); ok {
			res = append(res, v)
		}
	}

	return res
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		ext         string
		compression codec.Compression
		// wantCompression is the detected compression of the whole archive.
		wantCompression codec.Compression
	}{
		{name: "zip stored", ext: "zip", compression: codec.None, wantCompression: codec.None},
		{name: "zip deflate", ext: "zip", wantCompression: codec.None},
		{name: "zip bzip2", ext: "zip", compression: codec.Bzip2, wantCompression: codec.None},
		{name: "zip zstd", ext: "zip", compression: codec.Zstd, wantCompression: codec.None},
		{name: "tar", ext: "tar", compression: codec.None, wantCompression: codec.None},
		{name: "tar.gz", ext: "tar.gz", wantCompression: codec.Gzip},
		{name: "tar.bz2", ext: "tar.bz2", wantCompression: codec.Bzip2},
		{name: "tar.xz", ext: "tar.xz", wantCompression: codec.Lzma},
		{name: "tar.zst", ext: "tar.zst", wantCompression: codec.Zstd},
		{name: "7z lzma", ext: "7z", wantCompression: codec.None},
		{name: "7z copy", ext: "7z", compression: codec.None, wantCompression: codec.None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			src := writeTree(t)
			out := filepath.Join(t.TempDir(), "out."+tt.ext)

			created := &event.Collector{}
			res, err := Create(ctx, CreateOptions{Destination: out, Source: src, Compression: tt.compression}, created)
			require.NoError(t, err)

			fi, err := os.Stat(out)
			require.NoError(t, err)
			assert.Equal(t, &CreateResult{Path: out, TotalSize: uint64(5 + len(world)), CompressedSize: uint64(fi.Size())}, res)

			assert.Equal(t, []event.Created{
				{Name: "a.txt", Kind: "file"},
				{Name: "dir", Kind: "dir"},
				{Name: "dir/b.txt", Kind: "file"},
				{Name: "dir/link", Kind: "symlink"},
			}, ofType[event.Created](created.Events()))
			assert.Equal(t, []event.Skipped{
				{Name: ".git", Reason: event.Hidden},
				{Name: ".git/config", Reason: event.Hidden},
				{Name: ".hidden", Reason: event.Hidden},
			}, ofType[event.Skipped](created.Events()))

			a, err := OpenFile(out)
			require.NoError(t, err)
			defer a.Close()

			wantType, _, err := GuessFromFilename(out)
			require.NoError(t, err)
			assert.Equal(t, wantType, a.Type)
			assert.Equal(t, tt.wantCompression, a.Compression)

			// list and metadata agree.
			entities, err := a.List(ctx, ListOptions{}, nil)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"a.txt", "dir", "dir/b.txt", "dir/link"}, names(entities))

			m, err := a.Metadata(ctx)
			require.NoError(t, err)
			assert.Equal(t, entities, m.Entries)
			assert.Equal(t, uint64(5+len(world)), m.TotalSize)

			for _, e := range entities {
				switch entryName(e.Name) {
				case "a.txt":
					assert.Equal(t, File, e.Kind)
					require.NotNil(t, e.Size)
					assert.Equal(t, uint64(5), *e.Size)
					assert.NotNil(t, e.CompressedSize)
				case "dir":
					assert.Equal(t, Directory, e.Kind)
					assert.Nil(t, e.Size)
				case "dir/link":
					assert.Equal(t, SymbolicLink, e.Kind)
				}
			}

			// extract.
			dst := t.TempDir()
			extracted := &event.Collector{}
			require.NoError(t, a.Extract(ctx, ExtractOptions{Destination: dst}, extracted))

			data, err := os.ReadFile(filepath.Join(dst, "a.txt"))
			require.NoError(t, err)
			assert.Equal(t, "hello", string(data))

			data, err = os.ReadFile(filepath.Join(dst, "dir", "b.txt"))
			require.NoError(t, err)
			assert.Equal(t, world, string(data))

			fi, err = os.Stat(filepath.Join(dst, "dir", "b.txt"))
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())

			link, err := os.Readlink(filepath.Join(dst, "dir", "link"))
			require.NoError(t, err)
			assert.Equal(t, "b.txt", link)

			events := extracted.Events()
			require.NotEmpty(t, events)
			assert.Equal(t, event.DoneExtracting{Name: out, Destination: dst}, events[len(events)-1])
			assert.Empty(t, ofType[event.FailedToReadEntry](events))
			assert.Equal(t, []event.Created{
				{Name: entities[indexOf(entities, "dir")].Name, Kind: "dir"},
			}, ofType[event.Created](events))

			// extracting again skips existing files unless overwriting.
			extracted = &event.Collector{}
			require.NoError(t, a.Extract(ctx, ExtractOptions{Destination: dst}, extracted))
			assert.ElementsMatch(t, []event.Skipped{
				{Name: entities[indexOf(entities, "a.txt")].Name, Reason: event.AlreadyExists},
				{Name: entities[indexOf(entities, "dir/b.txt")].Name, Reason: event.AlreadyExists},
				{Name: entities[indexOf(entities, "dir/link")].Name, Reason: event.AlreadyExists},
			}, ofType[event.Skipped](extracted.Events()))

			require.NoError(t, os.WriteFile(filepath.Join(dst, "a.txt"), []byte("changed"), 0644))
			extracted = &event.Collector{}
			require.NoError(t, a.Extract(ctx, ExtractOptions{Destination: dst, Overwrite: true}, extracted))
			assert.Empty(t, ofType[event.Skipped](extracted.Events()))
			data, err = os.ReadFile(filepath.Join(dst, "a.txt"))
			require.NoError(t, err)
			assert.Equal(t, "hello", string(data))

			// open single entries.
			var buf bytes.Buffer
			require.NoError(t, a.OpenEntry(ctx, OpenOptions{Path: "dir/b.txt"}, &buf))
			assert.Equal(t, world, buf.String())

			buf.Reset()
			require.NoError(t, a.OpenEntry(ctx, OpenOptions{Path: "./a.txt"}, &buf))
			assert.Equal(t, "hello", buf.String())

			buf.Reset()
			var nerr *EntryNotFoundError
			assert.ErrorAs(t, a.OpenEntry(ctx, OpenOptions{Path: "missing.txt"}, &buf), &nerr)
			assert.Equal(t, 0, buf.Len())
		})
	}
}

func indexOf(entities []Entity, name string) int {
	for i, e := range entities {
		if entryName(e.Name) == name {
			return i
		}
	}

	return -1
}

func TestExtract_Files(t *testing.T) {
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "out.zip")
	_, err := Create(ctx, CreateOptions{Destination: out, Source: writeTree(t)}, nil)
	require.NoError(t, err)

	a, err := OpenFile(out)
	require.NoError(t, err)
	defer a.Close()

	dst := t.TempDir()
	require.NoError(t, a.Extract(ctx, ExtractOptions{Destination: dst, Files: []string{"dir/b.txt"}}, nil))

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "dir", entries[0].Name())

	entries, err = os.ReadDir(filepath.Join(dst, "dir"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.txt", entries[0].Name())
}

func TestExtract_Hidden(t *testing.T) {
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "out.tar")
	_, err := Create(ctx, CreateOptions{Destination: out, Source: writeTree(t), Compression: codec.None, IncludeHidden: true}, nil)
	require.NoError(t, err)

	a, err := OpenFile(out)
	require.NoError(t, err)
	defer a.Close()

	dst := t.TempDir()
	sink := &event.Collector{}
	require.NoError(t, a.Extract(ctx, ExtractOptions{Destination: dst}, sink))
	assert.Equal(t, []event.Skipped{
		{Name: ".git/", Reason: event.Hidden},
		{Name: ".git/config", Reason: event.Hidden},
		{Name: ".hidden", Reason: event.Hidden},
	}, ofType[event.Skipped](sink.Events()))
	assert.NoFileExists(t, filepath.Join(dst, ".hidden"))

	dst = t.TempDir()
	require.NoError(t, a.Extract(ctx, ExtractOptions{Destination: dst, ShowHidden: true}, nil))
	assert.FileExists(t, filepath.Join(dst, ".hidden"))
	assert.FileExists(t, filepath.Join(dst, ".git", "config"))
}

func TestZip_Password(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "secret.txt"), []byte(world), 0644))

	out := filepath.Join(t.TempDir(), "out.zip")
	_, err := Create(ctx, CreateOptions{Destination: out, Source: src, Password: "correct horse"}, nil)
	require.NoError(t, err)

	a, err := OpenFile(out)
	require.NoError(t, err)
	defer a.Close()

	entities, err := a.List(ctx, ListOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Aes", entities[0].Compression)

	var perr *PasswordError
	var buf bytes.Buffer
	assert.ErrorAs(t, a.OpenEntry(ctx, OpenOptions{Path: "secret.txt"}, &buf), &perr)
	assert.ErrorAs(t, a.OpenEntry(ctx, OpenOptions{Path: "secret.txt", Password: "wrong"}, &buf), &perr)
	assert.Equal(t, 0, buf.Len())

	dst := t.TempDir()
	assert.ErrorAs(t, a.Extract(ctx, ExtractOptions{Destination: dst, Password: "wrong"}, nil), &perr)
	assert.NoFileExists(t, filepath.Join(dst, "secret.txt"))

	require.NoError(t, a.OpenEntry(ctx, OpenOptions{Path: "secret.txt", Password: "correct horse"}, &buf))
	assert.Equal(t, world, buf.String())

	require.NoError(t, a.Extract(ctx, ExtractOptions{Destination: dst, Password: "correct horse"}, nil))
	data, err := os.ReadFile(filepath.Join(dst, "secret.txt"))
	require.NoError(t, err)
	assert.Equal(t, world, string(data))
}

// TestCompressedTar_FromBytes detects and extracts a gzip-compressed tar held in memory.
func TestCompressedTar_FromBytes(t *testing.T) {
	ctx := context.Background()
	src := source.FromBytes(compress(t, tarBytes(t, "a.txt", "sub/b.txt"), codec.Gzip))
	defer src.Close()

	a, err := Open(src)
	require.NoError(t, err)
	assert.Equal(t, Tar, a.Type)
	assert.Equal(t, codec.Gzip, a.Compression)

	dst := t.TempDir()
	require.NoError(t, a.Extract(ctx, ExtractOptions{Destination: dst}, nil))

	for _, name := range []string{"a.txt", "sub/b.txt"} {
		data, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(name)))
		require.NoError(t, err)
		assert.Equal(t, name, string(data))
	}
}

// TestCreate_ZipTotals checks that the totals are the sum of the inputs and the size of the output.
func TestCreate_ZipTotals(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "one.txt"), bytes.Repeat([]byte("1"), 1000), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "two.txt"), bytes.Repeat([]byte("2"), 2000), 0644))

	out := filepath.Join(t.TempDir(), "out.zip")
	res, err := Create(context.Background(), CreateOptions{
		Destination: out,
		Files:       []string{filepath.Join(src, "one.txt"), filepath.Join(src, "two.txt")},
		Source:      src,
		Compression: codec.Deflate,
	}, nil)
	require.NoError(t, err)

	fi, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), res.TotalSize)
	assert.Equal(t, uint64(fi.Size()), res.CompressedSize)
	assert.Less(t, res.CompressedSize, res.TotalSize)
}

func TestCreate_Errors(t *testing.T) {
	src := writeTree(t)
	level := 42

	tests := []struct {
		name  string
		opts  CreateOptions
		check func(t *testing.T, err error)
	}{
		{
			name: "tar requires compression",
			opts: CreateOptions{Destination: "out.bin", Type: Tar},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrCompressionMethodRequired)
			},
		},
		{
			name: "zip does not support gzip",
			opts: CreateOptions{Destination: "out.zip", Compression: codec.Gzip},
			check: func(t *testing.T, err error) {
				var cerr *codec.UnsupportedCompressionError
				assert.ErrorAs(t, err, &cerr)
			},
		},
		{
			name: "invalid level",
			opts: CreateOptions{Destination: "out.tar.gz", Level: &level},
			check: func(t *testing.T, err error) {
				var lerr *codec.InvalidLevelError
				assert.ErrorAs(t, err, &lerr)
			},
		},
		{
			name: "unknown extension",
			opts: CreateOptions{Destination: "out.rar"},
			check: func(t *testing.T, err error) {
				var eerr *UnknownExtensionError
				assert.ErrorAs(t, err, &eerr)
			},
		},
		{
			name: "iso is read-only",
			opts: CreateOptions{Destination: "out.iso"},
			check: func(t *testing.T, err error) {
				var uerr *UnsupportedActionError
				require.ErrorAs(t, err, &uerr)
				assert.Equal(t, &UnsupportedActionError{Action: "create", Type: Iso}, uerr)
			},
		},
		{
			name: "tar cannot be encrypted",
			opts: CreateOptions{Destination: "out.tar.gz", Password: "x"},
			check: func(t *testing.T, err error) {
				assert.Equal(t, &UnsupportedActionError{Action: "encrypt", Type: Tar}, err)
			},
		},
		{
			name: "7z cannot be encrypted",
			opts: CreateOptions{Destination: "out.7z", Password: "x"},
			check: func(t *testing.T, err error) {
				assert.Equal(t, &UnsupportedActionError{Action: "encrypt", Type: SevenZ}, err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.opts.Destination = filepath.Join(dir, tt.opts.Destination)
			tt.opts.Source = src

			_, err := Create(context.Background(), tt.opts, nil)
			tt.check(t, err)
			assert.NoFileExists(t, tt.opts.Destination)
		})
	}
}

func TestCreate_Overwrite(t *testing.T) {
	ctx := context.Background()
	src := writeTree(t)
	out := filepath.Join(t.TempDir(), "out.zip")
	require.NoError(t, os.WriteFile(out, []byte("existing"), 0644))

	_, err := Create(ctx, CreateOptions{Destination: out, Source: src}, nil)
	assert.ErrorIs(t, err, os.ErrExist)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))

	_, err = Create(ctx, CreateOptions{Destination: out, Source: src, Overwrite: true}, nil)
	require.NoError(t, err)

	a, err := OpenFile(out)
	require.NoError(t, err)
	assert.Equal(t, Zip, a.Type)
	require.NoError(t, a.Close())
}

func TestRegistry(t *testing.T) {
	for _, typ := range []Type{Zip, Tar, SevenZ, Iso} {
		f, ok := formats[typ]
		require.True(t, ok, "%s is not registered", typ)
		assert.NotNil(t, f.open)
		assert.Equal(t, typ != Iso, f.creator != nil)
	}

	assert.Panics(t, func() {
		register(Zip, newZipBackend, zipCreator{})
	})
}

func TestStripPrefix(t *testing.T) {
	root := filepath.Join("some", "root")

	tests := []struct {
		name  string
		root  string
		file  string
		isDir bool
		want  string
	}{
		{name: "child", root: root, file: filepath.Join(root, "a.txt"), want: "a.txt"},
		{name: "nested", root: root, file: filepath.Join(root, "dir", "b.txt"), want: "dir/b.txt"},
		{name: "root itself", root: root, file: root, isDir: true, want: "."},
		{name: "outside root", root: root, file: filepath.Join("other", "c.txt"), want: "other/c.txt"},
		{name: "no root", file: filepath.Join("x", "y.txt"), want: "x/y.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripPrefix(tt.root, tt.file, tt.isDir))
		})
	}
}

// tarEntry is one member of a tar archive built in-test.
type tarEntry struct {
	name     string
	linkname string
	data     string
}

func tarOf(t *testing.T, entries ...tarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Typeflag: tar.TypeReg, Size: int64(len(e.data)), Format: tar.FormatPAX}
		if e.linkname != "" {
			hdr.Typeflag, hdr.Linkname, hdr.Size = tar.TypeSymlink, e.linkname, 0
		}
		require.NoError(t, w.WriteHeader(hdr))
		_, err := io.WriteString(w, e.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func TestExtract_UnsafePaths(t *testing.T) {
	tests := []struct {
		name       string
		entries    []tarEntry
		wantFailed []string
		wantFiles  map[string]string
	}{
		{
			name:       "parent traversal",
			entries:    []tarEntry{{name: "../x", data: "escaped"}, {name: "ok.txt", data: "ok"}},
			wantFailed: []string{"../x"},
			wantFiles:  map[string]string{"ok.txt": "ok"},
		},
		{
			name:       "absolute name",
			entries:    []tarEntry{{name: "/abs", data: "escaped"}, {name: "ok.txt", data: "ok"}},
			wantFailed: []string{"/abs"},
			wantFiles:  map[string]string{"ok.txt": "ok"},
		},
		{
			name: "link escaping through an earlier link",
			entries: []tarEntry{
				{name: "l1", linkname: "."},
				{name: "l1/l2", linkname: ".."},
				{name: "l1/l2/evil.txt", data: "escaped"},
				{name: "ok.txt", data: "ok"},
			},
			wantFailed: []string{"l1/l2"},
			wantFiles:  map[string]string{"l2/evil.txt": "escaped", "ok.txt": "ok"},
		},
		{
			name: "link target walking through an earlier link",
			entries: []tarEntry{
				{name: "l1", linkname: "."},
				{name: "up", linkname: "l1/.."},
				{name: "ok.txt", data: "ok"},
			},
			wantFailed: []string{"up"},
			wantFiles:  map[string]string{"ok.txt": "ok"},
		},
		{
			name:       "parent link",
			entries:    []tarEntry{{name: "up", linkname: ".."}, {name: "up/evil.txt", data: "escaped"}},
			wantFailed: []string{"up"},
			wantFiles:  map[string]string{"up/evil.txt": "escaped"},
		},
		{
			name:       "absolute link",
			entries:    []tarEntry{{name: "etc", linkname: "/etc"}, {name: "ok.txt", data: "ok"}},
			wantFailed: []string{"etc"},
			wantFiles:  map[string]string{"ok.txt": "ok"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := source.FromBytes(tarOf(t, tt.entries...))
			defer src.Close()

			a, err := Open(src)
			require.NoError(t, err)

			parent := t.TempDir()
			dst := filepath.Join(parent, "out")
			sink := &event.Collector{}
			require.NoError(t, a.Extract(context.Background(), ExtractOptions{Destination: dst}, sink))

			var failed []string
			for _, e := range ofType[event.FailedToReadEntry](sink.Events()) {
				assert.ErrorIs(t, e.Err, errUnsafePath)
				failed = append(failed, e.Name)
			}
			assert.Equal(t, tt.wantFailed, failed)

			for name, want := range tt.wantFiles {
				data, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(name)))
				require.NoError(t, err)
				assert.Equal(t, want, string(data))
			}

			// nothing lands next to the destination.
			entries, err := os.ReadDir(parent)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "out", entries[0].Name())
		})
	}
}

func TestExtract_CorruptZipEntry(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range []string{"bad.txt", "good.txt"} {
		f, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		require.NoError(t, err)
		_, err = io.WriteString(f, name+" contents")
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	data := buf.Bytes()
	i := bytes.Index(data, []byte("bad.txt contents"))
	require.NotEqual(t, -1, i)
	copy(data[i:], "BAD")

	src := source.FromBytes(data)
	defer src.Close()

	a, err := Open(src)
	require.NoError(t, err)

	dst := t.TempDir()
	sink := &event.Collector{}
	require.NoError(t, a.Extract(context.Background(), ExtractOptions{Destination: dst}, sink))

	failed := ofType[event.FailedToReadEntry](sink.Events())
	require.Len(t, failed, 1)
	assert.Equal(t, "bad.txt", failed[0].Name)
	assert.ErrorIs(t, failed[0].Err, zip.ErrChecksum)

	got, err := os.ReadFile(filepath.Join(dst, "good.txt"))
	require.NoError(t, err)
	assert.Equal(t, "good.txt contents", string(got))

	// the failed entry leaves neither its destination nor its temporary file behind.
	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "good.txt", entries[0].Name())
}

// TestZip_Lzma reads method 14 entries, whose data is a classic lzma stream minus its size field behind a 4-byte prefix.
func TestZip_Lzma(t *testing.T) {
	var lz bytes.Buffer
	lw, err := lzma.NewWriter(&lz)
	require.NoError(t, err)
	_, err = io.WriteString(lw, world)
	require.NoError(t, err)
	require.NoError(t, lw.Close())

	stream := lz.Bytes()
	raw := append([]byte{9, 20, 5, 0}, stream[:5]...)
	raw = append(raw, stream[lzma.HeaderLen:]...)

	tests := []struct {
		name    string
		crc     uint32
		wantErr error
	}{
		{name: "valid", crc: crc32.ChecksumIEEE([]byte(world))},
		{name: "bad checksum", crc: 1, wantErr: zip.ErrChecksum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			zw := zip.NewWriter(&buf)
			w, err := zw.CreateRaw(&zip.FileHeader{
				Name:               "a.txt",
				Method:             14,
				Flags:              0x2,
				CRC32:              tt.crc,
				CompressedSize64:   uint64(len(raw)),
				UncompressedSize64: uint64(len(world)),
			})
			require.NoError(t, err)
			_, err = w.Write(raw)
			require.NoError(t, err)
			require.NoError(t, zw.Close())

			src := source.FromBytes(buf.Bytes())
			defer src.Close()

			a, err := Open(src)
			require.NoError(t, err)

			entities, err := a.List(context.Background(), ListOptions{}, nil)
			require.NoError(t, err)
			require.Len(t, entities, 1)
			assert.Equal(t, "Lzma", entities[0].Compression)

			var out bytes.Buffer
			err = a.OpenEntry(context.Background(), OpenOptions{Path: "a.txt"}, &out)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, world, out.String())
		})
	}
}
