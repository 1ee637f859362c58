package util

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStemAndExt(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantStem string
		wantExt  string
	}{
		{name: "single ext", path: "archive.zip", wantStem: "archive", wantExt: ".zip"},
		{name: "double ext", path: "backup.tar.gz", wantStem: "backup", wantExt: ".tar.gz"},
		{name: "with dir", path: "path/to/backup.tar.zst", wantStem: "backup", wantExt: ".tar.zst"},
		{name: "long suffix is not ext", path: "v1.2.3-release", wantStem: "v1.2.3-release", wantExt: ""},
		{name: "no ext", path: "README", wantStem: "README", wantExt: ""},
		{name: "dotfile", path: "dir/.hezi", wantStem: ".hezi", wantExt: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStem, gotExt := StemAndExt(tt.path)
			assert.Equalf(t, tt.wantStem, gotStem, "StemAndExt(%s) stem", tt.path)
			assert.Equalf(t, tt.wantExt, gotExt, "StemAndExt(%s) ext", tt.path)
		})
	}
}

func TestSuffixes(t *testing.T) {
	assert.Equal(t, []string{"gz", "tar"}, Suffixes("Backup.Tar.GZ", 2))
	assert.Equal(t, []string{"zip"}, Suffixes("dir.d/file.zip", 2))
	assert.Nil(t, Suffixes("file", 2))
}

func TestChainCloser(t *testing.T) {
	var calls []string
	first, second := errors.New("first"), errors.New("second")

	err := ChainCloser(
		func() error { calls = append(calls, "a"); return nil },
		func() error { calls = append(calls, "b"); return first },
		func() error { calls = append(calls, "c"); return second },
	)()

	assert.Equal(t, []string{"a", "b", "c"}, calls)
	assert.ErrorIs(t, err, first)
}

func TestRestoreOnCloseReadSeeker(t *testing.T) {
	r := strings.NewReader("hello, world")
	_, err := r.Seek(3, io.SeekStart)
	assert.NoError(t, err)

	rs := RestoreOnCloseReadSeeker(r)
	_, err = rs.Seek(7, io.SeekStart)
	assert.NoError(t, err)

	data, err := io.ReadAll(rs)
	assert.NoError(t, err)
	assert.Equal(t, "world", string(data))
	assert.NoError(t, rs.Close())

	pos, _ := r.Seek(0, io.SeekCurrent)
	assert.Equal(t, int64(3), pos)
}

func TestCopyBufferWithContext(t *testing.T) {
	src := bytes.Repeat([]byte("a"), 100_000)

	var dst bytes.Buffer
	n, err := CopyBufferWithContext(context.Background(), &dst, bytes.NewReader(src), make([]byte, 1024))
	assert.NoError(t, err)
	assert.Equal(t, int64(len(src)), n)
	assert.Equal(t, src, dst.Bytes())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CopyBufferWithContext(ctx, io.Discard, bytes.NewReader(src), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenExclFile(t *testing.T) {
	dir := t.TempDir()

	f1, err := OpenExclFile(dir, "file", ".tar.gz", 0644)
	assert.NoError(t, err)
	defer f1.Close()

	f2, err := OpenExclFile(dir, "file", ".tar.gz", 0644)
	assert.NoError(t, err)
	defer f2.Close()

	assert.Equal(t, filepath.Join(dir, "file.tar.gz"), f1.Name())
	assert.Equal(t, filepath.Join(dir, "file-1.tar.gz"), f2.Name())

	_, err = os.Stat(f2.Name())
	assert.NoError(t, err)
}

func TestTruncateRightWithSuffix(t *testing.T) {
	tests := []struct {
		text string
		n    int
		want string
	}{
		{text: "hello", n: 10, want: "hello"},
		{text: "hello", n: 5, want: "hello"},
		{text: "hello, world", n: 5, want: "hello..."},
		{text: "héllo wörld", n: 7, want: "héllo w..."},
		{text: "hello", n: 0, want: "..."},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateRightWithSuffix(tt.text, tt.n, "..."))
		})
	}
}

func TestDirBase(t *testing.T) {
	assert.Equal(t, filepath.Join("parent", "file.zip"), DirBase(filepath.Join("a", "parent", "file.zip")))

	wd, err := os.Getwd()
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Base(wd), "file.zip"), DirBase("file.zip"))
}
