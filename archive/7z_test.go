package archive

import (
	"testing"

	"github.com/bodgit/sevenzip"
	"github.com/stretchr/testify/assert"
)

func TestSevenZCompressedSizes(t *testing.T) {
	file := func(stream int, size uint64) *sevenzip.File {
		return &sevenzip.File{FileHeader: sevenzip.FileHeader{Stream: stream, UncompressedSize: size}}
	}

	tests := []struct {
		name     string
		files    []*sevenzip.File
		packSize uint64
		want     []uint64
	}{
		{
			name:     "two blocks",
			files:    []*sevenzip.File{file(0, 100), file(0, 300), file(1, 600)},
			packSize: 500,
			want:     []uint64{50, 150, 300},
		},
		{
			name:     "empty files",
			files:    []*sevenzip.File{file(0, 0), file(0, 1000)},
			packSize: 250,
			want:     []uint64{0, 250},
		},
		{
			name:     "nothing to unpack",
			files:    []*sevenzip.File{file(0, 0)},
			packSize: 32,
			want:     []uint64{0},
		},
		{
			name: "no files",
			want: []uint64{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sevenZCompressedSizes(tt.files, tt.packSize))
		})
	}
}
