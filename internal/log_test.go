package internal

import (
	"context"
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefix(t *testing.T) {
	name := filepath.Join("some", "backups", "archive.tar.gz")
	want := filepath.Join("backups", "archive.tar.gz")

	assert.Equal(t, `"`+want+`" - `, Prefix(0, 1, name))
	assert.Equal(t, `[2/3] "`+want+`" - `, Prefix(1, 3, name))

	long := filepath.Join("dir", "a-very-long-archive-name-that-goes-on-and-on.zip")
	assert.Equal(t, `"`+filepath.Join("dir", "a-very-long-archive-name-that-goes-o")+`..." - `, Prefix(0, 1, long))
}

func TestLogger(t *testing.T) {
	ctx := context.Background()
	assert.Same(t, log.Default(), Logger(ctx))

	ctx = WithPrefixLogger(ctx, "[1/2] ")
	assert.Equal(t, "[1/2] ", Logger(ctx).Prefix())
}
