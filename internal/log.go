package internal

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/nguyengg/hezi/util"
)

// Prefix creates a consistent prefix for all file-based commands to use.
//
// i is the zero-based ordinal, and n the expected count. The prefix omits the ordinal if there is only one file.
func Prefix(i, n int, name string) string {
	base := util.TruncateRightWithSuffix(util.DirBase(name), 40, "...")
	if n <= 1 {
		return fmt.Sprintf(`"%s" - `, base)
	}

	return fmt.Sprintf(`[%d/%d] "%s" - `, i+1, n, base)
}

type loggerKey struct{}

// WithPrefixLogger creates a new logger using the given prefix then attaches it to the returned context.
func WithPrefixLogger(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, loggerKey{}, log.New(os.Stderr, prefix, 0))
}

// Logger returns the logger attached to the given context, or log.Default if there is none.
func Logger(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}

	return log.Default()
}
