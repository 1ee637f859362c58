package cmd

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/hezi/event"
	"github.com/nguyengg/hezi/internal"
)

type Hezi struct {
	List     List     `command:"list" alias:"l" description:"list the contents of archives"`
	Create   Create   `command:"create" alias:"c" description:"create an archive"`
	Extract  Extract  `command:"extract" alias:"x" description:"extract archives"`
	Cat      Cat      `command:"cat" description:"write the contents of a single archive entry to stdout"`
	Metadata Metadata `command:"metadata" alias:"m" description:"print information about archives"`
}

func NewParser() (*flags.Parser, error) {
	opts := &Hezi{}

	p := flags.NewNamedParser("hezi", flags.Default)
	p.LongDescription = "A command line archive tool for zip, tar, 7z, and ISO9660 archives."
	if _, err := p.AddGroup("Global Options", "", opts); err != nil {
		return nil, err
	}

	return p, nil
}

// forEach runs fn for every file. verb must be a regular verb such as "list" or "extract".
//
// fn is run with a prefixed logger attached to the context.
//
// Failures are logged and aggregated, and the loop stops early only if ctx is cancelled. A summary is logged at the end
// if there were more than one file.
func forEach(ctx context.Context, verb string, files []flags.Filename, fn func(ctx context.Context, name string) error) error {
	var (
		errs    *multierror.Error
		success int
		n       = len(files)
	)

	for i, file := range files {
		ctx := internal.WithPrefixLogger(ctx, internal.Prefix(i, n, string(file)))

		err := fn(ctx, string(file))
		if err == nil {
			success++
			continue
		}

		if errors.Is(err, context.Canceled) {
			errs = multierror.Append(errs, err)
			break
		}

		internal.Logger(ctx).Printf("%s error: %v", verb, err)
		errs = multierror.Append(errs, err)
	}

	if n > 1 {
		log.Printf("successfully %sed %d/%d files", verb, success, n)
	}

	return errs.ErrorOrNil()
}

// newSink returns the sink that reports progress of the operation to stderr.
//
// A progress bar is rendered if stderr is a terminal. Otherwise, events are logged at most once a second unless verbose
// is true, though failures are always logged.
func newSink(ctx context.Context, verbose bool) event.Sink {
	logger := internal.Logger(ctx)

	if internal.IsTerminal(os.Stderr) && !verbose {
		return &event.ProgressBar{Bar: internal.DefaultBytes(-1, logger.Prefix()), Logger: logger}
	}

	s := event.SimpleLogger{Logger: logger}
	if verbose {
		return s
	}

	return event.Throttle(s, time.Second)
}

// stdout returns w if not nil, os.Stdout otherwise.
func stdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}

	return w
}
