package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/hezi/archive"
	"github.com/nguyengg/hezi/codec"
	"github.com/nguyengg/hezi/internal"
	"github.com/nguyengg/hezi/internal/config"
)

type Create struct {
	Directory     flags.Filename    `short:"d" long:"directory" description:"the root directory of the archive; defaults to the working directory"`
	Level         *int              `short:"l" long:"level" description:"compression level"`
	Overwrite     bool              `short:"o" long:"overwrite" description:"replace the archive if it already exists"`
	Compression   codec.Compression `short:"c" long:"compression" description:"compression algorithm such as deflate, zstd, gzip, bzip2, lzma, or none"`
	Type          archive.Type      `short:"t" long:"type" description:"archive type (zip, tar, 7z); defaults to the type guessed from the archive name"`
	Password      string            `short:"p" long:"password" description:"encrypt the entries of zip archives with this password"`
	IncludeHidden bool              `long:"include-hidden" description:"also add hidden files"`
	Verbose       bool              `short:"v" long:"verbose" description:"log every entry instead of rendering a progress bar"`
	JSON          bool              `long:"json" description:"print the result as JSON"`
	Args          struct {
		Archive flags.Filename   `positional-arg-name:"archive" description:"the path of the archive to create" required:"yes"`
		Files   []flags.Filename `positional-arg-name:"file" description:"the files to add; if none, the whole directory is added"`
	} `positional-args:"yes"`

	out io.Writer
}

func (c *Create) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	if len(c.Args.Files) == 0 && c.Directory == "" {
		return errors.New("no files or directory specified")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts, err := c.options()
	if err != nil {
		return err
	}

	ctx = internal.WithPrefixLogger(ctx, internal.Prefix(0, 1, opts.Destination))
	logger := internal.Logger(ctx)
	logger.Printf(`creating archive from "%s"`, opts.Source)

	res, err := archive.Create(ctx, opts, newSink(ctx, c.Verbose))
	if err != nil {
		logger.Printf("create error: %v", err)
		return err
	}

	if c.JSON {
		if err = json.NewEncoder(stdout(c.out)).Encode(res); err != nil {
			return &archive.JSONError{Err: err}
		}

		return nil
	}

	logger.Printf("done creating archive (%s -> %s)", humanize.IBytes(res.TotalSize), humanize.IBytes(res.CompressedSize))
	return nil
}

// options merges the command-line flags with the [create] section of the configuration file.
func (c *Create) options() (opts archive.CreateOptions, err error) {
	cfg, err := config.ForCreate()
	if err != nil {
		return opts, err
	}

	opts = archive.CreateOptions{
		Destination:   string(c.Args.Archive),
		Password:      c.Password,
		Type:          c.Type,
		Compression:   c.Compression,
		Level:         c.Level,
		Overwrite:     c.Overwrite || cfg.Overwrite,
		IncludeHidden: c.IncludeHidden || cfg.IncludeHidden,
	}

	// the configured compression only applies if the archive name does not already imply one.
	if opts.Compression == "" && cfg.Compression != "" {
		if _, guessed, err := archive.GuessFromFilename(opts.Destination); err != nil || guessed == "" {
			opts.Compression = cfg.Compression
		}
	}
	// levels are only meaningful for the compression they were configured with.
	if opts.Level == nil && (cfg.Compression == "" || cfg.Compression == opts.Compression) {
		opts.Level = cfg.Level
	}

	if c.Directory != "" {
		opts.Source, err = filepath.Abs(string(c.Directory))
	} else {
		opts.Source, err = os.Getwd()
	}
	if err != nil {
		return opts, fmt.Errorf("resolve source directory error: %w", err)
	}

	for _, file := range c.Args.Files {
		path, err := filepath.Abs(string(file))
		if err != nil {
			return opts, fmt.Errorf(`resolve "%s" error: %w`, file, err)
		}

		opts.Files = append(opts.Files, path)
	}

	return opts, nil
}
