package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/hezi/archive"
	"github.com/nguyengg/hezi/internal"
	"github.com/nguyengg/hezi/internal/config"
	"github.com/nguyengg/hezi/util"
)

type Extract struct {
	Output     flags.Filename `short:"o" long:"output" description:"the directory to extract to; defaults to a directory named after each archive in the working directory"`
	Force      bool           `short:"f" long:"force" description:"overwrite existing files"`
	Password   string         `short:"p" long:"password" description:"password of encrypted archives"`
	ShowHidden bool           `long:"show-hidden" description:"also extract hidden files"`
	Verbose    bool           `short:"v" long:"verbose" description:"log every entry instead of rendering a progress bar"`
	Files      []string       `long:"file" description:"only extract the entries with these names; can be given multiple times"`
	Args       struct {
		Files []flags.Filename `positional-arg-name:"archive" description:"the archives to extract" required:"yes"`
	} `positional-args:"yes"`
}

func (c *Extract) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return forEach(ctx, "extract", c.Args.Files, c.extract)
}

func (c *Extract) extract(ctx context.Context, name string) error {
	dst, err := c.destination(name)
	if err != nil {
		return err
	}

	a, err := archive.OpenFile(name)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := config.ForExtract()

	logger := internal.Logger(ctx)
	logger.Printf(`extracting to "%s"`, dst)

	return a.Extract(ctx, archive.ExtractOptions{
		Destination: dst,
		Password:    c.Password,
		Files:       c.Files,
		Overwrite:   c.Force || cfg.Overwrite,
		ShowHidden:  c.ShowHidden || cfg.ShowHidden,
	}, newSink(ctx, c.Verbose))
}

// destination returns the --output directory if given, or a directory named after the archive's stem in the working
// directory.
func (c *Extract) destination(name string) (string, error) {
	if c.Output != "" {
		return string(c.Output), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory error: %w", err)
	}

	stem, _ := util.StemAndExt(filepath.Base(name))
	if stem == "" {
		return "", fmt.Errorf(`could not determine output path for "%s"`, name)
	}

	return filepath.Join(cwd, stem), nil
}
