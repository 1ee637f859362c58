package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/hezi/archive"
)

type Cat struct {
	Password string `short:"p" long:"password" description:"password of encrypted archives"`
	Args     struct {
		Archive flags.Filename `positional-arg-name:"archive" description:"the archive to read from" required:"yes"`
		Path    string         `positional-arg-name:"path" description:"the name of the entry in the archive" required:"yes"`
	} `positional-args:"yes"`

	out io.Writer
}

func (c *Cat) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := archive.OpenFile(string(c.Args.Archive))
	if err != nil {
		return err
	}
	defer a.Close()

	w := bufio.NewWriter(stdout(c.out))
	if err = a.OpenEntry(ctx, archive.OpenOptions{Path: c.Args.Path, Password: c.Password}, w); err != nil {
		return err
	}

	return w.Flush()
}
