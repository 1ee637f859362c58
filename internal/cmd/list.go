package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/hezi/archive"
	"github.com/nguyengg/hezi/event"
	"github.com/nguyengg/hezi/internal"
)

type List struct {
	Long     bool   `short:"l" long:"long" description:"show the size, compressed size, modification time, and compression of each entry"`
	Password string `short:"p" long:"password" description:"password of encrypted archives"`
	JSON     bool   `long:"json" description:"print the entries as a JSON array"`
	Args     struct {
		Files []flags.Filename `positional-arg-name:"archive" description:"the archives to list" required:"yes"`
	} `positional-args:"yes"`

	out io.Writer
}

func (c *List) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return forEach(ctx, "list", c.Args.Files, c.list)
}

func (c *List) list(ctx context.Context, name string) error {
	a, err := archive.OpenFile(name)
	if err != nil {
		return err
	}
	defer a.Close()

	entities, err := a.List(ctx, archive.ListOptions{Password: c.Password}, event.SimpleLogger{Logger: internal.Logger(ctx)})
	if err != nil {
		return err
	}

	w := stdout(c.out)

	if c.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err = enc.Encode(entities); err != nil {
			return &archive.JSONError{Err: err}
		}

		return nil
	}

	if !c.Long {
		for _, e := range entities {
			if _, err = fmt.Fprintln(w, e.Name); err != nil {
				return err
			}
		}

		return nil
	}

	return writeLong(w, entities)
}

// writeLong writes one row per entity with human-readable sizes.
func writeLong(w io.Writer, entities []archive.Entity) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "Size\tCompressed\tModified\tCompression\tType\t Name\t")

	var size, compressed uint64
	for _, e := range entities {
		row := make([]string, 0, 6)
		row = append(row, bytesOrDash(e.Size), bytesOrDash(e.CompressedSize))

		if e.LastModified != nil {
			row = append(row, e.LastModified.Local().Format(time.DateTime))
		} else {
			row = append(row, "-")
		}

		row = append(row, e.Compression, string(e.Kind), " "+e.Name)
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")

		if e.Size != nil {
			size += *e.Size
		}
		if e.CompressedSize != nil {
			compressed += *e.CompressedSize
		}
	}

	_, _ = fmt.Fprintf(tw, "%s\t%s\t\t\t\t %d entries\t\n", humanize.IBytes(size), humanize.IBytes(compressed), len(entities))
	return tw.Flush()
}

func bytesOrDash(v *uint64) string {
	if v == nil {
		return "-"
	}

	return humanize.IBytes(*v)
}
