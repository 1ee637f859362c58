package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/hezi/archive"
)

type Metadata struct {
	JSON bool `long:"json" description:"print the metadata including all entries as JSON"`
	Args struct {
		Files []flags.Filename `positional-arg-name:"archive" description:"the archives to inspect" required:"yes"`
	} `positional-args:"yes"`

	out io.Writer
}

func (c *Metadata) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return forEach(ctx, "inspect", c.Args.Files, c.inspect)
}

func (c *Metadata) inspect(ctx context.Context, name string) error {
	a, err := archive.OpenFile(name)
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.Metadata(ctx)
	if err != nil {
		return err
	}

	w := stdout(c.out)

	if c.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err = enc.Encode(m); err != nil {
			return &archive.JSONError{Err: err}
		}

		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Name:\t%s\n", a.Name())
	_, _ = fmt.Fprintf(tw, "Type:\t%s\n", a.Type)
	if m.Compression != "" {
		_, _ = fmt.Fprintf(tw, "Compression:\t%s\n", m.Compression)
	}
	_, _ = fmt.Fprintf(tw, "Entries:\t%d\n", len(m.Entries))
	_, _ = fmt.Fprintf(tw, "Total size:\t%s\n", humanize.IBytes(m.TotalSize))
	_, _ = fmt.Fprintf(tw, "Compressed size:\t%s\n", humanize.IBytes(m.CompressedSize))
	if m.TotalSize != 0 {
		_, _ = fmt.Fprintf(tw, "Ratio:\t%.1f%%\n", float64(m.CompressedSize)*100/float64(m.TotalSize))
	}
	for _, k := range slices.Sorted(maps.Keys(m.Additional)) {
		_, _ = fmt.Fprintf(tw, "%s:\t%v\n", k, m.Additional[k])
	}

	return tw.Flush()
}
