package event

import (
	"fmt"
	"log"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// ProgressBar advances a byte-based progress bar with the sizes of extracted entries.
//
// Failures and skips are still printed through Logger (log.Default if nil) after clearing the bar so that they are
// not overwritten by the next render.
type ProgressBar struct {
	Bar    *progressbar.ProgressBar
	Logger *log.Logger
}

func (p *ProgressBar) Handle(e Event) {
	switch e := e.(type) {
	case Extracting:
		if e.Size != nil {
			p.Bar.Describe(fmt.Sprintf("%s (%s)", e.Name, humanize.IBytes(*e.Size)))
			_ = p.Bar.Add64(int64(*e.Size))
		} else {
			p.Bar.Describe(e.Name)
		}
	case Created:
		p.Bar.Describe(e.Name)
	case DoneExtracting:
		_ = p.Bar.Finish()
	case FailedToReadEntry, Skipped:
		_ = p.Bar.Clear()
		p.print(String(e))
	case Log:
		p.Bar.Describe(e.Text)
	}
}

func (p *ProgressBar) print(s string) {
	if p.Logger == nil {
		log.Print(s)
		return
	}

	p.Logger.Print(s)
}
