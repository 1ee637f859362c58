package event

import (
	"bytes"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	size := uint64(42)

	tests := []struct {
		name string
		e    Event
		want string
	}{
		{name: "extracting with size", e: Extracting{Name: "a.txt", Size: &size}, want: "Extracting a.txt (42)"},
		{name: "extracting", e: Extracting{Name: "dir/"}, want: "Extracting dir/"},
		{name: "done", e: DoneExtracting{Name: "a.zip", Destination: "out"}, want: "Done extracting a.zip to out"},
		{name: "failed", e: FailedToReadEntry{Name: "b", Err: errors.New("bad crc")}, want: "Failed to read entry b: bad crc"},
		{name: "created", e: Created{Name: "c.txt", Kind: "file"}, want: "Created file: c.txt"},
		{name: "hidden", e: Skipped{Name: ".git", Reason: Hidden}, want: "Skipped hidden file .git"},
		{name: "not in files", e: Skipped{Name: "x", Reason: NotInFiles}, want: "Skipped file x not in files"},
		{name: "exists", e: Skipped{Name: "x", Reason: AlreadyExists}, want: "Skipped file x already exists"},
		{name: "unknown type", e: Skipped{Name: "x", Reason: UnknownType}, want: "Skipped file x with unknown type"},
		{name: "log", e: Log{Text: "hello"}, want: "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String(tt.e))
		})
	}
}

func TestSimpleLogger(t *testing.T) {
	var buf bytes.Buffer
	SimpleLogger{Logger: log.New(&buf, "", 0)}.Handle(Created{Name: "a", Kind: "dir"})
	assert.Equal(t, "Created dir: a\n", buf.String())
}

func TestCollectorAndTee(t *testing.T) {
	a, b := &Collector{}, &Collector{}
	sink := Tee(a, b, Discard)

	sink.Handle(Log{Text: "1"})
	sink.Handle(Log{Text: "2"})

	assert.Equal(t, []Event{Log{Text: "1"}, Log{Text: "2"}}, a.Events())
	assert.Equal(t, a.Events(), b.Events())
}

func TestThrottle(t *testing.T) {
	c := &Collector{}
	sink := Throttle(c, time.Hour)

	sink.Handle(Log{Text: "first"})
	sink.Handle(Log{Text: "dropped"})
	sink.Handle(FailedToReadEntry{Name: "x", Err: errors.New("boom")})
	sink.Handle(DoneExtracting{Name: "a", Destination: "b"})

	events := c.Events()
	assert.Len(t, events, 3)
	assert.Equal(t, Log{Text: "first"}, events[0])
	assert.IsType(t, FailedToReadEntry{}, events[1])
	assert.IsType(t, DoneExtracting{}, events[2])
}
