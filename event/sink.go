package event

import (
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Sink receives events.
//
// Every archive operation takes a Sink explicitly; pass Discard to ignore all events.
type Sink interface {
	Handle(Event)
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(Event)

func (fn SinkFunc) Handle(e Event) {
	fn(e)
}

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// SimpleLogger prints every event with String to the given log.Logger.
//
// The zero value uses log.Default.
type SimpleLogger struct {
	Logger *log.Logger
}

func (l SimpleLogger) Handle(e Event) {
	if l.Logger == nil {
		log.Print(String(e))
		return
	}

	l.Logger.Print(String(e))
}

// Collector records every event it receives.
//
// Collector is safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *Collector) Handle(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

// Events returns a copy of the recorded events in the order they were received.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Tee forwards every event to all the given sinks in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			s.Handle(e)
		}
	})
}

// Throttle forwards FailedToReadEntry and DoneExtracting events immediately, but all other events at most once every
// interval.
//
// Useful to keep the terminal readable when extracting archives with many small files.
func Throttle(s Sink, interval time.Duration) Sink {
	sometimes := &rate.Sometimes{Interval: interval}

	return SinkFunc(func(e Event) {
		switch e.(type) {
		case FailedToReadEntry, DoneExtracting:
			s.Handle(e)
		default:
			sometimes.Do(func() {
				s.Handle(e)
			})
		}
	})
}
