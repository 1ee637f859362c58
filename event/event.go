// Package event defines the notifications emitted while listing, extracting, or creating archives.
//
// Events are delivered synchronously on the goroutine performing the operation, so a slow Sink directly slows down
// extraction and creation.
package event

import (
	"fmt"
)

// Event is one of Extracting, DoneExtracting, FailedToReadEntry, Created, Skipped, or Log.
type Event interface {
	event()
}

// Extracting is emitted right before an entry is extracted.
type Extracting struct {
	Name string
	// Size is the uncompressed size of the entry if known.
	Size *uint64
}

// DoneExtracting is emitted once at the end of a successful extraction.
type DoneExtracting struct {
	Name        string
	Destination string
}

// FailedToReadEntry is emitted when a single entry cannot be read; the operation continues with the next entry.
type FailedToReadEntry struct {
	Name string
	Err  error
}

// Created is emitted for every entry added to a new archive.
type Created struct {
	Name string
	// Kind is the entry kind such as "file", "dir", or "symlink".
	Kind string
}

// Skipped is emitted when an entry is intentionally not processed.
type Skipped struct {
	Name   string
	Reason SkipReason
}

// Log is a free-form message.
type Log struct {
	Text string
}

func (Extracting) event()        {}
func (DoneExtracting) event()    {}
func (FailedToReadEntry) event() {}
func (Created) event()           {}
func (Skipped) event()           {}
func (Log) event()               {}

// SkipReason explains why an entry was skipped.
type SkipReason int

const (
	// Hidden means the entry is a hidden file and hidden files were not requested.
	Hidden SkipReason = iota
	// NotInFiles means the entry is not in the requested subset of files.
	NotInFiles
	// AlreadyExists means the destination exists and overwriting was not requested.
	AlreadyExists
	// UnknownType means the entry is neither a file, a directory, nor a symbolic link.
	UnknownType
)

func (r SkipReason) String() string {
	switch r {
	case Hidden:
		return "hidden"
	case NotInFiles:
		return "not in files"
	case AlreadyExists:
		return "already exists"
	case UnknownType:
		return "unknown type"
	default:
		return fmt.Sprintf("SkipReason(%d)", int(r))
	}
}

// String returns the human-readable description of the given event.
func String(e Event) string {
	switch e := e.(type) {
	case Extracting:
		if e.Size != nil {
			return fmt.Sprintf("Extracting %s (%d)", e.Name, *e.Size)
		}
		return fmt.Sprintf("Extracting %s", e.Name)
	case DoneExtracting:
		return fmt.Sprintf("Done extracting %s to %s", e.Name, e.Destination)
	case FailedToReadEntry:
		return fmt.Sprintf("Failed to read entry %s: %v", e.Name, e.Err)
	case Created:
		return fmt.Sprintf("Created %s: %s", e.Kind, e.Name)
	case Skipped:
		switch e.Reason {
		case Hidden:
			return fmt.Sprintf("Skipped hidden file %s", e.Name)
		case NotInFiles:
			return fmt.Sprintf("Skipped file %s not in files", e.Name)
		case AlreadyExists:
			return fmt.Sprintf("Skipped file %s already exists", e.Name)
		case UnknownType:
			return fmt.Sprintf("Skipped file %s with unknown type", e.Name)
		default:
			return fmt.Sprintf("Skipped file %s (%s)", e.Name, e.Reason)
		}
	case Log:
		return e.Text
	default:
		return fmt.Sprintf("%#v", e)
	}
}
