package schema

import (
	"fmt"
	"time"
)

// Event is one normalized activity occurrence from any source.
type Event struct {
	Source       Source    `json:"source"`
	Repository   string    `json:"repository"`
	User         string    `json:"user,omitempty"` // empty when the event has no authorship trail
	Timestamp    time.Time `json:"timestamp"`
	Kind         Kind      `json:"kind"`
	LinesAdded   int       `json:"lines_added"`
	LinesDeleted int       `json:"lines_deleted"`
	Path         string    `json:"path,omitempty"`
	Reference    string    `json:"reference,omitempty"`
	URL          string    `json:"url,omitempty"`
	Title        string    `json:"title,omitempty"`
}

// EventKey is the identity of an event across scanners.
type EventKey struct {
	Source     Source
	Repository string
	Reference  string
	Path       string
}

// Key returns the identity tuple of the event.
func (e Event) Key() EventKey {
	return EventKey{Source: e.Source, Repository: e.Repository, Reference: e.Reference, Path: e.Path}
}

// Attributed reports whether the event carries a user.
func (e Event) Attributed() bool {
	return e.User != ""
}

// Validate checks the minimal invariants every event must satisfy.
func (e Event) Validate() error {
	if e.Source == "" {
		return fmt.Errorf("event has no source")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event %s/%s has no timestamp", e.Source, e.Reference)
	}
	if e.LinesAdded < 0 || e.LinesDeleted < 0 {
		return fmt.Errorf("event %s/%s has negative line counts", e.Source, e.Reference)
	}
	return nil
}

// IsCommit reports whether the event is a commit from any source.
func (e Event) IsCommit() bool {
	return e.Source == APICommit || e.Source == LocalCommit
}

// IsFileTouch reports whether the event only marks a file path as touched.
func (e Event) IsFileTouch() bool {
	switch e.Source {
	case LocalFileMtime, SnapshotFile, FSFile:
		return true
	}
	return false
}

// Window is an inclusive range of whole UTC calendar dates. A zero bound is unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a window whose bounds are truncated to UTC dates.
func NewWindow(start, end time.Time) Window {
	return Window{Start: DateOf(start), End: DateOf(end)}
}

// Contains reports whether t falls on a date inside the window.
func (w Window) Contains(t time.Time) bool {
	d := DateOf(t)
	if !w.Start.IsZero() && d.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && d.After(w.End) {
		return false
	}
	return true
}

// Since returns the first instant of the window, or zero when unbounded.
func (w Window) Since() time.Time {
	return w.Start
}

// Until returns the last instant of the window, or zero when unbounded.
func (w Window) Until() time.Time {
	if w.End.IsZero() {
		return time.Time{}
	}
	return w.End.Add(24*time.Hour - time.Nanosecond)
}

// DateOf truncates t to its UTC calendar date. The zero time stays zero.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
