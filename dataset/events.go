// Package dataset provides the tabular data model for sound event
// detection evaluation: event tables, prediction sets, file durations,
// and the feature store the prediction pipeline reads from.
package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Event is one detected or annotated sound event instance.
type Event struct {
	Filename string
	Label    string
	Onset    float64 // seconds
	Offset   float64 // seconds
}

// EventTable is an immutable collection of events plus the set of
// filenames it covers. Filenames are tracked separately from events so
// a file with no events still counts as present.
type EventTable struct {
	events []Event
	files  []string
	fileIx map[string]struct{}
}

// NewEventTable builds a table from events. The filename universe is
// the set of filenames appearing in the events, in first-seen order.
func NewEventTable(events []Event) *EventTable {
	t := &EventTable{
		events: events,
		fileIx: make(map[string]struct{}),
	}
	for _, ev := range events {
		t.addFile(ev.Filename)
	}
	return t
}

func (t *EventTable) addFile(name string) {
	if _, ok := t.fileIx[name]; ok {
		return
	}
	t.fileIx[name] = struct{}{}
	t.files = append(t.files, name)
}

// Events returns the rows of the table. Callers must not modify the
// returned slice.
func (t *EventTable) Events() []Event {
	return t.events
}

// Len returns the number of event rows.
func (t *EventTable) Len() int {
	return len(t.events)
}

// Filenames returns the unique filenames covered by the table, in
// first-seen order.
func (t *EventTable) Filenames() []string {
	return t.files
}

// HasFile reports whether name is part of the table's filename set.
func (t *EventTable) HasFile(name string) bool {
	_, ok := t.fileIx[name]
	return ok
}

// FilterFiles returns a new table containing only rows whose filename
// is in keep. All rows for a kept filename travel together; filenames
// in keep that the table never saw are ignored.
func (t *EventTable) FilterFiles(keep map[string]struct{}) *EventTable {
	out := &EventTable{fileIx: make(map[string]struct{}, len(keep))}
	for _, ev := range t.events {
		if _, ok := keep[ev.Filename]; ok {
			out.events = append(out.events, ev)
		}
	}
	for _, name := range t.files {
		if _, ok := keep[name]; ok {
			out.addFile(name)
		}
	}
	return out
}

// ForFile returns the events of a single file, in table order.
func (t *EventTable) ForFile(name string) []Event {
	var out []Event
	for _, ev := range t.events {
		if ev.Filename == name {
			out = append(out, ev)
		}
	}
	return out
}

// Labels returns the unique event labels in the table, in first-seen
// order.
func (t *EventTable) Labels() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ev := range t.events {
		if ev.Label == "" {
			continue
		}
		if _, ok := seen[ev.Label]; ok {
			continue
		}
		seen[ev.Label] = struct{}{}
		out = append(out, ev.Label)
	}
	return out
}

const eventHeader = "filename\tonset\toffset\tevent_label"

// LoadEvents reads a tab-separated event table with columns
// filename, onset, offset, event_label. Rows with empty onset, offset
// and label register the filename without adding an event, so files
// annotated as silent stay part of the filename universe.
func LoadEvents(path string) (*EventTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer func() { _ = f.Close() }()

	t := &EventTable{fileIx: make(map[string]struct{})}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r\n")
		if line == 1 && strings.HasPrefix(text, "filename") {
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) < 1 || fields[0] == "" {
			return nil, fmt.Errorf("%s:%d: missing filename", path, line)
		}
		name := fields[0]
		t.addFile(name)

		// Filename-only row: file present, no events.
		if len(fields) < 4 || (fields[1] == "" && fields[2] == "" && fields[3] == "") {
			continue
		}

		onset, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad onset %q: %w", path, line, fields[1], err)
		}
		offset, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad offset %q: %w", path, line, fields[2], err)
		}

		t.events = append(t.events, Event{
			Filename: name,
			Label:    fields[3],
			Onset:    onset,
			Offset:   offset,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}

	return t, nil
}

// Save writes the table as tab-separated text with a header row.
func (t *EventTable) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create events: %w", err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, eventHeader)
	for _, ev := range t.events {
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%s\n", ev.Filename, ev.Onset, ev.Offset, ev.Label)
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write events: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close events: %w", err)
	}
	return nil
}
