// Package history implements the append-only log of flowchart snapshots.
// Entries are immutable once recorded; restore hands back a deep copy and
// does not itself append an entry.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// Entry is one immutable snapshot of the flowchart, recorded after a
// committed mutation.
type Entry struct {
	ID          string            `json:"id"`
	Sequence    int64             `json:"sequence"`
	Timestamp   time.Time         `json:"timestamp"`
	Description string            `json:"description"`
	Snapshot    *schema.Flowchart `json:"snapshot"`
}

// Log is an append-only sequence of entries with a per-log monotonic
// sequence counter. Not safe for concurrent use; owned by the editor.
type Log struct {
	entries []*Entry
	nextSeq int64
}

// NewLog creates an empty history log.
func NewLog() *Log {
	return &Log{nextSeq: 1}
}

// FromEntries rebuilds a log from previously recorded entries, resuming
// the sequence counter after the highest sequence present.
func FromEntries(entries []*Entry) *Log {
	l := &Log{entries: entries, nextSeq: 1}
	for _, e := range entries {
		if e.Sequence >= l.nextSeq {
			l.nextSeq = e.Sequence + 1
		}
	}
	return l
}

// Record appends a deep-copied snapshot of f with the given description
// and returns the new entry.
func (l *Log) Record(description string, f *schema.Flowchart) (*Entry, error) {
	snap, err := CloneViaSnapshot(f)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		ID:          uuid.NewString(),
		Sequence:    l.nextSeq,
		Timestamp:   time.Now().UTC(),
		Description: description,
		Snapshot:    snap,
	}
	l.nextSeq++
	l.entries = append(l.entries, e)
	return e, nil
}

// Entries returns the entries in recording order. Callers must not mutate
// the returned entries or their snapshots.
func (l *Log) Entries() []*Entry {
	return l.entries
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Entry returns the entry with the given id, or nil.
func (l *Log) Entry(id string) *Entry {
	for _, e := range l.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Restore returns a deep copy of the identified entry's snapshot for the
// caller to install as live state. The log itself is left untouched.
func (l *Log) Restore(entryID string) (*schema.Flowchart, error) {
	e := l.Entry(entryID)
	if e == nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "history entry %q not found", entryID)
	}
	return CloneViaSnapshot(e.Snapshot)
}
