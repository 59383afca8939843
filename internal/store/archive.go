package store

import (
	"context"
	"fmt"

	"github.com/flowdeck/flowdeck/internal/history"
	"github.com/flowdeck/flowdeck/pkg/schema"
)

// HistoryArchive persists in-memory history logs on top of a Store and
// rebuilds them from the append-only history_entries table.
type HistoryArchive struct {
	store Store
}

// NewHistoryArchive wraps a Store with history log persistence.
func NewHistoryArchive(s Store) *HistoryArchive {
	return &HistoryArchive{store: s}
}

// AppendEntry persists one history log entry for a flowchart. The store
// assigns the per-flowchart sequence; entries flushed in recording order
// keep their in-memory sequence.
func (a *HistoryArchive) AppendEntry(ctx context.Context, flowchartID string, e *history.Entry) error {
	snapshot, err := history.EncodeSnapshot(e.Snapshot)
	if err != nil {
		return fmt.Errorf("encode history snapshot: %w", err)
	}
	return a.store.AppendHistory(ctx, &HistoryRecord{
		ID:          e.ID,
		FlowchartID: flowchartID,
		Description: e.Description,
		Snapshot:    snapshot,
		Timestamp:   e.Timestamp,
	})
}

// FlushNew persists every log entry with a sequence above the highest one
// already stored. Used by autosave to write only what changed.
func (a *HistoryArchive) FlushNew(ctx context.Context, flowchartID string, log *history.Log) (int, error) {
	stored, err := a.store.ListHistory(ctx, flowchartID, 0)
	if err != nil {
		return 0, err
	}
	var last int64
	if len(stored) > 0 {
		last = stored[len(stored)-1].Sequence
	}

	flushed := 0
	for _, e := range log.Entries() {
		if e.Sequence <= last {
			continue
		}
		if err := a.AppendEntry(ctx, flowchartID, e); err != nil {
			return flushed, err
		}
		flushed++
	}
	return flushed, nil
}

// Replay rebuilds a history log from the persisted records, validating
// sequence contiguity so a gap in the append-only log is detected instead
// of silently replayed.
func (a *HistoryArchive) Replay(ctx context.Context, flowchartID string) (*history.Log, error) {
	records, err := a.store.ListHistory(ctx, flowchartID, 0)
	if err != nil {
		return nil, fmt.Errorf("list history for replay: %w", err)
	}

	entries := make([]*history.Entry, 0, len(records))
	for i, rec := range records {
		expected := int64(i + 1)
		if rec.Sequence != expected {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"sequence gap in flowchart %s history: expected %d, got %d", flowchartID, expected, rec.Sequence)
		}
		snapshot, err := history.DecodeSnapshot(rec.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("decode history snapshot %s: %w", rec.ID, err)
		}
		entries = append(entries, &history.Entry{
			ID:          rec.ID,
			Sequence:    rec.Sequence,
			Timestamp:   rec.Timestamp,
			Description: rec.Description,
			Snapshot:    snapshot,
		})
	}
	return history.FromEntries(entries), nil
}
