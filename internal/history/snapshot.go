package history

import (
	"encoding/json"
	"fmt"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// SnapshotVersion is the current snapshot envelope version. Bump it when
// the Node or Connection schema changes shape; DecodeSnapshot rejects
// versions it does not understand instead of silently misreading them.
const SnapshotVersion = 1

// snapshotEnvelope is the persisted form of a flowchart snapshot.
type snapshotEnvelope struct {
	Version   int               `json:"version"`
	Flowchart *schema.Flowchart `json:"flowchart"`
}

// EncodeSnapshot serializes a flowchart into a versioned snapshot payload.
func EncodeSnapshot(f *schema.Flowchart) ([]byte, error) {
	if f == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "cannot snapshot a nil flowchart")
	}
	b, err := json.Marshal(snapshotEnvelope{Version: SnapshotVersion, Flowchart: f})
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "encode snapshot").WithCause(err)
	}
	return b, nil
}

// DecodeSnapshot deserializes a snapshot payload, checking the envelope
// version.
func DecodeSnapshot(data []byte) (*schema.Flowchart, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "decode snapshot").WithCause(err)
	}
	if env.Version != SnapshotVersion {
		return nil, schema.NewErrorf(schema.ErrCodeStore,
			"unsupported snapshot version %d (expected %d)", env.Version, SnapshotVersion)
	}
	if env.Flowchart == nil {
		return nil, schema.NewError(schema.ErrCodeStore, "snapshot has no flowchart payload")
	}
	if env.Flowchart.Nodes == nil {
		env.Flowchart.Nodes = []*schema.Node{}
	}
	if env.Flowchart.Connections == nil {
		env.Flowchart.Connections = []*schema.Connection{}
	}
	return env.Flowchart, nil
}

// CloneViaSnapshot deep-copies a flowchart by round-tripping it through the
// snapshot codec. Slower than Flowchart.Clone but catches schema drift in
// tests.
func CloneViaSnapshot(f *schema.Flowchart) (*schema.Flowchart, error) {
	b, err := EncodeSnapshot(f)
	if err != nil {
		return nil, err
	}
	clone, err := DecodeSnapshot(b)
	if err != nil {
		return nil, fmt.Errorf("history: snapshot round-trip: %w", err)
	}
	return clone, nil
}
