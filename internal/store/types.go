package store

import (
	"encoding/json"
	"time"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// FlowchartRecord is the persisted representation of a flowchart document
// together with the source code it was generated from.
type FlowchartRecord struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Language   string            `json:"language,omitempty"`
	SourceCode string            `json:"source_code,omitempty"`
	Document   *schema.Flowchart `json:"document"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// HistoryRecord is one immutable entry in the per-flowchart snapshot log.
// Snapshot holds the versioned snapshot envelope, opaque to the store.
type HistoryRecord struct {
	ID          string          `json:"id"`
	FlowchartID string          `json:"flowchart_id"`
	Sequence    int64           `json:"sequence"`
	Description string          `json:"description"`
	Snapshot    json.RawMessage `json:"snapshot"`
	Timestamp   time.Time       `json:"timestamp"`
}

// FlowchartFilter specifies criteria for listing flowcharts.
type FlowchartFilter struct {
	Language string     `json:"language,omitempty"`
	Since    *time.Time `json:"since,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}
