package store

import "context"

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Flowchart documents
	SaveFlowchart(ctx context.Context, rec *FlowchartRecord) error
	GetFlowchart(ctx context.Context, id string) (*FlowchartRecord, error)
	ListFlowcharts(ctx context.Context, filter FlowchartFilter) ([]*FlowchartRecord, error)
	DeleteFlowchart(ctx context.Context, id string) error

	// History (append-only)
	AppendHistory(ctx context.Context, rec *HistoryRecord) error
	ListHistory(ctx context.Context, flowchartID string, since int64) ([]*HistoryRecord, error)
	GetHistoryEntry(ctx context.Context, id string) (*HistoryRecord, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
