package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage (e.g. history archive).
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Flowcharts ---

// SaveFlowchart inserts or updates a flowchart document.
func (s *LibSQLStore) SaveFlowchart(ctx context.Context, rec *FlowchartRecord) error {
	if rec.Document == nil {
		return schema.NewError(schema.ErrCodeValidation, "flowchart record has no document")
	}
	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO flowcharts (id, name, language, source_code, document, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, language=excluded.language, source_code=excluded.source_code,
		   document=excluded.document, updated_at=CURRENT_TIMESTAMP`,
		rec.ID, rec.Name, nullStr(rec.Language), nullStr(rec.SourceCode),
		string(doc), timeOrNow(rec.CreatedAt), timeOrNow(rec.UpdatedAt),
	)
	return err
}

// GetFlowchart fetches a flowchart document by id.
func (s *LibSQLStore) GetFlowchart(ctx context.Context, id string) (*FlowchartRecord, error) {
	rec := &FlowchartRecord{}
	var language, sourceCode sql.NullString
	var docJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, language, source_code, document, created_at, updated_at
		 FROM flowcharts WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &language, &sourceCode, &docJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("flowchart", id)
	}
	if err != nil {
		return nil, err
	}
	rec.Language = language.String
	rec.SourceCode = sourceCode.String
	if err := json.Unmarshal([]byte(docJSON), &rec.Document); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return rec, nil
}

// ListFlowcharts lists flowcharts matching the filter, newest first.
// Documents are included in full; callers that only need metadata can
// ignore them.
func (s *LibSQLStore) ListFlowcharts(ctx context.Context, filter FlowchartFilter) ([]*FlowchartRecord, error) {
	var where []string
	var args []any

	if filter.Language != "" {
		where = append(where, "language = ?")
		args = append(args, filter.Language)
	}
	if filter.Since != nil {
		where = append(where, "updated_at >= ?")
		args = append(args, *filter.Since)
	}

	query := `SELECT id, name, language, source_code, document, created_at, updated_at FROM flowcharts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*FlowchartRecord
	for rows.Next() {
		rec := &FlowchartRecord{}
		var language, sourceCode sql.NullString
		var docJSON string
		if err := rows.Scan(&rec.ID, &rec.Name, &language, &sourceCode, &docJSON, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Language = language.String
		rec.SourceCode = sourceCode.String
		if err := json.Unmarshal([]byte(docJSON), &rec.Document); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteFlowchart removes a flowchart and, via foreign key cascade, its
// history entries.
func (s *LibSQLStore) DeleteFlowchart(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flowcharts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "flowchart", id)
}

// --- History ---

// AppendHistory appends a history record with a monotonically increasing
// per-flowchart sequence, assigned inside the transaction.
func (s *LibSQLStore) AppendHistory(ctx context.Context, rec *HistoryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM history_entries WHERE flowchart_id = ?`, rec.FlowchartID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("get next sequence: %w", err)
	}
	rec.Sequence = seq

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO history_entries (id, flowchart_id, sequence, description, snapshot, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FlowchartID, seq, rec.Description, string(rec.Snapshot), rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history entry: %w", err)
	}
	return nil
}

// ListHistory returns history records for a flowchart with sequence > since,
// ordered by sequence ASC.
func (s *LibSQLStore) ListHistory(ctx context.Context, flowchartID string, since int64) ([]*HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, flowchart_id, sequence, description, snapshot, timestamp
		 FROM history_entries WHERE flowchart_id = ? AND sequence > ? ORDER BY sequence ASC`,
		flowchartID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*HistoryRecord
	for rows.Next() {
		rec := &HistoryRecord{}
		var snapshot string
		if err := rows.Scan(&rec.ID, &rec.FlowchartID, &rec.Sequence, &rec.Description, &snapshot, &rec.Timestamp); err != nil {
			return nil, err
		}
		rec.Snapshot = json.RawMessage(snapshot)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetHistoryEntry fetches one history record by its id.
func (s *LibSQLStore) GetHistoryEntry(ctx context.Context, id string) (*HistoryRecord, error) {
	rec := &HistoryRecord{}
	var snapshot string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, flowchart_id, sequence, description, snapshot, timestamp
		 FROM history_entries WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.FlowchartID, &rec.Sequence, &rec.Description, &snapshot, &rec.Timestamp)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("history entry", id)
	}
	if err != nil {
		return nil, err
	}
	rec.Snapshot = json.RawMessage(snapshot)
	return rec, nil
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
