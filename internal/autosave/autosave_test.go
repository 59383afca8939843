package autosave

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/internal/graph"
	"github.com/flowdeck/flowdeck/internal/history"
	"github.com/flowdeck/flowdeck/internal/store"
	"github.com/flowdeck/flowdeck/pkg/schema"
)

func newTestSaver(t *testing.T, spec string) (*Saver, *store.LibSQLStore) {
	t.Helper()
	st, err := store.NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	s, err := New(st, spec, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s, st
}

func newSession(t *testing.T) (*graph.Model, *history.Log) {
	t.Helper()
	m := graph.New()
	l := history.NewLog()
	_, err := m.AddNode(schema.NodeTypeStart, 400, 50, "Start")
	require.NoError(t, err)
	_, err = l.Record("Added start node", m.Snapshot())
	require.NoError(t, err)
	return m, l
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	st, err := store.NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = New(st, "not a schedule", nil)
	require.Error(t, err)
}

func TestTick_SavesDirtySessionsOnly(t *testing.T) {
	s, st := newTestSaver(t, "@every 1h")
	ctx := context.Background()

	m, l := newSession(t)
	s.Register("fc-1", "demo", "pascal", "begin end.", m, l)

	s.tick(ctx)

	rec, err := st.GetFlowchart(ctx, "fc-1")
	require.NoError(t, err)
	assert.Equal(t, "demo", rec.Name)
	require.Len(t, rec.Document.Nodes, 1)

	saved, err := st.ListHistory(ctx, "fc-1", 0)
	require.NoError(t, err)
	assert.Len(t, saved, 1)

	// Nothing changed; the next tick must not rewrite history.
	s.tick(ctx)
	saved, err = st.ListHistory(ctx, "fc-1", 0)
	require.NoError(t, err)
	assert.Len(t, saved, 1)

	// A new mutation makes the session dirty again.
	_, err = m.AddNode(schema.NodeTypeEnd, 400, 180, "End")
	require.NoError(t, err)
	_, err = l.Record("Added end node", m.Snapshot())
	require.NoError(t, err)

	s.tick(ctx)
	saved, err = st.ListHistory(ctx, "fc-1", 0)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "Added end node", saved[1].Description)

	rec, err = st.GetFlowchart(ctx, "fc-1")
	require.NoError(t, err)
	assert.Len(t, rec.Document.Nodes, 2)
}

func TestSaveNow_UnregisteredSession(t *testing.T) {
	s, _ := newTestSaver(t, "")

	err := s.SaveNow(context.Background(), "missing")
	require.Error(t, err)
}

func TestStartStop_FinalSaveFlushesDirtyState(t *testing.T) {
	s, st := newTestSaver(t, "@every 1h")
	ctx := context.Background()

	m, l := newSession(t)
	s.Register("fc-2", "demo", "", "", m, l)

	require.NoError(t, s.Start(ctx))
	require.Error(t, s.Start(ctx), "double start is rejected")

	require.NoError(t, s.Stop(ctx))

	// Stop performed a final save even though no tick fired.
	rec, err := st.GetFlowchart(ctx, "fc-2")
	require.NoError(t, err)
	assert.Len(t, rec.Document.Nodes, 1)

	require.NoError(t, s.Stop(ctx), "stop is idempotent")
}

func TestUnregister_StopsSaving(t *testing.T) {
	s, st := newTestSaver(t, "@every 1h")
	ctx := context.Background()

	m, l := newSession(t)
	s.Register("fc-3", "demo", "", "", m, l)
	s.Unregister("fc-3")

	s.tick(ctx)

	_, err := st.GetFlowchart(ctx, "fc-3")
	require.Error(t, err)
}
