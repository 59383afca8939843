// Package autosave periodically persists dirty editor sessions to the
// store so a crash loses at most one save interval of work.
package autosave

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowdeck/flowdeck/internal/graph"
	"github.com/flowdeck/flowdeck/internal/history"
	"github.com/flowdeck/flowdeck/internal/store"
)

// DefaultSchedule saves every 30 seconds.
const DefaultSchedule = "@every 30s"

// session is one registered editor whose state gets persisted.
type session struct {
	id       string
	name     string
	language string
	source   string
	model    *graph.Model
	log      *history.Log

	// lastSaved is the highest history sequence already persisted. A
	// session is dirty when its log has entries beyond it, since every
	// committed mutation records one.
	lastSaved int64
}

func (s *session) dirty() bool {
	entries := s.log.Entries()
	return len(entries) > 0 && entries[len(entries)-1].Sequence > s.lastSaved
}

// Saver owns the registered sessions and the background save loop.
type Saver struct {
	store    store.Store
	archive  *store.HistoryArchive
	schedule cron.Schedule
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a Saver with the given cron-style schedule ("@every 30s",
// "*/5 * * * *", ...). An empty spec uses the default interval.
func New(st store.Store, spec string, logger *slog.Logger) (*Saver, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse autosave schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{
		store:    st,
		archive:  store.NewHistoryArchive(st),
		schedule: schedule,
		logger:   logger,
		sessions: make(map[string]*session),
	}, nil
}

// Register adds an editor session to the save set. Re-registering the same
// id replaces the session's metadata but keeps its save watermark.
func (s *Saver) Register(id, name, language, source string, model *graph.Model, log *history.Log) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[id]; ok {
		existing.name = name
		existing.language = language
		existing.source = source
		existing.model = model
		existing.log = log
		return
	}
	s.sessions[id] = &session{id: id, name: name, language: language, source: source, model: model, log: log}
}

// Unregister removes a session from the save set without a final save.
func (s *Saver) Unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Start launches the background save loop.
func (s *Saver) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("autosave already started")
	}
	saveCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(saveCtx, s.done)
	s.logger.Info("autosave started")
	return nil
}

func (s *Saver) loop(ctx context.Context, done chan struct{}) {
	// Close the channel captured at Start; Stop nils s.done before this
	// goroutine exits, so the field cannot be read here.
	defer close(done)

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.tick(ctx)
		}
	}
}

// tick saves every dirty session.
func (s *Saver) tick(ctx context.Context) {
	s.mu.Lock()
	dirty := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.dirty() {
			dirty = append(dirty, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range dirty {
		if err := s.save(ctx, sess); err != nil {
			s.logger.Error("autosave failed",
				slog.String("flowchart_id", sess.id),
				slog.String("error", err.Error()),
			)
		}
	}
}

// SaveNow persists one session immediately, dirty or not.
func (s *Saver) SaveNow(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("autosave: session %q not registered", id)
	}
	return s.save(ctx, sess)
}

// save writes the current document and flushes unsaved history entries.
func (s *Saver) save(ctx context.Context, sess *session) error {
	if err := s.store.SaveFlowchart(ctx, &store.FlowchartRecord{
		ID:         sess.id,
		Name:       sess.name,
		Language:   sess.language,
		SourceCode: sess.source,
		Document:   sess.model.Snapshot(),
	}); err != nil {
		return fmt.Errorf("save flowchart %q: %w", sess.id, err)
	}

	flushed, err := s.archive.FlushNew(ctx, sess.id, sess.log)
	if err != nil {
		return fmt.Errorf("flush history for %q: %w", sess.id, err)
	}

	s.mu.Lock()
	if entries := sess.log.Entries(); len(entries) > 0 {
		sess.lastSaved = entries[len(entries)-1].Sequence
	}
	s.mu.Unlock()

	s.logger.Debug("autosaved flowchart",
		slog.String("flowchart_id", sess.id),
		slog.Int("history_flushed", flushed),
	)
	return nil
}

// Stop gracefully shuts down the save loop. Registered sessions get one
// final save so nothing dirty is lost on shutdown.
func (s *Saver) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done

	s.tick(ctx)
	s.logger.Info("autosave stopped")
	return nil
}
