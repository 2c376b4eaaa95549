package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/notesapp/core/internal/domain/entities"
	"github.com/notesapp/core/internal/infrastructure/config"
	"github.com/notesapp/core/internal/infrastructure/logger"
	"github.com/notesapp/core/internal/infrastructure/metrics"
	"github.com/notesapp/core/internal/ports"
)

const (
	opList   = "list"
	opGet    = "get"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
	opReset  = "reset"
)

// NoteService handles note operations. Each call waits out its configured latency first,
// then runs its load-modify-save cycle under a lock so concurrent writers never lose updates.
// A started call always runs to completion.
type NoteService struct {
	noteRepo ports.NoteRepository
	latency  config.LatencyConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics

	sleep func(time.Duration)
	now   func() time.Time

	mu sync.Mutex
}

// Option configures a NoteService
type Option func(*NoteService)

// WithMetrics records operation counts and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *NoteService) { s.metrics = m }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *NoteService) { s.now = now }
}

// WithSleep overrides how the artificial latency is waited out.
func WithSleep(sleep func(time.Duration)) Option {
	return func(s *NoteService) { s.sleep = sleep }
}

// NewNoteService creates a new note service
func NewNoteService(noteRepo ports.NoteRepository, latency config.LatencyConfig, logger *logger.Logger, opts ...Option) *NoteService {
	s := &NoteService{
		noteRepo: noteRepo,
		latency:  latency,
		logger:   logger.WithComponent("note_service"),
		sleep:    time.Sleep,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.NoteService = (*NoteService)(nil)

// List returns all notes, newest first, keeping only those matching query when it is non-empty
func (s *NoteService) List(ctx context.Context, query string) (notes []entities.Note, err error) {
	defer s.observe(opList, time.Now(), &err)
	s.wait(s.latency.List)

	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err = s.noteRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	s.metrics.SetNotesStored(len(notes))

	if query != "" {
		notes = lo.Filter(notes, func(n entities.Note, _ int) bool {
			return n.Matches(query)
		})
	}

	return notes, nil
}

// Get retrieves a note by ID
func (s *NoteService) Get(ctx context.Context, id string) (note *entities.Note, err error) {
	defer s.observe(opGet, time.Now(), &err)
	s.wait(s.latency.List)

	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.noteRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	found, ok := lo.Find(notes, func(n entities.Note) bool { return n.ID == id })
	if !ok {
		return nil, entities.ErrNoteNotFound
	}

	return &found, nil
}

// Create creates a new untitled note and stores it at the head of the list
func (s *NoteService) Create(ctx context.Context) (note *entities.Note, err error) {
	defer s.observe(opCreate, time.Now(), &err)
	s.wait(s.latency.Create)

	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.noteRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	created := entities.NewNote(s.now())
	for lo.ContainsBy(notes, func(n entities.Note) bool { return n.ID == created.ID }) {
		created.ID = entities.NewNoteID()
	}

	notes = append([]entities.Note{created}, notes...)
	if err := s.noteRepo.Save(ctx, notes); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	s.metrics.SetNotesStored(len(notes))

	s.logger.LogNoteAction(opCreate, created.ID, nil)

	return &created, nil
}

// Update merges the provided fields into the stored note and stamps a new UpdatedAt.
// A missing note yields entities.ErrNoteNotFound and leaves the store untouched.
func (s *NoteService) Update(ctx context.Context, req ports.UpdateNoteRequest) (note *entities.Note, err error) {
	defer s.observe(opUpdate, time.Now(), &err)
	s.wait(s.latency.Update)

	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.noteRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	_, idx, ok := lo.FindIndexOf(notes, func(n entities.Note) bool { return n.ID == req.ID })
	if !ok {
		s.logger.Debugw("Update skipped, note not found", "note_id", req.ID)
		return nil, entities.ErrNoteNotFound
	}

	updated := notes[idx]
	if req.Title != nil {
		updated.Title = *req.Title
	}
	if req.Content != nil {
		updated.Content = *req.Content
	}
	updated.Touch(s.now())
	notes[idx] = updated

	if err := s.noteRepo.Save(ctx, notes); err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	s.logger.LogNoteAction(opUpdate, updated.ID, map[string]interface{}{
		"title_changed":   req.Title != nil,
		"content_changed": req.Content != nil,
	})

	return &updated, nil
}

// Delete removes the note with the given ID. It reports success whether or not the note existed;
// only storage failures produce an error.
func (s *NoteService) Delete(ctx context.Context, id string) (deleted bool, err error) {
	defer s.observe(opDelete, time.Now(), &err)
	s.wait(s.latency.Delete)

	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.noteRepo.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete note: %w", err)
	}

	remaining := lo.Reject(notes, func(n entities.Note, _ int) bool { return n.ID == id })
	if err := s.noteRepo.Save(ctx, remaining); err != nil {
		return false, fmt.Errorf("failed to delete note: %w", err)
	}
	s.metrics.SetNotesStored(len(remaining))

	s.logger.LogNoteAction(opDelete, id, map[string]interface{}{
		"existed": len(remaining) != len(notes),
	})

	return true, nil
}

// Reset replaces the stored list with the seed notes
func (s *NoteService) Reset(ctx context.Context) (err error) {
	defer s.observe(opReset, time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	seed := entities.SeedNotes(s.now())
	if err := s.noteRepo.Save(ctx, seed); err != nil {
		return fmt.Errorf("failed to reset notes: %w", err)
	}
	s.metrics.SetNotesStored(len(seed))

	s.logger.LogNoteAction(opReset, "", map[string]interface{}{"notes": len(seed)})

	return nil
}

func (s *NoteService) wait(d time.Duration) {
	if d > 0 {
		s.sleep(d)
	}
}

func (s *NoteService) observe(op string, start time.Time, errp *error) {
	outcome := "ok"
	switch {
	case errors.Is(*errp, entities.ErrNoteNotFound):
		outcome = "not_found"
	case *errp != nil:
		outcome = "error"
		s.logger.Errorw("Note operation failed", "op", op, "error", *errp)
	}
	s.metrics.ObserveNoteOp(op, start, outcome)
}
