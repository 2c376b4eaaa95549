package repository

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/notesapp/core/internal/domain/entities"
	"github.com/notesapp/core/internal/infrastructure/logger"
	"github.com/notesapp/core/internal/ports"
)

// DefaultKey is the key the note list is stored under.
const DefaultKey = "app-notes-list-v1"

var codec = sonic.ConfigStd

// NoteRepositoryImpl implements the NoteRepository interface on top of a KVStore
type NoteRepositoryImpl struct {
	store  ports.KVStore
	key    string
	now    func() time.Time
	logger *logger.Logger
}

// Option configures a NoteRepositoryImpl
type Option func(*NoteRepositoryImpl)

// WithClock overrides the time source used for seed timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *NoteRepositoryImpl) { r.now = now }
}

// WithLogger sets the logger used for store access and reseed events.
func WithLogger(l *logger.Logger) Option {
	return func(r *NoteRepositoryImpl) { r.logger = l }
}

// NewNoteRepository creates a new note repository storing the list under key
func NewNoteRepository(store ports.KVStore, key string, opts ...Option) *NoteRepositoryImpl {
	if key == "" {
		key = DefaultKey
	}
	r := &NoteRepositoryImpl{
		store:  store,
		key:    key,
		now:    time.Now,
		logger: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.NoteRepository = (*NoteRepositoryImpl)(nil)

func (r *NoteRepositoryImpl) Load(ctx context.Context) ([]entities.Note, error) {
	start := time.Now()
	data, found, err := r.store.Get(ctx, r.key)
	r.logger.LogStoreAccess("get", r.key, msSince(start), err)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}

	notes, ok := decodeNotes(data)
	if !found || !ok {
		r.logger.Debugw("Stored notes missing or unreadable, using seed notes", "key", r.key, "found", found)
		notes = entities.SeedNotes(r.now().UTC())
	}

	entities.SortByUpdatedDesc(notes)
	return notes, nil
}

func (r *NoteRepositoryImpl) Save(ctx context.Context, notes []entities.Note) error {
	if notes == nil {
		notes = []entities.Note{}
	}
	data, err := codec.Marshal(notes)
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}

	start := time.Now()
	err = r.store.Set(ctx, r.key, data)
	r.logger.LogStoreAccess("set", r.key, msSince(start), err)
	if err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	return nil
}

// decodeNotes accepts only a JSON array of note objects.
func decodeNotes(data []byte) ([]entities.Note, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}

	var notes []entities.Note
	if err := codec.Unmarshal(trimmed, &notes); err != nil {
		return nil, false
	}
	if notes == nil {
		notes = []entities.Note{}
	}
	return notes, true
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
