package ports

import (
	"context"

	"github.com/notesapp/core/internal/domain/entities"
)

// KVStore is the key-value backend the note list is persisted in.
// A missing key is reported with found == false and a nil error.
type KVStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// NoteRepository defines the interface for note list persistence
type NoteRepository interface {
	// Load returns every stored note sorted by UpdatedAt, newest first.
	// Missing or malformed data yields the seed notes instead of an error.
	Load(ctx context.Context) ([]entities.Note, error)
	Save(ctx context.Context, notes []entities.Note) error
}
