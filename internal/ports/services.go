package ports

import (
	"context"

	"github.com/notesapp/core/internal/domain/entities"
)

// NoteService interface for note operations
type NoteService interface {
	List(ctx context.Context, query string) ([]entities.Note, error)
	Get(ctx context.Context, id string) (*entities.Note, error)
	Create(ctx context.Context) (*entities.Note, error)
	Update(ctx context.Context, req UpdateNoteRequest) (*entities.Note, error)
	Delete(ctx context.Context, id string) (bool, error)
	Reset(ctx context.Context) error
}

// Request/Response Types

// UpdateNoteRequest carries a partial note. Nil fields are left untouched.
type UpdateNoteRequest struct {
	ID      string  `json:"id" validate:"required,max=128"`
	Title   *string `json:"title" validate:"omitempty,max=512"`
	Content *string `json:"content" validate:"omitempty,max=1048576"`
}

// NoteListResponse is the body of a list call
type NoteListResponse struct {
	Data  []entities.Note `json:"data"`
	Total int             `json:"total"`
	Query string          `json:"query,omitempty"`
}
