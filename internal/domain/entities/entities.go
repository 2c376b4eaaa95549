package entities

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNoteNotFound = errors.New("note not found")
	ErrBusy         = errors.New("another operation is in progress")
	ErrNoSelection  = errors.New("no note selected")
	ErrNotEditing   = errors.New("note is not being edited")
)

// DefaultNoteTitle is the title given to freshly created notes.
const DefaultNoteTitle = "Untitled"

// Note represents a note in the system
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewNote builds an empty note stamped with now.
func NewNote(now time.Time) Note {
	return Note{
		ID:        NewNoteID(),
		Title:     DefaultNoteTitle,
		Content:   "",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewNoteID returns a time-ordered id: a millisecond timestamp followed by random bits.
func NewNoteID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SeedNotes returns the demo notes used when nothing usable is stored.
func SeedNotes(now time.Time) []Note {
	return []Note{
		{
			ID:        "1",
			Title:     "Welcome",
			Content:   "This is your notes app.\nYou can create, edit, delete or search your notes!",
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        "2",
			Title:     "Minimalism",
			Content:   "The app uses a minimal, modern UI. Try editing this note.",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// Business logic methods for Note

// Matches reports whether query occurs in the title or content, ignoring case.
// An empty query matches everything.
func (n *Note) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Content), q)
}

// Touch stamps UpdatedAt with now, keeping it strictly after the previous value.
func (n *Note) Touch(now time.Time) {
	if !now.After(n.UpdatedAt) {
		now = n.UpdatedAt.Add(time.Nanosecond)
	}
	n.UpdatedAt = now
}

// DisplayTitle is the title shown in lists; blank titles read as the default.
func (n *Note) DisplayTitle() string {
	if strings.TrimSpace(n.Title) == "" {
		return DefaultNoteTitle
	}
	return n.Title
}

// SortByUpdatedDesc orders notes newest first. Ties keep their stored order.
func SortByUpdatedDesc(notes []Note) {
	slices.SortStableFunc(notes, func(a, b Note) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}
