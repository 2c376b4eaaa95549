// Package coordinator owns the state behind the notes UI: the loaded list, the search query,
// which note is selected, whether it is being edited, and the in-progress draft.
//
// Every action that talks to the note service flips the coordinator into StateLoading for its
// duration. While loading, further actions are refused with entities.ErrBusy, the same way the
// page disables its controls.
package coordinator

import (
	"context"
	"errors"
	"sync"

	"github.com/samber/lo"

	"github.com/notesapp/core/internal/domain/entities"
	"github.com/notesapp/core/internal/infrastructure/logger"
	"github.com/notesapp/core/internal/ports"
)

// State of the coordinator
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
)

// View is a snapshot of everything the sidebar and note panel render.
type View struct {
	Notes      []entities.Note
	Query      string
	SelectedID string
	Editing    bool
	State      State
	// Current is the note shown in the panel: the draft while editing, otherwise a copy of
	// the selected note. Nil when nothing is selected.
	Current *entities.Note
}

// Loading reports whether an operation is outstanding.
func (v View) Loading() bool {
	return v.State == StateLoading
}

// IsSelected reports whether id is the selected note.
func (v View) IsSelected(id string) bool {
	return v.SelectedID != "" && v.SelectedID == id
}

// Coordinator drives the notes UI
type Coordinator struct {
	noteService ports.NoteService
	logger      *logger.Logger

	mu         sync.Mutex
	notes      []entities.Note
	query      string
	selectedID string
	editing    bool
	state      State
	current    *entities.Note
}

// New creates a coordinator in the idle state with nothing loaded
func New(noteService ports.NoteService, logger *logger.Logger) *Coordinator {
	return &Coordinator{
		noteService: noteService,
		logger:      logger.WithComponent("coordinator"),
		state:       StateIdle,
	}
}

// View returns a snapshot of the current state
func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Notes:      append([]entities.Note(nil), c.notes...),
		Query:      c.query,
		SelectedID: c.selectedID,
		Editing:    c.editing,
		State:      c.state,
	}
	if c.current != nil {
		cur := *c.current
		v.Current = &cur
	}
	return v
}

// Mount loads the full list and selects the first note when nothing is selected yet.
func (c *Coordinator) Mount(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	return c.reload(ctx, "")
}

// Select makes id the selected note and leaves edit mode.
func (c *Coordinator) Select(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateLoading {
		return entities.ErrBusy
	}

	c.selectedID = id
	c.editing = false
	c.syncCurrent()
	return nil
}

// NewNote creates a note, reloads the list and opens the new note for editing.
// The search query is cleared so the fresh note is visible.
func (c *Coordinator) NewNote(ctx context.Context) (*entities.Note, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	note, err := c.noteService.Create(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.query = ""
	c.mu.Unlock()

	if err := c.reload(ctx, ""); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedID = note.ID
	c.editing = true
	draft := *note
	c.current = &draft

	c.logger.Debugw("Opened new note", "note_id", note.ID)
	return note, nil
}

// Search stores the query and reloads the filtered list.
func (c *Coordinator) Search(ctx context.Context, query string) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	c.mu.Lock()
	c.query = query
	c.mu.Unlock()

	return c.reload(ctx, query)
}

// SetEditing enters or leaves edit mode. Leaving discards the draft.
func (c *Coordinator) SetEditing(editing bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateLoading {
		return entities.ErrBusy
	}
	if editing && c.current == nil {
		return entities.ErrNoSelection
	}

	c.editing = editing
	if !editing {
		c.syncCurrent()
	}
	return nil
}

// ChangeDraft replaces the title and content of the draft being edited.
func (c *Coordinator) ChangeDraft(title, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateLoading {
		return entities.ErrBusy
	}
	if c.current == nil {
		return entities.ErrNoSelection
	}
	if !c.editing {
		return entities.ErrNotEditing
	}

	c.current.Title = title
	c.current.Content = content
	return nil
}

// Save submits the draft, reloads the list and shows the stored copy.
// A draft whose note has vanished is dropped silently.
func (c *Coordinator) Save(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.state == StateLoading:
		c.mu.Unlock()
		return entities.ErrBusy
	case c.current == nil:
		c.mu.Unlock()
		return entities.ErrNoSelection
	case !c.editing:
		c.mu.Unlock()
		return entities.ErrNotEditing
	}
	draft := *c.current
	query := c.query
	c.state = StateLoading
	c.mu.Unlock()
	defer c.end()

	saved, err := c.noteService.Update(ctx, ports.UpdateNoteRequest{
		ID:      draft.ID,
		Title:   &draft.Title,
		Content: &draft.Content,
	})
	if err != nil && !errors.Is(err, entities.ErrNoteNotFound) {
		return err
	}

	if err := c.reload(ctx, query); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = false
	switch {
	case saved == nil:
		c.logger.Debugw("Saved note no longer exists", "note_id", draft.ID)
		c.syncCurrent()
	case saved.ID == c.selectedID:
		cur := *saved
		c.current = &cur
	default:
		// the saved note fell out of the filtered list
		c.syncCurrent()
	}
	return nil
}

// Delete removes the note, reloads the list and clears the selection and edit mode.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if _, err := c.noteService.Delete(ctx, id); err != nil {
		return err
	}

	c.mu.Lock()
	query := c.query
	c.mu.Unlock()

	if err := c.reload(ctx, query); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = false
	c.selectedID = ""
	c.current = nil
	return nil
}

func (c *Coordinator) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateLoading {
		return entities.ErrBusy
	}
	c.state = StateLoading
	return nil
}

func (c *Coordinator) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
}

// reload fetches the list for query and applies the selection fallback rules.
// Must be called without c.mu held.
func (c *Coordinator) reload(ctx context.Context, query string) error {
	notes, err := c.noteService.List(ctx, query)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.selectedID
	c.notes = notes
	if query == "" && len(notes) > 0 && c.selectedID == "" {
		c.selectedID = notes[0].ID
	}
	if c.selectedID != "" && !c.contains(c.selectedID) {
		c.selectedID = ""
		if len(notes) > 0 {
			c.selectedID = notes[0].ID
		}
	}
	// A draft only survives a reload while its note stays selected.
	if c.editing && c.selectedID != prev {
		c.editing = false
	}
	if !c.editing {
		c.syncCurrent()
	}
	return nil
}

// syncCurrent points the panel at a copy of the selected note. Caller holds c.mu.
func (c *Coordinator) syncCurrent() {
	found, ok := lo.Find(c.notes, func(n entities.Note) bool { return n.ID == c.selectedID })
	if !ok || c.selectedID == "" {
		c.current = nil
		return
	}
	c.current = &found
}

func (c *Coordinator) contains(id string) bool {
	return lo.ContainsBy(c.notes, func(n entities.Note) bool { return n.ID == id })
}
