package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/notesapp/core/internal/domain/entities"
	"github.com/notesapp/core/internal/infrastructure/logger"
	"github.com/notesapp/core/internal/ports"
)

// NoteHandler handles the JSON note API
type NoteHandler struct {
	noteService ports.NoteService
	logger      *logger.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(noteService ports.NoteService, logger *logger.Logger) *NoteHandler {
	return &NoteHandler{
		noteService: noteService,
		logger:      logger,
	}
}

// ListNotes handles listing notes, optionally filtered by ?q=
func (h *NoteHandler) ListNotes(c echo.Context) error {
	query := c.QueryParam("q")

	notes, err := h.noteService.List(c.Request().Context(), query)
	if err != nil {
		h.logger.WithError(err).Error("List notes failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve notes")
	}

	return c.JSON(http.StatusOK, ports.NoteListResponse{
		Data:  notes,
		Total: len(notes),
		Query: query,
	})
}

// GetNote handles getting a note by ID
func (h *NoteHandler) GetNote(c echo.Context) error {
	id := c.Param("id")

	note, err := h.noteService.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, entities.ErrNoteNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Note not found")
		}
		h.logger.WithError(err).Errorw("Get note failed", "note_id", id)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve note")
	}

	return c.JSON(http.StatusOK, note)
}

// CreateNote handles note creation. The body, if any, is ignored: new notes start untitled and empty.
func (h *NoteHandler) CreateNote(c echo.Context) error {
	note, err := h.noteService.Create(c.Request().Context())
	if err != nil {
		h.logger.WithError(err).Error("Create note failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create note")
	}

	return c.JSON(http.StatusCreated, note)
}

// UpdateNote handles partial updates of title and content
func (h *NoteHandler) UpdateNote(c echo.Context) error {
	var body UpdateNoteBody
	if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	req := ports.UpdateNoteRequest{
		ID:      c.Param("id"),
		Title:   body.Title,
		Content: body.Content,
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	note, err := h.noteService.Update(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, entities.ErrNoteNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Note not found")
		}
		h.logger.WithError(err).Errorw("Update note failed", "note_id", req.ID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update note")
	}

	return c.JSON(http.StatusOK, note)
}

// DeleteNote handles note deletion. Deleting an unknown ID still succeeds.
func (h *NoteHandler) DeleteNote(c echo.Context) error {
	id := c.Param("id")

	deleted, err := h.noteService.Delete(c.Request().Context(), id)
	if err != nil {
		h.logger.WithError(err).Errorw("Delete note failed", "note_id", id)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete note")
	}

	return c.JSON(http.StatusOK, DeleteResponse{Deleted: deleted})
}

// Request/Response types

// UpdateNoteBody is the JSON body of PUT/PATCH /notes/:id
type UpdateNoteBody struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}
