package http

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/notesapp/core/internal/application/coordinator"
	"github.com/notesapp/core/internal/domain/entities"
	"github.com/notesapp/core/internal/infrastructure/logger"
)

// UIHandler serves the server-rendered notes page. Every form posts to an action endpoint
// which drives the coordinator and redirects back to the page.
type UIHandler struct {
	coordinator *coordinator.Coordinator
	appName     string
	logger      *logger.Logger
	mounted     atomic.Bool
}

// NewUIHandler creates a new UI handler
func NewUIHandler(c *coordinator.Coordinator, appName string, logger *logger.Logger) *UIHandler {
	return &UIHandler{
		coordinator: c,
		appName:     appName,
		logger:      logger,
	}
}

// PageData is what index.html renders
type PageData struct {
	AppName string
	Year    int
	View    coordinator.View
}

// SaveForm is the edit form submitted by the Save button
type SaveForm struct {
	Title   string `form:"title" validate:"required,max=512"`
	Content string `form:"content" validate:"required,max=1048576"`
}

// Index renders the page, loading the list on first visit
func (h *UIHandler) Index(c echo.Context) error {
	if !h.mounted.Load() {
		err := h.coordinator.Mount(c.Request().Context())
		switch {
		case err == nil:
			h.mounted.Store(true)
		case errors.Is(err, entities.ErrBusy):
			// another request is mounting; render the loading state
		default:
			h.logger.Errorw("Initial load failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load notes")
		}
	}

	return c.Render(http.StatusOK, "index.html", PageData{
		AppName: h.appName,
		Year:    time.Now().Year(),
		View:    h.coordinator.View(),
	})
}

// Select handles clicking a note in the sidebar
func (h *UIHandler) Select(c echo.Context) error {
	return h.done(c, h.coordinator.Select(c.Param("id")))
}

// NewNote handles the "+ New Note" button
func (h *UIHandler) NewNote(c echo.Context) error {
	_, err := h.coordinator.NewNote(c.Request().Context())
	return h.done(c, err)
}

// Search handles the search box
func (h *UIHandler) Search(c echo.Context) error {
	return h.done(c, h.coordinator.Search(c.Request().Context(), c.FormValue("q")))
}

// Edit enters edit mode
func (h *UIHandler) Edit(c echo.Context) error {
	return h.done(c, h.coordinator.SetEditing(true))
}

// Cancel leaves edit mode, discarding the draft
func (h *UIHandler) Cancel(c echo.Context) error {
	return h.done(c, h.coordinator.SetEditing(false))
}

// Save submits the edit form
func (h *UIHandler) Save(c echo.Context) error {
	var form SaveForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form")
	}
	if err := c.Validate(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.coordinator.ChangeDraft(form.Title, form.Content); err != nil {
		return h.done(c, err)
	}
	return h.done(c, h.coordinator.Save(c.Request().Context()))
}

// Delete removes a note
func (h *UIHandler) Delete(c echo.Context) error {
	return h.done(c, h.coordinator.Delete(c.Request().Context(), c.Param("id")))
}

// done maps a coordinator result to a redirect back to the page or an HTTP error.
func (h *UIHandler) done(c echo.Context, err error) error {
	switch {
	case err == nil:
		h.mounted.Store(true)
		return c.Redirect(http.StatusSeeOther, "/")
	case errors.Is(err, entities.ErrBusy):
		return echo.NewHTTPError(http.StatusConflict, "Another operation is in progress")
	case errors.Is(err, entities.ErrNoSelection), errors.Is(err, entities.ErrNotEditing):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		h.logger.Errorw("UI action failed", "error", err, "path", c.Path())
		return echo.NewHTTPError(http.StatusInternalServerError, "Action failed")
	}
}
