package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/notesapp/core/internal/adapters/kv"
	"github.com/notesapp/core/internal/adapters/repository"
	"github.com/notesapp/core/internal/application/services"
	"github.com/notesapp/core/internal/domain/entities"
	"github.com/notesapp/core/internal/infrastructure/config"
	"github.com/notesapp/core/internal/infrastructure/logger"
	"github.com/notesapp/core/internal/ports"
)

type structValidator struct {
	validator *validator.Validate
}

func (v *structValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &structValidator{validator: validator.New()}
	return e
}

func newNoteService(t *testing.T) *services.NoteService {
	t.Helper()
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	now := func() time.Time {
		tick++
		return start.Add(time.Duration(tick) * time.Second)
	}
	repo := repository.NewNoteRepository(kv.NewMemoryStore(), "", repository.WithClock(now))
	svc := services.NewNoteService(repo, config.LatencyConfig{}, logger.NewNop(), services.WithClock(now))
	require.NoError(t, svc.Reset(context.Background()))
	return svc
}

func newAPI(t *testing.T) (*echo.Echo, *services.NoteService) {
	t.Helper()
	svc := newNoteService(t)
	h := NewNoteHandler(svc, logger.NewNop())

	e := newEcho()
	g := e.Group("/api/v1/notes")
	g.GET("", h.ListNotes)
	g.POST("", h.CreateNote)
	g.GET("/:id", h.GetNote)
	g.PUT("/:id", h.UpdateNote)
	g.PATCH("/:id", h.UpdateNote)
	g.DELETE("/:id", h.DeleteNote)
	return e, svc
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestListNotes_ReturnsSeed(t *testing.T) {
	e, _ := newAPI(t)

	rec := do(e, http.MethodGet, "/api/v1/notes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ports.NoteListResponse](t, rec)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, []string{"1", "2"}, []string{resp.Data[0].ID, resp.Data[1].ID})
	assert.Empty(t, resp.Query)
}

func TestListNotes_FiltersByQuery(t *testing.T) {
	e, _ := newAPI(t)

	rec := do(e, http.MethodGet, "/api/v1/notes?q=MINIMAL", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ports.NoteListResponse](t, rec)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Minimalism", resp.Data[0].Title)
	assert.Equal(t, "MINIMAL", resp.Query)
}

func TestCreateNote_Returns201AndPrepends(t *testing.T) {
	e, svc := newAPI(t)

	rec := do(e, http.MethodPost, "/api/v1/notes", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decode[entities.Note](t, rec)
	assert.Equal(t, entities.DefaultNoteTitle, created.Title)
	assert.Empty(t, created.Content)
	assert.NotEmpty(t, created.ID)

	notes, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, created.ID, notes[0].ID)
}

func TestGetNote(t *testing.T) {
	e, _ := newAPI(t)

	rec := do(e, http.MethodGet, "/api/v1/notes/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Minimalism", decode[entities.Note](t, rec).Title)

	rec = do(e, http.MethodGet, "/api/v1/notes/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateNote_PartialFields(t *testing.T) {
	e, _ := newAPI(t)

	rec := do(e, http.MethodPatch, "/api/v1/notes/1", `{"title":"Hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decode[entities.Note](t, rec)
	assert.Equal(t, "Hello", updated.Title)
	assert.Contains(t, updated.Content, "This is your notes app.")
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	rec = do(e, http.MethodPut, "/api/v1/notes/1", `{"content":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated = decode[entities.Note](t, rec)
	assert.Equal(t, "Hello", updated.Title)
	assert.Empty(t, updated.Content)
}

func TestUpdateNote_MissingIs404(t *testing.T) {
	e, svc := newAPI(t)

	rec := do(e, http.MethodPut, "/api/v1/notes/nope", `{"title":"X"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	notes, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestUpdateNote_RejectsBadBody(t *testing.T) {
	e, _ := newAPI(t)

	rec := do(e, http.MethodPut, "/api/v1/notes/1", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	long := strings.Repeat("x", 513)
	rec = do(e, http.MethodPut, "/api/v1/notes/1", `{"title":"`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteNote_IsIdempotent(t *testing.T) {
	e, svc := newAPI(t)

	for i := 0; i < 2; i++ {
		rec := do(e, http.MethodDelete, "/api/v1/notes/1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[DeleteResponse](t, rec).Deleted)
	}

	notes, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "2", notes[0].ID)
}

type brokenService struct {
	ports.NoteService
}

func (brokenService) List(context.Context, string) ([]entities.Note, error) {
	return nil, errors.New("disk on fire")
}

func (brokenService) Delete(context.Context, string) (bool, error) {
	return false, errors.New("disk on fire")
}

func TestStorageFailures_Return500AndLogTheError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := NewNoteHandler(brokenService{}, logger.FromZap(zap.New(core)))

	e := newEcho()
	e.GET("/api/v1/notes", h.ListNotes)
	e.DELETE("/api/v1/notes/:id", h.DeleteNote)

	rec := do(e, http.MethodGet, "/api/v1/notes", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")

	rec = do(e, http.MethodDelete, "/api/v1/notes/1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "disk on fire", entries[0].ContextMap()["error"])
	assert.Equal(t, "1", entries[1].ContextMap()["note_id"])
	assert.Equal(t, "disk on fire", entries[1].ContextMap()["error"])
}
