package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notesapp/core/internal/adapters/kv"
	"github.com/notesapp/core/internal/domain/entities"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) (*NoteRepositoryImpl, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	return NewNoteRepository(store, DefaultKey, WithClock(func() time.Time { return fixedNow })), store
}

func assertSeeded(t *testing.T, notes []entities.Note) {
	t.Helper()
	require.Len(t, notes, 2)
	assert.Equal(t, "1", notes[0].ID)
	assert.Equal(t, "Welcome", notes[0].Title)
	assert.Equal(t, "2", notes[1].ID)
	assert.Equal(t, "Minimalism", notes[1].Title)
	assert.False(t, notes[0].UpdatedAt.Before(notes[1].UpdatedAt))
}

func TestLoad_EmptyStoreYieldsSeed(t *testing.T) {
	repo, store := newTestRepo(t)

	notes, err := repo.Load(context.Background())
	require.NoError(t, err)
	assertSeeded(t, notes)

	_, found, _ := store.Get(context.Background(), DefaultKey)
	assert.False(t, found, "load must not write the seed back")
}

func TestLoad_CorruptValuesYieldSeed(t *testing.T) {
	cases := map[string]string{
		"object":      `{"id":"1"}`,
		"null":        `null`,
		"number":      `42`,
		"string":      `"notes"`,
		"broken json": `[{"id":`,
		"bad element": `[1, 2, 3]`,
		"empty value": ``,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			repo, store := newTestRepo(t)
			require.NoError(t, store.Set(context.Background(), DefaultKey, []byte(raw)))

			notes, err := repo.Load(context.Background())
			require.NoError(t, err)
			assertSeeded(t, notes)
		})
	}
}

func TestLoad_EmptyArrayStaysEmpty(t *testing.T) {
	repo, store := newTestRepo(t)
	require.NoError(t, store.Set(context.Background(), DefaultKey, []byte(` [] `)))

	notes, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)
}

func TestLoad_SortsByUpdatedAtDesc(t *testing.T) {
	repo, store := newTestRepo(t)
	raw := `[
		{"id":"old","title":"a","content":"","createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"},
		{"id":"new","title":"b","content":"","createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-03-01T00:00:00.123Z"},
		{"id":"mid","title":"c","content":"","createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-02-01T00:00:00Z"}
	]`
	require.NoError(t, store.Set(context.Background(), DefaultKey, []byte(raw)))

	notes, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{notes[0].ID, notes[1].ID, notes[2].ID})
}

func TestSave_RoundTripsThroughStore(t *testing.T) {
	repo, store := newTestRepo(t)
	ctx := context.Background()

	in := []entities.Note{{
		ID:        "abc",
		Title:     "Groceries",
		Content:   "milk\neggs",
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow.Add(time.Minute),
	}}
	require.NoError(t, repo.Save(ctx, in))

	raw, found, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, string(raw), `"updatedAt":"2024-05-01T12:01:00Z"`)
	assert.Contains(t, string(raw), `"createdAt"`)

	out, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, in[0].ID, out[0].ID)
	assert.Equal(t, in[0].Content, out[0].Content)
	assert.True(t, in[0].UpdatedAt.Equal(out[0].UpdatedAt))
}

func TestSave_NilListStoresEmptyArray(t *testing.T) {
	repo, store := newTestRepo(t)
	require.NoError(t, repo.Save(context.Background(), nil))

	raw, _, err := store.Get(context.Background(), DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

type failingStore struct{ kv.MemoryStore }

var errDown = errors.New("backend down")

func (*failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errDown }
func (*failingStore) Set(context.Context, string, []byte) error         { return errDown }

func TestStorageErrorsAreReturned(t *testing.T) {
	repo := NewNoteRepository(&failingStore{}, "")

	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, errDown)

	err = repo.Save(context.Background(), []entities.Note{})
	assert.ErrorIs(t, err, errDown)
}
