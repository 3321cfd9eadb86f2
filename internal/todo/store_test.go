package todo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store := NewStore(filepath.Join(t.TempDir(), "todos.json"))
	store.clock = func() time.Time {
		return time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	}
	return store
}

func TestAddAndList(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Add("", "buy milk"))
	require.NoError(t, store.Add("", "call dentist"))

	items, err := store.List("2025-09-01")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "buy milk", items[0].Text)
	require.False(t, items[0].Done)
	require.Equal(t, "call dentist", items[1].Text)
}

func TestAddIgnoresEmptyText(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Add("", "   "))

	items, err := store.List("")
	require.NoError(t, err)
	require.Empty(t, items)
	_, statErr := os.Stat(store.path)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestToggle(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Add("2025-09-01", "buy milk"))
	require.NoError(t, store.Toggle("2025-09-01", 0))

	items, err := store.List("2025-09-01")
	require.NoError(t, err)
	require.True(t, items[0].Done)

	require.NoError(t, store.Toggle("2025-09-01", 0))
	items, err = store.List("2025-09-01")
	require.NoError(t, err)
	require.False(t, items[0].Done)
}

func TestToggleOutOfRange(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Add("2025-09-01", "only one"))
	require.ErrorIs(t, store.Toggle("2025-09-01", 1), ErrOutOfRange)
	require.ErrorIs(t, store.Toggle("2025-09-01", -1), ErrOutOfRange)
	require.ErrorIs(t, store.Toggle("2025-08-31", 0), ErrOutOfRange)
}

func TestDatesAreSortedAndKeysIsolated(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Add("2025-09-02", "tomorrow"))
	require.NoError(t, store.Add("2025-08-31", "yesterday"))
	require.NoError(t, store.Add("", "today"))

	dates, err := store.Dates()
	require.NoError(t, err)
	require.Equal(t, []string{"2025-08-31", "2025-09-01", "2025-09-02"}, dates)

	items, err := store.List("2025-09-02")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "tomorrow", items[0].Text)
}

func TestLoadSurvivesMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-written.json"))

	items, err := store.List("2025-09-01")
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "todos.json")
	require.NoError(t, os.WriteFile(path, []byte("not-json"), 0o644))

	store := NewStore(path)
	_, err := store.List("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode todos")
}
