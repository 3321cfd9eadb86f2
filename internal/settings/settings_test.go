package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "settings.json"))

	loaded := store.Load()
	require.Equal(t, DefaultLanguage, loaded.Language)
}

func TestSetLanguageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewStore(path)

	require.NoError(t, store.SetLanguage("de"))
	require.Equal(t, "de", store.Load().Language)

	reopened := NewStore(path)
	require.Equal(t, "de", reopened.Load().Language)
}

func TestSetLanguageRejectsUnsupported(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "settings.json"))

	err := store.SetLanguage("xx")
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
	require.Equal(t, DefaultLanguage, store.Load().Language)
}

func TestValidateLanguage(t *testing.T) {
	for _, l := range SupportedLanguages {
		require.NoError(t, ValidateLanguage(l))
	}
	require.ErrorIs(t, ValidateLanguage("xx"), ErrUnsupportedLanguage)
	require.ErrorIs(t, ValidateLanguage(""), ErrUnsupportedLanguage)
}

func TestLoadFallsBackOnCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("not-json"), 0o644))

	store := NewStore(path)
	require.Equal(t, DefaultLanguage, store.Load().Language)
}

func TestLoadFallsBackOnUnsupportedPersistedLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"language":"zz"}`), 0o644))

	store := NewStore(path)
	require.Equal(t, DefaultLanguage, store.Load().Language)
}
