package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONLUnderStateDir(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	rt, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	require.Equal(t, filepath.Join(state, "voxnote", "log.jsonl"), rt.Path)

	rt.Logger.Info("capture started", "device", "test mic")
	require.NoError(t, rt.Close())

	data, err := os.ReadFile(rt.Path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	require.Equal(t, "capture started", entry["msg"])
	require.Equal(t, "test mic", entry["device"])
}

func TestLevelFromEnv(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		" error ": slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for value, want := range cases {
		t.Setenv("VOXNOTE_LOG_LEVEL", value)
		require.Equal(t, want, levelFromEnv(), "VOXNOTE_LOG_LEVEL=%q", value)
	}
}

func TestNewHonorsDebugLevel(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)
	t.Setenv("VOXNOTE_LOG_LEVEL", "debug")

	rt, err := New()
	require.NoError(t, err)

	rt.Logger.Debug("probe socket", "path", "/tmp/x")
	require.NoError(t, rt.Close())

	data, err := os.ReadFile(rt.Path)
	require.NoError(t, err)
	require.Contains(t, string(data), "probe socket")
}

func TestResolveLogPathFallsBackToHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path, err := resolveLogPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state", "voxnote", "log.jsonl"), path)
}
