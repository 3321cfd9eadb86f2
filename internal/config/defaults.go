package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		DataDir: defaultDataDir(),
		Audio: AudioConfig{
			Input:      "default",
			Fallback:   "default",
			SampleRate: 16000,
			LevelGain:  300,
		},
		Engine: EngineConfig{
			Mode:      "exec",
			Command:   "whisper-cli --output-json",
			ModelPath: "",
			TimeoutMS: 60000,
		},
		History: HistoryConfig{Limit: 10},
		Journal: JournalConfig{Enabled: true},
		Clipboard: ClipboardConfig{
			Enabled: false,
			Command: "wl-copy --trim-newline",
		},
	}
}

// defaultDataDir selects XDG_DATA_HOME when available, otherwise ~/.local/share.
func defaultDataDir() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "voxnote")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "voxnote-data"
	}
	return filepath.Join(home, ".local", "share", "voxnote")
}
