package config

import (
	"os"
	"strconv"
	"strings"
)

// applyEnvOverrides layers VOXNOTE_* environment values onto a parsed config.
func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.DataDir, "VOXNOTE_DATA_DIR")
	overrideString(&cfg.Audio.Input, "VOXNOTE_AUDIO_INPUT")
	overrideString(&cfg.Audio.Fallback, "VOXNOTE_AUDIO_FALLBACK")
	overrideInt(&cfg.Audio.SampleRate, "VOXNOTE_AUDIO_SAMPLE_RATE")
	overrideFloat(&cfg.Audio.LevelGain, "VOXNOTE_AUDIO_LEVEL_GAIN")
	overrideString(&cfg.Engine.Mode, "VOXNOTE_ENGINE_MODE")
	overrideString(&cfg.Engine.Command, "VOXNOTE_ENGINE_COMMAND")
	overrideString(&cfg.Engine.ModelPath, "VOXNOTE_ENGINE_MODEL_PATH")
	overrideInt(&cfg.Engine.TimeoutMS, "VOXNOTE_ENGINE_TIMEOUT_MS")
	overrideInt(&cfg.History.Limit, "VOXNOTE_HISTORY_LIMIT")
	overrideBool(&cfg.Journal.Enabled, "VOXNOTE_JOURNAL_ENABLED")
	overrideString(&cfg.Journal.Path, "VOXNOTE_JOURNAL_PATH")
	overrideBool(&cfg.Clipboard.Enabled, "VOXNOTE_CLIPBOARD_ENABLED")
	overrideString(&cfg.Clipboard.Command, "VOXNOTE_CLIPBOARD_COMMAND")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}
