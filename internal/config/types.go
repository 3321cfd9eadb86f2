// Package config resolves, parses, validates, and defaults voxnote configuration.
package config

import "path/filepath"

// Config is the fully materialized runtime configuration used by voxnote.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	Audio     AudioConfig     `yaml:"audio"`
	Engine    EngineConfig    `yaml:"engine"`
	History   HistoryConfig   `yaml:"history"`
	Journal   JournalConfig   `yaml:"journal"`
	Clipboard ClipboardConfig `yaml:"clipboard"`
}

// AudioConfig controls input-source selection and capture parameters.
type AudioConfig struct {
	Input      string  `yaml:"input"`
	Fallback   string  `yaml:"fallback"`
	SampleRate int     `yaml:"sample_rate"`
	LevelGain  float64 `yaml:"level_gain"`
}

// EngineConfig controls the speech recognition engine boundary.
type EngineConfig struct {
	Mode      string `yaml:"mode"` // mock, exec
	Command   string `yaml:"command"`
	ModelPath string `yaml:"model_path"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// HistoryConfig controls the transcript history view.
type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

// JournalConfig controls the session journal database.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ClipboardConfig controls the optional transcript-to-clipboard commit.
type ClipboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Command string `yaml:"command"`
}

// Warning is a non-fatal load/validation message.
type Warning struct {
	Message string
}

// RecordingsDir is where finalized waveform artifacts are written.
func (c Config) RecordingsDir() string {
	return filepath.Join(c.DataDir, "recordings")
}

// TranscriptsDir is where transcript records are stored.
func (c Config) TranscriptsDir() string {
	return filepath.Join(c.DataDir, "transcripts")
}

// TodosPath is the date-keyed todo file.
func (c Config) TodosPath() string {
	return filepath.Join(c.DataDir, "todos.json")
}

// SettingsPath is the flat key-value settings file.
func (c Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.json")
}

// JournalPath resolves the session journal database location.
func (c Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return filepath.Join(c.DataDir, "journal.db")
}
