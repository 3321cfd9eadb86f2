package config

import (
	"fmt"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// Validate enforces config invariants.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if cfg.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}
	if cfg.Audio.LevelGain <= 0 {
		return fmt.Errorf("audio.level_gain must be > 0")
	}

	switch cfg.Engine.Mode {
	case "mock", "exec":
	default:
		return fmt.Errorf("engine.mode must be one of: mock, exec")
	}
	if cfg.Engine.Mode == "exec" {
		argv, err := shellwords.Parse(cfg.Engine.Command)
		if err != nil {
			return fmt.Errorf("engine.command is not parseable: %w", err)
		}
		if len(argv) == 0 {
			return fmt.Errorf("engine.command must not be empty when engine.mode=exec")
		}
	}
	if cfg.Engine.TimeoutMS <= 0 {
		return fmt.Errorf("engine.timeout_ms must be > 0")
	}

	if cfg.History.Limit <= 0 {
		return fmt.Errorf("history.limit must be > 0")
	}

	if cfg.Clipboard.Enabled {
		argv, err := shellwords.Parse(cfg.Clipboard.Command)
		if err != nil {
			return fmt.Errorf("clipboard.command is not parseable: %w", err)
		}
		if len(argv) == 0 {
			return fmt.Errorf("clipboard.command must not be empty when clipboard.enabled=true")
		}
	}

	return nil
}
