// Package doctor runs runtime readiness diagnostics for config, storage,
// audio, and the recognition engine.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/voxnote/voxnote/internal/audio"
	"github.com/voxnote/voxnote/internal/config"
	"github.com/voxnote/voxnote/internal/journal"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkWritableDir("data.recordings", cfg.Config.RecordingsDir()))
	checks = append(checks, checkWritableDir("data.transcripts", cfg.Config.TranscriptsDir()))

	checks = append(checks, checkEngine(cfg.Config.Engine))

	if cfg.Config.Clipboard.Enabled {
		checks = append(checks, checkShellCommand("clipboard_cmd", cfg.Config.Clipboard.Command))
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkJournal(ctx, cfg.Config))

	return Report{Checks: checks}
}

// checkWritableDir validates that a data directory exists or can be created
// and accepts writes.
func checkWritableDir(name, dir string) Check {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}
	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("cannot write to %s: %v", dir, err)}
	}
	_ = os.Remove(probe)
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("writable at %s", dir)}
}

// checkEngine validates the recognition engine configuration.
func checkEngine(cfg config.EngineConfig) Check {
	switch cfg.Mode {
	case "mock":
		return Check{Name: "engine", Pass: true, Message: "mock engine configured"}
	case "exec":
		argv, err := shellwords.Parse(cfg.Command)
		if err != nil {
			return Check{Name: "engine", Pass: false, Message: fmt.Sprintf("cannot parse command: %v", err)}
		}
		if len(argv) == 0 {
			return Check{Name: "engine", Pass: false, Message: "engine command is empty"}
		}
		path, err := exec.LookPath(argv[0])
		if err != nil {
			return Check{Name: "engine", Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", argv[0])}
		}
		if cfg.ModelPath != "" {
			if _, err := os.Stat(cfg.ModelPath); err != nil {
				return Check{Name: "engine", Pass: false, Message: fmt.Sprintf("model not readable: %v", err)}
			}
		}
		return Check{Name: "engine", Pass: true, Message: fmt.Sprintf("found at %s", path)}
	default:
		return Check{Name: "engine", Pass: false, Message: fmt.Sprintf("unknown engine mode %q", cfg.Mode)}
	}
}

// checkShellCommand validates that a configured command names a runnable binary.
func checkShellCommand(name, command string) Check {
	argv, err := shellwords.Parse(command)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("cannot parse command: %v", err)}
	}
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", argv[0])}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found at %s", path)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkJournal opens and closes the session journal.
func checkJournal(ctx context.Context, cfg config.Config) Check {
	if !cfg.Journal.Enabled {
		return Check{Name: "journal", Pass: true, Message: "disabled"}
	}
	store, err := journal.Open(ctx, cfg.Journal, cfg.JournalPath(), nil)
	if err != nil {
		return Check{Name: "journal", Pass: false, Message: err.Error()}
	}
	_ = store.Close()
	return Check{Name: "journal", Pass: true, Message: fmt.Sprintf("openable at %s", cfg.JournalPath())}
}
