// Package output applies transcript commit side effects (clipboard).
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/voxnote/voxnote/internal/config"
)

// Committer copies the final transcript text to the system clipboard.
type Committer struct {
	argv   []string
	logger *slog.Logger
}

// NewCommitter constructs a clipboard committer from runtime config. A
// disabled clipboard yields a nil Committer, which callers treat as no-op.
func NewCommitter(cfg config.ClipboardConfig, logger *slog.Logger) (*Committer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	argv, err := shellwords.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse clipboard command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("clipboard command cannot be empty")
	}
	return &Committer{argv: argv, logger: logger}, nil
}

// Commit writes transcript text to the clipboard command's stdin.
func (c *Committer) Commit(ctx context.Context, transcript string) error {
	if transcript == "" {
		return nil
	}

	clipboardCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := runCommandWithInput(clipboardCtx, c.argv, transcript); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("transcript copied to clipboard", "command", c.argv[0])
	}
	return nil
}

// runCommandWithInput executes argv and writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
