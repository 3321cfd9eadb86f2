package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/voxnote/voxnote/internal/config"
)

// execEngine shells out to a recognition CLI that prints a JSON result.
type execEngine struct {
	argv    []string
	model   string
	timeout time.Duration
}

type execResult struct {
	Text string `json:"text"`
}

// NewExecEngine parses the configured command line into an exec adapter.
func NewExecEngine(cfg config.EngineConfig) (Engine, error) {
	argv, err := shellwords.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse engine command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("engine command is empty")
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	return &execEngine{argv: argv, model: cfg.ModelPath, timeout: timeout}, nil
}

func (e *execEngine) Transcribe(ctx context.Context, audioPath string, opts Options) (Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := e.buildArgs(audioPath, opts)
	command := exec.CommandContext(ctx, e.argv[0], args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return Result{}, fmt.Errorf("engine command failed: %w: %s", err, stderr.String())
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Result{}, fmt.Errorf("decode engine response: %w", err)
	}
	return Result{Text: resp.Text}, nil
}

// buildArgs appends per-job flags to the configured base command. Each clip
// is independent, so context carry-over is always disabled.
func (e *execEngine) buildArgs(audioPath string, opts Options) []string {
	args := append([]string{}, e.argv[1:]...)
	args = append(args, "--task", "transcribe", "--no-context", "--audio", audioPath)
	if e.model != "" {
		args = append(args, "--model", e.model)
	}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}
	return args
}
