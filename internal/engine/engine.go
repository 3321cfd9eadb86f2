// Package engine defines the speech recognition boundary and its adapters.
package engine

import (
	"context"
	"fmt"

	"github.com/voxnote/voxnote/internal/config"
)

// Options carries per-job recognition hints.
type Options struct {
	// Language fixes the recognition language; empty leaves detection
	// to the engine.
	Language string
}

// Result is the recognizer output for one finished audio artifact.
type Result struct {
	Text string
}

// Engine transcribes one finalized audio artifact. Each clip is transcribed
// independently; the engine never conditions on previous clips.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (Result, error)
}

// New builds the configured engine adapter.
func New(cfg config.EngineConfig) (Engine, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockEngine(), nil
	case "exec":
		return NewExecEngine(cfg)
	default:
		return nil, fmt.Errorf("unknown engine mode %q", cfg.Mode)
	}
}
