package engine

import (
	"context"
	"path/filepath"
)

type mockEngine struct{}

// NewMockEngine returns an engine that echoes the artifact name. Useful for
// wiring checks without a recognition backend installed.
func NewMockEngine() Engine {
	return mockEngine{}
}

func (mockEngine) Transcribe(_ context.Context, audioPath string, opts Options) (Result, error) {
	lang := opts.Language
	if lang == "" {
		lang = "auto"
	}
	return Result{Text: "[mock transcript of " + filepath.Base(audioPath) + " lang=" + lang + "]"}, nil
}
