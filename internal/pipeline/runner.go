// Package pipeline runs finalized audio artifacts through the recognition
// engine and persists the resulting transcript.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxnote/voxnote/internal/engine"
	"github.com/voxnote/voxnote/internal/transcript"
)

// ErrBusy reports a rejected duplicate job while another is in flight.
var ErrBusy = errors.New("transcription already in flight")

// ErrTranscriptionFailed reports an engine-side failure; no record is written.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Saver is the record-persistence half of the transcript store.
type Saver interface {
	Save(text string) (transcript.Record, error)
}

// Runner executes at most one transcription job at a time. A second caller
// fails fast with ErrBusy; it never blocks or queues. There are no retries
// and no cancellation of an in-flight job.
type Runner struct {
	logger *slog.Logger
	engine engine.Engine
	store  Saver

	mu       sync.Mutex
	inFlight bool
}

// NewRunner wires an engine adapter and a transcript saver into a runner.
func NewRunner(logger *slog.Logger, eng engine.Engine, store Saver) *Runner {
	return &Runner{logger: logger, engine: eng, store: store}
}

// InFlight reports whether a job is currently running.
func (r *Runner) InFlight() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

// Run transcribes one artifact and saves the result. The call blocks its
// caller for the full engine duration; that is the system's back-pressure.
// Language "auto" or empty leaves detection to the engine.
func (r *Runner) Run(ctx context.Context, artifactPath string, language string) (transcript.Record, error) {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return transcript.Record{}, ErrBusy
	}
	r.inFlight = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight = false
		r.mu.Unlock()
	}()

	opts := engine.Options{}
	if language != "" && language != "auto" {
		opts.Language = language
	}

	started := time.Now()
	result, err := r.engine.Transcribe(ctx, artifactPath, opts)
	if err != nil {
		return transcript.Record{}, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}

	record, err := r.store.Save(result.Text)
	if err != nil {
		return transcript.Record{}, err
	}

	if r.logger != nil {
		r.logger.Info("transcription complete",
			"artifact", artifactPath,
			"record", record.ID,
			"language", language,
			"duration_ms", time.Since(started).Milliseconds(),
			"text_length", len(record.Text),
		)
	}
	return record, nil
}
