// Package session coordinates the capture lifecycle from start signal to
// persisted transcript.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voxnote/voxnote/internal/audio"
	"github.com/voxnote/voxnote/internal/fsm"
	"github.com/voxnote/voxnote/internal/ipc"
	"github.com/voxnote/voxnote/internal/transcript"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

const artifactIDFormat = "20060102_150405"

// Recorder abstracts the capture session's device-facing half.
type Recorder interface {
	Start(context.Context) error
	Stop(context.Context) (audio.Clip, error)
	Level() float64
}

// Finalizer turns buffered frames into one durable audio artifact.
type Finalizer interface {
	Finalize(frames [][]float32, name string) (string, error)
}

// Transcriber runs one artifact through the recognition pipeline.
type Transcriber interface {
	Run(ctx context.Context, artifactPath string, language string) (transcript.Record, error)
}

// Committer optionally dispatches the final transcript (clipboard etc.).
type Committer interface {
	Commit(context.Context, string) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(context.Context, string) error

func (f CommitFunc) Commit(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	RunID         string
	State         fsm.State
	Record        transcript.Record
	ArtifactPath  string
	Cancelled     bool
	Empty         bool
	Err           error
	Device        string
	BytesCaptured int64
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Controller orchestrates one record → finalize → transcribe → save cycle
// and serves control-plane commands while it runs.
type Controller struct {
	logger     *slog.Logger
	recorder   Recorder
	finalizer  Finalizer
	transcribe Transcriber
	commit     Committer
	language   func() string
	clock      func() time.Time

	mu    sync.RWMutex
	state fsm.State

	actions chan action
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	recorder Recorder,
	finalizer Finalizer,
	transcriber Transcriber,
	committer Committer,
	language func() string,
) *Controller {
	if committer == nil {
		committer = CommitFunc(func(context.Context, string) error { return nil })
	}
	if language == nil {
		language = func() string { return "auto" }
	}
	return &Controller{
		logger:     logger,
		recorder:   recorder,
		finalizer:  finalizer,
		transcribe: transcriber,
		commit:     committer,
		language:   language,
		clock:      time.Now,
		state:      fsm.StateReady,
		actions:    make(chan action, 1),
	}
}

// State returns the current lifecycle state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Level is the live capture amplitude, 0 outside of recording.
func (c *Controller) Level() float64 {
	if c.State() != fsm.StateRecording {
		return 0
	}
	return c.recorder.Level()
}

// transition applies one lifecycle event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run executes one capture lifecycle from start to stop/cancel/failure
// completion. The transcription leg blocks until the engine returns; no new
// recording can start until then.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{RunID: uuid.NewString(), StartedAt: c.clock()}

	finish := func() Result {
		result.State = c.State()
		result.FinishedAt = c.clock()
		return result
	}

	if err := c.transition(fsm.EventStart); err != nil {
		result.Err = err
		return finish()
	}

	if err := c.recorder.Start(ctx); err != nil {
		// Device failures must not leave the session recording.
		c.toErrorAndReset()
		result.Err = err
		return finish()
	}

	select {
	case <-ctx.Done():
		clip, _ := c.recorder.Stop(context.Background())
		_ = c.transition(fsm.EventCancel)
		result.Cancelled = true
		result.Device = clip.Device
		result.BytesCaptured = clip.Bytes
		result.Err = ctx.Err()
		return finish()
	case a := <-c.actions:
		if a == actionCancel {
			clip, _ := c.recorder.Stop(context.Background())
			_ = c.transition(fsm.EventCancel)
			result.Cancelled = true
			result.Device = clip.Device
			result.BytesCaptured = clip.Bytes
			return finish()
		}

		clip, err := c.recorder.Stop(ctx)
		if err != nil {
			c.toErrorAndReset()
			result.Err = err
			return finish()
		}
		result.Device = clip.Device
		result.BytesCaptured = clip.Bytes

		if len(clip.Frames) == 0 {
			// Nothing captured: no artifact, no pipeline run.
			_ = c.transition(fsm.EventCancel)
			result.Empty = true
			return finish()
		}

		if err := c.transition(fsm.EventStop); err != nil {
			c.toErrorAndReset()
			result.Err = err
			return finish()
		}

		name := c.clock().Format(artifactIDFormat)
		artifactPath, err := c.finalizer.Finalize(clip.Frames, name)
		if err != nil {
			c.toErrorAndReset()
			result.Err = err
			return finish()
		}
		result.ArtifactPath = artifactPath

		record, err := c.transcribe.Run(ctx, artifactPath, c.language())
		if err != nil {
			c.toErrorAndReset()
			result.Err = err
			return finish()
		}
		result.Record = record

		if err := c.commit.Commit(ctx, record.Text); err != nil && c.logger != nil {
			// The record is already durable; commit is best-effort.
			c.logger.Warn("transcript commit failed", "error", err.Error(), "record", record.ID)
		}

		if err := c.transition(fsm.EventTranscribed); err != nil {
			result.Err = err
			return finish()
		}
		return finish()
	}
}

// Handle serves control-plane commands for the active session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStart:
		if c.State() == fsm.StateRecording {
			return ipc.Response{OK: true, State: string(fsm.StateRecording), Message: "already recording"}
		}
		return ipc.Response{OK: false, State: string(c.State()), Error: "a new session starts with the record command"}
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(c.State())}
	case ipc.CommandLevel:
		level := c.Level()
		return ipc.Response{OK: true, State: string(c.State()), Level: &level}
	case ipc.CommandStop, ipc.CommandToggle:
		return c.requestStop()
	case ipc.CommandCancel:
		return c.requestCancel()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// requestStop enqueues a stop action. Stop is idempotent: when nothing is
// recording it reports success without side effects.
func (c *Controller) requestStop() ipc.Response {
	state := c.State()
	if state != fsm.StateRecording {
		return ipc.Response{OK: true, State: string(state), Message: "nothing to stop"}
	}

	select {
	case c.actions <- actionStop:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}

// requestCancel enqueues a cancel action when state permits it.
func (c *Controller) requestCancel() ipc.Response {
	state := c.State()
	if state == fsm.StateTranscribing {
		return ipc.Response{OK: false, State: string(state), Error: "cannot cancel while transcribing"}
	}
	if state != fsm.StateRecording {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
	}

	select {
	case c.actions <- actionCancel:
		return ipc.Response{OK: true, State: string(state), Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "cancel already requested"}
	}
}

// toErrorAndReset transitions to error and back to ready best-effort.
func (c *Controller) toErrorAndReset() {
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
}
