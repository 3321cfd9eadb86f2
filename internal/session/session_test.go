package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voxnote/voxnote/internal/audio"
	"github.com/voxnote/voxnote/internal/fsm"
	"github.com/voxnote/voxnote/internal/ipc"
	"github.com/voxnote/voxnote/internal/transcript"
)

type fakeRecorder struct {
	startErr error
	stopErr  error
	clip     audio.Clip
	level    float64

	startCalls atomic.Int32
	stopCalls  atomic.Int32
}

func (f *fakeRecorder) Start(context.Context) error {
	f.startCalls.Add(1)
	return f.startErr
}

func (f *fakeRecorder) Stop(context.Context) (audio.Clip, error) {
	f.stopCalls.Add(1)
	return f.clip, f.stopErr
}

func (f *fakeRecorder) Level() float64 { return f.level }

type fakeFinalizer struct {
	path  string
	err   error
	calls atomic.Int32
	name  atomic.Value
}

func (f *fakeFinalizer) Finalize(frames [][]float32, name string) (string, error) {
	f.calls.Add(1)
	f.name.Store(name)
	return f.path, f.err
}

type fakeTranscriber struct {
	record transcript.Record
	err    error
	gate   chan struct{}
	calls  atomic.Int32
	path   atomic.Value
}

func (f *fakeTranscriber) Run(ctx context.Context, artifactPath string, language string) (transcript.Record, error) {
	f.calls.Add(1)
	f.path.Store(artifactPath)
	if f.gate != nil {
		<-f.gate
	}
	return f.record, f.err
}

func voicedClip() audio.Clip {
	return audio.Clip{
		Frames: [][]float32{{0.25, -0.5, 0.75}},
		Device: "test mic",
		Bytes:  3200,
	}
}

func TestControllerStopSavesTranscript(t *testing.T) {
	var committed atomic.Bool
	recorder := &fakeRecorder{clip: voicedClip()}
	finalizer := &fakeFinalizer{path: "/tmp/recordings/20250901_120000.wav"}
	transcriber := &fakeTranscriber{
		record: transcript.Record{ID: "20250901_120000", Text: "hello world"},
	}
	ctrl := NewController(nil, recorder, finalizer, transcriber,
		CommitFunc(func(context.Context, string) error {
			committed.Store(true)
			return nil
		}),
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	resp := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	if !resp.OK {
		t.Fatalf("stop response not OK: %+v", resp)
	}

	result := <-resultCh
	if result.Err != nil {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if result.Record.Text != "hello world" {
		t.Fatalf("unexpected transcript text: %q", result.Record.Text)
	}
	if result.ArtifactPath != finalizer.path {
		t.Fatalf("unexpected artifact path: %q", result.ArtifactPath)
	}
	if result.Device != "test mic" {
		t.Fatalf("unexpected device: %q", result.Device)
	}
	if result.BytesCaptured != 3200 {
		t.Fatalf("unexpected bytes captured: %d", result.BytesCaptured)
	}
	if result.RunID == "" {
		t.Fatal("expected a run id")
	}
	if !committed.Load() {
		t.Fatal("expected committer to run")
	}
	if got, _ := transcriber.path.Load().(string); got != finalizer.path {
		t.Fatalf("transcriber received path %q, want %q", got, finalizer.path)
	}
	if state := ctrl.State(); state != fsm.StateReady {
		t.Fatalf("expected ready state after stop, got %s", state)
	}
}

func TestControllerCancelSkipsPipeline(t *testing.T) {
	recorder := &fakeRecorder{clip: voicedClip()}
	finalizer := &fakeFinalizer{path: "unused.wav"}
	transcriber := &fakeTranscriber{}
	ctrl := NewController(nil, recorder, finalizer, transcriber, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	resp := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandCancel})
	if !resp.OK {
		t.Fatalf("cancel response not OK: %+v", resp)
	}

	result := <-resultCh
	if !result.Cancelled {
		t.Fatalf("expected cancelled result, got %+v", result)
	}
	if recorder.stopCalls.Load() == 0 {
		t.Fatal("expected recorder drain on cancel")
	}
	if finalizer.calls.Load() != 0 {
		t.Fatal("expected no artifact on cancel")
	}
	if transcriber.calls.Load() != 0 {
		t.Fatal("expected no transcription on cancel")
	}
	if state := ctrl.State(); state != fsm.StateReady {
		t.Fatalf("expected ready state after cancel, got %s", state)
	}
}

func TestControllerStopEmptyClipSkipsPipeline(t *testing.T) {
	recorder := &fakeRecorder{clip: audio.Clip{Device: "test mic"}}
	finalizer := &fakeFinalizer{path: "unused.wav"}
	transcriber := &fakeTranscriber{}
	ctrl := NewController(nil, recorder, finalizer, transcriber, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	resp := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	if !resp.OK {
		t.Fatalf("stop response not OK: %+v", resp)
	}

	result := <-resultCh
	if result.Err != nil {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if !result.Empty {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if finalizer.calls.Load() != 0 {
		t.Fatal("expected no artifact for empty capture")
	}
	if transcriber.calls.Load() != 0 {
		t.Fatal("expected no transcription for empty capture")
	}
	if state := ctrl.State(); state != fsm.StateReady {
		t.Fatalf("expected ready state after empty stop, got %s", state)
	}
}

func TestControllerStartFailureResetsToReady(t *testing.T) {
	recorder := &fakeRecorder{startErr: audio.ErrDeviceUnavailable}
	ctrl := NewController(nil, recorder, &fakeFinalizer{}, &fakeTranscriber{}, nil, nil)

	result := ctrl.Run(context.Background())
	if !errors.Is(result.Err, audio.ErrDeviceUnavailable) {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if state := ctrl.State(); state != fsm.StateReady {
		t.Fatalf("expected ready state after device failure, got %s", state)
	}
}

func TestControllerTranscriptionFailureResetsToReady(t *testing.T) {
	wantErr := errors.New("engine exploded")
	recorder := &fakeRecorder{clip: voicedClip()}
	ctrl := NewController(nil, recorder, &fakeFinalizer{path: "a.wav"}, &fakeTranscriber{err: wantErr}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	resp := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandToggle})
	if !resp.OK {
		t.Fatalf("toggle response not OK: %+v", resp)
	}

	result := <-resultCh
	if !errors.Is(result.Err, wantErr) {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if result.ArtifactPath != "a.wav" {
		t.Fatalf("expected artifact path to survive failed transcription, got %q", result.ArtifactPath)
	}
	if state := ctrl.State(); state != fsm.StateReady {
		t.Fatalf("expected ready after error reset, got %s", state)
	}
}

func TestControllerFinalizeFailureResetsToReady(t *testing.T) {
	wantErr := errors.New("disk full")
	recorder := &fakeRecorder{clip: voicedClip()}
	transcriber := &fakeTranscriber{}
	ctrl := NewController(nil, recorder, &fakeFinalizer{err: wantErr}, transcriber, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop})

	result := <-resultCh
	if !errors.Is(result.Err, wantErr) {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if transcriber.calls.Load() != 0 {
		t.Fatal("expected no transcription after finalize failure")
	}
	if state := ctrl.State(); state != fsm.StateReady {
		t.Fatalf("expected ready after error reset, got %s", state)
	}
}

func TestControllerCommitFailureDoesNotFailRun(t *testing.T) {
	recorder := &fakeRecorder{clip: voicedClip()}
	transcriber := &fakeTranscriber{record: transcript.Record{ID: "id", Text: "kept"}}
	ctrl := NewController(nil, recorder, &fakeFinalizer{path: "a.wav"}, transcriber,
		CommitFunc(func(context.Context, string) error {
			return errors.New("clipboard gone")
		}),
		nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop})

	result := <-resultCh
	if result.Err != nil {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if result.Record.Text != "kept" {
		t.Fatalf("unexpected transcript text: %q", result.Record.Text)
	}
}

func TestControllerStopWhileIdleIsNoOp(t *testing.T) {
	ctrl := NewController(nil, &fakeRecorder{}, &fakeFinalizer{}, &fakeTranscriber{}, nil, nil)

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStop})
	if !resp.OK {
		t.Fatalf("idle stop should succeed, got %+v", resp)
	}
	if resp.Message != "nothing to stop" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if state := ctrl.State(); state != fsm.StateReady {
		t.Fatalf("expected ready state, got %s", state)
	}
}

func TestControllerCancelWhileTranscribingRejected(t *testing.T) {
	recorder := &fakeRecorder{clip: voicedClip()}
	gate := make(chan struct{})
	transcriber := &fakeTranscriber{
		record: transcript.Record{ID: "id", Text: "slow"},
		gate:   gate,
	}
	ctrl := NewController(nil, recorder, &fakeFinalizer{path: "a.wav"}, transcriber, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	waitForState(t, ctrl, fsm.StateTranscribing)

	resp := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandCancel})
	if resp.OK {
		t.Fatalf("expected cancel rejection while transcribing, got %+v", resp)
	}

	close(gate)
	result := <-resultCh
	if result.Err != nil {
		t.Fatalf("unexpected result error: %v", result.Err)
	}
	if result.Cancelled {
		t.Fatal("run must complete despite the cancel attempt")
	}
}

func TestControllerStatusAndLevel(t *testing.T) {
	recorder := &fakeRecorder{clip: voicedClip(), level: 0.6}
	ctrl := NewController(nil, recorder, &fakeFinalizer{path: "a.wav"}, &fakeTranscriber{}, nil, nil)

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	if !resp.OK || resp.State != string(fsm.StateReady) {
		t.Fatalf("unexpected status response: %+v", resp)
	}

	resp = ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandLevel})
	if !resp.OK || resp.Level == nil || *resp.Level != 0 {
		t.Fatalf("expected zero level while idle, got %+v", resp)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	resp = ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandLevel})
	if !resp.OK || resp.Level == nil || *resp.Level != 0.6 {
		t.Fatalf("expected live level while recording, got %+v", resp)
	}

	ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	<-resultCh
}

func TestControllerStartCommandReportsState(t *testing.T) {
	recorder := &fakeRecorder{clip: voicedClip()}
	ctrl := NewController(nil, recorder, &fakeFinalizer{path: "a.wav"}, &fakeTranscriber{}, nil, nil)

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStart})
	if resp.OK {
		t.Fatalf("start outside a session must be rejected, got %+v", resp)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	resp = ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStart})
	if !resp.OK || resp.Message != "already recording" {
		t.Fatalf("unexpected start response while recording: %+v", resp)
	}

	ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	<-resultCh
}

func TestControllerArtifactNameUsesClock(t *testing.T) {
	recorder := &fakeRecorder{clip: voicedClip()}
	finalizer := &fakeFinalizer{path: "a.wav"}
	ctrl := NewController(nil, recorder, finalizer, &fakeTranscriber{}, nil, nil)
	ctrl.clock = func() time.Time {
		return time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- ctrl.Run(ctx)
	}()

	waitForState(t, ctrl, fsm.StateRecording)
	ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	<-resultCh

	if got, _ := finalizer.name.Load().(string); got != "20250901_120000" {
		t.Fatalf("unexpected artifact name: %q", got)
	}
}

func waitForState(t *testing.T, ctrl *Controller, desired fsm.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State() == desired {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s (current=%s)", desired, ctrl.State())
}
