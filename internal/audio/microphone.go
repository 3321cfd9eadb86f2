package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Clip is the finalized frame snapshot handed off when capture stops.
type Clip struct {
	Frames [][]float32
	Device string
	Bytes  int64
}

// Microphone owns device selection plus one capture stream at a time,
// implementing the session recorder contract.
type Microphone struct {
	input    string
	fallback string
	opts     Options
	logger   *slog.Logger

	mu      sync.Mutex
	capture *Capture
}

// NewMicrophone builds a recorder for the configured input preferences.
func NewMicrophone(input, fallback string, opts Options, logger *slog.Logger) *Microphone {
	return &Microphone{input: input, fallback: fallback, opts: opts, logger: logger}
}

// Start resolves a device and opens the capture stream. Starting while a
// stream is already open is rejected; the stream is never double-opened.
func (m *Microphone) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capture != nil {
		return fmt.Errorf("capture already running")
	}

	selection, err := SelectDevice(ctx, m.input, m.fallback)
	if err != nil {
		return err
	}
	if selection.Warning != "" && m.logger != nil {
		m.logger.Warn(selection.Warning)
	}

	capture, err := StartCapture(ctx, selection.Device, m.opts)
	if err != nil {
		return err
	}
	m.capture = capture
	return nil
}

// Stop halts the stream after a full callback drain and hands off the
// buffered frames. Idempotent: stopping without a live stream returns an
// empty clip.
func (m *Microphone) Stop(_ context.Context) (Clip, error) {
	m.mu.Lock()
	capture := m.capture
	m.capture = nil
	m.mu.Unlock()

	if capture == nil {
		return Clip{}, nil
	}

	if err := capture.Stop(); err != nil {
		return Clip{}, err
	}
	return Clip{
		Frames: capture.TakeFrames(),
		Device: capture.Device().Describe(),
		Bytes:  capture.BytesCaptured(),
	}, nil
}

// Level reads the live amplitude of the active stream, 0 when idle.
func (m *Microphone) Level() float64 {
	m.mu.Lock()
	capture := m.capture
	m.mu.Unlock()

	if capture == nil {
		return 0
	}
	return capture.Level()
}
