package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// blockSamples is one callback block: 20ms of mono audio at 16kHz.
	blockSamples    = 320
	blockSizeBytes  = blockSamples * 4 // float32 samples
	defaultRate     = 16000
	defaultGain     = 300
	maxLevel        = 1.0
)

// Options tunes one capture stream.
type Options struct {
	SampleRate int
	LevelGain  float64
}

// Capture accumulates fixed-size float32 blocks from one Pulse source and
// publishes a live amplitude level. The Pulse delivery goroutine is the only
// writer of the frame buffer; Stop drains it before the buffer is handed off.
type Capture struct {
	device Device
	rate   int
	gain   float64

	client *pulse.Client
	stream *pulse.RecordStream

	stopCh chan struct{}

	mu      sync.Mutex
	pending []byte
	frames  [][]float32
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
	level    atomic.Uint64 // float64 bits
}

// newCapture builds capture state without a live Pulse connection.
func newCapture(device Device, opts Options) *Capture {
	rate := opts.SampleRate
	if rate <= 0 {
		rate = defaultRate
	}
	gain := opts.LevelGain
	if gain <= 0 {
		gain = defaultGain
	}
	return &Capture{
		device: device,
		rate:   rate,
		gain:   gain,
		stopCh: make(chan struct{}),
	}
}

// StartCapture creates and starts a mono float32 record stream on the
// selected device. Failures map to ErrDeviceUnavailable.
func StartCapture(ctx context.Context, selected Device, opts Options) (*Capture, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voxnote"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: connect pulse server: %v", ErrDeviceUnavailable, err)
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: resolve source %q: %v", ErrDeviceUnavailable, selected.ID, err)
	}

	capture := newCapture(selected, opts)
	capture.client = client

	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatFloat32LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(capture.rate),
		pulse.RecordBufferFragmentSize(blockSizeBytes),
		pulse.RecordMediaName("voxnote recording"),
	)
	if err != nil {
		_ = capture.Stop()
		return nil, fmt.Errorf("%w: create record stream: %v", ErrDeviceUnavailable, err)
	}

	capture.stream = stream
	stream.Start()

	go func() {
		<-ctx.Done()
		_ = capture.Stop()
	}()

	return capture, nil
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// BytesCaptured reports total bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// Level is the most recent smoothed block amplitude in [0,1]. It is a
// lock-free read safe from any goroutine, including a periodic UI tick.
func (c *Capture) Level() float64 {
	return math.Float64frombits(c.level.Load())
}

// Stop halts the stream and waits for in-flight Pulse callbacks to drain, so
// no block can race the buffer handoff. Idempotent; resets the level to 0.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()

	c.mu.Lock()
	if len(c.pending) > 0 {
		c.frames = append(c.frames, decodeFloat32(c.pending))
		c.pending = nil
	}
	c.mu.Unlock()

	c.level.Store(math.Float64bits(0))
	return nil
}

// TakeFrames hands off the accumulated blocks and clears the buffer.
// Call only after Stop has returned.
func (c *Capture) TakeFrames() [][]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := c.frames
	c.frames = nil
	return frames
}

// onPCM receives raw Pulse buffers, slices them into fixed blocks, and
// updates the live level. Runs on the Pulse timing domain: append plus
// arithmetic only, no blocking work.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-c.stopCh:
		return 0, io.EOF
	default:
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Guard Add under the same mutex as c.stopped to avoid Add/Wait races.
	c.inflight.Add(1)

	c.pending = append(c.pending, buffer...)
	var lastBlock []float32
	for len(c.pending) >= blockSizeBytes {
		block := decodeFloat32(c.pending[:blockSizeBytes])
		c.pending = c.pending[blockSizeBytes:]
		c.frames = append(c.frames, block)
		lastBlock = block
	}
	c.mu.Unlock()
	defer c.inflight.Done()

	c.bytes.Add(int64(len(buffer)))
	if lastBlock != nil {
		c.level.Store(math.Float64bits(blockLevel(lastBlock, c.gain)))
	}

	return len(buffer), nil
}

// blockLevel computes the gain-scaled RMS amplitude of one block, clamped to [0,1].
func blockLevel(block []float32, gain float64) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, s := range block {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(block)))
	level := rms * gain
	if level > maxLevel {
		return maxLevel
	}
	return level
}

// decodeFloat32 converts little-endian float32 bytes into samples.
// A trailing partial sample is dropped.
func decodeFloat32(raw []byte) []float32 {
	samples := make([]float32, 0, len(raw)/4)
	for i := 0; i+4 <= len(raw); i += 4 {
		bits := binary.LittleEndian.Uint32(raw[i:])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
