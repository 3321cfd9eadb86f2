// Package wave turns buffered capture frames into durable PCM artifacts.
package wave

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrPersistence reports a storage-write failure while finalizing an artifact.
var ErrPersistence = errors.New("waveform persistence failed")

const (
	bitDepth = 16
	maxInt16 = 32767
	minInt16 = -32768
)

// Finalizer writes peak-normalized 16-bit mono WAV artifacts.
type Finalizer struct {
	dir        string
	sampleRate int
}

// NewFinalizer returns a finalizer writing artifacts under dir at sampleRate.
func NewFinalizer(dir string, sampleRate int) *Finalizer {
	return &Finalizer{dir: dir, sampleRate: sampleRate}
}

// Finalize concatenates blocks in arrival order, peak-normalizes, quantizes
// to int16, and writes <dir>/<name>.wav. Returns the artifact path.
func (f *Finalizer) Finalize(frames [][]float32, name string) (string, error) {
	samples := concat(frames)
	if len(samples) == 0 {
		return "", fmt.Errorf("finalize %q: no samples", name)
	}

	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return "", fmt.Errorf("%w: create recordings dir: %v", ErrPersistence, err)
	}

	path := filepath.Join(f.dir, name+".wav")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: create %q: %v", ErrPersistence, path, err)
	}

	buffer := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: f.sampleRate},
		Data:           quantize(samples),
		SourceBitDepth: bitDepth,
	}

	enc := wav.NewEncoder(file, f.sampleRate, bitDepth, 1, 1)
	if err := enc.Write(buffer); err != nil {
		_ = enc.Close()
		_ = file.Close()
		return "", fmt.Errorf("%w: write wav %q: %v", ErrPersistence, path, err)
	}
	if err := enc.Close(); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("%w: close wav encoder %q: %v", ErrPersistence, path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("%w: close %q: %v", ErrPersistence, path, err)
	}

	return path, nil
}

// concat flattens blocks into one contiguous sample sequence in arrival order.
func concat(frames [][]float32) []float32 {
	total := 0
	for _, block := range frames {
		total += len(block)
	}
	samples := make([]float32, 0, total)
	for _, block := range frames {
		samples = append(samples, block...)
	}
	return samples
}

// quantize scales samples so the peak maps to the int16 maximum, then rounds
// to the nearest representable value. Pure silence skips normalization.
func quantize(samples []float32) []int {
	var peak float64
	for _, s := range samples {
		if abs := math.Abs(float64(s)); abs > peak {
			peak = abs
		}
	}

	out := make([]int, len(samples))
	if peak == 0 {
		return out
	}

	for i, s := range samples {
		scaled := math.Round(float64(s) / peak * maxInt16)
		if scaled > maxInt16 {
			scaled = maxInt16
		}
		if scaled < minInt16 {
			scaled = minInt16
		}
		out[i] = int(scaled)
	}
	return out
}
