package sdr

import (
	"sync"

	"compositetv/video"
)

// Recorder keeps every line sent, as DAC codes. It is the transmitter used
// by tests and by the monitor's self-check.
type Recorder struct {
	mu      sync.Mutex
	rate    float64
	length  int
	buffers int
	lines   [][]uint8
	limit   int
}

// NewRecorder keeps at most limit lines, oldest first out. Zero keeps
// everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Configure implements video.Transmitter.
func (r *Recorder) Configure(sampleRate float64, bufferLength, bufferCount int) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rate, r.length, r.buffers = sampleRate, bufferLength, bufferCount
	return sampleRate, nil
}

// Send implements video.Transmitter.
func (r *Recorder) Send(words []uint16) error {
	line := make([]uint8, len(words))
	for i, w := range words {
		line[i] = video.Code(w)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if r.limit > 0 && len(r.lines) > r.limit {
		r.lines = r.lines[len(r.lines)-r.limit:]
	}
	return nil
}

// Rate returns the configured sample rate.
func (r *Recorder) Rate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}

// Buffers returns the line length and buffer count asked for.
func (r *Recorder) Buffers() (length, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.length, r.buffers
}

// Lines returns the recorded lines.
func (r *Recorder) Lines() [][]uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]uint8(nil), r.lines...)
}

// Samples returns the recorded lines joined into one stream.
func (r *Recorder) Samples() []uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uint8
	for _, l := range r.lines {
		out = append(out, l...)
	}
	return out
}

// Reset drops everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = nil
}
