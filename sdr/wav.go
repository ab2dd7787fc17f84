package sdr

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"compositetv/video"
)

// WAV captures the waveform to an 8-bit mono WAV file at the DAC sample
// rate, one DAC code per sample. Useful for looking at the signal in an
// audio editor or feeding it back into the monitor.
type WAV struct {
	w      io.WriteSeeker
	closer io.Closer
	enc    *wav.Encoder
	buf    *audio.IntBuffer
	lines  int
}

// CreateWAV creates the file at path.
func CreateWAV(path string) (*WAV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	w := NewWAV(f)
	w.closer = f
	return w, nil
}

// NewWAV writes to w. Close must be called to finish the header.
func NewWAV(w io.WriteSeeker) *WAV {
	return &WAV{w: w}
}

// Configure starts the encoder. WAV sample rates are whole hertz.
func (w *WAV) Configure(sampleRate float64, bufferLength, _ int) (float64, error) {
	rate := int(math.Round(sampleRate))
	if rate <= 0 {
		return 0, fmt.Errorf("wav: bad sample rate %v", sampleRate)
	}
	w.enc = wav.NewEncoder(w.w, rate, 8, 1, 1)
	w.buf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           make([]int, 0, bufferLength),
		SourceBitDepth: 8,
	}
	return float64(rate), nil
}

// Send appends one line to the file.
func (w *WAV) Send(words []uint16) error {
	if w.enc == nil {
		return fmt.Errorf("wav: not configured")
	}
	w.buf.Data = w.buf.Data[:0]
	for _, word := range words {
		w.buf.Data = append(w.buf.Data, int(video.Code(word)))
	}
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	w.lines++
	return nil
}

// Lines returns the number of lines written.
func (w *WAV) Lines() int {
	return w.lines
}

// Close finishes the WAV header and closes the file if CreateWAV opened
// it.
func (w *WAV) Close() (rerr error) {
	if w.closer != nil {
		defer func() {
			if err := w.closer.Close(); err != nil && rerr == nil {
				rerr = fmt.Errorf("wav: %w", err)
			}
		}()
	}
	if w.enc == nil {
		return nil
	}
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	return nil
}
