package sdr

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"compositetv/video"
)

// Raw writes DAC words as little-endian 16-bit values, pair swapped with
// the code in the high byte, the format the ESP32 I2S DAC DMA expects. The
// clock is whatever the reader of w runs at, so Configure reports the
// requested rate.
type Raw struct {
	w   *bufio.Writer
	buf []byte
}

// NewRaw writes to w.
func NewRaw(w io.Writer) *Raw {
	return &Raw{w: bufio.NewWriter(w)}
}

// Layout implements video.Layouter.
func (r *Raw) Layout() video.Layout {
	return video.PairSwapped
}

// Configure implements video.Transmitter.
func (r *Raw) Configure(sampleRate float64, bufferLength, _ int) (float64, error) {
	if bufferLength%2 != 0 {
		return 0, fmt.Errorf("raw: line length %d is not even", bufferLength)
	}
	r.buf = make([]byte, 2*bufferLength)
	return sampleRate, nil
}

// Send writes one line.
func (r *Raw) Send(words []uint16) error {
	if cap(r.buf) < 2*len(words) {
		r.buf = make([]byte, 2*len(words))
	}
	b := r.buf[:2*len(words)]
	for i, w := range words {
		binary.LittleEndian.PutUint16(b[2*i:], w)
	}
	if _, err := r.w.Write(b); err != nil {
		return fmt.Errorf("raw: %w", err)
	}
	return nil
}

// Flush writes out anything buffered.
func (r *Raw) Flush() error {
	return r.w.Flush()
}
