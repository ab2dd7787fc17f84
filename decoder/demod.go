package decoder

import (
	"math"

	"compositetv/sdr"
)

// Demodulator recovers levels in DAC code units from 8-bit RTL-SDR IQ. The
// carrier is at its peak during sync, so the smoothed peak magnitude is
// the AGC reference.
type Demodulator struct {
	mod  sdr.Modulator
	peak float64
	out  []float64
}

// NewDemodulator returns a demodulator for a signal whose white code is
// white.
func NewDemodulator(white uint8) *Demodulator {
	return &Demodulator{mod: sdr.NewModulator(white)}
}

// Peak returns the current AGC reference magnitude.
func (d *Demodulator) Peak() float64 {
	return d.peak
}

// ProcessIQ demodulates a chunk of interleaved unsigned I/Q bytes. The
// returned slice is reused by the next call.
func (d *Demodulator) ProcessIQ(iq []byte) []float64 {
	n := len(iq) / 2
	if cap(d.out) < n {
		d.out = make([]float64, n)
	}
	d.out = d.out[:n]

	localMax := 0.0
	for i := range d.out {
		iqI := float64(iq[i*2]) - 127.5
		iqQ := float64(iq[i*2+1]) - 127.5
		mag := math.Sqrt(iqI*iqI + iqQ*iqQ)
		d.out[i] = mag
		if mag > localMax {
			localMax = mag
		}
	}
	if d.peak == 0 {
		d.peak = localMax
	} else {
		d.peak = d.peak*0.95 + localMax*0.05
	}
	if d.peak == 0 {
		return d.out
	}

	for i, mag := range d.out {
		d.out[i] = d.mod.Level(mag / d.peak)
	}
	return d.out
}

// PCM converts integer audio samples to levels, as read back from a WAV
// capture.
func PCM(samples []int, out []float64) []float64 {
	out = out[:0]
	for _, s := range samples {
		out = append(out, float64(s))
	}
	return out
}
