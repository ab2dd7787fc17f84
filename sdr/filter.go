package sdr

import "math"

// NewLowPassFilterTaps returns windowed-sinc taps that pass half of
// bandwidth either side of the carrier. The Blackman window keeps sidelobes
// under -58 dB, so the AM sidebands of sharp sync edges stay inside the
// channel. Its transition band is wider than a Hamming window's.
func NewLowPassFilterTaps(numTaps int, bandwidth, sampleRate float64) []float64 {
	if numTaps < 2 {
		return []float64{1}
	}
	fc := bandwidth / 2 / sampleRate
	mid := float64(numTaps-1) / 2

	taps := make([]float64, numTaps)
	var gain float64
	for i := range taps {
		x := float64(i) - mid
		phase := math.Pi * float64(i) / mid
		blackman := 0.42 - 0.5*math.Cos(phase) + 0.08*math.Cos(2*phase)

		h := 2 * math.Pi * fc
		if x != 0 {
			h = math.Sin(2*math.Pi*fc*x) / x
		}
		taps[i] = h * blackman
		gain += taps[i]
	}

	// unity gain at DC
	for i := range taps {
		taps[i] /= gain
	}
	return taps
}

// FIR runs samples through a set of filter taps one at a time.
type FIR struct {
	taps    []float64
	history []float64
	pos     int
}

// NewFIR returns a filter for taps. The history starts at prime, usually
// the signal's resting level, so the first outputs don't ramp up from zero.
func NewFIR(taps []float64, prime float64) *FIR {
	f := &FIR{
		taps:    taps,
		history: make([]float64, len(taps)),
	}
	for i := range f.history {
		f.history[i] = prime
	}
	return f
}

// Filter pushes x and returns the filtered output.
func (f *FIR) Filter(x float64) float64 {
	f.history[f.pos] = x
	var y float64
	idx := f.pos
	for _, tap := range f.taps {
		y += tap * f.history[idx]
		idx--
		if idx < 0 {
			idx = len(f.history) - 1
		}
	}
	f.pos++
	if f.pos == len(f.history) {
		f.pos = 0
	}
	return y
}
