package sdr

// Modulator maps DAC codes onto an AM carrier envelope with negative
// modulation: sync tip is full carrier and peak white drops to Floor.
type Modulator struct {
	White uint8
	Floor float64
}

// DefaultFloor is the carrier left at peak white (12.5%).
const DefaultFloor = 0.125

// NewModulator returns a modulator whose white code is white.
func NewModulator(white uint8) Modulator {
	if white == 0 {
		white = 1
	}
	return Modulator{White: white, Floor: DefaultFloor}
}

// Amplitude returns the envelope in [Floor, 1] for code. Codes above white
// are clipped to it.
func (m Modulator) Amplitude(code uint8) float64 {
	if code > m.White {
		code = m.White
	}
	return 1 - float64(code)/float64(m.White)*(1-m.Floor)
}

// Level is the inverse of Amplitude, in code units.
func (m Modulator) Level(amplitude float64) float64 {
	return (1 - amplitude) / (1 - m.Floor) * float64(m.White)
}
