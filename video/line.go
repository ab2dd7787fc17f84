package video

// Layout maps a logical sample index to its physical slot in the DAC word
// buffer.
type Layout func(i int) int

// Linear stores samples in order.
func Linear(i int) int { return i }

// PairSwapped stores each pair of samples in swapped order. The ESP32 I2S
// DAC consumes 16-bit words two at a time, high word first.
func PairSwapped(i int) int { return i ^ 1 }

// Layouter is implemented by transmitters that need a particular sample
// layout. Transmitters that don't implement it get Linear.
type Layouter interface {
	Layout() Layout
}

// Word packs a DAC code into the high byte of a 16-bit sample word.
func Word(code uint8) uint16 {
	return uint16(code) << 8
}

// Code is the inverse of Word.
func Code(w uint16) uint8 {
	return uint8(w >> 8)
}

// LineBuffer is one scan line of DAC words. It is written and sent once per
// line and must not be touched while a send is outstanding.
type LineBuffer struct {
	words  []uint16
	layout Layout
}

// NewLineBuffer allocates a line of n samples. n must be even when layout
// is PairSwapped.
func NewLineBuffer(n int, layout Layout) *LineBuffer {
	if layout == nil {
		layout = Linear
	}
	return &LineBuffer{
		words:  make([]uint16, n),
		layout: layout,
	}
}

// Len returns the number of samples in the line.
func (b *LineBuffer) Len() int {
	return len(b.words)
}

// Words returns the physical word buffer as handed to a transmitter.
func (b *LineBuffer) Words() []uint16 {
	return b.words
}

// Set writes the code for logical sample i.
func (b *LineBuffer) Set(i int, code uint8) {
	b.words[b.layout(i)] = Word(code)
}

// At returns the code of logical sample i.
func (b *LineBuffer) At(i int) uint8 {
	return Code(b.words[b.layout(i)])
}

// Codes returns the line as logical codes.
func (b *LineBuffer) Codes() []uint8 {
	codes := make([]uint8, len(b.words))
	for i := range codes {
		codes[i] = b.At(i)
	}
	return codes
}

// Synth fills a LineBuffer with the segments of one scan line. Every fill
// writes exactly Timing.Line samples.
type Synth struct {
	t   Timing
	buf *LineBuffer
	i   int
}

// NewSynth returns a synthesizer writing into buf, which must be
// Timing.Line samples long.
func NewSynth(t Timing, buf *LineBuffer) *Synth {
	return &Synth{t: t, buf: buf}
}

// Cursor returns the number of samples written since the last fill began.
func (s *Synth) Cursor() int {
	return s.i
}

func (s *Synth) fill(code uint8, n int) {
	for j := 0; j < n; j++ {
		s.buf.Set(s.i, code)
		s.i++
	}
}

func (s *Synth) frontPorch() {
	s.fill(s.t.BlankLevel, s.t.BlankRight+s.t.FrontPorch)
}

func (s *Synth) backPorch() {
	s.fill(s.t.SyncLevel, s.t.Sync)
	s.fill(s.t.BlankLevel, s.t.BackPorch+s.t.BlankLeft)
}

// FillActiveLine writes a picture line. Each delta in row is added to the
// black level and held for SamplesPerPixel samples. Pixels missing from a
// short row are drawn black.
func (s *Synth) FillActiveLine(row []int8) {
	t := s.t
	s.i = 0
	s.backPorch()
	s.fill(t.BlackLevel, t.PadLeft)
	for x := 0; x < t.TargetWidth; x++ {
		code := t.BlackLevel
		if p := x / t.SamplesPerPixel; p < len(row) {
			code = uint8(clamp(int(t.BlackLevel)+int(row[p]), 0, MaxCode))
		}
		s.buf.Set(s.i, code)
		s.i++
	}
	s.fill(t.BlackLevel, t.PadRight)
	s.frontPorch()
}

// FillBlankedLine writes a line with the whole active region at black
// level. Used for vertical blanking filler.
func (s *Synth) FillBlankedLine() {
	s.i = 0
	s.backPorch()
	s.fill(s.t.BlackLevel, s.t.Active)
	s.frontPorch()
}

// FillPulses writes one physical line made of two half-line pulses. When
// the line length is odd the second half absorbs the extra sample.
func (s *Synth) FillPulses(first, second Pulse) {
	s.i = 0
	s.pulse(first, s.t.Half(), true)
	s.pulse(second, s.t.Line-s.t.Half(), false)
}

func (s *Synth) pulse(p Pulse, width int, lineStart bool) {
	t := s.t
	switch p {
	case Short:
		s.fill(t.SyncLevel, t.ShortSync)
		s.fill(t.BlankLevel, width-t.ShortSync)
	case Broad:
		s.fill(t.SyncLevel, width-t.ShortSync)
		s.fill(t.BlankLevel, t.ShortSync)
	case HalfBlank:
		if lineStart {
			s.fill(t.SyncLevel, t.Sync)
			s.fill(t.BlankLevel, width-t.Sync)
			return
		}
		s.fill(t.BlankLevel, width)
	}
}
