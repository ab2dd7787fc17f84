package video

// SamplesPerMicro is the DAC sample clock in samples per microsecond. The
// peripheral runs at 160/3 MHz divided by two twice, 13.333 MHz.
const SamplesPerMicro = 160.0 / 3.0 / 2.0 / 2.0

// SampleRate is SamplesPerMicro in Hz.
const SampleRate = SamplesPerMicro * 1e6

// SamplesPerPixel is how many DAC samples each logical pixel is held for.
const SamplesPerPixel = 2

// MaxCode is the largest DAC code.
const MaxCode = 255

// Supply voltage range accepted by Compute. White sits 1 V above sync in
// both standards, so anything below 1 V would overflow the DAC.
const (
	MinSupplyVoltage = 1.0
	MaxSupplyVoltage = 5.0
)

// BottomSyncReserve is the number of lines at the bottom of every field held
// back for the footer pulse train.
const BottomSyncReserve = 3

// Parity selects one of the two interlaced fields.
type Parity int

const (
	Even Parity = iota
	Odd
)

func (p Parity) String() string {
	if p == Odd {
		return "odd"
	}
	return "even"
}

// Field holds the vertical layout of one field, in physical lines.
type Field struct {
	Lines        int
	ActiveLines  int
	VisibleLines int
	Rows         int
	BlankTop     int
	BlankBottom  int
}

// Timing is the sample-domain description of a standard for one requested
// resolution and supply voltage.
type Timing struct {
	Standard      Standard
	Properties    Properties
	SampleRate    float64
	SupplyVoltage float64

	Line       int
	Sync       int
	BackPorch  int
	BlankLeft  int
	BlankRight int
	Active     int
	FrontPorch int
	PadLeft    int
	PadRight   int

	ShortSync    int
	BroadSync    int
	NominalBroad int

	SyncLevel  uint8
	BlankLevel uint8
	BlackLevel uint8
	WhiteLevel uint8

	TargetWidth     int
	TargetHeight    int
	SamplesPerPixel int
	PixelsPerLine   int
	PixelAspect     float64

	Fields [2]Field
}

// Half is the length of a half line in samples.
func (t Timing) Half() int {
	return t.Line / 2
}

// Blank is the number of samples of horizontal overscan emitted at blank
// level inside the picture interval.
func (t Timing) Blank() int {
	return t.BlankLeft + t.BlankRight
}

// PictureStart is the sample offset of the first picture sample.
func (t Timing) PictureStart() int {
	return t.Sync + t.BackPorch + t.BlankLeft + t.PadLeft
}

// FrameLines is the number of physical lines in a frame.
func (t Timing) FrameLines() int {
	return t.Fields[Even].Lines + t.Fields[Odd].Lines
}

// FrameRate is the frame rate the timing produces at its sample rate.
func (t Timing) FrameRate() float64 {
	if t.Line == 0 || t.FrameLines() == 0 {
		return 0
	}
	return t.SampleRate / float64(t.Line*t.FrameLines())
}

func samples(micros float64) int {
	return int(SamplesPerMicro*micros + 0.5)
}

// Compute derives the sample-domain timing for a standard. Requests that
// don't fit are clamped, never refused.
func Compute(std Standard, width, height int, supplyVoltage float64) Timing {
	p, ok := Standards[std]
	if !ok {
		std = PAL
		p = Standards[PAL]
	}

	t := Timing{
		Standard:        std,
		Properties:      p,
		SampleRate:      SampleRate,
		SupplyVoltage:   clampf(supplyVoltage, MinSupplyVoltage, MaxSupplyVoltage),
		SamplesPerPixel: SamplesPerPixel,
	}

	// horizontal
	t.Line = int(SamplesPerMicro*p.LineMicros+1.5) &^ 1
	t.Sync = samples(p.HSyncMicros)
	t.BackPorch = samples(p.BackPorchMicros)
	t.FrontPorch = samples(p.FrontPorchMicros)
	t.BlankLeft = samples(p.OverscanLeftMicros)
	t.BlankRight = samples(p.OverscanRightMicros)
	t.Active = t.Line - t.Sync - t.BackPorch - t.Blank() - t.FrontPorch

	t.ShortSync = samples(p.ShortSyncMicros)
	t.BroadSync = t.Half() - t.ShortSync
	t.NominalBroad = samples(p.BroadSyncMicros)

	t.TargetWidth = clamp(width, 0, t.Active)
	t.PadLeft = (t.Active - t.TargetWidth) / 2
	t.PadRight = t.Active - t.TargetWidth - t.PadLeft
	t.PixelsPerLine = (t.TargetWidth + SamplesPerPixel - 1) / SamplesPerPixel

	// vertical
	t.Fields[Even].Lines = (p.Lines + 1) / 2
	t.Fields[Odd].Lines = p.Lines / 2
	for _, parity := range []Parity{Even, Odd} {
		f := &t.Fields[parity]
		f.ActiveLines = f.Lines - p.FirstActiveLine - BottomSyncReserve
		f.VisibleLines = max(f.ActiveLines-p.OverscanTopLines-p.OverscanBottomLines, 0)
	}

	height = max(height, 0)
	t.Fields[Odd].Rows = min(height/2, t.Fields[Odd].VisibleLines)
	t.Fields[Even].Rows = min(height-t.Fields[Odd].Rows, t.Fields[Even].VisibleLines)
	t.TargetHeight = t.Fields[Even].Rows + t.Fields[Odd].Rows

	even, odd := &t.Fields[Even], &t.Fields[Odd]
	slack := even.VisibleLines - even.Rows
	even.BlankTop = p.FirstActiveLine - HeaderLines(Even) + p.OverscanTopLines + slack/2
	even.BlankBottom = BottomSyncReserve - FooterLines(Even) + p.OverscanBottomLines + slack - slack/2

	// The odd field's broad pulses start half a line into its header, so
	// with the same BlankTop each odd row sits half a line below the even
	// row of the same index.
	odd.BlankTop = even.BlankTop
	odd.BlankBottom = odd.Lines - HeaderLines(Odd) - odd.BlankTop - odd.Rows - FooterLines(Odd)

	// levels, sync is the zero reference
	dacPerVolt := MaxCode / t.SupplyVoltage
	quantize := func(volts float64) uint8 {
		return uint8(clamp(int((volts-p.SyncVolts)*dacPerVolt+0.5), 0, MaxCode))
	}
	t.SyncLevel = 0
	t.BlankLevel = quantize(p.BlankVolts)
	t.BlackLevel = quantize(p.BlackVolts)
	t.WhiteLevel = quantize(p.WhiteVolts)
	if t.BlackLevel <= t.BlankLevel {
		t.BlackLevel = t.BlankLevel + 1
	}
	if t.WhiteLevel <= t.BlackLevel {
		t.WhiteLevel = t.BlackLevel + 1
	}

	if t.TargetHeight > 0 {
		t.PixelAspect = (float64(t.Active) / float64(t.TargetHeight)) / p.ImageAspect
	}

	return t
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampf(v, lo, hi float64) float64 {
	if v < lo || v != v {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
