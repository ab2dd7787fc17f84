// Package decoder turns a received composite signal back into pictures. It
// is the monitor side of the generator: sync separation, field detection
// and row placement all use the same Timing the generator was built from.
package decoder

import (
	"image"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"compositetv/source"
	"compositetv/video"
)

// SyncState is the state of the vertical sync detector.
type SyncState int

const (
	// StateSearchVSync looks for the first broad pulse of a header.
	StateSearchVSync SyncState = iota
	// StateInVSync ignores further broad pulses until the next hsync.
	StateInVSync
)

// Option configures a Decoder.
type Option func(*Decoder)

// WithRowMapping selects how field lines are placed in the picture. It must
// match the generator's.
func WithRowMapping(m video.RowMapping) Option {
	return func(d *Decoder) {
		if m != nil {
			d.mapping = m
		}
	}
}

// WithInputRate sets the sample rate of the incoming stream. The default is
// the timing's own rate.
func WithInputRate(rate float64) Option {
	return func(d *Decoder) {
		if rate > 0 {
			d.step = d.t.SampleRate / rate
		}
	}
}

// WithFrameHook installs a function called with every completed frame. The
// image belongs to the hook.
func WithFrameHook(fn func(*image.Gray)) Option {
	return func(d *Decoder) {
		d.onFrame = fn
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.log = l
		}
	}
}

// Decoder rebuilds frames from a stream of levels in DAC code units. All
// positions are kept in timing samples, so the input rate only changes
// how far each input sample advances the clock.
type Decoder struct {
	t       video.Timing
	mapping video.RowMapping
	scale   source.Scale
	onFrame func(*image.Gray)
	log     *slog.Logger

	// thresholds, in timing samples and code units
	threshold  float64
	hsyncWidth float64
	broadWidth float64
	step       float64

	pos       float64
	run       float64
	lastHsync float64
	haveHsync bool
	state     SyncState

	locked     bool
	parity     video.Parity
	fieldStart float64
	seen       [2]bool

	row       int
	rowStart  float64
	capturing bool
	sums      []float64
	counts    []int

	frameBuffer   *image.Gray
	displayBuffer *image.Gray
	frameMutex    sync.Mutex

	frames atomic.Uint64
	fields atomic.Uint64
}

// New returns a decoder for t.
func New(t video.Timing, opts ...Option) *Decoder {
	d := &Decoder{
		t:       t,
		mapping: video.Interlaced,
		scale:   source.ScaleFor(t),
		log:     slog.Default(),
		step:    1,

		threshold:  (float64(t.SyncLevel) + float64(t.BlankLevel)) / 2,
		hsyncWidth: float64(t.ShortSync+t.Sync) / 2,
		broadWidth: float64(t.Sync+t.NominalBroad) / 2,

		sums:   make([]float64, t.PixelsPerLine),
		counts: make([]int, t.PixelsPerLine),

		frameBuffer:   image.NewGray(image.Rect(0, 0, t.PixelsPerLine, t.TargetHeight)),
		displayBuffer: image.NewGray(image.Rect(0, 0, t.PixelsPerLine, t.TargetHeight)),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.log.Info("decoder initialized",
		"standard", t.Standard,
		"line_samples", t.Line,
		"input_step", d.step,
		"hsync_min", d.hsyncWidth,
		"broad_min", d.broadWidth)
	return d
}

// Timing returns the timing the decoder was built with.
func (d *Decoder) Timing() video.Timing {
	return d.t
}

// Frames returns the number of frames completed.
func (d *Decoder) Frames() uint64 {
	return d.frames.Load()
}

// Fields returns the number of field starts detected.
func (d *Decoder) Fields() uint64 {
	return d.fields.Load()
}

// Locked reports whether the decoder has seen a field start.
func (d *Decoder) Locked() bool {
	return d.locked
}

// Parity returns the parity of the field being decoded.
func (d *Decoder) Parity() video.Parity {
	return d.parity
}

// WriteCodes feeds DAC codes, as recorded from a transmitter.
func (d *Decoder) WriteCodes(codes []uint8) {
	for _, c := range codes {
		d.sample(float64(c))
	}
}

// Write feeds levels in DAC code units.
func (d *Decoder) Write(levels []float64) {
	for _, v := range levels {
		d.sample(v)
	}
}

func (d *Decoder) sample(v float64) {
	if v < d.threshold {
		d.run += d.step
	} else {
		if d.run > 0 {
			d.pulse(d.pos-d.run, d.run)
			d.run = 0
		}
		if d.capturing {
			d.capture(v)
		}
	}
	d.pos += d.step
}

// pulse classifies a sync pulse that started at start and lasted width
// samples.
func (d *Decoder) pulse(start, width float64) {
	switch {
	case width >= d.broadWidth:
		if d.state == StateSearchVSync {
			d.state = StateInVSync
			d.vsync(start)
		}
	case width >= d.hsyncWidth:
		d.state = StateSearchVSync
		d.hsync(start)
	}
	// equalizing pulses carry no timing of their own
}

// vsync starts a field at the first broad pulse of a header. Its half-line
// phase against the last hsync tells the two fields apart.
func (d *Decoder) vsync(start float64) {
	if !d.haveHsync {
		return
	}
	line := float64(d.t.Line)
	phase := math.Mod(start-d.lastHsync, line)
	if phase < 0 {
		phase += line
	}

	if d.locked && d.parity == video.Odd && d.t.Fields[video.Odd].Rows == 0 && d.seen[video.Even] {
		d.publish()
	}

	d.finishRow()
	d.parity = video.Even
	d.fieldStart = start
	if phase > line/4 && phase < 3*line/4 {
		d.parity = video.Odd
		d.fieldStart = start - float64(d.t.Half())
	}
	if d.parity == video.Even {
		d.seen = [2]bool{}
	}
	d.seen[d.parity] = true
	d.locked = true
	d.fields.Add(1)
}

// hsync starts a line. When the line carries a picture row its pixels are
// collected until the picture interval ends.
func (d *Decoder) hsync(start float64) {
	d.finishRow()
	d.lastHsync = start
	d.haveHsync = true
	if !d.locked {
		return
	}

	f := d.t.Fields[d.parity]
	n := int(math.Round((start - d.fieldStart) / float64(d.t.Line)))
	row := n - video.HeaderLines(d.parity) - f.BlankTop
	if row < 0 || row >= f.Rows {
		return
	}

	d.row = row
	d.rowStart = start + float64(d.t.PictureStart())
	d.capturing = true
	clear(d.sums)
	clear(d.counts)
}

func (d *Decoder) capture(v float64) {
	rel := d.pos - d.rowStart
	if rel < 0 {
		return
	}
	x := int(rel) / d.t.SamplesPerPixel
	if x >= len(d.sums) || int(rel) >= d.t.TargetWidth {
		d.finishRow()
		return
	}
	d.sums[x] += v
	d.counts[x]++
}

// finishRow writes the row being captured into the frame.
func (d *Decoder) finishRow() {
	if !d.capturing {
		return
	}
	d.capturing = false

	y := d.mapping.Row(d.t, d.parity, d.row)
	if y < 0 || y >= d.t.TargetHeight {
		return
	}
	black := float64(d.t.BlackLevel)
	pix := d.frameBuffer.Pix[y*d.frameBuffer.Stride:]
	for x := range d.sums {
		if d.counts[x] == 0 {
			continue
		}
		delta := d.sums[x]/float64(d.counts[x]) - black
		pix[x] = d.scale.Luma(int(math.Round(delta)))
	}

	if d.parity == video.Odd && d.row == d.t.Fields[video.Odd].Rows-1 && d.seen[video.Even] {
		d.publish()
	}
}

func (d *Decoder) publish() {
	d.frameMutex.Lock()
	copy(d.displayBuffer.Pix, d.frameBuffer.Pix)
	d.frameMutex.Unlock()
	d.seen = [2]bool{}

	n := d.frames.Add(1)
	d.log.Debug("frame decoded", "frame", n)
	if d.onFrame != nil {
		d.onFrame(d.Frame())
	}
}

// Frame returns a copy of the latest completed frame.
func (d *Decoder) Frame() *image.Gray {
	d.frameMutex.Lock()
	defer d.frameMutex.Unlock()
	frameCopy := image.NewGray(d.displayBuffer.Rect)
	copy(frameCopy.Pix, d.displayBuffer.Pix)
	return frameCopy
}
