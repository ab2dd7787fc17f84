package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// PixelSource supplies picture rows. Row returns the deltas to black level
// for source row y, one per logical pixel. The slice must stay unchanged
// until the line has been filled.
type PixelSource interface {
	Row(y int) []int8
}

// PixelSourceFunc adapts a function to PixelSource.
type PixelSourceFunc func(y int) []int8

// Row implements PixelSource.
func (f PixelSourceFunc) Row(y int) []int8 {
	return f(y)
}

// FrameSource is a PixelSource that wants to know when a frame starts and
// ends, so that rows stay stable for the whole frame.
type FrameSource interface {
	PixelSource
	BeginFrame()
	EndFrame()
}

// Transmitter is the DMA side of the generator. Configure sets the sample
// clock and returns the rate actually achieved. Send blocks until the
// words have been accepted; the generator reuses the slice afterwards.
type Transmitter interface {
	Configure(sampleRate float64, bufferLength, bufferCount int) (float64, error)
	Send(words []uint16) error
}

// ErrNoTransmitter is returned by NewGenerator when tx is nil.
var ErrNoTransmitter = errors.New("video: no transmitter")

// DefaultBufferCount is the number of hardware buffers requested from the
// transmitter.
const DefaultBufferCount = 2

// FrameStats describes one sent frame.
type FrameStats struct {
	Frame   uint64
	Lines   int
	Elapsed time.Duration
}

// Option configures a Generator.
type Option func(*Generator)

// WithRowMapping selects how source rows are spread across the two fields.
func WithRowMapping(m RowMapping) Option {
	return func(g *Generator) {
		if m != nil {
			g.mapping = m
		}
	}
}

// WithBufferCount sets the number of hardware buffers requested.
func WithBufferCount(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.bufferCount = n
		}
	}
}

// WithFrameHook installs a function called after every frame.
func WithFrameHook(fn func(FrameStats)) Option {
	return func(g *Generator) {
		g.onFrame = fn
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// Generator sequences lines into fields and fields into interlaced frames,
// handing every line to a Transmitter. It owns a single line buffer and is
// not safe for concurrent use.
type Generator struct {
	t           Timing
	tx          Transmitter
	mapping     RowMapping
	bufferCount int
	onFrame     func(FrameStats)
	log         *slog.Logger

	achieved float64
	buf      *LineBuffer
	synth    *Synth

	frames atomic.Uint64
	lines  atomic.Uint64
}

// NewGenerator configures the transmitter for the timing and allocates the
// line buffer. A failed configuration leaves nothing usable.
func NewGenerator(t Timing, tx Transmitter, opts ...Option) (*Generator, error) {
	if tx == nil {
		return nil, ErrNoTransmitter
	}

	g := &Generator{
		t:           t,
		tx:          tx,
		mapping:     Interlaced,
		bufferCount: DefaultBufferCount,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}

	achieved, err := tx.Configure(t.SampleRate, t.Line, g.bufferCount)
	if err != nil {
		return nil, fmt.Errorf("configuring transmitter: %w", err)
	}
	g.achieved = achieved

	layout := Linear
	if l, ok := tx.(Layouter); ok {
		layout = l.Layout()
	}
	g.buf = NewLineBuffer(t.Line, layout)
	g.synth = NewSynth(t, g.buf)

	drift := 0.0
	if t.SampleRate > 0 {
		drift = (achieved - t.SampleRate) / t.SampleRate
	}
	g.log.Info("video generator ready",
		"standard", t.Standard,
		"width", t.TargetWidth,
		"height", t.TargetHeight,
		"line_samples", t.Line,
		"sample_rate", t.SampleRate,
		"achieved_rate", achieved)
	if math.Abs(drift) > 1e-3 {
		g.log.Warn("sample clock drifts from the standard",
			"drift_ppm", drift*1e6,
			"line_micros", float64(t.Line)/achieved*1e6)
	}

	return g, nil
}

// Timing returns the timing the generator was built with.
func (g *Generator) Timing() Timing {
	return g.t
}

// AchievedRate is the sample rate reported by the transmitter.
func (g *Generator) AchievedRate() float64 {
	return g.achieved
}

// Frames returns the number of complete frames sent.
func (g *Generator) Frames() uint64 {
	return g.frames.Load()
}

// Lines returns the number of lines sent.
func (g *Generator) Lines() uint64 {
	return g.lines.Load()
}

// SendFrame sends one interlaced frame, even field first. It returns only
// once every line has been accepted by the transmitter. A transmit error
// abandons the frame; the transmitter should be reinitialised.
func (g *Generator) SendFrame(src PixelSource) error {
	start := time.Now()

	if fs, ok := src.(FrameSource); ok {
		fs.BeginFrame()
		defer fs.EndFrame()
	}

	lines := 0
	for _, p := range []Parity{Even, Odd} {
		n, err := g.sendField(src, p)
		lines += n
		if err != nil {
			return fmt.Errorf("%s field: %w", p, err)
		}
	}

	stats := FrameStats{
		Frame:   g.frames.Add(1),
		Lines:   lines,
		Elapsed: time.Since(start),
	}
	if g.onFrame != nil {
		g.onFrame(stats)
	}
	return nil
}

// Run sends frames until ctx is done or, when frames is positive, until
// that many frames have been sent. The context is only checked between
// frames so that a pulse train is never cut short.
func (g *Generator) Run(ctx context.Context, src PixelSource, frames int) error {
	for n := 0; frames <= 0 || n < frames; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := g.SendFrame(src); err != nil {
			return err
		}
	}
	return nil
}

type fieldWriter struct {
	g *Generator
	n int
}

func (w *fieldWriter) send(count int) error {
	for i := 0; i < count; i++ {
		if err := w.g.tx.Send(w.g.buf.Words()); err != nil {
			return fmt.Errorf("line %d: %w", w.n, err)
		}
		w.n++
		w.g.lines.Add(1)
	}
	return nil
}

func (w *fieldWriter) steps(steps []Step) error {
	for _, s := range steps {
		w.g.synth.FillPulses(s.First, s.Second)
		if err := w.send(s.Lines); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) sendField(src PixelSource, p Parity) (int, error) {
	f := g.t.Fields[p]
	w := &fieldWriter{g: g}

	if err := w.steps(Header(p)); err != nil {
		return w.n, err
	}

	g.synth.FillBlankedLine()
	if err := w.send(f.BlankTop); err != nil {
		return w.n, err
	}

	for y := 0; y < f.Rows; y++ {
		var row []int8
		if src != nil {
			row = src.Row(g.mapping.Row(g.t, p, y))
		}
		g.synth.FillActiveLine(row)
		if err := w.send(1); err != nil {
			return w.n, err
		}
	}

	g.synth.FillBlankedLine()
	if err := w.send(f.BlankBottom); err != nil {
		return w.n, err
	}

	if err := w.steps(Footer(p)); err != nil {
		return w.n, err
	}
	return w.n, nil
}
