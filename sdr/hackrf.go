package sdr

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/samuel/go-hackrf/hackrf"

	"compositetv/video"
)

// ErrClosed is returned by Send after a transmitter has been closed.
var ErrClosed = errors.New("sdr: transmitter closed")

// HackRF sample rate limits.
const (
	MinHackRFRate = 2e6
	MaxHackRFRate = 20e6
)

// HackRFConfig holds the radio settings of a HackRF transmitter.
type HackRFConfig struct {
	FrequencyHz uint64
	Gain        int
	Amp         bool
	// Bandwidth of the baseband low-pass filter in Hz. Zero disables it.
	Bandwidth  float64
	FilterTaps int
}

// HackRFOption configures a HackRF transmitter.
type HackRFOption func(*HackRF)

// WithHackRFLogger sets the logger. The default is slog.Default().
func WithHackRFLogger(l *slog.Logger) HackRFOption {
	return func(h *HackRF) {
		if l != nil {
			h.log = l
		}
	}
}

// HackRF sends lines as an AM-modulated baseband stream. Send copies each
// line into one of the hardware buffers and returns; the TX callback
// drains them in order.
type HackRF struct {
	dev *hackrf.Device
	cfg HackRFConfig
	mod Modulator
	fir *FIR
	log *slog.Logger

	lines chan []uint16
	free  chan []uint16
	done  chan struct{}
	once  sync.Once

	// owned by the TX callback
	cur []uint16
	pos int

	blank     float64
	underruns atomic.Uint64
}

// NewHackRF wraps an open device. The timing supplies the white and blank
// levels used for modulation and for filler.
func NewHackRF(dev *hackrf.Device, cfg HackRFConfig, t video.Timing, opts ...HackRFOption) *HackRF {
	if cfg.FilterTaps == 0 {
		cfg.FilterTaps = 31
	}
	mod := NewModulator(t.WhiteLevel)
	h := &HackRF{
		dev:   dev,
		cfg:   cfg,
		mod:   mod,
		log:   slog.Default(),
		blank: mod.Amplitude(t.BlankLevel),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Configure sets up the radio and starts transmitting. The device is fed
// blanking until the first line arrives.
func (h *HackRF) Configure(sampleRate float64, bufferLength, bufferCount int) (float64, error) {
	rate := sampleRate
	if rate < MinHackRFRate {
		rate = MinHackRFRate
	}
	if rate > MaxHackRFRate {
		rate = MaxHackRFRate
	}

	if err := h.dev.SetFreq(h.cfg.FrequencyHz); err != nil {
		return 0, fmt.Errorf("hackrf: set frequency: %w", err)
	}
	if err := h.dev.SetSampleRate(rate); err != nil {
		return 0, fmt.Errorf("hackrf: set sample rate: %w", err)
	}
	if err := h.dev.SetTXVGAGain(h.cfg.Gain); err != nil {
		return 0, fmt.Errorf("hackrf: set gain: %w", err)
	}
	if err := h.dev.SetAmpEnable(h.cfg.Amp); err != nil {
		return 0, fmt.Errorf("hackrf: set amp: %w", err)
	}

	h.setup(rate, bufferLength, bufferCount)

	h.log.Info("starting transmission",
		"freq_mhz", float64(h.cfg.FrequencyHz)/1e6,
		"sample_rate_msps", rate/1e6,
		"gain", h.cfg.Gain,
		"buffers", bufferCount)

	if err := h.dev.StartTX(h.fill); err != nil {
		return 0, fmt.Errorf("hackrf: start tx: %w", err)
	}
	return rate, nil
}

func (h *HackRF) setup(rate float64, bufferLength, bufferCount int) {
	if bufferCount < 1 {
		bufferCount = 1
	}
	h.lines = make(chan []uint16, bufferCount)
	h.free = make(chan []uint16, bufferCount)
	for i := 0; i < bufferCount; i++ {
		h.free <- make([]uint16, 0, bufferLength)
	}
	if h.cfg.Bandwidth > 0 {
		taps := NewLowPassFilterTaps(h.cfg.FilterTaps, h.cfg.Bandwidth, rate)
		h.fir = NewFIR(taps, h.blank)
		h.log.Debug("baseband filter enabled", "bandwidth_mhz", h.cfg.Bandwidth/1e6, "taps", len(taps))
	}
}

// Send queues a copy of words, blocking while every hardware buffer is
// still waiting to be drained.
func (h *HackRF) Send(words []uint16) error {
	var buf []uint16
	select {
	case buf = <-h.free:
	case <-h.done:
		return ErrClosed
	}
	buf = append(buf[:0], words...)
	select {
	case h.lines <- buf:
		return nil
	case <-h.done:
		return ErrClosed
	}
}

// Underruns counts samples sent as filler because no line was queued.
func (h *HackRF) Underruns() uint64 {
	return h.underruns.Load()
}

// fill is the TX callback. buf holds interleaved signed 8-bit I/Q pairs.
func (h *HackRF) fill(buf []byte) error {
	for i := 0; i+1 < len(buf); i += 2 {
		amplitude, ok := h.next()
		if !ok {
			amplitude = h.blank
			h.underruns.Add(1)
		}
		if h.fir != nil {
			amplitude = h.fir.Filter(amplitude)
		}
		buf[i] = byte(int8(amplitude * 127.0))
		buf[i+1] = 0
	}
	return nil
}

func (h *HackRF) next() (float64, bool) {
	if h.pos >= len(h.cur) {
		if h.cur != nil {
			h.free <- h.cur
			h.cur = nil
		}
		select {
		case h.cur = <-h.lines:
			h.pos = 0
		default:
			return 0, false
		}
		if len(h.cur) == 0 {
			return 0, false
		}
	}
	code := video.Code(h.cur[h.pos])
	h.pos++
	return h.mod.Amplitude(code), true
}

// Close stops the transmission. The device itself is left open.
func (h *HackRF) Close() error {
	var err error
	h.once.Do(func() {
		close(h.done)
		if h.dev != nil && h.lines != nil {
			err = h.dev.StopTX()
		}
	})
	return err
}
