// Package config holds the command line configuration shared by the
// generator and the monitor.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli"

	"compositetv/sdr"
	"compositetv/video"
)

// Output kinds for the generator.
const (
	OutputHackRF = "hackrf"
	OutputWAV    = "wav"
	OutputRaw    = "raw"
)

// Input kinds for the monitor.
const (
	InputRTL = "rtl"
	InputWAV = "wav"
)

// Config holds all application configuration values.
type Config struct {
	Standard      video.Standard
	Width         int
	Height        int
	SupplyVoltage float64
	Mapping       video.RowMapping
	MappingName   string

	Output     string
	Input      string
	File       string
	Frequency  float64
	Bandwidth  float64
	Gain       int
	Amp        bool
	FilterTaps int
	SampleRate float64

	Device   string
	Source   string
	Callsign string
	Pattern  string
	Image    string
	Frames   int

	TUI       bool
	StatsView string
	Window    int
	Headless  bool
	Snapshot  string
	Debug     bool
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "standard",
			Usage: "Video standard, pal or ntsc",
			Value: "ntsc",
		},
		cli.IntFlag{
			Name:  "width",
			Usage: "Picture width in DAC samples",
			Value: 320,
		},
		cli.IntFlag{
			Name:  "height",
			Usage: "Picture height in rows across both fields",
			Value: 240,
		},
		cli.Float64Flag{
			Name:  "vcc",
			Usage: "DAC supply voltage",
			Value: 3.3,
		},
		cli.StringFlag{
			Name:  "rows",
			Usage: "Row mapping: interlaced, split or doubled",
			Value: "interlaced",
		},
		cli.StringFlag{
			Name:  "file",
			Usage: "Capture file for the wav and raw outputs or the wav input",
		},
		cli.Float64Flag{
			Name:  "freq",
			Usage: "RF frequency in MHz",
			Value: 1280,
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
}

// GeneratorFlags returns the flags of the generator command.
func GeneratorFlags() []cli.Flag {
	return append(commonFlags(),
		cli.StringFlag{
			Name:  "output",
			Usage: "Where lines go: hackrf, wav or raw",
			Value: OutputHackRF,
		},
		cli.Float64Flag{
			Name:  "bw",
			Usage: "Channel bandwidth in MHz, 0 disables the TX filter",
			Value: 1.5,
		},
		cli.IntFlag{
			Name:  "gain",
			Usage: "TX VGA gain (0-47)",
			Value: 30,
		},
		cli.BoolFlag{
			Name:  "amp",
			Usage: "Enable the HackRF RF amplifier",
		},
		cli.IntFlag{
			Name:  "taps",
			Usage: "TX low-pass filter taps",
			Value: 31,
		},
		cli.StringFlag{
			Name:  "device",
			Usage: "Video device name or index (OS-dependent)",
		},
		cli.StringFlag{
			Name:  "input",
			Usage: "Video file or URL to loop instead of a capture device",
		},
		cli.StringFlag{
			Name:  "callsign",
			Usage: "Callsign to overlay on captured video",
			Value: "NOCALL",
		},
		cli.StringFlag{
			Name:  "pattern",
			Usage: "Send a test pattern instead of capturing: bars, ramp, checker, white or black",
		},
		cli.StringFlag{
			Name:  "image",
			Usage: "Send a still PNG, JPEG or BMP image instead of capturing",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to send, 0 runs until interrupted",
		},
		cli.BoolFlag{
			Name:  "tui",
			Usage: "Show a live status screen",
		},
		cli.StringFlag{
			Name:  "statsview",
			Usage: "Serve runtime statistics on this address, e.g. localhost:12600",
		},
	)
}

// MonitorFlags returns the flags of the monitor command.
func MonitorFlags() []cli.Flag {
	return append(commonFlags(),
		cli.StringFlag{
			Name:  "input",
			Usage: "Signal source: rtl or wav",
			Value: InputRTL,
		},
		cli.IntFlag{
			Name:  "gain",
			Usage: "RTL-SDR tuner gain in tenths of a dB",
			Value: 496,
		},
		cli.Float64Flag{
			Name:  "rate",
			Usage: "RTL-SDR sample rate in MHz",
			Value: 2.4,
		},
		cli.IntFlag{
			Name:  "window",
			Usage: "Viewer window width in pixels",
			Value: 720,
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Decode without opening the FFplay viewer",
		},
		cli.StringFlag{
			Name:  "snapshot",
			Usage: "Save the last decoded frame to this PNG file",
		},
	)
}

// FromContext builds a Config from parsed flags. Flags a command doesn't
// define read as their zero value.
func FromContext(c *cli.Context) (*Config, error) {
	std, err := video.ParseStandard(c.String("standard"))
	if err != nil {
		return nil, err
	}
	mapping, err := video.ParseRowMapping(c.String("rows"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Standard:      std,
		Width:         c.Int("width"),
		Height:        c.Int("height"),
		SupplyVoltage: c.Float64("vcc"),
		Mapping:       mapping,
		MappingName:   c.String("rows"),

		Output:     strings.ToLower(c.String("output")),
		File:       c.String("file"),
		Frequency:  c.Float64("freq"),
		Bandwidth:  c.Float64("bw"),
		Gain:       c.Int("gain"),
		Amp:        c.Bool("amp"),
		FilterTaps: c.Int("taps"),
		SampleRate: c.Float64("rate") * 1e6,

		Device:   c.String("device"),
		Callsign: c.String("callsign"),
		Pattern:  c.String("pattern"),
		Image:    c.String("image"),
		Frames:   c.Int("frames"),

		TUI:       c.Bool("tui"),
		StatsView: c.String("statsview"),
		Window:    c.Int("window"),
		Headless:  c.Bool("headless"),
		Snapshot:  c.String("snapshot"),
		Debug:     c.Bool("debug"),
	}

	// --input names a signal source on the monitor and a video file on
	// the generator
	if cfg.Output == "" {
		cfg.Input = strings.ToLower(c.String("input"))
	} else {
		cfg.Source = c.String("input")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the combinations flags can't express.
func (cfg *Config) Validate() error {
	switch cfg.Output {
	case "", OutputHackRF:
	case OutputWAV, OutputRaw:
		if cfg.File == "" {
			return fmt.Errorf("output %s needs --file", cfg.Output)
		}
		if cfg.Frames == 0 {
			return fmt.Errorf("output %s needs --frames", cfg.Output)
		}
	default:
		return fmt.Errorf("unknown output %q", cfg.Output)
	}

	switch cfg.Input {
	case "", InputRTL:
	case InputWAV:
		if cfg.File == "" {
			return fmt.Errorf("input %s needs --file", cfg.Input)
		}
	default:
		return fmt.Errorf("unknown input %q", cfg.Input)
	}

	if cfg.Pattern != "" && cfg.Image != "" {
		return fmt.Errorf("--pattern and --image are mutually exclusive")
	}
	if cfg.Frames < 0 {
		return fmt.Errorf("--frames must not be negative")
	}
	if cfg.TUI && cfg.Output != OutputHackRF {
		return fmt.Errorf("--tui needs the hackrf output")
	}
	return nil
}

// Timing derives the video timing. Out of range sizes and voltages are
// clamped by video.Compute.
func (cfg *Config) Timing() video.Timing {
	return video.Compute(cfg.Standard, cfg.Width, cfg.Height, cfg.SupplyVoltage)
}

// FrequencyHz returns the RF frequency in Hz.
func (cfg *Config) FrequencyHz() uint64 {
	if cfg.Frequency <= 0 {
		return 0
	}
	return uint64(cfg.Frequency * 1_000_000)
}

// HackRF returns the transmitter settings.
func (cfg *Config) HackRF() sdr.HackRFConfig {
	return sdr.HackRFConfig{
		FrequencyHz: cfg.FrequencyHz(),
		Gain:        cfg.Gain,
		Amp:         cfg.Amp,
		Bandwidth:   cfg.Bandwidth * 1_000_000,
		FilterTaps:  cfg.FilterTaps,
	}
}

// NewLogger returns a text logger on stderr, at debug level when debug is
// set.
func NewLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
