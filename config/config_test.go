package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"

	"compositetv/video"
)

func parse(t *testing.T, flags []cli.Flag, args ...string) (*Config, error) {
	t.Helper()
	var (
		cfg    *Config
		cfgErr error
	)
	app := cli.NewApp()
	app.Flags = flags
	app.Action = func(c *cli.Context) error {
		cfg, cfgErr = FromContext(c)
		return nil
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
	return cfg, cfgErr
}

func TestGeneratorDefaults(t *testing.T) {
	cfg, err := parse(t, GeneratorFlags())
	require.NoError(t, err)

	assert.Equal(t, video.NTSC, cfg.Standard)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 240, cfg.Height)
	assert.Equal(t, 3.3, cfg.SupplyVoltage)
	assert.Equal(t, OutputHackRF, cfg.Output)
	assert.Empty(t, cfg.Input)
	assert.Equal(t, "NOCALL", cfg.Callsign)

	hr := cfg.HackRF()
	assert.Equal(t, uint64(1_280_000_000), hr.FrequencyHz)
	assert.Equal(t, 1.5e6, hr.Bandwidth)
	assert.Equal(t, 30, hr.Gain)
	assert.Equal(t, 31, hr.FilterTaps)

	timing := cfg.Timing()
	assert.Equal(t, 848, timing.Line)
	assert.Equal(t, 160, timing.PixelsPerLine)
}

func TestGeneratorFlags(t *testing.T) {
	cfg, err := parse(t, GeneratorFlags(),
		"--standard", "pal", "--rows", "split", "--output", "wav", "--file", "out.wav",
		"--input", "clip.mp4", "--pattern", "ramp", "--frames", "10", "--vcc", "9")
	require.NoError(t, err)

	assert.Equal(t, video.PAL, cfg.Standard)
	assert.Equal(t, "split", cfg.MappingName)
	timing := cfg.Timing()
	assert.Equal(t, timing.Fields[video.Even].Rows, cfg.Mapping.Row(timing, video.Odd, 0))
	assert.Equal(t, OutputWAV, cfg.Output)
	assert.Equal(t, "clip.mp4", cfg.Source)
	assert.Equal(t, 10, cfg.Frames)
	assert.Equal(t, video.MaxSupplyVoltage, timing.SupplyVoltage)
}

func TestMonitorFlags(t *testing.T) {
	cfg, err := parse(t, MonitorFlags(), "--input", "WAV", "--file", "in.wav", "--headless", "--snapshot", "last.png")
	require.NoError(t, err)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "last.png", cfg.Snapshot)
	assert.Equal(t, InputWAV, cfg.Input)
	assert.Empty(t, cfg.Output)
	assert.Equal(t, 2.4e6, cfg.SampleRate)
	assert.Equal(t, 496, cfg.Gain)
	assert.Equal(t, 720, cfg.Window)
}

func TestInvalidFlags(t *testing.T) {
	for name, args := range map[string][]string{
		"standard":    {"--standard", "secam"},
		"rows":        {"--rows", "diagonal"},
		"output":      {"--output", "tape"},
		"wav no file": {"--output", "wav", "--frames", "1"},
		"raw forever": {"--output", "raw", "--file", "out.raw"},
		"tui on file": {"--output", "raw", "--file", "out.raw", "--frames", "1", "--tui"},
		"exclusive":   {"--pattern", "bars", "--image", "x.png"},
		"frames":      {"--frames", "-1"},
	} {
		_, err := parse(t, GeneratorFlags(), args...)
		assert.Error(t, err, name)
	}

	_, err := parse(t, MonitorFlags(), "--input", "wav")
	assert.Error(t, err)
	_, err = parse(t, MonitorFlags(), "--input", "tv")
	assert.Error(t, err)
}

func TestFrequencyHz(t *testing.T) {
	assert.Zero(t, (&Config{Frequency: -1}).FrequencyHz())
	assert.Equal(t, uint64(427_250_000), (&Config{Frequency: 427.25}).FrequencyHz())
}

func TestNewLogger(t *testing.T) {
	assert.NotNil(t, NewLogger(true))
	assert.NotNil(t, NewLogger(false))
}
