// Command cvmonitor receives a composite video signal from an RTL-SDR or a
// WAV capture and shows the decoded pictures with FFplay.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	rtl "github.com/jpoirier/gortlsdr"
	"github.com/urfave/cli"

	"compositetv/config"
	"compositetv/decoder"
	"compositetv/video"
)

func main() {
	app := cli.NewApp()
	app.Name = "cvmonitor"
	app.Description = "A monochrome PAL/NTSC composite video monitor"
	app.Usage = "cvmonitor [options]"
	app.Version = "1.0.0"
	app.Flags = config.MonitorFlags()
	app.Action = runMonitor

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running monitor", "error", err)
		os.Exit(1)
	}
}

func runMonitor(c *cli.Context) error {
	cfg, err := config.FromContext(c)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Debug)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timing := cfg.Timing()

	var player *decoder.FFplay
	if !cfg.Headless {
		args := decoder.FFplayArgs(timing.PixelsPerLine, timing.TargetHeight, timing.FrameRate(),
			fmt.Sprintf("%s Receiver", timing.Standard), cfg.Window)
		player, err = decoder.StartFFplay(args)
		if err != nil {
			return fmt.Errorf("failed to start FFplay: %w", err)
		}
		defer player.Stop()
	}

	onFrame := func(img *image.Gray) {
		if player == nil {
			return
		}
		if err := player.WriteFrame(img); err != nil {
			slog.Warn("Error writing to FFplay, it may have been closed", "error", err)
			player = nil
			stop()
		}
	}

	newDecoder := func(rate float64) *decoder.Decoder {
		return decoder.New(timing,
			decoder.WithRowMapping(cfg.Mapping),
			decoder.WithInputRate(rate),
			decoder.WithFrameHook(onFrame),
			decoder.WithLogger(logger))
	}

	var dec *decoder.Decoder
	switch cfg.Input {
	case config.InputWAV:
		dec, err = decodeWAV(ctx, cfg.File, newDecoder)
	default:
		dec, err = receiveRTL(ctx, cfg, timing, newDecoder)
	}
	if dec != nil {
		slog.Info("Decoding stopped", "fields", dec.Fields(), "frames", dec.Frames())
		if cfg.Snapshot != "" {
			if serr := saveSnapshot(cfg.Snapshot, dec.Frame()); serr != nil {
				slog.Error("Failed to save snapshot", "path", cfg.Snapshot, "error", serr)
			} else {
				slog.Info("Saved frame snapshot", "path", cfg.Snapshot)
			}
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func decodeWAV(ctx context.Context, path string, newDecoder func(float64) *decoder.Decoder) (*decoder.Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wd := wav.NewDecoder(f)
	if !wd.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid WAV file", path)
	}
	slog.Info("Reading WAV capture", "path", path, "sample_rate", wd.SampleRate, "bit_depth", wd.BitDepth)

	dec := newDecoder(float64(wd.SampleRate))
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: int(wd.NumChans), SampleRate: int(wd.SampleRate)},
		Data:   make([]int, 64*1024),
	}
	var levels []float64
	for {
		if err := ctx.Err(); err != nil {
			return dec, err
		}
		n, err := wd.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return dec, fmt.Errorf("reading %s: %w", path, err)
		}
		if n == 0 {
			return dec, nil
		}
		levels = decoder.PCM(buf.Data[:n], levels)
		dec.Write(levels)
	}
}

func receiveRTL(ctx context.Context, cfg *config.Config, timing video.Timing, newDecoder func(float64) *decoder.Decoder) (*decoder.Decoder, error) {
	devCount := rtl.GetDeviceCount()
	if devCount == 0 {
		return nil, errors.New("no RTL-SDR devices found")
	}
	slog.Info("Found RTL-SDR devices, using device 0", "count", devCount)

	dongle, err := rtl.Open(0)
	if err != nil {
		return nil, fmt.Errorf("error opening RTL-SDR device: %w", err)
	}
	defer dongle.Close()

	if err := dongle.SetCenterFreq(int(cfg.FrequencyHz())); err != nil {
		return nil, fmt.Errorf("SetCenterFreq failed: %w", err)
	}
	if err := dongle.SetSampleRate(int(cfg.SampleRate)); err != nil {
		return nil, fmt.Errorf("SetSampleRate failed: %w", err)
	}
	if err := dongle.SetTunerGainMode(true); err != nil {
		return nil, fmt.Errorf("SetTunerGainMode failed: %w", err)
	}
	if err := dongle.SetTunerGain(cfg.Gain); err != nil {
		return nil, fmt.Errorf("SetTunerGain failed: %w", err)
	}
	if err := dongle.ResetBuffer(); err != nil {
		return nil, fmt.Errorf("ResetBuffer failed: %w", err)
	}
	slog.Info("RTL-SDR tuned",
		"freq_mhz", cfg.Frequency,
		"sample_rate_msps", cfg.SampleRate/1e6,
		"gain_db", float64(cfg.Gain)/10)

	dec := newDecoder(cfg.SampleRate)
	demod := decoder.NewDemodulator(timing.WhiteLevel)
	readBuffer := make([]byte, rtl.DefaultBufLength)

	slog.Info("Starting stream processing, looking for a signal...")
	for {
		if err := ctx.Err(); err != nil {
			return dec, err
		}
		bytesRead, err := dongle.ReadSync(readBuffer, len(readBuffer))
		if err != nil {
			return dec, fmt.Errorf("ReadSync error: %w", err)
		}
		if bytesRead != len(readBuffer) {
			slog.Warn("Short read", "read", bytesRead, "want", len(readBuffer))
			continue
		}
		dec.Write(demod.ProcessIQ(readBuffer))
	}
}

func saveSnapshot(path string, img *image.Gray) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
