// Command cvgen generates a monochrome composite video signal and sends it
// to a HackRF, a WAV capture or a raw DAC word file.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/samuel/go-hackrf/hackrf"
	"github.com/urfave/cli"
	_ "golang.org/x/image/bmp"

	"compositetv/config"
	"compositetv/sdr"
	"compositetv/source"
	"compositetv/status"
	"compositetv/video"
)

func main() {
	app := cli.NewApp()
	app.Name = "cvgen"
	app.Description = "A monochrome PAL/NTSC composite video generator"
	app.Usage = "cvgen [options]"
	app.Version = "1.0.0"
	app.Flags = config.GeneratorFlags()
	app.Action = runGenerator

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running generator", "error", err)
		os.Exit(1)
	}
}

func runGenerator(c *cli.Context) error {
	cfg, err := config.FromContext(c)
	if err != nil {
		return err
	}

	logger := config.NewLogger(cfg.Debug)
	if cfg.TUI {
		// the status screen owns the terminal
		logFile, err := os.Create("cvgen.log")
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		defer logFile.Close()
		logger = slog.New(slog.NewTextHandler(logFile, nil))
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StatsView != "" {
		launchStatsView(cfg.StatsView)
	}

	timing := cfg.Timing()
	slog.Info("Timing computed",
		"standard", timing.Standard,
		"line", timing.Line,
		"active", timing.Active,
		"picture", fmt.Sprintf("%dx%d", timing.PixelsPerLine, timing.TargetHeight),
		"levels", fmt.Sprintf("%d/%d/%d/%d", timing.SyncLevel, timing.BlankLevel, timing.BlackLevel, timing.WhiteLevel))

	tx, closeTx, err := openTransmitter(cfg, timing, logger)
	if err != nil {
		return err
	}
	defer closeTx()

	src, closeSrc, err := openSource(ctx, cfg, timing)
	if err != nil {
		return err
	}
	defer closeSrc()

	var (
		g    *video.Generator
		prog *tea.Program
	)
	onFrame := func(stats video.FrameStats) {
		if prog != nil {
			msg := status.FrameMsg{Stats: stats, Lines: g.Lines(), At: time.Now()}
			if h, ok := tx.(*sdr.HackRF); ok {
				msg.Underruns = h.Underruns()
			}
			prog.Send(msg)
		}
		if stats.Frame%100 == 0 {
			slog.Debug("Frame progress", "frames", stats.Frame, "elapsed", stats.Elapsed)
		}
	}

	g, err = video.NewGenerator(timing, tx,
		video.WithRowMapping(cfg.Mapping),
		video.WithFrameHook(onFrame),
		video.WithLogger(logger))
	if err != nil {
		return err
	}

	if !cfg.TUI {
		slog.Info("Transmission is live. Press Ctrl+C to stop.")
		return finish(g.Run(ctx, src, cfg.Frames), g)
	}

	prog = tea.NewProgram(status.New(timing, cfg.Output, g.AchievedRate()))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		err := g.Run(ctx, src, cfg.Frames)
		if err != nil && !errors.Is(err, context.Canceled) {
			prog.Send(status.ErrMsg{Err: err})
		} else {
			prog.Quit()
		}
		done <- err
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("status screen: %w", err)
	}
	cancel()
	return finish(<-done, g)
}

func finish(err error, g *video.Generator) error {
	slog.Info("Shutting down...", "frames", g.Frames(), "lines", g.Lines())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openTransmitter(cfg *config.Config, timing video.Timing, logger *slog.Logger) (video.Transmitter, func(), error) {
	switch cfg.Output {
	case config.OutputWAV:
		w, err := sdr.CreateWAV(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		return w, func() {
			if err := w.Close(); err != nil {
				slog.Error("Failed to finish WAV file", "error", err)
			}
			slog.Info("WAV capture written", "path", cfg.File, "lines", w.Lines())
		}, nil

	case config.OutputRaw:
		f, err := os.Create(cfg.File)
		if err != nil {
			return nil, nil, fmt.Errorf("raw: %w", err)
		}
		r := sdr.NewRaw(f)
		return r, func() {
			if err := r.Flush(); err != nil {
				slog.Error("Failed to flush raw file", "error", err)
			}
			f.Close()
		}, nil
	}

	if err := hackrf.Init(); err != nil {
		return nil, nil, fmt.Errorf("hackrf.Init() failed: %w", err)
	}
	dev, err := hackrf.Open()
	if err != nil {
		hackrf.Exit()
		return nil, nil, fmt.Errorf("hackrf.Open() failed: %w", err)
	}

	h := sdr.NewHackRF(dev, cfg.HackRF(), timing, sdr.WithHackRFLogger(logger.With("component", "hackrf")))
	return h, func() {
		if err := h.Close(); err != nil {
			slog.Error("Failed to stop transmission", "error", err)
		}
		if h.Underruns() > 0 {
			slog.Warn("Transmitter ran dry", "samples", h.Underruns())
		}
		if err := dev.Close(); err != nil {
			slog.Error("Failed to close HackRF", "error", err)
		}
		if err := hackrf.Exit(); err != nil {
			slog.Error("Failed to release libhackrf", "error", err)
		}
	}, nil
}

func openSource(ctx context.Context, cfg *config.Config, timing video.Timing) (video.PixelSource, func(), error) {
	noop := func() {}

	switch {
	case cfg.Pattern != "":
		slog.Info("Test mode: pattern will be transmitted", "pattern", cfg.Pattern)
		return source.Pattern(cfg.Pattern, timing), noop, nil

	case cfg.Image != "":
		img, err := loadImage(cfg.Image)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Still image will be transmitted", "path", cfg.Image, "size", img.Bounds().Size())
		return source.FromImage(img, timing), noop, nil
	}

	capture, err := source.StartCapture(ctx, source.CaptureConfig{
		Device:   cfg.Device,
		Input:    cfg.Source,
		Callsign: cfg.Callsign,
	}, timing)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start video source: %w", err)
	}
	return capture, func() {
		if err := capture.Close(); err != nil {
			slog.Error("Failed to stop FFmpeg", "error", err)
		}
	}, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

func launchStatsView(addr string) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()
	fmt.Fprintf(os.Stderr, "stats server available at %s/debug/statsview\n", addr)
}
