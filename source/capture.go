package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"

	"compositetv/video"
)

// CaptureConfig selects what FFmpeg captures.
type CaptureConfig struct {
	// Device is the OS video device name or index. Empty picks the
	// platform default.
	Device string
	// Input, when set, is a file or URL played in a loop instead of a
	// capture device.
	Input string
	// Callsign is drawn in a bar at the bottom of the picture when set.
	Callsign string
}

// CaptureArgs builds the FFmpeg command line for goos producing gray
// frames of width by height at the standard's frame rate.
func CaptureArgs(cfg CaptureConfig, goos string, std video.Standard, width, height int) ([]string, error) {
	var ffmpegArgs []string

	switch {
	case cfg.Input != "":
		ffmpegArgs = []string{"-re", "-stream_loop", "-1", "-i", cfg.Input}
	case goos == "linux":
		dev := cfg.Device
		if dev == "" {
			dev = "/dev/video0"
		}
		ffmpegArgs = []string{"-f", "v4l2", "-i", dev}
	case goos == "darwin":
		dev := cfg.Device
		if dev == "" {
			dev = "0"
		}
		ffmpegArgs = []string{"-f", "avfoundation", "-i", dev}
	case goos == "windows":
		dev := cfg.Device
		if dev == "" {
			dev = "Integrated Webcam"
		}
		ffmpegArgs = []string{"-f", "dshow", "-i", "video=" + dev}
	default:
		return nil, fmt.Errorf("unsupported OS: %s", goos)
	}

	fpsVal := "30000/1001"
	if std == video.PAL {
		fpsVal = "25"
	}

	vfArg := fmt.Sprintf("scale=%d:%d,fps=%s", width, height, fpsVal)
	if cfg.Callsign != "" {
		vfArg += fmt.Sprintf(",drawbox=x=0:y=ih-ih/10:w=iw:h=ih/10:color=black@0.6:t=fill,drawtext=text='%s':x=10:y=h-h/12:fontcolor=white:fontsize=h/14", cfg.Callsign)
	}

	commonArgs := []string{
		"-hide_banner", "-loglevel", "error",
		"-fflags", "nobuffer", "-flags", "low_delay",
		"-probesize", "32", "-analyzeduration", "0",
		"-threads", "1", "-f", "rawvideo",
		"-pix_fmt", "gray", "-vf", vfArg, "-",
	}

	return append(ffmpegArgs, commonArgs...), nil
}

// Capture is a live pixel source fed by FFmpeg. Frames are read on a
// background goroutine and swapped in whole; the generator holds a read
// lock for the duration of each frame it sends.
type Capture struct {
	cmd   *exec.Cmd
	scale Scale

	mu    sync.RWMutex
	front *Frame
	back  *Frame
	raw   []byte

	frames atomic.Uint64
	done   chan struct{}
	err    error
}

func newCapture(t video.Timing) *Capture {
	return &Capture{
		scale: ScaleFor(t),
		front: NewFrame(t.PixelsPerLine, t.TargetHeight),
		back:  NewFrame(t.PixelsPerLine, t.TargetHeight),
		raw:   make([]byte, t.PixelsPerLine*t.TargetHeight),
		done:  make(chan struct{}),
	}
}

// StartCapture starts FFmpeg and begins reading frames. The picture is
// black until the first frame arrives.
func StartCapture(ctx context.Context, cfg CaptureConfig, t video.Timing) (*Capture, error) {
	if t.PixelsPerLine == 0 || t.TargetHeight == 0 {
		return nil, errors.New("capture: empty picture")
	}
	args, err := CaptureArgs(cfg, runtime.GOOS, t.Standard, t.PixelsPerLine, t.TargetHeight)
	if err != nil {
		return nil, err
	}

	c := newCapture(t)
	c.cmd = exec.CommandContext(ctx, "ffmpeg", args...)

	ffmpegStdout, err := c.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get FFmpeg stdout pipe: %w", err)
	}
	if err := c.cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start FFmpeg: %w", err)
	}
	slog.Info("FFmpeg process started", "width", t.PixelsPerLine, "height", t.TargetHeight)

	go c.run(ffmpegStdout)
	return c, nil
}

func (c *Capture) run(r io.Reader) {
	defer close(c.done)
	for {
		if _, err := io.ReadFull(r, c.raw); err != nil {
			if !errors.Is(err, io.EOF) {
				c.err = fmt.Errorf("reading from FFmpeg: %w", err)
				slog.Error("capture stopped", "error", err)
			}
			return
		}

		for y, row := range c.back.rows {
			off := y * c.back.width
			for x := range row {
				row[x] = c.scale.Delta(c.raw[off+x])
			}
		}

		c.mu.Lock()
		c.front, c.back = c.back, c.front
		c.mu.Unlock()
		c.frames.Add(1)
	}
}

// Row implements video.PixelSource.
func (c *Capture) Row(y int) []int8 {
	return c.front.Row(y)
}

// BeginFrame implements video.FrameSource.
func (c *Capture) BeginFrame() {
	c.mu.RLock()
}

// EndFrame implements video.FrameSource.
func (c *Capture) EndFrame() {
	c.mu.RUnlock()
}

// Frames returns the number of frames captured so far.
func (c *Capture) Frames() uint64 {
	return c.frames.Load()
}

// Done is closed when the capture stream ends.
func (c *Capture) Done() <-chan struct{} {
	return c.done
}

// Err returns why the stream ended, once Done is closed. A clean end of
// stream is nil.
func (c *Capture) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close stops FFmpeg.
func (c *Capture) Close() error {
	if c.cmd == nil || c.cmd.Process == nil {
		return nil
	}
	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	_ = c.cmd.Wait()
	return nil
}
