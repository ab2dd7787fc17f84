package decoder

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// FFplay represents the FFplay video player process and its input pipe.
type FFplay struct {
	Pipe io.WriteCloser
	Cmd  *exec.Cmd
}

// FFplayArgs builds the FFplay command line for gray frames of width by
// height at fps, scaled to a window of windowWidth pixels.
func FFplayArgs(width, height int, fps float64, title string, windowWidth int) []string {
	args := []string{
		"-f", "rawvideo",
		"-pixel_format", "gray",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%f", fps),
		"-i", "-",
		"-window_title", title,
	}
	if windowWidth > 0 && width > 0 {
		args = append(args, "-x", fmt.Sprint(windowWidth), "-y", fmt.Sprint(windowWidth*height/width))
	}
	return append(args, "-fflags", "nobuffer", "-flags", "low_delay")
}

// StartFFplay launches FFplay reading raw gray frames from its stdin.
func StartFFplay(args []string) (*FFplay, error) {
	ffplayPath, err := exec.LookPath("ffplay")
	if err != nil {
		return nil, fmt.Errorf("ffplay not found in your PATH")
	}

	cmd := exec.Command(ffplayPath, args...)
	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	slog.Info("FFplay process started, video should appear in a new window")
	return &FFplay{Pipe: stdinPipe, Cmd: cmd}, nil
}

// WriteFrame sends one frame to the player.
func (f *FFplay) WriteFrame(img *image.Gray) error {
	w := img.Rect.Dx()
	for y := 0; y < img.Rect.Dy(); y++ {
		off := y * img.Stride
		if _, err := f.Pipe.Write(img.Pix[off : off+w]); err != nil {
			return fmt.Errorf("writing to ffplay: %w", err)
		}
	}
	return nil
}

// Stop closes the pipe and terminates FFplay.
func (f *FFplay) Stop() {
	if err := f.Pipe.Close(); err != nil {
		slog.Warn("Closing FFplay input failed", "error", err)
	}
	if f.Cmd.Process != nil {
		if err := f.Cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			slog.Error("Failed to kill FFplay", "error", err)
		}
	}
	_ = f.Cmd.Wait()
}
