// Package source provides pixel sources for the video generator: still
// images, test patterns and live FFmpeg capture.
package source

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"compositetv/video"
)

// Frame is a still picture already converted to black-level deltas.
type Frame struct {
	width int
	rows  [][]int8
}

// NewFrame returns a black frame of width logical pixels by height rows.
func NewFrame(width, height int) *Frame {
	f := &Frame{width: width, rows: make([][]int8, height)}
	for y := range f.rows {
		f.rows[y] = make([]int8, width)
	}
	return f
}

// Size returns the frame's dimensions.
func (f *Frame) Size() (width, height int) {
	return f.width, len(f.rows)
}

// Row implements video.PixelSource. Rows outside the frame are nil and so
// drawn black.
func (f *Frame) Row(y int) []int8 {
	if y < 0 || y >= len(f.rows) {
		return nil
	}
	return f.rows[y]
}

// Set sets the delta of one pixel.
func (f *Frame) Set(x, y int, delta int8) {
	if y < 0 || y >= len(f.rows) || x < 0 || x >= f.width {
		return
	}
	f.rows[y][x] = delta
}

// Scale converts 8-bit luma to deltas between black and white.
type Scale struct {
	Range int
}

// ScaleFor returns the luma scale of a timing.
func ScaleFor(t video.Timing) Scale {
	return Scale{Range: int(t.WhiteLevel) - int(t.BlackLevel)}
}

// Delta maps luma 0..255 onto 0..Range.
func (s Scale) Delta(luma uint8) int8 {
	d := (int(luma)*s.Range + 127) / 255
	if d > 127 {
		d = 127
	}
	return int8(d)
}

// Luma is the inverse of Delta.
func (s Scale) Luma(delta int) uint8 {
	if s.Range <= 0 {
		return 0
	}
	l := (delta*255 + s.Range/2) / s.Range
	if l < 0 {
		return 0
	}
	if l > 255 {
		return 255
	}
	return uint8(l)
}

// FromImage scales img to the picture size of t and converts it to luma
// deltas.
func FromImage(img image.Image, t video.Timing) *Frame {
	f := NewFrame(t.PixelsPerLine, t.TargetHeight)
	if t.PixelsPerLine == 0 || t.TargetHeight == 0 {
		return f
	}

	gray := image.NewGray(image.Rect(0, 0, t.PixelsPerLine, t.TargetHeight))
	if img.Bounds().Dx() == t.PixelsPerLine && img.Bounds().Dy() == t.TargetHeight {
		draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	}

	f.fill(gray, ScaleFor(t))
	return f
}

func (f *Frame) fill(gray *image.Gray, s Scale) {
	for y, row := range f.rows {
		off := y * gray.Stride
		for x := range row {
			row[x] = s.Delta(gray.Pix[off+x])
		}
	}
}
