package source

import "compositetv/video"

// barColors are the seven SMPTE colour bars. Only their luma survives on a
// monochrome signal, which gives a descending grey staircase.
var barColors = [7][3]uint8{
	{192, 192, 192}, // Gray
	{192, 192, 0},   // Yellow
	{0, 192, 192},   // Cyan
	{0, 192, 0},     // Green
	{192, 0, 192},   // Magenta
	{192, 0, 0},     // Red
	{0, 0, 192},     // Blue
}

func luma(rgb [3]uint8) uint8 {
	return uint8(0.299*float64(rgb[0]) + 0.587*float64(rgb[1]) + 0.114*float64(rgb[2]) + 0.5)
}

// Bars returns the luma of the SMPTE colour bars sized for t.
func Bars(t video.Timing) *Frame {
	f := NewFrame(t.PixelsPerLine, t.TargetHeight)
	s := ScaleFor(t)
	barWidth := t.PixelsPerLine / len(barColors)
	if barWidth == 0 {
		barWidth = 1
	}
	for y := range f.rows {
		for x := range f.rows[y] {
			barIdx := x / barWidth
			if barIdx >= len(barColors) {
				barIdx = len(barColors) - 1
			}
			f.rows[y][x] = s.Delta(luma(barColors[barIdx]))
		}
	}
	return f
}

// Ramp returns a horizontal black to white gradient.
func Ramp(t video.Timing) *Frame {
	f := NewFrame(t.PixelsPerLine, t.TargetHeight)
	s := ScaleFor(t)
	for y := range f.rows {
		for x := range f.rows[y] {
			l := 0
			if t.PixelsPerLine > 1 {
				l = x * 255 / (t.PixelsPerLine - 1)
			}
			f.rows[y][x] = s.Delta(uint8(l))
		}
	}
	return f
}

// Solid returns a frame of one luma.
func Solid(t video.Timing, l uint8) *Frame {
	f := NewFrame(t.PixelsPerLine, t.TargetHeight)
	d := ScaleFor(t).Delta(l)
	for y := range f.rows {
		for x := range f.rows[y] {
			f.rows[y][x] = d
		}
	}
	return f
}

// Checker returns a checkerboard of size-pixel squares. On an interlaced
// display a one-row checker flickers unless both fields land where they
// should, which makes it a quick interlace check.
func Checker(t video.Timing, size int) *Frame {
	if size < 1 {
		size = 1
	}
	f := NewFrame(t.PixelsPerLine, t.TargetHeight)
	white := ScaleFor(t).Delta(255)
	for y := range f.rows {
		for x := range f.rows[y] {
			if (x/size+y/size)%2 == 0 {
				f.rows[y][x] = white
			}
		}
	}
	return f
}

// Pattern returns the named test pattern: "bars", "ramp", "checker",
// "white" or "black". Unknown names give bars.
func Pattern(name string, t video.Timing) *Frame {
	switch name {
	case "ramp":
		return Ramp(t)
	case "checker":
		return Checker(t, 1)
	case "white":
		return Solid(t, 255)
	case "black":
		return Solid(t, 0)
	}
	return Bars(t)
}
