package source

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compositetv/video"
)

func ntsc() video.Timing {
	return video.Compute(video.NTSC, 320, 240, 3.3)
}

func TestScale(t *testing.T) {
	s := ScaleFor(ntsc())
	require.Equal(t, 51, s.Range)

	assert.Equal(t, int8(0), s.Delta(0))
	assert.Equal(t, int8(51), s.Delta(255))
	assert.Equal(t, int8(26), s.Delta(128))

	for _, l := range []uint8{0, 255} {
		assert.Equal(t, l, s.Luma(int(s.Delta(l))))
	}
	assert.Equal(t, uint8(0), s.Luma(-5))
	assert.Equal(t, uint8(255), s.Luma(400))
	assert.Equal(t, uint8(0), Scale{}.Luma(10))

	wide := Scale{Range: 200}
	assert.Equal(t, int8(127), wide.Delta(255))
}

func TestFrame(t *testing.T) {
	f := NewFrame(4, 2)
	w, h := f.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)

	f.Set(1, 1, 9)
	f.Set(9, 9, 9)
	assert.Equal(t, []int8{0, 9, 0, 0}, f.Row(1))
	assert.Nil(t, f.Row(2))
	assert.Nil(t, f.Row(-1))
}

func TestPatternsMatchPictureSize(t *testing.T) {
	timing := ntsc()
	for _, name := range []string{"bars", "ramp", "checker", "white", "black", "nonsense"} {
		f := Pattern(name, timing)
		w, h := f.Size()
		assert.Equal(t, timing.PixelsPerLine, w, name)
		assert.Equal(t, timing.TargetHeight, h, name)
	}
}

func TestBarsDescend(t *testing.T) {
	timing := ntsc()
	f := Bars(timing)
	row := f.Row(0)
	barWidth := timing.PixelsPerLine / 7

	prev := int8(127)
	for i := 0; i < 7; i++ {
		d := row[i*barWidth+barWidth/2]
		assert.Less(t, d, prev, "bar %d", i)
		prev = d
	}
	assert.Equal(t, row[timing.PixelsPerLine-1], row[6*barWidth])
}

func TestRampAndSolid(t *testing.T) {
	timing := ntsc()
	s := ScaleFor(timing)

	ramp := Ramp(timing).Row(10)
	assert.Equal(t, int8(0), ramp[0])
	assert.Equal(t, s.Delta(255), ramp[len(ramp)-1])

	assert.Equal(t, s.Delta(255), Solid(timing, 255).Row(3)[7])
	assert.Equal(t, int8(0), Solid(timing, 0).Row(3)[7])

	c := Checker(timing, 1)
	assert.NotEqual(t, c.Row(0)[0], c.Row(1)[0])
	assert.NotEqual(t, c.Row(0)[0], c.Row(0)[1])
}

func TestFromImage(t *testing.T) {
	timing := video.Compute(video.NTSC, 8, 4, 3.3)
	s := ScaleFor(timing)

	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		img.SetGray(x, 2, color.Gray{Y: 255})
	}
	f := FromImage(img, timing)
	assert.Equal(t, []int8{s.Delta(255), s.Delta(255), s.Delta(255), s.Delta(255)}, f.Row(2))
	assert.Equal(t, []int8{0, 0, 0, 0}, f.Row(0))

	// scaled from a larger RGBA picture
	big := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			big.Set(x, y, color.White)
		}
	}
	f = FromImage(big, timing)
	for y := 0; y < 4; y++ {
		for _, d := range f.Row(y) {
			assert.Equal(t, s.Delta(255), d)
		}
	}

	empty := FromImage(big, video.Compute(video.NTSC, 0, 0, 3.3))
	w, h := empty.Size()
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestCaptureArgs(t *testing.T) {
	args, err := CaptureArgs(CaptureConfig{}, "linux", video.NTSC, 160, 240)
	require.NoError(t, err)
	assert.Equal(t, []string{"-f", "v4l2", "-i", "/dev/video0"}, args[:4])
	assert.Contains(t, args, "scale=160:240,fps=30000/1001")
	assert.Contains(t, args, "gray")
	assert.Equal(t, "-", args[len(args)-1])

	args, err = CaptureArgs(CaptureConfig{Device: "1"}, "darwin", video.PAL, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"-f", "avfoundation", "-i", "1"}, args[:4])
	assert.Contains(t, args, "scale=10:10,fps=25")

	args, err = CaptureArgs(CaptureConfig{}, "windows", video.PAL, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, "video=Integrated Webcam", args[3])

	args, err = CaptureArgs(CaptureConfig{Input: "clip.mp4", Callsign: "N0CALL"}, "plan9", video.PAL, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", args[4])
	vf := args[len(args)-2]
	assert.Contains(t, vf, "drawtext=text='N0CALL'")

	_, err = CaptureArgs(CaptureConfig{}, "plan9", video.PAL, 10, 10)
	assert.Error(t, err)
}

func TestCaptureSwapsWholeFrames(t *testing.T) {
	timing := video.Compute(video.NTSC, 4, 2, 3.3)
	s := ScaleFor(timing)
	c := newCapture(timing)

	stream := bytes.NewReader([]byte{
		0, 0, 0, 0, // frame 1
		255, 255, 255, 255, // frame 2
	})
	c.run(stream)

	<-c.Done()
	assert.NoError(t, c.Err())
	assert.Equal(t, uint64(2), c.Frames())

	c.BeginFrame()
	assert.Equal(t, []int8{s.Delta(255), s.Delta(255)}, c.Row(0))
	assert.Equal(t, []int8{s.Delta(255), s.Delta(255)}, c.Row(1))
	c.EndFrame()
	assert.NoError(t, c.Close())
}

func TestCaptureShortRead(t *testing.T) {
	c := newCapture(video.Compute(video.NTSC, 4, 2, 3.3))
	c.run(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, c.Err())
	assert.Zero(t, c.Frames())
}

func TestSourcesImplementInterfaces(t *testing.T) {
	timing := video.Compute(video.NTSC, 4, 2, 3.3)
	var _ video.FrameSource = newCapture(timing)
	var _ video.PixelSource = Bars(timing)
}
