package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var supplyVoltages = []float64{1.0, 1.8, 2.5, 3.0, 3.3, 4.0, 4.5, 5.0}

func TestComputeNTSCLineLength(t *testing.T) {
	for _, width := range []int{0, 1, 320, 640, 705, 100000} {
		timing := Compute(NTSC, width, 240, 3.3)
		assert.Equal(t, 848, timing.Line, "width %d", width)
	}
	assert.Equal(t, 854, Compute(PAL, 320, 240, 3.3).Line)
}

func TestComputeNTSCReference(t *testing.T) {
	timing := Compute(NTSC, 320, 240, 3.3)

	assert.Equal(t, 63, timing.Sync)
	assert.Equal(t, 60, timing.BackPorch)
	assert.Equal(t, 20, timing.FrontPorch)
	assert.Equal(t, 0, timing.Blank())
	assert.Equal(t, 705, timing.Active)
	assert.Equal(t, 31, timing.ShortSync)
	assert.Equal(t, 424-31, timing.BroadSync)

	assert.Equal(t, 320, timing.TargetWidth)
	assert.Equal(t, 192, timing.PadLeft)
	assert.Equal(t, 193, timing.PadRight)
	assert.Equal(t, 160, timing.PixelsPerLine)

	assert.Equal(t, uint8(0), timing.SyncLevel)
	assert.Equal(t, uint8(22), timing.BlankLevel)
	assert.Equal(t, uint8(26), timing.BlackLevel)
	assert.Equal(t, uint8(77), timing.WhiteLevel)

	assert.InDelta(t, 705.0/240.0/(4.0/3.0), timing.PixelAspect, 1e-9)
}

func TestComputeEndToEndNTSC(t *testing.T) {
	timing := Compute(NTSC, 320, 240, 3.3)

	assert.Equal(t, 525, timing.FrameLines())
	assert.Equal(t, 263, timing.Fields[Even].Lines)
	assert.Equal(t, 262, timing.Fields[Odd].Lines)
	assert.Equal(t, 120, timing.Fields[Even].Rows)
	assert.Equal(t, 120, timing.Fields[Odd].Rows)
	assert.Equal(t, 240, timing.TargetHeight)
}

func TestComputeHorizontalSumsToLine(t *testing.T) {
	for _, std := range []Standard{PAL, NTSC} {
		for _, width := range []int{-5, 0, 1, 99, 320, 583, 584, 704, 705, 706, 4096} {
			timing := Compute(std, width, 240, 3.3)

			require.Zero(t, timing.Line%2, "%s line length must be even", std)
			assert.Equal(t, timing.Line,
				timing.Sync+timing.BackPorch+timing.Blank()+timing.Active+timing.FrontPorch,
				"%s width %d", std, width)
			assert.Equal(t, timing.Active,
				timing.PadLeft+timing.TargetWidth+timing.PadRight,
				"%s width %d", std, width)
			assert.GreaterOrEqual(t, timing.PadLeft, 0)
			assert.GreaterOrEqual(t, timing.PadRight, 0)
			assert.LessOrEqual(t, timing.TargetWidth, timing.Active)
		}
	}
}

func TestComputeLevels(t *testing.T) {
	for _, std := range []Standard{PAL, NTSC} {
		for _, vcc := range append(supplyVoltages, 0.1, 0, -3, 12) {
			timing := Compute(std, 320, 240, vcc)

			assert.Equal(t, uint8(0), timing.SyncLevel, "%s %.1fV", std, vcc)
			assert.Less(t, timing.BlankLevel, timing.BlackLevel, "%s %.1fV", std, vcc)
			assert.Less(t, timing.BlackLevel, timing.WhiteLevel, "%s %.1fV", std, vcc)
			assert.GreaterOrEqual(t, timing.SupplyVoltage, MinSupplyVoltage)
			assert.LessOrEqual(t, timing.SupplyVoltage, MaxSupplyVoltage)
		}
	}
}

func TestComputeLowestSupplyUsesFullRange(t *testing.T) {
	timing := Compute(NTSC, 320, 240, MinSupplyVoltage)
	assert.Equal(t, uint8(MaxCode), timing.WhiteLevel)

	timing = Compute(NTSC, 320, 240, 0.5)
	assert.Equal(t, MinSupplyVoltage, timing.SupplyVoltage)
	assert.Equal(t, uint8(MaxCode), timing.WhiteLevel)
}

func TestComputeFieldsSumToStandard(t *testing.T) {
	for _, std := range []Standard{PAL, NTSC} {
		for _, height := range []int{-1, 0, 1, 2, 3, 100, 239, 240, 241, 288, 448, 449, 450, 576, 100000} {
			timing := Compute(std, 320, height, 3.3)
			p := Standards[std]

			assert.Equal(t, p.Lines, timing.Fields[Even].Lines+timing.Fields[Odd].Lines)
			for _, parity := range []Parity{Even, Odd} {
				f := timing.Fields[parity]
				total := HeaderLines(parity) + f.BlankTop + f.Rows + f.BlankBottom + FooterLines(parity)
				assert.Equal(t, f.Lines, total, "%s %s height %d", std, parity, height)
				assert.GreaterOrEqual(t, f.BlankTop, 0)
				assert.GreaterOrEqual(t, f.BlankBottom, 0)
				assert.LessOrEqual(t, f.Rows, f.VisibleLines)
			}
			assert.Equal(t, timing.TargetHeight, timing.Fields[Even].Rows+timing.Fields[Odd].Rows)
			assert.GreaterOrEqual(t, timing.Fields[Even].Rows, timing.Fields[Odd].Rows)
		}
	}
}

func TestComputeClampsHeight(t *testing.T) {
	timing := Compute(NTSC, 320, 100000, 3.3)

	capacity := timing.Fields[Even].VisibleLines + timing.Fields[Odd].VisibleLines
	assert.Equal(t, 449, capacity)
	assert.Equal(t, capacity, timing.TargetHeight)
	assert.Equal(t, 225, timing.Fields[Even].Rows)
	assert.Equal(t, 224, timing.Fields[Odd].Rows)
}

func TestComputeClampsWidth(t *testing.T) {
	timing := Compute(NTSC, 100000, 240, 3.3)
	assert.Equal(t, timing.Active, timing.TargetWidth)
	assert.Zero(t, timing.PadLeft)
	assert.Zero(t, timing.PadRight)

	timing = Compute(NTSC, -10, 240, 3.3)
	assert.Zero(t, timing.TargetWidth)
	assert.Zero(t, timing.PixelsPerLine)
}

func TestComputeIsPure(t *testing.T) {
	for _, std := range []Standard{PAL, NTSC} {
		a := Compute(std, 320, 240, 3.3)
		Compute(std, 999, 999, 1.2)
		b := Compute(std, 320, 240, 3.3)
		assert.Equal(t, a, b)
	}
}

func TestComputeUnknownStandardFallsBackToPAL(t *testing.T) {
	timing := Compute(Standard(42), 320, 240, 3.3)
	assert.Equal(t, PAL, timing.Standard)
	assert.Equal(t, 625, timing.FrameLines())
}

func TestParseStandard(t *testing.T) {
	std, err := ParseStandard(" NTSC ")
	require.NoError(t, err)
	assert.Equal(t, NTSC, std)

	std, err = ParseStandard("pal")
	require.NoError(t, err)
	assert.Equal(t, PAL, std)

	_, err = ParseStandard("secam")
	assert.Error(t, err)

	assert.Equal(t, "NTSC", NTSC.String())
	assert.Equal(t, "Standard(7)", Standard(7).String())
}

func TestFrameRate(t *testing.T) {
	assert.InDelta(t, 29.97, Compute(NTSC, 320, 240, 3.3).FrameRate(), 0.05)
	assert.InDelta(t, 25.0, Compute(PAL, 320, 240, 3.3).FrameRate(), 0.05)
	assert.Zero(t, Timing{}.FrameRate())
}
