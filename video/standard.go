package video

import (
	"fmt"
	"strings"
)

// Standard identifies an analog video format.
type Standard int

const (
	PAL Standard = iota
	NTSC
)

func (s Standard) String() string {
	switch s {
	case PAL:
		return "PAL"
	case NTSC:
		return "NTSC"
	}
	return fmt.Sprintf("Standard(%d)", int(s))
}

// ParseStandard accepts "pal" or "ntsc" in any case.
func ParseStandard(name string) (Standard, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pal":
		return PAL, nil
	case "ntsc":
		return NTSC, nil
	}
	return 0, fmt.Errorf("unknown video standard %q", name)
}

// IRE is one IRE unit in volts (1 Vp-p = 140 IRE).
const IRE = 1.0 / 140.0

// Properties holds the human-readable parameters of a standard. Durations
// are in microseconds, levels in volts.
type Properties struct {
	LineMicros          float64
	HSyncMicros         float64
	BackPorchMicros     float64
	FrontPorchMicros    float64
	ShortSyncMicros     float64
	BroadSyncMicros     float64
	OverscanLeftMicros  float64
	OverscanRightMicros float64

	SyncVolts  float64
	BlankVolts float64
	BlackVolts float64
	WhiteVolts float64

	Lines               int
	FirstActiveLine     int
	OverscanTopLines    int
	OverscanBottomLines int

	ImageAspect float64
}

// Standards is the timing table. Levels follow Maxim's tutorial 734, line
// timings follow batsocks.co.uk and martin.hinner.info/vga/pal.html.
var Standards = map[Standard]Properties{
	PAL: {
		LineMicros:          64,
		HSyncMicros:         4.7,
		BackPorchMicros:     10.4,
		FrontPorchMicros:    1.65,
		ShortSyncMicros:     2.35,
		BroadSyncMicros:     64.0/2 - 4.7,
		OverscanLeftMicros:  1.6875,
		OverscanRightMicros: 1.6875,
		SyncVolts:           -0.3,
		BlankVolts:          0.0,
		BlackVolts:          0.005, // nominally 0.0
		WhiteVolts:          0.7,
		Lines:               625,
		FirstActiveLine:     23,
		OverscanTopLines:    9,
		OverscanBottomLines: 9,
		ImageAspect:         4.0 / 3.0,
	},
	NTSC: {
		LineMicros:          63.492,
		HSyncMicros:         4.7,
		BackPorchMicros:     4.5,
		FrontPorchMicros:    1.5,
		ShortSyncMicros:     2.35,
		BroadSyncMicros:     63.492/2 - 4.7,
		OverscanLeftMicros:  0,
		OverscanRightMicros: 0,
		SyncVolts:           -40.0 * IRE,
		BlankVolts:          0.0 * IRE,
		BlackVolts:          7.5 * IRE,
		WhiteVolts:          100.0 * IRE,
		Lines:               525,
		FirstActiveLine:     20,
		OverscanTopLines:    6,
		OverscanBottomLines: 9,
		ImageAspect:         4.0 / 3.0,
	},
}
