package video

import (
	"fmt"
	"strings"
)

// Pulse is a half-line vertical sync shape.
type Pulse int

const (
	// Short is sync for ShortSync samples, then blank (equalizing pulse).
	Short Pulse = iota
	// Broad is sync for a half line less ShortSync, then blank.
	Broad
	// HalfBlank is a half line at blank level. It carries an hsync pulse
	// when it opens a line.
	HalfBlank
)

func (p Pulse) String() string {
	switch p {
	case Short:
		return "short"
	case Broad:
		return "broad"
	case HalfBlank:
		return "blank"
	}
	return fmt.Sprintf("Pulse(%d)", int(p))
}

// Step is a run of identical physical lines, each made of two half-line
// pulses.
type Step struct {
	First  Pulse
	Second Pulse
	Lines  int
}

// The vertical sync pulse trains. The odd field starts and ends half a line
// out of step with the even field, which is what makes the display offset
// it by half a line and interlace the two.
var (
	evenHeader = []Step{
		{Broad, Broad, 2},
		{Broad, Short, 1},
		{Short, Short, 2},
	}
	evenFooter = []Step{
		{Short, Short, 2},
	}
	oddHeader = []Step{
		{Short, Broad, 1},
		{Broad, Broad, 2},
		{Short, Short, 2},
		{Short, HalfBlank, 1},
	}
	oddFooter = []Step{
		{HalfBlank, Short, 1},
		{Short, Short, 2},
	}
)

// Header returns the pulse train sent before the picture lines of a field.
func Header(p Parity) []Step {
	if p == Odd {
		return oddHeader
	}
	return evenHeader
}

// Footer returns the pulse train sent after the picture lines of a field.
func Footer(p Parity) []Step {
	if p == Odd {
		return oddFooter
	}
	return evenFooter
}

func stepLines(steps []Step) int {
	n := 0
	for _, s := range steps {
		n += s.Lines
	}
	return n
}

// HeaderLines is the number of physical lines in a field's header.
func HeaderLines(p Parity) int {
	return stepLines(Header(p))
}

// FooterLines is the number of physical lines in a field's footer.
func FooterLines(p Parity) int {
	return stepLines(Footer(p))
}

// RowMapping decides which source row is shown on each picture line of a
// field.
type RowMapping interface {
	Row(t Timing, p Parity, line int) int
}

// RowMappingFunc adapts a function to RowMapping.
type RowMappingFunc func(t Timing, p Parity, line int) int

// Row implements RowMapping.
func (f RowMappingFunc) Row(t Timing, p Parity, line int) int {
	return f(t, p, line)
}

var (
	// Interlaced sends even rows in the even field and odd rows in the odd
	// field.
	Interlaced RowMapping = RowMappingFunc(func(_ Timing, p Parity, line int) int {
		return line*2 + int(p)
	})

	// Split sends the first half of the rows in the even field and the
	// second half in the odd field.
	Split RowMapping = RowMappingFunc(func(t Timing, p Parity, line int) int {
		if p == Odd {
			return t.Fields[Even].Rows + line
		}
		return line
	})

	// Doubled sends the same rows in both fields, halving vertical
	// resolution.
	Doubled RowMapping = RowMappingFunc(func(_ Timing, _ Parity, line int) int {
		return line
	})
)

// ParseRowMapping accepts "interlaced", "split" or "doubled".
func ParseRowMapping(name string) (RowMapping, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "interlaced", "":
		return Interlaced, nil
	case "split":
		return Split, nil
	case "doubled":
		return Doubled, nil
	}
	return nil, fmt.Errorf("unknown row mapping %q", name)
}
