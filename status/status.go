// Package status is the live terminal status screen of the generator.
package status

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"compositetv/video"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// FrameMsg reports a frame sent by the generator.
type FrameMsg struct {
	Stats     video.FrameStats
	Lines     uint64
	Underruns uint64
	At        time.Time
}

// ErrMsg reports that the generator stopped with an error.
type ErrMsg struct {
	Err error
}

// Model is the bubbletea model of the status screen.
type Model struct {
	timing   video.Timing
	output   string
	achieved float64

	started  time.Time
	last     FrameMsg
	frames   uint64
	err      error
	quitting bool
}

// New returns a status screen for a generator sending t to output at the
// achieved sample rate.
func New(t video.Timing, output string, achieved float64) Model {
	return Model{
		timing:   t,
		output:   output,
		achieved: achieved,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case FrameMsg:
		if m.started.IsZero() {
			m.started = msg.At.Add(-msg.Stats.Elapsed)
		}
		m.last = msg
		m.frames = msg.Stats.Frame
	case ErrMsg:
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// Frames returns the number of frames reported so far.
func (m Model) Frames() uint64 {
	return m.frames
}

// Quitting reports whether the user asked to quit.
func (m Model) Quitting() bool {
	return m.quitting
}

// FPS is the average frame rate since the first report.
func (m Model) FPS() float64 {
	elapsed := m.last.At.Sub(m.started).Seconds()
	if m.frames == 0 || elapsed <= 0 {
		return 0
	}
	return float64(m.frames) / elapsed
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s on %s", m.timing.Standard, m.output)))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(Table(m.timing)))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(rows([][2]string{
		{"sample rate", fmt.Sprintf("%.6f MHz", m.achieved/1e6)},
		{"frames", fmt.Sprint(m.frames)},
		{"lines", fmt.Sprint(m.last.Lines)},
		{"frame time", m.last.Stats.Elapsed.Round(time.Microsecond).String()},
		{"fps", fmt.Sprintf("%.2f", m.FPS())},
		{"underruns", fmt.Sprint(m.last.Underruns)},
	})))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("q: quit"))
	b.WriteString("\n")
	return b.String()
}

// Table renders the sample-domain timing of t.
func Table(t video.Timing) string {
	return rows([][2]string{
		{"line", fmt.Sprintf("%d samples", t.Line)},
		{"sync", fmt.Sprintf("%d / %d / %d", t.Sync, t.ShortSync, t.BroadSync)},
		{"porches", fmt.Sprintf("%d + %d, %d", t.BackPorch, t.BlankLeft, t.BlankRight+t.FrontPorch)},
		{"active", fmt.Sprintf("%d (pad %d/%d)", t.Active, t.PadLeft, t.PadRight)},
		{"levels", fmt.Sprintf("sync %d blank %d black %d white %d", t.SyncLevel, t.BlankLevel, t.BlackLevel, t.WhiteLevel)},
		{"picture", fmt.Sprintf("%dx%d, %d rows even %d odd", t.PixelsPerLine, t.TargetHeight, t.Fields[video.Even].Rows, t.Fields[video.Odd].Rows)},
		{"pixel aspect", fmt.Sprintf("%.3f", t.PixelAspect)},
	})
}

func rows(kv [][2]string) string {
	lines := make([]string, len(kv))
	for i, r := range kv {
		lines[i] = lipgloss.JoinHorizontal(lipgloss.Top, keyStyle.Render(r[0]), valueStyle.Render(r[1]))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
