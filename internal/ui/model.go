// ABOUTME: Bubbletea model for the sink status TUI
// ABOUTME: Defines playback state and update logic
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/alsasink/internal/version"
	"github.com/Resonate-Protocol/alsasink/pkg/sink"
	tea "github.com/charmbracelet/bubbletea"
)

// Playback states shown in the header
const (
	StateIdle     = "idle"
	StatePlaying  = "playing"
	StateStopped  = "stopped"
	StateFinished = "finished"
	StateError    = "error"
)

// Model represents the TUI state
type Model struct {
	// Output
	device  string
	backend string
	state   string
	session string

	// Negotiated parameters
	params     sink.Negotiated
	negotiated bool

	// Source
	file       string
	sourceRate int

	// Stats
	stats sink.Stats

	lastError string

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int

	control *Control
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderParams()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders device and playback state
func (m Model) renderHeader() string {
	stateIcon := "·"
	switch m.state {
	case StatePlaying:
		stateIcon = "▶"
	case StateStopped, StateFinished:
		stateIcon = "■"
	case StateError:
		stateIcon = "✗"
	}

	title := fmt.Sprintf("─ %s ", version.String())
	return fmt.Sprintf(`┌%s%s┐
│ Output: %-45s │
│ State:  %s %-43s │
├──────────────────────────────────────────────────────┤
`, title, strings.Repeat("─", max(0, 54-len([]rune(title)))),
		truncate(fmt.Sprintf("%s (%s)", m.device, m.backend), 45), stateIcon, truncate(m.state, 43))
}

// renderParams renders the negotiated hardware configuration
func (m Model) renderParams() string {
	if !m.negotiated {
		return "│ Not opened                                           │\n"
	}

	p := m.params
	s := fmt.Sprintf("│ Format: S16_LE %dHz %s%-27s │\n", p.Rate, channelName(int(p.Channels)), "")
	s += fmt.Sprintf("│ Buffer: %-45s │\n",
		fmt.Sprintf("%d frames (%.0fms), %d x %d", p.BufferSize, p.LatencyMs(), p.Periods, p.PeriodSize))
	if m.file != "" {
		s += fmt.Sprintf("│ File:   %-45s │\n", truncate(m.file, 45))
	}
	if m.sourceRate != 0 && m.sourceRate != int(p.Rate) {
		s += fmt.Sprintf("│ Source: %-45s │\n", fmt.Sprintf("%dHz, resampled", m.sourceRate))
	}
	return s
}

// renderStats renders playback statistics
func (m Model) renderStats() string {
	fill := renderBar(int(m.stats.Underruns), 10, 10)
	s := fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Played: %-45s │
│ Writes: %-12d Underruns: [%s] %-9d │
`, formatPosition(m.stats.Frames, m.params.Rate), m.stats.Writes, fill, m.stats.Underruns)
	if m.lastError != "" {
		s += fmt.Sprintf("│ Error:  %-45s │\n", truncate(m.lastError, 45))
	}
	return s
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ d:Debug  q:Quit                                      │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders debug information
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Session: %-42s │
│   Start threshold: %-34d │
│   Resample: %-41v │
`, m.session, m.params.StartThreshold, m.params.Resample)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.control != nil {
			select {
			case m.control.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Device != "" {
		m.device = msg.Device
	}
	if msg.Backend != "" {
		m.backend = msg.Backend
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Session != "" {
		m.session = msg.Session
	}
	if msg.Params != nil {
		m.params = *msg.Params
		m.negotiated = true
	}
	if msg.File != "" {
		m.file = msg.File
		m.sourceRate = msg.SourceRate
	}
	if msg.Stats != nil {
		m.stats = *msg.Stats
	}
	if msg.Err != nil {
		m.lastError = msg.Err.Error()
	}
}

// StatusMsg updates TUI state. Zero fields leave the current value alone.
type StatusMsg struct {
	Device     string
	Backend    string
	State      string
	Session    string
	Params     *sink.Negotiated
	File       string
	SourceRate int
	Stats      *sink.Stats
	Err        error
}

// Utility functions
func renderBar(value, max, width int) string {
	if value > max {
		value = max
	}
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

// formatPosition renders played frames as m:ss.t
func formatPosition(frames uint64, rate uint32) string {
	if rate == 0 {
		return "0:00.0"
	}
	d := time.Duration(frames) * time.Second / time.Duration(rate)
	minutes := int(d / time.Minute)
	seconds := (d % time.Minute).Seconds()
	return fmt.Sprintf("%d:%04.1f", minutes, seconds)
}
