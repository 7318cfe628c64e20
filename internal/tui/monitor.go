// SPDX-License-Identifier: MIT
// Package tui renders a live terminal monitor for a running session.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pulse/internal/rppg"
	"pulse/internal/session"
)

// RefreshInterval is how often the monitor polls the estimate.
const RefreshInterval = 200 * time.Millisecond

const (
	historyLen = 40
	barWidth   = 40
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E05050")).
			Bold(true)

	levelStyles = map[rppg.QualityLevel]lipgloss.Style{
		rppg.QualityGood: lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065")),
		rppg.QualityFair: lipgloss.NewStyle().Foreground(lipgloss.Color("#E0B030")),
		rppg.QualityPoor: lipgloss.NewStyle().Foreground(lipgloss.Color("#E05050")),
	}
)

// Snapshotter provides the latest estimate.
type Snapshotter interface {
	Snapshot() session.Estimate
}

// Controls starts and stops the session.
type Controls interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type keyMap struct {
	Start key.Binding
	Stop  key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Start: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
	Stop:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type refreshMsg time.Time

type controlMsg struct {
	action string
	err    error
}

// MonitorModel is the Bubble Tea model of the monitor.
type MonitorModel struct {
	source   Snapshotter
	controls Controls
	version  string

	estimate session.Estimate
	history  []int
	bar      progress.Model
	err      error
}

// NewMonitorModel creates a monitor polling source and driving controls.
func NewMonitorModel(source Snapshotter, controls Controls, version string) MonitorModel {
	return MonitorModel{
		source:   source,
		controls: controls,
		version:  version,
		estimate: source.Snapshot(),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
	}
}

func refresh() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m MonitorModel) control(action string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return controlMsg{action: action, err: fn(ctx)}
	}
}

// Init starts polling.
func (m MonitorModel) Init() tea.Cmd {
	return refresh()
}

// Update handles input and refreshes.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(barWidth, max(10, msg.Width-20))

	case refreshMsg:
		m = m.observe(m.source.Snapshot())
		return m, refresh()

	case controlMsg:
		m.err = msg.err
		if msg.err != nil {
			m.err = fmt.Errorf("%s: %w", msg.action, msg.err)
		}
		m = m.observe(m.source.Snapshot())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Start):
			return m, m.control("start", m.controls.Start)
		case key.Matches(msg, keys.Stop):
			return m, m.control("stop", m.controls.Stop)
		}
	}
	return m, nil
}

// observe records e, appending to the history when it carries a new heart rate. The
// history restarts with every session.
func (m MonitorModel) observe(e session.Estimate) MonitorModel {
	if e.State == session.StateIdle || e.SessionID != m.estimate.SessionID {
		m.history = m.history[:0]
	}
	if e.Seq != m.estimate.Seq && e.HeartRate != nil {
		m.history = append(m.history, *e.HeartRate)
		if len(m.history) > historyLen {
			m.history = m.history[len(m.history)-historyLen:]
		}
	}
	m.estimate = e
	return m
}

// View renders the monitor.
func (m MonitorModel) View() string {
	var sb strings.Builder
	e := m.estimate

	sb.WriteString(titleStyle.Render("pulse " + m.version))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "State:       %s\n", highlightStyle.Render(e.State.String()))
	if e.HeartRate != nil {
		fmt.Fprintf(&sb, "Heart rate:  %s\n", highlightStyle.Render(fmt.Sprintf("%d bpm", *e.HeartRate)))
	} else if e.IsProcessing {
		sb.WriteString("Heart rate:  measuring...\n")
	} else {
		sb.WriteString("Heart rate:  --\n")
	}

	level := e.QualityLevel()
	fmt.Fprintf(&sb, "Quality:     %s %s\n",
		m.bar.ViewAs(e.SignalQuality/rppg.MaxQuality),
		levelStyles[level].Render(fmt.Sprintf("%.0f %s", e.SignalQuality, level)))

	if len(m.history) > 0 {
		fmt.Fprintf(&sb, "History:     %s\n", sparkline(m.history))
	}
	if msg := e.ErrorMessage(); msg != "" {
		sb.WriteString("\n" + errorStyle.Render("Error: "+msg) + "\n")
	}
	if m.err != nil {
		sb.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("s: Start • x: Stop • q: Quit"))
	return sb.String()
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline scales values between their minimum and maximum.
func sparkline(values []int) string {
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	out := make([]rune, len(values))
	for i, v := range values {
		idx := 0
		if hi > lo {
			idx = (v - lo) * (len(sparkRunes) - 1) / (hi - lo)
		}
		out[i] = sparkRunes[idx]
	}
	return string(out)
}

// Run launches the monitor and blocks until the user quits.
func Run(source Snapshotter, controls Controls, version string) error {
	p := tea.NewProgram(
		NewMonitorModel(source, controls, version),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
