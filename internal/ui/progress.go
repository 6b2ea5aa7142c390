// Package ui renders module preloading in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"kestrel/internal/loader"
)

type progressModel struct {
	title   string
	events  <-chan loader.Event
	spinner spinner.Model
	prog    progress.Model
	items   []moduleItem
	index   map[string]int
	width   int
	done    bool
}

type moduleItem struct {
	name      string
	namespace string
	status    string
	stage     loader.Stage
	elapsed   time.Duration
	err       error
}

// Target is one module the view tracks.
type Target struct {
	Module    string
	Namespace string
}

type eventMsg loader.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders preload progress.
// The model quits when events is closed.
func NewProgressModel(title string, targets []Target, events <-chan loader.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]moduleItem, 0, len(targets))
	index := make(map[string]int, len(targets))
	for i, t := range targets {
		name := loader.CanonicalName(t.Module)
		items = append(items, moduleItem{name: name, namespace: t.Namespace, status: "queued"})
		index[name] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(loader.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	const statusWidth = 10
	nameWidth := max(m.width-statusWidth-14, 20)
	for _, item := range m.items {
		status := styleStatus(item.status).Render(fmt.Sprintf("%*s", statusWidth, item.status))
		name := Truncate(item.name+" -> "+item.namespace, nameWidth)
		fmt.Fprintf(&b, "  %s %s", status, name)
		if item.elapsed > 0 {
			fmt.Fprintf(&b, " %s", item.elapsed.Round(time.Millisecond))
		}
		b.WriteString("\n")
		if item.err != nil {
			errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
			b.WriteString("    " + errStyle.Render(Truncate(item.err.Error(), m.width-4)) + "\n")
		}
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev loader.Event) tea.Cmd {
	idx, ok := m.index[ev.Module]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	if label := statusLabel(ev.Stage, ev.Status); label != "" {
		item.status = label
		item.stage = ev.Stage
	}
	if ev.Stage == loader.StageDone {
		item.elapsed = ev.Elapsed
		item.err = ev.Err
	}
	return m.prog.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		total += progressFromStage(item.stage)
	}
	return total / float64(len(m.items))
}

func progressFromStage(stage loader.Stage) float64 {
	switch stage {
	case loader.StageResolve:
		return 0.1
	case loader.StageOpen:
		return 0.4
	case loader.StageInit:
		return 0.7
	case loader.StageDone:
		return 1.0
	default:
		return 0.0
	}
}

func statusLabel(stage loader.Stage, status loader.Status) string {
	switch status {
	case loader.StatusDone:
		return "loaded"
	case loader.StatusCached:
		return "cached"
	case loader.StatusError:
		return "error"
	case loader.StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage loader.Stage) string {
	switch stage {
	case loader.StageResolve:
		return "resolving"
	case loader.StageOpen:
		return "opening"
	case loader.StageInit:
		return "init"
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "loaded", "cached":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "resolving", "opening", "init":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

// Truncate shortens value to at most width terminal columns.
func Truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}

// PadRight pads value with spaces to width terminal columns.
func PadRight(value string, width int) string {
	return runewidth.FillRight(value, width)
}
